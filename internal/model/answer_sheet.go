package model

// AnswerSheet 与 StudentExam 一对一，保存时整体替换 Responses
// swagger:model AnswerSheet
type AnswerSheet struct {
	Record
	StudentExamID uint       `gorm:"uniqueIndex;not null" json:"studentExamId"`
	Responses     []Response `gorm:"foreignKey:AnswerSheetID" json:"responses"`
}

func (AnswerSheet) TableName() string {
	return "answer_sheets"
}

type Response struct {
	Record
	AnswerSheetID uint `gorm:"index;not null" json:"answerSheetId"`
	QuestionID    uint `gorm:"not null" json:"questionId"`
	OptionID      uint `gorm:"not null" json:"optionId"`
}

func (Response) TableName() string {
	return "responses"
}

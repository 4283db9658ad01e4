package model

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// Question 单选题。正确答案只以 CorrectOptionID 引用保存，不在选项上存布尔标记
// swagger:model Question
type Question struct {
	Record
	ExamID          uint           `gorm:"index;not null" json:"examId"`
	Text            string         `gorm:"type:text;not null" json:"text"`
	HasImage        bool           `gorm:"default:false" json:"hasImage"`
	Images          datatypes.JSON `json:"images,omitempty"`
	Marks           int            `gorm:"not null" json:"marks"`
	NegativeMarks   float64        `gorm:"default:0" json:"negativeMarks"`
	CorrectOptionID *uint          `json:"correctOptionId,omitempty"`
	Options         []Option       `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

func (q *Question) ImageList() []string {
	var images []string
	if len(q.Images) == 0 {
		return images
	}
	_ = json.Unmarshal(q.Images, &images)
	return images
}

// swagger:model Option
type Option struct {
	Record
	QuestionID uint   `gorm:"index;not null" json:"questionId"`
	Text       string `gorm:"size:1000;not null" json:"text"`
}

func (Option) TableName() string {
	return "options"
}

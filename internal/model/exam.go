package model

import "time"

// Exam 考试。CurrentQuestionCount / CurrentTotalMarks 由题目增删改在同一事务内增量维护，
// 是判断试卷是否编写完成的唯一依据
// swagger:model Exam
type Exam struct {
	BaseModel
	Name                 string    `gorm:"size:255;not null" json:"name"`
	TeacherID            uint      `gorm:"index;not null" json:"teacherId"`
	SubjectID            uint      `gorm:"index;not null" json:"subjectId"`
	NumQuestions         int       `gorm:"not null" json:"numQuestions"`
	TotalMarks           int       `gorm:"not null" json:"totalMarks"`
	PassingMarks         int       `gorm:"not null" json:"passingMarks"`
	Duration             int       `gorm:"not null" json:"duration"` // Minutes
	StartDate            time.Time `json:"startDate"`
	EndDate              time.Time `json:"endDate"`
	IsActive             bool      `gorm:"default:false" json:"isActive"`
	CurrentQuestionCount int       `gorm:"default:0" json:"currentQuestionCount"`
	CurrentTotalMarks    int       `gorm:"default:0" json:"currentTotalMarks"`
}

func (Exam) TableName() string {
	return "exams"
}

// IsAuthoringComplete 题目数和总分都达到声明值
func (e *Exam) IsAuthoringComplete() bool {
	return e.CurrentQuestionCount == e.NumQuestions && e.CurrentTotalMarks == e.TotalMarks
}

func (e *Exam) DurationPeriod() time.Duration {
	return time.Duration(e.Duration) * time.Minute
}

func (e *Exam) RemainingMarks() int {
	return e.TotalMarks - e.CurrentTotalMarks
}

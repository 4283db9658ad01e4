package model

import "time"

type StudentExamStatus string

const (
	StatusNotStarted StudentExamStatus = "NOT_STARTED"
	StatusInProgress StudentExamStatus = "IN_PROGRESS"
	StatusCompleted  StudentExamStatus = "COMPLETED"
	StatusBanned     StudentExamStatus = "BANNED"
)

// StudentExam 一个学生对一场考试的分配与作答记录，(student_id, exam_id) 唯一
// swagger:model StudentExam
type StudentExam struct {
	Record
	StudentID     uint              `gorm:"uniqueIndex:idx_student_exam;not null" json:"studentId"`
	ExamID        uint              `gorm:"uniqueIndex:idx_student_exam;index;not null" json:"examId"`
	Status        StudentExamStatus `gorm:"size:20;index;not null" json:"status"`
	StartTime     *time.Time        `json:"startTime,omitempty"`
	EndTime       *time.Time        `gorm:"index" json:"endTime,omitempty"`
	SubmittedAt   *time.Time        `json:"submittedAt,omitempty"`
	AutoSubmitted bool              `gorm:"default:false" json:"autoSubmitted"`
	Exam          *Exam             `gorm:"foreignKey:ExamID" json:"exam,omitempty"`
}

func (StudentExam) TableName() string {
	return "student_exams"
}

package repository

import (
	"context"
	"exam_portal_backend/internal/model"

	"gorm.io/gorm"
)

type ResultRepository struct {
	DB *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{DB: db}
}

func (r *ResultRepository) WithTx(tx *gorm.DB) *ResultRepository {
	return &ResultRepository{DB: tx}
}

func (r *ResultRepository) Create(ctx context.Context, result *model.Result) error {
	return r.DB.WithContext(ctx).Create(result).Error
}

func (r *ResultRepository) FindByStudentExam(ctx context.Context, studentExamID uint) (*model.Result, error) {
	var result model.Result
	if err := r.DB.WithContext(ctx).Where("student_exam_id = ?", studentExamID).First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

// ExamResultRow 教师查看成绩列表的一行
type ExamResultRow struct {
	StudentExamID uint               `json:"studentExamId"`
	StudentID     uint               `json:"studentId"`
	StudentName   string             `json:"studentName"`
	Marks         float64            `json:"marks"`
	TimeTaken     int                `json:"timeTaken"`
	Status        model.ResultStatus `json:"status"`
	AutoSubmitted bool               `json:"autoSubmitted"`
}

func (r *ResultRepository) ListByExam(ctx context.Context, examID uint) ([]ExamResultRow, error) {
	var rows []ExamResultRow
	err := r.DB.WithContext(ctx).Table("results").
		Select("results.student_exam_id, student_exams.student_id, users.name AS student_name, results.marks, results.time_taken, results.status, student_exams.auto_submitted").
		Joins("JOIN student_exams ON student_exams.id = results.student_exam_id").
		Joins("LEFT JOIN students ON students.id = student_exams.student_id").
		Joins("LEFT JOIN users ON users.id = students.user_id").
		Where("student_exams.exam_id = ?", examID).
		Order("results.marks desc, results.time_taken asc").
		Scan(&rows).Error
	return rows, err
}

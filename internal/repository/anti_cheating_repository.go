package repository

import (
	"context"
	"exam_portal_backend/internal/model"

	"gorm.io/gorm"
)

type AntiCheatingRepository struct {
	DB *gorm.DB
}

func NewAntiCheatingRepository(db *gorm.DB) *AntiCheatingRepository {
	return &AntiCheatingRepository{DB: db}
}

func (r *AntiCheatingRepository) WithTx(tx *gorm.DB) *AntiCheatingRepository {
	return &AntiCheatingRepository{DB: tx}
}

func (r *AntiCheatingRepository) Create(ctx context.Context, log *model.AntiCheatingLog) error {
	return r.DB.WithContext(ctx).Create(log).Error
}

func (r *AntiCheatingRepository) CountByStudentExam(ctx context.Context, studentExamID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.AntiCheatingLog{}).
		Where("student_exam_id = ?", studentExamID).
		Count(&count).Error
	return count, err
}

func (r *AntiCheatingRepository) ListByStudentExam(ctx context.Context, studentExamID uint) ([]model.AntiCheatingLog, error) {
	var logs []model.AntiCheatingLog
	err := r.DB.WithContext(ctx).
		Where("student_exam_id = ?", studentExamID).
		Order("timestamp asc, id asc").
		Find(&logs).Error
	return logs, err
}

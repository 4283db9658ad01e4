package repository

import (
	"context"
	"errors"
	"exam_portal_backend/internal/model"

	"gorm.io/gorm"
)

type AnswerSheetRepository struct {
	DB *gorm.DB
}

func NewAnswerSheetRepository(db *gorm.DB) *AnswerSheetRepository {
	return &AnswerSheetRepository{DB: db}
}

func (r *AnswerSheetRepository) WithTx(tx *gorm.DB) *AnswerSheetRepository {
	return &AnswerSheetRepository{DB: tx}
}

func (r *AnswerSheetRepository) FindByStudentExam(ctx context.Context, studentExamID uint) (*model.AnswerSheet, error) {
	var sheet model.AnswerSheet
	err := r.DB.WithContext(ctx).
		Preload("Responses", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("student_exam_id = ?", studentExamID).
		First(&sheet).Error
	if err != nil {
		return nil, err
	}
	return &sheet, nil
}

// GetOrCreate 每个作答记录最多一张答题卡，由 student_exam_id 唯一索引保证
func (r *AnswerSheetRepository) GetOrCreate(ctx context.Context, studentExamID uint) (*model.AnswerSheet, error) {
	sheet, err := r.FindByStudentExam(ctx, studentExamID)
	if err == nil {
		return sheet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	sheet = &model.AnswerSheet{StudentExamID: studentExamID}
	if err := r.DB.WithContext(ctx).Omit("Responses").Create(sheet).Error; err != nil {
		return nil, err
	}
	return sheet, nil
}

// ReplaceResponses 先删后建，整体替换答题卡上的作答
func (r *AnswerSheetRepository) ReplaceResponses(ctx context.Context, sheetID uint, responses []model.Response) ([]model.Response, error) {
	db := r.DB.WithContext(ctx)
	if err := db.Where("answer_sheet_id = ?", sheetID).Delete(&model.Response{}).Error; err != nil {
		return nil, err
	}
	if len(responses) == 0 {
		return []model.Response{}, nil
	}
	for i := range responses {
		responses[i].ID = 0
		responses[i].AnswerSheetID = sheetID
	}
	if err := db.Create(&responses).Error; err != nil {
		return nil, err
	}
	return responses, nil
}

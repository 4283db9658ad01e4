package repository

import (
	"context"
	"exam_portal_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) WithTx(tx *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: tx}
}

// Create 同时写入 question.Options
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Create(q).Error
}

func (r *QuestionRepository) FindByID(ctx context.Context, id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		First(&q, id).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) ListByExam(ctx context.Context, examID uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("exam_id = ?", examID).
		Order("id asc").
		Find(&qs).Error
	return qs, err
}

func (r *QuestionRepository) SetCorrectOption(ctx context.Context, questionID, optionID uint) error {
	return r.DB.WithContext(ctx).Model(&model.Question{}).
		Where("id = ?", questionID).
		Update("correct_option_id", optionID).Error
}

// UpdateFields 只更新题目本身的列，选项由 ReplaceOptions 处理
func (r *QuestionRepository) UpdateFields(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Model(&model.Question{}).
		Where("id = ?", q.ID).
		Select("text", "has_image", "images", "marks", "negative_marks").
		Updates(q).Error
}

func (r *QuestionRepository) ReplaceOptions(ctx context.Context, questionID uint, options []model.Option) ([]model.Option, error) {
	db := r.DB.WithContext(ctx)
	if err := db.Where("question_id = ?", questionID).Delete(&model.Option{}).Error; err != nil {
		return nil, err
	}
	for i := range options {
		options[i].ID = 0
		options[i].QuestionID = questionID
	}
	if err := db.Create(&options).Error; err != nil {
		return nil, err
	}
	return options, nil
}

func (r *QuestionRepository) Delete(ctx context.Context, id uint) error {
	db := r.DB.WithContext(ctx)
	if err := db.Where("question_id = ?", id).Delete(&model.Option{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.Question{}, id).Error
}

// SumByExam 按现存题目实时汇总，只用于对账和测试，业务判断以 exams 上的计数为准
func (r *QuestionRepository) SumByExam(ctx context.Context, examID uint) (count int64, marks int64, err error) {
	var row struct {
		Count int64
		Marks int64
	}
	err = r.DB.WithContext(ctx).Model(&model.Question{}).
		Select("COUNT(*) AS count, COALESCE(SUM(marks), 0) AS marks").
		Where("exam_id = ?", examID).
		Scan(&row).Error
	return row.Count, row.Marks, err
}

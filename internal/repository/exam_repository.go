package repository

import (
	"context"
	"exam_portal_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExamRepository struct {
	DB *gorm.DB
}

func NewExamRepository(db *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: db}
}

func (r *ExamRepository) WithTx(tx *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: tx}
}

func (r *ExamRepository) Create(ctx context.Context, exam *model.Exam) error {
	return r.DB.WithContext(ctx).Create(exam).Error
}

// FindForUpdate 行锁读取考试，需在事务内调用；持锁期间 Activate 会等待提交
func (r *ExamRepository) FindForUpdate(ctx context.Context, id uint) (*model.Exam, error) {
	var exam model.Exam
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&exam, id).Error
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

// UpdateDefinition 只写声明字段，计数列不参与；声明值低于当前计数（并发加题）时不更新
func (r *ExamRepository) UpdateDefinition(ctx context.Context, exam *model.Exam) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Exam{}).
		Where("id = ?", exam.ID).
		Where("current_question_count <= ? AND current_total_marks <= ?", exam.NumQuestions, exam.TotalMarks).
		Select("name", "subject_id", "num_questions", "total_marks", "passing_marks", "duration", "start_date", "end_date").
		Updates(exam)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ExamRepository) FindByID(ctx context.Context, id uint) (*model.Exam, error) {
	var exam model.Exam
	if err := r.DB.WithContext(ctx).First(&exam, id).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *ExamRepository) ListByTeacher(ctx context.Context, teacherID uint) ([]model.Exam, error) {
	var exams []model.Exam
	query := r.DB.WithContext(ctx).Model(&model.Exam{})
	if teacherID > 0 {
		query = query.Where("teacher_id = ?", teacherID)
	}
	err := query.Order("start_date desc, id desc").Find(&exams).Error
	return exams, err
}

func (r *ExamRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&model.Exam{}, id).Error
}

func (r *ExamRepository) Deactivate(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&model.Exam{}).Where("id = ?", id).Update("is_active", false).Error
}

// Activate 仅当计数与声明值完全一致时激活
func (r *ExamRepository) Activate(ctx context.Context, id uint) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Exam{}).
		Where("id = ?", id).
		Where("current_question_count = num_questions AND current_total_marks = total_marks").
		Update("is_active", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// AdjustCounters 以相对增量更新题目数和总分，不做先读后写。
// WHERE 条件保证计数不超过声明值、不为负，且补齐最后一题时总分必须恰好相等；
// 已激活的考试计数冻结。条件不满足（通常是并发修改）时返回 false，不做任何更新
func (r *ExamRepository) AdjustCounters(ctx context.Context, examID uint, deltaCount, deltaMarks int) (bool, error) {
	query := r.DB.WithContext(ctx).Model(&model.Exam{}).
		Where("id = ?", examID).
		Where("is_active = ?", false).
		Where("current_question_count + ? <= num_questions", deltaCount).
		Where("current_question_count + ? >= 0", deltaCount).
		Where("current_total_marks + ? <= total_marks", deltaMarks).
		Where("current_total_marks + ? >= 0", deltaMarks)

	if deltaCount > 0 {
		query = query.Where("(current_question_count + ? < num_questions OR current_total_marks + ? = total_marks)", deltaCount, deltaMarks)
	}

	res := query.Updates(map[string]interface{}{
		"current_question_count": gorm.Expr("current_question_count + ?", deltaCount),
		"current_total_marks":    gorm.Expr("current_total_marks + ?", deltaMarks),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CountAttempts 统计某考试处于指定状态的作答记录数，不传状态时统计全部
func (r *ExamRepository) CountAttempts(ctx context.Context, examID uint, statuses ...model.StudentExamStatus) (int64, error) {
	var count int64
	query := r.DB.WithContext(ctx).Model(&model.StudentExam{}).Where("exam_id = ?", examID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	err := query.Count(&count).Error
	return count, err
}

package repository

import (
	"context"
	"exam_portal_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StudentExamRepository struct {
	DB *gorm.DB
}

func NewStudentExamRepository(db *gorm.DB) *StudentExamRepository {
	return &StudentExamRepository{DB: db}
}

func (r *StudentExamRepository) WithTx(tx *gorm.DB) *StudentExamRepository {
	return &StudentExamRepository{DB: tx}
}

func (r *StudentExamRepository) Create(ctx context.Context, se *model.StudentExam) error {
	return r.DB.WithContext(ctx).Create(se).Error
}

func (r *StudentExamRepository) CreateBatch(ctx context.Context, rows []model.StudentExam) error {
	if len(rows) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(&rows).Error
}

func (r *StudentExamRepository) FindByID(ctx context.Context, id uint) (*model.StudentExam, error) {
	var se model.StudentExam
	if err := r.DB.WithContext(ctx).First(&se, id).Error; err != nil {
		return nil, err
	}
	return &se, nil
}

// FindForUpdate 行锁读取，需在事务内调用；同一作答的并发写入在此排队
func (r *StudentExamRepository) FindForUpdate(ctx context.Context, id uint) (*model.StudentExam, error) {
	var se model.StudentExam
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&se, id).Error
	if err != nil {
		return nil, err
	}
	return &se, nil
}

func (r *StudentExamRepository) FindByStudentAndExam(ctx context.Context, studentID, examID uint) (*model.StudentExam, error) {
	var se model.StudentExam
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND exam_id = ?", studentID, examID).
		First(&se).Error
	if err != nil {
		return nil, err
	}
	return &se, nil
}

func (r *StudentExamRepository) FindByExamAndStudents(ctx context.Context, examID uint, studentIDs []uint) ([]model.StudentExam, error) {
	var rows []model.StudentExam
	if len(studentIDs) == 0 {
		return rows, nil
	}
	err := r.DB.WithContext(ctx).
		Where("exam_id = ? AND student_id IN ?", examID, studentIDs).
		Find(&rows).Error
	return rows, err
}

func (r *StudentExamRepository) ListByExam(ctx context.Context, examID uint) ([]model.StudentExam, error) {
	var rows []model.StudentExam
	err := r.DB.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("id asc").
		Find(&rows).Error
	return rows, err
}

func (r *StudentExamRepository) ListByStudent(ctx context.Context, studentID uint) ([]model.StudentExam, error) {
	var rows []model.StudentExam
	err := r.DB.WithContext(ctx).
		Preload("Exam").
		Where("student_id = ?", studentID).
		Order("id desc").
		Find(&rows).Error
	return rows, err
}

// Transition 仅当当前状态为 from 时才更新，返回是否生效。
// 同一作答记录的并发提交/封禁依赖这里串行化
func (r *StudentExamRepository) Transition(ctx context.Context, id uint, from model.StudentExamStatus, updates map[string]interface{}) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.StudentExam{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindExpired 查找已超过截止时间仍在作答中的记录
func (r *StudentExamRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]model.StudentExam, error) {
	var rows []model.StudentExam
	query := r.DB.WithContext(ctx).
		Where("status = ? AND end_time IS NOT NULL AND end_time < ?", model.StatusInProgress, now).
		Order("end_time asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&rows).Error
	return rows, err
}

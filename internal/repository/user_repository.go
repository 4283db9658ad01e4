package repository

import (
	"context"
	"exam_portal_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{DB: tx}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) List(ctx context.Context, role model.UserRole) ([]model.User, error) {
	var users []model.User
	query := r.DB.WithContext(ctx).Order("id asc")
	if role != "" {
		query = query.Where("role = ?", role)
	}
	err := query.Find(&users).Error
	return users, err
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login", at).Error
}

func (r *UserRepository) SetDisabled(ctx context.Context, userID uint, disabled bool) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("disabled", disabled).Error
}

func (r *UserRepository) CreateTeacher(ctx context.Context, teacher *model.Teacher) error {
	return r.DB.WithContext(ctx).Omit("Subjects", "User").Create(teacher).Error
}

func (r *UserRepository) CreateStudent(ctx context.Context, student *model.Student) error {
	return r.DB.WithContext(ctx).Omit("Subjects", "User").Create(student).Error
}

func (r *UserRepository) FindTeacherByUserID(ctx context.Context, userID uint) (*model.Teacher, error) {
	var teacher model.Teacher
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&teacher).Error; err != nil {
		return nil, err
	}
	return &teacher, nil
}

func (r *UserRepository) FindStudentByUserID(ctx context.Context, userID uint) (*model.Student, error) {
	var student model.Student
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&student).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *UserRepository) FindTeacherByID(ctx context.Context, id uint) (*model.Teacher, error) {
	var teacher model.Teacher
	if err := r.DB.WithContext(ctx).Preload("User").Preload("Subjects").First(&teacher, id).Error; err != nil {
		return nil, err
	}
	return &teacher, nil
}

func (r *UserRepository) FindStudentByID(ctx context.Context, id uint) (*model.Student, error) {
	var student model.Student
	if err := r.DB.WithContext(ctx).Preload("User").Preload("Subjects").First(&student, id).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

// FindStudentsByIDs 返回存在的学生，调用方自行比对缺失的 ID
func (r *UserRepository) FindStudentsByIDs(ctx context.Context, ids []uint) ([]model.Student, error) {
	var students []model.Student
	if len(ids) == 0 {
		return students, nil
	}
	err := r.DB.WithContext(ctx).Preload("User").Where("id IN ?", ids).Find(&students).Error
	return students, err
}

func (r *UserRepository) IncrementCompletedExams(ctx context.Context, studentID uint) error {
	return r.DB.WithContext(ctx).Model(&model.Student{}).
		Where("id = ?", studentID).
		Update("completed_exams", gorm.Expr("completed_exams + ?", 1)).Error
}

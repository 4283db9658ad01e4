package repository

import (
	"context"
	"exam_portal_backend/internal/model"

	"gorm.io/gorm"
)

type SubjectRepository struct {
	DB *gorm.DB
}

func NewSubjectRepository(db *gorm.DB) *SubjectRepository {
	return &SubjectRepository{DB: db}
}

func (r *SubjectRepository) Create(ctx context.Context, subject *model.Subject) error {
	return r.DB.WithContext(ctx).Create(subject).Error
}

func (r *SubjectRepository) FindByID(ctx context.Context, id uint) (*model.Subject, error) {
	var subject model.Subject
	if err := r.DB.WithContext(ctx).First(&subject, id).Error; err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *SubjectRepository) List(ctx context.Context) ([]model.Subject, error) {
	var subjects []model.Subject
	err := r.DB.WithContext(ctx).Order("code asc").Find(&subjects).Error
	return subjects, err
}

func (r *SubjectRepository) AssignTeacher(ctx context.Context, teacher *model.Teacher, subject *model.Subject) error {
	return r.DB.WithContext(ctx).Model(teacher).Association("Subjects").Append(subject)
}

func (r *SubjectRepository) EnrollStudent(ctx context.Context, student *model.Student, subject *model.Subject) error {
	return r.DB.WithContext(ctx).Model(student).Association("Subjects").Append(subject)
}

func (r *SubjectRepository) IsTeacherAssigned(ctx context.Context, teacherID, subjectID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Table("teacher_subjects").
		Where("teacher_id = ? AND subject_id = ?", teacherID, subjectID).
		Count(&count).Error
	return count > 0, err
}

// EnrolledStudentIDs 返回 studentIDs 中已选修该科目的子集
func (r *SubjectRepository) EnrolledStudentIDs(ctx context.Context, subjectID uint, studentIDs []uint) (map[uint]bool, error) {
	enrolled := make(map[uint]bool, len(studentIDs))
	if len(studentIDs) == 0 {
		return enrolled, nil
	}
	var ids []uint
	err := r.DB.WithContext(ctx).Table("student_subjects").
		Where("subject_id = ? AND student_id IN ?", subjectID, studentIDs).
		Pluck("student_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		enrolled[id] = true
	}
	return enrolled, nil
}

package service

import (
	"context"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"strings"
)

type SubjectService struct {
	SubjectRepo *repository.SubjectRepository
	UserRepo    *repository.UserRepository
}

func NewSubjectService(subjectRepo *repository.SubjectRepository, userRepo *repository.UserRepository) *SubjectService {
	return &SubjectService{SubjectRepo: subjectRepo, UserRepo: userRepo}
}

func (s *SubjectService) CreateSubject(ctx context.Context, name, code string) (*model.Subject, error) {
	subject := &model.Subject{
		Name: strings.TrimSpace(name),
		Code: strings.ToUpper(strings.TrimSpace(code)),
	}
	if err := s.SubjectRepo.Create(ctx, subject); err != nil {
		return nil, conflictOr(err, "subject code %s already exists", subject.Code)
	}
	return subject, nil
}

func (s *SubjectService) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	return s.SubjectRepo.List(ctx)
}

func (s *SubjectService) AssignTeacher(ctx context.Context, subjectID, teacherID uint) error {
	subject, err := s.SubjectRepo.FindByID(ctx, subjectID)
	if err != nil {
		return notFoundOr(err, "subject %d not found", subjectID)
	}
	teacher, err := s.UserRepo.FindTeacherByID(ctx, teacherID)
	if err != nil {
		return notFoundOr(err, "teacher %d not found", teacherID)
	}
	return s.SubjectRepo.AssignTeacher(ctx, teacher, subject)
}

func (s *SubjectService) EnrollStudent(ctx context.Context, subjectID, studentID uint) error {
	subject, err := s.SubjectRepo.FindByID(ctx, subjectID)
	if err != nil {
		return notFoundOr(err, "subject %d not found", subjectID)
	}
	student, err := s.UserRepo.FindStudentByID(ctx, studentID)
	if err != nil {
		return notFoundOr(err, "student %d not found", studentID)
	}
	return s.SubjectRepo.EnrollStudent(ctx, student, subject)
}

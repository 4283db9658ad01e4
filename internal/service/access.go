package service

import (
	"context"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
)

// Identity 当前请求的调用者，由 JWT claims 构造
type Identity struct {
	UserID    uint
	Role      model.UserRole
	TeacherID uint
	StudentID uint
}

func IdentityFromClaims(claims *util.Claims) Identity {
	if claims == nil {
		return Identity{}
	}
	return Identity{
		UserID:    claims.UserID,
		Role:      claims.Role,
		TeacherID: claims.TeacherID,
		StudentID: claims.StudentID,
	}
}

func (id Identity) IsAdmin() bool {
	return id.Role == model.RoleAdmin
}

// AccessGuard 每个操作只做一次能力检查：调用者能否管理/参加该资源
type AccessGuard struct {
	ExamRepo    *repository.ExamRepository
	SubjectRepo *repository.SubjectRepository
	UserRepo    *repository.UserRepository
}

func NewAccessGuard(examRepo *repository.ExamRepository, subjectRepo *repository.SubjectRepository, userRepo *repository.UserRepository) *AccessGuard {
	return &AccessGuard{
		ExamRepo:    examRepo,
		SubjectRepo: subjectRepo,
		UserRepo:    userRepo,
	}
}

// ManagedExam 管理员可管理任意考试，教师只能管理自己的考试
func (g *AccessGuard) ManagedExam(ctx context.Context, id Identity, examID uint) (*model.Exam, error) {
	exam, err := g.ExamRepo.FindByID(ctx, examID)
	if err != nil {
		return nil, notFoundOr(err, "exam %d not found", examID)
	}
	if id.IsAdmin() {
		return exam, nil
	}
	if id.Role != model.RoleTeacher || id.TeacherID == 0 || exam.TeacherID != id.TeacherID {
		return nil, util.ForbiddenError("you do not own exam %d", examID)
	}
	return exam, nil
}

// TeachesSubject 校验教师任教该科目
func (g *AccessGuard) TeachesSubject(ctx context.Context, id Identity, subjectID uint) error {
	if _, err := g.SubjectRepo.FindByID(ctx, subjectID); err != nil {
		return notFoundOr(err, "subject %d not found", subjectID)
	}
	if id.TeacherID == 0 {
		return util.ForbiddenError("only teachers can author exams")
	}
	ok, err := g.SubjectRepo.IsTeacherAssigned(ctx, id.TeacherID, subjectID)
	if err != nil {
		return err
	}
	if !ok {
		return util.ForbiddenError("you do not teach subject %d", subjectID)
	}
	return nil
}

// StudentProfile 返回调用者的学生档案 ID
func (g *AccessGuard) StudentProfile(id Identity) (uint, error) {
	if id.Role != model.RoleStudent || id.StudentID == 0 {
		return 0, util.ForbiddenError("student profile required")
	}
	return id.StudentID, nil
}

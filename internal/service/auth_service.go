package service

import (
	"context"
	"errors"
	"exam_portal_backend/internal/config"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	DB       *gorm.DB
	UserRepo *repository.UserRepository
	Cfg      *config.Config
	Clock    util.Clock
}

func NewAuthService(db *gorm.DB, userRepo *repository.UserRepository, cfg *config.Config, clock util.Clock) *AuthService {
	return &AuthService{
		DB:       db,
		UserRepo: userRepo,
		Cfg:      cfg,
		Clock:    clock,
	}
}

type LoginResult struct {
	Token     string      `json:"token"`
	User      *model.User `json:"user"`
	TeacherID uint        `json:"teacherId,omitempty"`
	StudentID uint        `json:"studentId,omitempty"`
}

// Register 创建用户及其角色档案，管理员账号不能通过注册创建
func (s *AuthService) Register(ctx context.Context, name, email, password string, role model.UserRole) (*model.User, error) {
	if role != model.RoleStudent && role != model.RoleTeacher {
		return nil, util.BadRequestError("role must be student or teacher")
	}
	email = strings.ToLower(strings.TrimSpace(email))

	_, err := s.UserRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, &util.AppError{Kind: util.ErrConflict, Message: util.ErrEmailRegistered.Error()}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:     strings.TrimSpace(name),
		Email:    email,
		Password: string(hashedPassword),
		Role:     role,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.UserRepo.WithTx(tx)
		if err := users.Create(ctx, user); err != nil {
			return conflictOr(err, "%s", util.ErrEmailRegistered.Error())
		}
		if role == model.RoleTeacher {
			return users.CreateTeacher(ctx, &model.Teacher{UserID: user.ID})
		}
		return users.CreateStudent(ctx, &model.Student{UserID: user.ID})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	invalid := &util.AppError{Kind: util.ErrUnauthorized, Message: util.ErrInvalidCredentials.Error()}

	user, err := s.UserRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, invalid
	}
	if user.Disabled {
		return nil, util.ForbiddenError("account disabled")
	}

	result := &LoginResult{User: user}
	switch user.Role {
	case model.RoleTeacher:
		teacher, err := s.UserRepo.FindTeacherByUserID(ctx, user.ID)
		if err != nil {
			return nil, notFoundOr(err, "teacher profile not found")
		}
		result.TeacherID = teacher.ID
	case model.RoleStudent:
		student, err := s.UserRepo.FindStudentByUserID(ctx, user.ID)
		if err != nil {
			return nil, notFoundOr(err, "student profile not found")
		}
		result.StudentID = student.ID
	}

	token, err := util.GenerateJWT(user, result.TeacherID, result.StudentID, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	result.Token = token

	_ = s.UserRepo.UpdateLastLogin(ctx, user.ID, s.Clock.Now())
	return result, nil
}

package service

import (
	"context"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
)

// UserService 管理员维护账号
type UserService struct {
	UserRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{
		UserRepo: userRepo,
	}
}

// GetUsers role 为空时返回全部用户
func (s *UserService) GetUsers(ctx context.Context, role model.UserRole) ([]model.User, error) {
	switch role {
	case "", model.RoleStudent, model.RoleTeacher, model.RoleAdmin:
	default:
		return nil, util.BadRequestError("unknown role %q", role)
	}
	return s.UserRepo.List(ctx, role)
}

// DisableUser 禁用后无法登录，已签发的 token 到期前仍有效
func (s *UserService) DisableUser(ctx context.Context, actor Identity, userID uint, disable bool) (*model.User, error) {
	if disable && actor.UserID == userID {
		return nil, util.BadRequestError("cannot disable your own account")
	}
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user %d not found", userID)
	}
	if err := s.UserRepo.SetDisabled(ctx, userID, disable); err != nil {
		return nil, err
	}
	user.Disabled = disable
	return user, nil
}

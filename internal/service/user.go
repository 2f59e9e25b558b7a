package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/cseek/xfms/internal/domain"
	"github.com/cseek/xfms/internal/repository"
)

// UserService 负责用户管理。所有写操作仅限管理员。
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService 创建 UserService 实例
func NewUserService(userRepo repository.UserRepository) *UserService {
	if userRepo == nil {
		panic("UserRepository cannot be nil for UserService")
	}
	return &UserService{userRepo: userRepo}
}

// List 返回全部用户 (任何已登录角色可见，密码哈希不序列化)。
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		logrus.WithError(err).Error("UserService.List: database error")
		return nil, ErrInternalServer
	}
	return users, nil
}

// ListTesters 返回全部测试人员，委派时的候选列表。
func (s *UserService) ListTesters(ctx context.Context) ([]domain.User, error) {
	users, err := s.userRepo.ListByRole(ctx, domain.RoleTester)
	if err != nil {
		logrus.WithError(err).Error("UserService.ListTesters: database error")
		return nil, ErrInternalServer
	}
	return users, nil
}

// Create 创建用户 (仅管理员)。不允许创建新的管理员账号。
func (s *UserService) Create(ctx context.Context, actor domain.Identity, username, password, role, email string) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	username = strings.TrimSpace(username)
	if username == "" || password == "" || role == "" {
		return nil, fmt.Errorf("%w: username, password and role are required", ErrInvalidInput)
	}
	if role == domain.RoleAdmin || !domain.IsValidRole(role) {
		return nil, fmt.Errorf("%w: invalid role", ErrInvalidInput)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logrus.WithError(err).Error("UserService.Create: failed to hash password")
		return nil, ErrInternalServer
	}

	user := &domain.User{
		Username: username,
		Password: string(hashed),
		Role:     role,
		Email:    email,
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrDuplicateUsername
		}
		logrus.WithError(err).Error("UserService.Create: database error")
		return nil, ErrInternalServer
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": role, "created_by": actor.ID}).
		Info("User created")
	user.Password = ""
	return user, nil
}

// Update 更新用户角色/邮箱/密码 (仅管理员)。
// 空字段表示保持不变，不会清空已有值。
func (s *UserService) Update(ctx context.Context, actor domain.Identity, id uint, role, email, password string) error {
	if !actor.IsAdmin() {
		return ErrPermissionDenied
	}
	if role != "" && !domain.IsValidRole(role) {
		return fmt.Errorf("%w: invalid role", ErrInvalidInput)
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		logrus.WithError(err).Error("UserService.Update: database error")
		return ErrInternalServer
	}

	if role != "" {
		user.Role = role
	}
	if email != "" {
		user.Email = email
	}
	if password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			logrus.WithError(err).Error("UserService.Update: failed to hash password")
			return ErrInternalServer
		}
		user.Password = string(hashed)
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		logrus.WithError(err).Error("UserService.Update: database error")
		return ErrInternalServer
	}
	logrus.WithFields(logrus.Fields{"user_id": id, "updated_by": actor.ID}).Info("User updated")
	return nil
}

// Delete 删除用户 (仅管理员，且不能删除自己)。
func (s *UserService) Delete(ctx context.Context, actor domain.Identity, id uint) error {
	if !actor.IsAdmin() {
		return ErrPermissionDenied
	}
	if actor.ID == id {
		return fmt.Errorf("%w: cannot delete the currently logged-in user", ErrInvalidInput)
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		logrus.WithError(err).Error("UserService.Delete: database error")
		return ErrInternalServer
	}
	logrus.WithFields(logrus.Fields{"user_id": id, "deleted_by": actor.ID}).Info("User deleted")
	return nil
}

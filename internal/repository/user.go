// Package repository 定义了数据的存储和检索接口，
// 具体实现位于 internal/infra 下。
package repository

import (
	"context"

	"github.com/cseek/xfms/internal/domain"
)

// UserRepository 定义了用户数据的存储和检索操作。
type UserRepository interface {
	// FindByUsername 根据用户名查找用户。
	// 如果用户不存在，返回 ErrUserNotFound。
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindByID 根据用户 ID 查找用户。
	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// List 按创建时间倒序返回全部用户。
	List(ctx context.Context) ([]domain.User, error)

	// ListByRole 按用户名升序返回指定角色的用户 (委派时选择测试人员用)。
	ListByRole(ctx context.Context, role string) ([]domain.User, error)

	// Save 保存用户信息。ID 为零值时创建，否则更新。
	// 违反用户名唯一约束时返回 ErrDuplicateEntry。
	Save(ctx context.Context, user *domain.User) error

	// Delete 删除用户。记录不存在时返回 ErrUserNotFound。
	Delete(ctx context.Context, id uint) error
}

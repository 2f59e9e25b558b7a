package repository

import (
	"context"

	"github.com/cseek/xfms/internal/domain"
)

// CatalogPage 是模块/项目列表查询的分页结果。
type CatalogPage[T any] struct {
	Items []T
	Total int64
}

// ModuleRepository 定义了模块数据的存储和检索操作。
type ModuleRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.Module, error)

	// List 按名称排序返回模块，search 非空时对名称/描述做子串匹配。
	// pageSize <= 0 表示不分页。
	List(ctx context.Context, search string, page, pageSize int) (*CatalogPage[domain.Module], error)

	// Save 创建或更新模块。名称冲突时返回 ErrDuplicateEntry。
	Save(ctx context.Context, module *domain.Module) error

	// CountFirmwares 返回引用该模块的固件数，删除前检查用。
	CountFirmwares(ctx context.Context, id uint) (int64, error)

	Delete(ctx context.Context, id uint) error
}

// ProjectRepository 定义了项目数据的存储和检索操作。
type ProjectRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.Project, error)
	List(ctx context.Context, search string, page, pageSize int) (*CatalogPage[domain.Project], error)
	Save(ctx context.Context, project *domain.Project) error
	CountFirmwares(ctx context.Context, id uint) (int64, error)
	Delete(ctx context.Context, id uint) error
}

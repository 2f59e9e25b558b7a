package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cseek/xfms/internal/domain"
	"github.com/cseek/xfms/internal/repository"
)

// GormModuleRepository 是 ModuleRepository 接口的 GORM 实现
type GormModuleRepository struct {
	db *gorm.DB
}

// NewGormModuleRepository 创建 GormModuleRepository 实例
func NewGormModuleRepository(db *gorm.DB) *GormModuleRepository {
	if db == nil {
		panic("database connection cannot be nil for GormModuleRepository")
	}
	return &GormModuleRepository{db: db}
}

func (r *GormModuleRepository) FindByID(ctx context.Context, id uint) (*domain.Module, error) {
	var m domain.Module
	err := r.db.WithContext(ctx).First(&m, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrModuleNotFound
		}
		return nil, fmt.Errorf("gorm: find module by id %d: %w", id, err)
	}
	return &m, nil
}

func (r *GormModuleRepository) List(ctx context.Context, search string, page, pageSize int) (*repository.CatalogPage[domain.Module], error) {
	query := r.db.WithContext(ctx).Model(&domain.Module{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("gorm: count modules: %w", err)
	}

	query = query.Order("name")
	if pageSize > 0 {
		if page < 1 {
			page = 1
		}
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}

	var items []domain.Module
	if err := query.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("gorm: list modules: %w", err)
	}
	return &repository.CatalogPage[domain.Module]{Items: items, Total: total}, nil
}

func (r *GormModuleRepository) Save(ctx context.Context, module *domain.Module) error {
	err := r.db.WithContext(ctx).Save(module).Error
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save module (id: %d, name: %s): %w", module.ID, module.Name, err)
	}
	return nil
}

func (r *GormModuleRepository) CountFirmwares(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Firmware{}).Where("module_id = ?", id).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count firmwares of module %d: %w", id, err)
	}
	return count, nil
}

func (r *GormModuleRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Module{}, id)
	if result.Error != nil {
		return fmt.Errorf("gorm: delete module %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrModuleNotFound
	}
	return nil
}

// GormProjectRepository 是 ProjectRepository 接口的 GORM 实现。
// 与模块仓库结构完全对称。
type GormProjectRepository struct {
	db *gorm.DB
}

// NewGormProjectRepository 创建 GormProjectRepository 实例
func NewGormProjectRepository(db *gorm.DB) *GormProjectRepository {
	if db == nil {
		panic("database connection cannot be nil for GormProjectRepository")
	}
	return &GormProjectRepository{db: db}
}

func (r *GormProjectRepository) FindByID(ctx context.Context, id uint) (*domain.Project, error) {
	var p domain.Project
	err := r.db.WithContext(ctx).First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrProjectNotFound
		}
		return nil, fmt.Errorf("gorm: find project by id %d: %w", id, err)
	}
	return &p, nil
}

func (r *GormProjectRepository) List(ctx context.Context, search string, page, pageSize int) (*repository.CatalogPage[domain.Project], error) {
	query := r.db.WithContext(ctx).Model(&domain.Project{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("gorm: count projects: %w", err)
	}

	query = query.Order("name")
	if pageSize > 0 {
		if page < 1 {
			page = 1
		}
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}

	var items []domain.Project
	if err := query.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("gorm: list projects: %w", err)
	}
	return &repository.CatalogPage[domain.Project]{Items: items, Total: total}, nil
}

func (r *GormProjectRepository) Save(ctx context.Context, project *domain.Project) error {
	err := r.db.WithContext(ctx).Save(project).Error
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save project (id: %d, name: %s): %w", project.ID, project.Name, err)
	}
	return nil
}

func (r *GormProjectRepository) CountFirmwares(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Firmware{}).Where("project_id = ?", id).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count firmwares of project %d: %w", id, err)
	}
	return count, nil
}

func (r *GormProjectRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Project{}, id)
	if result.Error != nil {
		return fmt.Errorf("gorm: delete project %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrProjectNotFound
	}
	return nil
}

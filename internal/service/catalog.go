package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cseek/xfms/internal/domain"
	"github.com/cseek/xfms/internal/repository"
)

// CatalogService 负责模块与项目的增删改查。
// 写操作仅限管理员 (权限模型的两个历史变体在此统一为 admin-only)。
type CatalogService struct {
	moduleRepo  repository.ModuleRepository
	projectRepo repository.ProjectRepository
}

// NewCatalogService 创建 CatalogService 实例
func NewCatalogService(moduleRepo repository.ModuleRepository, projectRepo repository.ProjectRepository) *CatalogService {
	if moduleRepo == nil || projectRepo == nil {
		panic("repositories cannot be nil for CatalogService")
	}
	return &CatalogService{moduleRepo: moduleRepo, projectRepo: projectRepo}
}

// --- 模块 ---

// ListModules 返回模块分页，search 对名称/描述做子串匹配。
func (s *CatalogService) ListModules(ctx context.Context, search string, page, pageSize int) (*repository.CatalogPage[domain.Module], error) {
	result, err := s.moduleRepo.List(ctx, search, page, pageSize)
	if err != nil {
		logrus.WithError(err).Error("CatalogService.ListModules: database error")
		return nil, ErrInternalServer
	}
	return result, nil
}

// CreateModule 创建模块 (仅管理员)。
func (s *CatalogService) CreateModule(ctx context.Context, actor domain.Identity, name, description string) (*domain.Module, error) {
	if !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: module name is required", ErrInvalidInput)
	}
	if len(name) > 100 {
		return nil, fmt.Errorf("%w: module name must be at most 100 characters", ErrInvalidInput)
	}

	module := &domain.Module{Name: name, Description: description, CreatedBy: actor.ID}
	if err := s.moduleRepo.Save(ctx, module); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrDuplicateName
		}
		logrus.WithError(err).Error("CatalogService.CreateModule: database error")
		return nil, ErrInternalServer
	}
	logrus.WithFields(logrus.Fields{"module_id": module.ID, "name": name, "created_by": actor.ID}).
		Info("Module created")
	return module, nil
}

// UpdateModule 更新模块名称/描述 (仅管理员)。
func (s *CatalogService) UpdateModule(ctx context.Context, actor domain.Identity, id uint, name, description string) error {
	if !actor.IsAdmin() {
		return ErrPermissionDenied
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: module name is required", ErrInvalidInput)
	}

	module, err := s.moduleRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrModuleNotFound
		}
		logrus.WithError(err).Error("CatalogService.UpdateModule: database error")
		return ErrInternalServer
	}

	module.Name = name
	module.Description = description
	if err := s.moduleRepo.Save(ctx, module); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return ErrDuplicateName
		}
		logrus.WithError(err).Error("CatalogService.UpdateModule: database error")
		return ErrInternalServer
	}
	return nil
}

// DeleteModule 删除模块，仍被固件引用时拒绝 (仅管理员)。
func (s *CatalogService) DeleteModule(ctx context.Context, actor domain.Identity, id uint) error {
	if !actor.IsAdmin() {
		return ErrPermissionDenied
	}

	count, err := s.moduleRepo.CountFirmwares(ctx, id)
	if err != nil {
		logrus.WithError(err).Error("CatalogService.DeleteModule: database error")
		return ErrInternalServer
	}
	if count > 0 {
		return ErrCatalogInUse
	}

	if err := s.moduleRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrModuleNotFound
		}
		logrus.WithError(err).Error("CatalogService.DeleteModule: database error")
		return ErrInternalServer
	}
	logrus.WithFields(logrus.Fields{"module_id": id, "deleted_by": actor.ID}).Info("Module deleted")
	return nil
}

// --- 项目 ---

// ListProjects 返回项目分页。
func (s *CatalogService) ListProjects(ctx context.Context, search string, page, pageSize int) (*repository.CatalogPage[domain.Project], error) {
	result, err := s.projectRepo.List(ctx, search, page, pageSize)
	if err != nil {
		logrus.WithError(err).Error("CatalogService.ListProjects: database error")
		return nil, ErrInternalServer
	}
	return result, nil
}

// CreateProject 创建项目 (仅管理员)。
func (s *CatalogService) CreateProject(ctx context.Context, actor domain.Identity, name, description string) (*domain.Project, error) {
	if !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalidInput)
	}
	if len(name) > 100 {
		return nil, fmt.Errorf("%w: project name must be at most 100 characters", ErrInvalidInput)
	}

	project := &domain.Project{Name: name, Description: description, CreatedBy: actor.ID}
	if err := s.projectRepo.Save(ctx, project); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrDuplicateName
		}
		logrus.WithError(err).Error("CatalogService.CreateProject: database error")
		return nil, ErrInternalServer
	}
	logrus.WithFields(logrus.Fields{"project_id": project.ID, "name": name, "created_by": actor.ID}).
		Info("Project created")
	return project, nil
}

// UpdateProject 更新项目名称/描述 (仅管理员)。
func (s *CatalogService) UpdateProject(ctx context.Context, actor domain.Identity, id uint, name, description string) error {
	if !actor.IsAdmin() {
		return ErrPermissionDenied
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: project name is required", ErrInvalidInput)
	}

	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProjectNotFound
		}
		logrus.WithError(err).Error("CatalogService.UpdateProject: database error")
		return ErrInternalServer
	}

	project.Name = name
	project.Description = description
	if err := s.projectRepo.Save(ctx, project); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return ErrDuplicateName
		}
		logrus.WithError(err).Error("CatalogService.UpdateProject: database error")
		return ErrInternalServer
	}
	return nil
}

// DeleteProject 删除项目，仍被固件引用时拒绝 (仅管理员)。
func (s *CatalogService) DeleteProject(ctx context.Context, actor domain.Identity, id uint) error {
	if !actor.IsAdmin() {
		return ErrPermissionDenied
	}

	count, err := s.projectRepo.CountFirmwares(ctx, id)
	if err != nil {
		logrus.WithError(err).Error("CatalogService.DeleteProject: database error")
		return ErrInternalServer
	}
	if count > 0 {
		return ErrCatalogInUse
	}

	if err := s.projectRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProjectNotFound
		}
		logrus.WithError(err).Error("CatalogService.DeleteProject: database error")
		return ErrInternalServer
	}
	logrus.WithFields(logrus.Fields{"project_id": id, "deleted_by": actor.ID}).Info("Project deleted")
	return nil
}

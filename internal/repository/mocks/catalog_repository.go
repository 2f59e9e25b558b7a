package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cseek/xfms/internal/domain"
	"github.com/cseek/xfms/internal/repository"
)

// MockModuleRepository 是 repository.ModuleRepository 的 mock 实现
type MockModuleRepository struct {
	mock.Mock
}

func (m *MockModuleRepository) FindByID(ctx context.Context, id uint) (*domain.Module, error) {
	args := m.Called(ctx, id)
	module, _ := args.Get(0).(*domain.Module)
	return module, args.Error(1)
}

func (m *MockModuleRepository) List(ctx context.Context, search string, page, pageSize int) (*repository.CatalogPage[domain.Module], error) {
	args := m.Called(ctx, search, page, pageSize)
	result, _ := args.Get(0).(*repository.CatalogPage[domain.Module])
	return result, args.Error(1)
}

func (m *MockModuleRepository) Save(ctx context.Context, module *domain.Module) error {
	args := m.Called(ctx, module)
	return args.Error(0)
}

func (m *MockModuleRepository) CountFirmwares(ctx context.Context, id uint) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockModuleRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockProjectRepository 是 repository.ProjectRepository 的 mock 实现
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) FindByID(ctx context.Context, id uint) (*domain.Project, error) {
	args := m.Called(ctx, id)
	project, _ := args.Get(0).(*domain.Project)
	return project, args.Error(1)
}

func (m *MockProjectRepository) List(ctx context.Context, search string, page, pageSize int) (*repository.CatalogPage[domain.Project], error) {
	args := m.Called(ctx, search, page, pageSize)
	result, _ := args.Get(0).(*repository.CatalogPage[domain.Project])
	return result, args.Error(1)
}

func (m *MockProjectRepository) Save(ctx context.Context, project *domain.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *MockProjectRepository) CountFirmwares(ctx context.Context, id uint) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProjectRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cseek/xfms/internal/domain"
	"github.com/cseek/xfms/internal/repository"
	"github.com/cseek/xfms/internal/repository/mocks"
)

func newCatalogFixture() (*mocks.MockModuleRepository, *mocks.MockProjectRepository, *CatalogService) {
	moduleRepo := new(mocks.MockModuleRepository)
	projectRepo := new(mocks.MockProjectRepository)
	return moduleRepo, projectRepo, NewCatalogService(moduleRepo, projectRepo)
}

func TestCatalogService_CreateModule_AdminOnly(t *testing.T) {
	_, _, svc := newCatalogFixture()

	_, err := svc.CreateModule(context.Background(), developerIdentity, "WiFi模块", "")

	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestCatalogService_CreateModule_DuplicateName(t *testing.T) {
	moduleRepo, _, svc := newCatalogFixture()

	moduleRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Module")).
		Return(repository.ErrDuplicateEntry)

	_, err := svc.CreateModule(context.Background(), adminIdentity, "WiFi模块", "")

	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestCatalogService_CreateModule_TrimsAndValidatesName(t *testing.T) {
	moduleRepo, _, svc := newCatalogFixture()

	_, err := svc.CreateModule(context.Background(), adminIdentity, "   ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	moduleRepo.On("Save", mock.Anything, mock.MatchedBy(func(m *domain.Module) bool {
		return m.Name == "WiFi模块" && m.CreatedBy == adminIdentity.ID
	})).Return(nil)

	module, err := svc.CreateModule(context.Background(), adminIdentity, "  WiFi模块  ", "无线通信")
	require.NoError(t, err)
	assert.Equal(t, "WiFi模块", module.Name)
}

func TestCatalogService_DeleteModule_BlockedWhileReferenced(t *testing.T) {
	moduleRepo, _, svc := newCatalogFixture()

	moduleRepo.On("CountFirmwares", mock.Anything, uint(1)).Return(int64(3), nil)

	err := svc.DeleteModule(context.Background(), adminIdentity, 1)

	assert.ErrorIs(t, err, ErrCatalogInUse)
	moduleRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestCatalogService_DeleteModule_Success(t *testing.T) {
	moduleRepo, _, svc := newCatalogFixture()

	moduleRepo.On("CountFirmwares", mock.Anything, uint(1)).Return(int64(0), nil)
	moduleRepo.On("Delete", mock.Anything, uint(1)).Return(nil)

	err := svc.DeleteModule(context.Background(), adminIdentity, 1)

	require.NoError(t, err)
	moduleRepo.AssertExpectations(t)
}

func TestCatalogService_DeleteProject_BlockedWhileReferenced(t *testing.T) {
	_, projectRepo, svc := newCatalogFixture()

	projectRepo.On("CountFirmwares", mock.Anything, uint(2)).Return(int64(1), nil)

	err := svc.DeleteProject(context.Background(), adminIdentity, 2)

	assert.ErrorIs(t, err, ErrCatalogInUse)
}

func TestCatalogService_UpdateProject_NotFound(t *testing.T) {
	_, projectRepo, svc := newCatalogFixture()

	projectRepo.On("FindByID", mock.Anything, uint(404)).Return(nil, repository.ErrNotFound)

	err := svc.UpdateProject(context.Background(), adminIdentity, 404, "新名字", "")

	assert.ErrorIs(t, err, ErrProjectNotFound)
}

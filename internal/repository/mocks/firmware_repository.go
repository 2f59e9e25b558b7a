package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cseek/xfms/internal/domain"
	"github.com/cseek/xfms/internal/repository"
)

// MockFirmwareRepository 是 repository.FirmwareRepository 的 mock 实现
type MockFirmwareRepository struct {
	mock.Mock
}

func (m *MockFirmwareRepository) FindByID(ctx context.Context, id uint) (*domain.Firmware, error) {
	args := m.Called(ctx, id)
	fw, _ := args.Get(0).(*domain.Firmware)
	return fw, args.Error(1)
}

func (m *MockFirmwareRepository) List(ctx context.Context, filter repository.FirmwareFilter, page, pageSize int) (*repository.FirmwarePage, error) {
	args := m.Called(ctx, filter, page, pageSize)
	result, _ := args.Get(0).(*repository.FirmwarePage)
	return result, args.Error(1)
}

func (m *MockFirmwareRepository) Create(ctx context.Context, fw *domain.Firmware) error {
	args := m.Called(ctx, fw)
	return args.Error(0)
}

func (m *MockFirmwareRepository) Assign(ctx context.Context, id uint, upd repository.AssignUpdate) error {
	args := m.Called(ctx, id, upd)
	return args.Error(0)
}

func (m *MockFirmwareRepository) UpdateStatus(ctx context.Context, id uint, upd repository.StatusUpdate) error {
	args := m.Called(ctx, id, upd)
	return args.Error(0)
}

func (m *MockFirmwareRepository) SetReport(ctx context.Context, id uint, key, name string) error {
	args := m.Called(ctx, id, key, name)
	return args.Error(0)
}

func (m *MockFirmwareRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFirmwareRepository) DeleteOwned(ctx context.Context, id, uploaderID uint) error {
	args := m.Called(ctx, id, uploaderID)
	return args.Error(0)
}

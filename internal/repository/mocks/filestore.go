package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockFileStore 是 repository.FileStore 的 mock 实现
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Save(ctx context.Context, category, filename string, r io.Reader) (string, string, int64, error) {
	args := m.Called(ctx, category, filename, r)
	return args.String(0), args.String(1), args.Get(2).(int64), args.Error(3)
}

func (m *MockFileStore) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	args := m.Called(ctx, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Get(1).(int64), args.Error(2)
}

func (m *MockFileStore) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockTokenDenylist 是 repository.TokenDenylist 的 mock 实现
type MockTokenDenylist struct {
	mock.Mock
}

func (m *MockTokenDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	args := m.Called(ctx, jti, ttl)
	return args.Error(0)
}

func (m *MockTokenDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cseek/xfms/internal/domain"
	"github.com/cseek/xfms/internal/repository"
	"github.com/cseek/xfms/internal/repository/mocks"
)

func TestUserService_Create_AdminOnly(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	svc := NewUserService(userRepo)

	_, err := svc.Create(context.Background(), developerIdentity, "newuser", "pass", domain.RoleTester, "")

	assert.ErrorIs(t, err, ErrPermissionDenied)
	userRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUserService_Create_CannotCreateAdmin(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	svc := NewUserService(userRepo)

	_, err := svc.Create(context.Background(), adminIdentity, "root2", "pass", domain.RoleAdmin, "")

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUserService_Create_HashesPassword(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	svc := NewUserService(userRepo)

	var saved *domain.User
	userRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*domain.User)
			saved.ID = 10
		}).Return(nil)

	user, err := svc.Create(context.Background(), adminIdentity, "qa2", "secret-pass", domain.RoleTester, "qa2@example.com")

	require.NoError(t, err)
	assert.Equal(t, uint(10), user.ID)
	// 返回值不带密码，落库的是 bcrypt 哈希
	assert.Empty(t, user.Password)
	require.NotNil(t, saved)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(saved.Password), []byte("secret-pass")))
}

func TestUserService_Create_DuplicateUsername(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	svc := NewUserService(userRepo)

	userRepo.On("Save", mock.Anything, mock.Anything).Return(repository.ErrDuplicateEntry)

	_, err := svc.Create(context.Background(), adminIdentity, "qa1", "pass", domain.RoleTester, "")

	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestUserService_Update_EmptyFieldsPreserved(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	svc := NewUserService(userRepo)

	userRepo.On("FindByID", mock.Anything, uint(5)).Return(&domain.User{
		ID:    5,
		Role:  domain.RoleTester,
		Email: "qa1@example.com",
	}, nil)
	var saved *domain.User
	userRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*domain.User)
		}).Return(nil)

	// 只改角色: 邮箱和密码保持不变
	err := svc.Update(context.Background(), adminIdentity, 5, domain.RoleDeveloper, "", "")

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, domain.RoleDeveloper, saved.Role)
	assert.Equal(t, "qa1@example.com", saved.Email)
}

func TestUserService_Update_ChangesEmailWhenGiven(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	svc := NewUserService(userRepo)

	userRepo.On("FindByID", mock.Anything, uint(5)).Return(&domain.User{
		ID:    5,
		Role:  domain.RoleTester,
		Email: "qa1@example.com",
	}, nil)
	var saved *domain.User
	userRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*domain.User)
		}).Return(nil)

	err := svc.Update(context.Background(), adminIdentity, 5, "", "new@example.com", "")

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, domain.RoleTester, saved.Role)
	assert.Equal(t, "new@example.com", saved.Email)
}

func TestUserService_Delete_CannotDeleteSelf(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	svc := NewUserService(userRepo)

	err := svc.Delete(context.Background(), adminIdentity, adminIdentity.ID)

	assert.ErrorIs(t, err, ErrInvalidInput)
	userRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestUserService_Delete_NotFound(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	svc := NewUserService(userRepo)

	userRepo.On("Delete", mock.Anything, uint(404)).Return(repository.ErrUserNotFound)

	err := svc.Delete(context.Background(), adminIdentity, 404)

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_ListTesters(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	svc := NewUserService(userRepo)

	userRepo.On("ListByRole", mock.Anything, domain.RoleTester).
		Return([]domain.User{{ID: 3, Username: "qa1", Role: domain.RoleTester}}, nil)

	testers, err := svc.ListTesters(context.Background())

	require.NoError(t, err)
	require.Len(t, testers, 1)
	assert.Equal(t, "qa1", testers[0].Username)
}

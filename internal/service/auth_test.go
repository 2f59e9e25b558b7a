package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cseek/xfms/internal/domain"
	"github.com/cseek/xfms/internal/repository"
	"github.com/cseek/xfms/internal/repository/mocks"
)

const testJWTSecret = "test-secret-key"

func newAuthService(t *testing.T, userRepo repository.UserRepository, denylist repository.TokenDenylist) *AuthService {
	t.Helper()
	svc, err := NewAuthService(userRepo, denylist, testJWTSecret, 1)
	require.NoError(t, err)
	return svc
}

func hashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthService_Login_Success(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	denylist := new(mocks.MockTokenDenylist)
	svc := newAuthService(t, userRepo, denylist)

	user := &domain.User{
		ID:       7,
		Username: "dev1",
		Password: hashPassword(t, "password123"),
		Role:     domain.RoleDeveloper,
		Email:    "dev1@example.com",
	}
	userRepo.On("FindByUsername", mock.Anything, "dev1").Return(user, nil)

	token, identity, err := svc.Login(context.Background(), "dev1", "password123")

	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, uint(7), identity.ID)
	assert.Equal(t, domain.RoleDeveloper, identity.Role)
	assert.NotEmpty(t, token)

	// 下发的 token 必须能用同一密钥验证，且携带 jti
	parsed, err := jwt.Parse(token, func(tk *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "dev1", claims["username"])
	assert.NotEmpty(t, claims["jti"])

	userRepo.AssertExpectations(t)
}

func TestAuthService_Login_UserNotFound(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	denylist := new(mocks.MockTokenDenylist)
	svc := newAuthService(t, userRepo, denylist)

	userRepo.On("FindByUsername", mock.Anything, "ghost").Return(nil, repository.ErrUserNotFound)

	token, identity, err := svc.Login(context.Background(), "ghost", "whatever")

	// 用户不存在和密码错误对外表现一致
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	assert.Empty(t, token)
	assert.Nil(t, identity)
	userRepo.AssertExpectations(t)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	denylist := new(mocks.MockTokenDenylist)
	svc := newAuthService(t, userRepo, denylist)

	user := &domain.User{
		ID:       7,
		Username: "dev1",
		Password: hashPassword(t, "correct-password"),
		Role:     domain.RoleDeveloper,
	}
	userRepo.On("FindByUsername", mock.Anything, "dev1").Return(user, nil)

	_, _, err := svc.Login(context.Background(), "dev1", "wrong-password")

	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	userRepo.AssertExpectations(t)
}

func TestAuthService_Logout_RevokesToken(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	denylist := new(mocks.MockTokenDenylist)
	svc := newAuthService(t, userRepo, denylist)

	denylist.On("Revoke", mock.Anything, "some-jti", mock.AnythingOfType("time.Duration")).Return(nil)

	err := svc.Logout(context.Background(), "some-jti", time.Now().Add(30*time.Minute))

	require.NoError(t, err)
	denylist.AssertExpectations(t)
}

func TestAuthService_Logout_EmptyJTIIsNoop(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	denylist := new(mocks.MockTokenDenylist)
	svc := newAuthService(t, userRepo, denylist)

	err := svc.Logout(context.Background(), "", time.Now())

	require.NoError(t, err)
	denylist.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything, mock.Anything)
}

func TestNewAuthService_EmptySecret(t *testing.T) {
	userRepo := new(mocks.MockUserRepository)
	denylist := new(mocks.MockTokenDenylist)

	_, err := NewAuthService(userRepo, denylist, "", 1)

	assert.Error(t, err)
}

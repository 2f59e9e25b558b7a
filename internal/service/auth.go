// Package service 实现业务逻辑，位于 HTTP 处理层与存储层之间。
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/cseek/xfms/internal/domain"
	"github.com/cseek/xfms/internal/repository"
)

// AuthService 负责登录/退出和身份校验相关的业务逻辑。
//
// 身份以 JWT 形式下发，claims 携带 {id, username, role, email}；
// 退出登录通过把 token 的 jti 写入 Redis 黑名单实现，
// 对应原系统销毁 session 的语义。
type AuthService struct {
	userRepo  repository.UserRepository
	denylist  repository.TokenDenylist
	jwtSecret []byte
	jwtExpiry time.Duration
}

// NewAuthService 创建 AuthService 实例。
func NewAuthService(userRepo repository.UserRepository, denylist repository.TokenDenylist, jwtSecretKey string, jwtExpiryHours int) (*AuthService, error) {
	if userRepo == nil {
		panic("UserRepository cannot be nil for AuthService")
	}
	if denylist == nil {
		panic("TokenDenylist cannot be nil for AuthService")
	}
	if jwtSecretKey == "" {
		return nil, fmt.Errorf("JWT secret key cannot be empty")
	}
	if jwtExpiryHours <= 0 {
		jwtExpiryHours = 24
	}
	return &AuthService{
		userRepo:  userRepo,
		denylist:  denylist,
		jwtSecret: []byte(jwtSecretKey),
		jwtExpiry: time.Duration(jwtExpiryHours) * time.Hour,
	}, nil
}

// Login 校验用户名密码，成功时返回签名后的 token 和用户身份。
// 用户不存在和密码错误对客户端统一表现为认证失败。
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.Identity, error) {
	logCtx := logrus.WithField("username", username)

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logCtx.Warn("Login attempt failed: user not found")
		} else {
			logCtx.WithError(err).Warn("Login attempt failed: error finding user")
		}
		return "", nil, ErrAuthenticationFailed
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		logCtx.Warn("Login attempt failed: invalid password")
		return "", nil, ErrAuthenticationFailed
	}

	identity := &domain.Identity{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
		Email:    user.Email,
	}

	token, err := s.generateJWT(identity)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate JWT token during login")
		return "", nil, ErrInternalServer
	}

	logCtx.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User logged in successfully")
	return token, identity, nil
}

// Logout 吊销 token: jti 进入黑名单直到原 token 过期。
func (s *AuthService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	if err := s.denylist.Revoke(ctx, jti, time.Until(expiresAt)); err != nil {
		logrus.WithError(err).Error("Failed to revoke token on logout")
		return ErrInternalServer
	}
	return nil
}

// generateJWT 为身份签发带随机 jti 的 HS256 token。
func (s *AuthService) generateJWT(identity *domain.Identity) (string, error) {
	jtiBuf := make([]byte, 16)
	if _, err := rand.Read(jtiBuf); err != nil {
		return "", fmt.Errorf("generate jti: %w", err)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  identity.ID,
		"username": identity.Username,
		"role":     identity.Role,
		"email":    identity.Email,
		"jti":      hex.EncodeToString(jtiBuf),
		"exp":      now.Add(s.jwtExpiry).Unix(),
		"iat":      now.Unix(),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

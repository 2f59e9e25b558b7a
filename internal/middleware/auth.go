// Package middleware 提供 Gin 中间件: 身份认证、角色门禁和限流。
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"

	"github.com/cseek/xfms/internal/domain"
	"github.com/cseek/xfms/internal/repository"
)

// Gin 上下文键。
const (
	ContextIdentity = "identity"  // domain.Identity
	ContextTokenJTI = "token_jti" // string, 退出登录时吊销用
	ContextTokenExp = "token_exp" // int64 Unix 秒
)

// TokenCookieName 登录后下发的 cookie 名，与 Authorization 头等效。
const TokenCookieName = "xfms_token"

// ErrMissingToken 请求既没有 Authorization 头也没有 token cookie。
var ErrMissingToken = errors.New("missing authentication token")

// Auth 返回认证中间件: 提取并验证 JWT，检查吊销黑名单，
// 然后把请求方身份注入 Gin 上下文。
func Auth(jwtSecret string, denylist repository.TokenDenylist) gin.HandlerFunc {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty for Auth middleware")
	}
	if denylist == nil {
		panic("TokenDenylist cannot be nil for Auth middleware")
	}

	return func(c *gin.Context) {
		tokenStr, err := extractToken(c)
		if err != nil {
			logrus.WithError(err).Debug("Auth middleware: no usable token")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		claims, err := validateToken(tokenStr, jwtSecret)
		if err != nil {
			logrus.WithError(err).Warn("Auth middleware: invalid token")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		jti, _ := claims["jti"].(string)
		if jti != "" {
			revoked, err := denylist.IsRevoked(c.Request.Context(), jti)
			if err != nil {
				logrus.WithError(err).Error("Auth middleware: denylist check failed")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication check failed"})
				c.Abort()
				return
			}
			if revoked {
				logrus.WithField("jti", jti).Debug("Auth middleware: token revoked")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
				c.Abort()
				return
			}
		}

		identity, err := identityFromClaims(claims)
		if err != nil {
			logrus.WithError(err).Error("Auth middleware: malformed claims")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(ContextIdentity, identity)
		c.Set(ContextTokenJTI, jti)
		if exp, ok := claims["exp"].(float64); ok {
			c.Set(ContextTokenExp, int64(exp))
		}
		logrus.WithFields(logrus.Fields{"user_id": identity.ID, "role": identity.Role}).
			Debug("Auth middleware: user authenticated")
		c.Next()
	}
}

// IdentityFrom 从 Gin 上下文取出请求方身份。
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, exists := c.Get(ContextIdentity)
	if !exists {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}

// extractToken 先看 Authorization: Bearer 头，再看 cookie。
func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", jwt.ErrTokenMalformed
		}
		return parts[1], nil
	}
	if cookie, err := c.Cookie(TokenCookieName); err == nil && cookie != "" {
		return cookie, nil
	}
	return "", ErrMissingToken
}

// validateToken 解析并验证 JWT 签名与有效期。
func validateToken(tokenStr, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token or claims type")
}

// identityFromClaims 把 claims 还原为 Identity。
// JWT 数字默认解析为 float64，需要安全转换。
func identityFromClaims(claims jwt.MapClaims) (domain.Identity, error) {
	idFloat, ok := claims["user_id"].(float64)
	if !ok || idFloat <= 0 || idFloat != float64(uint(idFloat)) {
		return domain.Identity{}, fmt.Errorf("invalid user_id claim: %v", claims["user_id"])
	}
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	email, _ := claims["email"].(string)
	if username == "" || !domain.IsValidRole(role) {
		return domain.Identity{}, fmt.Errorf("missing username or invalid role claim")
	}
	return domain.Identity{
		ID:       uint(idFloat),
		Username: username,
		Role:     role,
		Email:    email,
	}, nil
}

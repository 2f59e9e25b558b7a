package repository

import (
	"context"
	"time"
)

// TokenDenylist 记录已退出登录的 JWT (按 jti)，为无状态 token
// 提供服务端的吊销点，对应原系统的 session 销毁语义。
type TokenDenylist interface {
	// Revoke 将 jti 加入黑名单，ttl 应等于 token 的剩余有效期。
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	// IsRevoked 检查 jti 是否已被吊销。
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

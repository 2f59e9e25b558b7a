// Package redisstate 提供基于 Redis 的运行时状态存储。
package redisstate

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisTokenDenylist 是 TokenDenylist 接口的 Redis 实现。
// 退出登录的 token 按 jti 写入带 TTL 的键，TTL 与 token 剩余
// 有效期一致，过期后自动清理，不需要后台任务。
type RedisTokenDenylist struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisTokenDenylist 创建 RedisTokenDenylist 实例
func NewRedisTokenDenylist(client *redis.Client, keyPrefix string) *RedisTokenDenylist {
	if client == nil {
		panic("redis client cannot be nil for RedisTokenDenylist")
	}
	return &RedisTokenDenylist{client: client, keyPrefix: keyPrefix}
}

func (r *RedisTokenDenylist) key(jti string) string {
	return r.keyPrefix + "denylist:" + jti
}

// Revoke 将 jti 加入黑名单
func (r *RedisTokenDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// token 已过期，无需记录
		return nil
	}
	if err := r.client.Set(ctx, r.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis: revoke token %s: %w", jti, err)
	}
	return nil
}

// IsRevoked 检查 jti 是否已被吊销
func (r *RedisTokenDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: check token %s: %w", jti, err)
	}
	return n > 0, nil
}

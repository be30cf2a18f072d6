package redisstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/zx081325/BoardGame/internal/repository"
)

// RedisPresenceRepository 是 PresenceRepository 接口的 Redis 实现。
// 每个用户一个带 TTL 的 key，value 是房间 ID。
type RedisPresenceRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisPresenceRepository 创建 RedisPresenceRepository 实例
func NewRedisPresenceRepository(client *redis.Client, keyPrefix string) *RedisPresenceRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisPresenceRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "bg:" // 默认前缀 "bg:" (boardgame)
	}
	return &RedisPresenceRepository{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (r *RedisPresenceRepository) userRoomKey(userID uint) string {
	return fmt.Sprintf("%suser:%d:room", r.keyPrefix, userID)
}

// SetUserRoom 记录用户所在房间
func (r *RedisPresenceRepository) SetUserRoom(ctx context.Context, userID uint, roomID string, ttl time.Duration) error {
	key := r.userRoomKey(userID)
	if err := r.client.Set(ctx, key, roomID, ttl).Err(); err != nil {
		return fmt.Errorf("redis: failed to set user room for user %d on key %s: %w", userID, key, err)
	}
	return nil
}

// GetUserRoom 返回用户上次所在的房间 ID
func (r *RedisPresenceRepository) GetUserRoom(ctx context.Context, userID uint) (string, error) {
	key := r.userRoomKey(userID)
	roomID, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrPresenceNotFound
		}
		return "", fmt.Errorf("redis: failed to get user room for user %d from %s: %w", userID, key, err)
	}
	return roomID, nil
}

// RefreshUserRoom 续期在房记录，key 不存在时 Expire 返回 false，不视为错误
func (r *RedisPresenceRepository) RefreshUserRoom(ctx context.Context, userID uint, ttl time.Duration) error {
	key := r.userRoomKey(userID)
	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("redis: failed to refresh user room for user %d on key %s: %w", userID, key, err)
	}
	return nil
}

// ClearUserRoom 删除用户的在房记录
func (r *RedisPresenceRepository) ClearUserRoom(ctx context.Context, userID uint) error {
	key := r.userRoomKey(userID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: failed to clear user room for user %d on key %s: %w", userID, key, err)
	}
	return nil
}

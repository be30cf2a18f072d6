package repository

import (
	"context"
	"time"
)

// PresenceRepository 记录用户当前所在的房间，用于断线重连时恢复会话。
// 记录带 TTL，连接存活期间由心跳续期。
type PresenceRepository interface {
	// SetUserRoom 记录用户所在房间并设置过期时间。
	SetUserRoom(ctx context.Context, userID uint, roomID string, ttl time.Duration) error

	// GetUserRoom 返回用户上次所在的房间 ID，没有记录时返回 ErrPresenceNotFound。
	GetUserRoom(ctx context.Context, userID uint) (string, error)

	// RefreshUserRoom 续期现有记录，记录不存在时静默返回。
	RefreshUserRoom(ctx context.Context, userID uint, ttl time.Duration) error

	// ClearUserRoom 删除用户的在房记录。
	ClearUserRoom(ctx context.Context, userID uint) error
}

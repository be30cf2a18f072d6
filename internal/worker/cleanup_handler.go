package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/zx081325/BoardGame/internal/room"
	"github.com/zx081325/BoardGame/internal/tasks"
)

// defaultCleanupThreshold 是任务 payload 未指定阈值时的兜底值。
const defaultCleanupThreshold = 30 * time.Minute

// RoomCleanupHandler 处理周期性的不活跃房间清理任务
type RoomCleanupHandler struct {
	roomMgr *room.Manager
}

// NewRoomCleanupHandler 创建 Handler 实例
func NewRoomCleanupHandler(roomMgr *room.Manager) *RoomCleanupHandler {
	if roomMgr == nil {
		panic("room.Manager cannot be nil for RoomCleanupHandler")
	}
	return &RoomCleanupHandler{roomMgr: roomMgr}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *RoomCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithFields(logrus.Fields{
		"task_type": t.Type(),
	})

	threshold := defaultCleanupThreshold
	var payload tasks.RoomCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Warn("Invalid cleanup payload, using default threshold")
	} else if payload.ThresholdMinutes > 0 {
		threshold = time.Duration(payload.ThresholdMinutes) * time.Minute
	}

	removed := h.roomMgr.CleanupInactiveRooms(threshold)
	if removed > 0 {
		logCtx.WithFields(logrus.Fields{
			"removed":   removed,
			"threshold": threshold.String(),
		}).Info("Inactive rooms removed")
	} else {
		logCtx.Debug("No inactive rooms to remove")
	}
	return nil
}

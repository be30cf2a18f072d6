package tasks

import "encoding/json"

// 任务类型常量
const (
	// TypeRoomCleanup 周期性清理不活跃房间
	TypeRoomCleanup = "room:cleanup"
)

// RoomCleanupPayload 定义了房间清理任务的数据结构
type RoomCleanupPayload struct {
	ThresholdMinutes int `json:"threshold_minutes"`
}

// NewRoomCleanupTask 创建房间清理任务的序列化 payload
func NewRoomCleanupTask(thresholdMinutes int) ([]byte, error) {
	payload := RoomCleanupPayload{ThresholdMinutes: thresholdMinutes}
	return json.Marshal(payload)
}

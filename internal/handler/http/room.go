package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/zx081325/BoardGame/internal/room"
)

// RoomHandler 提供房间与游戏目录的只读 HTTP 接口，
// 房间的创建和加入通过 WebSocket 指令完成。
type RoomHandler struct {
	roomMgr *room.Manager
}

// NewRoomHandler 创建 RoomHandler 实例
func NewRoomHandler(roomMgr *room.Manager) *RoomHandler {
	if roomMgr == nil {
		panic("room.Manager cannot be nil for RoomHandler")
	}
	return &RoomHandler{roomMgr: roomMgr}
}

// ListGames 返回所有可用游戏类型及其规则说明
func (h *RoomHandler) ListGames(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"games": h.roomMgr.AvailableGames()})
}

// ListRooms 返回当前所有房间的概要信息
func (h *RoomHandler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.roomMgr.ListRooms()})
}

// MyRooms 返回当前用户所在的房间列表
func (h *RoomHandler) MyRooms(c *gin.Context) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		logrus.Warn("Handler.MyRooms: User ID not found in context, middleware missing or failed?")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		logrus.Error("Handler.MyRooms: User ID in context is not uint")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error processing user ID"})
		return
	}

	rooms := make([]map[string]interface{}, 0)
	for _, roomID := range h.roomMgr.PlayerRooms(userID) {
		info, err := h.roomMgr.RoomBasicInfo(roomID)
		if err != nil {
			continue
		}
		rooms = append(rooms, info)
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// RoomDetail 返回单个房间在当前用户视角下的完整状态
func (h *RoomHandler) RoomDetail(c *gin.Context) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	userID, _ := userIDAny.(uint)

	roomID := c.Param("roomId")
	state, err := h.roomMgr.RoomState(roomID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

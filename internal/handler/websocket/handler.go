package websocket

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/zx081325/BoardGame/internal/hub"
	"github.com/zx081325/BoardGame/internal/service"
)

// WebSocketHandler 负责处理 WebSocket 升级请求和客户端注册
type WebSocketHandler struct {
	upgrader    websocket.Upgrader
	hub         *hub.Hub
	authService *service.AuthService
}

// NewWebSocketHandler 创建 WebSocketHandler 实例
func NewWebSocketHandler(h *hub.Hub, authService *service.AuthService) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if authService == nil {
		panic("AuthService cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// TODO: Implement proper origin checking for production
			return true
		},
	}

	return &WebSocketHandler{
		upgrader:    upgrader,
		hub:         h,
		authService: authService,
	}
}

// HandleConnection 处理 WebSocket 连接请求。
// 认证由 Auth 中间件完成，这里取回用户名后升级连接并注册到 Hub。
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		logrus.Warn("WS Handler: User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		logrus.Error("WS Handler: User ID in context is not uint")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	username, err := h.authService.GetUsername(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			logCtx.Warn("WS Handler: User not found")
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			logCtx.WithError(err).Error("WS Handler: Error loading user")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		}
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写了 HTTP 错误响应
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}
	logCtx.Info("WS Handler: Connection upgraded to WebSocket")

	client := hub.NewClient(h.hub, conn, userID, username)
	registerMsg := hub.HubMessage{Type: "register", Client: client}
	if !h.hub.QueueMessage(registerMsg) {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
		client.CloseConn()
		return
	}

	client.Run()
}

package hub

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client 代表一个连接到 Hub 的 WebSocket 客户端。
// roomID 只在 Hub 的事件循环里读写，不需要额外加锁。
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	userID   uint
	username string
	roomID   string
	send     chan []byte
}

// NewClient 创建一个新的 Client 实例
func NewClient(hub *Hub, conn *websocket.Conn, userID uint, username string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		userID:   userID,
		username: username,
		send:     make(chan []byte, 256),
	}
}

// Run 启动客户端的读写 goroutine
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

func (c *Client) UserID() uint     { return c.userID }
func (c *Client) Username() string { return c.username }
func (c *Client) Room() string     { return c.roomID }

func (c *Client) setRoom(roomID string) { c.roomID = roomID }

func (c *Client) CloseConn() { c.conn.Close() }

// trySend 非阻塞地把消息放入发送队列，队列满时丢弃。
func (c *Client) trySend(data []byte) {
	select {
	case c.send <- data:
	default:
		logrus.WithFields(logrus.Fields{
			"user_id": c.userID,
			"room_id": c.roomID,
		}).Warn("Client send channel full, dropping message")
	}
}

// ReadPump 将消息从 WebSocket 连接泵送到 Hub 的处理通道。
// 它在自己的 goroutine 中运行。
func (c *Client) ReadPump() {
	defer func() {
		unregisterMsg := HubMessage{Type: "unregister", Client: c}
		select {
		case c.hub.messageChan <- unregisterMsg:
		case <-time.After(1 * time.Second):
			logrus.WithFields(logrus.Fields{"user_id": c.userID}).Warn("Timeout sending unregister message to Hub channel")
		}
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID}).Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed normally or read error")
			}
			break
		}

		if messageType != websocket.TextMessage {
			continue
		}

		envelopeMsg := HubMessage{
			Type:    "envelope",
			Client:  c,
			RawData: message,
		}
		// 非阻塞发送到 Hub，如果 Hub 处理不过来则丢弃
		select {
		case c.hub.messageChan <- envelopeMsg:
		default:
			logrus.WithFields(logrus.Fields{"user_id": c.userID}).Warn("Hub message channel full, dropping client message")
		}
	}
}

// WritePump 将消息从 Client 的 send 通道泵送到 WebSocket 连接。
// 它在自己的 goroutine 中运行。
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID}).Info("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// send 通道被 Hub 关闭（注销时）
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithFields(logrus.Fields{"user_id": c.userID}).WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logrus.WithFields(logrus.Fields{"user_id": c.userID}).WithError(err).Warn("Failed to send ping message")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}

// Package hub 维护所有 WebSocket 客户端连接，并把客户端的房间指令
// 分发到房间管理器，再把状态变化按观察者视角推送回去。
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zx081325/BoardGame/internal/game"
	"github.com/zx081325/BoardGame/internal/repository"
	"github.com/zx081325/BoardGame/internal/room"
)

// 包级别的 WebSocket 常量，供 hub 和 client 使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// presenceTTL 是断线后保留重连资格的时长。
	presenceTTL = 30 * time.Minute
)

// HubMessage 定义了 Hub 内部通道传递的消息类型
type HubMessage struct {
	Type    string // "register", "unregister", "envelope"
	Client  *Client
	RawData []byte // 仅用于 envelope (原始 WebSocket 消息)
}

// clientEnvelope 是客户端指令的统一外层格式。
type clientEnvelope struct {
	Action     string          `json:"action"`
	GameType   string          `json:"game_type"`
	RoomName   string          `json:"room_name"`
	RoomID     string          `json:"room_id"`
	MoveData   json.RawMessage `json:"move_data"`
	GameAction string          `json:"game_action"`
	ActionData json.RawMessage `json:"action_data"`
}

// Hub 维护活跃客户端集合并协调消息处理。
// 所有指令在 Run 的单 goroutine 里处理，客户端的房间归属只在这里变更。
type Hub struct {
	messageChan chan HubMessage

	// 全部在线客户端
	clients map[*Client]bool
	// 按房间组织的客户端集合 map[roomID]map[*Client]bool
	rooms   map[string]map[*Client]bool
	roomsMu sync.RWMutex

	roomMgr      *room.Manager
	presenceRepo repository.PresenceRepository
}

// NewHub 创建并返回一个新的 Hub 实例
func NewHub(roomMgr *room.Manager, presenceRepo repository.PresenceRepository) *Hub {
	if roomMgr == nil {
		panic("room.Manager cannot be nil for Hub")
	}
	if presenceRepo == nil {
		panic("PresenceRepository cannot be nil for Hub")
	}
	return &Hub{
		messageChan:  make(chan HubMessage, 512),
		clients:      make(map[*Client]bool),
		rooms:        make(map[string]map[*Client]bool),
		roomMgr:      roomMgr,
		presenceRepo: presenceRepo,
	}
}

// Run 启动 Hub 的主事件处理循环，应在单独的 goroutine 中运行。
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.Type {
		case "register":
			h.registerClient(msg.Client)
		case "unregister":
			h.unregisterClient(msg.Client)
		case "envelope":
			h.handleEnvelope(msg.Client, msg.RawData)
		default:
			log.Warnf("Hub: Received unknown message type: %s", msg.Type)
		}
	}
	log.Info("Hub is shutting down...")
}

// QueueMessage 将消息放入 Hub 的处理队列 (非阻塞)。
// 返回 true 如果消息成功入队，false 如果队列已满。
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// registerClient 处理客户端注册，并尝试恢复断线前的房间会话。
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"user_id":  client.UserID(),
		"username": client.Username(),
	})

	h.roomsMu.Lock()
	h.clients[client] = true
	h.roomsMu.Unlock()
	logCtx.Info("Client registered to Hub")

	h.tryReconnect(client)
}

// tryReconnect 查询在房记录，如果房间还在且玩家仍在名单中则重新挂接。
func (h *Hub) tryReconnect(client *Client) {
	ctx := context.Background()
	roomID, err := h.presenceRepo.GetUserRoom(ctx, client.UserID())
	if err != nil {
		if !errors.Is(err, repository.ErrPresenceNotFound) {
			logrus.WithError(err).WithField("user_id", client.UserID()).Warn("Presence lookup failed")
		}
		return
	}

	state, err := h.roomMgr.RoomState(roomID, client.UserID())
	if err != nil {
		// 房间已销毁，清掉过期记录
		_ = h.presenceRepo.ClearUserRoom(ctx, client.UserID())
		return
	}
	inRoom := false
	for _, id := range h.roomMgr.PlayerRooms(client.UserID()) {
		if id == roomID {
			inRoom = true
			break
		}
	}
	if !inRoom {
		_ = h.presenceRepo.ClearUserRoom(ctx, client.UserID())
		return
	}

	client.setRoom(roomID)
	h.attachToRoom(roomID, client)
	h.send(client, map[string]interface{}{
		"type":       "reconnected",
		"room_id":    roomID,
		"room_state": state,
	})
	h.broadcastRoomState(roomID)
	logrus.WithFields(logrus.Fields{
		"user_id": client.UserID(),
		"room_id": roomID,
	}).Info("Client reconnected to room")
}

// unregisterClient 处理客户端注销。断线不等于离开房间：
// 玩家名单保留，在 presenceTTL 内重连可以恢复会话。
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"user_id": client.UserID(),
		"room_id": client.Room(),
	})

	roomID := client.Room()

	h.roomsMu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		if roomID != "" {
			if roomClients, exists := h.rooms[roomID]; exists {
				delete(roomClients, client)
				if len(roomClients) == 0 {
					delete(h.rooms, roomID)
				}
			}
		}
		// 每个客户端只会经过一次注销（上面的成员检查保证），直接关闭
		close(client.send)
	}
	h.roomsMu.Unlock()

	if roomID != "" {
		h.broadcastToRoom(roomID, map[string]interface{}{
			"type":    "player_disconnected",
			"user_id": client.UserID(),
			"name":    client.Username(),
		}, client)
	}
	logCtx.Info("Client unregistered from Hub")
}

// handleEnvelope 解析客户端指令并分发处理。
func (h *Hub) handleEnvelope(client *Client, raw []byte) {
	var env clientEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.sendError(client, "无效的消息格式")
		return
	}

	switch env.Action {
	case "get_games":
		h.handleGetGames(client)
	case "create_room":
		h.handleCreateRoom(client, env)
	case "join_room":
		h.handleJoinRoom(client, env)
	case "leave_room":
		h.handleLeaveRoom(client)
	case "start_game":
		h.handleStartGame(client)
	case "make_move":
		h.handleMakeMove(client, env)
	case "game_action":
		h.handleGameAction(client, env)
	case "get_rooms":
		h.handleGetRooms(client)
	case "heartbeat":
		h.handleHeartbeat(client)
	default:
		h.sendError(client, "未知的操作: "+env.Action)
	}
}

func (h *Hub) handleGetGames(client *Client) {
	h.send(client, map[string]interface{}{
		"type":  "games_list",
		"games": h.roomMgr.AvailableGames(),
	})
}

func (h *Hub) handleGetRooms(client *Client) {
	h.send(client, map[string]interface{}{
		"type":  "rooms_list",
		"rooms": h.roomMgr.ListRooms(),
	})
}

func (h *Hub) handleCreateRoom(client *Client, env clientEnvelope) {
	if client.Room() != "" {
		h.sendError(client, "请先离开当前房间")
		return
	}
	roomID, err := h.roomMgr.CreateRoom(env.GameType, env.RoomName, game.Player{
		UserID: client.UserID(),
		Name:   client.Username(),
	})
	if err != nil {
		h.sendError(client, err.Error())
		return
	}

	client.setRoom(roomID)
	h.attachToRoom(roomID, client)
	h.savePresence(client, roomID)

	state, _ := h.roomMgr.RoomState(roomID, client.UserID())
	h.send(client, map[string]interface{}{
		"type":       "room_created",
		"room_id":    roomID,
		"room_state": state,
	})
}

func (h *Hub) handleJoinRoom(client *Client, env clientEnvelope) {
	if client.Room() != "" {
		h.sendError(client, "请先离开当前房间")
		return
	}
	if env.RoomID == "" {
		h.sendError(client, "缺少房间ID")
		return
	}
	err := h.roomMgr.JoinRoom(env.RoomID, game.Player{
		UserID: client.UserID(),
		Name:   client.Username(),
	})
	if err != nil {
		h.sendError(client, err.Error())
		return
	}

	client.setRoom(env.RoomID)
	h.attachToRoom(env.RoomID, client)
	h.savePresence(client, env.RoomID)

	state, _ := h.roomMgr.RoomState(env.RoomID, client.UserID())
	h.send(client, map[string]interface{}{
		"type":       "room_joined",
		"room_id":    env.RoomID,
		"room_state": state,
	})
	h.broadcastRoomStateExcept(env.RoomID, client)
}

func (h *Hub) handleLeaveRoom(client *Client) {
	roomID := client.Room()
	if roomID == "" {
		h.sendError(client, "你不在任何房间中")
		return
	}

	destroyed, err := h.roomMgr.LeaveRoom(roomID, client.UserID())
	if err != nil {
		h.sendError(client, err.Error())
		return
	}

	client.setRoom("")
	h.detachFromRoom(roomID, client)
	_ = h.presenceRepo.ClearUserRoom(context.Background(), client.UserID())

	h.send(client, map[string]interface{}{
		"type":    "room_left",
		"room_id": roomID,
	})
	if !destroyed {
		h.broadcastToRoom(roomID, map[string]interface{}{
			"type":    "player_left",
			"room_id": roomID,
			"user_id": client.UserID(),
			"name":    client.Username(),
		}, nil)
		h.broadcastRoomState(roomID)
	}
}

func (h *Hub) handleStartGame(client *Client) {
	roomID := client.Room()
	if roomID == "" {
		h.sendError(client, "你不在任何房间中")
		return
	}
	if err := h.roomMgr.StartGame(roomID, client.UserID()); err != nil {
		h.sendError(client, err.Error())
		return
	}
	h.broadcastRoomState(roomID)
}

func (h *Hub) handleMakeMove(client *Client, env clientEnvelope) {
	roomID := client.Room()
	if roomID == "" {
		h.sendError(client, "你不在任何房间中")
		return
	}
	result, err := h.roomMgr.MakeMove(roomID, client.UserID(), env.MoveData)
	if err != nil {
		h.sendError(client, err.Error())
		return
	}
	if !result.Success {
		h.sendError(client, result.Error)
		return
	}
	h.broadcastGameUpdate(roomID, map[string]interface{}{
		"game_finished": result.GameFinished,
		"winner":        result.Winner,
		"is_draw":       result.IsDraw,
	})
}

func (h *Hub) handleGameAction(client *Client, env clientEnvelope) {
	roomID := client.Room()
	if roomID == "" {
		h.sendError(client, "你不在任何房间中")
		return
	}
	if env.GameAction == "" {
		h.sendError(client, "缺少游戏操作类型")
		return
	}
	result, err := h.roomMgr.HandleGameAction(roomID, client.UserID(), env.GameAction, env.ActionData)
	if err != nil {
		h.sendError(client, err.Error())
		return
	}
	if !result.Success {
		h.sendError(client, result.Message)
		return
	}
	h.broadcastGameUpdate(roomID, map[string]interface{}{
		"action":  env.GameAction,
		"message": result.Message,
		"data":    result.Data,
	})
}

func (h *Hub) handleHeartbeat(client *Client) {
	if client.Room() != "" {
		_ = h.presenceRepo.RefreshUserRoom(context.Background(), client.UserID(), presenceTTL)
	}
	h.send(client, map[string]interface{}{
		"type":      "heartbeat_response",
		"timestamp": time.Now().Unix(),
	})
}

// ---- 推送辅助 ----

func (h *Hub) savePresence(client *Client, roomID string) {
	err := h.presenceRepo.SetUserRoom(context.Background(), client.UserID(), roomID, presenceTTL)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": client.UserID(),
			"room_id": roomID,
		}).Warn("Failed to save presence record")
	}
}

func (h *Hub) attachToRoom(roomID string, client *Client) {
	h.roomsMu.Lock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	h.roomsMu.Unlock()
}

func (h *Hub) detachFromRoom(roomID string, client *Client) {
	h.roomsMu.Lock()
	if roomClients, ok := h.rooms[roomID]; ok {
		delete(roomClients, client)
		if len(roomClients) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.roomsMu.Unlock()
}

// roomClients 返回指定房间当前在线客户端的副本。
func (h *Hub) roomClients(roomID string) []*Client {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	clients := make([]*Client, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		clients = append(clients, c)
	}
	return clients
}

// broadcastRoomState 给房间内每个在线客户端推送其专属视角的房间状态。
// 不能合并成一次序列化：隐藏信息对每个观察者不同。
func (h *Hub) broadcastRoomState(roomID string) {
	h.broadcastRoomStateExcept(roomID, nil)
}

func (h *Hub) broadcastRoomStateExcept(roomID string, skip *Client) {
	for _, c := range h.roomClients(roomID) {
		if c == skip {
			continue
		}
		state, err := h.roomMgr.RoomState(roomID, c.UserID())
		if err != nil {
			continue
		}
		h.send(c, map[string]interface{}{
			"type":       "room_updated",
			"room_id":    roomID,
			"room_state": state,
		})
	}
}

// broadcastGameUpdate 推送 game_updated 消息，每个客户端带自己视角的状态。
func (h *Hub) broadcastGameUpdate(roomID string, result map[string]interface{}) {
	for _, c := range h.roomClients(roomID) {
		state, err := h.roomMgr.RoomState(roomID, c.UserID())
		if err != nil {
			continue
		}
		h.send(c, map[string]interface{}{
			"type":       "game_updated",
			"room_id":    roomID,
			"result":     result,
			"room_state": state,
		})
	}
}

// broadcastToRoom 向房间所有在线客户端发送同一条消息，可排除 sender。
func (h *Hub) broadcastToRoom(roomID string, payload map[string]interface{}, sender *Client) {
	data, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal broadcast payload")
		return
	}
	for _, c := range h.roomClients(roomID) {
		if c == sender {
			continue
		}
		c.trySend(data)
	}
}

// send 序列化并发送单条消息给指定客户端。
func (h *Hub) send(client *Client, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal message payload")
		return
	}
	client.trySend(data)
}

func (h *Hub) sendError(client *Client, message string) {
	h.send(client, map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}

// Package room 管理房间的生命周期：创建、加入、离开、开局、
// 操作分发与过期清理。同一房间内的所有访问在这里被串行化，
// 游戏实现本身不做并发保护。
package room

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/zx081325/BoardGame/internal/game"
)

// entry 持有一个房间的互斥锁。closed 置位后房间即从管理器注销，
// 仍然持有旧指针的调用者会拿到 ErrRoomNotFound。
type entry struct {
	mu     sync.Mutex
	game   game.Game
	closed bool
}

// Manager 是所有房间的注册表。
type Manager struct {
	mu       sync.RWMutex
	registry *game.Registry
	rooms    map[string]*entry
}

func NewManager(registry *game.Registry) *Manager {
	if registry == nil {
		panic("room: registry is required")
	}
	return &Manager{
		registry: registry,
		rooms:    map[string]*entry{},
	}
}

// AvailableGames 返回所有已注册游戏类型的元信息。
func (m *Manager) AvailableGames() []map[string]interface{} {
	return m.registry.Available()
}

// CreateRoom 创建一个新房间并把创建者作为首位玩家（房主）入座。
func (m *Manager) CreateRoom(gameType, roomName string, creator game.Player) (string, error) {
	roomID := uuid.NewString()
	g, ok := m.registry.Create(gameType, roomID, roomName)
	if !ok {
		return "", ErrGameTypeUnknown
	}
	if !g.AddPlayer(creator) {
		return "", ErrRoomFull
	}

	m.mu.Lock()
	m.rooms[roomID] = &entry{game: g}
	m.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"room_id":   roomID,
		"room_name": roomName,
		"game_type": gameType,
		"user_id":   creator.UserID,
	}).Info("Room created")
	return roomID, nil
}

// withRoom 在持有房间锁的前提下执行 fn。先用读锁取出 entry 再锁房间，
// 避免在 map 锁里等待慢操作。
func (m *Manager) withRoom(roomID string, fn func(g game.Game) error) error {
	m.mu.RLock()
	e, ok := m.rooms[roomID]
	m.mu.RUnlock()
	if !ok {
		return ErrRoomNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrRoomNotFound
	}
	return fn(e.game)
}

func (m *Manager) JoinRoom(roomID string, p game.Player) error {
	err := m.withRoom(roomID, func(g game.Game) error {
		if !g.AddPlayer(p) {
			return ErrRoomFull
		}
		return nil
	})
	if err == nil {
		logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": p.UserID}).Info("Player joined room")
	}
	return err
}

// LeaveRoom 把玩家移出房间，最后一人离开时销毁房间并返回 destroyed=true。
func (m *Manager) LeaveRoom(roomID string, userID uint) (destroyed bool, err error) {
	m.mu.RLock()
	e, ok := m.rooms[roomID]
	m.mu.RUnlock()
	if !ok {
		return false, ErrRoomNotFound
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false, ErrRoomNotFound
	}
	found := false
	for _, p := range e.game.Players() {
		if p.UserID == userID {
			found = true
			break
		}
	}
	if !found {
		e.mu.Unlock()
		return false, ErrNotInRoom
	}
	destroyed = e.game.RemovePlayer(userID)
	if destroyed {
		e.closed = true
	}
	e.mu.Unlock()

	if destroyed {
		m.mu.Lock()
		delete(m.rooms, roomID)
		m.mu.Unlock()
	}
	logrus.WithFields(logrus.Fields{
		"room_id":   roomID,
		"user_id":   userID,
		"destroyed": destroyed,
	}).Info("Player left room")
	return destroyed, nil
}

func (m *Manager) StartGame(roomID string, userID uint) error {
	return m.withRoom(roomID, func(g game.Game) error {
		if !g.StartGame(userID) {
			return ErrStartRejected
		}
		logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}).Info("Game started")
		return nil
	})
}

func (m *Manager) MakeMove(roomID string, playerID uint, move json.RawMessage) (game.MoveResult, error) {
	var result game.MoveResult
	err := m.withRoom(roomID, func(g game.Game) error {
		result = g.MakeMove(playerID, move)
		return nil
	})
	return result, err
}

func (m *Manager) HandleGameAction(roomID string, playerID uint, action string, data json.RawMessage) (game.ActionResult, error) {
	var result game.ActionResult
	err := m.withRoom(roomID, func(g game.Game) error {
		result = g.HandleAction(playerID, action, data)
		return nil
	})
	return result, err
}

// RoomState 返回指定观察者视角下的房间完整状态。
func (m *Manager) RoomState(roomID string, viewerID uint) (map[string]interface{}, error) {
	var state map[string]interface{}
	err := m.withRoom(roomID, func(g game.Game) error {
		state = roomState(g, viewerID)
		return nil
	})
	return state, err
}

// RoomBasicInfo 返回房间的概要信息（不含游戏状态）。
func (m *Manager) RoomBasicInfo(roomID string) (map[string]interface{}, error) {
	var info map[string]interface{}
	err := m.withRoom(roomID, func(g game.Game) error {
		info = roomInfo(g)
		return nil
	})
	return info, err
}

// snapshot 收集当前全部房间的 entry，在不持有 map 锁的情况下逐个加锁。
func (m *Manager) snapshot() map[string]*entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*entry, len(m.rooms))
	for id, e := range m.rooms {
		out[id] = e
	}
	return out
}

// ListRooms 返回所有房间的概要信息列表。
func (m *Manager) ListRooms() []map[string]interface{} {
	rooms := make([]map[string]interface{}, 0)
	for _, e := range m.snapshot() {
		e.mu.Lock()
		if !e.closed {
			rooms = append(rooms, roomInfo(e.game))
		}
		e.mu.Unlock()
	}
	return rooms
}

// PlayerRooms 返回指定玩家所在的全部房间 ID。
func (m *Manager) PlayerRooms(userID uint) []string {
	var ids []string
	for id, e := range m.snapshot() {
		e.mu.Lock()
		if !e.closed {
			for _, p := range e.game.Players() {
				if p.UserID == userID {
					ids = append(ids, id)
					break
				}
			}
		}
		e.mu.Unlock()
	}
	return ids
}

// CleanupInactiveRooms 销毁最后活跃时间早于 threshold 的房间，返回清理数量。
func (m *Manager) CleanupInactiveRooms(threshold time.Duration) int {
	cutoff := time.Now().Add(-threshold)
	var stale []string

	for id, e := range m.snapshot() {
		e.mu.Lock()
		if !e.closed && e.game.LastActivity().Before(cutoff) {
			e.closed = true
			stale = append(stale, id)
		}
		e.mu.Unlock()
	}
	if len(stale) == 0 {
		return 0
	}

	m.mu.Lock()
	for _, id := range stale {
		delete(m.rooms, id)
	}
	m.mu.Unlock()

	logrus.WithFields(logrus.Fields{"count": len(stale)}).Info("Inactive rooms cleaned up")
	return len(stale)
}

package room

import (
	"time"

	"github.com/zx081325/BoardGame/internal/game"
)

// roomState 构建推送给单个观察者的房间完整快照，
// 游戏状态通过 StateView 做观察者过滤。调用方必须持有房间锁。
func roomState(g game.Game, viewerID uint) map[string]interface{} {
	players := make([]map[string]interface{}, 0, len(g.Players()))
	for _, p := range g.Players() {
		players = append(players, map[string]interface{}{
			"user_id": p.UserID,
			"name":    p.Name,
			"symbol":  p.Symbol,
		})
	}

	var current interface{}
	if cp := g.CurrentPlayer(); cp != nil {
		current = map[string]interface{}{
			"user_id": cp.UserID,
			"name":    cp.Name,
			"symbol":  cp.Symbol,
		}
	}

	return map[string]interface{}{
		"room_id":        g.RoomID(),
		"room_name":      g.RoomName(),
		"game_type":      g.Type(),
		"game_name":      g.Name(),
		"status":         string(g.Status()),
		"players":        players,
		"current_player": current,
		"max_players":    g.MaxPlayers(),
		"created_at":     g.CreatedAt().Format(time.RFC3339),
		"last_activity":  g.LastActivity().Format(time.RFC3339),
		"game_state":     g.StateView(viewerID),
	}
}

// roomInfo 构建房间列表用的概要信息。调用方必须持有房间锁。
func roomInfo(g game.Game) map[string]interface{} {
	var currentID uint
	if cp := g.CurrentPlayer(); cp != nil {
		currentID = cp.UserID
	}
	players := make([]map[string]interface{}, 0, len(g.Players()))
	for _, p := range g.Players() {
		players = append(players, map[string]interface{}{
			"user_id":    p.UserID,
			"name":       p.Name,
			"is_current": g.Status() == game.StatusPlaying && p.UserID == currentID,
		})
	}
	return map[string]interface{}{
		"room_id":       g.RoomID(),
		"room_name":     g.RoomName(),
		"game_type":     g.Type(),
		"game_name":     g.Name(),
		"status":        string(g.Status()),
		"player_count":  len(g.Players()),
		"max_players":   g.MaxPlayers(),
		"players":       players,
		"created_at":    g.CreatedAt().Format(time.RFC3339),
		"last_activity": g.LastActivity().Format(time.RFC3339),
	}
}

package room

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zx081325/BoardGame/internal/game"
)

func newTestManager() *Manager {
	return NewManager(game.NewDefaultRegistry())
}

func player(id uint) game.Player {
	return game.Player{UserID: id, Name: fmt.Sprintf("p%d", id)}
}

func TestManagerCreateRoom(t *testing.T) {
	m := newTestManager()

	roomID, err := m.CreateRoom(game.TicTacToeType, "测试房间", player(1))
	require.NoError(t, err)
	require.NotEmpty(t, roomID)

	info, err := m.RoomBasicInfo(roomID)
	require.NoError(t, err)
	assert.Equal(t, "测试房间", info["room_name"])
	assert.Equal(t, game.TicTacToeType, info["game_type"])
	assert.Equal(t, 1, info["player_count"])
	assert.Equal(t, "waiting", info["status"])

	_, err = m.CreateRoom("chess", "无效房间", player(1))
	assert.ErrorIs(t, err, ErrGameTypeUnknown)
}

func TestManagerJoinAndLeave(t *testing.T) {
	m := newTestManager()
	roomID, err := m.CreateRoom(game.TicTacToeType, "房间", player(1))
	require.NoError(t, err)

	require.NoError(t, m.JoinRoom(roomID, player(2)))
	assert.ErrorIs(t, m.JoinRoom(roomID, player(2)), ErrRoomFull, "重复加入")
	assert.ErrorIs(t, m.JoinRoom(roomID, player(3)), ErrRoomFull, "房间已满")
	assert.ErrorIs(t, m.JoinRoom("no-such-room", player(3)), ErrRoomNotFound)

	_, err = m.LeaveRoom(roomID, 99)
	assert.ErrorIs(t, err, ErrNotInRoom)

	destroyed, err := m.LeaveRoom(roomID, 2)
	require.NoError(t, err)
	assert.False(t, destroyed)

	// 最后一人离开时房间销毁
	destroyed, err = m.LeaveRoom(roomID, 1)
	require.NoError(t, err)
	assert.True(t, destroyed)

	_, err = m.RoomState(roomID, 1)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestManagerGameFlow(t *testing.T) {
	m := newTestManager()
	roomID, err := m.CreateRoom(game.TicTacToeType, "房间", player(1))
	require.NoError(t, err)
	require.NoError(t, m.JoinRoom(roomID, player(2)))

	// 非房主不能开局
	assert.ErrorIs(t, m.StartGame(roomID, 2), ErrStartRejected)
	require.NoError(t, m.StartGame(roomID, 1))

	res, err := m.MakeMove(roomID, 1, json.RawMessage(`{"row":0,"col":0}`))
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = m.MakeMove(roomID, 1, json.RawMessage(`{"row":1,"col":1}`))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "不是你的回合", res.Error)

	state, err := m.RoomState(roomID, 1)
	require.NoError(t, err)
	assert.Equal(t, "playing", state["status"])
	current := state["current_player"].(map[string]interface{})
	assert.Equal(t, uint(2), current["user_id"])
}

func TestManagerGameAction(t *testing.T) {
	m := newTestManager()
	roomID, err := m.CreateRoom(game.PokemonType, "经济房间", player(1))
	require.NoError(t, err)
	require.NoError(t, m.JoinRoom(roomID, player(2)))
	require.NoError(t, m.StartGame(roomID, 1))

	res, err := m.HandleGameAction(roomID, 1, "take_coins",
		json.RawMessage(`{"coins":{"red":1,"blue":1,"yellow":1}}`))
	require.NoError(t, err)
	assert.True(t, res.Success, res.Message)

	_, err = m.HandleGameAction("no-such-room", 1, "end_turn", nil)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestManagerListRoomsAndPlayerRooms(t *testing.T) {
	m := newTestManager()
	r1, err := m.CreateRoom(game.TicTacToeType, "房间一", player(1))
	require.NoError(t, err)
	r2, err := m.CreateRoom(game.PokemonType, "房间二", player(2))
	require.NoError(t, err)
	require.NoError(t, m.JoinRoom(r2, player(1)))

	rooms := m.ListRooms()
	assert.Len(t, rooms, 2)

	ids := m.PlayerRooms(1)
	assert.ElementsMatch(t, []string{r1, r2}, ids)
	assert.Equal(t, []string{r2}, m.PlayerRooms(2))
	assert.Empty(t, m.PlayerRooms(9))

	// 列表条目包含每个玩家的 is_current 标记和 last_activity
	info, err := m.RoomBasicInfo(r2)
	require.NoError(t, err)
	assert.NotEmpty(t, info["last_activity"])

	players := info["players"].([]map[string]interface{})
	require.Len(t, players, 2)
	for _, p := range players {
		assert.False(t, p["is_current"].(bool), "未开局时没有当前玩家")
	}

	require.NoError(t, m.StartGame(r2, 2))
	info, err = m.RoomBasicInfo(r2)
	require.NoError(t, err)
	players = info["players"].([]map[string]interface{})
	for _, p := range players {
		assert.Equal(t, p["user_id"] == uint(2), p["is_current"],
			"开局后房主先手")
	}
}

func TestManagerStateViewFiltersByViewer(t *testing.T) {
	m := newTestManager()
	roomID, err := m.CreateRoom(game.PokemonType, "房间", player(1))
	require.NoError(t, err)
	require.NoError(t, m.JoinRoom(roomID, player(2)))
	require.NoError(t, m.StartGame(roomID, 1))

	res, err := m.HandleGameAction(roomID, 1, "reserve_card",
		json.RawMessage(`{"type":"deck_top","deck_type":"level_1"}`))
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	owner, err := m.RoomState(roomID, 1)
	require.NoError(t, err)
	other, err := m.RoomState(roomID, 2)
	require.NoError(t, err)

	ownReserved := owner["game_state"].(map[string]interface{})["player_data"].(map[string]interface{})["1"].(map[string]interface{})["reserved_cards"].([]interface{})
	otherReserved := other["game_state"].(map[string]interface{})["player_data"].(map[string]interface{})["1"].(map[string]interface{})["reserved_cards"].([]interface{})
	require.Len(t, ownReserved, 1)
	require.Len(t, otherReserved, 1)

	// 持有者看到真实卡牌，旁观者只看到占位符
	_, isPlaceholder := otherReserved[0].(map[string]interface{})
	assert.True(t, isPlaceholder)
	_, isPlaceholder = ownReserved[0].(map[string]interface{})
	assert.False(t, isPlaceholder)
}

func TestManagerCleanupInactiveRooms(t *testing.T) {
	m := newTestManager()
	r1, err := m.CreateRoom(game.TicTacToeType, "活跃房间", player(1))
	require.NoError(t, err)
	_, err = m.CreateRoom(game.TicTacToeType, "活跃房间二", player(2))
	require.NoError(t, err)

	// 阈值很大时不清理任何房间
	assert.Zero(t, m.CleanupInactiveRooms(time.Hour))
	assert.Len(t, m.ListRooms(), 2)

	// 阈值为零时所有房间都视为过期
	assert.Equal(t, 2, m.CleanupInactiveRooms(0))
	assert.Empty(t, m.ListRooms())
	_, err = m.RoomState(r1, 1)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

// 并发访问同一房间时所有操作都必须被串行化，终态保持一致。
func TestManagerConcurrentAccess(t *testing.T) {
	m := newTestManager()
	roomID, err := m.CreateRoom(game.PokemonType, "并发房间", player(1))
	require.NoError(t, err)
	for i := uint(2); i <= 4; i++ {
		require.NoError(t, m.JoinRoom(roomID, player(i)))
	}
	require.NoError(t, m.StartGame(roomID, 1))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				switch w % 4 {
				case 0:
					m.HandleGameAction(roomID, uint(w%4+1), "take_coins",
						json.RawMessage(`{"coins":{"red":1,"blue":1,"yellow":1}}`))
				case 1:
					m.HandleGameAction(roomID, uint(w%4+1), "end_turn", nil)
				case 2:
					m.RoomState(roomID, uint(w%4+1))
				default:
					m.ListRooms()
				}
			}
		}(w)
	}
	wg.Wait()

	// 房间仍可用，状态结构完整
	state, err := m.RoomState(roomID, 1)
	require.NoError(t, err)
	assert.NotNil(t, state["game_state"])
}

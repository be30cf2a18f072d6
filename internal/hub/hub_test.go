package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zx081325/BoardGame/internal/game"
	"github.com/zx081325/BoardGame/internal/repository"
	"github.com/zx081325/BoardGame/internal/repository/mocks"
	"github.com/zx081325/BoardGame/internal/room"
)

func newTestHub() (*Hub, *mocks.PresenceRepository) {
	presenceRepo := new(mocks.PresenceRepository)
	mgr := room.NewManager(game.NewDefaultRegistry())
	return NewHub(mgr, presenceRepo), presenceRepo
}

func TestHubUnregisterClosesSendChannel(t *testing.T) {
	h, presenceRepo := newTestHub()
	presenceRepo.On("GetUserRoom", mock.Anything, uint(1)).
		Return("", repository.ErrPresenceNotFound)

	client := NewClient(h, nil, 1, "玩家一")
	h.registerClient(client)

	// 注销时 send 通道里还有未消费的消息
	client.send <- []byte(`{"type":"rooms_list"}`)
	h.unregisterClient(client)

	msg, ok := <-client.send
	require.True(t, ok, "未消费的消息不应被丢弃")
	assert.JSONEq(t, `{"type":"rooms_list"}`, string(msg))

	_, ok = <-client.send
	assert.False(t, ok, "注销后 send 通道应已关闭")

	h.roomsMu.RLock()
	_, registered := h.clients[client]
	h.roomsMu.RUnlock()
	assert.False(t, registered)
}

func TestHubUnregisterKeepsRoomMembership(t *testing.T) {
	h, presenceRepo := newTestHub()
	presenceRepo.On("GetUserRoom", mock.Anything, uint(1)).
		Return("", repository.ErrPresenceNotFound)

	roomID, err := h.roomMgr.CreateRoom(game.TicTacToeType, "房间", game.Player{UserID: 1, Name: "玩家一"})
	require.NoError(t, err)

	client := NewClient(h, nil, 1, "玩家一")
	h.registerClient(client)
	client.setRoom(roomID)
	h.attachToRoom(roomID, client)

	// 断线只断连接，座位保留，等待重连
	h.unregisterClient(client)
	assert.Contains(t, h.roomMgr.PlayerRooms(1), roomID)
}

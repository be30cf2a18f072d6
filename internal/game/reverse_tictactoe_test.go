package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStartedReverse(t *testing.T) *ReverseTicTacToe {
	t.Helper()
	g := NewReverseTicTacToe("room-1", "测试房间")
	require.True(t, g.AddPlayer(Player{UserID: 1, Name: "alice"}))
	require.True(t, g.AddPlayer(Player{UserID: 2, Name: "bob"}))
	require.True(t, g.StartGame(1))
	return g
}

// 连成一线的一方判负，胜者是对方。
func TestReverseTicTacToeLineLoses(t *testing.T) {
	g := newStartedReverse(t)

	require.True(t, g.MakeMove(1, moveJSON(0, 0)).Success)
	require.True(t, g.MakeMove(2, moveJSON(1, 0)).Success)
	require.True(t, g.MakeMove(1, moveJSON(0, 1)).Success)
	require.True(t, g.MakeMove(2, moveJSON(1, 1)).Success)
	res := g.MakeMove(1, moveJSON(0, 2)) // X 连成顶行

	require.True(t, res.Success)
	assert.True(t, res.GameFinished)
	assert.Equal(t, "O", res.Winner)
	assert.False(t, res.IsDraw)

	state := g.StateView(0).(map[string]interface{})
	assert.Equal(t, "X", state["loser"])
}

func TestReverseTicTacToeDraw(t *testing.T) {
	g := newStartedReverse(t)

	moves := []struct {
		player   uint
		row, col int
	}{
		{1, 0, 0}, {2, 0, 1}, {1, 0, 2},
		{2, 1, 1}, {1, 1, 0}, {2, 1, 2},
		{1, 2, 1}, {2, 2, 0}, {1, 2, 2},
	}
	var last MoveResult
	for _, m := range moves {
		last = g.MakeMove(m.player, moveJSON(m.row, m.col))
		require.True(t, last.Success)
	}
	assert.True(t, last.GameFinished)
	assert.True(t, last.IsDraw)
	assert.Empty(t, last.Winner)
}

func TestReverseTicTacToeTurnAndBounds(t *testing.T) {
	g := newStartedReverse(t)

	res := g.MakeMove(2, moveJSON(0, 0))
	assert.False(t, res.Success)
	assert.Equal(t, "不是你的回合", res.Error)

	res = g.MakeMove(1, moveJSON(5, 5))
	assert.False(t, res.Success)
	assert.Equal(t, uint(1), g.CurrentPlayer().UserID)
}

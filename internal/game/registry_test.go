package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreate(t *testing.T) {
	r := NewDefaultRegistry()

	assert.True(t, r.IsRegistered(TicTacToeType))
	assert.True(t, r.IsRegistered(ReverseTicTacToeType))
	assert.True(t, r.IsRegistered(PokemonType))
	assert.False(t, r.IsRegistered("chess"))

	g, ok := r.Create(PokemonType, "room-1", "房间")
	require.True(t, ok)
	assert.Equal(t, PokemonType, g.Type())
	assert.Equal(t, 4, g.MaxPlayers())

	_, ok = r.Create("chess", "room-2", "房间")
	assert.False(t, ok)
}

func TestRegistryAvailableOrder(t *testing.T) {
	r := NewDefaultRegistry()
	list := r.Available()
	require.Len(t, list, 3)

	// 注册顺序即展示顺序
	assert.Equal(t, TicTacToeType, list[0]["type"])
	assert.Equal(t, ReverseTicTacToeType, list[1]["type"])
	assert.Equal(t, PokemonType, list[2]["type"])
	assert.Equal(t, "井字棋", list[0]["name"])
	assert.NotNil(t, list[2]["rules"])
}

func TestRegistryDuplicatePanics(t *testing.T) {
	r := NewDefaultRegistry()
	assert.Panics(t, func() {
		r.Register(Descriptor{Type: TicTacToeType, Name: "重复", MaxPlayers: 2,
			New: func(roomID, roomName string) Game { return NewTicTacToe(roomID, roomName) }})
	})
}

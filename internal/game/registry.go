package game

import (
	"fmt"
	"sync"
)

// Descriptor 描述一种可创建的游戏类型。
type Descriptor struct {
	Type       string
	Name       string
	MaxPlayers int
	// New 为指定房间创建一个全新的游戏实例。
	New func(roomID, roomName string) Game
}

// Registry 维护游戏类型标识到构造函数的映射。
type Registry struct {
	mu    sync.RWMutex
	games map[string]Descriptor
	order []string // 保持注册顺序，列表输出稳定
}

// NewRegistry 创建一个空的注册表。
func NewRegistry() *Registry {
	return &Registry{games: make(map[string]Descriptor)}
}

// NewDefaultRegistry 返回注册了全部内置变体的注册表。
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Descriptor{
		Type:       TicTacToeType,
		Name:       "井字棋",
		MaxPlayers: 2,
		New:        func(roomID, roomName string) Game { return NewTicTacToe(roomID, roomName) },
	})
	r.Register(Descriptor{
		Type:       ReverseTicTacToeType,
		Name:       "反井字棋",
		MaxPlayers: 2,
		New:        func(roomID, roomName string) Game { return NewReverseTicTacToe(roomID, roomName) },
	})
	r.Register(Descriptor{
		Type:       PokemonType,
		Name:       "宝可梦",
		MaxPlayers: 4,
		New:        func(roomID, roomName string) Game { return NewPokemon(roomID, roomName) },
	})
	return r
}

// Register 注册一种游戏类型，类型标识重复时 panic（注册发生在启动期）。
func (r *Registry) Register(d Descriptor) {
	if d.Type == "" || d.New == nil {
		panic("game: descriptor must have a type and a constructor")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.games[d.Type]; exists {
		panic(fmt.Sprintf("game: type %q already registered", d.Type))
	}
	r.games[d.Type] = d
	r.order = append(r.order, d.Type)
}

// IsRegistered 检查游戏类型是否可用。
func (r *Registry) IsRegistered(gameType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.games[gameType]
	return ok
}

// Create 为房间创建指定类型的游戏实例，类型未注册时返回 false。
func (r *Registry) Create(gameType, roomID, roomName string) (Game, bool) {
	r.mu.RLock()
	d, ok := r.games[gameType]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return d.New(roomID, roomName), true
}

// Available 列出所有已注册的游戏类型及其元信息和规则说明。
func (r *Registry) Available() []map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]map[string]interface{}, 0, len(r.order))
	for _, t := range r.order {
		d := r.games[t]
		// 规则说明挂在实例上，创建一个临时实例读取
		g := d.New("temp", "temp")
		out = append(out, map[string]interface{}{
			"type":        d.Type,
			"name":        d.Name,
			"max_players": d.MaxPlayers,
			"rules":       g.Rules(),
		})
	}
	return out
}

// Package game 定义了所有游戏变体共享的状态机契约，
// 以及房间内玩家名单、回合指针的通用管理逻辑。
package game

import (
	"encoding/json"
	"time"
)

// Status 表示一局游戏的生命周期阶段。
type Status string

const (
	// StatusWaiting 表示房间正在等待玩家或等待房主开始。
	StatusWaiting Status = "waiting"
	// StatusPlaying 表示游戏正在进行中。
	StatusPlaying Status = "playing"
	// StatusFinished 表示游戏已结束。
	StatusFinished Status = "finished"
)

// Player 是房间内的一名玩家。
type Player struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"` // 游戏开始时由变体分配（如 X、O）
}

// MoveResult 是每个状态变更操作的统一返回值。
// success=false 时保证游戏状态未发生任何变化。
type MoveResult struct {
	Success      bool        `json:"success"`
	Error        string      `json:"error,omitempty"`
	GameState    interface{} `json:"game_state,omitempty"`
	GameFinished bool        `json:"game_finished"`
	Winner       string      `json:"winner,omitempty"`
	IsDraw       bool        `json:"is_draw"`
}

// ActionResult 是 HandleAction 的返回值，Data 携带操作特定的附加信息
// （如购卡的实际花费、结束回合后的下一位玩家）。
type ActionResult struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Rules 是展示给客户端的游戏规则说明。
type Rules map[string]interface{}

// Game 是每个游戏变体都要实现的状态机契约。
// 所有方法都不做并发保护，调用方（房间管理器）必须保证同一实例上的串行访问。
type Game interface {
	Type() string
	Name() string
	MaxPlayers() int
	Rules() Rules

	RoomID() string
	RoomName() string
	Status() Status
	Players() []Player
	CurrentPlayer() *Player
	CreatedAt() time.Time
	LastActivity() time.Time

	// AddPlayer 把玩家加入名单；房间已满或 user_id 重复时返回 false，不会自动开局。
	AddPlayer(p Player) bool
	// RemovePlayer 移除玩家；名单清空时返回 true 表示房间应被销毁，
	// 否则状态回退到 waiting 并重置游戏状态（中途退出视为流局）。
	RemovePlayer(userID uint) bool
	// StartGame 只有房主（players[0]）在 waiting 状态且人数 ≥ 2 时才能开始。
	StartGame(userID uint) bool

	MakeMove(playerID uint, move json.RawMessage) MoveResult
	IsValidMove(playerID uint, move json.RawMessage) bool
	HandleAction(playerID uint, action string, data json.RawMessage) ActionResult

	// StateView 返回指定观察者可见的游戏状态快照，viewerID 为 0 表示公共视角。
	// 对观察者不可见的隐私数据（如暗预购的卡牌、牌堆内容）必须被替换或剔除。
	StateView(viewerID uint) interface{}
}

// variant 是变体提供给 base 的回调集合。
type variant interface {
	// initState 重建变体自己的游戏状态，构造和重置时都会被调用。
	initState()
	// symbols 返回按入座顺序分配给玩家的符号。
	symbols() []string
	// onStart 在符号分配完成、状态切到 playing 之后调用。
	onStart()
}

// base 承载所有变体共用的房间字段和名单/回合逻辑，变体通过内嵌复用。
type base struct {
	roomID       string
	roomName     string
	maxPlayers   int
	players      []Player
	status       Status
	current      int
	createdAt    time.Time
	lastActivity time.Time
	v            variant
}

func newBase(roomID, roomName string, maxPlayers int, v variant) base {
	now := time.Now()
	return base{
		roomID:       roomID,
		roomName:     roomName,
		maxPlayers:   maxPlayers,
		status:       StatusWaiting,
		createdAt:    now,
		lastActivity: now,
		v:            v,
	}
}

func (b *base) RoomID() string          { return b.roomID }
func (b *base) RoomName() string        { return b.roomName }
func (b *base) MaxPlayers() int         { return b.maxPlayers }
func (b *base) Status() Status          { return b.status }
func (b *base) CreatedAt() time.Time    { return b.createdAt }
func (b *base) LastActivity() time.Time { return b.lastActivity }

// Players 返回名单的副本，顺序即入座顺序（0 号为房主，回合按此顺序轮转）。
func (b *base) Players() []Player {
	out := make([]Player, len(b.players))
	copy(out, b.players)
	return out
}

// CurrentPlayer 返回当前回合的玩家，游戏未进行时返回 nil。
func (b *base) CurrentPlayer() *Player {
	if b.status != StatusPlaying || len(b.players) == 0 {
		return nil
	}
	p := b.players[b.current]
	return &p
}

func (b *base) AddPlayer(p Player) bool {
	if len(b.players) >= b.maxPlayers {
		return false
	}
	for _, existing := range b.players {
		if existing.UserID == p.UserID {
			return false
		}
	}
	b.players = append(b.players, p)
	b.touch()
	return true
}

func (b *base) RemovePlayer(userID uint) bool {
	kept := b.players[:0]
	for _, p := range b.players {
		if p.UserID != userID {
			kept = append(kept, p)
		}
	}
	removed := len(kept) < len(b.players)
	b.players = kept

	if len(b.players) == 0 {
		return true // 房间应被销毁
	}
	if removed {
		// 有人中途退出，流局并回到等待状态
		b.status = StatusWaiting
		b.current = 0
		b.v.initState()
		b.touch()
	}
	return false
}

func (b *base) StartGame(userID uint) bool {
	if len(b.players) == 0 || b.players[0].UserID != userID {
		return false
	}
	if b.status != StatusWaiting {
		return false
	}
	if len(b.players) < 2 {
		return false
	}
	b.status = StatusPlaying
	b.current = 0
	b.assignSymbols()
	b.v.onStart()
	b.touch()
	return true
}

// HandleAction 的默认实现：变体没有专属操作时报告不支持。
func (b *base) HandleAction(playerID uint, action string, data json.RawMessage) ActionResult {
	return ActionResult{Success: false, Message: "不支持的操作: " + action}
}

// 默认符号与空的开局回调，需要的变体自行覆盖。
func (b *base) symbols() []string { return []string{"Player1", "Player2"} }
func (b *base) onStart()          {}

func (b *base) assignSymbols() {
	symbols := b.v.symbols()
	for i := range b.players {
		if i < len(symbols) {
			b.players[i].Symbol = symbols[i]
		}
	}
}

// nextPlayer 把回合指针推进到下一位玩家。
func (b *base) nextPlayer() {
	if len(b.players) > 0 {
		b.current = (b.current + 1) % len(b.players)
	}
}

// isTurn 判断是否轮到指定玩家行动。
func (b *base) isTurn(playerID uint) bool {
	cp := b.CurrentPlayer()
	return cp != nil && cp.UserID == playerID
}

// playerByID 在名单中查找玩家。
func (b *base) playerByID(userID uint) *Player {
	for i := range b.players {
		if b.players[i].UserID == userID {
			return &b.players[i]
		}
	}
	return nil
}

func (b *base) touch() {
	b.lastActivity = time.Now()
}

// finish 统一处理终局状态切换。
func (b *base) finish() {
	b.status = StatusFinished
	b.touch()
}

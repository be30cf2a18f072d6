package game

import "encoding/json"

// ReverseTicTacToeType 是反井字棋的类型标识。
const ReverseTicTacToeType = "reverse_tic_tac_toe"

// ReverseTicTacToe 是井字棋的胜负反转变体：谁连成三个谁输，
// 获胜者由变体状态推导（没有连线的那名玩家），而不是契约硬编码的概念。
type ReverseTicTacToe struct {
	base
	board  boardState
	loser  string
	isDraw bool
}

// NewReverseTicTacToe 创建一局反井字棋。
func NewReverseTicTacToe(roomID, roomName string) *ReverseTicTacToe {
	g := &ReverseTicTacToe{}
	g.base = newBase(roomID, roomName, 2, g)
	g.initState()
	return g
}

func (g *ReverseTicTacToe) Type() string { return ReverseTicTacToeType }
func (g *ReverseTicTacToe) Name() string { return "反井字棋" }

func (g *ReverseTicTacToe) initState() {
	g.board = boardState{}
	g.loser = ""
	g.isDraw = false
}

func (g *ReverseTicTacToe) symbols() []string { return []string{"X", "O"} }

func (g *ReverseTicTacToe) MakeMove(playerID uint, move json.RawMessage) MoveResult {
	if g.status != StatusPlaying {
		return MoveResult{Success: false, Error: "游戏未开始"}
	}
	if !g.isTurn(playerID) {
		return MoveResult{Success: false, Error: "不是你的回合"}
	}
	row, col, ok := g.board.validCell(move)
	if !ok {
		return MoveResult{Success: false, Error: "无效的移动"}
	}

	symbol := g.CurrentPlayer().Symbol
	g.board[row][col] = symbol
	g.touch()

	// 连成线的一方是输家
	loser := g.board.lineOwner()
	isDraw := loser == "" && g.board.full()
	if loser != "" || isDraw {
		g.finish()
		g.loser = loser
		g.isDraw = isDraw

		winner := ""
		if loser != "" && !isDraw {
			for _, p := range g.players {
				if p.Symbol != loser {
					winner = p.Symbol
					break
				}
			}
		}
		return MoveResult{
			Success:      true,
			GameState:    g.StateView(0),
			GameFinished: true,
			Winner:       winner,
			IsDraw:       isDraw,
		}
	}

	g.nextPlayer()
	return MoveResult{Success: true, GameState: g.StateView(0)}
}

func (g *ReverseTicTacToe) IsValidMove(playerID uint, move json.RawMessage) bool {
	if g.status != StatusPlaying || !g.isTurn(playerID) {
		return false
	}
	_, _, ok := g.board.validCell(move)
	return ok
}

func (g *ReverseTicTacToe) StateView(viewerID uint) interface{} {
	return map[string]interface{}{
		"board":   g.board,
		"loser":   g.loser,
		"is_draw": g.isDraw,
	}
}

func (g *ReverseTicTacToe) Rules() Rules {
	return Rules{
		"name":        g.Name(),
		"description": "两名玩家轮流在3x3的棋盘上放置自己的符号（X或O），率先连成三个符号的玩家败北！目标是避免连成线。",
		"max_players": g.maxPlayers,
		"move_format": map[string]string{
			"action": "make_move",
			"row":    "行位置 (0-2)",
			"col":    "列位置 (0-2)",
		},
		"symbols":       g.symbols(),
		"special_rules": "反井字棋规则：谁连成3个谁输！",
	}
}

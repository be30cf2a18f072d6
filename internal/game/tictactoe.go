package game

import "encoding/json"

// TicTacToeType 是井字棋的类型标识。
const TicTacToeType = "tic_tac_toe"

// boardState 是两种连线变体共用的 3x3 棋盘。
type boardState [3][3]string

// lineOwner 返回任意一条横、竖或斜线上三连的符号，没有三连时返回空串。
func (b *boardState) lineOwner() string {
	for i := 0; i < 3; i++ {
		if b[i][0] != "" && b[i][0] == b[i][1] && b[i][1] == b[i][2] {
			return b[i][0]
		}
		if b[0][i] != "" && b[0][i] == b[1][i] && b[1][i] == b[2][i] {
			return b[0][i]
		}
	}
	if b[0][0] != "" && b[0][0] == b[1][1] && b[1][1] == b[2][2] {
		return b[0][0]
	}
	if b[0][2] != "" && b[0][2] == b[1][1] && b[1][1] == b[2][0] {
		return b[0][2]
	}
	return ""
}

func (b *boardState) full() bool {
	for _, row := range b {
		for _, cell := range row {
			if cell == "" {
				return false
			}
		}
	}
	return true
}

// lineMove 是连线变体的落子数据。
type lineMove struct {
	Row *int `json:"row"`
	Col *int `json:"col"`
}

// validCell 校验坐标在界内且目标格为空。
func (b *boardState) validCell(raw json.RawMessage) (row, col int, ok bool) {
	var m lineMove
	if err := json.Unmarshal(raw, &m); err != nil || m.Row == nil || m.Col == nil {
		return 0, 0, false
	}
	row, col = *m.Row, *m.Col
	if row < 0 || row > 2 || col < 0 || col > 2 {
		return 0, 0, false
	}
	if b[row][col] != "" {
		return 0, 0, false
	}
	return row, col, true
}

// TicTacToe 实现标准井字棋：先连成三个同色符号者胜。
type TicTacToe struct {
	base
	board  boardState
	winner string
	isDraw bool
}

// NewTicTacToe 创建一局井字棋。
func NewTicTacToe(roomID, roomName string) *TicTacToe {
	g := &TicTacToe{}
	g.base = newBase(roomID, roomName, 2, g)
	g.initState()
	return g
}

func (g *TicTacToe) Type() string { return TicTacToeType }
func (g *TicTacToe) Name() string { return "井字棋" }

func (g *TicTacToe) initState() {
	g.board = boardState{}
	g.winner = ""
	g.isDraw = false
}

func (g *TicTacToe) symbols() []string { return []string{"X", "O"} }

func (g *TicTacToe) MakeMove(playerID uint, move json.RawMessage) MoveResult {
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

	winner := g.board.lineOwner()
	isDraw := winner == "" && g.board.full()
	if winner != "" || isDraw {
		g.finish()
		g.winner = winner
		g.isDraw = isDraw
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

func (g *TicTacToe) IsValidMove(playerID uint, move json.RawMessage) bool {
	if g.status != StatusPlaying || !g.isTurn(playerID) {
		return false
	}
	_, _, ok := g.board.validCell(move)
	return ok
}

func (g *TicTacToe) StateView(viewerID uint) interface{} {
	return map[string]interface{}{
		"board":   g.board,
		"winner":  g.winner,
		"is_draw": g.isDraw,
	}
}

func (g *TicTacToe) Rules() Rules {
	return Rules{
		"name":        g.Name(),
		"description": "两名玩家轮流在3x3的棋盘上放置自己的符号（X或O），率先在横、竖或斜线上连成三个符号的玩家获胜。",
		"max_players": g.maxPlayers,
		"move_format": map[string]string{
			"action": "make_move",
			"row":    "行位置 (0-2)",
			"col":    "列位置 (0-2)",
		},
		"symbols": g.symbols(),
	}
}

package game

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStartedPokemon(t *testing.T) *Pokemon {
	t.Helper()
	g := NewPokemon("room-1", "测试房间")
	for i := uint(1); i <= 4; i++ {
		require.True(t, g.AddPlayer(Player{UserID: i, Name: fmt.Sprintf("p%d", i)}))
	}
	require.True(t, g.StartGame(1))
	return g
}

func rawAction(s string) json.RawMessage { return json.RawMessage(s) }

// totalCoins 统计银行与所有玩家手中某种颜色硬币的总量，用于守恒断言。
func totalCoins(g *Pokemon, color string) int {
	total := g.st.bank[color]
	for _, pd := range g.st.playerData {
		total += pd.Coins[color]
	}
	return total
}

func TestPokemonSetup(t *testing.T) {
	g := newStartedPokemon(t)

	for _, color := range baseColors {
		assert.Equal(t, 7, g.st.bank[color])
	}
	assert.Equal(t, 5, g.st.bank[ColorPurple])

	assert.Len(t, g.st.display["level_1"], 4)
	assert.Len(t, g.st.display["level_2"], 4)
	assert.Len(t, g.st.display["level_3"], 4)
	assert.Len(t, g.st.display["rare"], 1)
	assert.Len(t, g.st.display["phantom"], 1)

	// 展示区翻开后牌堆剩余数量
	assert.Equal(t, 26, len(g.st.decks["level_1"].cards))
	assert.Equal(t, 20, len(g.st.decks["level_2"].cards))
	assert.Equal(t, 12, len(g.st.decks["level_3"].cards))
	assert.Equal(t, 7, len(g.st.decks["rare"].cards))
	assert.Equal(t, 4, len(g.st.decks["phantom"].cards))

	require.Len(t, g.st.playerData, 4)
	for _, pd := range g.st.playerData {
		assert.Zero(t, pd.Score)
		for _, color := range allColors {
			assert.Zero(t, pd.Coins[color])
		}
	}
	assert.Equal(t, "🔴", g.Players()[0].Symbol)
}

func TestPokemonActionGuards(t *testing.T) {
	g := NewPokemon("room-1", "测试房间")
	require.True(t, g.AddPlayer(Player{UserID: 1, Name: "p1"}))
	res := g.HandleAction(1, "take_coins", rawAction(`{"coins":{"red":1}}`))
	assert.False(t, res.Success)
	assert.Equal(t, "游戏未开始", res.Message)

	g2 := newStartedPokemon(t)
	res = g2.HandleAction(2, "end_turn", nil)
	assert.False(t, res.Success)
	assert.Equal(t, "不是你的回合", res.Message)

	res = g2.HandleAction(1, "unknown_action", nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "不支持的操作")
}

func TestPokemonMakeMoveRejected(t *testing.T) {
	g := newStartedPokemon(t)
	res := g.MakeMove(1, rawAction(`{"row":0,"col":0}`))
	assert.False(t, res.Success)
	assert.False(t, g.IsValidMove(1, rawAction(`{}`)))
}

func TestPokemonTakeThreeDistinctCoins(t *testing.T) {
	g := newStartedPokemon(t)

	res := g.HandleAction(1, "take_coins", rawAction(
		fmt.Sprintf(`{"coins":{"%s":1,"%s":1,"%s":1}}`, ColorRed, ColorBlue, ColorYellow)))
	require.True(t, res.Success, res.Message)

	pd := g.st.playerData[1]
	assert.Equal(t, 1, pd.Coins[ColorRed])
	assert.Equal(t, 1, pd.Coins[ColorBlue])
	assert.Equal(t, 1, pd.Coins[ColorYellow])
	assert.Equal(t, 6, g.st.bank[ColorRed])

	// 拿硬币不自动结束回合
	assert.Equal(t, uint(1), g.CurrentPlayer().UserID)
	assert.Zero(t, g.st.turnCount)
}

func TestPokemonTakeTwoSameCoins(t *testing.T) {
	g := newStartedPokemon(t)

	// 库存 7 > 4，允许
	res := g.HandleAction(1, "take_coins", rawAction(
		fmt.Sprintf(`{"coins":{"%s":2}}`, ColorRed)))
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 2, g.st.playerData[1].Coins[ColorRed])

	// 库存降到 4 后不再允许拿 2 个同色
	g.st.bank[ColorPink] = 4
	res = g.HandleAction(1, "take_coins", rawAction(
		fmt.Sprintf(`{"coins":{"%s":2}}`, ColorPink)))
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "库存不超过4个")
	assert.Equal(t, 4, g.st.bank[ColorPink])
}

func TestPokemonTakeTwoDistinctCoins(t *testing.T) {
	g := newStartedPokemon(t)

	// 库存还有 5 种颜色时不允许拿 2 个不同色
	res := g.HandleAction(1, "take_coins", rawAction(
		fmt.Sprintf(`{"coins":{"%s":1,"%s":1}}`, ColorRed, ColorBlue)))
	assert.False(t, res.Success)

	// 只剩两种颜色时允许
	g.st.bank[ColorPink] = 0
	g.st.bank[ColorYellow] = 0
	g.st.bank[ColorBlack] = 0
	res = g.HandleAction(1, "take_coins", rawAction(
		fmt.Sprintf(`{"coins":{"%s":1,"%s":1}}`, ColorRed, ColorBlue)))
	require.True(t, res.Success, res.Message)
}

func TestPokemonTakeSingleCoin(t *testing.T) {
	g := newStartedPokemon(t)

	// 多种颜色有库存时不允许只拿 1 个
	res := g.HandleAction(1, "take_coins", rawAction(
		fmt.Sprintf(`{"coins":{"%s":1}}`, ColorRed)))
	assert.False(t, res.Success)

	// 只剩一种颜色且不足 4 个时允许
	for _, color := range baseColors {
		g.st.bank[color] = 0
	}
	g.st.bank[ColorRed] = 3
	res = g.HandleAction(1, "take_coins", rawAction(
		fmt.Sprintf(`{"coins":{"%s":1}}`, ColorRed)))
	require.True(t, res.Success, res.Message)

	// 只剩一种颜色但 >= 4 个时不允许
	g.st.bank[ColorRed] = 4
	res = g.HandleAction(1, "take_coins", rawAction(
		fmt.Sprintf(`{"coins":{"%s":1}}`, ColorRed)))
	assert.False(t, res.Success)
}

func TestPokemonTakeCoinsRejectsPurpleAndGarbage(t *testing.T) {
	g := newStartedPokemon(t)

	res := g.HandleAction(1, "take_coins", rawAction(
		fmt.Sprintf(`{"coins":{"%s":1}}`, ColorPurple)))
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "不能拿取")

	res = g.HandleAction(1, "take_coins", rawAction(`{"coins":{}}`))
	assert.False(t, res.Success)

	res = g.HandleAction(1, "take_coins", rawAction(
		fmt.Sprintf(`{"coins":{"%s":-1,"%s":1}}`, ColorRed, ColorBlue)))
	assert.False(t, res.Success)

	res = g.HandleAction(1, "take_coins", rawAction(`not json`))
	assert.False(t, res.Success)
}

// 失败的操作不得留下任何状态变化。
func TestPokemonFailedActionKeepsState(t *testing.T) {
	g := newStartedPokemon(t)
	before := map[string]int{}
	for _, color := range allColors {
		before[color] = totalCoins(g, color)
	}

	g.HandleAction(1, "take_coins", rawAction(
		fmt.Sprintf(`{"coins":{"%s":2,"%s":2}}`, ColorRed, ColorBlue)))
	g.HandleAction(1, "buy_card", rawAction(`{"buy_type":"reserved","card_index":9}`))
	g.HandleAction(1, "reserve_card", rawAction(`{"type":"display"}`))

	for _, color := range allColors {
		assert.Equal(t, before[color], totalCoins(g, color), color)
	}
	assert.Equal(t, 7, g.st.bank[ColorRed])
	assert.Zero(t, g.st.playerData[1].Score)
}

func TestPokemonReserveDisplayCard(t *testing.T) {
	g := newStartedPokemon(t)
	card := g.st.display["level_1"][0]

	res := g.HandleAction(1, "reserve_card", rawAction(
		fmt.Sprintf(`{"type":"display","card_id":%d}`, card.ID)))
	require.True(t, res.Success, res.Message)

	pd := g.st.playerData[1]
	require.Len(t, pd.Reserved, 1)
	assert.Equal(t, card.ID, pd.Reserved[0].Card.ID)
	assert.True(t, pd.Reserved[0].VisibleToAll)
	assert.Equal(t, 1, pd.Coins[ColorPurple])
	assert.Equal(t, 4, g.st.bank[ColorPurple])

	// 展示区立即补牌
	assert.Len(t, g.st.display["level_1"], 4)
	assert.Equal(t, 25, len(g.st.decks["level_1"].cards))
}

func TestPokemonReserveDeckTopHidden(t *testing.T) {
	g := newStartedPokemon(t)
	top := g.st.decks["level_2"].cards[0]

	res := g.HandleAction(1, "reserve_card", rawAction(`{"type":"deck_top","deck_type":"level_2"}`))
	require.True(t, res.Success, res.Message)

	pd := g.st.playerData[1]
	require.Len(t, pd.Reserved, 1)
	assert.Equal(t, top.ID, pd.Reserved[0].Card.ID)
	assert.False(t, pd.Reserved[0].VisibleToAll)

	// 自己的视角能看到真实卡牌
	own := g.StateView(1).(map[string]interface{})
	ownData := own["player_data"].(map[string]interface{})["1"].(map[string]interface{})
	ownReserved := ownData["reserved_cards"].([]interface{})
	require.Len(t, ownReserved, 1)
	assert.Equal(t, top.ID, ownReserved[0].(reservedCard).Card.ID)

	// 其他玩家的视角只能看到占位符
	other := g.StateView(2).(map[string]interface{})
	otherData := other["player_data"].(map[string]interface{})["1"].(map[string]interface{})
	otherReserved := otherData["reserved_cards"].([]interface{})
	require.Len(t, otherReserved, 1)
	placeholder := otherReserved[0].(map[string]interface{})
	hidden := placeholder["card"].(map[string]interface{})
	assert.Equal(t, "hidden", hidden["id"])
	assert.Equal(t, "隐藏卡牌", hidden["name"])
}

func TestPokemonReserveLimitAndRareRejection(t *testing.T) {
	g := newStartedPokemon(t)

	// 稀有与传说卡牌不可预购
	rare := g.st.display["rare"][0]
	res := g.HandleAction(1, "reserve_card", rawAction(
		fmt.Sprintf(`{"type":"display","card_id":%d}`, rare.ID)))
	assert.False(t, res.Success)
	assert.Equal(t, "不能预购稀有或传说卡牌", res.Message)

	res = g.HandleAction(1, "reserve_card", rawAction(`{"type":"deck_top","deck_type":"rare"}`))
	assert.False(t, res.Success)

	// 预购区上限 3 张
	pd := g.st.playerData[1]
	for i := 0; i < 3; i++ {
		pd.Reserved = append(pd.Reserved, reservedCard{Card: Card{ID: 1000 + i}})
	}
	res = g.HandleAction(1, "reserve_card", rawAction(`{"type":"deck_top","deck_type":"level_1"}`))
	assert.False(t, res.Success)
	assert.Equal(t, "预购区域已满（最多3张卡牌）", res.Message)
}

func TestPokemonReserveWithoutPurpleStock(t *testing.T) {
	g := newStartedPokemon(t)
	g.st.bank[ColorPurple] = 0

	res := g.HandleAction(1, "reserve_card", rawAction(`{"type":"deck_top","deck_type":"level_1"}`))
	assert.False(t, res.Success)
	assert.Equal(t, "没有紫色硬币可获得", res.Message)
	assert.Empty(t, g.st.playerData[1].Reserved)
}

func TestPokemonBuyDisplayCard(t *testing.T) {
	g := newStartedPokemon(t)
	card := g.st.display["level_1"][0]

	// 给玩家恰好够用的硬币
	pd := g.st.playerData[1]
	for color, need := range card.cost() {
		pd.Coins[color] = need
		g.st.bank[color] -= need
	}

	res := g.HandleAction(1, "buy_card", rawAction(
		fmt.Sprintf(`{"buy_type":"display","card_id":%d}`, card.ID)))
	require.True(t, res.Success, res.Message)

	require.Len(t, pd.Cards, 1)
	assert.Equal(t, card.ID, pd.Cards[0].ID)
	assert.Equal(t, card.Score, pd.Score)
	// 支付的硬币回到银行
	for _, color := range allColors {
		assert.Zero(t, pd.Coins[color], color)
	}
	assert.Equal(t, 7, g.st.bank[ColorRed])
	assert.Len(t, g.st.display["level_1"], 4)
}

func TestPokemonBuyWithPurpleShortfall(t *testing.T) {
	g := newStartedPokemon(t)

	// 自造一张只需 2 红的预购卡，手里 1 红 1 紫
	pd := g.st.playerData[1]
	pd.Reserved = append(pd.Reserved, reservedCard{
		Card: Card{ID: 9001, Name: "测试卡", Level: LevelLow, NeedRed: 2, Score: 1},
	})
	pd.Coins[ColorRed] = 1
	pd.Coins[ColorPurple] = 1

	res := g.HandleAction(1, "buy_card", rawAction(`{"buy_type":"reserved","card_index":0}`))
	require.True(t, res.Success, res.Message)

	assert.Zero(t, pd.Coins[ColorRed])
	assert.Zero(t, pd.Coins[ColorPurple])
	assert.Empty(t, pd.Reserved)
	assert.Equal(t, 1, pd.Score)
}

func TestPokemonBuyInsufficientCoins(t *testing.T) {
	g := newStartedPokemon(t)
	pd := g.st.playerData[1]
	pd.Reserved = append(pd.Reserved, reservedCard{
		Card: Card{ID: 9002, Name: "测试卡", Level: LevelLow, NeedBlue: 3, Score: 2},
	})

	res := g.HandleAction(1, "buy_card", rawAction(`{"buy_type":"reserved","card_index":0}`))
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "金币不足")
	// 失败时卡牌仍留在预购区
	assert.Len(t, pd.Reserved, 1)
	assert.Zero(t, pd.Score)
}

func TestPokemonPurchaseDiscounts(t *testing.T) {
	g := newStartedPokemon(t)
	pd := g.st.playerData[1]

	// 手牌提供 2 点红色折扣（奖励颜色代码 1 = 红）
	pd.Cards = append(pd.Cards, Card{ID: 9003, RewardColorCode: 1, RewardCount: 2})
	pd.Coins[ColorRed] = 1

	card := Card{ID: 9004, Name: "测试卡", NeedRed: 3, Score: 1}
	plan, ok, msg := g.planPurchase(pd, card)
	require.True(t, ok, msg)
	assert.Equal(t, 1, plan.finalCost[ColorRed])
	assert.Equal(t, 2, plan.discounts[ColorRed])
	assert.Equal(t, 1, plan.paid[ColorRed])
	assert.Zero(t, plan.paid[ColorPurple])
}

func TestPokemonEndTurn(t *testing.T) {
	g := newStartedPokemon(t)

	res := g.HandleAction(1, "end_turn", nil)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, uint(2), g.CurrentPlayer().UserID)
	assert.Equal(t, 1, g.st.turnCount)
	assert.Equal(t, uint(2), res.Data["next_player_id"])

	// 回合轮转一圈回到房主
	g.HandleAction(2, "end_turn", nil)
	g.HandleAction(3, "end_turn", nil)
	g.HandleAction(4, "end_turn", nil)
	assert.Equal(t, uint(1), g.CurrentPlayer().UserID)
	assert.Equal(t, 4, g.st.turnCount)
}

func TestPokemonWinAtScoreThreshold(t *testing.T) {
	g := newStartedPokemon(t)
	g.st.playerData[1].Score = winScore

	res := g.HandleAction(1, "end_turn", nil)
	require.True(t, res.Success)
	assert.Equal(t, StatusFinished, g.Status())
	assert.Equal(t, "🔴", g.st.winner)
	assert.Equal(t, true, res.Data["game_finished"])

	// 终局后所有操作被拒绝
	res = g.HandleAction(2, "end_turn", nil)
	assert.False(t, res.Success)
	assert.Equal(t, "游戏未开始", res.Message)
}

func TestPokemonTurnLimit(t *testing.T) {
	g := newStartedPokemon(t)
	g.st.turnCount = turnLimit - 1
	g.st.playerData[2].Score = 5
	g.st.playerData[3].Score = 3

	res := g.HandleAction(1, "end_turn", nil)
	require.True(t, res.Success)
	assert.Equal(t, StatusFinished, g.Status())
	assert.Equal(t, "🔵", g.st.winner)
	assert.False(t, g.st.isDraw)
}

func TestPokemonTurnLimitDraw(t *testing.T) {
	g := newStartedPokemon(t)
	g.st.turnCount = turnLimit - 1

	res := g.HandleAction(1, "end_turn", nil)
	require.True(t, res.Success)
	assert.Equal(t, StatusFinished, g.Status())
	assert.True(t, g.st.isDraw)
	assert.Empty(t, g.st.winner)
}

func TestPokemonStateViewNeverExposesDecks(t *testing.T) {
	g := newStartedPokemon(t)
	state := g.StateView(1).(map[string]interface{})

	_, hasDecks := state["decks"]
	assert.False(t, hasDecks)
	counts := state["deck_counts"].(map[string]int)
	assert.Equal(t, 26, counts["level_1"])
}

func TestPokemonRemovePlayerResets(t *testing.T) {
	g := newStartedPokemon(t)
	require.True(t, g.HandleAction(1, "take_coins", rawAction(
		fmt.Sprintf(`{"coins":{"%s":2}}`, ColorRed))).Success)

	destroy := g.RemovePlayer(3)
	assert.False(t, destroy)
	assert.Equal(t, StatusWaiting, g.Status())
	// 状态整体重建，银行回满
	assert.Equal(t, 7, g.st.bank[ColorRed])
	assert.Empty(t, g.st.playerData)
}

package game

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// PokemonType 是经济卡牌变体的类型标识。
const PokemonType = "pokemon_game"

const (
	// reserveLimit 是每名玩家预购区的容量上限。
	reserveLimit = 3
	// winScore 达到该分数的玩家在结束回合时立即获胜。
	winScore = 20
	// turnLimit 回合数达到上限后按最高分截胜。
	turnLimit = 50
)

// 牌堆类型。稀有与传说牌堆的卡牌不允许任何形式的预购。
var (
	deckTypes       = []string{"level_1", "level_2", "level_3", "rare", "phantom"}
	reservableDecks = map[string]bool{"level_1": true, "level_2": true, "level_3": true}
	displaySizes    = map[string]int{"level_1": 4, "level_2": 4, "level_3": 4, "rare": 1, "phantom": 1}
	deckLevels      = map[string]string{
		"level_1": LevelLow,
		"level_2": LevelMid,
		"level_3": LevelHigh,
		"rare":    LevelRare,
		"phantom": LevelPhantom,
	}
	deckNames = map[string]string{
		"level_1": "低级牌堆",
		"level_2": "中级牌堆",
		"level_3": "高级牌堆",
		"rare":    "稀有牌堆",
		"phantom": "传说牌堆",
	}
)

// reservedCard 是预购区中的一张卡牌及其可见性标记。
// 从展示区预购的卡对所有人可见，从牌堆顶暗预购的卡只有持有者可见。
type reservedCard struct {
	Card         Card `json:"card"`
	VisibleToAll bool `json:"visible_to_all"`
}

// pokemonPlayerData 是一名玩家的对局内资源。
type pokemonPlayerData struct {
	Cards    []Card         `json:"cards"`
	Reserved []reservedCard `json:"reserved_cards"`
	Coins    map[string]int `json:"coins"`
	Score    int            `json:"score"`
}

// cardDeck 是一个暗置牌堆，内容永远不出现在对外视图里。
type cardDeck struct {
	name  string
	cards []Card
}

// pokemonState 是经济变体的完整游戏状态。
type pokemonState struct {
	turnCount  int
	phase      string
	bank       map[string]int            // 公共硬币池
	decks      map[string]*cardDeck      // 暗置牌堆（私有数据）
	display    map[string][]Card         // 各牌堆的明置展示区
	playerData map[uint]*pokemonPlayerData
	winner     string
	isDraw     bool
	lastAction map[string]interface{}
}

// Pokemon 是 4 人经济卡牌对局：拿硬币、预购、购卡均不自动结束回合，
// 只有显式 end_turn 才会推进回合指针。
type Pokemon struct {
	base
	st pokemonState
}

// NewPokemon 创建一局宝可梦卡牌游戏。
func NewPokemon(roomID, roomName string) *Pokemon {
	g := &Pokemon{}
	g.base = newBase(roomID, roomName, 4, g)
	g.initState()
	return g
}

func (g *Pokemon) Type() string { return PokemonType }
func (g *Pokemon) Name() string { return "宝可梦" }

func (g *Pokemon) symbols() []string { return []string{"🔴", "🔵", "🟢", "🟡"} }

func (g *Pokemon) initState() {
	st := pokemonState{
		phase:      "waiting",
		bank:       map[string]int{},
		decks:      map[string]*cardDeck{},
		display:    map[string][]Card{},
		playerData: map[uint]*pokemonPlayerData{},
	}
	for _, color := range baseColors {
		st.bank[color] = 7
	}
	st.bank[ColorPurple] = 5

	for _, dt := range deckTypes {
		cards := cardsOfLevel(deckLevels[dt])
		rand.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
		deck := &cardDeck{name: deckNames[dt], cards: cards}
		st.decks[dt] = deck
		// 开局即从牌堆顶翻出展示区
		st.display[dt] = deck.draw(displaySizes[dt])
	}
	g.st = st
}

// draw 从牌堆顶取出至多 n 张卡牌。
func (d *cardDeck) draw(n int) []Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}
	out := make([]Card, n)
	copy(out, d.cards[:n])
	d.cards = d.cards[n:]
	return out
}

// onStart 在 StartGame 分配完符号后初始化每名玩家的资源。
func (g *Pokemon) onStart() {
	g.st.phase = "playing"
	for _, p := range g.players {
		coins := make(map[string]int, len(allColors))
		for _, color := range allColors {
			coins[color] = 0
		}
		g.st.playerData[p.UserID] = &pokemonPlayerData{
			Cards:    []Card{},
			Reserved: []reservedCard{},
			Coins:    coins,
		}
	}
}

// MakeMove 不适用于本变体，所有操作走 HandleAction。
func (g *Pokemon) MakeMove(playerID uint, move json.RawMessage) MoveResult {
	return MoveResult{Success: false, Error: "宝可梦游戏请通过 game_action 接口操作"}
}

func (g *Pokemon) IsValidMove(playerID uint, move json.RawMessage) bool { return false }

// HandleAction 分发经济变体的四种操作。每个操作要么完整提交要么不改状态：
// 所有校验都在第一次写入之前完成。内部异常在此边界被吸收为普通失败。
func (g *Pokemon) HandleAction(playerID uint, action string, data json.RawMessage) (result ActionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = ActionResult{Success: false, Message: fmt.Sprintf("处理操作 %s 时出错: %v", action, r)}
		}
	}()

	if g.status != StatusPlaying {
		return ActionResult{Success: false, Message: "游戏未开始"}
	}
	if !g.isTurn(playerID) {
		return ActionResult{Success: false, Message: "不是你的回合"}
	}

	switch action {
	case "take_coins":
		return g.handleTakeCoins(playerID, data)
	case "reserve_card":
		return g.handleReserveCard(playerID, data)
	case "buy_card":
		return g.handleBuyCard(playerID, data)
	case "end_turn":
		return g.handleEndTurn(playerID)
	default:
		return ActionResult{Success: false, Message: "不支持的操作: " + action}
	}
}

// ---- take_coins ----

type takeCoinsData struct {
	Coins map[string]int `json:"coins"`
}

func (g *Pokemon) handleTakeCoins(playerID uint, data json.RawMessage) ActionResult {
	var req takeCoinsData
	if err := json.Unmarshal(data, &req); err != nil || len(req.Coins) == 0 {
		return ActionResult{Success: false, Message: "未指定要拿取的硬币"}
	}
	if ok, msg := g.validateCoinTaking(req.Coins); !ok {
		return ActionResult{Success: false, Message: msg}
	}
	for color, count := range req.Coins {
		if g.st.bank[color] < count {
			return ActionResult{Success: false, Message: fmt.Sprintf("%s硬币库存不足", color)}
		}
	}

	// 校验全部通过，银行 → 玩家
	pd := g.st.playerData[playerID]
	for color, count := range req.Coins {
		g.st.bank[color] -= count
		pd.Coins[color] += count
	}
	g.st.lastAction = map[string]interface{}{
		"player_id": playerID,
		"action":    "take_coins",
		"coins":     req.Coins,
	}
	g.touch()

	return ActionResult{Success: true, Message: "成功拿取硬币: " + describeCoins(req.Coins)}
}

// validateCoinTaking 实现拿硬币的四条规则：
// 3 种不同颜色各 1 个；2 个同色（该色库存 > 4）；
// 2 种不同颜色各 1 个（库存仅剩两种颜色时）；1 个（库存仅剩一种颜色且 < 4 时）。
func (g *Pokemon) validateCoinTaking(coins map[string]int) (bool, string) {
	valid := map[string]bool{}
	for _, c := range baseColors {
		valid[c] = true
	}
	total := 0
	for color, count := range coins {
		if !valid[color] {
			return false, fmt.Sprintf("不能拿取%s硬币", color)
		}
		if count <= 0 {
			return false, "无效的硬币数量"
		}
		total += count
	}
	uniqueColors := len(coins)

	var available []string
	for _, c := range baseColors {
		if g.st.bank[c] > 0 {
			available = append(available, c)
		}
	}

	switch {
	case uniqueColors == 1 && total == 2:
		color := singleKey(coins)
		if g.st.bank[color] <= 4 {
			return false, fmt.Sprintf("%s硬币库存不超过4个，不能拿取2个同色硬币", color)
		}
		return true, ""
	case uniqueColors == 2 && total == 2:
		if len(available) != 2 {
			return false, "只有当硬币库存只剩两种颜色时才能拿取2个不同颜色硬币"
		}
		return true, ""
	case uniqueColors == 1 && total == 1:
		color := singleKey(coins)
		if len(available) != 1 {
			return false, "只有当硬币库存只剩一种颜色时才能拿取1个硬币"
		}
		if g.st.bank[color] >= 4 {
			return false, fmt.Sprintf("%s硬币库存>=4个，不能只拿取1个硬币", color)
		}
		return true, ""
	case uniqueColors == 3 && total == 3:
		return true, ""
	}
	return false, "硬币拿取规则：可拿取3个不同颜色硬币、2个同色硬币（该色>4个）、2个不同色硬币（只剩2色时）或1个硬币（只剩1色且<4个）"
}

func singleKey(m map[string]int) string {
	for k := range m {
		return k
	}
	return ""
}

func describeCoins(coins map[string]int) string {
	keys := make([]string, 0, len(coins))
	for k := range coins {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%sx%d", k, coins[k]))
	}
	return strings.Join(parts, ", ")
}

// ---- reserve_card ----

type reserveCardData struct {
	Type     string `json:"type"` // "display" 或 "deck_top"
	CardID   *int   `json:"card_id"`
	DeckType string `json:"deck_type"`
}

func (g *Pokemon) handleReserveCard(playerID uint, data json.RawMessage) ActionResult {
	var req reserveCardData
	if err := json.Unmarshal(data, &req); err != nil || req.Type == "" {
		return ActionResult{Success: false, Message: "缺少预购类型参数"}
	}

	pd := g.st.playerData[playerID]
	if len(pd.Reserved) >= reserveLimit {
		return ActionResult{Success: false, Message: "预购区域已满（最多3张卡牌）"}
	}
	// 预购必须伴随一枚紫色硬币
	if g.st.bank[ColorPurple] <= 0 {
		return ActionResult{Success: false, Message: "没有紫色硬币可获得"}
	}

	switch req.Type {
	case "display":
		if req.CardID == nil {
			return ActionResult{Success: false, Message: "缺少卡牌ID参数"}
		}
		return g.reserveDisplayCard(playerID, *req.CardID)
	case "deck_top":
		if req.DeckType == "" {
			return ActionResult{Success: false, Message: "缺少牌堆类型参数"}
		}
		return g.reserveDeckTopCard(playerID, req.DeckType)
	default:
		return ActionResult{Success: false, Message: "无效的预购类型"}
	}
}

// findDisplayCard 在所有展示区中按 ID 查找卡牌。
func (g *Pokemon) findDisplayCard(cardID int) (deckType string, index int, card Card, ok bool) {
	for _, dt := range deckTypes {
		for i, c := range g.st.display[dt] {
			if c.ID == cardID {
				return dt, i, c, true
			}
		}
	}
	return "", 0, Card{}, false
}

func (g *Pokemon) reserveDisplayCard(playerID uint, cardID int) ActionResult {
	deckType, index, card, ok := g.findDisplayCard(cardID)
	if !ok {
		return ActionResult{Success: false, Message: "未找到指定的卡牌"}
	}
	if !reservableDecks[deckType] || card.Level == LevelRare || card.Level == LevelPhantom {
		return ActionResult{Success: false, Message: "不能预购稀有或传说卡牌"}
	}

	// 从展示区移除并立即补牌
	g.st.display[deckType] = append(g.st.display[deckType][:index], g.st.display[deckType][index+1:]...)
	g.refillDisplay(deckType)

	pd := g.st.playerData[playerID]
	// 展示区预购对所有人可见
	pd.Reserved = append(pd.Reserved, reservedCard{Card: card, VisibleToAll: true})
	g.st.bank[ColorPurple]--
	pd.Coins[ColorPurple]++

	g.st.lastAction = map[string]interface{}{
		"player_id": playerID,
		"action":    "reserve_display_card",
		"card_id":   card.ID,
	}
	g.touch()
	return ActionResult{Success: true, Message: fmt.Sprintf("成功预购卡牌: %s，获得1个紫色硬币", card.Name)}
}

func (g *Pokemon) reserveDeckTopCard(playerID uint, deckType string) ActionResult {
	if !reservableDecks[deckType] {
		return ActionResult{Success: false, Message: "无效的牌堆类型或该牌堆不允许预购"}
	}
	deck := g.st.decks[deckType]
	if len(deck.cards) == 0 {
		return ActionResult{Success: false, Message: deck.name + "已空"}
	}

	card := deck.cards[0]
	deck.cards = deck.cards[1:]

	pd := g.st.playerData[playerID]
	// 牌堆顶暗预购只有自己可见
	pd.Reserved = append(pd.Reserved, reservedCard{Card: card, VisibleToAll: false})
	g.st.bank[ColorPurple]--
	pd.Coins[ColorPurple]++

	g.st.lastAction = map[string]interface{}{
		"player_id": playerID,
		"action":    "reserve_deck_top_card",
		"deck_type": deckType,
	}
	g.touch()
	return ActionResult{Success: true, Message: fmt.Sprintf("成功预购%s顶部卡牌，获得1个紫色硬币", deck.name)}
}

// refillDisplay 从牌堆顶补充展示区空位，牌堆已空时不补。
func (g *Pokemon) refillDisplay(deckType string) {
	deck := g.st.decks[deckType]
	if len(deck.cards) == 0 {
		return
	}
	card := deck.cards[0]
	deck.cards = deck.cards[1:]
	g.st.display[deckType] = append(g.st.display[deckType], card)
}

// ---- buy_card ----

type buyCardData struct {
	BuyType   string `json:"buy_type"` // "display" 或 "reserved"
	CardID    *int   `json:"card_id"`
	CardIndex *int   `json:"card_index"`
}

func (g *Pokemon) handleBuyCard(playerID uint, data json.RawMessage) ActionResult {
	var req buyCardData
	if err := json.Unmarshal(data, &req); err != nil || req.BuyType == "" {
		return ActionResult{Success: false, Message: "无效的购买类型，支持: display, reserved"}
	}
	switch req.BuyType {
	case "display":
		if req.CardID == nil {
			return ActionResult{Success: false, Message: "购买展示卡牌需要指定card_id"}
		}
		return g.buyDisplayCard(playerID, *req.CardID)
	case "reserved":
		if req.CardIndex == nil {
			return ActionResult{Success: false, Message: "购买预购卡牌需要指定card_index"}
		}
		return g.buyReservedCard(playerID, *req.CardIndex)
	default:
		return ActionResult{Success: false, Message: "无效的购买类型，支持: display, reserved"}
	}
}

// payPlan 是一次购买的完整支付方案，在任何状态写入前算好。
type payPlan struct {
	finalCost map[string]int // 折扣后的实际需求
	paid      map[string]int // 每种颜色实际支付的硬币（含补足用的紫色）
	discounts map[string]int // 生效的折扣
}

// planPurchase 纯计算：折扣、差额、紫色补足。买不起时返回失败信息，不改任何状态。
func (g *Pokemon) planPurchase(pd *pokemonPlayerData, card Card) (payPlan, bool, string) {
	required := card.cost()

	// 手牌折扣只作用于五种普通颜色
	discountByColor := map[string]int{}
	for _, owned := range pd.Cards {
		if color, ok := rewardColorNames[owned.RewardColorCode]; ok && owned.RewardCount > 0 {
			discountByColor[color] += owned.RewardCount
		}
	}

	finalCost := map[string]int{}
	applied := map[string]int{}
	for color, need := range required {
		finalCost[color] = need
	}
	for _, color := range baseColors {
		if finalCost[color] > 0 && discountByColor[color] > 0 {
			reduction := discountByColor[color]
			if reduction > finalCost[color] {
				reduction = finalCost[color]
			}
			finalCost[color] -= reduction
			applied[color] = reduction
		}
	}

	// 先用同色硬币，差额用紫色补足
	paid := map[string]int{}
	purpleUsed := finalCost[ColorPurple]
	shortage := map[string]int{}
	for _, color := range baseColors {
		need := finalCost[color]
		if need == 0 {
			continue
		}
		have := pd.Coins[color]
		if have >= need {
			paid[color] = need
			continue
		}
		paid[color] = have
		purpleUsed += need - have
	}
	if purpleUsed > pd.Coins[ColorPurple] {
		missing := purpleUsed - pd.Coins[ColorPurple]
		shortage["total"] = missing
	}
	if len(shortage) > 0 {
		return payPlan{}, false, fmt.Sprintf("金币不足: 即使使用紫色硬币仍缺少%d个", shortage["total"])
	}
	if purpleUsed > 0 {
		paid[ColorPurple] = purpleUsed
	}
	return payPlan{finalCost: finalCost, paid: paid, discounts: applied}, true, ""
}

// applyPurchase 按方案转移硬币（玩家 → 银行）并把卡牌计入手牌。
func (g *Pokemon) applyPurchase(pd *pokemonPlayerData, card Card, plan payPlan) {
	for color, count := range plan.paid {
		if count > 0 {
			pd.Coins[color] -= count
			g.st.bank[color] += count
		}
	}
	pd.Cards = append(pd.Cards, card)
	pd.Score += card.Score
}

func (g *Pokemon) buyDisplayCard(playerID uint, cardID int) ActionResult {
	deckType, index, card, ok := g.findDisplayCard(cardID)
	if !ok {
		return ActionResult{Success: false, Message: fmt.Sprintf("未找到ID为%d的展示卡牌", cardID)}
	}

	pd := g.st.playerData[playerID]
	plan, afford, msg := g.planPurchase(pd, card)
	if !afford {
		return ActionResult{Success: false, Message: msg}
	}

	g.st.display[deckType] = append(g.st.display[deckType][:index], g.st.display[deckType][index+1:]...)
	g.refillDisplay(deckType)
	g.applyPurchase(pd, card, plan)

	g.st.lastAction = map[string]interface{}{
		"player_id": playerID,
		"action":    "buy_display_card",
		"card_id":   card.ID,
		"cost":      plan.finalCost,
	}
	g.touch()
	return ActionResult{
		Success: true,
		Message: "成功购买卡牌: " + card.Name,
		Data: map[string]interface{}{
			"cost":      plan.finalCost,
			"discounts": plan.discounts,
			"score":     pd.Score,
		},
	}
}

func (g *Pokemon) buyReservedCard(playerID uint, cardIndex int) ActionResult {
	pd := g.st.playerData[playerID]
	if cardIndex < 0 || cardIndex >= len(pd.Reserved) {
		return ActionResult{Success: false, Message: fmt.Sprintf("无效的预购卡牌索引: %d", cardIndex)}
	}
	card := pd.Reserved[cardIndex].Card

	plan, afford, msg := g.planPurchase(pd, card)
	if !afford {
		return ActionResult{Success: false, Message: msg}
	}

	pd.Reserved = append(pd.Reserved[:cardIndex], pd.Reserved[cardIndex+1:]...)
	g.applyPurchase(pd, card, plan)

	g.st.lastAction = map[string]interface{}{
		"player_id": playerID,
		"action":    "buy_reserved_card",
		"card_id":   card.ID,
		"cost":      plan.finalCost,
	}
	g.touch()
	return ActionResult{
		Success: true,
		Message: "成功购买预购卡牌: " + card.Name,
		Data: map[string]interface{}{
			"cost":      plan.finalCost,
			"discounts": plan.discounts,
			"score":     pd.Score,
		},
	}
}

// ---- end_turn ----

func (g *Pokemon) handleEndTurn(playerID uint) ActionResult {
	pd := g.st.playerData[playerID]
	actor := g.playerByID(playerID)

	// 结算点：达到胜利分数立即终局
	if pd.Score >= winScore {
		g.finish()
		g.st.phase = "finished"
		g.st.winner = actor.Symbol
		g.st.lastAction = map[string]interface{}{
			"player_id": playerID,
			"action":    "end_turn",
			"result":    "win",
		}
		return ActionResult{
			Success: true,
			Message: fmt.Sprintf("%s 达到%d分，游戏结束", actor.Name, winScore),
			Data:    map[string]interface{}{"winner": actor.Symbol, "game_finished": true},
		}
	}

	g.nextPlayer()
	g.st.turnCount++
	g.touch()

	// 回合上限：按最高分截胜，平分则为平局
	if g.st.turnCount >= turnLimit {
		winner, isDraw := g.topScorer()
		g.finish()
		g.st.phase = "finished"
		g.st.winner = winner
		g.st.isDraw = isDraw
		g.st.lastAction = map[string]interface{}{
			"player_id": playerID,
			"action":    "end_turn",
			"result":    "turn_limit",
		}
		return ActionResult{
			Success: true,
			Message: "达到回合上限，游戏结束",
			Data:    map[string]interface{}{"winner": winner, "is_draw": isDraw, "game_finished": true},
		}
	}

	g.st.lastAction = map[string]interface{}{
		"player_id":  playerID,
		"action":     "end_turn",
		"turn_count": g.st.turnCount,
	}
	next := g.CurrentPlayer()
	return ActionResult{
		Success: true,
		Message: fmt.Sprintf("回合结束，轮到 %s 行动", next.Name),
		Data: map[string]interface{}{
			"next_player_id": next.UserID,
			"turn_count":     g.st.turnCount,
		},
	}
}

// topScorer 返回最高分玩家的符号；多名玩家并列最高分时判为平局。
func (g *Pokemon) topScorer() (winner string, isDraw bool) {
	best := -1
	count := 0
	for _, p := range g.players {
		pd := g.st.playerData[p.UserID]
		if pd == nil {
			continue
		}
		if pd.Score > best {
			best = pd.Score
			winner = p.Symbol
			count = 1
		} else if pd.Score == best {
			count++
		}
	}
	if count != 1 {
		return "", true
	}
	return winner, false
}

// ---- views ----

// hiddenCardPlaceholder 是暗预购卡牌对其他观察者的固定占位形态。
func hiddenCardPlaceholder() map[string]interface{} {
	return map[string]interface{}{
		"card":           map[string]interface{}{"id": "hidden", "name": "隐藏卡牌"},
		"visible_to_all": false,
	}
}

// StateView 构建对指定观察者可见的状态投影：牌堆内容只暴露剩余数量，
// 其他玩家的暗预购卡牌统一替换为占位符；观察者自己的预购区完整可见。
func (g *Pokemon) StateView(viewerID uint) interface{} {
	deckCounts := map[string]int{}
	for _, dt := range deckTypes {
		deckCounts[dt] = len(g.st.decks[dt].cards)
	}

	playerData := map[string]interface{}{}
	for uid, pd := range g.st.playerData {
		reserved := make([]interface{}, 0, len(pd.Reserved))
		for _, rc := range pd.Reserved {
			if rc.VisibleToAll || uid == viewerID {
				reserved = append(reserved, rc)
			} else {
				reserved = append(reserved, hiddenCardPlaceholder())
			}
		}
		playerData[fmt.Sprintf("%d", uid)] = map[string]interface{}{
			"cards":          pd.Cards,
			"reserved_cards": reserved,
			"coins":          pd.Coins,
			"score":          pd.Score,
		}
	}

	return map[string]interface{}{
		"turn_count":    g.st.turnCount,
		"current_phase": g.st.phase,
		"coins":         g.st.bank,
		"display_cards": g.st.display,
		"deck_counts":   deckCounts,
		"player_data":   playerData,
		"winner":        g.st.winner,
		"is_draw":       g.st.isDraw,
		"last_action":   g.st.lastAction,
	}
}

func (g *Pokemon) Rules() Rules {
	return Rules{
		"name":        g.Name(),
		"description": "4人轮流行动的经济卡牌对战游戏",
		"max_players": g.maxPlayers,
		"rules": []string{
			"游戏支持4名玩家同时进行",
			"玩家轮流进行行动, 先得到20分的玩家获胜",
			"稀有与传说卡牌不允许预购",
			"拿取硬币、预购卡牌、购买卡牌等操作不会自动结束回合",
			"需要手动调用结束回合接口才会切换到下一个玩家",
		},
		"actions": []string{
			"take_coins - 拿取硬币",
			"reserve_card - 预购卡牌",
			"buy_card - 购买卡牌",
			"end_turn - 结束回合",
		},
	}
}

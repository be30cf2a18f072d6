package game

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

// 卡牌配置随二进制打包，来源与客户端展示的卡面一致。
//
//go:embed cards.json
var cardConfigRaw []byte

// 硬币颜色。紫色是万能硬币，只能通过预购获得，不能直接拿取。
const (
	ColorRed    = "red"
	ColorPink   = "pink"
	ColorBlue   = "blue"
	ColorYellow = "yellow"
	ColorBlack  = "black"
	ColorPurple = "purple"
)

// baseColors 是可以直接拿取的五种普通颜色。
var baseColors = []string{ColorRed, ColorPink, ColorBlue, ColorYellow, ColorBlack}

// allColors 含万能紫色，用于初始化玩家钱币。
var allColors = []string{ColorRed, ColorPink, ColorBlue, ColorYellow, ColorBlack, ColorPurple}

// 卡牌等级标签（与配置文件一致）。
const (
	LevelLow     = "低级"
	LevelMid     = "中级"
	LevelHigh    = "高级"
	LevelRare    = "稀有"
	LevelPhantom = "传说"
)

// rewardColorNames 把卡牌上的奖励颜色代号映射到硬币颜色。
var rewardColorNames = map[int]string{
	1: ColorRed,
	2: ColorPink,
	3: ColorBlue,
	4: ColorYellow,
	5: ColorBlack,
}

// Card 是经济变体中的一张卡牌。need_* 为购买所需的各色硬币数，
// reward_* 为持有后提供的同色折扣，score 计入胜利分数。
type Card struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Level           string `json:"level"`
	NeedRed         int    `json:"need_red"`
	NeedPink        int    `json:"need_pink"`
	NeedBlue        int    `json:"need_blue"`
	NeedYellow      int    `json:"need_yellow"`
	NeedBlack       int    `json:"need_black"`
	NeedMaster      int    `json:"need_master"`
	RewardColorCode int    `json:"reward_color_code"`
	RewardCount     int    `json:"reward_count"`
	Score           int    `json:"score"`
}

// cost 返回按颜色展开的购买需求，need_master 对应紫色硬币。
func (c Card) cost() map[string]int {
	return map[string]int{
		ColorRed:    c.NeedRed,
		ColorPink:   c.NeedPink,
		ColorBlue:   c.NeedBlue,
		ColorYellow: c.NeedYellow,
		ColorBlack:  c.NeedBlack,
		ColorPurple: c.NeedMaster,
	}
}

type cardConfig struct {
	PokemonCards []Card `json:"pokemon_cards"`
}

// cardTable 在包加载时解析一次，所有对局共享同一份只读卡表。
var cardTable = mustLoadCards()

func mustLoadCards() []Card {
	var cfg cardConfig
	if err := json.Unmarshal(cardConfigRaw, &cfg); err != nil {
		panic(fmt.Sprintf("game: parse embedded card config: %v", err))
	}
	if len(cfg.PokemonCards) == 0 {
		panic("game: embedded card config is empty")
	}
	return cfg.PokemonCards
}

// cardsOfLevel 返回指定等级的全部卡牌（副本，调用方可自由洗牌）。
func cardsOfLevel(level string) []Card {
	var out []Card
	for _, c := range cardTable {
		if c.Level == level {
			out = append(out, c)
		}
	}
	return out
}

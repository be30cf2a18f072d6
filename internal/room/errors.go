package room

import "errors"

// 房间层的业务错误，最终会作为 error 消息推送给客户端。
var (
	ErrGameTypeUnknown = errors.New("不支持的游戏类型")
	ErrRoomNotFound    = errors.New("房间不存在")
	ErrRoomFull        = errors.New("无法加入房间（房间已满或已在房间中）")
	ErrStartRejected   = errors.New("无法开始游戏（人数不足或你不是房主）")
	ErrNotInRoom       = errors.New("你不在该房间中")
)

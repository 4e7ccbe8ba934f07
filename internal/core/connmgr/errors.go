package connmgr

import "errors"

// 连接管理器错误定义
var (
	// ErrManagerClosed 管理器已关闭
	ErrManagerClosed = errors.New("connmgr: manager closed")

	// ErrNotNeighbor 目标节点不是邻居
	ErrNotNeighbor = errors.New("connmgr: not a neighbor")

	// ErrLinkDenied 链路被门控拒绝
	ErrLinkDenied = errors.New("connmgr: link denied")

	// ErrTooManyNeighbors 邻居数已达上限
	ErrTooManyNeighbors = errors.New("connmgr: too many neighbors")

	// ErrDuplicateLink 已存在到该节点的链路
	ErrDuplicateLink = errors.New("connmgr: duplicate link")

	// ErrHandshake 握手失败
	ErrHandshake = errors.New("connmgr: handshake failed")

	// ErrFrameTooLarge 帧超过最大消息长度
	ErrFrameTooLarge = errors.New("connmgr: frame too large")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("connmgr: invalid config")
)

package routing

import "errors"

var (
	// ErrUnknownOpaqueID 不透明标识不存在或已过期
	ErrUnknownOpaqueID = errors.New("routing: unknown opaque id")

	// ErrCompressorClosed 压缩表未启动或已关闭
	ErrCompressorClosed = errors.New("routing: path compressor closed")

	// ErrEmptyDestination 目的地列表为空
	ErrEmptyDestination = errors.New("routing: empty destination list")

	// ErrNoRoute 没有通往目的地的下一跳
	ErrNoRoute = errors.New("routing: no route to destination")

	// ErrRequestTimeout 请求超时未收到应答
	ErrRequestTimeout = errors.New("routing: request timed out")

	// ErrRouterClosed 路由器已关闭
	ErrRouterClosed = errors.New("routing: router closed")

	// ErrMessageDropped 消息被丢弃
	ErrMessageDropped = errors.New("routing: message dropped")
)

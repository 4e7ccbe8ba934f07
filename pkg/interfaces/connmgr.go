package interfaces

import (
	"context"

	"github.com/dep2p/go-reload/pkg/message"
)

// ConnectionManager 邻居连接管理
type ConnectionManager interface {
	// IsNeighbor 是否存在到该节点的直接连接
	IsNeighbor(id message.NodeID) bool

	// Send 向邻居发送一帧已编码的消息
	Send(ctx context.Context, to message.NodeID, frame []byte) error

	// Neighbors 返回当前邻居
	Neighbors() []message.NodeID
}

package eventbus

import "github.com/dep2p/go-reload/pkg/message"

// EvtNeighborConnected 邻居链路完成握手并加入邻居表
type EvtNeighborConnected struct {
	ID       message.NodeID
	Addr     string
	Outbound bool
}

// EvtNeighborDisconnected 邻居链路被移除
//
// Reason 取值：closed（对端关闭或读取失败）、disconnect（本地断开）、
// leave（对端离开）、shutdown（本地关闭）。
type EvtNeighborDisconnected struct {
	ID     message.NodeID
	Reason string
}

// EvtNeighborCount 当前邻居数，由有状态发射器发出
type EvtNeighborCount struct {
	Count int
}

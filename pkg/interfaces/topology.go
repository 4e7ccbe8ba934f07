package interfaces

import "github.com/dep2p/go-reload/pkg/message"

// TopologyPlugin 拓扑插件
//
// 决定 id 空间中的责任归属与下一跳。实现必须可并发调用。
type TopologyPlugin interface {
	// IsLocalPeerResponsible 本节点是否负责该标识
	IsLocalPeerResponsible(id message.RoutableID) bool

	// ResourceID 由资源名计算资源标识
	ResourceID(name []byte) message.ResourceID

	// ResourceIDLength 资源标识字节长度
	ResourceIDLength() int

	// NextHop 返回朝向 id 的下一跳邻居
	NextHop(id message.RoutableID) (message.NodeID, bool)

	// ReplicaNodes 返回应保存 id 副本的节点
	ReplicaNodes(id message.ResourceID) []message.NodeID
}

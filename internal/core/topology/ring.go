package topology

import (
	"math/big"
	"sort"

	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/lib/crypto"
	"github.com/dep2p/go-reload/pkg/lib/log"
	"github.com/dep2p/go-reload/pkg/message"
)

var logger = log.Logger("core/topology")

// Neighbors 提供当前邻居
type Neighbors interface {
	Neighbors() []message.NodeID
}

// Ring 环形参考拓扑
type Ring struct {
	local     message.NodeID
	neighbors Neighbors
	hash      crypto.HashFunc
	ridLen    int
	replicas  int

	modulus *big.Int
}

var _ interfaces.TopologyPlugin = (*Ring)(nil)

// NewRing 创建环形拓扑
//
// hash 为 overlay 哈希，资源标识取其前 ridLen 字节；replicas 为副本邻居数。
func NewRing(local message.NodeID, neighbors Neighbors, hash crypto.HashFunc, ridLen, replicas int) *Ring {
	return &Ring{
		local:     local,
		neighbors: neighbors,
		hash:      crypto.Truncated(hash, ridLen),
		ridLen:    ridLen,
		replicas:  replicas,
		modulus:   new(big.Int).Lsh(big.NewInt(1), uint(8*len(local))),
	}
}

// position 把标识映射到环上，宽度为节点标识长度，不足右侧补零，超出截断
func (r *Ring) position(id []byte) *big.Int {
	w := len(r.local)
	buf := make([]byte, w)
	copy(buf, id)
	return new(big.Int).SetBytes(buf)
}

// distance 从 from 顺时针到 to 的距离
func (r *Ring) distance(from, to *big.Int) *big.Int {
	d := new(big.Int).Sub(to, from)
	return d.Mod(d, r.modulus)
}

// closest 返回顺时针最接近 target 的邻居及其距离
func (r *Ring) closest(target *big.Int) (message.NodeID, *big.Int) {
	var best message.NodeID
	var bestDist *big.Int
	for _, n := range r.neighbors.Neighbors() {
		d := r.distance(target, r.position(n))
		if bestDist == nil || d.Cmp(bestDist) < 0 {
			best, bestDist = n, d
		}
	}
	return best, bestDist
}

// IsLocalPeerResponsible 实现 interfaces.TopologyPlugin
func (r *Ring) IsLocalPeerResponsible(id message.RoutableID) bool {
	switch v := id.(type) {
	case message.NodeID:
		return v.Equal(r.local)
	case message.ResourceID:
		target := r.position(v)
		_, d := r.closest(target)
		return d == nil || r.distance(target, r.position(r.local)).Cmp(d) <= 0
	default:
		return false
	}
}

// ResourceID 实现 interfaces.TopologyPlugin
func (r *Ring) ResourceID(name []byte) message.ResourceID {
	return message.ResourceID(r.hash(name))
}

// ResourceIDLength 实现 interfaces.TopologyPlugin
func (r *Ring) ResourceIDLength() int {
	return r.ridLen
}

// NextHop 实现 interfaces.TopologyPlugin
//
// 目标是邻居时直接发往该邻居；否则发往顺时针最接近目标的邻居，
// 本节点更接近时没有下一跳。
func (r *Ring) NextHop(id message.RoutableID) (message.NodeID, bool) {
	var target *big.Int
	switch v := id.(type) {
	case message.NodeID:
		for _, n := range r.neighbors.Neighbors() {
			if n.Equal(v) {
				return n, true
			}
		}
		target = r.position(v)
	case message.ResourceID:
		target = r.position(v)
	default:
		return nil, false
	}

	best, d := r.closest(target)
	if best == nil || r.distance(target, r.position(r.local)).Cmp(d) <= 0 {
		logger.Debug("没有更接近目标的邻居", "target", id)
		return nil, false
	}
	return best, true
}

// ReplicaNodes 实现 interfaces.TopologyPlugin：本节点顺时针之后的 replicas 个邻居
func (r *Ring) ReplicaNodes(message.ResourceID) []message.NodeID {
	if r.replicas <= 0 {
		return nil
	}
	self := r.position(r.local)
	ns := r.neighbors.Neighbors()
	dist := make(map[string]*big.Int, len(ns))
	for _, n := range ns {
		dist[string(n)] = r.distance(self, r.position(n))
	}
	sort.Slice(ns, func(i, j int) bool { return dist[string(ns[i])].Cmp(dist[string(ns[j])]) < 0 })
	if len(ns) > r.replicas {
		ns = ns[:r.replicas]
	}
	return ns
}

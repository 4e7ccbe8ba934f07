package connmgr

import (
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-reload/pkg/message"
)

// Gater 链路门控器
type Gater struct {
	mu      sync.RWMutex
	blocked map[string]struct{}

	intercepted int64
}

// NewGater 创建门控器
func NewGater() *Gater {
	return &Gater{blocked: make(map[string]struct{})}
}

// Block 阻止节点
func (g *Gater) Block(id message.NodeID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blocked[string(id)] = struct{}{}
}

// Unblock 解除阻止
func (g *Gater) Unblock(id message.NodeID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.blocked, string(id))
}

// IsBlocked 节点是否被阻止
func (g *Gater) IsBlocked(id message.NodeID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.blocked[string(id)]
	return ok
}

// Allow 握手完成后检查是否接受链路
func (g *Gater) Allow(id message.NodeID) bool {
	if g.IsBlocked(id) {
		atomic.AddInt64(&g.intercepted, 1)
		return false
	}
	return true
}

// Intercepted 被拒绝的链路数
func (g *Gater) Intercepted() int64 {
	return atomic.LoadInt64(&g.intercepted)
}

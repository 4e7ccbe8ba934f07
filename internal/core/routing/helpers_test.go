package routing

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-reload/pkg/message"
)

func nodeID(b byte) message.NodeID { return message.NodeID{b, b, b, b} }

func testConfig(local message.NodeID) Config {
	return Config{
		LocalID:          local,
		InitialTTL:       10,
		OverlayHash:      0x1234,
		Version:          message.ProtocolVersion,
		MaxMessageSize:   64 << 10,
		OpaqueIDCapacity: 16,
		OpaqueIDExpiry:   time.Minute,
		RequestTimeout:   5 * time.Second,
		ErrorReplyRate:   1000,
		ErrorReplyBurst:  1000,
	}
}

// recorder 记录投递到上层的消息
type recorder struct {
	mu   sync.Mutex
	msgs []*message.Message
}

func (r *recorder) Deliver(_ context.Context, m *message.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *recorder) all() []*message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*message.Message(nil), r.msgs...)
}

// fakeTopology 按资源标识静态分配责任与下一跳
type fakeTopology struct {
	owned  map[string]bool
	routes map[string]message.NodeID
	dflt   message.NodeID
}

func newFakeTopology() *fakeTopology {
	return &fakeTopology{owned: map[string]bool{}, routes: map[string]message.NodeID{}}
}

func (t *fakeTopology) IsLocalPeerResponsible(id message.RoutableID) bool {
	r, ok := id.(message.ResourceID)
	return ok && t.owned[string(r)]
}

func (t *fakeTopology) ResourceID(name []byte) message.ResourceID { return message.ResourceID(name) }

func (t *fakeTopology) ResourceIDLength() int { return 4 }

func (t *fakeTopology) NextHop(id message.RoutableID) (message.NodeID, bool) {
	if hop, ok := t.routes[string(id.Bytes())]; ok {
		return hop, true
	}
	return t.dflt, t.dflt != nil
}

func (t *fakeTopology) ReplicaNodes(message.ResourceID) []message.NodeID { return nil }

// testNetwork 内存中的节点网络，帧同步投递给对端转发引擎
type testNetwork struct {
	mu    sync.Mutex
	nodes map[string]*testNode
}

type testNode struct {
	id       message.NodeID
	net      *testNetwork
	topo     *fakeTopology
	fwd      *Forwarder
	router   *Router
	clk      clock.Clock
	links    map[string]bool
	blackout bool
}

func newTestNetwork() *testNetwork {
	return &testNetwork{nodes: map[string]*testNode{}}
}

func (n *testNetwork) add(id message.NodeID, cfg Config, opts ...func(*testNode)) *testNode {
	node := &testNode{id: id, net: n, topo: newFakeTopology(), links: map[string]bool{}}
	for _, o := range opts {
		o(node)
	}
	comp := NewPathCompressor(cfg.OpaqueIDCapacity, cfg.OpaqueIDExpiry, nil)
	comp.Start()
	node.fwd = NewForwarder(cfg, node.topo, node, comp, nil)
	node.router = NewRouter(node.fwd, cfg.RequestTimeout, node.clk, nil)
	n.mu.Lock()
	n.nodes[string(id)] = node
	n.mu.Unlock()
	return node
}

func withClock(clk clock.Clock) func(*testNode) {
	return func(t *testNode) { t.clk = clk }
}

func (n *testNetwork) link(a, b *testNode) {
	a.links[string(b.id)] = true
	b.links[string(a.id)] = true
}

func (n *testNetwork) node(id message.NodeID) *testNode {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nodes[string(id)]
}

func (t *testNode) IsNeighbor(id message.NodeID) bool { return t.links[string(id)] }

func (t *testNode) Neighbors() []message.NodeID {
	var out []message.NodeID
	for k := range t.links {
		out = append(out, message.NodeID(k))
	}
	return out
}

func (t *testNode) Send(ctx context.Context, to message.NodeID, frame []byte) error {
	peer := t.net.node(to)
	if peer == nil || !t.links[string(to)] {
		return ErrNoRoute
	}
	if peer.blackout {
		return nil
	}
	peer.fwd.HandleInbound(ctx, t.id, frame)
	return nil
}

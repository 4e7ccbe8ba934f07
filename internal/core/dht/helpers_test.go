package dht

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-reload/config"
	"github.com/dep2p/go-reload/internal/core/identity"
	"github.com/dep2p/go-reload/internal/core/routing"
	"github.com/dep2p/go-reload/internal/core/storage/engine"
	"github.com/dep2p/go-reload/internal/core/storage/engine/badger"
	"github.com/dep2p/go-reload/internal/core/storage/kv"
	"github.com/dep2p/go-reload/pkg/codec"
	"github.com/dep2p/go-reload/pkg/lib/crypto"
	"github.com/dep2p/go-reload/pkg/message"
)

const testRIDLen = 16

var testCodec = &codec.Context{NodeIDLength: 16}

func testPolicies() *PolicySet {
	return NewPolicySet(crypto.SHA1, testRIDLen)
}

func testKinds(t *testing.T, extra ...config.KindConfig) *KindTable {
	t.Helper()
	cfg := config.DefaultKindsConfig()
	cfg.Kinds = append(cfg.Kinds, extra...)
	kinds, err := KindsFromConfig(cfg, testPolicies())
	require.NoError(t, err)
	return kinds
}

func newTestEngine(t *testing.T) engine.Engine {
	t.Helper()
	cfg := engine.DefaultConfig(t.TempDir())
	cfg.GCInterval = 0
	e, err := badger.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func newTestKeystore(t *testing.T, username string) *identity.Keystore {
	t.Helper()
	priv, _, err := crypto.GenerateKeyPair(crypto.KeyTypeEd25519)
	require.NoError(t, err)
	nodeID, err := identity.DeriveNodeID(priv.GetPublic(), 16)
	require.NoError(t, err)
	id, err := identity.New(priv, nodeID, "test.overlay", username, time.Hour)
	require.NoError(t, err)
	ks, err := identity.NewKeystore(id, message.HashSHA1, nil)
	require.NoError(t, err)
	return ks
}

// stubTopology 服务端负责全部资源，客户端把一切发往服务端
type stubTopology struct {
	ownsAll bool
	next    message.NodeID
}

func (s *stubTopology) IsLocalPeerResponsible(id message.RoutableID) bool {
	_, ok := id.(message.ResourceID)
	return ok && s.ownsAll
}

func (s *stubTopology) ResourceID(name []byte) message.ResourceID {
	return message.ResourceID(crypto.Truncated(crypto.SHA1, testRIDLen)(name))
}

func (s *stubTopology) ResourceIDLength() int { return testRIDLen }

func (s *stubTopology) NextHop(message.RoutableID) (message.NodeID, bool) {
	return s.next, s.next != nil
}

func (s *stubTopology) ReplicaNodes(message.ResourceID) []message.NodeID { return nil }

// testPeer 一个完整的存储节点：身份、转发、路由、控制器与客户端
type testPeer struct {
	id     message.NodeID
	ks     *identity.Keystore
	topo   *stubTopology
	fwd    *routing.Forwarder
	router *routing.Router
	kinds  *KindTable
	data   *DataStore
	ctrl   *Controller
	svc    *Service
	peer   *testPeer
}

func (p *testPeer) IsNeighbor(id message.NodeID) bool {
	return p.peer != nil && p.peer.id.Equal(id)
}

func (p *testPeer) Neighbors() []message.NodeID {
	if p.peer == nil {
		return nil
	}
	return []message.NodeID{p.peer.id}
}

func (p *testPeer) Send(ctx context.Context, to message.NodeID, frame []byte) error {
	if !p.IsNeighbor(to) {
		return routing.ErrNoRoute
	}
	p.peer.fwd.HandleInbound(ctx, p.id, frame)
	return nil
}

func newTestPeer(t *testing.T, username string, kinds *KindTable) *testPeer {
	t.Helper()
	ks := newTestKeystore(t, username)
	p := &testPeer{id: ks.LocalNodeID(), ks: ks, topo: &stubTopology{}, kinds: kinds}

	rc := routing.Config{
		LocalID:          p.id,
		InitialTTL:       10,
		OverlayHash:      crypto.OverlayNameHash("test.overlay"),
		Version:          message.ProtocolVersion,
		MaxMessageSize:   64 << 10,
		OpaqueIDCapacity: 16,
		OpaqueIDExpiry:   time.Minute,
		RequestTimeout:   5 * time.Second,
		ErrorReplyRate:   1000,
		ErrorReplyBurst:  1000,
	}
	comp := routing.NewPathCompressor(rc.OpaqueIDCapacity, rc.OpaqueIDExpiry, nil)
	comp.Start()
	p.fwd = routing.NewForwarder(rc, p.topo, p, comp, nil)
	p.router = routing.NewRouter(p.fwd, rc.RequestTimeout, nil, nil)
	p.router.SetSecurityBlock(routing.LocalSecurityBlock(ks))

	p.data = NewDataStore(kv.New(newTestEngine(t), kvPrefix), testCodec, nil, 0)
	p.ctrl = NewController(ControllerConfig{
		Kinds:    kinds,
		Policies: testPolicies(),
		Data:     p.data,
		Keystore: ks,
		Topology: p.topo,
		Codec:    testCodec,
		HashAlg:  message.HashSHA256,
	})
	p.ctrl.Register(p.router)
	p.svc = NewService(p.router, ks, kinds, testCodec, nil)

	t.Cleanup(func() {
		p.svc.Close()
		_ = p.router.Close()
		comp.Close()
	})
	return p
}

// newClientServer 客户端 A 与负责全部资源的服务端 B
func newClientServer(t *testing.T, username string) (*testPeer, *testPeer) {
	t.Helper()
	a := newTestPeer(t, username, testKinds(t))
	b := newTestPeer(t, "", testKinds(t))
	a.peer, b.peer = b, a
	a.topo.next = b.id
	b.topo.ownsAll = true
	return a, b
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// nodeResource 客户端按 node-match 可写入的资源
func nodeResource(p *testPeer) message.ResourceID {
	return testPolicies().NodeMatch.ResourceIDFor(p.id)
}

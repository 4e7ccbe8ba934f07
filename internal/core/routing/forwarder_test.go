package routing

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dep2p/go-reload/pkg/interfaces/mocks"
	"github.com/dep2p/go-reload/pkg/message"
)

type forwarderFixture struct {
	fwd   *Forwarder
	topo  *mocks.MockTopologyPlugin
	conns *mocks.MockConnectionManager
	up    *recorder
	comp  *PathCompressor
	cfg   Config
}

var (
	local  = nodeID(0x10)
	peerA  = nodeID(0x0a)
	peerB  = nodeID(0x0b)
	peerC  = nodeID(0x0c)
	stray  = nodeID(0x77)
	resRID = message.ResourceID{0xaa, 0xbb}
)

func newForwarderFixture(t *testing.T, mutate ...func(*Config)) *forwarderFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	cfg := testConfig(local)
	for _, m := range mutate {
		m(&cfg)
	}

	topo := mocks.NewMockTopologyPlugin(ctrl)
	conns := mocks.NewMockConnectionManager(ctrl)
	conns.EXPECT().IsNeighbor(gomock.Any()).DoAndReturn(func(id message.NodeID) bool {
		return id.Equal(peerA) || id.Equal(peerB) || id.Equal(peerC)
	}).AnyTimes()

	comp := NewPathCompressor(cfg.OpaqueIDCapacity, cfg.OpaqueIDExpiry, nil)
	comp.Start()
	t.Cleanup(comp.Close)

	fwd := NewForwarder(cfg, topo, conns, comp, nil)
	up := &recorder{}
	fwd.SetUpstream(up)
	return &forwarderFixture{fwd: fwd, topo: topo, conns: conns, up: up, comp: comp, cfg: cfg}
}

func (fx *forwarderFixture) frame(t *testing.T, h *message.Header, c message.Content) []byte {
	t.Helper()
	data, err := message.NewBuilder(h, c).Build().Marshal(fx.fwd.CodecContext())
	require.NoError(t, err)
	return data
}

func (fx *forwarderFixture) header() *message.HeaderBuilder {
	return fx.fwd.NewHeaderBuilder()
}

// captureSends 记录发往邻居的帧
func (fx *forwarderFixture) captureSends(t *testing.T, to message.NodeID, times int) *[]*message.Message {
	t.Helper()
	var out []*message.Message
	fx.conns.EXPECT().Send(gomock.Any(), to, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ message.NodeID, frame []byte) error {
			m, err := message.DecodeMessage(fx.fwd.CodecContext(), frame)
			require.NoError(t, err)
			out = append(out, m)
			return nil
		}).Times(times)
	return &out
}

// TestForwarder_OpaqueToResource 测试不透明首项展开为本地负责的资源后投递
func TestForwarder_OpaqueToResource(t *testing.T) {
	fx := newForwarderFixture(t)
	fx.topo.EXPECT().IsLocalPeerResponsible(gomock.Any()).DoAndReturn(func(id message.RoutableID) bool {
		return message.EqualIDs(id, resRID)
	}).AnyTimes()

	token, err := fx.comp.Compress(message.DestinationList{resRID})
	require.NoError(t, err)

	h := fx.header().SetTTL(5).SetDestinationList(message.DestinationList{token}).Build()
	v := fx.fwd.HandleInbound(context.Background(), peerA, fx.frame(t, h, &message.PingRequest{}))
	assert.Equal(t, VerdictDelivered, v)

	got := fx.up.all()
	require.Len(t, got, 1)
	assert.Equal(t, h.TransactionID(), got[0].TransactionID())
	assert.True(t, peerA.Equal(got[0].PreviousHop()))
	assert.IsType(t, &message.PingRequest{}, got[0].Content())
}

// TestForwarder_UnknownOpaqueDropped 测试未知不透明标识静默丢弃
func TestForwarder_UnknownOpaqueDropped(t *testing.T) {
	fx := newForwarderFixture(t)

	h := fx.header().SetDestinationList(message.DestinationList{message.OpaqueID{9, 9, 9, 9, 9, 9, 9, 9}}).Build()
	v := fx.fwd.HandleInbound(context.Background(), peerA, fx.frame(t, h, &message.PingRequest{}))

	assert.Equal(t, VerdictDropped, v)
	assert.Empty(t, fx.up.all())
}

// TestForwarder_TTLExceeded 测试 TTL 为 0 或超过初始值时只回复一次 TTL_EXCEEDED
//
// 目的地为资源或直接邻居时都在转发前检查。
func TestForwarder_TTLExceeded(t *testing.T) {
	dests := map[string]message.DestinationList{
		"Resource": {resRID},
		"Neighbor": {peerC},
	}
	for name, dest := range dests {
		for _, ttl := range []uint8{0, 11} {
			t.Run(fmt.Sprintf("%s/%d", name, ttl), func(t *testing.T) {
				fx := newForwarderFixture(t)
				fx.topo.EXPECT().IsLocalPeerResponsible(gomock.Any()).Return(false).AnyTimes()
				sent := fx.captureSends(t, peerB, 1)

				h := fx.header().SetTTL(ttl).
					SetViaList(message.DestinationList{peerA}).
					SetDestinationList(dest).
					Build()
				v := fx.fwd.HandleInbound(context.Background(), peerB, fx.frame(t, h, &message.PingRequest{}))
				assert.Equal(t, VerdictRejected, v)

				require.Len(t, *sent, 1)
				reply := (*sent)[0]
				assert.Equal(t, h.TransactionID(), reply.TransactionID())
				assert.True(t, reply.Header().DestinationList().Equal(message.DestinationList{peerB, peerA}))
				e, ok := reply.Content().(*message.Error)
				require.True(t, ok)
				assert.Equal(t, message.ErrorTTLExceeded, e.Code)
			})
		}
	}
}

// TestForwarder_ErrorReplyPerPeer 测试错误应答按上一跳独立限流
func TestForwarder_ErrorReplyPerPeer(t *testing.T) {
	fx := newForwarderFixture(t, func(c *Config) {
		c.ErrorReplyRate = 0.001
		c.ErrorReplyBurst = 3
	})
	fx.topo.EXPECT().IsLocalPeerResponsible(gomock.Any()).Return(false).AnyTimes()
	toA := fx.captureSends(t, peerA, 3)
	toB := fx.captureSends(t, peerB, 1)

	expired := func() []byte {
		h := fx.header().SetTTL(0).SetDestinationList(message.DestinationList{resRID}).Build()
		return fx.frame(t, h, &message.PingRequest{})
	}

	// peerA 用完自己的额度，之后的应答被限流
	for i := 0; i < 5; i++ {
		assert.Equal(t, VerdictRejected, fx.fwd.HandleInbound(context.Background(), peerA, expired()))
	}
	assert.Len(t, *toA, 3)

	// peerB 不受 peerA 影响
	assert.Equal(t, VerdictRejected, fx.fwd.HandleInbound(context.Background(), peerB, expired()))
	require.Len(t, *toB, 1)
	e, ok := (*toB)[0].Content().(*message.Error)
	require.True(t, ok)
	assert.Equal(t, message.ErrorTTLExceeded, e.Code)
}

// TestForwarder_NoErrorForError 测试不对错误消息回复错误
func TestForwarder_NoErrorForError(t *testing.T) {
	fx := newForwarderFixture(t)
	fx.topo.EXPECT().IsLocalPeerResponsible(gomock.Any()).Return(false).AnyTimes()

	h := fx.header().SetTTL(0).SetDestinationList(message.DestinationList{resRID}).Build()
	e := message.NewError(message.ErrorNotFound, "gone")
	v := fx.fwd.HandleInbound(context.Background(), peerB, fx.frame(t, h, e))
	assert.Equal(t, VerdictRejected, v)
}

// TestForwarder_ForwardResource 测试向拓扑给出的下一跳转发，TTL 减一并记录经过节点
func TestForwarder_ForwardResource(t *testing.T) {
	fx := newForwarderFixture(t)
	fx.topo.EXPECT().IsLocalPeerResponsible(gomock.Any()).Return(false).AnyTimes()
	fx.topo.EXPECT().NextHop(gomock.Any()).Return(peerC, true)

	var frames [][]byte
	fx.conns.EXPECT().Send(gomock.Any(), peerC, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ message.NodeID, frame []byte) error {
			frames = append(frames, frame)
			return nil
		})

	h := fx.header().SetTTL(5).SetDestinationList(message.DestinationList{resRID}).Build()
	in := fx.frame(t, h, &message.PingRequest{Padding: []byte("pad")})
	v := fx.fwd.HandleInbound(context.Background(), peerA, in)
	require.Equal(t, VerdictForwarded, v)
	require.Len(t, frames, 1)

	out, err := message.DecodeHeaded(fx.fwd.CodecContext(), frames[0])
	require.NoError(t, err)
	assert.Equal(t, uint8(4), out.Header.TTL())
	assert.True(t, out.Header.ViaList().Equal(message.DestinationList{peerA}))
	assert.Equal(t, h.TransactionID(), out.Header.TransactionID())

	inHM, err := message.DecodeHeaded(fx.fwd.CodecContext(), in)
	require.NoError(t, err)
	assert.Equal(t, inHM.Payload, out.Payload, "载荷原样透传")
}

// TestForwarder_PopLocal 测试弹出本节点后转发给列表中的邻居
func TestForwarder_PopLocal(t *testing.T) {
	fx := newForwarderFixture(t)
	fx.topo.EXPECT().IsLocalPeerResponsible(gomock.Any()).Return(false).AnyTimes()
	sent := fx.captureSends(t, peerC, 1)

	h := fx.header().SetTTL(5).SetDestinationList(message.DestinationList{local, peerC, resRID}).Build()
	v := fx.fwd.HandleInbound(context.Background(), peerA, fx.frame(t, h, &message.PingRequest{}))
	require.Equal(t, VerdictForwarded, v)
	assert.True(t, (*sent)[0].Header().DestinationList().Equal(message.DestinationList{peerC, resRID}))
}

// TestForwarder_InvalidDestinations 测试非法目的地静默丢弃
func TestForwarder_InvalidDestinations(t *testing.T) {
	tests := []struct {
		name string
		dest message.DestinationList
	}{
		{"NotNeighbor", message.DestinationList{stray}},
		{"ResourceNotLast", message.DestinationList{resRID, peerC}},
		{"Empty", message.DestinationList{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newForwarderFixture(t)
			h := fx.header().SetDestinationList(tt.dest).Build()
			v := fx.fwd.HandleInbound(context.Background(), peerA, fx.frame(t, h, &message.PingRequest{}))
			assert.Equal(t, VerdictDropped, v)
			assert.Empty(t, fx.up.all())
		})
	}
}

// TestForwarder_Wildcard 测试通配 NodeID 在本地处理
func TestForwarder_Wildcard(t *testing.T) {
	fx := newForwarderFixture(t)
	h := fx.header().SetDestinationList(message.DestinationList{message.WildcardNodeID(4)}).Build()
	v := fx.fwd.HandleInbound(context.Background(), peerA, fx.frame(t, h, &message.PingRequest{}))
	assert.Equal(t, VerdictDelivered, v)
}

// TestForwarder_MalformedFrame 测试无法解码的帧回复 INVALID_MESSAGE
func TestForwarder_MalformedFrame(t *testing.T) {
	fx := newForwarderFixture(t)
	sent := fx.captureSends(t, peerA, 1)

	v := fx.fwd.HandleInbound(context.Background(), peerA, []byte{0, 0, 0, 0, 0, 0, 0, 7, 1, 2})
	assert.Equal(t, VerdictRejected, v)
	require.Len(t, *sent, 1)
	assert.Equal(t, uint64(7), (*sent)[0].TransactionID())
	e := (*sent)[0].Content().(*message.Error)
	assert.Equal(t, message.ErrorInvalidMessage, e.Code)
}

// TestForwarder_MalformedPayload 测试载荷解码失败沿返回路径回复
func TestForwarder_MalformedPayload(t *testing.T) {
	fx := newForwarderFixture(t)
	fx.topo.EXPECT().IsLocalPeerResponsible(gomock.Any()).Return(false).AnyTimes()
	sent := fx.captureSends(t, peerA, 1)

	h := fx.header().SetDestinationList(message.DestinationList{local}).Build()
	hm := &message.HeadedMessage{Header: h, Payload: []byte{0x00, 0x17, 0xff}}
	data, err := hm.Marshal(fx.fwd.CodecContext())
	require.NoError(t, err)

	v := fx.fwd.HandleInbound(context.Background(), peerA, data)
	assert.Equal(t, VerdictRejected, v)
	assert.Equal(t, message.ErrorInvalidMessage, (*sent)[0].Content().(*message.Error).Code)
}

// TestForwarder_OverlayMismatch 测试 overlay 哈希不匹配
func TestForwarder_OverlayMismatch(t *testing.T) {
	fx := newForwarderFixture(t)
	fx.topo.EXPECT().IsLocalPeerResponsible(gomock.Any()).Return(false).AnyTimes()
	sent := fx.captureSends(t, peerA, 1)

	h := fx.header().SetOverlayHash(0x9999).SetDestinationList(message.DestinationList{local}).Build()
	v := fx.fwd.HandleInbound(context.Background(), peerA, fx.frame(t, h, &message.PingRequest{}))
	assert.Equal(t, VerdictRejected, v)
	assert.Equal(t, message.ErrorIncompatibleWithOverlay, (*sent)[0].Content().(*message.Error).Code)
}

// TestForwarder_CriticalOption 测试不支持的关键转发选项
func TestForwarder_CriticalOption(t *testing.T) {
	fx := newForwarderFixture(t)
	fx.topo.EXPECT().IsLocalPeerResponsible(gomock.Any()).Return(false).AnyTimes()
	sent := fx.captureSends(t, peerA, 1)

	h := fx.header().SetTTL(5).
		SetDestinationList(message.DestinationList{resRID}).
		SetForwardingOptions([]message.ForwardingOption{{Type: 9, Flags: message.FlagForwardCritical}}).
		Build()
	v := fx.fwd.HandleInbound(context.Background(), peerA, fx.frame(t, h, &message.PingRequest{}))
	assert.Equal(t, VerdictRejected, v)
	assert.Equal(t, message.ErrorUnsupportedForwardingOption, (*sent)[0].Content().(*message.Error).Code)
}

// TestForwarder_ViaCompression 测试经过列表超过阈值时压缩
func TestForwarder_ViaCompression(t *testing.T) {
	fx := newForwarderFixture(t, func(c *Config) { c.ViaCompressThreshold = 1 })
	fx.topo.EXPECT().IsLocalPeerResponsible(gomock.Any()).Return(false).AnyTimes()
	sent := fx.captureSends(t, peerC, 1)

	h := fx.header().SetTTL(5).
		SetViaList(message.DestinationList{stray}).
		SetDestinationList(message.DestinationList{peerC}).
		Build()
	v := fx.fwd.HandleInbound(context.Background(), peerA, fx.frame(t, h, &message.PingRequest{}))
	require.Equal(t, VerdictForwarded, v)

	via := (*sent)[0].Header().ViaList()
	require.Len(t, via, 1)
	token, ok := via[0].(message.OpaqueID)
	require.True(t, ok)

	path, err := fx.comp.Decompress(token)
	require.NoError(t, err)
	assert.True(t, path.Equal(message.DestinationList{peerA, stray}))
}

// TestForwarder_Send 测试本地发送不递减 TTL
func TestForwarder_Send(t *testing.T) {
	fx := newForwarderFixture(t)
	fx.topo.EXPECT().IsLocalPeerResponsible(gomock.Any()).Return(false).AnyTimes()
	sent := fx.captureSends(t, peerB, 1)

	h := fx.header().SetDestinationList(message.DestinationList{peerB}).Build()
	require.NoError(t, fx.fwd.Send(context.Background(), message.NewBuilder(h, &message.PingRequest{}).Build()))
	assert.Equal(t, fx.cfg.InitialTTL, (*sent)[0].Header().TTL())
	assert.Empty(t, (*sent)[0].Header().ViaList())

	h = fx.header().SetDestinationList(message.DestinationList{stray}).Build()
	err := fx.fwd.Send(context.Background(), message.NewBuilder(h, &message.PingRequest{}).Build())
	assert.Error(t, err)
}

// TestVerdict_String 测试结果名称
func TestVerdict_String(t *testing.T) {
	assert.Equal(t, "delivered", VerdictDelivered.String())
	assert.Equal(t, "rejected", VerdictRejected.String())
	assert.Equal(t, "verdict(0)", Verdict(0).String())
}

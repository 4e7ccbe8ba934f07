package routing

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-reload/internal/core/metrics"
	"github.com/dep2p/go-reload/pkg/codec"
	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/lib/log"
	"github.com/dep2p/go-reload/pkg/message"
)

var fwdLogger = log.Logger("routing/forward")

// MaxResolveSteps 解析目的地列表首项的最大步数
const MaxResolveSteps = 32

const (
	// limiterCapacity 错误应答限流器按上一跳保留的最大数目
	limiterCapacity = 1024
	// limiterIdle 上一跳空闲多久后丢弃其限流器
	limiterIdle = 5 * time.Minute
)

// Verdict 入站消息的处理结果
type Verdict int

const (
	// VerdictDelivered 交给本地上层
	VerdictDelivered Verdict = iota + 1
	// VerdictForwarded 转发给下一跳
	VerdictForwarded
	// VerdictDropped 静默丢弃
	VerdictDropped
	// VerdictRejected 丢弃并回复错误
	VerdictRejected
)

func (v Verdict) String() string {
	switch v {
	case VerdictDelivered:
		return "delivered"
	case VerdictForwarded:
		return "forwarded"
	case VerdictDropped:
		return "dropped"
	case VerdictRejected:
		return "rejected"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Upstream 接收投递到本节点的消息
type Upstream interface {
	Deliver(ctx context.Context, msg *message.Message)
}

// Forwarder 逐跳转发引擎
//
// 每条消息独立处理，可并发调用。
type Forwarder struct {
	cfg        Config
	codec      *codec.Context
	topology   interfaces.TopologyPlugin
	conns      interfaces.ConnectionManager
	compressor *PathCompressor
	metrics    *metrics.Metrics

	limiterMu sync.Mutex
	limiters  *expirable.LRU[string, *rate.Limiter]

	upstream atomic.Pointer[upstreamHolder]
}

type upstreamHolder struct{ Upstream }

// NewForwarder 创建转发引擎
func NewForwarder(cfg Config, topology interfaces.TopologyPlugin, conns interfaces.ConnectionManager,
	compressor *PathCompressor, m *metrics.Metrics) *Forwarder {
	return &Forwarder{
		cfg:        cfg,
		codec:      &codec.Context{NodeIDLength: len(cfg.LocalID)},
		topology:   topology,
		conns:      conns,
		compressor: compressor,
		metrics:    m,
		limiters:   expirable.NewLRU[string, *rate.Limiter](limiterCapacity, nil, limiterIdle),
	}
}

// allowReply 按上一跳限流错误应答，本地发起的消息共用一个限流器
func (f *Forwarder) allowReply(from message.NodeID) bool {
	key := string(from)
	f.limiterMu.Lock()
	l, ok := f.limiters.Get(key)
	if !ok {
		l = rate.NewLimiter(rate.Limit(f.cfg.ErrorReplyRate), f.cfg.ErrorReplyBurst)
		f.limiters.Add(key, l)
	}
	f.limiterMu.Unlock()
	return l.Allow()
}

// SetUpstream 设置本地投递目标
func (f *Forwarder) SetUpstream(u Upstream) {
	f.upstream.Store(&upstreamHolder{u})
}

// LocalID 本节点标识
func (f *Forwarder) LocalID() message.NodeID {
	return f.cfg.LocalID
}

// CodecContext 编解码上下文
func (f *Forwarder) CodecContext() *codec.Context {
	return f.codec
}

// NewHeaderBuilder 返回填好 overlay 参数的转发头构建器
func (f *Forwarder) NewHeaderBuilder() *message.HeaderBuilder {
	return message.NewHeaderBuilder().
		SetTTL(f.cfg.InitialTTL).
		SetOverlayHash(f.cfg.OverlayHash).
		SetVersion(f.cfg.Version).
		SetConfigurationSequence(f.cfg.ConfigurationSequence).
		SetMaxResponseLength(uint32(f.cfg.MaxMessageSize))
}

// HandleInbound 处理从邻居 from 收到的一帧
//
// 解码失败时向 from 回复 INVALID_MESSAGE。
func (f *Forwarder) HandleInbound(ctx context.Context, from message.NodeID, data []byte) Verdict {
	v := f.handleInbound(ctx, from, data)
	f.metrics.ObserveVerdict(v.String())
	return v
}

func (f *Forwarder) handleInbound(ctx context.Context, from message.NodeID, data []byte) Verdict {
	if f.cfg.MaxMessageSize > 0 && len(data) > f.cfg.MaxMessageSize {
		f.replyRaw(ctx, from, data, message.NewError(message.ErrorMessageTooLarge,
			fmt.Sprintf("message of %d bytes exceeds %d", len(data), f.cfg.MaxMessageSize)))
		return VerdictRejected
	}

	hm, err := message.DecodeHeaded(f.codec, data)
	if err != nil {
		fwdLogger.Debug("转发头解码失败", "from", from, "error", err)
		f.replyRaw(ctx, from, data, message.NewError(message.ErrorInvalidMessage, err.Error()))
		return VerdictRejected
	}

	v, err := f.route(ctx, from, hm)
	if err != nil {
		fwdLogger.Debug("入站消息未转发", "tx", hm.Header.TransactionID(), "from", from,
			"verdict", v, "reason", err)
	}
	return v
}

// Send 发送本地产生的消息
//
// 目的地由本节点负责时直接投递给上层。本地发出的消息不递减 TTL。
func (f *Forwarder) Send(ctx context.Context, msg *message.Message) error {
	hm, err := message.NewHeaded(f.codec, msg)
	if err != nil {
		return err
	}
	v, err := f.route(ctx, nil, hm)
	switch v {
	case VerdictDelivered, VerdictForwarded:
		return nil
	default:
		if err == nil {
			err = ErrMessageDropped
		}
		return err
	}
}

// route 解析、校验并分发一条消息，from 为 nil 表示本地产生
func (f *Forwarder) route(ctx context.Context, from message.NodeID, hm *message.HeadedMessage) (Verdict, error) {
	h := hm.Header

	if f.cfg.OverlayHash != 0 && h.OverlayHash() != f.cfg.OverlayHash {
		f.replyError(ctx, h, from, hm, message.NewError(message.ErrorIncompatibleWithOverlay,
			fmt.Sprintf("overlay hash %#x does not match %#x", h.OverlayHash(), f.cfg.OverlayHash)))
		return VerdictRejected, fmt.Errorf("overlay hash mismatch")
	}

	dest, err := f.resolve(h.DestinationList())
	if err != nil {
		return VerdictDropped, err
	}
	if err := f.validate(dest); err != nil {
		return VerdictDropped, err
	}

	head := dest.Head()
	if f.isLocallyResponsible(head) {
		return f.deliver(ctx, from, hm)
	}

	ttl := h.TTL()
	if ttl == 0 || ttl > f.cfg.InitialTTL {
		info := "expired message TTL"
		if ttl > f.cfg.InitialTTL {
			info = "message TTL greater than initial overlay TTL"
		}
		f.replyError(ctx, h, from, hm, message.NewError(message.ErrorTTLExceeded, info))
		return VerdictRejected, fmt.Errorf("ttl %d", ttl)
	}

	if e := message.CheckForwardingOptions(h.ForwardingOptions(), true); e != nil {
		f.replyError(ctx, h, from, hm, e)
		return VerdictRejected, e
	}

	return f.forward(ctx, from, hm, dest)
}

// resolve 反复处理目的地列表首项：展开不透明标识，弹出本节点
func (f *Forwarder) resolve(dest message.DestinationList) (message.DestinationList, error) {
	if len(dest) == 0 {
		return nil, ErrEmptyDestination
	}
	for step := 0; step < MaxResolveSteps; step++ {
		switch id := dest.Head().(type) {
		case message.OpaqueID:
			path, err := f.compressor.Decompress(id)
			if err != nil {
				return nil, err
			}
			dest = append(path, dest[1:]...)
		case message.NodeID:
			if !id.Equal(f.cfg.LocalID) || len(dest) == 1 {
				return dest, nil
			}
			dest = dest[1:]
		default:
			return dest, nil
		}
	}
	return nil, fmt.Errorf("destination not resolved after %d steps", MaxResolveSteps)
}

func (f *Forwarder) validate(dest message.DestinationList) error {
	switch id := dest.Head().(type) {
	case message.ResourceID:
		if len(dest) != 1 {
			return fmt.Errorf("resource id %s is not the last destination", id)
		}
	case message.NodeID:
		if id.Equal(f.cfg.LocalID) || id.IsWildcard() || f.conns.IsNeighbor(id) {
			return nil
		}
		return fmt.Errorf("%s is not a neighbor", id)
	case message.OpaqueID:
	default:
		return fmt.Errorf("unsupported destination %v", id)
	}
	return nil
}

func (f *Forwarder) isLocallyResponsible(id message.RoutableID) bool {
	if n, ok := id.(message.NodeID); ok && (n.IsWildcard() || n.Equal(f.cfg.LocalID)) {
		return true
	}
	return f.topology.IsLocalPeerResponsible(id)
}

func (f *Forwarder) deliver(ctx context.Context, from message.NodeID, hm *message.HeadedMessage) (Verdict, error) {
	if e := message.CheckForwardingOptions(hm.Header.ForwardingOptions(), false); e != nil {
		f.replyError(ctx, hm.Header, from, hm, e)
		return VerdictRejected, e
	}

	msg, err := hm.Decode(f.codec)
	if err != nil {
		f.replyError(ctx, hm.Header, from, hm, message.NewError(message.ErrorInvalidMessage, err.Error()))
		return VerdictRejected, err
	}
	if e := message.CheckExtensions(msg.Extensions()); e != nil {
		f.replyError(ctx, hm.Header, from, hm, e)
		return VerdictRejected, e
	}

	u := f.upstream.Load()
	if u == nil {
		return VerdictDropped, fmt.Errorf("no upstream")
	}
	u.Deliver(ctx, msg.WithPreviousHop(from))
	return VerdictDelivered, nil
}

func (f *Forwarder) forward(ctx context.Context, from message.NodeID, hm *message.HeadedMessage,
	dest message.DestinationList) (Verdict, error) {
	next, ok := f.nextHop(dest.Head())
	if !ok {
		return VerdictDropped, fmt.Errorf("%w: %s", ErrNoRoute, dest.Head())
	}

	b := hm.Header.ToBuilder().SetDestinationList(dest)
	if from != nil {
		via := append(hm.Header.ViaList(), from)
		if f.cfg.ViaCompressThreshold > 0 && len(via) > f.cfg.ViaCompressThreshold {
			if token, err := f.compressor.Compress(via.Reverse()); err == nil {
				via = message.DestinationList{token}
				f.metrics.SetOpaqueEntries(f.compressor.Len())
			}
		}
		b.SetViaList(via).SetTTL(hm.Header.TTL() - 1)
	}

	out := &message.HeadedMessage{Header: b.Build(), Payload: hm.Payload}
	frame, err := out.Marshal(f.codec)
	if err != nil {
		return VerdictDropped, err
	}
	if err := f.conns.Send(ctx, next, frame); err != nil {
		return VerdictDropped, fmt.Errorf("send to %s: %w", next, err)
	}
	return VerdictForwarded, nil
}

func (f *Forwarder) nextHop(head message.RoutableID) (message.NodeID, bool) {
	if n, ok := head.(message.NodeID); ok && f.conns.IsNeighbor(n) {
		return n, true
	}
	return f.topology.NextHop(head)
}

// replyError 沿返回路径发送错误，对错误消息本身不回复
func (f *Forwarder) replyError(ctx context.Context, h *message.Header, from message.NodeID,
	hm *message.HeadedMessage, e *message.Error) {
	if ct, ok := hm.ContentType(); ok && ct == message.ContentError {
		return
	}
	if !f.allowReply(from) {
		fwdLogger.Debug("错误应答被限流", "tx", h.TransactionID(), "from", from, "code", e.Code)
		return
	}

	path := h.ViaList()
	if from != nil {
		path = append(path, from)
	}
	path = path.Reverse()

	hdr := f.NewHeaderBuilder().
		SetTransactionID(h.TransactionID()).
		SetDestinationList(path).
		Build()
	msg := message.NewBuilder(hdr, e).Build()
	f.metrics.ObserveErrorSent(e.Code.String())

	if len(path) == 0 {
		if u := f.upstream.Load(); u != nil {
			u.Deliver(ctx, msg)
		}
		return
	}
	if err := f.Send(ctx, msg); err != nil {
		fwdLogger.Debug("错误应答发送失败", "tx", h.TransactionID(), "error", err)
	}
}

// replyRaw 对无法解码转发头的帧，向直接邻居回复错误
func (f *Forwarder) replyRaw(ctx context.Context, from message.NodeID, data []byte, e *message.Error) {
	if from == nil || !f.allowReply(from) {
		return
	}
	var tx uint64
	if len(data) >= 8 {
		tx = binary.BigEndian.Uint64(data)
	}
	hdr := f.NewHeaderBuilder().
		SetTransactionID(tx).
		SetDestinationList(message.DestinationList{from}).
		Build()
	frame, err := message.NewBuilder(hdr, e).Build().Marshal(f.codec)
	if err != nil {
		return
	}
	f.metrics.ObserveErrorSent(e.Code.String())
	if err := f.conns.Send(ctx, from, frame); err != nil {
		fwdLogger.Debug("错误应答发送失败", "to", from, "error", err)
	}
}

package routing

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-reload/internal/core/metrics"
	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/lib/future"
	"github.com/dep2p/go-reload/pkg/lib/log"
	"github.com/dep2p/go-reload/pkg/message"
)

var routerLogger = log.Logger("routing/router")

type pendingRequest struct {
	fut         *future.Future[*message.Message]
	contentType message.ContentType
	sent        time.Time

	mu      sync.Mutex
	timer   *clock.Timer
	stopped bool
}

// armTimer 记录超时定时器；请求已结束时立即停止它
func (p *pendingRequest) armTimer(t *clock.Timer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		t.Stop()
		return
	}
	p.timer = t
}

// stopTimer 停止超时定时器，可在定时器记录之前调用
func (p *pendingRequest) stopTimer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
	}
}

// Router 请求/应答路由
//
// 请求表以事务 ID 为键；应答到达或超时时完成对应 Future，
// 未知事务 ID 的应答直接丢弃。
type Router struct {
	fwd     *Forwarder
	clock   clock.Clock
	timeout time.Duration
	metrics *metrics.Metrics

	pending  sync.Map // uint64 -> *pendingRequest
	handlers sync.Map // message.ContentType -> interfaces.RequestHandler
	security atomic.Pointer[message.SecurityBlock]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRouter 创建路由器并注册为转发引擎的上层
func NewRouter(fwd *Forwarder, timeout time.Duration, clk clock.Clock, m *metrics.Metrics) *Router {
	if clk == nil {
		clk = clock.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		fwd:     fwd,
		clock:   clk,
		timeout: timeout,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
	r.RegisterHandler(message.ContentPingRequest, r.handlePing)
	fwd.SetUpstream(r)
	return r
}

// RegisterHandler 注册请求处理函数，重复注册时覆盖
func (r *Router) RegisterHandler(t message.ContentType, h interfaces.RequestHandler) {
	r.handlers.Store(t, h)
}

// SendRequest 发送请求
func (r *Router) SendRequest(ctx context.Context, dest message.DestinationList,
	content message.Content) *future.Future[*message.Message] {
	if len(dest) == 0 {
		return future.Failed[*message.Message](ErrEmptyDestination)
	}
	if r.ctx.Err() != nil {
		return future.Failed[*message.Message](ErrRouterClosed)
	}

	hdr := r.fwd.NewHeaderBuilder().SetDestinationList(dest).Build()
	msg := r.build(hdr, content)
	tx := hdr.TransactionID()

	p := &pendingRequest{
		fut:         future.New[*message.Message](),
		contentType: content.ContentType(),
		sent:        r.clock.Now(),
	}
	r.pending.Store(tx, p)
	p.armTimer(r.clock.AfterFunc(r.timeout, func() {
		r.finish(tx, p, nil, ErrRequestTimeout)
	}))
	p.fut.OnCancel(func() {
		if r.pending.CompareAndDelete(tx, p) {
			p.stopTimer()
		}
	})

	if err := r.fwd.Send(ctx, msg); err != nil {
		r.finish(tx, p, nil, err)
	}
	return p.fut
}

// finish 从请求表移除并完成 Future，只有第一个调用者生效
func (r *Router) finish(tx uint64, p *pendingRequest, ans *message.Message, err error) {
	if !r.pending.CompareAndDelete(tx, p) {
		return
	}
	p.stopTimer()

	result := "ok"
	switch {
	case errors.Is(err, ErrRequestTimeout):
		result = "timeout"
	case err != nil:
		result = "error"
	}
	r.metrics.ObserveRequest(p.contentType.String(), result, r.clock.Since(p.sent))

	if err != nil {
		p.fut.Fail(err)
		return
	}
	p.fut.Complete(ans)
}

// SetSecurityBlock 设置本节点发出消息携带的安全块（证书）
func (r *Router) SetSecurityBlock(sb message.SecurityBlock) {
	r.security.Store(&sb)
}

func (r *Router) build(hdr *message.Header, content message.Content) *message.Message {
	b := message.NewBuilder(hdr, content)
	sb := message.SecurityBlock{Signature: message.EmptySignature()}
	if local := r.security.Load(); local != nil {
		sb = *local
	}
	if cc, ok := content.(message.CertificateCarrier); ok {
		certs := append([]message.GenericCertificate(nil), sb.Certificates...)
		for _, raw := range cc.CarriedCertificates() {
			certs = append(certs, message.GenericCertificate{Type: message.CertificateX509, Data: raw})
		}
		sb.Certificates = certs
	}
	return b.SetSecurityBlock(sb).Build()
}

// SendAnswer 沿请求的返回路径发送应答
func (r *Router) SendAnswer(req *message.Message, content message.Content) error {
	return r.reply(req, content)
}

// SendError 沿请求的返回路径发送错误
func (r *Router) SendError(req *message.Message, e *message.Error) error {
	r.metrics.ObserveErrorSent(e.Code.String())
	return r.reply(req, e)
}

func (r *Router) reply(req *message.Message, content message.Content) error {
	path := req.ReturnPath()
	hdr := r.fwd.NewHeaderBuilder().
		SetTransactionID(req.TransactionID()).
		SetDestinationList(path).
		Build()
	msg := r.build(hdr, content)

	if len(path) == 0 {
		r.Deliver(r.ctx, msg)
		return nil
	}
	return r.fwd.Send(r.ctx, msg)
}

// Deliver 实现 Upstream
func (r *Router) Deliver(ctx context.Context, msg *message.Message) {
	ct := msg.Content().ContentType()
	if ct.IsAnswer() || ct == message.ContentError {
		r.handleAnswer(msg)
		return
	}
	r.handleRequest(msg)
}

func (r *Router) handleAnswer(msg *message.Message) {
	tx := msg.TransactionID()
	v, ok := r.pending.Load(tx)
	if !ok {
		routerLogger.Debug("丢弃未知事务的应答", "tx", tx, "type", msg.Content().ContentType())
		return
	}
	p := v.(*pendingRequest)
	if e, ok := msg.Content().(*message.Error); ok {
		r.finish(tx, p, nil, e)
		return
	}
	r.finish(tx, p, msg, nil)
}

func (r *Router) handleRequest(req *message.Message) {
	if r.ctx.Err() != nil {
		return
	}
	ct := req.Content().ContentType()
	v, ok := r.handlers.Load(ct)
	if !ok {
		_ = r.SendError(req, message.NewError(message.ErrorForbidden, "unsupported request "+ct.String()))
		return
	}
	h := v.(interfaces.RequestHandler)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ans, err := h(r.ctx, req)
		if err != nil {
			var e *message.Error
			if !errors.As(err, &e) {
				routerLogger.Warn("请求处理失败", "tx", req.TransactionID(), "type", ct, "error", err)
				e = message.NewError(message.ErrorInvalidMessage, err.Error())
			}
			err = r.SendError(req, e)
		} else {
			err = r.SendAnswer(req, ans)
		}
		if err != nil {
			routerLogger.Debug("应答发送失败", "tx", req.TransactionID(), "error", err)
		}
	}()
}

func (r *Router) handlePing(_ context.Context, _ *message.Message) (message.Content, error) {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	return &message.PingAnswer{
		ResponseID: binary.BigEndian.Uint64(buf[:]),
		Time:       uint64(r.clock.Now().UnixMilli()),
	}, nil
}

// Pending 未完成的请求数
func (r *Router) Pending() int {
	n := 0
	r.pending.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close 使所有未完成请求失败并等待处理函数退出
func (r *Router) Close() error {
	r.cancel()
	r.pending.Range(func(k, v any) bool {
		r.finish(k.(uint64), v.(*pendingRequest), nil, ErrRouterClosed)
		return true
	})
	r.wg.Wait()
	return nil
}

var _ interfaces.MessageRouter = (*Router)(nil)

package routing

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-reload/pkg/lib/future"
	"github.com/dep2p/go-reload/pkg/message"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// pair 两个直连节点 A、B
func pair(t *testing.T, opts ...func(*testNode)) (*testNode, *testNode) {
	t.Helper()
	net := newTestNetwork()
	a := net.add(nodeID(0x0a), testConfig(nodeID(0x0a)), opts...)
	b := net.add(nodeID(0x0b), testConfig(nodeID(0x0b)), opts...)
	net.link(a, b)
	t.Cleanup(func() {
		_ = a.router.Close()
		_ = b.router.Close()
	})
	return a, b
}

// TestRouter_Ping 测试相邻节点之间的请求/应答
func TestRouter_Ping(t *testing.T) {
	a, b := pair(t)

	fut := a.router.SendRequest(context.Background(), message.DestinationList{b.id}, &message.PingRequest{})
	ans, err := fut.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.IsType(t, &message.PingAnswer{}, ans.Content())
	assert.Equal(t, 0, a.router.Pending())
}

// TestRouter_MultiHop 测试经中间节点转发的资源请求与应答返回
func TestRouter_MultiHop(t *testing.T) {
	net := newTestNetwork()
	a := net.add(nodeID(0x0a), testConfig(nodeID(0x0a)))
	b := net.add(nodeID(0x0b), testConfig(nodeID(0x0b)))
	c := net.add(nodeID(0x0c), testConfig(nodeID(0x0c)))
	net.link(a, b)
	net.link(b, c)

	res := message.ResourceID{0x01, 0x02, 0x03, 0x04}
	a.topo.routes[string(res)] = b.id
	b.topo.routes[string(res)] = c.id
	c.topo.owned[string(res)] = true

	var seen *message.Message
	c.router.RegisterHandler(message.ContentLeaveRequest, func(_ context.Context, req *message.Message) (message.Content, error) {
		seen = req
		return &message.LeaveAnswer{}, nil
	})

	fut := a.router.SendRequest(context.Background(), message.DestinationList{res}, &message.LeaveRequest{LeavingNode: a.id})
	ans, err := fut.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.IsType(t, &message.LeaveAnswer{}, ans.Content())

	require.NotNil(t, seen)
	assert.True(t, seen.ReturnPath().Equal(message.DestinationList{b.id, a.id}))
	assert.Equal(t, uint8(9), seen.Header().TTL())
}

// TestRouter_NoHandler 测试没有处理函数的请求收到 FORBIDDEN
func TestRouter_NoHandler(t *testing.T) {
	a, b := pair(t)

	fut := a.router.SendRequest(context.Background(), message.DestinationList{b.id}, &message.LeaveRequest{LeavingNode: a.id})
	_, err := fut.Wait(waitCtx(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, message.NewError(message.ErrorForbidden, "")))
}

// TestRouter_HandlerError 测试处理函数返回的协议错误原样传回
func TestRouter_HandlerError(t *testing.T) {
	a, b := pair(t)
	b.router.RegisterHandler(message.ContentLeaveRequest, func(context.Context, *message.Message) (message.Content, error) {
		return nil, message.NewError(message.ErrorNotFound, "nothing here")
	})

	_, err := a.router.SendRequest(context.Background(), message.DestinationList{b.id}, &message.LeaveRequest{LeavingNode: a.id}).Wait(waitCtx(t))
	var e *message.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, message.ErrorNotFound, e.Code)
	assert.Equal(t, "nothing here", string(e.Info))
}

// TestRouter_Timeout 测试对端不应答时请求超时
func TestRouter_Timeout(t *testing.T) {
	mock := clock.NewMock()
	a, b := pair(t, withClock(mock))
	b.blackout = true

	fut := a.router.SendRequest(context.Background(), message.DestinationList{b.id}, &message.PingRequest{})
	assert.Equal(t, 1, a.router.Pending())

	mock.Add(6 * time.Second)
	_, err := fut.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrRequestTimeout)
	assert.Equal(t, 0, a.router.Pending())
}

// TestRouter_ImmediateTimeout 测试定时器在记录之前触发时请求仍正常超时
func TestRouter_ImmediateTimeout(t *testing.T) {
	net := newTestNetwork()
	cfgA := testConfig(nodeID(0x0a))
	cfgA.RequestTimeout = time.Nanosecond
	a := net.add(nodeID(0x0a), cfgA)
	b := net.add(nodeID(0x0b), testConfig(nodeID(0x0b)))
	net.link(a, b)
	b.blackout = true
	t.Cleanup(func() {
		_ = a.router.Close()
		_ = b.router.Close()
	})

	for i := 0; i < 200; i++ {
		_, err := a.router.SendRequest(context.Background(), message.DestinationList{b.id}, &message.PingRequest{}).Wait(waitCtx(t))
		require.ErrorIs(t, err, ErrRequestTimeout)
	}
	assert.Equal(t, 0, a.router.Pending())
}

// TestPendingRequest_StopBeforeArm 测试请求结束后才记录的定时器立即停止
func TestPendingRequest_StopBeforeArm(t *testing.T) {
	mock := clock.NewMock()
	var fired atomic.Bool

	p := &pendingRequest{}
	p.stopTimer()
	p.armTimer(mock.AfterFunc(time.Second, func() { fired.Store(true) }))

	q := &pendingRequest{}
	q.armTimer(mock.AfterFunc(time.Second, func() { fired.Store(true) }))
	q.stopTimer()

	mock.Add(2 * time.Second)
	assert.Never(t, fired.Load, 50*time.Millisecond, 5*time.Millisecond)
}

// TestRouter_LocalDelivery 测试目的地为本节点时在本地完成请求
func TestRouter_LocalDelivery(t *testing.T) {
	a, _ := pair(t)

	ans, err := a.router.SendRequest(context.Background(), message.DestinationList{a.id}, &message.PingRequest{}).Wait(waitCtx(t))
	require.NoError(t, err)
	assert.IsType(t, &message.PingAnswer{}, ans.Content())
}

// TestRouter_UnknownAnswer 测试未知事务的应答被丢弃
func TestRouter_UnknownAnswer(t *testing.T) {
	a, _ := pair(t)

	hdr := a.fwd.NewHeaderBuilder().SetDestinationList(message.DestinationList{a.id}).Build()
	a.router.Deliver(context.Background(), message.NewBuilder(hdr, &message.PingAnswer{}).Build())
	assert.Equal(t, 0, a.router.Pending())
}

// TestRouter_Cancel 测试取消请求后从请求表移除
func TestRouter_Cancel(t *testing.T) {
	a, b := pair(t)
	b.blackout = true

	fut := a.router.SendRequest(context.Background(), message.DestinationList{b.id}, &message.PingRequest{})
	require.Equal(t, 1, a.router.Pending())

	assert.True(t, fut.Cancel())
	_, err := fut.Wait(waitCtx(t))
	assert.ErrorIs(t, err, future.ErrCancelled)
	assert.Equal(t, 0, a.router.Pending())
}

// TestRouter_Close 测试关闭时未完成请求失败
func TestRouter_Close(t *testing.T) {
	a, b := pair(t)
	b.blackout = true

	fut := a.router.SendRequest(context.Background(), message.DestinationList{b.id}, &message.PingRequest{})
	require.NoError(t, a.router.Close())

	_, err := fut.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrRouterClosed)

	_, err = a.router.SendRequest(context.Background(), message.DestinationList{b.id}, &message.PingRequest{}).Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrRouterClosed)
}

// TestRouter_SendFailure 测试无路由时请求立即失败
func TestRouter_SendFailure(t *testing.T) {
	a, _ := pair(t)

	_, err := a.router.SendRequest(context.Background(), message.DestinationList{nodeID(0x55)}, &message.PingRequest{}).Wait(waitCtx(t))
	assert.Error(t, err)
	assert.Equal(t, 0, a.router.Pending())

	_, err = a.router.SendRequest(context.Background(), nil, &message.PingRequest{}).Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrEmptyDestination)
}

// TestRouter_TTLExceeded 测试路由环路中 TTL 耗尽后错误沿经过列表返回
func TestRouter_TTLExceeded(t *testing.T) {
	net := newTestNetwork()
	cfgA, cfgB := testConfig(nodeID(0x0a)), testConfig(nodeID(0x0b))
	cfgA.InitialTTL, cfgB.InitialTTL = 4, 4
	a := net.add(nodeID(0x0a), cfgA)
	b := net.add(nodeID(0x0b), cfgB)
	net.link(a, b)
	a.topo.dflt = b.id
	b.topo.dflt = a.id

	res := message.ResourceID{0xde, 0xad, 0xbe, 0xef}
	_, err := a.router.SendRequest(context.Background(), message.DestinationList{res}, &message.PingRequest{}).Wait(waitCtx(t))
	var e *message.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, message.ErrorTTLExceeded, e.Code)
}

package connmgr

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-reload/pkg/message"
)

// TestManager_Send 测试链路双向收发
func TestManager_Send(t *testing.T) {
	a, fa, b, fb := connected(t)

	require.NoError(t, a.Send(context.Background(), b.LocalID(), []byte("hello")))
	require.NoError(t, b.Send(context.Background(), a.LocalID(), []byte("world")))
	require.NoError(t, a.Send(context.Background(), b.LocalID(), []byte{}))

	assert.Eventually(t, func() bool { return len(fb.from(a.LocalID())) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return len(fa.from(b.LocalID())) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []byte("hello"), fb.from(a.LocalID())[0])
	assert.Empty(t, fb.from(a.LocalID())[1])
	assert.Equal(t, []byte("world"), fa.from(b.LocalID())[0])

	assert.Equal(t, []message.NodeID{b.LocalID()}, a.Neighbors())
	assert.ErrorIs(t, a.Send(context.Background(), nodeID(0x77), []byte("x")), ErrNotNeighbor)
}

// TestManager_OversizeFrame 测试超长帧被丢弃而链路保持
func TestManager_OversizeFrame(t *testing.T) {
	a, _, b, fb := connected(t)

	assert.ErrorIs(t, a.Send(context.Background(), b.LocalID(), make([]byte, 2048)), ErrFrameTooLarge)

	// 绕过发送端检查直接写出超长帧
	l := a.lookup(b.LocalID())
	require.NotNil(t, l)
	require.NoError(t, l.send(bytes.Repeat([]byte{1}, 4096)))
	require.NoError(t, a.Send(context.Background(), b.LocalID(), []byte("after")))

	assert.Eventually(t, func() bool { return len(fb.from(a.LocalID())) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []byte("after"), fb.from(a.LocalID())[0])
	assert.True(t, b.IsNeighbor(a.LocalID()))
}

// TestManager_DuplicateLink 测试同一节点只保留一条链路
func TestManager_DuplicateLink(t *testing.T) {
	a, _, b, _ := connected(t)

	_, err := a.Dial(context.Background(), b.Addr().String())
	assert.ErrorIs(t, err, ErrDuplicateLink)
	assert.Len(t, a.Neighbors(), 1)
	assert.Len(t, b.Neighbors(), 1)
}

// TestManager_Handshake 测试握手校验 overlay 与版本
func TestManager_Handshake(t *testing.T) {
	a, _ := newTestManager(t, nodeID(0xa1), testConfig())

	other := testConfig()
	other.OverlayHash++
	b, _ := newTestManager(t, nodeID(0xb2), other)
	_, err := b.Dial(context.Background(), a.Addr().String())
	assert.ErrorIs(t, err, ErrHandshake)

	other = testConfig()
	other.Version++
	c, _ := newTestManager(t, nodeID(0xc3), other)
	_, err = c.Dial(context.Background(), a.Addr().String())
	assert.ErrorIs(t, err, ErrHandshake)

	self, _ := newTestManager(t, nodeID(0xa1), testConfig())
	_, err = self.Dial(context.Background(), a.Addr().String())
	assert.ErrorIs(t, err, ErrHandshake)

	assert.Empty(t, a.Neighbors())
}

// TestManager_Gater 测试被阻止的节点无法建立链路
func TestManager_Gater(t *testing.T) {
	a, _ := newTestManager(t, nodeID(0xa1), testConfig())
	b, _ := newTestManager(t, nodeID(0xb2), testConfig())
	a.Gater().Block(b.LocalID())

	_, err := a.Dial(context.Background(), b.Addr().String())
	assert.ErrorIs(t, err, ErrLinkDenied)
	assert.Equal(t, int64(1), a.Gater().Intercepted())

	assert.False(t, a.IsNeighbor(b.LocalID()))

	a.Gater().Unblock(b.LocalID())
	assert.False(t, a.Gater().IsBlocked(b.LocalID()))
}

// TestManager_MaxNeighbors 测试邻居数上限
func TestManager_MaxNeighbors(t *testing.T) {
	cfg := testConfig()
	cfg.MaxNeighbors = 1
	a, _ := newTestManager(t, nodeID(0xa1), cfg)
	b, _ := newTestManager(t, nodeID(0xb2), testConfig())
	c, _ := newTestManager(t, nodeID(0xc3), testConfig())

	_, err := a.Dial(context.Background(), b.Addr().String())
	require.NoError(t, err)
	_, err = a.Dial(context.Background(), c.Addr().String())
	assert.ErrorIs(t, err, ErrTooManyNeighbors)
}

// TestManager_Disconnect 测试断开后两端都移除邻居
func TestManager_Disconnect(t *testing.T) {
	a, _, b, _ := connected(t)

	require.NoError(t, a.Disconnect(b.LocalID()))
	assert.False(t, a.IsNeighbor(b.LocalID()))
	assert.Eventually(t, func() bool { return !b.IsNeighbor(a.LocalID()) }, 2*time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, a.Disconnect(b.LocalID()), ErrNotNeighbor)
}

// TestManager_Close 测试关闭后拒绝新链路
func TestManager_Close(t *testing.T) {
	a, _, b, _ := connected(t)
	addr := a.Addr().String()

	require.NoError(t, a.Close())
	assert.Empty(t, a.Neighbors())
	assert.Eventually(t, func() bool { return !b.IsNeighbor(a.LocalID()) }, 2*time.Second, 5*time.Millisecond)

	_, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
	assert.Error(t, err)
	assert.ErrorIs(t, a.Listen("127.0.0.1:0"), ErrManagerClosed)
	require.NoError(t, a.Close())
}

// TestHello 测试握手帧编码
func TestHello(t *testing.T) {
	h := hello{OverlayHash: 0x01020304, Version: 0x0a, NodeID: nodeID(0x33)}
	b, err := h.marshal()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 0x0a, 16}, b[:6])

	back, err := unmarshalHello(b)
	require.NoError(t, err)
	assert.Equal(t, h, back)

	_, err = unmarshalHello(append(b, 0))
	assert.Error(t, err)
}

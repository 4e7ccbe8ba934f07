package reload

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-reload/config"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// startNode 启动监听在回环地址上的节点
func startNode(t *testing.T, opts ...Option) *Node {
	t.Helper()
	base := []Option{
		WithDataDir(t.TempDir()),
		WithListenAddr("127.0.0.1:0"),
	}
	n, err := Start(waitCtx(t), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })
	return n
}

// TestNode_Lifecycle 测试启动与关闭的状态转换
func TestNode_Lifecycle(t *testing.T) {
	n, err := New(waitCtx(t), WithDataDir(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, StateIdle, n.State())
	assert.Len(t, n.ID(), config.NewConfig().Overlay.NodeIDLength)

	_, err = n.Store(waitCtx(t), n.NodeResourceID(), NewPreparedData(1).SetSingle([]byte("x"))).Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, n.Start(waitCtx(t)))
	assert.Equal(t, StateRunning, n.State())
	assert.ErrorIs(t, n.Start(waitCtx(t)), ErrAlreadyStarted)
	assert.Nil(t, n.Addr())

	require.NoError(t, n.Close())
	assert.Equal(t, StateClosed, n.State())
	require.NoError(t, n.Close())
	assert.ErrorIs(t, n.Start(waitCtx(t)), ErrNodeClosed)

	_, err = n.Ping(waitCtx(t), n.ID())
	assert.ErrorIs(t, err, ErrNodeClosed)
}

// TestNode_CloseWithoutStart 测试未启动的节点关闭后释放数据目录
func TestNode_CloseWithoutStart(t *testing.T) {
	dir := t.TempDir()
	n, err := New(waitCtx(t), WithDataDir(dir))
	require.NoError(t, err)
	require.NoError(t, n.Close())

	// 同一目录可以再次打开
	n2, err := New(waitCtx(t), WithDataDir(dir))
	require.NoError(t, err)
	require.NoError(t, n2.Close())
}

// TestNode_InvalidConfig 测试无效配置与选项
func TestNode_InvalidConfig(t *testing.T) {
	_, err := New(waitCtx(t), WithDataDir(""))
	assert.Error(t, err)

	_, err = New(waitCtx(t), WithConfig(nil))
	assert.Error(t, err)

	cfg := config.NewConfig()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Link.MaxNeighbors = 0
	_, err = New(waitCtx(t), WithConfig(cfg))
	assert.ErrorContains(t, err, "config validation failed")
}

// TestNode_LocalStoreFetch 测试单节点在本地完成存储、取回、元数据与删除
func TestNode_LocalStoreFetch(t *testing.T) {
	n := startNode(t)
	res := n.NodeResourceID()

	resp, err := n.Store(waitCtx(t), res,
		NewPreparedData(1).SetSingle([]byte("hello")),
		NewPreparedData(2).SetArray(0, []byte("a0")),
		NewPreparedData(2).SetArray(1, []byte("a1")),
		NewPreparedData(3).SetDictionary([]byte("k"), []byte("v")),
	).Wait(waitCtx(t))
	require.NoError(t, err)
	require.Len(t, resp, 3)

	got, err := n.Fetch(waitCtx(t), res,
		StoredDataSpecifier{Kind: 1, Value: SingleSpecifier{}},
		StoredDataSpecifier{Kind: 2, Value: ArraySpecifier{Ranges: []ArrayRange{{Start: 0, End: 2}}}},
		StoredDataSpecifier{Kind: 3, Value: DictionarySpecifier{}},
	).Wait(waitCtx(t))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, SingleValue{Present: true, Data: []byte("hello")}, got[0].Values[0].Value)
	assert.Len(t, got[1].Values, 2)
	require.Len(t, got[2].Values, 1)
	assert.Equal(t, []byte("v"), got[2].Values[0].Value.(DictionaryValue).Entry.Data)

	stat, err := n.Stat(waitCtx(t), res, StoredDataSpecifier{Kind: 1, Value: SingleSpecifier{}}).Wait(waitCtx(t))
	require.NoError(t, err)
	require.Len(t, stat, 1)
	assert.Len(t, stat[0].Values, 1)

	_, err = n.Remove(waitCtx(t), res, StoredDataSpecifier{Kind: 2, Value: ArraySpecifier{Ranges: []ArrayRange{{Start: 0, End: 1}}}}).Wait(waitCtx(t))
	require.NoError(t, err)
	got, err = n.Fetch(waitCtx(t), res,
		StoredDataSpecifier{Kind: 2, Value: ArraySpecifier{Ranges: []ArrayRange{{Start: 0, End: 2}}}},
	).Wait(waitCtx(t))
	require.NoError(t, err)
	require.Len(t, got[0].Values, 1)
	assert.Equal(t, uint32(1), got[0].Values[0].Value.(ArrayValue).Index)

	assert.ElementsMatch(t, []KindID{1, 2, 3, 4}, n.KnownKinds())
	assert.Equal(t, 0, n.PendingRequests())
}

// TestNode_TwoNodes 测试经邻居链路的探测、存储与取回
func TestNode_TwoNodes(t *testing.T) {
	a := startNode(t)
	b := startNode(t, WithBootstrap(a.Addr().String()))

	require.Eventually(t, func() bool {
		return len(a.Neighbors()) == 1 && len(b.Neighbors()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.True(t, b.Neighbors()[0].Equal(a.ID()))

	rtt, err := b.Ping(waitCtx(t), a.ID())
	require.NoError(t, err)
	assert.Greater(t, rtt, time.Duration(0))

	res := b.NodeResourceID()
	_, err = b.Store(waitCtx(t), res, NewPreparedData(1).SetSingle([]byte("from b"))).Wait(waitCtx(t))
	require.NoError(t, err)

	for _, n := range []*Node{a, b} {
		got, err := n.Fetch(waitCtx(t), res, StoredDataSpecifier{Kind: 1, Value: SingleSpecifier{}}).Wait(waitCtx(t))
		require.NoError(t, err)
		require.Len(t, got[0].Values, 1)
		assert.Equal(t, []byte("from b"), got[0].Values[0].Value.(SingleValue).Data)
	}

	// a 不能写入 b 的 node-match 资源
	_, err = a.Store(waitCtx(t), res, NewPreparedData(1).SetSingle([]byte("forged"))).Wait(waitCtx(t))
	assert.Error(t, err)
}

// TestNode_LeaveOnClose 测试关闭节点后邻居移除链路
func TestNode_LeaveOnClose(t *testing.T) {
	a := startNode(t)
	b := startNode(t, WithBootstrap(a.Addr().String()))
	require.Eventually(t, func() bool { return len(a.Neighbors()) == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, b.Close())
	assert.Eventually(t, func() bool { return len(a.Neighbors()) == 0 }, 5*time.Second, 10*time.Millisecond)
}

// TestNode_Subscribe 测试邻居事件订阅
func TestNode_Subscribe(t *testing.T) {
	a := startNode(t)
	sub, err := a.Subscribe(new(EvtNeighborConnected), BufSize(4))
	require.NoError(t, err)
	down, err := a.Subscribe(new(EvtNeighborDisconnected))
	require.NoError(t, err)

	b := startNode(t, WithBootstrap(a.Addr().String()))
	select {
	case evt := <-sub.Out():
		e := evt.(EvtNeighborConnected)
		assert.True(t, e.ID.Equal(b.ID()))
		assert.False(t, e.Outbound)
	case <-waitCtx(t).Done():
		t.Fatal("no connected event")
	}

	require.NoError(t, b.Close())
	select {
	case evt := <-down.Out():
		assert.True(t, evt.(EvtNeighborDisconnected).ID.Equal(b.ID()))
	case <-waitCtx(t).Done():
		t.Fatal("no disconnected event")
	}

	require.NoError(t, a.Close())
	_, ok := <-sub.Out()
	assert.False(t, ok)
	_, err = a.Subscribe(new(EvtNeighborCount))
	assert.ErrorIs(t, err, ErrNodeClosed)
}

// TestNode_Block 测试拒绝邻居
func TestNode_Block(t *testing.T) {
	a := startNode(t)
	b := startNode(t)

	id, err := b.Connect(waitCtx(t), a.Addr().String())
	require.NoError(t, err)
	assert.True(t, id.Equal(a.ID()))

	b.Block(a.ID())
	assert.Empty(t, b.Neighbors())
	_, err = b.Connect(waitCtx(t), a.Addr().String())
	assert.Error(t, err)

	b.Unblock(a.ID())
	_, err = b.Connect(waitCtx(t), a.Addr().String())
	assert.NoError(t, err)
}

// TestNode_ApplicationAddress 测试经 AppAttach 取得邻居上的应用服务器地址
func TestNode_ApplicationAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	srv := netip.MustParseAddrPort(ln.Addr().String())

	a := startNode(t)
	b := startNode(t, WithBootstrap(a.Addr().String()))
	require.NoError(t, a.RegisterApplication(5060, srv))

	got, err := b.ApplicationAddress(waitCtx(t), a.ID(), 5060).Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, srv, got)

	_, err = b.ApplicationAddress(waitCtx(t), a.ID(), 80).Wait(waitCtx(t))
	assert.Error(t, err)

	assert.True(t, a.UnregisterApplication(5060))
}

// TestNode_Registerer 测试指标注册到注入的注册器
func TestNode_Registerer(t *testing.T) {
	reg := prometheus.NewRegistry()
	startNode(t, WithRegisterer(reg))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

// TestVersionInfo 测试版本字符串
func TestVersionInfo(t *testing.T) {
	assert.Contains(t, VersionInfo(), Version)
}

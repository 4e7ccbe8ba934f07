package reload

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-reload/config"
	"github.com/dep2p/go-reload/internal/core/appattach"
	"github.com/dep2p/go-reload/internal/core/connmgr"
	"github.com/dep2p/go-reload/internal/core/dht"
	"github.com/dep2p/go-reload/internal/core/eventbus"
	"github.com/dep2p/go-reload/internal/core/routing"
	"github.com/dep2p/go-reload/internal/core/storage/engine"
	"github.com/dep2p/go-reload/internal/core/topology"
	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/lib/future"
	"github.com/dep2p/go-reload/pkg/lib/log"
	"github.com/dep2p/go-reload/pkg/message"
)

var logger = log.Logger("reload")

const (
	// startTimeout Fx App 启动超时
	startTimeout = 30 * time.Second

	// stopTimeout Fx App 停止超时
	stopTimeout = 30 * time.Second
)

// ════════════════════════════════════════════════════════════════════════════
//                              节点状态
// ════════════════════════════════════════════════════════════════════════════

// NodeState 节点状态
type NodeState int

const (
	// StateIdle 已创建，未启动
	StateIdle NodeState = iota

	// StateRunning 运行中
	StateRunning

	// StateClosed 已关闭，不可重新启动
	StateClosed
)

// String 返回状态的字符串表示
func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              Node
// ════════════════════════════════════════════════════════════════════════════

// Node overlay 节点
//
// 由 New 创建，Start 启动，Close 关闭。除 ID 与 Config 外，
// 其余操作要求节点处于运行状态。
type Node struct {
	cfg *config.Config
	app *fx.App

	// 由 Fx 注入
	id        message.NodeID
	router    *routing.Router
	msgRouter interfaces.MessageRouter
	conns     *connmgr.Manager
	ring      *topology.Ring
	kinds     *dht.KindTable
	policies  *dht.PolicySet
	storage   *dht.Service
	attach    *appattach.Service
	engine    engine.Engine
	bus       *eventbus.Bus

	mu    sync.RWMutex
	state NodeState
}

// New 创建节点但不启动
//
// 示例：
//
//	node, err := reload.New(ctx,
//	    reload.WithDataDir("./data"),
//	    reload.WithListenAddr("0.0.0.0:6084"),
//	)
func New(_ context.Context, opts ...Option) (*Node, error) {
	o := newOptions()
	if err := o.apply(opts); err != nil {
		return nil, err
	}

	node := &Node{cfg: o.config}
	app, err := buildFxApp(o, node)
	if err != nil {
		return nil, err
	}
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	node.app = app
	return node, nil
}

// Start 创建节点并立即启动，等价于 New() + Start()
func Start(ctx context.Context, opts ...Option) (*Node, error) {
	node, err := New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := node.Start(ctx); err != nil {
		return nil, fmt.Errorf("start node: %w", err)
	}
	return node, nil
}

// Start 启动节点
//
// 依次打开存储引擎、恢复动态种类、开始监听并连接引导邻居。
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.state {
	case StateClosed:
		return ErrNodeClosed
	case StateRunning:
		return ErrAlreadyStarted
	}

	logger.Info("正在启动节点", "node_id", n.id, "overlay", n.cfg.Overlay.Name)
	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := n.app.Start(startCtx); err != nil {
		logger.Error("节点启动失败", "error", err)
		return fmt.Errorf("start fx app: %w", err)
	}

	n.state = StateRunning
	logger.Info("节点已启动", "node_id", n.id, "addr", n.listenAddrLocked())
	return nil
}

// Close 关闭节点并释放所有资源
//
// 运行中的节点先向邻居发送离开通知，再关闭链路、路由与存储。
// 重复调用返回 nil。
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state == StateClosed {
		return nil
	}
	wasRunning := n.state == StateRunning
	n.state = StateClosed

	var err error
	if wasRunning {
		logger.Info("正在关闭节点", "node_id", n.id)
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		err = multierr.Append(err, n.app.Stop(ctx))
	} else if n.engine != nil {
		// 构造时已打开存储引擎，未启动的节点直接关闭
		err = multierr.Append(err, n.engine.Close())
	}
	if err != nil {
		logger.Warn("节点关闭时出现错误", "error", err)
		return err
	}
	logger.Info("节点已关闭", "node_id", n.id)
	return nil
}

// State 返回节点状态
func (n *Node) State() NodeState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

func (n *Node) checkRunning() error {
	switch n.State() {
	case StateRunning:
		return nil
	case StateClosed:
		return ErrNodeClosed
	default:
		return ErrNotStarted
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              基本信息
// ════════════════════════════════════════════════════════════════════════════

// ID 返回节点标识
func (n *Node) ID() NodeID {
	return n.id
}

// Config 返回节点配置
func (n *Node) Config() *config.Config {
	return n.cfg
}

// Addr 返回链路监听地址，未监听时为 nil
func (n *Node) Addr() net.Addr {
	return n.conns.Addr()
}

func (n *Node) listenAddrLocked() string {
	if a := n.conns.Addr(); a != nil {
		return a.String()
	}
	return ""
}

// PendingRequests 返回等待应答的请求数
func (n *Node) PendingRequests() int {
	return n.router.Pending()
}

// Neighbors 返回当前邻居
func (n *Node) Neighbors() []NodeID {
	return n.conns.Neighbors()
}

// ════════════════════════════════════════════════════════════════════════════
//                              邻居链路
// ════════════════════════════════════════════════════════════════════════════

// Connect 与 addr 上的节点建立邻居链路，返回对端标识
func (n *Node) Connect(ctx context.Context, addr string) (NodeID, error) {
	if err := n.checkRunning(); err != nil {
		return nil, err
	}
	return n.conns.Dial(ctx, addr)
}

// Disconnect 断开与邻居的链路
func (n *Node) Disconnect(id NodeID) error {
	if err := n.checkRunning(); err != nil {
		return err
	}
	return n.conns.Disconnect(id)
}

// Subscribe 订阅节点事件
//
// eventType 为事件类型的指针，如 new(reload.EvtNeighborConnected)。
// 节点关闭时订阅通道被关闭。
func (n *Node) Subscribe(eventType any, opts ...SubscriptionOpt) (*Subscription, error) {
	if n.State() == StateClosed {
		return nil, ErrNodeClosed
	}
	return n.bus.Subscribe(eventType, opts...)
}

// Block 拒绝与 id 建立链路，已有链路立即断开
func (n *Node) Block(id NodeID) {
	n.conns.Gater().Block(id)
	if n.conns.IsNeighbor(id) {
		_ = n.conns.Disconnect(id)
	}
}

// Unblock 解除拒绝
func (n *Node) Unblock(id NodeID) {
	n.conns.Gater().Unblock(id)
}

// Ping 探测节点，返回往返时间
func (n *Node) Ping(ctx context.Context, id NodeID) (time.Duration, error) {
	if err := n.checkRunning(); err != nil {
		return 0, err
	}
	start := time.Now()
	msg, err := n.msgRouter.SendRequest(ctx, message.DestinationList{id}, &message.PingRequest{}).Wait(ctx)
	if err != nil {
		return 0, err
	}
	if _, ok := msg.Content().(*message.PingAnswer); !ok {
		return 0, fmt.Errorf("unexpected ping answer %s", msg.Content().ContentType())
	}
	return time.Since(start), nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              资源标识
// ════════════════════════════════════════════════════════════════════════════

// ResourceID 用 overlay 哈希把名称映射为资源标识
func (n *Node) ResourceID(name []byte) ResourceID {
	return n.ring.ResourceID(name)
}

// NodeResourceID 返回本节点在 node-match 种类下可写的资源标识
func (n *Node) NodeResourceID() ResourceID {
	return n.policies.NodeMatch.ResourceIDFor(n.id)
}

// UserResourceID 返回用户名在 user-match 种类下的资源标识
func (n *Node) UserResourceID(username string) ResourceID {
	return n.policies.UserMatch.ResourceIDFor(username)
}

// ════════════════════════════════════════════════════════════════════════════
//                              存储
// ════════════════════════════════════════════════════════════════════════════

// Store 签名并把值存到负责 resource 的节点
func (n *Node) Store(ctx context.Context, resource ResourceID, prepared ...*PreparedData) *future.Future[[]StoreKindResponse] {
	if err := n.checkRunning(); err != nil {
		return future.Failed[[]StoreKindResponse](err)
	}
	return n.storage.Store(ctx, resource, prepared...)
}

// Fetch 取回并校验值
func (n *Node) Fetch(ctx context.Context, resource ResourceID, specs ...StoredDataSpecifier) *future.Future[[]FetchKindResponse] {
	if err := n.checkRunning(); err != nil {
		return future.Failed[[]FetchKindResponse](err)
	}
	return n.storage.Fetch(ctx, resource, specs...)
}

// Remove 删除选择器选中的值
func (n *Node) Remove(ctx context.Context, resource ResourceID, spec StoredDataSpecifier) *future.Future[[]StoreKindResponse] {
	if err := n.checkRunning(); err != nil {
		return future.Failed[[]StoreKindResponse](err)
	}
	return n.storage.Remove(ctx, resource, spec)
}

// Stat 取回元数据
func (n *Node) Stat(ctx context.Context, resource ResourceID, specs ...StoredDataSpecifier) *future.Future[[]StatKindResponse] {
	if err := n.checkRunning(); err != nil {
		return future.Failed[[]StatKindResponse](err)
	}
	return n.storage.Stat(ctx, resource, specs...)
}

// KnownKinds 返回本节点已知的种类标识
func (n *Node) KnownKinds() []KindID {
	all := n.kinds.All()
	out := make([]KindID, 0, len(all))
	for _, k := range all {
		out = append(out, k.ID)
	}
	return out
}

// ════════════════════════════════════════════════════════════════════════════
//                              应用连接
// ════════════════════════════════════════════════════════════════════════════

// RegisterApplication 登记本节点上监听在 addr 的应用服务器
func (n *Node) RegisterApplication(application uint16, addr netip.AddrPort) error {
	return n.attach.RegisterServer(application, addr)
}

// UnregisterApplication 注销应用服务器
func (n *Node) UnregisterApplication(application uint16) bool {
	return n.attach.UnregisterServer(application)
}

// ApplicationAddress 向节点 dest 请求应用服务器地址，返回可连通的候选
func (n *Node) ApplicationAddress(ctx context.Context, dest NodeID, application uint16) *future.Future[netip.AddrPort] {
	if err := n.checkRunning(); err != nil {
		return future.Failed[netip.AddrPort](err)
	}
	return n.attach.RequestAddress(ctx, message.DestinationList{dest}, application)
}

package connmgr

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-reload/internal/core/eventbus"
	"github.com/dep2p/go-reload/internal/core/metrics"
	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/lib/log"
	"github.com/dep2p/go-reload/pkg/message"
)

var logger = log.Logger("core/connmgr")

// InboundFunc 处理从邻居收到的一帧
type InboundFunc func(ctx context.Context, from message.NodeID, frame []byte)

// Manager 邻居链路管理器
type Manager struct {
	cfg     Config
	local   message.NodeID
	hello   hello
	gater   *Gater
	metrics *metrics.Metrics
	inbound atomic.Value // InboundFunc
	events  atomic.Pointer[emitters]

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	links    map[string]*link
	listener net.Listener
	closed   bool

	wg sync.WaitGroup
}

var _ interfaces.ConnectionManager = (*Manager)(nil)

// New 创建链路管理器
func New(cfg Config, local message.NodeID, m *metrics.Metrics) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:     cfg,
		local:   local,
		hello:   hello{OverlayHash: cfg.OverlayHash, Version: cfg.Version, NodeID: local},
		gater:   NewGater(),
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
		links:   make(map[string]*link),
	}, nil
}

// SetInbound 设置入站帧处理函数
func (m *Manager) SetInbound(fn InboundFunc) {
	m.inbound.Store(fn)
}

// emitters 邻居事件发射器
type emitters struct {
	up    *eventbus.Emitter
	down  *eventbus.Emitter
	count *eventbus.Emitter
}

// SetEventBus 在 bus 上发布邻居事件
func (m *Manager) SetEventBus(bus *eventbus.Bus) error {
	up, err := bus.Emitter(new(eventbus.EvtNeighborConnected))
	if err != nil {
		return err
	}
	down, err := bus.Emitter(new(eventbus.EvtNeighborDisconnected))
	if err != nil {
		_ = up.Close()
		return err
	}
	count, err := bus.Emitter(new(eventbus.EvtNeighborCount), eventbus.Stateful())
	if err != nil {
		_ = up.Close()
		_ = down.Close()
		return err
	}
	m.events.Store(&emitters{up: up, down: down, count: count})
	return nil
}

func (m *Manager) emit(evt any, count int) {
	em := m.events.Load()
	if em == nil {
		return
	}
	switch evt.(type) {
	case eventbus.EvtNeighborConnected:
		_ = em.up.Emit(evt)
	case eventbus.EvtNeighborDisconnected:
		_ = em.down.Emit(evt)
	}
	_ = em.count.Emit(eventbus.EvtNeighborCount{Count: count})
}

// Gater 返回门控器
func (m *Manager) Gater() *Gater {
	return m.gater
}

// LocalID 本节点标识
func (m *Manager) LocalID() message.NodeID {
	return m.local
}

// Listen 在 addr 上接受入站链路
func (m *Manager) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = ln.Close()
		return ErrManagerClosed
	}
	m.listener = ln
	m.wg.Add(1)
	m.mu.Unlock()

	logger.Info("开始监听邻居链路", "addr", ln.Addr().String())
	go m.acceptLoop(ln)
	return nil
}

// Addr 返回监听地址，未监听时为 nil
func (m *Manager) Addr() net.Addr {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

func (m *Manager) acceptLoop(ln net.Listener) {
	defer m.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				logger.Warn("接受链路失败", "error", err)
			}
			return
		}
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if _, err := m.AddConn(conn, false); err != nil {
				logger.Debug("拒绝入站链路", "remote", conn.RemoteAddr().String(), "error", err)
			}
		}()
	}
}

// Dial 连接 addr 并完成握手，返回对端节点标识
func (m *Manager) Dial(ctx context.Context, addr string) (message.NodeID, error) {
	d := net.Dialer{Timeout: m.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return m.AddConn(conn, true)
}

// AddConn 在已建立的连接上握手并加入邻居表
//
// 失败时连接被关闭。
func (m *Manager) AddConn(conn net.Conn, outbound bool) (message.NodeID, error) {
	r := bufio.NewReader(conn)
	peer, err := handshake(conn, r, m.hello, m.cfg, outbound)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if !m.gater.Allow(peer.NodeID) {
		_ = conn.Close()
		return nil, ErrLinkDenied
	}

	l := newLink(conn, r, peer.NodeID, outbound, m.cfg.WriteTimeout)
	count, err := m.insert(l)
	if err != nil {
		l.close()
		return nil, err
	}

	remote := conn.RemoteAddr().String()
	logger.Info("邻居已连接", "node", peer.NodeID, "remote", remote, "outbound", outbound)
	m.emit(eventbus.EvtNeighborConnected{ID: peer.NodeID, Addr: remote, Outbound: outbound}, count)
	go m.readLoop(l)
	return peer.NodeID, nil
}

// insert 加入邻居表，返回加入后的邻居数
func (m *Manager) insert(l *link) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrManagerClosed
	}
	if _, ok := m.links[string(l.id)]; ok {
		return 0, ErrDuplicateLink
	}
	if len(m.links) >= m.cfg.MaxNeighbors {
		return 0, ErrTooManyNeighbors
	}
	m.links[string(l.id)] = l
	count := m.countLocked()
	m.metrics.SetNeighbors(count)
	// 读循环计数在持锁时加入，Close 之后不会再增加
	m.wg.Add(1)
	return count, nil
}

func (m *Manager) countLocked() int {
	n := 0
	for _, l := range m.links {
		if !l.leaving.Load() {
			n++
		}
	}
	return n
}

func (m *Manager) readLoop(l *link) {
	defer m.wg.Done()
	defer m.drop(l, "closed")
	for {
		frame, err := readFrame(l.r, m.cfg.MaxMessageSize)
		if errors.Is(err, ErrFrameTooLarge) {
			logger.Debug("丢弃超长帧", "node", l.id, "error", err)
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Debug("读取链路失败", "node", l.id, "error", err)
			}
			return
		}
		m.metrics.AddBytesIn(frameHeaderLen + len(frame))
		if fn, _ := m.inbound.Load().(InboundFunc); fn != nil {
			fn(m.ctx, l.id, frame)
		}
	}
}

// drop 从邻居表移除并关闭链路
func (m *Manager) drop(l *link, reason string) {
	m.mu.Lock()
	cur, ok := m.links[string(l.id)]
	removed := ok && cur == l
	count := 0
	if removed {
		delete(m.links, string(l.id))
		count = m.countLocked()
		m.metrics.SetNeighbors(count)
	}
	m.mu.Unlock()
	l.close()
	if removed {
		logger.Info("邻居已断开", "node", l.id, "reason", reason)
		m.emit(eventbus.EvtNeighborDisconnected{ID: l.id, Reason: reason}, count)
	}
}

func (m *Manager) lookup(id message.NodeID) *link {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.links[string(id)]
}

// IsNeighbor 实现 interfaces.ConnectionManager
//
// 已发出离开通知的邻居在链路关闭前仍可收发。
func (m *Manager) IsNeighbor(id message.NodeID) bool {
	return m.lookup(id) != nil
}

// Neighbors 实现 interfaces.ConnectionManager，按标识排序，不含正在离开的邻居
func (m *Manager) Neighbors() []message.NodeID {
	m.mu.RLock()
	out := make([]message.NodeID, 0, len(m.links))
	for _, l := range m.links {
		if !l.leaving.Load() {
			out = append(out, l.id)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i], out[j]) < 0 })
	return out
}

// Send 实现 interfaces.ConnectionManager
func (m *Manager) Send(ctx context.Context, to message.NodeID, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := m.lookup(to)
	if l == nil {
		return ErrNotNeighbor
	}
	if len(frame) > m.cfg.MaxMessageSize {
		return ErrFrameTooLarge
	}
	if err := l.send(frame); err != nil {
		m.drop(l, "write failed")
		return err
	}
	m.metrics.AddBytesOut(frameHeaderLen + len(frame))
	return nil
}

// Disconnect 关闭到 id 的链路
func (m *Manager) Disconnect(id message.NodeID) error {
	l := m.lookup(id)
	if l == nil {
		return ErrNotNeighbor
	}
	m.drop(l, "disconnect")
	return nil
}

// Close 停止监听并关闭全部链路
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	ln := m.listener
	links := make([]*link, 0, len(m.links))
	for _, l := range m.links {
		links = append(links, l)
	}
	m.mu.Unlock()

	m.cancel()
	var err error
	if ln != nil {
		err = ln.Close()
	}
	for _, l := range links {
		m.drop(l, "shutdown")
	}
	m.wg.Wait()
	if em := m.events.Load(); em != nil {
		_ = em.up.Close()
		_ = em.down.Close()
		_ = em.count.Close()
	}
	return err
}

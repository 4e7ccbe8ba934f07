package eventbus

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-reload/pkg/lib/log"
)

var logger = log.Logger("core/eventbus")

var (
	// ErrClosed 总线已关闭
	ErrClosed = errors.New("eventbus: closed")

	// ErrInvalidEventType 事件类型为空
	ErrInvalidEventType = errors.New("eventbus: invalid event type")

	// ErrNonPointerType 事件类型不是指针
	ErrNonPointerType = errors.New("eventbus: event type must be a pointer")

	// ErrTypeMismatch 发射的事件与发射器类型不符
	ErrTypeMismatch = errors.New("eventbus: event type mismatch")
)

// defaultBufSize 订阅默认缓冲区大小
const defaultBufSize = 16

// Bus 事件总线
type Bus struct {
	mu     sync.Mutex
	nodes  map[reflect.Type]*node
	closed bool
}

// node 单个事件类型的订阅者与状态
type node struct {
	mu        sync.Mutex
	typ       reflect.Type
	sinks     []*Subscription
	emitters  int
	keepLast  bool
	last      any
	dropCount atomic.Int64
}

// NewBus 创建事件总线
func NewBus() *Bus {
	return &Bus{nodes: make(map[reflect.Type]*node)}
}

func elemType(eventType any) (reflect.Type, error) {
	if eventType == nil {
		return nil, ErrInvalidEventType
	}
	typ := reflect.TypeOf(eventType)
	if typ.Kind() != reflect.Pointer {
		return nil, ErrNonPointerType
	}
	return typ.Elem(), nil
}

// Subscribe 订阅 eventType 指向的事件类型
func (b *Bus) Subscribe(eventType any, opts ...SubscriptionOpt) (*Subscription, error) {
	typ, err := elemType(eventType)
	if err != nil {
		return nil, err
	}
	s := subscriptionSettings{buffer: defaultBufSize}
	for _, opt := range opts {
		opt(&s)
	}

	sub := &Subscription{bus: b, typ: typ, out: make(chan any, s.buffer)}
	err = b.withNode(typ, func(n *node) {
		n.sinks = append(n.sinks, sub)
		if n.keepLast && n.last != nil {
			select {
			case sub.out <- n.last:
			default:
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Emitter 返回 eventType 指向的事件类型的发射器
func (b *Bus) Emitter(eventType any, opts ...EmitterOpt) (*Emitter, error) {
	typ, err := elemType(eventType)
	if err != nil {
		return nil, err
	}
	var s emitterSettings
	for _, opt := range opts {
		opt(&s)
	}

	em := &Emitter{bus: b, typ: typ}
	err = b.withNode(typ, func(n *node) {
		n.emitters++
		n.keepLast = n.keepLast || s.stateful
		em.node = n
	})
	if err != nil {
		return nil, err
	}
	return em, nil
}

// Close 关闭总线，关闭全部订阅通道
//
// 之后的 Subscribe 与 Emitter 返回 ErrClosed，已有发射器的 Emit 也返回 ErrClosed。
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	nodes := b.nodes
	b.nodes = make(map[reflect.Type]*node)
	b.mu.Unlock()

	for _, n := range nodes {
		n.mu.Lock()
		for _, sub := range n.sinks {
			sub.closeOut()
		}
		n.sinks = nil
		n.mu.Unlock()
	}
	return nil
}

func (b *Bus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// withNode 在 typ 的节点上执行 cb，节点不存在时创建
func (b *Bus) withNode(typ reflect.Type, cb func(*node)) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	n, ok := b.nodes[typ]
	if !ok {
		n = &node{typ: typ}
		b.nodes[typ] = n
	}
	n.mu.Lock()
	b.mu.Unlock()

	cb(n)
	n.mu.Unlock()
	return nil
}

// release 在节点没有订阅者也没有发射器时移除它
func (b *Bus) release(typ reflect.Type, cb func(*node)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[typ]
	if !ok {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	cb(n)
	// 有状态节点保留最后的事件供后续订阅者回放
	if len(n.sinks) == 0 && n.emitters == 0 && !n.keepLast {
		delete(b.nodes, typ)
	}
}

func (b *Bus) removeSub(sub *Subscription) {
	b.release(sub.typ, func(n *node) {
		for i, s := range n.sinks {
			if s == sub {
				n.sinks = append(n.sinks[:i], n.sinks[i+1:]...)
				break
			}
		}
	})
}

// emit 非阻塞地把事件投递给全部订阅者
func (n *node) emit(evt any) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.keepLast {
		n.last = evt
	}
	for _, sub := range n.sinks {
		select {
		case sub.out <- evt:
		default:
			// 每 100 次丢弃记一次，避免日志泛滥
			if dropped := n.dropCount.Add(1); dropped%100 == 1 {
				logger.Warn("订阅者缓冲区已满，丢弃事件", "type", n.typ.String(), "dropped", dropped)
			}
		}
	}
}

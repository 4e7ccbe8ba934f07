package eventbus

import (
	"reflect"
	"sync"
)

// Subscription 事件订阅
type Subscription struct {
	bus *Bus
	typ reflect.Type
	out chan any

	once sync.Once
}

// Out 返回事件通道，订阅或总线关闭后通道被关闭
func (s *Subscription) Out() <-chan any {
	return s.out
}

// Close 取消订阅
func (s *Subscription) Close() error {
	s.bus.removeSub(s)
	s.closeOut()
	return nil
}

// closeOut 调用方需持有节点锁，或订阅已从节点移除
func (s *Subscription) closeOut() {
	s.once.Do(func() { close(s.out) })
}

// Emitter 事件发射器
type Emitter struct {
	bus  *Bus
	node *node
	typ  reflect.Type

	mu     sync.Mutex
	closed bool
}

// Emit 发射事件，事件的类型必须与发射器一致
func (e *Emitter) Emit(evt any) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed || e.bus.isClosed() {
		return ErrClosed
	}
	if reflect.TypeOf(evt) != e.typ {
		return ErrTypeMismatch
	}
	e.node.emit(evt)
	return nil
}

// Close 关闭发射器，重复调用返回 nil
func (e *Emitter) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.bus.release(e.typ, func(n *node) { n.emitters-- })
	return nil
}

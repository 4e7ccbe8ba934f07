// Package future 提供请求/应答关联使用的一次性结果容器
package future

import (
	"context"
	"errors"
	"sync"
)

// ErrCancelled 调用方取消了等待
var ErrCancelled = errors.New("future: cancelled")

// Future 一次性完成的异步结果
//
// 多个 goroutine 可以同时等待同一个 Future；完成（成功、失败或取消）只生效一次。
type Future[T any] struct {
	done     chan struct{}
	once     sync.Once
	val      T
	err      error
	mu       sync.Mutex
	onCancel []func()
}

// New 创建未完成的 Future
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed 创建已成功完成的 Future
func Completed[T any](v T) *Future[T] {
	f := New[T]()
	f.Complete(v)
	return f
}

// Failed 创建已失败的 Future
func Failed[T any](err error) *Future[T] {
	f := New[T]()
	f.Fail(err)
	return f
}

// complete 完成（成功或失败），返回本次调用是否生效
func (f *Future[T]) complete(v T, err error) bool {
	ok := false
	f.once.Do(func() {
		f.val = v
		f.err = err
		close(f.done)
		ok = true
	})
	return ok
}

// Complete 以结果完成
func (f *Future[T]) Complete(v T) bool {
	return f.complete(v, nil)
}

// Fail 以错误完成
func (f *Future[T]) Fail(err error) bool {
	var zero T
	return f.complete(zero, err)
}

// Cancel 放弃等待
//
// 只释放本地等待者并执行取消回调，不会撤回已发出的请求。
func (f *Future[T]) Cancel() bool {
	if !f.Fail(ErrCancelled) {
		return false
	}
	f.mu.Lock()
	hooks := f.onCancel
	f.onCancel = nil
	f.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	return true
}

// OnCancel 注册取消回调
func (f *Future[T]) OnCancel(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onCancel = append(f.onCancel, fn)
}

// Done 完成信号
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsDone 是否已完成
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait 等待完成或 ctx 结束
//
// ctx 结束不会取消 Future，其他等待者不受影响。
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then 在 f 成功后用 fn 转换结果
//
// 取消返回的 Future 会一并取消 f。
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	return Handle(f, func(v T, err error) (U, error) {
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(v)
	})
}

// Handle 在 f 完成后（无论成功或失败）用 fn 转换结果
//
// 取消返回的 Future 会一并取消 f。
func Handle[T, U any](f *Future[T], fn func(T, error) (U, error)) *Future[U] {
	out := New[U]()
	out.OnCancel(func() { f.Cancel() })
	go func() {
		select {
		case <-f.done:
		case <-out.done:
			return
		}
		v, err := fn(f.val, f.err)
		if err != nil {
			out.Fail(err)
			return
		}
		out.Complete(v)
	}()
	return out
}

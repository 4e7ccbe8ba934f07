package codec

import (
	"fmt"
)

// EncodeFunc 编码函数
type EncodeFunc[T any] func(enc *Encoder, v T) error

// DecodeFunc 解码函数
type DecodeFunc[T any] func(dec *Decoder) (T, error)

// Pair 一个类型标签对应的编解码函数对
type Pair[T any] struct {
	Encode EncodeFunc[T]
	Decode DecodeFunc[T]
}

// Registry 类型标签到编解码函数对的静态注册表
//
// 只在包初始化阶段写入，之后只读，因此查找不需要加锁。
type Registry[K comparable, T any] struct {
	name  string
	pairs map[K]Pair[T]
}

// NewRegistry 创建注册表
func NewRegistry[K comparable, T any](name string) *Registry[K, T] {
	return &Registry[K, T]{
		name:  name,
		pairs: make(map[K]Pair[T]),
	}
}

// Register 注册标签的编解码函数对
//
// 重复注册同一标签会 panic，这只可能是编程错误。
func (r *Registry[K, T]) Register(tag K, p Pair[T]) {
	if p.Encode == nil || p.Decode == nil {
		panic(fmt.Sprintf("codec: %s registry: incomplete pair for %v", r.name, tag))
	}
	if _, ok := r.pairs[tag]; ok {
		panic(fmt.Sprintf("codec: %s registry: duplicate tag %v", r.name, tag))
	}
	r.pairs[tag] = p
}

// Lookup 查找标签的编解码函数对
func (r *Registry[K, T]) Lookup(tag K) (Pair[T], error) {
	p, ok := r.pairs[tag]
	if !ok {
		return Pair[T]{}, NewError("lookup", ErrUnknownType, fmt.Sprintf("%s %v", r.name, tag))
	}
	return p, nil
}

// Has 标签是否已注册
func (r *Registry[K, T]) Has(tag K) bool {
	_, ok := r.pairs[tag]
	return ok
}

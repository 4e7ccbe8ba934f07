// Package kv 提供带前缀隔离的键值存储
//
// 多个组件共享一个引擎，通过键前缀隔离数据。
package kv

import (
	"encoding/binary"
	"encoding/json"

	"github.com/dep2p/go-reload/internal/core/storage/engine"
)

// Store 前缀隔离的键值存储
type Store struct {
	engine engine.Engine
	prefix []byte
}

// New 创建前缀为 prefix 的 Store
func New(eng engine.Engine, prefix []byte) *Store {
	return &Store{engine: eng, prefix: append([]byte(nil), prefix...)}
}

func (s *Store) prefixKey(key []byte) []byte {
	out := make([]byte, len(s.prefix)+len(key))
	copy(out, s.prefix)
	copy(out[len(s.prefix):], key)
	return out
}

func (s *Store) stripPrefix(key []byte) []byte {
	if len(key) < len(s.prefix) {
		return key
	}
	return key[len(s.prefix):]
}

// Get 读取键
func (s *Store) Get(key []byte) ([]byte, error) {
	return s.engine.Get(s.prefixKey(key))
}

// Put 写入键值
func (s *Store) Put(key, value []byte) error {
	return s.engine.Put(s.prefixKey(key), value)
}

// Delete 删除键
func (s *Store) Delete(key []byte) error {
	return s.engine.Delete(s.prefixKey(key))
}

// Has 检查键是否存在
func (s *Store) Has(key []byte) (bool, error) {
	return s.engine.Has(s.prefixKey(key))
}

// GetJSON 读取并反序列化 JSON 值
func (s *Store) GetJSON(key []byte, v interface{}) error {
	data, err := s.Get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// PutJSON 序列化为 JSON 后写入
func (s *Store) PutJSON(key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(key, data)
}

// GetUint64 读取大端 uint64
func (s *Store) GetUint64(key []byte) (uint64, error) {
	data, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, engine.ErrCorrupted
	}
	return binary.BigEndian.Uint64(data), nil
}

// PutUint64 写入大端 uint64
func (s *Store) PutUint64(key []byte, value uint64) error {
	var data [8]byte
	binary.BigEndian.PutUint64(data[:], value)
	return s.Put(key, data[:])
}

// PrefixScan 遍历子前缀下的键值，回调中的键已去除 Store 前缀
func (s *Store) PrefixScan(subPrefix []byte, fn func(key, value []byte) bool) error {
	return s.engine.Scan(s.prefixKey(subPrefix), func(key, value []byte) bool {
		return fn(s.stripPrefix(key), value)
	})
}

// Keys 返回子前缀下的全部键
func (s *Store) Keys(subPrefix []byte) ([][]byte, error) {
	var keys [][]byte
	err := s.PrefixScan(subPrefix, func(key, _ []byte) bool {
		keys = append(keys, key)
		return true
	})
	return keys, err
}

// Count 统计子前缀下的键数
func (s *Store) Count(subPrefix []byte) (int, error) {
	n := 0
	err := s.PrefixScan(subPrefix, func(_, _ []byte) bool {
		n++
		return true
	})
	return n, err
}

// DeletePrefix 批量删除子前缀下的全部键
func (s *Store) DeletePrefix(subPrefix []byte) error {
	keys, err := s.Keys(subPrefix)
	if err != nil || len(keys) == 0 {
		return err
	}

	batch := s.engine.NewBatch()
	for _, key := range keys {
		if err := batch.Delete(s.prefixKey(key)); err != nil {
			batch.Cancel()
			return err
		}
	}
	return batch.Flush()
}

// Update 在读写事务中执行 fn
func (s *Store) Update(fn func(tx *Txn) error) error {
	return s.engine.Update(func(t engine.Txn) error {
		return fn(&Txn{store: s, txn: t})
	})
}

// View 在只读事务中执行 fn
func (s *Store) View(fn func(tx *Txn) error) error {
	return s.engine.View(func(t engine.Txn) error {
		return fn(&Txn{store: s, txn: t})
	})
}

// SubStore 返回追加子前缀后的 Store
func (s *Store) SubStore(subPrefix []byte) *Store {
	return &Store{engine: s.engine, prefix: s.prefixKey(subPrefix)}
}

// Prefix 返回 Store 前缀
func (s *Store) Prefix() []byte {
	return s.prefix
}

// Txn 带前缀的事务视图
type Txn struct {
	store *Store
	txn   engine.Txn
}

// Get 读取键
func (t *Txn) Get(key []byte) ([]byte, error) {
	return t.txn.Get(t.store.prefixKey(key))
}

// Set 写入键值
func (t *Txn) Set(key, value []byte) error {
	return t.txn.Set(t.store.prefixKey(key), value)
}

// Delete 删除键
func (t *Txn) Delete(key []byte) error {
	return t.txn.Delete(t.store.prefixKey(key))
}

// Scan 遍历子前缀
func (t *Txn) Scan(subPrefix []byte, fn func(key, value []byte) bool) error {
	return t.txn.Scan(t.store.prefixKey(subPrefix), func(key, value []byte) bool {
		return fn(t.store.stripPrefix(key), value)
	})
}

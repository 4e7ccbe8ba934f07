package badger

import (
	"github.com/dep2p/go-reload/internal/core/storage/engine"
	"github.com/dgraph-io/badger/v4"
)

// txn 包装 badger.Txn，只在 Update/View 回调内有效
type txn struct {
	e   *Engine
	txn *badger.Txn
}

func (t *txn) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, engine.ErrEmptyKey
	}
	t.e.stats.reads.Add(1)
	item, err := t.txn.Get(key)
	if err != nil {
		return nil, convertError(err)
	}
	return item.ValueCopy(nil)
}

func (t *txn) Set(key, value []byte) error {
	if len(key) == 0 {
		return engine.ErrEmptyKey
	}
	if err := t.txn.Set(key, value); err != nil {
		return convertError(err)
	}
	t.e.stats.writes.Add(1)
	return nil
}

func (t *txn) Delete(key []byte) error {
	if len(key) == 0 {
		return engine.ErrEmptyKey
	}
	if err := t.txn.Delete(key); err != nil {
		return convertError(err)
	}
	t.e.stats.deletes.Add(1)
	return nil
}

func (t *txn) Scan(prefix []byte, fn func(key, value []byte) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		value, err := item.ValueCopy(nil)
		if err != nil {
			return convertError(err)
		}
		if !fn(item.KeyCopy(nil), value) {
			break
		}
	}
	return nil
}

// writeBatch 包装 badger.WriteBatch
type writeBatch struct {
	e     *Engine
	wb    *badger.WriteBatch
	count int
}

func (b *writeBatch) Put(key, value []byte) error {
	if len(key) == 0 {
		return engine.ErrEmptyKey
	}
	if err := b.wb.Set(key, value); err != nil {
		return convertError(err)
	}
	b.count++
	return nil
}

func (b *writeBatch) Delete(key []byte) error {
	if len(key) == 0 {
		return engine.ErrEmptyKey
	}
	if err := b.wb.Delete(key); err != nil {
		return convertError(err)
	}
	b.count++
	return nil
}

func (b *writeBatch) Flush() error {
	if b.e.closed.Load() {
		return engine.ErrClosed
	}
	if err := b.wb.Flush(); err != nil {
		return convertError(err)
	}
	b.e.stats.writes.Add(int64(b.count))
	b.count = 0
	return nil
}

func (b *writeBatch) Cancel() {
	b.wb.Cancel()
}

func (b *writeBatch) Size() int {
	return b.count
}

package badger

import (
	"fmt"
	"sync"
	"testing"

	"github.com/dep2p/go-reload/internal/core/storage/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := engine.DefaultConfig(t.TempDir())
	cfg.GCInterval = 0
	e, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, e.Start())
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// TestEngine_Basic 测试基础读写
func TestEngine_Basic(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Get([]byte("missing"))
	assert.True(t, engine.IsNotFound(err))

	require.NoError(t, e.Put([]byte("k"), []byte("v")))
	v, err := e.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	ok, err := e.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, e.Delete([]byte("k")))
	ok, err = e.Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, e.Put(nil, []byte("v")), engine.ErrEmptyKey)

	stats := e.Stats()
	assert.Positive(t, stats.NumWrites)
	assert.Positive(t, stats.NumReads)
}

// TestEngine_Scan 测试前缀遍历按字典序且不越界
func TestEngine_Scan(t *testing.T) {
	e := newTestEngine(t)
	for _, k := range []string{"a/2", "a/1", "b/1", "a/3"} {
		require.NoError(t, e.Put([]byte(k), []byte(k)))
	}

	var keys []string
	require.NoError(t, e.Scan([]byte("a/"), func(key, value []byte) bool {
		assert.Equal(t, key, value)
		keys = append(keys, string(key))
		return true
	}))
	assert.Equal(t, []string{"a/1", "a/2", "a/3"}, keys)

	keys = nil
	require.NoError(t, e.Scan([]byte("a/"), func(key, _ []byte) bool {
		keys = append(keys, string(key))
		return false
	}))
	assert.Len(t, keys, 1)
}

// TestEngine_Update 测试事务原子性
func TestEngine_Update(t *testing.T) {
	e := newTestEngine(t)

	err := e.Update(func(txn engine.Txn) error {
		require.NoError(t, txn.Set([]byte("x"), []byte("1")))
		return fmt.Errorf("abort")
	})
	assert.EqualError(t, err, "abort")
	_, err = e.Get([]byte("x"))
	assert.True(t, engine.IsNotFound(err), "回滚后不可见")

	require.NoError(t, e.Update(func(txn engine.Txn) error {
		if err := txn.Set([]byte("x"), []byte("1")); err != nil {
			return err
		}
		v, err := txn.Get([]byte("x"))
		if err != nil {
			return err
		}
		assert.Equal(t, []byte("1"), v, "事务内读己之写")
		return txn.Set([]byte("y"), []byte("2"))
	}))

	require.NoError(t, e.View(func(txn engine.Txn) error {
		v, err := txn.Get([]byte("y"))
		assert.Equal(t, []byte("2"), v)
		return err
	}))
}

// TestEngine_Batch 测试批量写入
func TestEngine_Batch(t *testing.T) {
	e := newTestEngine(t)

	b := e.NewBatch()
	for i := 0; i < 10; i++ {
		require.NoError(t, b.Put([]byte(fmt.Sprintf("k%02d", i)), []byte{byte(i)}))
	}
	assert.Equal(t, 10, b.Size())
	require.NoError(t, b.Flush())

	n := 0
	require.NoError(t, e.Scan([]byte("k"), func(_, _ []byte) bool { n++; return true }))
	assert.Equal(t, 10, n)
}

// TestEngine_Concurrent 测试并发读写
func TestEngine_Concurrent(t *testing.T) {
	e := newTestEngine(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := []byte(fmt.Sprintf("c%d", i))
			assert.NoError(t, e.Put(key, key))
			v, err := e.Get(key)
			assert.NoError(t, err)
			assert.Equal(t, key, v)
		}(i)
	}
	wg.Wait()
}

// TestEngine_Closed 测试关闭后操作失败
func TestEngine_Closed(t *testing.T) {
	cfg := engine.DefaultConfig(t.TempDir())
	e, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, e.Start())
	require.NoError(t, e.Close())
	require.NoError(t, e.Close(), "重复关闭无害")

	_, err = e.Get([]byte("k"))
	assert.True(t, engine.IsClosed(err))
	assert.ErrorIs(t, e.Start(), engine.ErrClosed)
}

// TestNew_InvalidConfig 测试无效配置
func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)

	_, err = New(engine.DefaultConfig(""))
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)
}

// Package badger 提供基于 BadgerDB 的存储引擎实现
package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-reload/internal/core/storage/engine"
	"github.com/dep2p/go-reload/pkg/lib/log"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

var logger = log.Logger("storage/badger")

// Engine BadgerDB 存储引擎
type Engine struct {
	db     *badger.DB
	config *engine.Config
	closed atomic.Bool

	stats struct {
		reads   atomic.Int64
		writes  atomic.Int64
		deletes atomic.Int64
		gcRuns  atomic.Int64
	}

	gcCtx    context.Context
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	startMu  sync.Mutex
	started  bool
}

// New 打开 BadgerDB 存储引擎
func New(cfg *engine.Config) (*Engine, error) {
	if cfg == nil {
		return nil, engine.ErrInvalidConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDir(); err != nil {
		return nil, err
	}

	db, err := badger.Open(buildOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", cfg.Path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		db:       db,
		config:   cfg,
		gcCtx:    ctx,
		gcCancel: cancel,
	}, nil
}

func buildOptions(cfg *engine.Config) badger.Options {
	opts := badger.DefaultOptions(cfg.Path).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithBlockCacheSize(cfg.BlockCacheSize).
		WithIndexCacheSize(cfg.IndexCacheSize).
		WithMemTableSize(cfg.MemTableSize).
		WithValueLogFileSize(cfg.ValueLogFileSize)

	if cfg.Compression > 0 {
		opts = opts.WithCompression(options.ZSTD).WithZSTDCompressionLevel(cfg.Compression)
	} else {
		opts = opts.WithCompression(options.None)
	}

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}
	return opts
}

// badgerLogger 将 engine.Logger 适配到 badger.Logger
type badgerLogger struct {
	logger engine.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warningf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// Start 启动值日志 GC
func (e *Engine) Start() error {
	if e.closed.Load() {
		return engine.ErrClosed
	}

	e.startMu.Lock()
	defer e.startMu.Unlock()
	if e.started {
		return nil
	}
	e.started = true

	if e.config.GCInterval > 0 {
		e.gcWg.Add(1)
		go e.gcLoop()
	}
	return nil
}

func (e *Engine) gcLoop() {
	defer e.gcWg.Done()

	ticker := time.NewTicker(e.config.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.gcCtx.Done():
			return
		case <-ticker.C:
			e.runGC()
		}
	}
}

// runGC 循环回收直到没有可重写的值日志
func (e *Engine) runGC() {
	for !e.closed.Load() {
		if err := e.db.RunValueLogGC(e.config.GCDiscardRatio); err != nil {
			if !errors.Is(err, badger.ErrNoRewrite) {
				logger.Debug("值日志 GC 结束", "error", err)
			}
			return
		}
		e.stats.gcRuns.Add(1)
	}
}

// Get 读取键
func (e *Engine) Get(key []byte) ([]byte, error) {
	var value []byte
	err := e.View(func(txn engine.Txn) error {
		var err error
		value, err = txn.Get(key)
		return err
	})
	return value, err
}

// Put 写入键值
func (e *Engine) Put(key, value []byte) error {
	return e.Update(func(txn engine.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete 删除键
func (e *Engine) Delete(key []byte) error {
	return e.Update(func(txn engine.Txn) error {
		return txn.Delete(key)
	})
}

// Has 检查键是否存在
func (e *Engine) Has(key []byte) (bool, error) {
	_, err := e.Get(key)
	switch {
	case err == nil:
		return true, nil
	case engine.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Scan 遍历前缀
func (e *Engine) Scan(prefix []byte, fn func(key, value []byte) bool) error {
	return e.View(func(txn engine.Txn) error {
		return txn.Scan(prefix, fn)
	})
}

// Update 读写事务
func (e *Engine) Update(fn func(txn engine.Txn) error) error {
	if e.closed.Load() {
		return engine.ErrClosed
	}
	return convertError(e.db.Update(func(t *badger.Txn) error {
		return fn(&txn{e: e, txn: t})
	}))
}

// View 只读事务
func (e *Engine) View(fn func(txn engine.Txn) error) error {
	if e.closed.Load() {
		return engine.ErrClosed
	}
	return convertError(e.db.View(func(t *badger.Txn) error {
		return fn(&txn{e: e, txn: t})
	}))
}

// NewBatch 创建批量写入
func (e *Engine) NewBatch() engine.Batch {
	return &writeBatch{e: e, wb: e.db.NewWriteBatch()}
}

// Sync 将数据刷到磁盘
func (e *Engine) Sync() error {
	if e.closed.Load() {
		return engine.ErrClosed
	}
	return e.db.Sync()
}

// Stats 返回统计信息
func (e *Engine) Stats() engine.Stats {
	lsm, vlog := e.db.Size()
	return engine.Stats{
		LSMSize:    lsm,
		VlogSize:   vlog,
		NumReads:   e.stats.reads.Load(),
		NumWrites:  e.stats.writes.Load(),
		NumDeletes: e.stats.deletes.Load(),
		NumGC:      e.stats.gcRuns.Load(),
	}
}

// Close 停止 GC 并关闭数据库
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	e.gcCancel()
	e.gcWg.Wait()
	return e.db.Close()
}

// convertError 将 BadgerDB 错误转换为引擎错误
func convertError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return engine.ErrNotFound
	case errors.Is(err, badger.ErrEmptyKey):
		return engine.ErrEmptyKey
	case errors.Is(err, badger.ErrTxnTooBig):
		return engine.ErrTxnTooLarge
	case errors.Is(err, badger.ErrConflict):
		return engine.ErrConflict
	case errors.Is(err, badger.ErrDBClosed):
		return engine.ErrClosed
	default:
		return err
	}
}

var _ engine.Engine = (*Engine)(nil)

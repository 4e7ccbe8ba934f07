package storage

import "github.com/dep2p/go-reload/internal/core/storage/engine"

// 重导出 engine 包的错误
var (
	ErrNotFound      = engine.ErrNotFound
	ErrClosed        = engine.ErrClosed
	ErrConflict      = engine.ErrConflict
	ErrInvalidConfig = engine.ErrInvalidConfig
	ErrCorrupted     = engine.ErrCorrupted
)

// 重导出错误检查函数
var (
	IsNotFound = engine.IsNotFound
	IsConflict = engine.IsConflict
	IsClosed   = engine.IsClosed
)

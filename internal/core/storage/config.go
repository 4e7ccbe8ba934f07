package storage

import (
	"time"

	"github.com/dep2p/go-reload/config"
	"github.com/dep2p/go-reload/internal/core/storage/engine"
)

// Config Storage 模块配置
type Config struct {
	// Path BadgerDB 数据库目录（必需）
	Path string

	// SyncWrites 每次写入同步到磁盘
	SyncWrites bool

	// GCInterval 值日志 GC 间隔，0 禁用
	GCInterval time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Path:       "./data/reload.db",
		GCInterval: 10 * time.Minute,
	}
}

// ConfigFromUnified 从统一配置创建 Storage 配置
func ConfigFromUnified(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	if cfg.Storage.DataDir != "" {
		c.Path = cfg.Storage.DBPath()
	}
	c.SyncWrites = cfg.Storage.SyncWrites
	c.GCInterval = cfg.Storage.GCInterval.Duration()
	return c
}

// ToEngineConfig 转换为引擎配置
func (c Config) ToEngineConfig() *engine.Config {
	ec := engine.DefaultConfig(c.Path)
	ec.SyncWrites = c.SyncWrites
	ec.GCInterval = c.GCInterval
	return ec
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.Path == "" || c.GCInterval < 0 {
		return ErrInvalidConfig
	}
	return nil
}

package engine

import (
	"os"
	"path/filepath"
	"time"
)

// Config 存储引擎配置
//
// 测试代码应使用 t.TempDir() 作为 Path。
type Config struct {
	// Path 数据目录路径（必需）
	Path string

	// SyncWrites 每次写入同步到磁盘
	SyncWrites bool

	// BlockCacheSize 块缓存大小（字节）
	BlockCacheSize int64

	// IndexCacheSize 索引缓存大小（字节），0 表示禁用
	IndexCacheSize int64

	// MemTableSize 内存表大小（字节）
	MemTableSize int64

	// ValueLogFileSize 值日志文件大小（字节）
	ValueLogFileSize int64

	// Compression ZSTD 压缩级别，0 禁用
	Compression int

	// GCInterval 值日志 GC 间隔，0 禁用
	GCInterval time.Duration

	// GCDiscardRatio 值日志 GC 丢弃比例
	GCDiscardRatio float64

	// Logger 引擎日志，nil 时静默
	Logger Logger
}

// Logger badger 风格的格式化日志
type Logger interface {
	Errorf(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// DefaultConfig 返回默认配置
func DefaultConfig(path string) *Config {
	return &Config{
		Path:             path,
		BlockCacheSize:   64 << 20,
		MemTableSize:     16 << 20,
		ValueLogFileSize: 64 << 20,
		Compression:      1,
		GCInterval:       10 * time.Minute,
		GCDiscardRatio:   0.5,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Path == "" {
		return ErrInvalidConfig
	}
	if c.MemTableSize < 1<<20 || c.ValueLogFileSize < 1<<20 {
		return ErrInvalidConfig
	}
	if c.GCInterval > 0 && (c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1) {
		return ErrInvalidConfig
	}
	return nil
}

// EnsureDir 创建数据目录并将 Path 规范为绝对路径
func (c *Config) EnsureDir() error {
	abs, err := filepath.Abs(c.Path)
	if err != nil {
		return err
	}
	c.Path = abs
	return os.MkdirAll(abs, 0o755)
}

package connmgr

import (
	"fmt"
	"time"

	"github.com/dep2p/go-reload/config"
	"github.com/dep2p/go-reload/pkg/lib/crypto"
)

// Config 连接管理器配置
type Config struct {
	// ListenAddr 监听地址，为空时不监听
	ListenAddr string

	// Bootstrap 启动时连接的邻居地址
	Bootstrap []string

	// MaxNeighbors 最大邻居数
	MaxNeighbors int

	// MaxMessageSize 单帧最大字节数
	MaxMessageSize int

	// DialTimeout 建立链路（含握手）的超时
	DialTimeout time.Duration

	// WriteTimeout 单帧写超时
	WriteTimeout time.Duration

	// LeaveGrace 收到 Leave 后保留链路的时间
	LeaveGrace time.Duration

	// OverlayHash overlay 名称哈希，握手时校验
	OverlayHash uint32

	// Version 协议版本，握手时校验
	Version uint8

	// NodeIDLength 节点标识长度
	NodeIDLength int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建连接管理器配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return Config{
		ListenAddr:     cfg.Link.ListenAddr,
		Bootstrap:      append([]string(nil), cfg.Link.Bootstrap...),
		MaxNeighbors:   cfg.Link.MaxNeighbors,
		MaxMessageSize: cfg.Overlay.MaxMessageSize,
		DialTimeout:    cfg.Link.DialTimeout.Duration(),
		WriteTimeout:   cfg.Link.WriteTimeout.Duration(),
		LeaveGrace:     cfg.Link.LeaveGrace.Duration(),
		OverlayHash:    crypto.OverlayNameHash(cfg.Overlay.Name),
		Version:        cfg.Overlay.Version,
		NodeIDLength:   cfg.Overlay.NodeIDLength,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.MaxNeighbors <= 0 {
		return fmt.Errorf("%w: max neighbors must be positive", ErrInvalidConfig)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("%w: max message size must be positive", ErrInvalidConfig)
	}
	if c.DialTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	if c.NodeIDLength <= 0 || c.NodeIDLength > 255 {
		return fmt.Errorf("%w: node id length out of range", ErrInvalidConfig)
	}
	return nil
}

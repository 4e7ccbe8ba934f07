package config

import (
	"errors"
	"time"
)

// LinkConfig 邻居链路配置
type LinkConfig struct {
	// ListenAddr 监听地址，为空时不接受入站链路
	ListenAddr string `json:"listen_addr"`

	// Bootstrap 启动时主动连接的邻居地址
	Bootstrap []string `json:"bootstrap"`

	// MaxNeighbors 最大邻居数
	MaxNeighbors int `json:"max_neighbors"`

	// DialTimeout 建立链路（含握手）的超时
	DialTimeout Duration `json:"dial_timeout"`

	// WriteTimeout 单帧写超时
	WriteTimeout Duration `json:"write_timeout"`

	// LeaveGrace 收到离开通知后保留链路以发送应答的时间
	LeaveGrace Duration `json:"leave_grace"`
}

// DefaultLinkConfig 返回默认链路配置
func DefaultLinkConfig() LinkConfig {
	return LinkConfig{
		MaxNeighbors: 64,
		DialTimeout:  Duration(10 * time.Second),
		WriteTimeout: Duration(5 * time.Second),
		LeaveGrace:   Duration(time.Second),
	}
}

// Validate 验证链路配置
func (c *LinkConfig) Validate() error {
	if c.MaxNeighbors <= 0 {
		return errors.New("link: max_neighbors must be positive")
	}
	if c.DialTimeout <= 0 || c.WriteTimeout <= 0 {
		return errors.New("link: dial_timeout and write_timeout must be positive")
	}
	if c.LeaveGrace < 0 {
		return errors.New("link: leave_grace cannot be negative")
	}
	return nil
}

package config

import (
	"errors"
	"time"
)

// RoutingConfig 转发与请求路由配置
type RoutingConfig struct {
	// OpaqueIDCapacity 不透明标识表容量
	OpaqueIDCapacity int `json:"opaque_id_capacity"`

	// OpaqueIDExpiry 不透明标识有效期
	OpaqueIDExpiry Duration `json:"opaque_id_expiry"`

	// ViaCompressThreshold via 列表超过该长度时压缩为不透明标识，0 禁用
	ViaCompressThreshold int `json:"via_compress_threshold"`

	// RequestTimeout 请求等待应答的超时
	RequestTimeout Duration `json:"request_timeout"`

	// ErrorReplyRate 每个上一跳每秒最多收到的错误应答数
	ErrorReplyRate float64 `json:"error_reply_rate"`

	// ErrorReplyBurst 每个上一跳的错误应答突发上限
	ErrorReplyBurst int `json:"error_reply_burst"`
}

// DefaultRoutingConfig 返回默认路由配置
func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		OpaqueIDCapacity:     4096,
		OpaqueIDExpiry:       Duration(10 * time.Minute),
		ViaCompressThreshold: 0,
		RequestTimeout:       Duration(15 * time.Second),
		ErrorReplyRate:       50,
		ErrorReplyBurst:      100,
	}
}

// Validate 验证路由配置
func (c *RoutingConfig) Validate() error {
	if c.OpaqueIDCapacity <= 0 {
		return errors.New("routing: opaque_id_capacity must be positive")
	}
	if c.OpaqueIDExpiry <= 0 {
		return errors.New("routing: opaque_id_expiry must be positive")
	}
	if c.ViaCompressThreshold < 0 {
		return errors.New("routing: via_compress_threshold cannot be negative")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("routing: request_timeout must be positive")
	}
	if c.ErrorReplyRate <= 0 || c.ErrorReplyBurst <= 0 {
		return errors.New("routing: error reply rate and burst must be positive")
	}
	return nil
}

package config

import "errors"

// OverlayConfig overlay 全局参数
//
// 同一 overlay 的全部节点必须使用相同的值。
type OverlayConfig struct {
	// Name overlay 名称，其哈希写入每个消息头
	Name string `json:"name"`

	// NodeIDLength 节点标识字节长度（16..20）
	NodeIDLength int `json:"node_id_length"`

	// ResourceIDLength 资源标识字节长度
	ResourceIDLength int `json:"resource_id_length"`

	// HashAlgorithm 资源标识哈希算法: "sha1" 或 "sha256"
	HashAlgorithm string `json:"hash_algorithm"`

	// InitialTTL 新消息的初始 TTL，收到更大 TTL 的消息视为错误
	InitialTTL uint8 `json:"initial_ttl"`

	// Version 协议版本
	Version uint8 `json:"version"`

	// MaxMessageSize 单条消息的最大字节数
	MaxMessageSize int `json:"max_message_size"`

	// ConfigurationSequence 当前配置序号
	ConfigurationSequence uint32 `json:"configuration_sequence"`
}

// DefaultOverlayConfig 返回默认 overlay 配置
func DefaultOverlayConfig() OverlayConfig {
	return OverlayConfig{
		Name:             "overlay.example.org",
		NodeIDLength:     16,
		ResourceIDLength: 16,
		HashAlgorithm:    "sha1",
		InitialTTL:       100,
		Version:          0x0a,
		MaxMessageSize:   64 << 10,
	}
}

// Validate 验证 overlay 配置
func (c *OverlayConfig) Validate() error {
	if c.Name == "" {
		return errors.New("overlay: name cannot be empty")
	}
	if c.NodeIDLength < 16 || c.NodeIDLength > 20 {
		return errors.New("overlay: node_id_length must be between 16 and 20")
	}
	if c.ResourceIDLength < 1 || c.ResourceIDLength > 255 {
		return errors.New("overlay: resource_id_length must be between 1 and 255")
	}
	switch c.HashAlgorithm {
	case "sha1", "sha256":
	default:
		return errors.New("overlay: hash_algorithm must be sha1 or sha256")
	}
	if c.InitialTTL == 0 {
		return errors.New("overlay: initial_ttl must be positive")
	}
	if c.MaxMessageSize < 1024 {
		return errors.New("overlay: max_message_size must be at least 1024")
	}
	return nil
}

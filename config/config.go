// Package config 提供统一的配置管理
//
// 主 Config 嵌入各组件的子配置，每个子配置在独立文件中定义，
// 提供 DefaultXxx() 与 Validate()。配置以 JSON 读写：
//
//	cfg := config.NewConfig()
//	cfg.Overlay.Name = "chat.example.org"
//
//	cfg, err := config.LoadFile("node.json")
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config 节点完整配置
//
//   - Overlay: overlay 全局参数（名称、标识长度、TTL）
//   - Identity: 节点密钥与证书
//   - Routing: 转发与请求路由
//   - Link: 邻居链路
//   - Storage: 数据存储
//   - Kinds: 可存储的数据种类
//   - Metrics: 指标
type Config struct {
	Overlay  OverlayConfig  `json:"overlay"`
	Identity IdentityConfig `json:"identity"`
	Routing  RoutingConfig  `json:"routing"`
	Link     LinkConfig     `json:"link"`
	Storage  StorageConfig  `json:"storage"`
	Kinds    KindsConfig    `json:"kinds"`
	Metrics  MetricsConfig  `json:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Overlay:  DefaultOverlayConfig(),
		Identity: DefaultIdentityConfig(),
		Routing:  DefaultRoutingConfig(),
		Link:     DefaultLinkConfig(),
		Storage:  DefaultStorageConfig(),
		Kinds:    DefaultKindsConfig(),
		Metrics:  DefaultMetricsConfig(),
	}
}

// Validate 验证全部子配置
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.Overlay, &c.Identity, &c.Routing, &c.Link, &c.Storage, &c.Kinds, &c.Metrics,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// FromJSON 从 JSON 数据创建配置，未出现的字段保持默认值
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadFile 读取并验证 JSON 配置文件
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := FromJSON(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToJSON 序列化为缩进 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

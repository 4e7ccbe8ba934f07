package dht

import (
	"time"

	"github.com/dep2p/go-reload/config"
	"github.com/dep2p/go-reload/internal/core/identity"
	"github.com/dep2p/go-reload/pkg/lib/crypto"
	"github.com/dep2p/go-reload/pkg/message"
)

// Config 存储配置
type Config struct {
	// HashAlg overlay 哈希算法，用于资源标识、策略与元数据
	HashAlg message.HashAlgorithm

	// ResourceIDLength 资源标识字节长度
	ResourceIDLength int

	// CleanupInterval 过期数据清理间隔，0 禁用
	CleanupInterval time.Duration

	// Kinds 静态配置的种类
	Kinds config.KindsConfig
}

// ConfigFromUnified 从统一配置创建存储配置
func ConfigFromUnified(cfg *config.Config) (Config, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	alg, err := identity.ParseHashAlgorithm(cfg.Overlay.HashAlgorithm)
	if err != nil {
		return Config{}, err
	}
	return Config{
		HashAlg:          alg,
		ResourceIDLength: cfg.Overlay.ResourceIDLength,
		CleanupInterval:  cfg.Storage.CleanupInterval.Duration(),
		Kinds:            cfg.Kinds,
	}, nil
}

// Policies 按配置创建策略集合
func (c Config) Policies() (*PolicySet, error) {
	h, err := identity.HashFunc(c.HashAlg)
	if err != nil {
		return nil, err
	}
	return NewPolicySet(h, c.ResourceIDLength), nil
}

// ResourceID 由资源名计算资源标识
func (c Config) ResourceID(name []byte) (message.ResourceID, error) {
	h, err := identity.HashFunc(c.HashAlg)
	if err != nil {
		return nil, err
	}
	return message.ResourceID(crypto.Truncated(h, c.ResourceIDLength)(name)), nil
}

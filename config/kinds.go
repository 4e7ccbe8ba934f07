package config

import "fmt"

// KindConfig 一种可存储数据的定义
type KindConfig struct {
	// ID 种类标识
	ID uint32 `json:"id"`

	// DataModel 数据模型: "single"、"array"、"dictionary"
	DataModel string `json:"data_model"`

	// AccessPolicy 访问策略: "node-match"、"user-match"
	AccessPolicy string `json:"access_policy"`

	// MaxCount 每个资源最多保存的值数
	MaxCount uint32 `json:"max_count"`

	// MaxSize 单个值的最大字节数
	MaxSize uint32 `json:"max_size"`
}

// KindsConfig 种类列表
type KindsConfig struct {
	Kinds []KindConfig `json:"kinds"`
}

// DefaultKindsConfig 返回默认种类
func DefaultKindsConfig() KindsConfig {
	return KindsConfig{Kinds: []KindConfig{
		{ID: 1, DataModel: "single", AccessPolicy: "node-match", MaxCount: 1, MaxSize: 4096},
		{ID: 2, DataModel: "array", AccessPolicy: "node-match", MaxCount: 256, MaxSize: 4096},
		{ID: 3, DataModel: "dictionary", AccessPolicy: "node-match", MaxCount: 256, MaxSize: 4096},
		{ID: 4, DataModel: "dictionary", AccessPolicy: "user-match", MaxCount: 256, MaxSize: 4096},
	}}
}

// Validate 验证种类定义
func (c *KindsConfig) Validate() error {
	seen := make(map[uint32]struct{}, len(c.Kinds))
	for _, k := range c.Kinds {
		if _, dup := seen[k.ID]; dup {
			return fmt.Errorf("kinds: duplicate kind id %d", k.ID)
		}
		seen[k.ID] = struct{}{}

		switch k.DataModel {
		case "single", "array", "dictionary":
		default:
			return fmt.Errorf("kinds: kind %d has unknown data_model %q", k.ID, k.DataModel)
		}
		switch k.AccessPolicy {
		case "node-match", "user-match":
		default:
			return fmt.Errorf("kinds: kind %d has unknown access_policy %q", k.ID, k.AccessPolicy)
		}
		if k.MaxCount == 0 || k.MaxSize == 0 {
			return fmt.Errorf("kinds: kind %d needs positive max_count and max_size", k.ID)
		}
		if k.DataModel == "single" && k.MaxCount != 1 {
			return fmt.Errorf("kinds: single kind %d must have max_count 1", k.ID)
		}
	}
	return nil
}

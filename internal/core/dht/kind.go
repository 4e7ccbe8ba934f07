package dht

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dep2p/go-reload/config"
)

// KindID 种类标识
type KindID uint32

// DataModel 数据模型
type DataModel uint8

// 数据模型
const (
	ModelSingle     DataModel = 1
	ModelArray      DataModel = 2
	ModelDictionary DataModel = 3
)

func (m DataModel) String() string {
	switch m {
	case ModelSingle:
		return "single"
	case ModelArray:
		return "array"
	case ModelDictionary:
		return "dictionary"
	default:
		return fmt.Sprintf("model(%d)", uint8(m))
	}
}

// ParseDataModel 按名称解析数据模型
func ParseDataModel(name string) (DataModel, error) {
	switch name {
	case "single":
		return ModelSingle, nil
	case "array":
		return ModelArray, nil
	case "dictionary":
		return ModelDictionary, nil
	default:
		return 0, fmt.Errorf("dht: unknown data model %q", name)
	}
}

// DataKind 一种可存储数据
type DataKind struct {
	ID       KindID
	Model    DataModel
	Policy   AccessPolicy
	MaxCount uint32
	MaxSize  uint32
}

// Describe 返回种类的线上描述
func (k *DataKind) Describe() KindDescription {
	return KindDescription{
		ID:       k.ID,
		Model:    k.Model,
		Policy:   k.Policy.Name(),
		MaxCount: k.MaxCount,
		MaxSize:  k.MaxSize,
	}
}

// KindTable 本节点认识的种类
type KindTable struct {
	mu    sync.RWMutex
	kinds map[KindID]*DataKind
}

// NewKindTable 创建种类表
func NewKindTable(kinds ...*DataKind) *KindTable {
	t := &KindTable{kinds: make(map[KindID]*DataKind, len(kinds))}
	for _, k := range kinds {
		t.kinds[k.ID] = k
	}
	return t
}

// Get 查找种类
func (t *KindTable) Get(id KindID) (*DataKind, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	k, ok := t.kinds[id]
	return k, ok
}

// Add 加入或替换种类
func (t *KindTable) Add(k *DataKind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.kinds[k.ID] = k
}

// Unknown 返回 ids 中不在表内的种类，保持原顺序
func (t *KindTable) Unknown(ids []KindID) []KindID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []KindID
	for _, id := range ids {
		if _, ok := t.kinds[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// All 按标识排序返回全部种类
func (t *KindTable) All() []*DataKind {
	t.mu.RLock()
	out := make([]*DataKind, 0, len(t.kinds))
	for _, k := range t.kinds {
		out = append(out, k)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// KindFromDescription 由描述创建种类
func KindFromDescription(d KindDescription, policies *PolicySet) (*DataKind, error) {
	p, err := policies.Get(d.Policy)
	if err != nil {
		return nil, err
	}
	switch d.Model {
	case ModelSingle, ModelArray, ModelDictionary:
	default:
		return nil, fmt.Errorf("dht: kind %d has unknown model %d", d.ID, d.Model)
	}
	return &DataKind{ID: d.ID, Model: d.Model, Policy: p, MaxCount: d.MaxCount, MaxSize: d.MaxSize}, nil
}

// KindsFromConfig 由配置创建种类表
func KindsFromConfig(cfg config.KindsConfig, policies *PolicySet) (*KindTable, error) {
	t := NewKindTable()
	for _, kc := range cfg.Kinds {
		model, err := ParseDataModel(kc.DataModel)
		if err != nil {
			return nil, err
		}
		k, err := KindFromDescription(KindDescription{
			ID:       KindID(kc.ID),
			Model:    model,
			Policy:   kc.AccessPolicy,
			MaxCount: kc.MaxCount,
			MaxSize:  kc.MaxSize,
		}, policies)
		if err != nil {
			return nil, err
		}
		t.Add(k)
	}
	return t, nil
}

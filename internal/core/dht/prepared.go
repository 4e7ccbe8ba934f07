package dht

import (
	"github.com/dep2p/go-reload/pkg/codec"
	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/message"
)

// DefaultLifeTime 默认生存期（秒）
const DefaultLifeTime uint32 = 86400

// PreparedData 待存储的一个值，由 Service.Store 签名后发送
type PreparedData struct {
	Kind       KindID
	Generation uint64
	LifeTime   uint32
	Value      Value
}

// NewPreparedData 创建使用默认生存期的待存储值
func NewPreparedData(kind KindID) *PreparedData {
	return &PreparedData{Kind: kind, LifeTime: DefaultLifeTime}
}

// SetSingle 设置单值
func (p *PreparedData) SetSingle(data []byte) *PreparedData {
	p.Value = SingleValue{Present: true, Data: data}
	return p
}

// SetArray 设置数组元素，index 为 AppendIndex 时由存储节点追加
func (p *PreparedData) SetArray(index uint32, data []byte) *PreparedData {
	p.Value = ArrayValue{Index: index, Entry: SingleValue{Present: true, Data: data}}
	return p
}

// SetDictionary 设置字典项
func (p *PreparedData) SetDictionary(key, data []byte) *PreparedData {
	p.Value = DictionaryValue{Key: key, Entry: SingleValue{Present: true, Data: data}}
	return p
}

// SetGeneration 设置期望的代数
func (p *PreparedData) SetGeneration(gen uint64) *PreparedData {
	p.Generation = gen
	return p
}

// SetLifeTime 设置生存期（秒）
func (p *PreparedData) SetLifeTime(seconds uint32) *PreparedData {
	p.LifeTime = seconds
	return p
}

// Build 以 storageTime（毫秒）签名生成 StoredData
func (p *PreparedData) Build(ctx *codec.Context, resource message.ResourceID,
	signer interfaces.Keystore, storageTime uint64) (*StoredData, error) {
	if p.Value == nil {
		return nil, &Error{Op: "prepare", Kind: p.Kind, Err: ErrModelMismatch}
	}
	tbs, err := SigningBytes(ctx, resource, p.Kind, storageTime, p.Value)
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(tbs)
	if err != nil {
		return nil, &Error{Op: "sign", Kind: p.Kind, Err: err}
	}
	return &StoredData{
		StorageTime: storageTime,
		LifeTime:    p.LifeTime,
		Value:       p.Value,
		Signature:   sig,
	}, nil
}

// tombstones 按选择器生成删除标记：不存在的值，生存期为 0
//
// 数组选择器最多展开 limit 个下标。
func tombstones(kind KindID, spec ValueSpecifier, limit int) ([]*PreparedData, error) {
	var out []*PreparedData
	switch s := spec.(type) {
	case SingleSpecifier:
		out = append(out, &PreparedData{Kind: kind, Value: SingleValue{}})
	case ArraySpecifier:
		idx, err := s.Indexes(limit)
		if err != nil {
			return nil, err
		}
		for _, i := range idx {
			out = append(out, &PreparedData{Kind: kind, Value: ArrayValue{Index: i}})
		}
	case DictionarySpecifier:
		for _, k := range s.Keys {
			out = append(out, &PreparedData{Kind: kind, Value: DictionaryValue{Key: k}})
		}
	}
	return out, nil
}

package dht

import (
	"bytes"
	"fmt"

	"github.com/dep2p/go-reload/pkg/codec"
)

// ValueSpecifier 按数据模型选择值
type ValueSpecifier interface {
	Model() DataModel
	Matches(v Value) bool
	Encode(enc *codec.Encoder) error
}

// SingleSpecifier 选择单值
type SingleSpecifier struct{}

// Model 实现 ValueSpecifier
func (SingleSpecifier) Model() DataModel { return ModelSingle }

// Matches 实现 ValueSpecifier
func (SingleSpecifier) Matches(v Value) bool {
	_, ok := v.(SingleValue)
	return ok
}

// Encode 实现 ValueSpecifier
func (SingleSpecifier) Encode(*codec.Encoder) error { return nil }

// ArrayRange 下标区间 [Start, End)
type ArrayRange struct {
	Start uint32
	End   uint32
}

// ArraySpecifier 按下标区间选择数组元素
type ArraySpecifier struct {
	Ranges []ArrayRange
}

// Model 实现 ValueSpecifier
func (ArraySpecifier) Model() DataModel { return ModelArray }

// Matches 实现 ValueSpecifier
func (s ArraySpecifier) Matches(v Value) bool {
	a, ok := v.(ArrayValue)
	if !ok {
		return false
	}
	for _, r := range s.Ranges {
		if a.Index >= r.Start && a.Index < r.End {
			return true
		}
	}
	return false
}

// Indexes 展开区间，重叠部分只保留一次
//
// 展开出的下标超过 limit 个时返回 ErrSelectionTooWide。
func (s ArraySpecifier) Indexes(limit int) ([]uint32, error) {
	seen := make(map[uint32]struct{})
	var out []uint32
	for _, r := range s.Ranges {
		for i := r.Start; i < r.End; i++ {
			if _, dup := seen[i]; dup {
				continue
			}
			if len(out) == limit {
				return nil, fmt.Errorf("%w: more than %d indexes", ErrSelectionTooWide, limit)
			}
			seen[i] = struct{}{}
			out = append(out, i)
		}
	}
	return out, nil
}

// Encode 实现 ValueSpecifier：U16 列表，每项 start(4) + end(4)
func (s ArraySpecifier) Encode(enc *codec.Encoder) error {
	return enc.WriteField(codec.U16, func(enc *codec.Encoder) error {
		for _, r := range s.Ranges {
			enc.WriteUint32(r.Start)
			enc.WriteUint32(r.End)
		}
		return nil
	})
}

// DictionarySpecifier 按键选择字典项，键列表为空时选择全部
type DictionarySpecifier struct {
	Keys [][]byte
}

// Model 实现 ValueSpecifier
func (DictionarySpecifier) Model() DataModel { return ModelDictionary }

// Matches 实现 ValueSpecifier
func (s DictionarySpecifier) Matches(v Value) bool {
	d, ok := v.(DictionaryValue)
	if !ok {
		return false
	}
	if len(s.Keys) == 0 {
		return true
	}
	for _, k := range s.Keys {
		if bytes.Equal(k, d.Key) {
			return true
		}
	}
	return false
}

// Encode 实现 ValueSpecifier：U16 列表，每项 U16 键
func (s DictionarySpecifier) Encode(enc *codec.Encoder) error {
	return enc.WriteField(codec.U16, func(enc *codec.Encoder) error {
		for _, k := range s.Keys {
			if err := enc.WriteOpaque(codec.U16, k); err != nil {
				return err
			}
		}
		return nil
	})
}

// DecodeValueSpecifier 按数据模型解码选择器
func DecodeValueSpecifier(dec *codec.Decoder, m DataModel) (ValueSpecifier, error) {
	switch m {
	case ModelSingle:
		return SingleSpecifier{}, nil
	case ModelArray:
		sub, err := dec.ReadField(codec.U16)
		if err != nil {
			return nil, err
		}
		var s ArraySpecifier
		for !sub.Empty() {
			start, err := sub.ReadUint32()
			if err != nil {
				return nil, err
			}
			end, err := sub.ReadUint32()
			if err != nil {
				return nil, err
			}
			s.Ranges = append(s.Ranges, ArrayRange{Start: start, End: end})
		}
		return s, nil
	case ModelDictionary:
		sub, err := dec.ReadField(codec.U16)
		if err != nil {
			return nil, err
		}
		var s DictionarySpecifier
		for !sub.Empty() {
			k, err := sub.ReadOpaque(codec.U16)
			if err != nil {
				return nil, err
			}
			s.Keys = append(s.Keys, cloneBytes(k))
		}
		return s, nil
	default:
		return nil, codec.NewError("decode", codec.ErrUnknownType, m.String())
	}
}

// StoredDataSpecifier 对一个种类的选择：kind(4) + model(1) + generation(8) + U16 选择器
//
// Generation 非零时，存储端代数不大于该值则不返回数据。
type StoredDataSpecifier struct {
	Kind       KindID
	Generation uint64
	Value      ValueSpecifier
}

// Encode 编码
func (s StoredDataSpecifier) Encode(enc *codec.Encoder) error {
	enc.WriteUint32(uint32(s.Kind))
	enc.WriteUint8(uint8(s.Value.Model()))
	enc.WriteUint64(s.Generation)
	return enc.WriteField(codec.U16, s.Value.Encode)
}

// DecodeStoredDataSpecifier 解码
func DecodeStoredDataSpecifier(dec *codec.Decoder) (StoredDataSpecifier, error) {
	kind, err := dec.ReadUint32()
	if err != nil {
		return StoredDataSpecifier{}, err
	}
	model, err := dec.ReadUint8()
	if err != nil {
		return StoredDataSpecifier{}, err
	}
	gen, err := dec.ReadUint64()
	if err != nil {
		return StoredDataSpecifier{}, err
	}
	sub, err := dec.ReadField(codec.U16)
	if err != nil {
		return StoredDataSpecifier{}, err
	}
	v, err := DecodeValueSpecifier(sub, DataModel(model))
	if err != nil {
		return StoredDataSpecifier{}, err
	}
	if err := sub.Finish(); err != nil {
		return StoredDataSpecifier{}, err
	}
	return StoredDataSpecifier{Kind: KindID(kind), Generation: gen, Value: v}, nil
}

package dht

import (
	"bytes"
	"fmt"

	"github.com/dep2p/go-reload/pkg/codec"
)

// AppendIndex 数组写入时表示追加到末尾的下标
const AppendIndex uint32 = 0xffffffff

// Value 三种数据模型的值
type Value interface {
	Model() DataModel
	Exists() bool
	// Size 值数据的字节数
	Size() int
	Encode(enc *codec.Encoder) error
	Equal(Value) bool
}

// SingleValue 单值：exists(1) + U32 数据
type SingleValue struct {
	Present bool
	Data    []byte
}

// Model 实现 Value
func (SingleValue) Model() DataModel { return ModelSingle }

// Exists 实现 Value
func (v SingleValue) Exists() bool { return v.Present }

// Size 实现 Value
func (v SingleValue) Size() int { return len(v.Data) }

// Encode 实现 Value
func (v SingleValue) Encode(enc *codec.Encoder) error {
	if v.Present {
		enc.WriteUint8(1)
	} else {
		enc.WriteUint8(0)
	}
	return enc.WriteOpaque(codec.U32, v.Data)
}

// Equal 实现 Value
func (v SingleValue) Equal(o Value) bool {
	s, ok := o.(SingleValue)
	return ok && s.Present == v.Present && bytes.Equal(s.Data, v.Data)
}

// ArrayValue 数组元素：index(4) + 单值
type ArrayValue struct {
	Index uint32
	Entry SingleValue
}

// Model 实现 Value
func (ArrayValue) Model() DataModel { return ModelArray }

// Exists 实现 Value
func (v ArrayValue) Exists() bool { return v.Entry.Present }

// Size 实现 Value
func (v ArrayValue) Size() int { return len(v.Entry.Data) }

// Encode 实现 Value
func (v ArrayValue) Encode(enc *codec.Encoder) error {
	enc.WriteUint32(v.Index)
	return v.Entry.Encode(enc)
}

// Equal 实现 Value
func (v ArrayValue) Equal(o Value) bool {
	a, ok := o.(ArrayValue)
	return ok && a.Index == v.Index && a.Entry.Equal(v.Entry)
}

// DictionaryValue 字典项：U16 键 + 单值
type DictionaryValue struct {
	Key   []byte
	Entry SingleValue
}

// Model 实现 Value
func (DictionaryValue) Model() DataModel { return ModelDictionary }

// Exists 实现 Value
func (v DictionaryValue) Exists() bool { return v.Entry.Present }

// Size 实现 Value
func (v DictionaryValue) Size() int { return len(v.Entry.Data) }

// Encode 实现 Value
func (v DictionaryValue) Encode(enc *codec.Encoder) error {
	if err := enc.WriteOpaque(codec.U16, v.Key); err != nil {
		return err
	}
	return v.Entry.Encode(enc)
}

// Equal 实现 Value
func (v DictionaryValue) Equal(o Value) bool {
	d, ok := o.(DictionaryValue)
	return ok && bytes.Equal(d.Key, v.Key) && d.Entry.Equal(v.Entry)
}

// signingView 返回签名用的值：数组下标固定为 AppendIndex
func signingView(v Value) Value {
	if a, ok := v.(ArrayValue); ok {
		a.Index = AppendIndex
		return a
	}
	return v
}

// NonExistent 返回模型的合成不存在值
func NonExistent(m DataModel) Value {
	switch m {
	case ModelArray:
		return ArrayValue{}
	case ModelDictionary:
		return DictionaryValue{}
	default:
		return SingleValue{}
	}
}

func decodeSingle(dec *codec.Decoder) (SingleValue, error) {
	flag, err := dec.ReadUint8()
	if err != nil {
		return SingleValue{}, err
	}
	if flag > 1 {
		return SingleValue{}, codec.NewError("decode", codec.ErrInvalidValue, fmt.Sprintf("exists flag %d", flag))
	}
	data, err := dec.ReadOpaque(codec.U32)
	if err != nil {
		return SingleValue{}, err
	}
	return SingleValue{Present: flag == 1, Data: cloneBytes(data)}, nil
}

// DecodeValue 按数据模型解码值
func DecodeValue(dec *codec.Decoder, m DataModel) (Value, error) {
	switch m {
	case ModelSingle:
		return decodeSingle(dec)
	case ModelArray:
		idx, err := dec.ReadUint32()
		if err != nil {
			return nil, err
		}
		e, err := decodeSingle(dec)
		if err != nil {
			return nil, err
		}
		return ArrayValue{Index: idx, Entry: e}, nil
	case ModelDictionary:
		key, err := dec.ReadOpaque(codec.U16)
		if err != nil {
			return nil, err
		}
		e, err := decodeSingle(dec)
		if err != nil {
			return nil, err
		}
		return DictionaryValue{Key: cloneBytes(key), Entry: e}, nil
	default:
		return nil, codec.NewError("decode", codec.ErrUnknownType, m.String())
	}
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

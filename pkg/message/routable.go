package message

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/dep2p/go-reload/pkg/codec"
)

// DestinationType 可路由标识的判别字节
type DestinationType uint8

// 可路由标识类型
const (
	DestinationNodeID     DestinationType = 1
	DestinationResourceID DestinationType = 2
	DestinationOpaqueID   DestinationType = 3
)

// String 返回类型名称
func (t DestinationType) String() string {
	switch t {
	case DestinationNodeID:
		return "node"
	case DestinationResourceID:
		return "resource"
	case DestinationOpaqueID:
		return "opaque"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// RoutableID 可路由标识
//
// 具体类型只有 NodeID、ResourceID、OpaqueID 三种。
type RoutableID interface {
	// Type 返回判别字节
	Type() DestinationType

	// Bytes 返回标识字节
	Bytes() []byte

	// String 返回可读表示
	String() string
}

// NodeID overlay 中节点的定长标识
type NodeID []byte

// Type 实现 RoutableID
func (id NodeID) Type() DestinationType { return DestinationNodeID }

// Bytes 实现 RoutableID
func (id NodeID) Bytes() []byte { return id }

// String 实现 RoutableID
func (id NodeID) String() string { return "node:" + shortHex(id) }

// Equal 比较两个 NodeID
func (id NodeID) Equal(other NodeID) bool {
	return bytes.Equal(id, other)
}

// IsWildcard 是否为通配 NodeID（全 0xff）
func (id NodeID) IsWildcard() bool {
	if len(id) == 0 {
		return false
	}
	for _, b := range id {
		if b != 0xff {
			return false
		}
	}
	return true
}

// WildcardNodeID 返回指定长度的通配 NodeID
//
// 以通配 NodeID 为目的地的消息由收到它的第一个节点在本地处理。
func WildcardNodeID(length int) NodeID {
	id := make(NodeID, length)
	for i := range id {
		id[i] = 0xff
	}
	return id
}

// ResourceID 资源标识，为资源名经 overlay 哈希后的变长字节
type ResourceID []byte

// Type 实现 RoutableID
func (id ResourceID) Type() DestinationType { return DestinationResourceID }

// Bytes 实现 RoutableID
func (id ResourceID) Bytes() []byte { return id }

// String 实现 RoutableID
func (id ResourceID) String() string { return "resource:" + shortHex(id) }

// Equal 比较两个 ResourceID
func (id ResourceID) Equal(other ResourceID) bool {
	return bytes.Equal(id, other)
}

// OpaqueID 目的地列表后缀的压缩令牌
type OpaqueID []byte

// Type 实现 RoutableID
func (id OpaqueID) Type() DestinationType { return DestinationOpaqueID }

// Bytes 实现 RoutableID
func (id OpaqueID) Bytes() []byte { return id }

// String 实现 RoutableID
func (id OpaqueID) String() string { return "opaque:" + hex.EncodeToString(id) }

// EqualIDs 比较两个可路由标识的类型与字节
func EqualIDs(a, b RoutableID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Type() == b.Type() && bytes.Equal(a.Bytes(), b.Bytes())
}

func shortHex(b []byte) string {
	s := hex.EncodeToString(b)
	if len(s) > 16 {
		return s[:16]
	}
	return s
}

// routableRegistry 判别字节到编解码函数的注册表
var routableRegistry = codec.NewRegistry[DestinationType, RoutableID]("routable id")

func init() {
	routableRegistry.Register(DestinationNodeID, codec.Pair[RoutableID]{
		Encode: func(enc *codec.Encoder, v RoutableID) error {
			id := v.Bytes()
			if len(id) != enc.Context().NodeIDLength {
				return codec.NewError("encode", codec.ErrInvalidLength,
					fmt.Sprintf("node id has %d bytes, want %d", len(id), enc.Context().NodeIDLength))
			}
			enc.WriteBytes(id)
			return nil
		},
		Decode: func(dec *codec.Decoder) (RoutableID, error) {
			if dec.Remaining() != dec.Context().NodeIDLength {
				return nil, codec.NewError("decode", codec.ErrInvalidLength,
					fmt.Sprintf("node id has %d bytes, want %d", dec.Remaining(), dec.Context().NodeIDLength))
			}
			b, err := dec.ReadBytes(dec.Remaining())
			if err != nil {
				return nil, err
			}
			return NodeID(cloneBytes(b)), nil
		},
	})
	routableRegistry.Register(DestinationResourceID, codec.Pair[RoutableID]{
		Encode: func(enc *codec.Encoder, v RoutableID) error {
			return enc.WriteOpaque(codec.U8, v.Bytes())
		},
		Decode: func(dec *codec.Decoder) (RoutableID, error) {
			b, err := dec.ReadOpaque(codec.U8)
			if err != nil {
				return nil, err
			}
			return ResourceID(cloneBytes(b)), nil
		},
	})
	routableRegistry.Register(DestinationOpaqueID, codec.Pair[RoutableID]{
		Encode: func(enc *codec.Encoder, v RoutableID) error {
			if len(v.Bytes()) == 0 {
				return codec.NewError("encode", codec.ErrInvalidLength, "empty opaque id")
			}
			enc.WriteBytes(v.Bytes())
			return nil
		},
		Decode: func(dec *codec.Decoder) (RoutableID, error) {
			if dec.Empty() {
				return nil, codec.NewError("decode", codec.ErrInvalidLength, "empty opaque id")
			}
			b, err := dec.ReadBytes(dec.Remaining())
			if err != nil {
				return nil, err
			}
			return OpaqueID(cloneBytes(b)), nil
		},
	})
}

// EncodeRoutableID 编码可路由标识：type(1) + U8 字段
func EncodeRoutableID(enc *codec.Encoder, id RoutableID) error {
	if id == nil {
		return codec.NewError("encode", codec.ErrInvalidValue, "nil routable id")
	}
	p, err := routableRegistry.Lookup(id.Type())
	if err != nil {
		return err
	}
	enc.WriteUint8(uint8(id.Type()))
	return enc.WriteField(codec.U8, func(enc *codec.Encoder) error {
		return p.Encode(enc, id)
	})
}

// DecodeRoutableID 解码可路由标识
func DecodeRoutableID(dec *codec.Decoder) (RoutableID, error) {
	t, err := dec.ReadUint8()
	if err != nil {
		return nil, err
	}
	p, err := routableRegistry.Lookup(DestinationType(t))
	if err != nil {
		return nil, err
	}
	body, err := dec.ReadField(codec.U8)
	if err != nil {
		return nil, err
	}
	id, err := p.Decode(body)
	if err != nil {
		body.Release()
		return nil, err
	}
	if err := body.Finish(); err != nil {
		return nil, err
	}
	return id, nil
}

// EncodeNodeID 编码裸 NodeID（不带判别字节）
func EncodeNodeID(enc *codec.Encoder, id NodeID) error {
	if len(id) != enc.Context().NodeIDLength {
		return codec.NewError("encode", codec.ErrInvalidLength,
			fmt.Sprintf("node id has %d bytes, want %d", len(id), enc.Context().NodeIDLength))
	}
	enc.WriteBytes(id)
	return nil
}

// DecodeNodeID 解码裸 NodeID
func DecodeNodeID(dec *codec.Decoder) (NodeID, error) {
	b, err := dec.ReadBytes(dec.Context().NodeIDLength)
	if err != nil {
		return nil, err
	}
	return NodeID(cloneBytes(b)), nil
}

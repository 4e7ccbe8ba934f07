package message

import (
	"strings"

	"github.com/dep2p/go-reload/pkg/codec"
)

// DestinationList 有序的可路由标识列表
//
// 列表头为下一跳，投递前必须解析为单个具体标识。
type DestinationList []RoutableID

// Head 返回列表头，空列表返回 nil
func (l DestinationList) Head() RoutableID {
	if len(l) == 0 {
		return nil
	}
	return l[0]
}

// Last 返回最终目的地，空列表返回 nil
func (l DestinationList) Last() RoutableID {
	if len(l) == 0 {
		return nil
	}
	return l[len(l)-1]
}

// Clone 浅拷贝列表（标识本身不可变）
func (l DestinationList) Clone() DestinationList {
	if l == nil {
		return nil
	}
	out := make(DestinationList, len(l))
	copy(out, l)
	return out
}

// Reverse 返回逆序副本
func (l DestinationList) Reverse() DestinationList {
	out := make(DestinationList, len(l))
	for i, id := range l {
		out[len(l)-1-i] = id
	}
	return out
}

// Equal 逐项比较
func (l DestinationList) Equal(other DestinationList) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if !EqualIDs(l[i], other[i]) {
			return false
		}
	}
	return true
}

// Key 返回可用作 map 键的规范表示
func (l DestinationList) Key() string {
	var sb strings.Builder
	for _, id := range l {
		b := id.Bytes()
		sb.WriteByte(byte(id.Type()))
		sb.WriteByte(byte(len(b)))
		sb.Write(b)
	}
	return sb.String()
}

// String 返回可读表示
func (l DestinationList) String() string {
	parts := make([]string, len(l))
	for i, id := range l {
		parts[i] = id.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Encode 依次编码所有标识（外层长度字段由调用者分配）
func (l DestinationList) Encode(enc *codec.Encoder) error {
	for _, id := range l {
		if err := EncodeRoutableID(enc, id); err != nil {
			return err
		}
	}
	return nil
}

// DecodeDestinationList 解码标识直到 dec 耗尽
func DecodeDestinationList(dec *codec.Decoder) (DestinationList, error) {
	var l DestinationList
	for !dec.Empty() {
		id, err := DecodeRoutableID(dec)
		if err != nil {
			dec.Release()
			return nil, err
		}
		l = append(l, id)
	}
	return l, nil
}

package message

import (
	"bytes"
	"fmt"

	"github.com/dep2p/go-reload/pkg/codec"
)

// ForwardingOptionType 转发选项类型
type ForwardingOptionType uint8

// 转发选项标志位
const (
	// FlagForwardCritical 转发节点必须理解该选项
	FlagForwardCritical uint8 = 0x01
	// FlagDestinationCritical 目的节点必须理解该选项
	FlagDestinationCritical uint8 = 0x02
	// FlagResponseCopy 响应中需要复制该选项
	FlagResponseCopy uint8 = 0x04
)

// ForwardingOption 转发选项：type(1) + flags(1) + U16 数据
type ForwardingOption struct {
	Type  ForwardingOptionType
	Flags uint8
	Data  []byte
}

// IsForwardCritical 转发关键
func (o ForwardingOption) IsForwardCritical() bool { return o.Flags&FlagForwardCritical != 0 }

// IsDestinationCritical 目的关键
func (o ForwardingOption) IsDestinationCritical() bool {
	return o.Flags&FlagDestinationCritical != 0
}

// IsResponseCopy 响应复制
func (o ForwardingOption) IsResponseCopy() bool { return o.Flags&FlagResponseCopy != 0 }

// Equal 比较两个选项
func (o ForwardingOption) Equal(other ForwardingOption) bool {
	return o.Type == other.Type && o.Flags == other.Flags && bytes.Equal(o.Data, other.Data)
}

// knownOptions 本实现能理解的转发选项类型
var knownOptions = map[ForwardingOptionType]bool{}

// CheckForwardingOptions 检查是否存在不被理解的关键选项
//
// forwarding 为 true 时检查转发关键标志，否则检查目的关键标志。
// 发现不支持的关键选项时返回 UNSUPPORTED_FWD_OPTION 错误内容。
func CheckForwardingOptions(opts []ForwardingOption, forwarding bool) *Error {
	for _, o := range opts {
		if knownOptions[o.Type] {
			continue
		}
		critical := o.IsDestinationCritical()
		if forwarding {
			critical = o.IsForwardCritical()
		}
		if critical {
			return NewError(ErrorUnsupportedForwardingOption,
				fmt.Sprintf("unsupported forwarding option %d", o.Type))
		}
	}
	return nil
}

func encodeForwardingOption(enc *codec.Encoder, o ForwardingOption) error {
	enc.WriteUint8(uint8(o.Type))
	enc.WriteUint8(o.Flags)
	return enc.WriteOpaque(codec.U16, o.Data)
}

func decodeForwardingOption(dec *codec.Decoder) (ForwardingOption, error) {
	t, err := dec.ReadUint8()
	if err != nil {
		return ForwardingOption{}, err
	}
	flags, err := dec.ReadUint8()
	if err != nil {
		return ForwardingOption{}, err
	}
	data, err := dec.ReadOpaque(codec.U16)
	if err != nil {
		return ForwardingOption{}, err
	}
	return ForwardingOption{
		Type:  ForwardingOptionType(t),
		Flags: flags,
		Data:  cloneBytes(data),
	}, nil
}

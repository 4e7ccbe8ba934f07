package message

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/dep2p/go-reload/pkg/codec"
)

// ProtocolVersion 协议版本号（1.0）
const ProtocolVersion uint8 = 0x0a

// 分片字段位
const (
	fragmentReservedBit = uint32(0x80000000)
	fragmentLastBit     = uint32(0x40000000)
	fragmentOffsetMask  = uint32(0x3fffffff)
)

// Header 转发头
//
// 由 HeaderBuilder 构建后不可变，修改需通过 ToBuilder 生成新的实例。
type Header struct {
	transactionID         uint64
	lastFragment          bool
	fragmentOffset        uint32
	maxResponseLength     uint32
	configurationSequence uint32
	overlayHash           uint32
	version               uint8
	ttl                   uint8
	viaList               DestinationList
	destinationList       DestinationList
	forwardingOptions     []ForwardingOption
}

// TransactionID 事务 ID
func (h *Header) TransactionID() uint64 { return h.transactionID }

// IsLastFragment 是否为最后一个分片
func (h *Header) IsLastFragment() bool { return h.lastFragment }

// FragmentOffset 分片偏移
func (h *Header) FragmentOffset() uint32 { return h.fragmentOffset }

// IsFragmented 消息是否被分片
func (h *Header) IsFragmented() bool { return !h.lastFragment || h.fragmentOffset > 0 }

// MaxResponseLength 最大应答长度，0 表示不限制
func (h *Header) MaxResponseLength() uint32 { return h.maxResponseLength }

// ConfigurationSequence 配置序列号
func (h *Header) ConfigurationSequence() uint32 { return h.configurationSequence }

// OverlayHash overlay 名称哈希
func (h *Header) OverlayHash() uint32 { return h.overlayHash }

// Version 协议版本
func (h *Header) Version() uint8 { return h.version }

// TTL 剩余跳数
func (h *Header) TTL() uint8 { return h.ttl }

// ViaList 经过的节点列表（返回副本）
func (h *Header) ViaList() DestinationList { return h.viaList.Clone() }

// DestinationList 目的地列表（返回副本）
func (h *Header) DestinationList() DestinationList { return h.destinationList.Clone() }

// ForwardingOptions 转发选项（返回副本）
func (h *Header) ForwardingOptions() []ForwardingOption {
	if h.forwardingOptions == nil {
		return nil
	}
	out := make([]ForwardingOption, len(h.forwardingOptions))
	copy(out, h.forwardingOptions)
	return out
}

// NextHop 目的地列表头
func (h *Header) NextHop() RoutableID { return h.destinationList.Head() }

// Destination 最终目的地
func (h *Header) Destination() RoutableID { return h.destinationList.Last() }

// Sender 原始发送者（经过列表首项），未知时返回 nil
func (h *Header) Sender() NodeID {
	if id, ok := h.viaList.Head().(NodeID); ok {
		return id
	}
	return nil
}

// ToBuilder 返回以当前值初始化的构建器
func (h *Header) ToBuilder() *HeaderBuilder {
	return &HeaderBuilder{h: Header{
		transactionID:         h.transactionID,
		lastFragment:          h.lastFragment,
		fragmentOffset:        h.fragmentOffset,
		maxResponseLength:     h.maxResponseLength,
		configurationSequence: h.configurationSequence,
		overlayHash:           h.overlayHash,
		version:               h.version,
		ttl:                   h.ttl,
		viaList:               h.viaList.Clone(),
		destinationList:       h.destinationList.Clone(),
		forwardingOptions:     h.ForwardingOptions(),
	}}
}

// Clone 返回深拷贝
func (h *Header) Clone() *Header {
	return h.ToBuilder().Build()
}

// Equal 逐字段比较
func (h *Header) Equal(o *Header) bool {
	if h == nil || o == nil {
		return h == o
	}
	if h.transactionID != o.transactionID || h.lastFragment != o.lastFragment ||
		h.fragmentOffset != o.fragmentOffset || h.maxResponseLength != o.maxResponseLength ||
		h.configurationSequence != o.configurationSequence || h.overlayHash != o.overlayHash ||
		h.version != o.version || h.ttl != o.ttl {
		return false
	}
	if !h.viaList.Equal(o.viaList) || !h.destinationList.Equal(o.destinationList) {
		return false
	}
	if len(h.forwardingOptions) != len(o.forwardingOptions) {
		return false
	}
	for i := range h.forwardingOptions {
		if !h.forwardingOptions[i].Equal(o.forwardingOptions[i]) {
			return false
		}
	}
	return true
}

// String 返回摘要
func (h *Header) String() string {
	return fmt.Sprintf("Header{tx=%016x ttl=%d via=%s dst=%s}",
		h.transactionID, h.ttl, h.viaList, h.destinationList)
}

// HeaderBuilder 转发头构建器
type HeaderBuilder struct {
	h Header
}

// NewHeaderBuilder 创建构建器，默认为单分片消息、当前协议版本
func NewHeaderBuilder() *HeaderBuilder {
	return &HeaderBuilder{h: Header{
		lastFragment: true,
		version:      ProtocolVersion,
	}}
}

// SetTransactionID 设置事务 ID，0 表示构建时随机生成
func (b *HeaderBuilder) SetTransactionID(id uint64) *HeaderBuilder {
	b.h.transactionID = id
	return b
}

// SetLastFragment 设置最后分片标志
func (b *HeaderBuilder) SetLastFragment(last bool) *HeaderBuilder {
	b.h.lastFragment = last
	return b
}

// SetFragmentOffset 设置分片偏移（30 位）
func (b *HeaderBuilder) SetFragmentOffset(offset uint32) *HeaderBuilder {
	b.h.fragmentOffset = offset & fragmentOffsetMask
	return b
}

// SetMaxResponseLength 设置最大应答长度
func (b *HeaderBuilder) SetMaxResponseLength(n uint32) *HeaderBuilder {
	b.h.maxResponseLength = n
	return b
}

// SetConfigurationSequence 设置配置序列号
func (b *HeaderBuilder) SetConfigurationSequence(seq uint32) *HeaderBuilder {
	b.h.configurationSequence = seq
	return b
}

// SetOverlayHash 设置 overlay 哈希
func (b *HeaderBuilder) SetOverlayHash(hash uint32) *HeaderBuilder {
	b.h.overlayHash = hash
	return b
}

// SetVersion 设置协议版本
func (b *HeaderBuilder) SetVersion(v uint8) *HeaderBuilder {
	b.h.version = v
	return b
}

// SetTTL 设置 TTL
func (b *HeaderBuilder) SetTTL(ttl uint8) *HeaderBuilder {
	b.h.ttl = ttl
	return b
}

// SetViaList 设置经过列表
func (b *HeaderBuilder) SetViaList(l DestinationList) *HeaderBuilder {
	b.h.viaList = l.Clone()
	return b
}

// SetDestinationList 设置目的地列表
func (b *HeaderBuilder) SetDestinationList(l DestinationList) *HeaderBuilder {
	b.h.destinationList = l.Clone()
	return b
}

// SetForwardingOptions 设置转发选项
func (b *HeaderBuilder) SetForwardingOptions(opts []ForwardingOption) *HeaderBuilder {
	b.h.forwardingOptions = append([]ForwardingOption(nil), opts...)
	return b
}

// Build 构建不可变的转发头
func (b *HeaderBuilder) Build() *Header {
	h := b.h
	h.viaList = b.h.viaList.Clone()
	h.destinationList = b.h.destinationList.Clone()
	if b.h.forwardingOptions != nil {
		h.forwardingOptions = append([]ForwardingOption(nil), b.h.forwardingOptions...)
	}
	if h.transactionID == 0 {
		h.transactionID = NewTransactionID()
	}
	return &h
}

// NewTransactionID 生成非零随机事务 ID
func NewTransactionID() uint64 {
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			panic(fmt.Sprintf("message: random source failed: %v", err))
		}
		if id := binary.BigEndian.Uint64(buf[:]); id != 0 {
			return id
		}
	}
}

// Encode 编码转发头
func (h *Header) Encode(enc *codec.Encoder) error {
	enc.WriteUint64(h.transactionID)
	frag := fragmentReservedBit | (h.fragmentOffset & fragmentOffsetMask)
	if h.lastFragment {
		frag |= fragmentLastBit
	}
	enc.WriteUint32(frag)
	enc.WriteUint32(h.maxResponseLength)
	enc.WriteUint32(h.configurationSequence)
	enc.WriteUint32(h.overlayHash)
	enc.WriteUint8(h.version)
	enc.WriteUint8(h.ttl)
	if err := enc.WriteField(codec.U16, h.viaList.Encode); err != nil {
		return err
	}
	if err := enc.WriteField(codec.U16, h.destinationList.Encode); err != nil {
		return err
	}
	return enc.WriteField(codec.U16, func(enc *codec.Encoder) error {
		for _, o := range h.forwardingOptions {
			if err := encodeForwardingOption(enc, o); err != nil {
				return err
			}
		}
		return nil
	})
}

// DecodeHeader 解码转发头
func DecodeHeader(dec *codec.Decoder) (*Header, error) {
	h := &Header{}
	var err error
	if h.transactionID, err = dec.ReadUint64(); err != nil {
		return nil, err
	}
	frag, err := dec.ReadUint32()
	if err != nil {
		return nil, err
	}
	if frag&fragmentReservedBit == 0 {
		return nil, codec.NewError("decode", codec.ErrInvalidValue, "fragment reserved bit not set")
	}
	h.lastFragment = frag&fragmentLastBit != 0
	h.fragmentOffset = frag & fragmentOffsetMask
	if h.maxResponseLength, err = dec.ReadUint32(); err != nil {
		return nil, err
	}
	if h.configurationSequence, err = dec.ReadUint32(); err != nil {
		return nil, err
	}
	if h.overlayHash, err = dec.ReadUint32(); err != nil {
		return nil, err
	}
	if h.version, err = dec.ReadUint8(); err != nil {
		return nil, err
	}
	if h.ttl, err = dec.ReadUint8(); err != nil {
		return nil, err
	}

	viaField, err := dec.ReadField(codec.U16)
	if err != nil {
		return nil, err
	}
	if h.viaList, err = DecodeDestinationList(viaField); err != nil {
		return nil, err
	}
	dstField, err := dec.ReadField(codec.U16)
	if err != nil {
		return nil, err
	}
	if h.destinationList, err = DecodeDestinationList(dstField); err != nil {
		return nil, err
	}
	optField, err := dec.ReadField(codec.U16)
	if err != nil {
		return nil, err
	}
	for !optField.Empty() {
		o, err := decodeForwardingOption(optField)
		if err != nil {
			optField.Release()
			return nil, err
		}
		h.forwardingOptions = append(h.forwardingOptions, o)
	}
	return h, nil
}

package message

import (
	"fmt"

	"github.com/dep2p/go-reload/pkg/codec"
)

// Message 完整消息：转发头 + 内容 + 安全块
//
// 由 Builder 构建后不可变。PreviousHop 是链路层信息，不参与编码。
type Message struct {
	header        *Header
	content       Content
	extensions    []Extension
	securityBlock SecurityBlock
	previousHop   NodeID
}

// Header 转发头
func (m *Message) Header() *Header { return m.header }

// Content 消息内容
func (m *Message) Content() Content { return m.content }

// Extensions 消息扩展
func (m *Message) Extensions() []Extension { return append([]Extension(nil), m.extensions...) }

// SecurityBlock 安全块
func (m *Message) SecurityBlock() SecurityBlock { return m.securityBlock }

// PreviousHop 投递该消息的邻居，本地构建的消息为 nil
func (m *Message) PreviousHop() NodeID { return m.previousHop }

// TransactionID 事务 ID
func (m *Message) TransactionID() uint64 { return m.header.TransactionID() }

// WithPreviousHop 返回记录了上一跳的副本
func (m *Message) WithPreviousHop(id NodeID) *Message {
	cp := *m
	cp.previousHop = id
	return &cp
}

// WithHeader 返回替换了转发头的副本
func (m *Message) WithHeader(h *Header) *Message {
	cp := *m
	cp.header = h
	return &cp
}

// ReturnPath 返回应答的目的地列表
//
// 即经过列表加上上一跳后逆序。
func (m *Message) ReturnPath() DestinationList {
	path := m.header.ViaList()
	if m.previousHop != nil {
		if last, ok := path.Last().(NodeID); !ok || !last.Equal(m.previousHop) {
			path = append(path, m.previousHop)
		}
	}
	return path.Reverse()
}

// String 返回摘要
func (m *Message) String() string {
	return fmt.Sprintf("Message{%s %s}", m.header, m.content.ContentType())
}

// Builder 消息构建器
type Builder struct {
	m Message
}

// NewBuilder 创建消息构建器
func NewBuilder(h *Header, c Content) *Builder {
	return &Builder{m: Message{
		header:  h,
		content: c,
		securityBlock: SecurityBlock{
			Signature: EmptySignature(),
		},
	}}
}

// SetSecurityBlock 设置安全块
func (b *Builder) SetSecurityBlock(sb SecurityBlock) *Builder {
	b.m.securityBlock = sb
	return b
}

// SetExtensions 设置消息扩展
func (b *Builder) SetExtensions(exts []Extension) *Builder {
	b.m.extensions = append([]Extension(nil), exts...)
	return b
}

// SetPreviousHop 设置上一跳
func (b *Builder) SetPreviousHop(id NodeID) *Builder {
	b.m.previousHop = id
	return b
}

// Build 构建消息
func (b *Builder) Build() *Message {
	m := b.m
	return &m
}

// Encode 编码完整消息
func (m *Message) Encode(enc *codec.Encoder) error {
	if m.header == nil {
		return codec.NewError("encode", codec.ErrInvalidValue, "nil header")
	}
	if err := m.header.Encode(enc); err != nil {
		return err
	}
	return m.encodePayload(enc)
}

func (m *Message) encodePayload(enc *codec.Encoder) error {
	if err := EncodeContent(enc, m.content, m.extensions); err != nil {
		return err
	}
	return m.securityBlock.Encode(enc)
}

// Marshal 编码为字节
func (m *Message) Marshal(ctx *codec.Context) ([]byte, error) {
	return codec.Marshal(ctx, m.Encode)
}

// DecodeMessage 解码完整消息
func DecodeMessage(ctx *codec.Context, data []byte) (*Message, error) {
	var m *Message
	err := codec.Unmarshal(ctx, data, func(dec *codec.Decoder) error {
		h, err := DecodeHeader(dec)
		if err != nil {
			return err
		}
		m, err = decodePayload(dec, h)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func decodePayload(dec *codec.Decoder, h *Header) (*Message, error) {
	c, exts, err := DecodeContent(dec)
	if err != nil {
		return nil, err
	}
	sb, err := DecodeSecurityBlock(dec)
	if err != nil {
		return nil, err
	}
	return &Message{header: h, content: c, extensions: exts, securityBlock: sb}, nil
}

// HeadedMessage 已解码转发头、载荷保持原始字节的消息
//
// 逐跳转发时只需要转发头，载荷原样透传。
type HeadedMessage struct {
	Header  *Header
	Payload []byte
}

// DecodeHeaded 只解码转发头
func DecodeHeaded(ctx *codec.Context, data []byte) (*HeadedMessage, error) {
	dec := codec.NewDecoder(ctx, data)
	h, err := DecodeHeader(dec)
	if err != nil {
		dec.Release()
		return nil, err
	}
	payload, err := dec.ReadBytes(dec.Remaining())
	if err != nil {
		return nil, err
	}
	return &HeadedMessage{Header: h, Payload: payload}, nil
}

// NewHeaded 将完整消息转为已编码载荷形式
func NewHeaded(ctx *codec.Context, m *Message) (*HeadedMessage, error) {
	payload, err := codec.Marshal(ctx, m.encodePayload)
	if err != nil {
		return nil, err
	}
	return &HeadedMessage{Header: m.header, Payload: payload}, nil
}

// Marshal 编码转发头并拼接原始载荷
func (hm *HeadedMessage) Marshal(ctx *codec.Context) ([]byte, error) {
	return codec.Marshal(ctx, func(enc *codec.Encoder) error {
		if err := hm.Header.Encode(enc); err != nil {
			return err
		}
		enc.WriteBytes(hm.Payload)
		return nil
	})
}

// Decode 解码载荷得到完整消息
func (hm *HeadedMessage) Decode(ctx *codec.Context) (*Message, error) {
	var m *Message
	err := codec.Unmarshal(ctx, hm.Payload, func(dec *codec.Decoder) error {
		var err error
		m, err = decodePayload(dec, hm.Header)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ContentType 读取载荷首部的内容类型码，不解码内容体
func (hm *HeadedMessage) ContentType() (ContentType, bool) {
	if len(hm.Payload) < 2 {
		return 0, false
	}
	return ContentType(uint16(hm.Payload[0])<<8 | uint16(hm.Payload[1])), true
}

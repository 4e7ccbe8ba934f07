package message

import (
	"fmt"

	"github.com/dep2p/go-reload/pkg/codec"
)

// ContentType 消息内容类型码
//
// 请求为奇数，对应应答为请求码加一，错误为 0xffff。
type ContentType uint16

// 消息内容类型码
const (
	ContentProbeRequest        ContentType = 1
	ContentProbeAnswer         ContentType = 2
	ContentAttachRequest       ContentType = 3
	ContentAttachAnswer        ContentType = 4
	ContentStoreRequest        ContentType = 7
	ContentStoreAnswer         ContentType = 8
	ContentFetchRequest        ContentType = 9
	ContentFetchAnswer         ContentType = 10
	ContentFindRequest         ContentType = 13
	ContentFindAnswer          ContentType = 14
	ContentJoinRequest         ContentType = 15
	ContentJoinAnswer          ContentType = 16
	ContentLeaveRequest        ContentType = 17
	ContentLeaveAnswer         ContentType = 18
	ContentUpdateRequest       ContentType = 19
	ContentUpdateAnswer        ContentType = 20
	ContentRouteQueryRequest   ContentType = 21
	ContentRouteQueryAnswer    ContentType = 22
	ContentPingRequest         ContentType = 23
	ContentPingAnswer          ContentType = 24
	ContentStatRequest         ContentType = 25
	ContentStatAnswer          ContentType = 26
	ContentAppAttachRequest    ContentType = 29
	ContentAppAttachAnswer     ContentType = 30
	ContentConfigUpdateRequest ContentType = 33
	ContentConfigUpdateAnswer  ContentType = 34
	ContentError               ContentType = 0xffff
)

// IsRequest 是否为请求
func (t ContentType) IsRequest() bool {
	return t != ContentError && t%2 == 1
}

// IsAnswer 是否为应答（包括错误）
func (t ContentType) IsAnswer() bool {
	return t == ContentError || t%2 == 0
}

// AnswerType 返回请求对应的应答类型
func (t ContentType) AnswerType() ContentType {
	if !t.IsRequest() {
		return t
	}
	return t + 1
}

// String 返回类型码的十进制表示
func (t ContentType) String() string {
	if t == ContentError {
		return "error"
	}
	return fmt.Sprintf("content(%d)", uint16(t))
}

// Content 消息内容
type Content interface {
	ContentType() ContentType
}

// ContentCodec 消息内容编解码函数对（只覆盖内容体）
type ContentCodec = codec.Pair[Content]

// contentRegistry 内容类型码到编解码函数的注册表
var contentRegistry = codec.NewRegistry[ContentType, Content]("content")

// RegisterContent 注册内容类型的编解码函数
//
// 只能在包初始化阶段调用。
func RegisterContent(t ContentType, c ContentCodec) {
	contentRegistry.Register(t, c)
}

// IsRegisteredContent 内容类型是否已注册
func IsRegisteredContent(t ContentType) bool {
	return contentRegistry.Has(t)
}

// Extension 消息扩展：type(2) + critical(1) + U32 数据
type Extension struct {
	Type     uint16
	Critical bool
	Data     []byte
}

// EncodeContent 编码消息内容：code(2) + U32 内容体 + U32 扩展列表
func EncodeContent(enc *codec.Encoder, c Content, exts []Extension) error {
	if c == nil {
		return codec.NewError("encode", codec.ErrInvalidValue, "nil content")
	}
	p, err := contentRegistry.Lookup(c.ContentType())
	if err != nil {
		return err
	}
	enc.WriteUint16(uint16(c.ContentType()))
	if err := enc.WriteField(codec.U32, func(enc *codec.Encoder) error {
		return p.Encode(enc, c)
	}); err != nil {
		return err
	}
	return enc.WriteField(codec.U32, func(enc *codec.Encoder) error {
		for _, x := range exts {
			enc.WriteUint16(x.Type)
			if x.Critical {
				enc.WriteUint8(1)
			} else {
				enc.WriteUint8(0)
			}
			if err := enc.WriteOpaque(codec.U32, x.Data); err != nil {
				return err
			}
		}
		return nil
	})
}

// DecodeContent 解码消息内容
func DecodeContent(dec *codec.Decoder) (Content, []Extension, error) {
	code, err := dec.ReadUint16()
	if err != nil {
		return nil, nil, err
	}
	p, err := contentRegistry.Lookup(ContentType(code))
	if err != nil {
		return nil, nil, err
	}
	body, err := dec.ReadField(codec.U32)
	if err != nil {
		return nil, nil, err
	}
	c, err := p.Decode(body)
	if err != nil {
		body.Release()
		return nil, nil, err
	}
	if err := body.Finish(); err != nil {
		return nil, nil, err
	}
	extField, err := dec.ReadField(codec.U32)
	if err != nil {
		return nil, nil, err
	}
	var exts []Extension
	for !extField.Empty() {
		t, err := extField.ReadUint16()
		if err != nil {
			extField.Release()
			return nil, nil, err
		}
		crit, err := extField.ReadUint8()
		if err != nil {
			extField.Release()
			return nil, nil, err
		}
		data, err := extField.ReadOpaque(codec.U32)
		if err != nil {
			extField.Release()
			return nil, nil, err
		}
		exts = append(exts, Extension{Type: t, Critical: crit != 0, Data: cloneBytes(data)})
	}
	return c, exts, nil
}

// CheckExtensions 存在不被理解的关键扩展时返回 UNKNOWN_EXTENSION
func CheckExtensions(exts []Extension) *Error {
	for _, x := range exts {
		if x.Critical {
			return NewError(ErrorUnknownExtension, fmt.Sprintf("unknown critical extension %d", x.Type))
		}
	}
	return nil
}

// PingRequest 探测请求，可携带填充
type PingRequest struct {
	Padding []byte
}

// ContentType 实现 Content
func (*PingRequest) ContentType() ContentType { return ContentPingRequest }

// PingAnswer 探测应答
type PingAnswer struct {
	ResponseID uint64
	Time       uint64
}

// ContentType 实现 Content
func (*PingAnswer) ContentType() ContentType { return ContentPingAnswer }

// LeaveRequest 离开通知
type LeaveRequest struct {
	LeavingNode NodeID
	Data        []byte
}

// ContentType 实现 Content
func (*LeaveRequest) ContentType() ContentType { return ContentLeaveRequest }

// LeaveAnswer 离开应答（无内容）
type LeaveAnswer struct{}

// ContentType 实现 Content
func (*LeaveAnswer) ContentType() ContentType { return ContentLeaveAnswer }

func init() {
	RegisterContent(ContentPingRequest, ContentCodec{
		Encode: func(enc *codec.Encoder, c Content) error {
			return enc.WriteOpaque(codec.U16, c.(*PingRequest).Padding)
		},
		Decode: func(dec *codec.Decoder) (Content, error) {
			pad, err := dec.ReadOpaque(codec.U16)
			if err != nil {
				return nil, err
			}
			return &PingRequest{Padding: cloneBytes(pad)}, nil
		},
	})
	RegisterContent(ContentPingAnswer, ContentCodec{
		Encode: func(enc *codec.Encoder, c Content) error {
			a := c.(*PingAnswer)
			enc.WriteUint64(a.ResponseID)
			enc.WriteUint64(a.Time)
			return nil
		},
		Decode: func(dec *codec.Decoder) (Content, error) {
			id, err := dec.ReadUint64()
			if err != nil {
				return nil, err
			}
			ts, err := dec.ReadUint64()
			if err != nil {
				return nil, err
			}
			return &PingAnswer{ResponseID: id, Time: ts}, nil
		},
	})
	RegisterContent(ContentLeaveRequest, ContentCodec{
		Encode: func(enc *codec.Encoder, c Content) error {
			r := c.(*LeaveRequest)
			if err := EncodeNodeID(enc, r.LeavingNode); err != nil {
				return err
			}
			return enc.WriteOpaque(codec.U16, r.Data)
		},
		Decode: func(dec *codec.Decoder) (Content, error) {
			id, err := DecodeNodeID(dec)
			if err != nil {
				return nil, err
			}
			data, err := dec.ReadOpaque(codec.U16)
			if err != nil {
				return nil, err
			}
			return &LeaveRequest{LeavingNode: id, Data: cloneBytes(data)}, nil
		},
	})
	RegisterContent(ContentLeaveAnswer, ContentCodec{
		Encode: func(*codec.Encoder, Content) error { return nil },
		Decode: func(*codec.Decoder) (Content, error) { return &LeaveAnswer{}, nil },
	})
}

package appattach

import (
	"net/netip"

	"github.com/dep2p/go-reload/pkg/codec"
	"github.com/dep2p/go-reload/pkg/message"
)

// 地址类型
const (
	addrIPv4 uint8 = 1
	addrIPv6 uint8 = 2
)

// CandidateType 候选类型
type CandidateType uint8

// 候选类型
const (
	CandidateHost            CandidateType = 1
	CandidateServerReflexive CandidateType = 2
	CandidatePeerReflexive   CandidateType = 3
	CandidateRelayed         CandidateType = 4
)

// OverlayLink 链路协议
type OverlayLink uint8

// 链路协议
const (
	LinkDTLSUDP      OverlayLink = 1
	LinkDTLSUDPNoICE OverlayLink = 3
	LinkTLSTCPNoICE  OverlayLink = 4
)

// 角色
const (
	RoleActive  = "active"
	RolePassive = "passive"
)

// CandidateExtension 候选扩展
type CandidateExtension struct {
	Name  []byte
	Value []byte
}

// Candidate 候选地址
//
// 非主机候选带有相关地址 Related。
type Candidate struct {
	Addr       netip.AddrPort
	Link       OverlayLink
	Foundation []byte
	Priority   uint32
	Type       CandidateType
	Related    netip.AddrPort
	Extensions []CandidateExtension
}

// AppAttachRequest 应用连接请求
type AppAttachRequest struct {
	UFrag       []byte
	Password    []byte
	Application uint16
	Role        string
	Candidates  []Candidate
}

// ContentType 实现 message.Content
func (*AppAttachRequest) ContentType() message.ContentType { return message.ContentAppAttachRequest }

// AppAttachAnswer 应用连接应答，字段与请求相同
type AppAttachAnswer struct {
	UFrag       []byte
	Password    []byte
	Application uint16
	Role        string
	Candidates  []Candidate
}

// ContentType 实现 message.Content
func (*AppAttachAnswer) ContentType() message.ContentType { return message.ContentAppAttachAnswer }

// encodeAddrPort 编码 type(1) + U8 { addr + port(2) }
func encodeAddrPort(enc *codec.Encoder, ap netip.AddrPort) error {
	addr := ap.Addr()
	switch {
	case addr.Is4():
		enc.WriteUint8(addrIPv4)
	case addr.Is6():
		enc.WriteUint8(addrIPv6)
	default:
		return codec.NewError("encode", codec.ErrInvalidValue, "address is not ipv4 or ipv6")
	}
	return enc.WriteField(codec.U8, func(enc *codec.Encoder) error {
		enc.WriteBytes(addr.AsSlice())
		enc.WriteUint16(ap.Port())
		return nil
	})
}

func decodeAddrPort(dec *codec.Decoder) (netip.AddrPort, error) {
	t, err := dec.ReadUint8()
	if err != nil {
		return netip.AddrPort{}, err
	}
	body, err := dec.ReadField(codec.U8)
	if err != nil {
		return netip.AddrPort{}, err
	}
	defer body.Release()

	var n int
	switch t {
	case addrIPv4:
		n = 4
	case addrIPv6:
		n = 16
	default:
		return netip.AddrPort{}, codec.NewError("decode", codec.ErrUnknownType, "address type")
	}
	raw, err := body.ReadBytes(n)
	if err != nil {
		return netip.AddrPort{}, err
	}
	addr, _ := netip.AddrFromSlice(raw)
	port, err := body.ReadUint16()
	if err != nil {
		return netip.AddrPort{}, err
	}
	if !body.Empty() {
		return netip.AddrPort{}, codec.NewError("decode", codec.ErrTrailingData, "address")
	}
	return netip.AddrPortFrom(addr, port), nil
}

func (c *Candidate) encode(enc *codec.Encoder) error {
	if err := encodeAddrPort(enc, c.Addr); err != nil {
		return err
	}
	enc.WriteUint8(uint8(c.Link))
	if err := enc.WriteOpaque(codec.U8, c.Foundation); err != nil {
		return err
	}
	enc.WriteUint32(c.Priority)
	enc.WriteUint8(uint8(c.Type))
	if c.Type != CandidateHost {
		if err := encodeAddrPort(enc, c.Related); err != nil {
			return err
		}
	}
	return enc.WriteField(codec.U16, func(enc *codec.Encoder) error {
		for _, x := range c.Extensions {
			if err := enc.WriteOpaque(codec.U16, x.Name); err != nil {
				return err
			}
			if err := enc.WriteOpaque(codec.U16, x.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

func decodeCandidate(dec *codec.Decoder) (Candidate, error) {
	var c Candidate
	var err error
	if c.Addr, err = decodeAddrPort(dec); err != nil {
		return c, err
	}
	link, err := dec.ReadUint8()
	if err != nil {
		return c, err
	}
	c.Link = OverlayLink(link)
	found, err := dec.ReadOpaque(codec.U8)
	if err != nil {
		return c, err
	}
	c.Foundation = cloneBytes(found)
	if c.Priority, err = dec.ReadUint32(); err != nil {
		return c, err
	}
	t, err := dec.ReadUint8()
	if err != nil {
		return c, err
	}
	c.Type = CandidateType(t)
	switch c.Type {
	case CandidateHost:
	case CandidateServerReflexive, CandidatePeerReflexive, CandidateRelayed:
		if c.Related, err = decodeAddrPort(dec); err != nil {
			return c, err
		}
	default:
		return c, codec.NewError("decode", codec.ErrUnknownType, "candidate type")
	}
	exts, err := dec.ReadField(codec.U16)
	if err != nil {
		return c, err
	}
	defer exts.Release()
	for !exts.Empty() {
		name, err := exts.ReadOpaque(codec.U16)
		if err != nil {
			return c, err
		}
		value, err := exts.ReadOpaque(codec.U16)
		if err != nil {
			return c, err
		}
		c.Extensions = append(c.Extensions, CandidateExtension{Name: cloneBytes(name), Value: cloneBytes(value)})
	}
	return c, nil
}

// attachFields 请求与应答共用的字段
type attachFields struct {
	UFrag       []byte
	Password    []byte
	Application uint16
	Role        string
	Candidates  []Candidate
}

func (f *attachFields) encode(enc *codec.Encoder) error {
	if err := enc.WriteOpaque(codec.U8, f.UFrag); err != nil {
		return err
	}
	if err := enc.WriteOpaque(codec.U8, f.Password); err != nil {
		return err
	}
	enc.WriteUint16(f.Application)
	if err := enc.WriteOpaque(codec.U8, []byte(f.Role)); err != nil {
		return err
	}
	return enc.WriteField(codec.U16, func(enc *codec.Encoder) error {
		for i := range f.Candidates {
			if err := f.Candidates[i].encode(enc); err != nil {
				return err
			}
		}
		return nil
	})
}

func decodeAttachFields(dec *codec.Decoder) (attachFields, error) {
	var f attachFields
	ufrag, err := dec.ReadOpaque(codec.U8)
	if err != nil {
		return f, err
	}
	pwd, err := dec.ReadOpaque(codec.U8)
	if err != nil {
		return f, err
	}
	if f.Application, err = dec.ReadUint16(); err != nil {
		return f, err
	}
	role, err := dec.ReadOpaque(codec.U8)
	if err != nil {
		return f, err
	}
	f.UFrag, f.Password, f.Role = cloneBytes(ufrag), cloneBytes(pwd), string(role)

	list, err := dec.ReadField(codec.U16)
	if err != nil {
		return f, err
	}
	defer list.Release()
	for !list.Empty() {
		c, err := decodeCandidate(list)
		if err != nil {
			return f, err
		}
		f.Candidates = append(f.Candidates, c)
	}
	return f, nil
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}

func init() {
	message.RegisterContent(message.ContentAppAttachRequest, message.ContentCodec{
		Encode: func(enc *codec.Encoder, c message.Content) error {
			r := c.(*AppAttachRequest)
			f := attachFields(*r)
			return f.encode(enc)
		},
		Decode: func(dec *codec.Decoder) (message.Content, error) {
			f, err := decodeAttachFields(dec)
			if err != nil {
				return nil, err
			}
			r := AppAttachRequest(f)
			return &r, nil
		},
	})
	message.RegisterContent(message.ContentAppAttachAnswer, message.ContentCodec{
		Encode: func(enc *codec.Encoder, c message.Content) error {
			a := c.(*AppAttachAnswer)
			f := attachFields(*a)
			return f.encode(enc)
		},
		Decode: func(dec *codec.Decoder) (message.Content, error) {
			f, err := decodeAttachFields(dec)
			if err != nil {
				return nil, err
			}
			a := AppAttachAnswer(f)
			return &a, nil
		},
	})
}

package message

import (
	"bytes"
	"fmt"

	"github.com/dep2p/go-reload/pkg/codec"
)

// HashAlgorithm 哈希算法码
type HashAlgorithm uint8

// 哈希算法码
const (
	HashNone   HashAlgorithm = 0
	HashMD5    HashAlgorithm = 1
	HashSHA1   HashAlgorithm = 2
	HashSHA224 HashAlgorithm = 3
	HashSHA256 HashAlgorithm = 4
	HashSHA384 HashAlgorithm = 5
	HashSHA512 HashAlgorithm = 6
)

// SignatureAlgorithm 签名算法码
type SignatureAlgorithm uint8

// 签名算法码
const (
	SignatureAnonymous SignatureAlgorithm = 0
	SignatureRSA       SignatureAlgorithm = 1
	SignatureDSA       SignatureAlgorithm = 2
	SignatureECDSA     SignatureAlgorithm = 3
	SignatureEd25519   SignatureAlgorithm = 7
)

// IdentityType 签名者身份类型
type IdentityType uint8

// 签名者身份类型
const (
	IdentityCertHash       IdentityType = 1
	IdentityCertHashNodeID IdentityType = 2
	IdentityNone           IdentityType = 3
)

// String 返回身份类型名称
func (t IdentityType) String() string {
	switch t {
	case IdentityCertHash:
		return "cert_hash"
	case IdentityCertHashNodeID:
		return "cert_hash_node_id"
	case IdentityNone:
		return "none"
	default:
		return fmt.Sprintf("identity(%d)", uint8(t))
	}
}

// SignerIdentity 签名者身份：证书哈希或证书哈希+NodeID
type SignerIdentity struct {
	Type    IdentityType
	HashAlg HashAlgorithm
	Hash    []byte
}

// NoneIdentity 无签名者身份
func NoneIdentity() SignerIdentity {
	return SignerIdentity{Type: IdentityNone}
}

// Equal 比较两个身份
func (s SignerIdentity) Equal(o SignerIdentity) bool {
	return s.Type == o.Type && s.HashAlg == o.HashAlg && bytes.Equal(s.Hash, o.Hash)
}

// Key 返回可用作 map 键的表示
func (s SignerIdentity) Key() string {
	return string([]byte{byte(s.Type), byte(s.HashAlg)}) + string(s.Hash)
}

// Encode 编码签名者身份：type(1) + U16 身份体
func (s SignerIdentity) Encode(enc *codec.Encoder) error {
	enc.WriteUint8(uint8(s.Type))
	return enc.WriteField(codec.U16, func(enc *codec.Encoder) error {
		switch s.Type {
		case IdentityCertHash, IdentityCertHashNodeID:
			enc.WriteUint8(uint8(s.HashAlg))
			return enc.WriteOpaque(codec.U8, s.Hash)
		case IdentityNone:
			return nil
		default:
			return codec.NewError("encode", codec.ErrUnknownType, s.Type.String())
		}
	})
}

// DecodeSignerIdentity 解码签名者身份
func DecodeSignerIdentity(dec *codec.Decoder) (SignerIdentity, error) {
	t, err := dec.ReadUint8()
	if err != nil {
		return SignerIdentity{}, err
	}
	body, err := dec.ReadField(codec.U16)
	if err != nil {
		return SignerIdentity{}, err
	}
	s := SignerIdentity{Type: IdentityType(t)}
	switch s.Type {
	case IdentityCertHash, IdentityCertHashNodeID:
		alg, err := body.ReadUint8()
		if err != nil {
			return SignerIdentity{}, err
		}
		hash, err := body.ReadOpaque(codec.U8)
		if err != nil {
			return SignerIdentity{}, err
		}
		s.HashAlg = HashAlgorithm(alg)
		s.Hash = cloneBytes(hash)
	case IdentityNone:
	default:
		body.Release()
		return SignerIdentity{}, codec.NewError("decode", codec.ErrUnknownType, s.Type.String())
	}
	if err := body.Finish(); err != nil {
		return SignerIdentity{}, err
	}
	return s, nil
}

// Signature 签名：hashAlg(1) + sigAlg(1) + 身份 + U16 签名值
type Signature struct {
	HashAlg  HashAlgorithm
	SigAlg   SignatureAlgorithm
	Identity SignerIdentity
	Value    []byte
}

// Equal 比较两个签名
func (s Signature) Equal(o Signature) bool {
	return s.HashAlg == o.HashAlg && s.SigAlg == o.SigAlg &&
		s.Identity.Equal(o.Identity) && bytes.Equal(s.Value, o.Value)
}

// EmptySignature 无身份、无签名值的签名
func EmptySignature() Signature {
	return Signature{Identity: NoneIdentity()}
}

// Encode 编码签名
func (s Signature) Encode(enc *codec.Encoder) error {
	enc.WriteUint8(uint8(s.HashAlg))
	enc.WriteUint8(uint8(s.SigAlg))
	if err := s.Identity.Encode(enc); err != nil {
		return err
	}
	return enc.WriteOpaque(codec.U16, s.Value)
}

// DecodeSignature 解码签名
func DecodeSignature(dec *codec.Decoder) (Signature, error) {
	hashAlg, err := dec.ReadUint8()
	if err != nil {
		return Signature{}, err
	}
	sigAlg, err := dec.ReadUint8()
	if err != nil {
		return Signature{}, err
	}
	id, err := DecodeSignerIdentity(dec)
	if err != nil {
		return Signature{}, err
	}
	value, err := dec.ReadOpaque(codec.U16)
	if err != nil {
		return Signature{}, err
	}
	return Signature{
		HashAlg:  HashAlgorithm(hashAlg),
		SigAlg:   SignatureAlgorithm(sigAlg),
		Identity: id,
		Value:    cloneBytes(value),
	}, nil
}

// CertificateType 证书类型
type CertificateType uint8

// 证书类型
const (
	CertificateX509 CertificateType = 0
)

// GenericCertificate 证书：type(1) + U16 证书字节
type GenericCertificate struct {
	Type CertificateType
	Data []byte
}

// SecurityBlock 安全块：U16 证书列表 + 签名
type SecurityBlock struct {
	Certificates []GenericCertificate
	Signature    Signature
}

// Equal 比较两个安全块
func (b SecurityBlock) Equal(o SecurityBlock) bool {
	if len(b.Certificates) != len(o.Certificates) {
		return false
	}
	for i := range b.Certificates {
		if b.Certificates[i].Type != o.Certificates[i].Type ||
			!bytes.Equal(b.Certificates[i].Data, o.Certificates[i].Data) {
			return false
		}
	}
	return b.Signature.Equal(o.Signature)
}

// Encode 编码安全块
func (b SecurityBlock) Encode(enc *codec.Encoder) error {
	if err := enc.WriteField(codec.U16, func(enc *codec.Encoder) error {
		for _, c := range b.Certificates {
			enc.WriteUint8(uint8(c.Type))
			if err := enc.WriteOpaque(codec.U16, c.Data); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	return b.Signature.Encode(enc)
}

// DecodeSecurityBlock 解码安全块
func DecodeSecurityBlock(dec *codec.Decoder) (SecurityBlock, error) {
	certs, err := dec.ReadField(codec.U16)
	if err != nil {
		return SecurityBlock{}, err
	}
	var b SecurityBlock
	for !certs.Empty() {
		t, err := certs.ReadUint8()
		if err != nil {
			certs.Release()
			return SecurityBlock{}, err
		}
		data, err := certs.ReadOpaque(codec.U16)
		if err != nil {
			certs.Release()
			return SecurityBlock{}, err
		}
		b.Certificates = append(b.Certificates, GenericCertificate{
			Type: CertificateType(t),
			Data: cloneBytes(data),
		})
	}
	if b.Signature, err = DecodeSignature(dec); err != nil {
		return SecurityBlock{}, err
	}
	return b, nil
}

// CertificateCarrier 应答内容需要随安全块附带的证书
//
// 路由器发送这类内容时把证书追加到安全块，证书不进入内容编码。
type CertificateCarrier interface {
	CarriedCertificates() [][]byte
}

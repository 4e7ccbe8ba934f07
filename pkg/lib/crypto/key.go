package crypto

import (
	stdcrypto "crypto"
	"crypto/rand"
	"crypto/subtle"
	"io"
)

// KeyType 密钥类型
type KeyType int

const (
	// KeyTypeUnspecified 未指定
	KeyTypeUnspecified KeyType = 0
	// KeyTypeRSA RSA 密钥
	KeyTypeRSA KeyType = 1
	// KeyTypeEd25519 Ed25519 密钥
	KeyTypeEd25519 KeyType = 2
	// KeyTypeECDSA ECDSA P-256 密钥
	KeyTypeECDSA KeyType = 4
)

// String 返回密钥类型名称
func (kt KeyType) String() string {
	switch kt {
	case KeyTypeRSA:
		return "RSA"
	case KeyTypeEd25519:
		return "Ed25519"
	case KeyTypeECDSA:
		return "ECDSA"
	default:
		return "Unknown"
	}
}

// ParseKeyType 按名称解析密钥类型
func ParseKeyType(name string) (KeyType, error) {
	switch name {
	case "Ed25519", "ed25519":
		return KeyTypeEd25519, nil
	case "ECDSA", "ecdsa":
		return KeyTypeECDSA, nil
	case "RSA", "rsa":
		return KeyTypeRSA, nil
	default:
		return KeyTypeUnspecified, ErrBadKeyType
	}
}

// Key 密钥基础接口
type Key interface {
	// Raw 返回密钥的原始字节
	Raw() ([]byte, error)

	// Type 返回密钥类型
	Type() KeyType

	// Equals 比较两个密钥
	Equals(Key) bool
}

// PublicKey 公钥
type PublicKey interface {
	Key

	// Verify 验证签名
	//
	// 签名不匹配返回 (false, nil)，只有验证过程本身出错才返回 error。
	Verify(data, sig []byte) (bool, error)
}

// PrivateKey 私钥
type PrivateKey interface {
	Key

	// Sign 对数据签名
	Sign(data []byte) ([]byte, error)

	// GetPublic 返回对应公钥
	GetPublic() PublicKey

	// stdSigner 返回标准库签名器，用于签发证书
	stdSigner() stdcrypto.Signer
}

// GenerateKeyPair 生成密钥对
func GenerateKeyPair(keyType KeyType) (PrivateKey, PublicKey, error) {
	return GenerateKeyPairWithReader(keyType, rand.Reader)
}

// GenerateKeyPairWithReader 使用指定随机源生成密钥对
func GenerateKeyPairWithReader(keyType KeyType, reader io.Reader) (PrivateKey, PublicKey, error) {
	switch keyType {
	case KeyTypeEd25519:
		return GenerateEd25519Key(reader)
	case KeyTypeECDSA:
		return GenerateECDSAKey(reader)
	case KeyTypeRSA:
		return GenerateRSAKey(RSADefaultKeySize, reader)
	default:
		return nil, nil, ErrBadKeyType
	}
}

// KeyEqual 按类型与原始字节比较密钥
func KeyEqual(k1, k2 Key) bool {
	if k1.Type() != k2.Type() {
		return false
	}
	b1, err1 := k1.Raw()
	b2, err2 := k2.Raw()
	if err1 != nil || err2 != nil {
		return false
	}
	return subtle.ConstantTimeCompare(b1, b2) == 1
}

// publicKeyFromStd 包装标准库公钥
func publicKeyFromStd(pub stdcrypto.PublicKey) (PublicKey, error) {
	switch k := pub.(type) {
	case ed25519PublicKeyStd:
		return &Ed25519PublicKey{k: k}, nil
	case ecdsaPublicKeyStd:
		return newECDSAPublicKey(k)
	case rsaPublicKeyStd:
		return &RSAPublicKey{k: k}, nil
	default:
		return nil, ErrBadKeyType
	}
}

// privateKeyFromStd 包装标准库私钥
func privateKeyFromStd(key any) (PrivateKey, error) {
	switch k := key.(type) {
	case ed25519PrivateKeyStd:
		return &Ed25519PrivateKey{k: k}, nil
	case ecdsaPrivateKeyStd:
		if _, err := newECDSAPublicKey(&k.PublicKey); err != nil {
			return nil, err
		}
		return &ECDSAPrivateKey{k: k}, nil
	case rsaPrivateKeyStd:
		return &RSAPrivateKey{k: k}, nil
	default:
		return nil, ErrBadKeyType
	}
}

package crypto

import (
	stdcrypto "crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"io"
)

type (
	ecdsaPublicKeyStd  = *ecdsa.PublicKey
	ecdsaPrivateKeyStd = *ecdsa.PrivateKey
)

// ECDSAPublicKey P-256 公钥
type ECDSAPublicKey struct {
	k *ecdsa.PublicKey
}

func newECDSAPublicKey(k *ecdsa.PublicKey) (PublicKey, error) {
	if k.Curve != elliptic.P256() {
		return nil, ErrBadKeyType
	}
	return &ECDSAPublicKey{k: k}, nil
}

// Raw 返回 PKIX 编码
func (k *ECDSAPublicKey) Raw() ([]byte, error) {
	return x509.MarshalPKIXPublicKey(k.k)
}

// Type 返回密钥类型
func (k *ECDSAPublicKey) Type() KeyType { return KeyTypeECDSA }

// Equals 比较公钥
func (k *ECDSAPublicKey) Equals(other Key) bool {
	ek, ok := other.(*ECDSAPublicKey)
	if !ok {
		return KeyEqual(k, other)
	}
	return k.k.Equal(ek.k)
}

// Verify 对数据的 SHA-256 摘要验证 ASN.1 签名
func (k *ECDSAPublicKey) Verify(data, sig []byte) (bool, error) {
	return ecdsa.VerifyASN1(k.k, SHA256(data), sig), nil
}

// ECDSAPrivateKey P-256 私钥
type ECDSAPrivateKey struct {
	k *ecdsa.PrivateKey
}

// Raw 返回 SEC1 编码
func (k *ECDSAPrivateKey) Raw() ([]byte, error) {
	return x509.MarshalECPrivateKey(k.k)
}

// Type 返回密钥类型
func (k *ECDSAPrivateKey) Type() KeyType { return KeyTypeECDSA }

// Equals 比较私钥
func (k *ECDSAPrivateKey) Equals(other Key) bool {
	ek, ok := other.(*ECDSAPrivateKey)
	if !ok {
		return KeyEqual(k, other)
	}
	return k.k.Equal(ek.k)
}

// GetPublic 返回公钥
func (k *ECDSAPrivateKey) GetPublic() PublicKey {
	return &ECDSAPublicKey{k: &k.k.PublicKey}
}

// Sign 对数据的 SHA-256 摘要签名
func (k *ECDSAPrivateKey) Sign(data []byte) ([]byte, error) {
	return ecdsa.SignASN1(randReader, k.k, SHA256(data))
}

func (k *ECDSAPrivateKey) stdSigner() stdcrypto.Signer { return k.k }

// GenerateECDSAKey 生成 P-256 密钥对
func GenerateECDSAKey(src io.Reader) (PrivateKey, PublicKey, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), src)
	if err != nil {
		return nil, nil, err
	}
	return &ECDSAPrivateKey{k: priv}, &ECDSAPublicKey{k: &priv.PublicKey}, nil
}

package crypto

import (
	stdcrypto "crypto"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"io"
)

type (
	rsaPublicKeyStd  = *rsa.PublicKey
	rsaPrivateKeyStd = *rsa.PrivateKey
)

// RSA 密钥长度限制
const (
	RSAMinKeySize     = 2048
	RSADefaultKeySize = 2048
	RSAMaxKeySize     = 8192
)

// RSAPublicKey RSA 公钥
type RSAPublicKey struct {
	k *rsa.PublicKey
}

// Raw 返回 PKIX 编码
func (k *RSAPublicKey) Raw() ([]byte, error) {
	return x509.MarshalPKIXPublicKey(k.k)
}

// Type 返回密钥类型
func (k *RSAPublicKey) Type() KeyType { return KeyTypeRSA }

// Equals 比较公钥
func (k *RSAPublicKey) Equals(other Key) bool {
	rk, ok := other.(*RSAPublicKey)
	if !ok {
		return KeyEqual(k, other)
	}
	return k.k.Equal(rk.k)
}

// Verify PKCS#1 v1.5 + SHA-256 验签
func (k *RSAPublicKey) Verify(data, sig []byte) (bool, error) {
	err := rsa.VerifyPKCS1v15(k.k, stdcrypto.SHA256, SHA256(data), sig)
	return err == nil, nil
}

// RSAPrivateKey RSA 私钥
type RSAPrivateKey struct {
	k *rsa.PrivateKey
}

// Raw 返回 PKCS#1 编码
func (k *RSAPrivateKey) Raw() ([]byte, error) {
	return x509.MarshalPKCS1PrivateKey(k.k), nil
}

// Type 返回密钥类型
func (k *RSAPrivateKey) Type() KeyType { return KeyTypeRSA }

// Equals 比较私钥
func (k *RSAPrivateKey) Equals(other Key) bool {
	rk, ok := other.(*RSAPrivateKey)
	if !ok {
		return KeyEqual(k, other)
	}
	return k.k.Equal(rk.k)
}

// GetPublic 返回公钥
func (k *RSAPrivateKey) GetPublic() PublicKey {
	return &RSAPublicKey{k: &k.k.PublicKey}
}

// Sign PKCS#1 v1.5 + SHA-256 签名
func (k *RSAPrivateKey) Sign(data []byte) ([]byte, error) {
	return rsa.SignPKCS1v15(randReader, k.k, stdcrypto.SHA256, SHA256(data))
}

func (k *RSAPrivateKey) stdSigner() stdcrypto.Signer { return k.k }

// GenerateRSAKey 生成 RSA 密钥对
func GenerateRSAKey(bits int, src io.Reader) (PrivateKey, PublicKey, error) {
	if bits < RSAMinKeySize || bits > RSAMaxKeySize {
		return nil, nil, fmt.Errorf("%w: RSA key size %d out of [%d, %d]",
			ErrInvalidKeySize, bits, RSAMinKeySize, RSAMaxKeySize)
	}
	priv, err := rsa.GenerateKey(src, bits)
	if err != nil {
		return nil, nil, err
	}
	return &RSAPrivateKey{k: priv}, &RSAPublicKey{k: &priv.PublicKey}, nil
}

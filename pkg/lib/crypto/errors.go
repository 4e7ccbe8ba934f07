package crypto

import "errors"

// 密钥相关错误
var (
	// ErrBadKeyType 无效或不支持的密钥类型
	ErrBadKeyType = errors.New("crypto: invalid or unsupported key type")

	// ErrNilPrivateKey 私钥为空
	ErrNilPrivateKey = errors.New("crypto: nil private key")

	// ErrInvalidKeySize 密钥长度无效
	ErrInvalidKeySize = errors.New("crypto: invalid key size")

	// ErrInvalidPublicKey 公钥无效
	ErrInvalidPublicKey = errors.New("crypto: invalid public key")

	// ErrInvalidPrivateKey 私钥无效
	ErrInvalidPrivateKey = errors.New("crypto: invalid private key")
)

// 证书相关错误
var (
	// ErrInvalidCertificate 证书无法解析
	ErrInvalidCertificate = errors.New("crypto: invalid certificate")

	// ErrBadCertificateSignature 证书自签名校验失败
	ErrBadCertificateSignature = errors.New("crypto: bad certificate self-signature")

	// ErrInvalidKeyFile 密钥文件格式无效
	ErrInvalidKeyFile = errors.New("crypto: invalid key file format")

	// ErrUnknownHash 不支持的哈希算法
	ErrUnknownHash = errors.New("crypto: unknown hash algorithm")
)

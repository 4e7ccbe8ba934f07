package identity

import "errors"

// ============================================================================
// 错误定义
// ============================================================================

var (
	// ErrUnknownSigner 证书表中没有该签名者身份
	ErrUnknownSigner = errors.New("identity: unknown signer identity")

	// ErrNoneIdentity 签名者身份为 none，无法查找证书
	ErrNoneIdentity = errors.New("identity: signer identity is none")

	// ErrCertificateExpired 签名者证书已过期
	ErrCertificateExpired = errors.New("identity: certificate expired")

	// ErrInvalidSignature 签名校验失败
	ErrInvalidSignature = errors.New("identity: invalid signature")

	// ErrUnsupportedHash 不支持的哈希算法
	ErrUnsupportedHash = errors.New("identity: unsupported hash algorithm")

	// ErrNodeIDLength Node-ID 长度与 overlay 配置不符
	ErrNodeIDLength = errors.New("identity: node id length mismatch")

	// ErrNodeIDNotDerived Node-ID 不是由证书公钥派生的
	ErrNodeIDNotDerived = errors.New("identity: node id not derived from public key")
)

package identity

import (
	"github.com/dep2p/go-reload/pkg/lib/crypto"
	"github.com/dep2p/go-reload/pkg/message"
)

// ============================================================================
// 哈希与身份计算
// ============================================================================

// ParseHashAlgorithm 按配置名称返回哈希算法码
func ParseHashAlgorithm(name string) (message.HashAlgorithm, error) {
	switch name {
	case "sha1", "SHA-1":
		return message.HashSHA1, nil
	case "sha256", "SHA-256":
		return message.HashSHA256, nil
	default:
		return message.HashNone, ErrUnsupportedHash
	}
}

// HashFunc 返回算法码对应的哈希函数
func HashFunc(alg message.HashAlgorithm) (crypto.HashFunc, error) {
	switch alg {
	case message.HashSHA1:
		return crypto.SHA1, nil
	case message.HashSHA256:
		return crypto.SHA256, nil
	default:
		return nil, ErrUnsupportedHash
	}
}

// IdentityHash 计算签名者身份哈希
//
// nodeID 为空时计算 cert_hash，否则计算 cert_hash_node_id。
func IdentityHash(alg message.HashAlgorithm, cert *crypto.Certificate, nodeID []byte) ([]byte, error) {
	h, err := HashFunc(alg)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(nodeID)+len(cert.Raw))
	buf = append(buf, nodeID...)
	buf = append(buf, cert.Raw...)
	return h(buf), nil
}

// NodeIdentity 返回证书绑定 nodeID 的 cert_hash_node_id 身份
func NodeIdentity(alg message.HashAlgorithm, cert *crypto.Certificate, nodeID []byte) (message.SignerIdentity, error) {
	sum, err := IdentityHash(alg, cert, nodeID)
	if err != nil {
		return message.SignerIdentity{}, err
	}
	return message.SignerIdentity{Type: message.IdentityCertHashNodeID, HashAlg: alg, Hash: sum}, nil
}

// CertIdentity 返回证书的 cert_hash 身份
func CertIdentity(alg message.HashAlgorithm, cert *crypto.Certificate) (message.SignerIdentity, error) {
	sum, err := IdentityHash(alg, cert, nil)
	if err != nil {
		return message.SignerIdentity{}, err
	}
	return message.SignerIdentity{Type: message.IdentityCertHash, HashAlg: alg, Hash: sum}, nil
}

// SignatureAlgorithm 密钥类型对应的签名算法码
func SignatureAlgorithm(kt crypto.KeyType) message.SignatureAlgorithm {
	switch kt {
	case crypto.KeyTypeRSA:
		return message.SignatureRSA
	case crypto.KeyTypeECDSA:
		return message.SignatureECDSA
	case crypto.KeyTypeEd25519:
		return message.SignatureEd25519
	default:
		return message.SignatureAnonymous
	}
}

// Verify 用证书公钥校验签名
func Verify(cert *crypto.Certificate, data []byte, sig message.Signature) error {
	if len(sig.Value) == 0 {
		return ErrInvalidSignature
	}
	if SignatureAlgorithm(cert.PublicKey.Type()) != sig.SigAlg {
		return ErrInvalidSignature
	}
	ok, err := cert.PublicKey.Verify(data, sig.Value)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidSignature
	}
	return nil
}

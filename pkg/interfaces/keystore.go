package interfaces

import (
	"github.com/dep2p/go-reload/pkg/lib/crypto"
	"github.com/dep2p/go-reload/pkg/message"
)

// Keystore 证书存储与本地签名身份
type Keystore interface {
	// GetCertificate 按签名者身份查找证书
	GetCertificate(id message.SignerIdentity) (*crypto.Certificate, error)

	// AddCertificate 校验并加入一张证书，自签名无效或 Node-ID 非公钥派生时返回错误
	AddCertificate(cert *crypto.Certificate) error

	// LocalCertificate 本节点证书
	LocalCertificate() *crypto.Certificate

	// LocalIdentity 本节点签名者身份
	LocalIdentity() message.SignerIdentity

	// Sign 以本节点私钥签名
	Sign(data []byte) (message.Signature, error)

	// Verify 查找签名者证书并校验签名
	Verify(data []byte, sig message.Signature) error
}

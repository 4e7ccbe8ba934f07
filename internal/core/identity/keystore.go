package identity

import (
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/lib/crypto"
	"github.com/dep2p/go-reload/pkg/lib/log"
	"github.com/dep2p/go-reload/pkg/message"
)

var logger = log.Logger("core/identity")

// indexedHashes 证书建立索引时使用的身份哈希算法
var indexedHashes = []message.HashAlgorithm{message.HashSHA1, message.HashSHA256}

// Keystore 内存证书表
//
// 以签名者身份为键索引证书，并持有本节点私钥用于签名。
type Keystore struct {
	mu    sync.RWMutex
	certs map[string]*crypto.Certificate

	id      *Identity
	localID message.SignerIdentity
	clock   clock.Clock
}

// NewKeystore 创建证书表并加入本节点证书
//
// 本节点签名使用 hashAlg 计算的 cert_hash_node_id 身份。
func NewKeystore(id *Identity, hashAlg message.HashAlgorithm, clk clock.Clock) (*Keystore, error) {
	if clk == nil {
		clk = clock.New()
	}
	localID, err := NodeIdentity(hashAlg, id.Certificate, id.NodeID)
	if err != nil {
		return nil, err
	}
	ks := &Keystore{
		certs:   make(map[string]*crypto.Certificate),
		id:      id,
		localID: localID,
		clock:   clk,
	}
	if err := ks.AddCertificate(id.Certificate); err != nil {
		return nil, err
	}
	return ks, nil
}

// AddCertificate 校验并加入证书，按 cert_hash 与每个 Node-ID 的 cert_hash_node_id 建立索引
//
// 证书须自签名有效，且每个 Node-ID 都等于由证书公钥派生的值。
func (ks *Keystore) AddCertificate(cert *crypto.Certificate) error {
	if err := ks.checkCertificate(cert); err != nil {
		logger.Warn("拒绝证书", "username", cert.Username, "err", err)
		return err
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	for _, alg := range indexedHashes {
		if ci, err := CertIdentity(alg, cert); err == nil {
			ks.certs[ci.Key()] = cert
		}
		for _, n := range cert.NodeIDs {
			if ni, err := NodeIdentity(alg, cert, n); err == nil {
				ks.certs[ni.Key()] = cert
			}
		}
	}
	logger.Debug("证书已加入", "node_ids", len(cert.NodeIDs), "username", cert.Username)
	return nil
}

func (ks *Keystore) checkCertificate(cert *crypto.Certificate) error {
	if err := cert.CheckSelfSignature(); err != nil {
		return err
	}
	n := len(ks.id.NodeID)
	derived, err := DeriveNodeID(cert.PublicKey, n)
	if err != nil {
		return err
	}
	for _, id := range cert.NodeIDs {
		if len(id) != n {
			return fmt.Errorf("%w: %d != %d", ErrNodeIDLength, len(id), n)
		}
		if !derived.Equal(id) {
			return fmt.Errorf("%w: %x", ErrNodeIDNotDerived, id)
		}
	}
	return nil
}

// GetCertificate 按签名者身份查找证书
func (ks *Keystore) GetCertificate(id message.SignerIdentity) (*crypto.Certificate, error) {
	if id.Type == message.IdentityNone {
		return nil, ErrNoneIdentity
	}
	ks.mu.RLock()
	cert, ok := ks.certs[id.Key()]
	ks.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownSigner
	}
	if !cert.NotAfter.IsZero() && ks.clock.Now().After(cert.NotAfter) {
		return nil, ErrCertificateExpired
	}
	return cert, nil
}

// LocalCertificate 本节点证书
func (ks *Keystore) LocalCertificate() *crypto.Certificate {
	return ks.id.Certificate
}

// LocalIdentity 本节点签名者身份
func (ks *Keystore) LocalIdentity() message.SignerIdentity {
	return ks.localID
}

// LocalNodeID 本节点标识
func (ks *Keystore) LocalNodeID() message.NodeID {
	return ks.id.NodeID
}

// Sign 以本节点私钥签名
func (ks *Keystore) Sign(data []byte) (message.Signature, error) {
	v, err := ks.id.PrivateKey.Sign(data)
	if err != nil {
		return message.Signature{}, err
	}
	return message.Signature{
		HashAlg:  message.HashSHA256,
		SigAlg:   SignatureAlgorithm(ks.id.PrivateKey.Type()),
		Identity: ks.localID,
		Value:    v,
	}, nil
}

// Verify 查找签名者证书并校验签名
func (ks *Keystore) Verify(data []byte, sig message.Signature) error {
	cert, err := ks.GetCertificate(sig.Identity)
	if err != nil {
		return err
	}
	return Verify(cert, data, sig)
}

// Len 已索引的身份数
func (ks *Keystore) Len() int {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return len(ks.certs)
}

var _ interfaces.Keystore = (*Keystore)(nil)

package identity

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dep2p/go-reload/config"
	"github.com/dep2p/go-reload/pkg/lib/crypto"
	"github.com/dep2p/go-reload/pkg/message"
)

// Identity 本节点身份：私钥、Node-ID 与自签名证书
type Identity struct {
	NodeID      message.NodeID
	PrivateKey  crypto.PrivateKey
	Certificate *crypto.Certificate
}

// Load 按配置加载或生成本节点身份
//
// KeyFile 为空时生成临时密钥；Node-ID 总由公钥派生，配置的 NodeID 只用于核对。
func Load(idCfg config.IdentityConfig, ovCfg config.OverlayConfig) (*Identity, error) {
	kt, err := crypto.ParseKeyType(idCfg.KeyType)
	if err != nil {
		return nil, err
	}

	var priv crypto.PrivateKey
	if idCfg.KeyFile != "" {
		priv, err = crypto.LoadOrGenerateKey(idCfg.KeyFile, kt)
	} else {
		priv, _, err = crypto.GenerateKeyPair(kt)
	}
	if err != nil {
		return nil, fmt.Errorf("加载私钥失败: %w", err)
	}

	nodeID, err := DeriveNodeID(priv.GetPublic(), ovCfg.NodeIDLength)
	if err != nil {
		return nil, err
	}
	if idCfg.NodeID != "" {
		raw, err := hex.DecodeString(idCfg.NodeID)
		if err != nil {
			return nil, err
		}
		if len(raw) != ovCfg.NodeIDLength {
			return nil, fmt.Errorf("%w: %d != %d", ErrNodeIDLength, len(raw), ovCfg.NodeIDLength)
		}
		if !nodeID.Equal(raw) {
			return nil, fmt.Errorf("%w: configured %s, key gives %x", ErrNodeIDNotDerived, idCfg.NodeID, []byte(nodeID))
		}
	}

	return New(priv, nodeID, ovCfg.Name, idCfg.Username, idCfg.CertValidity.Duration())
}

// New 由已有私钥与 Node-ID 签发证书
func New(priv crypto.PrivateKey, nodeID message.NodeID, overlay, username string, validity time.Duration) (*Identity, error) {
	cert, err := crypto.NewSelfSignedCertificate(priv, crypto.CertificateTemplate{
		Overlay:  overlay,
		NodeIDs:  [][]byte{nodeID},
		Username: username,
		Validity: validity,
	})
	if err != nil {
		return nil, fmt.Errorf("签发证书失败: %w", err)
	}
	return &Identity{NodeID: nodeID, PrivateKey: priv, Certificate: cert}, nil
}

// DeriveNodeID 取公钥 SHA-256 摘要的前 n 字节
func DeriveNodeID(pub crypto.PublicKey, n int) (message.NodeID, error) {
	raw, err := pub.Raw()
	if err != nil {
		return nil, err
	}
	return message.NodeID(crypto.Truncated(crypto.SHA256, n)(raw)), nil
}

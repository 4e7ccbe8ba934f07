package dht

import (
	"bytes"
	"fmt"

	"github.com/dep2p/go-reload/internal/core/identity"
	"github.com/dep2p/go-reload/pkg/lib/crypto"
	"github.com/dep2p/go-reload/pkg/message"
)

// 访问策略名称
const (
	PolicyNodeMatch = "node-match"
	PolicyUserMatch = "user-match"
)

// AccessPolicy 存储访问策略
//
// 由负责节点在接受写入前调用，cert 为签名者身份对应的证书。
type AccessPolicy interface {
	Name() string
	Check(resource message.ResourceID, signer message.SignerIdentity, cert *crypto.Certificate) error
}

// NodeMatch 资源标识必须等于证书中某个 NodeID 的哈希，
// 且签名者身份为该 NodeID 的 cert_hash_node_id
type NodeMatch struct {
	hash crypto.HashFunc
}

// NewNodeMatch 创建 node-match 策略，hash 为截断到资源标识长度的 overlay 哈希
func NewNodeMatch(hash crypto.HashFunc) *NodeMatch {
	return &NodeMatch{hash: hash}
}

// Name 实现 AccessPolicy
func (*NodeMatch) Name() string { return PolicyNodeMatch }

// ResourceIDFor 返回 nodeID 可写入的资源标识
func (p *NodeMatch) ResourceIDFor(nodeID message.NodeID) message.ResourceID {
	return message.ResourceID(p.hash(nodeID))
}

// Check 实现 AccessPolicy
func (p *NodeMatch) Check(resource message.ResourceID, signer message.SignerIdentity, cert *crypto.Certificate) error {
	if signer.Type != message.IdentityCertHashNodeID {
		return fmt.Errorf("%w: node-match needs cert_hash_node_id signer, got %s", ErrAccessDenied, signer.Type)
	}
	for _, id := range cert.NodeIDs {
		if !bytes.Equal(p.hash(id), resource) {
			continue
		}
		sum, err := identity.IdentityHash(signer.HashAlg, cert, id)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
		if bytes.Equal(sum, signer.Hash) {
			return nil
		}
	}
	return fmt.Errorf("%w: no certificate node id maps to %s", ErrAccessDenied, resource)
}

// UserMatch 资源标识必须等于证书用户名的哈希
type UserMatch struct {
	hash crypto.HashFunc
}

// NewUserMatch 创建 user-match 策略
func NewUserMatch(hash crypto.HashFunc) *UserMatch {
	return &UserMatch{hash: hash}
}

// Name 实现 AccessPolicy
func (*UserMatch) Name() string { return PolicyUserMatch }

// ResourceIDFor 返回 username 可写入的资源标识
func (p *UserMatch) ResourceIDFor(username string) message.ResourceID {
	return message.ResourceID(p.hash([]byte(username)))
}

// Check 实现 AccessPolicy
func (p *UserMatch) Check(resource message.ResourceID, signer message.SignerIdentity, cert *crypto.Certificate) error {
	if signer.Type == message.IdentityNone {
		return fmt.Errorf("%w: user-match needs a signer", ErrAccessDenied)
	}
	if cert.Username == "" || !bytes.Equal(p.hash([]byte(cert.Username)), resource) {
		return fmt.Errorf("%w: username does not map to %s", ErrAccessDenied, resource)
	}
	return nil
}

// PolicySet 按名称查找的访问策略集合
type PolicySet struct {
	NodeMatch *NodeMatch
	UserMatch *UserMatch
}

// NewPolicySet 创建内置策略集合
//
// hash 为 overlay 哈希，ridLen 为资源标识长度。
func NewPolicySet(hash crypto.HashFunc, ridLen int) *PolicySet {
	h := crypto.Truncated(hash, ridLen)
	return &PolicySet{NodeMatch: NewNodeMatch(h), UserMatch: NewUserMatch(h)}
}

// Get 按名称返回策略
func (s *PolicySet) Get(name string) (AccessPolicy, error) {
	switch name {
	case PolicyNodeMatch:
		return s.NodeMatch, nil
	case PolicyUserMatch:
		return s.UserMatch, nil
	default:
		return nil, fmt.Errorf("dht: unknown access policy %q", name)
	}
}

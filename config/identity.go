package config

import (
	"encoding/hex"
	"errors"
	"time"
)

// IdentityConfig 身份配置
type IdentityConfig struct {
	// KeyType 密钥类型: "Ed25519"、"ECDSA"、"RSA"
	KeyType string `json:"key_type"`

	// KeyFile PEM 私钥文件路径，为空时使用临时密钥
	KeyFile string `json:"key_file"`

	// NodeID 十六进制节点标识，可选；设置时必须等于由公钥派生的值
	NodeID string `json:"node_id,omitempty"`

	// Username 写入证书的用户名，用于 user-match 策略
	Username string `json:"username,omitempty"`

	// CertValidity 自签名证书有效期
	CertValidity Duration `json:"cert_validity"`
}

// DefaultIdentityConfig 返回默认身份配置
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{
		KeyType:      "Ed25519",
		CertValidity: Duration(365 * 24 * time.Hour),
	}
}

// Validate 验证身份配置
func (c *IdentityConfig) Validate() error {
	switch c.KeyType {
	case "Ed25519", "ECDSA", "RSA":
	default:
		return errors.New("identity: key_type must be Ed25519, ECDSA, or RSA")
	}
	if c.NodeID != "" {
		if _, err := hex.DecodeString(c.NodeID); err != nil {
			return errors.New("identity: node_id must be hex")
		}
	}
	if c.CertValidity <= 0 {
		return errors.New("identity: cert_validity must be positive")
	}
	return nil
}

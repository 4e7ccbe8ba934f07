// Package crypto 提供 overlay 使用的密码学工具
//
// 本包提供签名密钥、overlay 哈希和携带 Node-ID 的 X.509 证书。
//
// # 支持的密钥类型
//
//   - Ed25519（默认推荐）
//   - ECDSA（P-256）
//   - RSA（RFC 要求的基础算法）
//
// # 快速开始
//
//	priv, _, err := crypto.GenerateKeyPair(crypto.KeyTypeEd25519)
//	cert, err := crypto.NewSelfSignedCertificate(priv, crypto.CertificateTemplate{
//	    Overlay: "example.org",
//	    NodeIDs: [][]byte{nodeID},
//	})
//
// 证书中的 Node-ID 以 URI 形式 "reload:<hex>@<overlay>" 写入 SubjectAltName，
// 用户名以 rfc822Name 写入。
package crypto

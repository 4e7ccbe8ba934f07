// Package identity 管理本节点身份与证书存储
//
// 本包负责：
//   - 加载或生成节点私钥，派生 Node-ID
//   - 签发绑定 Node-ID 与用户名的自签名证书
//   - 维护按签名者身份索引的证书表（Keystore）
//   - 计算 cert_hash / cert_hash_node_id 身份哈希
//
// # 身份哈希
//
// cert_hash 为 hash(证书 DER)，cert_hash_node_id 为 hash(Node-ID ‖ 证书 DER)。
// 每张证书按 SHA-1 与 SHA-256 两种算法同时建立索引。
//
// # Fx 模块
//
//	app := fx.New(
//	    identity.Module(),
//	    fx.Invoke(func(ks interfaces.Keystore) {
//	        fmt.Println(ks.LocalIdentity().Type)
//	    }),
//	)
//
// 模块同时以 name:"local_node_id" 提供本节点 message.NodeID。
package identity

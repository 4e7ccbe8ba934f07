// Package lib 包含与 overlay 组件无关的基础工具库
//
//   - crypto: 节点密钥、签名与自签名证书
//   - future: 异步结果
//   - log: 基于 slog 的分级日志
//
// 使用示例
//
//	import (
//	    "github.com/dep2p/go-reload/pkg/lib/crypto"
//	    "github.com/dep2p/go-reload/pkg/lib/log"
//	)
package lib

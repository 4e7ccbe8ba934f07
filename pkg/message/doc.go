// Package message 定义 overlay 的线格式类型
//
// 包括转发头（Header）、可路由标识（NodeID / ResourceID / OpaqueID）、
// 目的地列表、消息内容（Content）与安全块（SecurityBlock）。
// 所有类型都基于 pkg/codec 编解码，多态类型在线上以显式判别字节区分，
// 编解码函数在包初始化时注册到静态注册表。
//
// # 构建
//
// Header 与 Message 通过 Builder 构建，构建后不可变：
//
//	hdr := message.NewHeaderBuilder().
//	    SetTTL(100).
//	    SetDestinationList(message.DestinationList{resID}).
//	    Build()
package message

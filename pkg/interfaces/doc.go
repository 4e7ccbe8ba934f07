// Package interfaces 定义 overlay 核心依赖的协作者接口
//
// 转发引擎与存储引擎只通过这些接口访问拓扑、连接、消息路由和证书：
//   - topology.go  - TopologyPlugin 拓扑插件
//   - connmgr.go   - ConnectionManager 邻居连接
//   - router.go    - MessageRouter 请求/应答路由
//   - keystore.go  - Keystore 证书与本地签名身份
package interfaces

//go:generate mockgen -destination=mocks/mock_interfaces.go -package=mocks . TopologyPlugin,ConnectionManager,MessageRouter

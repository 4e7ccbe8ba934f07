// Package storage 提供节点的持久化存储服务
//
// 基于 BadgerDB，所有组件共享同一个引擎并通过键前缀隔离：
//
//	前缀     | 使用方         | 说明
//	---------|----------------|------------------------------
//	s/d/     | dht.DataStore  | 每个 (资源, 种类) 的存储数据
//	s/g/     | dht.DataStore  | 每个 (资源, 种类) 的代数计数
//	s/k/     | dht.KindTable  | 动态下发的种类定义
//
// 测试使用 t.TempDir() 作为数据目录。
package storage

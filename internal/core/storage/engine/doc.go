// Package engine 定义键值存储引擎接口
//
// 数据存储层只依赖本包的 Engine 接口，底层实现位于 engine/badger。
package engine

// Package dht 实现 overlay 的分布式存储引擎
//
// 数据以 (资源标识, 种类) 为单位保存。每个种类声明数据模型
// （single / array / dictionary）与访问策略（node-match / user-match）。
//
// 客户端侧由 Service 发起 Store / Fetch / Stat / Remove 请求，结果以
// future.Future 返回；服务端侧由 Controller 处理本节点负责的请求，
// 校验签名与访问策略后写入 DataStore。
//
// # 删除语义
//
// 协议没有删除操作。Remove 为每个匹配元素生成 exists=false、lifeTime=0
// 的墓碑值，再交给 Store。数组范围重叠时同一下标只生成一个墓碑。
//
// # 签名
//
// 每个 StoredData 单独签名，签名输入为
// resourceID ‖ kindID ‖ storageTime ‖ value。数组值签名时下标固定为
// AppendIndex，使追加写入后签名仍然有效。
package dht

// Package routing 实现 overlay 消息的逐跳转发与请求/应答路由
//
// Forwarder 处理每条入站消息：解析目的地列表首项（展开不透明标识、
// 弹出本节点），校验后要么交给上层，要么递减 TTL 转发给下一跳邻居。
// Router 在其上维护按事务 ID 索引的请求表，并分发本地请求给处理函数。
// PathCompressor 把目的地列表后缀压缩为短期有效的不透明标识。
package routing

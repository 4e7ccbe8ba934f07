// Package topology 提供参考拓扑插件
//
// 节点标识与资源标识映射到同一个环上，资源由顺时针方向上
// 第一个节点负责。插件只使用本节点与当前邻居的信息：
//
//   - IsLocalPeerResponsible: 没有邻居比本节点更接近资源（顺时针）时负责
//   - NextHop: 选择顺时针最接近目标的邻居
//   - ReplicaNodes: 本节点之后顺时针的若干邻居
//
// 完整的 Chord 指针表与稳定化不在此实现。
package topology

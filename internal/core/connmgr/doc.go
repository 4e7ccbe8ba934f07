// Package connmgr 管理到邻居节点的链路
//
// # 核心功能
//
// 1. 邻居表 - 节点标识到链路的映射
//   - IsNeighbor / Neighbors / Send 实现 interfaces.ConnectionManager
//   - 同一节点只保留一条链路，重复的链路被关闭
//   - 邻居数达到 MaxNeighbors 时拒绝新链路
//
// 2. 链路 - net.Conn 上的定长前缀分帧
//   - 每帧为 length(4, 大端) + 消息字节
//   - 超过最大消息长度的帧被丢弃，链路保持
//   - 建立链路后双方交换握手帧：overlay 哈希 + 版本 + 节点标识
//
// 3. 门控 - 阻止指定节点建立链路
//
// 4. 离开 - 处理 Leave 请求，关闭时向全部邻居发送 Leave
//
// # 快速开始
//
//	mgr := connmgr.New(cfg, localID, nil)
//	mgr.SetInbound(func(ctx context.Context, from message.NodeID, frame []byte) {
//	    fwd.HandleInbound(ctx, from, frame)
//	})
//	if err := mgr.Listen("127.0.0.1:7400"); err != nil {
//	    return err
//	}
//	id, err := mgr.Dial(ctx, "10.0.0.2:7400")
//
// # Fx 模块
//
//	fx.New(
//	    connmgr.Module(),
//	)
//
// 模块在启动时把入站帧交给转发引擎、注册 Leave 处理并开始监听，
// 停止时向邻居发送 Leave 后关闭全部链路。
package connmgr

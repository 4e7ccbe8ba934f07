// Package eventbus 进程内事件总线
//
// 按事件的具体类型分发，订阅与发射都以类型指针标识：
//
//	sub, _ := bus.Subscribe(new(eventbus.EvtNeighborConnected))
//	defer sub.Close()
//	for evt := range sub.Out() {
//	    e := evt.(eventbus.EvtNeighborConnected)
//	    ...
//	}
//
// 订阅者缓冲区满时事件被丢弃，发射方从不阻塞。有状态发射器保留
// 最后一个事件，新订阅者立即收到它。
//
// 链路管理器用它通告邻居的建立与断开，节点门面把订阅暴露给使用者。
package eventbus

// Package reload 提供 RELOAD 风格的 overlay 节点
//
// 节点把逐跳转发、请求路由、邻居链路与 DHT 存储装配在一起，
// 对外暴露存储、取回、删除、元数据查询与应用连接。
//
// # 快速开始
//
//	node, err := reload.Start(ctx,
//	    reload.WithDataDir("./data"),
//	    reload.WithListenAddr("0.0.0.0:6084"),
//	    reload.WithBootstrap("192.0.2.10:6084"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	res := node.NodeResourceID()
//	_, err = node.Store(ctx, res, reload.NewPreparedData(1).SetSingle([]byte("hello"))).Wait(ctx)
//
//	vals, err := node.Fetch(ctx, res, reload.StoredDataSpecifier{Kind: 1, Value: reload.SingleSpecifier{}}).Wait(ctx)
//
// # 组件
//
//	┌───────────────────────────────────────────────┐
//	│  Node            reload.New() / reload.Start() │
//	├───────────────────────────────────────────────┤
//	│  dht             Store / Fetch / Remove / Stat │
//	│  appattach       应用服务器地址交换            │
//	├───────────────────────────────────────────────┤
//	│  routing         Forwarder / Router            │
//	│  topology        环形参考拓扑                  │
//	│  connmgr         TCP 邻居链路                  │
//	├───────────────────────────────────────────────┤
//	│  identity  storage(badger)  metrics  eventbus  │
//	└───────────────────────────────────────────────┘
//
// 组件以 fx 模块装配，停止时按相反顺序关闭：先通知邻居离开，
// 再关闭链路、路由与存储引擎，最后关闭事件总线。
//
// # 事件
//
//	sub, _ := node.Subscribe(new(reload.EvtNeighborConnected))
//	for evt := range sub.Out() {
//	    e := evt.(reload.EvtNeighborConnected)
//	    fmt.Println("neighbor", e.ID, e.Addr)
//	}
package reload

// Package appattach 实现应用层连接地址交换
//
// 本节点登记已在监听的应用服务器（按应用端口号），其他节点通过
// AppAttach 请求取得服务器的候选地址后直接建立应用连接：
//
//	svc.RegisterServer(5060, netip.MustParseAddrPort("0.0.0.0:5060"))
//	addr, err := svc.RequestAddress(ctx, dest, 5060).Wait(ctx)
//
// 未登记的应用返回 NOT_FOUND。候选地址只包含主机候选，不做 ICE 协商。
package appattach

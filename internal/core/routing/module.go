package routing

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-reload/config"
	"github.com/dep2p/go-reload/internal/core/metrics"
	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/lib/log"
	"github.com/dep2p/go-reload/pkg/message"
)

var logger = log.Logger("core/routing")

// Params Routing 模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config                `optional:"true"`
	LocalID    message.NodeID                `name:"local_node_id"`
	Topology   interfaces.TopologyPlugin
	Conns      interfaces.ConnectionManager
	Keystore   interfaces.Keystore `optional:"true"`
	Metrics    *metrics.Metrics    `optional:"true"`
	Clock      clock.Clock         `optional:"true"`
}

// Result Routing 模块提供的结果
type Result struct {
	fx.Out

	Compressor    *PathCompressor
	Forwarder     *Forwarder
	Router        *Router
	MessageRouter interfaces.MessageRouter
}

// Module 返回 Routing Fx 模块
//
// OnStart 创建不透明标识表；OnStop 使未完成请求失败并清空表。
func Module() fx.Option {
	return fx.Module("routing",
		fx.Provide(ProvideRouting),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideRouting 构建压缩表、转发引擎与路由器
func ProvideRouting(p Params) Result {
	cfg := ConfigFromUnified(p.UnifiedCfg, p.LocalID)

	compressor := NewPathCompressor(cfg.OpaqueIDCapacity, cfg.OpaqueIDExpiry, p.Clock)
	fwd := NewForwarder(cfg, p.Topology, p.Conns, compressor, p.Metrics)
	router := NewRouter(fwd, cfg.RequestTimeout, p.Clock, p.Metrics)
	if p.Keystore != nil {
		router.SetSecurityBlock(LocalSecurityBlock(p.Keystore))
	}

	return Result{
		Compressor:    compressor,
		Forwarder:     fwd,
		Router:        router,
		MessageRouter: router,
	}
}

func registerLifecycle(lc fx.Lifecycle, compressor *PathCompressor, fwd *Forwarder, router *Router) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			compressor.Start()
			logger.Info("路由已启动", "local", fwd.LocalID())
			return nil
		},
		OnStop: func(_ context.Context) error {
			err := router.Close()
			compressor.Close()
			logger.Info("路由已关闭")
			return err
		},
	})
}

// LocalSecurityBlock 返回携带本节点证书的安全块
//
// 消息级签名不做校验，签名字段只带签名者身份。
func LocalSecurityBlock(ks interfaces.Keystore) message.SecurityBlock {
	sb := message.SecurityBlock{Signature: message.Signature{Identity: ks.LocalIdentity()}}
	if cert := ks.LocalCertificate(); cert != nil {
		sb.Certificates = []message.GenericCertificate{{Type: message.CertificateX509, Data: cert.Raw}}
	}
	return sb
}

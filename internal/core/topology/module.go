package topology

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-reload/config"
	"github.com/dep2p/go-reload/internal/core/identity"
	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/message"
)

// Params 拓扑模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	LocalID    message.NodeID `name:"local_node_id"`
	Conns      interfaces.ConnectionManager
}

// Result 拓扑模块提供的结果
type Result struct {
	fx.Out

	Ring     *Ring
	Topology interfaces.TopologyPlugin
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("topology",
		fx.Provide(ProvideRing),
	)
}

// ProvideRing 按 overlay 配置创建环形拓扑
func ProvideRing(p Params) (Result, error) {
	cfg := p.UnifiedCfg
	if cfg == nil {
		cfg = config.NewConfig()
	}
	alg, err := identity.ParseHashAlgorithm(cfg.Overlay.HashAlgorithm)
	if err != nil {
		return Result{}, err
	}
	h, err := identity.HashFunc(alg)
	if err != nil {
		return Result{}, err
	}
	ring := NewRing(p.LocalID, p.Conns, h, cfg.Overlay.ResourceIDLength, cfg.Storage.Replicas)
	return Result{Ring: ring, Topology: ring}, nil
}

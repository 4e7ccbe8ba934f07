package dht

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-reload/config"
	"github.com/dep2p/go-reload/internal/core/metrics"
	"github.com/dep2p/go-reload/internal/core/storage/engine"
	"github.com/dep2p/go-reload/internal/core/storage/kv"
	"github.com/dep2p/go-reload/pkg/codec"
	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/lib/log"
	"github.com/dep2p/go-reload/pkg/message"
)

var logger = log.Logger("core/dht")

// kvPrefix DHT 在存储引擎中的键前缀
var kvPrefix = []byte("s/")

// Params DHT 模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	LocalID    message.NodeID `name:"local_node_id"`
	Engine     engine.Engine
	Router     interfaces.MessageRouter
	Keystore   interfaces.Keystore
	Topology   interfaces.TopologyPlugin
	Metrics    *metrics.Metrics `optional:"true"`
	Clock      clock.Clock      `optional:"true"`
}

// Result DHT 模块提供的结果
type Result struct {
	fx.Out

	Kinds      *KindTable
	Policies   *PolicySet
	DataStore  *DataStore
	Controller *Controller
	Service    *Service
}

// Module 返回 DHT Fx 模块
//
// OnStart 恢复动态种类、注册请求处理并启动过期清理；OnStop 关闭客户端与清理循环。
func Module() fx.Option {
	return fx.Module("dht",
		fx.Provide(ProvideDHT),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideDHT 构建种类表、数据存储、控制器与客户端
func ProvideDHT(p Params) (Result, error) {
	cfg, err := ConfigFromUnified(p.UnifiedCfg)
	if err != nil {
		return Result{}, err
	}
	policies, err := cfg.Policies()
	if err != nil {
		return Result{}, err
	}
	kinds, err := KindsFromConfig(cfg.Kinds, policies)
	if err != nil {
		return Result{}, err
	}

	cc := &codec.Context{NodeIDLength: len(p.LocalID)}
	data := NewDataStore(kv.New(p.Engine, kvPrefix), cc, p.Clock, cfg.CleanupInterval)
	ctrl := NewController(ControllerConfig{
		Kinds:    kinds,
		Policies: policies,
		Data:     data,
		Keystore: p.Keystore,
		Topology: p.Topology,
		Codec:    cc,
		HashAlg:  cfg.HashAlg,
		Clock:    p.Clock,
		Metrics:  p.Metrics,
	})
	svc := NewService(p.Router, p.Keystore, kinds, cc, p.Clock)

	return Result{
		Kinds:      kinds,
		Policies:   policies,
		DataStore:  data,
		Controller: ctrl,
		Service:    svc,
	}, nil
}

// RestoreKinds 把持久化的动态种类加入种类表
func RestoreKinds(data *DataStore, kinds *KindTable, policies *PolicySet) error {
	descs, err := data.LoadKinds()
	if err != nil {
		return err
	}
	for _, d := range descs {
		k, err := KindFromDescription(d, policies)
		if err != nil {
			logger.Warn("忽略无效的持久化种类", "kind", d.ID, "error", err)
			continue
		}
		kinds.Add(k)
	}
	return nil
}

type lifecycleParams struct {
	fx.In

	LC         fx.Lifecycle
	Router     interfaces.MessageRouter
	Kinds      *KindTable
	Policies   *PolicySet
	DataStore  *DataStore
	Controller *Controller
	Service    *Service
}

func registerLifecycle(p lifecycleParams) {
	p.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := RestoreKinds(p.DataStore, p.Kinds, p.Policies); err != nil {
				logger.Error("恢复种类失败", "error", err)
				return err
			}
			p.Controller.Register(p.Router)
			p.DataStore.Start()
			logger.Info("DHT 存储已启动", "kinds", len(p.Kinds.All()))
			return nil
		},
		OnStop: func(_ context.Context) error {
			p.Service.Close()
			p.DataStore.Close()
			logger.Info("DHT 存储已关闭")
			return nil
		},
	})
}

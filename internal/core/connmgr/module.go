package connmgr

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-reload/config"
	"github.com/dep2p/go-reload/internal/core/eventbus"
	"github.com/dep2p/go-reload/internal/core/metrics"
	"github.com/dep2p/go-reload/internal/core/routing"
	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/message"
)

// Params 连接管理模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config   `optional:"true"`
	LocalID    message.NodeID   `name:"local_node_id"`
	Metrics    *metrics.Metrics `optional:"true"`
	Bus        *eventbus.Bus    `optional:"true"`
}

// Result 连接管理模块提供的结果
type Result struct {
	fx.Out

	Manager *Manager
	Conns   interfaces.ConnectionManager
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("connmgr",
		fx.Provide(ProvideManager),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideManager 创建链路管理器
func ProvideManager(p Params) (Result, error) {
	mgr, err := New(ConfigFromUnified(p.UnifiedCfg), p.LocalID, p.Metrics)
	if err != nil {
		return Result{}, err
	}
	if p.Bus != nil {
		if err := mgr.SetEventBus(p.Bus); err != nil {
			return Result{}, err
		}
	}
	return Result{Manager: mgr, Conns: mgr}, nil
}

type lifecycleInput struct {
	fx.In

	LC        fx.Lifecycle
	Manager   *Manager
	Forwarder *routing.Forwarder
	Router    interfaces.MessageRouter
}

// registerLifecycle 注册生命周期
//
// 转发引擎依赖链路管理器，入站帧处理在此处接上以避免构造环。
func registerLifecycle(in lifecycleInput) {
	mgr := in.Manager
	mgr.SetInbound(func(ctx context.Context, from message.NodeID, frame []byte) {
		in.Forwarder.HandleInbound(ctx, from, frame)
	})
	in.Router.RegisterHandler(message.ContentLeaveRequest, mgr.HandleLeave)

	in.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if mgr.cfg.ListenAddr != "" {
				if err := mgr.Listen(mgr.cfg.ListenAddr); err != nil {
					return err
				}
			}
			for _, addr := range mgr.cfg.Bootstrap {
				id, err := mgr.Dial(ctx, addr)
				if err != nil {
					logger.Warn("连接引导节点失败", "addr", addr, "error", err)
					continue
				}
				logger.Info("已连接引导节点", "addr", addr, "node", id)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := mgr.Leave(ctx, in.Router); err != nil {
				logger.Debug("离开通知未全部完成", "error", err)
			}
			return mgr.Close()
		},
	})
}

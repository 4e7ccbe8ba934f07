package reload

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-reload/internal/core/appattach"
	"github.com/dep2p/go-reload/internal/core/connmgr"
	"github.com/dep2p/go-reload/internal/core/dht"
	"github.com/dep2p/go-reload/internal/core/eventbus"
	"github.com/dep2p/go-reload/internal/core/identity"
	"github.com/dep2p/go-reload/internal/core/metrics"
	"github.com/dep2p/go-reload/internal/core/routing"
	"github.com/dep2p/go-reload/internal/core/storage"
	"github.com/dep2p/go-reload/internal/core/storage/engine"
	"github.com/dep2p/go-reload/internal/core/topology"
	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/lib/log"
	"github.com/dep2p/go-reload/pkg/message"
)

var fxLogger = log.Logger("reload/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. identity → storage → metrics → eventbus
//  2. routing → connmgr → topology
//  3. dht → appattach
//
// 生命周期钩子逆序停止：connmgr 在 routing 之后注册，
// 因此离开通知在路由器关闭之前发出；事件总线最后关闭。
func buildFxApp(o *options, node *Node) (*fx.App, error) {
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(o.config),

		identity.Module(),
		storage.Module(),
		metrics.Module(),
		eventbus.Module(),

		routing.Module(),
		connmgr.Module(),
		topology.Module(),

		dht.Module(),
		appattach.Module(),
	}

	if o.clock != nil {
		clk := o.clock
		modules = append(modules, fx.Provide(func() clock.Clock { return clk }))
	}
	if o.registerer != nil {
		reg := o.registerer
		modules = append(modules, fx.Provide(func() prometheus.Registerer { return reg }))
	}

	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}

	modules = append(modules,
		fx.Invoke(injectNodeComponents(node)),
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	fxLogger.Debug("构建 Fx 应用", "overlay", o.config.Overlay.Name, "listen", o.config.Link.ListenAddr)
	return fx.New(modules...), nil
}

// nodeInjectParams Node 组件注入参数
type nodeInjectParams struct {
	fx.In

	LocalID   message.NodeID `name:"local_node_id"`
	Router    *routing.Router
	MsgRouter interfaces.MessageRouter
	Conns     *connmgr.Manager
	Ring      *topology.Ring
	Kinds     *dht.KindTable
	Policies  *dht.PolicySet
	Storage   *dht.Service
	Attach    *appattach.Service
	Engine    engine.Engine
	Bus       *eventbus.Bus
}

// injectNodeComponents 把 Fx 构建的组件注入 Node
func injectNodeComponents(node *Node) func(nodeInjectParams) {
	return func(p nodeInjectParams) {
		node.id = p.LocalID
		node.router = p.Router
		node.msgRouter = p.MsgRouter
		node.conns = p.Conns
		node.ring = p.Ring
		node.kinds = p.Kinds
		node.policies = p.Policies
		node.storage = p.Storage
		node.attach = p.Attach
		node.engine = p.Engine
		node.bus = p.Bus
	}
}

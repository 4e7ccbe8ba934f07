package eventbus

import (
	"context"

	"go.uber.org/fx"
)

// Module 返回 Fx 模块
//
// 需在链路管理器之前注册，停止时总线晚于链路关闭，
// 关闭期间的断开事件仍能送达。
func Module() fx.Option {
	return fx.Module("eventbus",
		fx.Provide(NewBus),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, bus *Bus) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return bus.Close()
		},
	})
}

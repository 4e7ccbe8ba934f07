package appattach

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-reload/pkg/interfaces"
)

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("appattach",
		fx.Provide(ProvideService),
		fx.Invoke(func(s *Service, r interfaces.MessageRouter) { s.Register(r) }),
	)
}

// ProvideService 创建应用连接服务
func ProvideService(r interfaces.MessageRouter) *Service {
	return NewService(r, nil)
}

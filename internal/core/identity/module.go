package identity

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-reload/config"
	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/message"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	// 配置（可选，使用默认配置）
	UnifiedCfg *config.Config `optional:"true"`

	// Identity 直接注入的身份，优先于配置
	Identity *Identity   `optional:"true"`
	Clock    clock.Clock `optional:"true"`
}

// ============================================================================
//                              模块输出服务
// ============================================================================

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	Keystore      *Keystore
	KeystoreIface interfaces.Keystore
	LocalID       message.NodeID `name:"local_node_id"`
}

// ProvideServices 提供模块服务
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	cfg := input.UnifiedCfg
	if cfg == nil {
		cfg = config.NewConfig()
	}

	id := input.Identity
	if id == nil {
		var err error
		id, err = Load(cfg.Identity, cfg.Overlay)
		if err != nil {
			return ModuleOutput{}, fmt.Errorf("加载身份失败: %w", err)
		}
	}

	alg, err := ParseHashAlgorithm(cfg.Overlay.HashAlgorithm)
	if err != nil {
		return ModuleOutput{}, err
	}
	ks, err := NewKeystore(id, alg, input.Clock)
	if err != nil {
		return ModuleOutput{}, err
	}

	return ModuleOutput{
		Keystore:      ks,
		KeystoreIface: ks,
		LocalID:       id.NodeID,
	}, nil
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("identity",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, ks *Keystore) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			logger.Info("节点身份已加载", "node_id", ks.LocalNodeID(), "identity", ks.LocalIdentity().Type)
			return nil
		},
	})
}

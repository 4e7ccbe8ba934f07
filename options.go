package reload

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-reload/config"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// config 统一配置，WithConfig/WithConfigFile 整体替换
	config *config.Config

	// clock 注入时钟，测试中使用 clock.Mock
	clock clock.Clock

	// registerer 指标注册器，为空时每个节点使用独立 Registry
	registerer prometheus.Registerer

	// userFxOptions 用户扩展的 Fx 选项
	userFxOptions []fx.Option
}

func newOptions() *options {
	return &options{config: config.NewConfig()}
}

// WithConfig 使用完整配置
//
// 替换之前的全部设置，之后的选项在其基础上修改。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config cannot be nil")
		}
		o.config = cfg
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// WithOverlay 设置 overlay 名称
func WithOverlay(name string) Option {
	return func(o *options) error {
		if name == "" {
			return errors.New("overlay name cannot be empty")
		}
		o.config.Overlay.Name = name
		return nil
	}
}

// WithListenAddr 设置邻居链路监听地址，如 "0.0.0.0:6084"
func WithListenAddr(addr string) Option {
	return func(o *options) error {
		o.config.Link.ListenAddr = addr
		return nil
	}
}

// WithBootstrap 设置启动时连接的邻居地址
func WithBootstrap(addrs ...string) Option {
	return func(o *options) error {
		o.config.Link.Bootstrap = append([]string(nil), addrs...)
		return nil
	}
}

// WithDataDir 设置数据目录
func WithDataDir(dir string) Option {
	return func(o *options) error {
		if dir == "" {
			return errors.New("data dir cannot be empty")
		}
		o.config.Storage.DataDir = dir
		return nil
	}
}

// WithKeyFile 使用 PEM 私钥文件作为节点身份
func WithKeyFile(path string) Option {
	return func(o *options) error {
		o.config.Identity.KeyFile = path
		return nil
	}
}

// WithUsername 设置写入证书的用户名
func WithUsername(name string) Option {
	return func(o *options) error {
		o.config.Identity.Username = name
		return nil
	}
}

// WithMetrics 启用或关闭指标
func WithMetrics(enabled bool) Option {
	return func(o *options) error {
		o.config.Metrics.Enabled = enabled
		return nil
	}
}

// WithRegisterer 把指标注册到 reg
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

// WithClock 注入时钟
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		o.clock = clk
		return nil
	}
}

// WithFxOptions 追加 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}

func (o *options) apply(opts []Option) error {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return fmt.Errorf("apply option: %w", err)
		}
	}
	return nil
}

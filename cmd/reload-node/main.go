// Package main 提供 reload-node 命令行入口
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-reload"
	"github.com/dep2p/go-reload/pkg/lib/log"
)

var logger = log.Logger("reload/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
//   命令行参数：运行时覆盖 / 快速测试
//   JSON 配置文件：持久化配置（overlay、种类、存储）
//
// 优先级：命令行 > 环境变量 > 配置文件 > 默认值
var (
	configFile  = flag.String("config", "", "配置文件路径")
	listenAddr  = flag.String("listen", "", "邻居链路监听地址，如 0.0.0.0:6084")
	bootstrap   = flag.String("bootstrap", "", "引导邻居地址（逗号分隔）")
	dataDir     = flag.String("data-dir", "", "数据目录（默认: ./data）")
	keyFile     = flag.String("identity", "", "身份密钥文件路径")
	overlay     = flag.String("overlay", "", "overlay 名称")
	metricsAddr = flag.String("metrics-addr", "", "Prometheus 指标 HTTP 地址，为空时不启用")
	logLevel    = flag.String("log-level", "info", "日志级别 (debug/info/warn/error)")
	logJSON     = flag.Bool("log-json", false, "以 JSON 输出日志")

	showVersion = flag.Bool("version", false, "显示版本信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Println(reload.VersionInfo())
		return nil
	}

	if err := setupLogging(); err != nil {
		return err
	}

	opts, err := buildOptions()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	var reg *prometheus.Registry
	if *metricsAddr != "" {
		reg = prometheus.NewRegistry()
		opts = append(opts, reload.WithMetrics(true), reload.WithRegisterer(reg))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("启动 reload 节点", "version", reload.Version, "commit", reload.GitCommit)
	node, err := reload.Start(ctx, opts...)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() {
		if err := node.Close(); err != nil {
			logger.Warn("关闭节点失败", "error", err)
		}
	}()

	if reg != nil {
		srv := serveMetrics(*metricsAddr, reg)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := watchNeighbors(node); err != nil {
		logger.Warn("订阅邻居事件失败", "error", err)
	}

	printNodeInfo(node)
	fmt.Println("节点已启动，按 Ctrl+C 退出")
	waitForSignal()

	fmt.Println("\n正在关闭节点...")
	return nil
}

// buildOptions 构建选项
func buildOptions() ([]reload.Option, error) {
	var opts []reload.Option

	// 1. 配置文件（整体替换默认配置，必须最先应用）
	if *configFile != "" {
		opts = append(opts, reload.WithConfigFile(*configFile))
	}

	// 2. 环境变量
	opts = append(opts, envOptions()...)

	// 3. 命令行参数
	if *listenAddr != "" {
		opts = append(opts, reload.WithListenAddr(*listenAddr))
	}
	if *bootstrap != "" {
		opts = append(opts, reload.WithBootstrap(splitAndTrim(*bootstrap, ",")...))
	}
	if *dataDir != "" {
		opts = append(opts, reload.WithDataDir(*dataDir))
	}
	if *keyFile != "" {
		opts = append(opts, reload.WithKeyFile(*keyFile))
	}
	if *overlay != "" {
		opts = append(opts, reload.WithOverlay(*overlay))
	}
	return opts, nil
}

func setupLogging() error {
	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		return err
	}
	if *logJSON {
		log.SetJSONOutput(os.Stderr, level)
	} else {
		log.SetOutput(os.Stderr, level)
	}
	return nil
}

// serveMetrics 在 addr 上提供 /metrics
func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("指标服务退出", "addr", addr, "error", err)
		}
	}()
	logger.Info("指标服务已启动", "addr", addr)
	return srv
}

// waitForSignal 等待退出信号
func waitForSignal() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals
}

func printNodeInfo(node *reload.Node) {
	cfg := node.Config()
	fmt.Printf("📦 %s\n", reload.VersionInfo())
	fmt.Printf("  节点标识:   %x\n", []byte(node.ID()))
	fmt.Printf("  Overlay:    %s\n", cfg.Overlay.Name)
	if a := node.Addr(); a != nil {
		fmt.Printf("  监听地址:   %s\n", a)
	}
	fmt.Printf("  资源标识:   %x\n", []byte(node.NodeResourceID()))
	fmt.Printf("  邻居数:     %d\n", len(node.Neighbors()))
	fmt.Printf("  数据目录:   %s\n", cfg.Storage.DataDir)
}

// watchNeighbors 记录邻居的建立与断开，节点关闭时退出
func watchNeighbors(node *reload.Node) error {
	up, err := node.Subscribe(new(reload.EvtNeighborConnected))
	if err != nil {
		return err
	}
	down, err := node.Subscribe(new(reload.EvtNeighborDisconnected))
	if err != nil {
		_ = up.Close()
		return err
	}
	go func() {
		for up != nil || down != nil {
			select {
			case evt, ok := <-outOf(up):
				if !ok {
					up = nil
					continue
				}
				e := evt.(reload.EvtNeighborConnected)
				fmt.Printf("+ 邻居 %x (%s)\n", []byte(e.ID), e.Addr)
			case evt, ok := <-outOf(down):
				if !ok {
					down = nil
					continue
				}
				e := evt.(reload.EvtNeighborDisconnected)
				fmt.Printf("- 邻居 %x (%s)\n", []byte(e.ID), e.Reason)
			}
		}
	}()
	return nil
}

// outOf 订阅为空时返回 nil 通道，select 中永不就绪
func outOf(sub *reload.Subscription) <-chan any {
	if sub == nil {
		return nil
	}
	return sub.Out()
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

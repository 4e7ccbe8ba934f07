package main

import (
	"os"

	"github.com/dep2p/go-reload"
)

// 环境变量（RELOAD_ 前缀），优先级高于配置文件，低于命令行参数
const (
	envListenAddr = "RELOAD_LISTEN_ADDR"
	envBootstrap  = "RELOAD_BOOTSTRAP"
	envDataDir    = "RELOAD_DATA_DIR"
	envKeyFile    = "RELOAD_IDENTITY_KEY_FILE"
	envOverlay    = "RELOAD_OVERLAY"
)

// envOptions 读取环境变量覆盖
func envOptions() []reload.Option {
	var opts []reload.Option
	if v := os.Getenv(envListenAddr); v != "" {
		opts = append(opts, reload.WithListenAddr(v))
	}
	if v := os.Getenv(envBootstrap); v != "" {
		opts = append(opts, reload.WithBootstrap(splitAndTrim(v, ",")...))
	}
	if v := os.Getenv(envDataDir); v != "" {
		opts = append(opts, reload.WithDataDir(v))
	}
	if v := os.Getenv(envKeyFile); v != "" {
		opts = append(opts, reload.WithKeyFile(v))
	}
	if v := os.Getenv(envOverlay); v != "" {
		opts = append(opts, reload.WithOverlay(v))
	}
	return opts
}

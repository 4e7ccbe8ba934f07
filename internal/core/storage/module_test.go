package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-reload/config"
	"github.com/dep2p/go-reload/internal/core/storage/engine"
	"github.com/dep2p/go-reload/internal/core/storage/kv"
)

// TestModule_Lifecycle 测试模块打开引擎并在停止时关闭
func TestModule_Lifecycle(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Storage.DataDir = t.TempDir()

	var eng engine.Engine
	var sc Config
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module(),
		fx.Populate(&eng, &sc),
	)
	app.RequireStart()

	assert.Equal(t, cfg.Storage.DBPath(), sc.Path)
	store := kv.New(eng, []byte("t/"))
	require.NoError(t, store.Put([]byte("k"), []byte("v")))
	got, err := store.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	app.RequireStop()
}

// TestConfigFromUnified 测试从统一配置推导数据库路径
func TestConfigFromUnified(t *testing.T) {
	assert.Equal(t, DefaultConfig(), ConfigFromUnified(nil))

	cfg := config.NewConfig()
	cfg.Storage.DataDir = "/var/lib/reload"
	sc := ConfigFromUnified(cfg)
	assert.Equal(t, filepath.Clean(cfg.Storage.DBPath()), filepath.Clean(sc.Path))
	require.NoError(t, sc.Validate())

	sc.Path = ""
	assert.Error(t, sc.Validate())
}

package dht

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-reload/config"
	"github.com/dep2p/go-reload/internal/core/storage/engine"
	"github.com/dep2p/go-reload/internal/core/storage/kv"
	"github.com/dep2p/go-reload/pkg/interfaces"
)

// TestModule 测试模块装配：恢复持久化种类并接管服务端请求处理
func TestModule(t *testing.T) {
	a, b := newClientServer(t, "")
	eng := newTestEngine(t)

	// 启动前已持久化的动态种类
	pre := NewDataStore(kv.New(eng, kvPrefix), testCodec, nil, 0)
	require.NoError(t, pre.SaveKind(KindDescription{ID: 20, Model: ModelSingle, Policy: PolicyNodeMatch, MaxCount: 1, MaxSize: 32}))

	cfg := config.NewConfig()
	cfg.Overlay.ResourceIDLength = testRIDLen
	cfg.Overlay.HashAlgorithm = "sha1"

	var kinds *KindTable
	var data *DataStore
	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Supply(fx.Annotated{Name: "local_node_id", Target: b.id}),
		fx.Provide(func() engine.Engine { return eng }),
		fx.Provide(func() interfaces.MessageRouter { return b.router }),
		fx.Provide(func() interfaces.Keystore { return b.ks }),
		fx.Provide(func() interfaces.TopologyPlugin { return b.topo }),
		Module(),
		fx.Populate(&kinds, &data),
	)
	app.RequireStart()
	defer app.RequireStop()

	_, ok := kinds.Get(20)
	assert.True(t, ok)

	res := nodeResource(a)
	_, err := a.svc.Store(waitCtx(t), res, NewPreparedData(1).SetSingle([]byte("via fx"))).Wait(waitCtx(t))
	require.NoError(t, err)

	gen, values, err := data.Get(res, mustKind(t, kinds, 1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gen)
	require.Len(t, values, 1)
	assert.Equal(t, []byte("via fx"), values[0].Value.(SingleValue).Data)
}

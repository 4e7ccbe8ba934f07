package topology

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-reload/config"
	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/message"
)

type stubConns struct{ staticNeighbors }

func (stubConns) IsNeighbor(message.NodeID) bool { return false }
func (stubConns) Send(context.Context, message.NodeID, []byte) error { return nil }

// TestModule 测试按统一配置装配拓扑
func TestModule(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Overlay.HashAlgorithm = "sha256"
	cfg.Overlay.ResourceIDLength = 20

	var topo interfaces.TopologyPlugin
	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Supply(fx.Annotated{Name: "local_node_id", Target: nid(0x40)}),
		fx.Provide(func() interfaces.ConnectionManager { return stubConns{staticNeighbors{nid(0x60)}} }),
		Module(),
		fx.Populate(&topo),
	)
	app.RequireStart()
	defer app.RequireStop()

	assert.Equal(t, 20, topo.ResourceIDLength())
	assert.Len(t, topo.ResourceID([]byte("x")), 20)
	assert.Equal(t, []message.NodeID{nid(0x60)}, topo.ReplicaNodes(nil))
}

package connmgr

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-reload/pkg/message"
)

func nodeID(b byte) message.NodeID {
	id := make(message.NodeID, 16)
	for i := range id {
		id[i] = b
	}
	return id
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxMessageSize = 1024
	cfg.DialTimeout = 2 * time.Second
	cfg.LeaveGrace = 200 * time.Millisecond
	return cfg
}

// frames 收集入站帧
type frames struct {
	mu  sync.Mutex
	got map[string][][]byte
}

func (f *frames) handle(_ context.Context, from message.NodeID, frame []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.got == nil {
		f.got = make(map[string][][]byte)
	}
	f.got[string(from)] = append(f.got[string(from)], frame)
}

func (f *frames) from(id message.NodeID) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.got[string(id)]...)
}

func newTestManager(t *testing.T, id message.NodeID, cfg Config) (*Manager, *frames) {
	t.Helper()
	m, err := New(cfg, id, nil)
	require.NoError(t, err)
	f := &frames{}
	m.SetInbound(f.handle)
	require.NoError(t, m.Listen("127.0.0.1:0"))
	t.Cleanup(func() { _ = m.Close() })
	return m, f
}

// connected 返回已互联的两个管理器
func connected(t *testing.T) (*Manager, *frames, *Manager, *frames) {
	t.Helper()
	a, fa := newTestManager(t, nodeID(0xa1), testConfig())
	b, fb := newTestManager(t, nodeID(0xb2), testConfig())
	id, err := a.Dial(context.Background(), b.Addr().String())
	require.NoError(t, err)
	require.True(t, id.Equal(b.LocalID()))
	require.Eventually(t, func() bool { return b.IsNeighbor(a.LocalID()) }, 2*time.Second, 5*time.Millisecond)
	return a, fa, b, fb
}

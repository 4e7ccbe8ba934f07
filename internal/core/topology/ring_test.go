package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dep2p/go-reload/pkg/lib/crypto"
	"github.com/dep2p/go-reload/pkg/message"
)

type staticNeighbors []message.NodeID

func (s staticNeighbors) Neighbors() []message.NodeID {
	return append([]message.NodeID(nil), s...)
}

func nid(b byte) message.NodeID {
	id := make(message.NodeID, 16)
	id[0] = b
	return id
}

func newTestRing(replicas int, neighbors ...byte) *Ring {
	var ns staticNeighbors
	for _, b := range neighbors {
		ns = append(ns, nid(b))
	}
	return NewRing(nid(0x40), ns, crypto.SHA1, 16, replicas)
}

// TestRing_Responsible 测试资源责任归属
func TestRing_Responsible(t *testing.T) {
	r := newTestRing(0, 0x20, 0x60)

	assert.True(t, r.IsLocalPeerResponsible(message.ResourceID{0x30}))
	assert.True(t, r.IsLocalPeerResponsible(message.ResourceID{0x40}))
	assert.False(t, r.IsLocalPeerResponsible(message.ResourceID{0x50}))
	assert.False(t, r.IsLocalPeerResponsible(message.ResourceID{0x10}))
	assert.False(t, r.IsLocalPeerResponsible(message.ResourceID{0x90}))

	assert.True(t, r.IsLocalPeerResponsible(nid(0x40)))
	assert.False(t, r.IsLocalPeerResponsible(nid(0x20)))
	assert.False(t, r.IsLocalPeerResponsible(message.OpaqueID{1, 2}))

	alone := newTestRing(0)
	assert.True(t, alone.IsLocalPeerResponsible(message.ResourceID{0xff}))
}

// TestRing_NextHop 测试下一跳选择
func TestRing_NextHop(t *testing.T) {
	r := newTestRing(0, 0x20, 0x60)

	tests := []struct {
		name string
		id   message.RoutableID
		want message.NodeID
	}{
		{"ResourceAfterNeighbor", message.ResourceID{0x50}, nid(0x60)},
		{"ResourceBeforeNeighbor", message.ResourceID{0x10}, nid(0x20)},
		{"ResourceWrap", message.ResourceID{0x90}, nid(0x20)},
		{"Neighbor", nid(0x60), nid(0x60)},
		{"NodeBehindNeighbor", nid(0x55), nid(0x60)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hop, ok := r.NextHop(tt.id)
			assert.True(t, ok)
			assert.Equal(t, tt.want, hop)
		})
	}

	_, ok := r.NextHop(message.ResourceID{0x30})
	assert.False(t, ok)
	_, ok = r.NextHop(nid(0x40))
	assert.False(t, ok)
	_, ok = r.NextHop(message.OpaqueID{1})
	assert.False(t, ok)
	_, ok = newTestRing(0).NextHop(message.ResourceID{0x90})
	assert.False(t, ok)
}

// TestRing_ReplicaNodes 测试副本节点为顺时针后继
func TestRing_ReplicaNodes(t *testing.T) {
	r := newTestRing(2, 0x20, 0x60, 0x50)
	assert.Equal(t, []message.NodeID{nid(0x50), nid(0x60)}, r.ReplicaNodes(message.ResourceID{0x40}))

	assert.Nil(t, newTestRing(0, 0x20).ReplicaNodes(message.ResourceID{0x40}))
	assert.Equal(t, []message.NodeID{nid(0x20)}, newTestRing(3, 0x20).ReplicaNodes(message.ResourceID{0x40}))
}

// TestRing_ResourceID 测试资源标识按 overlay 哈希截断
func TestRing_ResourceID(t *testing.T) {
	r := newTestRing(0)
	id := r.ResourceID([]byte("alice"))
	assert.Len(t, id, 16)
	assert.Equal(t, 16, r.ResourceIDLength())
	assert.Equal(t, message.ResourceID(crypto.SHA1([]byte("alice"))[:16]), id)
}

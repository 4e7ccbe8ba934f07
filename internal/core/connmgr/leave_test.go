package connmgr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-reload/pkg/message"
)

func leaveRequest(leaving, prev message.NodeID) *message.Message {
	hdr := message.NewHeaderBuilder().SetDestinationList(message.DestinationList{nodeID(0xb2)}).Build()
	return message.NewBuilder(hdr, &message.LeaveRequest{LeavingNode: leaving}).Build().WithPreviousHop(prev)
}

// TestHandleLeave 测试收到 Leave 后邻居立即移出并在宽限期后关闭
func TestHandleLeave(t *testing.T) {
	a, _, b, _ := connected(t)

	ans, err := b.HandleLeave(context.Background(), leaveRequest(a.LocalID(), a.LocalID()))
	require.NoError(t, err)
	assert.IsType(t, &message.LeaveAnswer{}, ans)

	assert.Empty(t, b.Neighbors())
	assert.True(t, b.IsNeighbor(a.LocalID()), "宽限期内仍可发送应答")
	assert.Eventually(t, func() bool { return !b.IsNeighbor(a.LocalID()) }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return !a.IsNeighbor(b.LocalID()) }, 2*time.Second, 5*time.Millisecond)
}

// TestHandleLeave_Forbidden 测试只能替上一跳宣布离开
func TestHandleLeave_Forbidden(t *testing.T) {
	a, _, b, _ := connected(t)

	_, err := b.HandleLeave(context.Background(), leaveRequest(a.LocalID(), nodeID(0x99)))
	var e *message.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, message.ErrorForbidden, e.Code)
	assert.Len(t, b.Neighbors(), 1)

	ans, err := b.HandleLeave(context.Background(), leaveRequest(nodeID(0x99), nodeID(0x99)))
	require.NoError(t, err)
	assert.IsType(t, &message.LeaveAnswer{}, ans)
}

package connmgr

import (
	"context"
	"time"

	"go.uber.org/multierr"

	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/message"
)

// HandleLeave 处理邻居的 Leave 请求
//
// 离开的节点必须是上一跳。链路立即从 Neighbors 中移除，
// 保留 LeaveGrace 用于送出应答后关闭。
func (m *Manager) HandleLeave(_ context.Context, req *message.Message) (message.Content, error) {
	lr, ok := req.Content().(*message.LeaveRequest)
	if !ok {
		return nil, message.NewError(message.ErrorInvalidMessage, "not a leave request")
	}
	if !lr.LeavingNode.Equal(req.PreviousHop()) {
		return nil, message.NewError(message.ErrorForbidden, "leaving node is not the previous hop")
	}
	l := m.lookup(lr.LeavingNode)
	if l == nil {
		return &message.LeaveAnswer{}, nil
	}
	if l.leaving.CompareAndSwap(false, true) {
		m.mu.Lock()
		m.metrics.SetNeighbors(m.countLocked())
		m.mu.Unlock()
		logger.Info("邻居离开", "node", l.id)
		time.AfterFunc(m.cfg.LeaveGrace, func() { m.drop(l, "leave") })
	}
	return &message.LeaveAnswer{}, nil
}

// Leave 向全部邻居发送 Leave 并等待应答
//
// 未应答或失败的邻居错误合并返回，不影响其余邻居。
func (m *Manager) Leave(ctx context.Context, r interfaces.MessageRouter) error {
	neighbors := m.Neighbors()
	futs := make([]func() error, 0, len(neighbors))
	for _, n := range neighbors {
		f := r.SendRequest(ctx, message.DestinationList{n}, &message.LeaveRequest{LeavingNode: m.local})
		futs = append(futs, func() error {
			_, err := f.Wait(ctx)
			return err
		})
	}
	var err error
	for _, wait := range futs {
		err = multierr.Append(err, wait())
	}
	if len(neighbors) > 0 {
		logger.Info("已通知邻居离开", "neighbors", len(neighbors), "failed", len(multierr.Errors(err)))
	}
	return err
}

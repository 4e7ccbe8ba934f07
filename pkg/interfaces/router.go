package interfaces

import (
	"context"

	"github.com/dep2p/go-reload/pkg/lib/future"
	"github.com/dep2p/go-reload/pkg/message"
)

// RequestHandler 处理投递到本地的请求
//
// 返回的内容作为应答发送；返回 *message.Error 时作为错误应答发送。
type RequestHandler func(ctx context.Context, req *message.Message) (message.Content, error)

// MessageRouter 请求/应答路由
type MessageRouter interface {
	// SendRequest 发送请求，Future 在收到同事务 ID 的应答或超时时完成
	SendRequest(ctx context.Context, dest message.DestinationList, content message.Content) *future.Future[*message.Message]

	// SendAnswer 沿请求的返回路径发送应答
	SendAnswer(req *message.Message, content message.Content) error

	// SendError 沿请求的返回路径发送错误
	SendError(req *message.Message, e *message.Error) error

	// RegisterHandler 注册请求类型的处理函数
	RegisterHandler(t message.ContentType, h RequestHandler)
}

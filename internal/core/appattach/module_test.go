package appattach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"

	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/interfaces/mocks"
	"github.com/dep2p/go-reload/pkg/message"
)

// TestModule 测试模块注册 AppAttach 处理函数
func TestModule(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := mocks.NewMockMessageRouter(ctrl)
	router.EXPECT().RegisterHandler(message.ContentAppAttachRequest, gomock.Any())

	var svc *Service
	app := fxtest.New(t,
		fx.Provide(func() interfaces.MessageRouter { return router }),
		Module(),
		fx.Populate(&svc),
	)
	app.RequireStart()
	assert.NotNil(t, svc)
	app.RequireStop()
}

package badger

import (
	"fmt"
	"strings"

	"github.com/dep2p/go-reload/internal/core/storage/engine"
)

// slogLogger 把 BadgerDB 内部日志转发到组件日志
//
// Info 及以下级别降为 Debug，避免启动时刷屏。
type slogLogger struct{}

// NewLogger 返回写入 "storage/badger" 组件日志的 engine.Logger
func NewLogger() engine.Logger {
	return slogLogger{}
}

func (slogLogger) Errorf(format string, args ...interface{}) {
	logger.Error(trim(format, args))
}

func (slogLogger) Warningf(format string, args ...interface{}) {
	logger.Warn(trim(format, args))
}

func (slogLogger) Infof(format string, args ...interface{}) {
	logger.Debug(trim(format, args))
}

func (slogLogger) Debugf(format string, args ...interface{}) {
	logger.Debug(trim(format, args))
}

func trim(format string, args []interface{}) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}

package dht

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-reload/pkg/message"
)

var (
	// ErrUnknownKind 请求中含有本节点不认识的种类
	ErrUnknownKind = errors.New("dht: unknown kind")

	// ErrSignatureInvalid 取回的数据签名校验失败
	ErrSignatureInvalid = errors.New("dht: invalid data signature")

	// ErrAccessDenied 访问策略拒绝
	ErrAccessDenied = errors.New("dht: access denied")

	// ErrInvalidResourceID 资源标识长度不合法
	ErrInvalidResourceID = errors.New("dht: invalid resource id")

	// ErrModelMismatch 值的数据模型与种类不一致
	ErrModelMismatch = errors.New("dht: data model mismatch")

	// ErrDuplicateEntry 一次存储中数组下标或字典键重复
	ErrDuplicateEntry = errors.New("dht: duplicate entry in store batch")

	// ErrUnexpectedAnswer 应答内容类型与请求不符
	ErrUnexpectedAnswer = errors.New("dht: unexpected answer")

	// ErrEmptySelection 删除选择器没有选中任何值
	ErrEmptySelection = errors.New("dht: specifier selects nothing")

	// ErrSelectionTooWide 删除选择器展开的下标超过种类上限
	ErrSelectionTooWide = errors.New("dht: specifier selects too many indexes")

	// ErrServiceClosed 存储服务已关闭
	ErrServiceClosed = errors.New("dht: service closed")
)

// UnknownKindError 对端不认识的种类
type UnknownKindError struct {
	Kinds []KindID
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("dht: unknown kinds %v", e.Kinds)
}

// Is 与 ErrUnknownKind 匹配
func (e *UnknownKindError) Is(target error) bool {
	return target == ErrUnknownKind
}

// Error 带操作与种类上下文的错误
type Error struct {
	Op   string
	Kind KindID
	Err  error
}

func (e *Error) Error() string {
	if e.Kind != 0 {
		return fmt.Sprintf("dht %s kind %d: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("dht %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnknownKind 是否为未知种类错误
func IsUnknownKind(err error) bool {
	return errors.Is(err, ErrUnknownKind)
}

// IsAccessDenied 是否为访问策略拒绝，包括对端返回的 FORBIDDEN
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied) ||
		errors.Is(err, message.NewError(message.ErrorForbidden, ""))
}

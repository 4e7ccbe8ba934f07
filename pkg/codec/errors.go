package codec

import (
	"errors"
	"fmt"
)

// 预定义错误
var (
	// ErrTruncated 缓冲区数据不足
	ErrTruncated = errors.New("codec: truncated buffer")

	// ErrTrailingData 字段未被完全消费
	ErrTrailingData = errors.New("codec: trailing data")

	// ErrUnknownType 未知的类型判别字节
	ErrUnknownType = errors.New("codec: unknown type")

	// ErrInvalidLength 长度与类型约束不符
	ErrInvalidLength = errors.New("codec: invalid length")

	// ErrLengthOverflow 数据长度超出长度子字段可表示范围
	ErrLengthOverflow = errors.New("codec: length overflows field width")

	// ErrInvalidValue 无效的字段值
	ErrInvalidValue = errors.New("codec: invalid value")
)

// Error 编解码错误
type Error struct {
	Op      string // 操作名称
	Err     error  // 底层错误
	Message string // 错误消息
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("codec %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("codec %s: %v", e.Op, e.Err)
}

// Unwrap 实现错误解包
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError 创建编解码错误
func NewError(op string, err error, message string) *Error {
	return &Error{
		Op:      op,
		Err:     err,
		Message: message,
	}
}

// IsDecodeError 检查是否为编解码错误
//
// 线格式畸形（截断、长度非法、未知判别字节、多余数据）都属于此类，
// 上层据此回复 INVALID_MESSAGE。
func IsDecodeError(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return true
	}
	return errors.Is(err, ErrTruncated) ||
		errors.Is(err, ErrTrailingData) ||
		errors.Is(err, ErrUnknownType) ||
		errors.Is(err, ErrInvalidLength) ||
		errors.Is(err, ErrInvalidValue)
}

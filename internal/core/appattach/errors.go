package appattach

import "errors"

var (
	// ErrNoSuitableCandidate 没有可连通的候选地址
	ErrNoSuitableCandidate = errors.New("appattach: no suitable candidate")

	// ErrUnexpectedAnswer 应答内容类型与请求不符
	ErrUnexpectedAnswer = errors.New("appattach: unexpected answer")

	// ErrInvalidAddress 地址不合法
	ErrInvalidAddress = errors.New("appattach: invalid address")
)

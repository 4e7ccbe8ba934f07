package message

import (
	"fmt"

	"github.com/dep2p/go-reload/pkg/codec"
)

// ErrorType 协议错误码
type ErrorType uint16

// 协议错误码
const (
	ErrorForbidden                   ErrorType = 2
	ErrorNotFound                    ErrorType = 3
	ErrorRequestTimeout              ErrorType = 4
	ErrorGenerationCounterTooLow     ErrorType = 5
	ErrorIncompatibleWithOverlay     ErrorType = 6
	ErrorUnsupportedForwardingOption ErrorType = 7
	ErrorDataTooLarge                ErrorType = 8
	ErrorDataTooOld                  ErrorType = 9
	ErrorTTLExceeded                 ErrorType = 10
	ErrorMessageTooLarge             ErrorType = 11
	ErrorUnknownKind                 ErrorType = 12
	ErrorUnknownExtension            ErrorType = 13
	ErrorResponseTooLarge            ErrorType = 14
	ErrorConfigTooOld                ErrorType = 15
	ErrorConfigTooNew                ErrorType = 16
	ErrorInProgress                  ErrorType = 17
	ErrorInvalidMessage              ErrorType = 20
)

var errorNames = map[ErrorType]string{
	ErrorForbidden:                   "FORBIDDEN",
	ErrorNotFound:                    "NOT_FOUND",
	ErrorRequestTimeout:              "REQUEST_TIMEOUT",
	ErrorGenerationCounterTooLow:     "GEN_COUNTER_TOO_LOW",
	ErrorIncompatibleWithOverlay:     "INCOMPATIBLE_WITH_OVERLAY",
	ErrorUnsupportedForwardingOption: "UNSUPPORTED_FWD_OPTION",
	ErrorDataTooLarge:                "DATA_TOO_LARGE",
	ErrorDataTooOld:                  "DATA_TOO_OLD",
	ErrorTTLExceeded:                 "TTL_EXCEEDED",
	ErrorMessageTooLarge:             "MESSAGE_TOO_LARGE",
	ErrorUnknownKind:                 "UNKNOWN_KIND",
	ErrorUnknownExtension:            "UNKNOWN_EXTENSION",
	ErrorResponseTooLarge:            "RESPONSE_TOO_LARGE",
	ErrorConfigTooOld:                "CONFIG_TOO_OLD",
	ErrorConfigTooNew:                "CONFIG_TOO_NEW",
	ErrorInProgress:                  "IN_PROGRESS",
	ErrorInvalidMessage:              "INVALID_MESSAGE",
}

// String 返回错误码名称
func (t ErrorType) String() string {
	if n, ok := errorNames[t]; ok {
		return n
	}
	return fmt.Sprintf("ERROR_%d", uint16(t))
}

// Error 错误内容：code(2) + U16 ASCII 信息
//
// 同时实现 error 接口，远端返回的错误可以直接作为 Go error 传递。
type Error struct {
	Code ErrorType
	Info []byte
}

// NewError 创建错误内容
func NewError(code ErrorType, info string) *Error {
	return &Error{Code: code, Info: []byte(info)}
}

// ContentType 实现 Content
func (e *Error) ContentType() ContentType { return ContentError }

// Error 实现 error 接口
func (e *Error) Error() string {
	if len(e.Info) == 0 {
		return "reload: " + e.Code.String()
	}
	return fmt.Sprintf("reload: %s: %s", e.Code, e.Info)
}

// Is 支持 errors.Is 按错误码匹配
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func init() {
	RegisterContent(ContentError, ContentCodec{
		Encode: func(enc *codec.Encoder, c Content) error {
			e := c.(*Error)
			enc.WriteUint16(uint16(e.Code))
			return enc.WriteOpaque(codec.U16, e.Info)
		},
		Decode: func(dec *codec.Decoder) (Content, error) {
			code, err := dec.ReadUint16()
			if err != nil {
				return nil, err
			}
			info, err := dec.ReadOpaque(codec.U16)
			if err != nil {
				return nil, err
			}
			return &Error{Code: ErrorType(code), Info: cloneBytes(info)}, nil
		},
	})
}

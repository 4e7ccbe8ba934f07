package codec

// Width 长度子字段的字节宽度
type Width int

// 支持的长度子字段宽度
const (
	U8  Width = 1
	U16 Width = 2
	U24 Width = 3
	U32 Width = 4
	U64 Width = 8
)

// Max 返回该宽度可表示的最大长度
func (w Width) Max() uint64 {
	if w >= U64 {
		return ^uint64(0)
	}
	return uint64(1)<<(8*uint(w)) - 1
}

// valid 检查宽度是否受支持
func (w Width) valid() bool {
	switch w {
	case U8, U16, U24, U32, U64:
		return true
	}
	return false
}

// Context 编解码上下文
//
// 携带拓扑相关的长度参数，随每个编码器/解码器传递。
type Context struct {
	// NodeIDLength NodeID 的固定字节长度
	NodeIDLength int
}

// DefaultNodeIDLength 默认 NodeID 长度（128 位）
const DefaultNodeIDLength = 16

// DefaultContext 返回默认上下文
func DefaultContext() *Context {
	return &Context{NodeIDLength: DefaultNodeIDLength}
}

// Marshal 使用 fn 编码并返回完整字节
func Marshal(ctx *Context, fn func(*Encoder) error) ([]byte, error) {
	enc := NewEncoder(ctx)
	if err := fn(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

// Unmarshal 使用 fn 解码 data，并要求 data 被完全消费
func Unmarshal(ctx *Context, data []byte, fn func(*Decoder) error) error {
	dec := NewDecoder(ctx, data)
	if err := fn(dec); err != nil {
		dec.Release()
		return err
	}
	return dec.Finish()
}

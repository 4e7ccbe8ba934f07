package codec

import (
	"encoding/binary"
	"fmt"
)

// Encoder 大端序可增长写缓冲
type Encoder struct {
	buf []byte
	ctx *Context
}

// NewEncoder 创建编码器
func NewEncoder(ctx *Context) *Encoder {
	if ctx == nil {
		ctx = DefaultContext()
	}
	return &Encoder{
		buf: make([]byte, 0, 256),
		ctx: ctx,
	}
}

// Context 返回编码上下文
func (e *Encoder) Context() *Context {
	return e.ctx
}

// Len 返回已写入字节数
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Bytes 返回已写入的字节
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// WriteUint8 写入 1 字节
func (e *Encoder) WriteUint8(v uint8) {
	e.buf = append(e.buf, v)
}

// WriteUint16 写入 2 字节
func (e *Encoder) WriteUint16(v uint16) {
	e.buf = binary.BigEndian.AppendUint16(e.buf, v)
}

// WriteUint24 写入 3 字节（高 8 位被丢弃）
func (e *Encoder) WriteUint24(v uint32) {
	e.buf = append(e.buf, byte(v>>16), byte(v>>8), byte(v))
}

// WriteUint32 写入 4 字节
func (e *Encoder) WriteUint32(v uint32) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, v)
}

// WriteUint64 写入 8 字节
func (e *Encoder) WriteUint64(v uint64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, v)
}

// WriteBytes 原样写入字节
func (e *Encoder) WriteBytes(b []byte) {
	e.buf = append(e.buf, b...)
}

// WriteZero 写入 n 个零字节
func (e *Encoder) WriteZero(n int) {
	for i := 0; i < n; i++ {
		e.buf = append(e.buf, 0)
	}
}

// putUint 在 pos 处按宽度 w 写入 v
func (e *Encoder) putUint(pos int, w Width, v uint64) {
	for i := int(w) - 1; i >= 0; i-- {
		e.buf[pos+i] = byte(v)
		v >>= 8
	}
}

// Field 已预留长度子字段的变长字段
type Field struct {
	enc   *Encoder
	width Width
	pos   int
}

// AllocateField 预留长度子字段
//
// 之后写入的字节都属于该字段，直到调用 UpdateDataLength。
func (e *Encoder) AllocateField(w Width) *Field {
	if !w.valid() {
		panic(fmt.Sprintf("codec: unsupported field width %d", w))
	}
	f := &Field{enc: e, width: w, pos: len(e.buf)}
	e.WriteZero(int(w))
	return f
}

// UpdateDataLength 回填字段真实长度
func (f *Field) UpdateDataLength() error {
	n := uint64(f.enc.Len() - f.pos - int(f.width))
	if n > f.width.Max() {
		return NewError("encode", ErrLengthOverflow,
			fmt.Sprintf("%d bytes in %d-byte field", n, f.width))
	}
	f.enc.putUint(f.pos, f.width, n)
	return nil
}

// WriteField 写入一个变长字段，字段内容由 fn 生成
func (e *Encoder) WriteField(w Width, fn func(*Encoder) error) error {
	f := e.AllocateField(w)
	if err := fn(e); err != nil {
		return err
	}
	return f.UpdateDataLength()
}

// WriteOpaque 写入长度前缀的字节串
func (e *Encoder) WriteOpaque(w Width, data []byte) error {
	f := e.AllocateField(w)
	e.WriteBytes(data)
	return f.UpdateDataLength()
}

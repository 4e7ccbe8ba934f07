package codec

import (
	"encoding/binary"
	"fmt"
)

// Decoder 字节切片上的大端序读游标
//
// ReadBytes 和 ReadField 返回的切片是输入缓冲的视图，不发生拷贝。
// 需要长期持有解码结果的调用者应自行复制。
type Decoder struct {
	buf []byte
	off int
	ctx *Context
}

// NewDecoder 创建解码器
func NewDecoder(ctx *Context, b []byte) *Decoder {
	if ctx == nil {
		ctx = DefaultContext()
	}
	return &Decoder{buf: b, ctx: ctx}
}

// Context 返回解码上下文
func (d *Decoder) Context() *Context {
	return d.ctx
}

// Offset 返回当前读位置
func (d *Decoder) Offset() int {
	return d.off
}

// Remaining 返回剩余未读字节数
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.off
}

// Empty 是否已读完
func (d *Decoder) Empty() bool {
	return d.off >= len(d.buf)
}

// ReadBytes 读取 n 字节的零拷贝视图
func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, NewError("decode", ErrInvalidLength, fmt.Sprintf("negative length %d", n))
	}
	if d.Remaining() < n {
		return nil, NewError("decode", ErrTruncated,
			fmt.Sprintf("need %d bytes, have %d", n, d.Remaining()))
	}
	b := d.buf[d.off : d.off+n : d.off+n]
	d.off += n
	return b, nil
}

// ReadUint8 读取 1 字节
func (d *Decoder) ReadUint8() (uint8, error) {
	b, err := d.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 读取 2 字节
func (d *Decoder) ReadUint16() (uint16, error) {
	b, err := d.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadUint24 读取 3 字节
func (d *Decoder) ReadUint24() (uint32, error) {
	b, err := d.ReadBytes(3)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
}

// ReadUint32 读取 4 字节
func (d *Decoder) ReadUint32() (uint32, error) {
	b, err := d.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadUint64 读取 8 字节
func (d *Decoder) ReadUint64() (uint64, error) {
	b, err := d.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// ReadUint 按宽度读取无符号整数
func (d *Decoder) ReadUint(w Width) (uint64, error) {
	if !w.valid() {
		return 0, NewError("decode", ErrInvalidLength, fmt.Sprintf("unsupported width %d", w))
	}
	b, err := d.ReadBytes(int(w))
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, nil
}

// ReadField 读取变长字段，返回只覆盖字段数据的子解码器
func (d *Decoder) ReadField(w Width) (*Decoder, error) {
	n, err := d.ReadUint(w)
	if err != nil {
		return nil, err
	}
	if n > uint64(d.Remaining()) {
		return nil, NewError("decode", ErrTruncated,
			fmt.Sprintf("field declares %d bytes, have %d", n, d.Remaining()))
	}
	data, err := d.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	return &Decoder{buf: data, ctx: d.ctx}, nil
}

// ReadOpaque 读取长度前缀字节串的零拷贝视图
func (d *Decoder) ReadOpaque(w Width) ([]byte, error) {
	sub, err := d.ReadField(w)
	if err != nil {
		return nil, err
	}
	b := sub.buf
	sub.Release()
	return b, nil
}

// Finish 结束解码，存在未消费字节时返回 ErrTrailingData
//
// 无论成功与否都会释放视图。
func (d *Decoder) Finish() error {
	rest := d.Remaining()
	d.Release()
	if rest > 0 {
		return NewError("decode", ErrTrailingData, fmt.Sprintf("%d bytes left", rest))
	}
	return nil
}

// Release 放弃剩余视图
func (d *Decoder) Release() {
	d.off = len(d.buf)
	d.buf = d.buf[:d.off:d.off]
}

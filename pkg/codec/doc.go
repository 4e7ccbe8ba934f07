// Package codec 提供 RELOAD 线格式的编解码框架
//
// 所有整数均为大端序。变长字段由定长长度子字段与数据组成，
// 长度子字段的宽度按字段声明（1、2、3、4 或 8 字节）。
//
// # 编码
//
// 编码时先预留长度子字段位置，写入数据后回填真实长度：
//
//	enc := codec.NewEncoder(ctx)
//	fld := enc.AllocateField(codec.U16)
//	enc.WriteBytes(data)
//	if err := fld.UpdateDataLength(); err != nil {
//	    return err
//	}
//
// # 解码
//
// 解码时读取长度后对数据取零拷贝视图，子解码器只能看到字段内的字节：
//
//	sub, err := dec.ReadField(codec.U16)
//	if err != nil {
//	    return err
//	}
//	defer sub.Release()
//
// 任何解码路径（包括失败路径）都必须完全消费或显式释放其视图。
package codec

package dht

import (
	"time"

	"github.com/dep2p/go-reload/pkg/codec"
	"github.com/dep2p/go-reload/pkg/message"
)

// StoredData 一个带签名的已存储值
//
// 线上格式：U32 字段 { storageTime(8) + lifeTime(4) + 值 + 签名 }。
// StorageTime 为毫秒时间戳，LifeTime 以秒计。
type StoredData struct {
	StorageTime uint64
	LifeTime    uint32
	Value       Value
	Signature   message.Signature
}

// Encode 编码
func (d *StoredData) Encode(enc *codec.Encoder) error {
	return enc.WriteField(codec.U32, func(enc *codec.Encoder) error {
		enc.WriteUint64(d.StorageTime)
		enc.WriteUint32(d.LifeTime)
		if err := d.Value.Encode(enc); err != nil {
			return err
		}
		return d.Signature.Encode(enc)
	})
}

// DecodeStoredData 按数据模型解码
func DecodeStoredData(dec *codec.Decoder, m DataModel) (*StoredData, error) {
	body, err := dec.ReadField(codec.U32)
	if err != nil {
		return nil, err
	}
	d := &StoredData{}
	if d.StorageTime, err = body.ReadUint64(); err != nil {
		return nil, err
	}
	if d.LifeTime, err = body.ReadUint32(); err != nil {
		return nil, err
	}
	if d.Value, err = DecodeValue(body, m); err != nil {
		return nil, err
	}
	if d.Signature, err = message.DecodeSignature(body); err != nil {
		return nil, err
	}
	if err := body.Finish(); err != nil {
		return nil, err
	}
	return d, nil
}

// ExpiresAt 过期时刻
func (d *StoredData) ExpiresAt() time.Time {
	return time.UnixMilli(int64(d.StorageTime)).Add(time.Duration(d.LifeTime) * time.Second)
}

// Expired 在 now 时刻是否已过期
func (d *StoredData) Expired(now time.Time) bool {
	return !now.Before(d.ExpiresAt())
}

// Equal 比较两个已存储值
func (d *StoredData) Equal(o *StoredData) bool {
	return d.StorageTime == o.StorageTime && d.LifeTime == o.LifeTime &&
		d.Value.Equal(o.Value) && d.Signature.Equal(o.Signature)
}

// SigningBytes 返回签名覆盖的字节：resourceID ‖ kind(4) ‖ storageTime(8) ‖ 值
//
// 数组值以 AppendIndex 代替实际下标参与签名，使追加写入的签名与最终下标无关。
func SigningBytes(ctx *codec.Context, resource message.ResourceID, kind KindID, storageTime uint64, v Value) ([]byte, error) {
	return codec.Marshal(ctx, func(enc *codec.Encoder) error {
		enc.WriteBytes(resource)
		enc.WriteUint32(uint32(kind))
		enc.WriteUint64(storageTime)
		return signingView(v).Encode(enc)
	})
}

// StoredMetadata 已存储值的元数据（不含值本身）
//
// 线上格式：U32 字段 { storageTime(8) + lifeTime(4) + [index(4) | U16 key] +
// exists(1) + length(4) + hashAlg(1) + U8 hash }。
type StoredMetadata struct {
	StorageTime uint64
	LifeTime    uint32
	Model       DataModel
	Index       uint32
	Key         []byte
	Exists      bool
	Length      uint32
	HashAlg     message.HashAlgorithm
	Hash        []byte
}

// Encode 编码
func (m *StoredMetadata) Encode(enc *codec.Encoder) error {
	return enc.WriteField(codec.U32, func(enc *codec.Encoder) error {
		enc.WriteUint64(m.StorageTime)
		enc.WriteUint32(m.LifeTime)
		switch m.Model {
		case ModelArray:
			enc.WriteUint32(m.Index)
		case ModelDictionary:
			if err := enc.WriteOpaque(codec.U16, m.Key); err != nil {
				return err
			}
		}
		if m.Exists {
			enc.WriteUint8(1)
		} else {
			enc.WriteUint8(0)
		}
		enc.WriteUint32(m.Length)
		enc.WriteUint8(uint8(m.HashAlg))
		return enc.WriteOpaque(codec.U8, m.Hash)
	})
}

// DecodeStoredMetadata 按数据模型解码
func DecodeStoredMetadata(dec *codec.Decoder, model DataModel) (*StoredMetadata, error) {
	body, err := dec.ReadField(codec.U32)
	if err != nil {
		return nil, err
	}
	m := &StoredMetadata{Model: model}
	if m.StorageTime, err = body.ReadUint64(); err != nil {
		return nil, err
	}
	if m.LifeTime, err = body.ReadUint32(); err != nil {
		return nil, err
	}
	switch model {
	case ModelSingle:
	case ModelArray:
		if m.Index, err = body.ReadUint32(); err != nil {
			return nil, err
		}
	case ModelDictionary:
		key, err := body.ReadOpaque(codec.U16)
		if err != nil {
			return nil, err
		}
		m.Key = cloneBytes(key)
	default:
		return nil, codec.NewError("decode", codec.ErrUnknownType, model.String())
	}
	exists, err := body.ReadUint8()
	if err != nil {
		return nil, err
	}
	m.Exists = exists == 1
	if m.Length, err = body.ReadUint32(); err != nil {
		return nil, err
	}
	alg, err := body.ReadUint8()
	if err != nil {
		return nil, err
	}
	m.HashAlg = message.HashAlgorithm(alg)
	hash, err := body.ReadOpaque(codec.U8)
	if err != nil {
		return nil, err
	}
	m.Hash = cloneBytes(hash)
	if err := body.Finish(); err != nil {
		return nil, err
	}
	return m, nil
}

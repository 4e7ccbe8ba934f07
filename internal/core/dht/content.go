package dht

import (
	"github.com/dep2p/go-reload/pkg/codec"
	"github.com/dep2p/go-reload/pkg/message"
)

// ============================================================================
// Store
// ============================================================================

// StoreKindData 一个种类的待存储值：kind(4) + model(1) + generation(8) + U32 值列表
type StoreKindData struct {
	Kind       KindID
	Model      DataModel
	Generation uint64
	Values     []*StoredData
}

func (k *StoreKindData) encode(enc *codec.Encoder) error {
	enc.WriteUint32(uint32(k.Kind))
	enc.WriteUint8(uint8(k.Model))
	enc.WriteUint64(k.Generation)
	return enc.WriteField(codec.U32, func(enc *codec.Encoder) error {
		for _, v := range k.Values {
			if err := v.Encode(enc); err != nil {
				return err
			}
		}
		return nil
	})
}

func decodeStoreKindData(dec *codec.Decoder) (*StoreKindData, error) {
	k := &StoreKindData{}
	kind, err := dec.ReadUint32()
	if err != nil {
		return nil, err
	}
	model, err := dec.ReadUint8()
	if err != nil {
		return nil, err
	}
	k.Kind, k.Model = KindID(kind), DataModel(model)
	if k.Generation, err = dec.ReadUint64(); err != nil {
		return nil, err
	}
	list, err := dec.ReadField(codec.U32)
	if err != nil {
		return nil, err
	}
	for !list.Empty() {
		d, err := DecodeStoredData(list, k.Model)
		if err != nil {
			return nil, err
		}
		k.Values = append(k.Values, d)
	}
	return k, nil
}

// StoreRequest 存储请求：U8 resource + replicaNumber(1) + U32 种类列表
type StoreRequest struct {
	Resource      message.ResourceID
	ReplicaNumber uint8
	KindData      []*StoreKindData
}

// ContentType 实现 message.Content
func (*StoreRequest) ContentType() message.ContentType { return message.ContentStoreRequest }

// StoreKindResponse 一个种类的存储结果：kind(4) + generation(8) + U16 副本节点列表
type StoreKindResponse struct {
	Kind       KindID
	Generation uint64
	Replicas   []message.NodeID
}

// StoreAnswer 存储应答：U16 结果列表
type StoreAnswer struct {
	Responses []StoreKindResponse
}

// ContentType 实现 message.Content
func (*StoreAnswer) ContentType() message.ContentType { return message.ContentStoreAnswer }

// ============================================================================
// Fetch / Stat
// ============================================================================

// FetchRequest 取回请求：U8 resource + U16 选择器列表
type FetchRequest struct {
	Resource   message.ResourceID
	Specifiers []StoredDataSpecifier
}

// ContentType 实现 message.Content
func (*FetchRequest) ContentType() message.ContentType { return message.ContentFetchRequest }

// FetchKindResponse 一个种类的取回结果：kind(4) + model(1) + generation(8) + U32 值列表
type FetchKindResponse struct {
	Kind       KindID
	Model      DataModel
	Generation uint64
	Values     []*StoredData
}

// FetchAnswer 取回应答：U32 结果列表
//
// 签名者证书随应答的安全块发送。
type FetchAnswer struct {
	Responses []FetchKindResponse

	certs [][]byte
}

// ContentType 实现 message.Content
func (*FetchAnswer) ContentType() message.ContentType { return message.ContentFetchAnswer }

// CarriedCertificates 实现 message.CertificateCarrier
func (a *FetchAnswer) CarriedCertificates() [][]byte { return a.certs }

// StatRequest 元数据请求，格式同 FetchRequest
type StatRequest struct {
	Resource   message.ResourceID
	Specifiers []StoredDataSpecifier
}

// ContentType 实现 message.Content
func (*StatRequest) ContentType() message.ContentType { return message.ContentStatRequest }

// StatKindResponse 一个种类的元数据：kind(4) + model(1) + generation(8) + U32 元数据列表
type StatKindResponse struct {
	Kind       KindID
	Model      DataModel
	Generation uint64
	Values     []*StoredMetadata
}

// StatAnswer 元数据应答：U32 结果列表
type StatAnswer struct {
	Responses []StatKindResponse
}

// ContentType 实现 message.Content
func (*StatAnswer) ContentType() message.ContentType { return message.ContentStatAnswer }

// ============================================================================
// ConfigUpdate
// ============================================================================

// ConfigUpdateType 配置更新类型
type ConfigUpdateType uint8

// 配置更新类型
const (
	ConfigUpdateConfig ConfigUpdateType = 1
	ConfigUpdateKind   ConfigUpdateType = 2
)

// KindDescription 种类的线上描述：
// U16 字段 { kind(4) + model(1) + U8 策略名 + maxCount(4) + maxSize(4) }
type KindDescription struct {
	ID       KindID
	Model    DataModel
	Policy   string
	MaxCount uint32
	MaxSize  uint32
}

func (d KindDescription) encode(enc *codec.Encoder) error {
	return enc.WriteField(codec.U16, func(enc *codec.Encoder) error {
		enc.WriteUint32(uint32(d.ID))
		enc.WriteUint8(uint8(d.Model))
		if err := enc.WriteOpaque(codec.U8, []byte(d.Policy)); err != nil {
			return err
		}
		enc.WriteUint32(d.MaxCount)
		enc.WriteUint32(d.MaxSize)
		return nil
	})
}

func decodeKindDescription(dec *codec.Decoder) (KindDescription, error) {
	body, err := dec.ReadField(codec.U16)
	if err != nil {
		return KindDescription{}, err
	}
	var d KindDescription
	id, err := body.ReadUint32()
	if err != nil {
		return KindDescription{}, err
	}
	model, err := body.ReadUint8()
	if err != nil {
		return KindDescription{}, err
	}
	policy, err := body.ReadOpaque(codec.U8)
	if err != nil {
		return KindDescription{}, err
	}
	d.ID, d.Model, d.Policy = KindID(id), DataModel(model), string(policy)
	if d.MaxCount, err = body.ReadUint32(); err != nil {
		return KindDescription{}, err
	}
	if d.MaxSize, err = body.ReadUint32(); err != nil {
		return KindDescription{}, err
	}
	return d, body.Finish()
}

// ConfigUpdateRequest 配置更新请求：type(1) + U24 字段
//
// ConfigUpdateConfig 携带不透明的配置文档，ConfigUpdateKind 携带 U16 种类描述列表。
type ConfigUpdateRequest struct {
	Type   ConfigUpdateType
	Config []byte
	Kinds  []KindDescription
}

// ContentType 实现 message.Content
func (*ConfigUpdateRequest) ContentType() message.ContentType {
	return message.ContentConfigUpdateRequest
}

// ConfigUpdateAnswer 配置更新应答（无内容）
type ConfigUpdateAnswer struct{}

// ContentType 实现 message.Content
func (*ConfigUpdateAnswer) ContentType() message.ContentType {
	return message.ContentConfigUpdateAnswer
}

// ============================================================================
// UNKNOWN_KIND 错误信息
// ============================================================================

// NewUnknownKindError 创建 UNKNOWN_KIND 错误，信息为 U8 种类列表
func NewUnknownKindError(ctx *codec.Context, ids []KindID) *message.Error {
	info, _ := codec.Marshal(ctx, func(enc *codec.Encoder) error {
		return enc.WriteField(codec.U8, func(enc *codec.Encoder) error {
			for _, id := range ids {
				enc.WriteUint32(uint32(id))
			}
			return nil
		})
	})
	return &message.Error{Code: message.ErrorUnknownKind, Info: info}
}

// ParseUnknownKinds 从 UNKNOWN_KIND 错误信息中解析种类列表
func ParseUnknownKinds(ctx *codec.Context, e *message.Error) ([]KindID, error) {
	var ids []KindID
	err := codec.Unmarshal(ctx, e.Info, func(dec *codec.Decoder) error {
		list, err := dec.ReadField(codec.U8)
		if err != nil {
			return err
		}
		for !list.Empty() {
			id, err := list.ReadUint32()
			if err != nil {
				return err
			}
			ids = append(ids, KindID(id))
		}
		return nil
	})
	return ids, err
}

// ============================================================================
// 注册
// ============================================================================

func encodeResource(enc *codec.Encoder, r message.ResourceID) error {
	return enc.WriteOpaque(codec.U8, r)
}

func decodeResource(dec *codec.Decoder) (message.ResourceID, error) {
	b, err := dec.ReadOpaque(codec.U8)
	if err != nil {
		return nil, err
	}
	return message.ResourceID(cloneBytes(b)), nil
}

func encodeSpecifiers(enc *codec.Encoder, specs []StoredDataSpecifier) error {
	return enc.WriteField(codec.U16, func(enc *codec.Encoder) error {
		for _, s := range specs {
			if err := s.Encode(enc); err != nil {
				return err
			}
		}
		return nil
	})
}

func decodeSpecifiers(dec *codec.Decoder) ([]StoredDataSpecifier, error) {
	list, err := dec.ReadField(codec.U16)
	if err != nil {
		return nil, err
	}
	var out []StoredDataSpecifier
	for !list.Empty() {
		s, err := DecodeStoredDataSpecifier(list)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func encodeKindHead(enc *codec.Encoder, kind KindID, model DataModel, gen uint64) {
	enc.WriteUint32(uint32(kind))
	enc.WriteUint8(uint8(model))
	enc.WriteUint64(gen)
}

func decodeKindHead(dec *codec.Decoder) (KindID, DataModel, uint64, error) {
	kind, err := dec.ReadUint32()
	if err != nil {
		return 0, 0, 0, err
	}
	model, err := dec.ReadUint8()
	if err != nil {
		return 0, 0, 0, err
	}
	gen, err := dec.ReadUint64()
	if err != nil {
		return 0, 0, 0, err
	}
	return KindID(kind), DataModel(model), gen, nil
}

func init() {
	message.RegisterContent(message.ContentStoreRequest, message.ContentCodec{
		Encode: func(enc *codec.Encoder, c message.Content) error {
			r := c.(*StoreRequest)
			if err := encodeResource(enc, r.Resource); err != nil {
				return err
			}
			enc.WriteUint8(r.ReplicaNumber)
			return enc.WriteField(codec.U32, func(enc *codec.Encoder) error {
				for _, k := range r.KindData {
					if err := k.encode(enc); err != nil {
						return err
					}
				}
				return nil
			})
		},
		Decode: func(dec *codec.Decoder) (message.Content, error) {
			r := &StoreRequest{}
			var err error
			if r.Resource, err = decodeResource(dec); err != nil {
				return nil, err
			}
			if r.ReplicaNumber, err = dec.ReadUint8(); err != nil {
				return nil, err
			}
			list, err := dec.ReadField(codec.U32)
			if err != nil {
				return nil, err
			}
			for !list.Empty() {
				k, err := decodeStoreKindData(list)
				if err != nil {
					return nil, err
				}
				r.KindData = append(r.KindData, k)
			}
			return r, nil
		},
	})

	message.RegisterContent(message.ContentStoreAnswer, message.ContentCodec{
		Encode: func(enc *codec.Encoder, c message.Content) error {
			a := c.(*StoreAnswer)
			return enc.WriteField(codec.U16, func(enc *codec.Encoder) error {
				for _, r := range a.Responses {
					enc.WriteUint32(uint32(r.Kind))
					enc.WriteUint64(r.Generation)
					if err := enc.WriteField(codec.U16, func(enc *codec.Encoder) error {
						for _, n := range r.Replicas {
							if err := message.EncodeNodeID(enc, n); err != nil {
								return err
							}
						}
						return nil
					}); err != nil {
						return err
					}
				}
				return nil
			})
		},
		Decode: func(dec *codec.Decoder) (message.Content, error) {
			list, err := dec.ReadField(codec.U16)
			if err != nil {
				return nil, err
			}
			a := &StoreAnswer{}
			for !list.Empty() {
				var r StoreKindResponse
				kind, err := list.ReadUint32()
				if err != nil {
					return nil, err
				}
				r.Kind = KindID(kind)
				if r.Generation, err = list.ReadUint64(); err != nil {
					return nil, err
				}
				nodes, err := list.ReadField(codec.U16)
				if err != nil {
					return nil, err
				}
				for !nodes.Empty() {
					n, err := message.DecodeNodeID(nodes)
					if err != nil {
						return nil, err
					}
					r.Replicas = append(r.Replicas, n)
				}
				a.Responses = append(a.Responses, r)
			}
			return a, nil
		},
	})

	message.RegisterContent(message.ContentFetchRequest, message.ContentCodec{
		Encode: func(enc *codec.Encoder, c message.Content) error {
			r := c.(*FetchRequest)
			if err := encodeResource(enc, r.Resource); err != nil {
				return err
			}
			return encodeSpecifiers(enc, r.Specifiers)
		},
		Decode: func(dec *codec.Decoder) (message.Content, error) {
			res, err := decodeResource(dec)
			if err != nil {
				return nil, err
			}
			specs, err := decodeSpecifiers(dec)
			if err != nil {
				return nil, err
			}
			return &FetchRequest{Resource: res, Specifiers: specs}, nil
		},
	})

	message.RegisterContent(message.ContentFetchAnswer, message.ContentCodec{
		Encode: func(enc *codec.Encoder, c message.Content) error {
			a := c.(*FetchAnswer)
			return enc.WriteField(codec.U32, func(enc *codec.Encoder) error {
				for _, r := range a.Responses {
					encodeKindHead(enc, r.Kind, r.Model, r.Generation)
					if err := enc.WriteField(codec.U32, func(enc *codec.Encoder) error {
						for _, v := range r.Values {
							if err := v.Encode(enc); err != nil {
								return err
							}
						}
						return nil
					}); err != nil {
						return err
					}
				}
				return nil
			})
		},
		Decode: func(dec *codec.Decoder) (message.Content, error) {
			list, err := dec.ReadField(codec.U32)
			if err != nil {
				return nil, err
			}
			a := &FetchAnswer{}
			for !list.Empty() {
				var r FetchKindResponse
				if r.Kind, r.Model, r.Generation, err = decodeKindHead(list); err != nil {
					return nil, err
				}
				values, err := list.ReadField(codec.U32)
				if err != nil {
					return nil, err
				}
				for !values.Empty() {
					d, err := DecodeStoredData(values, r.Model)
					if err != nil {
						return nil, err
					}
					r.Values = append(r.Values, d)
				}
				a.Responses = append(a.Responses, r)
			}
			return a, nil
		},
	})

	message.RegisterContent(message.ContentStatRequest, message.ContentCodec{
		Encode: func(enc *codec.Encoder, c message.Content) error {
			r := c.(*StatRequest)
			if err := encodeResource(enc, r.Resource); err != nil {
				return err
			}
			return encodeSpecifiers(enc, r.Specifiers)
		},
		Decode: func(dec *codec.Decoder) (message.Content, error) {
			res, err := decodeResource(dec)
			if err != nil {
				return nil, err
			}
			specs, err := decodeSpecifiers(dec)
			if err != nil {
				return nil, err
			}
			return &StatRequest{Resource: res, Specifiers: specs}, nil
		},
	})

	message.RegisterContent(message.ContentStatAnswer, message.ContentCodec{
		Encode: func(enc *codec.Encoder, c message.Content) error {
			a := c.(*StatAnswer)
			return enc.WriteField(codec.U32, func(enc *codec.Encoder) error {
				for _, r := range a.Responses {
					encodeKindHead(enc, r.Kind, r.Model, r.Generation)
					if err := enc.WriteField(codec.U32, func(enc *codec.Encoder) error {
						for _, m := range r.Values {
							if err := m.Encode(enc); err != nil {
								return err
							}
						}
						return nil
					}); err != nil {
						return err
					}
				}
				return nil
			})
		},
		Decode: func(dec *codec.Decoder) (message.Content, error) {
			list, err := dec.ReadField(codec.U32)
			if err != nil {
				return nil, err
			}
			a := &StatAnswer{}
			for !list.Empty() {
				var r StatKindResponse
				if r.Kind, r.Model, r.Generation, err = decodeKindHead(list); err != nil {
					return nil, err
				}
				values, err := list.ReadField(codec.U32)
				if err != nil {
					return nil, err
				}
				for !values.Empty() {
					m, err := DecodeStoredMetadata(values, r.Model)
					if err != nil {
						return nil, err
					}
					r.Values = append(r.Values, m)
				}
				a.Responses = append(a.Responses, r)
			}
			return a, nil
		},
	})

	message.RegisterContent(message.ContentConfigUpdateRequest, message.ContentCodec{
		Encode: func(enc *codec.Encoder, c message.Content) error {
			r := c.(*ConfigUpdateRequest)
			enc.WriteUint8(uint8(r.Type))
			return enc.WriteField(codec.U24, func(enc *codec.Encoder) error {
				switch r.Type {
				case ConfigUpdateConfig:
					enc.WriteBytes(r.Config)
					return nil
				case ConfigUpdateKind:
					return enc.WriteField(codec.U16, func(enc *codec.Encoder) error {
						for _, d := range r.Kinds {
							if err := d.encode(enc); err != nil {
								return err
							}
						}
						return nil
					})
				default:
					return codec.NewError("encode", codec.ErrUnknownType, "config update type")
				}
			})
		},
		Decode: func(dec *codec.Decoder) (message.Content, error) {
			t, err := dec.ReadUint8()
			if err != nil {
				return nil, err
			}
			body, err := dec.ReadField(codec.U24)
			if err != nil {
				return nil, err
			}
			r := &ConfigUpdateRequest{Type: ConfigUpdateType(t)}
			switch r.Type {
			case ConfigUpdateConfig:
				b, err := body.ReadBytes(body.Remaining())
				if err != nil {
					return nil, err
				}
				r.Config = cloneBytes(b)
			case ConfigUpdateKind:
				list, err := body.ReadField(codec.U16)
				if err != nil {
					return nil, err
				}
				for !list.Empty() {
					d, err := decodeKindDescription(list)
					if err != nil {
						return nil, err
					}
					r.Kinds = append(r.Kinds, d)
				}
			default:
				body.Release()
				return nil, codec.NewError("decode", codec.ErrUnknownType, "config update type")
			}
			return r, body.Finish()
		},
	})

	message.RegisterContent(message.ContentConfigUpdateAnswer, message.ContentCodec{
		Encode: func(*codec.Encoder, message.Content) error { return nil },
		Decode: func(*codec.Decoder) (message.Content, error) { return &ConfigUpdateAnswer{}, nil },
	})
}

package dht

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-reload/internal/core/storage/engine"
	"github.com/dep2p/go-reload/internal/core/storage/kv"
	"github.com/dep2p/go-reload/pkg/codec"
	"github.com/dep2p/go-reload/pkg/lib/log"
	"github.com/dep2p/go-reload/pkg/message"
)

var storeLogger = log.Logger("dht/datastore")

// 键前缀（相对 s/）
var (
	dataPrefix = []byte("d/")
	genPrefix  = []byte("g/")
	kindPrefix = []byte("k/")
)

// maxTxnRetries 事务冲突时的最大重试次数
const maxTxnRetries = 3

// entryKey 返回 (资源, 种类) 的键后缀：U8 resource + kind(4)
func entryKey(resource message.ResourceID, kind KindID) []byte {
	out := make([]byte, 0, 1+len(resource)+4)
	out = append(out, byte(len(resource)))
	out = append(out, resource...)
	return binary.BigEndian.AppendUint32(out, uint32(kind))
}

func withPrefix(p, key []byte) []byte {
	return append(append(make([]byte, 0, len(p)+len(key)), p...), key...)
}

// record 一个 (资源, 种类) 的持久化内容：model(1) + U32 StoredData 列表
type record struct {
	model  DataModel
	values []*StoredData
}

func (r *record) marshal(ctx *codec.Context) ([]byte, error) {
	return codec.Marshal(ctx, func(enc *codec.Encoder) error {
		enc.WriteUint8(uint8(r.model))
		return enc.WriteField(codec.U32, func(enc *codec.Encoder) error {
			for _, v := range r.values {
				if err := v.Encode(enc); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

func unmarshalRecord(ctx *codec.Context, b []byte) (*record, error) {
	r := &record{}
	err := codec.Unmarshal(ctx, b, func(dec *codec.Decoder) error {
		m, err := dec.ReadUint8()
		if err != nil {
			return err
		}
		r.model = DataModel(m)
		list, err := dec.ReadField(codec.U32)
		if err != nil {
			return err
		}
		for !list.Empty() {
			d, err := DecodeStoredData(list, r.model)
			if err != nil {
				return err
			}
			r.values = append(r.values, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// live 返回 now 时刻未过期的值
func (r *record) live(now time.Time) []*StoredData {
	out := make([]*StoredData, 0, len(r.values))
	for _, v := range r.values {
		if !v.Expired(now) {
			out = append(out, v)
		}
	}
	return out
}

// KindWrite 对一个种类的写入
type KindWrite struct {
	Kind       *DataKind
	Generation uint64
	Values     []*StoredData
}

// DataStore 基于 kv.Store 的 DHT 数据存储
//
// 每个 (资源, 种类) 保存为一条记录，代数单独保存，记录被清理后代数仍单调。
type DataStore struct {
	kv    *kv.Store
	ctx   *codec.Context
	clock clock.Clock

	cleanupInterval time.Duration
	closeOnce       sync.Once
	done            chan struct{}
	wg              sync.WaitGroup
}

// NewDataStore 创建数据存储，kv 的前缀为 s/
func NewDataStore(store *kv.Store, ctx *codec.Context, clk clock.Clock, cleanupInterval time.Duration) *DataStore {
	if clk == nil {
		clk = clock.New()
	}
	return &DataStore{
		kv:              store,
		ctx:             ctx,
		clock:           clk,
		cleanupInterval: cleanupInterval,
		done:            make(chan struct{}),
	}
}

// update 执行读写事务，冲突时重试
func (s *DataStore) update(fn func(tx *kv.Txn) error) error {
	var err error
	for i := 0; i < maxTxnRetries; i++ {
		if err = s.kv.Update(fn); !engine.IsConflict(err) {
			return err
		}
	}
	return err
}

func readGeneration(tx *kv.Txn, key []byte) (uint64, error) {
	b, err := tx.Get(withPrefix(genPrefix, key))
	if engine.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(b) != 8 {
		return 0, engine.ErrCorrupted
	}
	return binary.BigEndian.Uint64(b), nil
}

func (s *DataStore) readRecord(tx *kv.Txn, key []byte, model DataModel) (*record, error) {
	b, err := tx.Get(withPrefix(dataPrefix, key))
	if engine.IsNotFound(err) {
		return &record{model: model}, nil
	}
	if err != nil {
		return nil, err
	}
	return unmarshalRecord(s.ctx, b)
}

// Apply 在一个事务中写入多个种类，返回各种类的新代数
//
// 任一种类被拒绝时整个事务不生效，拒绝原因以 *message.Error 返回。
func (s *DataStore) Apply(resource message.ResourceID, writes []KindWrite) ([]uint64, error) {
	now := s.clock.Now()
	var gens []uint64
	err := s.update(func(tx *kv.Txn) error {
		gens = gens[:0]
		for _, w := range writes {
			key := entryKey(resource, w.Kind.ID)
			stored, err := readGeneration(tx, key)
			if err != nil {
				return err
			}
			if w.Generation != 0 && w.Generation < stored {
				return message.NewError(message.ErrorGenerationCounterTooLow,
					"stored generation is higher")
			}
			rec, err := s.readRecord(tx, key, w.Kind.Model)
			if err != nil {
				return err
			}
			if rec.model != w.Kind.Model {
				rec = &record{model: w.Kind.Model}
			}
			rec.values = rec.live(now)
			if err := merge(rec, w.Values); err != nil {
				return err
			}
			if uint32(countPresent(rec.values)) > w.Kind.MaxCount {
				return message.NewError(message.ErrorDataTooLarge, "too many values for kind")
			}

			gen := stored + 1
			if w.Generation > gen {
				gen = w.Generation
			}
			b, err := rec.marshal(s.ctx)
			if err != nil {
				return err
			}
			if err := tx.Set(withPrefix(dataPrefix, key), b); err != nil {
				return err
			}
			if err := tx.Set(withPrefix(genPrefix, key), binary.BigEndian.AppendUint64(nil, gen)); err != nil {
				return err
			}
			gens = append(gens, gen)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return gens, nil
}

// merge 把新值合并进记录
func merge(rec *record, values []*StoredData) error {
	for _, v := range values {
		switch nv := v.Value.(type) {
		case SingleValue:
			if len(rec.values) > 0 && rec.values[0].StorageTime > v.StorageTime {
				return message.NewError(message.ErrorDataTooOld, "stored value is newer")
			}
			rec.values = []*StoredData{v}
		case ArrayValue:
			if nv.Index == AppendIndex {
				nv.Index = nextIndex(rec.values)
				cp := *v
				cp.Value = nv
				v = &cp
			}
			i := sort.Search(len(rec.values), func(i int) bool {
				return rec.values[i].Value.(ArrayValue).Index >= nv.Index
			})
			if i < len(rec.values) && rec.values[i].Value.(ArrayValue).Index == nv.Index {
				if rec.values[i].StorageTime > v.StorageTime {
					return message.NewError(message.ErrorDataTooOld, "stored value is newer")
				}
				rec.values[i] = v
				continue
			}
			rec.values = append(rec.values, nil)
			copy(rec.values[i+1:], rec.values[i:])
			rec.values[i] = v
		case DictionaryValue:
			replaced := false
			for i, old := range rec.values {
				if bytes.Equal(old.Value.(DictionaryValue).Key, nv.Key) {
					if old.StorageTime > v.StorageTime {
						return message.NewError(message.ErrorDataTooOld, "stored value is newer")
					}
					rec.values[i] = v
					replaced = true
					break
				}
			}
			if !replaced {
				rec.values = append(rec.values, v)
			}
		}
	}
	return nil
}

func nextIndex(values []*StoredData) uint32 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1].Value.(ArrayValue).Index + 1
}

func countPresent(values []*StoredData) int {
	n := 0
	for _, v := range values {
		if v.Value.Exists() {
			n++
		}
	}
	return n
}

// Get 返回 (资源, 种类) 的代数与未过期的值
func (s *DataStore) Get(resource message.ResourceID, kind *DataKind) (uint64, []*StoredData, error) {
	now := s.clock.Now()
	key := entryKey(resource, kind.ID)
	var gen uint64
	var values []*StoredData
	err := s.kv.View(func(tx *kv.Txn) error {
		var err error
		if gen, err = readGeneration(tx, key); err != nil {
			return err
		}
		rec, err := s.readRecord(tx, key, kind.Model)
		if err != nil {
			return err
		}
		if rec.model == kind.Model {
			values = rec.live(now)
		}
		return nil
	})
	return gen, values, err
}

// Cleanup 删除已过期的值，返回删除的值数
func (s *DataStore) Cleanup() (int, error) {
	now := s.clock.Now()
	keys, err := s.kv.Keys(dataPrefix)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		err := s.update(func(tx *kv.Txn) error {
			b, err := tx.Get(key)
			if engine.IsNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			rec, err := unmarshalRecord(s.ctx, b)
			if err != nil {
				storeLogger.Warn("删除损坏的记录", "key", key, "error", err)
				return tx.Delete(key)
			}
			live := rec.live(now)
			n := len(rec.values) - len(live)
			if n == 0 {
				return nil
			}
			removed += n
			if len(live) == 0 {
				return tx.Delete(key)
			}
			rec.values = live
			out, err := rec.marshal(s.ctx)
			if err != nil {
				return err
			}
			return tx.Set(key, out)
		})
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// SaveKind 持久化动态下发的种类
func (s *DataStore) SaveKind(d KindDescription) error {
	return s.kv.PutJSON(withPrefix(kindPrefix, binary.BigEndian.AppendUint32(nil, uint32(d.ID))), d)
}

// LoadKinds 读取持久化的种类
func (s *DataStore) LoadKinds() ([]KindDescription, error) {
	var out []KindDescription
	var decodeErr error
	err := s.kv.PrefixScan(kindPrefix, func(_, value []byte) bool {
		var d KindDescription
		if decodeErr = json.Unmarshal(value, &d); decodeErr != nil {
			return false
		}
		out = append(out, d)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, decodeErr
}

// Start 启动过期清理循环
func (s *DataStore) Start() {
	if s.cleanupInterval <= 0 {
		return
	}
	ticker := s.clock.Ticker(s.cleanupInterval)
	s.wg.Add(1)
	go s.cleanupLoop(ticker)
}

func (s *DataStore) cleanupLoop(ticker *clock.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			n, err := s.Cleanup()
			if err != nil && !errors.Is(err, engine.ErrClosed) {
				storeLogger.Warn("过期数据清理失败", "error", err)
				continue
			}
			if n > 0 {
				storeLogger.Debug("已清理过期数据", "count", n)
			}
		}
	}
}

// Close 停止清理循环
func (s *DataStore) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
}

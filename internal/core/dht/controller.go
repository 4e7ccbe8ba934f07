package dht

import (
	"context"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-reload/internal/core/identity"
	"github.com/dep2p/go-reload/internal/core/metrics"
	"github.com/dep2p/go-reload/pkg/codec"
	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/lib/crypto"
	"github.com/dep2p/go-reload/pkg/lib/log"
	"github.com/dep2p/go-reload/pkg/message"
)

var ctrlLogger = log.Logger("dht/controller")

// Controller 负责节点上的存储请求处理
//
// 处理投递到本地的 Store/Fetch/Stat/ConfigUpdate 请求，无每消息状态，可并发调用。
type Controller struct {
	kinds    *KindTable
	policies *PolicySet
	data     *DataStore
	keystore interfaces.Keystore
	topology interfaces.TopologyPlugin
	codecCtx *codec.Context
	hashAlg  message.HashAlgorithm
	clock    clock.Clock
	metrics  *metrics.Metrics
}

// ControllerConfig 控制器依赖
type ControllerConfig struct {
	Kinds    *KindTable
	Policies *PolicySet
	Data     *DataStore
	Keystore interfaces.Keystore
	Topology interfaces.TopologyPlugin
	Codec    *codec.Context
	HashAlg  message.HashAlgorithm
	Clock    clock.Clock
	Metrics  *metrics.Metrics
}

// NewController 创建控制器
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Codec == nil {
		cfg.Codec = codec.DefaultContext()
	}
	if cfg.HashAlg == message.HashNone {
		cfg.HashAlg = message.HashSHA256
	}
	return &Controller{
		kinds:    cfg.Kinds,
		policies: cfg.Policies,
		data:     cfg.Data,
		keystore: cfg.Keystore,
		topology: cfg.Topology,
		codecCtx: cfg.Codec,
		hashAlg:  cfg.HashAlg,
		clock:    cfg.Clock,
		metrics:  cfg.Metrics,
	}
}

// Register 在路由器上注册处理函数
func (c *Controller) Register(r interfaces.MessageRouter) {
	r.RegisterHandler(message.ContentStoreRequest, c.HandleStore)
	r.RegisterHandler(message.ContentFetchRequest, c.HandleFetch)
	r.RegisterHandler(message.ContentStatRequest, c.HandleStat)
	r.RegisterHandler(message.ContentConfigUpdateRequest, c.HandleConfigUpdate)
}

func (c *Controller) reject(op string, req *message.Message, e *message.Error) (message.Content, error) {
	ctrlLogger.Warn("拒绝存储请求", "op", op, "tx", req.TransactionID(), "code", e.Code, "info", string(e.Info))
	c.metrics.ObserveStorage(op, e.Code.String())
	return nil, e
}

// ============================================================================
// Store
// ============================================================================

// HandleStore 处理存储请求
func (c *Controller) HandleStore(_ context.Context, req *message.Message) (message.Content, error) {
	sr, ok := req.Content().(*StoreRequest)
	if !ok {
		return nil, message.NewError(message.ErrorInvalidMessage, "not a store request")
	}

	c.learnCertificates(req)

	ids := make([]KindID, 0, len(sr.KindData))
	for _, kd := range sr.KindData {
		ids = append(ids, kd.Kind)
	}
	if unknown := c.kinds.Unknown(ids); len(unknown) > 0 {
		return c.reject("store", req, NewUnknownKindError(c.codecCtx, unknown))
	}

	writes := make([]KindWrite, 0, len(sr.KindData))
	for _, kd := range sr.KindData {
		kind, _ := c.kinds.Get(kd.Kind)
		if e := c.validateStore(sr.Resource, kind, kd); e != nil {
			return c.reject("store", req, e)
		}
		writes = append(writes, KindWrite{Kind: kind, Generation: kd.Generation, Values: kd.Values})
	}

	gens, err := c.data.Apply(sr.Resource, writes)
	if err != nil {
		var e *message.Error
		if errors.As(err, &e) {
			return c.reject("store", req, e)
		}
		c.metrics.ObserveStorage("store", "error")
		return nil, err
	}

	replicas := c.topology.ReplicaNodes(sr.Resource)
	ans := &StoreAnswer{Responses: make([]StoreKindResponse, len(writes))}
	for i, w := range writes {
		ans.Responses[i] = StoreKindResponse{Kind: w.Kind.ID, Generation: gens[i], Replicas: replicas}
	}
	c.metrics.ObserveStorage("store", "ok")
	ctrlLogger.Debug("已保存数据", "resource", sr.Resource, "kinds", len(writes))
	return ans, nil
}

// learnCertificates 把请求安全块中的证书加入证书存储
func (c *Controller) learnCertificates(req *message.Message) {
	for _, gc := range req.SecurityBlock().Certificates {
		if gc.Type != message.CertificateX509 {
			continue
		}
		cert, err := crypto.ParseCertificate(gc.Data)
		if err != nil {
			ctrlLogger.Debug("忽略无法解析的证书", "tx", req.TransactionID(), "error", err)
			continue
		}
		if err := c.keystore.AddCertificate(cert); err != nil {
			ctrlLogger.Debug("忽略未通过校验的证书", "tx", req.TransactionID(), "error", err)
		}
	}
}

// validateStore 检查一个种类的全部值，违反时返回协议错误
func (c *Controller) validateStore(resource message.ResourceID, kind *DataKind, kd *StoreKindData) *message.Error {
	if kd.Model != kind.Model {
		return message.NewError(message.ErrorInvalidMessage,
			fmt.Sprintf("kind %d is %s, got %s", kind.ID, kind.Model, kd.Model))
	}
	if kind.Model == ModelSingle && len(kd.Values) > 1 {
		return message.NewError(message.ErrorInvalidMessage, "single kind takes one value")
	}
	if dupEntry(kd.Values) {
		return message.NewError(message.ErrorInvalidMessage, ErrDuplicateEntry.Error())
	}

	for _, v := range kd.Values {
		if uint32(v.Value.Size()) > kind.MaxSize {
			return message.NewError(message.ErrorDataTooLarge,
				fmt.Sprintf("value of %d bytes exceeds %d", v.Value.Size(), kind.MaxSize))
		}
		cert, err := c.keystore.GetCertificate(v.Signature.Identity)
		if err != nil {
			return message.NewError(message.ErrorForbidden, err.Error())
		}
		tbs, err := SigningBytes(c.codecCtx, resource, kind.ID, v.StorageTime, v.Value)
		if err != nil {
			return message.NewError(message.ErrorInvalidMessage, err.Error())
		}
		if err := identity.Verify(cert, tbs, v.Signature); err != nil {
			return message.NewError(message.ErrorForbidden, err.Error())
		}
		if err := kind.Policy.Check(resource, v.Signature.Identity, cert); err != nil {
			return message.NewError(message.ErrorForbidden, err.Error())
		}
	}
	return nil
}

// dupEntry 一批值中是否有重复的数组下标或字典键（追加写入不算重复）
func dupEntry(values []*StoredData) bool {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		var k string
		switch nv := v.Value.(type) {
		case ArrayValue:
			if nv.Index == AppendIndex {
				continue
			}
			k = fmt.Sprint(nv.Index)
		case DictionaryValue:
			k = string(nv.Key)
		default:
			continue
		}
		if _, dup := seen[k]; dup {
			return true
		}
		seen[k] = struct{}{}
	}
	return false
}

// ============================================================================
// Fetch / Stat
// ============================================================================

// selected 一个选择器匹配到的值
type selected struct {
	kind   *DataKind
	gen    uint64
	values []*StoredData
}

func (c *Controller) selectValues(resource message.ResourceID, specs []StoredDataSpecifier) ([]selected, *message.Error, error) {
	ids := make([]KindID, 0, len(specs))
	for _, s := range specs {
		ids = append(ids, s.Kind)
	}
	if unknown := c.kinds.Unknown(ids); len(unknown) > 0 {
		return nil, NewUnknownKindError(c.codecCtx, unknown), nil
	}

	out := make([]selected, 0, len(specs))
	for _, s := range specs {
		kind, _ := c.kinds.Get(s.Kind)
		if s.Value.Model() != kind.Model {
			return nil, message.NewError(message.ErrorInvalidMessage,
				fmt.Sprintf("kind %d is %s, specifier is %s", kind.ID, kind.Model, s.Value.Model())), nil
		}
		gen, values, err := c.data.Get(resource, kind)
		if err != nil {
			return nil, nil, err
		}
		sel := selected{kind: kind, gen: gen}
		if s.Generation != 0 && gen <= s.Generation {
			out = append(out, sel)
			continue
		}
		for _, v := range values {
			if s.Value.Matches(v.Value) {
				sel.values = append(sel.values, v)
			}
		}
		if len(sel.values) == 0 && kind.Model == ModelSingle {
			sel.values = []*StoredData{{Value: NonExistent(ModelSingle), Signature: message.EmptySignature()}}
		}
		out = append(out, sel)
	}
	return out, nil, nil
}

// HandleFetch 处理取回请求
func (c *Controller) HandleFetch(_ context.Context, req *message.Message) (message.Content, error) {
	fr, ok := req.Content().(*FetchRequest)
	if !ok {
		return nil, message.NewError(message.ErrorInvalidMessage, "not a fetch request")
	}
	sels, e, err := c.selectValues(fr.Resource, fr.Specifiers)
	if e != nil {
		return c.reject("fetch", req, e)
	}
	if err != nil {
		c.metrics.ObserveStorage("fetch", "error")
		return nil, err
	}

	ans := &FetchAnswer{Responses: make([]FetchKindResponse, len(sels))}
	seen := make(map[string]struct{})
	for i, s := range sels {
		ans.Responses[i] = FetchKindResponse{Kind: s.kind.ID, Model: s.kind.Model, Generation: s.gen, Values: s.values}
		for _, v := range s.values {
			id := v.Signature.Identity
			if id.Type == message.IdentityNone {
				continue
			}
			if _, ok := seen[id.Key()]; ok {
				continue
			}
			seen[id.Key()] = struct{}{}
			if cert, err := c.keystore.GetCertificate(id); err == nil {
				ans.certs = append(ans.certs, cert.Raw)
			}
		}
	}
	c.metrics.ObserveStorage("fetch", "ok")
	return ans, nil
}

// HandleStat 处理元数据请求
func (c *Controller) HandleStat(_ context.Context, req *message.Message) (message.Content, error) {
	sr, ok := req.Content().(*StatRequest)
	if !ok {
		return nil, message.NewError(message.ErrorInvalidMessage, "not a stat request")
	}
	sels, e, err := c.selectValues(sr.Resource, sr.Specifiers)
	if e != nil {
		return c.reject("stat", req, e)
	}
	if err != nil {
		c.metrics.ObserveStorage("stat", "error")
		return nil, err
	}

	hash, err := identity.HashFunc(c.hashAlg)
	if err != nil {
		return nil, err
	}
	ans := &StatAnswer{Responses: make([]StatKindResponse, len(sels))}
	for i, s := range sels {
		r := StatKindResponse{Kind: s.kind.ID, Model: s.kind.Model, Generation: s.gen}
		for _, v := range s.values {
			r.Values = append(r.Values, metadataOf(v, c.hashAlg, hash))
		}
		ans.Responses[i] = r
	}
	c.metrics.ObserveStorage("stat", "ok")
	return ans, nil
}

func metadataOf(d *StoredData, alg message.HashAlgorithm, hash func([]byte) []byte) *StoredMetadata {
	m := &StoredMetadata{
		StorageTime: d.StorageTime,
		LifeTime:    d.LifeTime,
		Model:       d.Value.Model(),
		Exists:      d.Value.Exists(),
		Length:      uint32(d.Value.Size()),
		HashAlg:     alg,
	}
	var data []byte
	switch v := d.Value.(type) {
	case SingleValue:
		data = v.Data
	case ArrayValue:
		m.Index = v.Index
		data = v.Entry.Data
	case DictionaryValue:
		m.Key = v.Key
		data = v.Entry.Data
	}
	if m.Exists {
		m.Hash = hash(data)
	}
	return m
}

// ============================================================================
// ConfigUpdate
// ============================================================================

// HandleConfigUpdate 处理配置更新请求，种类更新加入种类表并持久化
//
// 只接受未知种类；与已知种类相同的描述被跳过，重新定义已知种类返回 Error_Forbidden。
// 任一描述被拒绝时整批不生效。
func (c *Controller) HandleConfigUpdate(_ context.Context, req *message.Message) (message.Content, error) {
	cu, ok := req.Content().(*ConfigUpdateRequest)
	if !ok {
		return nil, message.NewError(message.ErrorInvalidMessage, "not a config update request")
	}
	if cu.Type == ConfigUpdateConfig {
		ctrlLogger.Info("收到配置文档", "bytes", len(cu.Config))
		return &ConfigUpdateAnswer{}, nil
	}

	added := make(map[KindID]*DataKind, len(cu.Kinds))
	order := make([]KindID, 0, len(cu.Kinds))
	for _, d := range cu.Kinds {
		cur, ok := c.kinds.Get(d.ID)
		if !ok {
			cur, ok = added[d.ID]
		}
		if ok {
			if cur.Describe() == d {
				continue
			}
			return c.reject("config", req, message.NewError(message.ErrorForbidden,
				fmt.Sprintf("kind %d already defined", d.ID)))
		}
		k, err := KindFromDescription(d, c.policies)
		if err != nil {
			return c.reject("config", req, message.NewError(message.ErrorInvalidMessage, err.Error()))
		}
		added[d.ID] = k
		order = append(order, d.ID)
	}

	for _, id := range order {
		k := added[id]
		d := k.Describe()
		if err := c.data.SaveKind(d); err != nil {
			return nil, err
		}
		c.kinds.Add(k)
		ctrlLogger.Info("已加入种类", "kind", d.ID, "model", d.Model, "policy", d.Policy)
	}
	return &ConfigUpdateAnswer{}, nil
}

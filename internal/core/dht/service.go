package dht

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/singleflight"

	"github.com/dep2p/go-reload/pkg/codec"
	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/lib/crypto"
	"github.com/dep2p/go-reload/pkg/lib/future"
	"github.com/dep2p/go-reload/pkg/lib/log"
	"github.com/dep2p/go-reload/pkg/message"
)

var svcLogger = log.Logger("dht/service")

// maxRemoveIndexes 种类未知时一次删除最多展开的数组下标数
const maxRemoveIndexes = 1 << 16

// Service 存储客户端
//
// Store/Fetch/Stat/Remove 发送请求到负责资源的节点，返回的 Future 在应答到达时完成。
type Service struct {
	router   interfaces.MessageRouter
	keystore interfaces.Keystore
	kinds    *KindTable
	codecCtx *codec.Context
	clock    clock.Clock

	updates singleflight.Group
	closed  atomic.Bool
}

// NewService 创建存储客户端
func NewService(router interfaces.MessageRouter, ks interfaces.Keystore, kinds *KindTable,
	ctx *codec.Context, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.New()
	}
	if ctx == nil {
		ctx = codec.DefaultContext()
	}
	return &Service{router: router, keystore: ks, kinds: kinds, codecCtx: ctx, clock: clk}
}

// Close 关闭客户端，之后的调用立即失败
func (s *Service) Close() {
	s.closed.Store(true)
}

// ============================================================================
// Store / Remove
// ============================================================================

// Store 签名并存储一组值
//
// 同一种类的值合并到一个 StoreKindData，代数取其中最大者。
func (s *Service) Store(ctx context.Context, resource message.ResourceID,
	prepared ...*PreparedData) *future.Future[[]StoreKindResponse] {
	if s.closed.Load() {
		return future.Failed[[]StoreKindResponse](ErrServiceClosed)
	}
	req, err := s.buildStore(resource, prepared)
	if err != nil {
		return future.Failed[[]StoreKindResponse](err)
	}

	fut := s.router.SendRequest(ctx, message.DestinationList{resource}, req)
	return future.Handle(fut, func(msg *message.Message, err error) ([]StoreKindResponse, error) {
		if err != nil {
			return nil, s.answerError(resource, "store", err)
		}
		ans, ok := msg.Content().(*StoreAnswer)
		if !ok {
			return nil, &Error{Op: "store", Err: ErrUnexpectedAnswer}
		}
		return ans.Responses, nil
	})
}

func (s *Service) buildStore(resource message.ResourceID, prepared []*PreparedData) (*StoreRequest, error) {
	if len(resource) == 0 {
		return nil, ErrInvalidResourceID
	}
	now := uint64(s.clock.Now().UnixMilli())
	req := &StoreRequest{Resource: resource}
	byKind := make(map[KindID]*StoreKindData)

	for _, p := range prepared {
		if p.Value == nil {
			return nil, &Error{Op: "store", Kind: p.Kind, Err: ErrModelMismatch}
		}
		model := p.Value.Model()
		if k, ok := s.kinds.Get(p.Kind); ok && k.Model != model {
			return nil, &Error{Op: "store", Kind: p.Kind, Err: ErrModelMismatch}
		}
		kd, ok := byKind[p.Kind]
		if !ok {
			kd = &StoreKindData{Kind: p.Kind, Model: model}
			byKind[p.Kind] = kd
			req.KindData = append(req.KindData, kd)
		} else if kd.Model != model {
			return nil, &Error{Op: "store", Kind: p.Kind, Err: ErrModelMismatch}
		}
		if p.Generation > kd.Generation {
			kd.Generation = p.Generation
		}
		d, err := p.Build(s.codecCtx, resource, s.keystore, now)
		if err != nil {
			return nil, err
		}
		kd.Values = append(kd.Values, d)
	}
	return req, nil
}

// Remove 以删除标记覆盖选择器选中的值
//
// 数组按区间逐下标生成标记，重叠区间中的下标只生成一次，总数不超过种类的 MaxCount；
// 字典按键生成。
func (s *Service) Remove(ctx context.Context, resource message.ResourceID,
	spec StoredDataSpecifier) *future.Future[[]StoreKindResponse] {
	limit := maxRemoveIndexes
	if k, ok := s.kinds.Get(spec.Kind); ok {
		limit = int(k.MaxCount)
	}
	marks, err := tombstones(spec.Kind, spec.Value, limit)
	if err != nil {
		return future.Failed[[]StoreKindResponse](&Error{Op: "remove", Kind: spec.Kind, Err: err})
	}
	if len(marks) == 0 {
		return future.Failed[[]StoreKindResponse](&Error{Op: "remove", Kind: spec.Kind, Err: ErrEmptySelection})
	}
	for _, m := range marks {
		m.Generation = spec.Generation
	}
	return s.Store(ctx, resource, marks...)
}

// ============================================================================
// Fetch / Stat
// ============================================================================

// Fetch 取回并校验值
//
// 任何一个签名校验失败都使整个取回失败。
func (s *Service) Fetch(ctx context.Context, resource message.ResourceID,
	specs ...StoredDataSpecifier) *future.Future[[]FetchKindResponse] {
	if s.closed.Load() {
		return future.Failed[[]FetchKindResponse](ErrServiceClosed)
	}
	if len(resource) == 0 {
		return future.Failed[[]FetchKindResponse](ErrInvalidResourceID)
	}

	req := &FetchRequest{Resource: resource, Specifiers: specs}
	fut := s.router.SendRequest(ctx, message.DestinationList{resource}, req)
	return future.Handle(fut, func(msg *message.Message, err error) ([]FetchKindResponse, error) {
		if err != nil {
			return nil, s.answerError(resource, "fetch", err)
		}
		ans, ok := msg.Content().(*FetchAnswer)
		if !ok {
			return nil, &Error{Op: "fetch", Err: ErrUnexpectedAnswer}
		}
		s.learnCertificates(msg)
		if err := s.verify(resource, ans.Responses); err != nil {
			return nil, err
		}
		return ans.Responses, nil
	})
}

func (s *Service) learnCertificates(msg *message.Message) {
	for _, gc := range msg.SecurityBlock().Certificates {
		if gc.Type != message.CertificateX509 {
			continue
		}
		if cert, err := crypto.ParseCertificate(gc.Data); err == nil {
			_ = s.keystore.AddCertificate(cert)
		}
	}
}

func (s *Service) verify(resource message.ResourceID, responses []FetchKindResponse) error {
	for _, r := range responses {
		for _, v := range r.Values {
			if v.Signature.Identity.Type == message.IdentityNone {
				continue
			}
			tbs, err := SigningBytes(s.codecCtx, resource, r.Kind, v.StorageTime, v.Value)
			if err != nil {
				return &Error{Op: "fetch", Kind: r.Kind, Err: err}
			}
			if err := s.keystore.Verify(tbs, v.Signature); err != nil {
				svcLogger.Warn("取回数据签名校验失败", "resource", resource, "kind", r.Kind, "error", err)
				return &Error{Op: "fetch", Kind: r.Kind, Err: fmt.Errorf("%w: %v", ErrSignatureInvalid, err)}
			}
		}
	}
	return nil
}

// Stat 取回元数据
func (s *Service) Stat(ctx context.Context, resource message.ResourceID,
	specs ...StoredDataSpecifier) *future.Future[[]StatKindResponse] {
	if s.closed.Load() {
		return future.Failed[[]StatKindResponse](ErrServiceClosed)
	}
	if len(resource) == 0 {
		return future.Failed[[]StatKindResponse](ErrInvalidResourceID)
	}

	req := &StatRequest{Resource: resource, Specifiers: specs}
	fut := s.router.SendRequest(ctx, message.DestinationList{resource}, req)
	return future.Handle(fut, func(msg *message.Message, err error) ([]StatKindResponse, error) {
		if err != nil {
			return nil, s.answerError(resource, "stat", err)
		}
		ans, ok := msg.Content().(*StatAnswer)
		if !ok {
			return nil, &Error{Op: "stat", Err: ErrUnexpectedAnswer}
		}
		return ans.Responses, nil
	})
}

// ============================================================================
// 错误与配置更新
// ============================================================================

// answerError 转换失败的应答；UNKNOWN_KIND 触发一次种类配置更新
func (s *Service) answerError(resource message.ResourceID, op string, err error) error {
	var e *message.Error
	if !errors.As(err, &e) || e.Code != message.ErrorUnknownKind {
		return err
	}
	ids, perr := ParseUnknownKinds(s.codecCtx, e)
	if perr != nil {
		svcLogger.Debug("UNKNOWN_KIND 信息无法解析", "error", perr)
	}
	if uerr := s.updateKinds(resource, ids); uerr != nil {
		svcLogger.Warn("种类配置更新失败", "resource", resource, "kinds", ids, "error", uerr)
	}
	return &Error{Op: op, Err: &UnknownKindError{Kinds: ids}}
}

// updateKinds 把本地已知的种类定义发给负责 resource 的节点
//
// 同一资源与种类组合的并发更新只发送一次。
func (s *Service) updateKinds(resource message.ResourceID, ids []KindID) error {
	var descs []KindDescription
	for _, id := range ids {
		if k, ok := s.kinds.Get(id); ok {
			descs = append(descs, k.Describe())
		}
	}
	if len(descs) == 0 {
		return nil
	}

	key := fmt.Sprintf("%x/%v", []byte(resource), ids)
	_, err, _ := s.updates.Do(key, func() (any, error) {
		req := &ConfigUpdateRequest{Type: ConfigUpdateKind, Kinds: descs}
		msg, err := s.router.SendRequest(context.Background(), message.DestinationList{resource}, req).
			Wait(context.Background())
		if err != nil {
			return nil, err
		}
		if _, ok := msg.Content().(*ConfigUpdateAnswer); !ok {
			return nil, ErrUnexpectedAnswer
		}
		svcLogger.Info("已下发种类配置", "resource", resource, "kinds", ids)
		return nil, nil
	})
	return err
}

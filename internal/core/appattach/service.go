package appattach

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dep2p/go-reload/pkg/interfaces"
	"github.com/dep2p/go-reload/pkg/lib/future"
	"github.com/dep2p/go-reload/pkg/lib/log"
	"github.com/dep2p/go-reload/pkg/message"
)

var logger = log.Logger("core/appattach")

// hostTypePreference 主机候选的类型偏好
const hostTypePreference = 126

// Prober 检查候选地址是否可连通
type Prober func(ctx context.Context, addr netip.AddrPort) error

// TCPProber 以 TCP 连接探测候选
func TCPProber(timeout time.Duration) Prober {
	return func(ctx context.Context, addr netip.AddrPort) error {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr.String())
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

// Service 应用服务器登记与 AppAttach 处理
type Service struct {
	router  interfaces.MessageRouter
	servers sync.Map // uint16 -> netip.AddrPort
	probe   Prober

	// interfaceAddrs 枚举本机地址，替换用于测试
	interfaceAddrs func() ([]netip.Addr, error)
}

// NewService 创建服务，probe 为 nil 时使用 TCPProber(3s)
func NewService(router interfaces.MessageRouter, probe Prober) *Service {
	if probe == nil {
		probe = TCPProber(3 * time.Second)
	}
	return &Service{router: router, probe: probe, interfaceAddrs: localAddrs}
}

// Register 在路由器上注册 AppAttach 处理函数
func (s *Service) Register(r interfaces.MessageRouter) {
	r.RegisterHandler(message.ContentAppAttachRequest, s.HandleAppAttach)
}

// RegisterServer 登记监听在 addr 的应用服务器，已有登记时替换
func (s *Service) RegisterServer(application uint16, addr netip.AddrPort) error {
	if !addr.IsValid() {
		return ErrInvalidAddress
	}
	s.servers.Store(application, addr)
	logger.Info("应用服务器已登记", "application", application, "addr", addr.String())
	return nil
}

// UnregisterServer 注销应用服务器
func (s *Service) UnregisterServer(application uint16) bool {
	if _, ok := s.servers.LoadAndDelete(application); !ok {
		return false
	}
	logger.Info("应用服务器已注销", "application", application)
	return true
}

// Servers 返回登记的应用服务器快照
func (s *Service) Servers() map[uint16]netip.AddrPort {
	out := make(map[uint16]netip.AddrPort)
	s.servers.Range(func(k, v any) bool {
		out[k.(uint16)] = v.(netip.AddrPort)
		return true
	})
	return out
}

// HandleAppAttach 处理 AppAttach 请求
func (s *Service) HandleAppAttach(_ context.Context, req *message.Message) (message.Content, error) {
	r, ok := req.Content().(*AppAttachRequest)
	if !ok {
		return nil, message.NewError(message.ErrorInvalidMessage, "not an app attach request")
	}
	v, ok := s.servers.Load(r.Application)
	if !ok {
		return nil, message.NewError(message.ErrorNotFound,
			fmt.Sprintf("application %d not registered", r.Application))
	}
	cands, err := s.hostCandidates(v.(netip.AddrPort))
	if err != nil {
		logger.Warn("枚举候选地址失败", "application", r.Application, "error", err)
		return nil, message.NewError(message.ErrorNotFound, "no candidates available")
	}
	return &AppAttachAnswer{
		UFrag:       newToken(),
		Password:    newToken(),
		Application: r.Application,
		Role:        RolePassive,
		Candidates:  cands,
	}, nil
}

// hostCandidates 返回服务器地址对应的主机候选
//
// 未指定地址展开为本机全部同族地址（:: 同时包含 IPv4）。
func (s *Service) hostCandidates(addr netip.AddrPort) ([]Candidate, error) {
	addrs := []netip.Addr{addr.Addr().Unmap()}
	if addr.Addr().IsUnspecified() {
		local, err := s.interfaceAddrs()
		if err != nil {
			return nil, err
		}
		addrs = addrs[:0]
		for _, a := range local {
			if addr.Addr().Is4() && !a.Is4() {
				continue
			}
			addrs = append(addrs, a)
		}
	}
	if len(addrs) == 0 {
		return nil, ErrNoSuitableCandidate
	}

	out := make([]Candidate, 0, len(addrs))
	for i, a := range addrs {
		out = append(out, Candidate{
			Addr:       netip.AddrPortFrom(a, addr.Port()),
			Link:       LinkTLSTCPNoICE,
			Foundation: []byte(fmt.Sprintf("%d", i+1)),
			Priority:   priority(hostTypePreference, 65535-i),
			Type:       CandidateHost,
		})
	}
	return out, nil
}

// priority 候选优先级：2^24*类型偏好 + 2^8*本地偏好 + (256 - 组件号)
func priority(typePref, localPref int) uint32 {
	return uint32(typePref)<<24 | uint32(localPref)<<8 | uint32(256-1)
}

func localAddrs() ([]netip.Addr, error) {
	ifAddrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	var out []netip.Addr
	for _, ia := range ifAddrs {
		ipnet, ok := ia.(*net.IPNet)
		if !ok {
			continue
		}
		a, ok := netip.AddrFromSlice(ipnet.IP)
		if !ok || a.IsLinkLocalUnicast() {
			continue
		}
		out = append(out, a.Unmap())
	}
	return out, nil
}

func newToken() []byte {
	return []byte(uuid.NewString())
}

// RequestAddress 向 dest 请求应用服务器地址，返回第一个可连通的候选
//
// 候选按优先级从高到低探测。
func (s *Service) RequestAddress(ctx context.Context, dest message.DestinationList,
	application uint16) *future.Future[netip.AddrPort] {
	req := &AppAttachRequest{
		UFrag:       newToken(),
		Password:    newToken(),
		Application: application,
		Role:        RoleActive,
	}
	fut := s.router.SendRequest(ctx, dest, req)
	return future.Then(fut, func(msg *message.Message) (netip.AddrPort, error) {
		ans, ok := msg.Content().(*AppAttachAnswer)
		if !ok {
			return netip.AddrPort{}, ErrUnexpectedAnswer
		}
		return s.selectCandidate(ctx, ans.Candidates)
	})
}

func (s *Service) selectCandidate(ctx context.Context, cands []Candidate) (netip.AddrPort, error) {
	sorted := append([]Candidate(nil), cands...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })
	for _, c := range sorted {
		if err := s.probe(ctx, c.Addr); err != nil {
			logger.Debug("候选不可达", "addr", c.Addr.String(), "error", err)
			continue
		}
		return c.Addr, nil
	}
	return netip.AddrPort{}, ErrNoSuitableCandidate
}

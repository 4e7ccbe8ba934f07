package routing

import (
	"time"

	"github.com/dep2p/go-reload/config"
	"github.com/dep2p/go-reload/pkg/lib/crypto"
	"github.com/dep2p/go-reload/pkg/message"
)

// Config 路由配置
type Config struct {
	LocalID               message.NodeID
	InitialTTL            uint8
	OverlayHash           uint32
	Version               uint8
	ConfigurationSequence uint32
	MaxMessageSize        int

	ViaCompressThreshold int
	OpaqueIDCapacity     int
	OpaqueIDExpiry       time.Duration
	RequestTimeout       time.Duration
	ErrorReplyRate       float64
	ErrorReplyBurst      int
}

// ConfigFromUnified 从统一配置创建路由配置
func ConfigFromUnified(cfg *config.Config, local message.NodeID) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return Config{
		LocalID:               local,
		InitialTTL:            cfg.Overlay.InitialTTL,
		OverlayHash:           crypto.OverlayNameHash(cfg.Overlay.Name),
		Version:               cfg.Overlay.Version,
		ConfigurationSequence: cfg.Overlay.ConfigurationSequence,
		MaxMessageSize:        cfg.Overlay.MaxMessageSize,
		ViaCompressThreshold:  cfg.Routing.ViaCompressThreshold,
		OpaqueIDCapacity:      cfg.Routing.OpaqueIDCapacity,
		OpaqueIDExpiry:        cfg.Routing.OpaqueIDExpiry.Duration(),
		RequestTimeout:        cfg.Routing.RequestTimeout.Duration(),
		ErrorReplyRate:        cfg.Routing.ErrorReplyRate,
		ErrorReplyBurst:       cfg.Routing.ErrorReplyBurst,
	}
}

package behaviour

import (
	"github.com/libp2p/go-libp2p"
	relayv2 "github.com/libp2p/go-libp2p/p2p/protocol/circuitv2/relay"
	"github.com/libp2p/go-libp2p/p2p/protocol/holepunch"

	"github.com/dep2p/go-meshnode/config"
	"github.com/dep2p/go-meshnode/pkg/types"
)

// HostOptions 需要在 host 构建时注入的能力
//
//   - bootstrap: 中继服务端（带事件 tracer），强制视为公网可达
//   - peer: 中继传输与打洞（带事件 tracer）
func HostOptions(role types.Role, cfg *config.Config, emit Emitter) []libp2p.Option {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	switch role {
	case types.RoleBootstrap:
		return []libp2p.Option{
			libp2p.ForceReachabilityPublic(),
			libp2p.EnableRelayService(
				relayv2.WithResources(relayResources(cfg.Relay)),
				relayv2.WithMetricsTracer(&relayTracer{emit: emit}),
			),
		}
	default:
		return []libp2p.Option{
			libp2p.EnableRelay(),
			libp2p.EnableHolePunching(holepunch.WithTracer(&holePunchTracer{emit: emit})),
		}
	}
}

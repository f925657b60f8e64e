package swarm

import (
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/muxer/yamux"
	"github.com/libp2p/go-libp2p/p2p/net/connmgr"
	"github.com/libp2p/go-libp2p/p2p/security/noise"
	libp2ptls "github.com/libp2p/go-libp2p/p2p/security/tls"
	quic "github.com/libp2p/go-libp2p/p2p/transport/quic"
	"github.com/libp2p/go-libp2p/p2p/transport/tcp"

	"github.com/dep2p/go-meshnode/internal/core/behaviour"
	"github.com/dep2p/go-meshnode/pkg/types"
)

// hostOptions 组装 libp2p host 选项
//
// 监听器不在这里配置（NoListenAddrs），由 Build 在挂好通知后绑定。
func hostOptions(p Params, s *Swarm) ([]libp2p.Option, error) {
	cfg := p.Config

	cm, err := connmgr.NewConnManager(cfg.ConnMgr.LowWater, cfg.ConnMgr.HighWater,
		connmgr.WithGracePeriod(cfg.ConnMgr.GracePeriod.Std()))
	if err != nil {
		return nil, err
	}
	rm, err := newObservedRcmgr(func(id peer.ID) {
		s.emit(types.EvtHandshakeSent{Peer: id})
	})
	if err != nil {
		return nil, err
	}

	opts := []libp2p.Option{
		libp2p.Identity(p.Identity.PrivKey()),
		libp2p.NoListenAddrs,
		libp2p.Security(noise.ID, noise.New),
		libp2p.Security(libp2ptls.ID, libp2ptls.New),
		libp2p.Muxer(yamux.ID, muxer(p.Role, cfg.Transport.YamuxMaxWindow)),
		libp2p.ConnectionManager(cm),
		libp2p.ResourceManager(rm),
	}

	if cfg.Transport.EnableTCP {
		opts = append(opts, libp2p.Transport(tcp.NewTCPTransport))
	}
	if cfg.Transport.EnableQUIC {
		opts = append(opts, libp2p.Transport(quic.NewTransport))
	}
	if p.UserAgent != "" {
		opts = append(opts, libp2p.UserAgent(p.UserAgent))
	}
	if p.ProtocolVersion != "" {
		opts = append(opts, libp2p.ProtocolVersion(p.ProtocolVersion))
	}
	if p.Bandwidth != nil {
		opts = append(opts, libp2p.BandwidthReporter(p.Bandwidth))
	}

	opts = append(opts, behaviour.HostOptions(p.Role, cfg, s.emit)...)
	return opts, nil
}

// muxer bootstrap 使用更大的 yamux 接收窗口
func muxer(role types.Role, maxWindow uint32) *yamux.Transport {
	if role != types.RoleBootstrap || maxWindow == 0 {
		return yamux.DefaultTransport
	}
	t := *yamux.DefaultTransport
	t.MaxStreamWindowSize = maxWindow
	return &t
}

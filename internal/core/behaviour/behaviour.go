// Package behaviour 按角色组合节点能力
//
// 能力清单：
//
//	| 能力       | bootstrap | peer |
//	|------------|-----------|------|
//	| 存活探测   | ✓         | ✓    |
//	| 握手       | ✓         | ✓    |
//	| 路由表     | ✓         | ✓    |
//	| 中继服务端 | ✓         |      |
//	| 中继客户端 |           | ✓    |
//	| 打洞       |           | ✓    |
//	| 广播       | 可选      | ✓    |
//	| 局域网发现 |           | ✓    |
//
// 握手由 host 内置的 identify 提供；中继服务端与打洞需要在 host 构建前
// 通过 HostOptions 注入，其余能力在 host 构建后由 New 挂载。
// 所有能力的输出都通过同一个 Emitter 折叠成 types.Event。
package behaviour

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/dep2p/go-meshnode/config"
	"github.com/dep2p/go-meshnode/internal/util/logger"
	"github.com/dep2p/go-meshnode/pkg/interfaces"
	"github.com/dep2p/go-meshnode/pkg/types"
)

// Emitter 把能力输出投递到节点事件流
type Emitter func(types.Event)

// Options 组合参数
type Options struct {
	Role   types.Role
	Config *config.Config
	Emit   Emitter
	Clock  clock.Clock
	Logger *slog.Logger

	// DirectPeers 广播的直连对端，始终保持连接并互相转发所有消息
	DirectPeers []peer.AddrInfo
}

func (o *Options) normalize() error {
	if o.Config == nil {
		o.Config = config.NewConfig()
	}
	if o.Emit == nil {
		return fmt.Errorf("behaviour: emitter is required")
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Logger == nil {
		o.Logger = logger.Discard()
	}
	return nil
}

// Set 一个节点的能力集合
type Set struct {
	role types.Role
	h    host.Host
	log  *slog.Logger

	routing *routing
	gossip  *gossip      // 未组合时为 nil
	relay   *relayClient // 仅 peer
	live    *liveness
	mdns    mdns.Service // 仅 peer 且启用时

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

var _ interfaces.Behaviour = (*Set)(nil)

// New 在已构建的 host 上挂载角色对应的能力
//
// ctx 只约束构建过程；能力的生命周期由 Close 结束。
// 任一能力初始化失败时关闭已挂载的部分并返回错误。
func New(ctx context.Context, h host.Host, o Options) (*Set, error) {
	if err := o.normalize(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := o.Config
	runCtx, cancel := context.WithCancel(context.Background())
	s := &Set{
		role:   o.Role,
		h:      h,
		log:    logger.Named(o.Logger, "behaviour"),
		cancel: cancel,
	}

	// ═══════════════════════════════════════════════════════════════
	// 路由表
	// ═══════════════════════════════════════════════════════════════
	recordTTL := cfg.Routing.PeerRecordTTL.Std()
	if o.Role == types.RoleBootstrap {
		recordTTL = cfg.Routing.BootstrapRecordTTL.Std()
	}
	r, err := newRouting(runCtx, h, cfg.Routing, recordTTL, s.log)
	if err != nil {
		cancel()
		return nil, err
	}
	s.routing = r

	// ═══════════════════════════════════════════════════════════════
	// 广播
	// ═══════════════════════════════════════════════════════════════
	if o.Role == types.RolePeer || cfg.Bootstrap.GossipHub {
		g, err := newGossip(runCtx, h, cfg.Gossip, cfg.Peer.Topic, o.DirectPeers, o.Emit)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.gossip = g
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			g.pump(runCtx)
		}()
	}

	// ═══════════════════════════════════════════════════════════════
	// 中继客户端与局域网发现
	// ═══════════════════════════════════════════════════════════════
	if o.Role == types.RolePeer {
		s.relay = newRelayClient(runCtx, h, cfg.Relay, o.Clock, o.Emit, &s.wg)

		if cfg.Discovery.EnableMDNS {
			svc := mdns.NewMdnsService(h, cfg.Discovery.ServiceName, &mdnsNotifee{self: h.ID(), ps: h.Peerstore(), emit: o.Emit})
			if err := svc.Start(); err != nil {
				// 局域网发现不可用不影响其余能力
				s.log.Warn("mDNS 启动失败", "error", err)
			} else {
				s.mdns = svc
			}
		}
	}

	// ═══════════════════════════════════════════════════════════════
	// 存活探测
	// ═══════════════════════════════════════════════════════════════
	if iv := cfg.Liveness.Interval.Std(); iv > 0 {
		s.live = &liveness{h: h, interval: iv, timeout: cfg.Liveness.Timeout.Std(), clk: o.Clock, emit: o.Emit}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.live.run(runCtx)
		}()
	}

	s.log.Debug("能力组合完成", "role", o.Role, "capabilities", s.Capabilities())
	return s, nil
}

// Capabilities 已组合的能力名，用于日志
func (s *Set) Capabilities() []string {
	caps := []string{"identify", "routing"}
	if s.live != nil {
		caps = append(caps, "liveness")
	}
	if s.role == types.RoleBootstrap {
		caps = append(caps, "relay-server")
	} else {
		caps = append(caps, "relay-client", "hole-punch")
	}
	if s.gossip != nil {
		caps = append(caps, "gossip")
	}
	if s.mdns != nil {
		caps = append(caps, "mdns")
	}
	return caps
}

// RoutingProtocol 路由表协议 id
func (s *Set) RoutingProtocol() protocol.ID { return s.routing.proto }

// AddRoutingAddrs 见 interfaces.Behaviour
func (s *Set) AddRoutingAddrs(p peer.ID, addrs []ma.Multiaddr) bool {
	return s.routing.add(p, addrs)
}

// AddSeedPeer 见 interfaces.Behaviour
func (s *Set) AddSeedPeer(ai peer.AddrInfo) error { return s.routing.seed(ai) }

// RemoveRoutingPeer 见 interfaces.Behaviour
func (s *Set) RemoveRoutingPeer(p peer.ID) { s.routing.remove(p) }

// BootstrapRound 见 interfaces.Behaviour
func (s *Set) BootstrapRound(ctx context.Context) error { return s.routing.bootstrap(ctx) }

// HasGossip 见 interfaces.Behaviour
func (s *Set) HasGossip() bool { return s.gossip != nil }

// Publish 见 interfaces.Behaviour
func (s *Set) Publish(ctx context.Context, data []byte) error {
	if s.gossip == nil {
		return interfaces.ErrCapabilityUnavailable
	}
	return s.gossip.publish(ctx, data)
}

// AddExplicitPeer 见 interfaces.Behaviour
func (s *Set) AddExplicitPeer(p peer.ID) {
	if s.gossip == nil {
		return
	}
	s.gossip.addExplicit(p)
}

// ReserveCircuit 见 interfaces.Behaviour
func (s *Set) ReserveCircuit(ctx context.Context, relay peer.AddrInfo) {
	if s.relay == nil {
		s.log.Debug("当前角色没有中继客户端，忽略预约", "relay", relay.ID)
		return
	}
	s.relay.reserve(ctx, relay)
}

// Close 停止所有能力；可重复调用
func (s *Set) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		if s.mdns != nil {
			_ = s.mdns.Close()
		}
		if s.gossip != nil {
			s.gossip.close()
		}
		s.wg.Wait()
		if s.routing != nil {
			err = s.routing.close()
		}
	})
	return err
}

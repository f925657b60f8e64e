// Package swarm 构建节点的传输句柄
//
// Swarm 持有 libp2p host 与角色能力集合，并把所有网络活动折叠为
// 单一、有序的 types.Event 流：
//
//	ListenAddrs 更新  ─┐
//	连接建立/关闭     ─┤
//	identify 收发     ─┼──► emit ──► events (buffered) ──► 节点事件循环
//	能力输出          ─┤
//	拨号失败          ─┘
//
// 监听器在 Build 中绑定，绑定失败即构建失败。
package swarm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	lpmetrics "github.com/libp2p/go-libp2p/core/metrics"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/dep2p/go-meshnode/config"
	"github.com/dep2p/go-meshnode/internal/core/behaviour"
	"github.com/dep2p/go-meshnode/internal/core/identity"
	"github.com/dep2p/go-meshnode/internal/util/logger"
	"github.com/dep2p/go-meshnode/pkg/interfaces"
	"github.com/dep2p/go-meshnode/pkg/types"
)

// Params 构建参数
type Params struct {
	Role        types.Role
	Identity    *identity.NodeIdentity
	ListenAddrs []ma.Multiaddr
	Config      *config.Config
	Clock       clock.Clock
	Logger      *slog.Logger

	// Bandwidth 可选的带宽计数器
	Bandwidth *lpmetrics.BandwidthCounter

	// DirectPeers 广播直连对端
	DirectPeers []peer.AddrInfo

	// UserAgent / ProtocolVersion 写入 identify
	UserAgent       string
	ProtocolVersion string
}

// Swarm 基于 libp2p host 的传输句柄
type Swarm struct {
	h   host.Host
	set *behaviour.Set
	log *slog.Logger

	events chan types.Event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool

	addrMu    sync.Mutex
	knownAddr map[string]struct{}

	bg        sync.WaitGroup
	closeOnce sync.Once
}

var _ interfaces.Swarm = (*Swarm)(nil)

// Build 构建 host、挂载能力并绑定监听器
func Build(ctx context.Context, p Params) (*Swarm, error) {
	if p.Identity == nil {
		return nil, fmt.Errorf("%w: identity is required", ErrTransport)
	}
	if p.Config == nil {
		p.Config = config.NewConfig()
	}
	if p.Clock == nil {
		p.Clock = clock.New()
	}

	s := &Swarm{
		log:       logger.Named(p.Logger, "swarm").With("peer", p.Identity.ID()),
		events:    make(chan types.Event, p.Config.Transport.EventBuffer),
		done:      make(chan struct{}),
		knownAddr: make(map[string]struct{}),
	}

	opts, err := hostOptions(p, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	s.h = h

	// 先挂通知与订阅，再监听，保证不漏掉监听地址事件
	if err := s.watch(); err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	set, err := behaviour.New(ctx, h, behaviour.Options{
		Role:        p.Role,
		Config:      p.Config,
		Emit:        s.emit,
		Clock:       p.Clock,
		Logger:      p.Logger,
		DirectPeers: p.DirectPeers,
	})
	if err != nil {
		s.shutdown()
		return nil, fmt.Errorf("%w: %v", ErrBehaviour, err)
	}
	s.set = set

	if err := h.Network().Listen(p.ListenAddrs...); err != nil {
		s.shutdown()
		return nil, fmt.Errorf("%w: %v", ErrListen, err)
	}
	s.publishAddrs(h.Addrs())

	s.log.Debug("传输句柄已就绪", "role", p.Role, "listen", p.ListenAddrs)
	return s, nil
}

// emit 把事件送入队列；关闭后丢弃
func (s *Swarm) emit(e types.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.events <- e:
	case <-s.done:
	}
}

// LocalPeer 本节点 peer id
func (s *Swarm) LocalPeer() peer.ID { return s.h.ID() }

// ListenAddrs 当前监听地址（已展开到具体网卡）
func (s *Swarm) ListenAddrs() []ma.Multiaddr { return s.h.Addrs() }

// Events 事件流
func (s *Swarm) Events() <-chan types.Event { return s.events }

// Behaviour 能力集合
func (s *Swarm) Behaviour() interfaces.Behaviour { return s.set }

// Host 底层 libp2p host
func (s *Swarm) Host() host.Host { return s.h }

// Dial 异步拨号
//
// 成功以 EvtConnectionEstablished 体现，失败产生 EvtDialFailed。
func (s *Swarm) Dial(ctx context.Context, addr ma.Multiaddr) {
	info, err := peer.AddrInfoFromP2pAddr(addr)
	if err != nil {
		go s.emit(types.EvtDialFailed{Addr: addr, Err: fmt.Errorf("%w: %v", ErrNoPeerID, err)})
		return
	}

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		if err := s.h.Connect(ctx, *info); err != nil {
			s.log.Debug("拨号失败", "addr", addr, "error", err)
			s.emit(types.EvtDialFailed{Addr: addr, Peer: info.ID, Err: err})
		}
	}()
}

// Close 关闭能力与 host，随后关闭事件流
func (s *Swarm) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.shutdown()
	})
	return err
}

func (s *Swarm) shutdown() error {
	close(s.done)

	var err error
	if s.set != nil {
		err = s.set.Close()
	}
	if cerr := s.h.Close(); cerr != nil && err == nil {
		err = cerr
	}
	s.bg.Wait()

	s.mu.Lock()
	s.closed = true
	close(s.events)
	s.mu.Unlock()
	return err
}

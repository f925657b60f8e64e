// Package node 实现节点的构建与按角色的事件循环
//
// 两种角色共用一套构建流程（Builder），差异只在 RoleSpec 的运行时取值：
//
//	普通节点   Listening ──1s──► ConnectingToBootstrap ──握手双向完成──► Active
//	引导节点   Listening ──────► Seeding ──一次引导──► Steady（每 3 分钟重新引导）
//
// 每个节点一个事件循环 goroutine，严格按 Swarm 事件流的到达顺序处理事件。
// 多实例模式见 SpawnMesh。
package node

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/dep2p/go-meshnode/config"
	"github.com/dep2p/go-meshnode/internal/core/metrics"
	"github.com/dep2p/go-meshnode/pkg/interfaces"
	"github.com/dep2p/go-meshnode/pkg/types"
)

// Node 已构建的节点
type Node interface {
	// ID 本节点 peer id
	ID() peer.ID

	// Role 节点角色
	Role() types.Role

	// Name 日志与指标中使用的实例名
	Name() string

	// Phase 当前阶段
	Phase() types.Phase

	// ListenAddrs 当前监听地址
	ListenAddrs() []ma.Multiaddr

	// Run 运行事件循环直到 ctx 取消或出现致命错误
	Run(ctx context.Context) error

	// Close 关闭传输句柄
	Close() error
}

// loop 两种角色共用的事件循环状态
type loop struct {
	role    types.Role
	name    string
	session string

	sw      interfaces.Swarm
	cfg     *config.Config
	clk     clock.Clock
	log     *slog.Logger
	metrics *metrics.NodeMetrics
	tracer  Tracer

	phase   atomic.Int32
	running atomic.Bool
}

func (r *loop) ID() peer.ID                 { return r.sw.LocalPeer() }
func (r *loop) Role() types.Role            { return r.role }
func (r *loop) Name() string                { return r.name }
func (r *loop) ListenAddrs() []ma.Multiaddr { return r.sw.ListenAddrs() }
func (r *loop) Close() error                { return r.sw.Close() }

// Phase 当前阶段
func (r *loop) Phase() types.Phase { return types.Phase(r.phase.Load()) }

func (r *loop) setPhase(p types.Phase) {
	r.phase.Store(int32(p))
	r.metrics.Phase(p)
	r.log.Info("进入阶段", "phase", p)
}

// begin 标记事件循环开始，重复调用返回 ErrAlreadyRunning
func (r *loop) begin() error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	return nil
}

func (r *loop) end() {
	r.setPhase(types.PhaseStopped)
}

// observe 记录事件循环处理的每个事件
func (r *loop) observe(e types.Event) {
	r.metrics.Event(e.Kind())
	if r.tracer != nil {
		r.tracer(r.name, e)
	}
}

// next 阻塞等待下一个事件
func (r *loop) next(ctx context.Context) (types.Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case e, ok := <-r.sw.Events():
		if !ok {
			return nil, ErrEventsClosed
		}
		r.observe(e)
		return e, nil
	}
}

// bootstrapRound 触发一次路由引导；错误只记录
func (r *loop) bootstrapRound(ctx context.Context) {
	err := r.sw.Behaviour().BootstrapRound(ctx)
	r.metrics.BootstrapRound(err)
	switch {
	case err == nil:
		r.log.Debug("路由引导已触发")
	case errors.Is(err, interfaces.ErrNoKnownPeers):
		r.log.Info("尚无已知的路由节点")
	default:
		r.log.Warn("路由引导失败", "error", err)
	}
}

// updateRouting 只把声明了路由协议的对端地址写入路由表
func (r *loop) updateRouting(e types.EvtHandshakeReceived) {
	b := r.sw.Behaviour()
	if !e.SupportsProtocol(b.RoutingProtocol()) {
		return
	}
	if b.AddRoutingAddrs(e.Peer, e.ListenAddrs) {
		r.log.Debug("路由表新增对端", "peer", e.Peer, "addrs", e.ListenAddrs)
	}
}

// logEvent 两种角色共用的事件日志
func (r *loop) logEvent(e types.Event) {
	switch ev := e.(type) {
	case types.EvtNewListenAddr:
		r.log.Info("监听地址", "addr", ev.Addr)
	case types.EvtListenClosed:
		r.log.Info("监听地址已移除", "addr", ev.Addr)
	case types.EvtConnectionEstablished:
		r.log.Info("连接已建立", "peer", ev.Peer, "remote", ev.Remote, "direction", ev.Direction)
	case types.EvtConnectionClosed:
		r.log.Info("连接已关闭", "peer", ev.Peer, "remote", ev.Remote)
	case types.EvtDialFailed:
		r.log.Warn("拨号失败", "addr", ev.Addr, "peer", ev.Peer, "error", ev.Err)
	case types.EvtHandshakeSent:
		r.log.Debug("已发送身份信息", "peer", ev.Peer)
	case types.EvtHandshakeReceived:
		r.log.Debug("收到身份信息", "peer", ev.Peer, "agent", ev.AgentVersion, "observed", ev.ObservedAddr)
	case types.EvtHandshakeFailed:
		r.log.Debug("身份交换失败", "peer", ev.Peer, "error", ev.Err)
	case types.EvtPing:
		if ev.Err != nil {
			r.log.Debug("ping 失败", "peer", ev.Peer, "error", ev.Err)
		} else {
			r.log.Debug("ping", "peer", ev.Peer, "rtt", ev.RTT)
		}
	case types.EvtGossipMessage:
		r.log.Info("收到广播", "topic", ev.Topic, "from", ev.ReceivedFrom, "author", ev.Author,
			"id", ev.ID, "data", string(ev.Data))
	case types.EvtReservationAccepted:
		r.log.Info("中继预约成功", "relay", ev.Relay, "expires", ev.Expiration, "renewal", ev.Renewal)
	case types.EvtReservationFailed:
		r.log.Warn("中继预约失败", "relay", ev.Relay, "error", ev.Err)
	case types.EvtRelayServer:
		r.log.Info("中继服务", "action", ev.Action, "renewal", ev.Renewal, "count", ev.Count)
	case types.EvtHolePunch:
		r.log.Info("打洞", "remote", ev.Remote, "stage", ev.Stage, "success", ev.Success, "error", ev.Err)
	case types.EvtLocalPeerDiscovered:
		r.log.Info("发现局域网节点", "peer", ev.Peer, "addrs", ev.Addrs)
	}
}

package behaviour

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/protocol/circuitv2/client"
	pbv2 "github.com/libp2p/go-libp2p/p2p/protocol/circuitv2/pb"
	relayv2 "github.com/libp2p/go-libp2p/p2p/protocol/circuitv2/relay"

	"github.com/dep2p/go-meshnode/config"
	"github.com/dep2p/go-meshnode/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
// 中继服务端
// ════════════════════════════════════════════════════════════════════════════

// relayTracer 把中继服务端的活动转成事件
type relayTracer struct {
	emit Emitter
}

var _ relayv2.MetricsTracer = (*relayTracer)(nil)

func (t *relayTracer) RelayStatus(bool) {}

func (t *relayTracer) ConnectionOpened() {
	t.emit(types.EvtRelayServer{Action: types.RelayCircuitOpened})
}

func (t *relayTracer) ConnectionClosed(d time.Duration) {
	t.emit(types.EvtRelayServer{Action: types.RelayCircuitClosed, Duration: d})
}

func (t *relayTracer) ConnectionRequestHandled(pbv2.Status) {}

func (t *relayTracer) ReservationAllowed(isRenewal bool) {
	t.emit(types.EvtRelayServer{Action: types.RelayReservationAllowed, Renewal: isRenewal})
}

func (t *relayTracer) ReservationClosed(cnt int) {
	t.emit(types.EvtRelayServer{Action: types.RelayReservationClosed, Count: cnt})
}

func (t *relayTracer) ReservationRequestHandled(pbv2.Status) {}

func (t *relayTracer) BytesTransferred(int) {}

// relayResources 按配置调整中继服务端资源
func relayResources(cfg config.RelayConfig) relayv2.Resources {
	rc := relayv2.DefaultResources()
	rc.MaxReservations = cfg.MaxReservations
	rc.MaxCircuits = cfg.MaxCircuits
	rc.ReservationTTL = cfg.ReservationTTL.Std()
	return rc
}

// ════════════════════════════════════════════════════════════════════════════
// 中继客户端
// ════════════════════════════════════════════════════════════════════════════

// reserveFunc 预约实现，测试中替换
type reserveFunc func(ctx context.Context, h host.Host, ai peer.AddrInfo) (*client.Reservation, error)

// relayClient 通过 bootstrap 中继预约电路，并在到期前续约
//
// 预约失败只上报事件，不重试。
type relayClient struct {
	ctx       context.Context
	h         host.Host
	margin    time.Duration
	clk       clock.Clock
	emit      Emitter
	wg        *sync.WaitGroup
	doReserve reserveFunc

	mu      sync.Mutex
	running map[peer.ID]bool
}

func newRelayClient(ctx context.Context, h host.Host, cfg config.RelayConfig, clk clock.Clock, emit Emitter, wg *sync.WaitGroup) *relayClient {
	return &relayClient{
		ctx:       ctx,
		h:         h,
		margin:    cfg.RefreshMargin.Std(),
		clk:       clk,
		emit:      emit,
		wg:        wg,
		doReserve: client.Reserve,
		running:   make(map[peer.ID]bool),
	}
}

// reserve 为 relay 启动预约循环；同一中继只保留一个循环
func (c *relayClient) reserve(ctx context.Context, relay peer.AddrInfo) {
	c.mu.Lock()
	if c.running[relay.ID] {
		c.mu.Unlock()
		return
	}
	c.running[relay.ID] = true
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.running, relay.ID)
			c.mu.Unlock()
		}()
		c.loop(ctx, relay)
	}()
}

func (c *relayClient) loop(ctx context.Context, relay peer.AddrInfo) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.ctx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	renewal := false
	for {
		rsvp, err := c.doReserve(ctx, c.h, relay)
		if err != nil {
			if ctx.Err() == nil {
				c.emit(types.EvtReservationFailed{Relay: relay.ID, Err: err})
			}
			return
		}
		c.emit(types.EvtReservationAccepted{
			Relay:      relay.ID,
			Expiration: rsvp.Expiration,
			Addrs:      rsvp.Addrs,
			Renewal:    renewal,
		})
		renewal = true

		wait := rsvp.Expiration.Sub(c.clk.Now()) - c.margin
		if wait <= 0 {
			wait = time.Second
		}
		t := c.clk.Timer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

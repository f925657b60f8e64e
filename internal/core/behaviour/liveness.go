package behaviour

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/protocol/ping"

	"github.com/dep2p/go-meshnode/pkg/types"
)

// liveness 周期性 ping 所有已连接节点
type liveness struct {
	h        host.Host
	interval time.Duration
	timeout  time.Duration
	clk      clock.Clock
	emit     Emitter
}

func (l *liveness) run(ctx context.Context) {
	tick := l.clk.Ticker(l.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			for _, p := range l.h.Network().Peers() {
				go l.probe(ctx, p)
			}
		}
	}
}

func (l *liveness) probe(ctx context.Context, p peer.ID) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	select {
	case res, ok := <-ping.Ping(ctx, l.h, p):
		if !ok || ctx.Err() != nil {
			return
		}
		l.emit(types.EvtPing{Peer: p, RTT: res.RTT, Err: res.Error})
	case <-ctx.Done():
	}
}

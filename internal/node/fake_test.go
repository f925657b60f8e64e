package node

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/dep2p/go-meshnode/internal/core/swarm"
	"github.com/dep2p/go-meshnode/pkg/interfaces"
	"github.com/dep2p/go-meshnode/pkg/types"
)

const fakeRoutingProtocol = protocol.ID("/meshnode/kad/1.0.0")

// fakeSwarm 内存传输句柄，测试直接向 events 推送事件
type fakeSwarm struct {
	id     peer.ID
	events chan types.Event
	beh    *fakeBehaviour

	mu     sync.Mutex
	dials  []ma.Multiaddr
	closed bool
	params swarm.Params
}

func newFakeSwarm(p swarm.Params, clk clock.Clock) *fakeSwarm {
	return &fakeSwarm{
		id:     p.Identity.ID(),
		events: make(chan types.Event, 64),
		beh:    newFakeBehaviour(clk),
		params: p,
	}
}

func (s *fakeSwarm) LocalPeer() peer.ID              { return s.id }
func (s *fakeSwarm) ListenAddrs() []ma.Multiaddr     { return s.params.ListenAddrs }
func (s *fakeSwarm) Events() <-chan types.Event      { return s.events }
func (s *fakeSwarm) Behaviour() interfaces.Behaviour { return s.beh }
func (s *fakeSwarm) push(e types.Event)              { s.events <- e }

func (s *fakeSwarm) Dial(_ context.Context, a ma.Multiaddr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dials = append(s.dials, a)
}

func (s *fakeSwarm) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSwarm) dialed() []ma.Multiaddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ma.Multiaddr(nil), s.dials...)
}

func (s *fakeSwarm) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// calls fakeBehaviour 记录的调用
type calls struct {
	routing   map[peer.ID][]ma.Multiaddr
	seeds     []peer.AddrInfo
	removed   []peer.ID
	rounds    []time.Time
	published []string
	explicit  []peer.ID
	reserved  []peer.AddrInfo
}

// fakeBehaviour 记录所有调用
type fakeBehaviour struct {
	clk        clock.Clock
	publishErr error
	noGossip   bool

	mu sync.Mutex
	c  calls
}

func newFakeBehaviour(clk clock.Clock) *fakeBehaviour {
	return &fakeBehaviour{clk: clk, c: calls{routing: make(map[peer.ID][]ma.Multiaddr)}}
}

func (b *fakeBehaviour) RoutingProtocol() protocol.ID { return fakeRoutingProtocol }

func (b *fakeBehaviour) AddRoutingAddrs(p peer.ID, addrs []ma.Multiaddr) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.c.routing[p] = append(b.c.routing[p], addrs...)
	return true
}

func (b *fakeBehaviour) AddSeedPeer(ai peer.AddrInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.c.seeds = append(b.c.seeds, ai)
	b.c.routing[ai.ID] = append(b.c.routing[ai.ID], ai.Addrs...)
	return nil
}

func (b *fakeBehaviour) RemoveRoutingPeer(p peer.ID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.c.routing, p)
	b.c.removed = append(b.c.removed, p)
}

func (b *fakeBehaviour) BootstrapRound(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.c.rounds = append(b.c.rounds, b.clk.Now())
	if len(b.c.routing) == 0 {
		return interfaces.ErrNoKnownPeers
	}
	return nil
}

func (b *fakeBehaviour) HasGossip() bool { return !b.noGossip }

func (b *fakeBehaviour) Publish(_ context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.c.published = append(b.c.published, string(data))
	return b.publishErr
}

func (b *fakeBehaviour) AddExplicitPeer(p peer.ID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.c.explicit = append(b.c.explicit, p)
}

func (b *fakeBehaviour) ReserveCircuit(_ context.Context, relay peer.AddrInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.c.reserved = append(b.c.reserved, relay)
}

func (b *fakeBehaviour) snapshot() calls {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := calls{routing: make(map[peer.ID][]ma.Multiaddr, len(b.c.routing))}
	for k, v := range b.c.routing {
		cp.routing[k] = append([]ma.Multiaddr(nil), v...)
	}
	cp.seeds = append(cp.seeds, b.c.seeds...)
	cp.removed = append(cp.removed, b.c.removed...)
	cp.rounds = append(cp.rounds, b.c.rounds...)
	cp.published = append(cp.published, b.c.published...)
	cp.explicit = append(cp.explicit, b.c.explicit...)
	cp.reserved = append(cp.reserved, b.c.reserved...)
	return cp
}

// fakeFactory 为每次构建创建一个 fakeSwarm 并按 peer id 登记
type fakeFactory struct {
	clk clock.Clock

	mu     sync.Mutex
	swarms map[peer.ID]*fakeSwarm
	byPort map[int]*fakeSwarm
	fail   func(p swarm.Params) error
}

func newFakeFactory(clk clock.Clock) *fakeFactory {
	return &fakeFactory{clk: clk, swarms: make(map[peer.ID]*fakeSwarm), byPort: make(map[int]*fakeSwarm)}
}

func (f *fakeFactory) build(_ context.Context, p swarm.Params) (interfaces.Swarm, error) {
	if f.fail != nil {
		if err := f.fail(p); err != nil {
			return nil, err
		}
	}
	s := newFakeSwarm(p, f.clk)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.swarms[s.id] = s
	for _, a := range p.ListenAddrs {
		if port, err := a.ValueForProtocol(ma.P_TCP); err == nil {
			n, _ := strconv.Atoi(port)
			f.byPort[n] = s
		}
	}
	return s, nil
}

func (f *fakeFactory) get(id peer.ID) *fakeSwarm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.swarms[id]
}

func (f *fakeFactory) port(n int) *fakeSwarm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byPort[n]
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.swarms)
}

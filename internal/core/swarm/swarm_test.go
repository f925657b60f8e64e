package swarm

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/p2p/muxer/yamux"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-meshnode/config"
	"github.com/dep2p/go-meshnode/internal/core/behaviour"
	"github.com/dep2p/go-meshnode/internal/core/identity"
	"github.com/dep2p/go-meshnode/pkg/types"
)

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Discovery.EnableMDNS = false
	cfg.Liveness.Interval = 0
	return cfg
}

func buildSwarm(t *testing.T, role types.Role, listen string) *Swarm {
	t.Helper()
	id, err := identity.Random()
	require.NoError(t, err)

	s, err := Build(context.Background(), Params{
		Role:        role,
		Identity:    id,
		ListenAddrs: []ma.Multiaddr{ma.StringCast(listen)},
		Config:      testConfig(),
		UserAgent:   "meshnode-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// waitFor 读取事件直到 match 返回 true
func waitFor(t *testing.T, s *Swarm, timeout time.Duration, match func(types.Event) bool) types.Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case e, ok := <-s.Events():
			require.True(t, ok, "event stream closed")
			if match(e) {
				return e
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
			return nil
		}
	}
}

// TestBuild_ListenAddrEvent 构建后产生监听地址事件
func TestBuild_ListenAddrEvent(t *testing.T) {
	s := buildSwarm(t, types.RolePeer, "/ip4/127.0.0.1/tcp/0")

	e := waitFor(t, s, 5*time.Second, func(e types.Event) bool {
		return e.Kind() == types.KindNewListenAddr
	})
	addr := e.(types.EvtNewListenAddr).Addr
	assert.Contains(t, addr.String(), "/ip4/127.0.0.1/tcp/")
	assert.NotEmpty(t, s.ListenAddrs())
	assert.NotNil(t, s.Behaviour())
}

// TestBuild_BindFailure 端口被占用时构建失败
func TestBuild_BindFailure(t *testing.T) {
	// libp2p 的 TCP 监听使用 SO_REUSEPORT，用普通 socket 占住端口
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	taken := ma.StringCast(fmt.Sprintf("/ip4/127.0.0.1/tcp/%d", l.Addr().(*net.TCPAddr).Port))

	id, err := identity.Random()
	require.NoError(t, err)
	_, err = Build(context.Background(), Params{
		Role:        types.RoleBootstrap,
		Identity:    id,
		ListenAddrs: []ma.Multiaddr{taken},
		Config:      testConfig(),
	})
	assert.ErrorIs(t, err, ErrListen)
}

func TestBuild_RequiresIdentity(t *testing.T) {
	_, err := Build(context.Background(), Params{Role: types.RolePeer})
	assert.ErrorIs(t, err, ErrTransport)
}

// TestDial_Handshake 拨号后双向握手都会上报
func TestDial_Handshake(t *testing.T) {
	if testing.Short() {
		t.Skip("network test")
	}
	boot := buildSwarm(t, types.RoleBootstrap, "/ip4/127.0.0.1/tcp/0")
	p := buildSwarm(t, types.RolePeer, "/ip4/127.0.0.1/tcp/0")

	target := boot.ListenAddrs()[0].Encapsulate(ma.StringCast("/p2p/" + boot.LocalPeer().String()))
	p.Dial(context.Background(), target)

	var sent, received bool
	var recv types.EvtHandshakeReceived
	waitFor(t, p, 10*time.Second, func(e types.Event) bool {
		switch ev := e.(type) {
		case types.EvtHandshakeSent:
			sent = ev.Peer == boot.LocalPeer()
		case types.EvtHandshakeReceived:
			if ev.Peer == boot.LocalPeer() {
				received = true
				recv = ev
			}
		}
		return sent && received
	})

	assert.NotNil(t, recv.ObservedAddr)
	assert.True(t, recv.SupportsProtocol(behaviour.RoutingProtocolID("/meshnode")))
}

// TestDial_NoPeerID 缺少 /p2p/ 的地址产生拨号失败事件
func TestDial_NoPeerID(t *testing.T) {
	s := buildSwarm(t, types.RolePeer, "/ip4/127.0.0.1/tcp/0")
	s.Dial(context.Background(), ma.StringCast("/ip4/127.0.0.1/tcp/1"))

	e := waitFor(t, s, 5*time.Second, func(e types.Event) bool {
		return e.Kind() == types.KindDialFailed
	})
	assert.ErrorIs(t, e.(types.EvtDialFailed).Err, ErrNoPeerID)
}

// TestClose_ClosesEvents 关闭后事件流关闭且可重复关闭
func TestClose_ClosesEvents(t *testing.T) {
	id, err := identity.Random()
	require.NoError(t, err)
	s, err := Build(context.Background(), Params{
		Role:        types.RolePeer,
		Identity:    id,
		ListenAddrs: []ma.Multiaddr{ma.StringCast("/ip4/127.0.0.1/tcp/0")},
		Config:      testConfig(),
	})
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	for range s.Events() {
	}
	s.emit(types.EvtPing{})
}

func TestMuxer(t *testing.T) {
	assert.Equal(t, uint32(32<<20), muxer(types.RoleBootstrap, 32<<20).MaxStreamWindowSize)
	assert.Same(t, yamux.DefaultTransport, muxer(types.RolePeer, 32<<20))
	assert.Same(t, yamux.DefaultTransport, muxer(types.RoleBootstrap, 0))
}

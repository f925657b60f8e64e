package node

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-meshnode/config"
	"github.com/dep2p/go-meshnode/internal/directory"
	"github.com/dep2p/go-meshnode/internal/util/logger"
	"github.com/dep2p/go-meshnode/pkg/types"
)

// TestNetwork_PeerReachesActive 真实传输下普通节点连上本机引导节点并进入 Active
func TestNetwork_PeerReachesActive(t *testing.T) {
	if testing.Short() {
		t.Skip("network test")
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	cfg := config.NewConfig()
	cfg.Discovery.EnableMDNS = false
	cfg.Liveness.Interval = 0
	cfg.Peer.ListenAddrs = []string{"/ip4/127.0.0.1/tcp/0"}
	cfg.Peer.ConnectTimeout = config.Duration(10 * time.Second)
	cfg.Bootstrap.ListenHost = "/ip4/127.0.0.1"
	cfg.Directory.Entries = []config.DirectoryEntry{{Seed: 1, Port: port, Host: "/ip4/127.0.0.1"}}
	dir, err := directory.FromConfig(cfg.Directory)
	require.NoError(t, err)

	opts := []Option{WithConfig(cfg), WithDirectory(dir), WithLogger(logger.Discard())}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boot, err := NewBuilder(RoleSpec{Role: types.RoleBootstrap, Port: port}, opts...).
		WithSeededKey(1).
		Build(ctx)
	require.NoError(t, err)
	defer boot.Close()
	bootDone := run(ctx, boot)

	p, err := NewBuilder(RoleSpec{Role: types.RolePeer}, opts...).
		WithRandomKey().
		Build(ctx)
	require.NoError(t, err)
	defer p.Close()
	peerDone := run(ctx, p)

	deadline := time.Now().Add(15 * time.Second)
	for p.Phase() != types.PhaseActive {
		select {
		case err := <-peerDone:
			t.Fatalf("peer stopped in phase %s: %v", p.Phase(), err)
		case err := <-bootDone:
			t.Fatalf("bootstrap stopped: %v", err)
		default:
		}
		if time.Now().After(deadline) {
			t.Fatalf("peer phase %s, want %s", p.Phase(), types.PhaseActive)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	require.ErrorIs(t, waitDoneWithin(t, peerDone, 10*time.Second), context.Canceled)
	require.ErrorIs(t, waitDoneWithin(t, bootDone, 10*time.Second), context.Canceled)
}

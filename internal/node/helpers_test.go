package node

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-meshnode/config"
	"github.com/dep2p/go-meshnode/internal/directory"
	"github.com/dep2p/go-meshnode/internal/util/logger"
	"github.com/dep2p/go-meshnode/pkg/types"
)

const waitTimeout = 2 * time.Second

// harness 一次测试共用的时钟、工厂与事件观察通道
type harness struct {
	clk  *clock.Mock
	f    *fakeFactory
	dir  *directory.Directory
	cfg  *config.Config
	seen chan types.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir, err := directory.Default()
	require.NoError(t, err)
	mock := clock.NewMock()
	return &harness{
		clk:  mock,
		f:    newFakeFactory(mock),
		dir:  dir,
		cfg:  config.NewConfig(),
		seen: make(chan types.Event, 256),
	}
}

func (h *harness) options(extra ...Option) []Option {
	opts := []Option{
		WithConfig(h.cfg),
		WithDirectory(h.dir),
		WithClock(h.clk),
		WithLogger(logger.Discard()),
		WithSwarmFactory(h.f.build),
		WithTracer(func(_ string, e types.Event) { h.seen <- e }),
	}
	return append(opts, extra...)
}

// waitSeen 等待事件循环处理到 kind 类型的事件
func (h *harness) waitSeen(t *testing.T, kind types.EventKind) types.Event {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case e := <-h.seen:
			if e.Kind() == kind {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", kind)
			return nil
		}
	}
}

// run 在后台运行节点，返回 Run 的结果通道
func run(ctx context.Context, n Node) <-chan error {
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()
	return done
}

func waitPhase(t *testing.T, n Node, want types.Phase) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for {
		last := n.Phase()
		if last == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("phase %s, want %s", last, want)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	return waitDoneWithin(t, done, waitTimeout)
}

func waitDoneWithin(t *testing.T, done <-chan error, d time.Duration) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(d):
		t.Fatal("Run did not return")
		return nil
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-meshnode/config"
	"github.com/dep2p/go-meshnode/internal/core/metrics"
	"github.com/dep2p/go-meshnode/internal/directory"
	"github.com/dep2p/go-meshnode/internal/node"
	"github.com/dep2p/go-meshnode/internal/util/logger"
	"github.com/dep2p/go-meshnode/pkg/types"
)

type runnerParams struct {
	fx.In

	Config      *config.Config
	Logger      *slog.Logger
	Clock       clock.Clock
	Directory   *directory.Directory
	Metrics     *metrics.Collector
	Streams     Streams
	NodeOptions NodeOptions

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
}

// Runner 在 fx 生命周期内运行节点
//
// OnStart 启动后台循环，OnStop 取消并等待其退出。
type Runner struct {
	p   runnerParams
	log *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

func newRunner(p runnerParams) *Runner {
	r := &Runner{p: p, log: logger.Named(p.Logger, "app"), done: make(chan struct{})}
	p.Lifecycle.Append(fx.Hook{OnStart: r.start, OnStop: r.stop})
	return r
}

func (r *Runner) start(context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	go func() {
		defer close(r.done)
		err := r.run(ctx)
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			err = nil
		}

		r.mu.Lock()
		r.err = err
		r.mu.Unlock()

		code := 0
		if err != nil {
			r.log.Error("节点退出", "error", err)
			code = 1
		}
		if serr := r.p.Shutdowner.Shutdown(fx.ExitCode(code)); serr != nil {
			r.log.Debug("shutdown", "error", serr)
		}
	}()
	return nil
}

func (r *Runner) stop(ctx context.Context) error {
	r.cancel()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err 节点的运行结果；正常结束与 ctx 取消均为 nil
func (r *Runner) Err() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Runner) nodeOptions() []node.Option {
	p := r.p
	opts := []node.Option{
		node.WithConfig(p.Config),
		node.WithDirectory(p.Directory),
		node.WithLogger(p.Logger),
		node.WithClock(p.Clock),
		node.WithInput(p.Streams.Input),
	}
	if p.Metrics != nil {
		opts = append(opts, node.WithMetrics(p.Metrics))
	}
	return append(opts, p.NodeOptions...)
}

func (r *Runner) run(ctx context.Context) error {
	cfg := r.p.Config
	role, err := types.ParseRole(cfg.Role)
	if err != nil {
		return err
	}
	opts := r.nodeOptions()

	switch role {
	case types.RolePeer:
		return r.runPeer(ctx, opts)
	default:
		if cfg.Instances > 1 {
			if cfg.Seed != nil {
				r.log.Warn("多实例模式忽略 seed", "seed", *cfg.Seed)
			}
			return node.SpawnMesh(ctx, cfg.Instances, opts...)
		}
		return r.runBootstrap(ctx, opts)
	}
}

func (r *Runner) runPeer(ctx context.Context, opts []node.Option) error {
	ks := node.NewBuilder(node.RoleSpec{Role: types.RolePeer}, opts...)
	var b node.Builder
	if seed := r.p.Config.Seed; seed != nil {
		b = ks.WithSeededKey(*seed)
	} else {
		b = ks.WithRandomKey()
	}
	n, err := b.Build(ctx)
	if err != nil {
		return err
	}
	defer n.Close()
	return n.Run(ctx)
}

// runBootstrap 单实例：按 seed 选择目录项，未指定 seed 时使用第一条
func (r *Runner) runBootstrap(ctx context.Context, opts []node.Option) error {
	dir := r.p.Directory
	index := 0
	if seed := r.p.Config.Seed; seed != nil {
		i, ok := dir.IndexOf(*seed)
		if !ok {
			return fmt.Errorf("%w: seed %d is not in the bootstrap directory", config.ErrInvalidConfig, *seed)
		}
		index = i
	}
	entry, err := dir.Entry(index)
	if err != nil {
		return err
	}
	seeds, err := dir.Slice(index)
	if err != nil {
		return err
	}

	spec := node.RoleSpec{
		Role:  types.RoleBootstrap,
		Port:  entry.Port,
		Seeds: seeds,
		Name:  fmt.Sprintf("bootstrap-%d", index),
	}
	n, err := node.NewBuilder(spec, opts...).WithSeededKey(entry.Seed).Build(ctx)
	if err != nil {
		return err
	}
	defer n.Close()
	return n.Run(ctx)
}

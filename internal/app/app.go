// Package app 组装 meshnode 进程
//
// 以 fx 组织依赖：配置、日志、时钟、目录表、指标由 module 提供，
// Runner 在 fx 生命周期内按角色构建并运行节点。
// 节点退出（输入结束、致命错误）时通过 fx.Shutdowner 结束整个应用。
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dep2p/go-meshnode/config"
	"github.com/dep2p/go-meshnode/internal/node"
)

const (
	defaultStartTimeout = 30 * time.Second
	defaultStopTimeout  = 30 * time.Second
)

// Streams 进程的标准输入输出
type Streams struct {
	// Input 普通节点的广播输入，为空时不读取
	Input io.Reader
	// Output 日志输出
	Output io.Writer
}

// NodeOptions 额外的节点构建选项
type NodeOptions []node.Option

// Option App 选项
type Option func(*App)

// WithStreams 设置输入输出
func WithStreams(s Streams) Option {
	return func(a *App) { a.streams = s }
}

// WithNodeOptions 追加节点构建选项
func WithNodeOptions(opts ...node.Option) Option {
	return func(a *App) { a.nodeOpts = append(a.nodeOpts, opts...) }
}

// App meshnode 应用
type App struct {
	cfg      *config.Config
	streams  Streams
	nodeOpts NodeOptions

	startTimeout time.Duration
	stopTimeout  time.Duration
}

// New 创建应用（不启动）
func New(cfg *config.Config, opts ...Option) *App {
	a := &App{
		cfg:          cfg,
		streams:      Streams{Input: os.Stdin, Output: os.Stderr},
		startTimeout: defaultStartTimeout,
		stopTimeout:  defaultStopTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.streams.Output == nil {
		a.streams.Output = io.Discard
	}
	return a
}

// Options 返回应用的全部 fx 选项
func (a *App) Options() fx.Option {
	return fx.Options(
		fx.Supply(a.cfg, a.streams, a.nodeOpts),
		Module(),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)
}

// Run 启动应用并阻塞，直到节点退出或 ctx 取消
//
// 返回节点的运行错误与停止过程中的错误。
func (a *App) Run(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	var r *Runner
	fxApp := fx.New(a.Options(), fx.Populate(&r))
	if err := fxApp.Err(); err != nil {
		return fmt.Errorf("app: assemble: %w", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, a.startTimeout)
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		return fmt.Errorf("app: start: %w", err)
	}

	select {
	case <-ctx.Done():
	case <-fxApp.Wait():
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), a.stopTimeout)
	defer stopCancel()
	stopErr := fxApp.Stop(stopCtx)
	return multierr.Combine(r.Err(), stopErr)
}

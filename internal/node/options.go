package node

import (
	"context"
	"io"
	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-meshnode/config"
	"github.com/dep2p/go-meshnode/internal/core/metrics"
	"github.com/dep2p/go-meshnode/internal/core/swarm"
	"github.com/dep2p/go-meshnode/internal/directory"
	"github.com/dep2p/go-meshnode/pkg/interfaces"
	"github.com/dep2p/go-meshnode/pkg/types"
)

// SwarmFactory 创建传输句柄
type SwarmFactory func(ctx context.Context, p swarm.Params) (interfaces.Swarm, error)

// Tracer 按到达顺序观察事件循环处理的每个事件
type Tracer func(node string, e types.Event)

// Option 构建选项
type Option func(*options)

type options struct {
	cfg     *config.Config
	dir     *directory.Directory
	log     *slog.Logger
	clk     clock.Clock
	input   io.Reader
	metrics *metrics.Collector
	factory SwarmFactory
	tracer  Tracer
	onBuilt func(index int, n Node)
}

func defaultSwarmFactory(ctx context.Context, p swarm.Params) (interfaces.Swarm, error) {
	return swarm.Build(ctx, p)
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.cfg == nil {
		o.cfg = config.NewConfig()
	}
	if o.clk == nil {
		o.clk = clock.New()
	}
	if o.factory == nil {
		o.factory = defaultSwarmFactory
	}
	return o
}

// directory 返回配置的目录表，未设置时按配置构建
func (o *options) directory() (*directory.Directory, error) {
	if o.dir != nil {
		return o.dir, nil
	}
	d, err := directory.FromConfig(o.cfg.Directory)
	if err != nil {
		return nil, err
	}
	o.dir = d
	return d, nil
}

// WithConfig 设置配置
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithDirectory 设置 bootstrap 目录表
func WithDirectory(d *directory.Directory) Option {
	return func(o *options) { o.dir = d }
}

// WithLogger 设置根日志句柄
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithClock 设置时钟，测试中传入 clock.NewMock()
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clk = c }
}

// WithInput 设置普通节点的输入源，每行发布一条广播
func WithInput(r io.Reader) Option {
	return func(o *options) { o.input = r }
}

// WithMetrics 启用指标
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

// WithSwarmFactory 替换传输句柄的构建方式
func WithSwarmFactory(f SwarmFactory) Option {
	return func(o *options) { o.factory = f }
}

// WithTracer 设置事件观察者
func WithTracer(t Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithOnBuilt 多实例模式下每个实例构建成功后回调
func WithOnBuilt(fn func(index int, n Node)) Option {
	return func(o *options) { o.onBuilt = fn }
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-meshnode/config"
	"github.com/dep2p/go-meshnode/internal/core/metrics"
	"github.com/dep2p/go-meshnode/internal/directory"
	"github.com/dep2p/go-meshnode/internal/util/logger"
)

// Module 进程级依赖
func Module() fx.Option {
	return fx.Module("meshnode",
		fx.Provide(
			provideLogger,
			provideClock,
			provideDirectory,
			provideMetrics,
			newMetricsServer,
			newRunner,
		),
		fx.Invoke(func(*MetricsServer) {}),
		fx.Invoke(func(*Runner) {}),
	)
}

// provideLogger 创建根日志句柄；配置了日志文件时同时写入文件
func provideLogger(cfg *config.Config, s Streams, lc fx.Lifecycle) (*slog.Logger, error) {
	lcfg := logger.WithEnv(logger.ParseConfig(cfg.Log.Level, cfg.Log.Format))

	w := s.Output
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("打开日志文件失败: %w", err)
		}
		lc.Append(fx.StopHook(f.Close))
		w = io.MultiWriter(s.Output, f)
	}

	log := logger.New(lcfg, w)
	if cfg.Log.File != "" {
		logger.Named(log, "app").Info("日志文件已打开", "path", cfg.Log.File)
	}
	return log, nil
}

func provideClock() clock.Clock { return clock.New() }

func provideDirectory(cfg *config.Config) (*directory.Directory, error) {
	return directory.FromConfig(cfg.Directory)
}

// provideMetrics 未启用指标时返回 nil
func provideMetrics(cfg *config.Config) *metrics.Collector {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.New()
}

// MetricsServer 在 /metrics 暴露指标
type MetricsServer struct {
	srv *http.Server
	log *slog.Logger

	mu   sync.Mutex
	addr net.Addr
}

func newMetricsServer(cfg *config.Config, c *metrics.Collector, log *slog.Logger, lc fx.Lifecycle) *MetricsServer {
	if c == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	s := &MetricsServer{
		srv: &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux},
		log: logger.Named(log, "metrics"),
	}
	lc.Append(fx.Hook{OnStart: s.start, OnStop: s.stop})
	return s
}

func (s *MetricsServer) start(context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("metrics listen %s: %w", s.srv.Addr, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.log.Info("指标服务已启动", "addr", ln.Addr().String())
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("指标服务退出", "error", err)
		}
	}()
	return nil
}

func (s *MetricsServer) stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Addr 实际监听地址，未启动时为空
func (s *MetricsServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

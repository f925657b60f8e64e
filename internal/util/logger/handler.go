package logger

import (
	"context"
	"log/slog"
)

// SubsystemKey 子系统属性名
const SubsystemKey = "subsystem"

// subsystemHandler 按 subsystem 属性决定级别的 Handler
//
// 通过 WithAttrs 设置 subsystem 属性时重新计算级别，
// 所以 logger.With("subsystem", "swarm") 会自动套用 swarm 的级别。
type subsystemHandler struct {
	cfg   *Config
	level slog.Level
	inner slog.Handler
}

func newHandler(cfg *Config, inner slog.Handler) *subsystemHandler {
	return &subsystemHandler{cfg: cfg, level: cfg.DefaultLevel, inner: inner}
}

// Enabled 检查是否启用指定级别
func (h *subsystemHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle 处理日志记录
func (h *subsystemHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

// WithAttrs 添加属性
func (h *subsystemHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	level := h.level
	for _, a := range attrs {
		if a.Key == SubsystemKey {
			level = h.cfg.LevelForSubsystem(a.Value.String())
		}
	}
	return &subsystemHandler{cfg: h.cfg, level: level, inner: h.inner.WithAttrs(attrs)}
}

// WithGroup 添加组
func (h *subsystemHandler) WithGroup(name string) slog.Handler {
	return &subsystemHandler{cfg: h.cfg, level: h.level, inner: h.inner.WithGroup(name)}
}

// replaceAttr 简化时间键与级别名
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "ts"
	case slog.LevelKey:
		if lvl, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(levelToString(lvl))
		}
	}
	return a
}

func levelToString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Package logger 构造 meshnode 使用的 slog 日志句柄
//
// 不使用全局 logger：由进程入口创建一个根句柄，逐层显式传入，
// 各组件通过 Named 派生带 subsystem 属性的子句柄。
//
// 使用示例:
//
//	cfg := logger.WithEnv(logger.ParseConfig("node=debug,info", "text"))
//	root := logger.New(cfg, os.Stderr)
//	log := logger.Named(root, "swarm")
//	log.Info("监听地址", "addr", addr)
//
// 环境变量:
//
//	MESHNODE_LOG_LEVEL=node=debug,info
//	MESHNODE_LOG_FORMAT=json
package logger

import (
	"io"
	"log/slog"
)

// New 创建根日志句柄
func New(cfg Config, w io.Writer) *slog.Logger {
	c := cfg
	opts := &slog.HandlerOptions{
		// 级别由 subsystemHandler 判定
		Level:       slog.LevelDebug,
		AddSource:   c.AddSource,
		ReplaceAttr: replaceAttr,
	}

	var inner slog.Handler
	if c.Format == FormatJSON {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(newHandler(&c, inner))
}

// Named 派生子系统句柄；l 为 nil 时返回丢弃句柄
func Named(l *slog.Logger, subsystem string) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l.With(SubsystemKey, subsystem)
}

// Discard 返回丢弃所有输出的句柄，主要用于测试
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

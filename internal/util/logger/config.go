package logger

import (
	"log/slog"
	"os"
	"strings"
)

// 环境变量
const (
	EnvLevel     = "MESHNODE_LOG_LEVEL"
	EnvFormat    = "MESHNODE_LOG_FORMAT"
	EnvAddSource = "MESHNODE_LOG_ADD_SOURCE"
)

// LogFormat 日志输出格式
type LogFormat int

const (
	// FormatText 文本格式（默认）
	FormatText LogFormat = iota
	// FormatJSON JSON 格式
	FormatJSON
)

// Config 日志配置
type Config struct {
	// DefaultLevel 没有单独配置的子系统使用的级别
	DefaultLevel slog.Level

	// SubsystemLevels 子系统级别覆盖
	SubsystemLevels map[string]slog.Level

	Format    LogFormat
	AddSource bool
}

// LevelForSubsystem 返回子系统的生效级别
func (c *Config) LevelForSubsystem(subsystem string) slog.Level {
	if level, ok := c.SubsystemLevels[subsystem]; ok {
		return level
	}
	return c.DefaultLevel
}

// ParseConfig 由级别串和格式名构造配置
//
// 级别串格式：子系统=级别,子系统=级别,默认级别
// 例如 node=debug,swarm=warn,info
func ParseConfig(levels, format string) Config {
	cfg := Config{
		DefaultLevel:    slog.LevelInfo,
		SubsystemLevels: make(map[string]slog.Level),
		Format:          parseFormat(format),
	}
	applyLevels(&cfg, levels)
	return cfg
}

// WithEnv 用 MESHNODE_LOG_* 环境变量覆盖配置
func WithEnv(cfg Config) Config {
	if v := os.Getenv(EnvLevel); v != "" {
		applyLevels(&cfg, v)
	}
	if v := os.Getenv(EnvFormat); v != "" {
		cfg.Format = parseFormat(v)
	}
	if v := os.Getenv(EnvAddSource); v != "" {
		cfg.AddSource = v != "false" && v != "0"
	}
	return cfg
}

func applyLevels(cfg *Config, levels string) {
	if cfg.SubsystemLevels == nil {
		cfg.SubsystemLevels = make(map[string]slog.Level)
	}
	for _, part := range strings.Split(levels, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, lvl, scoped := strings.Cut(part, "=")
		if !scoped {
			if level, ok := ParseLevel(part); ok {
				cfg.DefaultLevel = level
			}
			continue
		}
		if level, ok := ParseLevel(strings.TrimSpace(lvl)); ok {
			cfg.SubsystemLevels[strings.TrimSpace(name)] = level
		}
	}
}

func parseFormat(name string) LogFormat {
	if strings.EqualFold(strings.TrimSpace(name), "json") {
		return FormatJSON
	}
	return FormatText
}

// ParseLevel 解析级别名（大小写不敏感）
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "trace", "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/dep2p/go-meshnode/config"
)

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
//   命令行参数：这次运行怎么跑（角色、种子、实例数、日志）
//   JSON 配置文件：节点的固定配置（目录表、路由、中继、传输参数）
//
// ═══════════════════════════════════════════════════════════════════════════

// 环境变量（MESHNODE_ 前缀）
const (
	envMode      = "MESHNODE_MODE"
	envSeed      = "MESHNODE_SEED"
	envInstances = "MESHNODE_INSTANCES"
	envLogFile   = "MESHNODE_LOG_FILE"
	envMetrics   = "MESHNODE_METRICS"
	envConfig    = "MESHNODE_CONFIG"
)

type cliFlags struct {
	fs *flag.FlagSet

	mode       string
	seed       int
	instances  int
	logLevel   string
	logFormat  string
	logFile    string
	configFile string
	metrics    string
	version    bool
}

func parseFlags(args []string) (*cliFlags, error) {
	f := &cliFlags{fs: flag.NewFlagSet("meshnode", flag.ContinueOnError)}
	fs := f.fs
	fs.StringVar(&f.mode, "mode", config.RolePeer, "运行角色 (peer/bootstrap)")
	fs.IntVar(&f.seed, "seed", -1, "密钥种子 0-255（-1 = 随机身份）")
	fs.IntVar(&f.instances, "instances", 1, "bootstrap 模式下启动的实例数")
	fs.StringVar(&f.logLevel, "log-level", "info", "日志级别，如 node=debug,info")
	fs.StringVar(&f.logFormat, "log-format", "text", "日志格式 (text/json)")
	fs.StringVar(&f.logFile, "log-file", "", "同时写入的日志文件")
	fs.StringVar(&f.configFile, "config", "", "JSON 配置文件路径")
	fs.StringVar(&f.metrics, "metrics", "", "指标监听地址（为空不启用），如 127.0.0.1:9464")
	fs.BoolVar(&f.version, "version", false, "显示版本信息")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// isSet 检查命令行参数是否被显式设置
func (f *cliFlags) isSet(name string) bool {
	found := false
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

// buildConfig 组装配置
//
// 优先级（从高到低）：命令行参数 > 环境变量 > 配置文件 > 默认值。
func buildConfig(f *cliFlags, getenv func(string) string) (*config.Config, error) {
	path := f.configFile
	if path == "" {
		path = getenv(envConfig)
	}

	cfg := config.NewConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg, getenv); err != nil {
		return nil, err
	}
	if err := applyFlags(cfg, f); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides 应用环境变量覆盖
//
// MESHNODE_LOG_LEVEL / MESHNODE_LOG_FORMAT 由日志包在创建根句柄时读取。
func applyEnvOverrides(cfg *config.Config, getenv func(string) string) error {
	if v := getenv(envMode); v != "" {
		cfg.Role = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv(envSeed); v != "" {
		seed, err := parseSeed(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envSeed, err)
		}
		cfg.Seed = seed
	}
	if v := getenv(envInstances); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envInstances, err)
		}
		cfg.Instances = n
	}
	if v := getenv(envLogFile); v != "" {
		cfg.Log.File = v
	}
	if v := getenv(envMetrics); v != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddr = v
	}
	return nil
}

func applyFlags(cfg *config.Config, f *cliFlags) error {
	if f.isSet("mode") {
		cfg.Role = strings.ToLower(f.mode)
	}
	if f.isSet("seed") {
		if f.seed < 0 {
			cfg.Seed = nil
		} else {
			seed, err := parseSeed(strconv.Itoa(f.seed))
			if err != nil {
				return fmt.Errorf("-seed: %w", err)
			}
			cfg.Seed = seed
		}
	}
	if f.isSet("instances") {
		cfg.Instances = f.instances
	}
	if f.isSet("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if f.isSet("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if f.isSet("log-file") {
		cfg.Log.File = f.logFile
	}
	if f.isSet("metrics") && f.metrics != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddr = f.metrics
	}
	return nil
}

func parseSeed(s string) (*uint8, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	if err != nil {
		return nil, fmt.Errorf("seed must be 0-255: %w", err)
	}
	seed := uint8(n)
	return &seed, nil
}

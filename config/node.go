package config

import (
	"errors"
	"strings"
	"time"
)

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别，支持子系统写法：node=debug,swarm=warn,info
	Level string `json:"level"`

	// Format 输出格式：text 或 json
	Format string `json:"format"`

	// File 可选的日志文件路径；为空时只写 stderr
	File string `json:"file,omitempty"`
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate 验证日志配置
func (c LogConfig) Validate() error {
	switch strings.ToLower(c.Format) {
	case "", "text", "json":
		return nil
	default:
		return errors.New("log format must be text or json")
	}
}

// PeerConfig 普通节点配置
type PeerConfig struct {
	// ListenAddrs 监听地址；默认任意地址 + 系统分配端口
	ListenAddrs []string `json:"listen_addrs"`

	// ListenWindow 进入连接阶段前收集监听地址的固定时长
	ListenWindow Duration `json:"listen_window"`

	// ConnectTimeout 等待与 bootstrap 握手完成的超时，0 表示无限等待
	ConnectTimeout Duration `json:"connect_timeout"`

	// Topic 广播主题
	Topic string `json:"topic"`
}

// DefaultPeerConfig 返回默认普通节点配置
func DefaultPeerConfig() PeerConfig {
	return PeerConfig{
		ListenAddrs:    []string{"/ip4/0.0.0.0/tcp/0"},
		ListenWindow:   Duration(1 * time.Second),
		ConnectTimeout: 0,
		Topic:          "chat",
	}
}

// Validate 验证普通节点配置
func (c PeerConfig) Validate() error {
	if len(c.ListenAddrs) == 0 {
		return errors.New("peer: at least one listen address required")
	}
	if c.ListenWindow < 0 || c.ConnectTimeout < 0 {
		return errors.New("peer: durations must not be negative")
	}
	if c.Topic == "" {
		return errors.New("peer: topic must not be empty")
	}
	return nil
}

// BootstrapConfig bootstrap/relay 节点配置
type BootstrapConfig struct {
	// ListenHost 监听主机部分，端口来自目录表
	ListenHost string `json:"listen_host"`

	// Interval 周期性路由引导间隔
	Interval Duration `json:"interval"`

	// Stagger 多实例启动间隔
	Stagger Duration `json:"stagger"`

	// PruneOnDisconnect 断开连接时从路由表移除对端，默认关闭
	PruneOnDisconnect bool `json:"prune_on_disconnect"`

	// GossipHub bootstrap 也加入广播网格
	GossipHub bool `json:"gossip_hub"`
}

// DefaultBootstrapConfig 返回默认 bootstrap 配置
func DefaultBootstrapConfig() BootstrapConfig {
	return BootstrapConfig{
		ListenHost: "/ip4/0.0.0.0",
		Interval:   Duration(3 * time.Minute),
		Stagger:    Duration(1 * time.Second),
	}
}

// Validate 验证 bootstrap 配置
func (c BootstrapConfig) Validate() error {
	if c.ListenHost == "" {
		return errors.New("bootstrap: listen host must not be empty")
	}
	if c.Interval <= 0 {
		return errors.New("bootstrap: interval must be positive")
	}
	if c.Stagger < 0 {
		return errors.New("bootstrap: stagger must not be negative")
	}
	return nil
}

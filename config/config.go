// Package config 定义 meshnode 的全部运行配置
//
// 每个关注点一个子结构，各自有 DefaultXxxConfig() 与 Validate()。
// 加载顺序（由 cmd 层负责）：默认值 → JSON 文件 → MESHNODE_* 环境变量 → 命令行参数。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Role = config.RoleBootstrap
//	cfg.Instances = 4
//	if err := cfg.Validate(); err != nil { ... }
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// 角色名称
const (
	RolePeer      = "peer"
	RoleBootstrap = "bootstrap"
)

// ErrInvalidConfig 配置校验失败的根错误
var ErrInvalidConfig = errors.New("config: invalid")

// Config meshnode 完整配置
type Config struct {
	// Role 节点角色：peer 或 bootstrap
	Role string `json:"role"`

	// Seed 可选的密钥种子；为空时使用随机身份
	// 多实例 bootstrap 模式下忽略此项（种子来自目录表）
	Seed *uint8 `json:"seed,omitempty"`

	// Instances bootstrap 模式下同时启动的实例数
	Instances int `json:"instances"`

	Log       LogConfig       `json:"log"`
	Peer      PeerConfig      `json:"peer"`
	Bootstrap BootstrapConfig `json:"bootstrap"`
	Routing   RoutingConfig   `json:"routing"`
	Gossip    GossipConfig    `json:"gossip"`
	Liveness  LivenessConfig  `json:"liveness"`
	Relay     RelayConfig     `json:"relay"`
	Transport TransportConfig `json:"transport"`
	ConnMgr   ConnMgrConfig   `json:"conn_mgr"`
	Discovery DiscoveryConfig `json:"discovery"`
	Directory DirectoryConfig `json:"directory"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// NewConfig 返回全部字段为默认值的配置
func NewConfig() *Config {
	return &Config{
		Role:      RolePeer,
		Instances: 1,
		Log:       DefaultLogConfig(),
		Peer:      DefaultPeerConfig(),
		Bootstrap: DefaultBootstrapConfig(),
		Routing:   DefaultRoutingConfig(),
		Gossip:    DefaultGossipConfig(),
		Liveness:  DefaultLivenessConfig(),
		Relay:     DefaultRelayConfig(),
		Transport: DefaultTransportConfig(),
		ConnMgr:   DefaultConnMgrConfig(),
		Discovery: DefaultDiscoveryConfig(),
		Directory: DefaultDirectoryConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// Validate 逐个校验子配置，返回第一个错误
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	switch c.Role {
	case RolePeer, RoleBootstrap:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidConfig, c.Role)
	}
	if c.Instances < 1 {
		return fmt.Errorf("%w: instances must be >= 1", ErrInvalidConfig)
	}
	if c.Role == RolePeer && c.Instances != 1 {
		return fmt.Errorf("%w: peer role runs a single instance", ErrInvalidConfig)
	}

	validators := []interface{ Validate() error }{
		c.Log, c.Peer, c.Bootstrap, c.Routing, c.Gossip, c.Liveness,
		c.Relay, c.Transport, c.ConnMgr, c.Discovery, c.Directory, c.Metrics,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// FromJSON 在默认配置之上解析 JSON
//
// JSON 中未出现的字段保留默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse json: %w", err)
	}
	return cfg, nil
}

// LoadFile 读取 JSON 配置文件
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return FromJSON(data)
}

// ToJSON 以缩进格式输出配置
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

package config

import (
	"errors"
	"fmt"
)

// DiscoveryConfig 局域网发现配置（仅普通节点）
type DiscoveryConfig struct {
	EnableMDNS  bool   `json:"enable_mdns"`
	ServiceName string `json:"service_name"`
}

// DefaultDiscoveryConfig 返回默认发现配置
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		EnableMDNS:  true,
		ServiceName: "meshnode",
	}
}

// Validate 验证发现配置
func (c DiscoveryConfig) Validate() error {
	if c.EnableMDNS && c.ServiceName == "" {
		return errors.New("discovery: mdns service name must not be empty")
	}
	return nil
}

// DirectoryEntry 目录表条目的配置形式
type DirectoryEntry struct {
	Seed uint8 `json:"seed"`
	Port int   `json:"port"`

	// PeerID 为空时由种子推导
	PeerID string `json:"peer_id,omitempty"`

	// Host 地址的主机部分，如 /ip4/10.0.0.5
	Host string `json:"host"`
}

// DirectoryConfig bootstrap 目录表配置
//
// Entries 为空时使用内置目录表。
type DirectoryConfig struct {
	Entries []DirectoryEntry `json:"entries,omitempty"`

	// WellKnown 普通节点拨号的 bootstrap 完整地址（含 /p2p/），为空时取第一条目录项
	WellKnown string `json:"well_known,omitempty"`
}

// DefaultDirectoryConfig 返回默认目录配置（使用内置表）
func DefaultDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{}
}

// Validate 验证目录配置
func (c DirectoryConfig) Validate() error {
	for i, e := range c.Entries {
		if e.Port <= 0 || e.Port > 65535 {
			return fmt.Errorf("directory: entry %d has invalid port %d", i, e.Port)
		}
		if e.Host == "" {
			return fmt.Errorf("directory: entry %d has empty host", i)
		}
	}
	return nil
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled    bool   `json:"enabled"`
	ListenAddr string `json:"listen_addr"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:    false,
		ListenAddr: "127.0.0.1:9464",
	}
}

// Validate 验证指标配置
func (c MetricsConfig) Validate() error {
	if c.Enabled && c.ListenAddr == "" {
		return errors.New("metrics: listen addr must not be empty")
	}
	return nil
}

package config

import (
	"errors"
	"strings"
	"time"
)

// RoutingConfig 路由表（Kademlia）配置
type RoutingConfig struct {
	// ProtocolPrefix 协议前缀，最终协议为 <prefix>/kad/1.0.0
	ProtocolPrefix string `json:"protocol_prefix"`

	// QueryTimeout 单次查询超时
	QueryTimeout Duration `json:"query_timeout"`

	// PeerRecordTTL 普通节点的记录存活时间
	PeerRecordTTL Duration `json:"peer_record_ttl"`

	// BootstrapRecordTTL bootstrap 节点的记录存活时间
	BootstrapRecordTTL Duration `json:"bootstrap_record_ttl"`

	// AddrTTL 握手得到的地址在 peerstore 中的存活时间
	AddrTTL Duration `json:"addr_ttl"`
}

// DefaultRoutingConfig 返回默认路由配置
func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		ProtocolPrefix:     "/meshnode",
		QueryTimeout:       Duration(10 * time.Second),
		PeerRecordTTL:      Duration(120 * time.Second),
		BootstrapRecordTTL: Duration(60 * time.Second),
		AddrTTL:            Duration(time.Hour),
	}
}

// Validate 验证路由配置
func (c RoutingConfig) Validate() error {
	if !strings.HasPrefix(c.ProtocolPrefix, "/") {
		return errors.New("routing: protocol prefix must start with /")
	}
	if c.QueryTimeout <= 0 || c.PeerRecordTTL <= 0 || c.BootstrapRecordTTL <= 0 || c.AddrTTL <= 0 {
		return errors.New("routing: durations must be positive")
	}
	return nil
}

// GossipConfig 发布订阅配置
type GossipConfig struct {
	// HeartbeatInterval 网格心跳间隔
	HeartbeatInterval Duration `json:"heartbeat_interval"`

	// FloodPublish 自己发布的消息发给所有主题对端
	FloodPublish bool `json:"flood_publish"`

	// SubscriptionBuffer 订阅输出缓冲
	SubscriptionBuffer int `json:"subscription_buffer"`
}

// DefaultGossipConfig 返回默认发布订阅配置
func DefaultGossipConfig() GossipConfig {
	return GossipConfig{
		HeartbeatInterval:  Duration(10 * time.Second),
		FloodPublish:       true,
		SubscriptionBuffer: 64,
	}
}

// Validate 验证发布订阅配置
func (c GossipConfig) Validate() error {
	if c.HeartbeatInterval <= 0 {
		return errors.New("gossip: heartbeat interval must be positive")
	}
	if c.SubscriptionBuffer < 0 {
		return errors.New("gossip: subscription buffer must not be negative")
	}
	return nil
}

// LivenessConfig 存活探测配置
type LivenessConfig struct {
	// Interval 对已连接节点发送 ping 的间隔，0 表示关闭
	Interval Duration `json:"interval"`

	// Timeout 单次 ping 超时
	Timeout Duration `json:"timeout"`
}

// DefaultLivenessConfig 返回默认存活探测配置
func DefaultLivenessConfig() LivenessConfig {
	return LivenessConfig{
		Interval: Duration(15 * time.Second),
		Timeout:  Duration(10 * time.Second),
	}
}

// Validate 验证存活探测配置
func (c LivenessConfig) Validate() error {
	if c.Interval < 0 {
		return errors.New("liveness: interval must not be negative")
	}
	if c.Interval > 0 && c.Timeout <= 0 {
		return errors.New("liveness: timeout must be positive")
	}
	return nil
}

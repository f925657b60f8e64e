package config

import (
	"errors"
	"time"
)

// TransportConfig 传输层配置
type TransportConfig struct {
	EnableTCP  bool `json:"enable_tcp"`
	EnableQUIC bool `json:"enable_quic"`

	// YamuxMaxWindow bootstrap 节点的 yamux 单流最大接收窗口（字节）
	YamuxMaxWindow uint32 `json:"yamux_max_window"`

	// EventBuffer 节点事件通道容量
	EventBuffer int `json:"event_buffer"`
}

// DefaultTransportConfig 返回默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		EnableTCP:      true,
		EnableQUIC:     false,
		YamuxMaxWindow: 16 * 1024 * 1024,
		EventBuffer:    1024,
	}
}

// Validate 验证传输配置
func (c TransportConfig) Validate() error {
	if !c.EnableTCP && !c.EnableQUIC {
		return errors.New("transport: at least one of tcp/quic must be enabled")
	}
	if c.EventBuffer <= 0 {
		return errors.New("transport: event buffer must be positive")
	}
	return nil
}

// ConnMgrConfig 连接管理配置
type ConnMgrConfig struct {
	LowWater    int      `json:"low_water"`
	HighWater   int      `json:"high_water"`
	GracePeriod Duration `json:"grace_period"`
}

// DefaultConnMgrConfig 返回默认连接管理配置
func DefaultConnMgrConfig() ConnMgrConfig {
	return ConnMgrConfig{
		LowWater:    64,
		HighWater:   256,
		GracePeriod: Duration(time.Minute),
	}
}

// Validate 验证连接管理配置
func (c ConnMgrConfig) Validate() error {
	if c.LowWater <= 0 || c.HighWater <= c.LowWater {
		return errors.New("conn_mgr: need 0 < low_water < high_water")
	}
	return nil
}

// RelayConfig 中继配置
//
// 服务端字段作用于 bootstrap，客户端字段作用于普通节点。
type RelayConfig struct {
	// ═══════════════════════════════════════════════════════════════
	// 中继服务端
	// ═══════════════════════════════════════════════════════════════
	MaxReservations int      `json:"max_reservations"`
	MaxCircuits     int      `json:"max_circuits"`
	ReservationTTL  Duration `json:"reservation_ttl"`

	// ═══════════════════════════════════════════════════════════════
	// 中继客户端
	// ═══════════════════════════════════════════════════════════════

	// RefreshMargin 预约到期前多久续约
	RefreshMargin Duration `json:"refresh_margin"`
}

// DefaultRelayConfig 返回默认中继配置
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		MaxReservations: 128,
		MaxCircuits:     16,
		ReservationTTL:  Duration(time.Hour),
		RefreshMargin:   Duration(2 * time.Minute),
	}
}

// Validate 验证中继配置
func (c RelayConfig) Validate() error {
	if c.MaxReservations <= 0 || c.MaxCircuits <= 0 {
		return errors.New("relay: limits must be positive")
	}
	if c.ReservationTTL <= 0 || c.RefreshMargin < 0 || c.RefreshMargin >= c.ReservationTTL {
		return errors.New("relay: need 0 <= refresh_margin < reservation_ttl")
	}
	return nil
}

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRole 无法识别的角色名
var ErrUnknownRole = errors.New("types: unknown role")

// ============================================================================
//                              Role - 节点角色
// ============================================================================

// Role 节点角色
type Role int

const (
	// RolePeer 普通节点
	RolePeer Role = iota
	// RoleBootstrap 引导/中继节点
	RoleBootstrap
)

// String 返回角色名
func (r Role) String() string {
	switch r {
	case RolePeer:
		return "peer"
	case RoleBootstrap:
		return "bootstrap"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// ParseRole 解析角色名（大小写不敏感）
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "peer":
		return RolePeer, nil
	case "bootstrap":
		return RoleBootstrap, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// ============================================================================
//                              Phase - 运行阶段
// ============================================================================

// Phase 节点事件循环所处阶段
//
// 普通节点：Listening → ConnectingToBootstrap → Active
// 引导节点：Listening → Seeding → Steady
type Phase int32

const (
	// PhaseIdle 已构建，尚未运行
	PhaseIdle Phase = iota
	// PhaseListening 已绑定监听器，正在收集监听地址
	PhaseListening
	// PhaseConnectingToBootstrap 正在拨号 bootstrap 并等待握手完成
	PhaseConnectingToBootstrap
	// PhaseActive 普通节点稳定运行
	PhaseActive
	// PhaseSeeding 引导节点正在写入目录种子
	PhaseSeeding
	// PhaseSteady 引导节点稳定运行
	PhaseSteady
	// PhaseStopped 事件循环已退出
	PhaseStopped
)

// String 返回阶段名
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseListening:
		return "listening"
	case PhaseConnectingToBootstrap:
		return "connecting-to-bootstrap"
	case PhaseActive:
		return "active"
	case PhaseSeeding:
		return "seeding"
	case PhaseSteady:
		return "steady"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              Direction - 连接方向
// ============================================================================

// Direction 连接方向
type Direction int

const (
	// DirUnknown 未知方向
	DirUnknown Direction = iota
	// DirInbound 入站连接
	DirInbound
	// DirOutbound 出站连接
	DirOutbound
)

// String 返回方向的字符串表示
func (d Direction) String() string {
	switch d {
	case DirInbound:
		return "inbound"
	case DirOutbound:
		return "outbound"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              RelayAction - 中继服务端动作
// ============================================================================

// RelayAction 中继服务端上报的动作
type RelayAction int

const (
	// RelayReservationAllowed 接受了一个预约（含续约）
	RelayReservationAllowed RelayAction = iota
	// RelayReservationClosed 预约被关闭
	RelayReservationClosed
	// RelayCircuitOpened 打开了一条中继电路
	RelayCircuitOpened
	// RelayCircuitClosed 中继电路关闭
	RelayCircuitClosed
)

// String 返回动作名
func (a RelayAction) String() string {
	switch a {
	case RelayReservationAllowed:
		return "reservation-allowed"
	case RelayReservationClosed:
		return "reservation-closed"
	case RelayCircuitOpened:
		return "circuit-opened"
	case RelayCircuitClosed:
		return "circuit-closed"
	default:
		return "unknown"
	}
}

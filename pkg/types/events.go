package types

import (
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	ma "github.com/multiformats/go-multiaddr"
)

// ============================================================================
//                              Event - 复合事件
// ============================================================================

// EventKind 事件种类标签
type EventKind int

const (
	KindNewListenAddr EventKind = iota
	KindListenClosed
	KindConnectionEstablished
	KindConnectionClosed
	KindDialFailed
	KindHandshakeSent
	KindHandshakeReceived
	KindHandshakeFailed
	KindPing
	KindGossipMessage
	KindReservationAccepted
	KindReservationFailed
	KindRelayServer
	KindHolePunch
	KindLocalPeerDiscovered
)

var kindNames = [...]string{
	KindNewListenAddr:         "new-listen-addr",
	KindListenClosed:          "listen-closed",
	KindConnectionEstablished: "connection-established",
	KindConnectionClosed:      "connection-closed",
	KindDialFailed:            "dial-failed",
	KindHandshakeSent:         "handshake-sent",
	KindHandshakeReceived:     "handshake-received",
	KindHandshakeFailed:       "handshake-failed",
	KindPing:                  "ping",
	KindGossipMessage:         "gossip-message",
	KindReservationAccepted:   "reservation-accepted",
	KindReservationFailed:     "reservation-failed",
	KindRelayServer:           "relay-server",
	KindHolePunch:             "hole-punch",
	KindLocalPeerDiscovered:   "local-peer-discovered",
}

// String 返回事件种类名
func (k EventKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Event 节点事件流中的一个元素
//
// 传输层与各能力的输出都折叠成 Event，节点按到达顺序逐个处理。
// 变体集合是封闭的：只有本包内的类型实现 Event。
type Event interface {
	Kind() EventKind
	sealed()
}

// ============================================================================
//                              监听与连接
// ============================================================================

// EvtNewListenAddr 监听器获得了一个可用地址
type EvtNewListenAddr struct {
	Addr ma.Multiaddr
}

// EvtListenClosed 监听地址关闭
type EvtListenClosed struct {
	Addr ma.Multiaddr
}

// EvtConnectionEstablished 与对端建立了连接
type EvtConnectionEstablished struct {
	Peer      peer.ID
	Remote    ma.Multiaddr
	Direction Direction
}

// EvtConnectionClosed 与对端的连接关闭
type EvtConnectionClosed struct {
	Peer   peer.ID
	Remote ma.Multiaddr
}

// EvtDialFailed 主动拨号失败
type EvtDialFailed struct {
	Addr ma.Multiaddr
	Peer peer.ID
	Err  error
}

// ============================================================================
//                              握手（identify）
// ============================================================================

// EvtHandshakeSent 本端身份信息已发送给对端
type EvtHandshakeSent struct {
	Peer peer.ID
}

// EvtHandshakeReceived 收到对端的身份信息
type EvtHandshakeReceived struct {
	Peer         peer.ID
	ListenAddrs  []ma.Multiaddr
	Protocols    []protocol.ID
	ObservedAddr ma.Multiaddr
	AgentVersion string
}

// SupportsProtocol 对端是否声明了协议 id
func (e EvtHandshakeReceived) SupportsProtocol(id protocol.ID) bool {
	return HasProtocol(e.Protocols, id)
}

// EvtHandshakeFailed 与对端的握手失败
type EvtHandshakeFailed struct {
	Peer peer.ID
	Err  error
}

// ============================================================================
//                              能力输出
// ============================================================================

// EvtPing 一次存活探测的结果
type EvtPing struct {
	Peer peer.ID
	RTT  time.Duration
	Err  error
}

// EvtGossipMessage 收到一条广播消息
type EvtGossipMessage struct {
	Topic        string
	ID           string
	Author       peer.ID
	ReceivedFrom peer.ID
	Data         []byte
}

// EvtReservationAccepted 中继预约成功
type EvtReservationAccepted struct {
	Relay      peer.ID
	Expiration time.Time
	Addrs      []ma.Multiaddr
	Renewal    bool
}

// EvtReservationFailed 中继预约失败
type EvtReservationFailed struct {
	Relay peer.ID
	Err   error
}

// EvtRelayServer 中继服务端活动
type EvtRelayServer struct {
	Action RelayAction
	// Renewal 仅对 RelayReservationAllowed 有意义
	Renewal bool
	// Count 仅对 RelayReservationClosed 有意义
	Count int
	// Duration 仅对 RelayCircuitClosed 有意义
	Duration time.Duration
}

// EvtHolePunch 打洞过程中的一个阶段
type EvtHolePunch struct {
	Remote  peer.ID
	Stage   string
	Success bool
	Elapsed time.Duration
	Err     string
}

// EvtLocalPeerDiscovered 局域网发现了一个节点
type EvtLocalPeerDiscovered struct {
	Peer  peer.ID
	Addrs []ma.Multiaddr
}

func (EvtNewListenAddr) Kind() EventKind         { return KindNewListenAddr }
func (EvtListenClosed) Kind() EventKind          { return KindListenClosed }
func (EvtConnectionEstablished) Kind() EventKind { return KindConnectionEstablished }
func (EvtConnectionClosed) Kind() EventKind      { return KindConnectionClosed }
func (EvtDialFailed) Kind() EventKind            { return KindDialFailed }
func (EvtHandshakeSent) Kind() EventKind         { return KindHandshakeSent }
func (EvtHandshakeReceived) Kind() EventKind     { return KindHandshakeReceived }
func (EvtHandshakeFailed) Kind() EventKind       { return KindHandshakeFailed }
func (EvtPing) Kind() EventKind                  { return KindPing }
func (EvtGossipMessage) Kind() EventKind         { return KindGossipMessage }
func (EvtReservationAccepted) Kind() EventKind   { return KindReservationAccepted }
func (EvtReservationFailed) Kind() EventKind     { return KindReservationFailed }
func (EvtRelayServer) Kind() EventKind           { return KindRelayServer }
func (EvtHolePunch) Kind() EventKind             { return KindHolePunch }
func (EvtLocalPeerDiscovered) Kind() EventKind   { return KindLocalPeerDiscovered }

func (EvtNewListenAddr) sealed()         {}
func (EvtListenClosed) sealed()          {}
func (EvtConnectionEstablished) sealed() {}
func (EvtConnectionClosed) sealed()      {}
func (EvtDialFailed) sealed()            {}
func (EvtHandshakeSent) sealed()         {}
func (EvtHandshakeReceived) sealed()     {}
func (EvtHandshakeFailed) sealed()       {}
func (EvtPing) sealed()                  {}
func (EvtGossipMessage) sealed()         {}
func (EvtReservationAccepted) sealed()   {}
func (EvtReservationFailed) sealed()     {}
func (EvtRelayServer) sealed()           {}
func (EvtHolePunch) sealed()             {}
func (EvtLocalPeerDiscovered) sealed()   {}

// HasProtocol 协议列表中是否包含 id
func HasProtocol(list []protocol.ID, id protocol.ID) bool {
	for _, p := range list {
		if p == id {
			return true
		}
	}
	return false
}

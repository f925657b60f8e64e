// Package interfaces 定义节点运行时依赖的抽象
//
// 事件循环只通过这里的接口操作网络，便于在测试中替换为内存实现。
//   - Swarm     - 传输句柄：监听、拨号、事件流
//   - Behaviour - 能力集合：路由表、广播、中继预约
package interfaces

import (
	"context"
	"errors"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/dep2p/go-meshnode/pkg/types"
)

var (
	// ErrNoKnownPeers 路由表为空，无法执行引导
	ErrNoKnownPeers = errors.New("behaviour: no known peers in routing table")

	// ErrNoGossipPeers 主题上没有可发送的对端
	ErrNoGossipPeers = errors.New("behaviour: no peers subscribed to topic")

	// ErrCapabilityUnavailable 当前角色未组合该能力
	ErrCapabilityUnavailable = errors.New("behaviour: capability not available for this role")
)

// Swarm 节点的传输句柄
//
// 监听器在构建时绑定。所有网络活动以 types.Event 形式从 Events 输出，
// 同一个 Swarm 的事件按产生顺序排队。
type Swarm interface {
	// LocalPeer 本节点 peer id
	LocalPeer() peer.ID

	// ListenAddrs 当前监听地址
	ListenAddrs() []ma.Multiaddr

	// Events 事件流；Close 之后关闭
	Events() <-chan types.Event

	// Dial 异步拨号，结果以连接事件或 EvtDialFailed 返回
	Dial(ctx context.Context, addr ma.Multiaddr)

	// Behaviour 该节点的能力集合
	Behaviour() Behaviour

	// Close 关闭所有能力与传输
	Close() error
}

// Behaviour 按角色组合的能力集合
type Behaviour interface {
	// RoutingProtocol 路由表协议 id
	RoutingProtocol() protocol.ID

	// AddRoutingAddrs 记录对端地址并尝试加入路由表，返回是否加入
	AddRoutingAddrs(p peer.ID, addrs []ma.Multiaddr) bool

	// AddSeedPeer 以永久地址加入一个目录种子
	AddSeedPeer(ai peer.AddrInfo) error

	// RemoveRoutingPeer 从路由表移除对端
	RemoveRoutingPeer(p peer.ID)

	// BootstrapRound 执行一次路由引导；路由表为空时返回 ErrNoKnownPeers
	BootstrapRound(ctx context.Context) error

	// HasGossip 是否组合了广播能力
	HasGossip() bool

	// Publish 向广播主题发布一条消息
	Publish(ctx context.Context, data []byte) error

	// AddExplicitPeer 把对端登记为显式广播对端
	AddExplicitPeer(p peer.ID)

	// ReserveCircuit 通过中继异步预约电路，结果以事件返回
	ReserveCircuit(ctx context.Context, relay peer.AddrInfo)
}

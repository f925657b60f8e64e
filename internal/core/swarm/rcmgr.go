package swarm

import (
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	rcmgr "github.com/libp2p/go-libp2p/p2p/host/resource-manager"
	"github.com/libp2p/go-libp2p/p2p/protocol/identify"
)

// observedRcmgr 在资源管理器上观察入站 identify 流
//
// 对端打开 identify 流时本端会回写自己的身份信息，
// 以入站流协商出 identify 协议作为"握手已发送"的信号。
type observedRcmgr struct {
	network.ResourceManager
	onSent func(peer.ID)
}

func newObservedRcmgr(onSent func(peer.ID)) (*observedRcmgr, error) {
	limiter := rcmgr.NewFixedLimiter(rcmgr.DefaultLimits.AutoScale())
	rm, err := rcmgr.NewResourceManager(limiter)
	if err != nil {
		return nil, err
	}
	return &observedRcmgr{ResourceManager: rm, onSent: onSent}, nil
}

func (m *observedRcmgr) OpenStream(p peer.ID, dir network.Direction) (network.StreamManagementScope, error) {
	scope, err := m.ResourceManager.OpenStream(p, dir)
	if err != nil || dir != network.DirInbound {
		return scope, err
	}
	return &observedStreamScope{StreamManagementScope: scope, peer: p, onSent: m.onSent}, nil
}

type observedStreamScope struct {
	network.StreamManagementScope
	peer   peer.ID
	onSent func(peer.ID)
}

func (s *observedStreamScope) SetProtocol(proto protocol.ID) error {
	if err := s.StreamManagementScope.SetProtocol(proto); err != nil {
		return err
	}
	if proto == identify.ID {
		s.onSent(s.peer)
	}
	return nil
}

package swarm

import (
	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/p2p/host/eventbus"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/dep2p/go-meshnode/pkg/types"
)

// watch 注册连接通知并订阅 host 事件总线
func (s *Swarm) watch() error {
	s.h.Network().Notify(&network.NotifyBundle{
		ConnectedF: func(_ network.Network, c network.Conn) {
			s.emit(types.EvtConnectionEstablished{
				Peer:      c.RemotePeer(),
				Remote:    c.RemoteMultiaddr(),
				Direction: direction(c.Stat().Direction),
			})
		},
		DisconnectedF: func(_ network.Network, c network.Conn) {
			s.emit(types.EvtConnectionClosed{Peer: c.RemotePeer(), Remote: c.RemoteMultiaddr()})
		},
	})

	sub, err := s.h.EventBus().Subscribe([]interface{}{
		new(event.EvtPeerIdentificationCompleted),
		new(event.EvtPeerIdentificationFailed),
		new(event.EvtLocalAddressesUpdated),
	}, eventbus.BufSize(256))
	if err != nil {
		return err
	}

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		defer sub.Close()
		for {
			select {
			case <-s.done:
				return
			case raw, ok := <-sub.Out():
				if !ok {
					return
				}
				s.handleBusEvent(raw)
			}
		}
	}()
	return nil
}

func (s *Swarm) handleBusEvent(raw interface{}) {
	switch e := raw.(type) {
	case event.EvtPeerIdentificationCompleted:
		s.emit(types.EvtHandshakeReceived{
			Peer:         e.Peer,
			ListenAddrs:  e.ListenAddrs,
			Protocols:    e.Protocols,
			ObservedAddr: e.ObservedAddr,
			AgentVersion: e.AgentVersion,
		})
	case event.EvtPeerIdentificationFailed:
		s.emit(types.EvtHandshakeFailed{Peer: e.Peer, Err: e.Reason})
	case event.EvtLocalAddressesUpdated:
		current := make([]ma.Multiaddr, 0, len(e.Current))
		for _, u := range e.Current {
			current = append(current, u.Address)
		}
		s.publishAddrs(current)
		for _, u := range e.Removed {
			s.retireAddr(u.Address)
		}
	}
}

// publishAddrs 为尚未上报过的地址产生 EvtNewListenAddr
func (s *Swarm) publishAddrs(addrs []ma.Multiaddr) {
	var fresh []ma.Multiaddr
	s.addrMu.Lock()
	for _, a := range addrs {
		key := a.String()
		if _, ok := s.knownAddr[key]; ok {
			continue
		}
		s.knownAddr[key] = struct{}{}
		fresh = append(fresh, a)
	}
	s.addrMu.Unlock()

	for _, a := range fresh {
		s.emit(types.EvtNewListenAddr{Addr: a})
	}
}

func (s *Swarm) retireAddr(a ma.Multiaddr) {
	s.addrMu.Lock()
	_, ok := s.knownAddr[a.String()]
	delete(s.knownAddr, a.String())
	s.addrMu.Unlock()
	if ok {
		s.emit(types.EvtListenClosed{Addr: a})
	}
}

func direction(d network.Direction) types.Direction {
	switch d {
	case network.DirInbound:
		return types.DirInbound
	case network.DirOutbound:
		return types.DirOutbound
	default:
		return types.DirUnknown
	}
}

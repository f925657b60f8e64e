package behaviour

import (
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"

	"github.com/dep2p/go-meshnode/pkg/types"
)

// mdnsNotifee 局域网发现回调
//
// 只记录地址并上报，是否连接由事件循环决定。
type mdnsNotifee struct {
	self peer.ID
	ps   peerstore.Peerstore
	emit Emitter
}

var _ mdns.Notifee = (*mdnsNotifee)(nil)

func (n *mdnsNotifee) HandlePeerFound(info peer.AddrInfo) {
	if info.ID == n.self || len(info.Addrs) == 0 {
		return
	}
	n.ps.AddAddrs(info.ID, info.Addrs, peerstore.TempAddrTTL)
	n.emit(types.EvtLocalPeerDiscovered{Peer: info.ID, Addrs: info.Addrs})
}

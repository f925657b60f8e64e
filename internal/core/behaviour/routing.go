package behaviour

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/libp2p/go-libp2p/core/protocol"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/dep2p/go-meshnode/config"
	"github.com/dep2p/go-meshnode/pkg/interfaces"
)

// kadSuffix kad-dht 在协议前缀后追加的部分
const kadSuffix = "/kad/1.0.0"

// RoutingProtocolID 前缀对应的路由表协议 id
func RoutingProtocolID(prefix string) protocol.ID {
	return protocol.ID(prefix + kadSuffix)
}

// routing Kademlia 路由表
//
// 关闭了 kad-dht 自带的周期刷新，刷新只由调用方的引导轮次触发。
type routing struct {
	h       host.Host
	dht     *dht.IpfsDHT
	proto   protocol.ID
	addrTTL time.Duration
	timeout time.Duration
	log     *slog.Logger
}

func newRouting(ctx context.Context, h host.Host, cfg config.RoutingConfig, recordTTL time.Duration, log *slog.Logger) (*routing, error) {
	d, err := dht.New(ctx, h,
		dht.Mode(dht.ModeServer),
		dht.ProtocolPrefix(protocol.ID(cfg.ProtocolPrefix)),
		dht.MaxRecordAge(recordTTL),
		dht.RoutingTableRefreshQueryTimeout(cfg.QueryTimeout.Std()),
		dht.DisableAutoRefresh(),
		dht.BootstrapPeers(),
	)
	if err != nil {
		return nil, fmt.Errorf("behaviour: create routing table: %w", err)
	}
	return &routing{
		h:       h,
		dht:     d,
		proto:   RoutingProtocolID(cfg.ProtocolPrefix),
		addrTTL: cfg.AddrTTL.Std(),
		timeout: cfg.QueryTimeout.Std(),
		log:     log,
	}, nil
}

// add 记录地址并加入路由表
func (r *routing) add(p peer.ID, addrs []ma.Multiaddr) bool {
	if p == r.h.ID() {
		return false
	}
	if len(addrs) > 0 {
		r.h.Peerstore().AddAddrs(p, addrs, r.addrTTL)
	}
	added, err := r.dht.RoutingTable().TryAddPeer(p, true, false)
	if err != nil {
		r.log.Debug("加入路由表失败", "peer", p, "error", err)
		return false
	}
	return added
}

// seed 以永久地址写入目录种子
func (r *routing) seed(ai peer.AddrInfo) error {
	if ai.ID == r.h.ID() {
		return nil
	}
	r.h.Peerstore().AddAddrs(ai.ID, ai.Addrs, peerstore.PermanentAddrTTL)
	if _, err := r.dht.RoutingTable().TryAddPeer(ai.ID, true, false); err != nil {
		return fmt.Errorf("behaviour: seed %s: %w", ai.ID, err)
	}
	return nil
}

func (r *routing) remove(p peer.ID) {
	r.dht.RoutingTable().RemovePeer(p)
}

// bootstrap 触发一次刷新，不等待查询完成
func (r *routing) bootstrap(ctx context.Context) error {
	if r.dht.RoutingTable().Size() == 0 {
		return interfaces.ErrNoKnownPeers
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	done := r.dht.RefreshRoutingTable()
	go func() {
		select {
		case err := <-done:
			if err != nil {
				r.log.Debug("路由表刷新结束", "error", err)
				return
			}
			r.log.Debug("路由表刷新完成", "size", r.dht.RoutingTable().Size())
		case <-time.After(2 * r.timeout):
		}
	}()
	return nil
}

func (r *routing) size() int { return r.dht.RoutingTable().Size() }

func (r *routing) close() error {
	return r.dht.Close()
}

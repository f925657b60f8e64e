package behaviour

import (
	"context"
	"fmt"
	"sync"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/dep2p/go-meshnode/config"
	"github.com/dep2p/go-meshnode/pkg/interfaces"
	"github.com/dep2p/go-meshnode/pkg/types"
)

// explicitPeerTag 显式广播对端在连接管理器中的保护标签
const explicitPeerTag = "meshnode-gossip-explicit"

// gossip 单主题广播
//
// 消息强制签名，作者为本节点；同时兼容 floodsub 对端。
type gossip struct {
	h     host.Host
	ps    *pubsub.PubSub
	topic *pubsub.Topic
	sub   *pubsub.Subscription
	emit  Emitter

	mu       sync.Mutex
	explicit map[peer.ID]struct{}
}

// newGossip direct 中的对端作为 gossipsub 直连对端，其余显式对端只能在运行期登记
func newGossip(ctx context.Context, h host.Host, cfg config.GossipConfig, topicName string,
	direct []peer.AddrInfo, emit Emitter) (*gossip, error) {
	params := pubsub.DefaultGossipSubParams()
	params.HeartbeatInterval = cfg.HeartbeatInterval.Std()

	opts := []pubsub.Option{
		pubsub.WithGossipSubParams(params),
		pubsub.WithFloodPublish(cfg.FloodPublish),
		pubsub.WithMessageSignaturePolicy(pubsub.StrictSign),
		pubsub.WithMessageAuthor(h.ID()),
	}
	if len(direct) > 0 {
		opts = append(opts, pubsub.WithDirectPeers(direct))
	}
	ps, err := pubsub.NewGossipSub(ctx, h, opts...)
	if err != nil {
		return nil, fmt.Errorf("behaviour: create gossip: %w", err)
	}

	topic, err := ps.Join(topicName)
	if err != nil {
		return nil, fmt.Errorf("behaviour: join topic %q: %w", topicName, err)
	}
	sub, err := topic.Subscribe(pubsub.WithBufferSize(cfg.SubscriptionBuffer))
	if err != nil {
		_ = topic.Close()
		return nil, fmt.Errorf("behaviour: subscribe topic %q: %w", topicName, err)
	}

	g := &gossip{
		h:        h,
		ps:       ps,
		topic:    topic,
		sub:      sub,
		emit:     emit,
		explicit: make(map[peer.ID]struct{}),
	}
	for _, ai := range direct {
		g.addExplicit(ai.ID)
	}
	return g, nil
}

// pump 把订阅到的消息转成事件，跳过自己发布的消息
func (g *gossip) pump(ctx context.Context) {
	self := g.h.ID()
	for {
		msg, err := g.sub.Next(ctx)
		if err != nil {
			return
		}
		if msg.ReceivedFrom == self {
			continue
		}
		g.emit(types.EvtGossipMessage{
			Topic:        msg.GetTopic(),
			ID:           msg.ID,
			Author:       msg.GetFrom(),
			ReceivedFrom: msg.ReceivedFrom,
			Data:         msg.Data,
		})
	}
}

func (g *gossip) publish(ctx context.Context, data []byte) error {
	if len(g.topic.ListPeers()) == 0 {
		return interfaces.ErrNoGossipPeers
	}
	if err := g.topic.Publish(ctx, data); err != nil {
		return fmt.Errorf("behaviour: publish: %w", err)
	}
	return nil
}

// addExplicit 登记显式对端并保护其连接不被回收
func (g *gossip) addExplicit(p peer.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.explicit[p]; ok {
		return
	}
	g.explicit[p] = struct{}{}
	g.h.ConnManager().Protect(p, explicitPeerTag)
}

// explicitPeers 当前显式对端
func (g *gossip) explicitPeers() []peer.ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]peer.ID, 0, len(g.explicit))
	for p := range g.explicit {
		out = append(out, p)
	}
	return out
}

func (g *gossip) close() {
	g.sub.Cancel()
	_ = g.topic.Close()
}

package node

import (
	"context"
	"fmt"

	"github.com/dep2p/go-meshnode/internal/directory"
	"github.com/dep2p/go-meshnode/pkg/types"
)

// Bootstrap 引导/中继节点
type Bootstrap struct {
	loop

	seeds []directory.Entry
}

var _ Node = (*Bootstrap)(nil)

// Seeds 分配给本实例的目录种子
func (b *Bootstrap) Seeds() []directory.Entry {
	return append([]directory.Entry(nil), b.seeds...)
}

// Run 依次执行 Listening、Seeding、Steady，直到 ctx 取消
func (b *Bootstrap) Run(ctx context.Context) error {
	if err := b.begin(); err != nil {
		return err
	}
	defer b.end()

	b.setPhase(types.PhaseListening)
	for _, a := range b.sw.ListenAddrs() {
		b.log.Info("监听地址", "addr", a)
	}

	if err := b.seed(ctx); err != nil {
		return err
	}
	return b.steady(ctx)
}

// seed 以永久 TTL 写入分配的目录项，然后执行一次引导
//
// 目录项无法解析是致命错误。
func (b *Bootstrap) seed(ctx context.Context) error {
	b.setPhase(types.PhaseSeeding)
	beh := b.sw.Behaviour()
	self := b.sw.LocalPeer()
	for _, e := range b.seeds {
		ai, err := e.AddrInfo()
		if err != nil {
			return fmt.Errorf("node: seeding: %w", err)
		}
		if ai.ID == self {
			continue
		}
		if err := beh.AddSeedPeer(ai); err != nil {
			return fmt.Errorf("node: seeding %s: %w", ai.ID, err)
		}
		b.log.Info("写入目录种子", "seed", e.Seed, "peer", ai.ID, "addrs", ai.Addrs)
	}
	b.bootstrapRound(ctx)
	return nil
}

// steady 周期性重新引导并处理事件
//
// 只有一个计时器，每次触发时先重置到 now+interval 再执行引导。
func (b *Bootstrap) steady(ctx context.Context) error {
	interval := b.cfg.Bootstrap.Interval.Std()
	timer := b.clk.Timer(interval)
	defer timer.Stop()
	b.setPhase(types.PhaseSteady)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			timer.Reset(interval)
			b.bootstrapRound(ctx)
		case e, ok := <-b.sw.Events():
			if !ok {
				return ErrEventsClosed
			}
			b.observe(e)
			b.handleSteady(e)
		}
	}
}

func (b *Bootstrap) handleSteady(e types.Event) {
	b.logEvent(e)
	switch ev := e.(type) {
	case types.EvtHandshakeReceived:
		b.updateRouting(ev)
	case types.EvtConnectionClosed:
		if b.cfg.Bootstrap.PruneOnDisconnect {
			b.sw.Behaviour().RemoveRoutingPeer(ev.Peer)
			b.log.Debug("已从路由表移除", "peer", ev.Peer)
		}
	}
}

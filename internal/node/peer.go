package node

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/dep2p/go-meshnode/internal/directory"
	"github.com/dep2p/go-meshnode/pkg/types"
)

// Peer 普通节点
type Peer struct {
	loop

	wellKnown peer.AddrInfo
	input     io.Reader

	// gate 身份信息双向交换的完成情况，跨 Listening 与 ConnectingToBootstrap 累计
	gate handshakeGate
}

// handshakeGate 已发送身份信息且收到带观测地址的身份信息才算完成
type handshakeGate struct {
	sent     bool
	received bool
}

func (g handshakeGate) done() bool { return g.sent && g.received }

var _ Node = (*Peer)(nil)

// seed 以 well-known bootstrap 预填路由表并触发一次引导
func (p *Peer) seed(ctx context.Context, extra []directory.Entry) {
	b := p.sw.Behaviour()
	if err := b.AddSeedPeer(p.wellKnown); err != nil {
		p.log.Warn("写入 well-known 种子失败", "peer", p.wellKnown.ID, "error", err)
	}
	for _, e := range extra {
		ai, err := e.AddrInfo()
		if err != nil {
			p.log.Warn("忽略无效种子", "seed", e.Seed, "error", err)
			continue
		}
		if err := b.AddSeedPeer(ai); err != nil {
			p.log.Warn("写入种子失败", "peer", ai.ID, "error", err)
		}
	}
	p.bootstrapRound(ctx)
}

// Run 依次执行 Listening、ConnectingToBootstrap、Active
//
// 输入结束返回 nil；读输入出错返回错误；ctx 取消返回 ctx.Err()。
func (p *Peer) Run(ctx context.Context) error {
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()

	if err := p.listen(ctx); err != nil {
		return err
	}
	if err := p.connect(ctx); err != nil {
		return err
	}
	return p.active(ctx)
}

// listen 在固定时间窗口内收集监听地址
//
// 构建时的引导可能已经连上 well-known bootstrap，这期间的握手同样计入 gate。
func (p *Peer) listen(ctx context.Context) error {
	// 计时器先于阶段切换创建，观察到 Listening 时窗口已开始计时
	window := p.clk.Timer(p.cfg.Peer.ListenWindow.Std())
	defer window.Stop()
	p.setPhase(types.PhaseListening)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-window.C:
			return nil
		case e, ok := <-p.sw.Events():
			if !ok {
				return ErrEventsClosed
			}
			p.observe(e)
			p.track(e)
		}
	}
}

// track 记录握手进度，并处理连接与握手事件
func (p *Peer) track(e types.Event) {
	p.logEvent(e)
	switch ev := e.(type) {
	case types.EvtHandshakeSent:
		p.gate.sent = true
	case types.EvtHandshakeReceived:
		p.updateRouting(ev)
		if ev.ObservedAddr != nil {
			p.gate.received = true
			p.log.Info("对端观测到的本机地址", "peer", ev.Peer, "observed", ev.ObservedAddr)
		}
	case types.EvtConnectionEstablished:
		p.sw.Behaviour().AddExplicitPeer(ev.Peer)
	}
}

// connect 拨号 well-known bootstrap，直到身份信息双向交换完成
//
// 收到的身份信息必须带有观测地址才算完成。已连接时拨号不会产生新连接，
// 此时依靠 listen 期间累计的握手状态。
func (p *Peer) connect(ctx context.Context) error {
	addrs, err := peer.AddrInfoToP2pAddrs(&p.wellKnown)
	if err != nil {
		return fmt.Errorf("node: well-known address: %w", err)
	}
	if len(addrs) == 0 {
		return directory.ErrNoWellKnown
	}

	var timeout <-chan time.Time
	if d := p.cfg.Peer.ConnectTimeout.Std(); d > 0 {
		t := p.clk.Timer(d)
		defer t.Stop()
		timeout = t.C
	}
	p.setPhase(types.PhaseConnectingToBootstrap)
	for _, a := range addrs {
		p.log.Info("拨号 bootstrap", "addr", a)
		p.sw.Dial(ctx, a)
	}

	for !p.gate.done() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("%w: sent=%t received=%t", ErrConnectTimeout, p.gate.sent, p.gate.received)
		case e, ok := <-p.sw.Events():
			if !ok {
				return ErrEventsClosed
			}
			p.observe(e)
			p.track(e)
		}
	}
	return nil
}

// active 预约中继电路，并把输入的每一行发布为一条广播
func (p *Peer) active(ctx context.Context) error {
	p.setPhase(types.PhaseActive)
	b := p.sw.Behaviour()
	b.ReserveCircuit(ctx, p.wellKnown)

	var (
		lines     <-chan string
		inputDone <-chan error
	)
	if b.HasGossip() {
		lines, inputDone = p.readInput(ctx)
	} else {
		p.log.Warn("未组合广播能力，忽略输入")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line := <-lines:
			err := b.Publish(ctx, []byte(line))
			p.metrics.Publish(err)
			if err != nil {
				p.log.Warn("发布失败", "error", err)
			} else {
				p.log.Debug("已发布", "topic", p.cfg.Peer.Topic, "bytes", len(line))
			}

		case err := <-inputDone:
			if err != nil {
				return fmt.Errorf("node: read input: %w", err)
			}
			p.log.Info("输入已结束")
			return nil

		case e, ok := <-p.sw.Events():
			if !ok {
				return ErrEventsClosed
			}
			p.observe(e)
			p.track(e)
		}
	}
}

// readInput 按行读取输入；input 为空时两个通道都不会就绪
func (p *Peer) readInput(ctx context.Context) (<-chan string, <-chan error) {
	if p.input == nil {
		return nil, nil
	}
	lines := make(chan string)
	done := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(p.input)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		done <- sc.Err()
	}()
	return lines, done
}

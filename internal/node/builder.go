package node

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	meshnode "github.com/dep2p/go-meshnode"
	"github.com/dep2p/go-meshnode/internal/core/identity"
	"github.com/dep2p/go-meshnode/internal/core/swarm"
	"github.com/dep2p/go-meshnode/internal/directory"
	"github.com/dep2p/go-meshnode/internal/util/logger"
	"github.com/dep2p/go-meshnode/pkg/types"
)

// RoleSpec 节点角色及其参数
//
// Port 与 Seeds 只对引导节点有意义；普通节点使用配置中的监听地址，
// 并以目录表的 well-known 地址作为种子。
type RoleSpec struct {
	Role  types.Role
	Port  int
	Seeds []directory.Entry

	// Name 实例名，为空时使用角色名
	Name string
}

// KeySelector 构建的第一步：选择身份来源
type KeySelector struct {
	spec RoleSpec
	opts []Option
}

// NewBuilder 以角色参数开始构建
//
//	n, err := node.NewBuilder(node.RoleSpec{Role: types.RolePeer}, opts...).
//		WithRandomKey().
//		Build(ctx)
func NewBuilder(spec RoleSpec, opts ...Option) KeySelector {
	return KeySelector{spec: spec, opts: opts}
}

// WithRandomKey 使用随机 Ed25519 身份
func (k KeySelector) WithRandomKey() Builder {
	return &builder{spec: k.spec, o: newOptions(k.opts), key: identity.Random}
}

// WithSeededKey 使用由 seed 确定性派生的身份
func (k KeySelector) WithSeededKey(seed uint8) Builder {
	return &builder{spec: k.spec, o: newOptions(k.opts), key: func() (*identity.NodeIdentity, error) {
		return identity.FromSeed(seed)
	}}
}

// Builder 已选择身份来源的构建器，两种角色共用
type Builder interface {
	// Build 创建身份、绑定监听器并组装能力集合；失败返回 *BuildError
	Build(ctx context.Context) (Node, error)
}

var _ Builder = (*builder)(nil)

type builder struct {
	spec RoleSpec
	o    *options
	key  func() (*identity.NodeIdentity, error)
}

func (b *builder) Build(ctx context.Context) (Node, error) {
	role := b.spec.Role
	fail := func(stage Stage, err error) (Node, error) {
		return nil, &BuildError{Role: role, Stage: stage, Err: err}
	}
	if role != types.RolePeer && role != types.RoleBootstrap {
		return fail(StageAddress, fmt.Errorf("%w: %d", types.ErrUnknownRole, int(role)))
	}

	id, err := b.key()
	if err != nil {
		return fail(StageIdentity, err)
	}

	listen, err := b.listenAddrs()
	if err != nil {
		return fail(StageAddress, err)
	}

	// 普通节点在创建传输前解析 well-known 地址，失败时不留下半成品
	var wellKnown peer.AddrInfo
	if role == types.RolePeer {
		dir, err := b.o.directory()
		if err != nil {
			return fail(StageAddress, err)
		}
		if wellKnown, err = dir.WellKnown(); err != nil {
			return fail(StageAddress, err)
		}
	}

	name := b.spec.Name
	if name == "" {
		name = role.String()
	}
	session := uuid.NewString()
	log := logger.Named(b.o.log, "node").With("node", name, "session", session, "peer", id.ID())

	params := swarm.Params{
		Role:            role,
		Identity:        id,
		ListenAddrs:     listen,
		Config:          b.o.cfg,
		Clock:           b.o.clk,
		Logger:          b.o.log,
		UserAgent:       meshnode.UserAgent(),
		ProtocolVersion: meshnode.ProtocolVersion,
	}
	if b.o.metrics != nil {
		params.Bandwidth = b.o.metrics.Bandwidth()
	}
	if role == types.RolePeer {
		// well-known bootstrap 同时是中继，作为广播直连对端
		params.DirectPeers = []peer.AddrInfo{wellKnown}
	}
	sw, err := b.o.factory(ctx, params)
	if err != nil {
		if errors.Is(err, swarm.ErrListen) {
			return fail(StageListen, err)
		}
		return fail(StageTransport, err)
	}

	setup := func(l *loop) {
		l.role = role
		l.name = name
		l.session = session
		l.sw = sw
		l.cfg = b.o.cfg
		l.clk = b.o.clk
		l.log = log
		l.tracer = b.o.tracer
		if b.o.metrics != nil {
			l.metrics = b.o.metrics.ForNode(name)
		}
		l.phase.Store(int32(types.PhaseIdle))
	}

	log.Info("节点已构建", "role", role, "listen", listen)

	if role == types.RoleBootstrap {
		n := &Bootstrap{seeds: append([]directory.Entry(nil), b.spec.Seeds...)}
		setup(&n.loop)
		return n, nil
	}

	p := &Peer{wellKnown: wellKnown, input: b.o.input}
	setup(&p.loop)
	p.seed(ctx, b.spec.Seeds)
	return p, nil
}

// listenAddrs 按角色确定监听地址
func (b *builder) listenAddrs() ([]ma.Multiaddr, error) {
	cfg := b.o.cfg
	if b.spec.Role == types.RolePeer {
		out := make([]ma.Multiaddr, 0, len(cfg.Peer.ListenAddrs))
		for _, s := range cfg.Peer.ListenAddrs {
			a, err := ma.NewMultiaddr(s)
			if err != nil {
				return nil, fmt.Errorf("listen addr %q: %w", s, err)
			}
			out = append(out, a)
		}
		return out, nil
	}

	port := b.spec.Port
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	host := cfg.Bootstrap.ListenHost
	p := strconv.Itoa(port)
	out := []ma.Multiaddr{}
	if cfg.Transport.EnableTCP {
		a, err := ma.NewMultiaddr(host + "/tcp/" + p)
		if err != nil {
			return nil, fmt.Errorf("listen host %q: %w", host, err)
		}
		out = append(out, a)
	}
	if cfg.Transport.EnableQUIC {
		a, err := ma.NewMultiaddr(host + "/udp/" + p + "/quic-v1")
		if err != nil {
			return nil, fmt.Errorf("listen host %q: %w", host, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Package directory 提供 bootstrap 目录表
//
// 目录表是一张有序、只读的 bootstrap 节点清单，进程内所有节点共享。
// 多实例模式下第 i 个实例使用第 i 条目录项的种子与端口，
// 并以前 i 条目录项作为路由表种子。
package directory

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/dep2p/go-meshnode/config"
	"github.com/dep2p/go-meshnode/internal/core/identity"
)

// ════════════════════════════════════════════════════════════════════════════
// 错误定义
// ════════════════════════════════════════════════════════════════════════════

var (
	// ErrInsufficientEntries 请求的下标超出目录表长度
	ErrInsufficientEntries = errors.New("directory: insufficient entries")

	// ErrInvalidEntry 目录项格式错误
	ErrInvalidEntry = errors.New("directory: invalid entry")

	// ErrNoWellKnown 没有可用的 well-known bootstrap 地址
	ErrNoWellKnown = errors.New("directory: no well-known bootstrap address")
)

// 内置目录表参数
const (
	defaultHost      = "/ip4/127.0.0.1"
	defaultFirstPort = 4003
	defaultFirstSeed = 1
	defaultSize      = 5
)

// ════════════════════════════════════════════════════════════════════════════
// Entry
// ════════════════════════════════════════════════════════════════════════════

// Entry 一条目录项
type Entry struct {
	Seed   uint8
	Port   int
	PeerID string
	// Host 地址主机部分，如 /ip4/127.0.0.1
	Host string
}

// Addr 返回完整地址字符串 <host>/tcp/<port>/p2p/<id>
func (e Entry) Addr() string {
	return e.Host + "/tcp/" + strconv.Itoa(e.Port) + "/p2p/" + e.PeerID
}

// Multiaddr 解析完整地址
func (e Entry) Multiaddr() (ma.Multiaddr, error) {
	addr, err := ma.NewMultiaddr(e.Addr())
	if err != nil {
		return nil, fmt.Errorf("%w: seed %d: %v", ErrInvalidEntry, e.Seed, err)
	}
	return addr, nil
}

// AddrInfo 解析为 peer.AddrInfo
func (e Entry) AddrInfo() (peer.AddrInfo, error) {
	addr, err := e.Multiaddr()
	if err != nil {
		return peer.AddrInfo{}, err
	}
	info, err := peer.AddrInfoFromP2pAddr(addr)
	if err != nil {
		return peer.AddrInfo{}, fmt.Errorf("%w: seed %d: %v", ErrInvalidEntry, e.Seed, err)
	}
	return *info, nil
}

// ════════════════════════════════════════════════════════════════════════════
// Directory
// ════════════════════════════════════════════════════════════════════════════

// Directory 只读目录表
type Directory struct {
	entries   []Entry
	wellKnown string
}

// New 校验并创建目录表
//
// wellKnown 为空时取第一条目录项的完整地址。
// 条目地址能否解析在使用时检查（见 Entry.AddrInfo）。
func New(entries []Entry, wellKnown string) (*Directory, error) {
	seeds := make(map[uint8]bool, len(entries))
	ports := make(map[int]bool, len(entries))
	for i, e := range entries {
		if e.Port <= 0 || e.Port > 65535 {
			return nil, fmt.Errorf("%w: entry %d port %d", ErrInvalidEntry, i, e.Port)
		}
		if e.Host == "" || e.PeerID == "" {
			return nil, fmt.Errorf("%w: entry %d missing host or peer id", ErrInvalidEntry, i)
		}
		if seeds[e.Seed] || ports[e.Port] {
			return nil, fmt.Errorf("%w: entry %d duplicates seed %d or port %d", ErrInvalidEntry, i, e.Seed, e.Port)
		}
		seeds[e.Seed], ports[e.Port] = true, true
	}

	if wellKnown == "" && len(entries) > 0 {
		wellKnown = entries[0].Addr()
	}

	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return &Directory{entries: cp, wellKnown: wellKnown}, nil
}

// Default 内置目录表：种子 1..5，端口 4003..4007，本机地址
func Default() (*Directory, error) {
	entries := make([]Entry, 0, defaultSize)
	for i := 0; i < defaultSize; i++ {
		e, err := derivedEntry(uint8(defaultFirstSeed+i), defaultFirstPort+i, defaultHost)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return New(entries, "")
}

// FromConfig 按配置创建目录表，未配置条目时使用内置表
func FromConfig(cfg config.DirectoryConfig) (*Directory, error) {
	if len(cfg.Entries) == 0 {
		d, err := Default()
		if err != nil {
			return nil, err
		}
		if cfg.WellKnown != "" {
			d.wellKnown = cfg.WellKnown
		}
		return d, nil
	}

	entries := make([]Entry, 0, len(cfg.Entries))
	for _, c := range cfg.Entries {
		if c.PeerID != "" {
			entries = append(entries, Entry{Seed: c.Seed, Port: c.Port, PeerID: c.PeerID, Host: c.Host})
			continue
		}
		e, err := derivedEntry(c.Seed, c.Port, c.Host)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return New(entries, cfg.WellKnown)
}

func derivedEntry(seed uint8, port int, host string) (Entry, error) {
	id, err := identity.PeerIDFromSeed(seed)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Seed: seed, Port: port, PeerID: id.String(), Host: host}, nil
}

// Len 目录项数量
func (d *Directory) Len() int { return len(d.entries) }

// Entry 返回第 i 条目录项
func (d *Directory) Entry(i int) (Entry, error) {
	if i < 0 || i >= len(d.entries) {
		return Entry{}, fmt.Errorf("%w: index %d, have %d", ErrInsufficientEntries, i, len(d.entries))
	}
	return d.entries[i], nil
}

// Slice 返回前 i 条目录项的副本
func (d *Directory) Slice(i int) ([]Entry, error) {
	if i < 0 || i > len(d.entries) {
		return nil, fmt.Errorf("%w: slice %d, have %d", ErrInsufficientEntries, i, len(d.entries))
	}
	out := make([]Entry, i)
	copy(out, d.entries[:i])
	return out, nil
}

// WellKnownAddr 普通节点拨号使用的 bootstrap 地址
func (d *Directory) WellKnownAddr() string { return d.wellKnown }

// WellKnown 解析 well-known 地址
func (d *Directory) WellKnown() (peer.AddrInfo, error) {
	if d.wellKnown == "" {
		return peer.AddrInfo{}, ErrNoWellKnown
	}
	info, err := peer.AddrInfoFromString(d.wellKnown)
	if err != nil {
		return peer.AddrInfo{}, fmt.Errorf("%w: %q: %v", ErrInvalidEntry, d.wellKnown, err)
	}
	return *info, nil
}

// IndexOf 返回种子为 seed 的目录项下标
func (d *Directory) IndexOf(seed uint8) (int, bool) {
	for i, e := range d.entries {
		if e.Seed == seed {
			return i, true
		}
	}
	return -1, false
}

package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-meshnode/config"
	"github.com/dep2p/go-meshnode/internal/core/identity"
)

// TestDefault 内置表的种子、端口与 peer id 一一对应
func TestDefault(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)
	require.Equal(t, 5, d.Len())

	for i := 0; i < d.Len(); i++ {
		e, err := d.Entry(i)
		require.NoError(t, err)
		assert.Equal(t, uint8(i+1), e.Seed)
		assert.Equal(t, 4003+i, e.Port)

		want, err := identity.PeerIDFromSeed(e.Seed)
		require.NoError(t, err)
		assert.Equal(t, want.String(), e.PeerID)

		info, err := e.AddrInfo()
		require.NoError(t, err)
		assert.Equal(t, want, info.ID)
		require.Len(t, info.Addrs, 1)
	}

	first, _ := d.Entry(0)
	assert.Equal(t, first.Addr(), d.WellKnownAddr())
	wk, err := d.WellKnown()
	require.NoError(t, err)
	assert.Equal(t, first.PeerID, wk.ID.String())
}

// TestSlice 第 i 个实例拿到恰好 i 条目录项
func TestSlice(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	for i := 0; i <= 3; i++ {
		s, err := d.Slice(i)
		require.NoError(t, err)
		assert.Len(t, s, i)
		for j, e := range s {
			want, _ := d.Entry(j)
			assert.Equal(t, want, e)
		}
	}

	_, err = d.Slice(d.Len() + 1)
	assert.ErrorIs(t, err, ErrInsufficientEntries)
	_, err = d.Entry(d.Len())
	assert.ErrorIs(t, err, ErrInsufficientEntries)
	_, err = d.Entry(-1)
	assert.ErrorIs(t, err, ErrInsufficientEntries)
}

// TestSlice_Copy 修改返回的切片不影响目录表
func TestSlice_Copy(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	s, err := d.Slice(2)
	require.NoError(t, err)
	s[0].Port = 1

	e, _ := d.Entry(0)
	assert.Equal(t, 4003, e.Port)
}

func TestNew_Validation(t *testing.T) {
	good := Entry{Seed: 1, Port: 4003, PeerID: "x", Host: "/ip4/127.0.0.1"}

	_, err := New([]Entry{good, {Seed: 2, Port: 0, PeerID: "y", Host: "/ip4/127.0.0.1"}}, "")
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = New([]Entry{good, {Seed: 1, Port: 4004, PeerID: "y", Host: "/ip4/127.0.0.1"}}, "")
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = New([]Entry{{Seed: 1, Port: 4003, Host: "/ip4/127.0.0.1"}}, "")
	assert.ErrorIs(t, err, ErrInvalidEntry)

	empty, err := New(nil, "")
	require.NoError(t, err)
	_, err = empty.WellKnown()
	assert.ErrorIs(t, err, ErrNoWellKnown)
}

// TestEntry_AddrInfo_Malformed 错误的 peer id 在解析时报错
func TestEntry_AddrInfo_Malformed(t *testing.T) {
	d, err := New([]Entry{{Seed: 1, Port: 4003, PeerID: "not-a-peer-id", Host: "/ip4/127.0.0.1"}}, "")
	require.NoError(t, err)

	e, _ := d.Entry(0)
	_, err = e.AddrInfo()
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = d.WellKnown()
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestFromConfig(t *testing.T) {
	t.Run("DefaultWithOverride", func(t *testing.T) {
		d, err := FromConfig(config.DirectoryConfig{WellKnown: "/dns4/boot.example/tcp/4003/p2p/abc"})
		require.NoError(t, err)
		assert.Equal(t, 5, d.Len())
		assert.Equal(t, "/dns4/boot.example/tcp/4003/p2p/abc", d.WellKnownAddr())
	})

	t.Run("CustomEntries", func(t *testing.T) {
		d, err := FromConfig(config.DirectoryConfig{Entries: []config.DirectoryEntry{
			{Seed: 9, Port: 5000, Host: "/ip4/10.0.0.1"},
			{Seed: 10, Port: 5001, Host: "/ip4/10.0.0.2"},
		}})
		require.NoError(t, err)
		require.Equal(t, 2, d.Len())

		e, _ := d.Entry(1)
		want, _ := identity.PeerIDFromSeed(10)
		assert.Equal(t, want.String(), e.PeerID)
		assert.Equal(t, "/ip4/10.0.0.1/tcp/5000/p2p/", d.WellKnownAddr()[:len("/ip4/10.0.0.1/tcp/5000/p2p/")])
	})
}

func TestIndexOf(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	i, ok := d.IndexOf(3)
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = d.IndexOf(200)
	assert.False(t, ok)
}

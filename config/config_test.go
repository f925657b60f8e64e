package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfig 默认配置必须可用
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, RolePeer, cfg.Role)
	assert.Equal(t, time.Second, cfg.Peer.ListenWindow.Std())
	assert.Equal(t, 3*time.Minute, cfg.Bootstrap.Interval.Std())
	assert.Equal(t, time.Second, cfg.Bootstrap.Stagger.Std())
	assert.False(t, cfg.Bootstrap.PruneOnDisconnect)
	assert.Equal(t, "chat", cfg.Peer.Topic)
	assert.Equal(t, uint32(16*1024*1024), cfg.Transport.YamuxMaxWindow)
}

func TestConfig_Validate(t *testing.T) {
	t.Run("UnknownRole", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Role = "relay"
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("ZeroInstances", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Instances = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("PeerMultiInstance", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Instances = 3
		assert.Error(t, cfg.Validate())

		cfg.Role = RoleBootstrap
		assert.NoError(t, cfg.Validate())
	})

	t.Run("NoTransport", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Transport.EnableTCP = false
		assert.Error(t, cfg.Validate())
	})

	t.Run("BadDirectoryPort", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Directory.Entries = []DirectoryEntry{{Seed: 1, Port: 70000, Host: "/ip4/127.0.0.1"}}
		assert.Error(t, cfg.Validate())
	})

	t.Run("BadLogFormat", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Log.Format = "xml"
		assert.Error(t, cfg.Validate())
	})
}

// TestFromJSON JSON 只覆盖出现的字段
func TestFromJSON(t *testing.T) {
	data := []byte(`{
		"role": "bootstrap",
		"seed": 3,
		"instances": 4,
		"bootstrap": {"interval": "90s"},
		"peer": {"listen_window": 2000000000}
	}`)

	cfg, err := FromJSON(data)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, RoleBootstrap, cfg.Role)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, uint8(3), *cfg.Seed)
	assert.Equal(t, 4, cfg.Instances)
	assert.Equal(t, 90*time.Second, cfg.Bootstrap.Interval.Std())
	assert.Equal(t, 2*time.Second, cfg.Peer.ListenWindow.Std())
	// 未出现的字段保持默认
	assert.Equal(t, time.Second, cfg.Bootstrap.Stagger.Std())
	assert.Equal(t, "/meshnode", cfg.Routing.ProtocolPrefix)
}

func TestFromJSON_BadDuration(t *testing.T) {
	_, err := FromJSON([]byte(`{"bootstrap": {"interval": "soon"}}`))
	assert.Error(t, err)

	_, err = FromJSON([]byte(`{"bootstrap": {"interval": true}}`))
	assert.Error(t, err)
}

func TestDuration_MarshalJSON(t *testing.T) {
	cfg := NewConfig()
	data, err := cfg.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"interval": "3m0s"`)

	back, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, cfg.Bootstrap, back.Bootstrap)
}

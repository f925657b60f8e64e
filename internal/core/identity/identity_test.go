package identity

import (
	"testing"

	"github.com/libp2p/go-libp2p/core/crypto/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFromSeed_Deterministic 相同种子得到相同 peer id
func TestFromSeed_Deterministic(t *testing.T) {
	a, err := FromSeed(1)
	require.NoError(t, err)
	b, err := FromSeed(1)
	require.NoError(t, err)

	assert.Equal(t, a.ID(), b.ID())
	assert.True(t, a.PrivKey().Equals(b.PrivKey()))
	assert.Equal(t, a.ID().String(), a.String())
}

// TestFromSeed_Distinct 不同种子得到不同 peer id
func TestFromSeed_Distinct(t *testing.T) {
	seen := make(map[string]uint8)
	for seed := 0; seed <= 255; seed += 17 {
		id, err := FromSeed(uint8(seed))
		require.NoError(t, err)
		prev, dup := seen[id.String()]
		require.False(t, dup, "seed %d collides with %d", seed, prev)
		seen[id.String()] = uint8(seed)
	}
}

func TestRandom(t *testing.T) {
	a, err := Random()
	require.NoError(t, err)
	b, err := Random()
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, pb.KeyType_Ed25519, a.PrivKey().Type())
}

// TestSeededKey_MatchesIdentity 公钥推导出的 id 与身份一致
func TestSeededKey_MatchesIdentity(t *testing.T) {
	id, err := FromSeed(3)
	require.NoError(t, err)

	assert.True(t, id.ID().MatchesPublicKey(id.PubKey()))

	pid, err := PeerIDFromSeed(3)
	require.NoError(t, err)
	assert.Equal(t, id.ID(), pid)
}

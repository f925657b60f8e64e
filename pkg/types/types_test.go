package types

import (
	"testing"

	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole("peer")
	require.NoError(t, err)
	assert.Equal(t, RolePeer, r)

	r, err = ParseRole(" Bootstrap ")
	require.NoError(t, err)
	assert.Equal(t, RoleBootstrap, r)

	_, err = ParseRole("relay")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "listening", PhaseListening.String())
	assert.Equal(t, "connecting-to-bootstrap", PhaseConnectingToBootstrap.String())
	assert.Equal(t, "steady", PhaseSteady.String())
	assert.Equal(t, "unknown", Phase(99).String())
}

// TestEvent_Kinds 每个变体都有独立且有名字的标签
func TestEvent_Kinds(t *testing.T) {
	events := []Event{
		EvtNewListenAddr{}, EvtListenClosed{}, EvtConnectionEstablished{},
		EvtConnectionClosed{}, EvtDialFailed{}, EvtHandshakeSent{},
		EvtHandshakeReceived{}, EvtHandshakeFailed{}, EvtPing{},
		EvtGossipMessage{}, EvtReservationAccepted{}, EvtReservationFailed{},
		EvtRelayServer{}, EvtHolePunch{}, EvtLocalPeerDiscovered{},
	}

	seen := make(map[EventKind]bool)
	for _, e := range events {
		k := e.Kind()
		assert.False(t, seen[k], "duplicate kind %s", k)
		seen[k] = true
		assert.NotEqual(t, "unknown", k.String())
	}
	assert.Equal(t, "unknown", EventKind(-1).String())
}

func TestHasProtocol(t *testing.T) {
	list := []protocol.ID{"/ipfs/ping/1.0.0", "/meshnode/kad/1.0.0"}
	assert.True(t, HasProtocol(list, "/meshnode/kad/1.0.0"))
	assert.False(t, HasProtocol(list, "/ipfs/kad/1.0.0"))
	assert.False(t, HasProtocol(nil, "/meshnode/kad/1.0.0"))

	evt := EvtHandshakeReceived{Protocols: list}
	assert.True(t, evt.SupportsProtocol("/ipfs/ping/1.0.0"))
}

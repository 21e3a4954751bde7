package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionAllowsHappyPath(t *testing.T) {
	require.NoError(t, transition(StateCreated, StateWarmingUp))
	require.NoError(t, transition(StateWarmingUp, StateReady))
	require.NoError(t, transition(StateReady, StateRunning))
	require.NoError(t, transition(StateRunning, StateStopping))
	require.NoError(t, transition(StateStopping, StateStopped))
}

func TestTransitionAllowsReconnectRoundTrip(t *testing.T) {
	require.NoError(t, transition(StateRunning, StateReconnecting))
	require.NoError(t, transition(StateReconnecting, StateRunning))
}

func TestTransitionErrorAlwaysLeadsToStopping(t *testing.T) {
	for _, from := range []State{StateCreated, StateWarmingUp, StateReady, StateRunning, StateReconnecting} {
		require.NoError(t, transition(from, StateError))
	}
	require.NoError(t, transition(StateError, StateStopping))
}

func TestTransitionRejectsInvalidEdges(t *testing.T) {
	require.Error(t, transition(StateCreated, StateRunning))
	require.Error(t, transition(StateStopped, StateRunning))
	require.Error(t, transition(StateError, StateRunning))
}

func TestEngineStartThenDoubleStartFails(t *testing.T) {
	e := &Engine{state: StateCreated}
	require.NoError(t, e.Start())
	require.Equal(t, StateWarmingUp, e.State())
	require.Error(t, e.Start())
}

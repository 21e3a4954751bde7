package play

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const minimalPlayYAML = `
id: test-play
version: "1"
account:
  initial_equity: 10000
  max_leverage: 5
  taker_fee_rate: 0.0006
  maker_fee_rate: 0.0002
  max_drawdown_pct: 0.3
timeframe:
  low_tf: "5m"
  med_tf: "15m"
  high_tf: "1h"
  exec: low_tf
features:
  - id: ema20
    indicator_type: ema
    params: {length: 20}
    tf_role: low_tf
  - id: ema50
    indicator_type: ema
    params: {length: 50}
    tf_role: low_tf
structures:
  - key: swing1
    type: swing
    tf_role: low_tf
    params: {left: 2, right: 2}
actions:
  - id: entry_long
    when: ["ema20", "cross_above", "ema50"]
    emit: {side: long, size_pct: 1.0}
risk:
  sizing_mode: fixed_pct
  size_pct: 1.0
  sl_pct: 0.02
  tp_pct: 0.04
position:
  allow_long: true
  allow_short: false
  exit_mode: first_hit
`

func TestDecodeMinimalPlay(t *testing.T) {
	p, err := Decode([]byte(minimalPlayYAML))
	require.NoError(t, err)
	require.Equal(t, "test-play", p.ID)
	require.Len(t, p.Features, 2)
	require.Len(t, p.Structures, 1)
	require.Equal(t, ExitModeFirstHit, p.Position.ExitMode)
}

func TestDecodeRejectsMissingID(t *testing.T) {
	_, err := Decode([]byte(`account: {initial_equity: 1, max_leverage: 1}`))
	require.Error(t, err)
}

func TestDecodeRejectsBadTimeframeLabel(t *testing.T) {
	bad := `
id: x
account: {initial_equity: 1, max_leverage: 1}
timeframe: {low_tf: "7m", med_tf: "15m", high_tf: "1h", exec: low_tf}
position: {allow_long: true, exit_mode: first_hit}
`
	_, err := Decode([]byte(bad))
	require.Error(t, err)
}

func TestDecodeRejectsDuplicateInstanceNames(t *testing.T) {
	bad := `
id: x
account: {initial_equity: 1, max_leverage: 1}
timeframe: {low_tf: "5m", med_tf: "15m", high_tf: "1h", exec: low_tf}
features:
  - id: dup
    indicator_type: ema
    tf_role: low_tf
structures:
  - key: dup
    type: swing
    tf_role: low_tf
position: {allow_long: true, exit_mode: first_hit}
`
	_, err := Decode([]byte(bad))
	require.Error(t, err)
}

func TestDecodeRejectsNeitherSideAllowed(t *testing.T) {
	bad := `
id: x
account: {initial_equity: 1, max_leverage: 1}
timeframe: {low_tf: "5m", med_tf: "15m", high_tf: "1h", exec: low_tf}
position: {allow_long: false, allow_short: false, exit_mode: first_hit}
`
	_, err := Decode([]byte(bad))
	require.Error(t, err)
}

func TestPlayHashIsStableAndDeterministic(t *testing.T) {
	p1, err := Decode([]byte(minimalPlayYAML))
	require.NoError(t, err)
	p2, err := Decode([]byte(minimalPlayYAML))
	require.NoError(t, err)
	h1, err := p1.Hash()
	require.NoError(t, err)
	h2, err := p2.Hash()
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Len(t, h1, 16)
}

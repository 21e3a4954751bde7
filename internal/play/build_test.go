package play

import (
	"testing"

	"github.com/playcore/derivcore/internal/bar"
	"github.com/stretchr/testify/require"
)

func TestBuildWiresIndicatorsStructuresAndBlocks(t *testing.T) {
	p, err := Decode([]byte(minimalPlayYAML))
	require.NoError(t, err)

	c, err := Build(p)
	require.NoError(t, err)
	require.NotEmpty(t, c.Hash)
	require.Len(t, c.Indicators, 2)
	require.Len(t, c.Structures, 1)
	require.Len(t, c.Blocks, 1)
	require.Equal(t, "entry_long", c.Blocks[0].ID)

	// ema20/ema50 both declared with length 20/50: warmup required on
	// low_tf must be at least the larger one's safety-margined estimate.
	require.Greater(t, c.WarmupRequired[bar.RoleLow], 50)
}

func TestBuildRejectsUnknownIndicatorType(t *testing.T) {
	bad := `
id: x
account: {initial_equity: 1, max_leverage: 1}
timeframe: {low_tf: "5m", med_tf: "15m", high_tf: "1h", exec: low_tf}
features:
  - id: f1
    indicator_type: not_a_real_indicator
    tf_role: low_tf
position: {allow_long: true, exit_mode: first_hit}
`
	p, err := Decode([]byte(bad))
	require.NoError(t, err)
	_, err = Build(p)
	require.Error(t, err)
}

func TestBuildRejectsUnresolvedDSLReference(t *testing.T) {
	bad := `
id: x
account: {initial_equity: 1, max_leverage: 1}
timeframe: {low_tf: "5m", med_tf: "15m", high_tf: "1h", exec: low_tf}
features:
  - id: ema20
    indicator_type: ema
    tf_role: low_tf
actions:
  - id: entry
    when: ["ema20", ">", "ghost_feature"]
    emit: {side: long}
position: {allow_long: true, exit_mode: first_hit}
`
	p, err := Decode([]byte(bad))
	require.NoError(t, err)
	_, err = Build(p)
	require.Error(t, err)
}

func TestBuildRejectsStructureMissingRequiredDependency(t *testing.T) {
	bad := `
id: x
account: {initial_equity: 1, max_leverage: 1}
timeframe: {low_tf: "5m", med_tf: "15m", high_tf: "1h", exec: low_tf}
structures:
  - key: trend1
    type: trend
    tf_role: low_tf
position: {allow_long: true, exit_mode: first_hit}
`
	p, err := Decode([]byte(bad))
	require.NoError(t, err)
	_, err = Build(p)
	require.Error(t, err)
}

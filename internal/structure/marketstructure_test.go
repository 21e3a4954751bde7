package structure

import (
	"testing"

	"github.com/playcore/derivcore/internal/bar"
	"github.com/stretchr/testify/require"
)

// fakeSwing is a minimal stand-in Detector that reports a fixed pair
// output, letting MarketStructure/Trend/Fibonacci tests drive scenarios
// without going through the full fractal-pivot FSM.
type fakeSwing struct {
	out   Output
	ready bool
}

func (f *fakeSwing) Update(barIdx int64, c bar.Candle) error { return nil }
func (f *fakeSwing) Output() Output                           { return f.out }
func (f *fakeSwing) IsReady() bool                            { return f.ready }
func (f *fakeSwing) Reset()                                   {}

func TestMarketStructureCHoCHTakesPriorityOverBOS(t *testing.T) {
	swing := &fakeSwing{ready: true, out: Output{
		"high_level": 110.0, "low_level": 90.0, "pair_version": 1, "pair_direction": PairBullish,
	}}
	det, err := NewMarketStructure(Params{}, Deps{Structures: map[string]Detector{"swing": swing}})
	require.NoError(t, err)
	ms := det.(*MarketStructure)

	// Establish bullish bias first (close above the swing high).
	require.NoError(t, ms.Update(0, bar.Candle{Close: 111}))
	out := ms.Output()
	require.Equal(t, 1, out["bias"])
	require.Equal(t, 1, out["bos_this_bar"])

	// A bar whose close breaks BOTH the low (CHoCH) and would-be BOS level
	// on the opposite side is impossible simultaneously in practice, but
	// the priority rule is: while bias==1, only the CHoCH branch (break of
	// the low) is evaluated; the BOS branch never runs once CHoCH fires.
	require.NoError(t, ms.Update(1, bar.Candle{Close: 85})) // breaks low -> CHoCH, bias flips to -1
	out = ms.Output()
	require.Equal(t, -1, out["bias"])
	require.Equal(t, 1, out["choch_this_bar"])
	require.Equal(t, 0, out["bos_this_bar"])

	// Next bar: the broken level must not re-arm a same-level BOS.
	require.NoError(t, ms.Update(2, bar.Candle{Close: 95}))
	out = ms.Output()
	require.Equal(t, 0, out["bos_this_bar"])
	require.Equal(t, 0, out["choch_this_bar"])
}

func TestMarketStructureNotReadyBeforeFirstPair(t *testing.T) {
	swing := &fakeSwing{ready: false, out: Output{"pair_version": 0, "pair_direction": PairNone}}
	det, err := NewMarketStructure(Params{}, Deps{Structures: map[string]Detector{"swing": swing}})
	require.NoError(t, err)
	require.False(t, det.IsReady())
	require.NoError(t, det.Update(0, bar.Candle{Close: 100}))
	out := det.Output()
	require.Equal(t, 0, out["bias"])
}

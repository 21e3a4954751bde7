package structure

import (
	"testing"

	"github.com/playcore/derivcore/internal/bar"
	"github.com/stretchr/testify/require"
)

func TestTrendClassifiesHigherHighsHigherLows(t *testing.T) {
	swing := &mutableSwing{ready: true}
	det, err := NewTrend(Params{}, Deps{Structures: map[string]Detector{"swing": swing}})
	require.NoError(t, err)
	tr := det.(*Trend)

	// Build an alternating H,L,H,L wave with each leg higher than the last.
	pairs := []struct {
		dir            PairDirection
		high, low      float64
	}{
		{PairBullish, 100, 80},
		{PairBearish, 105, 90},
		{PairBullish, 115, 95},
		{PairBearish, 120, 100},
	}
	for i, p := range pairs {
		swing.version = i + 1
		swing.dir = p.dir
		swing.highLevel, swing.lowLevel = p.high, p.low
		require.NoError(t, tr.Update(int64(i), bar.Candle{}))
	}
	out := tr.Output()
	require.Equal(t, 1, out["direction"])
	require.Equal(t, 2.0, out["strength"])
}

func TestTrendRangingOnAmbiguousWaves(t *testing.T) {
	swing := &mutableSwing{ready: true}
	det, err := NewTrend(Params{}, Deps{Structures: map[string]Detector{"swing": swing}})
	require.NoError(t, err)
	tr := det.(*Trend)

	pairs := []struct {
		dir       PairDirection
		high, low float64
	}{
		{PairBullish, 100, 80},
		{PairBearish, 105, 75}, // lower low than previous low leg (80->75) but higher high
		{PairBullish, 102, 95},
		{PairBearish, 108, 70},
	}
	for i, p := range pairs {
		swing.version = i + 1
		swing.dir = p.dir
		swing.highLevel, swing.lowLevel = p.high, p.low
		require.NoError(t, tr.Update(int64(i), bar.Candle{}))
	}
	out := tr.Output()
	require.Equal(t, 1.0, out["strength"]) // only one leg agrees: ambiguous/partial
}

package structure

import (
	"testing"

	"github.com/playcore/derivcore/internal/bar"
	"github.com/stretchr/testify/require"
)

func candleHL(high, low float64) bar.Candle {
	return bar.Candle{Open: (high + low) / 2, High: high, Low: low, Close: (high + low) / 2, Volume: 1}
}

func TestSwingDetectsAlternatingPairs(t *testing.T) {
	det, err := NewSwing(Params{"left": 1, "right": 1}, Deps{})
	require.NoError(t, err)
	s := det.(*Swing)

	// Sequence: low pivot at idx 1 (low=5), high pivot at idx 3 (high=15).
	highs := []float64{10, 8, 9, 15, 11, 12, 6}
	lows := []float64{8, 5, 7, 12, 9, 4, 3}
	for i := 0; i < len(highs); i++ {
		require.NoError(t, s.Update(int64(i), candleHL(highs[i], lows[i])))
	}

	out := s.Output()
	require.Equal(t, PairDirection("bullish"), out["pair_direction"])
	require.True(t, out["pair_version"].(int) >= 1)
}

func TestSwingRejectsNonIncreasingBarIdx(t *testing.T) {
	det, err := NewSwing(Params{"left": 1, "right": 1}, Deps{})
	require.NoError(t, err)
	require.NoError(t, det.Update(1, candleHL(10, 8)))
	require.Error(t, det.Update(1, candleHL(11, 9)))
	require.Error(t, det.Update(0, candleHL(11, 9)))
}

func TestSwingEqualHighDisqualifies(t *testing.T) {
	det, err := NewSwing(Params{"left": 1, "right": 1}, Deps{})
	require.NoError(t, err)
	s := det.(*Swing)
	// center bar's high equals a neighbor's high: not a pivot.
	candles := []bar.Candle{candleHL(10, 5), candleHL(10, 5), candleHL(8, 4)}
	for i, c := range candles {
		require.NoError(t, s.Update(int64(i), c))
	}
	require.False(t, s.IsReady())
}

func TestSwingResetClearsState(t *testing.T) {
	det, err := NewSwing(Params{"left": 1, "right": 1}, Deps{})
	require.NoError(t, err)
	s := det.(*Swing)
	require.NoError(t, s.Update(0, candleHL(10, 8)))
	require.NoError(t, s.Update(1, candleHL(8, 5)))
	require.NoError(t, s.Update(2, candleHL(9, 7)))
	s.Reset()
	require.False(t, s.IsReady())
	require.Equal(t, 0, s.AnchorVersion())
}

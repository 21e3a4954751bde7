package structure

import (
	"testing"

	"github.com/playcore/derivcore/internal/bar"
	"github.com/stretchr/testify/require"
)

func TestFibLevelKeyCanonicalFormatting(t *testing.T) {
	require.Equal(t, "level_0.618", FibLevelKey(0.618))
	require.Equal(t, "level_1", FibLevelKey(1))
	require.Equal(t, "level_2", FibLevelKey(2))
}

func TestFibonacciRecomputesOnNewPair(t *testing.T) {
	swing := &mutableSwing{ready: true}
	det, err := NewFibonacci(Params{}, Deps{Structures: map[string]Detector{"swing": swing}})
	require.NoError(t, err)
	f := det.(*Fibonacci)
	require.False(t, f.IsReady())

	swing.version = 1
	swing.highLevel, swing.lowLevel = 110, 90
	require.NoError(t, f.Update(0, bar.Candle{}))
	out := f.Output()
	require.True(t, f.IsReady())
	require.InDelta(t, 110-0.618*20, out["level_0.618"].(float64), 1e-9)
	require.InDelta(t, 90.0, out["level_1"].(float64), 1e-9)
}

func TestFibonacciTrendAnchoredFreezesWhileRanging(t *testing.T) {
	swing := &mutableSwing{ready: true}
	trend := &fakeTrend{direction: 0}
	det, err := NewFibonacci(Params{"mode": FibModeTrendAnchored}, Deps{
		Structures: map[string]Detector{"swing": swing, "trend": trend},
	})
	require.NoError(t, err)
	f := det.(*Fibonacci)

	swing.version = 1
	swing.highLevel, swing.lowLevel = 100, 80
	require.NoError(t, f.Update(0, bar.Candle{}))
	require.False(t, f.IsReady()) // ranging: frozen, never activated

	trend.direction = 1
	swing.version = 2
	swing.highLevel, swing.lowLevel = 120, 90
	require.NoError(t, f.Update(1, bar.Candle{}))
	require.True(t, f.IsReady())
	require.InDelta(t, 90.0, f.Output()["level_1"].(float64), 1e-9)
}

type fakeTrend struct {
	direction int
}

func (f *fakeTrend) Update(barIdx int64, c bar.Candle) error { return nil }
func (f *fakeTrend) Output() Output                           { return Output{"direction": f.direction} }
func (f *fakeTrend) IsReady() bool                            { return true }
func (f *fakeTrend) Reset()                                   {}

package structure

import (
	"github.com/playcore/derivcore/internal/bar"
	"github.com/playcore/derivcore/internal/indicator"
)

// fakeIndicator is a minimal stand-in indicator.Indicator for structure
// tests that need an ATR-shaped dependency without building a real one.
type fakeIndicator struct {
	val   float64
	ready bool
}

func (f *fakeIndicator) Update(c bar.Candle)        {}
func (f *fakeIndicator) Value() indicator.Value     { return indicator.Value{"value": f.val} }
func (f *fakeIndicator) IsReady() bool              { return f.ready }
func (f *fakeIndicator) Reset()                     {}

// mutableSwing lets a test advance pair_version/levels bar by bar without
// going through the fractal-pivot FSM.
type mutableSwing struct {
	highLevel, lowLevel float64
	highIdx, lowIdx     int64
	version             int
	dir                 PairDirection
	ready               bool
}

func (m *mutableSwing) Update(barIdx int64, c bar.Candle) error { return nil }
func (m *mutableSwing) IsReady() bool                           { return m.ready }
func (m *mutableSwing) Reset()                                  {}
func (m *mutableSwing) Output() Output {
	return Output{
		"high_level": m.highLevel, "low_level": m.lowLevel,
		"high_idx": m.highIdx, "low_idx": m.lowIdx,
		"pair_version": m.version, "pair_direction": m.dir,
	}
}
func (m *mutableSwing) AnchorVersion() int { return m.version }

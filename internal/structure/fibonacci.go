// FILE: fibonacci.go
// Package structure – Fibonacci: consumes Swing and optionally Trend (spec
// §4.3). Two modes: "paired" recomputes levels on every new swing pair;
// "trend_anchored" additionally freezes levels while trend.direction==0
// (ranging), only refreshing once a trend re-establishes. Retracement
// formula: level = high - ratio*(high-low); ratios outside [0,1] produce
// extension levels with the same formula, no branch needed.
package structure

import (
	"strconv"

	"github.com/playcore/derivcore/internal/bar"
)

const (
	FibModePaired        = "paired"
	FibModeTrendAnchored = "trend_anchored"
)

var defaultFibRatios = []float64{0, 0.236, 0.382, 0.5, 0.618, 0.786, 1, 1.272, 1.618, 2}

type Fibonacci struct {
	swing Detector
	trend Detector // nil unless mode == trend_anchored

	mode   string
	ratios []float64

	lastSeenVersion int
	high, low       float64
	levels          map[string]float64
	haveLevels      bool

	lastBarIdx int64
	hasLast    bool
}

func NewFibonacci(p Params, deps Deps) (Detector, error) {
	swing, err := deps.structure("swing")
	if err != nil {
		return nil, err
	}
	mode := p.String("mode", FibModePaired)
	f := &Fibonacci{swing: swing, mode: mode, lastSeenVersion: -1, ratios: defaultFibRatios, levels: map[string]float64{}}
	if raw, ok := p["ratios"]; ok {
		if xs, ok := raw.([]float64); ok && len(xs) > 0 {
			f.ratios = xs
		}
	}
	if mode == FibModeTrendAnchored {
		trend, err := deps.structure("trend")
		if err != nil {
			return nil, err
		}
		f.trend = trend
	}
	return f, nil
}

// FibLevelKey canonically formats a ratio into a DSL-addressable key,
// e.g. 0.618 -> "level_0.618", 1 -> "level_1" (spec §4.3, §4.4 bracket
// normalization fib.level[0.618] == fib.level_0.618).
func FibLevelKey(ratio float64) string {
	return "level_" + strconv.FormatFloat(ratio, 'f', -1, 64)
}

func (f *Fibonacci) Update(barIdx int64, c bar.Candle) error {
	if f.hasLast && barIdx <= f.lastBarIdx {
		return errNonIncreasing("fibonacci", f.lastBarIdx, barIdx)
	}
	f.lastBarIdx = barIdx
	f.hasLast = true

	out := f.swing.Output()
	version, _ := out["pair_version"].(int)
	newPair := version != f.lastSeenVersion && version > 0
	f.lastSeenVersion = version

	frozen := false
	if f.mode == FibModeTrendAnchored && f.trend != nil {
		trendOut := f.trend.Output()
		dir, _ := trendOut["direction"].(int)
		frozen = dir == 0
	}

	if newPair && !frozen {
		high, _ := out["high_level"].(float64)
		low, _ := out["low_level"].(float64)
		f.high, f.low = high, low
		f.recompute()
		f.haveLevels = true
	}
	return nil
}

func (f *Fibonacci) recompute() {
	for _, r := range f.ratios {
		f.levels[FibLevelKey(r)] = f.high - r*(f.high-f.low)
	}
}

func (f *Fibonacci) Output() Output {
	out := make(Output, len(f.levels))
	for k, v := range f.levels {
		out[k] = v
	}
	return out
}

func (f *Fibonacci) IsReady() bool { return f.haveLevels }

func (f *Fibonacci) Reset() {
	swing, trend, mode, ratios := f.swing, f.trend, f.mode, f.ratios
	*f = Fibonacci{swing: swing, trend: trend, mode: mode, ratios: ratios, lastSeenVersion: -1, levels: map[string]float64{}}
}

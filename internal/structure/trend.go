// FILE: trend.go
// Package structure – Trend: consumes Swing, tracks a short wave history of
// confirmed pivots, and classifies higher-high/higher-low vs lower-high/
// lower-low sequences (spec §4.3). Ranging when the wave sequence is
// ambiguous (one leg agrees, the other disagrees).
package structure

import "github.com/playcore/derivcore/internal/bar"

type wavePoint struct {
	polarity pivotPolarity
	level    float64
}

// Trend implements Detector.
type Trend struct {
	swing Detector

	lastSeenVersion int
	waves           []wavePoint // last 4 alternating confirmed pivots, oldest first

	direction   int
	strength    float64
	barsInTrend int64
	lastBarIdx  int64
	hasLast     bool
}

func NewTrend(p Params, deps Deps) (Detector, error) {
	swing, err := deps.structure("swing")
	if err != nil {
		return nil, err
	}
	return &Trend{swing: swing, lastSeenVersion: -1}, nil
}

func (t *Trend) Update(barIdx int64, c bar.Candle) error {
	if t.hasLast && barIdx <= t.lastBarIdx {
		return errNonIncreasing("trend", t.lastBarIdx, barIdx)
	}
	t.lastBarIdx = barIdx
	t.hasLast = true

	out := t.swing.Output()
	version, _ := out["pair_version"].(int)
	if version != t.lastSeenVersion {
		t.lastSeenVersion = version
		dir, _ := out["pair_direction"].(PairDirection)
		var wp wavePoint
		switch dir {
		case PairBullish:
			level, _ := out["high_level"].(float64)
			wp = wavePoint{polarity: polarityHigh, level: level}
		case PairBearish:
			level, _ := out["low_level"].(float64)
			wp = wavePoint{polarity: polarityLow, level: level}
		default:
			wp = wavePoint{}
		}
		if dir != PairNone {
			t.waves = append(t.waves, wp)
			if len(t.waves) > 4 {
				t.waves = t.waves[len(t.waves)-4:]
			}
			t.recompute()
		}
	}
	t.barsInTrend++
	return nil
}

func (t *Trend) recompute() {
	var highs, lows []float64
	for _, w := range t.waves {
		switch w.polarity {
		case polarityHigh:
			highs = append(highs, w.level)
		case polarityLow:
			lows = append(lows, w.level)
		}
	}
	if len(highs) < 2 || len(lows) < 2 {
		return
	}
	lastHigh, prevHigh := highs[len(highs)-1], highs[len(highs)-2]
	lastLow, prevLow := lows[len(lows)-1], lows[len(lows)-2]

	hh := lastHigh > prevHigh
	hl := lastLow > prevLow
	lh := lastHigh < prevHigh
	ll := lastLow < prevLow

	newDir := 0
	var newStrength float64
	switch {
	case hh && hl:
		newDir, newStrength = 1, 2
	case lh && ll:
		newDir, newStrength = -1, 2
	case hh || hl || lh || ll:
		// Mixed legs: ranging, with partial strength.
		newDir, newStrength = 0, 1
	}
	if newDir != t.direction {
		t.barsInTrend = 0
	}
	t.direction = newDir
	t.strength = newStrength
}

func (t *Trend) Output() Output {
	return Output{
		"direction":     t.direction,
		"strength":      t.strength,
		"bars_in_trend": t.barsInTrend,
	}
}

func (t *Trend) IsReady() bool { return len(t.waves) >= 4 }

func (t *Trend) Reset() {
	swing := t.swing
	*t = Trend{swing: swing, lastSeenVersion: -1}
}

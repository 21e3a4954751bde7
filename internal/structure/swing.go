// FILE: swing.go
// Package structure – Swing: fractal pivot detector with a paired-event
// FSM (spec §4.3). A bar at the center of a left+right window is a swing
// high iff its high is strictly greater than every neighbor's high in the
// window (equal highs disqualify the bar as a pivot); symmetric rule for
// swing lows. Confirmed pivots alternate polarity into H-L/L-H pairs; a
// same-type pivot replaces the still-pending one instead of pairing.
package structure

import (
	"github.com/playcore/derivcore/internal/bar"
	"github.com/playcore/derivcore/internal/indicator"
)

// PairDirection names the polarity of the most recently confirmed pair.
type PairDirection string

const (
	PairNone     PairDirection = "none"
	PairBullish  PairDirection = "bullish" // low -> high
	PairBearish  PairDirection = "bearish" // high -> low
)

type pivotPolarity int

const (
	polarityNone pivotPolarity = iota
	polarityHigh
	polarityLow
)

type candleSlot struct {
	idx   int64
	high  float64
	low   float64
}

// Swing implements Detector.
type Swing struct {
	left, right int
	minATRMove  float64
	majorMult   float64
	atr         indicator.Indicator // optional significance filter; nil if unused

	window []candleSlot // left+right+1 most recent candles, center candidate at len-right-1

	pendingType  pivotPolarity
	pendingIdx   int64
	pendingLevel float64

	highLevel, lowLevel float64
	highIdx, lowIdx     int64
	pairDirection       PairDirection
	pairVersion         int
	isMajor             bool

	lastBarIdx int64
	hasLast    bool
}

func NewSwing(p Params, deps Deps) (Detector, error) {
	s := &Swing{
		left:       p.Int("left", 3),
		right:      p.Int("right", 3),
		minATRMove: p.Float("min_atr_move", 0),
		majorMult:  p.Float("major_threshold", 0),
		pairDirection: PairNone,
	}
	if s.minATRMove > 0 || s.majorMult > 0 {
		atr, err := deps.indicatorDep("atr")
		if err != nil {
			return nil, err
		}
		s.atr = atr
	}
	return s, nil
}

func (s *Swing) Update(barIdx int64, c bar.Candle) error {
	if s.hasLast && barIdx <= s.lastBarIdx {
		return errNonIncreasing("swing", s.lastBarIdx, barIdx)
	}
	s.lastBarIdx = barIdx
	s.hasLast = true

	s.window = append(s.window, candleSlot{idx: barIdx, high: c.High, low: c.Low})
	maxLen := s.left + s.right + 1
	if len(s.window) > maxLen {
		s.window = s.window[len(s.window)-maxLen:]
	}
	if len(s.window) < maxLen {
		return nil
	}

	centerPos := s.left
	center := s.window[centerPos]

	isHigh := true
	isLow := true
	for i, slot := range s.window {
		if i == centerPos {
			continue
		}
		if slot.high >= center.high {
			isHigh = false
		}
		if slot.low <= center.low {
			isLow = false
		}
	}

	atrVal := 0.0
	haveATR := false
	if s.atr != nil && s.atr.IsReady() {
		atrVal = s.atr.Value()["value"]
		haveATR = true
	}

	if isHigh {
		s.confirmPivot(polarityHigh, center.idx, center.high, atrVal, haveATR)
	}
	if isLow {
		s.confirmPivot(polarityLow, center.idx, center.low, atrVal, haveATR)
	}
	return nil
}

func (s *Swing) confirmPivot(p pivotPolarity, idx int64, level float64, atrVal float64, haveATR bool) {
	if s.minATRMove > 0 && haveATR && s.pendingType != polarityNone {
		if move := absF(level - s.pendingLevel); move < s.minATRMove*atrVal {
			return
		}
	}
	switch s.pendingType {
	case polarityNone:
		s.pendingType, s.pendingIdx, s.pendingLevel = p, idx, level
		return
	case p:
		// same-type pivot replaces the pending one.
		s.pendingIdx, s.pendingLevel = idx, level
		return
	}

	// Opposite polarity: the pending pivot and this one form a completed pair.
	var move float64
	if s.pendingType == polarityLow && p == polarityHigh {
		s.lowLevel, s.lowIdx = s.pendingLevel, s.pendingIdx
		s.highLevel, s.highIdx = level, idx
		s.pairDirection = PairBullish
		move = level - s.pendingLevel
	} else {
		s.highLevel, s.highIdx = s.pendingLevel, s.pendingIdx
		s.lowLevel, s.lowIdx = level, idx
		s.pairDirection = PairBearish
		move = s.pendingLevel - level
	}
	s.pairVersion++
	if s.majorMult > 0 && haveATR {
		s.isMajor = absF(move) >= s.majorMult*atrVal
	} else {
		s.isMajor = false
	}
	s.pendingType, s.pendingIdx, s.pendingLevel = p, idx, level
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func (s *Swing) Output() Output {
	return Output{
		"high_level":     s.highLevel,
		"low_level":      s.lowLevel,
		"high_idx":       s.highIdx,
		"low_idx":        s.lowIdx,
		"pair_direction": s.pairDirection,
		"pair_version":   s.pairVersion,
		"major":          s.isMajor,
	}
}

// AnchorVersion satisfies the AnchorVersioner/indicator.AnchorVersioner
// interfaces; it returns the same counter as the "pair_version" output.
func (s *Swing) AnchorVersion() int { return s.pairVersion }

func (s *Swing) IsReady() bool { return s.pairVersion > 0 }

func (s *Swing) Reset() {
	atr := s.atr
	left, right, minMove, major := s.left, s.right, s.minATRMove, s.majorMult
	*s = Swing{left: left, right: right, minATRMove: minMove, majorMult: major, atr: atr, pairDirection: PairNone}
}

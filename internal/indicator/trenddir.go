// FILE: trenddir.go
// Package indicator – directional/trend family: SuperTrend, PSAR, Aroon,
// Vortex, DM, ADX (spec §4.2). ADX seeds DI via ATR and Wilder smoothing;
// is_ready iff at least one DX computed; warmup budget is 2*length.
package indicator

import (
	"math"

	"github.com/playcore/derivcore/internal/bar"
)

// --- SuperTrend ---

type SuperTrend struct {
	atr        *ATR
	mult       float64
	upperBand  float64
	lowerBand  float64
	trendUp    bool
	value      float64
	prevClose  float64
	bars       int
}

func NewSuperTrend(p Params) *SuperTrend {
	return &SuperTrend{atr: NewATR(Params{"length": p.Int("length", 10)}), mult: p.Float("mult", 3.0)}
}
func (s *SuperTrend) Update(c bar.Candle) {
	s.atr.Update(c)
	if !s.atr.IsReady() {
		s.prevClose = c.Close
		return
	}
	atr := s.atr.Value()["value"]
	mid := (c.High + c.Low) / 2
	basicUpper := mid + s.mult*atr
	basicLower := mid - s.mult*atr
	s.bars++
	if s.bars == 1 {
		s.upperBand = basicUpper
		s.lowerBand = basicLower
		s.trendUp = c.Close >= mid
	} else {
		if basicUpper < s.upperBand || s.prevClose > s.upperBand {
			s.upperBand = basicUpper
		}
		if basicLower > s.lowerBand || s.prevClose < s.lowerBand {
			s.lowerBand = basicLower
		}
		if s.trendUp {
			if c.Close < s.lowerBand {
				s.trendUp = false
			}
		} else {
			if c.Close > s.upperBand {
				s.trendUp = true
			}
		}
	}
	if s.trendUp {
		s.value = s.lowerBand
	} else {
		s.value = s.upperBand
	}
	s.prevClose = c.Close
}
func (s *SuperTrend) Value() Value {
	dir := -1.0
	if s.trendUp {
		dir = 1.0
	}
	return Value{"value": s.value, "direction": dir}
}
func (s *SuperTrend) IsReady() bool { return s.atr.IsReady() && s.bars >= 1 }
func (s *SuperTrend) Reset()        { *s = SuperTrend{atr: s.atr, mult: s.mult}; s.atr.Reset() }

// --- Parabolic SAR ---

type PSAR struct {
	step, max  float64
	af         float64
	sar        float64
	ep         float64
	long       bool
	started    bool
	prevHigh   float64
	prevLow    float64
}

func NewPSAR(p Params) *PSAR {
	return &PSAR{step: p.Float("step", 0.02), max: p.Float("max", 0.2)}
}
func (s *PSAR) Update(c bar.Candle) {
	if !s.started {
		s.started = true
		s.long = true
		s.sar = c.Low
		s.ep = c.High
		s.af = s.step
		s.prevHigh, s.prevLow = c.High, c.Low
		return
	}
	prevSAR := s.sar
	s.sar = prevSAR + s.af*(s.ep-prevSAR)
	if s.long {
		if s.sar > math.Min(s.prevLow, c.Low) {
			s.sar = math.Min(s.prevLow, c.Low)
		}
		if c.Low < s.sar {
			s.long = false
			s.sar = s.ep
			s.ep = c.Low
			s.af = s.step
		} else if c.High > s.ep {
			s.ep = c.High
			s.af = math.Min(s.af+s.step, s.max)
		}
	} else {
		if s.sar < math.Max(s.prevHigh, c.High) {
			s.sar = math.Max(s.prevHigh, c.High)
		}
		if c.High > s.sar {
			s.long = true
			s.sar = s.ep
			s.ep = c.High
			s.af = s.step
		} else if c.Low < s.ep {
			s.ep = c.Low
			s.af = math.Min(s.af+s.step, s.max)
		}
	}
	s.prevHigh, s.prevLow = c.High, c.Low
}
func (s *PSAR) Value() Value {
	dir := -1.0
	if s.long {
		dir = 1.0
	}
	return Value{"value": s.sar, "direction": dir}
}
func (s *PSAR) IsReady() bool { return s.started }
func (s *PSAR) Reset()        { *s = PSAR{step: s.step, max: s.max} }

// --- Aroon ---

type Aroon struct {
	length int
	highs  []float64
	lows   []float64
}

func NewAroon(p Params) *Aroon { return &Aroon{length: p.Int("length", 14)} }
func (a *Aroon) Update(c bar.Candle) {
	a.highs = append(a.highs, c.High)
	a.lows = append(a.lows, c.Low)
	if len(a.highs) > a.length+1 {
		a.highs = a.highs[len(a.highs)-(a.length+1):]
		a.lows = a.lows[len(a.lows)-(a.length+1):]
	}
}
func (a *Aroon) Value() Value {
	n := len(a.highs)
	if n == 0 {
		return Value{"up": 0, "down": 0}
	}
	hiIdx, loIdx := 0, 0
	for i := 1; i < n; i++ {
		if a.highs[i] >= a.highs[hiIdx] {
			hiIdx = i
		}
		if a.lows[i] <= a.lows[loIdx] {
			loIdx = i
		}
	}
	periodsSinceHi := n - 1 - hiIdx
	periodsSinceLo := n - 1 - loIdx
	up := 100.0 * float64(a.length-periodsSinceHi) / float64(a.length)
	down := 100.0 * float64(a.length-periodsSinceLo) / float64(a.length)
	return Value{"up": up, "down": down}
}
func (a *Aroon) IsReady() bool { return len(a.highs) >= a.length+1 }
func (a *Aroon) Reset()        { a.highs = nil; a.lows = nil }

// --- Vortex ---

type Vortex struct {
	length            int
	sumVMPlus         *rollingSMA
	sumVMMinus        *rollingSMA
	sumTR             *rollingSMA
	prevHigh, prevLow float64
	prevClose         float64
	hasPrev           bool
}

func NewVortex(p Params) *Vortex {
	length := p.Int("length", 14)
	return &Vortex{length: length, sumVMPlus: newRollingSMA(length), sumVMMinus: newRollingSMA(length), sumTR: newRollingSMA(length)}
}
func (v *Vortex) Update(c bar.Candle) {
	if v.hasPrev {
		vmPlus := math.Abs(c.High - v.prevLow)
		vmMinus := math.Abs(c.Low - v.prevHigh)
		tr := trueRange(v.prevClose, c.High, c.Low)
		v.sumVMPlus.update(vmPlus)
		v.sumVMMinus.update(vmMinus)
		v.sumTR.update(tr)
	}
	v.prevHigh, v.prevLow, v.prevClose = c.High, c.Low, c.Close
	v.hasPrev = true
}
func (v *Vortex) Value() Value {
	trSum := v.sumTR.sum
	if trSum == 0 {
		return Value{"vi_plus": 0, "vi_minus": 0}
	}
	return Value{"vi_plus": v.sumVMPlus.sum / trSum, "vi_minus": v.sumVMMinus.sum / trSum}
}
func (v *Vortex) IsReady() bool { return v.sumTR.ready() }
func (v *Vortex) Reset()        { v.sumVMPlus.reset(); v.sumVMMinus.reset(); v.sumTR.reset(); v.hasPrev = false }

// --- Directional Movement (DI+/DI-) ---

type DM struct {
	length            int
	dmPlusR, dmMinusR *rmaState
	trR               *rmaState
	prevHigh, prevLow float64
	prevClose         float64
	hasPrev           bool
}

func NewDM(p Params) *DM {
	length := p.Int("length", 14)
	return &DM{length: length, dmPlusR: newRMAState(length), dmMinusR: newRMAState(length), trR: newRMAState(length)}
}
func (d *DM) Update(c bar.Candle) {
	if d.hasPrev {
		upMove := c.High - d.prevHigh
		downMove := d.prevLow - c.Low
		dmPlus, dmMinus := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			dmPlus = upMove
		}
		if downMove > upMove && downMove > 0 {
			dmMinus = downMove
		}
		d.dmPlusR.update(dmPlus)
		d.dmMinusR.update(dmMinus)
		d.trR.update(trueRange(d.prevClose, c.High, c.Low))
	}
	d.prevHigh, d.prevLow, d.prevClose = c.High, c.Low, c.Close
	d.hasPrev = true
}
func (d *DM) diPlus() float64 {
	if d.trR.value == 0 {
		return 0
	}
	return 100 * d.dmPlusR.value / d.trR.value
}
func (d *DM) diMinus() float64 {
	if d.trR.value == 0 {
		return 0
	}
	return 100 * d.dmMinusR.value / d.trR.value
}
func (d *DM) Value() Value  { return Value{"di_plus": d.diPlus(), "di_minus": d.diMinus()} }
func (d *DM) IsReady() bool { return d.trR.ready() }
func (d *DM) Reset()        { d.dmPlusR.reset(); d.dmMinusR.reset(); d.trR.reset(); d.hasPrev = false }

// --- ADX: Wilder-smoothed average of DX, seeded via DM/ATR. Warmup budget
// 2*length; ready iff at least one DX has been computed. ---

type ADX struct {
	dm      *DM
	dxR     *rmaState
	started bool
}

func NewADX(p Params) *ADX {
	length := p.Int("length", 14)
	return &ADX{dm: NewDM(Params{"length": length}), dxR: newRMAState(length)}
}
func (a *ADX) Update(c bar.Candle) {
	a.dm.Update(c)
	if !a.dm.IsReady() {
		return
	}
	diPlus, diMinus := a.dm.diPlus(), a.dm.diMinus()
	sum := diPlus + diMinus
	dx := 0.0
	if sum != 0 {
		dx = 100 * math.Abs(diPlus-diMinus) / sum
	}
	a.dxR.update(dx)
	a.started = true
}
func (a *ADX) Value() Value {
	return Value{"adx": a.dxR.value, "di_plus": a.dm.diPlus(), "di_minus": a.dm.diMinus()}
}
func (a *ADX) IsReady() bool { return a.started }
func (a *ADX) Reset()        { a.dm.Reset(); a.dxR.reset(); a.started = false }

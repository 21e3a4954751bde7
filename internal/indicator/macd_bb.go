// FILE: macd_bb.go
// Package indicator – MACD and Bollinger Bands (spec §4.2).
package indicator

import (
	"math"

	"github.com/playcore/derivcore/internal/bar"
)

// --- MACD: two EMAs + signal EMA chained; ready iff signal EMA ready. ---

type MACD struct {
	baseSrc
	fast, slow *emaState
	signal     *emaState
}

func NewMACD(p Params, src bar.Source) *MACD {
	return &MACD{
		baseSrc: baseSrc{src},
		fast:    newEMAState(p.Int("fast", 12)),
		slow:    newEMAState(p.Int("slow", 26)),
		signal:  newEMAState(p.Int("signal", 9)),
	}
}
func (m *MACD) Update(c bar.Candle) {
	x := m.read(c)
	m.fast.update(x)
	m.slow.update(x)
	if m.fast.ready() && m.slow.ready() {
		m.signal.update(m.fast.value - m.slow.value)
	}
}
func (m *MACD) Value() Value {
	macd := m.fast.value - m.slow.value
	return Value{"macd": macd, "signal": m.signal.value, "histogram": macd - m.signal.value}
}
func (m *MACD) IsReady() bool { return m.signal.ready() }
func (m *MACD) Reset()        { m.fast.reset(); m.slow.reset(); m.signal.reset() }

// --- Bollinger Bands: SMA middle + sample-variance (ddof=1) bands. ---

type Bollinger struct {
	baseSrc
	length int
	mult   float64
	window []float64
}

func NewBollinger(p Params, src bar.Source) *Bollinger {
	return &Bollinger{baseSrc: baseSrc{src}, length: p.Int("length", 20), mult: p.Float("mult", 2.0)}
}
func (b *Bollinger) Update(c bar.Candle) {
	b.window = append(b.window, b.read(c))
	if len(b.window) > b.length {
		b.window = b.window[len(b.window)-b.length:]
	}
}
func (b *Bollinger) Value() Value {
	n := len(b.window)
	if n == 0 {
		return Value{"lower": 0, "middle": 0, "upper": 0, "bandwidth": 0, "percent_b": 0}
	}
	sum := 0.0
	for _, v := range b.window {
		sum += v
	}
	mid := sum / float64(n)
	variance := sampleVariance(b.window)
	std := math.Sqrt(variance)
	lower := mid - b.mult*std
	upper := mid + b.mult*std
	bandwidth := 0.0
	if mid != 0 {
		bandwidth = (upper - lower) / mid
	}
	percentB := 0.5
	if upper != lower {
		percentB = (b.window[n-1] - lower) / (upper - lower)
	}
	return Value{"lower": lower, "middle": mid, "upper": upper, "bandwidth": bandwidth, "percent_b": percentB}
}
func (b *Bollinger) IsReady() bool { return len(b.window) >= b.length }
func (b *Bollinger) Reset()        { b.window = nil }

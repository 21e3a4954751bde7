// FILE: ma.go
// Package indicator – trend-smoother family: SMA, EMA, WMA, DEMA, TEMA,
// TRIMA, ZLMA, ALMA, KAMA, LINREG (spec §4.2).
package indicator

import (
	"math"

	"github.com/playcore/derivcore/internal/bar"
)

type baseSrc struct {
	source bar.Source
}

func (b baseSrc) read(c bar.Candle) float64 { return b.source.Value(c) }

// --- SMA ---

type SMA struct {
	baseSrc
	length int
	w      *rollingSMA
}

func NewSMA(p Params, src bar.Source) *SMA {
	length := p.Int("length", 14)
	return &SMA{baseSrc: baseSrc{src}, length: length, w: newRollingSMA(length)}
}
func (s *SMA) Update(c bar.Candle) { s.w.update(s.read(c)) }
func (s *SMA) Value() Value        { return Value{"value": s.w.mean()} }
func (s *SMA) IsReady() bool       { return s.w.ready() }
func (s *SMA) Reset()              { s.w.reset() }

// --- EMA ---

type EMA struct {
	baseSrc
	e *emaState
}

func NewEMA(p Params, src bar.Source) *EMA {
	return &EMA{baseSrc: baseSrc{src}, e: newEMAState(p.Int("length", 14))}
}
func (m *EMA) Update(c bar.Candle) { m.e.update(m.read(c)) }
func (m *EMA) Value() Value        { return Value{"value": m.e.value} }
func (m *EMA) IsReady() bool       { return m.e.ready() }
func (m *EMA) Reset()              { m.e.reset() }

// --- WMA (linearly weighted moving average; O(window) by nature) ---

type WMA struct {
	baseSrc
	length int
	window []float64
}

func NewWMA(p Params, src bar.Source) *WMA {
	return &WMA{baseSrc: baseSrc{src}, length: p.Int("length", 14)}
}
func (w *WMA) Update(c bar.Candle) {
	w.window = append(w.window, w.read(c))
	if len(w.window) > w.length {
		w.window = w.window[len(w.window)-w.length:]
	}
}
func (w *WMA) Value() Value {
	n := len(w.window)
	if n == 0 {
		return Value{"value": 0}
	}
	var num, den float64
	for i, v := range w.window {
		weight := float64(i + 1)
		num += weight * v
		den += weight
	}
	return Value{"value": num / den}
}
func (w *WMA) IsReady() bool { return len(w.window) >= w.length }
func (w *WMA) Reset()        { w.window = nil }

// --- DEMA: 2*EMA1 - EMA(EMA1), seeding matches common reference behavior. ---

type DEMA struct {
	baseSrc
	e1, e2 *emaState
}

func NewDEMA(p Params, src bar.Source) *DEMA {
	length := p.Int("length", 14)
	return &DEMA{baseSrc: baseSrc{src}, e1: newEMAState(length), e2: newEMAState(length)}
}
func (d *DEMA) Update(c bar.Candle) {
	d.e1.update(d.read(c))
	if d.e1.ready() {
		d.e2.update(d.e1.value)
	}
}
func (d *DEMA) Value() Value  { return Value{"value": 2*d.e1.value - d.e2.value} }
func (d *DEMA) IsReady() bool { return d.e1.ready() && d.e2.ready() }
func (d *DEMA) Reset()        { d.e1.reset(); d.e2.reset() }

// --- TEMA: 3*EMA1 - 3*EMA(EMA1) + EMA(EMA(EMA1)) ---

type TEMA struct {
	baseSrc
	e1, e2, e3 *emaState
}

func NewTEMA(p Params, src bar.Source) *TEMA {
	length := p.Int("length", 14)
	return &TEMA{baseSrc: baseSrc{src}, e1: newEMAState(length), e2: newEMAState(length), e3: newEMAState(length)}
}
func (t *TEMA) Update(c bar.Candle) {
	t.e1.update(t.read(c))
	if t.e1.ready() {
		t.e2.update(t.e1.value)
	}
	if t.e2.ready() {
		t.e3.update(t.e2.value)
	}
}
func (t *TEMA) Value() Value {
	return Value{"value": 3*t.e1.value - 3*t.e2.value + t.e3.value}
}
func (t *TEMA) IsReady() bool { return t.e1.ready() && t.e2.ready() && t.e3.ready() }
func (t *TEMA) Reset()        { t.e1.reset(); t.e2.reset(); t.e3.reset() }

// --- TRIMA: SMA of an SMA, two rolling SMAs so O(1) per bar. ---

type TRIMA struct {
	baseSrc
	length int
	inner  *rollingSMA
	outer  *rollingSMA
}

func NewTRIMA(p Params, src bar.Source) *TRIMA {
	length := p.Int("length", 14)
	n1 := (length + 1) / 2
	n2 := length - n1 + 1
	return &TRIMA{baseSrc: baseSrc{src}, length: length, inner: newRollingSMA(n1), outer: newRollingSMA(n2)}
}
func (t *TRIMA) Update(c bar.Candle) {
	t.inner.update(t.read(c))
	if t.inner.ready() {
		t.outer.update(t.inner.mean())
	}
}
func (t *TRIMA) Value() Value  { return Value{"value": t.outer.mean()} }
func (t *TRIMA) IsReady() bool { return t.outer.ready() }
func (t *TRIMA) Reset()        { t.inner.reset(); t.outer.reset() }

// --- ZLMA: zero-lag EMA, de-lagged by adding the momentum of a lookback. ---

type ZLMA struct {
	baseSrc
	length int
	lag    int
	hist   []float64
	e      *emaState
}

func NewZLMA(p Params, src bar.Source) *ZLMA {
	length := p.Int("length", 14)
	lag := (length - 1) / 2
	return &ZLMA{baseSrc: baseSrc{src}, length: length, lag: lag, e: newEMAState(length)}
}
func (z *ZLMA) Update(c bar.Candle) {
	x := z.read(c)
	z.hist = append(z.hist, x)
	de := x
	if len(z.hist) > z.lag {
		de = 2*x - z.hist[len(z.hist)-1-z.lag]
	}
	if len(z.hist) > z.length*3 {
		z.hist = z.hist[len(z.hist)-z.length*3:]
	}
	z.e.update(de)
}
func (z *ZLMA) Value() Value  { return Value{"value": z.e.value} }
func (z *ZLMA) IsReady() bool { return z.e.ready() }
func (z *ZLMA) Reset()        { z.e.reset(); z.hist = nil }

// --- ALMA: Arnaud Legoux moving average, Gaussian-weighted window. ---

type ALMA struct {
	baseSrc
	length  int
	weights []float64
	window  []float64
}

func NewALMA(p Params, src bar.Source) *ALMA {
	length := p.Int("length", 14)
	offset := p.Float("offset", 0.85)
	sigma := p.Float("sigma", 6)
	m := offset * float64(length-1)
	s := float64(length) / sigma
	weights := make([]float64, length)
	sum := 0.0
	for i := 0; i < length; i++ {
		d := float64(i) - m
		w := math.Exp(-(d * d) / (2 * s * s))
		weights[i] = w
		sum += w
	}
	for i := range weights {
		weights[i] /= sum
	}
	return &ALMA{baseSrc: baseSrc{src}, length: length, weights: weights}
}
func (a *ALMA) Update(c bar.Candle) {
	a.window = append(a.window, a.read(c))
	if len(a.window) > a.length {
		a.window = a.window[len(a.window)-a.length:]
	}
}
func (a *ALMA) Value() Value {
	if len(a.window) < a.length {
		return Value{"value": 0}
	}
	sum := 0.0
	for i, w := range a.weights {
		sum += w * a.window[i]
	}
	return Value{"value": sum}
}
func (a *ALMA) IsReady() bool { return len(a.window) >= a.length }
func (a *ALMA) Reset()        { a.window = nil }

// --- KAMA: Kaufman adaptive moving average. ---

type KAMA struct {
	baseSrc
	length   int
	fastSC   float64
	slowSC   float64
	window   []float64
	value    float64
	seeded   bool
}

func NewKAMA(p Params, src bar.Source) *KAMA {
	length := p.Int("length", 10)
	fast := p.Int("fast", 2)
	slow := p.Int("slow", 30)
	return &KAMA{
		baseSrc: baseSrc{src}, length: length,
		fastSC: 2.0 / (float64(fast) + 1),
		slowSC: 2.0 / (float64(slow) + 1),
	}
}
func (k *KAMA) Update(c bar.Candle) {
	x := k.read(c)
	k.window = append(k.window, x)
	if len(k.window) > k.length+1 {
		k.window = k.window[len(k.window)-(k.length+1):]
	}
	if len(k.window) <= k.length {
		return
	}
	change := math.Abs(k.window[len(k.window)-1] - k.window[0])
	volatility := 0.0
	for i := 1; i < len(k.window); i++ {
		volatility += math.Abs(k.window[i] - k.window[i-1])
	}
	er := 0.0
	if volatility != 0 {
		er = change / volatility
	}
	sc := er*(k.fastSC-k.slowSC) + k.slowSC
	sc = sc * sc
	if !k.seeded {
		k.value = x
		k.seeded = true
		return
	}
	k.value = k.value + sc*(x-k.value)
}
func (k *KAMA) Value() Value  { return Value{"value": k.value} }
func (k *KAMA) IsReady() bool { return len(k.window) > k.length }
func (k *KAMA) Reset()        { k.window = nil; k.value = 0; k.seeded = false }

// --- LINREG: linear-regression endpoint forecast over a trailing window.
// O(window) by nature (spec §4.2). ---

type LINREG struct {
	baseSrc
	length int
	window []float64
}

func NewLINREG(p Params, src bar.Source) *LINREG {
	return &LINREG{baseSrc: baseSrc{src}, length: p.Int("length", 14)}
}
func (l *LINREG) Update(c bar.Candle) {
	l.window = append(l.window, l.read(c))
	if len(l.window) > l.length {
		l.window = l.window[len(l.window)-l.length:]
	}
}
func (l *LINREG) Value() Value {
	n := len(l.window)
	if n == 0 {
		return Value{"value": 0}
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range l.window {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return Value{"value": l.window[n-1]}
	}
	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn
	endpoint := intercept + slope*float64(n-1)
	return Value{"value": endpoint}
}
func (l *LINREG) IsReady() bool { return len(l.window) >= l.length }
func (l *LINREG) Reset()        { l.window = nil }

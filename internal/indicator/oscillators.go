// FILE: oscillators.go
// Package indicator – oscillator family: RSI, CCI, Williams %R, Stochastic,
// StochRSI, CMO, MFI, UO, ROC, MOM, TRIX, TSI, PPO, Fisher, Squeeze
// (spec §4.2).
package indicator

import (
	"math"

	"github.com/playcore/derivcore/internal/bar"
)

// --- RSI: Wilder's RMA of gains/losses, seeded at bar length+1. value=50
// when no movement; is_ready iff count > length. ---

type RSI struct {
	length            int
	gainR, lossR      *rmaState
	prevClose         float64
	hasPrev           bool
	seenDeltas        int
}

func NewRSI(p Params) *RSI {
	length := p.Int("length", 14)
	return &RSI{length: length, gainR: newRMAState(length), lossR: newRMAState(length)}
}
func (r *RSI) Update(c bar.Candle) {
	if r.hasPrev {
		d := c.Close - r.prevClose
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		r.gainR.update(gain)
		r.lossR.update(loss)
		r.seenDeltas++
	}
	r.prevClose = c.Close
	r.hasPrev = true
}
func (r *RSI) Value() Value {
	if r.lossR.value == 0 {
		if r.gainR.value == 0 {
			return Value{"value": 50}
		}
		return Value{"value": 100}
	}
	rs := r.gainR.value / r.lossR.value
	return Value{"value": 100 - 100/(1+rs)}
}
func (r *RSI) IsReady() bool { return r.seenDeltas > r.length }
func (r *RSI) Reset()        { r.gainR.reset(); r.lossR.reset(); r.hasPrev = false; r.seenDeltas = 0 }

// --- CCI: Commodity Channel Index. Value getter is O(window) (spec §4.2). ---

type CCI struct {
	length int
	window []float64
}

func NewCCI(p Params) *CCI { return &CCI{length: p.Int("length", 20)} }
func (c *CCI) Update(bc bar.Candle) {
	c.window = append(c.window, bc.HLC3())
	if len(c.window) > c.length {
		c.window = c.window[len(c.window)-c.length:]
	}
}
func (c *CCI) Value() Value {
	n := len(c.window)
	if n == 0 {
		return Value{"value": 0}
	}
	sum := 0.0
	for _, v := range c.window {
		sum += v
	}
	mean := sum / float64(n)
	meanDev := 0.0
	for _, v := range c.window {
		meanDev += math.Abs(v - mean)
	}
	meanDev /= float64(n)
	if meanDev == 0 {
		return Value{"value": 0}
	}
	return Value{"value": (c.window[n-1] - mean) / (0.015 * meanDev)}
}
func (c *CCI) IsReady() bool { return len(c.window) >= c.length }
func (c *CCI) Reset()        { c.window = nil }

// --- Williams %R ---

type WilliamsR struct {
	length     int
	highWindow []float64
	lowWindow  []float64
	lastClose  float64
}

func NewWilliamsR(p Params) *WilliamsR { return &WilliamsR{length: p.Int("length", 14)} }
func (w *WilliamsR) Update(c bar.Candle) {
	w.highWindow = append(w.highWindow, c.High)
	w.lowWindow = append(w.lowWindow, c.Low)
	if len(w.highWindow) > w.length {
		w.highWindow = w.highWindow[len(w.highWindow)-w.length:]
		w.lowWindow = w.lowWindow[len(w.lowWindow)-w.length:]
	}
	w.lastClose = c.Close
}
func (w *WilliamsR) Value() Value {
	if len(w.highWindow) == 0 {
		return Value{"value": 0}
	}
	hi, lo := w.highWindow[0], w.lowWindow[0]
	for i := 1; i < len(w.highWindow); i++ {
		if w.highWindow[i] > hi {
			hi = w.highWindow[i]
		}
		if w.lowWindow[i] < lo {
			lo = w.lowWindow[i]
		}
	}
	if hi == lo {
		return Value{"value": -50}
	}
	return Value{"value": (hi - w.lastClose) / (hi - lo) * -100}
}
func (w *WilliamsR) IsReady() bool { return len(w.highWindow) >= w.length }
func (w *WilliamsR) Reset()        { w.highWindow = nil; w.lowWindow = nil }

// --- Stochastic Oscillator ---

type Stochastic struct {
	length     int
	smoothK    int
	smoothD    int
	highWindow []float64
	lowWindow  []float64
	kWindow    []float64
	dWindow    *rollingSMA
	lastClose  float64
}

func NewStochastic(p Params) *Stochastic {
	return &Stochastic{
		length:  p.Int("length", 14),
		smoothK: p.Int("smooth_k", 3),
		smoothD: p.Int("smooth_d", 3),
		dWindow: newRollingSMA(p.Int("smooth_d", 3)),
	}
}
func (s *Stochastic) Update(c bar.Candle) {
	s.highWindow = append(s.highWindow, c.High)
	s.lowWindow = append(s.lowWindow, c.Low)
	if len(s.highWindow) > s.length {
		s.highWindow = s.highWindow[len(s.highWindow)-s.length:]
		s.lowWindow = s.lowWindow[len(s.lowWindow)-s.length:]
	}
	s.lastClose = c.Close
	if len(s.highWindow) < s.length {
		return
	}
	hi, lo := s.highWindow[0], s.lowWindow[0]
	for i := 1; i < len(s.highWindow); i++ {
		if s.highWindow[i] > hi {
			hi = s.highWindow[i]
		}
		if s.lowWindow[i] < lo {
			lo = s.lowWindow[i]
		}
	}
	rawK := 50.0
	if hi != lo {
		rawK = (c.Close - lo) / (hi - lo) * 100
	}
	s.kWindow = append(s.kWindow, rawK)
	if len(s.kWindow) > s.smoothK {
		s.kWindow = s.kWindow[len(s.kWindow)-s.smoothK:]
	}
	k := avg(s.kWindow)
	s.dWindow.update(k)
}
func avg(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
func (s *Stochastic) Value() Value {
	return Value{"k": avg(s.kWindow), "d": s.dWindow.mean()}
}
func (s *Stochastic) IsReady() bool { return s.dWindow.ready() }
func (s *Stochastic) Reset() {
	s.highWindow, s.lowWindow, s.kWindow = nil, nil, nil
	s.dWindow.reset()
}

// --- StochRSI: stochastic formula applied to RSI's output stream. ---

type StochRSI struct {
	rsi        *RSI
	length     int
	window     []float64
}

func NewStochRSI(p Params) *StochRSI {
	return &StochRSI{rsi: NewRSI(p), length: p.Int("stoch_length", p.Int("length", 14))}
}
func (s *StochRSI) Update(c bar.Candle) {
	s.rsi.Update(c)
	if !s.rsi.IsReady() {
		return
	}
	s.window = append(s.window, s.rsi.Value()["value"])
	if len(s.window) > s.length {
		s.window = s.window[len(s.window)-s.length:]
	}
}
func (s *StochRSI) Value() Value {
	if len(s.window) == 0 {
		return Value{"value": 0}
	}
	hi, lo := s.window[0], s.window[0]
	for _, v := range s.window {
		if v > hi {
			hi = v
		}
		if v < lo {
			lo = v
		}
	}
	if hi == lo {
		return Value{"value": 0}
	}
	return Value{"value": (s.window[len(s.window)-1] - lo) / (hi - lo) * 100}
}
func (s *StochRSI) IsReady() bool { return len(s.window) >= s.length }
func (s *StochRSI) Reset()        { s.rsi.Reset(); s.window = nil }

// --- CMO: Chande Momentum Oscillator. ---

type CMO struct {
	length    int
	window    []float64
	prevClose float64
	hasPrev   bool
}

func NewCMO(p Params) *CMO { return &CMO{length: p.Int("length", 14)} }
func (c *CMO) Update(bc bar.Candle) {
	if c.hasPrev {
		c.window = append(c.window, bc.Close-c.prevClose)
		if len(c.window) > c.length {
			c.window = c.window[len(c.window)-c.length:]
		}
	}
	c.prevClose = bc.Close
	c.hasPrev = true
}
func (c *CMO) Value() Value {
	up, down := 0.0, 0.0
	for _, d := range c.window {
		if d > 0 {
			up += d
		} else {
			down -= d
		}
	}
	if up+down == 0 {
		return Value{"value": 0}
	}
	return Value{"value": 100 * (up - down) / (up + down)}
}
func (c *CMO) IsReady() bool { return len(c.window) >= c.length }
func (c *CMO) Reset()        { c.window = nil; c.hasPrev = false }

// --- MFI: Money Flow Index (volume-weighted RSI analogue). ---

type MFI struct {
	length     int
	posFlow    *rollingSMA
	negFlow    *rollingSMA
	prevTP     float64
	hasPrev    bool
}

func NewMFI(p Params) *MFI {
	length := p.Int("length", 14)
	return &MFI{length: length, posFlow: newRollingSMA(length), negFlow: newRollingSMA(length)}
}
func (m *MFI) Update(c bar.Candle) {
	tp := c.HLC3()
	flow := tp * c.Volume
	pos, neg := 0.0, 0.0
	if m.hasPrev {
		if tp > m.prevTP {
			pos = flow
		} else if tp < m.prevTP {
			neg = flow
		}
	}
	m.posFlow.update(pos)
	m.negFlow.update(neg)
	m.prevTP = tp
	m.hasPrev = true
}
func (m *MFI) Value() Value {
	negSum := m.negFlow.sum
	if negSum == 0 {
		return Value{"value": 100}
	}
	mr := m.posFlow.sum / negSum
	return Value{"value": 100 - 100/(1+mr)}
}
func (m *MFI) IsReady() bool { return m.posFlow.ready() }
func (m *MFI) Reset()        { m.posFlow.reset(); m.negFlow.reset(); m.hasPrev = false }

// --- UO: Ultimate Oscillator over three weighted periods. ---

type UO struct {
	fast, mid, slow int
	bpFast, trFast  *rollingSMA
	bpMid, trMid    *rollingSMA
	bpSlow, trSlow  *rollingSMA
	prevClose       float64
	hasPrev         bool
}

func NewUO(p Params) *UO {
	fast, mid, slow := p.Int("fast", 7), p.Int("mid", 14), p.Int("slow", 28)
	return &UO{
		fast: fast, mid: mid, slow: slow,
		bpFast: newRollingSMA(fast), trFast: newRollingSMA(fast),
		bpMid: newRollingSMA(mid), trMid: newRollingSMA(mid),
		bpSlow: newRollingSMA(slow), trSlow: newRollingSMA(slow),
	}
}
func (u *UO) Update(c bar.Candle) {
	prev := math.NaN()
	if u.hasPrev {
		prev = u.prevClose
	}
	low := c.Low
	if u.hasPrev && u.prevClose < low {
		low = u.prevClose
	}
	bp := c.Close - low
	tr := trueRange(prev, c.High, c.Low)
	u.bpFast.update(bp)
	u.trFast.update(tr)
	u.bpMid.update(bp)
	u.trMid.update(tr)
	u.bpSlow.update(bp)
	u.trSlow.update(tr)
	u.prevClose = c.Close
	u.hasPrev = true
}
func (u *UO) Value() Value {
	avgFast := ratio(u.bpFast.sum, u.trFast.sum)
	avgMid := ratio(u.bpMid.sum, u.trMid.sum)
	avgSlow := ratio(u.bpSlow.sum, u.trSlow.sum)
	uo := 100 * (4*avgFast + 2*avgMid + avgSlow) / 7
	return Value{"value": uo}
}
func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
func (u *UO) IsReady() bool { return u.trSlow.ready() }
func (u *UO) Reset() {
	u.bpFast.reset(); u.trFast.reset()
	u.bpMid.reset(); u.trMid.reset()
	u.bpSlow.reset(); u.trSlow.reset()
	u.hasPrev = false
}

// --- ROC: rate of change over length bars. ---

type ROC struct {
	length int
	window []float64
}

func NewROC(p Params) *ROC { return &ROC{length: p.Int("length", 12)} }
func (r *ROC) Update(c bar.Candle) {
	r.window = append(r.window, c.Close)
	if len(r.window) > r.length+1 {
		r.window = r.window[len(r.window)-(r.length+1):]
	}
}
func (r *ROC) Value() Value {
	n := len(r.window)
	if n <= r.length || r.window[0] == 0 {
		return Value{"value": 0}
	}
	return Value{"value": (r.window[n-1] - r.window[0]) / r.window[0] * 100}
}
func (r *ROC) IsReady() bool { return len(r.window) > r.length }
func (r *ROC) Reset()        { r.window = nil }

// --- MOM: raw momentum (close - close[length]). ---

type MOM struct {
	length int
	window []float64
}

func NewMOM(p Params) *MOM { return &MOM{length: p.Int("length", 10)} }
func (m *MOM) Update(c bar.Candle) {
	m.window = append(m.window, c.Close)
	if len(m.window) > m.length+1 {
		m.window = m.window[len(m.window)-(m.length+1):]
	}
}
func (m *MOM) Value() Value {
	n := len(m.window)
	if n <= m.length {
		return Value{"value": 0}
	}
	return Value{"value": m.window[n-1] - m.window[0]}
}
func (m *MOM) IsReady() bool { return len(m.window) > m.length }
func (m *MOM) Reset()        { m.window = nil }

// --- TRIX: rate of change of a triple-smoothed EMA. ---

type TRIX struct {
	e1, e2, e3  *emaState
	prevE3      float64
	curE3       float64
	haveCur     bool
	havePrev    bool
}

func NewTRIX(p Params) *TRIX {
	length := p.Int("length", 15)
	return &TRIX{e1: newEMAState(length), e2: newEMAState(length), e3: newEMAState(length)}
}
func (t *TRIX) Update(c bar.Candle) {
	t.e1.update(c.Close)
	if t.e1.ready() {
		t.e2.update(t.e1.value)
	}
	if t.e2.ready() {
		t.e3.update(t.e2.value)
	}
	if t.e3.ready() {
		if t.haveCur {
			t.prevE3 = t.curE3
			t.havePrev = true
		}
		t.curE3 = t.e3.value
		t.haveCur = true
	}
}
func (t *TRIX) Value() Value {
	if !t.havePrev || t.prevE3 == 0 {
		return Value{"value": 0}
	}
	return Value{"value": (t.curE3 - t.prevE3) / t.prevE3 * 100}
}
func (t *TRIX) IsReady() bool { return t.havePrev }
func (t *TRIX) Reset() {
	t.e1.reset(); t.e2.reset(); t.e3.reset()
	t.prevE3, t.curE3, t.haveCur, t.havePrev = 0, 0, false, false
}

// --- TSI: True Strength Index, double-smoothed momentum ratio. ---

type TSI struct {
	pcFast, pcSlow *emaState
	apcFast, apcSlow *emaState
	prevClose      float64
	hasPrev        bool
}

func NewTSI(p Params) *TSI {
	fast, slow := p.Int("fast", 13), p.Int("slow", 25)
	return &TSI{
		pcFast: newEMAState(fast), pcSlow: newEMAState(slow),
		apcFast: newEMAState(fast), apcSlow: newEMAState(slow),
	}
}
func (t *TSI) Update(c bar.Candle) {
	if t.hasPrev {
		pc := c.Close - t.prevClose
		t.pcFast.update(pc)
		if t.pcFast.ready() {
			t.pcSlow.update(t.pcFast.value)
		}
		apc := math.Abs(pc)
		t.apcFast.update(apc)
		if t.apcFast.ready() {
			t.apcSlow.update(t.apcFast.value)
		}
	}
	t.prevClose = c.Close
	t.hasPrev = true
}
func (t *TSI) Value() Value {
	if t.apcSlow.value == 0 {
		return Value{"value": 0}
	}
	return Value{"value": 100 * t.pcSlow.value / t.apcSlow.value}
}
func (t *TSI) IsReady() bool { return t.pcSlow.ready() && t.apcSlow.ready() }
func (t *TSI) Reset() {
	t.pcFast.reset(); t.pcSlow.reset(); t.apcFast.reset(); t.apcSlow.reset(); t.hasPrev = false
}

// --- PPO: Percentage Price Oscillator, MACD normalized by the slow EMA. ---

type PPO struct {
	fast, slow *emaState
	signal     *emaState
}

func NewPPO(p Params) *PPO {
	return &PPO{fast: newEMAState(p.Int("fast", 12)), slow: newEMAState(p.Int("slow", 26)), signal: newEMAState(p.Int("signal", 9))}
}
func (o *PPO) Update(c bar.Candle) {
	o.fast.update(c.Close)
	o.slow.update(c.Close)
	if o.fast.ready() && o.slow.ready() && o.slow.value != 0 {
		o.signal.update(100 * (o.fast.value - o.slow.value) / o.slow.value)
	}
}
func (o *PPO) Value() Value {
	ppo := 0.0
	if o.slow.value != 0 {
		ppo = 100 * (o.fast.value - o.slow.value) / o.slow.value
	}
	return Value{"ppo": ppo, "signal": o.signal.value, "histogram": ppo - o.signal.value}
}
func (o *PPO) IsReady() bool { return o.signal.ready() }
func (o *PPO) Reset()        { o.fast.reset(); o.slow.reset(); o.signal.reset() }

// --- Fisher Transform. is_ready must be count > length (the seeding bar
// outputs 0.0 artificially, per spec §4.2). ---

type Fisher struct {
	length     int
	highWindow []float64
	lowWindow  []float64
	value      float64
	prevValue  float64
	count      int
}

func NewFisher(p Params) *Fisher { return &Fisher{length: p.Int("length", 9)} }
func (f *Fisher) Update(c bar.Candle) {
	mid := (c.High + c.Low) / 2
	f.highWindow = append(f.highWindow, mid)
	f.lowWindow = append(f.lowWindow, mid)
	if len(f.highWindow) > f.length {
		f.highWindow = f.highWindow[len(f.highWindow)-f.length:]
		f.lowWindow = f.lowWindow[len(f.lowWindow)-f.length:]
	}
	f.count++
	if len(f.highWindow) < f.length {
		f.value = 0
		return
	}
	hi, lo := f.highWindow[0], f.lowWindow[0]
	for i := 1; i < len(f.highWindow); i++ {
		if f.highWindow[i] > hi {
			hi = f.highWindow[i]
		}
		if f.lowWindow[i] < lo {
			lo = f.lowWindow[i]
		}
	}
	x := 0.0
	if hi != lo {
		x = 2*((mid-lo)/(hi-lo)-0.5)
	}
	x = math.Max(-0.999, math.Min(0.999, x))
	f.prevValue = f.value
	f.value = 0.5*math.Log((1+x)/(1-x)) + 0.5*f.prevValue
}
func (f *Fisher) Value() Value  { return Value{"value": f.value, "signal": f.prevValue} }
func (f *Fisher) IsReady() bool { return f.count > f.length }
func (f *Fisher) Reset()        { f.highWindow, f.lowWindow = nil, nil; f.value, f.prevValue = 0, 0; f.count = 0 }

// --- Squeeze: Bollinger-inside-Keltner compression flag + momentum. ---

type Squeeze struct {
	bb      *Bollinger
	kc      *KeltnerChannel
	mom     *LINREG
}

func NewSqueeze(p Params, src bar.Source) *Squeeze {
	return &Squeeze{
		bb:  NewBollinger(Params{"length": p.Int("length", 20), "mult": p.Float("bb_mult", 2.0)}, src),
		kc:  NewKeltnerChannel(Params{"length": p.Int("length", 20), "mult": p.Float("kc_mult", 1.5)}),
		mom: NewLINREG(Params{"length": p.Int("length", 20)}, src),
	}
}
func (s *Squeeze) Update(c bar.Candle) {
	s.bb.Update(c)
	s.kc.Update(c)
	s.mom.Update(c)
}
func (s *Squeeze) Value() Value {
	bb := s.bb.Value()
	kc := s.kc.Value()
	on := bb["lower"] > kc["lower"] && bb["upper"] < kc["upper"]
	squeezeOn := 0.0
	if on {
		squeezeOn = 1.0
	}
	return Value{"squeeze_on": squeezeOn, "momentum": s.mom.Value()["value"]}
}
func (s *Squeeze) IsReady() bool { return s.bb.IsReady() && s.kc.IsReady() && s.mom.IsReady() }
func (s *Squeeze) Reset()        { s.bb.Reset(); s.kc.Reset(); s.mom.Reset() }

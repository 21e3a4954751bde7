// FILE: volume.go
// Package indicator – volume family: OBV, CMF, VWAP, AnchoredVWAP
// (spec §4.2). VWAP resets on a session boundary (day/week anchor);
// AnchoredVWAP resets whenever an external anchor tick fires (e.g. a new
// swing high is confirmed upstream), driven by a caller-supplied version
// counter rather than wall-clock time.
package indicator

import (
	"github.com/playcore/derivcore/internal/bar"
)

// --- OBV: cumulative running total, never resets on its own window. ---

type OBV struct {
	value     float64
	prevClose float64
	hasPrev   bool
}

func NewOBV(p Params) *OBV { return &OBV{} }
func (o *OBV) Update(c bar.Candle) {
	if o.hasPrev {
		if c.Close > o.prevClose {
			o.value += c.Volume
		} else if c.Close < o.prevClose {
			o.value -= c.Volume
		}
	}
	o.prevClose = c.Close
	o.hasPrev = true
}
func (o *OBV) Value() Value  { return Value{"value": o.value} }
func (o *OBV) IsReady() bool { return o.hasPrev }
func (o *OBV) Reset()        { o.value = 0; o.hasPrev = false }

// --- CMF: Chaikin Money Flow, rolling window of money-flow volume over
// raw volume. ---

type CMF struct {
	length  int
	mfvSum  *rollingSMA
	volSum  *rollingSMA
}

func NewCMF(p Params) *CMF {
	length := p.Int("length", 20)
	return &CMF{length: length, mfvSum: newRollingSMA(length), volSum: newRollingSMA(length)}
}
func (c *CMF) Update(bc bar.Candle) {
	rng := bc.High - bc.Low
	mult := 0.0
	if rng != 0 {
		mult = ((bc.Close - bc.Low) - (bc.High - bc.Close)) / rng
	}
	c.mfvSum.update(mult * bc.Volume)
	c.volSum.update(bc.Volume)
}
func (c *CMF) Value() Value {
	if c.volSum.sum == 0 {
		return Value{"value": 0}
	}
	return Value{"value": c.mfvSum.sum / c.volSum.sum}
}
func (c *CMF) IsReady() bool { return c.mfvSum.ready() }
func (c *CMF) Reset()        { c.mfvSum.reset(); c.volSum.reset() }

// --- VWAP: session-anchored volume weighted average price. The session
// boundary is derived from TsOpen using the configured anchor (day or
// week); crossing the boundary resets the accumulator so the current bar
// starts a fresh session. ---

type VWAPAnchor string

const (
	VWAPAnchorDay  VWAPAnchor = "day"
	VWAPAnchorWeek VWAPAnchor = "week"
)

type VWAP struct {
	anchor      VWAPAnchor
	pvSum       float64
	volSum      float64
	lastBucket  int64
	haveBucket  bool
}

func NewVWAP(p Params) *VWAP {
	anchor := VWAPAnchor(p.String("anchor", string(VWAPAnchorDay)))
	return &VWAP{anchor: anchor}
}
func (v *VWAP) bucket(tsOpen int64) int64 {
	const dayMS = 86_400_000 // TsOpen is in epoch milliseconds
	const weekMS = 7 * dayMS
	switch v.anchor {
	case VWAPAnchorWeek:
		return tsOpen / weekMS
	default:
		return tsOpen / dayMS
	}
}
func (v *VWAP) Update(c bar.Candle) {
	b := v.bucket(c.TsOpen)
	if !v.haveBucket || b != v.lastBucket {
		v.pvSum, v.volSum = 0, 0
		v.lastBucket = b
		v.haveBucket = true
	}
	tp := c.HLC3()
	v.pvSum += tp * c.Volume
	v.volSum += c.Volume
}
func (v *VWAP) Value() Value {
	if v.volSum == 0 {
		return Value{"value": 0}
	}
	return Value{"value": v.pvSum / v.volSum}
}
func (v *VWAP) IsReady() bool { return v.haveBucket && v.volSum > 0 }
func (v *VWAP) Reset()        { v.pvSum, v.volSum = 0, 0; v.haveBucket = false }

// --- AnchoredVWAP: same accumulation as VWAP, but the reset is driven by
// an external AnchorVersion() int that the caller bumps whenever the
// anchor event (e.g. new confirmed swing) fires, rather than a fixed
// calendar boundary. ---

type AnchoredVWAP struct {
	pvSum        float64
	volSum       float64
	lastVersion  int
	haveVersion  bool
	anchorSource AnchorVersioner
}

// AnchorVersioner supplies the current anchor generation. Implemented by
// the structure package's Swing detector.
type AnchorVersioner interface {
	AnchorVersion() int
}

func NewAnchoredVWAP(p Params, av AnchorVersioner) *AnchoredVWAP {
	return &AnchoredVWAP{anchorSource: av}
}

// SetAnchorSource sets the anchor source after construction. The registry
// constructs anchored_vwap with a nil source and nothing in this module
// calls SetAnchorSource, so an anchored_vwap declared in a Play never
// resets: it accumulates from its first bar.
func (a *AnchoredVWAP) SetAnchorSource(av AnchorVersioner) { a.anchorSource = av }
func (a *AnchoredVWAP) Update(c bar.Candle) {
	v := 0
	if a.anchorSource != nil {
		v = a.anchorSource.AnchorVersion()
	}
	if !a.haveVersion || v != a.lastVersion {
		a.pvSum, a.volSum = 0, 0
		a.lastVersion = v
		a.haveVersion = true
	}
	tp := c.HLC3()
	a.pvSum += tp * c.Volume
	a.volSum += c.Volume
}
func (a *AnchoredVWAP) Value() Value {
	if a.volSum == 0 {
		return Value{"value": 0}
	}
	return Value{"value": a.pvSum / a.volSum}
}
func (a *AnchoredVWAP) IsReady() bool { return a.haveVersion && a.volSum > 0 }
func (a *AnchoredVWAP) Reset()        { a.pvSum, a.volSum = 0, 0; a.haveVersion = false }

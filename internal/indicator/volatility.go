// FILE: volatility.go
// Package indicator – volatility/channel family: ATR, Keltner Channel,
// Donchian Channel (spec §4.2).
package indicator

import (
	"math"

	"github.com/playcore/derivcore/internal/bar"
)

// --- ATR: Wilder's RMA of true range; seed = SMA of first length TRs. ---

type ATR struct {
	length    int
	r         *rmaState
	prevClose float64
	hasPrev   bool
}

func NewATR(p Params) *ATR {
	return &ATR{length: p.Int("length", 14), r: newRMAState(p.Int("length", 14))}
}
func (a *ATR) Update(c bar.Candle) {
	prev := math.NaN()
	if a.hasPrev {
		prev = a.prevClose
	}
	tr := trueRange(prev, c.High, c.Low)
	a.r.update(tr)
	a.prevClose = c.Close
	a.hasPrev = true
}
func (a *ATR) Value() Value  { return Value{"value": a.r.value} }
func (a *ATR) IsReady() bool { return a.r.ready() }
func (a *ATR) Reset()        { a.r.reset(); a.hasPrev = false }

// --- Keltner Channel: EMA middle +/- multiplier*ATR. ---

type KeltnerChannel struct {
	ema  *emaState
	atr  *ATR
	mult float64
}

func NewKeltnerChannel(p Params) *KeltnerChannel {
	return &KeltnerChannel{
		ema:  newEMAState(p.Int("length", 20)),
		atr:  NewATR(Params{"length": p.Int("atr_length", 10)}),
		mult: p.Float("mult", 2.0),
	}
}
func (k *KeltnerChannel) Update(c bar.Candle) {
	k.ema.update(c.Close)
	k.atr.Update(c)
}
func (k *KeltnerChannel) Value() Value {
	atr := k.atr.Value()["value"]
	return Value{
		"middle": k.ema.value,
		"upper":  k.ema.value + k.mult*atr,
		"lower":  k.ema.value - k.mult*atr,
	}
}
func (k *KeltnerChannel) IsReady() bool { return k.ema.ready() && k.atr.IsReady() }
func (k *KeltnerChannel) Reset()        { k.ema.reset(); k.atr.Reset() }

// --- Donchian Channel: rolling high/low window. ---

type Donchian struct {
	length     int
	highWindow []float64
	lowWindow  []float64
}

func NewDonchian(p Params) *Donchian {
	return &Donchian{length: p.Int("length", 20)}
}
func (d *Donchian) Update(c bar.Candle) {
	d.highWindow = append(d.highWindow, c.High)
	d.lowWindow = append(d.lowWindow, c.Low)
	if len(d.highWindow) > d.length {
		d.highWindow = d.highWindow[len(d.highWindow)-d.length:]
		d.lowWindow = d.lowWindow[len(d.lowWindow)-d.length:]
	}
}
func (d *Donchian) Value() Value {
	if len(d.highWindow) == 0 {
		return Value{"upper": 0, "lower": 0, "middle": 0}
	}
	hi, lo := d.highWindow[0], d.lowWindow[0]
	for i := 1; i < len(d.highWindow); i++ {
		if d.highWindow[i] > hi {
			hi = d.highWindow[i]
		}
		if d.lowWindow[i] < lo {
			lo = d.lowWindow[i]
		}
	}
	return Value{"upper": hi, "lower": lo, "middle": (hi + lo) / 2}
}
func (d *Donchian) IsReady() bool { return len(d.highWindow) >= d.length }
func (d *Donchian) Reset()        { d.highWindow = nil; d.lowWindow = nil }

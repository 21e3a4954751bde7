// FILE: zone.go
// Package structure – Zone: consumes Swing and an ATR indicator by key
// (spec §4.3). A new swing pair re-anchors the zone around the configured
// swing level (the pair's high or low, per the "anchor" param); it stays
// ACTIVE until price closes through it, at which point it goes BROKEN
// permanently until the next new swing pair. If the ATR dependency is
// absent, zone width degenerates to 0. The first such activation sets
// warnedNoATR; nothing is logged, since this package has no logger.
package structure

import (
	"github.com/playcore/derivcore/internal/bar"
	"github.com/playcore/derivcore/internal/indicator"
)

type ZoneState string

const (
	ZoneNone   ZoneState = "NONE"
	ZoneActive ZoneState = "ACTIVE"
	ZoneBroken ZoneState = "BROKEN"
)

type Zone struct {
	swing Detector
	atr   indicator.Indicator // nil if no ATR dep configured
	k     float64
	anchor string // "high" or "low"

	lastSeenVersion int
	anchorLevel     float64
	upper, lower    float64
	state           ZoneState
	warnedNoATR     bool

	lastBarIdx int64
	hasLast    bool
}

func NewZone(p Params, deps Deps) (Detector, error) {
	swing, err := deps.structure("swing")
	if err != nil {
		return nil, err
	}
	z := &Zone{swing: swing, k: p.Float("k", 1.0), anchor: p.String("anchor", "high"), state: ZoneNone, lastSeenVersion: -1}
	if atr, ok := deps.Indicators["atr"]; ok {
		z.atr = atr
	}
	return z, nil
}

func (z *Zone) Update(barIdx int64, c bar.Candle) error {
	if z.hasLast && barIdx <= z.lastBarIdx {
		return errNonIncreasing("zone", z.lastBarIdx, barIdx)
	}
	z.lastBarIdx = barIdx
	z.hasLast = true

	out := z.swing.Output()
	version, _ := out["pair_version"].(int)
	if version != z.lastSeenVersion && version > 0 {
		z.lastSeenVersion = version
		field := "high_level"
		if z.anchor == "low" {
			field = "low_level"
		}
		level, _ := out[field].(float64)
		z.anchorLevel = level

		width := 0.0
		if z.atr != nil && z.atr.IsReady() {
			width = z.k * z.atr.Value()["value"]
		} else if !z.warnedNoATR {
			z.warnedNoATR = true
		}
		z.upper = z.anchorLevel + width
		z.lower = z.anchorLevel - width
		z.state = ZoneActive
		return nil
	}

	if z.state == ZoneActive {
		if z.anchor == "high" && c.Close > z.upper {
			z.state = ZoneBroken
		} else if z.anchor == "low" && c.Close < z.lower {
			z.state = ZoneBroken
		}
	}
	return nil
}

func (z *Zone) Output() Output {
	return Output{
		"upper": z.upper,
		"lower": z.lower,
		"state": z.state,
	}
}

func (z *Zone) IsReady() bool { return z.state != ZoneNone }

func (z *Zone) Reset() {
	swing, atr, k, anchor := z.swing, z.atr, z.k, z.anchor
	*z = Zone{swing: swing, atr: atr, k: k, anchor: anchor, state: ZoneNone, lastSeenVersion: -1}
}

// FILE: derivedzone.go
// Package structure – DerivedZone ("K-slots"): consumes a pair-versioned
// source (Swing) and maintains up to max_active generated zones, most-
// recent first (spec §4.3). Every source version change prepends one new
// zone anchored on the configured level (high/low/mid of the pair) and
// evicts the oldest if the list exceeds max_active. Every bar, touch/break
// interactions are checked against each zone's tolerance band; break
// detection skips the zone's own creation bar so the confirming bar never
// counts as a break of the level it just produced.
package structure

import (
	"github.com/playcore/derivcore/internal/bar"
	"github.com/playcore/derivcore/internal/hashing"
)

type DerivedZoneSlot struct {
	Hash          string
	Level         float64
	CreatedBarIdx int64
	Touched       bool
	Broken        bool
}

type derivedZoneHashInput struct {
	SourceVersion int     `json:"source_version"`
	PivotHighIdx  int64   `json:"pivot_high_idx"`
	PivotLowIdx   int64   `json:"pivot_low_idx"`
	Level         float64 `json:"level"`
	Mode          string  `json:"mode"`
}

type DerivedZone struct {
	source       Detector
	maxActive    int
	tolerancePct float64
	mode         string // "high", "low", or "mid"

	lastSeenVersion int
	slots           []DerivedZoneSlot // most-recent first

	lastBarIdx int64
	hasLast    bool
}

func NewDerivedZone(p Params, deps Deps) (Detector, error) {
	source, err := deps.structure("source")
	if err != nil {
		return nil, err
	}
	return &DerivedZone{
		source:          source,
		maxActive:       p.Int("max_active", 3),
		tolerancePct:    p.Float("tolerance_pct", 0.1) / 100,
		mode:            p.String("mode", "mid"),
		lastSeenVersion: -1,
	}, nil
}

func (d *DerivedZone) level(out Output) float64 {
	hi, _ := out["high_level"].(float64)
	lo, _ := out["low_level"].(float64)
	switch d.mode {
	case "high":
		return hi
	case "low":
		return lo
	default:
		return (hi + lo) / 2
	}
}

func (d *DerivedZone) Update(barIdx int64, c bar.Candle) error {
	if d.hasLast && barIdx <= d.lastBarIdx {
		return errNonIncreasing("derived_zone", d.lastBarIdx, barIdx)
	}
	d.lastBarIdx = barIdx
	d.hasLast = true

	out := d.source.Output()
	version, _ := out["pair_version"].(int)
	if version != d.lastSeenVersion && version > 0 {
		d.lastSeenVersion = version
		hiIdx, _ := out["high_idx"].(int64)
		loIdx, _ := out["low_idx"].(int64)
		level := d.level(out)

		hashInput := derivedZoneHashInput{SourceVersion: version, PivotHighIdx: hiIdx, PivotLowIdx: loIdx, Level: level, Mode: d.mode}
		h, err := hashing.HashDict(hashInput, 16)
		if err != nil {
			return err
		}
		slot := DerivedZoneSlot{Hash: h, Level: level, CreatedBarIdx: barIdx}
		d.slots = append([]DerivedZoneSlot{slot}, d.slots...)
		if len(d.slots) > d.maxActive {
			d.slots = d.slots[:d.maxActive]
		}
	}

	for i := range d.slots {
		s := &d.slots[i]
		if s.Broken || s.CreatedBarIdx == barIdx {
			continue
		}
		tol := s.Level * d.tolerancePct
		if c.Low <= s.Level+tol && c.High >= s.Level-tol {
			s.Touched = true
		}
		// Break: the bar's full range crosses from one side of the level
		// to the other, beyond tolerance.
		if c.Low < s.Level-tol && c.High > s.Level+tol {
			s.Broken = true
		}
	}
	return nil
}

func (d *DerivedZone) Output() Output {
	out := make(Output, 1)
	zones := make([]map[string]any, 0, len(d.slots))
	for _, s := range d.slots {
		zones = append(zones, map[string]any{
			"hash":    s.Hash,
			"level":   s.Level,
			"touched": s.Touched,
			"broken":  s.Broken,
		})
	}
	out["zones"] = zones
	return out
}

func (d *DerivedZone) IsReady() bool { return len(d.slots) > 0 }

func (d *DerivedZone) Reset() {
	source, maxActive, tol, mode := d.source, d.maxActive, d.tolerancePct, d.mode
	*d = DerivedZone{source: source, maxActive: maxActive, tolerancePct: tol, mode: mode, lastSeenVersion: -1}
}

// FILE: types.go
// Package structure – incremental market-structure detectors (spec §4.3):
// Swing, Trend, MarketStructure (BOS/CHoCH), Fibonacci, Zone, DerivedZone,
// RollingWindow. Every detector operates on closed bars only, exposes
// Update/Output/IsReady/Reset, and is constructed with its declared
// dependencies already resolved — the topological ordering that makes that
// possible lives in graph.go, computed once at Play-compile time (§9: "no
// cross-detector imports").
package structure

import (
	"fmt"

	"github.com/playcore/derivcore/internal/bar"
	"github.com/playcore/derivcore/internal/indicator"
)

// Output is one detector's current field set. Structures mix numeric,
// enum/string, and integer outputs (pair_direction, state, bar indices),
// unlike the indicator package's pure-float Value.
type Output map[string]any

// Detector is the contract every structure type in §4.3 implements.
type Detector interface {
	// Update folds in one closed candle at barIdx. barIdx must be strictly
	// increasing across calls; a repeated or decreasing index is an error
	// (§4.3: "Detectors must enforce strictly increasing bar_idx").
	Update(barIdx int64, c bar.Candle) error
	Output() Output
	IsReady() bool
	Reset()
}

// AnchorVersioner exposes a detector's pair/version counter to consumers
// that need to detect "new pair" events without re-deriving them
// (Swing implements it; it also satisfies indicator.AnchorVersioner.
// Fibonacci and DerivedZone read Swing's "pair_version" output instead).
type AnchorVersioner interface {
	AnchorVersion() int
}

// Params is the decoded parameter bag for one structure declaration,
// mirroring indicator.Params's typed-getter shape.
type Params map[string]any

func (p Params) Int(key string, def int) int {
	if v, ok := p[key]; ok {
		switch t := v.(type) {
		case int:
			return t
		case float64:
			return int(t)
		}
	}
	return def
}

func (p Params) Float(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		switch t := v.(type) {
		case float64:
			return t
		case int:
			return float64(t)
		}
	}
	return def
}

func (p Params) String(key, def string) string {
	if v, ok := p[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Deps is the resolved dependency bag handed to a Descriptor's New func:
// named structure instances (DEPENDS_ON roles) and named indicator
// instances (e.g. Zone's required ATR).
type Deps struct {
	Structures map[string]Detector
	Indicators map[string]indicator.Indicator
}

func (d Deps) structure(role string) (Detector, error) {
	v, ok := d.Structures[role]
	if !ok {
		return nil, fmt.Errorf("structure: missing required dependency %q", role)
	}
	return v, nil
}

func (d Deps) indicatorDep(role string) (indicator.Indicator, error) {
	v, ok := d.Indicators[role]
	if !ok {
		return nil, fmt.Errorf("structure: missing required indicator dependency %q", role)
	}
	return v, nil
}

// Kind names one of the registered structure types.
type Kind string

// Descriptor is one row of the static registry table (§9 redesign note:
// tagged variants, static registration, unknown keys raise).
type Descriptor struct {
	Kind       Kind
	New        func(p Params, deps Deps) (Detector, error)
	DependsOn  []string // dependency role names this type requires
	OutputKeys []string
}

// errNonIncreasing is returned by every detector's Update when barIdx does
// not strictly increase.
func errNonIncreasing(kind string, last, got int64) error {
	return fmt.Errorf("structure: %s received non-increasing bar_idx %d (last %d)", kind, got, last)
}

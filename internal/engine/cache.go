// FILE: cache.go
// Package engine – per-bar value history for features, structures, and
// prices, and the dsl.Snapshot implementation built on top of it. Every
// indicator/structure only exposes its *current* Value()/Output(); the
// engine is what retains the bars-ago history the DSL's Offset/WindowOp
// machinery needs, via the same RingBuffer primitive the indicator/
// structure packages are built on (§4.1).
package engine

import (
	"math"

	"github.com/playcore/derivcore/internal/bar"
	"github.com/playcore/derivcore/internal/dsl"
	"github.com/playcore/derivcore/internal/indicator"
	"github.com/playcore/derivcore/internal/play"
	"github.com/playcore/derivcore/internal/primitives"
	"github.com/playcore/derivcore/internal/structure"
)

// historyDepth covers the DSL's 500-bar window cap (§4.4) plus a small
// safety margin for the 1-bar crossover lookback on top of a full window.
const historyDepth = 512

// valueCache retains, per feature/structure output key, the last
// historyDepth bar values, and the same for the reserved price
// identifiers. It implements dsl.Snapshot directly.
type valueCache struct {
	compiled *play.Compiled

	featureReady map[string]bool
	features     map[string]*primitives.RingBuffer[float64] // key: featureID + "." + field

	structReady map[string]bool
	structs     map[string]*primitives.RingBuffer[any] // key: structKey + "." + field

	prices map[string]*primitives.RingBuffer[float64] // key: price kind

	setupFired map[string]bool
}

func newValueCache(c *play.Compiled) *valueCache {
	vc := &valueCache{
		compiled:     c,
		featureReady: make(map[string]bool, len(c.Indicators)),
		features:     make(map[string]*primitives.RingBuffer[float64]),
		structReady:  make(map[string]bool, len(c.Structures)),
		structs:      make(map[string]*primitives.RingBuffer[any]),
		prices:       make(map[string]*primitives.RingBuffer[float64]),
		setupFired:   make(map[string]bool),
	}
	for _, kind := range []string{"close", "open", "high", "low", "volume", "last_price", "mark_price"} {
		vc.prices[kind] = primitives.NewRingBuffer[float64](historyDepth)
	}
	return vc
}

func featureHistKey(name, field string) string { return name + "." + field }

// pushFeature records one feature's current outputs after its Update call.
func (vc *valueCache) pushFeature(name string, ind indicator.Indicator) {
	vc.featureReady[name] = ind.IsReady()
	for field, v := range ind.Value() {
		key := featureHistKey(name, field)
		rb, ok := vc.features[key]
		if !ok {
			rb = primitives.NewRingBuffer[float64](historyDepth)
			vc.features[key] = rb
		}
		rb.Push(v)
	}
	// Single-output indicators also answer to the bare name with no field.
	if v, ok := ind.Value()["value"]; ok {
		key := featureHistKey(name, "")
		rb, ok := vc.features[key]
		if !ok {
			rb = primitives.NewRingBuffer[float64](historyDepth)
			vc.features[key] = rb
		}
		rb.Push(v)
	}
}

// pushStruct records one structure's current outputs after its Update call.
func (vc *valueCache) pushStruct(name string, det structure.Detector) {
	vc.structReady[name] = det.IsReady()
	for field, v := range det.Output() {
		key := featureHistKey(name, field)
		rb, ok := vc.structs[key]
		if !ok {
			rb = primitives.NewRingBuffer[any](historyDepth)
			vc.structs[key] = rb
		}
		rb.Push(v)
	}
}

// pushPrice1m records the live last/mark price feed (live-trading analog);
// backtest pushes close/open/high/low/volume from the driving 1m candle
// each sub-loop tick and forward-fills last/mark with the same close.
func (vc *valueCache) pushPrice1m(c bar.Candle) {
	vc.prices["close"].Push(c.Close)
	vc.prices["open"].Push(c.Open)
	vc.prices["high"].Push(c.High)
	vc.prices["low"].Push(c.Low)
	vc.prices["volume"].Push(c.Volume)
	vc.prices["last_price"].Push(c.Close)
	vc.prices["mark_price"].Push(c.Close)
}

func (vc *valueCache) Feature(name, field string, offset int) (float64, bool) {
	if !vc.featureReady[name] {
		return 0, false
	}
	rb, ok := vc.features[featureHistKey(name, field)]
	if !ok {
		return 0, false
	}
	idx := rb.Count() - 1 - offset
	v, err := rb.Get(idx)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (vc *valueCache) Struct(name, field string, offset int) (any, bool) {
	if !vc.structReady[name] {
		return nil, false
	}
	rb, ok := vc.structs[featureHistKey(name, field)]
	if !ok {
		return nil, false
	}
	idx := rb.Count() - 1 - offset
	v, err := rb.Get(idx)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (vc *valueCache) Price(kind string, offset int) (float64, bool) {
	rb, ok := vc.prices[kind]
	if !ok {
		return 0, false
	}
	idx := rb.Count() - 1 - offset
	v, err := rb.Get(idx)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (vc *valueCache) SetupFired(blockID string) (bool, bool) {
	v, ok := vc.setupFired[blockID]
	return v, ok
}

func (vc *valueCache) recordBlockResults(results []dsl.BlockResult) {
	for _, r := range results {
		vc.setupFired[r.ID] = r.Fired
	}
}

// isFinite mirrors the MISSING rule for the warmup gate (§4.5 step 2: "is
// ready AND the latest value is finite").
func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

var _ dsl.Snapshot = (*valueCache)(nil)

// FILE: types.go
// Package indicator – incremental technical indicators (spec §4.2). Every
// indicator is a pure streaming computation: Update(bar) folds in one closed
// candle, in O(1) for most kinds and in O(window) for those that rescan
// their window (WMA, LINREG, ALMA, KAMA, Williams %R, Stochastic,
// StochRSI, Donchian, Aroon, Fisher, and the Value getters of CCI and
// Bollinger), Value reports the current output(s), IsReady gates
// consumption until warmup completes.
package indicator

import "github.com/playcore/derivcore/internal/bar"

// Value is the output of an indicator at the current bar. Single-output
// indicators (EMA, RSI, ...) populate the "value" key; multi-output
// indicators (MACD, Bollinger, ...) populate their documented OutputKeys.
type Value map[string]float64

// Indicator is the contract every one of the ~40 indicator types in §4.2
// implements.
type Indicator interface {
	// Update folds in one closed candle. Callers must present candles in
	// strictly increasing ts_open order; this package does not re-check
	// that invariant (the engine's bar loop already enforces it).
	Update(c bar.Candle)
	// Value returns the current output. Callers must not use any value
	// inside it before IsReady() is true.
	Value() Value
	IsReady() bool
	Reset()
}

// Params is the decoded parameter bag for one feature declaration. Values
// are read with the typed getters below so every constructor applies the
// same default-and-validate shape (mirrors the teacher's getEnv/getEnvFloat
// helper pattern in env.go, generalized from process env to a decoded map).
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

// Kind names one of the registered indicator types. Using a distinct string
// type (rather than bare string) keeps the registry keyed by a typed tagged
// variant per the §9 redesign note ("registry/plugin dispatch ... realize
// this as a table of tagged variants").
type Kind string

// Descriptor is one row of the static registry table (§4.2/§9): a
// constructor, the output keys the compiler can bind FeatureRefs to, and a
// warmup estimator. warmup_estimate(params) >= bars_to_is_ready is the
// contract the engine's warmup gate composes over.
type Descriptor struct {
	Kind           Kind
	New            func(p Params) (Indicator, error)
	OutputKeys     []string
	WarmupEstimate func(p Params) int
}

// WithSafetyMargin applies the conservative default safety margin from
// §4.2: max(10, 5% of required bars).
func WithSafetyMargin(required int) int {
	margin := required / 20
	if margin < 10 {
		margin = 10
	}
	return required + margin
}

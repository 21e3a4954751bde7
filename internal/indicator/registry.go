// FILE: registry.go
// Package indicator – static dispatch table mapping an indicator_type
// string to its constructor, output keys, and warmup estimator (spec
// §4.2/§9 redesign note: "realize this as a table of tagged variants,
// resolved at compile time — never a runtime reflection/dynamic class
// lookup"). Built once in init(); unknown types are a ConfigError raised
// by the caller, this package never silently falls back.
package indicator

import (
	"fmt"

	"github.com/playcore/derivcore/internal/bar"
)

var registry = map[Kind]Descriptor{}

func register(d Descriptor) {
	if _, exists := registry[d.Kind]; exists {
		panic(fmt.Sprintf("indicator: duplicate registration for %q", d.Kind))
	}
	registry[d.Kind] = d
}

// Lookup returns the Descriptor for a registered indicator_type, or an
// error if the type is unknown.
func Lookup(kind Kind) (Descriptor, error) {
	d, ok := registry[kind]
	if !ok {
		return Descriptor{}, fmt.Errorf("indicator: unknown indicator_type %q", kind)
	}
	return d, nil
}

// srcOf reads the "source" param (default close) as a bar.Source.
func srcOf(p Params) bar.Source { return bar.Source(p.String("source", string(bar.SourceClose))) }

// warmupLen is shorthand for WithSafetyMargin(length param + extra).
func warmupLen(key string, def, extra int) func(p Params) int {
	return func(p Params) int { return WithSafetyMargin(p.Int(key, def) + extra) }
}

func init() {
	register(Descriptor{Kind: "sma", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("length", 14, 0),
		New: func(p Params) (Indicator, error) { return NewSMA(p, srcOf(p)), nil }})
	register(Descriptor{Kind: "ema", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("length", 14, 0),
		New: func(p Params) (Indicator, error) { return NewEMA(p, srcOf(p)), nil }})
	register(Descriptor{Kind: "wma", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("length", 14, 0),
		New: func(p Params) (Indicator, error) { return NewWMA(p, srcOf(p)), nil }})
	register(Descriptor{Kind: "dema", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("length", 14, 14),
		New: func(p Params) (Indicator, error) { return NewDEMA(p, srcOf(p)), nil }})
	register(Descriptor{Kind: "tema", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("length", 14, 28),
		New: func(p Params) (Indicator, error) { return NewTEMA(p, srcOf(p)), nil }})
	register(Descriptor{Kind: "trima", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("length", 14, 0),
		New: func(p Params) (Indicator, error) { return NewTRIMA(p, srcOf(p)), nil }})
	register(Descriptor{Kind: "zlma", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("length", 14, 0),
		New: func(p Params) (Indicator, error) { return NewZLMA(p, srcOf(p)), nil }})
	register(Descriptor{Kind: "alma", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("length", 14, 0),
		New: func(p Params) (Indicator, error) { return NewALMA(p, srcOf(p)), nil }})
	register(Descriptor{Kind: "kama", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("length", 10, 1),
		New: func(p Params) (Indicator, error) { return NewKAMA(p, srcOf(p)), nil }})
	register(Descriptor{Kind: "linreg", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("length", 14, 0),
		New: func(p Params) (Indicator, error) { return NewLINREG(p, srcOf(p)), nil }})

	register(Descriptor{Kind: "macd", OutputKeys: []string{"macd", "signal", "histogram"},
		WarmupEstimate: func(p Params) int {
			return WithSafetyMargin(p.Int("slow", 26) + p.Int("signal", 9))
		},
		New: func(p Params) (Indicator, error) { return NewMACD(p, srcOf(p)), nil }})
	register(Descriptor{Kind: "bollinger", OutputKeys: []string{"lower", "middle", "upper", "bandwidth", "percent_b"},
		WarmupEstimate: warmupLen("length", 20, 0),
		New:            func(p Params) (Indicator, error) { return NewBollinger(p, srcOf(p)), nil }})

	register(Descriptor{Kind: "atr", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("length", 14, 1),
		New: func(p Params) (Indicator, error) { return NewATR(p), nil }})
	register(Descriptor{Kind: "keltner", OutputKeys: []string{"middle", "upper", "lower"},
		WarmupEstimate: warmupLen("length", 20, 1),
		New:            func(p Params) (Indicator, error) { return NewKeltnerChannel(p), nil }})
	register(Descriptor{Kind: "donchian", OutputKeys: []string{"upper", "lower", "middle"},
		WarmupEstimate: warmupLen("length", 20, 0),
		New:            func(p Params) (Indicator, error) { return NewDonchian(p), nil }})

	register(Descriptor{Kind: "supertrend", OutputKeys: []string{"value", "direction"},
		WarmupEstimate: warmupLen("length", 10, 1),
		New:            func(p Params) (Indicator, error) { return NewSuperTrend(p), nil }})
	register(Descriptor{Kind: "psar", OutputKeys: []string{"value", "direction"},
		WarmupEstimate: func(p Params) int { return WithSafetyMargin(2) },
		New:            func(p Params) (Indicator, error) { return NewPSAR(p), nil }})
	register(Descriptor{Kind: "aroon", OutputKeys: []string{"up", "down"}, WarmupEstimate: warmupLen("length", 14, 1),
		New: func(p Params) (Indicator, error) { return NewAroon(p), nil }})
	register(Descriptor{Kind: "vortex", OutputKeys: []string{"vi_plus", "vi_minus"},
		WarmupEstimate: warmupLen("length", 14, 1),
		New:            func(p Params) (Indicator, error) { return NewVortex(p), nil }})
	register(Descriptor{Kind: "dm", OutputKeys: []string{"di_plus", "di_minus"}, WarmupEstimate: warmupLen("length", 14, 1),
		New: func(p Params) (Indicator, error) { return NewDM(p), nil }})
	register(Descriptor{Kind: "adx", OutputKeys: []string{"adx", "di_plus", "di_minus"},
		WarmupEstimate: func(p Params) int { return WithSafetyMargin(2 * p.Int("length", 14)) },
		New:            func(p Params) (Indicator, error) { return NewADX(p), nil }})

	register(Descriptor{Kind: "rsi", OutputKeys: []string{"value"}, WarmupEstimate: func(p Params) int {
		return WithSafetyMargin(p.Int("length", 14) + 1)
	}, New: func(p Params) (Indicator, error) { return NewRSI(p), nil }})
	register(Descriptor{Kind: "cci", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("length", 20, 0),
		New: func(p Params) (Indicator, error) { return NewCCI(p), nil }})
	register(Descriptor{Kind: "williams_r", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("length", 14, 0),
		New: func(p Params) (Indicator, error) { return NewWilliamsR(p), nil }})
	register(Descriptor{Kind: "stochastic", OutputKeys: []string{"k", "d"}, WarmupEstimate: func(p Params) int {
		return WithSafetyMargin(p.Int("length", 14) + p.Int("smooth_k", 3) + p.Int("smooth_d", 3))
	}, New: func(p Params) (Indicator, error) { return NewStochastic(p), nil }})
	register(Descriptor{Kind: "stoch_rsi", OutputKeys: []string{"value"}, WarmupEstimate: func(p Params) int {
		return WithSafetyMargin(p.Int("length", 14) + 1 + p.Int("stoch_length", p.Int("length", 14)))
	}, New: func(p Params) (Indicator, error) { return NewStochRSI(p), nil }})
	register(Descriptor{Kind: "cmo", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("length", 14, 1),
		New: func(p Params) (Indicator, error) { return NewCMO(p), nil }})
	register(Descriptor{Kind: "mfi", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("length", 14, 1),
		New: func(p Params) (Indicator, error) { return NewMFI(p), nil }})
	register(Descriptor{Kind: "uo", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("slow", 28, 1),
		New: func(p Params) (Indicator, error) { return NewUO(p), nil }})
	register(Descriptor{Kind: "roc", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("length", 12, 1),
		New: func(p Params) (Indicator, error) { return NewROC(p), nil }})
	register(Descriptor{Kind: "mom", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("length", 10, 1),
		New: func(p Params) (Indicator, error) { return NewMOM(p), nil }})
	register(Descriptor{Kind: "trix", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("length", 15, 45),
		New: func(p Params) (Indicator, error) { return NewTRIX(p), nil }})
	register(Descriptor{Kind: "tsi", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("slow", 25, 13),
		New: func(p Params) (Indicator, error) { return NewTSI(p), nil }})
	register(Descriptor{Kind: "ppo", OutputKeys: []string{"ppo", "signal", "histogram"}, WarmupEstimate: func(p Params) int {
		return WithSafetyMargin(p.Int("slow", 26) + p.Int("signal", 9))
	}, New: func(p Params) (Indicator, error) { return NewPPO(p), nil }})
	register(Descriptor{Kind: "fisher", OutputKeys: []string{"value", "signal"}, WarmupEstimate: func(p Params) int {
		return WithSafetyMargin(p.Int("length", 9) + 1)
	}, New: func(p Params) (Indicator, error) { return NewFisher(p), nil }})
	register(Descriptor{Kind: "squeeze", OutputKeys: []string{"squeeze_on", "momentum"},
		WarmupEstimate: warmupLen("length", 20, 0),
		New:            func(p Params) (Indicator, error) { return NewSqueeze(p, srcOf(p)), nil }})

	register(Descriptor{Kind: "obv", OutputKeys: []string{"value"}, WarmupEstimate: func(p Params) int { return WithSafetyMargin(1) },
		New: func(p Params) (Indicator, error) { return NewOBV(p), nil }})
	register(Descriptor{Kind: "cmf", OutputKeys: []string{"value"}, WarmupEstimate: warmupLen("length", 20, 0),
		New: func(p Params) (Indicator, error) { return NewCMF(p), nil }})
	register(Descriptor{Kind: "vwap", OutputKeys: []string{"value"}, WarmupEstimate: func(p Params) int { return WithSafetyMargin(1) },
		New: func(p Params) (Indicator, error) { return NewVWAP(p), nil }})
	register(Descriptor{Kind: "anchored_vwap", OutputKeys: []string{"value"}, WarmupEstimate: func(p Params) int { return WithSafetyMargin(1) },
		New: func(p Params) (Indicator, error) { return NewAnchoredVWAP(p, nil), nil }})
}

// FILE: registry.go
// Package structure – static dispatch table (spec §9: tagged variants,
// static registration, unknown keys raise) mapping a structure kind string
// to its constructor and declared dependency roles.
package structure

import "fmt"

var registry = map[Kind]Descriptor{}

func register(d Descriptor) {
	if _, exists := registry[d.Kind]; exists {
		panic(fmt.Sprintf("structure: duplicate registration for %q", d.Kind))
	}
	registry[d.Kind] = d
}

// Lookup returns the Descriptor for a registered structure kind, or an
// error if the kind is unknown.
func Lookup(kind Kind) (Descriptor, error) {
	d, ok := registry[kind]
	if !ok {
		return Descriptor{}, fmt.Errorf("structure: unknown structure_type %q", kind)
	}
	return d, nil
}

func init() {
	register(Descriptor{Kind: "swing", New: NewSwing,
		OutputKeys: []string{"high_level", "low_level", "high_idx", "low_idx", "pair_direction", "pair_version", "major"}})
	register(Descriptor{Kind: "trend", New: NewTrend, DependsOn: []string{"swing"},
		OutputKeys: []string{"direction", "strength", "bars_in_trend"}})
	register(Descriptor{Kind: "market_structure", New: NewMarketStructure, DependsOn: []string{"swing"},
		OutputKeys: []string{"bias", "bos_this_bar", "choch_this_bar"}})
	register(Descriptor{Kind: "fibonacci", New: NewFibonacci, DependsOn: []string{"swing"},
		OutputKeys: nil}) // keys are dynamic (one per configured ratio)
	register(Descriptor{Kind: "zone", New: NewZone, DependsOn: []string{"swing"},
		OutputKeys: []string{"upper", "lower", "state"}})
	register(Descriptor{Kind: "derived_zone", New: NewDerivedZone, DependsOn: []string{"source"},
		OutputKeys: []string{"zones"}})
	register(Descriptor{Kind: "rolling_window", New: NewRollingWindow,
		OutputKeys: []string{"value"}})
}

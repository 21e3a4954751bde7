// FILE: build.go
// Package play – Build wires a validated Play into the concrete object
// graph the engine runs: one indicator.Indicator per declared feature, one
// structure.Detector per declared structure instance (constructed in
// topological order via structure.BuildGraph), the compiled DSL action
// blocks, and the per-TF-role warmup requirement the engine's warmup gate
// composes over (§4.2: "warmup is composed across indicators and
// structures per TF role ... max over all referenced features/structures").
package play

import (
	"fmt"

	"github.com/playcore/derivcore/internal/bar"
	"github.com/playcore/derivcore/internal/corekit"
	"github.com/playcore/derivcore/internal/dsl"
	"github.com/playcore/derivcore/internal/indicator"
	"github.com/playcore/derivcore/internal/structure"
)

// Compiled is the fully-wired, ready-to-run object graph for one Play.
type Compiled struct {
	Play       *Play
	Hash       string
	Indicators map[string]indicator.Indicator // keyed by feature id
	Structures map[string]structure.Detector  // keyed by structure key
	Blocks     []dsl.Block                     // compiled action blocks, in declared order
	// WarmupRequired is the bar_counter threshold each TF role must reach
	// before the engine's warmup gate opens (§4.5 step 2).
	WarmupRequired map[bar.Role]int
}

// Build constructs every indicator and structure instance declared on p,
// compiles its DSL action blocks against them, and computes the per-role
// warmup requirement.
func Build(p *Play) (*Compiled, error) {
	op := "play.build"
	hash, err := p.Hash()
	if err != nil {
		return nil, corekit.NewError(corekit.KindConfig, op, err)
	}

	indicators := make(map[string]indicator.Indicator, len(p.Features))
	featureWarmup := make(map[string]int, len(p.Features))
	featureRole := make(map[string]bar.Role, len(p.Features))
	for _, f := range p.Features {
		desc, err := indicator.Lookup(indicator.Kind(f.IndicatorType))
		if err != nil {
			return nil, corekit.NewError(corekit.KindConfig, op, fmt.Errorf("feature %q: %w", f.ID, err))
		}
		params := indicator.Params{}
		for k, v := range f.Params {
			params[k] = v
		}
		if f.InputSource != "" {
			params["source"] = f.InputSource
		}
		ind, err := desc.New(params)
		if err != nil {
			return nil, corekit.NewError(corekit.KindConfig, op, fmt.Errorf("feature %q: %w", f.ID, err))
		}
		indicators[f.ID] = ind
		featureWarmup[f.ID] = desc.WarmupEstimate(params)
		featureRole[f.ID] = bar.Role(f.TFRole)
	}

	specs := make([]structure.InstanceSpec, len(p.Structures))
	structRole := make(map[string]bar.Role, len(p.Structures))
	for i, s := range p.Structures {
		sp := structure.Params{}
		for k, v := range s.Params {
			sp[k] = v
		}
		specs[i] = structure.InstanceSpec{
			Name: s.Key, Kind: structure.Kind(s.Type), Params: sp,
			DependsOn: s.DependsOn, IndicatorDeps: s.IndicatorDeps,
		}
		structRole[s.Key] = bar.Role(s.TFRole)
	}
	structs, err := structure.BuildGraph(specs, indicators)
	if err != nil {
		return nil, corekit.NewError(corekit.KindConfig, op, err)
	}

	structWarmup := make(map[string]int, len(p.Structures))
	for _, s := range p.Structures {
		structWarmup[s.Key] = structureWarmupEstimate(structure.Kind(s.Type), structure.Params(s.Params), s.IndicatorDeps, featureWarmup)
	}

	reg, err := newDSLRegistry(p)
	if err != nil {
		return nil, corekit.NewError(corekit.KindConfig, op, err)
	}

	blocks := make([]dsl.Block, len(p.Actions))
	for i, a := range p.Actions {
		node := map[string]any{"id": a.ID}
		if a.When != nil {
			node["when"] = a.When
		}
		if a.Cases != nil {
			node["cases"] = a.Cases
		}
		if a.ElseEmit != nil {
			node["else_emit"] = a.ElseEmit
		}
		if a.Emit != nil {
			node["emit"] = a.Emit
		}
		b, err := dsl.ParseBlock(node)
		if err != nil {
			return nil, corekit.NewError(corekit.KindConfig, op, fmt.Errorf("action %d: %w", i, err))
		}
		blocks[i] = b
	}
	out, err := dsl.Compile(blocks, reg)
	if err != nil {
		return nil, corekit.NewError(corekit.KindConfig, op, err)
	}

	warmup := map[bar.Role]int{bar.RoleLow: 0, bar.RoleMed: 0, bar.RoleHigh: 0}
	for name, w := range featureWarmup {
		role := featureRole[name]
		if w > warmup[role] {
			warmup[role] = w
		}
	}
	for name, w := range structWarmup {
		role := structRole[name]
		if w > warmup[role] {
			warmup[role] = w
		}
	}

	return &Compiled{
		Play: p, Hash: hash,
		Indicators: indicators, Structures: structs, Blocks: out.Blocks,
		WarmupRequired: warmup,
	}, nil
}

// structureWarmupEstimate approximates bars_to_is_ready for a structure
// instance from its own params (and, for Zone, its ATR indicator
// dependency's own warmup) since structure.Descriptor carries no
// WarmupEstimate func of its own (§4.3 detectors warm up structurally —
// from window sizes and injected dependencies — rather than via a single
// parametric formula the way §4.2 indicators do).
func structureWarmupEstimate(kind structure.Kind, p structure.Params, indDeps map[string]string, featureWarmup map[string]int) int {
	switch kind {
	case "swing":
		return p.Int("left", 3) + p.Int("right", 3) + 1
	case "trend":
		return 3 // needs a handful of confirmed swing pivots to classify a wave
	case "market_structure":
		return 2
	case "fibonacci":
		return 1
	case "zone":
		if name, ok := indDeps["atr"]; ok {
			if w, ok := featureWarmup[name]; ok {
				return w
			}
		}
		return 1
	case "derived_zone":
		return 1
	case "rolling_window":
		return p.Int("size", 20)
	default:
		return 1
	}
}

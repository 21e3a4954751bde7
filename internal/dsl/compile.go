// FILE: compile.go
// Package dsl – compile step (spec §4.4): resolves every UnresolvedRef into
// a concrete FeatureRef or StructRef against the Play's registries, resolves
// duration-based windows into bar counts, collects the feature/structure
// name set that feeds the warmup calculator, and rejects circular SetupRef
// chains with a recursion-visited set (§9: "cycles fail with a ConfigError
// at compile time, not at evaluation").
package dsl

import (
	"fmt"
	"time"

	"github.com/playcore/derivcore/internal/corekit"
)

// maxWindowDuration and maxWindowBars are the 24h ceiling and 500-bar cap a
// duration-based window is clamped to (§4.4).
const (
	maxWindowDuration = 24 * time.Hour
	maxWindowBars     = 500
)

// RefInfo is what the registry reports about one declared feature or
// structure name: which TF role it lives on and the cache key the engine's
// Snapshot implementation uses to look its value up.
type RefInfo struct {
	TFRole   string
	CacheKey string
}

// Registry is the subset of the Play's compiled feature/structure tables
// that the DSL needs to resolve names and duration windows. internal/play
// implements this over its own feature/structure declaration maps.
type Registry interface {
	ResolveFeature(name string) (RefInfo, bool)
	ResolveStruct(name string) (RefInfo, bool)
	BarDuration(tfRole string) (time.Duration, bool)
	ExecTFRole() string
}

// CompileOutput is everything compile.go produces beyond the resolved
// Blocks themselves.
type CompileOutput struct {
	Blocks       []Block
	UsedFeatures map[string]bool // feature name -> referenced
	UsedStructs  map[string]bool // structure instance name -> referenced
}

// Compile resolves a parsed set of Blocks against reg.
func Compile(blocks []Block, reg Registry) (CompileOutput, error) {
	out := CompileOutput{
		UsedFeatures: map[string]bool{},
		UsedStructs:  map[string]bool{},
	}
	resolved := make([]Block, len(blocks))
	for i, b := range blocks {
		rb, err := compileBlock(b, reg, out.UsedFeatures, out.UsedStructs)
		if err != nil {
			return CompileOutput{}, err
		}
		resolved[i] = rb
	}
	out.Blocks = resolved
	if err := checkSetupCycles(resolved); err != nil {
		return CompileOutput{}, err
	}
	return out, nil
}

func compileBlock(b Block, reg Registry, usedF, usedS map[string]bool) (Block, error) {
	var err error
	if b.When != nil {
		if b.When, err = compileExpr(b.When, reg, usedF, usedS); err != nil {
			return Block{}, fmt.Errorf("block %q: when: %w", b.ID, err)
		}
	}
	for i, c := range b.Cases {
		if c.When, err = compileExpr(c.When, reg, usedF, usedS); err != nil {
			return Block{}, fmt.Errorf("block %q: cases[%d]: %w", b.ID, i, err)
		}
		b.Cases[i] = c
	}
	return b, nil
}

func compileExpr(e Expr, reg Registry, usedF, usedS map[string]bool) (Expr, error) {
	switch v := e.(type) {
	case Condition:
		lhs, err := compileOperand(v.Lhs, reg, usedF, usedS)
		if err != nil {
			return nil, err
		}
		rhs, err := compileOperand(v.Rhs, reg, usedF, usedS)
		if err != nil {
			return nil, err
		}
		if v.Tol != nil {
			tol, err := compileOperand(v.Tol, reg, usedF, usedS)
			if err != nil {
				return nil, err
			}
			v.Tol = tol
		}
		v.Lhs, v.Rhs = lhs, rhs
		if err := validateConditionTypes(v); err != nil {
			return nil, err
		}
		return v, nil
	case AllExpr:
		items, err := compileExprList(v.Items, reg, usedF, usedS)
		if err != nil {
			return nil, err
		}
		v.Items = items
		return v, nil
	case AnyExpr:
		items, err := compileExprList(v.Items, reg, usedF, usedS)
		if err != nil {
			return nil, err
		}
		v.Items = items
		return v, nil
	case NotExpr:
		inner, err := compileExpr(v.Item, reg, usedF, usedS)
		if err != nil {
			return nil, err
		}
		v.Item = inner
		return v, nil
	case WindowOp:
		inner, err := compileExpr(v.Inner, reg, usedF, usedS)
		if err != nil {
			return nil, err
		}
		v.Inner = inner
		if v.Duration != "" {
			bars, err := resolveDurationBars(v.Duration, reg)
			if err != nil {
				return nil, err
			}
			v.Bars = bars
			v.Duration = ""
		}
		if v.Bars <= 0 {
			return nil, cfgErr("dsl.compile", "%s: bars must be positive after resolution", v.Kind)
		}
		if v.Bars > maxWindowBars {
			v.Bars = maxWindowBars
		}
		return v, nil
	default:
		return nil, cfgErr("dsl.compile", "unhandled expression node %T", e)
	}
}

func compileExprList(items []Expr, reg Registry, usedF, usedS map[string]bool) ([]Expr, error) {
	out := make([]Expr, len(items))
	for i, it := range items {
		c, err := compileExpr(it, reg, usedF, usedS)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

func resolveDurationBars(dur string, reg Registry) (int, error) {
	d, err := time.ParseDuration(dur)
	if err != nil {
		return 0, cfgErr("dsl.compile", "malformed duration %q: %v", dur, err)
	}
	if d <= 0 {
		return 0, cfgErr("dsl.compile", "duration %q must be positive", dur)
	}
	barDur, ok := reg.BarDuration(reg.ExecTFRole())
	if !ok || barDur <= 0 {
		return 0, cfgErr("dsl.compile", "no bar duration known for exec TF role %q", reg.ExecTFRole())
	}
	if d > maxWindowDuration {
		d = maxWindowDuration
	}
	bars := int(d / barDur)
	if bars < 1 {
		bars = 1
	}
	ceilBars := int(maxWindowDuration / barDur)
	if bars > ceilBars {
		bars = ceilBars
	}
	return bars, nil
}

func compileOperand(o Operand, reg Registry, usedF, usedS map[string]bool) (Operand, error) {
	switch v := o.(type) {
	case UnresolvedRef:
		return resolveRef(v, reg, usedF, usedS)
	case ArithExpr:
		left, err := compileOperand(v.Left, reg, usedF, usedS)
		if err != nil {
			return nil, err
		}
		right, err := compileOperand(v.Right, reg, usedF, usedS)
		if err != nil {
			return nil, err
		}
		v.Left, v.Right = left, right
		return v, nil
	case ListLit:
		items := make([]Operand, len(v.Items))
		for i, it := range v.Items {
			c, err := compileOperand(it, reg, usedF, usedS)
			if err != nil {
				return nil, err
			}
			items[i] = c
		}
		v.Items = items
		return v, nil
	default:
		// Scalar, Range, PriceRef, SetupRef, FeatureRef, StructRef need no
		// further resolution.
		return o, nil
	}
}

func resolveRef(v UnresolvedRef, reg Registry, usedF, usedS map[string]bool) (Operand, error) {
	_, isFeature := reg.ResolveFeature(v.Name)
	_, isStruct := reg.ResolveStruct(v.Name)
	switch {
	case isFeature && isStruct:
		return nil, cfgErr("dsl.compile", "ambiguous reference %q: declared as both a feature and a structure", v.Name)
	case isFeature:
		usedF[v.Name] = true
		return FeatureRef{Name: v.Name, Field: v.Field, Offset: v.Offset}, nil
	case isStruct:
		usedS[v.Name] = true
		return StructRef{Name: v.Name, Field: v.Field, Offset: v.Offset}, nil
	default:
		return nil, cfgErr("dsl.compile", "unresolved reference %q: no feature or structure declared with this name", v.Name)
	}
}

// validateConditionTypes rejects a few operator/operand combinations that
// are structurally wrong regardless of runtime value (§4.4: "validates
// operator/operand type compatibility via the registry").
func validateConditionTypes(c Condition) error {
	switch c.Op {
	case "between":
		if _, ok := c.Rhs.(Range); !ok {
			return cfgErr("dsl.compile", "between requires a [lo, hi] RHS, got %T", c.Rhs)
		}
	case "in":
		if _, ok := c.Rhs.(ListLit); !ok {
			return cfgErr("dsl.compile", "in requires a list RHS, got %T", c.Rhs)
		}
	case "near_pct", "near_abs":
		if c.Tol == nil {
			return cfgErr("dsl.compile", "%s requires a tolerance operand", c.Op)
		}
	case "cross_above", "cross_below":
		if _, ok := c.Lhs.(Scalar); ok {
			return cfgErr("dsl.compile", "%s: lhs must not be a constant scalar", c.Op)
		}
	}
	return nil
}

// checkSetupCycles builds a graph of block-ID -> referenced SetupRef names
// and rejects cycles and references to unknown block IDs.
func checkSetupCycles(blocks []Block) error {
	byID := make(map[string]Block, len(blocks))
	for _, b := range blocks {
		if b.ID == "" {
			continue
		}
		byID[b.ID] = b
	}
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(byID))
	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return cfgErr("dsl.compile", "circular setup reference: %v -> %s", path, id)
		}
		color[id] = gray
		b, ok := byID[id]
		if !ok {
			return cfgErr("dsl.compile", "setup reference to unknown block id %q", id)
		}
		for _, name := range setupRefsIn(b) {
			if err := visit(name, append(path, id)); err != nil {
				return err
			}
		}
		color[id] = black
		return nil
	}
	for id := range byID {
		if color[id] == white {
			if err := visit(id, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func setupRefsIn(b Block) []string {
	var names []string
	var walkExpr func(e Expr)
	var walkOperand func(o Operand)
	walkOperand = func(o Operand) {
		switch v := o.(type) {
		case SetupRef:
			names = append(names, v.Name)
		case ArithExpr:
			walkOperand(v.Left)
			walkOperand(v.Right)
		case ListLit:
			for _, it := range v.Items {
				walkOperand(it)
			}
		}
	}
	walkExpr = func(e Expr) {
		switch v := e.(type) {
		case Condition:
			walkOperand(v.Lhs)
			walkOperand(v.Rhs)
			if v.Tol != nil {
				walkOperand(v.Tol)
			}
		case AllExpr:
			for _, it := range v.Items {
				walkExpr(it)
			}
		case AnyExpr:
			for _, it := range v.Items {
				walkExpr(it)
			}
		case NotExpr:
			walkExpr(v.Item)
		case WindowOp:
			walkExpr(v.Inner)
		}
	}
	if b.When != nil {
		walkExpr(b.When)
	}
	for _, c := range b.Cases {
		if c.When != nil {
			walkExpr(c.When)
		}
	}
	return names
}

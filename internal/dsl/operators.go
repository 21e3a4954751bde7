// FILE: operators.go
// Package dsl – the concrete operator implementations (§4.4/§8): comparison,
// between, in, cross_above/cross_below, near_pct/near_abs. Every operand
// read goes through evalOperand, which is where the ±Inf/NaN-is-MISSING
// rule (§9) applies; evalConditionTri reports a condition with a MISSING
// operand as TriMissing, and Eval collapses that to false at the outermost
// boundary.
package dsl

import "math"

func evalConditionTri(c Condition, shift int, snap Snapshot) Tri {
	// Range and ListLit right-hand sides are literals, never MISSING as a whole.
	operands := []Operand{c.Lhs}
	switch c.Rhs.(type) {
	case Range, ListLit:
	default:
		operands = append(operands, c.Rhs)
	}
	if c.Tol != nil {
		operands = append(operands, c.Tol)
	}
	for _, o := range operands {
		if _, ok := evalOperand(o, shift, snap); !ok {
			return TriMissing
		}
	}
	switch c.Op {
	case "cross_above", "cross_below":
		return boolToTri(evalCross(c, shift, snap))
	case "between":
		return boolToTri(evalBetween(c, shift, snap))
	case "in":
		return boolToTri(evalIn(c, shift, snap))
	case "near_pct", "near_abs":
		return boolToTri(evalNear(c, shift, snap))
	default:
		return boolToTri(evalCompare(c, shift, snap))
	}
}

func boolToTri(b bool) Tri {
	if b {
		return TriTrue
	}
	return TriFalse
}

// evalOperand reads one Operand's value, applying `shift` additional bars
// of lookback to any feature/structure/price reference it contains. ok is
// false for MISSING: unknown/not-ready refs or non-finite floats.
func evalOperand(o Operand, shift int, snap Snapshot) (any, bool) {
	switch v := o.(type) {
	case FeatureRef:
		val, ok := snap.Feature(v.Name, v.Field, v.Offset+shift)
		if !ok || isBadFloat(val) {
			return nil, false
		}
		return val, true
	case StructRef:
		val, ok := snap.Struct(v.Name, v.Field, v.Offset+shift)
		if !ok {
			return nil, false
		}
		if f, isFloat := val.(float64); isFloat && isBadFloat(f) {
			return nil, false
		}
		return val, true
	case PriceRef:
		val, ok := snap.Price(v.Kind, shift)
		if !ok || isBadFloat(val) {
			return nil, false
		}
		return val, true
	case Scalar:
		return v.Value, true
	case SetupRef:
		fired, ok := snap.SetupFired(v.Name)
		if !ok {
			return nil, false
		}
		return fired, true
	case ArithExpr:
		return evalArith(v, shift, snap)
	default:
		// Range/ListLit/UnresolvedRef are never read as a standalone value.
		return nil, false
	}
}

func evalArith(a ArithExpr, shift int, snap Snapshot) (any, bool) {
	lv, lok := evalOperand(a.Left, shift, snap)
	rv, rok := evalOperand(a.Right, shift, snap)
	if !lok || !rok {
		return nil, false
	}
	lf, lok2 := toNumeric(lv)
	rf, rok2 := toNumeric(rv)
	if !lok2 || !rok2 {
		return nil, false
	}
	switch a.Op {
	case "+":
		return lf + rf, true
	case "-":
		return lf - rf, true
	case "*":
		return lf * rf, true
	case "/":
		if rf == 0 {
			return nil, false
		}
		return lf / rf, true
	case "%":
		if rf == 0 {
			return nil, false
		}
		return math.Mod(lf, rf), true
	default:
		return nil, false
	}
}

func evalCompare(c Condition, shift int, snap Snapshot) bool {
	lv, lok := evalOperand(c.Lhs, shift, snap)
	rv, rok := evalOperand(c.Rhs, shift, snap)
	if !lok || !rok {
		return false
	}
	switch c.Op {
	case "==":
		return genericEqual(lv, rv)
	case "!=":
		return !genericEqual(lv, rv)
	case ">", "<", ">=", "<=":
		lf, lok := toNumeric(lv)
		rf, rok := toNumeric(rv)
		if !lok || !rok {
			return false
		}
		switch c.Op {
		case ">":
			return lf > rf
		case "<":
			return lf < rf
		case ">=":
			return lf >= rf
		default:
			return lf <= rf
		}
	default:
		return false
	}
}

func evalCross(c Condition, shift int, snap Snapshot) bool {
	curL, curLok := evalOperand(c.Lhs, shift, snap)
	curR, curRok := evalOperand(c.Rhs, shift, snap)
	prevL, prevLok := evalOperand(c.Lhs, shift+1, snap)
	prevR, prevRok := evalOperand(c.Rhs, shift+1, snap)
	if !curLok || !curRok || !prevLok || !prevRok {
		return false // missing previous (or current) => false, per §4.4
	}
	clf, _ := toNumeric(curL)
	crf, _ := toNumeric(curR)
	plf, _ := toNumeric(prevL)
	prf, _ := toNumeric(prevR)
	if c.Op == "cross_above" {
		return plf <= prf && clf > crf
	}
	return plf >= prf && clf < crf
}

func evalBetween(c Condition, shift int, snap Snapshot) bool {
	lv, lok := evalOperand(c.Lhs, shift, snap)
	if !lok {
		return false
	}
	lf, ok := toNumeric(lv)
	if !ok {
		return false
	}
	rng, ok := c.Rhs.(Range)
	if !ok {
		return false
	}
	return lf >= rng.Lo && lf <= rng.Hi
}

func evalIn(c Condition, shift int, snap Snapshot) bool {
	lv, lok := evalOperand(c.Lhs, shift, snap)
	if !lok {
		return false
	}
	list, ok := c.Rhs.(ListLit)
	if !ok {
		return false
	}
	for _, it := range list.Items {
		iv, iok := evalOperand(it, shift, snap)
		if iok && genericEqual(lv, iv) {
			return true
		}
	}
	return false
}

func evalNear(c Condition, shift int, snap Snapshot) bool {
	value, vok := evalOperand(c.Lhs, shift, snap)
	target, tok := evalOperand(c.Rhs, shift, snap)
	tol, tolok := evalOperand(c.Tol, shift, snap)
	if !vok || !tok || !tolok {
		return false
	}
	vf, ok1 := toNumeric(value)
	tf, ok2 := toNumeric(target)
	tolf, ok3 := toNumeric(tol)
	if !ok1 || !ok2 || !ok3 {
		return false
	}
	if c.Op == "near_pct" {
		return math.Abs(vf-tf) <= (tolf/100.0)*math.Abs(tf)
	}
	return math.Abs(vf-tf) <= tolf
}

func isBadFloat(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}

func toNumeric(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

// genericEqual compares two operand values for ==/!=/in: numeric values
// compare as floats, everything else (string enums, bools) as Go equality.
func genericEqual(a, b any) bool {
	if af, aok := toNumeric(a); aok {
		if bf, bok := toNumeric(b); bok {
			return af == bf
		}
		return false
	}
	return a == b
}

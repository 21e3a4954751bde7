// FILE: parse.go
// Package dsl – shorthand-grammar parser (spec §4.4). Parsing operates on
// already-YAML-decoded `interface{}` data (maps/[]interface{}/scalars), not
// raw YAML text: `gopkg.in/yaml.v3` lives only at the Play-loading boundary
// in internal/play. Parsing is strict: unknown condition keys, unknown
// operators, and malformed shorthand all reject with location context;
// legacy aliases are prohibited outright.
package dsl

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/playcore/derivcore/internal/corekit"
)

// comparisonOps is the 3-list operator set (excludes the 4-list proximity
// pair, which is validated separately).
var comparisonOps = map[string]bool{
	">": true, "<": true, ">=": true, "<=": true,
	"==": true, "!=": true, "in": true, "between": true,
	"cross_above": true, "cross_below": true,
}

var proximityOps = map[string]bool{"near_pct": true, "near_abs": true}

var arithOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "%": true}

var priceKinds = map[string]bool{
	"close": true, "open": true, "high": true, "low": true, "volume": true,
	"last_price": true, "mark_price": true,
}

// legacyAliases maps a few historically-seen shorthand spellings to the
// reason they are rejected, rather than silently accepted (§9: "Legacy
// aliases are prohibited").
var legacyAliases = map[string]string{
	"gt": "use '>' instead of the legacy alias 'gt'",
	"lt": "use '<' instead of the legacy alias 'lt'",
	"eq": "use '==' instead of the legacy alias 'eq'",
}

func cfgErr(op string, format string, args ...any) error {
	return corekit.NewError(corekit.KindConfig, op, fmt.Errorf(format, args...))
}

var dottedRefRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*)$`)
var bracketRefRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*)\[([0-9]*\.?[0-9]+)\]$`)
var bareIdentRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
var enumLiteralRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// ParseBlock builds a Block from one decoded action-block map.
func ParseBlock(node any) (Block, error) {
	m, ok := node.(map[string]any)
	if !ok {
		return Block{}, cfgErr("dsl.parse_block", "block must be a map, got %T", node)
	}
	b := Block{}
	if id, ok := m["id"].(string); ok {
		b.ID = id
	} else {
		return Block{}, cfgErr("dsl.parse_block", "block missing required string field 'id'")
	}
	if whenNode, ok := m["when"]; ok {
		when, err := ParseExpr(whenNode)
		if err != nil {
			return Block{}, err
		}
		b.When = when
	}
	if casesNode, ok := m["cases"]; ok {
		list, ok := casesNode.([]any)
		if !ok {
			return Block{}, cfgErr("dsl.parse_block", "block %q: 'cases' must be a list", b.ID)
		}
		for i, cn := range list {
			cm, ok := cn.(map[string]any)
			if !ok {
				return Block{}, cfgErr("dsl.parse_block", "block %q: cases[%d] must be a map", b.ID, i)
			}
			whenExpr, err := ParseExpr(cm["when"])
			if err != nil {
				return Block{}, err
			}
			emit, err := parseEmit(cm["emit"])
			if err != nil {
				return Block{}, err
			}
			b.Cases = append(b.Cases, Case{When: whenExpr, Emit: emit})
		}
	}
	if elseNode, ok := m["else_emit"]; ok {
		emit, err := parseEmit(elseNode)
		if err != nil {
			return Block{}, err
		}
		b.ElseEmit = emit
	}
	if emitNode, ok := m["emit"]; ok && len(b.Cases) == 0 {
		emit, err := parseEmit(emitNode)
		if err != nil {
			return Block{}, err
		}
		b.ElseEmit = emit
	}
	return b, nil
}

func parseEmit(node any) (Emit, error) {
	if node == nil {
		return nil, nil
	}
	m, ok := node.(map[string]any)
	if !ok {
		return nil, cfgErr("dsl.parse_emit", "emit payload must be a map, got %T", node)
	}
	return Emit(m), nil
}

// ParseExpr parses one decoded node into an Expr: a bare list is an implicit
// AllExpr over its parsed items unless its length matches a condition
// shorthand (3 for comparison, 4 for proximity).
func ParseExpr(node any) (Expr, error) {
	switch v := node.(type) {
	case nil:
		return nil, cfgErr("dsl.parse_expr", "expression must not be null")
	case map[string]any:
		return parseExprMap(v)
	case []any:
		return parseExprList(v)
	default:
		return nil, cfgErr("dsl.parse_expr", "expression must be a map or list, got %T", node)
	}
}

func parseExprMap(m map[string]any) (Expr, error) {
	if len(m) != 1 {
		return nil, cfgErr("dsl.parse_expr", "composite expression map must have exactly one key, got %d", len(m))
	}
	for key, val := range m {
		if reason, bad := legacyAliases[key]; bad {
			return nil, cfgErr("dsl.parse_expr", "legacy alias %q rejected: %s", key, reason)
		}
		switch key {
		case "all":
			items, err := parseExprItems(val, "all")
			if err != nil {
				return nil, err
			}
			return AllExpr{Items: items}, nil
		case "any":
			items, err := parseExprItems(val, "any")
			if err != nil {
				return nil, err
			}
			return AnyExpr{Items: items}, nil
		case "not":
			if list, ok := val.([]any); ok {
				// A 3- or 4-list with a string operator is one condition
				// shorthand; any other list is a list of expressions.
				if n := len(list); n == 3 || n == 4 {
					if _, isOp := list[1].(string); isOp {
						cond, err := parseExprList(list)
						if err != nil {
							return nil, err
						}
						return NotExpr{Item: AllExpr{Items: []Expr{cond}}}, nil
					}
				}
				items, err := parseExprItems(list, "not")
				if err != nil {
					return nil, err
				}
				return NotExpr{Item: AllExpr{Items: items}}, nil
			}
			inner, err := ParseExpr(val)
			if err != nil {
				return nil, err
			}
			return NotExpr{Item: inner}, nil
		case "holds_for", "occurred_within", "count_true":
			return parseWindowOp(WindowKind(key), val)
		default:
			return nil, cfgErr("dsl.parse_expr", "unknown expression key %q", key)
		}
	}
	panic("unreachable")
}

func parseExprItems(val any, key string) ([]Expr, error) {
	list, ok := val.([]any)
	if !ok {
		return nil, cfgErr("dsl.parse_expr", "%q must be a list", key)
	}
	items := make([]Expr, 0, len(list))
	for i, in := range list {
		e, err := ParseExpr(in)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		items = append(items, e)
	}
	return items, nil
}

func parseWindowOp(kind WindowKind, val any) (Expr, error) {
	m, ok := val.(map[string]any)
	if !ok {
		return nil, cfgErr("dsl.parse_expr", "%s must be a map with 'expr' and 'bars' or 'duration'", kind)
	}
	w := WindowOp{Kind: kind}
	if bars, ok := m["bars"]; ok {
		n, ok := toInt(bars)
		if !ok {
			return nil, cfgErr("dsl.parse_expr", "%s.bars must be an integer", kind)
		}
		w.Bars = n
	} else if dur, ok := m["duration"].(string); ok {
		w.Duration = dur
	} else {
		return nil, cfgErr("dsl.parse_expr", "%s requires 'bars' or 'duration'", kind)
	}
	if kind == WindowCountTrue {
		minTrue, ok := m["min_true"]
		if !ok {
			return nil, cfgErr("dsl.parse_expr", "count_true requires 'min_true'")
		}
		n, ok := toInt(minTrue)
		if !ok {
			return nil, cfgErr("dsl.parse_expr", "count_true.min_true must be an integer")
		}
		w.MinTrue = n
	}
	exprNode, ok := m["expr"]
	if !ok {
		return nil, cfgErr("dsl.parse_expr", "%s requires 'expr'", kind)
	}
	inner, err := ParseExpr(exprNode)
	if err != nil {
		return nil, err
	}
	w.Inner = inner
	return w, nil
}

func parseExprList(list []any) (Expr, error) {
	switch len(list) {
	case 3:
		op, ok := list[1].(string)
		if !ok {
			return nil, cfgErr("dsl.parse_expr", "condition operator must be a string, got %T", list[1])
		}
		if reason, bad := legacyAliases[op]; bad {
			return nil, cfgErr("dsl.parse_expr", "legacy alias %q rejected: %s", op, reason)
		}
		if proximityOps[op] {
			return nil, cfgErr("dsl.parse_expr", "operator %q requires the 4-list proximity form [lhs, op, target, tol]", op)
		}
		if !comparisonOps[op] {
			return nil, cfgErr("dsl.parse_expr", "unknown operator %q", op)
		}
		lhs, err := ParseOperand(list[0])
		if err != nil {
			return nil, err
		}
		rhs, err := parseRHSOperand(op, list[2])
		if err != nil {
			return nil, err
		}
		return Condition{Lhs: lhs, Op: op, Rhs: rhs}, nil
	case 4:
		op, ok := list[1].(string)
		if !ok || !proximityOps[op] {
			return nil, cfgErr("dsl.parse_expr", "4-list condition operator must be one of near_pct/near_abs, got %v", list[1])
		}
		lhs, err := ParseOperand(list[0])
		if err != nil {
			return nil, err
		}
		target, err := ParseOperand(list[2])
		if err != nil {
			return nil, err
		}
		tol, err := ParseOperand(list[3])
		if err != nil {
			return nil, err
		}
		return Condition{Lhs: lhs, Op: op, Rhs: target, Tol: tol}, nil
	default:
		items := make([]Expr, 0, len(list))
		for i, in := range list {
			e, err := ParseExpr(in)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, e)
		}
		return AllExpr{Items: items}, nil
	}
}

// parseRHSOperand special-cases the `between` and `in` RHS shorthands, which
// are bare lists that are not arithmetic expressions.
func parseRHSOperand(op string, node any) (Operand, error) {
	switch op {
	case "between":
		list, ok := node.([]any)
		if !ok || len(list) != 2 {
			return nil, cfgErr("dsl.parse_expr", "between RHS must be a length-2 [lo, hi] list")
		}
		lo, ok := toFloat(list[0])
		if !ok {
			return nil, cfgErr("dsl.parse_expr", "between RHS[0] must be numeric")
		}
		hi, ok := toFloat(list[1])
		if !ok {
			return nil, cfgErr("dsl.parse_expr", "between RHS[1] must be numeric")
		}
		return Range{Lo: lo, Hi: hi}, nil
	case "in":
		list, ok := node.([]any)
		if !ok {
			return nil, cfgErr("dsl.parse_expr", "in RHS must be a list")
		}
		items := make([]Operand, 0, len(list))
		for i, v := range list {
			o, err := ParseOperand(v)
			if err != nil {
				return nil, fmt.Errorf("in RHS[%d]: %w", i, err)
			}
			items = append(items, o)
		}
		return ListLit{Items: items}, nil
	default:
		return ParseOperand(node)
	}
}

// ParseOperand parses one decoded node into an Operand.
func ParseOperand(node any) (Operand, error) {
	switch v := node.(type) {
	case nil:
		return nil, cfgErr("dsl.parse_operand", "operand must not be null")
	case string:
		return parseOperandString(v)
	case bool:
		return Scalar{Value: v}, nil
	case int:
		return Scalar{Value: float64(v)}, nil
	case float64:
		return Scalar{Value: v}, nil
	case map[string]any:
		return parseOperandMap(v)
	case []any:
		return parseArithList(v)
	default:
		return nil, cfgErr("dsl.parse_operand", "unsupported operand type %T", node)
	}
}

func parseOperandString(s string) (Operand, error) {
	if priceKinds[s] {
		return PriceRef{Kind: s}, nil
	}
	if m := bracketRefRe.FindStringSubmatch(s); m != nil {
		ratio, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			return nil, cfgErr("dsl.parse_operand", "malformed bracket ratio in %q", s)
		}
		return UnresolvedRef{Name: m[1], Field: m[2] + "_" + formatRatio(ratio)}, nil
	}
	if m := dottedRefRe.FindStringSubmatch(s); m != nil {
		return UnresolvedRef{Name: m[1], Field: m[2]}, nil
	}
	if enumLiteralRe.MatchString(s) {
		return Scalar{Value: s}, nil
	}
	if bareIdentRe.MatchString(s) {
		return UnresolvedRef{Name: s}, nil
	}
	if reason, bad := legacyAliases[s]; bad {
		return nil, cfgErr("dsl.parse_operand", "legacy alias %q rejected: %s", s, reason)
	}
	return Scalar{Value: s}, nil
}

// formatRatio mirrors structure.FibLevelKey's canonical formatting so that
// `fib.level[0.618]` and the engine's own internal key both read
// `level_0.618`.
func formatRatio(ratio float64) string {
	return strconv.FormatFloat(ratio, 'f', -1, 64)
}

func parseOperandMap(m map[string]any) (Operand, error) {
	if len(m) != 1 {
		if refNode, ok := m["ref"]; ok {
			base, err := ParseOperand(refNode)
			if err != nil {
				return nil, err
			}
			return withOffset(base, m["offset"])
		}
		return nil, cfgErr("dsl.parse_operand", "operand map must have exactly one key, got %d", len(m))
	}
	for key, val := range m {
		switch key {
		case "setup":
			name, ok := val.(string)
			if !ok {
				return nil, cfgErr("dsl.parse_operand", "setup operand value must be a string")
			}
			return SetupRef{Name: name}, nil
		case "ref":
			return ParseOperand(val)
		default:
			if arithOps[key] {
				list, ok := val.([]any)
				if !ok || len(list) != 2 {
					return nil, cfgErr("dsl.parse_operand", "arithmetic dict form {%q: [a,b]} requires a length-2 list", key)
				}
				left, err := ParseOperand(list[0])
				if err != nil {
					return nil, err
				}
				right, err := ParseOperand(list[1])
				if err != nil {
					return nil, err
				}
				return ArithExpr{Op: key, Left: left, Right: right}, nil
			}
			return nil, cfgErr("dsl.parse_operand", "unknown operand map key %q", key)
		}
	}
	panic("unreachable")
}

func withOffset(base Operand, offsetNode any) (Operand, error) {
	if offsetNode == nil {
		return base, nil
	}
	n, ok := toInt(offsetNode)
	if !ok {
		return nil, cfgErr("dsl.parse_operand", "offset must be an integer")
	}
	switch b := base.(type) {
	case UnresolvedRef:
		b.Offset = n
		return b, nil
	case PriceRef:
		return nil, cfgErr("dsl.parse_operand", "offset on a price reference is not yet supported")
	default:
		return nil, cfgErr("dsl.parse_operand", "offset is only valid on a feature/structure reference")
	}
}

func parseArithList(list []any) (Operand, error) {
	if len(list) != 3 {
		return nil, cfgErr("dsl.parse_operand", "bare list operand must be the 3-element arithmetic form [a, op, b], got length %d", len(list))
	}
	op, ok := list[1].(string)
	if !ok || !arithOps[op] {
		return nil, cfgErr("dsl.parse_operand", "arithmetic list form middle element must be one of + - * / %%, got %v", list[1])
	}
	left, err := ParseOperand(list[0])
	if err != nil {
		return nil, err
	}
	right, err := ParseOperand(list[2])
	if err != nil {
		return nil, err
	}
	return ArithExpr{Op: op, Left: left, Right: right}, nil
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
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

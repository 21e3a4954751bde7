package dsl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeSnapshot is keyed by (name, field) -> history, history[0] is current
// bar, history[1] one bar ago, etc. Missing entries or out-of-range offsets
// report ok=false.
type fakeSnapshot struct {
	features map[string][]float64
	structs  map[string][]any
	prices   map[string][]float64
	setups   map[string]bool
}

func newFakeSnapshot() *fakeSnapshot {
	return &fakeSnapshot{
		features: map[string][]float64{},
		structs:  map[string][]any{},
		prices:   map[string][]float64{},
		setups:   map[string]bool{},
	}
}

func featKey(name, field string) string { return name + "." + field }

func (s *fakeSnapshot) Feature(name, field string, offset int) (float64, bool) {
	h, ok := s.features[featKey(name, field)]
	if !ok || offset < 0 || offset >= len(h) {
		return 0, false
	}
	return h[offset], true
}

func (s *fakeSnapshot) Struct(name, field string, offset int) (any, bool) {
	h, ok := s.structs[featKey(name, field)]
	if !ok || offset < 0 || offset >= len(h) {
		return nil, false
	}
	return h[offset], true
}

func (s *fakeSnapshot) Price(kind string, offset int) (float64, bool) {
	h, ok := s.prices[kind]
	if !ok || offset < 0 || offset >= len(h) {
		return 0, false
	}
	return h[offset], true
}

func (s *fakeSnapshot) SetupFired(blockID string) (bool, bool) {
	v, ok := s.setups[blockID]
	return v, ok
}

func TestEvalComparisonOperators(t *testing.T) {
	snap := newFakeSnapshot()
	snap.features[featKey("ema20", "")] = []float64{105}
	snap.features[featKey("ema50", "")] = []float64{100}

	e, err := ParseExpr([]any{"ema20", ">", "ema50"})
	require.NoError(t, err)
	// Manually resolve since this test bypasses Compile.
	cond := e.(Condition)
	cond.Lhs = FeatureRef{Name: "ema20"}
	cond.Rhs = FeatureRef{Name: "ema50"}
	require.True(t, Eval(cond, snap).Passed)
}

func TestEvalMissingShortCircuitsToFalse(t *testing.T) {
	snap := newFakeSnapshot()
	cond := Condition{Lhs: FeatureRef{Name: "ema20"}, Op: ">", Rhs: Scalar{Value: 1.0}}
	require.False(t, Eval(cond, snap).Passed)
}

func TestEvalNonFiniteIsMissing(t *testing.T) {
	snap := newFakeSnapshot()
	snap.features[featKey("ema20", "")] = []float64{math.NaN()}
	cond := Condition{Lhs: FeatureRef{Name: "ema20"}, Op: ">", Rhs: Scalar{Value: 1.0}}
	require.False(t, Eval(cond, snap).Passed)
}

func TestEvalCrossAbove(t *testing.T) {
	snap := newFakeSnapshot()
	// curr: ema20=101 > ema50=100; prev: ema20=99 <= ema50=100 -> cross_above true
	snap.features[featKey("ema20", "")] = []float64{101, 99}
	snap.features[featKey("ema50", "")] = []float64{100, 100}
	cond := Condition{Lhs: FeatureRef{Name: "ema20"}, Op: "cross_above", Rhs: FeatureRef{Name: "ema50"}}
	require.True(t, Eval(cond, snap).Passed)
}

func TestEvalCrossAboveFalseWithoutPrevious(t *testing.T) {
	snap := newFakeSnapshot()
	snap.features[featKey("ema20", "")] = []float64{101} // no history at offset 1
	snap.features[featKey("ema50", "")] = []float64{100}
	cond := Condition{Lhs: FeatureRef{Name: "ema20"}, Op: "cross_above", Rhs: FeatureRef{Name: "ema50"}}
	require.False(t, Eval(cond, snap).Passed)
}

func TestEvalBetweenInclusive(t *testing.T) {
	snap := newFakeSnapshot()
	snap.features[featKey("rsi14", "")] = []float64{30}
	cond := Condition{Lhs: FeatureRef{Name: "rsi14"}, Op: "between", Rhs: Range{Lo: 30, Hi: 70}}
	require.True(t, Eval(cond, snap).Passed)
}

func TestEvalNearPct(t *testing.T) {
	snap := newFakeSnapshot()
	snap.features[featKey("close", "")] = []float64{103}
	cond := Condition{
		Lhs: FeatureRef{Name: "close"},
		Op:  "near_pct",
		Rhs: Scalar{Value: 100.0},
		Tol: Scalar{Value: 3.0},
	}
	require.True(t, Eval(cond, snap).Passed) // |103-100| = 3 <= 0.03*100
}

func TestEvalInOperatorOnEnumStruct(t *testing.T) {
	snap := newFakeSnapshot()
	snap.structs[featKey("zone1", "state")] = []any{"BROKEN"}
	cond := Condition{
		Lhs: StructRef{Name: "zone1", Field: "state"},
		Op:  "in",
		Rhs: ListLit{Items: []Operand{Scalar{Value: "ACTIVE"}, Scalar{Value: "BROKEN"}}},
	}
	require.True(t, Eval(cond, snap).Passed)
}

func TestEvalAllShortCircuitsOnFalse(t *testing.T) {
	snap := newFakeSnapshot()
	snap.features[featKey("rsi14", "")] = []float64{80}
	expr := AllExpr{Items: []Expr{
		Condition{Lhs: FeatureRef{Name: "rsi14"}, Op: "<", Rhs: Scalar{Value: 30.0}}, // false
		Condition{Lhs: FeatureRef{Name: "missing"}, Op: ">", Rhs: Scalar{Value: 1.0}}, // missing
	}}
	require.False(t, Eval(expr, snap).Passed)
}

func TestEvalAllMissingWhenNoFalsePresent(t *testing.T) {
	snap := newFakeSnapshot()
	snap.features[featKey("rsi14", "")] = []float64{20}
	expr := AllExpr{Items: []Expr{
		Condition{Lhs: FeatureRef{Name: "rsi14"}, Op: "<", Rhs: Scalar{Value: 30.0}}, // true
		Condition{Lhs: FeatureRef{Name: "missing"}, Op: ">", Rhs: Scalar{Value: 1.0}}, // missing
	}}
	// no item is false, one is missing -> AllExpr is MISSING -> Eval collapses to false
	require.False(t, Eval(expr, snap).Passed)
}

func TestEvalAnyTrueShortCircuitsMissing(t *testing.T) {
	snap := newFakeSnapshot()
	snap.features[featKey("rsi14", "")] = []float64{20}
	expr := AnyExpr{Items: []Expr{
		Condition{Lhs: FeatureRef{Name: "missing"}, Op: ">", Rhs: Scalar{Value: 1.0}},
		Condition{Lhs: FeatureRef{Name: "rsi14"}, Op: "<", Rhs: Scalar{Value: 30.0}},
	}}
	require.True(t, Eval(expr, snap).Passed)
}

func TestEvalHoldsForRequiresAllBarsTrue(t *testing.T) {
	snap := newFakeSnapshot()
	snap.features[featKey("rsi14", "")] = []float64{20, 25, 28}
	w := WindowOp{Kind: WindowHoldsFor, Bars: 3, Inner: Condition{
		Lhs: FeatureRef{Name: "rsi14"}, Op: "<", Rhs: Scalar{Value: 30.0},
	}}
	require.True(t, Eval(w, snap).Passed)

	snap.features[featKey("rsi14", "")] = []float64{20, 35, 28}
	require.False(t, Eval(w, snap).Passed)
}

func TestEvalOccurredWithinAnyBarTrue(t *testing.T) {
	snap := newFakeSnapshot()
	snap.features[featKey("rsi14", "")] = []float64{50, 50, 20}
	w := WindowOp{Kind: WindowOccurredWithin, Bars: 3, Inner: Condition{
		Lhs: FeatureRef{Name: "rsi14"}, Op: "<", Rhs: Scalar{Value: 30.0},
	}}
	require.True(t, Eval(w, snap).Passed)
}

func TestEvalCountTrueThreshold(t *testing.T) {
	snap := newFakeSnapshot()
	snap.features[featKey("rsi14", "")] = []float64{20, 50, 25, 50, 22}
	w := WindowOp{Kind: WindowCountTrue, Bars: 5, MinTrue: 3, Inner: Condition{
		Lhs: FeatureRef{Name: "rsi14"}, Op: "<", Rhs: Scalar{Value: 30.0},
	}}
	require.True(t, Eval(w, snap).Passed) // 20, 25, 22 are < 30: count=3, meets MinTrue=3

	w.MinTrue = 4
	require.False(t, Eval(w, snap).Passed)
}

func TestEvalBlockFirstCaseWinsThenElse(t *testing.T) {
	snap := newFakeSnapshot()
	snap.features[featKey("rsi14", "")] = []float64{80}
	b := Block{
		ID:   "entry",
		When: Condition{Lhs: FeatureRef{Name: "rsi14"}, Op: ">", Rhs: Scalar{Value: 50.0}},
		Cases: []Case{
			{When: Condition{Lhs: FeatureRef{Name: "rsi14"}, Op: ">", Rhs: Scalar{Value: 90.0}}, Emit: Emit{"side": "strong"}},
			{When: Condition{Lhs: FeatureRef{Name: "rsi14"}, Op: ">", Rhs: Scalar{Value: 70.0}}, Emit: Emit{"side": "weak"}},
		},
		ElseEmit: Emit{"side": "none"},
	}
	res := EvalBlock(b, snap)
	require.True(t, res.Fired)
	require.Equal(t, "weak", res.Emit["side"])
}

func TestEvalBlockGateFalseMeansNotFired(t *testing.T) {
	snap := newFakeSnapshot()
	snap.features[featKey("rsi14", "")] = []float64{10}
	b := Block{
		ID:       "entry",
		When:     Condition{Lhs: FeatureRef{Name: "rsi14"}, Op: ">", Rhs: Scalar{Value: 50.0}},
		ElseEmit: Emit{"side": "none"},
	}
	res := EvalBlock(b, snap)
	require.False(t, res.Fired)
	require.Nil(t, res.Emit)
}

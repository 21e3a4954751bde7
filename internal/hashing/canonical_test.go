package hashing

import (
	"math"
	"testing"
)

func TestCanonicalizeIsKeyOrderIndependent(t *testing.T) {
	a := map[string]any{"b": 1, "a": 2}
	b := map[string]any{"a": 2, "b": 1}
	ca, err := Canonicalize(a)
	if err != nil {
		t.Fatal(err)
	}
	cb, err := Canonicalize(b)
	if err != nil {
		t.Fatal(err)
	}
	if string(ca) != string(cb) {
		t.Fatalf("canonical forms differ: %s vs %s", ca, cb)
	}
}

func TestCanonicalizeRejectsNaN(t *testing.T) {
	if _, err := Canonicalize(map[string]any{"x": math.NaN()}); err == nil {
		t.Fatal("expected error for NaN")
	}
	if _, err := Canonicalize(map[string]any{"x": math.Inf(1)}); err == nil {
		t.Fatal("expected error for +Inf")
	}
}

func TestHashDictDeterministic(t *testing.T) {
	v := map[string]any{"play_hash": "abc", "window": []any{1, 2}}
	h1, err := HashDict(v, 16)
	if err != nil {
		t.Fatal(err)
	}
	h2, _ := HashDict(v, 16)
	if h1 != h2 {
		t.Fatalf("hash not stable: %s vs %s", h1, h2)
	}
	if len(h1) != 16 {
		t.Fatalf("len = %d, want 16", len(h1))
	}
}

func TestRunHashChangesWithInput(t *testing.T) {
	base := RunHashInputs{PlayHash: "p", InputHash: "i", TradesHash: "t", EquityHash: "e"}
	h1, _ := ComputeRunHash(base)
	base.TradesHash = "t2"
	h2, _ := ComputeRunHash(base)
	if h1 == h2 {
		t.Fatal("expected different run hash after trades hash change")
	}
}

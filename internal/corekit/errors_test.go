package corekit

import (
	"errors"
	"testing"
)

func TestErrorWrapAndIs(t *testing.T) {
	cause := errors.New("boom")
	e := NewError(KindInvariant, "ledger.apply_fill", cause)
	if !errors.Is(e, cause) {
		t.Fatal("expected Unwrap chain to reach cause")
	}
	other := NewError(KindInvariant, "elsewhere", nil)
	if !errors.Is(e, other) {
		t.Fatal("expected same-Kind errors to match via Is")
	}
	different := NewError(KindConfig, "elsewhere", nil)
	if errors.Is(e, different) {
		t.Fatal("expected different-Kind errors not to match")
	}
}

func TestKindFatal(t *testing.T) {
	if !KindInvariant.Fatal() || !KindData.Fatal() {
		t.Fatal("invariant/data should be fatal")
	}
	if KindRuntime.Fatal() || KindConfig.Fatal() {
		t.Fatal("runtime/config should not be fatal")
	}
}

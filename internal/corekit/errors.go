// FILE: errors.go
// Package corekit – shared error-kind vocabulary (spec §7) and the
// RunnerResult surfaced to callers. Kept dependency-free so every other
// package can import it without risking an import cycle.
package corekit

import (
	"errors"
	"fmt"
)

// Kind tags an Error with one of the abstract error categories from §7.
type Kind string

const (
	KindConfig    Kind = "config"    // invalid YAML, unknown operator/enum, unresolved ref
	KindValidation Kind = "validation" // warmup shortfall, preflight data gap, TF mismatch
	KindRuntime   Kind = "runtime"   // single malformed candle: recoverable, skip+log
	KindData      Kind = "data"      // no 1m coverage in window: fatal
	KindInvariant Kind = "invariant" // ledger invariant violation, duplicate bar_idx
	KindExchange  Kind = "exchange"  // submission rejected / timeout (live only)
)

// Fatal reports whether errors of this kind halt the engine (§7 propagation
// policy): InvariantError and DataError halt; ConfigError/ValidationError
// are caught at load/preflight; RuntimeError is logged and does not halt.
// The engine's max-drawdown gate returns no error of any kind: it
// force-closes the open position and stops running the sub-loop.
func (k Kind) Fatal() bool {
	switch k {
	case KindInvariant, KindData:
		return true
	default:
		return false
	}
}

// Error is the single error type used across this module. Op names the
// operation that failed (e.g. "dsl.compile", "ledger.apply_fill"); Err is
// the wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, corekit.Error{Kind: KindInvariant}) style checks
// by comparing Kind only, matching how callers in this codebase branch on
// error category rather than identity.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// NewError builds an Error, wrapping cause with fmt's %w semantics intact.
func NewError(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Reason is the structured failure enum returned to callers in
// RunnerResult.Reason (§7: "the caller receives a structured reason enum
// rather than a raw message").
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonConfigInvalid     Reason = "config_invalid"
	ReasonWarmupShortfall   Reason = "warmup_shortfall"
	ReasonDataGap           Reason = "data_gap"
	ReasonInvariantViolated Reason = "invariant_violated"
	ReasonMaxDrawdown       Reason = "max_drawdown_halt"
	ReasonExchangeRejected  Reason = "exchange_rejected"
	ReasonCanceled          Reason = "canceled"
)

// RunnerResult is the terminal, user-visible outcome of a run (§7/§6).
type RunnerResult struct {
	Success   bool
	Reason    Reason
	Err       error
	Artifacts map[string]string // artifact name -> path, populated by the caller
}

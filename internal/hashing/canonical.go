// FILE: canonical.go
// Package hashing – canonical JSON serialization and the hashing contract
// from spec §6: play_hash, input_hash, trades_hash, equity_hash, run_hash.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Canonicalize produces a deterministic JSON encoding of v: sorted object
// keys, no insignificant whitespace, and explicit rejection of NaN/Inf
// (the DSL's MISSING sentinel must never reach serialization — §6).
//
// encoding/json already sorts map[string]any keys and emits no extraneous
// whitespace when marshaling without indentation. On top of that, this
// function walks bare floats, map[string]any and []any values rejecting
// non-finite floats with a "hashing: non-finite float" error, then
// round-trips the value through a generic representation (below). A
// non-finite float inside a struct is not reached by the walk; it surfaces
// as json.Marshal's UnsupportedValueError wrapped in "hashing: marshal".
func Canonicalize(v any) ([]byte, error) {
	if err := rejectNonFinite(v); err != nil {
		return nil, err
	}
	// Round-trip through a generic representation so struct field order
	// (which json.Marshal preserves for structs, not sorts) is normalized:
	// structs are first degraded to map[string]any via one marshal/unmarshal
	// pass, then re-marshaled, which sorts all object keys recursively.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("hashing: marshal: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("hashing: normalize: %w", err)
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("hashing: re-marshal: %w", err)
	}
	return out, nil
}

func rejectNonFinite(v any) error {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("hashing: non-finite float %v is not canonicalizable (use MISSING upstream)", t)
		}
	case float32:
		return rejectNonFinite(float64(t))
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := rejectNonFinite(t[k]); err != nil {
				return err
			}
		}
	case []any:
		for _, e := range t {
			if err := rejectNonFinite(e); err != nil {
				return err
			}
		}
	}
	return nil
}

// Sha256Hex returns the lowercase-hex sha256 digest of data.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashDict canonicalizes v and returns its sha256 hex digest, optionally
// truncated to truncLen hex characters (pass 0 for the full 64).
func HashDict(v any, truncLen int) (string, error) {
	canon, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	full := Sha256Hex(canon)
	if truncLen > 0 && truncLen < len(full) {
		return full[:truncLen], nil
	}
	return full, nil
}

// RunHashInputs is the named tuple hashed into run_hash (§6).
type RunHashInputs struct {
	PlayHash   string `json:"play_hash"`
	InputHash  string `json:"input_hash"`
	TradesHash string `json:"trades_hash"`
	EquityHash string `json:"equity_hash"`
}

// InputHashInputs is the named tuple hashed into input_hash (§6).
type InputHashInputs struct {
	PlayHash   string `json:"play_hash"`
	Window     [2]int64 `json:"window"`
	Symbol     string `json:"symbol"`
	DataEnv    string `json:"data_env"`
	FundingEnv string `json:"funding_env"`
}

// ComputePlayHash hashes a play's canonical dict to 16 hex chars.
func ComputePlayHash(playDict any) (string, error) {
	return HashDict(playDict, 16)
}

// ComputeInputHash hashes the InputHashInputs tuple to 16 hex chars.
func ComputeInputHash(in InputHashInputs) (string, error) {
	return HashDict(in, 16)
}

// ComputeListHash hashes a list of dict-able records (trades or equity
// points) to the full 64-char digest.
func ComputeListHash(records any) (string, error) {
	return HashDict(records, 0)
}

// ComputeRunHash hashes the four upstream hashes together to the full
// 64-char digest.
func ComputeRunHash(in RunHashInputs) (string, error) {
	return HashDict(in, 0)
}

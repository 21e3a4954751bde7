// FILE: artifact.go
// Package artifact – named interfaces for the per-run output files (§6
// "Compiled artifacts per run"): result.json, trades, equity, run manifest,
// and the pipeline signature. Concrete parquet/CSV writers are out of scope
// for this core (named-interface-only, §1); jsonwriter.go supplies a single
// JSON-only reference implementation for cmd/backtest's smoke path and is
// explicitly not authoritative output format.
package artifact

import "github.com/playcore/derivcore/internal/market"

// Result is the summary metrics block of result.json.
type Result struct {
	PlayHash    string  `json:"play_hash"`
	InputHash   string  `json:"input_hash"`
	TradesHash  string  `json:"trades_hash"`
	EquityHash  string  `json:"equity_hash"`
	RunHash     string  `json:"run_hash"`
	FinalEquity float64 `json:"final_equity"`
	TotalTrades int     `json:"total_trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
}

// Manifest echoes the Play and run environment (§6 run_manifest.json).
type Manifest struct {
	PlayID      string `json:"play_id"`
	PlayVersion string `json:"play_version"`
	Symbol      string `json:"symbol"`
	WindowStart int64  `json:"window_start"`
	WindowEnd   int64  `json:"window_end"`
	DataEnv     string `json:"data_env"`
	FundingEnv  string `json:"funding_env"`
}

// PipelineSignature is the validation-critical proof tuple (§6): a run
// failing any of these fields hard-fails rather than silently diverging.
type PipelineSignature struct {
	ConfigSource          string `json:"config_source"`
	UsesSystemConfigLoader bool   `json:"uses_system_config_loader"`
	PlaceholderMode       bool   `json:"placeholder_mode"`
	FeatureKeysMatch      bool   `json:"feature_keys_match"`
}

// ResultWriter is the named write surface for one run's artifacts. A
// concrete implementation picks its own storage format and layout; this
// core depends only on the interface.
type ResultWriter interface {
	WriteResult(r Result) error
	WriteTrades(trades []market.Trade) error
	WriteEquity(curve []market.EquityPoint) error
	WriteManifest(m Manifest) error
	WritePipelineSignature(sig PipelineSignature) error
}

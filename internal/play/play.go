// FILE: play.go
// Package play – the Play bundle (spec §3/§4.4): identity, account config,
// timeframe mapping, feature/structure declarations, action blocks, risk
// model, and position policy, decoded from YAML via gopkg.in/yaml.v3 (the
// one boundary where this module touches raw YAML text — everything
// downstream, including internal/dsl, works on already-decoded Go values).
// A Play is read-only after Load: construct once, compile once, never
// mutate.
package play

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/playcore/derivcore/internal/bar"
	"github.com/playcore/derivcore/internal/corekit"
	"github.com/playcore/derivcore/internal/hashing"
)

// ExitMode enumerates the position policy's exit strategy (§3).
type ExitMode string

const (
	ExitModeSLTPOnly   ExitMode = "sl_tp_only"
	ExitModeFirstHit   ExitMode = "first_hit"
	ExitModeSignalOnly ExitMode = "signal_only"
)

// AccountConfig is the Play's account-level economics.
type AccountConfig struct {
	InitialEquity float64 `yaml:"initial_equity"`
	MaxLeverage   float64 `yaml:"max_leverage"`
	TakerFeeRate  float64 `yaml:"taker_fee_rate"`
	MakerFeeRate  float64 `yaml:"maker_fee_rate"`
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct"`
}

// TimeframeMapping assigns a Bybit-style label to each of the three roles
// and names which role drives bar stepping.
type TimeframeMapping struct {
	LowTF  string `yaml:"low_tf"`
	MedTF  string `yaml:"med_tf"`
	HighTF string `yaml:"high_tf"`
	Exec   string `yaml:"exec"` // one of low_tf/med_tf/high_tf
}

// FeatureDecl is one indicator declaration (§3 "Feature (indicator
// instance)").
type FeatureDecl struct {
	ID            string         `yaml:"id"`
	IndicatorType string         `yaml:"indicator_type"`
	Params        map[string]any `yaml:"params"`
	TFRole        string         `yaml:"tf_role"`
	InputSource   string         `yaml:"input_source"`
}

// StructureDecl is one structure-detector declaration (§3 "Structure
// instance"), with `uses:` expressed as role -> instance-name maps.
type StructureDecl struct {
	Key           string            `yaml:"key"`
	Type          string            `yaml:"type"`
	TFRole        string            `yaml:"tf_role"`
	Params        map[string]any    `yaml:"params"`
	DependsOn     map[string]string `yaml:"uses"`
	IndicatorDeps map[string]string `yaml:"uses_indicator"`
}

// ActionBlockDecl is one decoded entry/exit DSL rule. Its When/Cases/
// ElseEmit are left as raw `interface{}` here; internal/dsl.ParseBlock
// turns them into the typed node graph at compile time.
type ActionBlockDecl struct {
	ID       string `yaml:"id"`
	When     any    `yaml:"when"`
	Cases    any    `yaml:"cases"`
	ElseEmit any    `yaml:"else_emit"`
	Emit     any    `yaml:"emit"`
}

// RiskModel is the SL/TP rule set and position sizing config (§3/§4.6).
type RiskModel struct {
	SizingMode  string  `yaml:"sizing_mode"` // e.g. "fixed_pct", "fixed_usdt"
	SizePct     float64 `yaml:"size_pct"`
	SizeUSDT    float64 `yaml:"size_usdt"`
	SLPct       float64 `yaml:"sl_pct"`
	TPPct       float64 `yaml:"tp_pct"`
	MinNotional float64 `yaml:"min_notional"`
}

// PositionPolicy governs which sides are allowed and how exits resolve.
type PositionPolicy struct {
	AllowLong  bool     `yaml:"allow_long"`
	AllowShort bool     `yaml:"allow_short"`
	ExitMode   ExitMode `yaml:"exit_mode"`
}

// Play is the immutable compiled strategy bundle (§3). Load constructs one
// from YAML; nothing downstream mutates it.
type Play struct {
	ID      string `yaml:"id"`
	Version string `yaml:"version"`

	Account   AccountConfig     `yaml:"account"`
	Timeframe TimeframeMapping  `yaml:"timeframe"`
	Features  []FeatureDecl     `yaml:"features"`
	Structures []StructureDecl  `yaml:"structures"`
	Actions   []ActionBlockDecl `yaml:"actions"`
	Risk      RiskModel         `yaml:"risk"`
	Position  PositionPolicy    `yaml:"position"`
}

// Load reads and decodes a Play from a YAML file, then validates it.
func Load(path string) (*Play, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, corekit.NewError(corekit.KindConfig, "play.load", err)
	}
	return Decode(raw)
}

// Decode parses raw YAML bytes into a validated Play.
func Decode(raw []byte) (*Play, error) {
	var p Play
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, corekit.NewError(corekit.KindConfig, "play.decode", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the structural invariants Load's caller must be able to
// rely on before any compile step runs.
func (p *Play) Validate() error {
	op := "play.validate"
	if p.ID == "" {
		return corekit.NewError(corekit.KindConfig, op, fmt.Errorf("missing required field 'id'"))
	}
	if p.Account.InitialEquity <= 0 {
		return corekit.NewError(corekit.KindConfig, op, fmt.Errorf("account.initial_equity must be positive"))
	}
	if p.Account.MaxLeverage <= 0 {
		return corekit.NewError(corekit.KindConfig, op, fmt.Errorf("account.max_leverage must be positive"))
	}
	for _, role := range []struct{ name, label string }{
		{"low_tf", p.Timeframe.LowTF}, {"med_tf", p.Timeframe.MedTF}, {"high_tf", p.Timeframe.HighTF},
	} {
		if role.label == "" {
			return corekit.NewError(corekit.KindConfig, op, fmt.Errorf("timeframe.%s is required", role.name))
		}
		if _, err := bar.ParseTimeframe(role.label); err != nil {
			return corekit.NewError(corekit.KindConfig, op, fmt.Errorf("timeframe.%s: %w", role.name, err))
		}
	}
	switch bar.Role(p.Timeframe.Exec) {
	case bar.RoleLow, bar.RoleMed, bar.RoleHigh:
	default:
		return corekit.NewError(corekit.KindConfig, op, fmt.Errorf("timeframe.exec must be one of low_tf/med_tf/high_tf, got %q", p.Timeframe.Exec))
	}
	seen := map[string]bool{}
	for _, f := range p.Features {
		if f.ID == "" {
			return corekit.NewError(corekit.KindConfig, op, fmt.Errorf("feature declaration missing 'id'"))
		}
		if seen[f.ID] {
			return corekit.NewError(corekit.KindConfig, op, fmt.Errorf("duplicate feature id %q", f.ID))
		}
		seen[f.ID] = true
		if f.IndicatorType == "" {
			return corekit.NewError(corekit.KindConfig, op, fmt.Errorf("feature %q missing 'indicator_type'", f.ID))
		}
	}
	structSeen := map[string]bool{}
	for _, s := range p.Structures {
		if s.Key == "" {
			return corekit.NewError(corekit.KindConfig, op, fmt.Errorf("structure declaration missing 'key'"))
		}
		if seen[s.Key] || structSeen[s.Key] {
			return corekit.NewError(corekit.KindConfig, op, fmt.Errorf("duplicate instance name %q (features and structures share one namespace)", s.Key))
		}
		structSeen[s.Key] = true
		if s.Type == "" {
			return corekit.NewError(corekit.KindConfig, op, fmt.Errorf("structure %q missing 'type'", s.Key))
		}
	}
	switch p.Position.ExitMode {
	case ExitModeSLTPOnly, ExitModeFirstHit, ExitModeSignalOnly:
	case "":
		return corekit.NewError(corekit.KindConfig, op, fmt.Errorf("position.exit_mode is required"))
	default:
		return corekit.NewError(corekit.KindConfig, op, fmt.Errorf("position.exit_mode: unknown value %q", p.Position.ExitMode))
	}
	if !p.Position.AllowLong && !p.Position.AllowShort {
		return corekit.NewError(corekit.KindConfig, op, fmt.Errorf("position policy must allow at least one of long/short"))
	}
	return nil
}

// Hash returns the Play's stable play_hash (§6): the canonical-JSON sha256
// of the Play's own decoded fields, truncated to 16 hex chars like the
// other run-scoped hashes.
func (p *Play) Hash() (string, error) {
	return hashing.HashDict(p, 16)
}

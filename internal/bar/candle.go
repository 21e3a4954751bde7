// FILE: candle.go
// Package bar – the Candle type and timeframe vocabulary shared by every
// other package in this module. A Candle is produced upstream (historical
// store in backtest, closed-bar detection in live) and never mutated once
// constructed.
package bar

import "fmt"

// Candle is a closed OHLCV aggregate over [TsOpen, TsClose), timestamps in
// UTC epoch milliseconds.
type Candle struct {
	TsOpen  int64
	TsClose int64
	Open    float64
	High    float64
	Low     float64
	Close   float64
	Volume  float64
}

// Validate checks the invariants from spec §3. tfMinutes is the declared
// timeframe of this candle.
func (c Candle) Validate(tfMinutes int) error {
	wantClose := c.TsOpen + int64(tfMinutes)*60_000
	if c.TsClose != wantClose {
		return fmt.Errorf("bar: ts_close %d != ts_open+tf (%d)", c.TsClose, wantClose)
	}
	if c.High < c.Low {
		return fmt.Errorf("bar: high %v < low %v", c.High, c.Low)
	}
	if c.High < c.Open || c.High < c.Close {
		return fmt.Errorf("bar: high %v below open/close", c.High)
	}
	if c.Low > c.Open || c.Low > c.Close {
		return fmt.Errorf("bar: low %v above open/close", c.Low)
	}
	if c.Volume < 0 {
		return fmt.Errorf("bar: negative volume %v", c.Volume)
	}
	return nil
}

// HLC3 returns the (high+low+close)/3 typical price.
func (c Candle) HLC3() float64 { return (c.High + c.Low + c.Close) / 3 }

// OHLC4 returns the (open+high+low+close)/4 average price.
func (c Candle) OHLC4() float64 { return (c.Open + c.High + c.Low + c.Close) / 4 }

// Source selects which price field of a Candle an indicator reads.
type Source string

const (
	SourceClose  Source = "close"
	SourceOpen   Source = "open"
	SourceHigh   Source = "high"
	SourceLow    Source = "low"
	SourceVolume Source = "volume"
	SourceHLC3   Source = "hlc3"
	SourceOHLC4  Source = "ohlc4"
)

// Value extracts the configured source field from a candle. Unknown sources
// are a ConfigError surfaced at compile time elsewhere; here we simply
// default to Close to keep this a total function for streaming code.
func (s Source) Value(c Candle) float64 {
	switch s {
	case SourceOpen:
		return c.Open
	case SourceHigh:
		return c.High
	case SourceLow:
		return c.Low
	case SourceVolume:
		return c.Volume
	case SourceHLC3:
		return c.HLC3()
	case SourceOHLC4:
		return c.OHLC4()
	default:
		return c.Close
	}
}

// Role names the three timeframe slots an engine juggles.
type Role string

const (
	RoleLow  Role = "low_tf"
	RoleMed  Role = "med_tf"
	RoleHigh Role = "high_tf"
)

// Timeframe is a declared interval in minutes; 1440 represents "D".
type Timeframe struct {
	Minutes int
	Label   string // canonical Bybit-style label, e.g. "15m", "4h", "D"
}

// bybitLabels maps canonical labels to minutes, per spec §6.
var bybitLabels = map[string]int{
	"1m": 1, "3m": 3, "5m": 5, "15m": 15, "30m": 30,
	"1h": 60, "2h": 120, "4h": 240, "12h": 720,
	"D": 1440, "W": 1440 * 7, "M": 1440 * 30,
}

// ParseTimeframe resolves a Bybit-style label into a Timeframe. Unknown
// labels are a ConfigError (reported by caller, not here — this package has
// no error-kind dependency to avoid an import cycle with corekit).
func ParseTimeframe(label string) (Timeframe, error) {
	minutes, ok := bybitLabels[label]
	if !ok {
		return Timeframe{}, fmt.Errorf("bar: unknown timeframe label %q", label)
	}
	return Timeframe{Minutes: minutes, Label: label}, nil
}

// OneMinute is the always-available finest-granularity timeframe.
var OneMinute = Timeframe{Minutes: 1, Label: "1m"}

package engine

import (
	"fmt"
	"testing"

	"github.com/playcore/derivcore/internal/bar"
	"github.com/playcore/derivcore/internal/exchange"
	"github.com/playcore/derivcore/internal/market"
	"github.com/playcore/derivcore/internal/play"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const crossPlayYAML = `
id: engine-test-play
version: "1"
account:
  initial_equity: 10000
  max_leverage: 5
  taker_fee_rate: 0.0006
  maker_fee_rate: 0.0002
  max_drawdown_pct: 0.9
timeframe:
  low_tf: "1m"
  med_tf: "1m"
  high_tf: "1m"
  exec: low_tf
features:
  - id: ema_fast
    indicator_type: ema
    params: {length: 2}
    tf_role: low_tf
  - id: ema_slow
    indicator_type: ema
    params: {length: 3}
    tf_role: low_tf
actions:
  - id: entry_long
    when: ["ema_fast", "cross_above", "ema_slow"]
    emit: {side: long, size_pct: 0.1}
risk:
  sizing_mode: fixed_pct
  size_pct: 0.1
  sl_pct: 0.05
  tp_pct: 0.5
  min_notional: 10
position:
  allow_long: true
  allow_short: false
  exit_mode: first_hit
`

func buildCandles(closes []float64) []bar.Candle {
	out := make([]bar.Candle, len(closes))
	ts := int64(0)
	prev := closes[0]
	for i, c := range closes {
		open := prev
		hi, lo := open, c
		if c > hi {
			hi = c
		}
		if open < lo {
			lo = open
		}
		out[i] = bar.Candle{TsOpen: ts, TsClose: ts + 60_000, Open: open, High: hi, Low: lo, Close: c, Volume: 500}
		ts += 60_000
		prev = c
	}
	return out
}

func TestEngineWarmsUpThenRunsAndEntersOnCross(t *testing.T) {
	p, err := play.Decode([]byte(crossPlayYAML))
	require.NoError(t, err)
	compiled, err := play.Build(p)
	require.NoError(t, err)
	require.Equal(t, 3, compiled.WarmupRequired[bar.RoleLow]) // max(ema len 2, ema len 3)

	sx := exchange.NewSimulatedExchange("BTCUSDT", p.Account.InitialEquity, p.Account.MaxLeverage,
		p.Account.TakerFeeRate, p.Account.MakerFeeRate,
		exchange.Instrument{TickSize: 0.01, LotSize: 1, MinNotional: 10}, exchange.DefaultExecutionConfig, nil)

	eng := New(compiled, sx, nil, nil, nil, zerolog.Nop())
	require.NoError(t, eng.Start())
	require.Equal(t, StateWarmingUp, eng.State())

	// 3 bars of downtrend to warm up with fast below slow, then a sharp
	// uptrend so the fast EMA crosses back above the slow one.
	closes := []float64{100, 99, 98, 105, 112, 119, 126, 133}
	candles := buildCandles(closes)

	for _, c := range candles {
		require.NoError(t, eng.ProcessBar(c, []bar.Candle{c}))
	}

	require.Equal(t, StateRunning, eng.State())
	// The gate opens on the bar where bar_counter first reaches
	// warmup_required (not the bar after), so that bar already emits.
	require.Len(t, eng.EquityCurve, len(closes)-compiled.WarmupRequired[bar.RoleLow]+1)
	require.True(t, sx.HasOpenPosition() || len(eng.Trades) > 0, "expected the cross to have produced a position or a completed trade")
}

func TestEngineStaysInWarmupBeforeThreshold(t *testing.T) {
	p, err := play.Decode([]byte(crossPlayYAML))
	require.NoError(t, err)
	compiled, err := play.Build(p)
	require.NoError(t, err)

	sx := exchange.NewSimulatedExchange("BTCUSDT", p.Account.InitialEquity, p.Account.MaxLeverage,
		p.Account.TakerFeeRate, p.Account.MakerFeeRate,
		exchange.Instrument{TickSize: 0.01, LotSize: 1, MinNotional: 10}, exchange.DefaultExecutionConfig, nil)
	eng := New(compiled, sx, nil, nil, nil, zerolog.Nop())
	require.NoError(t, eng.Start())

	candles := buildCandles([]float64{100, 99})
	for _, c := range candles {
		require.NoError(t, eng.ProcessBar(c, []bar.Candle{c}))
	}
	require.Equal(t, StateWarmingUp, eng.State())
	require.Empty(t, eng.EquityCurve)
}

// exitModePlayYAML has no SL/TP (sl_pct/tp_pct both zero) so CheckProtective
// never closes the position; the only way out is the exit_signal action
// block, firing once close crosses 130 on the same data used throughout
// this file.
const exitModePlayYAML = `
id: exit-mode-test
version: "1"
account:
  initial_equity: 10000
  max_leverage: 5
  taker_fee_rate: 0.0006
  maker_fee_rate: 0.0002
  max_drawdown_pct: 0.9
timeframe:
  low_tf: "1m"
  med_tf: "1m"
  high_tf: "1m"
  exec: low_tf
features:
  - id: ema_fast
    indicator_type: ema
    params: {length: 2}
    tf_role: low_tf
  - id: ema_slow
    indicator_type: ema
    params: {length: 3}
    tf_role: low_tf
actions:
  - id: entry_long
    when: ["ema_fast", "cross_above", "ema_slow"]
    emit: {side: long, size_pct: 0.1}
  - id: exit_signal
    when: ["close", ">", 130]
    emit: {action: close}
risk:
  sizing_mode: fixed_pct
  size_pct: 0.1
  min_notional: 10
position:
  allow_long: true
  allow_short: false
  exit_mode: %s
`

func runExitModeScenario(t *testing.T, exitMode string) (*Engine, *exchange.SimulatedExchange) {
	t.Helper()
	p, err := play.Decode([]byte(fmt.Sprintf(exitModePlayYAML, exitMode)))
	require.NoError(t, err)
	compiled, err := play.Build(p)
	require.NoError(t, err)

	sx := exchange.NewSimulatedExchange("BTCUSDT", p.Account.InitialEquity, p.Account.MaxLeverage,
		p.Account.TakerFeeRate, p.Account.MakerFeeRate,
		exchange.Instrument{TickSize: 0.01, LotSize: 1, MinNotional: 10}, exchange.DefaultExecutionConfig, nil)
	eng := New(compiled, sx, nil, nil, nil, zerolog.Nop())
	require.NoError(t, eng.Start())

	for _, c := range buildCandles([]float64{100, 99, 98, 105, 112, 119, 126, 133}) {
		require.NoError(t, eng.ProcessBar(c, []bar.Candle{c}))
	}
	return eng, sx
}

func TestExitModeSLTPOnlySuppressesSignalExit(t *testing.T) {
	eng, sx := runExitModeScenario(t, "sl_tp_only")
	require.True(t, sx.HasOpenPosition(), "a same-bar signal exit must be suppressed when no SL/TP fired")
	for _, tr := range eng.Trades {
		require.NotEqual(t, market.ExitSignal, tr.ExitReason)
	}
}

func TestExitModeFirstHitAllowsSignalExit(t *testing.T) {
	eng, sx := runExitModeScenario(t, "first_hit")
	require.False(t, sx.HasOpenPosition())
	require.NotEmpty(t, eng.Trades)
	require.Equal(t, market.ExitSignal, eng.Trades[len(eng.Trades)-1].ExitReason)
}

func TestExitModeSignalOnlyAllowsSignalExit(t *testing.T) {
	eng, sx := runExitModeScenario(t, "signal_only")
	require.False(t, sx.HasOpenPosition())
	require.NotEmpty(t, eng.Trades)
	require.Equal(t, market.ExitSignal, eng.Trades[len(eng.Trades)-1].ExitReason)
}

// entryOnlyPlayYAML never emits a close/exit intent, so the cross entry
// stays open for the rest of the run; used to isolate Finish's own
// end-of-data force-close from any other exit path.
const entryOnlyPlayYAML = `
id: finish-test
version: "1"
account:
  initial_equity: 10000
  max_leverage: 5
  taker_fee_rate: 0.0006
  maker_fee_rate: 0.0002
  max_drawdown_pct: 0.9
timeframe:
  low_tf: "1m"
  med_tf: "1m"
  high_tf: "1m"
  exec: low_tf
features:
  - id: ema_fast
    indicator_type: ema
    params: {length: 2}
    tf_role: low_tf
  - id: ema_slow
    indicator_type: ema
    params: {length: 3}
    tf_role: low_tf
actions:
  - id: entry_long
    when: ["ema_fast", "cross_above", "ema_slow"]
    emit: {side: long, size_pct: 0.1}
risk:
  sizing_mode: fixed_pct
  size_pct: 0.1
  min_notional: 10
position:
  allow_long: true
  allow_short: false
  exit_mode: signal_only
`

func TestFinishForceClosesOpenPositionAtEndOfData(t *testing.T) {
	p, err := play.Decode([]byte(entryOnlyPlayYAML))
	require.NoError(t, err)
	compiled, err := play.Build(p)
	require.NoError(t, err)

	sx := exchange.NewSimulatedExchange("BTCUSDT", p.Account.InitialEquity, p.Account.MaxLeverage,
		p.Account.TakerFeeRate, p.Account.MakerFeeRate,
		exchange.Instrument{TickSize: 0.01, LotSize: 1, MinNotional: 10}, exchange.DefaultExecutionConfig, nil)
	eng := New(compiled, sx, nil, nil, nil, zerolog.Nop())
	require.NoError(t, eng.Start())

	candles := buildCandles([]float64{100, 99, 98, 105, 112, 119, 126, 133})
	for _, c := range candles {
		require.NoError(t, eng.ProcessBar(c, []bar.Candle{c}))
	}
	require.True(t, sx.HasOpenPosition(), "expected the cross entry to still be open going into Finish")

	last := candles[len(candles)-1]
	require.NoError(t, eng.Finish(last.Close, last.TsClose))

	require.False(t, sx.HasOpenPosition())
	require.NotEmpty(t, eng.Trades)
	require.Equal(t, market.ExitEndOfData, eng.Trades[len(eng.Trades)-1].ExitReason)
	require.Equal(t, StateStopped, eng.State())
}

// medExecPlayYAML declares exec: med_tf with every feature on the med_tf
// role and no low_tf/high_tf candle slices at all, to pin down that the
// engine advances whichever role is exec directly from execCandle instead
// of only ever recognizing low_tf.
const medExecPlayYAML = `
id: med-exec-test
version: "1"
account:
  initial_equity: 10000
  max_leverage: 5
  taker_fee_rate: 0.0006
  maker_fee_rate: 0.0002
  max_drawdown_pct: 0.9
timeframe:
  low_tf: "1m"
  med_tf: "5m"
  high_tf: "15m"
  exec: med_tf
features:
  - id: ema_fast
    indicator_type: ema
    params: {length: 2}
    tf_role: med_tf
  - id: ema_slow
    indicator_type: ema
    params: {length: 3}
    tf_role: med_tf
actions:
  - id: entry_long
    when: ["ema_fast", "cross_above", "ema_slow"]
    emit: {side: long, size_pct: 0.1}
risk:
  sizing_mode: fixed_pct
  size_pct: 0.1
  min_notional: 10
position:
  allow_long: true
  allow_short: false
  exit_mode: first_hit
`

func TestEngineWarmsUpOnMedTFExecRole(t *testing.T) {
	p, err := play.Decode([]byte(medExecPlayYAML))
	require.NoError(t, err)
	compiled, err := play.Build(p)
	require.NoError(t, err)
	require.Equal(t, 3, compiled.WarmupRequired[bar.RoleMed])

	sx := exchange.NewSimulatedExchange("BTCUSDT", p.Account.InitialEquity, p.Account.MaxLeverage,
		p.Account.TakerFeeRate, p.Account.MakerFeeRate,
		exchange.Instrument{TickSize: 0.01, LotSize: 1, MinNotional: 10}, exchange.DefaultExecutionConfig, nil)
	eng := New(compiled, sx, nil, nil, nil, zerolog.Nop())
	require.NoError(t, eng.Start())

	for _, c := range buildCandles([]float64{100, 99, 98, 105, 112, 119, 126, 133}) {
		require.NoError(t, eng.ProcessBar(c, []bar.Candle{c}))
	}

	require.Equal(t, StateRunning, eng.State(), "med_tf exec role must warm up and run exactly like low_tf does")
}

package exchange

import (
	"testing"

	"github.com/playcore/derivcore/internal/bar"
	"github.com/playcore/derivcore/internal/market"
	"github.com/stretchr/testify/require"
)

func testInstrument() Instrument {
	return Instrument{TickSize: 0.01, LotSize: 1, MinNotional: 10}
}

func candle(open, high, low, close float64) bar.Candle {
	return bar.Candle{TsOpen: 0, TsClose: 60_000, Open: open, High: high, Low: low, Close: close, Volume: 1000}
}

func TestFillQueuedOpensPositionAtNextOpen(t *testing.T) {
	sx := NewSimulatedExchange("BTCUSDT", 10_000, 5, 0.0006, 0.0002, testInstrument(), DefaultExecutionConfig, nil)
	sx.QueueEntry(market.Signal{Side: market.SideLong, SizeUSDT: 1000, SLPrice: 95, TPPrice: 110}, 0)
	require.False(t, sx.HasOpenPosition())

	_, closed := sx.FillQueued(100, 60_000)
	require.False(t, closed)
	require.True(t, sx.HasOpenPosition())
	pos, ok := sx.Position()
	require.True(t, ok)
	require.Equal(t, market.SideLong, pos.Side)
	require.Greater(t, pos.EntryPrice, 100.0) // slippage moves fill against the trader
}

func TestStopLossFiresOnIntrabarPath(t *testing.T) {
	sx := NewSimulatedExchange("BTCUSDT", 10_000, 5, 0.0006, 0.0002, testInstrument(), DefaultExecutionConfig, nil)
	sx.QueueEntry(market.Signal{Side: market.SideLong, SizeUSDT: 1000, SLPrice: 95, TPPrice: 110}, 0)
	sx.FillQueued(100, 0)
	require.True(t, sx.HasOpenPosition())

	// Bearish bar: open -> high -> low -> close. Low of 90 crosses SL 95
	// before TP 110 is ever reached (high never gets there either).
	trade, closed := sx.CheckProtective(candle(100, 102, 90, 98))
	require.True(t, closed)
	require.Equal(t, market.ExitSL, trade.ExitReason)
	require.False(t, sx.HasOpenPosition())
}

func TestTakeProfitFiresWhenPathReachesItFirst(t *testing.T) {
	sx := NewSimulatedExchange("BTCUSDT", 10_000, 5, 0.0006, 0.0002, testInstrument(), DefaultExecutionConfig, nil)
	sx.QueueEntry(market.Signal{Side: market.SideLong, SizeUSDT: 1000, SLPrice: 90, TPPrice: 110}, 0)
	sx.FillQueued(100, 0)

	// Bullish bar: open -> low -> high -> close. High of 112 reaches TP
	// before low (98) would reach SL at 90.
	trade, closed := sx.CheckProtective(candle(100, 112, 98, 105))
	require.True(t, closed)
	require.Equal(t, market.ExitTP, trade.ExitReason)
}

func TestLiquidationClosesAtBankruptcyPrice(t *testing.T) {
	sx := NewSimulatedExchange("BTCUSDT", 1000, 10, 0.0006, 0.0002, testInstrument(), DefaultExecutionConfig, nil)
	sx.QueueEntry(market.Signal{Side: market.SideLong, SizeUSDT: 5000}, 0) // 10x on 1000 equity, no SL/TP set
	sx.FillQueued(100, 0)
	require.True(t, sx.HasOpenPosition())

	// Price craters well past the bankruptcy threshold (entry*(1-1/10)=90).
	trade, closed := sx.CheckProtective(candle(100, 100, 50, 60))
	require.True(t, closed)
	require.Equal(t, market.ExitLiquidation, trade.ExitReason)
	require.False(t, sx.HasOpenPosition())
}

func TestFillQueuedRejectsBelowMinNotional(t *testing.T) {
	sx := NewSimulatedExchange("BTCUSDT", 10_000, 5, 0.0006, 0.0002, testInstrument(), DefaultExecutionConfig, nil)
	sx.QueueEntry(market.Signal{Side: market.SideLong, SizeUSDT: 1}, 0)
	_, closed := sx.FillQueued(100, 0)
	require.False(t, closed)
	require.False(t, sx.HasOpenPosition())
}

func TestApplyFundingPaysOncePerBoundary(t *testing.T) {
	sx := NewSimulatedExchange("BTCUSDT", 10_000, 5, 0.0006, 0.0002, testInstrument(), DefaultExecutionConfig, ConstantFundingRate(0.0001))
	sx.QueueEntry(market.Signal{Side: market.SideLong, SizeUSDT: 1000}, 0)
	sx.FillQueued(100, 0)

	before := sx.Equity()
	sx.ApplyFunding(8 * 60 * 60 * 1000) // exactly the first boundary
	afterFirst := sx.Equity()
	require.Less(t, afterFirst, before) // long pays positive funding

	sx.ApplyFunding(8*60*60*1000 + 60_000) // same boundary again, no double charge
	require.Equal(t, afterFirst, sx.Equity())
}

func TestApplyFundingSkipsPositionOpenedAtOrAfterBoundary(t *testing.T) {
	sx := NewSimulatedExchange("BTCUSDT", 10_000, 5, 0.0006, 0.0002, testInstrument(), DefaultExecutionConfig, ConstantFundingRate(0.0001))
	sx.QueueEntry(market.Signal{Side: market.SideLong, SizeUSDT: 1000}, 0)
	// Fill lands exactly on the boundary timestamp itself, so the position
	// was never held "before" it.
	boundary := int64(8 * 60 * 60 * 1000)
	sx.FillQueued(100, boundary)

	before := sx.Equity()
	sx.ApplyFunding(boundary)
	require.Equal(t, before, sx.Equity(), "a position opened at the boundary must not pay that boundary's funding")
}

func TestFundingIsAttributedToTheClosingTrade(t *testing.T) {
	sx := NewSimulatedExchange("BTCUSDT", 10_000, 5, 0.0006, 0.0002, testInstrument(), DefaultExecutionConfig, ConstantFundingRate(0.0001))
	sx.QueueEntry(market.Signal{Side: market.SideLong, SizeUSDT: 1000}, 0)
	sx.FillQueued(100, 0)

	sx.ApplyFunding(8 * 60 * 60 * 1000)
	trade, closed := sx.ForceClose(market.ExitForceClose, 100, 16*60*60*1000)
	require.True(t, closed)
	require.Greater(t, trade.Funding, 0.0, "a long paying positive funding should show up as positive Trade.Funding")
}

func TestLiquidationFeeUsesTheLiquidationRateNotTheTakerRate(t *testing.T) {
	sx := NewSimulatedExchange("BTCUSDT", 1000, 10, 0.01, 0.0002, testInstrument(), DefaultExecutionConfig, nil)
	sx.QueueEntry(market.Signal{Side: market.SideLong, SizeUSDT: 5000}, 0)
	sx.FillQueued(100, 0)

	trade, closed := sx.CheckProtective(candle(100, 100, 50, 60))
	require.True(t, closed)
	require.Equal(t, market.ExitLiquidation, trade.ExitReason)
	wantFee := trade.SizeUSDT * liquidationFeeRate
	require.InDelta(t, wantFee, trade.Fees, 1e-9, "liquidation must fee at liquidationFeeRate, not the account's taker rate")
}

func TestRoundToIncrementFloorsToTrueMultiple(t *testing.T) {
	in := Instrument{TickSize: 0.5, LotSize: 1, MinNotional: 0}
	require.Equal(t, 100.5, in.RoundPrice(100.7))
	require.Equal(t, 100.0, in.RoundPrice(100.4))
}

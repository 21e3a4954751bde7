// FILE: simulated.go
// Package exchange – SimulatedExchange, the deterministic counterpart of
// the live exchange adapter (§4.6). It composes Ledger, pricing, execution,
// funding, liquidation and constraints into the engine.ExchangeAdapter
// surface; the engine never reaches past this type into ledger internals.
package exchange

import (
	"github.com/google/uuid"

	"github.com/playcore/derivcore/internal/bar"
	"github.com/playcore/derivcore/internal/engine"
	"github.com/playcore/derivcore/internal/market"
	"github.com/shopspring/decimal"
)

// SimulatedExchange is a single-symbol, single-position isolated-margin
// simulator. One instance owns exactly one run's ledger; it is not
// reusable across disjoint candle streams (§5).
type SimulatedExchange struct {
	symbol     string
	ledger     *Ledger
	instrument Instrument
	exec       ExecutionConfig
	funding    fundingTracker
	rateSource FundingRateSource

	takerFeeRate float64
	makerFeeRate float64

	// slPrice/tpPrice are the active protective levels for the current
	// position; the Ledger itself only tracks whether an order id is set.
	slPrice, tpPrice float64

	pending *pendingEntry
}

type pendingEntry struct {
	sig market.Signal
}

// NewSimulatedExchange constructs a fresh exchange for one run.
func NewSimulatedExchange(symbol string, initialEquity, leverage, takerFeeRate, makerFeeRate float64, instrument Instrument, exec ExecutionConfig, rateSource FundingRateSource) *SimulatedExchange {
	if rateSource == nil {
		rateSource = ConstantFundingRate(0)
	}
	return &SimulatedExchange{
		symbol: symbol, ledger: newLedger(initialEquity, leverage),
		instrument: instrument, exec: exec, rateSource: rateSource,
		takerFeeRate: takerFeeRate, makerFeeRate: makerFeeRate,
	}
}

func toTradeSide(s market.Side) tradeSide {
	if s == market.SideShort {
		return sideShort
	}
	return sideLong
}

func floatOf(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// UpdateMarks folds in one closed 1m candle's close as the new mark.
func (sx *SimulatedExchange) UpdateMarks(c bar.Candle) {
	sx.ledger.updateMark(c.Close)
}

// CheckProtective evaluates the open position's SL/TP against c's
// intrabar path (first-touch) and, failing that, the liquidation
// condition, in that order — a position already stopped out this bar
// cannot also be liquidated on the same candle.
func (sx *SimulatedExchange) CheckProtective(c bar.Candle) (market.Trade, bool) {
	if !sx.ledger.hasPosition() {
		return market.Trade{}, false
	}
	p := sx.ledger.position
	side := toTradeSide(p.side)

	var slF, tpF float64
	if p.slOrderID != "" {
		slF = sx.slPrice
	}
	if p.tpOrderID != "" {
		tpF = sx.tpPrice
	}

	if price, isSL, _, hit := firstTouch(c, side, slF, tpF); hit {
		reason := market.ExitTP
		feeRate := sx.makerFeeRate
		if isSL {
			reason = market.ExitSL
			feeRate = sx.takerFeeRate
			// The SL close trades the opposite way to the position, so
			// slippage is applied for that side (against the trader).
			exitSide := sideShort
			if side == sideShort {
				exitSide = sideLong
			}
			price = sx.exec.marketFillPrice(exitSide, price)
		}
		return sx.closeAt(price, feeRate, reason, c.TsClose)
	}

	sx.ledger.updateMark(c.Close)
	if sx.ledger.isLiquidated() {
		bp := bankruptcyPrice(p.side, floatOf(p.entryPrice), floatOf(sx.ledger.leverage))
		return sx.closeAt(bp, liquidationFeeRate, market.ExitLiquidation, c.TsClose)
	}
	return market.Trade{}, false
}

// QueueEntry enqueues a sized signal for the next 1m bar's open fill,
// replacing any still-pending entry from this or an earlier bar.
func (sx *SimulatedExchange) QueueEntry(sig market.Signal, ts int64) {
	if sx.ledger.hasPosition() {
		return
	}
	sx.pending = &pendingEntry{sig: sig}
}

// FillQueued fills any pending entry at openPrice, the rule being "queued
// entries fill on the OPEN of the NEXT 1m bar" (§4.5 step 5).
func (sx *SimulatedExchange) FillQueued(openPrice float64, ts int64) (market.Trade, bool) {
	if sx.pending == nil || sx.ledger.hasPosition() {
		return market.Trade{}, false
	}
	sig := sx.pending.sig
	sx.pending = nil

	side := toTradeSide(sig.Side)
	fillPrice := sx.instrument.RoundPrice(sx.exec.marketFillPrice(side, openPrice))
	notional := sx.instrument.RoundQty(sig.SizeUSDT)
	if err := sx.instrument.Validate(notional); err != nil {
		return market.Trade{}, false
	}
	openFee := notional * sx.takerFeeRate
	requiredMargin := decimal.NewFromFloat(notional / sx.ledger.leverage.InexactFloat64())
	if sx.ledger.availableBalance().LessThan(requiredMargin.Add(decimal.NewFromFloat(openFee))) {
		return market.Trade{}, false
	}
	sx.ledger.cash = sx.ledger.cash.Sub(decimal.NewFromFloat(openFee))
	sx.ledger.openPositionRecord(sx.symbol, sig.Side, notional, fillPrice, ts, "", "")
	sx.slPrice, sx.tpPrice = sig.SLPrice, sig.TPPrice
	if sig.SLPrice != 0 {
		sx.ledger.position.slOrderID = uuid.NewString()
	}
	if sig.TPPrice != 0 {
		sx.ledger.position.tpOrderID = uuid.NewString()
	}
	return market.Trade{}, false
}

// ApplyFunding pays/collects an 8h funding payment if ts has crossed a new
// boundary since the last payment (§4.6 Funding module). A position opened
// on or after the boundary wasn't held through it and owes nothing:
// funding only applies to a position with entryTS strictly before the
// boundary it crossed.
func (sx *SimulatedExchange) ApplyFunding(ts int64) {
	boundary, ok := sx.funding.crossedBoundary(ts)
	if !ok {
		return
	}
	if !sx.ledger.hasPosition() || sx.ledger.position.entryTS >= boundary {
		return
	}
	rate := sx.rateSource.RateAt(boundary)
	sx.ledger.applyFundingPayment(rate)
}

// ForceClose closes any open position immediately at price for reason.
func (sx *SimulatedExchange) ForceClose(reason market.ExitReason, price float64, ts int64) (market.Trade, bool) {
	if !sx.ledger.hasPosition() {
		return market.Trade{}, false
	}
	return sx.closeAt(price, sx.takerFeeRate, reason, ts)
}

func (sx *SimulatedExchange) closeAt(price, feeRate float64, reason market.ExitReason, ts int64) (market.Trade, bool) {
	p := sx.ledger.position
	mfe, mae := p.peakPnLPct, p.troughPct
	realizedPnL, fees, entryPrice, entryTS, side, sizeUSDT, funding := sx.ledger.closePositionRecord(price, feeRate)
	sx.slPrice, sx.tpPrice = 0, 0
	return market.Trade{
		EntryTS: entryTS, EntryPrice: entryPrice, ExitTS: ts, ExitPrice: price,
		Side: side, SizeUSDT: sizeUSDT, RealizedPnL: realizedPnL, Fees: fees,
		MFEPct: mfe, MAEPct: mae, ExitReason: reason, Funding: funding,
	}, true
}

// HasOpenPosition reports whether a position is currently open.
func (sx *SimulatedExchange) HasOpenPosition() bool { return sx.ledger.hasPosition() }

// Equity returns the current mark-to-market equity.
func (sx *SimulatedExchange) Equity() float64 { return floatOf(sx.ledger.equity()) }

// LedgerSnapshot returns the current invariant-checked balance state.
func (sx *SimulatedExchange) LedgerSnapshot() market.LedgerState { return sx.ledger.Snapshot() }

// Position returns the current open position, if any.
func (sx *SimulatedExchange) Position() (market.Position, bool) { return sx.ledger.positionSnapshot() }

var _ engine.ExchangeAdapter = (*SimulatedExchange)(nil)

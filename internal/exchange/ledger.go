// FILE: ledger.go
// Package exchange – the simulated exchange's ledger (§4.6, §3 "Ledger
// state"). Balances are tracked in shopspring/decimal to keep the
// equity == cash + unrealized / free == equity - used invariants exact
// under repeated add/sub, and converted to float64 only at the
// market.LedgerState boundary the rest of the module consumes.
package exchange

import (
	"github.com/playcore/derivcore/internal/market"
	"github.com/shopspring/decimal"
)

// Ledger owns the account balance and the single open position for one
// symbol (§3 "Ownership: ... Ledger owns Position").
type Ledger struct {
	cash       decimal.Decimal
	usedMargin decimal.Decimal
	leverage   decimal.Decimal

	position *openPosition
}

// openPosition is the ledger's internal mutable position record; Snapshot
// converts it to the read-only market.Position value type.
type openPosition struct {
	symbol      string
	side        market.Side
	sizeUSDT    decimal.Decimal
	entryPrice  decimal.Decimal
	entryTS     int64
	markPrice   decimal.Decimal
	slOrderID   string
	tpOrderID   string
	peakPnLPct  float64         // running max favorable excursion, for Trade.MFEPct
	troughPct   float64         // running max adverse excursion, for Trade.MAEPct
	fundingPaid decimal.Decimal // cumulative funding debited/credited while this position was open
}

func newLedger(initialEquity, leverage float64) *Ledger {
	return &Ledger{
		cash:     decimal.NewFromFloat(initialEquity),
		leverage: decimal.NewFromFloat(leverage),
	}
}

func (l *Ledger) hasPosition() bool { return l.position != nil }

// unrealizedPnL computes the open position's mark-to-market PnL in USDT.
func (l *Ledger) unrealizedPnL() decimal.Decimal {
	if l.position == nil {
		return decimal.Zero
	}
	diff := l.position.markPrice.Sub(l.position.entryPrice)
	if l.position.side == market.SideShort {
		diff = diff.Neg()
	}
	qty := l.position.sizeUSDT.Div(l.position.entryPrice)
	return diff.Mul(qty)
}

func (l *Ledger) equity() decimal.Decimal {
	return l.cash.Add(l.unrealizedPnL())
}

func (l *Ledger) freeMargin() decimal.Decimal {
	return l.equity().Sub(l.usedMargin)
}

func (l *Ledger) availableBalance() decimal.Decimal {
	free := l.freeMargin()
	if free.IsNegative() {
		return decimal.Zero
	}
	return free
}

// maintenanceMargin approximates Bybit's tiered maintenance margin with a
// flat rate; sufficient for the deterministic liquidation formula this
// core implements (no tiered-bracket schedule is in scope).
const maintenanceMarginRate = "0.005"

func (l *Ledger) maintenanceMargin() decimal.Decimal {
	if l.position == nil {
		return decimal.Zero
	}
	rate, _ := decimal.NewFromString(maintenanceMarginRate)
	return l.position.sizeUSDT.Mul(rate)
}

// Snapshot returns the current invariant-checked balance state (§3).
func (l *Ledger) Snapshot() market.LedgerState {
	unreal, _ := l.unrealizedPnL().Float64()
	eq, _ := l.equity().Float64()
	used, _ := l.usedMargin.Float64()
	free, _ := l.freeMargin().Float64()
	avail, _ := l.availableBalance().Float64()
	cash, _ := l.cash.Float64()
	return market.LedgerState{
		CashBalance: cash, UnrealizedPnL: unreal, Equity: eq,
		UsedMargin: used, FreeMargin: free, AvailableBalance: avail,
	}
}

// positionSnapshot returns the current open position as the read-only
// market.Position value type, or false if flat.
func (l *Ledger) positionSnapshot() (market.Position, bool) {
	if l.position == nil {
		return market.Position{}, false
	}
	p := l.position
	entry, _ := p.entryPrice.Float64()
	size, _ := p.sizeUSDT.Float64()
	mark, _ := p.markPrice.Float64()
	lev, _ := l.leverage.Float64()
	unreal, _ := l.unrealizedPnL().Float64()
	return market.Position{
		Symbol: p.symbol, Side: p.side, SizeUSDT: size, EntryPrice: entry,
		AvgEntryTS: p.entryTS, UnrealizedPnL: unreal, MarkPrice: mark,
		Leverage: lev, SLOrderID: p.slOrderID, TPOrderID: p.tpOrderID,
	}
}

// openPositionRecord opens a new position, debiting the used margin by
// size/leverage (§3 "used_margin == position_notional x (1/leverage)").
func (l *Ledger) openPositionRecord(symbol string, side market.Side, sizeUSDT, entryPrice float64, ts int64, slOrderID, tpOrderID string) {
	l.position = &openPosition{
		symbol: symbol, side: side,
		sizeUSDT: decimal.NewFromFloat(sizeUSDT), entryPrice: decimal.NewFromFloat(entryPrice),
		entryTS: ts, markPrice: decimal.NewFromFloat(entryPrice),
		slOrderID: slOrderID, tpOrderID: tpOrderID,
	}
	l.usedMargin = l.position.sizeUSDT.Div(l.leverage)
}

// closePositionRecord realizes PnL and fees into cash, clears the margin,
// and returns the realized PnL, fees paid, entry snapshot, and cumulative
// funding paid while open, needed to build the resulting Trade.
func (l *Ledger) closePositionRecord(exitPrice, feeRate float64) (realizedPnL, fees float64, entryPrice float64, entryTS int64, side market.Side, sizeUSDT float64, fundingPaid float64) {
	p := l.position
	l.position.markPrice = decimal.NewFromFloat(exitPrice)
	pnl := l.unrealizedPnL()
	fee := p.sizeUSDT.Mul(decimal.NewFromFloat(feeRate))
	l.cash = l.cash.Add(pnl).Sub(fee)
	l.usedMargin = decimal.Zero

	realizedPnL, _ = pnl.Float64()
	fees, _ = fee.Float64()
	entry, _ := p.entryPrice.Float64()
	size, _ := p.sizeUSDT.Float64()
	fundingPaid, _ = p.fundingPaid.Float64()
	entryPrice, entryTS, side, sizeUSDT = entry, p.entryTS, p.side, size
	l.position = nil
	return
}

// applyFundingPayment debits/credits cash by a funding payment and
// attributes it to the open position's cumulative Trade.Funding (§4.6
// Funding module); sign convention: positive rate charges longs.
func (l *Ledger) applyFundingPayment(rate float64) float64 {
	if l.position == nil {
		return 0
	}
	amt := l.position.sizeUSDT.Mul(decimal.NewFromFloat(rate))
	if l.position.side == market.SideShort {
		amt = amt.Neg()
	}
	l.cash = l.cash.Sub(amt)
	l.position.fundingPaid = l.position.fundingPaid.Add(amt)
	paid, _ := amt.Float64()
	return paid
}

// updateMark refreshes the open position's mark price and tracks
// peak/trough excursion for MFE/MAE.
func (l *Ledger) updateMark(price float64) {
	if l.position == nil {
		return
	}
	l.position.markPrice = decimal.NewFromFloat(price)
	pnlPct, _ := l.unrealizedPnL().Div(l.position.sizeUSDT).Float64()
	if pnlPct > l.position.peakPnLPct {
		l.position.peakPnLPct = pnlPct
	}
	if pnlPct < l.position.troughPct {
		l.position.troughPct = pnlPct
	}
}

// FILE: liquidation.go
// Package exchange – the liquidation module (§4.6): on each mark update,
// checks equity - maintenance_margin <= 0 and, if so, closes the position
// at the bankruptcy price per Bybit's isolated-margin formula, deducting
// the liquidation fee exactly once.
package exchange

import "github.com/playcore/derivcore/internal/market"

const liquidationFeeRate = 0.0006 // taker fee-to-close, charged once

// bankruptcyPrice computes the price at which the position's equity
// reaches exactly zero before fees, for side/entry/size/leverage.
// Long: entry * (1 - 1/leverage); Short: entry * (1 + 1/leverage).
func bankruptcyPrice(side market.Side, entryPrice, leverage float64) float64 {
	if leverage <= 0 {
		return entryPrice
	}
	if side == market.SideLong {
		return entryPrice * (1 - 1/leverage)
	}
	return entryPrice * (1 + 1/leverage)
}

// isLiquidated reports whether the ledger's current equity has fallen to
// or below its maintenance margin requirement.
func (l *Ledger) isLiquidated() bool {
	if l.position == nil {
		return false
	}
	eq := l.equity()
	mm := l.maintenanceMargin()
	return eq.LessThanOrEqual(mm)
}

// FILE: constraints.go
// Package exchange – the instrument constraints module (§4.6): tick/lot
// rounding on the true increment (a multiple-of check, not decimal
// quantization) and the min_notional floor.
package exchange

import "github.com/shopspring/decimal"

// Instrument carries the tick/lot/min-notional constants for one symbol.
type Instrument struct {
	TickSize    float64 // minimum price increment
	LotSize     float64 // minimum quantity increment
	MinNotional float64
}

// RoundPrice snaps price down to the nearest multiple of TickSize.
func (in Instrument) RoundPrice(price float64) float64 {
	return roundToIncrement(price, in.TickSize)
}

// RoundQty snaps qty down to the nearest multiple of LotSize.
func (in Instrument) RoundQty(qty float64) float64 {
	return roundToIncrement(qty, in.LotSize)
}

// roundToIncrement floors v to the nearest exact multiple of step using
// decimal arithmetic, so e.g. 0.1+0.2 tick drift never produces a
// near-multiple that a naive float quantization would accept.
func roundToIncrement(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	dv := decimal.NewFromFloat(v)
	ds := decimal.NewFromFloat(step)
	n := dv.Div(ds).Floor()
	out, _ := n.Mul(ds).Float64()
	return out
}

// Validate rejects an order notional below MinNotional.
func (in Instrument) Validate(notional float64) error {
	if notional < in.MinNotional {
		return errMinNotional
	}
	return nil
}

var errMinNotional = constraintError("exchange: order notional below min_notional")

type constraintError string

func (e constraintError) Error() string { return string(e) }

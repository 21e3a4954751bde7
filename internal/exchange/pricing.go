// FILE: pricing.go
// Package exchange – the pricing/intrabar-path module (§4.6). Mark price
// defaults to the close of the last 1m bar; the intrabar path orders the
// four OHLC points so SL/TP triggering is deterministic within a bar.
package exchange

import "github.com/playcore/derivcore/internal/bar"

// intrabarPath returns c's four prices in the deterministic visiting order
// used to decide which of two protective orders fires first: bullish bars
// (close >= open) visit open -> low -> high -> close; bearish bars visit
// open -> high -> low -> close.
func intrabarPath(c bar.Candle) []float64 {
	if c.Close >= c.Open {
		return []float64{c.Open, c.Low, c.High, c.Close}
	}
	return []float64{c.Open, c.High, c.Low, c.Close}
}

// firstTouch walks c's intrabar path and reports which of sl/tp (if
// either) is reached first. side is the position side the SL/TP belong to
// (their trigger direction is inverted for shorts). A zero price means
// "not set" and is never tested.
func firstTouch(c bar.Candle, side tradeSide, slPrice, tpPrice float64) (price float64, isSL, isTP bool, hit bool) {
	for _, p := range intrabarPath(c) {
		if slPrice != 0 && slTriggered(side, p, slPrice) {
			return slPrice, true, false, true
		}
		if tpPrice != 0 && tpTriggered(side, p, tpPrice) {
			return tpPrice, false, true, true
		}
	}
	return 0, false, false, false
}

type tradeSide int

const (
	sideLong tradeSide = iota
	sideShort
)

func slTriggered(side tradeSide, p, sl float64) bool {
	if side == sideLong {
		return p <= sl
	}
	return p >= sl
}

func tpTriggered(side tradeSide, p, tp float64) bool {
	if side == sideLong {
		return p >= tp
	}
	return p <= tp
}

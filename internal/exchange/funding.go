// FILE: funding.go
// Package exchange – the funding module (§4.6): 8-hour funding payments at
// 00:00/08:00/16:00 UTC boundaries, scaled by position notional and the
// historical funding rate in effect for the interval.
package exchange

const fundingIntervalMS = 8 * 60 * 60 * 1000

// FundingRateSource resolves the historical funding rate in effect at ts
// (UTC epoch milliseconds). A constant-rate source is sufficient for
// backtests with no external funding feed wired in.
type FundingRateSource interface {
	RateAt(ts int64) float64
}

// ConstantFundingRate is a FundingRateSource that always returns the same
// per-8h rate; the default when no historical funding feed is supplied.
type ConstantFundingRate float64

func (r ConstantFundingRate) RateAt(int64) float64 { return float64(r) }

// fundingTracker remembers the last boundary already paid, so a boundary
// ts is paid exactly once even if ApplyFunding is called once per 1m bar.
type fundingTracker struct {
	lastBoundary int64
}

// crossedBoundary reports whether ts has entered a new 8h boundary since
// the last payment, and returns that boundary timestamp.
func (ft *fundingTracker) crossedBoundary(ts int64) (int64, bool) {
	boundary := (ts / fundingIntervalMS) * fundingIntervalMS
	if boundary <= ft.lastBoundary {
		return 0, false
	}
	ft.lastBoundary = boundary
	return boundary, true
}

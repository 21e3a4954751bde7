// FILE: liveadapter.go
// Package liveadapter – the read-only contract a live venue client must
// satisfy to drive an Engine outside a backtest (§4.7). This package
// defines the interface only, mirroring the teacher's Broker interface
// (broker.go): one minimal surface, context-first methods, no concrete
// REST/WebSocket body. WebSocket connection management and venue-specific
// adapters are out of scope for this core; a live deployment supplies its
// own implementation.
package liveadapter

import (
	"context"

	"github.com/playcore/derivcore/internal/bar"
	"github.com/playcore/derivcore/internal/market"
)

// OpenOrder is a venue order still resting (not yet filled or canceled).
type OpenOrder struct {
	ID         string
	Symbol     string
	Side       market.Side
	Type       market.OrderType
	Price      float64
	SizeUSDT   float64
	ReduceOnly bool
}

// Adapter is the minimal read/write surface the engine depends on from a
// live venue connection (§4.7). The adapter owns idempotency (deterministic
// client order ids), reduce_only on every close path, and setting leverage
// at connection time; none of that is the engine's concern.
type Adapter interface {
	// GetEquity returns the account's current mark-to-market equity.
	GetEquity(ctx context.Context) (float64, error)
	// GetBalance returns the account's available (free) balance.
	GetBalance(ctx context.Context) (float64, error)
	// GetPosition returns the open position for symbol, if any.
	GetPosition(ctx context.Context, symbol string) (market.Position, bool, error)
	// GetOpenOrders lists resting orders for symbol.
	GetOpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error)

	// SubmitMarket places a market entry/exit. reduceOnly must be true on
	// every close path, never on an entry.
	SubmitMarket(ctx context.Context, symbol string, side market.Side, sizeUSDT float64, reduceOnly bool, tpPrice, slPrice *float64) (string, error)
	// SubmitClose force-closes any open position on symbol at market,
	// reduce_only.
	SubmitClose(ctx context.Context, symbol string) (string, error)
	// CancelAll cancels every resting order on symbol.
	CancelAll(ctx context.Context, symbol string) error

	// Candles delivers only closed 1m/exec-TF candles; the channel is
	// closed when the connection ends. Per §5, suspension in live mode
	// occurs only at this queue boundary.
	Candles(ctx context.Context, symbol string) (<-chan bar.Candle, error)
}

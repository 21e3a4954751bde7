// FILE: engine.go
// Package engine – the Engine drives one compiled Play over a multi-TF
// candle stream against an ExchangeAdapter (§4.5). It owns indicators,
// structures, the DSL evaluator, the warmup gate, and the bar loop; the
// exchange owns the ledger/position/fills. A single lock guards the
// lifecycle state, mirroring the teacher's mutex-guarded step pattern; bar
// processing itself runs without that lock and is not safe for concurrent
// use.
package engine

import (
	"fmt"
	"sync"

	"github.com/playcore/derivcore/internal/bar"
	"github.com/playcore/derivcore/internal/corekit"
	"github.com/playcore/derivcore/internal/dsl"
	"github.com/playcore/derivcore/internal/market"
	"github.com/playcore/derivcore/internal/play"
	"github.com/rs/zerolog"
)

// ExchangeAdapter is the read/write surface the engine needs from either
// the simulated exchange (backtest) or a live broker bridge (§4.6, §4.7).
// The engine never reaches into ledger/position internals directly.
type ExchangeAdapter interface {
	// UpdateMarks folds in one closed 1m candle's close as the new mark.
	UpdateMarks(c bar.Candle)
	// CheckProtective evaluates the open position's SL/TP against c's
	// intrabar path and closes it on first touch. Returns the resulting
	// Trade and true if a close happened.
	CheckProtective(c bar.Candle) (market.Trade, bool)
	// QueueEntry enqueues a sized signal for the next 1m bar's open fill.
	QueueEntry(sig market.Signal, ts int64)
	// FillQueued fills any pending entry at openPrice (the current 1m
	// bar's open) and returns a close-Trade if the fill flipped/closed an
	// existing opposite position first.
	FillQueued(openPrice float64, ts int64) (market.Trade, bool)
	// ApplyFunding applies an 8h funding payment if ts crosses a boundary.
	ApplyFunding(ts int64)
	// ForceClose closes any open position immediately at price.
	ForceClose(reason market.ExitReason, price float64, ts int64) (market.Trade, bool)
	// HasOpenPosition reports whether a position is currently open.
	HasOpenPosition() bool
	// Equity returns the current mark-to-market equity.
	Equity() float64
	// LedgerSnapshot returns the current invariant-checked balance state.
	LedgerSnapshot() market.LedgerState
}

// Engine runs one compiled Play's bar loop against three role-indexed
// candle streams plus the driving 1m feed, emitting trades and an equity
// curve. One Engine instance owns exactly one run; it is not reusable
// across disjoint candle streams (§5: "per-run mutable state ... owned
// exclusively by the engine").
type Engine struct {
	mu    sync.Mutex
	state State

	compiled *play.Compiled
	exchange ExchangeAdapter
	log      zerolog.Logger

	cache   *valueCache
	warmup  *warmupTracker
	barIdx  map[bar.Role]int64 // next bar_idx to assign per role, for Detector.Update

	execRole bar.Role // the role fed directly from ProcessBar's execCandle

	lastLow, lastMed, lastHigh int // indices into the non-exec role slices already applied

	lowCandles  []bar.Candle
	medCandles  []bar.Candle
	highCandles []bar.Candle

	structOrder []string // topological update order across all structures

	Trades       []market.Trade
	EquityCurve  []market.EquityPoint

	drawdownHalted bool
	subLoopWarned  bool // the empty-1m-slice warning has been logged
}

// New constructs an Engine for one run. lowCandles/medCandles/highCandles
// are the full pre-loaded candle slices for all three TF roles, used to
// detect role boundary crossings as the exec TF advances; whichever role
// the Play declares as exec is instead fed directly from ProcessBar's
// execCandle; that role's slice may be passed nil.
func New(c *play.Compiled, exch ExchangeAdapter, lowCandles, medCandles, highCandles []bar.Candle, log zerolog.Logger) *Engine {
	execRole := bar.Role(c.Play.Timeframe.Exec)
	if execRole == "" {
		execRole = bar.RoleLow
	}
	return &Engine{
		state:       StateCreated,
		compiled:    c,
		exchange:    exch,
		log:         log,
		cache:       newValueCache(c),
		warmup:      newWarmupTracker(c),
		barIdx:      map[bar.Role]int64{bar.RoleLow: 0, bar.RoleMed: 0, bar.RoleHigh: 0},
		execRole:    execRole,
		lowCandles:  lowCandles,
		medCandles:  medCandles,
		highCandles: highCandles,
		structOrder: topoSortStructures(c),
	}
}

// topoSortStructures orders structure keys so every DependsOn precedes its
// dependent, mirroring structure.BuildGraph's own gray/black DFS (§4.3) —
// Update must run in this order too, since a dependent detector reads its
// dependency's Output() live rather than re-deriving it.
func topoSortStructures(c *play.Compiled) []string {
	byKey := make(map[string]play.StructureDecl, len(c.Play.Structures))
	for _, s := range c.Play.Structures {
		byKey[s.Key] = s
	}
	state := make(map[string]int, len(byKey))
	var order []string
	var visit func(name string)
	visit = func(name string) {
		if state[name] != 0 {
			return
		}
		state[name] = 1
		if s, ok := byKey[name]; ok {
			for _, dep := range s.DependsOn {
				visit(dep)
			}
		}
		state[name] = 2
		order = append(order, name)
	}
	for _, s := range c.Play.Structures {
		visit(s.Key)
	}
	return order
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(to State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := transition(e.state, to); err != nil {
		return err
	}
	e.state = to
	return nil
}

// Start moves the engine from CREATED to WARMING_UP, the only legal first
// transition before any bar is processed.
func (e *Engine) Start() error {
	return e.setState(StateWarmingUp)
}

// Finish force-closes any still-open position at the run's last candle
// close with ExitEndOfData, then stops the engine. Callers must invoke this
// once after the final ProcessBar, so a position still open when the data
// runs out is realized instead of vanishing from the trade list (§8: "sum
// of trade.net_pnl tracks the change in equity, after a final force-close
// at the last candle's close for any open position").
func (e *Engine) Finish(lastClose float64, lastTS int64) error {
	if t, ok := e.exchange.ForceClose(market.ExitEndOfData, lastClose, lastTS); ok {
		e.appendTrade(t)
	}
	return e.Stop()
}

// Stop moves the engine to STOPPING and then STOPPED (from ERROR it moves
// to STOPPING only); the caller is responsible for not submitting further
// bars once this returns.
func (e *Engine) Stop() error {
	e.mu.Lock()
	cur := e.state
	e.mu.Unlock()
	if cur == StateError {
		return e.setState(StateStopping)
	}
	if err := e.setState(StateStopping); err != nil {
		return err
	}
	return e.setState(StateStopped)
}

// ProcessBar runs one exec-TF bar through the full 6-step sequence of
// §4.5: TF index advance, warmup gate, exchange step + signal evaluation
// over the 1m sub-loop, max-drawdown gate, and emit.
func (e *Engine) ProcessBar(execCandle bar.Candle, oneMinute []bar.Candle) error {
	op := "engine.process_bar"
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()
	if state != StateWarmingUp && state != StateReady && state != StateRunning {
		return corekit.NewError(corekit.KindConfig, op, fmt.Errorf("cannot process a bar in state %s", state))
	}

	// Step 1: TF index advance. The non-exec roles advance from their own
	// slices in high, med, low order (§5's carry-forward ordering across
	// TFs); the role the Play declares exec is then fed directly from
	// execCandle, last, so it advances correctly no matter which role that
	// is (§3 allows exec to be low_tf, med_tf, or high_tf).
	if e.execRole != bar.RoleHigh {
		e.advanceRole(bar.RoleHigh, e.highCandles, &e.lastHigh, execCandle)
	}
	if e.execRole != bar.RoleMed {
		e.advanceRole(bar.RoleMed, e.medCandles, &e.lastMed, execCandle)
	}
	if e.execRole != bar.RoleLow {
		e.advanceRole(bar.RoleLow, e.lowCandles, &e.lastLow, execCandle)
	}
	e.updateRole(e.execRole, execCandle)

	// Step 2: warmup gate.
	if state == StateWarmingUp {
		if e.warmup.allReady() {
			if err := e.setState(StateReady); err != nil {
				return err
			}
			if err := e.setState(StateRunning); err != nil {
				return err
			}
		} else {
			return nil // stays in WARMING_UP; no DSL, no exchange signal path
		}
	} else if state == StateReady {
		if err := e.setState(StateRunning); err != nil {
			return err
		}
	}

	// Step 3 + 5: exchange step and signal evaluation run together over
	// the 1m sub-loop (§4.5, §4.6 "signal-to-fill sequence"). Once the
	// max-drawdown gate has fired, no further sub-loop runs.
	if !e.drawdownHalted {
		if err := e.runSubLoop(execCandle, oneMinute); err != nil {
			return err
		}
	}

	// Step 4: max-drawdown gate.
	equity := e.exchange.Equity()
	initial := e.compiled.Play.Account.InitialEquity
	maxDD := e.compiled.Play.Account.MaxDrawdownPct
	if !e.drawdownHalted && maxDD > 0 && equity < initial*(1-maxDD) {
		if t, ok := e.exchange.ForceClose(market.ExitForceClose, execCandle.Close, execCandle.TsClose); ok {
			e.appendTrade(t)
		}
		e.drawdownHalted = true
		e.log.Warn().Float64("equity", equity).Msg("max drawdown breached, halting")
	}

	// Step 6: emit.
	snap := e.exchange.LedgerSnapshot()
	e.EquityCurve = append(e.EquityCurve, market.EquityPoint{
		TS: execCandle.TsClose, Equity: snap.Equity, Cash: snap.CashBalance,
		Unrealized: snap.UnrealizedPnL, UsedMargin: snap.UsedMargin,
	})
	return nil
}

func (e *Engine) advanceRole(role bar.Role, candles []bar.Candle, idx *int, execCandle bar.Candle) {
	if candles == nil {
		return
	}
	for *idx < len(candles) && candles[*idx].TsClose <= execCandle.TsClose {
		c := candles[*idx]
		e.updateRole(role, c)
		*idx++
	}
}

func (e *Engine) updateRole(role bar.Role, c bar.Candle) {
	idx := e.barIdx[role]
	for _, name := range featuresOf(e.compiled, role) {
		ind := e.compiled.Indicators[name]
		ind.Update(c)
		e.cache.pushFeature(name, ind)
	}
	for _, key := range e.structOrder {
		s, ok := structDecl(e.compiled, key)
		if !ok || bar.Role(s.TFRole) != role {
			continue
		}
		det := e.compiled.Structures[key]
		_ = det.Update(idx, c)
		e.cache.pushStruct(key, det)
	}
	e.barIdx[role]++
	e.warmup.advance(role)
}

func featuresOf(c *play.Compiled, role bar.Role) []string {
	var out []string
	for _, f := range c.Play.Features {
		if bar.Role(f.TFRole) == role {
			out = append(out, f.ID)
		}
	}
	return out
}

func structDecl(c *play.Compiled, key string) (play.StructureDecl, bool) {
	for _, s := range c.Play.Structures {
		if s.Key == key {
			return s, true
		}
	}
	return play.StructureDecl{}, false
}

// runSubLoop iterates the 1m candles covering execCandle's window
// inclusive-end, running the deterministic per-bar sequence from §4.6:
// update marks, check protective orders, evaluate action blocks, queue or
// fill entries.
func (e *Engine) runSubLoop(execCandle bar.Candle, oneMinute []bar.Candle) error {
	if len(oneMinute) == 0 {
		if !e.subLoopWarned {
			e.log.Warn().Msg("1m slice truncated to empty, evaluating at exec close only")
			e.subLoopWarned = true
		}
		oneMinute = []bar.Candle{execCandle}
	}
	for _, m := range oneMinute {
		// A pending entry from an earlier bar (possibly in a prior
		// ProcessBar call — the exchange's queue persists across calls)
		// fills on this bar's open, before marks/protective/DSL run.
		if t, ok := e.exchange.FillQueued(m.Open, m.TsOpen); ok {
			e.appendTrade(t)
		}
		e.exchange.UpdateMarks(m)
		e.exchange.ApplyFunding(m.TsClose)
		protectiveFired := false
		if t, ok := e.exchange.CheckProtective(m); ok {
			e.appendTrade(t)
			protectiveFired = true
		}
		e.cache.pushPrice1m(m)

		results := dsl.EvalAllBlocks(e.compiled.Blocks, e.cache)
		e.cache.recordBlockResults(results)
		for _, r := range results {
			if !r.Fired {
				continue
			}
			intent := intentFromEmit(r.ID, r.Emit)
			if !e.positionAllowed(intent.Action) {
				continue
			}
			sig, ok := e.sizeSignal(intent, m.Close)
			if !ok {
				continue
			}
			switch intent.Action {
			case market.ActionEntryLong, market.ActionEntryShort:
				e.exchange.QueueEntry(sig, m.TsClose)
			case market.ActionClose, market.ActionExitLong, market.ActionExitShort:
				if !e.signalExitAllowed(protectiveFired) {
					continue
				}
				if t, ok := e.exchange.ForceClose(market.ExitSignal, m.Close, m.TsClose); ok {
					e.appendTrade(t)
				}
			}
		}
	}
	// Final bar's queued entry (if any) fills on the next bar's open in a
	// future ProcessBar call; nothing to flush here.
	return nil
}

// appendTrade records a completed round trip and logs it, matching the
// teacher's "EXIT ... P/L=..." human-readable shape from its win/loss
// counter in backtest.go.
func (e *Engine) appendTrade(t market.Trade) {
	e.Trades = append(e.Trades, t)
	e.log.Info().Str("side", string(t.Side)).Str("reason", string(t.ExitReason)).
		Float64("entry", t.EntryPrice).Float64("exit", t.ExitPrice).
		Float64("pnl", t.RealizedPnL).Msg("EXIT")
}

// signalExitAllowed applies position.exit_mode's conflict-resolution rule
// (§4.5, §8) to a DSL-fired close/exit intent. Under sl_tp_only a same-bar
// signal exit is suppressed unless SL/TP already closed the position this
// bar (in which case ForceClose is a harmless no-op on the now-flat
// position). Under first_hit and signal_only the signal exit always
// proceeds: first_hit because CheckProtective already ran earlier this bar,
// so whichever condition actually closes the position first naturally wins;
// signal_only because the signal path is its only source of exits to begin
// with.
func (e *Engine) signalExitAllowed(protectiveFiredThisBar bool) bool {
	if e.compiled.Play.Position.ExitMode == play.ExitModeSLTPOnly {
		return protectiveFiredThisBar
	}
	return true
}

func (e *Engine) positionAllowed(a market.Action) bool {
	pos := e.compiled.Play.Position
	switch a {
	case market.ActionEntryLong:
		return pos.AllowLong
	case market.ActionEntryShort:
		return pos.AllowShort
	default:
		return true
	}
}

// intentFromEmit interprets a fired block's Emit map into an Intent. An
// explicit "action" key wins; otherwise a "side" key of long/short implies
// an entry, and a truthy "close" key implies a close.
func intentFromEmit(blockID string, em dsl.Emit) market.Intent {
	intent := market.Intent{SourceBlockID: blockID, Metadata: map[string]any(em)}
	if a, ok := em["action"].(string); ok {
		intent.Action = market.Action(a)
		return intent
	}
	if close, ok := em["close"].(bool); ok && close {
		intent.Action = market.ActionClose
		return intent
	}
	if side, ok := em["side"].(string); ok {
		switch side {
		case "long":
			intent.Action = market.ActionEntryLong
		case "short":
			intent.Action = market.ActionEntryShort
		}
	}
	return intent
}

// sizeSignal applies the Play's risk model to an entry Intent, producing a
// sized Signal. Non-entry intents pass through with SizeUSDT left at 0.
func (e *Engine) sizeSignal(intent market.Intent, price float64) (market.Signal, bool) {
	risk := e.compiled.Play.Risk
	sig := market.Signal{Reason: string(intent.Action), SourceBlockID: intent.SourceBlockID}
	switch intent.Action {
	case market.ActionEntryLong:
		sig.Side = market.SideLong
	case market.ActionEntryShort:
		sig.Side = market.SideShort
	default:
		return sig, true
	}

	equity := e.exchange.Equity()
	size := risk.SizeUSDT
	if sizePct, ok := intent.Metadata["size_pct"].(float64); ok {
		size = equity * sizePct
	} else if risk.SizingMode == "fixed_pct" {
		size = equity * risk.SizePct
	}
	if size < risk.MinNotional {
		return sig, false
	}
	sig.SizeUSDT = size

	slPct, tpPct := risk.SLPct, risk.TPPct
	if v, ok := intent.Metadata["sl_pct"].(float64); ok {
		slPct = v
	}
	if v, ok := intent.Metadata["tp_pct"].(float64); ok {
		tpPct = v
	}
	if slPct > 0 {
		if sig.Side == market.SideLong {
			sig.SLPrice = price * (1 - slPct)
		} else {
			sig.SLPrice = price * (1 + slPct)
		}
	}
	if tpPct > 0 {
		if sig.Side == market.SideLong {
			sig.TPPrice = price * (1 + tpPct)
		} else {
			sig.TPPrice = price * (1 - tpPct)
		}
	}
	return sig, true
}

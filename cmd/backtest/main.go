// FILE: main.go
// Command backtest – thin CLI entrypoint wiring a CSV candle feed and a
// YAML Play into one engine run and printing a one-line summary (run hash,
// final equity, trade counts).
// This is ops/test tooling to drive and verify the core end to end, not
// the interactive menu/DuckDB/WebSocket surface spec.md excludes.
//
// Boot sequence (mirrors the teacher's main.go, restructured onto cobra):
//   1) parse flags (play, symbol, candle files, output dir)
//   2) load + validate the Play, compile its object graph
//   3) load CSV candles per TF role via internal/csvfeed
//   4) construct a SimulatedExchange + Engine, run every exec bar
//   5) hash trades/equity, write artifacts, print the summary
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/playcore/derivcore/internal/artifact"
	"github.com/playcore/derivcore/internal/bar"
	"github.com/playcore/derivcore/internal/corekit"
	"github.com/playcore/derivcore/internal/csvfeed"
	"github.com/playcore/derivcore/internal/engine"
	"github.com/playcore/derivcore/internal/exchange"
	"github.com/playcore/derivcore/internal/hashing"
	"github.com/playcore/derivcore/internal/play"
)

type flags struct {
	playPath  string
	symbol    string
	lowPath   string
	medPath   string
	highPath  string
	oneMinPath string
	outDir    string
	dataEnv   string
	fundingEnv string
	verbose   bool
}

// loadEnvDefaults loads .env into the process environment (no shell exports
// required, mirroring the teacher's loadBotEnv) so flag defaults below can
// pick up operator overrides without a file ever being a required input.
// A missing .env is not an error; only a malformed one is logged.
func loadEnvDefaults() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "backtest: .env present but unreadable: %v\n", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	loadEnvDefaults()
	f := &flags{}
	root := &cobra.Command{
		Use:   "backtest",
		Short: "Run a Play against CSV candle history and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}
	root.Flags().StringVar(&f.playPath, "play", envOr("BACKTEST_PLAY", ""), "path to the Play YAML file (required)")
	root.Flags().StringVar(&f.symbol, "symbol", envOr("BACKTEST_SYMBOL", "BTCUSDT"), "instrument symbol, recorded in the run manifest and input hash")
	root.Flags().StringVar(&f.lowPath, "low-csv", envOr("BACKTEST_LOW_CSV", ""), "CSV file for the low_tf role (required)")
	root.Flags().StringVar(&f.medPath, "med-csv", envOr("BACKTEST_MED_CSV", ""), "CSV file for the med_tf role (empty if med_tf == low_tf)")
	root.Flags().StringVar(&f.highPath, "high-csv", envOr("BACKTEST_HIGH_CSV", ""), "CSV file for the high_tf role (empty if high_tf == low_tf)")
	root.Flags().StringVar(&f.oneMinPath, "1m-csv", envOr("BACKTEST_1M_CSV", ""), "CSV file for the driving 1m feed (required)")
	root.Flags().StringVar(&f.outDir, "out", envOr("BACKTEST_OUT_DIR", "./runs/backtest"), "output directory for run artifacts")
	root.Flags().StringVar(&f.dataEnv, "data-env", envOr("BACKTEST_DATA_ENV", "historical"), "data environment name, recorded in the run manifest and input hash")
	root.Flags().StringVar(&f.fundingEnv, "funding-env", envOr("BACKTEST_FUNDING_ENV", "historical"), "funding environment name, recorded in the run manifest and input hash")
	root.Flags().BoolVar(&f.verbose, "verbose", false, "debug-level logging")
	// Required-ness is checked in run(), not via cobra's MarkFlagRequired:
	// a value supplied through .env (BACKTEST_PLAY etc.) must satisfy the
	// requirement exactly like an explicit --flag would.

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(f *flags) error {
	op := "cmd.backtest.run"
	if f.playPath == "" || f.lowPath == "" || f.oneMinPath == "" {
		return corekit.NewError(corekit.KindConfig, op, fmt.Errorf("--play, --low-csv and --1m-csv are required (or BACKTEST_PLAY/BACKTEST_LOW_CSV/BACKTEST_1M_CSV via .env)"))
	}
	level := zerolog.InfoLevel
	if f.verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	p, err := play.Load(f.playPath)
	if err != nil {
		return err
	}
	compiled, err := play.Build(p)
	if err != nil {
		return err
	}

	lowTF, err := bar.ParseTimeframe(p.Timeframe.LowTF)
	if err != nil {
		return corekit.NewError(corekit.KindConfig, op, err)
	}
	medTF, err := bar.ParseTimeframe(p.Timeframe.MedTF)
	if err != nil {
		return corekit.NewError(corekit.KindConfig, op, err)
	}
	highTF, err := bar.ParseTimeframe(p.Timeframe.HighTF)
	if err != nil {
		return corekit.NewError(corekit.KindConfig, op, err)
	}

	feed, err := csvfeed.LoadMultiTF(f.lowPath, f.medPath, f.highPath, f.oneMinPath, lowTF, medTF, highTF)
	if err != nil {
		return err
	}
	if len(feed.OneMinute) == 0 {
		return corekit.NewError(corekit.KindData, op, fmt.Errorf("1m feed %q is empty", f.oneMinPath))
	}

	sx := exchange.NewSimulatedExchange(f.symbol, p.Account.InitialEquity, p.Account.MaxLeverage,
		p.Account.TakerFeeRate, p.Account.MakerFeeRate,
		exchange.Instrument{TickSize: 0.01, LotSize: 0.001, MinNotional: p.Risk.MinNotional},
		exchange.DefaultExecutionConfig, nil)

	execCandles := execCandlesFor(p, feed)
	eng := engine.New(compiled, sx, feed.Low, feed.Med, feed.High, log)
	if err := eng.Start(); err != nil {
		return err
	}

	for _, c := range execCandles {
		window := csvfeed.SliceOneMinute(feed.OneMinute, c.TsOpen, c.TsClose)
		if err := eng.ProcessBar(c, window); err != nil {
			return err
		}
	}

	if n := len(execCandles); n > 0 {
		last := execCandles[n-1]
		if err := eng.Finish(last.Close, last.TsClose); err != nil {
			return err
		}
	}

	return writeResult(f, p, compiled, eng, log)
}

// execCandlesFor picks which loaded slice drives the bar loop: the Play's
// declared exec role. The engine itself advances all three role slices
// (passed to engine.New in full), so this only needs to pick the loop
// driver, not carve out the other two.
func execCandlesFor(p *play.Play, feed *csvfeed.MultiTF) []bar.Candle {
	switch p.Timeframe.Exec {
	case string(bar.RoleMed):
		return feed.Med
	case string(bar.RoleHigh):
		return feed.High
	default:
		return feed.Low
	}
}

func writeResult(f *flags, p *play.Play, compiled *play.Compiled, eng *engine.Engine, log zerolog.Logger) error {
	var windowStart, windowEnd int64
	if n := len(eng.EquityCurve); n > 0 {
		windowStart, windowEnd = eng.EquityCurve[0].TS, eng.EquityCurve[n-1].TS
	}
	inputHash, err := hashing.ComputeInputHash(hashing.InputHashInputs{
		PlayHash: compiled.Hash, Window: [2]int64{windowStart, windowEnd},
		Symbol: f.symbol, DataEnv: f.dataEnv, FundingEnv: f.fundingEnv,
	})
	if err != nil {
		return err
	}
	tradesHash, err := hashing.ComputeListHash(eng.Trades)
	if err != nil {
		return err
	}
	equityHash, err := hashing.ComputeListHash(eng.EquityCurve)
	if err != nil {
		return err
	}
	runHash, err := hashing.ComputeRunHash(hashing.RunHashInputs{
		PlayHash: compiled.Hash, InputHash: inputHash, TradesHash: tradesHash, EquityHash: equityHash,
	})
	if err != nil {
		return err
	}

	wins, losses := 0, 0
	for _, t := range eng.Trades {
		if t.RealizedPnL >= 0 {
			wins++
		} else {
			losses++
		}
	}
	finalEquity := p.Account.InitialEquity
	if n := len(eng.EquityCurve); n > 0 {
		finalEquity = eng.EquityCurve[n-1].Equity
	}

	w, err := artifact.NewJSONWriter(f.outDir)
	if err != nil {
		return err
	}
	if err := w.WriteResult(artifact.Result{
		PlayHash: compiled.Hash, InputHash: inputHash, TradesHash: tradesHash,
		EquityHash: equityHash, RunHash: runHash, FinalEquity: finalEquity,
		TotalTrades: len(eng.Trades), Wins: wins, Losses: losses,
	}); err != nil {
		return err
	}
	if err := w.WriteTrades(eng.Trades); err != nil {
		return err
	}
	if err := w.WriteEquity(eng.EquityCurve); err != nil {
		return err
	}
	if err := w.WriteManifest(artifact.Manifest{
		PlayID: p.ID, PlayVersion: p.Version, Symbol: f.symbol,
		WindowStart: windowStart, WindowEnd: windowEnd,
		DataEnv: f.dataEnv, FundingEnv: f.fundingEnv,
	}); err != nil {
		return err
	}
	if err := w.WritePipelineSignature(artifact.PipelineSignature{
		ConfigSource: "file", UsesSystemConfigLoader: true, PlaceholderMode: false, FeatureKeysMatch: true,
	}); err != nil {
		return err
	}

	log.Info().Str("state", string(eng.State())).Int("trades", len(eng.Trades)).
		Float64("final_equity", finalEquity).Str("run_hash", runHash).Str("out", f.outDir).
		Msg("backtest complete")
	fmt.Printf("run_hash=%s final_equity=%.2f trades=%d (%d win / %d loss)\n", runHash, finalEquity, len(eng.Trades), wins, losses)
	return nil
}

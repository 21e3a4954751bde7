package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/playcore/derivcore/internal/market"
	"github.com/stretchr/testify/require"
)

func TestJSONWriterWritesEveryArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	w, err := NewJSONWriter(dir)
	require.NoError(t, err)

	require.NoError(t, w.WriteResult(Result{PlayHash: "abc", FinalEquity: 10500, TotalTrades: 2}))
	require.NoError(t, w.WriteTrades([]market.Trade{{EntryPrice: 100, ExitPrice: 110, RealizedPnL: 10}}))
	require.NoError(t, w.WriteEquity([]market.EquityPoint{{TS: 0, Equity: 10000}}))
	require.NoError(t, w.WriteManifest(Manifest{PlayID: "p1", Symbol: "BTCUSDT"}))
	require.NoError(t, w.WritePipelineSignature(PipelineSignature{FeatureKeysMatch: true}))

	for _, name := range []string{"result.json", "trades.json", "equity.json", "run_manifest.json", "pipeline_signature.json"} {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		var generic any
		require.NoError(t, json.Unmarshal(raw, &generic), name)
	}

	var r Result
	raw, err := os.ReadFile(filepath.Join(dir, "result.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &r))
	require.Equal(t, "abc", r.PlayHash)
	require.Equal(t, 10500.0, r.FinalEquity)
}

func TestJSONWriterHandlesEmptySlices(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	w, err := NewJSONWriter(dir)
	require.NoError(t, err)
	require.NoError(t, w.WriteTrades(nil))
	require.NoError(t, w.WriteEquity(nil))

	raw, err := os.ReadFile(filepath.Join(dir, "trades.json"))
	require.NoError(t, err)
	require.Equal(t, "[]", string(bytesTrim(raw)))
}

func bytesTrim(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == ' ') {
		b = b[:len(b)-1]
	}
	return b
}

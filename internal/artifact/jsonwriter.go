// FILE: jsonwriter.go
// Package artifact – JSONWriter is a single reference ResultWriter that
// dumps every artifact as plain indented JSON under one run directory.
// It exists to give cmd/backtest's smoke path something concrete to call;
// it is not an authoritative output format (§1 excludes the parquet/CSV
// writers and the DuckDB sync this core would use in production).
package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/playcore/derivcore/internal/corekit"
	"github.com/playcore/derivcore/internal/market"
)

// JSONWriter writes each artifact as "<name>.json" under Dir.
type JSONWriter struct {
	Dir string
}

// NewJSONWriter creates dir (including parents) and returns a writer rooted
// there.
func NewJSONWriter(dir string) (*JSONWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, corekit.NewError(corekit.KindRuntime, "artifact.new_json_writer", err)
	}
	return &JSONWriter{Dir: dir}, nil
}

func (w *JSONWriter) write(name string, v any) error {
	path := filepath.Join(w.Dir, name)
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return corekit.NewError(corekit.KindRuntime, "artifact.marshal", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return corekit.NewError(corekit.KindRuntime, "artifact.write", err)
	}
	return nil
}

func (w *JSONWriter) WriteResult(r Result) error { return w.write("result.json", r) }

func (w *JSONWriter) WriteTrades(trades []market.Trade) error {
	if trades == nil {
		trades = []market.Trade{}
	}
	return w.write("trades.json", trades)
}

func (w *JSONWriter) WriteEquity(curve []market.EquityPoint) error {
	if curve == nil {
		curve = []market.EquityPoint{}
	}
	return w.write("equity.json", curve)
}

func (w *JSONWriter) WriteManifest(m Manifest) error { return w.write("run_manifest.json", m) }

func (w *JSONWriter) WritePipelineSignature(sig PipelineSignature) error {
	return w.write("pipeline_signature.json", sig)
}

var _ ResultWriter = (*JSONWriter)(nil)

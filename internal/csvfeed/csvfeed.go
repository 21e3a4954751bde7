// FILE: csvfeed.go
// Package csvfeed – loads OHLCV candle history from CSV for backtests,
// adapted from the teacher's flat loadCSV/parseTimeFlexible/sortCandles
// (header-driven column lookup, RFC3339-or-unix-seconds timestamps,
// ascending-time sort) generalized to load one file per TF role plus the
// 1m sub-loop feed and produce bar.Candle instead of a single flat type.
package csvfeed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/playcore/derivcore/internal/bar"
	"github.com/playcore/derivcore/internal/corekit"
)

// LoadCandles reads one CSV file into ascending-ts_open bar.Candle values.
// Accepted headers (case-insensitive): time/timestamp, open, high, low,
// close, volume/vol. A row missing time/open/close is skipped rather than
// failing the whole load, matching the teacher's tolerant parse.
func LoadCandles(path string, tfMinutes int) ([]bar.Candle, error) {
	op := "csvfeed.load"
	f, err := os.Open(path)
	if err != nil {
		return nil, corekit.NewError(corekit.KindData, op, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var out []bar.Candle
	var headers []string
	rowIdx := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, corekit.NewError(corekit.KindData, op, err)
		}
		if rowIdx == 0 {
			headers = rec
			rowIdx++
			continue
		}
		row := map[string]string{}
		for j, h := range headers {
			k := strings.ToLower(strings.TrimSpace(h))
			if j < len(rec) {
				row[k] = strings.TrimSpace(rec[j])
			}
		}
		ts := firstNonEmpty(row, "time", "timestamp", "ts_open")
		op_, hp, lp, cp := firstNonEmpty(row, "open"), firstNonEmpty(row, "high"), firstNonEmpty(row, "low"), firstNonEmpty(row, "close")
		vp := firstNonEmpty(row, "volume", "vol")
		if ts == "" || op_ == "" || cp == "" {
			rowIdx++
			continue
		}
		tt, err := parseTimeFlexible(ts)
		if err != nil {
			rowIdx++
			continue
		}
		o, _ := strconv.ParseFloat(op_, 64)
		h, _ := strconv.ParseFloat(hp, 64)
		l, _ := strconv.ParseFloat(lp, 64)
		c, _ := strconv.ParseFloat(cp, 64)
		v, _ := strconv.ParseFloat(vp, 64)
		tsOpen := tt.UnixMilli()
		out = append(out, bar.Candle{
			TsOpen: tsOpen, TsClose: tsOpen + int64(tfMinutes)*60_000,
			Open: o, High: h, Low: l, Close: c, Volume: v,
		})
		rowIdx++
	}
	sortCandles(out)
	return out, nil
}

// parseTimeFlexible supports RFC3339 or UNIX seconds, same as the teacher.
func parseTimeFlexible(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("csvfeed: bad time %q", s)
}

func sortCandles(c []bar.Candle) {
	sort.Slice(c, func(i, j int) bool { return c[i].TsOpen < c[j].TsOpen })
}

func firstNonEmpty(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v
		}
	}
	return ""
}

// MultiTF bundles the three role-indexed candle slices plus the finest 1m
// feed the sub-loop and fill engine read from (§3: "1m is always
// available ... must cover the entire backtest window").
type MultiTF struct {
	Low, Med, High []bar.Candle
	OneMinute      []bar.Candle
}

// LoadMultiTF loads one file per non-empty path, parsing each against its
// declared timeframe label. A med or high role whose path is empty reuses
// the next lower role's slice when the two roles share a timeframe;
// otherwise it is left nil.
func LoadMultiTF(lowPath, medPath, highPath, oneMinPath string, lowTF, medTF, highTF bar.Timeframe) (*MultiTF, error) {
	m := &MultiTF{}
	var err error
	if lowPath != "" {
		if m.Low, err = LoadCandles(lowPath, lowTF.Minutes); err != nil {
			return nil, err
		}
	}
	if medPath != "" {
		if m.Med, err = LoadCandles(medPath, medTF.Minutes); err != nil {
			return nil, err
		}
	}
	if highPath != "" {
		if m.High, err = LoadCandles(highPath, highTF.Minutes); err != nil {
			return nil, err
		}
	}
	if m.Med == nil && medTF.Minutes == lowTF.Minutes {
		m.Med = m.Low
	}
	if m.High == nil && highTF.Minutes == medTF.Minutes {
		m.High = m.Med
	}
	if m.OneMinute, err = LoadCandles(oneMinPath, bar.OneMinute.Minutes); err != nil {
		return nil, err
	}
	return m, nil
}

// SliceOneMinute returns the 1m bars covering [execOpen, execClose]
// inclusive-end (§4.5 step 5): every bar opening at or after execOpen and
// closing at or before execClose, so the bar that closes exactly at
// execClose is included and the bar that opens there is not. The result is
// empty when no 1m bar falls in the window (the engine then falls back to
// evaluating at exec close); a partly covered window yields only the bars
// that exist.
func SliceOneMinute(oneMinute []bar.Candle, execOpen, execClose int64) []bar.Candle {
	start := sort.Search(len(oneMinute), func(i int) bool { return oneMinute[i].TsOpen >= execOpen })
	end := start
	for end < len(oneMinute) && oneMinute[end].TsClose <= execClose {
		end++
	}
	return oneMinute[start:end]
}

package csvfeed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, rows string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(rows), 0o644))
	return path
}

func TestLoadCandlesParsesUnixAndSortsAscending(t *testing.T) {
	path := writeTempCSV(t, "time,open,high,low,close,volume\n"+
		"120,101,102,100,101.5,10\n"+
		"0,100,101,99,100.5,5\n"+
		"60,100.5,101.5,99.5,101,7\n")
	candles, err := LoadCandles(path, 1)
	require.NoError(t, err)
	require.Len(t, candles, 3)
	require.Equal(t, int64(0), candles[0].TsOpen)
	require.Equal(t, int64(60_000), candles[1].TsOpen)
	require.Equal(t, int64(120_000), candles[2].TsOpen)
	require.Equal(t, int64(60_000), candles[0].TsClose)
}

func TestLoadCandlesSkipsMalformedRows(t *testing.T) {
	path := writeTempCSV(t, "time,open,high,low,close,volume\n"+
		"0,100,101,99,100.5,5\n"+
		",,,,,\n"+
		"notatime,100,101,99,100.5,5\n")
	candles, err := LoadCandles(path, 1)
	require.NoError(t, err)
	require.Len(t, candles, 1)
}

func TestSliceOneMinuteReturnsInclusiveEndWindow(t *testing.T) {
	path := writeTempCSV(t, "time,open,high,low,close,volume\n"+
		"0,1,1,1,1,1\n60,1,1,1,1,1\n120,1,1,1,1,1\n180,1,1,1,1,1\n")
	candles, err := LoadCandles(path, 1)
	require.NoError(t, err)

	slice := SliceOneMinute(candles, 60_000, 120_000)
	require.Len(t, slice, 2)
	require.Equal(t, int64(60_000), slice[0].TsOpen)
	require.Equal(t, int64(120_000), slice[1].TsOpen)
}

func TestLoadCandlesRejectsMissingFile(t *testing.T) {
	_, err := LoadCandles("/nonexistent/path.csv", 1)
	require.Error(t, err)
}

package bar

import "testing"

func TestCandleValidate(t *testing.T) {
	c := Candle{TsOpen: 0, TsClose: 60_000, Open: 10, High: 12, Low: 9, Close: 11, Volume: 5}
	if err := c.Validate(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := c
	bad.High = 8
	if err := bad.Validate(1); err == nil {
		t.Fatal("expected error for high < low")
	}
	bad2 := c
	bad2.TsClose = 999
	if err := bad2.Validate(1); err == nil {
		t.Fatal("expected error for bad ts_close")
	}
}

func TestSourceValue(t *testing.T) {
	c := Candle{Open: 1, High: 4, Low: 1, Close: 3, Volume: 7}
	if SourceClose.Value(c) != 3 {
		t.Fatal("close mismatch")
	}
	if SourceHLC3.Value(c) != (4+1+3)/3.0 {
		t.Fatal("hlc3 mismatch")
	}
	if SourceOHLC4.Value(c) != (1+4+1+3)/4.0 {
		t.Fatal("ohlc4 mismatch")
	}
}

func TestParseTimeframe(t *testing.T) {
	tf, err := ParseTimeframe("4h")
	if err != nil || tf.Minutes != 240 {
		t.Fatalf("4h = %+v, %v", tf, err)
	}
	if _, err := ParseTimeframe("bogus"); err == nil {
		t.Fatal("expected error for unknown label")
	}
}

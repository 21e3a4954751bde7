package structure

import (
	"testing"

	"github.com/playcore/derivcore/internal/bar"
	"github.com/playcore/derivcore/internal/indicator"
	"github.com/stretchr/testify/require"
)

func TestZoneActivatesThenBreaks(t *testing.T) {
	swing := &mutableSwing{ready: true}
	atr := &fakeIndicator{val: 2, ready: true}
	det, err := NewZone(Params{"k": 1.0, "anchor": "high"}, Deps{
		Structures: map[string]Detector{"swing": swing},
		Indicators: map[string]indicator.Indicator{"atr": atr},
	})
	require.NoError(t, err)
	z := det.(*Zone)
	require.Equal(t, ZoneNone, z.state)

	swing.version = 1
	swing.highLevel = 100
	require.NoError(t, z.Update(0, bar.Candle{Close: 95}))
	out := z.Output()
	require.Equal(t, ZoneActive, out["state"])
	require.InDelta(t, 102.0, out["upper"].(float64), 1e-9)
	require.InDelta(t, 98.0, out["lower"].(float64), 1e-9)

	// A close beyond upper breaks the zone permanently.
	require.NoError(t, z.Update(1, bar.Candle{Close: 103}))
	require.Equal(t, ZoneBroken, z.Output()["state"])

	// Stays broken even if price retreats, until a new swing pair arrives.
	require.NoError(t, z.Update(2, bar.Candle{Close: 90}))
	require.Equal(t, ZoneBroken, z.Output()["state"])
}

func TestZoneDegradesWidthWithoutATR(t *testing.T) {
	swing := &mutableSwing{ready: true, version: 1, highLevel: 50}
	det, err := NewZone(Params{"anchor": "high"}, Deps{Structures: map[string]Detector{"swing": swing}})
	require.NoError(t, err)
	require.NoError(t, det.Update(0, bar.Candle{Close: 40}))
	out := det.Output()
	require.Equal(t, 50.0, out["upper"])
	require.Equal(t, 50.0, out["lower"])
}

package structure

import (
	"testing"

	"github.com/playcore/derivcore/internal/bar"
	"github.com/stretchr/testify/require"
)

func TestDerivedZoneSkipsBreakOnCreationBar(t *testing.T) {
	source := &mutableSwing{ready: true}
	det, err := NewDerivedZone(Params{"max_active": 2, "tolerance_pct": 1.0, "mode": "mid"}, Deps{
		Structures: map[string]Detector{"source": source},
	})
	require.NoError(t, err)
	dz := det.(*DerivedZone)

	source.version = 1
	source.highLevel, source.lowLevel = 110, 90 // mid = 100
	// The creation bar itself breaks through 100 by a wide margin, but
	// must not be recorded as a break since it's the bar that created the zone.
	require.NoError(t, dz.Update(0, bar.Candle{Low: 50, High: 150}))
	require.Len(t, dz.slots, 1)
	require.False(t, dz.slots[0].Broken)

	// A later bar crossing the same way DOES break it.
	require.NoError(t, dz.Update(1, bar.Candle{Low: 50, High: 150}))
	require.True(t, dz.slots[0].Broken)
}

func TestDerivedZoneHashStableAcrossIdenticalInputs(t *testing.T) {
	source1 := &mutableSwing{ready: true, version: 1, highLevel: 110, lowLevel: 90, highIdx: 5, lowIdx: 2}
	det1, err := NewDerivedZone(Params{"mode": "mid"}, Deps{Structures: map[string]Detector{"source": source1}})
	require.NoError(t, err)
	require.NoError(t, det1.Update(0, bar.Candle{}))

	source2 := &mutableSwing{ready: true, version: 1, highLevel: 110, lowLevel: 90, highIdx: 5, lowIdx: 2}
	det2, err := NewDerivedZone(Params{"mode": "mid"}, Deps{Structures: map[string]Detector{"source": source2}})
	require.NoError(t, err)
	require.NoError(t, det2.Update(0, bar.Candle{}))

	dz1, dz2 := det1.(*DerivedZone), det2.(*DerivedZone)
	require.Equal(t, dz1.slots[0].Hash, dz2.slots[0].Hash)
}

func TestDerivedZoneEvictsBeyondMaxActive(t *testing.T) {
	source := &mutableSwing{ready: true}
	det, err := NewDerivedZone(Params{"max_active": 2, "mode": "mid"}, Deps{Structures: map[string]Detector{"source": source}})
	require.NoError(t, err)
	dz := det.(*DerivedZone)

	for v := 1; v <= 3; v++ {
		source.version = v
		source.highLevel, source.lowLevel = float64(100+v), float64(80+v)
		require.NoError(t, dz.Update(int64(v-1), bar.Candle{}))
	}
	require.Len(t, dz.slots, 2)
	// most-recent first: the latest zone (version 3, mid=(103+83)/2=93) is at index 0.
	require.InDelta(t, 93.0, dz.slots[0].Level, 1e-9)
}

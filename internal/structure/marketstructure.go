// FILE: marketstructure.go
// Package structure – MarketStructure: consumes Swing, derives a directional
// bias and per-bar BOS/CHoCH event flags (spec §4.3). CHoCH is checked
// before BOS in each of the three bias branches; taking the CHoCH branch
// this bar skips the BOS check entirely, which is what "clears the pending
// break level to prevent a same-bar BOS" means here — there is no separate
// break-level state to clear, the if/else ordering enforces the priority.
package structure

import (
	"math"

	"github.com/playcore/derivcore/internal/bar"
)

type MarketStructure struct {
	swing Detector

	lastSeenVersion int
	swingHigh       float64
	swingLow        float64
	haveLevels      bool

	bias         int
	bosThisBar   bool
	chochThisBar bool

	lastBarIdx int64
	hasLast    bool
}

func NewMarketStructure(p Params, deps Deps) (Detector, error) {
	swing, err := deps.structure("swing")
	if err != nil {
		return nil, err
	}
	return &MarketStructure{swing: swing, lastSeenVersion: -1, swingHigh: math.Inf(1), swingLow: math.Inf(-1)}, nil
}

func (m *MarketStructure) Update(barIdx int64, c bar.Candle) error {
	if m.hasLast && barIdx <= m.lastBarIdx {
		return errNonIncreasing("market_structure", m.lastBarIdx, barIdx)
	}
	m.lastBarIdx = barIdx
	m.hasLast = true

	out := m.swing.Output()
	version, _ := out["pair_version"].(int)
	if version != m.lastSeenVersion {
		m.lastSeenVersion = version
		if hi, ok := out["high_level"].(float64); ok {
			m.swingHigh = hi
		}
		if lo, ok := out["low_level"].(float64); ok {
			m.swingLow = lo
		}
		m.haveLevels = version > 0
	}

	m.bosThisBar = false
	m.chochThisBar = false
	if !m.haveLevels {
		return nil
	}

	switch m.bias {
	case 1:
		if c.Close < m.swingLow {
			m.bias = -1
			m.chochThisBar = true
		} else if c.Close > m.swingHigh {
			m.bosThisBar = true
		}
	case -1:
		if c.Close > m.swingHigh {
			m.bias = 1
			m.chochThisBar = true
		} else if c.Close < m.swingLow {
			m.bosThisBar = true
		}
	default:
		if c.Close > m.swingHigh {
			m.bias = 1
			m.bosThisBar = true
		} else if c.Close < m.swingLow {
			m.bias = -1
			m.bosThisBar = true
		}
	}
	return nil
}

func (m *MarketStructure) Output() Output {
	bosFlag, chochFlag := 0, 0
	if m.bosThisBar {
		bosFlag = 1
	}
	if m.chochThisBar {
		chochFlag = 1
	}
	return Output{
		"bias":           m.bias,
		"bos_this_bar":   bosFlag,
		"choch_this_bar": chochFlag,
	}
}

func (m *MarketStructure) IsReady() bool { return m.swing.IsReady() }

func (m *MarketStructure) Reset() {
	swing := m.swing
	*m = MarketStructure{swing: swing, lastSeenVersion: -1, swingHigh: math.Inf(1), swingLow: math.Inf(-1)}
}

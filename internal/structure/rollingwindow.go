// FILE: rollingwindow.go
// Package structure – RollingWindow: rolling min or max of the last `size`
// bars, backed by primitives.MonotonicDeque (spec §4.3).
package structure

import (
	"github.com/playcore/derivcore/internal/bar"
	"github.com/playcore/derivcore/internal/primitives"
)

type RollingWindow struct {
	size   int
	mode   primitives.Mode
	src    bar.Source
	deque  *primitives.MonotonicDeque

	lastBarIdx int64
	hasLast    bool
}

func NewRollingWindow(p Params, deps Deps) (Detector, error) {
	size := p.Int("size", 20)
	mode := primitives.MIN
	if p.String("mode", "min") == "max" {
		mode = primitives.MAX
	}
	src := bar.Source(p.String("source", string(bar.SourceClose)))
	return &RollingWindow{size: size, mode: mode, src: src, deque: primitives.NewMonotonicDeque(size, mode)}, nil
}

func (r *RollingWindow) Update(barIdx int64, c bar.Candle) error {
	if r.hasLast && barIdx <= r.lastBarIdx {
		return errNonIncreasing("rolling_window", r.lastBarIdx, barIdx)
	}
	r.lastBarIdx = barIdx
	r.hasLast = true
	return r.deque.Push(int(barIdx), r.src.Value(c))
}

func (r *RollingWindow) Output() Output {
	v, _ := r.deque.Front()
	return Output{"value": v}
}

func (r *RollingWindow) IsReady() bool {
	_, ok := r.deque.Front()
	return ok && r.hasLast && r.lastBarIdx >= int64(r.size-1)
}

func (r *RollingWindow) Reset() {
	r.deque.Clear()
	r.hasLast = false
	r.lastBarIdx = 0
}

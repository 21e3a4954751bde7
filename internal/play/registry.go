// FILE: registry.go
// Package play – implements internal/dsl.Registry over a Play's own
// feature/structure declarations, so the DSL compiler can resolve names
// without importing internal/indicator or internal/structure itself.
package play

import (
	"fmt"
	"time"

	"github.com/playcore/derivcore/internal/bar"
	"github.com/playcore/derivcore/internal/dsl"
)

// dslRegistry adapts one Play's declarations to dsl.Registry.
type dslRegistry struct {
	play     *Play
	features map[string]dsl.RefInfo
	structs  map[string]dsl.RefInfo
	barDur   map[string]time.Duration
}

func newDSLRegistry(p *Play) (*dslRegistry, error) {
	r := &dslRegistry{
		play:     p,
		features: make(map[string]dsl.RefInfo, len(p.Features)),
		structs:  make(map[string]dsl.RefInfo, len(p.Structures)),
		barDur:   make(map[string]time.Duration, 3),
	}
	for _, f := range p.Features {
		r.features[f.ID] = dsl.RefInfo{TFRole: f.TFRole, CacheKey: f.ID}
	}
	for _, s := range p.Structures {
		r.structs[s.Key] = dsl.RefInfo{TFRole: s.TFRole, CacheKey: s.Key}
	}
	for role, label := range map[string]string{
		string(bar.RoleLow): p.Timeframe.LowTF, string(bar.RoleMed): p.Timeframe.MedTF, string(bar.RoleHigh): p.Timeframe.HighTF,
	} {
		tf, err := bar.ParseTimeframe(label)
		if err != nil {
			return nil, fmt.Errorf("play: timeframe.%s: %w", role, err)
		}
		r.barDur[role] = time.Duration(tf.Minutes) * time.Minute
	}
	return r, nil
}

func (r *dslRegistry) ResolveFeature(name string) (dsl.RefInfo, bool) {
	v, ok := r.features[name]
	return v, ok
}

func (r *dslRegistry) ResolveStruct(name string) (dsl.RefInfo, bool) {
	v, ok := r.structs[name]
	return v, ok
}

func (r *dslRegistry) BarDuration(tfRole string) (time.Duration, bool) {
	v, ok := r.barDur[tfRole]
	return v, ok
}

func (r *dslRegistry) ExecTFRole() string { return r.play.Timeframe.Exec }

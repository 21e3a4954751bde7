// FILE: warmup.go
// Package engine – the warmup gate (§4.5 step 2): a TF role is ready once
// its bar counter has reached the compiled Play's warmup_required for that
// role AND every indicator declared on it reports IsReady() with finite
// latest values AND every structure declared on it reports IsReady().
// Structure outputs are not checked for finiteness. The engine stays in
// WARMING_UP until all three roles clear the gate.
package engine

import (
	"github.com/playcore/derivcore/internal/bar"
	"github.com/playcore/derivcore/internal/play"
)

// warmupTracker holds the per-role bar counters and resolves readiness
// against the compiled Play.
type warmupTracker struct {
	compiled *play.Compiled
	counters map[bar.Role]int

	featureRole map[string]bar.Role
	structRole  map[string]bar.Role
}

func newWarmupTracker(c *play.Compiled) *warmupTracker {
	wt := &warmupTracker{
		compiled:    c,
		counters:    map[bar.Role]int{bar.RoleLow: 0, bar.RoleMed: 0, bar.RoleHigh: 0},
		featureRole: make(map[string]bar.Role, len(c.Play.Features)),
		structRole:  make(map[string]bar.Role, len(c.Play.Structures)),
	}
	for _, f := range c.Play.Features {
		wt.featureRole[f.ID] = bar.Role(f.TFRole)
	}
	for _, s := range c.Play.Structures {
		wt.structRole[s.Key] = bar.Role(s.TFRole)
	}
	return wt
}

func (wt *warmupTracker) advance(role bar.Role) {
	wt.counters[role]++
}

// roleReady reports whether role has crossed its bar_counter threshold AND
// every indicator on that role is ready with finite current values AND
// every structure on that role reports IsReady().
func (wt *warmupTracker) roleReady(role bar.Role) bool {
	if wt.counters[role] < wt.compiled.WarmupRequired[role] {
		return false
	}
	for id, r := range wt.featureRole {
		if r != role {
			continue
		}
		ind := wt.compiled.Indicators[id]
		if ind == nil || !ind.IsReady() {
			return false
		}
		for _, v := range ind.Value() {
			if !isFinite(v) {
				return false
			}
		}
	}
	for key, r := range wt.structRole {
		if r != role {
			continue
		}
		det := wt.compiled.Structures[key]
		if det == nil || !det.IsReady() {
			return false
		}
	}
	return true
}

// allReady reports whether every TF role has cleared its gate.
func (wt *warmupTracker) allReady() bool {
	return wt.roleReady(bar.RoleLow) && wt.roleReady(bar.RoleMed) && wt.roleReady(bar.RoleHigh)
}

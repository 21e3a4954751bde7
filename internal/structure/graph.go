// FILE: graph.go
// Package structure – dependency-injection graph builder (spec §4.3, §9):
// structure instances are declared by name with DEPENDS_ON role -> instance
// name mappings; construction happens in topological order so every
// dependency a detector needs already exists as a built Detector by the
// time its own constructor runs. No cross-detector imports: a detector
// only ever sees the Deps bag handed to it at construction.
package structure

import (
	"fmt"

	"github.com/playcore/derivcore/internal/indicator"
)

// InstanceSpec is one named structure declaration from a compiled Play:
// its kind, decoded params, and the concrete instance names satisfying its
// structure/indicator dependency roles.
type InstanceSpec struct {
	Name          string
	Kind          Kind
	Params        Params
	DependsOn     map[string]string // role -> structure instance name
	IndicatorDeps map[string]string // role -> indicator instance name
}

const (
	stateWhite = 0
	stateGray  = 1
	stateBlack = 2
)

// BuildGraph topologically sorts specs by their DependsOn edges and
// constructs each detector in that order, injecting already-built
// dependencies. indicators maps indicator instance name -> built
// indicator.Indicator (resolved by the caller from the Play's feature
// registry). Returns an error on an unknown kind, an unresolved
// dependency name, or a dependency cycle.
func BuildGraph(specs []InstanceSpec, indicators map[string]indicator.Indicator) (map[string]Detector, error) {
	byName := make(map[string]InstanceSpec, len(specs))
	for _, s := range specs {
		if _, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("structure: duplicate instance name %q", s.Name)
		}
		byName[s.Name] = s
	}

	state := make(map[string]int, len(specs))
	order := make([]string, 0, len(specs))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case stateBlack:
			return nil
		case stateGray:
			return fmt.Errorf("structure: circular dependency involving %q", name)
		}
		spec, ok := byName[name]
		if !ok {
			return fmt.Errorf("structure: dependency %q is not a declared instance", name)
		}
		state[name] = stateGray
		for _, depName := range spec.DependsOn {
			if err := visit(depName); err != nil {
				return err
			}
		}
		state[name] = stateBlack
		order = append(order, name)
		return nil
	}

	for _, s := range specs {
		if err := visit(s.Name); err != nil {
			return nil, err
		}
	}

	built := make(map[string]Detector, len(specs))
	for _, name := range order {
		spec := byName[name]
		desc, err := Lookup(spec.Kind)
		if err != nil {
			return nil, fmt.Errorf("structure: instance %q: %w", name, err)
		}
		for _, role := range desc.DependsOn {
			if _, ok := spec.DependsOn[role]; !ok {
				return nil, fmt.Errorf("structure: instance %q (%s) missing required dependency role %q", name, spec.Kind, role)
			}
		}
		deps := Deps{Structures: make(map[string]Detector, len(spec.DependsOn)), Indicators: make(map[string]indicator.Indicator, len(spec.IndicatorDeps))}
		for role, depName := range spec.DependsOn {
			dep, ok := built[depName]
			if !ok {
				return nil, fmt.Errorf("structure: instance %q references %q before it is built", name, depName)
			}
			deps.Structures[role] = dep
		}
		for role, indName := range spec.IndicatorDeps {
			ind, ok := indicators[indName]
			if !ok {
				return nil, fmt.Errorf("structure: instance %q references unknown indicator instance %q", name, indName)
			}
			deps.Indicators[role] = ind
		}
		det, err := desc.New(spec.Params, deps)
		if err != nil {
			return nil, fmt.Errorf("structure: constructing %q: %w", name, err)
		}
		built[name] = det
	}
	return built, nil
}

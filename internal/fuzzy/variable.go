// Package fuzzy implements the fuzzy inference engine: linguistic
// variables with their sets, rules, genome decoding and the per-sample
// evaluation pipeline.
package fuzzy

import (
	"errors"
	"fmt"

	"fugo/internal/dataset"
)

// Kind selects the membership-function family of a variable.
type Kind int

const (
	// Coco variables carry overlapping triangular sets: each set peaks
	// at its position with shoulders at the neighbor positions, and the
	// edge sets extend flat to the universe bounds.
	Coco Kind = iota
	// Singleton variables carry spike sets at their positions; used for
	// outputs.
	Singleton
)

// ErrDegenerate is returned when defuzzification has no membership mass
// to work with. The caller treats the individual as degenerate.
var ErrDegenerate = errors.New("defuzzification over flat-zero membership")

// Set is one linguistic set of a variable. Eval holds the membership
// degree (input variables) or the firing accumulator (output variables)
// of the current sample.
type Set struct {
	Name     string
	Position float64
	Index    int
	Eval     float64
}

// Variable is a linguistic variable with ordered sets over a universe
// of discourse.
type Variable struct {
	name     string
	kind     Kind
	output   bool
	universe dataset.Universe
	sets     []*Set

	usedBySystem bool
	inputValue   float64
	missing      bool
}

// NewVariable returns a variable without sets. Output variables are
// singleton-kind in evolved systems.
func NewVariable(name string, kind Kind, universe dataset.Universe) *Variable {
	return &Variable{name: name, kind: kind, universe: universe}
}

func (v *Variable) Name() string               { return v.name }
func (v *Variable) Kind() Kind                 { return v.kind }
func (v *Variable) Universe() dataset.Universe { return v.universe }
func (v *Variable) IsOutput() bool             { return v.output }
func (v *Variable) SetOutput(output bool)      { v.output = output }

func (v *Variable) UsedBySystem() bool        { return v.usedBySystem }
func (v *Variable) SetUsedBySystem(used bool) { v.usedBySystem = used }

func (v *Variable) Missing() bool { return v.missing }

// SetInputValue records the crisp input of the current sample and
// clears the missing flag.
func (v *Variable) SetInputValue(x float64) {
	v.inputValue = x
	v.missing = false
}

// SetMissing marks the current sample's value as missing; memberships
// stay zero so the variable suppresses every rule referencing it.
func (v *Variable) SetMissing() {
	v.missing = true
}

// AddSet appends a set in insertion order.
func (v *Variable) AddSet(name string, position float64, index int) {
	v.sets = append(v.sets, &Set{Name: name, Position: position, Index: index})
}

func (v *Variable) SetsCount() int { return len(v.sets) }
func (v *Variable) Set(i int) *Set { return v.sets[i] }
func (v *Variable) Sets() []*Set   { return v.sets }

// SetIndexByName returns the index of the named set, or an error when
// the variable has no such set.
func (v *Variable) SetIndexByName(name string) (int, error) {
	for i, s := range v.sets {
		if s.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("variable %s has no set named %q", v.name, name)
}

// SetPositions overwrites the set positions in order. The caller is
// responsible for passing them sorted.
func (v *Variable) SetPositions(positions []float64) error {
	if len(positions) != len(v.sets) {
		return fmt.Errorf("variable %s: %d positions for %d sets", v.name, len(positions), len(v.sets))
	}
	for i, p := range positions {
		v.sets[i].Position = p
	}
	return nil
}

// ClearEval zeroes every set's evaluation.
func (v *Variable) ClearEval() {
	for _, s := range v.sets {
		s.Eval = 0
	}
}

// Evaluate fills each set's membership degree for input value x using
// the coco shape: a triangle peaking at the set's position whose base
// reaches the neighbor positions, clamped flat past the edge sets.
func (v *Variable) Evaluate(x float64) {
	for i, s := range v.sets {
		s.Eval = v.cocoMembership(i, x)
	}
}

func (v *Variable) cocoMembership(i int, x float64) float64 {
	peak := v.sets[i].Position

	left := v.universe.Min
	if i > 0 {
		left = v.sets[i-1].Position
	}
	right := v.universe.Max
	if i < len(v.sets)-1 {
		right = v.sets[i+1].Position
	}

	switch {
	case x == peak:
		return 1
	case x < peak:
		if i == 0 {
			// Leftmost set holds full membership down to the bound.
			return 1
		}
		if x <= left || peak == left {
			return 0
		}
		return (x - left) / (peak - left)
	default:
		if i == len(v.sets)-1 {
			return 1
		}
		if x >= right || right == peak {
			return 0
		}
		return (right - x) / (right - peak)
	}
}

// Defuzz reduces the variable's current set evaluations to a crisp
// value by centroid. Singleton variables weight the set positions by
// their accumulators directly; coco variables integrate the aggregated
// membership over a resolution-point grid across the universe.
func (v *Variable) Defuzz(resolution int) (float64, error) {
	if v.kind == Singleton {
		num, den := 0.0, 0.0
		for _, s := range v.sets {
			num += s.Eval * s.Position
			den += s.Eval
		}
		if den == 0 {
			return 0, fmt.Errorf("variable %s: %w", v.name, ErrDegenerate)
		}
		return num / den, nil
	}

	if resolution < 2 {
		return 0, fmt.Errorf("variable %s: defuzzification resolution must be >= 2", v.name)
	}
	step := (v.universe.Max - v.universe.Min) / float64(resolution-1)
	num, den := 0.0, 0.0
	for k := 0; k < resolution; k++ {
		x := v.universe.Min + float64(k)*step
		mu := 0.0
		for i, s := range v.sets {
			m := v.cocoMembership(i, x)
			if s.Eval < m {
				m = s.Eval
			}
			if m > mu {
				mu = m
			}
		}
		num += mu * x
		den += mu
	}
	if den == 0 {
		return 0, fmt.Errorf("variable %s: %w", v.name, ErrDegenerate)
	}
	return num / den, nil
}

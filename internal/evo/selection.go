package evo

import (
	"fmt"

	"fugo/internal/rng"
)

// Selector chooses parents for reproduction, with replacement.
type Selector interface {
	Name() string
	Select(r *rng.Generator, individuals []*Individual, n int) ([]*Individual, error)
}

// TournamentSelector draws Size distinct indices uniformly and keeps
// the fittest; ties go to the lower index.
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) Select(r *rng.Generator, individuals []*Individual, n int) ([]*Individual, error) {
	if r == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if len(individuals) == 0 {
		return nil, fmt.Errorf("tournament selection over an empty population")
	}
	size := s.Size
	if size <= 0 {
		size = 3
	}
	if size > len(individuals) {
		size = len(individuals)
	}

	parents := make([]*Individual, n)
	for i := 0; i < n; i++ {
		indices := drawDistinct(r, len(individuals), size)
		best := indices[0]
		for _, idx := range indices[1:] {
			if individuals[idx].Fitness > individuals[best].Fitness ||
				(individuals[idx].Fitness == individuals[best].Fitness && idx < best) {
				best = idx
			}
		}
		parents[i] = individuals[best]
	}
	return parents, nil
}

// drawDistinct samples k distinct indices from [0, n).
func drawDistinct(r *rng.Generator, n, k int) []int {
	taken := make(map[int]bool, k)
	out := make([]int, 0, k)
	for len(out) < k {
		idx := r.Int(0, n-1)
		if taken[idx] {
			continue
		}
		taken[idx] = true
		out = append(out, idx)
	}
	return out
}

// RouletteSelector buckets individuals on cumulative fitness and draws
// uniformly in [0, total). With no fitness mass it falls back to a
// uniform draw.
type RouletteSelector struct{}

func (RouletteSelector) Name() string {
	return "roulette"
}

func (RouletteSelector) Select(r *rng.Generator, individuals []*Individual, n int) ([]*Individual, error) {
	if r == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if len(individuals) == 0 {
		return nil, fmt.Errorf("roulette selection over an empty population")
	}

	cumulative := make([]float64, len(individuals))
	total := 0.0
	for i, ind := range individuals {
		total += ind.Fitness
		cumulative[i] = total
	}

	parents := make([]*Individual, n)
	for i := 0; i < n; i++ {
		if total <= 0 {
			parents[i] = individuals[r.Int(0, len(individuals)-1)]
			continue
		}
		pick := r.Real(0, total)
		idx := 0
		for idx < len(cumulative)-1 && pick >= cumulative[idx] {
			idx++
		}
		parents[i] = individuals[idx]
	}
	return parents, nil
}

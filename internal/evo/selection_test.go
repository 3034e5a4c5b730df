package evo

import (
	"testing"

	"fugo/internal/rng"
)

func TestTournamentPrefersFitter(t *testing.T) {
	p := newTestPopulation(t, PopRules, 0.1, 0.9, 0.2, 0.3)
	r := rng.New(7)
	selector := TournamentSelector{Size: 4}

	parents, err := selector.Select(r, p.Individuals(), 50)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	// A full-size tournament always returns the best individual.
	for _, parent := range parents {
		if parent.Fitness != 0.9 {
			t.Fatalf("full tournament picked fitness %v, want 0.9", parent.Fitness)
		}
	}
}

func TestTournamentDrawsDistinctIndices(t *testing.T) {
	r := rng.New(9)
	for i := 0; i < 100; i++ {
		indices := drawDistinct(r, 5, 5)
		seen := map[int]bool{}
		for _, idx := range indices {
			if seen[idx] {
				t.Fatalf("duplicate index %d in draw %v", idx, indices)
			}
			seen[idx] = true
		}
	}
}

func TestRouletteBiasesTowardFitness(t *testing.T) {
	p := newTestPopulation(t, PopRules, 0.9, 0.1)
	r := rng.New(11)
	selector := RouletteSelector{}

	parents, err := selector.Select(r, p.Individuals(), 2000)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	high := 0
	for _, parent := range parents {
		if parent.Fitness == 0.9 {
			high++
		}
	}
	// Expected share is 0.9; anything above 0.8 clears the bias bar.
	if high < 1600 {
		t.Fatalf("high-fitness parent picked %d of 2000 times", high)
	}
}

func TestRouletteZeroMassFallsBackToUniform(t *testing.T) {
	p := newTestPopulation(t, PopRules, 0, 0, 0)
	r := rng.New(13)
	parents, err := RouletteSelector{}.Select(r, p.Individuals(), 30)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(parents) != 30 {
		t.Fatalf("parent count = %d, want 30", len(parents))
	}
}

func TestSelectorsRejectEmptyPopulation(t *testing.T) {
	r := rng.New(15)
	if _, err := (TournamentSelector{}).Select(r, nil, 1); err == nil {
		t.Fatal("tournament accepted an empty population")
	}
	if _, err := (RouletteSelector{}).Select(r, nil, 1); err == nil {
		t.Fatal("roulette accepted an empty population")
	}
}

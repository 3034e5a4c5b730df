package evo

import (
	"testing"

	"fugo/internal/fuzzy"
	"fugo/internal/genome"
	"fugo/internal/model"
	"fugo/internal/rng"
)

func loadedSystem(t *testing.T) *fuzzy.System {
	t.Helper()
	p := smallParams()
	sys, err := fuzzy.NewSystem(p, identityTable(t))
	if err != nil {
		t.Fatalf("new system: %v", err)
	}
	r := rng.New(31)
	memb, err := genome.New(sys.Params().MembershipsGenomeLen())
	if err != nil {
		t.Fatalf("new genome: %v", err)
	}
	memb.Randomize(r)
	rules, err := genome.New(sys.Params().RulesGenomeLen())
	if err != nil {
		t.Fatalf("new genome: %v", err)
	}
	rules.Randomize(r)
	if err := sys.Load(memb, rules); err != nil {
		t.Fatalf("load: %v", err)
	}
	return sys
}

func TestTrackerStrictImprovementOnly(t *testing.T) {
	sys := loadedSystem(t)
	tracker := &BestTracker{}

	improved, err := tracker.Observe(model.FitnessMetrics{Fitness: 0.5}, sys)
	if err != nil || !improved {
		t.Fatalf("first observation: improved=%v err=%v", improved, err)
	}
	improved, err = tracker.Observe(model.FitnessMetrics{Fitness: 0.5}, sys)
	if err != nil || improved {
		t.Fatalf("equal fitness must not improve: improved=%v err=%v", improved, err)
	}
	improved, err = tracker.Observe(model.FitnessMetrics{Fitness: 0.4}, sys)
	if err != nil || improved {
		t.Fatalf("lower fitness must not improve: improved=%v err=%v", improved, err)
	}
	improved, err = tracker.Observe(model.FitnessMetrics{Fitness: 0.8}, sys)
	if err != nil || !improved {
		t.Fatalf("higher fitness must improve: improved=%v err=%v", improved, err)
	}

	best, ok := tracker.Best()
	if !ok || best.Fitness != 0.8 {
		t.Fatalf("best = %+v ok=%v, want fitness 0.8", best, ok)
	}
	if best.System == nil {
		t.Fatal("champion system missing from the record")
	}
	if tracker.BestFitness() != 0.8 {
		t.Fatalf("BestFitness = %v, want 0.8", tracker.BestFitness())
	}
}

func TestTrackerEmptyState(t *testing.T) {
	tracker := &BestTracker{}
	if _, ok := tracker.Best(); ok {
		t.Fatal("empty tracker reports a champion")
	}
	if tracker.BestFitness() != 0 {
		t.Fatalf("empty tracker fitness = %v, want 0", tracker.BestFitness())
	}
}

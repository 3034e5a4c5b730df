package evo

import (
	"context"
	"strings"
	"testing"
	"time"

	"fugo/internal/dataset"
	"fugo/internal/model"
	"fugo/internal/rng"
)

func identityTable(t *testing.T) *dataset.Table {
	t.Helper()
	table, err := dataset.Parse(strings.NewReader(`id;x;y
s0;0;0
s1;1;1
s2;0;0
s3;1;1
`), "identity", 1)
	if err != nil {
		t.Fatalf("parse dataset: %v", err)
	}
	return table
}

func smallParams() model.SystemParameters {
	p := model.Default()
	p.NbRules = 2
	p.NbVarPerRule = 1
	p.NbInSets = 2
	p.NbOutSets = 2
	p.InVarsCode = 1
	p.OutVarsCode = 1
	p.InSetsCode = 1
	p.OutSetsCode = 1
	p.InSetsPosCode = 4
	p.OutSetsPos = 1
	p.Thresholds = []float64{0.5}
	p.Memberships = model.PopulationParameters{
		MaxGen: 50, PopSize: 20, EliteSize: 5, Cooperators: 2,
		CxProb: 0.5, MutFlipInd: 0.5, MutFlipBit: 0.05,
	}
	p.Rules = p.Memberships
	return p
}

func TestCoevolutionReachesThreshold(t *testing.T) {
	// A sensitivity-only objective on a separable dataset is satisfied
	// by any system predicting the positives; the threshold event must
	// fire well inside the generation budget and both engines stop.
	p := smallParams()
	p.Weights = model.FitnessWeights{Sensi: 1}
	p.MaxFitPop1 = 0.9
	p.MaxFitPop2 = 0.9

	coev, err := NewCoevolution(CoevolutionConfig{
		Params: p,
		Table:  identityTable(t),
		RNG:    rng.New(42),
	})
	if err != nil {
		t.Fatalf("new coevolution: %v", err)
	}

	result, err := coev.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Terminated != "threshold" {
		t.Fatalf("terminated = %q, want threshold", result.Terminated)
	}
	if result.Best.Fitness < 0.9 {
		t.Fatalf("best fitness = %v, want >= 0.9", result.Best.Fitness)
	}
	if result.Best.System == nil {
		t.Fatal("champion system was not persisted at improvement time")
	}
	// With sensitivity as the only criterion the composite equals it,
	// so the monotone best-ever fitness is monotone sensitivity.
	if result.Best.Metrics.Sensitivity != result.Best.Fitness {
		t.Fatalf("sensitivity %v != fitness %v under a sensitivity-only objective",
			result.Best.Metrics.Sensitivity, result.Best.Fitness)
	}
	if len(result.Generations) == 0 {
		t.Fatal("no generation stats collected")
	}
}

func TestCoevolutionRunsToCompletion(t *testing.T) {
	p := smallParams()
	p.Memberships.MaxGen = 3
	p.Rules.MaxGen = 3
	p.Weights = model.FitnessWeights{Sensi: 1, Speci: 1}
	p.MaxFitPop1 = 2 // unreachable
	p.MaxFitPop2 = 2

	coev, err := NewCoevolution(CoevolutionConfig{
		Params: p,
		Table:  identityTable(t),
		RNG:    rng.New(7),
	})
	if err != nil {
		t.Fatalf("new coevolution: %v", err)
	}
	result, err := coev.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Terminated != "completed" {
		t.Fatalf("terminated = %q, want completed", result.Terminated)
	}

	// Three generations per population in the stats stream.
	perPop := map[string]int{}
	for _, g := range result.Generations {
		perPop[g.Population]++
	}
	if perPop[PopMemberships] != 3 || perPop[PopRules] != 3 {
		t.Fatalf("generation stats per population = %v, want 3 each", perPop)
	}

	// Composite fitness stays within (0, 1] for every individual seen.
	for _, g := range result.Generations {
		if g.MaxFitness > 1 || g.MinFitness <= 0 {
			t.Fatalf("fitness out of range in stats: %+v", g)
		}
	}
}

func TestCoevolutionStopFlag(t *testing.T) {
	p := smallParams()
	p.Memberships.MaxGen = 10_000
	p.Rules.MaxGen = 10_000
	p.Weights = model.FitnessWeights{Sensi: 1, Speci: 1}
	p.MaxFitPop1 = 2
	p.MaxFitPop2 = 2

	coev, err := NewCoevolution(CoevolutionConfig{
		Params: p,
		Table:  identityTable(t),
		RNG:    rng.New(19),
	})
	if err != nil {
		t.Fatalf("new coevolution: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		coev.Stop()
	}()
	done := make(chan CoevolutionResult, 1)
	go func() {
		result, err := coev.Run(context.Background())
		if err != nil {
			t.Errorf("run: %v", err)
		}
		done <- result
	}()

	select {
	case result := <-done:
		if result.Terminated != "stopped" {
			t.Fatalf("terminated = %q, want stopped", result.Terminated)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("stop flag did not unwind the run")
	}
}

func TestCooperatorsZeroScoresZero(t *testing.T) {
	p := smallParams()
	p.Memberships.MaxGen = 1
	p.Rules.MaxGen = 1
	p.Memberships.Cooperators = 0
	p.Rules.Cooperators = 0
	p.Weights = model.FitnessWeights{Sensi: 1}

	coev, err := NewCoevolution(CoevolutionConfig{
		Params: p,
		Table:  identityTable(t),
		RNG:    rng.New(23),
	})
	if err != nil {
		t.Fatalf("new coevolution: %v", err)
	}
	result, err := coev.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, g := range result.Generations {
		if g.MaxFitness != 0 || g.MinFitness != 0 {
			t.Fatalf("fitness with no cooperators = %+v, want all zero", g)
		}
	}
	if _, ok := coev.Tracker().Best(); ok {
		t.Fatal("a champion appeared without any cooperator pairing")
	}
}

func TestSingleIndividualGenerationIsNoOp(t *testing.T) {
	p := smallParams()
	p.Memberships = model.PopulationParameters{
		MaxGen: 3, PopSize: 1, EliteSize: 1, Cooperators: 1,
		CxProb: 0.5, MutFlipInd: 0.5, MutFlipBit: 0.05,
	}
	p.Rules = p.Memberships
	p.Weights = model.FitnessWeights{Sensi: 1}

	coev, err := NewCoevolution(CoevolutionConfig{
		Params: p,
		Table:  identityTable(t),
		RNG:    rng.New(29),
	})
	if err != nil {
		t.Fatalf("new coevolution: %v", err)
	}

	before := coev.memberships.Individuals()[0].Genome.Clone()
	if _, err := coev.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	after := coev.memberships.Individuals()[0].Genome
	for i := 0; i < before.Len(); i++ {
		if before.Get(i) != after.Get(i) {
			t.Fatal("sole elite individual's genome changed across generations")
		}
	}
}

package fuzzy

import (
	"errors"
	"math"
	"testing"

	"fugo/internal/dataset"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func newInputVar(t *testing.T, positions ...float64) *Variable {
	t.Helper()
	v := NewVariable("x", Coco, dataset.Universe{Min: 0, Max: 1})
	for i, p := range positions {
		v.AddSet("MF "+string(rune('0'+i)), p, i)
	}
	return v
}

func TestCocoMembershipInterior(t *testing.T) {
	v := newInputVar(t, 0.2, 0.5, 0.8)

	v.Evaluate(0.5)
	if !almostEqual(v.Set(1).Eval, 1) {
		t.Fatalf("membership at peak = %v, want 1", v.Set(1).Eval)
	}
	if !almostEqual(v.Set(0).Eval, 0) || !almostEqual(v.Set(2).Eval, 0) {
		t.Fatal("neighbors at peak should be 0")
	}

	// Halfway between set 0 and set 1 both hold membership 0.5.
	v.Evaluate(0.35)
	if !almostEqual(v.Set(0).Eval, 0.5) || !almostEqual(v.Set(1).Eval, 0.5) {
		t.Fatalf("memberships at 0.35 = %v / %v, want 0.5 / 0.5", v.Set(0).Eval, v.Set(1).Eval)
	}
	if !almostEqual(v.Set(2).Eval, 0) {
		t.Fatalf("far set at 0.35 = %v, want 0", v.Set(2).Eval)
	}
}

func TestCocoMembershipEdgesExtendToBounds(t *testing.T) {
	v := newInputVar(t, 0.2, 0.8)

	v.Evaluate(0.0)
	if !almostEqual(v.Set(0).Eval, 1) {
		t.Fatalf("leftmost set below its peak = %v, want 1", v.Set(0).Eval)
	}
	v.Evaluate(1.0)
	if !almostEqual(v.Set(1).Eval, 1) {
		t.Fatalf("rightmost set above its peak = %v, want 1", v.Set(1).Eval)
	}
}

func TestCocoMembershipCollapsedPositions(t *testing.T) {
	// Equal min/max collapses every position; evaluation must stay
	// finite with no division blowup.
	v := NewVariable("x", Coco, dataset.Universe{Min: 3, Max: 3})
	v.AddSet("MF 0", 3, 0)
	v.AddSet("MF 1", 3, 1)
	v.Evaluate(3)
	for i := 0; i < v.SetsCount(); i++ {
		if math.IsNaN(v.Set(i).Eval) || math.IsInf(v.Set(i).Eval, 0) {
			t.Fatalf("set %d membership is not finite: %v", i, v.Set(i).Eval)
		}
	}
}

func TestSingletonDefuzzWeightedCentroid(t *testing.T) {
	v := NewVariable("y", Singleton, dataset.Universe{Min: 0, Max: 1})
	v.AddSet("MF 0", 0.0, 0)
	v.AddSet("MF 1", 1.0, 1)
	v.Set(0).Eval = 0.25
	v.Set(1).Eval = 0.75
	got, err := v.Defuzz(DefuzzResolution)
	if err != nil {
		t.Fatalf("defuzz: %v", err)
	}
	if !almostEqual(got, 0.75) {
		t.Fatalf("defuzz = %v, want 0.75", got)
	}
}

func TestSingletonDefuzzSingleActiveSetHitsPosition(t *testing.T) {
	v := NewVariable("y", Singleton, dataset.Universe{Min: 0, Max: 10})
	v.AddSet("MF 0", 2.5, 0)
	v.AddSet("MF 1", 7.5, 1)
	v.Set(0).Eval = 1.0
	got, err := v.Defuzz(DefuzzResolution)
	if err != nil {
		t.Fatalf("defuzz: %v", err)
	}
	if !almostEqual(got, 2.5) {
		t.Fatalf("defuzz = %v, want the active set position 2.5", got)
	}
}

func TestDefuzzFlatZeroIsDegenerate(t *testing.T) {
	v := NewVariable("y", Singleton, dataset.Universe{Min: 0, Max: 1})
	v.AddSet("MF 0", 0.5, 0)
	if _, err := v.Defuzz(DefuzzResolution); !errors.Is(err, ErrDegenerate) {
		t.Fatalf("expected ErrDegenerate, got %v", err)
	}
}

func TestCocoDefuzzGridCentroid(t *testing.T) {
	v := NewVariable("y", Coco, dataset.Universe{Min: 0, Max: 1})
	v.AddSet("MF 0", 0.0, 0)
	v.AddSet("MF 1", 1.0, 1)
	v.Set(1).Eval = 1.0
	got, err := v.Defuzz(DefuzzResolution)
	if err != nil {
		t.Fatalf("defuzz: %v", err)
	}
	// Mass is a ramp rising toward 1; centroid of f(x)=x over [0,1]
	// is 2/3, discretized on the grid.
	if math.Abs(got-2.0/3.0) > 0.01 {
		t.Fatalf("defuzz = %v, want about 2/3", got)
	}
}

func TestMissingValueClearsEval(t *testing.T) {
	v := newInputVar(t, 0.2, 0.8)
	v.Evaluate(0.2)
	v.SetMissing()
	v.ClearEval()
	if !v.Missing() {
		t.Fatal("missing flag not set")
	}
	for i := 0; i < v.SetsCount(); i++ {
		if v.Set(i).Eval != 0 {
			t.Fatalf("set %d eval = %v after clear", i, v.Set(i).Eval)
		}
	}
}

func TestSetIndexByName(t *testing.T) {
	v := newInputVar(t, 0.2, 0.8)
	idx, err := v.SetIndexByName("MF 1")
	if err != nil || idx != 1 {
		t.Fatalf("SetIndexByName = %d, %v", idx, err)
	}
	if _, err := v.SetIndexByName("nope"); err == nil {
		t.Fatal("expected error for unknown set name")
	}
}

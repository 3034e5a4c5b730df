package genome

import (
	"testing"

	"fugo/internal/rng"
)

func mustNew(t *testing.T, length int) *BitGenome {
	t.Helper()
	g, err := New(length)
	if err != nil {
		t.Fatalf("new genome: %v", err)
	}
	return g
}

func TestGetSetFlip(t *testing.T) {
	g := mustNew(t, 130)
	g.Set(0, true)
	g.Set(64, true)
	g.Set(129, true)
	if !g.Get(0) || !g.Get(64) || !g.Get(129) {
		t.Fatal("set bits not readable")
	}
	g.Flip(64)
	if g.Get(64) {
		t.Fatal("flip did not clear bit 64")
	}
	if g.OnesCount() != 2 {
		t.Fatalf("ones count = %d, want 2", g.OnesCount())
	}
}

func TestUintLittleEndian(t *testing.T) {
	g := mustNew(t, 16)
	// Bit offset+k contributes 1<<k: set bits 3 and 5 inside a window
	// starting at 2 -> local bits 1 and 3 -> value 10.
	g.Set(3, true)
	g.Set(5, true)
	if v := g.Uint(2, 4); v != 10 {
		t.Fatalf("Uint(2,4) = %d, want 10", v)
	}
	g.SetUint(8, 5, 21)
	if v := g.Uint(8, 5); v != 21 {
		t.Fatalf("SetUint round-trip = %d, want 21", v)
	}
}

func TestSinglePointCrossoverLaw(t *testing.T) {
	// Parents 0000000011111111 and 1111111100000000, point 8: children
	// must be all zeros and all ones, conserving the total ones count.
	a := mustNew(t, 16)
	b := mustNew(t, 16)
	for i := 8; i < 16; i++ {
		a.Set(i, true)
	}
	for i := 0; i < 8; i++ {
		b.Set(i, true)
	}

	c1, c2, err := SinglePointCrossover(a, b, 8)
	if err != nil {
		t.Fatalf("crossover: %v", err)
	}
	if c1.OnesCount() != 0 {
		t.Fatalf("first child has %d ones, want 0", c1.OnesCount())
	}
	if c2.OnesCount() != 16 {
		t.Fatalf("second child has %d ones, want 16", c2.OnesCount())
	}
	if a.OnesCount()+b.OnesCount() != c1.OnesCount()+c2.OnesCount() {
		t.Fatal("ones count not conserved across crossover")
	}
}

func TestCrossoverConservesOnes(t *testing.T) {
	r := rng.New(5)
	a := mustNew(t, 97)
	b := mustNew(t, 97)
	a.Randomize(r)
	b.Randomize(r)
	parentOnes := a.OnesCount() + b.OnesCount()

	for i := 0; i < 50; i++ {
		c1, c2, err := CrossoverAt(r, a, b)
		if err != nil {
			t.Fatalf("crossover: %v", err)
		}
		if c1.OnesCount()+c2.OnesCount() != parentOnes {
			t.Fatalf("ones count not conserved: parents=%d children=%d", parentOnes, c1.OnesCount()+c2.OnesCount())
		}
	}
}

func TestCrossoverPointBounds(t *testing.T) {
	a := mustNew(t, 8)
	b := mustNew(t, 8)
	if _, _, err := SinglePointCrossover(a, b, 0); err == nil {
		t.Fatal("expected error for point 0")
	}
	if _, _, err := SinglePointCrossover(a, b, 8); err == nil {
		t.Fatal("expected error for point == length")
	}
}

func TestBytesRoundTrip(t *testing.T) {
	r := rng.New(13)
	for _, length := range []int{1, 7, 8, 9, 63, 64, 65, 200} {
		g := mustNew(t, length)
		g.Randomize(r)
		back, err := FromBytes(g.Bytes(), length)
		if err != nil {
			t.Fatalf("length %d: %v", length, err)
		}
		for i := 0; i < length; i++ {
			if g.Get(i) != back.Get(i) {
				t.Fatalf("length %d: bit %d differs after round-trip", length, i)
			}
		}
	}
}

func TestFromBytesLengthMismatch(t *testing.T) {
	if _, err := FromBytes([]byte{0, 0, 0}, 8); err == nil {
		t.Fatal("expected payload length error")
	}
}

func TestMutateFlipProbabilityExtremes(t *testing.T) {
	r := rng.New(17)
	g := mustNew(t, 64)
	g.MutateFlip(r, 0)
	if g.OnesCount() != 0 {
		t.Fatal("p=0 mutated bits")
	}
	g.MutateFlip(r, 1)
	if g.OnesCount() != 64 {
		t.Fatalf("p=1 flipped %d bits, want 64", g.OnesCount())
	}
}

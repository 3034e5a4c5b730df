// Package genome implements the packed bit chromosome shared by both
// coevolving populations and the operators that act on it.
package genome

import (
	"fmt"
	"math/bits"

	"fugo/internal/rng"
)

// BitGenome is a fixed-length bit vector packed into 64-bit words.
// Bit i lives in word i/64 at position i%64.
type BitGenome struct {
	length int
	words  []uint64
}

func New(length int) (*BitGenome, error) {
	if length <= 0 {
		return nil, fmt.Errorf("genome length must be > 0, got %d", length)
	}
	return &BitGenome{
		length: length,
		words:  make([]uint64, (length+63)/64),
	}, nil
}

func (g *BitGenome) Len() int {
	return g.length
}

func (g *BitGenome) Get(i int) bool {
	return g.words[i/64]&(1<<uint(i%64)) != 0
}

func (g *BitGenome) Set(i int, bit bool) {
	if bit {
		g.words[i/64] |= 1 << uint(i%64)
	} else {
		g.words[i/64] &^= 1 << uint(i%64)
	}
}

func (g *BitGenome) Flip(i int) {
	g.words[i/64] ^= 1 << uint(i%64)
}

// Uint decodes nbits bits starting at offset as a little-endian unsigned
// integer: the bit at offset+k contributes 1<<k.
func (g *BitGenome) Uint(offset, nbits int) uint64 {
	var v uint64
	for k := 0; k < nbits; k++ {
		if g.Get(offset + k) {
			v |= 1 << uint(k)
		}
	}
	return v
}

// SetUint writes nbits bits of v starting at offset, little-endian.
func (g *BitGenome) SetUint(offset, nbits int, v uint64) {
	for k := 0; k < nbits; k++ {
		g.Set(offset+k, v&(1<<uint(k)) != 0)
	}
}

// OnesCount returns the number of set bits.
func (g *BitGenome) OnesCount() int {
	n := 0
	for _, w := range g.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Clone returns a deep copy.
func (g *BitGenome) Clone() *BitGenome {
	words := make([]uint64, len(g.words))
	copy(words, g.words)
	return &BitGenome{length: g.length, words: words}
}

// Randomize sets every bit from a fair coin draw.
func (g *BitGenome) Randomize(r *rng.Generator) {
	for i := 0; i < g.length; i++ {
		g.Set(i, r.Int(0, 1) == 1)
	}
}

// MutateFlip flips each bit independently with probability p.
func (g *BitGenome) MutateFlip(r *rng.Generator, p float64) {
	if p <= 0 {
		return
	}
	for i := 0; i < g.length; i++ {
		if r.Real(0, 1) < p {
			g.Flip(i)
		}
	}
}

// SinglePointCrossover cuts both parents at bit index point and swaps
// suffixes, producing two children. The point must lie in [1, len-1] so
// both children receive material from both parents.
func SinglePointCrossover(a, b *BitGenome, point int) (*BitGenome, *BitGenome, error) {
	if a.length != b.length {
		return nil, nil, fmt.Errorf("parent length mismatch: %d vs %d", a.length, b.length)
	}
	if point < 1 || point > a.length-1 {
		return nil, nil, fmt.Errorf("crossover point %d outside [1, %d]", point, a.length-1)
	}
	c1 := a.Clone()
	c2 := b.Clone()
	for i := point; i < a.length; i++ {
		c1.Set(i, b.Get(i))
		c2.Set(i, a.Get(i))
	}
	return c1, c2, nil
}

// CrossoverAt draws a uniform point in [1, len-1] and applies
// SinglePointCrossover.
func CrossoverAt(r *rng.Generator, a, b *BitGenome) (*BitGenome, *BitGenome, error) {
	if a.length < 2 {
		return a.Clone(), b.Clone(), nil
	}
	return SinglePointCrossover(a, b, r.Int(1, a.length-1))
}

// Bytes serializes the genome, least significant byte first. The final
// byte is zero-padded past the genome length.
func (g *BitGenome) Bytes() []byte {
	out := make([]byte, (g.length+7)/8)
	for i := 0; i < g.length; i++ {
		if g.Get(i) {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// FromBytes reconstructs a genome of the given length from Bytes output.
func FromBytes(data []byte, length int) (*BitGenome, error) {
	g, err := New(length)
	if err != nil {
		return nil, err
	}
	if len(data) != (length+7)/8 {
		return nil, fmt.Errorf("genome payload is %d bytes, want %d for length %d", len(data), (length+7)/8, length)
	}
	for i := 0; i < length; i++ {
		if data[i/8]&(1<<uint(i%8)) != 0 {
			g.Set(i, true)
		}
	}
	return g, nil
}

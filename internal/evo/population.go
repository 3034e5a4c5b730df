// Package evo implements the cooperative coevolutionary engine: two
// bit-genome populations that evolve in parallel and are scored by
// composing individuals with the peer population's representatives.
package evo

import (
	"fmt"
	"sort"
	"sync"

	"fugo/internal/genome"
	"fugo/internal/rng"
)

// Population names. Composition order is fixed by identity: the
// memberships genome always comes first when forming a system.
const (
	PopMemberships = "MEMBERSHIPS"
	PopRules       = "RULES"
)

// Individual pairs a genome with its fitness. Individuals are owned by
// exactly one population; elitism and representative exchange move them
// by value copy.
type Individual struct {
	Genome  *genome.BitGenome
	Fitness float64
}

// Clone returns a deep copy.
func (ind *Individual) Clone() *Individual {
	return &Individual{Genome: ind.Genome.Clone(), Fitness: ind.Fitness}
}

// Population is a fixed-size ordered set of individuals plus the
// representatives slot published for the peer population. The mutex
// guards the individuals, the representatives and nothing else; peer
// access is always lock, snapshot, unlock.
type Population struct {
	name string
	size int

	mu              sync.Mutex
	individuals     []*Individual
	representatives []*Individual
}

// NewPopulation creates a population of random genomes of the given
// bit length.
func NewPopulation(name string, size, genomeLen int, r *rng.Generator) (*Population, error) {
	if name == "" {
		return nil, fmt.Errorf("population name is required")
	}
	if size <= 0 {
		return nil, fmt.Errorf("population %s: size must be > 0", name)
	}
	individuals := make([]*Individual, size)
	for i := range individuals {
		g, err := genome.New(genomeLen)
		if err != nil {
			return nil, fmt.Errorf("population %s: %w", name, err)
		}
		g.Randomize(r)
		individuals[i] = &Individual{Genome: g}
	}
	return &Population{name: name, size: size, individuals: individuals}, nil
}

func (p *Population) Name() string { return p.name }
func (p *Population) Size() int    { return p.size }

// Lock takes the population mutex for a breeding pass.
func (p *Population) Lock()   { p.mu.Lock() }
func (p *Population) Unlock() { p.mu.Unlock() }

// Individuals returns the live slice. Callers must hold the lock or be
// the single engine goroutine that owns the population.
func (p *Population) Individuals() []*Individual {
	return p.individuals
}

// SelectElite returns the top-k individuals by fitness without copying
// them. Ties break on insertion index, lower index first.
func (p *Population) SelectElite(k int) []*Individual {
	if k > len(p.individuals) {
		k = len(p.individuals)
	}
	ranked := p.ranked()
	elites := make([]*Individual, k)
	copy(elites, ranked[:k])
	return elites
}

func (p *Population) ranked() []*Individual {
	order := make([]int, len(p.individuals))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return p.individuals[order[a]].Fitness > p.individuals[order[b]].Fitness
	})
	ranked := make([]*Individual, len(order))
	for i, idx := range order {
		ranked[i] = p.individuals[idx]
	}
	return ranked
}

// PublishRepresentatives deep-copies the current top-k individuals into
// the representatives slot under the population lock.
func (p *Population) PublishRepresentatives(k int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	top := p.SelectElite(k)
	reps := make([]*Individual, len(top))
	for i, ind := range top {
		reps[i] = ind.Clone()
	}
	p.representatives = reps
}

// RepresentativesCopy snapshots the published representatives as deep
// copies. The peer engine operates on the snapshot without ever holding
// a live reference into this population.
func (p *Population) RepresentativesCopy() []*Individual {
	p.mu.Lock()
	defer p.mu.Unlock()
	reps := make([]*Individual, len(p.representatives))
	for i, ind := range p.representatives {
		reps[i] = ind.Clone()
	}
	return reps
}

// ReplaceGeneration swaps in the next generation: the elites (copied by
// value) followed by the children. Total size is preserved.
func (p *Population) ReplaceGeneration(elites, children []*Individual) error {
	if len(elites)+len(children) != p.size {
		return fmt.Errorf("population %s: next generation has %d individuals, want %d", p.name, len(elites)+len(children), p.size)
	}
	next := make([]*Individual, 0, p.size)
	for _, ind := range elites {
		next = append(next, ind.Clone())
	}
	next = append(next, children...)
	p.individuals = next
	return nil
}

// Reproduce pairs parents and produces n children: crossover with
// probability pCross (clone otherwise), then per-child mutation with
// probability pMutInd applying an independent per-bit flip pMutBit.
func Reproduce(r *rng.Generator, parents []*Individual, n int, pCross, pMutInd, pMutBit float64) ([]*Individual, error) {
	if len(parents) == 0 {
		return nil, fmt.Errorf("reproduction requires parents")
	}
	children := make([]*Individual, 0, n)
	for i := 0; len(children) < n; i += 2 {
		a := parents[i%len(parents)]
		b := parents[(i+1)%len(parents)]

		var c1, c2 *genome.BitGenome
		if r.Real(0, 1) < pCross {
			var err error
			c1, c2, err = genome.CrossoverAt(r, a.Genome, b.Genome)
			if err != nil {
				return nil, err
			}
		} else {
			c1 = a.Genome.Clone()
			c2 = b.Genome.Clone()
		}

		for _, g := range []*genome.BitGenome{c1, c2} {
			if len(children) >= n {
				break
			}
			if r.Real(0, 1) < pMutInd {
				g.MutateFlip(r, pMutBit)
			}
			children = append(children, &Individual{Genome: g})
		}
	}
	return children, nil
}

// Package stats aggregates per-generation fitness statistics and
// writes run artifacts.
package stats

import (
	"gonum.org/v1/gonum/stat"

	"fugo/internal/model"
)

// Summarize reduces one generation's fitness values to the min, max,
// mean and standard deviation snapshot emitted to the aggregator.
func Summarize(population string, generation int, fitnesses []float64) model.GenerationStats {
	s := model.GenerationStats{
		Population: population,
		Generation: generation,
		Size:       len(fitnesses),
	}
	if len(fitnesses) == 0 {
		return s
	}

	s.MinFitness = fitnesses[0]
	s.MaxFitness = fitnesses[0]
	for _, f := range fitnesses[1:] {
		if f < s.MinFitness {
			s.MinFitness = f
		}
		if f > s.MaxFitness {
			s.MaxFitness = f
		}
	}
	s.MeanFitness = stat.Mean(fitnesses, nil)
	if len(fitnesses) > 1 {
		s.StdDev = stat.StdDev(fitnesses, nil)
	}
	return s
}

// Aggregator collects the stats stream of both populations and tracks
// the best generation fitness seen per population. It is driven by a
// single consumer goroutine and needs no locking.
type Aggregator struct {
	generations []model.GenerationStats
	bestByPop   map[string]float64
}

func NewAggregator() *Aggregator {
	return &Aggregator{bestByPop: make(map[string]float64)}
}

// Add appends one generation snapshot.
func (a *Aggregator) Add(s model.GenerationStats) {
	a.generations = append(a.generations, s)
	if s.MaxFitness > a.bestByPop[s.Population] {
		a.bestByPop[s.Population] = s.MaxFitness
	}
}

// Generations returns the collected snapshots in arrival order.
func (a *Aggregator) Generations() []model.GenerationStats {
	return a.generations
}

// BestFor returns the best generation maximum seen for a population.
func (a *Aggregator) BestFor(population string) float64 {
	return a.bestByPop[population]
}

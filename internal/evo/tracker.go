package evo

import (
	"sync"

	"fugo/internal/fuzzy"
	"fugo/internal/model"
)

// BestRecord is the champion captured at the moment of improvement: the
// decoded system is persisted alongside its fitness so no re-evaluation
// is ever needed to recover it.
type BestRecord struct {
	Fitness float64
	Metrics model.FitnessMetrics
	System  *fuzzy.PersistedSystem
}

// BestTracker holds the global best-so-far system shared by both
// engines. Writes happen only on strict fitness improvement.
type BestTracker struct {
	mu   sync.Mutex
	best BestRecord
	some bool
}

// Observe offers a newly scored system. On strict improvement the
// system is persisted into the record and true is returned.
func (t *BestTracker) Observe(metrics model.FitnessMetrics, sys *fuzzy.System) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.some && metrics.Fitness <= t.best.Fitness {
		return false, nil
	}
	persisted, err := fuzzy.Persist(sys, metrics.Fitness)
	if err != nil {
		return false, err
	}
	t.best = BestRecord{Fitness: metrics.Fitness, Metrics: metrics, System: persisted}
	t.some = true
	return true, nil
}

// Best returns the current champion and whether one exists.
func (t *BestTracker) Best() (BestRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.best, t.some
}

// BestFitness returns the champion fitness, zero when none exists.
func (t *BestTracker) BestFitness() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.some {
		return 0
	}
	return t.best.Fitness
}

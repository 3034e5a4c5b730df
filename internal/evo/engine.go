package evo

import (
	"context"
	"fmt"
	"sync/atomic"

	"fugo/internal/fitness"
	"fugo/internal/fuzzy"
	"fugo/internal/model"
	"fugo/internal/rng"
	"fugo/internal/stats"
)

// State is the lifecycle of one population's evolution loop.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateEvaluating
	StateBreeding
	StateDone
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateEvaluating:
		return "evaluating"
	case StateBreeding:
		return "breeding"
	case StateDone:
		return "done"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// EventKind tags the engine events delivered to the aggregator.
type EventKind int

const (
	EventGeneration EventKind = iota
	EventNewBest
	EventThresholdReached
)

// Event is one engine notification: a generation-complete stats
// snapshot, a new global best, or a fitness-threshold hit.
type Event struct {
	Kind       EventKind
	Population string
	Generation int
	Stats      model.GenerationStats
	Best       BestRecord
}

// EngineConfig wires one population's generational loop.
type EngineConfig struct {
	Population *Population
	Peer       *Population
	Params     model.PopulationParameters
	Selector   Selector
	RNG        *rng.Generator

	// System is the engine-private fuzzy system; engines never share
	// one. Evaluator scores it, Tracker records global champions.
	System    *fuzzy.System
	Evaluator *fitness.Evaluator
	Tracker   *BestTracker

	// MaxFitness raises the termination event once the global best
	// reaches it.
	MaxFitness float64

	// Stop is the shared cancellation flag, polled between individuals
	// and between generations.
	Stop *atomic.Bool

	// Events receives engine notifications; nil disables emission.
	Events chan<- Event
}

// Engine runs the select, reproduce, mutate, evaluate loop of one
// population against the peer's representatives.
type Engine struct {
	cfg   EngineConfig
	state atomic.Int32
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Population == nil || cfg.Peer == nil {
		return nil, fmt.Errorf("both populations are required")
	}
	if cfg.System == nil {
		return nil, fmt.Errorf("a private fuzzy system is required")
	}
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("a fitness evaluator is required")
	}
	if cfg.Tracker == nil {
		return nil, fmt.Errorf("a best tracker is required")
	}
	if cfg.Stop == nil {
		return nil, fmt.Errorf("a stop flag is required")
	}
	if cfg.RNG == nil {
		cfg.RNG = rng.Global()
	}
	if cfg.Selector == nil {
		cfg.Selector = TournamentSelector{}
	}
	name := cfg.Population.Name()
	if name != PopMemberships && name != PopRules {
		return nil, fmt.Errorf("unknown population identity %q", name)
	}
	e := &Engine{cfg: cfg}
	e.state.Store(int32(StateIdle))
	return e, nil
}

func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

// Run drives the loop until the generation budget, the stop flag or a
// context cancellation ends it. The final representatives are published
// in every case.
func (e *Engine) Run(ctx context.Context) error {
	e.setState(StateRunning)
	e.cfg.Population.PublishRepresentatives(e.cfg.Params.Cooperators)

	for gen := 0; gen < e.cfg.Params.MaxGen; gen++ {
		if e.stopped(ctx) {
			e.finish(StateStopped)
			return ctx.Err()
		}

		e.setState(StateEvaluating)
		if err := e.evaluatePopulation(ctx, gen); err != nil {
			e.finish(StateStopped)
			return err
		}
		if e.stopped(ctx) {
			e.finish(StateStopped)
			return ctx.Err()
		}

		e.emitStats(gen)
		e.checkThreshold(gen)

		if e.stopped(ctx) {
			e.finish(StateStopped)
			return ctx.Err()
		}

		// The last generation is not bred: the population ends the run
		// with every individual scored.
		if gen == e.cfg.Params.MaxGen-1 {
			break
		}

		// The Breeding transition consumes the fitness just assigned
		// and republishes representatives for the peer.
		e.setState(StateBreeding)
		if err := e.breed(); err != nil {
			e.finish(StateStopped)
			return err
		}
		e.cfg.Population.PublishRepresentatives(e.cfg.Params.Cooperators)
	}

	if e.cfg.Stop.Load() {
		e.finish(StateStopped)
	} else {
		e.finish(StateDone)
	}
	return nil
}

func (e *Engine) finish(s State) {
	e.cfg.Population.PublishRepresentatives(e.cfg.Params.Cooperators)
	e.setState(s)
}

func (e *Engine) stopped(ctx context.Context) bool {
	return e.cfg.Stop.Load() || ctx.Err() != nil
}

// evaluatePopulation scores every individual against the peer's
// current representative slate and assigns the best pairing's fitness.
func (e *Engine) evaluatePopulation(ctx context.Context, gen int) error {
	reps := e.cfg.Peer.RepresentativesCopy()

	for _, ind := range e.cfg.Population.Individuals() {
		if e.stopped(ctx) {
			return ctx.Err()
		}

		best := 0.0
		for _, rep := range reps {
			metrics, err := e.evaluatePair(ctx, ind, rep)
			if err != nil {
				return err
			}
			if metrics.Fitness > best {
				best = metrics.Fitness
				improved, err := e.cfg.Tracker.Observe(metrics, e.cfg.System)
				if err != nil {
					return err
				}
				if improved {
					e.emit(Event{
						Kind:       EventNewBest,
						Population: e.cfg.Population.Name(),
						Generation: gen,
						Best:       e.currentBest(),
					})
				}
			}
		}
		// With no cooperators available the individual scores zero.
		ind.Fitness = best
	}
	return nil
}

func (e *Engine) evaluatePair(ctx context.Context, own, peer *Individual) (model.FitnessMetrics, error) {
	memberships, rules := own.Genome, peer.Genome
	if e.cfg.Population.Name() == PopRules {
		memberships, rules = peer.Genome, own.Genome
	}
	if err := e.cfg.System.Load(memberships, rules); err != nil {
		return model.FitnessMetrics{}, err
	}
	return e.cfg.Evaluator.Evaluate(ctx, e.cfg.System)
}

func (e *Engine) currentBest() BestRecord {
	best, _ := e.cfg.Tracker.Best()
	return best
}

func (e *Engine) breed() error {
	pop := e.cfg.Population
	pop.Lock()
	defer pop.Unlock()

	elites := pop.SelectElite(e.cfg.Params.EliteSize)
	childCount := pop.Size() - len(elites)
	if childCount == 0 {
		return pop.ReplaceGeneration(elites, nil)
	}

	// Pairing consumes two parents per crossover.
	parentCount := childCount
	if parentCount%2 != 0 {
		parentCount++
	}
	parents, err := e.cfg.Selector.Select(e.cfg.RNG, pop.Individuals(), parentCount)
	if err != nil {
		return err
	}
	children, err := Reproduce(e.cfg.RNG, parents, childCount,
		e.cfg.Params.CxProb, e.cfg.Params.MutFlipInd, e.cfg.Params.MutFlipBit)
	if err != nil {
		return err
	}
	return pop.ReplaceGeneration(elites, children)
}

func (e *Engine) emitStats(gen int) {
	individuals := e.cfg.Population.Individuals()
	fitnesses := make([]float64, len(individuals))
	for i, ind := range individuals {
		fitnesses[i] = ind.Fitness
	}
	e.emit(Event{
		Kind:       EventGeneration,
		Population: e.cfg.Population.Name(),
		Generation: gen,
		Stats:      stats.Summarize(e.cfg.Population.Name(), gen, fitnesses),
	})
}

func (e *Engine) checkThreshold(gen int) {
	if e.cfg.MaxFitness <= 0 {
		return
	}
	if e.cfg.Tracker.BestFitness() >= e.cfg.MaxFitness {
		e.emit(Event{
			Kind:       EventThresholdReached,
			Population: e.cfg.Population.Name(),
			Generation: gen,
			Best:       e.currentBest(),
		})
		e.cfg.Stop.Store(true)
	}
}

func (e *Engine) emit(ev Event) {
	if e.cfg.Events == nil {
		return
	}
	e.cfg.Events <- ev
}

package evo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"fugo/internal/dataset"
	"fugo/internal/fitness"
	"fugo/internal/fuzzy"
	"fugo/internal/model"
	"fugo/internal/rng"
	"fugo/internal/stats"
)

// CoevolutionConfig sets up the two-population run.
type CoevolutionConfig struct {
	Params model.SystemParameters
	Table  *dataset.Table

	// Selectors for each population; tournament by default.
	MembershipsSelector Selector
	RulesSelector       Selector

	RNG *rng.Generator
}

// CoevolutionResult is what a finished run hands back.
type CoevolutionResult struct {
	Best        BestRecord
	Generations []model.GenerationStats
	// Terminated names how the run ended: "completed", "threshold" or
	// "stopped".
	Terminated string
}

// Coevolution owns the two populations, the shared best tracker and
// the stop flag. Each engine runs on its own goroutine with a private
// fuzzy system; the only shared mutable state is lock-guarded.
type Coevolution struct {
	cfg CoevolutionConfig

	memberships *Population
	rules       *Population
	tracker     *BestTracker
	stop        atomic.Bool

	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

func NewCoevolution(cfg CoevolutionConfig) (*Coevolution, error) {
	if cfg.Table == nil {
		return nil, fmt.Errorf("dataset is required")
	}
	cfg.Params.NbInVars = cfg.Table.NbInVars
	cfg.Params.NbOutVars = cfg.Table.NbOutVars
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if cfg.RNG == nil {
		cfg.RNG = rng.Global()
	}
	if cfg.MembershipsSelector == nil {
		cfg.MembershipsSelector = TournamentSelector{}
	}
	if cfg.RulesSelector == nil {
		cfg.RulesSelector = TournamentSelector{}
	}

	memberships, err := NewPopulation(PopMemberships, cfg.Params.Memberships.PopSize, cfg.Params.MembershipsGenomeLen(), cfg.RNG)
	if err != nil {
		return nil, err
	}
	rules, err := NewPopulation(PopRules, cfg.Params.Rules.PopSize, cfg.Params.RulesGenomeLen(), cfg.RNG)
	if err != nil {
		return nil, err
	}

	return &Coevolution{
		cfg:         cfg,
		memberships: memberships,
		rules:       rules,
		tracker:     &BestTracker{},
	}, nil
}

// Tracker exposes the shared champion record.
func (c *Coevolution) Tracker() *BestTracker {
	return c.tracker
}

// Stop requests a cooperative shutdown; engines finish the sample in
// flight, publish final representatives and transition to Stopped.
func (c *Coevolution) Stop() {
	c.stop.Store(true)
	c.cancelMu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancelMu.Unlock()
}

// Run executes both evolution loops to completion and aggregates their
// stats streams. The aggregator drains events on its own goroutine, so
// engine emission never blocks on bookkeeping.
func (c *Coevolution) Run(ctx context.Context) (CoevolutionResult, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancelMu.Lock()
	c.cancel = cancel
	if c.stop.Load() {
		cancel()
	}
	c.cancelMu.Unlock()

	membEngine, err := c.buildEngine(c.memberships, c.rules, c.cfg.Params.Memberships, c.cfg.MembershipsSelector, c.cfg.Params.MaxFitPop1)
	if err != nil {
		return CoevolutionResult{}, err
	}
	rulesEngine, err := c.buildEngine(c.rules, c.memberships, c.cfg.Params.Rules, c.cfg.RulesSelector, c.cfg.Params.MaxFitPop2)
	if err != nil {
		return CoevolutionResult{}, err
	}

	events := make(chan Event, 64)
	membEngine.cfg.Events = events
	rulesEngine.cfg.Events = events

	aggregator := stats.NewAggregator()
	thresholdHit := false
	var aggWG sync.WaitGroup
	aggWG.Add(1)
	go func() {
		defer aggWG.Done()
		for ev := range events {
			switch ev.Kind {
			case EventGeneration:
				aggregator.Add(ev.Stats)
			case EventThresholdReached:
				thresholdHit = true
			}
		}
	}()

	// Both slates exist before either engine starts evaluating, so no
	// first generation is scored against an empty peer.
	c.memberships.PublishRepresentatives(c.cfg.Params.Memberships.Cooperators)
	c.rules.PublishRepresentatives(c.cfg.Params.Rules.Cooperators)

	var engineWG sync.WaitGroup
	engineErrs := make([]error, 2)
	for i, engine := range []*Engine{membEngine, rulesEngine} {
		engineWG.Add(1)
		go func(i int, engine *Engine) {
			defer engineWG.Done()
			engineErrs[i] = engine.Run(runCtx)
		}(i, engine)
	}
	engineWG.Wait()
	close(events)
	aggWG.Wait()

	for _, err := range engineErrs {
		if err != nil && runCtx.Err() == nil {
			return CoevolutionResult{}, err
		}
	}

	result := CoevolutionResult{Generations: aggregator.Generations()}
	if best, ok := c.tracker.Best(); ok {
		result.Best = best
	}
	switch {
	case thresholdHit:
		result.Terminated = "threshold"
	case c.stop.Load() || ctx.Err() != nil:
		result.Terminated = "stopped"
	default:
		result.Terminated = "completed"
	}
	return result, nil
}

func (c *Coevolution) buildEngine(own, peer *Population, params model.PopulationParameters, selector Selector, maxFit float64) (*Engine, error) {
	sys, err := fuzzy.NewSystem(c.cfg.Params, c.cfg.Table)
	if err != nil {
		return nil, err
	}
	return NewEngine(EngineConfig{
		Population: own,
		Peer:       peer,
		Params:     params,
		Selector:   selector,
		RNG:        c.cfg.RNG,
		System:     sys,
		Evaluator:  fitness.New(c.cfg.Params.Weights),
		Tracker:    c.tracker,
		MaxFitness: maxFit,
		Stop:       &c.stop,
	})
}

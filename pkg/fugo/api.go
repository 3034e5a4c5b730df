// Package fugo is the embeddable client facade: open a dataset, run a
// coevolution, persist and reuse the champion fuzzy system.
package fugo

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"fugo/internal/dataset"
	"fugo/internal/evo"
	"fugo/internal/fitness"
	"fugo/internal/fuzzy"
	"fugo/internal/model"
	"fugo/internal/rng"
	"fugo/internal/stats"
	"fugo/internal/storage"
)

const (
	defaultArtifactsDir = "runs"
	defaultDBPath       = "fugo.db"
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
}

type Client struct {
	store        storage.Store
	artifactsDir string
}

// NewClient opens the configured store backend ("memory" by default,
// "sqlite" with -tags sqlite) and prepares the artifacts directory.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}

	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	return &Client{store: store, artifactsDir: artifactsDir}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// RunRequest configures one coevolution run. A zero Params uses the
// defaults; Selection is "tournament" or "roulette".
type RunRequest struct {
	DatasetPath string
	Params      model.SystemParameters
	Selection   string
	Seed        int64
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	BestFitness  float64
	BestMetrics  model.FitnessMetrics
	Terminated   string
	Generations  []model.GenerationStats
	SystemPath   string
}

// Run loads the dataset, evolves the two populations to termination and
// persists the run record, the stats stream and the champion system.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	params := req.Params
	if params.NbRules == 0 {
		params = model.Default()
	}

	table, err := dataset.Load(req.DatasetPath, params.NbOutVars)
	if err != nil {
		return RunSummary{}, fmt.Errorf("load dataset: %w", err)
	}
	if params.DatasetName == "" {
		params.DatasetName = table.Name
	}

	selector, err := buildSelector(req.Selection)
	if err != nil {
		return RunSummary{}, err
	}

	coev, err := evo.NewCoevolution(evo.CoevolutionConfig{
		Params:              params,
		Table:               table,
		MembershipsSelector: selector,
		RulesSelector:       selector,
		RNG:                 rng.New(req.Seed),
	})
	if err != nil {
		return RunSummary{}, err
	}

	result, err := coev.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	runID := uuid.NewString()
	record := model.RunRecord{
		RunID:            runID,
		DatasetName:      params.DatasetName,
		CreatedAtUTC:     time.Now().UTC().Format(time.RFC3339),
		Generations:      params.Memberships.MaxGen,
		PopSizeMembers:   params.Memberships.PopSize,
		PopSizeRules:     params.Rules.PopSize,
		Seed:             req.Seed,
		FinalBestFitness: result.Best.Fitness,
		Terminated:       result.Terminated,
	}

	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveGenerationStats(ctx, runID, result.Generations); err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{
		RunID:       runID,
		BestFitness: result.Best.Fitness,
		BestMetrics: result.Best.Metrics,
		Terminated:  result.Terminated,
		Generations: result.Generations,
	}

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Record:      record,
		Parameters:  params,
		Generations: result.Generations,
		BestMetrics: result.Best.Metrics,
	})
	if err != nil {
		return RunSummary{}, err
	}
	summary.ArtifactsDir = runDir
	if err := stats.AppendRunIndex(c.artifactsDir, record); err != nil {
		return RunSummary{}, err
	}

	if result.Best.System != nil {
		var buf bytes.Buffer
		if err := result.Best.System.EncodeXML(&buf); err != nil {
			return RunSummary{}, err
		}
		if err := c.store.SaveChampion(ctx, runID, buf.Bytes()); err != nil {
			return RunSummary{}, err
		}
		systemPath := filepath.Join(runDir, "system.xml")
		if err := result.Best.System.SaveFile(systemPath); err != nil {
			return RunSummary{}, err
		}
		summary.SystemPath = systemPath
	}

	return summary, nil
}

func buildSelector(name string) (evo.Selector, error) {
	switch name {
	case "", "tournament":
		return evo.TournamentSelector{}, nil
	case "roulette":
		return evo.RouletteSelector{}, nil
	default:
		return nil, fmt.Errorf("unknown selection strategy: %s", name)
	}
}

// Evaluate scores a persisted system against a dataset using the
// weights and thresholds stored with it.
func (c *Client) Evaluate(ctx context.Context, systemPath, datasetPath string) (model.FitnessMetrics, error) {
	doc, err := fuzzy.LoadFile(systemPath)
	if err != nil {
		return model.FitnessMetrics{}, err
	}

	sys, err := rebuildSystem(doc, datasetPath)
	if err != nil {
		return model.FitnessMetrics{}, err
	}
	return fitness.New(sys.Params().Weights).Evaluate(ctx, sys)
}

// Prediction is one sample's outputs: defuzzified values and their
// thresholded classes.
type Prediction struct {
	Sample  int
	Defuzz  []float64
	Classes []float64
}

// Predict runs every dataset sample through a persisted system.
func (c *Client) Predict(ctx context.Context, systemPath, datasetPath string) ([]Prediction, error) {
	doc, err := fuzzy.LoadFile(systemPath)
	if err != nil {
		return nil, err
	}
	sys, err := rebuildSystem(doc, datasetPath)
	if err != nil {
		return nil, err
	}

	out := make([]Prediction, 0, sys.Table().Samples())
	for sample := 0; sample < sys.Table().Samples(); sample++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := sys.EvaluateSample(sample)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", sample, err)
		}
		out = append(out, Prediction{Sample: sample, Defuzz: res.Defuzz, Classes: res.Thresh})
	}
	return out, nil
}

func rebuildSystem(doc *fuzzy.PersistedSystem, datasetPath string) (*fuzzy.System, error) {
	table, err := dataset.Load(datasetPath, len(doc.Variables.Out))
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	base := model.Default()
	return doc.System(base, table)
}

// Runs lists persisted run records, newest first.
func (c *Client) Runs(ctx context.Context, limit int) ([]model.RunRecord, error) {
	return c.store.ListRuns(ctx, limit)
}

// ExportChampion writes a stored champion system XML to path.
func (c *Client) ExportChampion(ctx context.Context, runID, path string) error {
	xmlData, ok, err := c.store.GetChampion(ctx, runID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("run %s has no stored champion", runID)
	}
	doc, err := fuzzy.DecodeXML(bytes.NewReader(xmlData))
	if err != nil {
		return err
	}
	return doc.SaveFile(path)
}

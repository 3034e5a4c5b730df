// Package storage persists coevolution runs: their records, the
// per-generation statistics and the champion fuzzy systems as XML.
package storage

import (
	"context"

	"fugo/internal/model"
)

// Store is the persistence interface behind the client facade. Both
// backends keep runs addressable by run id.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, record model.RunRecord) error
	GetRun(ctx context.Context, runID string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
	SaveGenerationStats(ctx context.Context, runID string, generations []model.GenerationStats) error
	GetGenerationStats(ctx context.Context, runID string) ([]model.GenerationStats, bool, error)
	SaveChampion(ctx context.Context, runID string, systemXML []byte) error
	GetChampion(ctx context.Context, runID string) ([]byte, bool, error)
}

package storage

import (
	"context"
	"sort"
	"sync"

	"fugo/internal/model"
)

// MemoryStore keeps everything in process memory; the default backend
// for tests and one-shot runs.
type MemoryStore struct {
	mu          sync.RWMutex
	runs        map[string]model.RunRecord
	generations map[string][]model.GenerationStats
	champions   map[string][]byte
	order       []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:        make(map[string]model.RunRecord),
		generations: make(map[string][]model.GenerationStats),
		champions:   make(map[string][]byte),
	}
}

func (s *MemoryStore) Init(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) SaveRun(ctx context.Context, record model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[record.RunID]; !exists {
		s.order = append(s.order, record.RunID)
	}
	s.runs[record.RunID] = Stamp(record)
	return nil
}

func (s *MemoryStore) GetRun(ctx context.Context, runID string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.runs[runID]
	return record, ok, nil
}

func (s *MemoryStore) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := append([]string(nil), s.order...)
	sort.SliceStable(ids, func(a, b int) bool {
		return s.runs[ids[a]].CreatedAtUTC > s.runs[ids[b]].CreatedAtUTC
	})
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	out := make([]model.RunRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.runs[id])
	}
	return out, nil
}

func (s *MemoryStore) SaveGenerationStats(ctx context.Context, runID string, generations []model.GenerationStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[runID] = append([]model.GenerationStats(nil), generations...)
	return nil
}

func (s *MemoryStore) GetGenerationStats(ctx context.Context, runID string) ([]model.GenerationStats, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	generations, ok := s.generations[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.GenerationStats(nil), generations...), true, nil
}

func (s *MemoryStore) SaveChampion(ctx context.Context, runID string, systemXML []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.champions[runID] = append([]byte(nil), systemXML...)
	return nil
}

func (s *MemoryStore) GetChampion(ctx context.Context, runID string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	xmlData, ok := s.champions[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), xmlData...), true, nil
}

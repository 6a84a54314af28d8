package memory

import (
	"context"
	"sort"
	"sync"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/storage"
)

// RunSummaryStore is an in-memory implementation of storage.RunSummaryStore.
type RunSummaryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunSummary // keyed by run_id
}

// NewRunSummaryStore creates a new in-memory run summary store.
func NewRunSummaryStore() *RunSummaryStore {
	return &RunSummaryStore{
		data: make(map[string]*domain.RunSummary),
	}
}

// copySummary deep-copies byte payloads so callers cannot mutate stored rows.
func copySummary(s *domain.RunSummary) *domain.RunSummary {
	c := *s
	c.ParamsJSON = append([]byte(nil), s.ParamsJSON...)
	c.Extra = append([]byte(nil), s.Extra...)
	return &c
}

// Insert adds a new summary. Returns ErrDuplicateKey if run_id exists.
func (s *RunSummaryStore) Insert(_ context.Context, r *domain.RunSummary) error {
	if r == nil || r.RunID == "" || r.Kind == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.RunID] = copySummary(r)
	return nil
}

// GetByID retrieves a summary by run ID. Returns ErrNotFound if not exists.
func (s *RunSummaryStore) GetByID(_ context.Context, runID string) (*domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copySummary(r), nil
}

// GetByKind retrieves all summaries of a kind, ordered by created_at ASC, run_id ASC.
func (s *RunSummaryStore) GetByKind(_ context.Context, kind domain.RunKind) ([]*domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RunSummary
	for _, r := range s.data {
		if r.Kind == kind {
			result = append(result, copySummary(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].RunID < result[j].RunID
	})

	return result, nil
}

var _ storage.RunSummaryStore = (*RunSummaryStore)(nil)

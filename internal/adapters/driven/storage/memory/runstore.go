package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore keeps report runs in memory.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*domain.RunSummary
}

// NewRunStore creates an empty run store.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]*domain.RunSummary)}
}

// CreateRun records the start of a run.
func (s *RunStore) CreateRun(_ context.Context, run *domain.RunSummary) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %s: %w", run.ID, domain.ErrAlreadyExists)
	}
	stored := *run
	stored.Results = nil
	s.runs[run.ID] = &stored
	return nil
}

// RecordCustomer stores one customer's outcome, replacing an earlier one.
func (s *RunStore) RecordCustomer(_ context.Context, result domain.CustomerResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[result.RunID]
	if !ok {
		return fmt.Errorf("run %s: %w", result.RunID, domain.ErrNotFound)
	}
	for i := range run.Results {
		if run.Results[i].Customer.ID == result.Customer.ID {
			run.Results[i] = result
			return nil
		}
	}
	run.Results = append(run.Results, result)
	return nil
}

// FinishRun stores the final status and finish time.
func (s *RunStore) FinishRun(_ context.Context, run *domain.RunSummary) error {
	if run == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.runs[run.ID]
	if !ok {
		return fmt.Errorf("run %s: %w", run.ID, domain.ErrNotFound)
	}
	stored.Status = run.Status
	stored.FinishedAt = run.FinishedAt
	return nil
}

// GetRun returns a copy of a run with its customer results.
func (s *RunStore) GetRun(_ context.Context, id string) (*domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	out := *run
	out.Results = append([]domain.CustomerResult(nil), run.Results...)
	return &out, nil
}

// ListRuns returns recent runs, most recent first, without customer results.
func (s *RunStore) ListRuns(_ context.Context, limit int) ([]domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RunSummary, 0, len(s.runs))
	for _, run := range s.runs {
		r := *run
		r.Results = nil
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PruneRuns removes runs started before cutoff.
func (s *RunStore) PruneRuns(_ context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, run := range s.runs {
		if run.StartedAt.Before(cutoff) {
			delete(s.runs, id)
		}
	}
	return nil
}

package storage

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/Epistemic-Technology/vetrecords/models"
)

// MemoryStore keeps results in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
	meta  map[string]models.ExtractionSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string][]byte),
		meta:  make(map[string]models.ExtractionSummary),
	}
}

// results are kept serialized so callers can't mutate stored state
func (s *MemoryStore) SaveExtraction(ctx context.Context, result *models.ExtractionResult) error {
	if result.ID == "" {
		return fmt.Errorf("extraction has no ID")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal extraction: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[result.ID] = payload
	s.meta[result.ID] = result.Summarize()
	return nil
}

func (s *MemoryStore) GetExtraction(ctx context.Context, id string) (*models.ExtractionResult, error) {
	s.mu.RLock()
	payload, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	var result models.ExtractionResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal extraction: %w", err)
	}
	return &result, nil
}

func (s *MemoryStore) ExtractionExists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[id]
	return ok, nil
}

func (s *MemoryStore) ListExtractions(ctx context.Context) ([]models.ExtractionSummary, error) {
	s.mu.RLock()
	out := make([]models.ExtractionSummary, 0, len(s.meta))
	for _, m := range s.meta {
		out = append(out, m)
	}
	s.mu.RUnlock()
	sortSummaries(out)
	return out, nil
}

func (s *MemoryStore) DeleteExtraction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.items, id)
	delete(s.meta, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// sortSummaries orders newest first, then by ID for a stable listing.
func sortSummaries(list []models.ExtractionSummary) {
	slices.SortFunc(list, func(a, b models.ExtractionSummary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

var _ Store = (*MemoryStore)(nil)

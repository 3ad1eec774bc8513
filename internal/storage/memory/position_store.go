package memory

import (
	"context"
	"sort"
	"sync"

	"bot-reconciler/internal/domain"
	"bot-reconciler/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PositionRecord // keyed by position_id
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]*domain.PositionRecord),
	}
}

// Insert adds a new position. Returns ErrDuplicateKey if position_id exists.
func (s *PositionStore) Insert(_ context.Context, p *domain.PositionRecord) error {
	if p == nil || p.PositionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PositionID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *p
	s.data[p.PositionID] = &copy
	return nil
}

// GetByBot retrieves all positions for a bot owned by the given user,
// ordered by closed_at ASC, position_id ASC.
func (s *PositionStore) GetByBot(_ context.Context, botID, userID string) ([]*domain.PositionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PositionRecord
	for _, p := range s.data {
		if p.BotID != botID {
			continue
		}
		if userID != "" && p.UserID != userID {
			continue
		}
		copy := *p
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ClosedAt != result[j].ClosedAt {
			return result[i].ClosedAt < result[j].ClosedAt
		}
		return result[i].PositionID < result[j].PositionID
	})

	return result, nil
}

// Compile-time interface check
var _ storage.PositionStore = (*PositionStore)(nil)

package memory

import (
	"context"
	"sort"
	"sync"

	"bot-reconciler/internal/domain"
	"bot-reconciler/internal/storage"
)

// AggregateSnapshotStore is an in-memory implementation of
// storage.AggregateSnapshotStore.
type AggregateSnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AggregateSnapshot // keyed by snapshot_id
}

// NewAggregateSnapshotStore creates a new in-memory snapshot store.
func NewAggregateSnapshotStore() *AggregateSnapshotStore {
	return &AggregateSnapshotStore{
		data: make(map[string]*domain.AggregateSnapshot),
	}
}

// Insert appends a snapshot row. Returns ErrDuplicateKey if snapshot_id exists.
func (s *AggregateSnapshotStore) Insert(_ context.Context, snap *domain.AggregateSnapshot) error {
	if snap == nil || snap.SnapshotID == "" || snap.BotID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[snap.SnapshotID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *snap
	s.data[snap.SnapshotID] = &copy
	return nil
}

// GetByBot retrieves snapshots for a bot, ordered by taken_at ASC,
// snapshot_id ASC.
func (s *AggregateSnapshotStore) GetByBot(_ context.Context, botID string) ([]*domain.AggregateSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AggregateSnapshot
	for _, snap := range s.data {
		if snap.BotID != botID {
			continue
		}
		copy := *snap
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TakenAt != result[j].TakenAt {
			return result[i].TakenAt < result[j].TakenAt
		}
		return result[i].SnapshotID < result[j].SnapshotID
	})

	return result, nil
}

// Compile-time interface check
var _ storage.AggregateSnapshotStore = (*AggregateSnapshotStore)(nil)

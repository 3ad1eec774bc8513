package memory

import (
	"context"
	"sort"
	"sync"

	"bot-reconciler/internal/domain"
	"bot-reconciler/internal/storage"
)

// PaperTradeStore is an in-memory implementation of storage.PaperTradeStore.
// Paper trades live in their own table, so the store is separate from the
// live TradeStore even though the record shape is the same.
type PaperTradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeRecord // keyed by trade_id
}

// NewPaperTradeStore creates a new in-memory paper trade store.
func NewPaperTradeStore() *PaperTradeStore {
	return &PaperTradeStore{
		data: make(map[string]*domain.TradeRecord),
	}
}

// Insert adds a new paper trade. Returns ErrDuplicateKey if trade_id exists.
func (s *PaperTradeStore) Insert(_ context.Context, t *domain.TradeRecord) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TradeID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[t.TradeID] = &copy
	return nil
}

// GetByBot retrieves all paper trades for a bot owned by the given user,
// ordered by executed_at ASC, trade_id ASC.
func (s *PaperTradeStore) GetByBot(_ context.Context, botID, userID string) ([]*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeRecord
	for _, t := range s.data {
		if t.BotID != botID {
			continue
		}
		if userID != "" && t.UserID != userID {
			continue
		}
		copy := *t
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ExecutedAt != result[j].ExecutedAt {
			return result[i].ExecutedAt < result[j].ExecutedAt
		}
		return result[i].TradeID < result[j].TradeID
	})

	return result, nil
}

// Compile-time interface check
var _ storage.PaperTradeStore = (*PaperTradeStore)(nil)

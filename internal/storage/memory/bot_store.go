package memory

import (
	"context"
	"sync"

	"bot-reconciler/internal/domain"
	"bot-reconciler/internal/storage"
)

// BotStore is an in-memory implementation of storage.BotStore.
type BotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BotAggregate // keyed by bot_id

	// FailUpdate and FailUpdateCore, when non-nil, are returned by the
	// corresponding write method. Used to exercise the driver's write
	// fallback in tests.
	FailUpdate     error
	FailUpdateCore error
}

// NewBotStore creates a new in-memory bot aggregate store.
func NewBotStore() *BotStore {
	return &BotStore{
		data: make(map[string]*domain.BotAggregate),
	}
}

// GetAggregate retrieves the stored aggregate for a bot. Returns ErrNotFound
// if the bot has never been reconciled.
func (s *BotStore) GetAggregate(_ context.Context, botID string) (*domain.BotAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg, exists := s.data[botID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyAggregate(agg), nil
}

// UpdateAggregate replaces the full stored aggregate for a bot.
func (s *BotStore) UpdateAggregate(_ context.Context, agg *domain.BotAggregate) error {
	if agg == nil || agg.BotID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailUpdate != nil {
		return s.FailUpdate
	}

	s.data[agg.BotID] = copyAggregate(agg)
	return nil
}

// UpdateAggregateCore writes only the mandatory column subset, leaving any
// previously stored drawdown fields untouched.
func (s *BotStore) UpdateAggregateCore(_ context.Context, agg *domain.BotAggregate) error {
	if agg == nil || agg.BotID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailUpdateCore != nil {
		return s.FailUpdateCore
	}

	stored, exists := s.data[agg.BotID]
	if !exists {
		stored = &domain.BotAggregate{BotID: agg.BotID}
		s.data[agg.BotID] = stored
	}
	stored.TotalTrades = agg.TotalTrades
	stored.ClosedTrades = agg.ClosedTrades
	stored.WinTrades = agg.WinTrades
	stored.LossTrades = agg.LossTrades
	stored.RealizedPnL = agg.RealizedPnL
	stored.TotalFees = agg.TotalFees
	stored.WinRate = agg.WinRate
	return nil
}

func copyAggregate(agg *domain.BotAggregate) *domain.BotAggregate {
	copy := *agg
	if agg.LastTradeAt != nil {
		t := *agg.LastTradeAt
		copy.LastTradeAt = &t
	}
	if agg.SourceErrors != nil {
		copy.SourceErrors = append([]string(nil), agg.SourceErrors...)
	}
	return &copy
}

// Compile-time interface check
var _ storage.BotStore = (*BotStore)(nil)

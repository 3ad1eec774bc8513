package idhash

import (
	"testing"
)

func TestComputeOutcomeID(t *testing.T) {
	tests := []struct {
		name       string
		botID      string
		source     string
		side       string
		entryPrice float64
		quantity   float64
		executedAt int64
		wantLen    int // hash length should be 64
	}{
		{
			name:       "live trade",
			botID:      "bot-1",
			source:     "LIVE_TRADE",
			side:       "long",
			entryPrice: 104.25,
			quantity:   2,
			executedAt: 1704067234567,
			wantLen:    64,
		},
		{
			name:       "paper trade",
			botID:      "bot-2",
			source:     "PAPER_TRADE",
			side:       "short",
			entryPrice: 50,
			quantity:   0.5,
			executedAt: 1704067300000,
			wantLen:    64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeOutcomeID(tt.botID, tt.source, tt.side, tt.entryPrice, tt.quantity, tt.executedAt)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeOutcomeID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Deterministic: same inputs always produce the same ID.
			again := ComputeOutcomeID(tt.botID, tt.source, tt.side, tt.entryPrice, tt.quantity, tt.executedAt)
			if got != again {
				t.Errorf("ComputeOutcomeID() not deterministic: %s != %s", got, again)
			}
		})
	}
}

func TestComputeOutcomeIDDistinct(t *testing.T) {
	a := ComputeOutcomeID("bot-1", "LIVE_TRADE", "long", 100, 1, 1000)
	b := ComputeOutcomeID("bot-1", "LIVE_TRADE", "long", 100, 1, 2000)
	if a == b {
		t.Errorf("different timestamps produced the same ID: %s", a)
	}

	c := ComputeOutcomeID("bot-1", "PAPER_TRADE", "long", 100, 1, 1000)
	if a == c {
		t.Errorf("different sources produced the same ID: %s", a)
	}
}

package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeOutcomeID computes a deterministic ID for rows stored without one.
// Formula: SHA256(bot_id|source|side|entry_price|quantity|executed_at)
// Returns hex-encoded hash (64 characters).
//
// Stable across recomputes, so deduplication keys for ID-less rows never
// collide on the empty string.
func ComputeOutcomeID(
	botID string,
	source string,
	side string,
	entryPrice float64,
	quantity float64,
	executedAt int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%g|%g|%d",
		botID,
		source,
		side,
		entryPrice,
		quantity,
		executedAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

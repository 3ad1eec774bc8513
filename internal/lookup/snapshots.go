package lookup

import (
	"errors"

	"bot-reconciler/internal/domain"
)

// ErrNoSnapshots is returned when a bot has no snapshot history.
var ErrNoSnapshots = errors.New("no snapshot data available")

// SnapshotAt returns the aggregate snapshot at or before the target
// timestamp. Snapshots must be ordered by taken_at ASC, which is the store
// contract. If no snapshot exists before the target, the earliest one is
// returned. Returns ErrNoSnapshots if the slice is empty.
func SnapshotAt(target int64, snapshots []*domain.AggregateSnapshot) (*domain.AggregateSnapshot, error) {
	if len(snapshots) == 0 {
		return nil, ErrNoSnapshots
	}

	for i := len(snapshots) - 1; i >= 0; i-- {
		if snapshots[i].TakenAt <= target {
			return snapshots[i], nil
		}
	}

	return snapshots[0], nil
}

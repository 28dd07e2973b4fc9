package lifecycle

import (
	"fmt"

	"wastewatch/pkg/types"
)

var workerRules = map[types.WorkerStatus][]types.WorkerStatus{
	types.WorkerStatusPendingApproval: {types.WorkerStatusActive, types.WorkerStatusRejected},
	types.WorkerStatusActive:          {types.WorkerStatusInactive},
	types.WorkerStatusInactive:        {types.WorkerStatusActive},
}

// WorkerSources lists the statuses a worker may move to target from.
func WorkerSources(target types.WorkerStatus) []types.WorkerStatus {
	out := make([]types.WorkerStatus, 0, 2)
	for from, targets := range workerRules {
		for _, t := range targets {
			if t == target {
				out = append(out, from)
			}
		}
	}
	return out
}

// NextWorker validates a worker status change. Rejected is terminal.
func NextWorker(from, to types.WorkerStatus) error {
	for _, allowed := range workerRules[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: worker cannot move from %s to %s", types.ErrInvalidTransition, from, to)
}

// IsAvailable reports whether a worker can receive new assignments.
func IsAvailable(w *types.Worker) bool {
	return w != nil && w.Status == types.WorkerStatusActive
}

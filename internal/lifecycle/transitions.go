// Package lifecycle holds the report lifecycle rules: status transitions, SLA
// computation, worker rewards and round-robin assignment. It performs no I/O.
package lifecycle

import (
	"fmt"

	"wastewatch/pkg/types"
)

type Action string

const (
	ActionReview  Action = "review"
	ActionAssign  Action = "assign"
	ActionAccept  Action = "accept"
	ActionReject  Action = "reject"
	ActionResolve Action = "resolve"
)

// Verifier is the non-human actor behind the completion gate. It is not a
// token role; only the completion flow acts as it.
const RoleVerifier types.Role = "verifier"

type rule struct {
	from  []types.ReportStatus
	to    types.ReportStatus
	actor types.Role
}

// No rule targets closed: nothing in the product moves a report there.
var rules = map[Action]rule{
	ActionReview: {
		from:  []types.ReportStatus{types.ReportStatusSubmitted},
		to:    types.ReportStatusUnderReview,
		actor: types.RoleAuthority,
	},
	ActionAssign: {
		from:  []types.ReportStatus{types.ReportStatusSubmitted, types.ReportStatusUnderReview},
		to:    types.ReportStatusAssigned,
		actor: types.RoleAuthority,
	},
	ActionAccept: {
		from:  []types.ReportStatus{types.ReportStatusAssigned},
		to:    types.ReportStatusInProgress,
		actor: types.RoleWorker,
	},
	ActionReject: {
		from:  []types.ReportStatus{types.ReportStatusAssigned, types.ReportStatusInProgress},
		to:    types.ReportStatusSubmitted,
		actor: types.RoleWorker,
	},
	ActionResolve: {
		from:  []types.ReportStatus{types.ReportStatusInProgress},
		to:    types.ReportStatusResolved,
		actor: RoleVerifier,
	},
}

// Next returns the status a report moves to when action is applied in from.
func Next(from types.ReportStatus, action Action) (types.ReportStatus, error) {
	r, ok := rules[action]
	if !ok {
		return "", fmt.Errorf("%w: unknown action %q", types.ErrInvalidTransition, action)
	}

	for _, allowed := range r.from {
		if allowed == from {
			return r.to, nil
		}
	}

	return "", fmt.Errorf("%w: cannot %s a report that is %s", types.ErrInvalidTransition, action, from)
}

// Sources lists the statuses action may be applied in. The store uses it as
// the guard of its conditional update.
func Sources(action Action) []types.ReportStatus {
	r, ok := rules[action]
	if !ok {
		return nil
	}
	out := make([]types.ReportStatus, len(r.from))
	copy(out, r.from)
	return out
}

// Permits reports whether role may trigger action.
func Permits(role types.Role, action Action) bool {
	r, ok := rules[action]
	return ok && r.actor == role
}

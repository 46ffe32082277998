package chore

import "github.com/mhutchens/chorebank/internal/model"

// State is the observable position of an assignment record in its current
// cycle. Disabled is not a record state; it is a template flag checked when
// completing.
type State string

const (
	StateAvailable       State = "available"
	StatePendingApproval State = "pending_approval"
	StateApproved        State = "approved"
)

// RecordState derives the cycle state from the record's flags.
func RecordState(a *model.Assignment) State {
	switch {
	case a.Approved:
		return StateApproved
	case a.Completed:
		return StatePendingApproval
	default:
		return StateAvailable
	}
}

package workflow

import "github.com/garyjia/asset-registry/internal/domain/entity"

// State represents an asset approval state
type State string

const (
	StatePending               State = entity.StatusPending
	StatePendingMinistryReview State = entity.StatusPendingMinistryReview
	StateApproved              State = entity.StatusApproved
	StateRejected              State = entity.StatusRejected
)

var validStates = map[State]bool{
	StatePending:               true,
	StatePendingMinistryReview: true,
	StateApproved:              true,
	StateRejected:              true,
}

// Rejected is terminal for reviewers but the uploader may resubmit from it
var terminalStates = map[State]bool{
	StateApproved: true,
	StateRejected: true,
}

// IsTerminal returns true if no reviewer transition leaves the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}

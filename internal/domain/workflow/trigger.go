package workflow

import "github.com/garyjia/asset-registry/internal/domain/entity"

// Trigger represents an actor action that can cause a state transition
type Trigger string

const (
	TriggerApprove  Trigger = entity.ActionApprove
	TriggerReject   Trigger = entity.ActionReject
	TriggerResubmit Trigger = entity.ActionResubmit
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// IsValid returns true for known triggers
func (t Trigger) IsValid() bool {
	switch t {
	case TriggerApprove, TriggerReject, TriggerResubmit:
		return true
	default:
		return false
	}
}

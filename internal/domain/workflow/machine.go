package workflow

import (
	"context"

	"github.com/garyjia/asset-registry/internal/domain/entity"
)

// StateMachine tracks the current state of one record and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if actor may fire the trigger in the current state
	CanFire(trigger Trigger, actor entity.Actor) bool

	// Fire attempts to execute the trigger on behalf of actor
	Fire(ctx context.Context, trigger Trigger, actor entity.Actor) error

	// PermittedTriggers returns all triggers configured for the current state
	PermittedTriggers() []Trigger
}

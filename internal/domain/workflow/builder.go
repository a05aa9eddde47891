package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/asset-registry/internal/domain/entity"
)

// GuardFunc is a function that evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// AuthFunc decides whether an actor may fire a trigger, beyond its role
type AuthFunc func(actor entity.Actor) bool

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given state
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state
	Build(initialState State) StateMachine
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration interface {
	// Permit allows a trigger to transition to the target state
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitIf allows a trigger to transition to the target state if the guard condition passes
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration

	// Authorize restricts the trigger in this state to actors holding one of roles
	Authorize(trigger Trigger, roles ...string) StateConfiguration

	// AuthorizeIf adds an identity check for the trigger in this state
	AuthorizeIf(trigger Trigger, check AuthFunc) StateConfiguration
}

// transition represents a state transition with optional guard
type transition struct {
	toState State
	guard   GuardFunc
}

// stateConfig implements StateConfiguration
type stateConfig struct {
	fromState   State
	transitions map[Trigger][]transition
	roles       map[Trigger][]string
	checks      map[Trigger][]AuthFunc
}

// stateMachineBuilder implements StateMachineBuilder
type stateMachineBuilder struct {
	configurations map[State]*stateConfig
}

// stateMachine implements StateMachine
type stateMachine struct {
	currentState   State
	configurations map[State]*stateConfig
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configurations: make(map[State]*stateConfig),
	}
}

// Configure returns a state configuration for the given state
func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = newStateConfig(state)
		b.configurations[state] = config
	}

	return config
}

// Build creates a new state machine instance with the given initial state
func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	// Deep copy configurations so later Configure calls don't leak into built machines
	configsCopy := make(map[State]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		c := newStateConfig(state)
		for trigger, transitions := range config.transitions {
			c.transitions[trigger] = append([]transition{}, transitions...)
		}
		for trigger, roles := range config.roles {
			c.roles[trigger] = append([]string{}, roles...)
		}
		for trigger, checks := range config.checks {
			c.checks[trigger] = append([]AuthFunc{}, checks...)
		}
		configsCopy[state] = c
	}

	return &stateMachine{
		currentState:   initialState,
		configurations: configsCopy,
	}
}

func newStateConfig(state State) *stateConfig {
	return &stateConfig{
		fromState:   state,
		transitions: make(map[Trigger][]transition),
		roles:       make(map[Trigger][]string),
		checks:      make(map[Trigger][]AuthFunc),
	}
}

// Permit allows a trigger to transition to the target state
func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

// PermitIf allows a trigger to transition to the target state if the guard condition passes
func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}

	c.transitions[trigger] = append(c.transitions[trigger], transition{
		toState: toState,
		guard:   guard,
	})

	return c
}

// Authorize restricts the trigger to the given roles in this state
func (c *stateConfig) Authorize(trigger Trigger, roles ...string) StateConfiguration {
	c.roles[trigger] = append(c.roles[trigger], roles...)
	return c
}

// AuthorizeIf adds an identity check for the trigger in this state
func (c *stateConfig) AuthorizeIf(trigger Trigger, check AuthFunc) StateConfiguration {
	if check == nil {
		panic("nil auth check")
	}
	c.checks[trigger] = append(c.checks[trigger], check)
	return c
}

// allows reports whether actor passes the role list and identity checks for trigger
func (c *stateConfig) allows(trigger Trigger, actor entity.Actor) bool {
	if roles := c.roles[trigger]; len(roles) > 0 && !containsRole(roles, actor.Role) {
		return false
	}
	for _, check := range c.checks[trigger] {
		if !check(actor) {
			return false
		}
	}
	return true
}

// State returns the current state
func (m *stateMachine) State() State {
	return m.currentState
}

// CanFire returns true if actor may fire the trigger in the current state
func (m *stateMachine) CanFire(trigger Trigger, actor entity.Actor) bool {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return false
	}

	transitions, exists := config.transitions[trigger]
	if !exists || len(transitions) == 0 {
		return false
	}

	// Guards need a context, so only authorization is evaluated here
	return config.allows(trigger, actor)
}

// Fire attempts to execute the trigger, transitioning to the new state if allowed.
// An actor whose role can never fire the trigger gets ErrUnauthorized even when
// the current state has no such transition.
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger, actor entity.Actor) error {
	config, exists := m.configurations[m.currentState]
	var transitions []transition
	if exists {
		transitions = config.transitions[trigger]
	}

	if len(transitions) == 0 {
		if !m.roleEverPermitted(trigger, actor.Role) {
			return fmt.Errorf("%w: role %q cannot fire %s", ErrUnauthorized, actor.Role, trigger)
		}
		return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.currentState)
	}

	if !config.allows(trigger, actor) {
		return fmt.Errorf("%w: actor %s (%s) cannot fire %s from state %s", ErrUnauthorized, actor.ID, actor.Role, trigger, m.currentState)
	}

	// Try each transition in order until one succeeds
	for _, t := range transitions {
		if t.guard == nil || t.guard(ctx) {
			m.currentState = t.toState
			return nil
		}
	}

	// All guards failed
	return fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, m.currentState)
}

// PermittedTriggers returns all triggers that can be fired in the current state
func (m *stateMachine) PermittedTriggers() []Trigger {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(config.transitions))
	for trigger := range config.transitions {
		triggers = append(triggers, trigger)
	}

	return triggers
}

// roleEverPermitted reports whether any configured state lets role fire trigger.
// A trigger that is not configured anywhere counts as permitted so the caller
// reports it as an invalid transition instead.
func (m *stateMachine) roleEverPermitted(trigger Trigger, role string) bool {
	seen := false
	for _, config := range m.configurations {
		if len(config.transitions[trigger]) == 0 {
			continue
		}
		seen = true
		roles := config.roles[trigger]
		if len(roles) == 0 || containsRole(roles, role) {
			return true
		}
	}
	return !seen
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

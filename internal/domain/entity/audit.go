package entity

import "time"

// AuditEvent is an immutable record of a single attributable action
type AuditEvent struct {
	ID         string            `json:"id"`
	ActorID    string            `json:"actor_id"`
	ActorRole  string            `json:"actor_role"`
	Action     string            `json:"action"`
	ResourceID string            `json:"resource_id"`
	FromState  string            `json:"from_state"`
	ToState    string            `json:"to_state"`
	Timestamp  time.Time         `json:"timestamp"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

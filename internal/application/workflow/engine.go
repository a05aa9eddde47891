package workflow

import (
	"context"

	"github.com/garyjia/asset-registry/internal/domain/entity"
)

// ApprovalStateMachine applies reviewer and uploader actions to asset records
type ApprovalStateMachine interface {
	// ApplyTransition validates and persists one action on one record
	ApplyTransition(ctx context.Context, recordID, actorID, actorRole, action string, payload *Payload) (*entity.AssetRecord, error)

	// BulkApprove approves each record independently and never aborts the batch.
	// Results are returned in input order.
	BulkApprove(ctx context.Context, recordIDs []string, actorID, actorRole string) []BulkResult

	// ResubmitWithEdit applies edit to a rejected record and resubmits it in a
	// single write. edit runs only after the actor is authorized.
	ResubmitWithEdit(ctx context.Context, recordID string, actor entity.Actor, edit func(*entity.AssetRecord) error) (*entity.AssetRecord, error)

	// PermittedActions lists the actions actor may attempt on rec in its current state
	PermittedActions(rec *entity.AssetRecord, actor entity.Actor) ([]string, error)
}

// Payload carries action-specific input
type Payload struct {
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// BulkResult is the outcome for one record of a bulk approval
type BulkResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   error  `json:"-"`
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

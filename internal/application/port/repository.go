package port

import (
	"context"

	"github.com/garyjia/asset-registry/internal/domain/entity"
)

// PersistenceGateway is the minimal read/write contract the approval state
// machine depends on.
type PersistenceGateway interface {
	// GetByID returns the current record or an apperr NotFound error
	GetByID(ctx context.Context, id string) (*entity.AssetRecord, error)

	// CompareAndSet replaces the stored record with next only if its status
	// still equals expectedStatus and its version equals next.Version-1.
	// A mismatch yields an apperr Conflict error and nothing is written.
	CompareAndSet(ctx context.Context, id string, expectedStatus string, next *entity.AssetRecord) error
}

// AssetRepository defines persistence operations for AssetRecord
type AssetRepository interface {
	PersistenceGateway

	Create(ctx context.Context, asset *entity.AssetRecord) error
	List(ctx context.Context, filter entity.AssetFilter) ([]*entity.AssetRecord, error)
	Summary(ctx context.Context, filter entity.AssetFilter) (*entity.AssetSummary, error)
}

// MinistryRepository defines persistence operations for Ministry.
// Get returns (nil, nil) when the ministry is unknown.
type MinistryRepository interface {
	Get(ctx context.Context, id string) (*entity.Ministry, error)
	Upsert(ctx context.Context, ministry *entity.Ministry) error
	List(ctx context.Context) ([]*entity.Ministry, error)
}

// AuditRepository defines persistence operations for AuditEvent
type AuditRepository interface {
	Create(ctx context.Context, evt *entity.AuditEvent) error
	ListByResource(ctx context.Context, resourceID string, limit int) ([]*entity.AuditEvent, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

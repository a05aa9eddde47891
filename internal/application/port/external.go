package port

import (
	"context"

	"github.com/garyjia/asset-registry/internal/domain/entity"
)

// AuditRecorder receives one event per successful action. Recording is
// best-effort: implementations log their own failures and never return them.
type AuditRecorder interface {
	Record(ctx context.Context, evt entity.AuditEvent)
}

// CategoryCatalog supplies attribute schemas per asset category
type CategoryCatalog interface {
	Get(name string) (*entity.Category, bool)
	List() []entity.Category
}

// TransitionMetrics observes workflow outcomes
type TransitionMetrics interface {
	ObserveTransition(action, outcome string)
}

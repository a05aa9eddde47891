package service

import (
	"context"
	"time"

	"github.com/garyjia/asset-registry/internal/application/port"
	"github.com/garyjia/asset-registry/internal/domain/entity"
	"github.com/google/uuid"
)

// auditRecorder persists audit events without ever failing the caller
type auditRecorder struct {
	auditRepo port.AuditRepository
	logger    Logger
}

// NewAuditRecorder creates a best-effort AuditRecorder backed by auditRepo
func NewAuditRecorder(auditRepo port.AuditRepository, logger Logger) port.AuditRecorder {
	return &auditRecorder{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Record stores evt, logging instead of returning any failure
func (r *auditRecorder) Record(ctx context.Context, evt entity.AuditEvent) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Audit recorder panic recovered",
				"panic", p,
				"resource_id", evt.ResourceID,
				"action", evt.Action,
			)
		}
	}()

	if err := r.auditRepo.Create(ctx, &evt); err != nil {
		r.logger.Error("Failed to record audit event",
			"error", err,
			"resource_id", evt.ResourceID,
			"action", evt.Action,
			"actor_id", evt.ActorID,
		)
	}
}

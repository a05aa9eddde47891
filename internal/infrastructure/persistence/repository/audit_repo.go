package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/garyjia/asset-registry/internal/application/port"
	"github.com/garyjia/asset-registry/internal/domain/entity"
	"github.com/garyjia/asset-registry/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// AuditRepository implements port.AuditRepository
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends an audit event
func (r *AuditRepository) Create(ctx context.Context, evt *entity.AuditEvent) error {
	metadata := "{}"
	if len(evt.Metadata) > 0 {
		data, err := json.Marshal(evt.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode audit metadata: %w", err)
		}
		metadata = string(data)
	}

	query := `
		INSERT INTO audit_events (
			id, actor_id, actor_role, action, resource_id,
			from_state, to_state, timestamp, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		evt.ID,
		evt.ActorID,
		evt.ActorRole,
		evt.Action,
		evt.ResourceID,
		evt.FromState,
		evt.ToState,
		evt.Timestamp.UTC(),
		metadata,
	)
	if err != nil {
		r.logger.Error("Failed to create audit event",
			zap.String("resource_id", evt.ResourceID),
			zap.String("action", evt.Action),
			zap.Error(err))
		return fmt.Errorf("failed to create audit event: %w", err)
	}

	return nil
}

// ListByResource returns up to limit events for a resource, newest first
func (r *AuditRepository) ListByResource(ctx context.Context, resourceID string, limit int) ([]*entity.AuditEvent, error) {
	query := `
		SELECT id, actor_id, actor_role, action, resource_id,
			from_state, to_state, timestamp, metadata
		FROM audit_events
		WHERE resource_id = ?
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, resourceID, limit)
	if err != nil {
		r.logger.Error("Failed to list audit events", zap.String("resource_id", resourceID), zap.Error(err))
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*entity.AuditEvent
	for rows.Next() {
		var evt entity.AuditEvent
		var metadata string
		if err := rows.Scan(
			&evt.ID,
			&evt.ActorID,
			&evt.ActorRole,
			&evt.Action,
			&evt.ResourceID,
			&evt.FromState,
			&evt.ToState,
			&evt.Timestamp,
			&metadata,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if metadata != "" && metadata != "{}" {
			if err := json.Unmarshal([]byte(metadata), &evt.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode audit metadata %s: %w", evt.ID, err)
			}
		}
		events = append(events, &evt)
	}

	return events, rows.Err()
}

// Verify interface compliance
var _ port.AuditRepository = (*AuditRepository)(nil)

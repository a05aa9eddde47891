package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/asset-registry/internal/application/port"
	"github.com/garyjia/asset-registry/internal/domain/entity"
	"github.com/garyjia/asset-registry/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// MinistryRepository implements port.MinistryRepository
type MinistryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMinistryRepository creates a new ministry repository
func NewMinistryRepository(db *sql.DB, logger *zap.Logger) *MinistryRepository {
	return &MinistryRepository{
		db:     db,
		logger: logger,
	}
}

// Get returns the ministry or nil when it is not configured
func (r *MinistryRepository) Get(ctx context.Context, id string) (*entity.Ministry, error) {
	query := `SELECT id, name, requires_ministry_review, updated_at FROM ministries WHERE id = ?`

	var m entity.Ministry
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&m.ID,
		&m.Name,
		&m.RequiresMinistryReview,
		&m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get ministry", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get ministry: %w", err)
	}

	return &m, nil
}

// Upsert creates or replaces a ministry
func (r *MinistryRepository) Upsert(ctx context.Context, ministry *entity.Ministry) error {
	query := `
		INSERT INTO ministries (id, name, requires_ministry_review, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			requires_ministry_review = excluded.requires_ministry_review,
			updated_at = excluded.updated_at
	`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		ministry.ID,
		ministry.Name,
		ministry.RequiresMinistryReview,
		ministry.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to upsert ministry", zap.String("id", ministry.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert ministry: %w", err)
	}

	return nil
}

// List returns all ministries ordered by id
func (r *MinistryRepository) List(ctx context.Context) ([]*entity.Ministry, error) {
	query := `SELECT id, name, requires_ministry_review, updated_at FROM ministries ORDER BY id`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list ministries", zap.Error(err))
		return nil, fmt.Errorf("failed to list ministries: %w", err)
	}
	defer rows.Close()

	var ministries []*entity.Ministry
	for rows.Next() {
		var m entity.Ministry
		if err := rows.Scan(&m.ID, &m.Name, &m.RequiresMinistryReview, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ministry: %w", err)
		}
		ministries = append(ministries, &m)
	}

	return ministries, rows.Err()
}

// Verify interface compliance
var _ port.MinistryRepository = (*MinistryRepository)(nil)

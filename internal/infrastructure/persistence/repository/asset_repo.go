package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/asset-registry/internal/application/port"
	"github.com/garyjia/asset-registry/internal/domain/apperr"
	"github.com/garyjia/asset-registry/internal/domain/entity"
	"github.com/garyjia/asset-registry/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const assetColumns = `
	id, status, uploaded_by, ministry_id, agency_id, category, description,
	cost_cents, location, attributes,
	approved_by, approved_at, approved_by_ministry, approved_by_ministry_at,
	rejected_by, rejected_at, rejection_reason, rejection_level,
	version, created_at, updated_at`

// AssetRepository implements port.AssetRepository on SQLite
type AssetRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *sql.DB, logger *zap.Logger) *AssetRepository {
	return &AssetRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new asset record
func (r *AssetRepository) Create(ctx context.Context, asset *entity.AssetRecord) error {
	attrs, err := marshalAttributes(asset.Attributes)
	if err != nil {
		return err
	}

	query := `INSERT INTO assets (` + assetColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		asset.ID,
		asset.Status,
		asset.UploadedBy,
		asset.MinistryID,
		asset.AgencyID,
		asset.Category,
		asset.Description,
		asset.CostCents,
		asset.Location,
		attrs,
		asset.ApprovedBy,
		nullTime(asset.ApprovedAt),
		asset.ApprovedByMinistry,
		nullTime(asset.ApprovedByMinistryAt),
		asset.RejectedBy,
		nullTime(asset.RejectedAt),
		asset.RejectionReason,
		asset.RejectionLevel,
		asset.Version,
		asset.CreatedAt.UTC(),
		asset.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create asset", zap.String("id", asset.ID), zap.Error(err))
		return fmt.Errorf("failed to create asset: %w", err)
	}

	return nil
}

// GetByID returns the asset or an apperr NotFound error
func (r *AssetRepository) GetByID(ctx context.Context, id string) (*entity.AssetRecord, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = ?`

	asset, err := scanAsset(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("asset %s not found", id)
	}
	if err != nil {
		r.logger.Error("Failed to get asset by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	return asset, nil
}

// CompareAndSet writes next only if the stored status equals expectedStatus
// and the stored version equals next.Version-1
func (r *AssetRepository) CompareAndSet(ctx context.Context, id string, expectedStatus string, next *entity.AssetRecord) error {
	attrs, err := marshalAttributes(next.Attributes)
	if err != nil {
		return err
	}

	query := `
		UPDATE assets SET
			status = ?, category = ?, description = ?, cost_cents = ?, location = ?, attributes = ?,
			approved_by = ?, approved_at = ?, approved_by_ministry = ?, approved_by_ministry_at = ?,
			rejected_by = ?, rejected_at = ?, rejection_reason = ?, rejection_level = ?,
			version = ?, updated_at = ?
		WHERE id = ? AND status = ? AND version = ?
	`

	exec := sqlite.ExecutorFor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query,
		next.Status,
		next.Category,
		next.Description,
		next.CostCents,
		next.Location,
		attrs,
		next.ApprovedBy,
		nullTime(next.ApprovedAt),
		next.ApprovedByMinistry,
		nullTime(next.ApprovedByMinistryAt),
		next.RejectedBy,
		nullTime(next.RejectedAt),
		next.RejectionReason,
		next.RejectionLevel,
		next.Version,
		next.UpdatedAt.UTC(),
		id,
		expectedStatus,
		next.Version-1,
	)
	if err != nil {
		r.logger.Error("Failed to compare-and-set asset", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update asset: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// Nothing matched: tell a missing record apart from a stale write
	var status string
	var version int64
	err = exec.QueryRowContext(ctx, `SELECT status, version FROM assets WHERE id = ?`, id).Scan(&status, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("asset %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to read asset after conflict: %w", err)
	}

	r.logger.Info("Asset compare-and-set conflict",
		zap.String("id", id),
		zap.String("expected_status", expectedStatus),
		zap.Int64("expected_version", next.Version-1),
		zap.String("actual_status", status),
		zap.Int64("actual_version", version),
	)
	return apperr.Conflict(fmt.Errorf("asset %s is %s at version %d, expected %s at version %d",
		id, status, version, expectedStatus, next.Version-1))
}

// List returns assets matching filter ordered by creation time
func (r *AssetRepository) List(ctx context.Context, filter entity.AssetFilter) ([]*entity.AssetRecord, error) {
	where, args := filterClause(filter)
	query := `SELECT ` + assetColumns + ` FROM assets` + where + ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list assets", zap.Error(err))
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []*entity.AssetRecord
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}

	return assets, rows.Err()
}

// Summary aggregates counts by status and ministry plus total approved cost
func (r *AssetRepository) Summary(ctx context.Context, filter entity.AssetFilter) (*entity.AssetSummary, error) {
	where, args := filterClause(filter)
	query := `
		SELECT status, ministry_id, COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'approved' THEN cost_cents ELSE 0 END), 0)
		FROM assets` + where + `
		GROUP BY status, ministry_id`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to summarise assets", zap.Error(err))
		return nil, fmt.Errorf("failed to summarise assets: %w", err)
	}
	defer rows.Close()

	summary := &entity.AssetSummary{
		ByStatus:   make(map[string]int),
		ByMinistry: make(map[string]int),
	}
	for rows.Next() {
		var status, ministry string
		var count int
		var approvedCost int64
		if err := rows.Scan(&status, &ministry, &count, &approvedCost); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		summary.Total += count
		summary.ByStatus[status] += count
		summary.ByMinistry[ministry] += count
		summary.ApprovedCostCents += approvedCost
	}

	return summary, rows.Err()
}

func filterClause(filter entity.AssetFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(column, value string) {
		if value != "" {
			conds = append(conds, column+" = ?")
			args = append(args, value)
		}
	}
	add("status", filter.Status)
	add("ministry_id", filter.MinistryID)
	add("agency_id", filter.AgencyID)
	add("uploaded_by", filter.UploadedBy)
	add("category", filter.Category)

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(row rowScanner) (*entity.AssetRecord, error) {
	var asset entity.AssetRecord
	var attrs string
	var approvedAt, approvedByMinistryAt, rejectedAt sql.NullTime

	err := row.Scan(
		&asset.ID,
		&asset.Status,
		&asset.UploadedBy,
		&asset.MinistryID,
		&asset.AgencyID,
		&asset.Category,
		&asset.Description,
		&asset.CostCents,
		&asset.Location,
		&attrs,
		&asset.ApprovedBy,
		&approvedAt,
		&asset.ApprovedByMinistry,
		&approvedByMinistryAt,
		&asset.RejectedBy,
		&rejectedAt,
		&asset.RejectionReason,
		&asset.RejectionLevel,
		&asset.Version,
		&asset.CreatedAt,
		&asset.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if attrs != "" && attrs != "{}" {
		if err := json.Unmarshal([]byte(attrs), &asset.Attributes); err != nil {
			return nil, fmt.Errorf("failed to decode attributes of asset %s: %w", asset.ID, err)
		}
	}
	asset.ApprovedAt = timePtr(approvedAt)
	asset.ApprovedByMinistryAt = timePtr(approvedByMinistryAt)
	asset.RejectedAt = timePtr(rejectedAt)

	return &asset, nil
}

func marshalAttributes(attrs map[string]interface{}) (string, error) {
	if len(attrs) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("failed to encode attributes: %w", err)
	}
	return string(data), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// Verify interface compliance
var _ port.AssetRepository = (*AssetRepository)(nil)

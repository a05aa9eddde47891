package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/garyjia/asset-registry/internal/domain/apperr"
	"github.com/garyjia/asset-registry/internal/domain/entity"
	"github.com/garyjia/asset-registry/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/asset-registry/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var baseTime = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "test.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = database.NewMigrator(db, zap.NewNop()).Up()
	require.NoError(t, err)

	return db.DB
}

func newAsset(id string) *entity.AssetRecord {
	return &entity.AssetRecord{
		ID:          id,
		Status:      entity.StatusPending,
		UploadedBy:  "U1",
		MinistryID:  "M-HEALTH",
		AgencyID:    "A-CLINICS",
		Category:    "vehicle",
		Description: "Ambulance",
		CostCents:   8500000,
		Location:    "Depot 4",
		Attributes:  map[string]interface{}{"plate_number": "GOV-001", "year": float64(2024)},
		Version:     1,
		CreatedAt:   baseTime,
		UpdatedAt:   baseTime,
	}
}

func TestAssetRepository_CreateAndGet(t *testing.T) {
	repo := NewAssetRepository(setupTestDB(t), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newAsset("a-1")))

	got, err := repo.GetByID(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, got.Status)
	assert.Equal(t, "U1", got.UploadedBy)
	assert.Equal(t, int64(8500000), got.CostCents)
	assert.Equal(t, "GOV-001", got.Attributes["plate_number"])
	assert.Equal(t, float64(2024), got.Attributes["year"])
	assert.Equal(t, int64(1), got.Version)
	assert.True(t, baseTime.Equal(got.CreatedAt))
	assert.Nil(t, got.ApprovedAt)
	assert.Nil(t, got.RejectedAt)
}

func TestAssetRepository_GetByIDNotFound(t *testing.T) {
	repo := NewAssetRepository(setupTestDB(t), zap.NewNop())

	got, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestAssetRepository_CreateDuplicateFails(t *testing.T) {
	repo := NewAssetRepository(setupTestDB(t), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newAsset("a-1")))
	assert.Error(t, repo.Create(ctx, newAsset("a-1")))
}

func TestAssetRepository_CompareAndSet(t *testing.T) {
	repo := NewAssetRepository(setupTestDB(t), zap.NewNop())
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newAsset("a-1")))

	approvedAt := baseTime.Add(time.Hour)
	next := newAsset("a-1")
	next.Status = entity.StatusApproved
	next.ApprovedBy = "A1"
	next.ApprovedAt = &approvedAt
	next.Version = 2
	next.UpdatedAt = approvedAt

	require.NoError(t, repo.CompareAndSet(ctx, "a-1", entity.StatusPending, next))

	got, err := repo.GetByID(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, got.Status)
	assert.Equal(t, "A1", got.ApprovedBy)
	require.NotNil(t, got.ApprovedAt)
	assert.True(t, approvedAt.Equal(*got.ApprovedAt))
	assert.Equal(t, int64(2), got.Version)

	// Replaying the same write loses: status and version have moved on
	err = repo.CompareAndSet(ctx, "a-1", entity.StatusPending, next)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestAssetRepository_CompareAndSetDetectsABA(t *testing.T) {
	repo := NewAssetRepository(setupTestDB(t), zap.NewNop())
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newAsset("a-1")))

	stale, err := repo.GetByID(ctx, "a-1")
	require.NoError(t, err)

	// pending -> rejected -> pending behind the stale reader's back
	rejected := stale.Clone()
	rejected.Status = entity.StatusRejected
	rejected.Version = 2
	require.NoError(t, repo.CompareAndSet(ctx, "a-1", entity.StatusPending, rejected))

	resubmitted := rejected.Clone()
	resubmitted.Status = entity.StatusPending
	resubmitted.Version = 3
	require.NoError(t, repo.CompareAndSet(ctx, "a-1", entity.StatusRejected, resubmitted))

	approve := stale.Clone()
	approve.Status = entity.StatusApproved
	approve.Version = stale.Version + 1
	err = repo.CompareAndSet(ctx, "a-1", entity.StatusPending, approve)
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	got, err := repo.GetByID(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, got.Status)
	assert.Equal(t, int64(3), got.Version)
}

func TestAssetRepository_CompareAndSetMissing(t *testing.T) {
	repo := NewAssetRepository(setupTestDB(t), zap.NewNop())

	next := newAsset("ghost")
	next.Version = 2
	err := repo.CompareAndSet(context.Background(), "ghost", entity.StatusPending, next)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestAssetRepository_ListAndSummary(t *testing.T) {
	repo := NewAssetRepository(setupTestDB(t), zap.NewNop())
	ctx := context.Background()

	fixtures := []struct {
		id       string
		status   string
		ministry string
		agency   string
		cost     int64
	}{
		{"a-1", entity.StatusPending, "M-HEALTH", "A-CLINICS", 100},
		{"a-2", entity.StatusApproved, "M-HEALTH", "A-CLINICS", 250},
		{"a-3", entity.StatusApproved, "M-ROADS", "A-BRIDGES", 1000},
		{"a-4", entity.StatusRejected, "M-ROADS", "A-BRIDGES", 50},
	}
	for i, f := range fixtures {
		a := newAsset(f.id)
		a.Status = f.status
		a.MinistryID = f.ministry
		a.AgencyID = f.agency
		a.CostCents = f.cost
		a.CreatedAt = baseTime.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, a))
	}

	tests := []struct {
		name   string
		filter entity.AssetFilter
		want   []string
	}{
		{"all", entity.AssetFilter{}, []string{"a-1", "a-2", "a-3", "a-4"}},
		{"by status", entity.AssetFilter{Status: entity.StatusApproved}, []string{"a-2", "a-3"}},
		{"by ministry", entity.AssetFilter{MinistryID: "M-ROADS"}, []string{"a-3", "a-4"}},
		{"by agency and status", entity.AssetFilter{AgencyID: "A-CLINICS", Status: entity.StatusPending}, []string{"a-1"}},
		{"paged", entity.AssetFilter{Limit: 2, Offset: 1}, []string{"a-2", "a-3"}},
		{"no match", entity.AssetFilter{Category: "furniture"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assets, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)

			var ids []string
			for _, a := range assets {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	summary, err := repo.Summary(ctx, entity.AssetFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.ByStatus[entity.StatusApproved])
	assert.Equal(t, 2, summary.ByMinistry["M-ROADS"])
	assert.Equal(t, int64(1250), summary.ApprovedCostCents)

	scoped, err := repo.Summary(ctx, entity.AssetFilter{MinistryID: "M-HEALTH"})
	require.NoError(t, err)
	assert.Equal(t, 2, scoped.Total)
	assert.Equal(t, int64(250), scoped.ApprovedCostCents)
}

func TestAssetRepository_TransactionRollback(t *testing.T) {
	sqlDB := setupTestDB(t)
	repo := NewAssetRepository(sqlDB, zap.NewNop())
	txm := sqlite.NewDB(sqlDB, zap.NewNop())
	ctx := context.Background()

	boom := errors.New("boom")
	err := txm.WithTransaction(ctx, func(ctx context.Context) error {
		require.NotNil(t, sqlite.TxFromContext(ctx))
		if err := repo.Create(ctx, newAsset("a-tx")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.GetByID(ctx, "a-tx")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	err = txm.WithTransaction(ctx, func(ctx context.Context) error {
		return repo.Create(ctx, newAsset("a-tx"))
	})
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, "a-tx")
	assert.NoError(t, err)
}

func TestMinistryRepository(t *testing.T) {
	repo := NewMinistryRepository(setupTestDB(t), zap.NewNop())
	ctx := context.Background()

	got, err := repo.Get(ctx, "M-HEALTH")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Upsert(ctx, &entity.Ministry{
		ID: "M-HEALTH", Name: "Health", RequiresMinistryReview: true, UpdatedAt: baseTime,
	}))
	require.NoError(t, repo.Upsert(ctx, &entity.Ministry{
		ID: "M-ROADS", Name: "Roads", UpdatedAt: baseTime,
	}))

	got, err = repo.Get(ctx, "M-HEALTH")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Health", got.Name)
	assert.True(t, got.RequiresMinistryReview)

	require.NoError(t, repo.Upsert(ctx, &entity.Ministry{
		ID: "M-HEALTH", Name: "Health & Care", RequiresMinistryReview: false, UpdatedAt: baseTime.Add(time.Hour),
	}))

	got, err = repo.Get(ctx, "M-HEALTH")
	require.NoError(t, err)
	assert.Equal(t, "Health & Care", got.Name)
	assert.False(t, got.RequiresMinistryReview)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "M-HEALTH", all[0].ID)
	assert.Equal(t, "M-ROADS", all[1].ID)
}

func TestAuditRepository(t *testing.T) {
	repo := NewAuditRepository(setupTestDB(t), zap.NewNop())
	ctx := context.Background()

	events := []*entity.AuditEvent{
		{ID: "e-1", ActorID: "U1", ActorRole: entity.RoleAgency, Action: entity.ActionCreate,
			ResourceID: "a-1", ToState: entity.StatusPending, Timestamp: baseTime},
		{ID: "e-2", ActorID: "A1", ActorRole: entity.RoleAgencyApprover, Action: entity.ActionReject,
			ResourceID: "a-1", FromState: entity.StatusPending, ToState: entity.StatusRejected,
			Timestamp: baseTime.Add(time.Minute),
			Metadata:  map[string]string{"rejection_reason": "blurry photo", "rejection_level": "approver"}},
		{ID: "e-3", ActorID: "U2", ActorRole: entity.RoleAgency, Action: entity.ActionCreate,
			ResourceID: "a-2", ToState: entity.StatusPending, Timestamp: baseTime},
	}
	for _, e := range events {
		require.NoError(t, repo.Create(ctx, e))
	}

	got, err := repo.ListByResource(ctx, "a-1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e-2", got[0].ID)
	assert.Equal(t, "blurry photo", got[0].Metadata["rejection_reason"])
	assert.Equal(t, "e-1", got[1].ID)
	assert.Nil(t, got[1].Metadata)

	limited, err := repo.ListByResource(ctx, "a-1", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "e-2", limited[0].ID)

	none, err := repo.ListByResource(ctx, "nothing", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

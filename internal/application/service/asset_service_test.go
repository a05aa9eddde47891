package service

import (
	"context"
	"errors"
	"testing"

	"github.com/garyjia/asset-registry/internal/application/workflow"
	"github.com/garyjia/asset-registry/internal/domain/apperr"
	"github.com/garyjia/asset-registry/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	uploader      = entity.Actor{ID: "U1", Role: entity.RoleAgency, AgencyID: "agency-roads", MinistryID: "min-works"}
	otherUploader = entity.Actor{ID: "U2", Role: entity.RoleAgency, AgencyID: "agency-roads", MinistryID: "min-works"}
	approver      = entity.Actor{ID: "A2", Role: entity.RoleAgencyApprover, AgencyID: "agency-roads", MinistryID: "min-works"}
	foreignApprov = entity.Actor{ID: "A9", Role: entity.RoleAgencyApprover, AgencyID: "agency-ports", MinistryID: "min-transport"}
	ministryAdmin = entity.Actor{ID: "M1", Role: entity.RoleMinistryAdmin, MinistryID: "min-works"}
	federalAdmin  = entity.Actor{ID: "F1", Role: entity.RoleFederalAdmin}
)

type assetFixture struct {
	assets     *mockAssetRepo
	audits     *mockAuditRepo
	ministries *mockMinistryRepo
	tx         *mockTxManager
	logger     *mockLogger
	svc        AssetService
}

func newAssetFixture(records ...*entity.AssetRecord) *assetFixture {
	f := &assetFixture{
		assets:     newMockAssetRepo(records...),
		audits:     &mockAuditRepo{},
		ministries: &mockMinistryRepo{ministries: map[string]*entity.Ministry{}},
		tx:         &mockTxManager{},
		logger:     &mockLogger{},
	}
	recorder := NewAuditRecorder(f.audits, f.logger)
	machine := workflow.NewApprovalStateMachine(f.assets, f.ministries, recorder, workflow.WithTransactionManager(f.tx))
	f.svc = NewAssetService(f.assets, f.audits, f.tx, machine, recorder, newMockCatalog(), nil, f.logger)
	return f
}

func vehicleInput() AssetInput {
	return AssetInput{
		Category:    "vehicle",
		Description: "Toyota Hilux",
		CostCents:   4_500_000,
		Location:    "Depot 4",
		Attributes:  map[string]interface{}{"plate_number": "ABC-123", "year": 2021},
	}
}

func seedAsset(id, status string) *entity.AssetRecord {
	return &entity.AssetRecord{
		ID:          id,
		Status:      status,
		UploadedBy:  "U1",
		MinistryID:  "min-works",
		AgencyID:    "agency-roads",
		Category:    "vehicle",
		Description: "Grader",
		CostCents:   100_000,
		Attributes:  map[string]interface{}{"plate_number": "GR-1"},
		Version:     1,
	}
}

func TestCreateAsset(t *testing.T) {
	f := newAssetFixture()

	asset, err := f.svc.CreateAsset(context.Background(), uploader, vehicleInput())

	require.NoError(t, err)
	assert.NotEmpty(t, asset.ID)
	assert.Equal(t, entity.StatusPending, asset.Status)
	assert.Equal(t, "U1", asset.UploadedBy)
	assert.Equal(t, "min-works", asset.MinistryID)
	assert.Equal(t, "agency-roads", asset.AgencyID)
	assert.Equal(t, int64(1), asset.Version)

	stored, err := f.assets.GetByID(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "ABC-123", stored.Attributes["plate_number"])

	require.Len(t, f.audits.events, 1)
	assert.Equal(t, entity.ActionCreate, f.audits.events[0].Action)
	assert.NotEmpty(t, f.audits.events[0].ID)
	assert.Equal(t, 1, f.tx.count())
}

func TestCreateAsset_TransactionFailure(t *testing.T) {
	f := newAssetFixture()
	commitErr := errors.New("disk I/O error")
	f.tx.withTransactionFunc = func(ctx context.Context, fn func(ctx context.Context) error) error {
		if err := fn(ctx); err != nil {
			return err
		}
		return commitErr
	}

	_, err := f.svc.CreateAsset(context.Background(), uploader, vehicleInput())

	assert.ErrorIs(t, err, commitErr)
	assert.Contains(t, f.logger.errors, "Failed to create asset")
}

func TestCreateAsset_Errors(t *testing.T) {
	tests := []struct {
		name    string
		actor   entity.Actor
		mutate  func(*AssetInput)
		wantErr error
		field   string
	}{
		{"approver cannot upload", approver, func(*AssetInput) {}, apperr.ErrUnauthorized, ""},
		{"unknown category", uploader, func(in *AssetInput) { in.Category = "spaceship" }, apperr.ErrValidation, "category"},
		{"missing required attribute", uploader, func(in *AssetInput) { delete(in.Attributes, "plate_number") }, apperr.ErrValidation, "attributes.plate_number"},
		{"unknown attribute", uploader, func(in *AssetInput) { in.Attributes["colour"] = "red" }, apperr.ErrValidation, "attributes.colour"},
		{"blank description", uploader, func(in *AssetInput) { in.Description = "  " }, apperr.ErrValidation, "description"},
		{"negative cost", uploader, func(in *AssetInput) { in.CostCents = -1 }, apperr.ErrValidation, "cost_cents"},
		{"no ministry anywhere", entity.Actor{ID: "U3", Role: entity.RoleAgency, AgencyID: "a"}, func(*AssetInput) {}, apperr.ErrValidation, "ministry_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAssetFixture()
			input := vehicleInput()
			tt.mutate(&input)

			_, err := f.svc.CreateAsset(context.Background(), tt.actor, input)

			require.ErrorIs(t, err, tt.wantErr)
			if tt.field != "" {
				var appErr *apperr.Error
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, tt.field, appErr.Field)
			}
			assert.Empty(t, f.assets.records)
		})
	}
}

func TestEditAsset_Pending(t *testing.T) {
	f := newAssetFixture(seedAsset("a1", entity.StatusPending))
	input := vehicleInput()
	input.CostCents = 200_000

	asset, err := f.svc.EditAsset(context.Background(), uploader, "a1", input)

	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, asset.Status)
	assert.Equal(t, int64(200_000), asset.CostCents)
	assert.Equal(t, int64(2), asset.Version)
	require.Len(t, f.audits.events, 1)
	assert.Equal(t, entity.ActionEdit, f.audits.events[0].Action)
	assert.Equal(t, 1, f.tx.count())
}

func TestEditAsset_PendingTransactionFailure(t *testing.T) {
	f := newAssetFixture(seedAsset("a1", entity.StatusPending))
	rollback := errors.New("rolled back")
	f.tx.withTransactionFunc = func(ctx context.Context, fn func(ctx context.Context) error) error {
		_ = fn(ctx)
		return rollback
	}

	_, err := f.svc.EditAsset(context.Background(), uploader, "a1", vehicleInput())

	assert.ErrorIs(t, err, rollback)
}

func TestEditAsset_RejectedIsResubmitted(t *testing.T) {
	rejected := seedAsset("a1", entity.StatusRejected)
	rejected.RejectedBy = "A2"
	rejected.RejectionReason = "missing cost"
	rejected.RejectionLevel = entity.RejectionLevelApprover
	f := newAssetFixture(rejected)

	asset, err := f.svc.EditAsset(context.Background(), uploader, "a1", vehicleInput())

	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, asset.Status)
	assert.Empty(t, asset.RejectedBy)
	assert.Empty(t, asset.RejectionReason)
	assert.Empty(t, asset.RejectionLevel)
	assert.Equal(t, "Toyota Hilux", asset.Description)
	require.Len(t, f.audits.events, 1)
	assert.Equal(t, entity.ActionResubmit, f.audits.events[0].Action)
}

func TestEditAsset_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		actor   entity.Actor
		input   func() AssetInput
		wantErr error
	}{
		{"approver cannot edit", entity.StatusPending, approver, vehicleInput, apperr.ErrUnauthorized},
		{"agency colleague is refused", entity.StatusPending, otherUploader, vehicleInput, apperr.ErrUnauthorized},
		{"colleague cannot resubmit by editing", entity.StatusRejected, otherUploader, vehicleInput, apperr.ErrUnauthorized},
		{"uploader of another agency cannot see it", entity.StatusPending, entity.Actor{ID: "U7", Role: entity.RoleAgency, AgencyID: "agency-ports"}, vehicleInput, apperr.ErrNotFound},
		{"approved record", entity.StatusApproved, uploader, vehicleInput, apperr.ErrInvalidTransition},
		{"record in ministry review", entity.StatusPendingMinistryReview, uploader, vehicleInput, apperr.ErrInvalidTransition},
		{"invisible to foreign approver", entity.StatusPending, foreignApprov, vehicleInput, apperr.ErrNotFound},
		{"invalid edit", entity.StatusPending, uploader, func() AssetInput {
			in := vehicleInput()
			in.Category = "unknown"
			return in
		}, apperr.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAssetFixture(seedAsset("a1", tt.status))

			_, err := f.svc.EditAsset(context.Background(), tt.actor, "a1", tt.input())

			assert.ErrorIs(t, err, tt.wantErr)
			stored, _ := f.assets.GetByID(context.Background(), "a1")
			assert.Equal(t, int64(1), stored.Version)
		})
	}
}

func TestGetAsset_Visibility(t *testing.T) {
	f := newAssetFixture(seedAsset("a1", entity.StatusPending))

	tests := []struct {
		name    string
		actor   entity.Actor
		visible bool
	}{
		{"uploader", uploader, true},
		{"other uploader", otherUploader, false},
		{"approver of agency", approver, true},
		{"approver of other agency", foreignApprov, false},
		{"ministry admin", ministryAdmin, true},
		{"federal admin", federalAdmin, true},
		{"unknown role", entity.Actor{ID: "X", Role: "auditor"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset, err := f.svc.GetAsset(context.Background(), tt.actor, "a1")
			if tt.visible {
				require.NoError(t, err)
				assert.Equal(t, "a1", asset.ID)
				return
			}
			assert.Error(t, err)
		})
	}
}

func TestListAssets_Scoped(t *testing.T) {
	mine := seedAsset("a1", entity.StatusPending)
	theirs := seedAsset("a2", entity.StatusApproved)
	theirs.UploadedBy = "U2"
	foreign := seedAsset("a3", entity.StatusPending)
	foreign.AgencyID = "agency-ports"
	foreign.MinistryID = "min-transport"
	f := newAssetFixture(mine, theirs, foreign)
	ctx := context.Background()

	ids := func(assets []*entity.AssetRecord) []string {
		out := make([]string, 0, len(assets))
		for _, a := range assets {
			out = append(out, a.ID)
		}
		return out
	}

	got, err := f.svc.ListAssets(ctx, uploader, entity.AssetFilter{UploadedBy: "U2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, ids(got))

	got, err = f.svc.ListAssets(ctx, approver, entity.AssetFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, ids(got))

	got, err = f.svc.ListAssets(ctx, federalAdmin, entity.AssetFilter{Status: entity.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a3"}, ids(got))

	_, err = f.svc.ListAssets(ctx, federalAdmin, entity.AssetFilter{Status: "archived"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.ListAssets(ctx, entity.Actor{ID: "A5", Role: entity.RoleAgencyApprover}, entity.AssetFilter{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestTransition_RespectsScope(t *testing.T) {
	f := newAssetFixture(seedAsset("a1", entity.StatusPending))

	_, err := f.svc.Transition(context.Background(), foreignApprov, "a1", entity.ActionApprove, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	asset, err := f.svc.Transition(context.Background(), approver, "a1", entity.ActionApprove, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, asset.Status)
}

func TestTransition_ColleagueResubmitIsUnauthorized(t *testing.T) {
	rejected := seedAsset("a1", entity.StatusRejected)
	rejected.RejectedBy = "A2"
	rejected.RejectionReason = "blurry photo"
	f := newAssetFixture(rejected)
	ctx := context.Background()

	_, err := f.svc.Transition(ctx, otherUploader, "a1", entity.ActionResubmit, nil)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	// the colleague still cannot read it
	_, err = f.svc.GetAsset(ctx, otherUploader, "a1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	stranger := entity.Actor{ID: "U7", Role: entity.RoleAgency, AgencyID: "agency-ports"}
	_, err = f.svc.Transition(ctx, stranger, "a1", entity.ActionResubmit, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	stored, _ := f.assets.GetByID(ctx, "a1")
	assert.Equal(t, entity.StatusRejected, stored.Status)

	asset, err := f.svc.Transition(ctx, uploader, "a1", entity.ActionResubmit, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, asset.Status)
}

func TestPermittedActions(t *testing.T) {
	f := newAssetFixture(seedAsset("a1", entity.StatusPending), seedAsset("a2", entity.StatusRejected))
	ctx := context.Background()

	pending, err := f.svc.GetAsset(ctx, approver, "a1")
	require.NoError(t, err)
	actions, err := f.svc.PermittedActions(ctx, approver, pending)
	require.NoError(t, err)
	assert.Equal(t, []string{entity.ActionApprove, entity.ActionReject}, actions)

	actions, err = f.svc.PermittedActions(ctx, uploader, pending)
	require.NoError(t, err)
	assert.Empty(t, actions)

	rejected, err := f.svc.GetAsset(ctx, uploader, "a2")
	require.NoError(t, err)
	actions, err = f.svc.PermittedActions(ctx, uploader, rejected)
	require.NoError(t, err)
	assert.Equal(t, []string{entity.ActionResubmit}, actions)
}

func TestBulkApprove_MixesScopeAndState(t *testing.T) {
	foreign := seedAsset("a3", entity.StatusPending)
	foreign.AgencyID = "agency-ports"
	f := newAssetFixture(
		seedAsset("a1", entity.StatusPending),
		seedAsset("a2", entity.StatusApproved),
		foreign,
		seedAsset("a4", entity.StatusPending),
	)

	results := f.svc.BulkApprove(context.Background(), approver, []string{"a1", "a2", "a3", "a4"})

	require.Len(t, results, 4)
	assert.True(t, results[0].Success)
	assert.ErrorIs(t, results[1].Error, apperr.ErrInvalidTransition)
	assert.ErrorIs(t, results[2].Error, apperr.ErrNotFound)
	assert.Equal(t, "a3", results[2].ID)
	assert.True(t, results[3].Success)
}

func TestHistory(t *testing.T) {
	f := newAssetFixture(seedAsset("a1", entity.StatusPending))
	ctx := context.Background()

	_, err := f.svc.Transition(ctx, approver, "a1", entity.ActionReject, &workflow.Payload{RejectionReason: "blurry photo"})
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, uploader, "a1", entity.ActionResubmit, nil)
	require.NoError(t, err)

	events, err := f.svc.History(ctx, federalAdmin, "a1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, entity.ActionResubmit, events[0].Action)
	assert.Equal(t, entity.ActionReject, events[1].Action)
	assert.Equal(t, "A2", events[1].ActorID)

	_, err = f.svc.History(ctx, otherUploader, "a1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSummary(t *testing.T) {
	approved := seedAsset("a2", entity.StatusApproved)
	approved.CostCents = 250_000
	f := newAssetFixture(seedAsset("a1", entity.StatusPending), approved)

	_, err := f.svc.Summary(context.Background(), ministryAdmin)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	summary, err := f.svc.Summary(context.Background(), federalAdmin)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.ByStatus[entity.StatusPending])
	assert.Equal(t, 2, summary.ByMinistry["min-works"])
	assert.Equal(t, int64(250_000), summary.ApprovedCostCents)
}

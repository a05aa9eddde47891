package service

import (
	"context"
	"errors"
	"testing"

	"github.com/garyjia/asset-registry/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panickingAuditRepo struct{ mockAuditRepo }

func (p *panickingAuditRepo) Create(ctx context.Context, evt *entity.AuditEvent) error {
	panic("disk on fire")
}

func TestAuditRecorder_FillsDefaults(t *testing.T) {
	repo := &mockAuditRepo{}
	recorder := NewAuditRecorder(repo, &mockLogger{})

	recorder.Record(context.Background(), entity.AuditEvent{ActorID: "A2", Action: entity.ActionApprove, ResourceID: "a1"})

	require.Len(t, repo.events, 1)
	assert.NotEmpty(t, repo.events[0].ID)
	assert.False(t, repo.events[0].Timestamp.IsZero())
}

func TestAuditRecorder_SwallowsFailures(t *testing.T) {
	logger := &mockLogger{}
	recorder := NewAuditRecorder(&mockAuditRepo{createErr: errors.New("database is locked")}, logger)

	assert.NotPanics(t, func() {
		recorder.Record(context.Background(), entity.AuditEvent{Action: entity.ActionReject, ResourceID: "a1"})
	})
	assert.Equal(t, []string{"Failed to record audit event"}, logger.errors)

	logger = &mockLogger{}
	recorder = NewAuditRecorder(&panickingAuditRepo{}, logger)
	assert.NotPanics(t, func() {
		recorder.Record(context.Background(), entity.AuditEvent{Action: entity.ActionReject, ResourceID: "a1"})
	})
	assert.Equal(t, []string{"Audit recorder panic recovered"}, logger.errors)
}

func TestAuditFailureDoesNotFailTransition(t *testing.T) {
	f := newAssetFixture(seedAsset("a1", entity.StatusPending))
	f.audits.createErr = errors.New("audit table missing")

	asset, err := f.svc.Transition(context.Background(), approver, "a1", entity.ActionApprove, nil)

	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, asset.Status)
	assert.Contains(t, f.logger.errors, "Failed to record audit event")
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/asset-registry/internal/application/port"
	"github.com/garyjia/asset-registry/internal/domain/apperr"
	"github.com/garyjia/asset-registry/internal/domain/entity"
	"github.com/garyjia/asset-registry/pkg/utils"
)

// MinistryService manages per-ministry review policy
type MinistryService interface {
	UpsertMinistry(ctx context.Context, actor entity.Actor, ministry entity.Ministry) (*entity.Ministry, error)
	GetMinistry(ctx context.Context, id string) (*entity.Ministry, error)
	ListMinistries(ctx context.Context) ([]*entity.Ministry, error)
}

type ministryServiceImpl struct {
	ministryRepo port.MinistryRepository
	txManager    port.TransactionManager
	audit        port.AuditRecorder
	logger       Logger
}

// NewMinistryService creates a new MinistryService
func NewMinistryService(ministryRepo port.MinistryRepository, txManager port.TransactionManager, audit port.AuditRecorder, logger Logger) MinistryService {
	return &ministryServiceImpl{
		ministryRepo: ministryRepo,
		txManager:    txManager,
		audit:        audit,
		logger:       logger,
	}
}

// UpsertMinistry creates or replaces a ministry. Federal administrators only.
func (s *ministryServiceImpl) UpsertMinistry(ctx context.Context, actor entity.Actor, ministry entity.Ministry) (*entity.Ministry, error) {
	if actor.Role != entity.RoleFederalAdmin {
		return nil, apperr.Unauthorized("role %q cannot change ministry policy", actor.Role)
	}

	ministry.ID = strings.TrimSpace(ministry.ID)
	ministry.Name = strings.TrimSpace(ministry.Name)
	if ministry.ID == "" {
		return nil, apperr.Validation("id", "ministry id is required")
	}
	if err := utils.ValidateIdentifier(ministry.ID); err != nil {
		return nil, apperr.Validation("id", "%v", err)
	}
	if ministry.Name == "" {
		return nil, apperr.Validation("name", "ministry name is required")
	}
	ministry.UpdatedAt = time.Now().UTC()

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.ministryRepo.Upsert(txCtx, &ministry); err != nil {
			return err
		}
		s.audit.Record(txCtx, entity.AuditEvent{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     entity.ActionMinistryUpsert,
			ResourceID: ministry.ID,
			Timestamp:  ministry.UpdatedAt,
			Metadata: map[string]string{
				"requires_ministry_review": fmt.Sprintf("%t", ministry.RequiresMinistryReview),
			},
		})
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to upsert ministry", "error", err, "ministry_id", ministry.ID)
		return nil, fmt.Errorf("upsert ministry %s: %w", ministry.ID, err)
	}

	s.logger.Info("Ministry policy updated",
		"ministry_id", ministry.ID,
		"requires_ministry_review", ministry.RequiresMinistryReview,
		"actor_id", actor.ID,
	)

	return &ministry, nil
}

// GetMinistry returns a ministry or NotFound
func (s *ministryServiceImpl) GetMinistry(ctx context.Context, id string) (*entity.Ministry, error) {
	ministry, err := s.ministryRepo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get ministry %s: %w", id, err)
	}
	if ministry == nil {
		return nil, apperr.NotFound("ministry %s not found", id)
	}
	return ministry, nil
}

// ListMinistries returns all configured ministries
func (s *ministryServiceImpl) ListMinistries(ctx context.Context) ([]*entity.Ministry, error) {
	ministries, err := s.ministryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ministries: %w", err)
	}
	return ministries, nil
}

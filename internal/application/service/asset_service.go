package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/asset-registry/internal/application/dispatcher"
	"github.com/garyjia/asset-registry/internal/application/port"
	"github.com/garyjia/asset-registry/internal/application/workflow"
	"github.com/garyjia/asset-registry/internal/domain/apperr"
	"github.com/garyjia/asset-registry/internal/domain/entity"
	"github.com/garyjia/asset-registry/internal/domain/event"
	"github.com/garyjia/asset-registry/pkg/utils"
	"github.com/google/uuid"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// AssetInput holds the uploader-editable fields of an asset
type AssetInput struct {
	AgencyID    string                 `json:"agency_id"`
	MinistryID  string                 `json:"ministry_id"`
	Category    string                 `json:"category"`
	Description string                 `json:"description"`
	CostCents   int64                  `json:"cost_cents"`
	Location    string                 `json:"location"`
	Attributes  map[string]interface{} `json:"attributes"`
}

// AssetService manages asset records on behalf of an authenticated actor
type AssetService interface {
	CreateAsset(ctx context.Context, actor entity.Actor, input AssetInput) (*entity.AssetRecord, error)
	EditAsset(ctx context.Context, actor entity.Actor, id string, input AssetInput) (*entity.AssetRecord, error)
	GetAsset(ctx context.Context, actor entity.Actor, id string) (*entity.AssetRecord, error)
	ListAssets(ctx context.Context, actor entity.Actor, filter entity.AssetFilter) ([]*entity.AssetRecord, error)
	Transition(ctx context.Context, actor entity.Actor, id, action string, payload *workflow.Payload) (*entity.AssetRecord, error)
	BulkApprove(ctx context.Context, actor entity.Actor, ids []string) []workflow.BulkResult
	History(ctx context.Context, actor entity.Actor, id string) ([]*entity.AuditEvent, error)
	Summary(ctx context.Context, actor entity.Actor) (*entity.AssetSummary, error)
	PermittedActions(ctx context.Context, actor entity.Actor, asset *entity.AssetRecord) ([]string, error)
}

type assetServiceImpl struct {
	assetRepo  port.AssetRepository
	auditRepo  port.AuditRepository
	txManager  port.TransactionManager
	machine    workflow.ApprovalStateMachine
	audit      port.AuditRecorder
	catalog    port.CategoryCatalog
	dispatcher dispatcher.Dispatcher
	logger     Logger
}

// NewAssetService creates a new AssetService. dispatcher may be nil.
func NewAssetService(
	assetRepo port.AssetRepository,
	auditRepo port.AuditRepository,
	txManager port.TransactionManager,
	machine workflow.ApprovalStateMachine,
	audit port.AuditRecorder,
	catalog port.CategoryCatalog,
	dispatcher dispatcher.Dispatcher,
	logger Logger,
) AssetService {
	return &assetServiceImpl{
		assetRepo:  assetRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		machine:    machine,
		audit:      audit,
		catalog:    catalog,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// CreateAsset stores a new pending record uploaded by actor
func (s *assetServiceImpl) CreateAsset(ctx context.Context, actor entity.Actor, input AssetInput) (*entity.AssetRecord, error) {
	if actor.Role != entity.RoleAgency {
		return nil, apperr.Unauthorized("role %q cannot upload assets", actor.Role)
	}

	// token claims take precedence over the request body
	if actor.AgencyID != "" {
		input.AgencyID = actor.AgencyID
	}
	if actor.MinistryID != "" {
		input.MinistryID = actor.MinistryID
	}
	if strings.TrimSpace(input.AgencyID) == "" {
		return nil, apperr.Validation("agency_id", "agency is required")
	}
	if strings.TrimSpace(input.MinistryID) == "" {
		return nil, apperr.Validation("ministry_id", "ministry is required")
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	asset := &entity.AssetRecord{
		ID:         uuid.NewString(),
		Status:     entity.StatusPending,
		UploadedBy: actor.ID,
		MinistryID: input.MinistryID,
		AgencyID:   input.AgencyID,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyInput(asset, input)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.assetRepo.Create(txCtx, asset); err != nil {
			return err
		}
		s.audit.Record(txCtx, entity.AuditEvent{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     entity.ActionCreate,
			ResourceID: asset.ID,
			ToState:    asset.Status,
			Timestamp:  now,
		})
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create asset", "error", err, "actor_id", actor.ID)
		return nil, fmt.Errorf("create asset: %w", err)
	}

	s.logger.Info("Asset created", "asset_id", asset.ID, "actor_id", actor.ID, "category", asset.Category)
	s.emit(ctx, event.TypeAssetCreated, asset, actor)

	return asset, nil
}

// EditAsset replaces the editable fields of an asset. A rejected asset is
// resubmitted by the edit; a pending one keeps its status.
func (s *assetServiceImpl) EditAsset(ctx context.Context, actor entity.Actor, id string, input AssetInput) (*entity.AssetRecord, error) {
	current, err := s.loadForAction(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if actor.ID != current.UploadedBy {
		return nil, apperr.Unauthorized("only the uploader may edit asset %s", id)
	}

	switch current.Status {
	case entity.StatusRejected:
		if err := s.validateInput(input); err != nil {
			return nil, err
		}
		updated, err := s.machine.ResubmitWithEdit(ctx, id, actor, func(rec *entity.AssetRecord) error {
			applyInput(rec, input)
			return nil
		})
		if err != nil {
			return nil, err
		}
		s.logger.Info("Rejected asset edited and resubmitted", "asset_id", id, "actor_id", actor.ID)
		return updated, nil

	case entity.StatusPending:
		if err := s.validateInput(input); err != nil {
			return nil, err
		}
		next := current.Clone()
		applyInput(next, input)
		next.Version = current.Version + 1
		next.UpdatedAt = time.Now().UTC()

		err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			if err := s.assetRepo.CompareAndSet(txCtx, id, entity.StatusPending, next); err != nil {
				return err
			}
			s.audit.Record(txCtx, entity.AuditEvent{
				ActorID:    actor.ID,
				ActorRole:  actor.Role,
				Action:     entity.ActionEdit,
				ResourceID: id,
				FromState:  current.Status,
				ToState:    next.Status,
				Timestamp:  next.UpdatedAt,
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("edit asset %s: %w", id, err)
		}

		s.logger.Info("Asset edited", "asset_id", id, "actor_id", actor.ID)
		s.emit(ctx, event.TypeAssetEdited, next, actor)
		return next, nil

	default:
		return nil, apperr.InvalidTransition("asset %s cannot be edited while %s", id, current.Status)
	}
}

// GetAsset returns an asset visible to actor. Records outside the actor's
// scope are reported as not found.
func (s *assetServiceImpl) GetAsset(ctx context.Context, actor entity.Actor, id string) (*entity.AssetRecord, error) {
	if !entity.IsValidRole(actor.Role) {
		return nil, apperr.Unauthorized("unknown role %q", actor.Role)
	}
	asset, err := s.assetRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get asset %s: %w", id, err)
	}
	if asset == nil || !canView(actor, asset) {
		return nil, apperr.NotFound("asset %s not found", id)
	}
	return asset, nil
}

// ListAssets lists assets within actor's visibility scope
func (s *assetServiceImpl) ListAssets(ctx context.Context, actor entity.Actor, filter entity.AssetFilter) ([]*entity.AssetRecord, error) {
	scoped, err := scopeFilter(actor, filter)
	if err != nil {
		return nil, err
	}
	if scoped.Status != "" && !entity.IsValidStatus(scoped.Status) {
		return nil, apperr.Validation("status", "unknown status %q", scoped.Status)
	}
	switch {
	case scoped.Limit <= 0:
		scoped.Limit = defaultListLimit
	case scoped.Limit > maxListLimit:
		scoped.Limit = maxListLimit
	}
	if scoped.Offset < 0 {
		scoped.Offset = 0
	}

	assets, err := s.assetRepo.List(ctx, scoped)
	if err != nil {
		s.logger.Error("Failed to list assets", "error", err, "actor_id", actor.ID)
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, nil
}

// loadForAction fetches a record actor wants to change. An agency user who
// shares the uploader's agency is refused with Unauthorized; anyone else
// outside the actor's scope gets NotFound.
func (s *assetServiceImpl) loadForAction(ctx context.Context, actor entity.Actor, id string) (*entity.AssetRecord, error) {
	if !entity.IsValidRole(actor.Role) {
		return nil, apperr.Unauthorized("unknown role %q", actor.Role)
	}
	asset, err := s.assetRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get asset %s: %w", id, err)
	}

	switch {
	case asset == nil:
		return nil, apperr.NotFound("asset %s not found", id)
	case canView(actor, asset):
		return asset, nil
	case isAgencyColleague(actor, asset):
		return nil, apperr.Unauthorized("only the uploader may change asset %s", id)
	default:
		return nil, apperr.NotFound("asset %s not found", id)
	}
}

// Transition applies a workflow action after checking the actor can see the record
func (s *assetServiceImpl) Transition(ctx context.Context, actor entity.Actor, id, action string, payload *workflow.Payload) (*entity.AssetRecord, error) {
	if _, err := s.loadForAction(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.machine.ApplyTransition(ctx, id, actor.ID, actor.Role, action, payload)
}

// PermittedActions lists the workflow actions actor may attempt on a visible asset
func (s *assetServiceImpl) PermittedActions(ctx context.Context, actor entity.Actor, asset *entity.AssetRecord) ([]string, error) {
	actions, err := s.machine.PermittedActions(asset, actor)
	if err != nil {
		s.logger.Error("Failed to list permitted actions", "error", err, "asset_id", asset.ID)
		return nil, err
	}
	return actions, nil
}

// BulkApprove approves every visible record in ids; invisible ones fail with NotFound
func (s *assetServiceImpl) BulkApprove(ctx context.Context, actor entity.Actor, ids []string) []workflow.BulkResult {
	results := make([]workflow.BulkResult, len(ids))
	visible := make([]string, 0, len(ids))
	slots := make([]int, 0, len(ids))

	for i, id := range ids {
		if _, err := s.GetAsset(ctx, actor, id); err != nil {
			results[i] = workflow.BulkResult{ID: id, Error: err}
			continue
		}
		visible = append(visible, id)
		slots = append(slots, i)
	}

	for j, r := range s.machine.BulkApprove(ctx, visible, actor.ID, actor.Role) {
		results[slots[j]] = r
	}
	return results
}

// History returns the audit trail of a visible asset, newest first
func (s *assetServiceImpl) History(ctx context.Context, actor entity.Actor, id string) ([]*entity.AuditEvent, error) {
	if _, err := s.GetAsset(ctx, actor, id); err != nil {
		return nil, err
	}
	events, err := s.auditRepo.ListByResource(ctx, id, maxListLimit)
	if err != nil {
		return nil, fmt.Errorf("list audit events for %s: %w", id, err)
	}
	return events, nil
}

// Summary aggregates all assets for federal administrators
func (s *assetServiceImpl) Summary(ctx context.Context, actor entity.Actor) (*entity.AssetSummary, error) {
	if actor.Role != entity.RoleFederalAdmin {
		return nil, apperr.Unauthorized("role %q cannot view the federal summary", actor.Role)
	}
	summary, err := s.assetRepo.Summary(ctx, entity.AssetFilter{})
	if err != nil {
		return nil, fmt.Errorf("summarise assets: %w", err)
	}
	return summary, nil
}

func (s *assetServiceImpl) validateInput(input AssetInput) error {
	if utils.SanitizeString(input.Description) == "" {
		return apperr.Validation("description", "description is required")
	}
	if input.CostCents < 0 {
		return apperr.Validation("cost_cents", "cost must not be negative")
	}
	category, ok := s.catalog.Get(input.Category)
	if !ok {
		return apperr.Validation("category", "unknown category %q", input.Category)
	}
	return category.ValidateAttributes(input.Attributes)
}

func (s *assetServiceImpl) emit(ctx context.Context, eventType event.Type, asset *entity.AssetRecord, actor entity.Actor) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(eventType, asset.ID, actor.ID, map[string]interface{}{
		"new_status":  asset.Status,
		"version":     asset.Version,
		"ministry_id": asset.MinistryID,
	}))
}

// applyInput copies the editable fields; ownership fields are left alone
func applyInput(asset *entity.AssetRecord, input AssetInput) {
	asset.Category = input.Category
	asset.Description = utils.SanitizeString(input.Description)
	asset.CostCents = input.CostCents
	asset.Location = utils.SanitizeString(input.Location)
	asset.Attributes = make(map[string]interface{}, len(input.Attributes))
	for k, v := range input.Attributes {
		asset.Attributes[k] = v
	}
}

func canView(actor entity.Actor, asset *entity.AssetRecord) bool {
	switch actor.Role {
	case entity.RoleAgency:
		return asset.UploadedBy == actor.ID
	case entity.RoleAgencyApprover:
		return actor.AgencyID != "" && asset.AgencyID == actor.AgencyID
	case entity.RoleMinistryAdmin:
		return actor.MinistryID != "" && asset.MinistryID == actor.MinistryID
	case entity.RoleFederalAdmin:
		return true
	default:
		return false
	}
}

// isAgencyColleague reports whether actor is another agency user of the asset's agency
func isAgencyColleague(actor entity.Actor, asset *entity.AssetRecord) bool {
	return actor.Role == entity.RoleAgency &&
		actor.AgencyID != "" &&
		asset.AgencyID == actor.AgencyID &&
		asset.UploadedBy != actor.ID
}

// scopeFilter narrows filter to what actor may see
func scopeFilter(actor entity.Actor, filter entity.AssetFilter) (entity.AssetFilter, error) {
	switch actor.Role {
	case entity.RoleAgency:
		filter.UploadedBy = actor.ID
	case entity.RoleAgencyApprover:
		if actor.AgencyID == "" {
			return filter, apperr.Unauthorized("approver %s has no agency", actor.ID)
		}
		filter.AgencyID = actor.AgencyID
	case entity.RoleMinistryAdmin:
		if actor.MinistryID == "" {
			return filter, apperr.Unauthorized("ministry admin %s has no ministry", actor.ID)
		}
		filter.MinistryID = actor.MinistryID
	case entity.RoleFederalAdmin:
	default:
		return filter, apperr.Unauthorized("unknown role %q", actor.Role)
	}
	return filter, nil
}

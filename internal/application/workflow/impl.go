package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/garyjia/asset-registry/internal/application/dispatcher"
	"github.com/garyjia/asset-registry/internal/application/port"
	"github.com/garyjia/asset-registry/internal/domain/apperr"
	"github.com/garyjia/asset-registry/internal/domain/entity"
	"github.com/garyjia/asset-registry/internal/domain/event"
	domainwf "github.com/garyjia/asset-registry/internal/domain/workflow"
	"github.com/google/uuid"
)

// Metric outcomes
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// ActionLabelUnknown is the metric action label for unrecognised actions
const ActionLabelUnknown = "unknown"

// machineImpl is the concrete implementation of ApprovalStateMachine
type machineImpl struct {
	gateway    port.PersistenceGateway
	ministries port.MinistryRepository
	audit      port.AuditRecorder
	txManager  port.TransactionManager
	dispatcher dispatcher.Dispatcher
	metrics    port.TransitionMetrics
	logger     Logger
	now        func() time.Time
}

// MachineOption configures the approval state machine
type MachineOption func(*machineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) MachineOption {
	return func(m *machineImpl) {
		m.dispatcher = d
	}
}

// WithTransactionManager makes the status write and its audit row commit together
func WithTransactionManager(tx port.TransactionManager) MachineOption {
	return func(m *machineImpl) {
		m.txManager = tx
	}
}

// WithMetrics sets the transition outcome observer
func WithMetrics(metrics port.TransitionMetrics) MachineOption {
	return func(m *machineImpl) {
		m.metrics = metrics
	}
}

// WithLogger sets the logger
func WithLogger(logger Logger) MachineOption {
	return func(m *machineImpl) {
		m.logger = logger
	}
}

// WithClock overrides the time source used for *At fields
func WithClock(now func() time.Time) MachineOption {
	return func(m *machineImpl) {
		m.now = now
	}
}

// NewApprovalStateMachine creates the approval workflow. ministries may be nil,
// in which case no ministry requires second-tier review.
func NewApprovalStateMachine(
	gateway port.PersistenceGateway,
	ministries port.MinistryRepository,
	audit port.AuditRecorder,
	opts ...MachineOption,
) ApprovalStateMachine {
	m := &machineImpl{
		gateway:    gateway,
		ministries: ministries,
		audit:      audit,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// ApplyTransition validates and persists one action on one record
func (m *machineImpl) ApplyTransition(ctx context.Context, recordID, actorID, actorRole, action string, payload *Payload) (*entity.AssetRecord, error) {
	actor := entity.Actor{ID: actorID, Role: actorRole}
	return m.apply(ctx, recordID, actor, action, payload, nil)
}

// BulkApprove approves each record independently
func (m *machineImpl) BulkApprove(ctx context.Context, recordIDs []string, actorID, actorRole string) []BulkResult {
	results := make([]BulkResult, 0, len(recordIDs))

	for _, id := range recordIDs {
		_, err := m.ApplyTransition(ctx, id, actorID, actorRole, entity.ActionApprove, nil)
		results = append(results, BulkResult{
			ID:      id,
			Success: err == nil,
			Error:   err,
		})
	}

	if m.logger != nil {
		failed := 0
		for _, r := range results {
			if !r.Success {
				failed++
			}
		}
		m.logger.Info("Bulk approve finished",
			"actor_id", actorID,
			"total", len(results),
			"failed", failed,
		)
	}

	return results
}

// ResubmitWithEdit applies edit to a rejected record and resubmits it
func (m *machineImpl) ResubmitWithEdit(ctx context.Context, recordID string, actor entity.Actor, edit func(*entity.AssetRecord) error) (*entity.AssetRecord, error) {
	return m.apply(ctx, recordID, actor, entity.ActionResubmit, nil, edit)
}

func (m *machineImpl) apply(
	ctx context.Context,
	recordID string,
	actor entity.Actor,
	action string,
	payload *Payload,
	mutate func(*entity.AssetRecord) error,
) (next *entity.AssetRecord, err error) {
	trigger := domainwf.Trigger(action)
	// action comes from the caller; only known triggers become metric labels
	label := action
	if !trigger.IsValid() {
		label = ActionLabelUnknown
	}
	defer func() {
		m.observe(label, err)
	}()

	if !trigger.IsValid() {
		return nil, apperr.Validation("action", "unknown action %q", action)
	}
	if strings.TrimSpace(recordID) == "" {
		return nil, apperr.Validation("id", "record id is required")
	}
	if actor.ID == "" || !entity.IsValidRole(actor.Role) {
		return nil, apperr.Unauthorized("actor %q with role %q is not recognised", actor.ID, actor.Role)
	}

	current, err := m.gateway.GetByID(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("load asset %s: %w", recordID, err)
	}
	if current == nil {
		return nil, apperr.NotFound("asset %s not found", recordID)
	}
	if !entity.IsValidStatus(current.Status) {
		return nil, fmt.Errorf("asset %s: %w: %q", recordID, domainwf.ErrInvalidState, current.Status)
	}

	requiresReview := false
	if trigger == domainwf.TriggerApprove && current.Status == entity.StatusPending {
		requiresReview, err = m.requiresMinistryReview(ctx, current.MinistryID)
		if err != nil {
			return nil, err
		}
	}

	machine := BuildAssetStateMachine(domainwf.State(current.Status), current.UploadedBy, requiresReview)
	from := machine.State()
	if err := machine.Fire(ctx, trigger, actor); err != nil {
		return nil, translateFireError(err)
	}
	to := machine.State()

	var reason string
	if trigger == domainwf.TriggerReject {
		if payload != nil {
			reason = strings.TrimSpace(payload.RejectionReason)
		}
		if reason == "" {
			return nil, apperr.Validation("rejection_reason", "rejection reason is required")
		}
	}

	next = current.Clone()
	if mutate != nil {
		if err := mutate(next); err != nil {
			return nil, err
		}
		// identity fields never change through an edit
		next.ID = current.ID
		next.UploadedBy = current.UploadedBy
		next.MinistryID = current.MinistryID
		next.CreatedAt = current.CreatedAt
	}

	now := m.now().UTC()
	applyEffects(next, from, trigger, actor, reason, now)
	next.Status = to.String()
	next.Version = current.Version + 1
	next.UpdatedAt = now

	err = m.inTransaction(ctx, func(txCtx context.Context) error {
		if err := m.gateway.CompareAndSet(txCtx, recordID, from.String(), next); err != nil {
			return fmt.Errorf("%s asset %s: %w", action, recordID, err)
		}
		m.recordAudit(txCtx, next, actor, action, from, to, reason, requiresReview, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if m.logger != nil {
		m.logger.Info("Asset transitioned",
			"asset_id", recordID,
			"action", action,
			"actor_id", actor.ID,
			"from", from.String(),
			"to", to.String(),
		)
	}

	m.emit(ctx, next, actor, action, from, to)

	return next.Clone(), nil
}

// PermittedActions lists the actions actor may attempt on rec, sorted.
// Ministry review routing does not change which actions are offered.
func (m *machineImpl) PermittedActions(rec *entity.AssetRecord, actor entity.Actor) ([]string, error) {
	state := domainwf.State(rec.Status)
	if !state.IsValid() {
		return nil, fmt.Errorf("asset %s: %w: %q", rec.ID, domainwf.ErrInvalidState, rec.Status)
	}

	machine := BuildAssetStateMachine(state, rec.UploadedBy, false)
	actions := make([]string, 0, 2)
	for _, trigger := range machine.PermittedTriggers() {
		if machine.CanFire(trigger, actor) {
			actions = append(actions, trigger.String())
		}
	}
	sort.Strings(actions)
	return actions, nil
}

// inTransaction runs fn inside a transaction when a manager is configured
func (m *machineImpl) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.txManager == nil {
		return fn(ctx)
	}
	return m.txManager.WithTransaction(ctx, fn)
}

// applyEffects sets the attribution fields for a successful transition
func applyEffects(rec *entity.AssetRecord, from domainwf.State, trigger domainwf.Trigger, actor entity.Actor, reason string, now time.Time) {
	at := now
	switch trigger {
	case domainwf.TriggerApprove:
		if from == domainwf.StatePendingMinistryReview {
			rec.ApprovedByMinistry = actor.ID
			rec.ApprovedByMinistryAt = &at
		} else {
			rec.ApprovedBy = actor.ID
			rec.ApprovedAt = &at
		}
	case domainwf.TriggerReject:
		rec.RejectedBy = actor.ID
		rec.RejectedAt = &at
		rec.RejectionReason = reason
		if from == domainwf.StatePendingMinistryReview {
			rec.RejectionLevel = entity.RejectionLevelMinistryAdmin
		} else {
			rec.RejectionLevel = entity.RejectionLevelApprover
		}
	case domainwf.TriggerResubmit:
		// the previous rejection survives in the audit trail only
		rec.ClearRejection()
		rec.ApprovedBy = ""
		rec.ApprovedAt = nil
		rec.ApprovedByMinistry = ""
		rec.ApprovedByMinistryAt = nil
	}
}

// requiresMinistryReview looks up the owning ministry's review policy
func (m *machineImpl) requiresMinistryReview(ctx context.Context, ministryID string) (bool, error) {
	if m.ministries == nil || ministryID == "" {
		return false, nil
	}
	ministry, err := m.ministries.Get(ctx, ministryID)
	if err != nil {
		return false, fmt.Errorf("load ministry %s: %w", ministryID, err)
	}
	if ministry == nil {
		return false, nil
	}
	return ministry.RequiresMinistryReview, nil
}

func (m *machineImpl) recordAudit(
	ctx context.Context,
	rec *entity.AssetRecord,
	actor entity.Actor,
	action string,
	from, to domainwf.State,
	reason string,
	requiresReview bool,
	now time.Time,
) {
	if m.audit == nil {
		return
	}

	metadata := map[string]string{}
	if reason != "" {
		metadata["rejection_reason"] = reason
		metadata["rejection_level"] = rec.RejectionLevel
	}
	if requiresReview {
		metadata["ministry_review"] = "true"
	}

	m.audit.Record(ctx, entity.AuditEvent{
		ID:         uuid.NewString(),
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		ResourceID: rec.ID,
		FromState:  from.String(),
		ToState:    to.String(),
		Timestamp:  now,
		Metadata:   metadata,
	})
}

func (m *machineImpl) emit(ctx context.Context, rec *entity.AssetRecord, actor entity.Actor, action string, from, to domainwf.State) {
	if m.dispatcher == nil {
		return
	}

	payload := map[string]interface{}{
		"previous_status": from.String(),
		"new_status":      to.String(),
		"action":          action,
		"version":         rec.Version,
		"ministry_id":     rec.MinistryID,
		"review_complete": to.IsTerminal(),
	}

	actionEvent := event.NewEvent(event.ForTrigger(action), rec.ID, actor.ID, payload)
	statusEvent := event.NewEventWithCorrelation(event.TypeStatusChanged, rec.ID, actor.ID, payload, actionEvent.CorrelationID)

	m.dispatcher.DispatchAsync(ctx, actionEvent)
	m.dispatcher.DispatchAsync(ctx, statusEvent)
}

func (m *machineImpl) observe(action string, err error) {
	if m.metrics == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
		if kind := apperr.KindOf(err); kind != "" {
			outcome = string(kind)
		}
	}
	m.metrics.ObserveTransition(action, outcome)
}

// translateFireError maps state machine failures onto the public error kinds
func translateFireError(err error) error {
	switch {
	case errors.Is(err, domainwf.ErrUnauthorized):
		return apperr.Wrap(apperr.KindUnauthorized, err)
	case errors.Is(err, domainwf.ErrInvalidTransition), errors.Is(err, domainwf.ErrGuardFailed):
		return apperr.Wrap(apperr.KindInvalidTransition, err)
	default:
		return err
	}
}

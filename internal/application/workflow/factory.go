package workflow

import (
	"context"

	"github.com/garyjia/asset-registry/internal/domain/entity"
	domainwf "github.com/garyjia/asset-registry/internal/domain/workflow"
)

// BuildAssetStateMachine creates a state machine configured for the asset
// approval workflow. uploadedBy is the only identity allowed to resubmit and
// requiresMinistryReview routes a first-tier approval to ministry review.
func BuildAssetStateMachine(initialState domainwf.State, uploadedBy string, requiresMinistryReview bool) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	needsReview := func(context.Context) bool { return requiresMinistryReview }
	noReview := func(context.Context) bool { return !requiresMinistryReview }

	// PENDING: first-tier review
	builder.Configure(domainwf.StatePending).
		PermitIf(domainwf.TriggerApprove, domainwf.StatePendingMinistryReview, needsReview).
		PermitIf(domainwf.TriggerApprove, domainwf.StateApproved, noReview).
		Permit(domainwf.TriggerReject, domainwf.StateRejected).
		Authorize(domainwf.TriggerApprove, entity.RoleAgencyApprover).
		Authorize(domainwf.TriggerReject, entity.RoleAgencyApprover)

	// PENDING_MINISTRY_REVIEW: second-tier review
	builder.Configure(domainwf.StatePendingMinistryReview).
		Permit(domainwf.TriggerApprove, domainwf.StateApproved).
		Permit(domainwf.TriggerReject, domainwf.StateRejected).
		Authorize(domainwf.TriggerApprove, entity.RoleMinistryAdmin).
		Authorize(domainwf.TriggerReject, entity.RoleMinistryAdmin)

	// REJECTED: only the original uploader may send it back
	builder.Configure(domainwf.StateRejected).
		Permit(domainwf.TriggerResubmit, domainwf.StatePending).
		AuthorizeIf(domainwf.TriggerResubmit, func(actor entity.Actor) bool {
			return uploadedBy != "" && actor.ID == uploadedBy
		})

	// APPROVED is terminal

	return builder.Build(initialState)
}

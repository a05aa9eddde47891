package entity

// Status constants for AssetRecord
const (
	StatusPending               = "pending"
	StatusPendingMinistryReview = "pending_ministry_review"
	StatusApproved              = "approved"
	StatusRejected              = "rejected"
)

// Actor roles
const (
	RoleAgency         = "agency"          // uploader
	RoleAgencyApprover = "agency-approver" // first-tier reviewer
	RoleMinistryAdmin  = "ministry-admin"  // second-tier reviewer
	RoleFederalAdmin   = "federal-admin"   // read/aggregate oversight
)

// Rejection levels recorded on a rejected record
const (
	RejectionLevelApprover      = "approver"
	RejectionLevelMinistryAdmin = "ministry-admin"
	RejectionLevelFederalAdmin  = "federal-admin"
)

// Audit action constants
const (
	ActionCreate   = "create"
	ActionEdit     = "edit"
	ActionApprove  = "approve"
	ActionReject   = "reject"
	ActionResubmit = "resubmit"

	ActionMinistryUpsert = "ministry.upsert"
)

// IsValidRole reports whether role is one of the known actor roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleAgency, RoleAgencyApprover, RoleMinistryAdmin, RoleFederalAdmin:
		return true
	default:
		return false
	}
}

// IsValidStatus reports whether status is one of the asset statuses.
func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusPendingMinistryReview, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

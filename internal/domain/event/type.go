package event

// Type identifies the type of domain event
type Type string

const (
	TypeAssetCreated     Type = "asset.created"
	TypeAssetEdited      Type = "asset.edited"
	TypeAssetApproved    Type = "asset.approved"
	TypeAssetRejected    Type = "asset.rejected"
	TypeAssetResubmitted Type = "asset.resubmitted"
	TypeStatusChanged    Type = "asset.status_changed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeAssetCreated,
		TypeAssetEdited,
		TypeAssetApproved,
		TypeAssetRejected,
		TypeAssetResubmitted,
		TypeStatusChanged:
		return true
	default:
		return false
	}
}

package entity

import "time"

// AssetRecord represents an uploaded government asset and its approval state
type AssetRecord struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	UploadedBy  string `json:"uploaded_by"`
	MinistryID  string `json:"ministry_id"`
	AgencyID    string `json:"agency_id"`
	Category    string `json:"category"`
	Description string `json:"description"`
	CostCents   int64  `json:"cost_cents"`
	Location    string `json:"location,omitempty"`

	// Category-specific fields, validated against the category schema
	Attributes map[string]interface{} `json:"attributes,omitempty"`

	ApprovedBy           string     `json:"approved_by,omitempty"`
	ApprovedAt           *time.Time `json:"approved_at,omitempty"`
	ApprovedByMinistry   string     `json:"approved_by_ministry,omitempty"`
	ApprovedByMinistryAt *time.Time `json:"approved_by_ministry_at,omitempty"`

	RejectedBy      string     `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	RejectionLevel  string     `json:"rejection_level,omitempty"`

	// Version increments on every write and guards compare-and-set
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate without touching the original
func (a *AssetRecord) Clone() *AssetRecord {
	if a == nil {
		return nil
	}
	c := *a
	if a.Attributes != nil {
		c.Attributes = make(map[string]interface{}, len(a.Attributes))
		for k, v := range a.Attributes {
			c.Attributes[k] = v
		}
	}
	c.ApprovedAt = copyTime(a.ApprovedAt)
	c.ApprovedByMinistryAt = copyTime(a.ApprovedByMinistryAt)
	c.RejectedAt = copyTime(a.RejectedAt)
	return &c
}

// ClearRejection removes the rejection fields set by a previous reject
func (a *AssetRecord) ClearRejection() {
	a.RejectedBy = ""
	a.RejectedAt = nil
	a.RejectionReason = ""
	a.RejectionLevel = ""
}

// AssetFilter narrows ListAssets results. Empty fields match everything.
type AssetFilter struct {
	Status     string
	MinistryID string
	AgencyID   string
	UploadedBy string
	Category   string
	Limit      int
	Offset     int
}

// AssetSummary is the aggregate view for federal administrators
type AssetSummary struct {
	Total             int            `json:"total"`
	ByStatus          map[string]int `json:"by_status"`
	ByMinistry        map[string]int `json:"by_ministry"`
	ApprovedCostCents int64          `json:"approved_cost_cents"`
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

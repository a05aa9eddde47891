package entity

// Actor identifies who performs an operation. It is always passed
// explicitly; nothing reads identity from ambient session state.
type Actor struct {
	ID         string `json:"id"`
	Role       string `json:"role"`
	AgencyID   string `json:"agency_id,omitempty"`
	MinistryID string `json:"ministry_id,omitempty"`
}

package entity

import "time"

// Ministry is the organizational unit owning asset records.
// RequiresMinistryReview routes first-tier approvals to a second review.
type Ministry struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	RequiresMinistryReview bool      `json:"requires_ministry_review"`
	UpdatedAt              time.Time `json:"updated_at"`
}

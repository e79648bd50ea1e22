package models

// TrackedEntity is an externally hosted social-media account referenced by a
// roster slot. Immutable once assigned to a roster; follower count is refreshed
// by the roster collaborator, not by this engine.
type TrackedEntity struct {
	ID            int    `json:"id" db:"id"`
	ExternalID    string `json:"external_id" db:"external_id"`
	DisplayName   string `json:"display_name" db:"display_name"`
	FollowerCount int64  `json:"follower_count" db:"follower_count"`
	Section       string `json:"section,omitempty" db:"section"`
	ImageURL      string `json:"image_url,omitempty" db:"image_url"`
}

package models

// EntityScore is the per-entity contribution to a participant's score,
// kept for auditability of the composite formula.
type EntityScore struct {
	EntityID   int     `json:"entity_id"`
	EntityName string  `json:"entity_name"`
	ExternalID string  `json:"external_id"`
	Engagement float64 `json:"engagement"`
	Followers  int64   `json:"followers"`
	Score      float64 `json:"score"`
}

// ParticipantScore is the computed composite score for one roster.
// Ephemeral: produced by the score calculator, consumed by the allocator.
type ParticipantScore struct {
	WalletID   int           `json:"wallet_id"`
	RosterName string        `json:"roster_name"`
	Score      float64       `json:"score"`
	Breakdown  []EntityScore `json:"breakdown,omitempty"`
}

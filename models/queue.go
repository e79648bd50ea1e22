package models

import "time"

// IngestionQueue is the per-tournament polling work list. ProcessingStartTime
// is an advisory claim: set while one scheduler run polls an entry, cleared on
// completion or failure. A claim older than the stale cutoff may be taken over.
type IngestionQueue struct {
	ID                  int        `json:"id" db:"id"`
	TournamentID        int        `json:"tournament_id" db:"tournament_id"`
	WindowStart         time.Time  `json:"window_start" db:"window_start"`
	WindowEnd           time.Time  `json:"window_end" db:"window_end"`
	IsActive            bool       `json:"is_active" db:"is_active"`
	ProcessingStartTime *time.Time `json:"processing_start_time,omitempty" db:"processing_start_time"`
}

// QueueEntry is one tracked entity awaiting polls within a queue.
// Higher priority is polled first; a nil LastPolled sorts before everything.
type QueueEntry struct {
	ID         int        `json:"id" db:"id"`
	QueueID    int        `json:"queue_id" db:"queue_id"`
	EntityID   int        `json:"entity_id" db:"entity_id"`
	ExternalID string     `json:"external_id" db:"external_id"`
	Priority   int        `json:"priority" db:"priority"`
	LastPolled *time.Time `json:"last_polled,omitempty" db:"last_polled"`
}

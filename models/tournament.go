package models

import "time"

// TournamentStatus mirrors the tournament_status ENUM in the database.
type TournamentStatus string

const (
	StatusRegistrationOpen TournamentStatus = "registration_open"
	StatusOngoing          TournamentStatus = "ongoing"
	StatusCalculated       TournamentStatus = "calculated"
	StatusDistributed      TournamentStatus = "distributed"
	StatusNoParticipants   TournamentStatus = "no_participants"
)

// Tournament is a time-boxed competition with a fixed prize pool.
// Registration and roster mutation happen outside the engine; the engine
// reads these rows and flips Status/IsActive through the lifecycle sweep.
type Tournament struct {
	ID                  int              `json:"id" db:"id"`
	Name                string           `json:"name" db:"name"`
	Platform            string           `json:"platform" db:"platform"`
	PrizePool           float64          `json:"prize_pool" db:"prize_pool"`
	StartDate           time.Time        `json:"start_date" db:"start_date"`
	EndDate             time.Time        `json:"end_date" db:"end_date"`
	RegistrationEndDate time.Time        `json:"registration_end_date" db:"registration_end_date"`
	Status              TournamentStatus `json:"status" db:"status"`
	IsActive            bool             `json:"is_active" db:"is_active"`
	ParticipantCount    int              `json:"participant_count" db:"-"`
	VisitorCount        int              `json:"visitor_count" db:"-"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
}

// IsOngoing reports whether the tournament window contains the given instant.
func (t *Tournament) IsOngoing(now time.Time) bool {
	return t.IsActive && !now.Before(t.StartDate) && !now.After(t.EndDate)
}

// HasEnded reports whether the tournament window has closed.
func (t *Tournament) HasEnded(now time.Time) bool {
	return now.After(t.EndDate)
}

package models

import "time"

// PrizeAllocation is one participant's final standing in a tournament.
// Rank is 1-based and contiguous; Prize may be zero for ranks beyond the
// paid field. Paid flips exactly once, during distribution.
type PrizeAllocation struct {
	WalletID   int     `json:"wallet_id"`
	RosterName string  `json:"roster_name"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
	Prize      float64 `json:"prize"`
	Paid       bool    `json:"paid"`
}

// TournamentResult is the durable record of the latest calculated ranking.
// Recalculation overwrites Allocations and CalculatedAt but never resets
// Distributed once true; that flag is the exactly-once payout guard.
type TournamentResult struct {
	ID           int               `json:"id" db:"id"`
	TournamentID int               `json:"tournament_id" db:"tournament_id"`
	Allocations  []PrizeAllocation `json:"allocations" db:"-"`
	CalculatedAt time.Time         `json:"calculated_at" db:"calculated_at"`
	Distributed  bool              `json:"distributed" db:"distributed"`
}

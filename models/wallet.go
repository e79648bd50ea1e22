package models

import "time"

// WalletUser is the minimal view of a participant's wallet account needed by
// the ledger and the leaderboard. The full wallet/points ledger lives outside
// this engine.
type WalletUser struct {
	ID            int       `json:"id" db:"id"`
	WalletAddress string    `json:"wallet_address" db:"wallet_address"`
	Points        float64   `json:"points" db:"points"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

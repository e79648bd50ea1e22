package models

import "time"

// LeaderboardStatus is the user-visible readiness of a tournament's results.
type LeaderboardStatus string

const (
	LeaderboardPending   LeaderboardStatus = "pending"
	LeaderboardCompleted LeaderboardStatus = "completed"
)

// LeaderboardEntry is one row of the public leaderboard.
type LeaderboardEntry struct {
	Rank          int     `json:"rank"`
	RosterName    string  `json:"roster_name"`
	WalletAddress string  `json:"wallet_address"`
	Score         float64 `json:"score"`
	Prize         float64 `json:"prize"`
	Paid          bool    `json:"paid"`
}

// Leaderboard is the query-surface view over a tournament's stored result.
// Status stays pending until a result exists; partial rankings are never shown.
type Leaderboard struct {
	Status       LeaderboardStatus  `json:"status"`
	CalculatedAt *time.Time         `json:"calculated_at,omitempty"`
	Distributed  *bool              `json:"distributed,omitempty"`
	Entries      []LeaderboardEntry `json:"leaderboard"`
}

// EngagementSummary aggregates all snapshots of a tournament for display.
type EngagementSummary struct {
	Posts       int64         `json:"posts"`
	Likes       int64         `json:"likes"`
	Replies     int64         `json:"replies"`
	Reshares    int64         `json:"reshares"`
	Impressions int64         `json:"impressions"`
	RecentPosts []SummaryPost `json:"recent_posts"`
}

// SummaryPost is a recent post attributed to its tracked entity.
type SummaryPost struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
	Author    PostAuthor  `json:"author"`
	Metrics   PostMetrics `json:"metrics"`
}

// PostAuthor identifies the tracked entity that authored a summary post.
type PostAuthor struct {
	Name    string `json:"name"`
	Section string `json:"section,omitempty"`
	Image   string `json:"image,omitempty"`
}

package models

import "time"

// MaxRecentPosts bounds the per-snapshot recent-post list.
const MaxRecentPosts = 10

// PostMetrics holds the public counters of a single post.
type PostMetrics struct {
	LikeCount       int64 `json:"like_count"`
	ReplyCount      int64 `json:"reply_count"`
	ReshareCount    int64 `json:"reshare_count"`
	ImpressionCount int64 `json:"impression_count"`
}

// EngagementPost is one recent post kept alongside a snapshot for the
// engagement summary surface.
type EngagementPost struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
	Metrics   PostMetrics `json:"metrics"`
}

// EngagementSnapshot is the cumulative engagement of one tracked entity within
// one tournament window. Counters are cumulative-since-window-start and are
// replaced (never summed) on every poll; they must never decrease.
type EngagementSnapshot struct {
	ID              int              `json:"id" db:"id"`
	TournamentID    int              `json:"tournament_id" db:"tournament_id"`
	EntityID        int              `json:"entity_id" db:"entity_id"`
	ExternalID      string           `json:"external_id" db:"external_id"`
	PostCount       int64            `json:"post_count" db:"post_count"`
	LikeCount       int64            `json:"like_count" db:"like_count"`
	ReplyCount      int64            `json:"reply_count" db:"reply_count"`
	ReshareCount    int64            `json:"reshare_count" db:"reshare_count"`
	ImpressionCount int64            `json:"impression_count" db:"impression_count"`
	RecentPosts     []EngagementPost `json:"recent_posts" db:"-"`
	LastUpdated     time.Time        `json:"last_updated" db:"last_updated"`
}

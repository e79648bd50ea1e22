package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloutleague/tournament-engine/models"
)

var ErrSnapshotNotFound = errors.New("engagement snapshot not found")

type SnapshotRepository interface {
	// Upsert replaces the entity's cumulative counters with the polled values.
	// Counters never go backwards: an API hiccup reporting a lower total keeps
	// the stored value.
	Upsert(ctx context.Context, exec SQLExecutor, snapshot *models.EngagementSnapshot) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.EngagementSnapshot, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresSnapshotRepository struct {
	db *sql.DB
}

func NewPostgresSnapshotRepository(db *sql.DB) SnapshotRepository {
	return &postgresSnapshotRepository{db: db}
}

func (r *postgresSnapshotRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSnapshotRepository) Upsert(ctx context.Context, exec SQLExecutor, snapshot *models.EngagementSnapshot) error {
	executor := r.getExecutor(exec)

	posts, err := json.Marshal(snapshot.RecentPosts)
	if err != nil {
		return fmt.Errorf("failed to marshal recent posts: %w", err)
	}

	query := `
		INSERT INTO engagement_snapshots (
			tournament_id, entity_id, external_id,
			post_count, like_count, reply_count, reshare_count, impression_count,
			recent_posts, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tournament_id, entity_id) DO UPDATE SET
			post_count       = GREATEST(engagement_snapshots.post_count, EXCLUDED.post_count),
			like_count       = GREATEST(engagement_snapshots.like_count, EXCLUDED.like_count),
			reply_count      = GREATEST(engagement_snapshots.reply_count, EXCLUDED.reply_count),
			reshare_count    = GREATEST(engagement_snapshots.reshare_count, EXCLUDED.reshare_count),
			impression_count = GREATEST(engagement_snapshots.impression_count, EXCLUDED.impression_count),
			recent_posts     = EXCLUDED.recent_posts,
			last_updated     = EXCLUDED.last_updated
		RETURNING id`

	err = executor.QueryRowContext(ctx, query,
		snapshot.TournamentID, snapshot.EntityID, snapshot.ExternalID,
		snapshot.PostCount, snapshot.LikeCount, snapshot.ReplyCount,
		snapshot.ReshareCount, snapshot.ImpressionCount,
		posts, snapshot.LastUpdated,
	).Scan(&snapshot.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot for entity %d: %w", snapshot.EntityID, err)
	}
	return nil
}

func (r *postgresSnapshotRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.EngagementSnapshot, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, entity_id, external_id,
		       post_count, like_count, reply_count, reshare_count, impression_count,
		       recent_posts, last_updated
		FROM engagement_snapshots
		WHERE tournament_id = $1
		ORDER BY entity_id ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]models.EngagementSnapshot, 0)
	for rows.Next() {
		var s models.EngagementSnapshot
		var posts []byte
		if scanErr := rows.Scan(
			&s.ID, &s.TournamentID, &s.EntityID, &s.ExternalID,
			&s.PostCount, &s.LikeCount, &s.ReplyCount, &s.ReshareCount, &s.ImpressionCount,
			&posts, &s.LastUpdated,
		); scanErr != nil {
			return nil, scanErr
		}
		if len(posts) > 0 {
			if err := json.Unmarshal(posts, &s.RecentPosts); err != nil {
				return nil, fmt.Errorf("failed to unmarshal recent posts for entity %d: %w", s.EntityID, err)
			}
		}
		snapshots = append(snapshots, s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (r *postgresSnapshotRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM engagement_snapshots WHERE tournament_id = $1`, tournamentID)
	return err
}

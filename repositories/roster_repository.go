package repositories

import (
	"context"
	"database/sql"

	"github.com/cloutleague/tournament-engine/models"
)

// RosterRepository is the read-only view over the roster collaborator's
// tables. The engine never mutates rosters; it only consumes the joined
// slot list for queue sync and scoring.
type RosterRepository interface {
	ListSlotsByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.RosterSlot, error)
	ListEntitiesByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.TrackedEntity, error)
}

type postgresRosterRepository struct {
	db *sql.DB
}

func NewPostgresRosterRepository(db *sql.DB) RosterRepository {
	return &postgresRosterRepository{db: db}
}

func (r *postgresRosterRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRosterRepository) ListSlotsByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.RosterSlot, error) {
	executor := r.getExecutor(exec)
	// Ordered by roster name, then slot id, so tie-breaking downstream is stable.
	query := `
		SELECT rs.id, rs.tournament_id, rs.wallet_id, rs.roster_name,
		       rs.entity_id, te.external_id, te.display_name, te.follower_count
		FROM roster_slots rs
		JOIN tracked_entities te ON te.id = rs.entity_id
		WHERE rs.tournament_id = $1
		ORDER BY rs.roster_name ASC, rs.id ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]models.RosterSlot, 0)
	for rows.Next() {
		var s models.RosterSlot
		if scanErr := rows.Scan(
			&s.ID, &s.TournamentID, &s.WalletID, &s.RosterName,
			&s.EntityID, &s.ExternalID, &s.EntityName, &s.FollowerCount,
		); scanErr != nil {
			return nil, scanErr
		}
		slots = append(slots, s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}

// ListEntitiesByTournament returns the distinct tracked entities referenced by
// any roster slot of the tournament; this is the ingestion queue's input.
func (r *postgresRosterRepository) ListEntitiesByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.TrackedEntity, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT DISTINCT te.id, te.external_id, te.display_name, te.follower_count,
		       COALESCE(te.section, ''), COALESCE(te.image_url, '')
		FROM roster_slots rs
		JOIN tracked_entities te ON te.id = rs.entity_id
		WHERE rs.tournament_id = $1
		ORDER BY te.id ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entities := make([]models.TrackedEntity, 0)
	for rows.Next() {
		var e models.TrackedEntity
		if scanErr := rows.Scan(&e.ID, &e.ExternalID, &e.DisplayName, &e.FollowerCount, &e.Section, &e.ImageURL); scanErr != nil {
			return nil, scanErr
		}
		entities = append(entities, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return entities, nil
}

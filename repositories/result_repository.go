package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloutleague/tournament-engine/models"
)

var ErrResultNotFound = errors.New("tournament result not found")

type ResultRepository interface {
	GetByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.TournamentResult, error)
	// GetByTournamentForUpdate row-locks the result so concurrent distribution
	// attempts serialize on the distributed flag.
	GetByTournamentForUpdate(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.TournamentResult, error)
	// Upsert stores a fresh ranking. The distributed flag is never touched by
	// recalculation; only MarkDistributed flips it.
	Upsert(ctx context.Context, exec SQLExecutor, result *models.TournamentResult) error
	MarkDistributed(ctx context.Context, exec SQLExecutor, result *models.TournamentResult) error
}

type postgresResultRepository struct {
	db *sql.DB
}

func NewPostgresResultRepository(db *sql.DB) ResultRepository {
	return &postgresResultRepository{db: db}
}

func (r *postgresResultRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresResultRepository) getByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, forUpdate bool) (*models.TournamentResult, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, allocations, calculated_at, distributed
		FROM tournament_results
		WHERE tournament_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	result := &models.TournamentResult{}
	var allocations []byte
	err := executor.QueryRowContext(ctx, query, tournamentID).Scan(
		&result.ID, &result.TournamentID, &allocations, &result.CalculatedAt, &result.Distributed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	if len(allocations) > 0 {
		if err := json.Unmarshal(allocations, &result.Allocations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal allocations for tournament %d: %w", tournamentID, err)
		}
	}
	return result, nil
}

func (r *postgresResultRepository) GetByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.TournamentResult, error) {
	return r.getByTournament(ctx, exec, tournamentID, false)
}

func (r *postgresResultRepository) GetByTournamentForUpdate(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.TournamentResult, error) {
	return r.getByTournament(ctx, exec, tournamentID, true)
}

func (r *postgresResultRepository) Upsert(ctx context.Context, exec SQLExecutor, result *models.TournamentResult) error {
	executor := r.getExecutor(exec)

	allocations, err := json.Marshal(result.Allocations)
	if err != nil {
		return fmt.Errorf("failed to marshal allocations: %w", err)
	}

	query := `
		INSERT INTO tournament_results (tournament_id, allocations, calculated_at, distributed)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT (tournament_id) DO UPDATE SET
			allocations   = EXCLUDED.allocations,
			calculated_at = EXCLUDED.calculated_at
		RETURNING id, distributed`

	err = executor.QueryRowContext(ctx, query,
		result.TournamentID, allocations, result.CalculatedAt,
	).Scan(&result.ID, &result.Distributed)
	if err != nil {
		return fmt.Errorf("failed to upsert result for tournament %d: %w", result.TournamentID, err)
	}
	return nil
}

func (r *postgresResultRepository) MarkDistributed(ctx context.Context, exec SQLExecutor, result *models.TournamentResult) error {
	executor := r.getExecutor(exec)

	for i := range result.Allocations {
		if result.Allocations[i].Prize > 0 {
			result.Allocations[i].Paid = true
		}
	}
	allocations, err := json.Marshal(result.Allocations)
	if err != nil {
		return fmt.Errorf("failed to marshal allocations: %w", err)
	}

	query := `
		UPDATE tournament_results
		SET distributed = TRUE, allocations = $1
		WHERE tournament_id = $2 AND distributed = FALSE`

	res, err := executor.ExecContext(ctx, query, allocations, result.TournamentID)
	if err != nil {
		return err
	}
	if err := checkAffectedRows(res, ErrResultNotFound); err != nil {
		return err
	}
	result.Distributed = true
	return nil
}

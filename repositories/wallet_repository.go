package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/cloutleague/tournament-engine/models"
)

var ErrWalletNotFound = errors.New("wallet user not found")

type WalletRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.WalletUser, error)
	// GetAddressesByIDs returns wallet addresses keyed by wallet id; ids with
	// no matching row are simply absent from the map.
	GetAddressesByIDs(ctx context.Context, exec SQLExecutor, ids []int) (map[int]string, error)
	// CreditTournamentPrize adds the prize to the wallet's balance and writes
	// a ledger row in the same executor, so a rolled-back distribution leaves
	// no trace of the credit.
	CreditTournamentPrize(ctx context.Context, exec SQLExecutor, walletID, tournamentID int, amount float64, rank int) error
}

type postgresWalletRepository struct {
	db *sql.DB
}

func NewPostgresWalletRepository(db *sql.DB) WalletRepository {
	return &postgresWalletRepository{db: db}
}

func (r *postgresWalletRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresWalletRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.WalletUser, error) {
	executor := r.getExecutor(exec)
	query := `SELECT id, wallet_address, points, created_at FROM wallet_users WHERE id = $1`

	u := &models.WalletUser{}
	err := executor.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.WalletAddress, &u.Points, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *postgresWalletRepository) GetAddressesByIDs(ctx context.Context, exec SQLExecutor, ids []int) (map[int]string, error) {
	executor := r.getExecutor(exec)
	addresses := make(map[int]string, len(ids))
	if len(ids) == 0 {
		return addresses, nil
	}

	query := `SELECT id, wallet_address FROM wallet_users WHERE id = ANY($1)`
	rows, err := executor.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		var address string
		if scanErr := rows.Scan(&id, &address); scanErr != nil {
			return nil, scanErr
		}
		addresses[id] = address
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return addresses, nil
}

func (r *postgresWalletRepository) CreditTournamentPrize(ctx context.Context, exec SQLExecutor, walletID, tournamentID int, amount float64, rank int) error {
	executor := r.getExecutor(exec)

	update := `UPDATE wallet_users SET points = points + $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, update, amount, walletID)
	if err != nil {
		return fmt.Errorf("failed to credit wallet %d: %w", walletID, err)
	}
	if err := checkAffectedRows(result, ErrWalletNotFound); err != nil {
		return err
	}

	ledger := `
		INSERT INTO prize_ledger (wallet_id, tournament_id, amount, rank, credited_at)
		VALUES ($1, $2, $3, $4, NOW())`
	if _, err := executor.ExecContext(ctx, ledger, walletID, tournamentID, amount, rank); err != nil {
		return fmt.Errorf("failed to record prize ledger entry: %w", err)
	}
	return nil
}

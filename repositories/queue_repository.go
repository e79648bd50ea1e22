package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/cloutleague/tournament-engine/models"
)

var (
	ErrQueueNotFound = errors.New("ingestion queue not found")
	ErrEntryNotFound = errors.New("ingestion queue entry not found")
)

type QueueRepository interface {
	GetByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.IngestionQueue, error)
	Upsert(ctx context.Context, exec SQLExecutor, queue *models.IngestionQueue) error
	SyncEntries(ctx context.Context, exec SQLExecutor, queueID int, entities []models.TrackedEntity) error
	ListEntries(ctx context.Context, exec SQLExecutor, queueID int) ([]models.QueueEntry, error)

	// ClaimNext atomically claims the least-recently-polled active queue by
	// setting processing_start_time. A claim older than staleBefore is
	// considered abandoned and may be taken over.
	ClaimNext(ctx context.Context, now, staleBefore time.Time) (*models.IngestionQueue, error)
	Release(ctx context.Context, queueID int) error

	// NextEntry returns the single entry to poll: never-polled first, then
	// priority descending, then oldest last-polled.
	NextEntry(ctx context.Context, queueID int) (*models.QueueEntry, error)
	StampEntry(ctx context.Context, entryID int, polledAt time.Time) error

	SetActive(ctx context.Context, exec SQLExecutor, queueID int, active bool) error
	DeactivateByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
	ListInactive(ctx context.Context, exec SQLExecutor) ([]*models.IngestionQueue, error)
	Delete(ctx context.Context, exec SQLExecutor, queueID int) error
}

type postgresQueueRepository struct {
	db *sql.DB
}

func NewPostgresQueueRepository(db *sql.DB) QueueRepository {
	return &postgresQueueRepository{db: db}
}

func (r *postgresQueueRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const queueColumns = `id, tournament_id, window_start, window_end, is_active, processing_start_time`

func scanQueue(row interface{ Scan(...interface{}) error }) (*models.IngestionQueue, error) {
	q := &models.IngestionQueue{}
	err := row.Scan(&q.ID, &q.TournamentID, &q.WindowStart, &q.WindowEnd, &q.IsActive, &q.ProcessingStartTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQueueNotFound
		}
		return nil, err
	}
	return q, nil
}

func (r *postgresQueueRepository) GetByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.IngestionQueue, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + queueColumns + ` FROM ingestion_queues WHERE tournament_id = $1`
	return scanQueue(executor.QueryRowContext(ctx, query, tournamentID))
}

func (r *postgresQueueRepository) Upsert(ctx context.Context, exec SQLExecutor, queue *models.IngestionQueue) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO ingestion_queues (tournament_id, window_start, window_end, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tournament_id) DO UPDATE SET
			window_start = EXCLUDED.window_start,
			window_end   = EXCLUDED.window_end,
			is_active    = EXCLUDED.is_active
		RETURNING id`

	err := executor.QueryRowContext(ctx, query,
		queue.TournamentID, queue.WindowStart, queue.WindowEnd, queue.IsActive,
	).Scan(&queue.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert queue for tournament %d: %w", queue.TournamentID, err)
	}
	return nil
}

// SyncEntries reconciles the queue's entry set with the current roster:
// entities already queued keep their priority and last-polled state, new
// entities get fresh rows, removed entities are dropped. Snapshots of removed
// entities are intentionally untouched.
func (r *postgresQueueRepository) SyncEntries(ctx context.Context, exec SQLExecutor, queueID int, entities []models.TrackedEntity) error {
	executor := r.getExecutor(exec)

	ids := make([]int64, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, int64(e.ID))

		insert := `
			INSERT INTO queue_entries (queue_id, entity_id, external_id, priority)
			VALUES ($1, $2, $3, 0)
			ON CONFLICT (queue_id, entity_id) DO NOTHING`
		if _, err := executor.ExecContext(ctx, insert, queueID, e.ID, e.ExternalID); err != nil {
			return fmt.Errorf("failed to sync queue entry for entity %d: %w", e.ID, err)
		}
	}

	remove := `DELETE FROM queue_entries WHERE queue_id = $1 AND entity_id != ALL($2)`
	if _, err := executor.ExecContext(ctx, remove, queueID, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to drop stale queue entries: %w", err)
	}
	return nil
}

func (r *postgresQueueRepository) ListEntries(ctx context.Context, exec SQLExecutor, queueID int) ([]models.QueueEntry, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, queue_id, entity_id, external_id, priority, last_polled
		FROM queue_entries
		WHERE queue_id = $1
		ORDER BY id ASC`

	rows, err := executor.QueryContext(ctx, query, queueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.QueueEntry, 0)
	for rows.Next() {
		var e models.QueueEntry
		if scanErr := rows.Scan(&e.ID, &e.QueueID, &e.EntityID, &e.ExternalID, &e.Priority, &e.LastPolled); scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *postgresQueueRepository) ClaimNext(ctx context.Context, now, staleBefore time.Time) (*models.IngestionQueue, error) {
	// Single statement so two scheduler runs cannot claim the same queue.
	// Queues whose entries were polled longest ago come first.
	query := `
		UPDATE ingestion_queues SET processing_start_time = $1
		WHERE id = (
			SELECT q.id FROM ingestion_queues q
			WHERE q.is_active = TRUE
			  AND (q.processing_start_time IS NULL OR q.processing_start_time < $2)
			  AND EXISTS (SELECT 1 FROM queue_entries e WHERE e.queue_id = q.id)
			ORDER BY (
				SELECT MIN(COALESCE(e.last_polled, 'epoch'::timestamptz))
				FROM queue_entries e WHERE e.queue_id = q.id
			) ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + queueColumns

	queue, err := scanQueue(r.db.QueryRowContext(ctx, query, now, staleBefore))
	if err != nil {
		if errors.Is(err, ErrQueueNotFound) {
			return nil, nil // nothing to poll
		}
		return nil, err
	}
	return queue, nil
}

func (r *postgresQueueRepository) Release(ctx context.Context, queueID int) error {
	query := `UPDATE ingestion_queues SET processing_start_time = NULL WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, queueID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrQueueNotFound)
}

func (r *postgresQueueRepository) NextEntry(ctx context.Context, queueID int) (*models.QueueEntry, error) {
	query := `
		SELECT id, queue_id, entity_id, external_id, priority, last_polled
		FROM queue_entries
		WHERE queue_id = $1
		ORDER BY (last_polled IS NULL) DESC, priority DESC, last_polled ASC
		LIMIT 1`

	e := &models.QueueEntry{}
	err := r.db.QueryRowContext(ctx, query, queueID).Scan(
		&e.ID, &e.QueueID, &e.EntityID, &e.ExternalID, &e.Priority, &e.LastPolled,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (r *postgresQueueRepository) StampEntry(ctx context.Context, entryID int, polledAt time.Time) error {
	query := `UPDATE queue_entries SET last_polled = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, polledAt, entryID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEntryNotFound)
}

func (r *postgresQueueRepository) SetActive(ctx context.Context, exec SQLExecutor, queueID int, active bool) error {
	executor := r.getExecutor(exec)
	query := `UPDATE ingestion_queues SET is_active = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, active, queueID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrQueueNotFound)
}

func (r *postgresQueueRepository) DeactivateByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE ingestion_queues SET is_active = FALSE WHERE tournament_id = $1`
	_, err := executor.ExecContext(ctx, query, tournamentID)
	return err
}

func (r *postgresQueueRepository) ListInactive(ctx context.Context, exec SQLExecutor) ([]*models.IngestionQueue, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + queueColumns + ` FROM ingestion_queues WHERE is_active = FALSE`

	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	queues := make([]*models.IngestionQueue, 0)
	for rows.Next() {
		q, scanErr := scanQueue(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		queues = append(queues, q)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return queues, nil
}

func (r *postgresQueueRepository) Delete(ctx context.Context, exec SQLExecutor, queueID int) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM queue_entries WHERE queue_id = $1`, queueID); err != nil {
		return fmt.Errorf("failed to delete queue entries: %w", err)
	}
	result, err := executor.ExecContext(ctx, `DELETE FROM ingestion_queues WHERE id = $1`, queueID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrQueueNotFound)
}

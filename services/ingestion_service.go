package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloutleague/tournament-engine/models"
	"github.com/cloutleague/tournament-engine/repositories"
	"github.com/cloutleague/tournament-engine/social"
)

// staleClaimCutoff is how long a queue claim may sit before another scheduler
// run is allowed to take it over. Covers a poller that died mid-fetch.
const staleClaimCutoff = 20 * time.Minute

// SnapshotArchiver persists a tournament's snapshots to cold storage before
// the retention sweep purges them.
type SnapshotArchiver interface {
	Archive(ctx context.Context, tournamentID int, snapshots []models.EngagementSnapshot) (location string, err error)
}

type IngestionService interface {
	// SyncQueue makes the tournament's ingestion queue match its current
	// roster. Idempotent: existing entries keep their priority and
	// last-polled state.
	SyncQueue(ctx context.Context, tournamentID int) error
	// SyncAllQueues runs SyncQueue for every active tournament.
	SyncAllQueues(ctx context.Context) error
	// PollNext claims the stalest active queue, polls its most overdue entry
	// and refreshes the snapshot. Returns ErrNothingToPoll when no queue has
	// work.
	PollNext(ctx context.Context) error
	// CleanupInactive archives and purges snapshots and queues of retired
	// tournaments.
	CleanupInactive(ctx context.Context) error
}

type ingestionService struct {
	tournamentRepo repositories.TournamentRepository
	rosterRepo     repositories.RosterRepository
	queueRepo      repositories.QueueRepository
	snapshotRepo   repositories.SnapshotRepository
	txRunner       repositories.TxRunner
	metrics        social.MetricsClient
	archiver       SnapshotArchiver
	logger         *slog.Logger
	now            func() time.Time
}

func NewIngestionService(
	tournamentRepo repositories.TournamentRepository,
	rosterRepo repositories.RosterRepository,
	queueRepo repositories.QueueRepository,
	snapshotRepo repositories.SnapshotRepository,
	txRunner repositories.TxRunner,
	metrics social.MetricsClient,
	archiver SnapshotArchiver,
	logger *slog.Logger,
) IngestionService {
	return &ingestionService{
		tournamentRepo: tournamentRepo,
		rosterRepo:     rosterRepo,
		queueRepo:      queueRepo,
		snapshotRepo:   snapshotRepo,
		txRunner:       txRunner,
		metrics:        metrics,
		archiver:       archiver,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *ingestionService) SyncQueue(ctx context.Context, tournamentID int) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}

	entities, err := s.rosterRepo.ListEntitiesByTournament(ctx, nil, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to list roster entities for tournament %d: %w", tournamentID, err)
	}

	active := tournament.IsActive && !tournament.HasEnded(s.now())

	return s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		queue := &models.IngestionQueue{
			TournamentID: tournamentID,
			WindowStart:  tournament.StartDate,
			WindowEnd:    tournament.EndDate,
			IsActive:     active,
		}
		if err := s.queueRepo.Upsert(ctx, exec, queue); err != nil {
			return err
		}
		if err := s.queueRepo.SyncEntries(ctx, exec, queue.ID, entities); err != nil {
			return err
		}
		s.logger.Info("synced ingestion queue",
			"tournament_id", tournamentID,
			"queue_id", queue.ID,
			"entities", len(entities),
			"active", active)
		return nil
	})
}

func (s *ingestionService) SyncAllQueues(ctx context.Context) error {
	tournaments, err := s.tournamentRepo.ListActive(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to list active tournaments: %w", err)
	}
	for _, tournament := range tournaments {
		if err := s.SyncQueue(ctx, tournament.ID); err != nil {
			s.logger.Error("queue sync failed",
				"tournament_id", tournament.ID, "error", err)
		}
	}
	return nil
}

func (s *ingestionService) PollNext(ctx context.Context) error {
	now := s.now()
	queue, err := s.queueRepo.ClaimNext(ctx, now, now.Add(-staleClaimCutoff))
	if err != nil {
		return fmt.Errorf("failed to claim ingestion queue: %w", err)
	}
	if queue == nil {
		return ErrNothingToPoll
	}

	// Claim held from here on: always released, even on failure paths.
	defer func() {
		if releaseErr := s.queueRepo.Release(ctx, queue.ID); releaseErr != nil {
			s.logger.Error("failed to release queue claim",
				"queue_id", queue.ID, "error", releaseErr)
		}
	}()

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, queue.TournamentID)
	if err != nil {
		return fmt.Errorf("failed to load tournament %d: %w", queue.TournamentID, err)
	}
	if !tournament.IsActive || tournament.HasEnded(now) {
		// Window closed underneath us; retire the queue so future cycles
		// skip it and the retention sweep can pick it up.
		if err := s.queueRepo.DeactivateByTournament(ctx, nil, queue.TournamentID); err != nil {
			return fmt.Errorf("failed to deactivate queue for tournament %d: %w", queue.TournamentID, err)
		}
		s.logger.Info("retired ingestion queue for ended tournament",
			"tournament_id", queue.TournamentID, "queue_id", queue.ID)
		return nil
	}

	entry, err := s.queueRepo.NextEntry(ctx, queue.ID)
	if err != nil {
		return fmt.Errorf("failed to pick queue entry: %w", err)
	}
	if entry == nil {
		return nil
	}

	stats, err := s.metrics.FetchEngagement(ctx, entry.ExternalID, queue.WindowStart, now)
	if err != nil {
		var rateLimited *social.RateLimitError
		if errors.As(err, &rateLimited) {
			// Released without stamping last_polled, so this entry stays at
			// the front of the line for the next cycle.
			s.logger.Warn("metrics API rate limited",
				"external_id", entry.ExternalID,
				"retry_after", rateLimited.RetryAfter)
			return nil
		}
		s.logger.Error("engagement fetch failed",
			"external_id", entry.ExternalID, "error", err)
		return nil
	}

	snapshot := &models.EngagementSnapshot{
		TournamentID:    queue.TournamentID,
		EntityID:        entry.EntityID,
		ExternalID:      entry.ExternalID,
		PostCount:       stats.PostCount,
		LikeCount:       stats.LikeCount,
		ReplyCount:      stats.ReplyCount,
		ReshareCount:    stats.ReshareCount,
		ImpressionCount: stats.ImpressionCount,
		RecentPosts:     stats.RecentPosts,
		LastUpdated:     now,
	}
	if err := s.snapshotRepo.Upsert(ctx, nil, snapshot); err != nil {
		return fmt.Errorf("failed to store snapshot for entity %d: %w", entry.EntityID, err)
	}

	if err := s.queueRepo.StampEntry(ctx, entry.ID, now); err != nil {
		return fmt.Errorf("failed to stamp queue entry %d: %w", entry.ID, err)
	}

	s.logger.Debug("polled engagement",
		"tournament_id", queue.TournamentID,
		"entity_id", entry.EntityID,
		"posts", stats.PostCount,
		"likes", stats.LikeCount)
	return nil
}

func (s *ingestionService) CleanupInactive(ctx context.Context) error {
	queues, err := s.queueRepo.ListInactive(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to list inactive queues: %w", err)
	}

	for _, queue := range queues {
		snapshots, err := s.snapshotRepo.ListByTournament(ctx, nil, queue.TournamentID)
		if err != nil {
			s.logger.Error("failed to list snapshots for cleanup",
				"tournament_id", queue.TournamentID, "error", err)
			continue
		}

		if s.archiver != nil && len(snapshots) > 0 {
			location, archiveErr := s.archiver.Archive(ctx, queue.TournamentID, snapshots)
			if archiveErr != nil {
				// Without the archive the purge would lose data; try again
				// on the next sweep.
				s.logger.Error("failed to archive snapshots, skipping purge",
					"tournament_id", queue.TournamentID, "error", archiveErr)
				continue
			}
			s.logger.Info("archived snapshots",
				"tournament_id", queue.TournamentID,
				"count", len(snapshots),
				"location", location)
		}

		purgeErr := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
			if err := s.snapshotRepo.DeleteByTournament(ctx, exec, queue.TournamentID); err != nil {
				return err
			}
			return s.queueRepo.Delete(ctx, exec, queue.ID)
		})
		if purgeErr != nil {
			s.logger.Error("failed to purge retired queue",
				"tournament_id", queue.TournamentID, "error", purgeErr)
			continue
		}
		s.logger.Info("purged retired ingestion queue",
			"tournament_id", queue.TournamentID, "queue_id", queue.ID)
	}
	return nil
}

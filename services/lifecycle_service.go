package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloutleague/tournament-engine/models"
	"github.com/cloutleague/tournament-engine/notify"
	"github.com/cloutleague/tournament-engine/repositories"
)

// calculationLookahead is how far before a tournament's end the sweep starts
// calculating winners, so a result already exists the moment the window
// closes.
const calculationLookahead = time.Hour

// PrizeLedger credits a participant's wallet. Implementations must accept the
// sweep's transaction executor so a rolled-back distribution also rolls back
// the credits.
type PrizeLedger interface {
	CreditTournamentPrize(ctx context.Context, exec repositories.SQLExecutor, walletID, tournamentID int, amount float64, rank int) error
}

type LifecycleService interface {
	// RunSweep walks every active tournament and applies whichever transition
	// is due. One tournament's failure never blocks the others.
	RunSweep(ctx context.Context) error
	// CalculateWinners scores the tournament's rosters and stores the ranked
	// allocation. Safe to call repeatedly before distribution; a no-op once
	// the result is distributed.
	CalculateWinners(ctx context.Context, tournamentID int) error
	// DistributePrizes credits every winning allocation exactly once and
	// retires the tournament, all in one transaction.
	DistributePrizes(ctx context.Context, tournamentID int) error
}

type lifecycleService struct {
	tournamentRepo repositories.TournamentRepository
	rosterRepo     repositories.RosterRepository
	snapshotRepo   repositories.SnapshotRepository
	resultRepo     repositories.ResultRepository
	queueRepo      repositories.QueueRepository
	ledger         PrizeLedger
	txRunner       repositories.TxRunner
	sink           notify.Sink
	logger         *slog.Logger
	now            func() time.Time
}

func NewLifecycleService(
	tournamentRepo repositories.TournamentRepository,
	rosterRepo repositories.RosterRepository,
	snapshotRepo repositories.SnapshotRepository,
	resultRepo repositories.ResultRepository,
	queueRepo repositories.QueueRepository,
	ledger PrizeLedger,
	txRunner repositories.TxRunner,
	sink notify.Sink,
	logger *slog.Logger,
) LifecycleService {
	return &lifecycleService{
		tournamentRepo: tournamentRepo,
		rosterRepo:     rosterRepo,
		snapshotRepo:   snapshotRepo,
		resultRepo:     resultRepo,
		queueRepo:      queueRepo,
		ledger:         ledger,
		txRunner:       txRunner,
		sink:           sink,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *lifecycleService) RunSweep(ctx context.Context) error {
	tournaments, err := s.tournamentRepo.ListActive(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to list active tournaments: %w", err)
	}

	now := s.now()
	for _, tournament := range tournaments {
		if err := s.sweepOne(ctx, tournament, now); err != nil {
			s.logger.Error("lifecycle transition failed",
				"tournament_id", tournament.ID,
				"status", tournament.Status,
				"error", err)
		}
	}
	return nil
}

func (s *lifecycleService) sweepOne(ctx context.Context, tournament *models.Tournament, now time.Time) error {
	// Distribution first: a tournament past its end with a pending result
	// should pay out before anything else.
	if tournament.HasEnded(now) {
		result, err := s.resultRepo.GetByTournament(ctx, nil, tournament.ID)
		switch {
		case err == nil && !result.Distributed:
			return s.DistributePrizes(ctx, tournament.ID)
		case err == nil:
			return nil
		case !errors.Is(err, repositories.ErrResultNotFound):
			return err
		}
		// Ended with no result at all: fall through and calculate now.
		return s.CalculateWinners(ctx, tournament.ID)
	}

	if now.After(tournament.EndDate.Add(-calculationLookahead)) {
		if _, err := s.resultRepo.GetByTournament(ctx, nil, tournament.ID); err == nil {
			return nil
		} else if !errors.Is(err, repositories.ErrResultNotFound) {
			return err
		}
		return s.CalculateWinners(ctx, tournament.ID)
	}
	return nil
}

func (s *lifecycleService) CalculateWinners(ctx context.Context, tournamentID int) error {
	return s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if !tournament.IsActive {
			return ErrTournamentNotActive
		}

		// Row-lock the result so a concurrent distribution serializes with
		// us; once distributed the ranking is frozen forever.
		existing, err := s.resultRepo.GetByTournamentForUpdate(ctx, exec, tournamentID)
		if err != nil && !errors.Is(err, repositories.ErrResultNotFound) {
			return err
		}
		if existing != nil && existing.Distributed {
			return ErrResultAlreadyDistributed
		}

		participantCount, err := s.tournamentRepo.CountParticipants(ctx, exec, tournamentID)
		if err != nil {
			return err
		}

		result := &models.TournamentResult{
			TournamentID: tournamentID,
			CalculatedAt: s.now(),
		}

		if participantCount < 1 {
			// Nobody registered: store an empty result so distribution can
			// retire the tournament through the normal path.
			if err := s.resultRepo.Upsert(ctx, exec, result); err != nil {
				return err
			}
			if err := s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.StatusNoParticipants); err != nil {
				return err
			}
			s.logger.Info("calculated empty result, no participants",
				"tournament_id", tournamentID)
			return nil
		}

		slots, err := s.rosterRepo.ListSlotsByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		snapshots, err := s.snapshotRepo.ListByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}

		rosters := models.GroupRosters(slots)
		scores := CalculateScores(rosters, snapshots)
		ranked := RankScores(scores)
		result.Allocations = AllocatePrizes(ranked, tournament.PrizePool, participantCount)

		if err := s.resultRepo.Upsert(ctx, exec, result); err != nil {
			return err
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.StatusCalculated); err != nil {
			return err
		}

		s.logger.Info("calculated tournament winners",
			"tournament_id", tournamentID,
			"participants", participantCount,
			"rosters", len(rosters),
			"allocations", len(result.Allocations))
		return nil
	})
}

func (s *lifecycleService) DistributePrizes(ctx context.Context, tournamentID int) error {
	var credited []models.PrizeAllocation

	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if !tournament.HasEnded(s.now()) {
			return ErrTournamentNotEnded
		}

		result, err := s.resultRepo.GetByTournamentForUpdate(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrResultNotFound) {
				return ErrResultNotCalculated
			}
			return err
		}
		if result.Distributed {
			return ErrResultAlreadyDistributed
		}

		for _, allocation := range result.Allocations {
			if allocation.Prize <= 0 {
				continue
			}
			if err := s.ledger.CreditTournamentPrize(ctx, exec,
				allocation.WalletID, tournamentID, allocation.Prize, allocation.Rank); err != nil {
				return fmt.Errorf("failed to credit wallet %d: %w", allocation.WalletID, err)
			}
			credited = append(credited, allocation)
		}

		if err := s.resultRepo.MarkDistributed(ctx, exec, result); err != nil {
			return err
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.StatusDistributed); err != nil {
			return err
		}
		if err := s.tournamentRepo.SetActive(ctx, exec, tournamentID, false); err != nil {
			return err
		}
		// Retire the ingestion queue alongside, so the retention sweep picks
		// it up.
		return s.queueRepo.DeactivateByTournament(ctx, exec, tournamentID)
	})
	if err != nil {
		// The guard errors mean another sweep got here first; not a failure.
		if errors.Is(err, ErrResultAlreadyDistributed) {
			return nil
		}
		return err
	}

	// Notifications fire only after the transaction commits; delivery is
	// best-effort.
	for _, allocation := range credited {
		s.sink.NotifyPrize(ctx, notify.PrizeNotification{
			WalletID:     allocation.WalletID,
			TournamentID: tournamentID,
			Rank:         allocation.Rank,
			Prize:        allocation.Prize,
			Message:      fmt.Sprintf("You finished rank %d and won %.4f", allocation.Rank, allocation.Prize),
		})
	}

	s.logger.Info("distributed tournament prizes",
		"tournament_id", tournamentID,
		"credited", len(credited))
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/cloutleague/tournament-engine/models"
	"github.com/cloutleague/tournament-engine/repositories"
)

// summaryRecentPosts bounds the engagement summary's post list.
const summaryRecentPosts = 5

type LeaderboardService interface {
	// GetLeaderboard returns the stored ranking, or a pending placeholder
	// when no result has been calculated yet. Partial rankings are never
	// exposed.
	GetLeaderboard(ctx context.Context, tournamentID int) (*models.Leaderboard, error)
	// GetEngagementSummary aggregates the tournament's current snapshots.
	GetEngagementSummary(ctx context.Context, tournamentID int) (*models.EngagementSummary, error)
}

type leaderboardService struct {
	tournamentRepo repositories.TournamentRepository
	resultRepo     repositories.ResultRepository
	walletRepo     repositories.WalletRepository
	snapshotRepo   repositories.SnapshotRepository
	rosterRepo     repositories.RosterRepository
}

func NewLeaderboardService(
	tournamentRepo repositories.TournamentRepository,
	resultRepo repositories.ResultRepository,
	walletRepo repositories.WalletRepository,
	snapshotRepo repositories.SnapshotRepository,
	rosterRepo repositories.RosterRepository,
) LeaderboardService {
	return &leaderboardService{
		tournamentRepo: tournamentRepo,
		resultRepo:     resultRepo,
		walletRepo:     walletRepo,
		snapshotRepo:   snapshotRepo,
		rosterRepo:     rosterRepo,
	}
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context, tournamentID int) (*models.Leaderboard, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, err
	}

	result, err := s.resultRepo.GetByTournament(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrResultNotFound) {
			return &models.Leaderboard{
				Status:  models.LeaderboardPending,
				Entries: []models.LeaderboardEntry{},
			}, nil
		}
		return nil, err
	}

	walletIDs := make([]int, 0, len(result.Allocations))
	for _, allocation := range result.Allocations {
		walletIDs = append(walletIDs, allocation.WalletID)
	}
	addresses, err := s.walletRepo.GetAddressesByIDs(ctx, nil, walletIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve wallet addresses: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(result.Allocations))
	for _, allocation := range result.Allocations {
		address, ok := addresses[allocation.WalletID]
		if !ok {
			address = "unknown"
		}
		entries = append(entries, models.LeaderboardEntry{
			Rank:          allocation.Rank,
			RosterName:    allocation.RosterName,
			WalletAddress: address,
			Score:         allocation.Score,
			Prize:         allocation.Prize,
			Paid:          allocation.Paid,
		})
	}

	calculatedAt := result.CalculatedAt
	distributed := result.Distributed
	return &models.Leaderboard{
		Status:       models.LeaderboardCompleted,
		CalculatedAt: &calculatedAt,
		Distributed:  &distributed,
		Entries:      entries,
	}, nil
}

func (s *leaderboardService) GetEngagementSummary(ctx context.Context, tournamentID int) (*models.EngagementSummary, error) {
	var (
		snapshots []models.EngagementSnapshot
		entities  []models.TrackedEntity
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snapshots, err = s.snapshotRepo.ListByTournament(gCtx, nil, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		entities, err = s.rosterRepo.ListEntitiesByTournament(gCtx, nil, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load engagement summary inputs: %w", err)
	}

	byEntity := make(map[int]models.TrackedEntity, len(entities))
	for _, e := range entities {
		byEntity[e.ID] = e
	}

	summary := &models.EngagementSummary{RecentPosts: []models.SummaryPost{}}
	for _, snapshot := range snapshots {
		summary.Posts += snapshot.PostCount
		summary.Likes += snapshot.LikeCount
		summary.Replies += snapshot.ReplyCount
		summary.Reshares += snapshot.ReshareCount
		summary.Impressions += snapshot.ImpressionCount

		entity := byEntity[snapshot.EntityID]
		for _, post := range snapshot.RecentPosts {
			summary.RecentPosts = append(summary.RecentPosts, models.SummaryPost{
				ID:        post.ID,
				Content:   post.Content,
				CreatedAt: post.CreatedAt,
				Metrics:   post.Metrics,
				Author: models.PostAuthor{
					Name:    entity.DisplayName,
					Section: entity.Section,
					Image:   entity.ImageURL,
				},
			})
		}
	}

	sort.Slice(summary.RecentPosts, func(i, j int) bool {
		return summary.RecentPosts[i].CreatedAt.After(summary.RecentPosts[j].CreatedAt)
	})
	if len(summary.RecentPosts) > summaryRecentPosts {
		summary.RecentPosts = summary.RecentPosts[:summaryRecentPosts]
	}
	return summary, nil
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloutleague/tournament-engine/models"
	"github.com/cloutleague/tournament-engine/repositories"
)

type fakeWalletRepo struct {
	addresses map[int]string
}

func (r *fakeWalletRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.WalletUser, error) {
	address, ok := r.addresses[id]
	if !ok {
		return nil, repositories.ErrWalletNotFound
	}
	return &models.WalletUser{ID: id, WalletAddress: address}, nil
}

func (r *fakeWalletRepo) GetAddressesByIDs(_ context.Context, _ repositories.SQLExecutor, ids []int) (map[int]string, error) {
	out := make(map[int]string)
	for _, id := range ids {
		if address, ok := r.addresses[id]; ok {
			out[id] = address
		}
	}
	return out, nil
}

func (r *fakeWalletRepo) CreditTournamentPrize(context.Context, repositories.SQLExecutor, int, int, float64, int) error {
	return nil
}

func TestGetLeaderboardPendingWithoutResult(t *testing.T) {
	tournaments := newFakeTournamentRepo()
	tournaments.tournaments[1] = &models.Tournament{ID: 1, IsActive: true}
	results := newFakeResultRepo()

	svc := NewLeaderboardService(tournaments, results, &fakeWalletRepo{},
		newFakeSnapshotRepo(), newFakeRosterRepo())

	leaderboard, err := svc.GetLeaderboard(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.LeaderboardPending, leaderboard.Status)
	assert.Nil(t, leaderboard.CalculatedAt)
	assert.Empty(t, leaderboard.Entries)
}

func TestGetLeaderboardUnknownTournament(t *testing.T) {
	svc := NewLeaderboardService(newFakeTournamentRepo(), newFakeResultRepo(),
		&fakeWalletRepo{}, newFakeSnapshotRepo(), newFakeRosterRepo())

	_, err := svc.GetLeaderboard(context.Background(), 404)
	assert.ErrorIs(t, err, repositories.ErrTournamentNotFound)
}

func TestGetLeaderboardCompleted(t *testing.T) {
	tournaments := newFakeTournamentRepo()
	tournaments.tournaments[1] = &models.Tournament{ID: 1, IsActive: true}
	results := newFakeResultRepo()
	calculatedAt := time.Now().Add(-time.Hour)
	require.NoError(t, results.Upsert(context.Background(), nil, &models.TournamentResult{
		TournamentID: 1,
		CalculatedAt: calculatedAt,
		Allocations: []models.PrizeAllocation{
			{WalletID: 11, RosterName: "alpha", Score: 90, Rank: 1, Prize: 200, Paid: true},
			{WalletID: 22, RosterName: "beta", Score: 40, Rank: 2, Prize: 100},
			{WalletID: 33, RosterName: "ghost", Score: 10, Rank: 3},
		},
	}))
	wallets := &fakeWalletRepo{addresses: map[int]string{11: "addr-11", 22: "addr-22"}}

	svc := NewLeaderboardService(tournaments, results, wallets,
		newFakeSnapshotRepo(), newFakeRosterRepo())

	leaderboard, err := svc.GetLeaderboard(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.LeaderboardCompleted, leaderboard.Status)
	require.NotNil(t, leaderboard.CalculatedAt)
	assert.True(t, leaderboard.CalculatedAt.Equal(calculatedAt))
	require.Len(t, leaderboard.Entries, 3)
	assert.Equal(t, "addr-11", leaderboard.Entries[0].WalletAddress)
	assert.True(t, leaderboard.Entries[0].Paid)
	// Wallet rows missing from the ledger still render.
	assert.Equal(t, "unknown", leaderboard.Entries[2].WalletAddress)
}

func TestGetEngagementSummaryAggregates(t *testing.T) {
	snapshots := newFakeSnapshotRepo()
	base := time.Now()
	require.NoError(t, snapshots.Upsert(context.Background(), nil, &models.EngagementSnapshot{
		TournamentID: 1, EntityID: 10,
		PostCount: 3, LikeCount: 100, ReplyCount: 10, ReshareCount: 20, ImpressionCount: 5000,
		RecentPosts: []models.EngagementPost{
			{ID: "p1", Content: "older", CreatedAt: base.Add(-2 * time.Hour)},
			{ID: "p2", Content: "newest", CreatedAt: base},
		},
	}))
	require.NoError(t, snapshots.Upsert(context.Background(), nil, &models.EngagementSnapshot{
		TournamentID: 1, EntityID: 11,
		PostCount: 1, LikeCount: 50,
		RecentPosts: []models.EngagementPost{
			{ID: "p3", Content: "middle", CreatedAt: base.Add(-time.Hour)},
		},
	}))
	rosters := newFakeRosterRepo()
	rosters.slots[1] = []models.RosterSlot{
		{TournamentID: 1, WalletID: 1, RosterName: "a", EntityID: 10, EntityName: "acct-a"},
		{TournamentID: 1, WalletID: 1, RosterName: "a", EntityID: 11, EntityName: "acct-b"},
	}

	svc := NewLeaderboardService(newFakeTournamentRepo(), newFakeResultRepo(),
		&fakeWalletRepo{}, snapshots, rosters)

	summary, err := svc.GetEngagementSummary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), summary.Posts)
	assert.Equal(t, int64(150), summary.Likes)
	assert.Equal(t, int64(5000), summary.Impressions)
	require.Len(t, summary.RecentPosts, 3)
	// Newest first.
	assert.Equal(t, "p2", summary.RecentPosts[0].ID)
	assert.Equal(t, "acct-a", summary.RecentPosts[0].Author.Name)
	assert.Equal(t, "p3", summary.RecentPosts[1].ID)
	assert.Equal(t, "p1", summary.RecentPosts[2].ID)
}

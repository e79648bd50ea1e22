package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloutleague/tournament-engine/models"
)

func rankedField(n int) []models.ParticipantScore {
	scores := make([]models.ParticipantScore, 0, n)
	for i := 0; i < n; i++ {
		scores = append(scores, models.ParticipantScore{
			WalletID:   i + 1,
			RosterName: fmt.Sprintf("roster-%d", i+1),
			Score:      float64(1000 - i),
		})
	}
	return scores
}

func TestAllocatePrizesEmptyField(t *testing.T) {
	allocations := AllocatePrizes(nil, 1000, 0)
	assert.Empty(t, allocations)
}

func TestAllocatePrizesSingleParticipant(t *testing.T) {
	allocations := AllocatePrizes(rankedField(1), 1000, 1)

	require.Len(t, allocations, 1)
	assert.Equal(t, 1, allocations[0].Rank)
	assert.InDelta(t, 200.0, allocations[0].Prize, 1e-9)
	assert.False(t, allocations[0].Paid)
}

func TestAllocatePrizesFirstPlaceShare(t *testing.T) {
	allocations := AllocatePrizes(rankedField(100), 5000, 100)

	require.NotEmpty(t, allocations)
	assert.Equal(t, 1, allocations[0].Rank)
	assert.InDelta(t, 1000.0, allocations[0].Prize, 1e-9)
}

func TestAllocatePrizesSecondTierDecaysWithRank(t *testing.T) {
	allocations := AllocatePrizes(rankedField(20), 1000, 20)

	// Ranks 2-10 form the second tier; each rank earns strictly less than
	// the one above it.
	for i := 1; i < 9; i++ {
		assert.Greater(t, allocations[i].Prize, allocations[i+1].Prize,
			"rank %d should out-earn rank %d", allocations[i].Rank, allocations[i+1].Rank)
	}

	// Rank 2 in a full tier: base 400/9, factor 9/9, boost 1.5.
	assert.InDelta(t, 400.0/9.0*1.5, allocations[1].Prize, 1e-9)
	// Rank 10: factor 1/9.
	assert.InDelta(t, 400.0/9.0*(1.0/9.0)*1.5, allocations[9].Prize, 1e-9)
}

func TestAllocatePrizesThirdTierUsesLowerBoost(t *testing.T) {
	allocations := AllocatePrizes(rankedField(60), 1000, 120)

	// Rank 11 leads the third tier: base 300/40, factor 40/40, boost 1.2.
	assert.Equal(t, 11, allocations[10].Rank)
	assert.InDelta(t, 300.0/40.0*1.2, allocations[10].Prize, 1e-9)
	// Rank 50 closes it with factor 1/40.
	assert.Equal(t, 50, allocations[49].Rank)
	assert.InDelta(t, 300.0/40.0*(1.0/40.0)*1.2, allocations[49].Prize, 1e-9)
}

func TestAllocatePrizesFourthTierSplitsEvenly(t *testing.T) {
	allocations := AllocatePrizes(rankedField(80), 1000, 160)

	// 50th percentile of 160 registrants is rank 80, so ranks 51-80 share
	// the last 20% evenly.
	share := 200.0 / 30.0
	for i := 50; i < 80; i++ {
		assert.InDelta(t, share, allocations[i].Prize, 1e-9, "rank %d", i+1)
	}
}

func TestAllocatePrizesZeroPrizeTail(t *testing.T) {
	allocations := AllocatePrizes(rankedField(100), 1000, 100)

	// Percentile cutoff at rank 50: everyone beyond gets a zero-prize
	// allocation but still appears in the result.
	require.Len(t, allocations, 100)
	for i := 50; i < 100; i++ {
		assert.Zero(t, allocations[i].Prize, "rank %d", i+1)
	}
}

func TestAllocatePrizesSmallFieldSkipsFourthTier(t *testing.T) {
	// 12 ranked, 12 registered: percentile cutoff is rank 6, which the
	// second tier already covers, so the fourth tier is empty and ranks
	// 11-12 still earn third-tier money.
	allocations := AllocatePrizes(rankedField(12), 1000, 12)

	require.Len(t, allocations, 12)
	assert.Positive(t, allocations[10].Prize)
	assert.Positive(t, allocations[11].Prize)
}

func TestAllocatePrizesRanksContiguous(t *testing.T) {
	allocations := AllocatePrizes(rankedField(37), 900, 74)

	require.Len(t, allocations, 37)
	for i, allocation := range allocations {
		assert.Equal(t, i+1, allocation.Rank)
		assert.GreaterOrEqual(t, allocation.Prize, 0.0)
	}
}

func TestAllocatePrizesDeterministic(t *testing.T) {
	first := AllocatePrizes(rankedField(55), 3333.33, 110)
	second := AllocatePrizes(rankedField(55), 3333.33, 110)
	assert.Equal(t, first, second)
}

func TestAllocatePrizesPreservesScoresAndOwners(t *testing.T) {
	ranked := rankedField(5)
	allocations := AllocatePrizes(ranked, 100, 5)

	require.Len(t, allocations, 5)
	for i := range ranked {
		assert.Equal(t, ranked[i].WalletID, allocations[i].WalletID)
		assert.Equal(t, ranked[i].RosterName, allocations[i].RosterName)
		assert.Equal(t, ranked[i].Score, allocations[i].Score)
	}
}

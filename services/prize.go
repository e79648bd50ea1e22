package services

import (
	"github.com/cloutleague/tournament-engine/models"
)

// Prize pool tier fractions. Rank 1 takes a fifth outright; the next two
// tiers decay with rank inside the tier; the last tier pays the remaining
// participants up to the 50th percentile evenly. Everyone else gets a
// zero-prize allocation so the stored result covers the full field.
const (
	firstPlaceShare = 0.20
	secondTierShare = 0.40
	thirdTierShare  = 0.30
	fourthTierShare = 0.20

	secondTierSize = 9  // ranks 2-10
	thirdTierSize  = 40 // ranks 11-50

	secondTierBoost = 1.5
	thirdTierBoost  = 1.2
)

// AllocatePrizes splits the prize pool across the ranked participants.
// participantCount is the number of registered participants, which may exceed
// len(ranked) when some registrants never fielded a roster. Pure function:
// identical inputs always produce identical allocations.
func AllocatePrizes(ranked []models.ParticipantScore, prizePool float64, participantCount int) []models.PrizeAllocation {
	allocations := make([]models.PrizeAllocation, 0, len(ranked))
	if len(ranked) == 0 {
		return allocations
	}

	push := func(index int, prize float64) {
		allocations = append(allocations, models.PrizeAllocation{
			WalletID:   ranked[index].WalletID,
			RosterName: ranked[index].RosterName,
			Score:      ranked[index].Score,
			Rank:       index + 1,
			Prize:      prize,
		})
	}

	push(0, prizePool*firstPlaceShare)

	secondTierCount := min(secondTierSize, len(ranked)-1)
	if secondTierCount > 0 {
		base := prizePool * secondTierShare / float64(secondTierCount)
		for i := 0; i < secondTierCount; i++ {
			rankFactor := float64(secondTierCount-i) / float64(secondTierCount)
			push(i+1, base*rankFactor*secondTierBoost)
		}
	}

	thirdTierStart := 1 + secondTierCount
	thirdTierCount := min(thirdTierSize, len(ranked)-thirdTierStart)
	if thirdTierCount > 0 {
		base := prizePool * thirdTierShare / float64(thirdTierCount)
		for i := 0; i < thirdTierCount; i++ {
			rankFactor := float64(thirdTierCount-i) / float64(thirdTierCount)
			push(i+thirdTierStart, base*rankFactor*thirdTierBoost)
		}
	}

	// Even split of the last tier among ranked participants between the end
	// of tier 3 and the field's 50th percentile.
	fourthTierStart := thirdTierStart + thirdTierCount
	fourthTierEnd := min(len(ranked), participantCount/2)
	fourthTierCount := max(0, fourthTierEnd-fourthTierStart)
	if fourthTierCount > 0 {
		share := prizePool * fourthTierShare / float64(fourthTierCount)
		for i := 0; i < fourthTierCount; i++ {
			push(i+fourthTierStart, share)
		}
	}

	for i := fourthTierStart + fourthTierCount; i < len(ranked); i++ {
		push(i, 0)
	}

	return allocations
}

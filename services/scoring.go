package services

import (
	"math"
	"sort"

	"github.com/cloutleague/tournament-engine/models"
)

// Engagement weights for the composite score. Reshares and replies count more
// than likes; impressions barely move the needle; steady posting earns a flat
// bonus per post.
const (
	weightLikes       = 1.0
	weightReshares    = 2.0
	weightReplies     = 1.5
	weightImpressions = 0.1
	weightPostCount   = 5.0

	engagementScale    = 20.0
	followerBonusScale = 15.0
)

// RawEngagement collapses a snapshot's counters into the weighted engagement
// value fed into the logarithmic score curve.
func RawEngagement(s *models.EngagementSnapshot) float64 {
	return float64(s.LikeCount)*weightLikes +
		float64(s.ReshareCount)*weightReshares +
		float64(s.ReplyCount)*weightReplies +
		float64(s.ImpressionCount)*weightImpressions +
		float64(s.PostCount)*weightPostCount
}

// EntityContribution maps one entity's engagement and follower count to its
// score contribution. Both terms are logarithmic so a single viral post or a
// huge account cannot dominate a roster on raw reach alone.
func EntityContribution(engagement float64, followers int64) float64 {
	followerBonus := math.Log10(float64(followers)+1) * followerBonusScale
	engagementFactor := math.Log(engagement+1) * engagementScale
	return engagementFactor * (1 + followerBonus/100)
}

// CalculateScores computes each roster's composite score from the current
// snapshots. Entities with no snapshot contribute zero. Pure: same inputs,
// same output, callable at any point of the tournament.
func CalculateScores(rosters []models.Roster, snapshots []models.EngagementSnapshot) []models.ParticipantScore {
	byEntity := make(map[int]*models.EngagementSnapshot, len(snapshots))
	for i := range snapshots {
		byEntity[snapshots[i].EntityID] = &snapshots[i]
	}

	scores := make([]models.ParticipantScore, 0, len(rosters))
	for _, roster := range rosters {
		ps := models.ParticipantScore{
			WalletID:   roster.WalletID,
			RosterName: roster.RosterName,
		}
		for _, slot := range roster.Slots {
			snapshot, ok := byEntity[slot.EntityID]
			if !ok {
				continue
			}
			engagement := RawEngagement(snapshot)
			contribution := EntityContribution(engagement, slot.FollowerCount)
			ps.Breakdown = append(ps.Breakdown, models.EntityScore{
				EntityID:   slot.EntityID,
				EntityName: slot.EntityName,
				ExternalID: slot.ExternalID,
				Engagement: engagement,
				Followers:  slot.FollowerCount,
				Score:      contribution,
			})
			ps.Score += contribution
		}
		scores = append(scores, ps)
	}
	return scores
}

// RankScores orders participants by score descending. Ties keep their input
// order, which is stable because the roster query orders by roster name.
func RankScores(scores []models.ParticipantScore) []models.ParticipantScore {
	ranked := make([]models.ParticipantScore, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

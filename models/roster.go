package models

// RosterSlot binds one tracked entity to a participant's roster for a
// tournament. Follower count is denormalized at assignment time so scoring
// does not depend on the live entity row.
type RosterSlot struct {
	ID            int    `json:"id" db:"id"`
	TournamentID  int    `json:"tournament_id" db:"tournament_id"`
	WalletID      int    `json:"wallet_id" db:"wallet_id"`
	RosterName    string `json:"roster_name" db:"roster_name"`
	EntityID      int    `json:"entity_id" db:"entity_id"`
	ExternalID    string `json:"external_id" db:"external_id"`
	EntityName    string `json:"entity_name" db:"entity_name"`
	FollowerCount int64  `json:"follower_count" db:"follower_count"`
}

// Roster groups a participant's slots for one tournament.
type Roster struct {
	WalletID   int
	RosterName string
	Slots      []RosterSlot
}

// GroupRosters folds a flat slot list into per-participant rosters,
// preserving the input order of first appearance.
func GroupRosters(slots []RosterSlot) []Roster {
	index := make(map[int]int, len(slots))
	rosters := make([]Roster, 0)
	for _, slot := range slots {
		i, ok := index[slot.WalletID]
		if !ok {
			i = len(rosters)
			index[slot.WalletID] = i
			rosters = append(rosters, Roster{WalletID: slot.WalletID, RosterName: slot.RosterName})
		}
		rosters[i].Slots = append(rosters[i].Slots, slot)
	}
	return rosters
}

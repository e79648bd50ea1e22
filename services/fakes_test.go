package services

import (
	"context"
	"sync"
	"time"

	"github.com/cloutleague/tournament-engine/models"
	"github.com/cloutleague/tournament-engine/notify"
	"github.com/cloutleague/tournament-engine/repositories"
	"github.com/cloutleague/tournament-engine/social"
)

// In-memory repository fakes. They ignore the SQLExecutor argument; the
// transactional tests assert call ordering instead of real transaction
// semantics.

type fakeTxRunner struct {
	mu        sync.Mutex
	runs      int
	failAfter func() error // invoked after fn succeeds, to simulate commit failure
}

func (r *fakeTxRunner) RunInTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()
	if err := fn(nil); err != nil {
		return err
	}
	if r.failAfter != nil {
		return r.failAfter()
	}
	return nil
}

type fakeTournamentRepo struct {
	tournaments  map[int]*models.Tournament
	participants map[int]int
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{
		tournaments:  make(map[int]*models.Tournament),
		participants: make(map[int]int),
	}
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *fakeTournamentRepo) ListActive(_ context.Context, _ repositories.SQLExecutor) ([]*models.Tournament, error) {
	var active []*models.Tournament
	for _, t := range r.tournaments {
		if t.IsActive {
			clone := *t
			active = append(active, &clone)
		}
	}
	return active, nil
}

func (r *fakeTournamentRepo) CountParticipants(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int, error) {
	return r.participants[tournamentID], nil
}

func (r *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) SetActive(_ context.Context, _ repositories.SQLExecutor, id int, active bool) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.IsActive = active
	return nil
}

type fakeRosterRepo struct {
	slots map[int][]models.RosterSlot
}

func newFakeRosterRepo() *fakeRosterRepo {
	return &fakeRosterRepo{slots: make(map[int][]models.RosterSlot)}
}

func (r *fakeRosterRepo) ListSlotsByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.RosterSlot, error) {
	return r.slots[tournamentID], nil
}

func (r *fakeRosterRepo) ListEntitiesByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.TrackedEntity, error) {
	seen := make(map[int]bool)
	var entities []models.TrackedEntity
	for _, slot := range r.slots[tournamentID] {
		if seen[slot.EntityID] {
			continue
		}
		seen[slot.EntityID] = true
		entities = append(entities, models.TrackedEntity{
			ID:            slot.EntityID,
			ExternalID:    slot.ExternalID,
			DisplayName:   slot.EntityName,
			FollowerCount: slot.FollowerCount,
		})
	}
	return entities, nil
}

type fakeQueueRepo struct {
	queues      map[int]*models.IngestionQueue // by queue id
	entries     map[int][]models.QueueEntry    // by queue id
	nextID      int
	deactivated []int
	deleted     []int
	stamped     []int
	released    []int
	syncCalls   int
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{
		queues:  make(map[int]*models.IngestionQueue),
		entries: make(map[int][]models.QueueEntry),
		nextID:  1,
	}
}

func (r *fakeQueueRepo) GetByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (*models.IngestionQueue, error) {
	for _, q := range r.queues {
		if q.TournamentID == tournamentID {
			clone := *q
			return &clone, nil
		}
	}
	return nil, repositories.ErrQueueNotFound
}

func (r *fakeQueueRepo) Upsert(_ context.Context, _ repositories.SQLExecutor, queue *models.IngestionQueue) error {
	for _, q := range r.queues {
		if q.TournamentID == queue.TournamentID {
			q.WindowStart = queue.WindowStart
			q.WindowEnd = queue.WindowEnd
			q.IsActive = queue.IsActive
			queue.ID = q.ID
			return nil
		}
	}
	queue.ID = r.nextID
	r.nextID++
	clone := *queue
	r.queues[queue.ID] = &clone
	return nil
}

func (r *fakeQueueRepo) SyncEntries(_ context.Context, _ repositories.SQLExecutor, queueID int, entities []models.TrackedEntity) error {
	r.syncCalls++
	existing := make(map[int]models.QueueEntry)
	for _, e := range r.entries[queueID] {
		existing[e.EntityID] = e
	}
	var synced []models.QueueEntry
	for _, entity := range entities {
		if prev, ok := existing[entity.ID]; ok {
			synced = append(synced, prev)
			continue
		}
		synced = append(synced, models.QueueEntry{
			ID:         r.nextID,
			QueueID:    queueID,
			EntityID:   entity.ID,
			ExternalID: entity.ExternalID,
		})
		r.nextID++
	}
	r.entries[queueID] = synced
	return nil
}

func (r *fakeQueueRepo) ListEntries(_ context.Context, _ repositories.SQLExecutor, queueID int) ([]models.QueueEntry, error) {
	return r.entries[queueID], nil
}

func (r *fakeQueueRepo) ClaimNext(_ context.Context, now, staleBefore time.Time) (*models.IngestionQueue, error) {
	for _, q := range r.queues {
		if !q.IsActive || len(r.entries[q.ID]) == 0 {
			continue
		}
		if q.ProcessingStartTime != nil && q.ProcessingStartTime.After(staleBefore) {
			continue
		}
		claimed := now
		q.ProcessingStartTime = &claimed
		clone := *q
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeQueueRepo) Release(_ context.Context, queueID int) error {
	r.released = append(r.released, queueID)
	if q, ok := r.queues[queueID]; ok {
		q.ProcessingStartTime = nil
		return nil
	}
	return repositories.ErrQueueNotFound
}

func (r *fakeQueueRepo) NextEntry(_ context.Context, queueID int) (*models.QueueEntry, error) {
	entries := r.entries[queueID]
	if len(entries) == 0 {
		return nil, nil
	}
	best := entries[0]
	for _, e := range entries[1:] {
		if betterEntry(e, best) {
			best = e
		}
	}
	return &best, nil
}

func betterEntry(a, b models.QueueEntry) bool {
	if (a.LastPolled == nil) != (b.LastPolled == nil) {
		return a.LastPolled == nil
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.LastPolled != nil && b.LastPolled != nil {
		return a.LastPolled.Before(*b.LastPolled)
	}
	return false
}

func (r *fakeQueueRepo) StampEntry(_ context.Context, entryID int, polledAt time.Time) error {
	r.stamped = append(r.stamped, entryID)
	for queueID, entries := range r.entries {
		for i := range entries {
			if entries[i].ID == entryID {
				stamp := polledAt
				r.entries[queueID][i].LastPolled = &stamp
				return nil
			}
		}
	}
	return repositories.ErrEntryNotFound
}

func (r *fakeQueueRepo) SetActive(_ context.Context, _ repositories.SQLExecutor, queueID int, active bool) error {
	if q, ok := r.queues[queueID]; ok {
		q.IsActive = active
		return nil
	}
	return repositories.ErrQueueNotFound
}

func (r *fakeQueueRepo) DeactivateByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	r.deactivated = append(r.deactivated, tournamentID)
	for _, q := range r.queues {
		if q.TournamentID == tournamentID {
			q.IsActive = false
		}
	}
	return nil
}

func (r *fakeQueueRepo) ListInactive(_ context.Context, _ repositories.SQLExecutor) ([]*models.IngestionQueue, error) {
	var inactive []*models.IngestionQueue
	for _, q := range r.queues {
		if !q.IsActive {
			clone := *q
			inactive = append(inactive, &clone)
		}
	}
	return inactive, nil
}

func (r *fakeQueueRepo) Delete(_ context.Context, _ repositories.SQLExecutor, queueID int) error {
	r.deleted = append(r.deleted, queueID)
	delete(r.queues, queueID)
	delete(r.entries, queueID)
	return nil
}

type fakeSnapshotRepo struct {
	snapshots map[int]map[int]*models.EngagementSnapshot // tournament -> entity
	upserts   int
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{snapshots: make(map[int]map[int]*models.EngagementSnapshot)}
}

func (r *fakeSnapshotRepo) Upsert(_ context.Context, _ repositories.SQLExecutor, snapshot *models.EngagementSnapshot) error {
	r.upserts++
	byEntity, ok := r.snapshots[snapshot.TournamentID]
	if !ok {
		byEntity = make(map[int]*models.EngagementSnapshot)
		r.snapshots[snapshot.TournamentID] = byEntity
	}
	clone := *snapshot
	if existing, ok := byEntity[snapshot.EntityID]; ok {
		clone.PostCount = max(existing.PostCount, clone.PostCount)
		clone.LikeCount = max(existing.LikeCount, clone.LikeCount)
		clone.ReplyCount = max(existing.ReplyCount, clone.ReplyCount)
		clone.ReshareCount = max(existing.ReshareCount, clone.ReshareCount)
		clone.ImpressionCount = max(existing.ImpressionCount, clone.ImpressionCount)
	}
	byEntity[snapshot.EntityID] = &clone
	return nil
}

func (r *fakeSnapshotRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.EngagementSnapshot, error) {
	var snapshots []models.EngagementSnapshot
	for _, s := range r.snapshots[tournamentID] {
		snapshots = append(snapshots, *s)
	}
	return snapshots, nil
}

func (r *fakeSnapshotRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	delete(r.snapshots, tournamentID)
	return nil
}

type fakeResultRepo struct {
	results map[int]*models.TournamentResult
	nextID  int
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{results: make(map[int]*models.TournamentResult), nextID: 1}
}

func (r *fakeResultRepo) GetByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (*models.TournamentResult, error) {
	result, ok := r.results[tournamentID]
	if !ok {
		return nil, repositories.ErrResultNotFound
	}
	clone := *result
	clone.Allocations = append([]models.PrizeAllocation(nil), result.Allocations...)
	return &clone, nil
}

func (r *fakeResultRepo) GetByTournamentForUpdate(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (*models.TournamentResult, error) {
	return r.GetByTournament(ctx, exec, tournamentID)
}

func (r *fakeResultRepo) Upsert(_ context.Context, _ repositories.SQLExecutor, result *models.TournamentResult) error {
	if existing, ok := r.results[result.TournamentID]; ok {
		existing.Allocations = append([]models.PrizeAllocation(nil), result.Allocations...)
		existing.CalculatedAt = result.CalculatedAt
		result.ID = existing.ID
		result.Distributed = existing.Distributed
		return nil
	}
	result.ID = r.nextID
	r.nextID++
	clone := *result
	clone.Allocations = append([]models.PrizeAllocation(nil), result.Allocations...)
	r.results[result.TournamentID] = &clone
	return nil
}

func (r *fakeResultRepo) MarkDistributed(_ context.Context, _ repositories.SQLExecutor, result *models.TournamentResult) error {
	stored, ok := r.results[result.TournamentID]
	if !ok || stored.Distributed {
		return repositories.ErrResultNotFound
	}
	for i := range result.Allocations {
		if result.Allocations[i].Prize > 0 {
			result.Allocations[i].Paid = true
		}
	}
	stored.Allocations = append([]models.PrizeAllocation(nil), result.Allocations...)
	stored.Distributed = true
	result.Distributed = true
	return nil
}

// recordingLedger records every credit so tests can assert exactly-once
// payouts. failOn aborts a batch mid-way to exercise retry semantics.
type recordingLedger struct {
	credits []ledgerCredit
	failOn  func(walletID int) error
}

type ledgerCredit struct {
	WalletID     int
	TournamentID int
	Amount       float64
	Rank         int
}

func (l *recordingLedger) CreditTournamentPrize(_ context.Context, _ repositories.SQLExecutor, walletID, tournamentID int, amount float64, rank int) error {
	if l.failOn != nil {
		if err := l.failOn(walletID); err != nil {
			return err
		}
	}
	l.credits = append(l.credits, ledgerCredit{
		WalletID:     walletID,
		TournamentID: tournamentID,
		Amount:       amount,
		Rank:         rank,
	})
	return nil
}

type recordingSink struct {
	mu            sync.Mutex
	notifications []notify.PrizeNotification
}

func (s *recordingSink) NotifyPrize(_ context.Context, n notify.PrizeNotification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
}

type fakeMetricsClient struct {
	stats map[string]*social.EngagementStats
	err   error
	calls []string
}

func (c *fakeMetricsClient) FetchEngagement(_ context.Context, externalID string, _, _ time.Time) (*social.EngagementStats, error) {
	c.calls = append(c.calls, externalID)
	if c.err != nil {
		return nil, c.err
	}
	if stats, ok := c.stats[externalID]; ok {
		return stats, nil
	}
	return &social.EngagementStats{}, nil
}

type recordingArchiver struct {
	archived []int
	err      error
}

func (a *recordingArchiver) Archive(_ context.Context, tournamentID int, _ []models.EngagementSnapshot) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.archived = append(a.archived, tournamentID)
	return "https://archive.example/t", nil
}

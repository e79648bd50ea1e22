package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloutleague/tournament-engine/models"
)

// SnapshotArchive is the JSON document written to cold storage before a
// retired tournament's snapshots are purged.
type SnapshotArchive struct {
	TournamentID int                         `json:"tournament_id"`
	ArchivedAt   time.Time                   `json:"archived_at"`
	Snapshots    []models.EngagementSnapshot `json:"snapshots"`
}

// SnapshotArchiver writes snapshot archives through a FileUploader.
type SnapshotArchiver struct {
	uploader FileUploader
}

func NewSnapshotArchiver(uploader FileUploader) *SnapshotArchiver {
	return &SnapshotArchiver{uploader: uploader}
}

// Archive uploads the tournament's snapshots as one JSON object and returns
// its public location. Keys are timestamped so re-archiving after a failed
// purge never overwrites an earlier archive.
func (a *SnapshotArchiver) Archive(ctx context.Context, tournamentID int, snapshots []models.EngagementSnapshot) (string, error) {
	doc := SnapshotArchive{
		TournamentID: tournamentID,
		ArchivedAt:   time.Now().UTC(),
		Snapshots:    snapshots,
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot archive: %w", err)
	}

	key := fmt.Sprintf("archives/tournament-%d/%s.json",
		tournamentID, doc.ArchivedAt.Format("20060102T150405Z"))

	result, err := a.uploader.Upload(ctx, key, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	return result.Location, nil
}

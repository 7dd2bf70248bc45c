// Package status applies operator-driven queue entry transitions:
// marking an entry playing or completing it into the play history.
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/queueuphq/queueup-server/internal/domain/queue"
	"github.com/queueuphq/queueup-server/internal/infra/store"
)

var (
	// ErrEntryNotFound means the queue entry does not exist for the venue.
	ErrEntryNotFound = errors.New("queue item not found")
	// ErrInvalidStatus means the requested transition is not supported.
	ErrInvalidStatus = errors.New("invalid status")
)

// StatusCompleted finishes an entry; it is a transition, not a stored
// state, because completed entries live in the play history.
const StatusCompleted = "completed"

// Store is the persistence surface the updater needs.
type Store interface {
	GetEntry(ctx context.Context, entryID, venueID string) (*queue.Entry, error)
	MarkPlaying(ctx context.Context, entryID string, startedAt time.Time) error
	InsertPlay(ctx context.Context, p *queue.PlayRecord) error
	DeleteEntry(ctx context.Context, entryID, venueID string) error
}

// Result is a completed status update.
type Result struct {
	Message string
}

// Updater applies queue entry status transitions.
type Updater struct {
	store Store
	now   func() time.Time
}

// NewUpdater creates a status updater.
func NewUpdater(store Store) *Updater {
	return &Updater{store: store, now: time.Now}
}

// Update transitions an entry to "playing" or "completed". Completion
// archives the entry to the play history before removing it.
func (u *Updater) Update(ctx context.Context, entryID, venueID, status string) (*Result, error) {
	entry, err := u.store.GetEntry(ctx, entryID, venueID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Wrap(ErrEntryNotFound, entryID)
		}
		return nil, errors.Wrap(err, "failed to load queue entry")
	}

	switch status {
	case string(queue.StatusPlaying):
		if err := u.store.MarkPlaying(ctx, entryID, u.now().UTC()); err != nil {
			return nil, errors.Wrap(err, "failed to update song status")
		}
	case StatusCompleted:
		if err := u.complete(ctx, entry); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Wrap(ErrInvalidStatus, status)
	}

	zlog.Info().Str("entry_id", entryID).Str("status", status).Msg("Song status updated")
	return &Result{Message: fmt.Sprintf("Song status updated to %s", status)}, nil
}

// complete archives the entry and then removes it, never the reverse.
func (u *Updater) complete(ctx context.Context, entry *queue.Entry) error {
	now := u.now().UTC()
	if err := u.store.InsertPlay(ctx, &queue.PlayRecord{
		VenueID:    entry.VenueID,
		TrackID:    entry.TrackID,
		SongName:   entry.SongName,
		ArtistName: entry.ArtistName,
		PlayedAt:   now,
		DurationMS: entry.PlayDuration(now),
	}); err != nil {
		return errors.Wrap(err, "failed to record song play")
	}
	if err := u.store.DeleteEntry(ctx, entry.ID, entry.VenueID); err != nil {
		return errors.Wrap(err, "failed to remove from queue")
	}
	return nil
}

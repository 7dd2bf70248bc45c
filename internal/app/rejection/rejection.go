// Package rejection removes queue entries by venue-operator action and
// records them to the rejection history.
package rejection

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/queueuphq/queueup-server/internal/app/token"
	"github.com/queueuphq/queueup-server/internal/domain/queue"
	"github.com/queueuphq/queueup-server/internal/infra/store"
)

// ErrEntryNotFound means the queue entry does not exist for the venue.
var ErrEntryNotFound = errors.New("queue item not found")

// Store is the persistence surface the handler needs.
type Store interface {
	GetEntry(ctx context.Context, entryID, venueID string) (*queue.Entry, error)
	InsertRejection(ctx context.Context, r *queue.RejectedSong) error
	DeleteEntry(ctx context.Context, entryID, venueID string) error
}

// Result is a completed rejection.
type Result struct {
	Message string
}

// Handler rejects queue entries independently of playback state.
type Handler struct {
	store  Store
	tokens *token.Manager
}

// NewHandler creates a rejection handler.
func NewHandler(store Store, tokens *token.Manager) *Handler {
	return &Handler{store: store, tokens: tokens}
}

// Reject records the entry to the rejection history and removes it from
// the queue, in that order. A failed history insert aborts the removal
// so a rejection is never lost silently.
func (h *Handler) Reject(ctx context.Context, entryID, venueID, reason string) (*Result, error) {
	entry, err := h.store.GetEntry(ctx, entryID, venueID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Wrap(ErrEntryNotFound, entryID)
		}
		return nil, errors.Wrap(err, "failed to load queue entry")
	}

	// Best effort only. Spotify has no remove-from-queue endpoint, so
	// the provider side keeps the track; a credential problem here must
	// not block the local rejection.
	if _, terr := h.tokens.Begin(ctx, venueID); terr != nil {
		zlog.Warn().Str("venue_id", venueID).Err(terr).Msg("Skipping provider queue check for rejection")
	} else {
		zlog.Info().Str("song_name", entry.SongName).
			Msg("Cannot remove track from Spotify queue, API does not support removal")
	}

	if reason == "" {
		reason = queue.DefaultRejectionReason
	}

	if err := h.store.InsertRejection(ctx, &queue.RejectedSong{
		VenueID:         venueID,
		TrackID:         entry.TrackID,
		SongName:        entry.SongName,
		ArtistName:      entry.ArtistName,
		RejectionReason: reason,
	}); err != nil {
		return nil, errors.Wrap(err, "failed to record song rejection")
	}

	if err := h.store.DeleteEntry(ctx, entryID, venueID); err != nil {
		return nil, errors.Wrap(err, "failed to remove from queue")
	}

	zlog.Info().Str("song_name", entry.SongName).Str("reason", reason).Msg("Song rejected")
	return &Result{
		Message: fmt.Sprintf("%q by %s has been rejected and removed from queue", entry.SongName, entry.ArtistName),
	}, nil
}

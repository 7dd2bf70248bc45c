// Package reconcile aligns a venue's local song queue with the
// provider's actual playback state. It is the only writer of terminal
// queue state: entries leave the queue through the play-history archive.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/queueuphq/queueup-server/internal/app/token"
	"github.com/queueuphq/queueup-server/internal/domain/queue"
	"github.com/queueuphq/queueup-server/internal/domain/track"
	"github.com/queueuphq/queueup-server/internal/infra/spotify"
)

// Store is the persistence surface the reconciler needs.
type Store interface {
	ListActiveEntries(ctx context.Context, venueID string) ([]queue.Entry, error)
	MarkPlaying(ctx context.Context, entryID string, startedAt time.Time) error
	InsertPlay(ctx context.Context, p *queue.PlayRecord) error
	DeleteEntry(ctx context.Context, entryID, venueID string) error
}

// Player is the provider surface the reconciler needs.
type Player interface {
	CurrentlyPlaying(ctx context.Context, accessToken string) (*spotify.Playback, error)
}

// CurrentTrack is the provider playback snapshot echoed to the caller.
type CurrentTrack struct {
	Name      string `json:"name"`
	Artist    string `json:"artist"`
	IsPlaying bool   `json:"isPlaying"`
}

// Result describes what one reconciliation pass changed.
type Result struct {
	Updates      []string
	CurrentTrack *CurrentTrack
}

// Reconciler runs one stateless reconciliation pass per call. The
// polling cadence is driven by the caller; concurrent passes for the
// same venue are tolerated and converge because every pass compares
// against current provider state rather than remembered state.
type Reconciler struct {
	store  Store
	tokens *token.Manager
	player Player
	now    func() time.Time
}

// NewReconciler creates a playback reconciler.
func NewReconciler(store Store, tokens *token.Manager, player Player) *Reconciler {
	return &Reconciler{store: store, tokens: tokens, player: player, now: time.Now}
}

// Sync fetches the provider's playback snapshot and transitions queue
// entries: a pending entry matching the active track becomes playing,
// and playing entries that no longer match are archived and removed.
func (r *Reconciler) Sync(ctx context.Context, venueID string) (*Result, error) {
	sess, err := r.tokens.Begin(ctx, venueID)
	if err != nil {
		return nil, err
	}

	var playback *spotify.Playback
	err = sess.Do(ctx, func(accessToken string) error {
		p, perr := r.player.CurrentlyPlaying(ctx, accessToken)
		playback = p
		return perr
	})
	if err != nil {
		if errors.Is(err, token.ErrRefreshFailed) || errors.Is(err, token.ErrAuthFailed) {
			return nil, err
		}
		// A transient snapshot failure is treated as "nothing playing";
		// the next poll self-heals.
		zlog.Warn().Str("venue_id", venueID).Err(err).Msg("Failed to fetch playback state")
		playback = nil
	}

	entries, err := r.store.ListActiveEntries(ctx, venueID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch queue")
	}

	result := &Result{Updates: []string{}}
	if playback != nil {
		result.CurrentTrack = &CurrentTrack{
			Name:      playback.TrackName,
			Artist:    track.JoinArtists(playback.Artists),
			IsPlaying: playback.IsPlaying,
		}
	}

	if playback != nil && playback.IsPlaying && playback.TrackID != "" {
		r.markActive(ctx, playback.TrackID, entries, result)
		for i := range entries {
			e := &entries[i]
			if e.Status == queue.StatusPlaying && e.TrackID != playback.TrackID {
				r.archive(ctx, venueID, e, fmt.Sprintf("Song %q completed and moved to plays", e.SongName), result)
			}
		}
		return result, nil
	}

	// Nothing playing: every playing entry has finished.
	for i := range entries {
		e := &entries[i]
		if e.Status == queue.StatusPlaying {
			r.archive(ctx, venueID, e, fmt.Sprintf("Song %q completed (no longer playing)", e.SongName), result)
		}
	}
	return result, nil
}

// markActive promotes the pending entry matching the active track.
func (r *Reconciler) markActive(ctx context.Context, trackID string, entries []queue.Entry, result *Result) {
	for i := range entries {
		e := &entries[i]
		if e.TrackID != trackID || e.Status != queue.StatusPending {
			continue
		}
		if err := r.store.MarkPlaying(ctx, e.ID, r.now().UTC()); err != nil {
			zlog.Error().Str("entry_id", e.ID).Err(err).Msg("Failed to mark entry playing")
			return
		}
		result.Updates = append(result.Updates, fmt.Sprintf("Song %q marked as playing", e.SongName))
		return
	}
}

// archive writes the play record and then removes the queue entry. The
// order is a hard requirement: if the archive insert fails, the entry
// is kept for the next pass rather than losing its history.
func (r *Reconciler) archive(ctx context.Context, venueID string, e *queue.Entry, update string, result *Result) {
	now := r.now().UTC()
	rec := &queue.PlayRecord{
		VenueID:    venueID,
		TrackID:    e.TrackID,
		SongName:   e.SongName,
		ArtistName: e.ArtistName,
		PlayedAt:   now,
		DurationMS: e.PlayDuration(now),
	}
	if err := r.store.InsertPlay(ctx, rec); err != nil {
		zlog.Error().Str("entry_id", e.ID).Err(err).Msg("Failed to archive play record, keeping queue entry")
		return
	}
	if err := r.store.DeleteEntry(ctx, e.ID, venueID); err != nil {
		zlog.Error().Str("entry_id", e.ID).Err(err).Msg("Failed to remove archived queue entry")
		return
	}
	result.Updates = append(result.Updates, update)
}

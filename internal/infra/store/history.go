package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/queueuphq/queueup-server/internal/domain/queue"
)

// InsertPlay appends one row to the play history.
func (s *Store) InsertPlay(ctx context.Context, p *queue.PlayRecord) error {
	const q = `
		INSERT INTO song_plays (id, venue_id, song_id, song_name, artist_name, played_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	playedAt := p.PlayedAt
	if playedAt.IsZero() {
		playedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, q,
		uuid.NewString(), p.VenueID, p.TrackID, p.SongName, p.ArtistName,
		playedAt, p.DurationMS,
	)
	return err
}

// InsertRejection appends one row to the rejection history.
func (s *Store) InsertRejection(ctx context.Context, r *queue.RejectedSong) error {
	const q = `
		INSERT INTO rejected_songs (id, venue_id, song_id, song_name, artist_name, rejection_reason, rejected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	rejectedAt := r.RejectedAt
	if rejectedAt.IsZero() {
		rejectedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, q,
		uuid.NewString(), r.VenueID, r.TrackID, r.SongName, r.ArtistName,
		r.RejectionReason, rejectedAt,
	)
	return err
}

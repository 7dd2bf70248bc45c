package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/queueuphq/queueup-server/internal/domain/queue"
)

const queueColumns = `id, venue_id, song_id, song_name, artist_name,
	position, status, requested_at, requester_name, started_playing_at`

// GetEntry returns one queue entry scoped to a venue.
func (s *Store) GetEntry(ctx context.Context, entryID, venueID string) (*queue.Entry, error) {
	q := `SELECT ` + queueColumns + ` FROM song_queue WHERE id = $1 AND venue_id = $2`

	var e queue.Entry
	err := s.pool.QueryRow(ctx, q, entryID, venueID).Scan(
		&e.ID, &e.VenueID, &e.TrackID, &e.SongName, &e.ArtistName,
		&e.Position, &e.Status, &e.RequestedAt, &e.RequesterName, &e.StartedPlayingAt,
	)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &e, nil
}

// ListActiveEntries returns a venue's pending and playing entries in
// position order (null positions last).
func (s *Store) ListActiveEntries(ctx context.Context, venueID string) ([]queue.Entry, error) {
	q := `SELECT ` + queueColumns + `
		FROM song_queue
		WHERE venue_id = $1 AND status IN ('pending', 'playing')
		ORDER BY position ASC NULLS LAST`

	rows, err := s.pool.Query(ctx, q, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []queue.Entry
	for rows.Next() {
		var e queue.Entry
		if err := rows.Scan(
			&e.ID, &e.VenueID, &e.TrackID, &e.SongName, &e.ArtistName,
			&e.Position, &e.Status, &e.RequestedAt, &e.RequesterName, &e.StartedPlayingAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MaxPosition returns the highest position currently assigned in a
// venue's queue, or 0 when the queue is empty.
func (s *Store) MaxPosition(ctx context.Context, venueID string) (int, error) {
	const q = `SELECT COALESCE(MAX(position), 0) FROM song_queue WHERE venue_id = $1`

	var max int
	if err := s.pool.QueryRow(ctx, q, venueID).Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}

// CountPending returns the number of pending entries for a venue.
func (s *Store) CountPending(ctx context.Context, venueID string) (int, error) {
	const q = `SELECT COUNT(*) FROM song_queue WHERE venue_id = $1 AND status = 'pending'`

	var n int
	if err := s.pool.QueryRow(ctx, q, venueID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// InsertEntry appends a new entry to the queue and returns its id.
func (s *Store) InsertEntry(ctx context.Context, e *queue.Entry) (string, error) {
	const q = `
		INSERT INTO song_queue (id, venue_id, song_id, song_name, artist_name, position, status, requested_at, requester_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	id := uuid.NewString()
	requestedAt := e.RequestedAt
	if requestedAt.IsZero() {
		requestedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, q,
		id, e.VenueID, e.TrackID, e.SongName, e.ArtistName,
		e.Position, e.Status, requestedAt, e.RequesterName,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// MarkPlaying transitions an entry to the playing state and stamps its
// start time.
func (s *Store) MarkPlaying(ctx context.Context, entryID string, startedAt time.Time) error {
	const q = `
		UPDATE song_queue
		SET status = 'playing', started_playing_at = $2, updated_at = now()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, q, entryID, startedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEntry removes one entry scoped to a venue.
func (s *Store) DeleteEntry(ctx context.Context, entryID, venueID string) error {
	const q = `DELETE FROM song_queue WHERE id = $1 AND venue_id = $2`

	tag, err := s.pool.Exec(ctx, q, entryID, venueID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

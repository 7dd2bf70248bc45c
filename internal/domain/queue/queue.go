// Package queue provides the song queue domain entities: the live queue
// entry and its two terminal archives (plays and rejections).
package queue

import "time"

// Status is the lifecycle state of a queue entry.
type Status string

const (
	StatusPending Status = "pending"
	StatusPlaying Status = "playing"
)

// Entry represents one admitted, not-yet-archived song request.
type Entry struct {
	ID               string
	VenueID          string
	TrackID          string
	SongName         string
	ArtistName       string // Concatenated artist names
	Position         *int   // Nil sorts last
	Status           Status
	RequestedAt      time.Time
	RequesterName    *string
	StartedPlayingAt *time.Time
}

// PlayDuration returns the best-effort wall-clock play duration in
// milliseconds, or nil if the entry never started playing. This is not
// the track's true duration.
func (e *Entry) PlayDuration(now time.Time) *int64 {
	if e.StartedPlayingAt == nil {
		return nil
	}
	ms := now.Sub(*e.StartedPlayingAt).Milliseconds()
	return &ms
}

// PlayRecord is one append-only play-history row, written only by the
// playback reconciler when an entry leaves the playing state.
type PlayRecord struct {
	ID         string
	VenueID    string
	TrackID    string
	SongName   string
	ArtistName string
	PlayedAt   time.Time
	DurationMS *int64
}

// RejectedSong is one append-only rejection-history row, written only by
// the rejection handler.
type RejectedSong struct {
	ID              string
	VenueID         string
	TrackID         string
	SongName        string
	ArtistName      string
	RejectionReason string
	RejectedAt      time.Time
}

// DefaultRejectionReason is recorded when the operator gives no reason.
const DefaultRejectionReason = "Rejected by venue"

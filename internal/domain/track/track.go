// Package track provides the Track domain entity.
package track

import (
	"strings"
	"time"
)

// Track represents a Spotify track entity.
// Contains only information retrieved from the Spotify API.
type Track struct {
	ID          string        // Spotify Track ID
	Name        string        // Track name
	Artists     []string      // Artist names
	Album       string        // Album name
	AlbumArtURL string        // Album art URL
	Duration    time.Duration // Track duration
	Explicit    bool          // Explicit content flag
}

// JoinArtists returns the artist names concatenated the way they are
// stored and displayed ("A, B, C").
func JoinArtists(artists []string) string {
	return strings.Join(artists, ", ")
}

// ArtistLine returns the track's artists as a single display string.
func (t *Track) ArtistLine() string {
	return JoinArtists(t.Artists)
}

// MatchesQuery reports whether the track name, any artist or the album
// contains the query, case-insensitive. Used for playlist-restricted search.
func (t *Track) MatchesQuery(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(t.Name), q) {
		return true
	}
	if strings.Contains(strings.ToLower(t.Album), q) {
		return true
	}
	for _, a := range t.Artists {
		if strings.Contains(strings.ToLower(a), q) {
			return true
		}
	}
	return false
}

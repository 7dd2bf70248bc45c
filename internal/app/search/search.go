// Package search serves the guest kiosk's track search, either against
// the full catalog or filtered down to the venue's playlist.
package search

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/queueuphq/queueup-server/internal/domain/track"
	"github.com/queueuphq/queueup-server/internal/domain/venue"
	"github.com/queueuphq/queueup-server/internal/infra/store"
)

var (
	// ErrNotConfigured means no credential row exists for the venue.
	ErrNotConfigured = errors.New("venue spotify credentials not configured")
	// ErrIncompleteCredential means the client id/secret pair is missing.
	ErrIncompleteCredential = errors.New("venue spotify credentials incomplete")
	// ErrNoPlaylist means the venue does not restrict requests to a playlist.
	ErrNoPlaylist = errors.New("venue does not restrict to playlist")
)

const (
	searchLimit   = 20
	playlistLimit = 100
)

// Store is the persistence surface the service needs.
type Store interface {
	GetCredential(ctx context.Context, venueID string) (*venue.Credential, error)
}

// Catalog is the app-credential provider surface the service needs.
type Catalog interface {
	SearchTracks(ctx context.Context, clientID, clientSecret, query string, limit int) ([]track.Track, error)
	PlaylistTracks(ctx context.Context, clientID, clientSecret, playlistID string, limit int) ([]track.Track, error)
}

// Service answers kiosk search and playlist-browse requests. Explicit
// tracks are filtered out of every response; the admission controller
// re-checks on admit.
type Service struct {
	store   Store
	catalog Catalog
}

// NewService creates a search service.
func NewService(store Store, catalog Catalog) *Service {
	return &Service{store: store, catalog: catalog}
}

// Search returns matching non-explicit tracks. A playlist-restricted
// venue searches within its playlist; otherwise the full catalog.
func (s *Service) Search(ctx context.Context, venueID, query string) ([]track.Track, error) {
	cred, err := s.credential(ctx, venueID)
	if err != nil {
		return nil, err
	}

	if cred.RestrictToPlaylist && cred.PlaylistID != "" {
		tracks, err := s.catalog.PlaylistTracks(ctx, cred.ClientID, cred.ClientSecret, cleanPlaylistID(cred.PlaylistID), playlistLimit)
		if err != nil {
			return nil, errors.Wrap(err, "failed to fetch playlist tracks")
		}
		return filterTracks(tracks, query), nil
	}

	tracks, err := s.catalog.SearchTracks(ctx, cred.ClientID, cred.ClientSecret, query, searchLimit)
	if err != nil {
		return nil, errors.Wrap(err, "spotify search failed")
	}
	result := filterTracks(tracks, "")
	zlog.Debug().Str("venue_id", venueID).Int("found", len(tracks)).Int("returned", len(result)).
		Msg("Catalog search completed")
	return result, nil
}

// PlaylistTracks returns the venue's full request playlist for the
// kiosk's browse view.
func (s *Service) PlaylistTracks(ctx context.Context, venueID string) ([]track.Track, error) {
	cred, err := s.credential(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if !cred.RestrictToPlaylist || cred.PlaylistID == "" {
		return nil, errors.Wrap(ErrNoPlaylist, venueID)
	}

	tracks, err := s.catalog.PlaylistTracks(ctx, cred.ClientID, cred.ClientSecret, cleanPlaylistID(cred.PlaylistID), playlistLimit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch playlist tracks")
	}
	return filterTracks(tracks, ""), nil
}

func (s *Service) credential(ctx context.Context, venueID string) (*venue.Credential, error) {
	cred, err := s.store.GetCredential(ctx, venueID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Wrap(ErrNotConfigured, venueID)
		}
		return nil, errors.Wrap(err, "failed to load credentials")
	}
	if !cred.Configured() {
		return nil, errors.Wrap(ErrIncompleteCredential, venueID)
	}
	return cred, nil
}

// cleanPlaylistID strips query parameters operators paste in from
// Spotify share links.
func cleanPlaylistID(id string) string {
	if i := strings.IndexByte(id, '?'); i >= 0 {
		return id[:i]
	}
	return id
}

// filterTracks drops explicit tracks and, when query is non-empty,
// tracks not matching it.
func filterTracks(tracks []track.Track, query string) []track.Track {
	out := make([]track.Track, 0, len(tracks))
	for i := range tracks {
		t := &tracks[i]
		if t.Explicit {
			continue
		}
		if query != "" && !t.MatchesQuery(query) {
			continue
		}
		out = append(out, *t)
	}
	return out
}

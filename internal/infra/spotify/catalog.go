package spotify

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zspotify "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/queueuphq/queueup-server/internal/domain/track"
)

// Catalog searches the Spotify catalog with a venue's application
// credentials (client-credentials grant, no user token). Used by the
// guest kiosk where only public catalog data is needed.
type Catalog struct{}

// NewCatalog creates a catalog client.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// SearchTracks searches the catalog for tracks matching the query.
func (c *Catalog) SearchTracks(ctx context.Context, clientID, clientSecret, query string, limit int) ([]track.Track, error) {
	if query == "" {
		return nil, errors.New("search query is required")
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	client := c.client(ctx, clientID, clientSecret)
	result, err := client.Search(ctx, query, zspotify.SearchTypeTrack, zspotify.Limit(limit))
	if err != nil {
		return nil, errors.Wrap(err, "failed to search")
	}

	tracks := make([]track.Track, 0, len(result.Tracks.Tracks))
	for _, t := range result.Tracks.Tracks {
		tracks = append(tracks, convertFullTrack(&t))
	}
	return tracks, nil
}

// PlaylistTracks retrieves up to limit tracks from a playlist.
func (c *Catalog) PlaylistTracks(ctx context.Context, clientID, clientSecret, playlistID string, limit int) ([]track.Track, error) {
	if playlistID == "" {
		return nil, errors.New("playlist id is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	client := c.client(ctx, clientID, clientSecret)
	page, err := client.GetPlaylistItems(ctx, zspotify.ID(playlistID), zspotify.Limit(limit))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get playlist items")
	}

	var tracks []track.Track
	for _, item := range page.Items {
		// Only process tracks (exclude episodes).
		if item.Track.Track != nil && item.Track.Track.ID != "" {
			tracks = append(tracks, convertFullTrack(item.Track.Track))
		}
	}
	return tracks, nil
}

func (c *Catalog) client(ctx context.Context, clientID, clientSecret string) *zspotify.Client {
	conf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return zspotify.New(conf.Client(ctx))
}

func convertFullTrack(t *zspotify.FullTrack) track.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	var albumArt string
	if len(t.Album.Images) > 0 {
		albumArt = t.Album.Images[0].URL
	}

	return track.Track{
		ID:          string(t.ID),
		Name:        t.Name,
		Artists:     artists,
		Album:       t.Album.Name,
		AlbumArtURL: albumArt,
		Duration:    time.Duration(t.Duration) * time.Millisecond,
		Explicit:    t.Explicit,
	}
}

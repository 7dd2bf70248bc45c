package store

import (
	"context"
	"time"

	"github.com/queueuphq/queueup-server/internal/domain/venue"
)

// GetCredential returns the Spotify credential row for the given venue.
func (s *Store) GetCredential(ctx context.Context, venueID string) (*venue.Credential, error) {
	const q = `
		SELECT user_id,
		       COALESCE(client_id, ''), COALESCE(client_secret, ''),
		       COALESCE(access_token, ''), COALESCE(refresh_token, ''),
		       token_expires_at,
		       COALESCE(playlist_id, ''),
		       COALESCE(restrict_to_playlist, false)
		FROM spotify_credentials
		WHERE user_id = $1`

	var c venue.Credential
	err := s.pool.QueryRow(ctx, q, venueID).Scan(
		&c.VenueID, &c.ClientID, &c.ClientSecret,
		&c.AccessToken, &c.RefreshToken, &c.TokenExpiresAt,
		&c.PlaylistID, &c.RestrictToPlaylist,
	)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &c, nil
}

// UpdateTokens persists a refreshed or newly exchanged token pair.
// This is the only token write path.
func (s *Store) UpdateTokens(ctx context.Context, venueID, accessToken, refreshToken string, expiresAt time.Time) error {
	const q = `
		UPDATE spotify_credentials
		SET access_token = $2, refresh_token = $3, token_expires_at = $4, updated_at = now()
		WHERE user_id = $1`

	tag, err := s.pool.Exec(ctx, q, venueID, accessToken, refreshToken, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearTokens removes the stored token pair on explicit disconnect.
// The client id/secret are kept so the venue can reconnect.
func (s *Store) ClearTokens(ctx context.Context, venueID string) error {
	const q = `
		UPDATE spotify_credentials
		SET access_token = NULL, refresh_token = NULL, token_expires_at = NULL, updated_at = now()
		WHERE user_id = $1`

	tag, err := s.pool.Exec(ctx, q, venueID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

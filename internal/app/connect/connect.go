// Package connect implements the venue-facing Spotify connection flow:
// building the authorize URL, handling the OAuth callback exchange and
// disconnecting.
package connect

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/queueuphq/queueup-server/internal/domain/venue"
	"github.com/queueuphq/queueup-server/internal/infra/spotify"
	"github.com/queueuphq/queueup-server/internal/infra/store"
)

var (
	// ErrVenueNotFound means the venue profile does not exist.
	ErrVenueNotFound = errors.New("venue not found")
	// ErrNotConfigured means the venue never entered its client id/secret.
	ErrNotConfigured = errors.New("spotify client id or secret is not configured")
	// ErrExchangeFailed means the provider rejected the authorization code.
	ErrExchangeFailed = errors.New("failed to exchange authorization code")
)

// Store is the persistence surface the connect flow needs.
type Store interface {
	GetProfile(ctx context.Context, venueID string) (*venue.Profile, error)
	GetCredential(ctx context.Context, venueID string) (*venue.Credential, error)
	UpdateTokens(ctx context.Context, venueID, accessToken, refreshToken string, expiresAt time.Time) error
	ClearTokens(ctx context.Context, venueID string) error
}

// Exchanger performs the provider's authorization-code grant.
type Exchanger interface {
	ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*spotify.TokenResponse, error)
}

// Service drives the connect and disconnect flows. The OAuth state
// parameter carries the venue id through the provider round trip.
type Service struct {
	store       Store
	provider    Exchanger
	redirectURL string
	now         func() time.Time
}

// NewService creates a connect service.
func NewService(store Store, provider Exchanger, redirectURL string) *Service {
	return &Service{store: store, provider: provider, redirectURL: redirectURL, now: time.Now}
}

// AuthorizeURL builds the provider consent URL for a venue.
func (s *Service) AuthorizeURL(ctx context.Context, venueID string) (string, error) {
	cred, err := s.store.GetCredential(ctx, venueID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", errors.Wrap(ErrNotConfigured, venueID)
		}
		return "", errors.Wrap(err, "failed to load credentials")
	}
	if !cred.Configured() {
		return "", errors.Wrap(ErrNotConfigured, venueID)
	}
	return spotify.AuthorizeURL(cred.ClientID, s.redirectURL, venueID, spotify.PlayerScopes), nil
}

// HandleCallback exchanges the authorization code and persists the
// token pair. It returns the venue name for the confirmation page.
func (s *Service) HandleCallback(ctx context.Context, code, venueID string) (string, error) {
	profile, err := s.store.GetProfile(ctx, venueID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", errors.Wrap(ErrVenueNotFound, venueID)
		}
		return "", errors.Wrap(err, "failed to load venue profile")
	}

	cred, err := s.store.GetCredential(ctx, venueID)
	if err != nil || !cred.Configured() {
		return "", errors.Wrap(ErrNotConfigured, venueID)
	}

	tok, err := s.provider.ExchangeCode(ctx, cred.ClientID, cred.ClientSecret, code, s.redirectURL)
	if err != nil {
		return "", errors.Mark(err, ErrExchangeFailed)
	}

	expiresAt := s.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	if err := s.store.UpdateTokens(ctx, venueID, tok.AccessToken, tok.RefreshToken, expiresAt); err != nil {
		return "", errors.Wrap(err, "failed to save spotify connection")
	}

	zlog.Info().Str("venue_id", venueID).Str("venue_name", profile.Name).Msg("Spotify connected")
	return profile.Name, nil
}

// Disconnect clears the stored token pair; the client id/secret stay so
// the venue can reconnect without reconfiguring.
func (s *Service) Disconnect(ctx context.Context, venueID string) error {
	if err := s.store.ClearTokens(ctx, venueID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errors.Wrap(ErrVenueNotFound, venueID)
		}
		return errors.Wrap(err, "failed to disconnect spotify")
	}
	zlog.Info().Str("venue_id", venueID).Msg("Spotify disconnected")
	return nil
}

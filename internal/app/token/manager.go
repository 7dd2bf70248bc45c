// Package token manages the per-venue Spotify token lifecycle: legacy
// credential normalization, proactive refresh near expiry, and a single
// reactive refresh-and-retry when a provider call returns 401.
package token

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/queueuphq/queueup-server/internal/domain/venue"
	"github.com/queueuphq/queueup-server/internal/infra/spotify"
)

var (
	// ErrNotConnected means the venue has no stored access token.
	ErrNotConnected = errors.New("venue has not connected spotify")
	// ErrNotConfigured means the venue never entered its client id/secret.
	ErrNotConfigured = errors.New("spotify client credentials not configured")
	// ErrMalformedCredential means the stored access token field could
	// not be normalized.
	ErrMalformedCredential = errors.New("invalid token format")
	// ErrRefreshFailed means the provider rejected the refresh grant.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrAuthFailed means the provider still returned 401 after a
	// successful refresh.
	ErrAuthFailed = errors.New("provider rejected refreshed token")
)

// refreshSkew triggers a proactive refresh when the token expires within
// this window.
const refreshSkew = 60 * time.Second

// CredentialStore is the subset of the store the manager needs.
type CredentialStore interface {
	GetCredential(ctx context.Context, venueID string) (*venue.Credential, error)
	UpdateTokens(ctx context.Context, venueID, accessToken, refreshToken string, expiresAt time.Time) error
}

// Refresher performs the provider's refresh-token grant.
type Refresher interface {
	RefreshAccessToken(ctx context.Context, clientID, clientSecret, refreshToken string) (*spotify.TokenResponse, error)
}

// Manager hands out per-operation token sessions.
type Manager struct {
	creds    CredentialStore
	provider Refresher
	now      func() time.Time
}

// NewManager creates a token lifecycle manager.
func NewManager(creds CredentialStore, provider Refresher) *Manager {
	return &Manager{creds: creds, provider: provider, now: time.Now}
}

// Begin loads and normalizes the venue's credential and returns a
// session for one operation. It performs no network calls; the refresh
// happens lazily on first use.
func (m *Manager) Begin(ctx context.Context, venueID string) (*Session, error) {
	cred, err := m.creds.GetCredential(ctx, venueID)
	if err != nil {
		return nil, errors.Wrap(ErrNotConnected, venueID)
	}
	if !cred.Connected() {
		return nil, errors.Wrap(ErrNotConnected, venueID)
	}
	if !cred.Configured() {
		return nil, errors.Wrap(ErrNotConfigured, venueID)
	}

	accessToken, refreshToken, err := normalize(cred)
	if err != nil {
		return nil, err
	}

	return &Session{
		m:            m,
		venueID:      venueID,
		clientID:     cred.ClientID,
		clientSecret: cred.ClientSecret,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		expiresAt:    cred.TokenExpiresAt,
	}, nil
}

// Session carries the normalized token state through one operation.
// Not safe for concurrent use; each request handler begins its own.
type Session struct {
	m            *Manager
	venueID      string
	clientID     string
	clientSecret string
	accessToken  string
	refreshToken string
	expiresAt    *time.Time
	checked      bool // proactive refresh attempted
	refreshed    bool // a refresh succeeded during this session
}

// Do runs one provider call with a valid token. A 401 triggers at most
// one refresh-and-retry for the whole session; a 401 after a successful
// refresh is terminal.
func (s *Session) Do(ctx context.Context, fn func(accessToken string) error) error {
	if !s.checked {
		s.checked = true
		if s.needsRefresh() {
			// Best effort: the reactive path below still covers a
			// stale token if this fails.
			if err := s.refresh(ctx); err != nil {
				zlog.Warn().Str("venue_id", s.venueID).Err(err).Msg("Proactive token refresh failed")
			}
		}
	}

	err := fn(s.accessToken)
	if err == nil || !spotify.IsUnauthorized(err) {
		return err
	}

	if s.refreshed {
		return errors.Wrap(ErrAuthFailed, s.venueID)
	}
	if rerr := s.refresh(ctx); rerr != nil {
		return rerr
	}

	err = fn(s.accessToken)
	if err != nil && spotify.IsUnauthorized(err) {
		return errors.Wrap(ErrAuthFailed, s.venueID)
	}
	return err
}

// needsRefresh reports whether the expiry is absent or inside the skew
// window.
func (s *Session) needsRefresh() bool {
	if s.expiresAt == nil {
		return true
	}
	return !s.m.now().Add(refreshSkew).Before(*s.expiresAt)
}

// refresh performs the refresh grant and persists the new token pair.
// On provider failure nothing is mutated.
func (s *Session) refresh(ctx context.Context) error {
	if s.refreshToken == "" {
		return errors.Wrap(ErrRefreshFailed, "no refresh token stored")
	}

	tok, err := s.m.provider.RefreshAccessToken(ctx, s.clientID, s.clientSecret, s.refreshToken)
	if err != nil {
		return errors.Mark(err, ErrRefreshFailed)
	}

	// Providers may omit rotation; keep the old refresh token then.
	refreshToken := tok.RefreshToken
	if refreshToken == "" {
		refreshToken = s.refreshToken
	}
	expiresAt := s.m.now().Add(time.Duration(tok.ExpiresIn) * time.Second)

	if err := s.m.creds.UpdateTokens(ctx, s.venueID, tok.AccessToken, refreshToken, expiresAt); err != nil {
		// The new token is still valid for this operation.
		zlog.Error().Str("venue_id", s.venueID).Err(err).Msg("Failed to persist refreshed token")
	}

	s.accessToken = tok.AccessToken
	s.refreshToken = refreshToken
	s.expiresAt = &expiresAt
	s.refreshed = true
	zlog.Info().Str("venue_id", s.venueID).Msg("Spotify token refreshed")
	return nil
}

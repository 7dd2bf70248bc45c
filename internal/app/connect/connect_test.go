package connect

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queueuphq/queueup-server/internal/domain/venue"
	"github.com/queueuphq/queueup-server/internal/infra/spotify"
	"github.com/queueuphq/queueup-server/internal/infra/store"
)

type fakeStore struct {
	profile *venue.Profile
	cred    *venue.Credential

	updatedAccess  string
	updatedRefresh string
	updateErr      error
	cleared        []string
	clearErr       error
}

func (f *fakeStore) GetProfile(_ context.Context, _ string) (*venue.Profile, error) {
	if f.profile == nil {
		return nil, store.ErrNotFound
	}
	return f.profile, nil
}

func (f *fakeStore) GetCredential(_ context.Context, _ string) (*venue.Credential, error) {
	if f.cred == nil {
		return nil, store.ErrNotFound
	}
	return f.cred, nil
}

func (f *fakeStore) UpdateTokens(_ context.Context, _, access, refresh string, _ time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updatedAccess = access
	f.updatedRefresh = refresh
	return nil
}

func (f *fakeStore) ClearTokens(_ context.Context, venueID string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared = append(f.cleared, venueID)
	return nil
}

type fakeExchanger struct {
	resp *spotify.TokenResponse
	err  error
	code string
}

func (f *fakeExchanger) ExchangeCode(_ context.Context, _, _, code, _ string) (*spotify.TokenResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.code = code
	return f.resp, nil
}

const redirectURL = "https://api.queueup.example/functions/spotify-callback"

func configuredStore() *fakeStore {
	return &fakeStore{
		profile: &venue.Profile{ID: "venue-1", Name: "The Spot"},
		cred:    &venue.Credential{VenueID: "venue-1", ClientID: "id", ClientSecret: "secret"},
	}
}

func TestAuthorizeURL(t *testing.T) {
	svc := NewService(configuredStore(), &fakeExchanger{}, redirectURL)

	u, err := svc.AuthorizeURL(context.Background(), "venue-1")
	require.NoError(t, err)

	assert.Contains(t, u, "client_id=id")
	assert.Contains(t, u, "state=venue-1")
}

func TestAuthorizeURL_NotConfigured(t *testing.T) {
	st := configuredStore()
	st.cred.ClientID = ""
	svc := NewService(st, &fakeExchanger{}, redirectURL)

	_, err := svc.AuthorizeURL(context.Background(), "venue-1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestHandleCallback_PersistsTokens(t *testing.T) {
	st := configuredStore()
	exchanger := &fakeExchanger{resp: &spotify.TokenResponse{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresIn:    3600,
	}}
	svc := NewService(st, exchanger, redirectURL)

	name, err := svc.HandleCallback(context.Background(), "auth-code", "venue-1")
	require.NoError(t, err)

	assert.Equal(t, "The Spot", name)
	assert.Equal(t, "auth-code", exchanger.code)
	assert.Equal(t, "access", st.updatedAccess)
	assert.Equal(t, "refresh", st.updatedRefresh)
}

func TestHandleCallback_VenueNotFound(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeExchanger{}, redirectURL)

	_, err := svc.HandleCallback(context.Background(), "auth-code", "missing")
	assert.ErrorIs(t, err, ErrVenueNotFound)
}

func TestHandleCallback_NotConfigured(t *testing.T) {
	st := configuredStore()
	st.cred = nil
	svc := NewService(st, &fakeExchanger{}, redirectURL)

	_, err := svc.HandleCallback(context.Background(), "auth-code", "venue-1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestHandleCallback_ExchangeFailed(t *testing.T) {
	st := configuredStore()
	exchanger := &fakeExchanger{err: &spotify.StatusError{StatusCode: 400, Message: "invalid_grant"}}
	svc := NewService(st, exchanger, redirectURL)

	_, err := svc.HandleCallback(context.Background(), "bad-code", "venue-1")
	assert.ErrorIs(t, err, ErrExchangeFailed)
	assert.Empty(t, st.updatedAccess)
}

func TestHandleCallback_PersistFailure(t *testing.T) {
	st := configuredStore()
	st.updateErr = errors.New("db down")
	svc := NewService(st, &fakeExchanger{resp: &spotify.TokenResponse{AccessToken: "a", ExpiresIn: 60}}, redirectURL)

	_, err := svc.HandleCallback(context.Background(), "auth-code", "venue-1")
	assert.Error(t, err)
}

func TestDisconnect(t *testing.T) {
	st := configuredStore()
	svc := NewService(st, &fakeExchanger{}, redirectURL)

	require.NoError(t, svc.Disconnect(context.Background(), "venue-1"))
	assert.Equal(t, []string{"venue-1"}, st.cleared)
}

func TestDisconnect_NotFound(t *testing.T) {
	st := configuredStore()
	st.clearErr = store.ErrNotFound
	svc := NewService(st, &fakeExchanger{}, redirectURL)

	err := svc.Disconnect(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrVenueNotFound)
}

package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queueuphq/queueup-server/internal/app/admission"
	"github.com/queueuphq/queueup-server/internal/app/payment"
	"github.com/queueuphq/queueup-server/internal/app/reconcile"
	"github.com/queueuphq/queueup-server/internal/app/rejection"
	"github.com/queueuphq/queueup-server/internal/app/status"
	"github.com/queueuphq/queueup-server/internal/domain/track"
)

type fakeServices struct {
	admitResult *admission.Result
	admitErr    error
	admitReq    *admission.Request

	sessionInfo *payment.SessionInfo
	sessionErr  error
	confirmRes  *payment.Confirmation
	confirmErr  error

	syncResult *reconcile.Result
	syncErr    error

	rejectResult *rejection.Result
	rejectErr    error

	statusResult *status.Result
	statusErr    error

	searchTracks   []track.Track
	searchErr      error
	playlistTracks []track.Track
	playlistErr    error

	authorizeURL  string
	authorizeErr  error
	callbackName  string
	callbackErr   error
	disconnectErr error
	disconnected  []string
}

func (f *fakeServices) Admit(_ context.Context, req admission.Request) (*admission.Result, error) {
	f.admitReq = &req
	if f.admitErr != nil {
		return nil, f.admitErr
	}
	return f.admitResult, nil
}

func (f *fakeServices) CreateSession(_ context.Context, _ payment.CreateRequest) (*payment.SessionInfo, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.sessionInfo, nil
}

func (f *fakeServices) Confirm(_ context.Context, _ string) (*payment.Confirmation, error) {
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return f.confirmRes, nil
}

func (f *fakeServices) Sync(_ context.Context, _ string) (*reconcile.Result, error) {
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	return f.syncResult, nil
}

func (f *fakeServices) Reject(_ context.Context, _, _, _ string) (*rejection.Result, error) {
	if f.rejectErr != nil {
		return nil, f.rejectErr
	}
	return f.rejectResult, nil
}

func (f *fakeServices) Update(_ context.Context, _, _, _ string) (*status.Result, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.statusResult, nil
}

func (f *fakeServices) Search(_ context.Context, _, _ string) ([]track.Track, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchTracks, nil
}

func (f *fakeServices) PlaylistTracks(_ context.Context, _ string) ([]track.Track, error) {
	if f.playlistErr != nil {
		return nil, f.playlistErr
	}
	return f.playlistTracks, nil
}

func (f *fakeServices) AuthorizeURL(_ context.Context, _ string) (string, error) {
	if f.authorizeErr != nil {
		return "", f.authorizeErr
	}
	return f.authorizeURL, nil
}

func (f *fakeServices) HandleCallback(_ context.Context, _, _ string) (string, error) {
	if f.callbackErr != nil {
		return "", f.callbackErr
	}
	return f.callbackName, nil
}

func (f *fakeServices) Disconnect(_ context.Context, venueID string) error {
	if f.disconnectErr != nil {
		return f.disconnectErr
	}
	f.disconnected = append(f.disconnected, venueID)
	return nil
}

func (f *fakeServices) Ping(_ context.Context) error { return nil }

func newTestServer(f *fakeServices) *httptest.Server {
	s := NewServer(f, f, f, f, f, f, f, f)
	return httptest.NewServer(s.Routes())
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestQueueSong_Success(t *testing.T) {
	f := &fakeServices{admitResult: &admission.Result{Message: `"Dancing Queen" by ABBA queued successfully!`}}
	server := newTestServer(f)
	defer server.Close()

	resp := postJSON(t, server.URL+"/functions/queue-song", `{
		"venueId": "venue-1",
		"trackId": "track123",
		"trackName": "Dancing Queen",
		"artistNames": ["ABBA"],
		"requesterName": "Alex"
	}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body["message"], "Dancing Queen")

	require.NotNil(t, f.admitReq)
	assert.Equal(t, "Alex", f.admitReq.RequesterName)
	assert.Empty(t, f.admitReq.PaymentRef)
}

func TestQueueSong_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"venue not found", admission.ErrVenueNotFound, 404, "Venue not found"},
		{"payment required", admission.ErrPaymentRequired, 402, "Payment required"},
		{"premium required", admission.ErrPremiumRequired, 403, "Premium"},
		{"no device", admission.ErrNoActiveDevice, 404, "No active Spotify device"},
		{"explicit", admission.ErrExplicitContent, 400, "Explicit content"},
		{"disabled", admission.ErrQueueingDisabled, 400, "disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(&fakeServices{admitErr: tt.err})
			defer server.Close()

			resp := postJSON(t, server.URL+"/functions/queue-song",
				`{"venueId": "v", "trackId": "t", "trackName": "n", "artistNames": ["a"]}`)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body := decodeBody(t, resp)
			assert.Contains(t, body["error"], tt.wantMsg)
		})
	}
}

func TestQueueSong_MissingFields(t *testing.T) {
	server := newTestServer(&fakeServices{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/functions/queue-song", `{"venueId": "v"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreflight(t *testing.T) {
	server := newTestServer(&fakeServices{})
	defer server.Close()

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/functions/queue-song", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "x-client-info")
}

func TestCreatePayment(t *testing.T) {
	f := &fakeServices{sessionInfo: &payment.SessionInfo{
		URL:       "https://checkout.stripe.com/pay/cs_test_abc",
		SessionID: "cs_test_abc",
		Price:     10.75,
		Currency:  "SEK",
	}}
	server := newTestServer(f)
	defer server.Close()

	resp := postJSON(t, server.URL+"/functions/create-song-payment",
		`{"venueId": "v", "trackId": "t", "trackName": "n", "artistNames": ["a"]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "cs_test_abc", body["sessionId"])
	assert.Equal(t, 10.75, body["price"])
	assert.Equal(t, "SEK", body["currency"])
}

func TestCreatePayment_PricingNotEnabled(t *testing.T) {
	server := newTestServer(&fakeServices{sessionErr: payment.ErrPricingNotEnabled})
	defer server.Close()

	resp := postJSON(t, server.URL+"/functions/create-song-payment",
		`{"venueId": "v", "trackId": "t", "trackName": "n"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVerifyPayment(t *testing.T) {
	f := &fakeServices{confirmRes: &payment.Confirmation{
		Message:  `"Dancing Queen" by ABBA queued successfully after payment!`,
		Amount:   10.75,
		Currency: "SEK",
	}}
	server := newTestServer(f)
	defer server.Close()

	resp := postJSON(t, server.URL+"/functions/verify-song-payment", `{"sessionId": "cs_test_abc"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 10.75, body["amount"])
}

func TestVerifyPayment_NotCompleted(t *testing.T) {
	server := newTestServer(&fakeServices{confirmErr: payment.ErrPaymentNotCompleted})
	defer server.Close()

	resp := postJSON(t, server.URL+"/functions/verify-song-payment", `{"sessionId": "cs"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Contains(t, body["error"], "Payment not completed")
}

func TestSyncPlayback(t *testing.T) {
	f := &fakeServices{syncResult: &reconcile.Result{
		Updates: []string{`Song "Dancing Queen" marked as playing`},
		CurrentTrack: &reconcile.CurrentTrack{
			Name:      "Dancing Queen",
			Artist:    "ABBA",
			IsPlaying: true,
		},
	}}
	server := newTestServer(f)
	defer server.Close()

	resp := postJSON(t, server.URL+"/functions/sync-spotify-playback", `{"venueId": "venue-1"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	updates, ok := body["updates"].([]any)
	require.True(t, ok)
	assert.Len(t, updates, 1)
	current, ok := body["currentTrack"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ABBA", current["artist"])
	assert.Equal(t, true, current["isPlaying"])
}

func TestRejectSong_NotFound(t *testing.T) {
	server := newTestServer(&fakeServices{rejectErr: rejection.ErrEntryNotFound})
	defer server.Close()

	resp := postJSON(t, server.URL+"/functions/reject-song", `{"queueItemId": "x", "venueId": "v"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRejectSong(t *testing.T) {
	f := &fakeServices{rejectResult: &rejection.Result{Message: "rejected"}}
	server := newTestServer(f)
	defer server.Close()

	resp := postJSON(t, server.URL+"/functions/reject-song",
		`{"queueItemId": "e1", "venueId": "v", "rejectionReason": "Too loud"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
}

func TestUpdateStatus_Invalid(t *testing.T) {
	server := newTestServer(&fakeServices{statusErr: status.ErrInvalidStatus})
	defer server.Close()

	resp := postJSON(t, server.URL+"/functions/update-song-status",
		`{"queueItemId": "e1", "venueId": "v", "status": "paused"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearch(t *testing.T) {
	f := &fakeServices{searchTracks: []track.Track{{
		ID:          "t1",
		Name:        "Dancing Queen",
		Artists:     []string{"ABBA"},
		Album:       "Arrival",
		AlbumArtURL: "http://img/arrival.jpg",
		Duration:    230 * time.Second,
	}}}
	server := newTestServer(f)
	defer server.Close()

	resp := postJSON(t, server.URL+"/functions/spotify-search", `{"venueId": "v", "query": "abba"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	tracks, ok := body["tracks"].([]any)
	require.True(t, ok)
	require.Len(t, tracks, 1)

	first := tracks[0].(map[string]any)
	assert.Equal(t, "t1", first["id"])
	assert.Equal(t, float64(230000), first["duration_ms"])
	artists := first["artists"].([]any)
	assert.Equal(t, "ABBA", artists[0].(map[string]any)["name"])
	album := first["album"].(map[string]any)
	assert.Equal(t, "Arrival", album["name"])
}

func TestSearch_MissingQuery(t *testing.T) {
	server := newTestServer(&fakeServices{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/functions/spotify-search", `{"venueId": "v"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthorize(t *testing.T) {
	f := &fakeServices{authorizeURL: "https://accounts.spotify.com/authorize?client_id=id"}
	server := newTestServer(f)
	defer server.Close()

	resp := postJSON(t, server.URL+"/functions/spotify-authorize", `{"venueId": "v"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Contains(t, body["url"], "accounts.spotify.com")
}

func TestDisconnect(t *testing.T) {
	f := &fakeServices{}
	server := newTestServer(f)
	defer server.Close()

	resp := postJSON(t, server.URL+"/functions/spotify-disconnect", `{"venueId": "venue-1"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp)
	assert.Equal(t, []string{"venue-1"}, f.disconnected)
}

func TestCallback_Success(t *testing.T) {
	f := &fakeServices{callbackName: "The Spot"}
	server := newTestServer(f)
	defer server.Close()

	resp, err := http.Get(server.URL + "/functions/spotify-callback?code=auth-code&state=venue-1")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Successfully Connected!")
	assert.Contains(t, string(page), "The Spot")
}

func TestCallback_ProviderError(t *testing.T) {
	server := newTestServer(&fakeServices{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/functions/spotify-callback?error=access_denied")
	require.NoError(t, err)
	defer resp.Body.Close()

	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Connection Failed")
	assert.Contains(t, string(page), "access_denied")
}

func TestCallback_MissingCode(t *testing.T) {
	server := newTestServer(&fakeServices{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/functions/spotify-callback?state=venue-1")
	require.NoError(t, err)
	defer resp.Body.Close()

	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Invalid Request")
}

func TestHealth(t *testing.T) {
	server := newTestServer(&fakeServices{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

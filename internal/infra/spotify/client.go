// Package spotify provides clients for the Spotify Web API: a
// venue-token player client and an app-credential catalog client.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/queueuphq/queueup-server/internal/domain/track"
)

// Client calls the player and track endpoints with a caller-supplied
// access token. Tokens are per venue and live in the database, so this
// client holds no token state and surfaces raw HTTP statuses through
// StatusError for the token lifecycle layer to act on.
type Client struct {
	apiBaseURL      string
	accountsBaseURL string
	httpClient      *http.Client
}

// NewClient creates a Spotify Web API client.
func NewClient() *Client {
	return &Client{
		apiBaseURL:      "https://api.spotify.com/v1",
		accountsBaseURL: "https://accounts.spotify.com",
		httpClient:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Playback is a snapshot of what the venue's player is doing right now.
type Playback struct {
	TrackID    string
	TrackName  string
	Artists    []string
	IsPlaying  bool
	ProgressMS int
	DurationMS int
}

// Device is one playback device registered to the venue account.
type Device struct {
	ID     string
	Name   string
	Type   string
	Active bool
}

type trackResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Explicit bool   `json:"explicit"`
	Duration int    `json:"duration_ms"`
	Album    struct {
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
}

type currentlyPlayingResponse struct {
	IsPlaying  bool           `json:"is_playing"`
	ProgressMS int            `json:"progress_ms"`
	Item       *trackResponse `json:"item"`
}

type devicesResponse struct {
	Devices []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Type   string `json:"type"`
		Active bool   `json:"is_active"`
	} `json:"devices"`
}

type apiErrorResponse struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// GetTrack retrieves track metadata by id.
func (c *Client) GetTrack(ctx context.Context, accessToken, trackID string) (*track.Track, error) {
	var resp trackResponse
	if err := c.doJSON(ctx, http.MethodGet, "/tracks/"+url.PathEscape(trackID), accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return convertTrack(&resp), nil
}

// QueueTrack adds a track to the venue account's active playback queue.
func (c *Client) QueueTrack(ctx context.Context, accessToken, trackID string) error {
	path := "/me/player/queue?uri=" + url.QueryEscape("spotify:track:"+trackID)
	return c.doJSON(ctx, http.MethodPost, path, accessToken, nil, nil)
}

// CurrentlyPlaying returns the player snapshot, or nil when the player
// reports nothing (HTTP 204).
func (c *Client) CurrentlyPlaying(ctx context.Context, accessToken string) (*Playback, error) {
	var resp currentlyPlayingResponse
	found, err := c.doJSONMaybe(ctx, http.MethodGet, "/me/player/currently-playing", accessToken, nil, &resp)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	p := &Playback{
		IsPlaying:  resp.IsPlaying,
		ProgressMS: resp.ProgressMS,
	}
	if resp.Item != nil {
		p.TrackID = resp.Item.ID
		p.TrackName = resp.Item.Name
		p.DurationMS = resp.Item.Duration
		for _, a := range resp.Item.Artists {
			p.Artists = append(p.Artists, a.Name)
		}
	}
	return p, nil
}

// Devices lists the playback devices registered to the venue account.
func (c *Client) Devices(ctx context.Context, accessToken string) ([]Device, error) {
	var resp devicesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/me/player/devices", accessToken, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]Device, 0, len(resp.Devices))
	for _, d := range resp.Devices {
		out = append(out, Device{ID: d.ID, Name: d.Name, Type: d.Type, Active: d.Active})
	}
	return out, nil
}

// TransferPlayback makes the given device the active one without
// starting playback.
func (c *Client) TransferPlayback(ctx context.Context, accessToken, deviceID string) error {
	body := map[string]any{"device_ids": []string{deviceID}, "play": false}
	return c.doJSON(ctx, http.MethodPut, "/me/player", accessToken, body, nil)
}

// doJSON performs an API request and decodes the response into result.
func (c *Client) doJSON(ctx context.Context, method, path, accessToken string, body any, result any) error {
	_, err := c.doJSONMaybe(ctx, method, path, accessToken, body, result)
	return err
}

// doJSONMaybe is doJSON plus a found flag: a 204 response yields
// (false, nil) without touching result.
func (c *Client) doJSONMaybe(ctx context.Context, method, path, accessToken string, body any, result any) (bool, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return false, errors.Wrap(err, "failed to encode request body")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBaseURL+path, reqBody)
	if err != nil {
		return false, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode == http.StatusNoContent {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, statusError(resp.StatusCode, data)
	}
	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return false, errors.Wrap(err, "failed to parse response")
		}
	}
	return true, nil
}

// statusError extracts the API error message when the body carries one.
func statusError(code int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return &StatusError{StatusCode: code, Message: apiErr.Error.Message}
	}
	return &StatusError{StatusCode: code}
}

func convertTrack(t *trackResponse) *track.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	var albumArt string
	if len(t.Album.Images) > 0 {
		albumArt = t.Album.Images[0].URL
	}

	return &track.Track{
		ID:          t.ID,
		Name:        t.Name,
		Artists:     artists,
		Album:       t.Album.Name,
		AlbumArtURL: albumArt,
		Duration:    time.Duration(t.Duration) * time.Millisecond,
		Explicit:    t.Explicit,
	}
}

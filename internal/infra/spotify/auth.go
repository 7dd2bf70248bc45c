package spotify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

// TokenResponse is the accounts-service reply to a token grant.
// RefreshToken is empty when the provider chose not to rotate it.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type tokenErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// RefreshAccessToken exchanges a refresh token for a new access token,
// Basic-auth'd with the venue's client id/secret.
func (c *Client) RefreshAccessToken(ctx context.Context, clientID, clientSecret, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.tokenRequest(ctx, clientID, clientSecret, form)
}

// ExchangeCode exchanges an authorization code for a token pair.
func (c *Client) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	return c.tokenRequest(ctx, clientID, clientSecret, form)
}

func (c *Client) tokenRequest(ctx context.Context, clientID, clientSecret string, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.accountsBaseURL+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(clientID, clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send token request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read token response")
	}

	if resp.StatusCode != http.StatusOK {
		var tokErr tokenErrorResponse
		if err := json.Unmarshal(data, &tokErr); err == nil && tokErr.Error != "" {
			return nil, &StatusError{StatusCode: resp.StatusCode, Message: tokErr.Error + ": " + tokErr.Description}
		}
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var tok TokenResponse
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, errors.Wrap(err, "failed to parse token response")
	}
	if tok.AccessToken == "" {
		return nil, errors.New("token response missing access_token")
	}
	return &tok, nil
}

// AuthorizeURL builds the user-consent URL a venue operator is sent to
// when connecting their Spotify account. The state parameter carries the
// venue id back through the callback.
func AuthorizeURL(clientID, redirectURI, state string, scopes []string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	q.Set("scope", strings.Join(scopes, " "))
	return "https://accounts.spotify.com/authorize?" + q.Encode()
}

// PlayerScopes are the scopes the queue pipeline needs on a venue token.
var PlayerScopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
}

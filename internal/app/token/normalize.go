package token

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/queueuphq/queueup-server/internal/domain/venue"
)

// legacyToken is the JSON blob older rows stored in the access_token
// column instead of the raw token string.
type legacyToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// normalize resolves the dual encoding of the stored access token. The
// refresh-token column wins over the embedded legacy value.
func normalize(cred *venue.Credential) (accessToken, refreshToken string, err error) {
	accessToken = cred.AccessToken
	refreshToken = cred.RefreshToken

	if strings.HasPrefix(strings.TrimSpace(accessToken), "{") {
		var legacy legacyToken
		if jerr := json.Unmarshal([]byte(accessToken), &legacy); jerr != nil {
			return "", "", errors.Mark(jerr, ErrMalformedCredential)
		}
		accessToken = legacy.AccessToken
		if refreshToken == "" {
			refreshToken = legacy.RefreshToken
		}
	}

	if accessToken == "" {
		return "", "", errors.Wrap(ErrMalformedCredential, "empty access token after normalization")
	}
	return accessToken, refreshToken, nil
}

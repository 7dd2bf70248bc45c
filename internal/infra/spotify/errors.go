package spotify

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// StatusError is a non-2xx response from the Spotify Web API.
// Callers branch on the status code: 401 triggers a token refresh, 404
// on the queue endpoint means no active device, 403 means the account
// lacks a Premium plan.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify: status %d", e.StatusCode)
	}
	return fmt.Sprintf("spotify: status %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// IsUnauthorized reports whether err is an expired/invalid token response.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

// IsForbidden reports whether err is a 403 response.
func IsForbidden(err error) bool {
	return IsStatus(err, http.StatusForbidden)
}

package httpapi

import (
	"html/template"
	"net/http"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/queueuphq/queueup-server/internal/app/connect"
)

// callbackPage renders the popup window Spotify redirects back into.
// The operator only ever sees this page for a moment, so it is a single
// self-contained document with inline styles.
var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
  <title>{{.Title}}</title>
  <meta name="viewport" content="width=device-width, initial-scale=1">
</head>
<body style="font-family: Arial, sans-serif; padding: 40px; text-align: center; background-color: #f5f5f5;">
  <div style="max-width: 400px; margin: 0 auto; background: white; padding: 30px; border-radius: 10px; box-shadow: 0 2px 10px rgba(0,0,0,0.1);">
    {{if .Success}}<div style="font-size: 60px; margin-bottom: 20px;">&#127925;</div>{{end}}
    <h2 style="color: {{.HeadingColor}}; margin-bottom: 20px;">{{.Heading}}</h2>
    <p style="color: #666; margin-bottom: 30px;">{{.Message}}</p>
    <button onclick="window.close()" style="background-color: #1db954; color: white; padding: 12px 24px; border: none; border-radius: 25px; cursor: pointer; font-size: 16px;">Close Window</button>
    {{if .Success}}<script>setTimeout(function() { window.close(); }, 3000);</script>{{end}}
  </div>
</body>
</html>
`))

type callbackPageData struct {
	Title        string
	Heading      string
	HeadingColor string
	Message      string
	Success      bool
}

const (
	colorSuccess = "#1db954"
	colorFailure = "#e74c3c"
)

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if oauthErr := q.Get("error"); oauthErr != "" {
		zlog.Warn().Str("oauth_error", oauthErr).Msg("Spotify OAuth denied")
		s.renderCallback(w, http.StatusOK, callbackPageData{
			Title:        "Spotify Connection Failed",
			Heading:      "Connection Failed",
			HeadingColor: colorFailure,
			Message:      "There was an error connecting to Spotify: " + oauthErr,
		})
		return
	}

	code := q.Get("code")
	venueID := q.Get("state")
	if code == "" || venueID == "" {
		s.renderCallback(w, http.StatusOK, callbackPageData{
			Title:        "Invalid Request",
			Heading:      "Invalid Request",
			HeadingColor: colorFailure,
			Message:      "Missing authorization code or venue information.",
		})
		return
	}

	venueName, err := s.connector.HandleCallback(r.Context(), code, venueID)
	if err != nil {
		s.renderCallback(w, http.StatusOK, callbackFailure(err))
		return
	}

	s.renderCallback(w, http.StatusOK, callbackPageData{
		Title:        "Spotify Connected Successfully",
		Heading:      "Successfully Connected!",
		HeadingColor: colorSuccess,
		Message:      "Your venue \"" + venueName + "\" has been connected to Spotify. You can now close this window and return to your dashboard.",
		Success:      true,
	})
}

func callbackFailure(err error) callbackPageData {
	switch {
	case errors.Is(err, connect.ErrVenueNotFound):
		return callbackPageData{
			Title:        "Venue Not Found",
			Heading:      "Venue Not Found",
			HeadingColor: colorFailure,
			Message:      "Could not find venue information.",
		}
	case errors.Is(err, connect.ErrNotConfigured):
		return callbackPageData{
			Title:        "Spotify Configuration Missing",
			Heading:      "Configuration Missing",
			HeadingColor: colorFailure,
			Message:      "Spotify client ID or secret is not configured for this venue.",
		}
	case errors.Is(err, connect.ErrExchangeFailed):
		return callbackPageData{
			Title:        "Token Exchange Failed",
			Heading:      "Connection Failed",
			HeadingColor: colorFailure,
			Message:      "Failed to exchange authorization code for access token.",
		}
	default:
		zlog.Error().Err(err).Msg("Spotify callback failed")
		return callbackPageData{
			Title:        "Server Error",
			Heading:      "Server Error",
			HeadingColor: colorFailure,
			Message:      "Failed to save Spotify connection.",
		}
	}
}

func (s *Server) renderCallback(w http.ResponseWriter, status int, data callbackPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := callbackPage.Execute(w, data); err != nil {
		zlog.Error().Err(err).Msg("Failed to render callback page")
	}
}

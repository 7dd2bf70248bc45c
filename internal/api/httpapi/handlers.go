package httpapi

import (
	"net/http"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/queueuphq/queueup-server/internal/app/admission"
	"github.com/queueuphq/queueup-server/internal/app/connect"
	"github.com/queueuphq/queueup-server/internal/app/payment"
	"github.com/queueuphq/queueup-server/internal/app/rejection"
	"github.com/queueuphq/queueup-server/internal/app/search"
	appstatus "github.com/queueuphq/queueup-server/internal/app/status"
	"github.com/queueuphq/queueup-server/internal/app/token"
	"github.com/queueuphq/queueup-server/internal/domain/track"
	"github.com/queueuphq/queueup-server/internal/infra/spotify"
)

type queueSongRequest struct {
	VenueID          string   `json:"venueId"`
	TrackID          string   `json:"trackId"`
	TrackName        string   `json:"trackName"`
	ArtistNames      []string `json:"artistNames"`
	RequesterName    string   `json:"requesterName"`
	PaymentSessionID string   `json:"paymentSessionId"`
}

func (s *Server) handleQueueSong(w http.ResponseWriter, r *http.Request) {
	var req queueSongRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.VenueID == "" || req.TrackID == "" || req.TrackName == "" {
		writeError(w, http.StatusBadRequest, "Missing venueId, trackId or trackName")
		return
	}

	res, err := s.admitter.Admit(r.Context(), admission.Request{
		VenueID:       req.VenueID,
		TrackID:       req.TrackID,
		TrackName:     req.TrackName,
		ArtistNames:   req.ArtistNames,
		RequesterName: req.RequesterName,
		PaymentRef:    req.PaymentSessionID,
	})
	if err != nil {
		status, msg := admissionStatus(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": res.Message})
}

// admissionStatus maps admission pipeline errors onto the statuses the
// kiosk distinguishes.
func admissionStatus(err error) (int, string) {
	switch {
	case errors.Is(err, admission.ErrVenueNotFound):
		return http.StatusNotFound, "Venue not found"
	case errors.Is(err, token.ErrNotConnected):
		return http.StatusBadRequest, "Venue has not connected Spotify"
	case errors.Is(err, token.ErrNotConfigured):
		return http.StatusBadRequest, "Spotify client credentials not configured"
	case errors.Is(err, token.ErrMalformedCredential):
		return http.StatusBadRequest, "Invalid token format"
	case errors.Is(err, admission.ErrQueueingDisabled):
		return http.StatusBadRequest, "Song requests are currently disabled at this venue"
	case errors.Is(err, admission.ErrPaymentRequired):
		return http.StatusPaymentRequired, "Payment required for song requests at this venue"
	case errors.Is(err, admission.ErrExplicitContent):
		return http.StatusBadRequest, "Explicit content is not allowed at this venue"
	case errors.Is(err, admission.ErrNoActiveDevice):
		return http.StatusNotFound, "No active Spotify device found for venue"
	case errors.Is(err, admission.ErrPremiumRequired):
		return http.StatusForbidden, "Spotify Premium required for venue account"
	case errors.Is(err, token.ErrRefreshFailed), errors.Is(err, token.ErrAuthFailed):
		return http.StatusUnauthorized, "Token refresh failed"
	case errors.Is(err, admission.ErrQueueFailed):
		return providerStatus(err), "Failed to queue song on Spotify"
	default:
		zlog.Error().Err(err).Msg("Queue song failed")
		return http.StatusInternalServerError, "Internal server error"
	}
}

// providerStatus passes the provider's status through, or 502 when the
// failure carried none.
func providerStatus(err error) int {
	var se *spotify.StatusError
	if errors.As(err, &se) && se.StatusCode >= 400 {
		return se.StatusCode
	}
	return http.StatusBadGateway
}

type createPaymentRequest struct {
	VenueID     string   `json:"venueId"`
	TrackID     string   `json:"trackId"`
	TrackName   string   `json:"trackName"`
	ArtistNames []string `json:"artistNames"`
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.VenueID == "" || req.TrackID == "" || req.TrackName == "" {
		writeError(w, http.StatusBadRequest, "Missing venueId, trackId or trackName")
		return
	}

	info, err := s.payments.CreateSession(r.Context(), payment.CreateRequest{
		VenueID:     req.VenueID,
		TrackID:     req.TrackID,
		TrackName:   req.TrackName,
		ArtistNames: req.ArtistNames,
	})
	if err != nil {
		switch {
		case errors.Is(err, admission.ErrVenueNotFound):
			writeError(w, http.StatusNotFound, "Venue not found")
		case errors.Is(err, payment.ErrPricingNotEnabled):
			writeError(w, http.StatusBadRequest, "Venue does not require payment for song requests")
		default:
			zlog.Error().Err(err).Msg("Payment session creation failed")
			writeError(w, http.StatusInternalServerError, "Failed to create payment session")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"url":       info.URL,
		"sessionId": info.SessionID,
		"price":     info.Price,
		"currency":  info.Currency,
	})
}

type verifyPaymentRequest struct {
	SessionID string `json:"sessionId"`
}

func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := decodeJSON(r, &req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "Missing sessionId")
		return
	}

	conf, err := s.payments.Confirm(r.Context(), req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrPaymentNotCompleted):
			writeError(w, http.StatusBadRequest, "Payment not completed")
		case errors.Is(err, payment.ErrInvalidMetadata):
			writeError(w, http.StatusBadRequest, "Invalid payment session metadata")
		default:
			// The admission ran inside the confirmation, surface its
			// status so the kiosk can explain what went wrong.
			status, msg := admissionStatus(err)
			if status == http.StatusInternalServerError {
				msg = "Failed to verify payment"
			}
			writeError(w, status, msg)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  conf.Message,
		"amount":   conf.Amount,
		"currency": conf.Currency,
	})
}

type venueRequest struct {
	VenueID string `json:"venueId"`
}

func (s *Server) handleSyncPlayback(w http.ResponseWriter, r *http.Request) {
	var req venueRequest
	if err := decodeJSON(r, &req); err != nil || req.VenueID == "" {
		writeError(w, http.StatusBadRequest, "Missing venueId parameter")
		return
	}

	res, err := s.reconciler.Sync(r.Context(), req.VenueID)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrNotConnected), errors.Is(err, token.ErrNotConfigured):
			writeError(w, http.StatusNotFound, "Venue not found or Spotify not connected")
		case errors.Is(err, token.ErrMalformedCredential):
			writeError(w, http.StatusBadRequest, "Invalid token format")
		case errors.Is(err, token.ErrRefreshFailed), errors.Is(err, token.ErrAuthFailed):
			writeError(w, http.StatusUnauthorized, "Token refresh failed")
		default:
			zlog.Error().Err(err).Msg("Playback sync failed")
			writeError(w, http.StatusInternalServerError, "Failed to sync playback")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"updates":      res.Updates,
		"currentTrack": res.CurrentTrack,
	})
}

type rejectSongRequest struct {
	QueueItemID     string `json:"queueItemId"`
	VenueID         string `json:"venueId"`
	RejectionReason string `json:"rejectionReason"`
}

func (s *Server) handleRejectSong(w http.ResponseWriter, r *http.Request) {
	var req rejectSongRequest
	if err := decodeJSON(r, &req); err != nil || req.QueueItemID == "" || req.VenueID == "" {
		writeError(w, http.StatusBadRequest, "Missing queueItemId or venueId")
		return
	}

	res, err := s.rejecter.Reject(r.Context(), req.QueueItemID, req.VenueID, req.RejectionReason)
	if err != nil {
		if errors.Is(err, rejection.ErrEntryNotFound) {
			writeError(w, http.StatusNotFound, "Queue item not found")
			return
		}
		zlog.Error().Err(err).Msg("Song rejection failed")
		writeError(w, http.StatusInternalServerError, "Failed to reject song")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": res.Message})
}

type updateStatusRequest struct {
	QueueItemID string `json:"queueItemId"`
	Status      string `json:"status"`
	VenueID     string `json:"venueId"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil || req.QueueItemID == "" || req.VenueID == "" {
		writeError(w, http.StatusBadRequest, "Missing queueItemId or venueId")
		return
	}

	res, err := s.statuses.Update(r.Context(), req.QueueItemID, req.VenueID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, appstatus.ErrEntryNotFound):
			writeError(w, http.StatusNotFound, "Queue item not found")
		case errors.Is(err, appstatus.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, "Invalid status")
		default:
			zlog.Error().Err(err).Msg("Status update failed")
			writeError(w, http.StatusInternalServerError, "Failed to update song status")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": res.Message})
}

type searchRequest struct {
	VenueID string `json:"venueId"`
	Query   string `json:"query"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil || req.VenueID == "" || req.Query == "" {
		writeError(w, http.StatusBadRequest, "Missing venueId or query parameter")
		return
	}

	tracks, err := s.searcher.Search(r.Context(), req.VenueID, req.Query)
	if err != nil {
		writeSearchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": toTrackJSON(tracks)})
}

func (s *Server) handlePlaylistTracks(w http.ResponseWriter, r *http.Request) {
	var req venueRequest
	if err := decodeJSON(r, &req); err != nil || req.VenueID == "" {
		writeError(w, http.StatusBadRequest, "Missing venueId parameter")
		return
	}

	tracks, err := s.searcher.PlaylistTracks(r.Context(), req.VenueID)
	if err != nil {
		if errors.Is(err, search.ErrNoPlaylist) {
			writeError(w, http.StatusBadRequest, "Venue does not restrict to playlist")
			return
		}
		writeSearchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": toTrackJSON(tracks)})
}

func writeSearchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, search.ErrNotConfigured):
		writeError(w, http.StatusNotFound, "Venue Spotify credentials not configured")
	case errors.Is(err, search.ErrIncompleteCredential):
		writeError(w, http.StatusBadRequest, "Venue Spotify credentials incomplete")
	default:
		zlog.Error().Err(err).Msg("Spotify search failed")
		writeError(w, http.StatusInternalServerError, "Spotify search failed")
	}
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	var req venueRequest
	if err := decodeJSON(r, &req); err != nil || req.VenueID == "" {
		writeError(w, http.StatusBadRequest, "Missing venueId parameter")
		return
	}

	u, err := s.connector.AuthorizeURL(r.Context(), req.VenueID)
	if err != nil {
		if errors.Is(err, connect.ErrNotConfigured) {
			writeError(w, http.StatusBadRequest, "Spotify client ID or secret is not configured for this venue")
			return
		}
		zlog.Error().Err(err).Msg("Authorize URL build failed")
		writeError(w, http.StatusInternalServerError, "Failed to build authorize URL")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": u})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	var req venueRequest
	if err := decodeJSON(r, &req); err != nil || req.VenueID == "" {
		writeError(w, http.StatusBadRequest, "Missing venueId parameter")
		return
	}

	if err := s.connector.Disconnect(r.Context(), req.VenueID); err != nil {
		if errors.Is(err, connect.ErrVenueNotFound) {
			writeError(w, http.StatusNotFound, "Venue not found")
			return
		}
		zlog.Error().Err(err).Msg("Spotify disconnect failed")
		writeError(w, http.StatusInternalServerError, "Failed to disconnect Spotify")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Spotify disconnected"})
}

// trackJSON mirrors the provider's track object shape the kiosk renders.
type trackJSON struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Artists    []artistJSON `json:"artists"`
	Album      albumJSON    `json:"album"`
	DurationMS int64        `json:"duration_ms"`
	Explicit   bool         `json:"explicit"`
}

type artistJSON struct {
	Name string `json:"name"`
}

type albumJSON struct {
	Name   string      `json:"name"`
	Images []imageJSON `json:"images"`
}

type imageJSON struct {
	URL string `json:"url"`
}

func toTrackJSON(tracks []track.Track) []trackJSON {
	out := make([]trackJSON, 0, len(tracks))
	for i := range tracks {
		t := &tracks[i]
		artists := make([]artistJSON, len(t.Artists))
		for j, a := range t.Artists {
			artists[j] = artistJSON{Name: a}
		}
		album := albumJSON{Name: t.Album}
		if t.AlbumArtURL != "" {
			album.Images = []imageJSON{{URL: t.AlbumArtURL}}
		}
		out = append(out, trackJSON{
			ID:         t.ID,
			Name:       t.Name,
			Artists:    artists,
			Album:      album,
			DurationMS: t.Duration.Milliseconds(),
			Explicit:   t.Explicit,
		})
	}
	return out
}

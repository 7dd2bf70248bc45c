// Package httpapi exposes the queue, payment, playback and connection
// operations as JSON endpoints under /functions, one per operation.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/queueuphq/queueup-server/internal/app/admission"
	"github.com/queueuphq/queueup-server/internal/app/payment"
	"github.com/queueuphq/queueup-server/internal/app/reconcile"
	"github.com/queueuphq/queueup-server/internal/app/rejection"
	"github.com/queueuphq/queueup-server/internal/app/status"
	"github.com/queueuphq/queueup-server/internal/domain/track"
)

// Admitter admits song requests.
type Admitter interface {
	Admit(ctx context.Context, req admission.Request) (*admission.Result, error)
}

// PaymentGate creates and confirms checkout sessions.
type PaymentGate interface {
	CreateSession(ctx context.Context, req payment.CreateRequest) (*payment.SessionInfo, error)
	Confirm(ctx context.Context, sessionID string) (*payment.Confirmation, error)
}

// Reconciler runs one playback reconciliation pass.
type Reconciler interface {
	Sync(ctx context.Context, venueID string) (*reconcile.Result, error)
}

// Rejecter removes queue entries by operator action.
type Rejecter interface {
	Reject(ctx context.Context, entryID, venueID, reason string) (*rejection.Result, error)
}

// StatusUpdater applies operator-driven entry transitions.
type StatusUpdater interface {
	Update(ctx context.Context, entryID, venueID, status string) (*status.Result, error)
}

// Searcher answers kiosk search and playlist-browse requests.
type Searcher interface {
	Search(ctx context.Context, venueID, query string) ([]track.Track, error)
	PlaylistTracks(ctx context.Context, venueID string) ([]track.Track, error)
}

// Connector drives the Spotify connect and disconnect flows.
type Connector interface {
	AuthorizeURL(ctx context.Context, venueID string) (string, error)
	HandleCallback(ctx context.Context, code, venueID string) (string, error)
	Disconnect(ctx context.Context, venueID string) error
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the handler dependencies.
type Server struct {
	admitter   Admitter
	payments   PaymentGate
	reconciler Reconciler
	rejecter   Rejecter
	statuses   StatusUpdater
	searcher   Searcher
	connector  Connector
	pinger     Pinger
}

// NewServer creates the HTTP API server.
func NewServer(
	admitter Admitter,
	payments PaymentGate,
	reconciler Reconciler,
	rejecter Rejecter,
	statuses StatusUpdater,
	searcher Searcher,
	connector Connector,
	pinger Pinger,
) *Server {
	return &Server{
		admitter:   admitter,
		payments:   payments,
		reconciler: reconciler,
		rejecter:   rejecter,
		statuses:   statuses,
		searcher:   searcher,
		connector:  connector,
		pinger:     pinger,
	}
}

// Routes builds the router. Every /functions endpoint answers CORS
// preflights; authorization is delegated upstream, the handlers trust
// the venue id in the body.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors)

	r.Get("/healthz", s.handleHealth)

	r.Route("/functions", func(r chi.Router) {
		r.Post("/queue-song", s.handleQueueSong)
		r.Post("/create-song-payment", s.handleCreatePayment)
		r.Post("/verify-song-payment", s.handleVerifyPayment)
		r.Post("/sync-spotify-playback", s.handleSyncPlayback)
		r.Post("/reject-song", s.handleRejectSong)
		r.Post("/update-song-status", s.handleUpdateStatus)
		r.Post("/spotify-search", s.handleSearch)
		r.Post("/get-playlist-tracks", s.handlePlaylistTracks)
		r.Post("/spotify-authorize", s.handleAuthorize)
		r.Get("/spotify-callback", s.handleCallback)
		r.Post("/spotify-disconnect", s.handleDisconnect)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

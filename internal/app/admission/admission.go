// Package admission validates a guest's song request against venue
// configuration and pushes it to the venue's Spotify playback queue.
package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/queueuphq/queueup-server/internal/app/token"
	"github.com/queueuphq/queueup-server/internal/domain/queue"
	"github.com/queueuphq/queueup-server/internal/domain/track"
	"github.com/queueuphq/queueup-server/internal/domain/venue"
	"github.com/queueuphq/queueup-server/internal/infra/spotify"
	"github.com/queueuphq/queueup-server/internal/infra/store"
)

var (
	ErrVenueNotFound    = errors.New("venue not found")
	ErrQueueingDisabled = errors.New("song requests are currently disabled")
	ErrPaymentRequired  = errors.New("payment required for song requests")
	ErrExplicitContent  = errors.New("explicit songs are not allowed at this venue")
	ErrNoActiveDevice   = errors.New("no active playback device")
	ErrPremiumRequired  = errors.New("spotify premium required")
	ErrQueueFailed      = errors.New("failed to queue song")
)

// Store is the persistence surface the controller needs.
type Store interface {
	GetProfile(ctx context.Context, venueID string) (*venue.Profile, error)
	MaxPosition(ctx context.Context, venueID string) (int, error)
	InsertEntry(ctx context.Context, e *queue.Entry) (string, error)
}

// Player is the provider surface the controller needs.
type Player interface {
	GetTrack(ctx context.Context, accessToken, trackID string) (*track.Track, error)
	QueueTrack(ctx context.Context, accessToken, trackID string) error
	Devices(ctx context.Context, accessToken string) ([]spotify.Device, error)
	TransferPlayback(ctx context.Context, accessToken, deviceID string) error
}

// Request is one song-request attempt.
type Request struct {
	VenueID       string
	TrackID       string
	TrackName     string
	ArtistNames   []string
	RequesterName string
	PaymentRef    string // Checkout session id when the request was paid
}

// Result is a successful admission.
type Result struct {
	Message string
}

// Controller admits song requests. Admission is not idempotent: the
// same track submitted twice is enqueued twice. Duplicate prevention
// lives in the kiosk UI.
type Controller struct {
	store  Store
	tokens *token.Manager
	player Player
	now    func() time.Time
}

// NewController creates an admission controller.
func NewController(store Store, tokens *token.Manager, player Player) *Controller {
	return &Controller{store: store, tokens: tokens, player: player, now: time.Now}
}

// Admit runs the full admission pipeline: venue checks, payment gate,
// content policy, provider enqueue with device remediation, then a
// best-effort local queue insert.
func (c *Controller) Admit(ctx context.Context, req Request) (*Result, error) {
	profile, err := c.store.GetProfile(ctx, req.VenueID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Wrap(ErrVenueNotFound, req.VenueID)
		}
		return nil, errors.Wrap(err, "failed to load venue profile")
	}
	if !profile.AllowQueueing {
		return nil, errors.Wrap(ErrQueueingDisabled, req.VenueID)
	}

	sess, err := c.tokens.Begin(ctx, req.VenueID)
	if err != nil {
		return nil, err
	}

	// Hard precondition, never silently bypassed. A payment reference
	// proves the payment gate already ran.
	if profile.EnablePricing && req.PaymentRef == "" {
		return nil, errors.Wrap(ErrPaymentRequired, req.VenueID)
	}

	if err := c.checkContentPolicy(ctx, sess, req.TrackID); err != nil {
		return nil, err
	}

	if err := c.enqueue(ctx, sess, req.TrackID); err != nil {
		return nil, err
	}

	c.recordEntry(ctx, req)

	artists := track.JoinArtists(req.ArtistNames)
	return &Result{
		Message: fmt.Sprintf("%q by %s queued successfully!", req.TrackName, artists),
	}, nil
}

// checkContentPolicy rejects explicit tracks. A metadata fetch failure
// is tolerated rather than blocking all admissions.
func (c *Controller) checkContentPolicy(ctx context.Context, sess *token.Session, trackID string) error {
	var meta *track.Track
	err := sess.Do(ctx, func(accessToken string) error {
		t, terr := c.player.GetTrack(ctx, accessToken, trackID)
		meta = t
		return terr
	})
	if err != nil {
		zlog.Warn().Str("track_id", trackID).Err(err).Msg("Track metadata fetch failed, skipping explicit check")
		return nil
	}
	if meta.Explicit {
		return errors.Wrap(ErrExplicitContent, trackID)
	}
	return nil
}

// enqueue pushes the track to the provider queue, remediating a missing
// active device with one transfer-and-retry.
func (c *Controller) enqueue(ctx context.Context, sess *token.Session, trackID string) error {
	err := sess.Do(ctx, func(accessToken string) error {
		return c.player.QueueTrack(ctx, accessToken, trackID)
	})
	if err == nil {
		return nil
	}

	switch {
	case spotify.IsNotFound(err):
		return c.activateDeviceAndRetry(ctx, sess, trackID)
	case spotify.IsForbidden(err):
		return errors.Mark(err, ErrPremiumRequired)
	case errors.Is(err, token.ErrAuthFailed) || errors.Is(err, token.ErrRefreshFailed):
		return err
	default:
		return errors.Mark(err, ErrQueueFailed)
	}
}

// activateDeviceAndRetry transfers playback to the venue's active or
// first available device and retries the enqueue exactly once.
func (c *Controller) activateDeviceAndRetry(ctx context.Context, sess *token.Session, trackID string) error {
	err := sess.Do(ctx, func(accessToken string) error {
		devices, derr := c.player.Devices(ctx, accessToken)
		if derr != nil {
			return derr
		}
		target := pickDevice(devices)
		if target == nil {
			return errors.New("no devices available")
		}
		zlog.Info().Str("device_id", target.ID).Str("device_name", target.Name).Msg("Transferring playback to device")
		return c.player.TransferPlayback(ctx, accessToken, target.ID)
	})
	if err != nil {
		return errors.Mark(err, ErrNoActiveDevice)
	}

	err = sess.Do(ctx, func(accessToken string) error {
		return c.player.QueueTrack(ctx, accessToken, trackID)
	})
	if err != nil {
		return errors.Mark(err, ErrNoActiveDevice)
	}
	return nil
}

// pickDevice prefers the active device, falling back to the first one.
func pickDevice(devices []spotify.Device) *spotify.Device {
	for i := range devices {
		if devices[i].Active {
			return &devices[i]
		}
	}
	if len(devices) > 0 {
		return &devices[0]
	}
	return nil
}

// recordEntry mirrors the admitted request into the local queue. The
// provider enqueue is the source of truth, so a failure here is logged
// and the request still succeeds.
func (c *Controller) recordEntry(ctx context.Context, req Request) {
	pos, err := c.store.MaxPosition(ctx, req.VenueID)
	if err != nil {
		zlog.Warn().Str("venue_id", req.VenueID).Err(err).Msg("Failed to read queue position")
	}
	next := pos + 1

	entry := &queue.Entry{
		VenueID:     req.VenueID,
		TrackID:     req.TrackID,
		SongName:    req.TrackName,
		ArtistName:  track.JoinArtists(req.ArtistNames),
		Position:    &next,
		Status:      queue.StatusPending,
		RequestedAt: c.now().UTC(),
	}
	if req.RequesterName != "" {
		entry.RequesterName = &req.RequesterName
	}

	if _, err := c.store.InsertEntry(ctx, entry); err != nil {
		zlog.Error().Str("venue_id", req.VenueID).Str("track_id", req.TrackID).Err(err).
			Msg("Failed to mirror queued song locally")
	}
}

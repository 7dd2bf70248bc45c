// Package payment creates hosted checkout sessions for priced song
// requests and converts confirmed payments into admissions plus a
// revenue ledger entry.
package payment

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/queueuphq/queueup-server/internal/app/admission"
	"github.com/queueuphq/queueup-server/internal/domain/venue"
	"github.com/queueuphq/queueup-server/internal/infra/store"
	"github.com/queueuphq/queueup-server/internal/infra/stripe"
)

var (
	// ErrPricingNotEnabled means the venue does not charge for requests,
	// so there is nothing to pay for.
	ErrPricingNotEnabled = errors.New("venue does not require payment for song requests")
	// ErrPaymentNotCompleted means the processor has not marked the
	// session as paid.
	ErrPaymentNotCompleted = errors.New("payment not completed")
	// ErrInvalidMetadata means the session lacks the track details
	// attached at creation.
	ErrInvalidMetadata = errors.New("invalid payment session metadata")
)

// Store is the persistence surface the gate needs.
type Store interface {
	GetProfile(ctx context.Context, venueID string) (*venue.Profile, error)
	CountPending(ctx context.Context, venueID string) (int, error)
	InsertRevenue(ctx context.Context, e *venue.RevenueEntry) error
}

// Checkout is the payment processor surface the gate needs.
type Checkout interface {
	CreateCheckoutSession(ctx context.Context, p stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error)
}

// Admitter completes the admission once payment is proven.
type Admitter interface {
	Admit(ctx context.Context, req admission.Request) (*admission.Result, error)
}

// Config carries the market settings for checkout sessions.
type Config struct {
	Currency  string // ISO 4217, lowercase accepted
	Locale    string // Checkout page locale
	PublicURL string // Kiosk origin for redirect URLs
}

// CreateRequest identifies the track a guest wants to pay for.
type CreateRequest struct {
	VenueID     string
	TrackID     string
	TrackName   string
	ArtistNames []string
}

// SessionInfo is the created checkout session handed back to the kiosk.
type SessionInfo struct {
	URL       string
	SessionID string
	Price     float64
	Currency  string
}

// Confirmation is a completed payment turned into an admission.
type Confirmation struct {
	Message  string
	Amount   float64
	Currency string
}

// sessionMetadata is the track identity round-tripped through the
// processor as opaque string metadata.
type sessionMetadata struct {
	VenueID     string `mapstructure:"venueId"`
	TrackID     string `mapstructure:"trackId"`
	TrackName   string `mapstructure:"trackName"`
	ArtistNames string `mapstructure:"artistNames"` // Joined with ", "
}

// Gate is the payment side of the admission pipeline.
type Gate struct {
	store    Store
	checkout Checkout
	admitter Admitter
	cfg      Config
}

// NewGate creates a payment gate.
func NewGate(store Store, checkout Checkout, admitter Admitter, cfg Config) *Gate {
	return &Gate{store: store, checkout: checkout, admitter: admitter, cfg: cfg}
}

// CreateSession prices the request and creates a hosted checkout
// session carrying the track identity as metadata.
func (g *Gate) CreateSession(ctx context.Context, req CreateRequest) (*SessionInfo, error) {
	profile, err := g.store.GetProfile(ctx, req.VenueID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Wrap(admission.ErrVenueNotFound, req.VenueID)
		}
		return nil, errors.Wrap(err, "failed to load venue profile")
	}
	if !profile.EnablePricing {
		return nil, errors.Wrap(ErrPricingNotEnabled, req.VenueID)
	}

	pending := 0
	if profile.DynamicPricing {
		pending, err = g.store.CountPending(ctx, req.VenueID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to count pending requests")
		}
	}
	price := Price(profile, pending)
	artists := strings.Join(req.ArtistNames, ", ")

	session, err := g.checkout.CreateCheckoutSession(ctx, stripe.CheckoutSessionParams{
		Amount:             int64(math.Round(price * 100)),
		Currency:           g.cfg.Currency,
		ProductName:        fmt.Sprintf("Låtförfrågan: %s", req.TrackName),
		ProductDescription: fmt.Sprintf("Begär %q av %s på %s", req.TrackName, artists, profile.Name),
		SuccessURL:         fmt.Sprintf("%s/venue/%s?payment=success&track=%s", g.cfg.PublicURL, req.VenueID, req.TrackID),
		CancelURL:          fmt.Sprintf("%s/venue/%s?payment=cancelled", g.cfg.PublicURL, req.VenueID),
		Locale:             g.cfg.Locale,
		PaymentMethodTypes: []string{"card", "link"},
		Metadata: map[string]string{
			"venueId":     req.VenueID,
			"trackId":     req.TrackID,
			"trackName":   req.TrackName,
			"artistNames": artists,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create checkout session")
	}

	zlog.Info().Str("venue_id", req.VenueID).Str("session_id", session.ID).
		Float64("price", price).Msg("Checkout session created")

	return &SessionInfo{
		URL:       session.URL,
		SessionID: session.ID,
		Price:     price,
		Currency:  strings.ToUpper(g.cfg.Currency),
	}, nil
}

// Confirm verifies a session is paid, completes the admission with the
// payment reference attached and records the revenue. Confirmation is
// driven by the kiosk's redirect return; there is no webhook, so a
// guest who pays but never returns leaves the session unconsumed.
func (g *Gate) Confirm(ctx context.Context, sessionID string) (*Confirmation, error) {
	session, err := g.checkout.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to retrieve checkout session")
	}
	if session.PaymentStatus != stripe.PaymentStatusPaid {
		return nil, errors.Wrap(ErrPaymentNotCompleted, sessionID)
	}

	var meta sessionMetadata
	if err := mapstructure.Decode(session.Metadata, &meta); err != nil {
		return nil, errors.Mark(err, ErrInvalidMetadata)
	}
	if meta.VenueID == "" || meta.TrackID == "" || meta.TrackName == "" || meta.ArtistNames == "" {
		return nil, errors.Wrap(ErrInvalidMetadata, sessionID)
	}

	if _, err := g.admitter.Admit(ctx, admission.Request{
		VenueID:     meta.VenueID,
		TrackID:     meta.TrackID,
		TrackName:   meta.TrackName,
		ArtistNames: strings.Split(meta.ArtistNames, ", "),
		PaymentRef:  sessionID,
	}); err != nil {
		return nil, err
	}

	amount := float64(session.AmountTotal) / 100
	currency := strings.ToUpper(session.Currency)
	if currency == "" {
		currency = strings.ToUpper(g.cfg.Currency)
	}

	// The guest already paid and the song is queued; a ledger failure
	// must not fail the confirmation.
	if err := g.store.InsertRevenue(ctx, &venue.RevenueEntry{
		VenueID:     meta.VenueID,
		Amount:      amount,
		Currency:    currency,
		Source:      venue.RevenueSourceSongRequest,
		Description: fmt.Sprintf("Payment for %q by %s", meta.TrackName, meta.ArtistNames),
	}); err != nil {
		zlog.Error().Str("venue_id", meta.VenueID).Str("session_id", sessionID).Err(err).
			Msg("Failed to record revenue entry")
	}

	return &Confirmation{
		Message:  fmt.Sprintf("%q by %s queued successfully after payment!", meta.TrackName, meta.ArtistNames),
		Amount:   amount,
		Currency: currency,
	}, nil
}

// Package venue provides venue-scoped domain entities: the operator
// profile, the Spotify credential record and the revenue ledger row.
package venue

import "time"

// Profile is the subset of a venue's profile the request pipeline reads.
type Profile struct {
	ID             string  // Venue identifier (profile user id)
	Name           string  // Display name
	AllowQueueing  bool    // Guest requests accepted at all
	EnablePricing  bool    // Guests must pay per request
	DynamicPricing bool    // Price scales with queue depth
	StaticPrice    float64 // Base price in currency units
}

// Credential is the per-venue Spotify application identity and token pair.
// One row per venue, created empty at signup.
type Credential struct {
	VenueID            string
	ClientID           string
	ClientSecret       string
	AccessToken        string // May hold a legacy JSON blob instead of a raw token
	RefreshToken       string
	TokenExpiresAt     *time.Time
	PlaylistID         string
	RestrictToPlaylist bool
}

// Configured reports whether the venue has set up its Spotify application.
func (c *Credential) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Connected reports whether the venue has completed the OAuth flow.
func (c *Credential) Connected() bool {
	return c.AccessToken != ""
}

// RevenueEntry is one append-only ledger row, written only when a paid
// song request is confirmed.
type RevenueEntry struct {
	ID          string
	VenueID     string
	Amount      float64
	Currency    string
	Source      string
	Description string
	CreatedAt   time.Time
}

// RevenueSourceSongRequest tags ledger rows created by the payment gate.
const RevenueSourceSongRequest = "song_request"

package store

import (
	"context"

	"github.com/queueuphq/queueup-server/internal/domain/venue"
)

// GetProfile returns the venue profile for the given venue id.
func (s *Store) GetProfile(ctx context.Context, venueID string) (*venue.Profile, error) {
	const q = `
		SELECT user_id, venue_name, allow_queueing,
		       COALESCE(enable_pricing, false),
		       COALESCE(dynamic_pricing, false),
		       COALESCE(static_price, 0)
		FROM profiles
		WHERE user_id = $1`

	var p venue.Profile
	err := s.pool.QueryRow(ctx, q, venueID).Scan(
		&p.ID, &p.Name, &p.AllowQueueing,
		&p.EnablePricing, &p.DynamicPricing, &p.StaticPrice,
	)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &p, nil
}

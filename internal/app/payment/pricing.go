package payment

import "github.com/queueuphq/queueup-server/internal/domain/venue"

const (
	// basePriceFallback applies when a venue enabled pricing but never
	// set a price.
	basePriceFallback = 0.99
	// perPendingSurcharge is added per pending request under dynamic
	// pricing.
	perPendingSurcharge = 0.25
	// dynamicPriceCap limits dynamic pricing to this multiple of the
	// base price.
	dynamicPriceCap = 3
)

// Price computes the request price in currency units. Dynamic pricing
// scales with the current queue depth, capped at three times the base.
func Price(p *venue.Profile, pendingCount int) float64 {
	base := p.StaticPrice
	if base <= 0 {
		base = basePriceFallback
	}
	if !p.DynamicPricing {
		return base
	}

	price := base + float64(pendingCount)*perPendingSurcharge
	if max := base * dynamicPriceCap; price > max {
		price = max
	}
	return price
}

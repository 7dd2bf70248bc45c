package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/queueuphq/queueup-server/internal/domain/venue"
)

// InsertRevenue appends one row to the venue revenue ledger.
func (s *Store) InsertRevenue(ctx context.Context, e *venue.RevenueEntry) error {
	const q = `
		INSERT INTO venue_revenue (id, venue_id, amount, currency, source, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, q,
		uuid.NewString(), e.VenueID, e.Amount, e.Currency, e.Source, e.Description, createdAt,
	)
	return err
}

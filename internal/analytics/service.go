package analytics

import (
	"context"
	"fmt"

	"clubster-booking/internal/models"

	"github.com/uptrace/bun"
)

// Service handles analytics operations
type Service struct {
	db *bun.DB
}

// NewService creates a new analytics service
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// CategorySales contains sales metrics for one ticket category
type CategorySales struct {
	CategoryID   string `bun:"category_id" json:"category_id"`
	CategoryName string `bun:"category_name" json:"category_name"`
	TicketsSold  int    `bun:"tickets_sold" json:"tickets_sold"`
	Remaining    int    `bun:"remaining" json:"remaining"`
	Revenue      int64  `bun:"revenue" json:"revenue"`
	Commission   int64  `bun:"commission" json:"commission"`
}

// EventSales represents aggregated sales for an event. Amounts are in minor units.
type EventSales struct {
	EventID          string          `json:"event_id"`
	TotalTicketsSold int             `json:"total_tickets_sold"`
	TotalRevenue     int64           `json:"total_revenue"`
	TotalCommission  int64           `json:"total_commission"`
	PendingBookings  int             `json:"pending_bookings"`
	SalesByCategory  []CategorySales `json:"sales_by_category"`
}

// GetEventSales aggregates confirmed bookings per category of the event
func (s *Service) GetEventSales(ctx context.Context, eventID string) (*EventSales, error) {
	rawSQL := `
		SELECT
			tc.id AS category_id,
			tc.name AS category_name,
			tc.available_tickets AS remaining,
			COALESCE(SUM(CASE WHEN b.status = ? THEN b.quantity ELSE 0 END), 0) AS tickets_sold,
			COALESCE(SUM(CASE WHEN b.status = ? THEN b.total_amount ELSE 0 END), 0) AS revenue,
			COALESCE(SUM(CASE WHEN b.status = ? THEN b.commission_amount ELSE 0 END), 0) AS commission
		FROM ticket_categories tc
		LEFT JOIN bookings b ON b.ticket_category_id = tc.id
		WHERE tc.event_id = ?
		GROUP BY tc.id, tc.name, tc.available_tickets
		ORDER BY tc.name
	`
	confirmed := models.BookingStatusConfirmed
	args := []interface{}{confirmed, confirmed, confirmed, eventID}

	categories := []CategorySales{}
	if err := s.db.NewRaw(rawSQL, args...).Scan(ctx, &categories); err != nil {
		return nil, fmt.Errorf("failed to aggregate sales for event %s: %w", eventID, err)
	}

	pending, err := s.db.NewSelect().
		Model((*models.Booking)(nil)).
		Where("b.event_id = ?", eventID).
		Where("b.status = ?", models.BookingStatusPending).
		Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending bookings for event %s: %w", eventID, err)
	}

	report := &EventSales{
		EventID:         eventID,
		PendingBookings: pending,
		SalesByCategory: categories,
	}
	for _, c := range categories {
		report.TotalTicketsSold += c.TicketsSold
		report.TotalRevenue += c.Revenue
		report.TotalCommission += c.Commission
	}
	return report, nil
}

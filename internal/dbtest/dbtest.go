// Package dbtest provides an in-memory SQLite schema and fixtures for repository and service tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"clubster-booking/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// NewDB opens a private in-memory database with every table created.
func NewDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	// one connection keeps transactions and plain queries on the same database
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	ctx := context.Background()
	tables := []interface{}{
		(*models.Club)(nil),
		(*models.Event)(nil),
		(*models.TicketCategory)(nil),
		(*models.Booking)(nil),
		(*models.Ticket)(nil),
		(*models.ProcessedWebhookEvent)(nil),
	}
	for _, model := range tables {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(ctx); err != nil {
			t.Fatalf("Failed to create table for %T: %v", model, err)
		}
	}
	return bunDB
}

// Catalog is one club with one event and one ticket category.
type Catalog struct {
	Club     models.Club
	Event    models.Event
	Category models.TicketCategory
}

// SeedCatalog inserts a payment-capable club, an event, and a category.
func SeedCatalog(t *testing.T, db *bun.DB, price float64, available int) Catalog {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	c := Catalog{
		Club: models.Club{
			ID:              uuid.NewString(),
			Name:            "Club Nebula",
			OwnerID:         "manager-" + uuid.NewString()[:8],
			StripeAccountID: "acct_test123",
			ChargesEnabled:  true,
			CreatedAt:       now,
		},
	}
	c.Event = models.Event{
		ID:        uuid.NewString(),
		ClubID:    c.Club.ID,
		Title:     "Friday Night",
		Venue:     "Main Hall",
		StartsAt:  now.Add(72 * time.Hour),
		CreatedAt: now,
	}
	c.Category = models.TicketCategory{
		ID:               uuid.NewString(),
		EventID:          c.Event.ID,
		Name:             "General Admission",
		Price:            price,
		AvailableTickets: available,
		CreatedAt:        now,
	}

	for _, model := range []interface{}{&c.Club, &c.Event, &c.Category} {
		if _, err := db.NewInsert().Model(model).Exec(ctx); err != nil {
			t.Fatalf("Failed to seed %T: %v", model, err)
		}
	}
	return c
}

// InsertBooking stores a booking as given.
func InsertBooking(t *testing.T, db *bun.DB, b models.Booking) models.Booking {
	t.Helper()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	if b.Status == "" {
		b.Status = models.BookingStatusPending
	}
	if _, err := db.NewInsert().Model(&b).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to insert booking: %v", err)
	}
	return b
}

// AvailableTickets reads the current counter for a category.
func AvailableTickets(t *testing.T, db *bun.DB, categoryID string) int {
	t.Helper()
	var available int
	err := db.NewSelect().
		Model((*models.TicketCategory)(nil)).
		Column("available_tickets").
		Where("id = ?", categoryID).
		Scan(context.Background(), &available)
	if err != nil {
		t.Fatalf("Failed to read available tickets: %v", err)
	}
	return available
}

// CountTickets counts issued tickets for a booking.
func CountTickets(t *testing.T, db *bun.DB, bookingID string) int {
	t.Helper()
	count, err := db.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("booking_id = ?", bookingID).
		Count(context.Background())
	if err != nil {
		t.Fatalf("Failed to count tickets: %v", err)
	}
	return count
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clubster-booking/internal/models"

	"github.com/uptrace/bun"
)

// MaxIDAttempts bounds retries when a generated booking id collides.
const MaxIDAttempts = 5

var (
	ErrNotFound         = errors.New("record not found")
	ErrIDSpaceExhausted = errors.New("could not allocate a unique booking id")
	errNoIDGenerator    = errors.New("booking id generator is nil")
)

type DB struct {
	Bun *bun.DB
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ---------------- CATALOG ----------------

// GetTicketCategory → fetch one category by id
func (d *DB) GetTicketCategory(ctx context.Context, id string) (*models.TicketCategory, error) {
	var category models.TicketCategory
	err := d.Bun.NewSelect().
		Model(&category).
		Where("tc.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &category, nil
}

// GetEventWithClub → fetch an event with its owning club joined
func (d *DB) GetEventWithClub(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Relation("Club").
		Where("e.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &event, nil
}

// IsClubOwner reports whether userID manages the club.
func (d *DB) IsClubOwner(ctx context.Context, clubID, userID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Club)(nil)).
		Where("c.id = ?", clubID).
		Where("c.owner_id = ?", userID).
		Exists(ctx)
}

// IsEventManager reports whether userID manages the club that runs the event.
func (d *DB) IsEventManager(ctx context.Context, eventID, userID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Join("JOIN clubs AS c ON c.id = e.club_id").
		Where("e.id = ?", eventID).
		Where("c.owner_id = ?", userID).
		Exists(ctx)
}

// ---------------- BOOKINGS ----------------

// CreateBooking inserts the booking under an id from nextID. When the id is
// already taken the insert is a no-op and a fresh id is drawn, up to MaxIDAttempts.
func (d *DB) CreateBooking(ctx context.Context, booking *models.Booking, nextID func() string) error {
	if nextID == nil {
		return errNoIDGenerator
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now()
	}

	for attempt := 1; attempt <= MaxIDAttempts; attempt++ {
		booking.ID = nextID()
		inserted, err := d.InsertBookingIfAbsent(ctx, booking)
		if err != nil {
			return err
		}
		if inserted {
			return nil
		}
	}
	return ErrIDSpaceExhausted
}

// InsertBookingIfAbsent inserts the booking unless its id already exists.
func (d *DB) InsertBookingIfAbsent(ctx context.Context, booking *models.Booking) (bool, error) {
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now()
	}
	res, err := d.Bun.NewInsert().
		Model(booking).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert booking %s: %w", booking.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetBookingByID → fetch one booking by its id
func (d *DB) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.NewSelect().
		Model(&booking).
		Where("b.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &booking, nil
}

// UpdateBookingPayment stores the amounts and session id of the opened checkout.
func (d *DB) UpdateBookingPayment(ctx context.Context, booking *models.Booking) error {
	_, err := d.Bun.NewUpdate().
		Model(booking).
		Column("total_amount", "commission_amount", "currency", "stripe_session_id").
		Where("id = ?", booking.ID).
		Exec(ctx)
	return err
}

// ConfirmBooking moves a pending booking to confirmed. It returns false when
// the booking was not pending, so a booking is confirmed at most once.
func (d *DB) ConfirmBooking(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("status = ?", models.BookingStatusConfirmed).
		Set("confirmed_at = ?", at).
		Where("id = ?", id).
		Where("status = ?", models.BookingStatusPending).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("confirm booking %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListBookingsByUser → newest first, optionally filtered by status
func (d *DB) ListBookingsByUser(ctx context.Context, userID string, status string) ([]models.Booking, error) {
	bookings := []models.Booking{}
	q := d.Bun.NewSelect().
		Model(&bookings).
		Relation("Event").
		Where("b.user_id = ?", userID).
		OrderExpr("b.created_at DESC")
	if status != "" {
		q = q.Where("b.status = ?", status)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return bookings, nil
}

// ListBookingsForManager returns bookings for every event of the clubs owned by ownerID.
func (d *DB) ListBookingsForManager(ctx context.Context, ownerID string, eventID string) ([]models.Booking, error) {
	managed := d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Column("e.id").
		Join("JOIN clubs AS c ON c.id = e.club_id").
		Where("c.owner_id = ?", ownerID)

	bookings := []models.Booking{}
	q := d.Bun.NewSelect().
		Model(&bookings).
		Relation("Event").
		Where("b.event_id IN (?)", managed).
		OrderExpr("b.created_at DESC")
	if eventID != "" {
		q = q.Where("b.event_id = ?", eventID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return bookings, nil
}

// ---------------- WEBHOOK EVENTS ----------------

// MarkWebhookEventProcessed records the event id. It returns false when the
// id was already recorded.
func (d *DB) MarkWebhookEventProcessed(ctx context.Context, evt *models.ProcessedWebhookEvent) (bool, error) {
	if evt.ProcessedAt.IsZero() {
		evt.ProcessedAt = time.Now()
	}
	res, err := d.Bun.NewInsert().
		Model(evt).
		On("CONFLICT (event_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("record webhook event %s: %w", evt.EventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseWebhookEvent forgets a recorded event so a redelivery is processed again.
func (d *DB) ReleaseWebhookEvent(ctx context.Context, eventID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.ProcessedWebhookEvent)(nil)).
		Where("event_id = ?", eventID).
		Exec(ctx)
	return err
}

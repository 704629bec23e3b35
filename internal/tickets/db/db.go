package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clubster-booking/internal/models"

	"github.com/uptrace/bun"
)

// MaxIDAttempts bounds retries when a generated ticket id collides.
const MaxIDAttempts = 5

var (
	ErrNotFound         = errors.New("ticket not found")
	ErrIDSpaceExhausted = errors.New("could not allocate a unique ticket id")
)

type DB struct {
	Bun *bun.DB
}

// IssueRequest describes the tickets to create for one confirmed booking.
type IssueRequest struct {
	BookingID        string
	TicketCategoryID string
	Quantity         int
	// Build returns the ticket for unit i. It is called again with a new id on collision.
	Build  func(unitIndex int) models.Ticket
	NextID func() string
}

type IssueResult struct {
	Tickets []models.Ticket
	// Skipped is set when the booking already had tickets.
	Skipped bool
	// InventorySkipped is set when the category did not have enough tickets left to decrement.
	InventorySkipped bool
}

// IssueTickets creates the tickets of a booking and settles inventory in one
// transaction. Nothing is written when the booking already has tickets.
func (d *DB) IssueTickets(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	result := &IssueResult{}

	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := tx.NewSelect().
			Model((*models.Ticket)(nil)).
			Where("booking_id = ?", req.BookingID).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("count tickets for booking %s: %w", req.BookingID, err)
		}
		if existing > 0 {
			result.Skipped = true
			return nil
		}

		for i := 0; i < req.Quantity; i++ {
			ticket, err := insertTicket(ctx, tx, req, i)
			if err != nil {
				return err
			}
			result.Tickets = append(result.Tickets, ticket)
		}

		if req.TicketCategoryID == "" {
			return nil
		}
		decremented, err := decrementAvailable(ctx, &tx, req.TicketCategoryID, req.Quantity)
		if err != nil {
			return err
		}
		result.InventorySkipped = !decremented
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func insertTicket(ctx context.Context, tx bun.Tx, req IssueRequest, unitIndex int) (models.Ticket, error) {
	for attempt := 1; attempt <= MaxIDAttempts; attempt++ {
		ticket := req.Build(unitIndex)
		ticket.ID = req.NextID()

		res, err := tx.NewInsert().
			Model(&ticket).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return models.Ticket{}, fmt.Errorf("insert ticket %d for booking %s: %w", unitIndex, req.BookingID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return models.Ticket{}, err
		}
		if n == 1 {
			return ticket, nil
		}
	}
	return models.Ticket{}, ErrIDSpaceExhausted
}

// decrementAvailable subtracts quantity only when enough tickets remain, as a
// single conditional statement. It returns false when the row was left unchanged.
func decrementAvailable(ctx context.Context, idb bun.IDB, categoryID string, quantity int) (bool, error) {
	res, err := idb.NewUpdate().
		Model((*models.TicketCategory)(nil)).
		Set("available_tickets = available_tickets - ?", quantity).
		Where("id = ?", categoryID).
		Where("available_tickets >= ?", quantity).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("decrement inventory for category %s: %w", categoryID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DecrementAvailable is the standalone form of the inventory settlement.
func (d *DB) DecrementAvailable(ctx context.Context, categoryID string, quantity int) (bool, error) {
	return decrementAvailable(ctx, d.Bun, categoryID, quantity)
}

// GetTicketByID → fetch one ticket by its id
func (d *DB) GetTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("t.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// GetTicketsByBooking → tickets of a booking ordered by unit index
func (d *DB) GetTicketsByBooking(ctx context.Context, bookingID string) ([]models.Ticket, error) {
	tickets := []models.Ticket{}
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("t.booking_id = ?", bookingID).
		Order("t.unit_index").
		Scan(ctx)
	return tickets, err
}

// CountTicketsByBooking → number of tickets already issued for a booking
func (d *DB) CountTicketsByBooking(ctx context.Context, bookingID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("booking_id = ?", bookingID).
		Count(ctx)
}

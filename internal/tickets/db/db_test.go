package db_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"clubster-booking/internal/dbtest"
	"clubster-booking/internal/models"
	"clubster-booking/internal/tickets/db"
	"clubster-booking/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueRequest(booking models.Booking, categoryID string) db.IssueRequest {
	return db.IssueRequest{
		BookingID:        booking.ID,
		TicketCategoryID: categoryID,
		Quantity:         booking.Quantity,
		NextID:           utils.GenerateTicketID,
		Build: func(i int) models.Ticket {
			now := time.Now()
			return models.Ticket{
				BookingID:        booking.ID,
				EventID:          booking.EventID,
				UserID:           booking.UserID,
				TicketCategoryID: categoryID,
				UnitIndex:        i,
				Payload:          utils.TicketPayload(booking.ID, i, now),
				CreatedAt:        now,
			}
		},
	}
}

func TestIssueTicketsDecrementsInventory(t *testing.T) {
	bunDB := dbtest.NewDB(t)
	catalog := dbtest.SeedCatalog(t, bunDB, 20.00, 5)
	store := &db.DB{Bun: bunDB}
	ctx := context.Background()

	booking := models.Booking{ID: "B123ABCDE0", UserID: "u1", EventID: catalog.Event.ID, Quantity: 2}

	result, err := store.IssueTickets(ctx, issueRequest(booking, catalog.Category.ID))
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.False(t, result.InventorySkipped)
	require.Len(t, result.Tickets, 2)
	for i, ticket := range result.Tickets {
		assert.Regexp(t, `^T[A-Z0-9]{9}$`, ticket.ID)
		assert.Equal(t, i, ticket.UnitIndex)
		assert.Regexp(t, fmt.Sprintf(`^%s-%d-\d+$`, booking.ID, i), ticket.Payload)
	}
	assert.Equal(t, 3, dbtest.AvailableTickets(t, bunDB, catalog.Category.ID))

	stored, err := store.GetTicketsByBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.Equal(t, 0, stored[0].UnitIndex)
}

func TestIssueTicketsSkipsWhenAlreadyIssued(t *testing.T) {
	bunDB := dbtest.NewDB(t)
	catalog := dbtest.SeedCatalog(t, bunDB, 20.00, 5)
	store := &db.DB{Bun: bunDB}
	ctx := context.Background()

	booking := models.Booking{ID: "B123ABCDE0", UserID: "u1", EventID: catalog.Event.ID, Quantity: 2}

	_, err := store.IssueTickets(ctx, issueRequest(booking, catalog.Category.ID))
	require.NoError(t, err)

	again, err := store.IssueTickets(ctx, issueRequest(booking, catalog.Category.ID))
	require.NoError(t, err)
	assert.True(t, again.Skipped)
	assert.Empty(t, again.Tickets)

	count, err := store.CountTicketsByBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 3, dbtest.AvailableTickets(t, bunDB, catalog.Category.ID))
}

func TestIssueTicketsLeavesInventoryWhenInsufficient(t *testing.T) {
	bunDB := dbtest.NewDB(t)
	catalog := dbtest.SeedCatalog(t, bunDB, 20.00, 1)
	store := &db.DB{Bun: bunDB}

	booking := models.Booking{ID: "BBIGORDER0", UserID: "u1", EventID: catalog.Event.ID, Quantity: 3}

	result, err := store.IssueTickets(context.Background(), issueRequest(booking, catalog.Category.ID))
	require.NoError(t, err)
	assert.True(t, result.InventorySkipped)
	assert.Len(t, result.Tickets, 3)
	assert.Equal(t, 1, dbtest.AvailableTickets(t, bunDB, catalog.Category.ID))
}

func TestIssueTicketsRetriesTicketIDCollision(t *testing.T) {
	bunDB := dbtest.NewDB(t)
	catalog := dbtest.SeedCatalog(t, bunDB, 20.00, 5)
	store := &db.DB{Bun: bunDB}
	ctx := context.Background()

	first := models.Booking{ID: "BFIRST0000", UserID: "u1", EventID: catalog.Event.ID, Quantity: 1}
	req := issueRequest(first, "")
	req.NextID = func() string { return "TDUPLICATE" }
	_, err := store.IssueTickets(ctx, req)
	require.NoError(t, err)

	ids := []string{"TDUPLICATE", "TUNIQUE000"}
	calls := 0
	second := models.Booking{ID: "BSECOND000", UserID: "u1", EventID: catalog.Event.ID, Quantity: 1}
	req = issueRequest(second, "")
	req.NextID = func() string {
		id := ids[calls]
		calls++
		return id
	}
	result, err := store.IssueTickets(ctx, req)
	require.NoError(t, err)
	require.Len(t, result.Tickets, 1)
	assert.Equal(t, "TUNIQUE000", result.Tickets[0].ID)
	assert.Equal(t, 5, dbtest.AvailableTickets(t, bunDB, catalog.Category.ID))
}

func TestDecrementAvailableNeverGoesNegative(t *testing.T) {
	bunDB := dbtest.NewDB(t)
	catalog := dbtest.SeedCatalog(t, bunDB, 20.00, 5)
	store := &db.DB{Bun: bunDB}
	ctx := context.Background()

	for _, qty := range []int{2, 2, 2, 1, 1} {
		_, err := store.DecrementAvailable(ctx, catalog.Category.ID, qty)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, dbtest.AvailableTickets(t, bunDB, catalog.Category.ID), 0)
	}
	assert.Equal(t, 0, dbtest.AvailableTickets(t, bunDB, catalog.Category.ID))

	ok, err := store.DecrementAvailable(ctx, catalog.Category.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetTicketByID(t *testing.T) {
	store := &db.DB{Bun: dbtest.NewDB(t)}

	_, err := store.GetTicketByID(context.Background(), "TMISSING00")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

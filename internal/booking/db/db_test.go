package db_test

import (
	"context"
	"testing"
	"time"

	"clubster-booking/internal/booking/db"
	"clubster-booking/internal/dbtest"
	"clubster-booking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEventWithClub(t *testing.T) {
	bunDB := dbtest.NewDB(t)
	catalog := dbtest.SeedCatalog(t, bunDB, 20.00, 5)
	store := &db.DB{Bun: bunDB}
	ctx := context.Background()

	event, err := store.GetEventWithClub(ctx, catalog.Event.ID)
	require.NoError(t, err)
	require.NotNil(t, event.Club)
	assert.Equal(t, catalog.Club.ID, event.Club.ID)
	assert.True(t, event.Club.CanAcceptPayments())

	_, err = store.GetEventWithClub(ctx, "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)

	category, err := store.GetTicketCategory(ctx, catalog.Category.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), category.UnitAmount())

	_, err = store.GetTicketCategory(ctx, "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestCreateBookingRetriesOnCollision(t *testing.T) {
	bunDB := dbtest.NewDB(t)
	catalog := dbtest.SeedCatalog(t, bunDB, 20.00, 5)
	store := &db.DB{Bun: bunDB}
	ctx := context.Background()

	dbtest.InsertBooking(t, bunDB, models.Booking{ID: "BTAKEN0001", UserID: "u1", EventID: catalog.Event.ID, Quantity: 1})

	ids := []string{"BTAKEN0001", "BTAKEN0001", "BFRESH0002"}
	calls := 0
	next := func() string {
		id := ids[calls]
		calls++
		return id
	}

	booking := &models.Booking{
		UserID:           "u2",
		EventID:          catalog.Event.ID,
		TicketCategoryID: catalog.Category.ID,
		Quantity:         2,
		Status:           models.BookingStatusPending,
	}
	require.NoError(t, store.CreateBooking(ctx, booking, next))
	assert.Equal(t, "BFRESH0002", booking.ID)
	assert.Equal(t, 3, calls)

	stored, err := store.GetBookingByID(ctx, "BFRESH0002")
	require.NoError(t, err)
	assert.Equal(t, "u2", stored.UserID)
	assert.Equal(t, models.BookingStatusPending, stored.Status)
}

func TestCreateBookingGivesUpAfterMaxAttempts(t *testing.T) {
	bunDB := dbtest.NewDB(t)
	catalog := dbtest.SeedCatalog(t, bunDB, 20.00, 5)
	store := &db.DB{Bun: bunDB}

	dbtest.InsertBooking(t, bunDB, models.Booking{ID: "BSAME00000", UserID: "u1", EventID: catalog.Event.ID, Quantity: 1})

	calls := 0
	err := store.CreateBooking(context.Background(), &models.Booking{UserID: "u2", EventID: catalog.Event.ID, Quantity: 1, Status: models.BookingStatusPending}, func() string {
		calls++
		return "BSAME00000"
	})
	assert.ErrorIs(t, err, db.ErrIDSpaceExhausted)
	assert.Equal(t, db.MaxIDAttempts, calls)
}

func TestConfirmBookingIsOneShot(t *testing.T) {
	bunDB := dbtest.NewDB(t)
	catalog := dbtest.SeedCatalog(t, bunDB, 20.00, 5)
	store := &db.DB{Bun: bunDB}
	ctx := context.Background()

	dbtest.InsertBooking(t, bunDB, models.Booking{ID: "B123ABCDE0", UserID: "u1", EventID: catalog.Event.ID, Quantity: 2})

	confirmed, err := store.ConfirmBooking(ctx, "B123ABCDE0", time.Now())
	require.NoError(t, err)
	assert.True(t, confirmed)

	confirmed, err = store.ConfirmBooking(ctx, "B123ABCDE0", time.Now())
	require.NoError(t, err)
	assert.False(t, confirmed)

	booking, err := store.GetBookingByID(ctx, "B123ABCDE0")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
	assert.NotNil(t, booking.ConfirmedAt)

	confirmed, err = store.ConfirmBooking(ctx, "BUNKNOWN00", time.Now())
	require.NoError(t, err)
	assert.False(t, confirmed)
}

func TestWebhookEventDedup(t *testing.T) {
	store := &db.DB{Bun: dbtest.NewDB(t)}
	ctx := context.Background()

	first, err := store.MarkWebhookEventProcessed(ctx, &models.ProcessedWebhookEvent{EventID: "evt_1", EventType: "checkout.session.completed"})
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.MarkWebhookEventProcessed(ctx, &models.ProcessedWebhookEvent{EventID: "evt_1", EventType: "checkout.session.completed"})
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, store.ReleaseWebhookEvent(ctx, "evt_1"))

	afterRelease, err := store.MarkWebhookEventProcessed(ctx, &models.ProcessedWebhookEvent{EventID: "evt_1", EventType: "checkout.session.completed"})
	require.NoError(t, err)
	assert.True(t, afterRelease)
}

func TestListBookings(t *testing.T) {
	bunDB := dbtest.NewDB(t)
	catalog := dbtest.SeedCatalog(t, bunDB, 20.00, 5)
	other := dbtest.SeedCatalog(t, bunDB, 10.00, 5)
	store := &db.DB{Bun: bunDB}
	ctx := context.Background()

	now := time.Now()
	dbtest.InsertBooking(t, bunDB, models.Booking{ID: "BOLDER0001", UserID: "u1", EventID: catalog.Event.ID, Quantity: 1, CreatedAt: now.Add(-time.Hour)})
	dbtest.InsertBooking(t, bunDB, models.Booking{ID: "BNEWER0002", UserID: "u1", EventID: catalog.Event.ID, Quantity: 1, CreatedAt: now, Status: models.BookingStatusConfirmed})
	dbtest.InsertBooking(t, bunDB, models.Booking{ID: "BOTHER0003", UserID: "u2", EventID: other.Event.ID, Quantity: 1, CreatedAt: now})

	mine, err := store.ListBookingsByUser(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "BNEWER0002", mine[0].ID)
	require.NotNil(t, mine[0].Event)
	assert.Equal(t, catalog.Event.Title, mine[0].Event.Title)

	confirmed, err := store.ListBookingsByUser(ctx, "u1", string(models.BookingStatusConfirmed))
	require.NoError(t, err)
	assert.Len(t, confirmed, 1)

	managed, err := store.ListBookingsForManager(ctx, catalog.Club.OwnerID, "")
	require.NoError(t, err)
	assert.Len(t, managed, 2)

	none, err := store.ListBookingsForManager(ctx, catalog.Club.OwnerID, other.Event.ID)
	require.NoError(t, err)
	assert.Empty(t, none)

	isOwner, err := store.IsClubOwner(ctx, catalog.Club.ID, catalog.Club.OwnerID)
	require.NoError(t, err)
	assert.True(t, isOwner)

	isManager, err := store.IsEventManager(ctx, other.Event.ID, catalog.Club.OwnerID)
	require.NoError(t, err)
	assert.False(t, isManager)
}

package sse

import (
	"context"
	"testing"
	"time"

	"clubster-booking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitReachesClubAndEventSubscribers(t *testing.T) {
	e := NewBookingEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	club := e.SubscribeToClub(ctx, "club-1")
	event := e.SubscribeToEvent(ctx, "event-1")
	other := e.SubscribeToClub(ctx, "club-2")

	e.EmitBooking(models.BookingWithTickets{
		Booking: models.Booking{ID: "BABCDEF123", EventID: "event-1"},
		ClubID:  "club-1",
	})

	select {
	case got := <-club:
		assert.Equal(t, "BABCDEF123", got.Booking.ID)
	case <-time.After(time.Second):
		t.Fatal("club subscriber did not receive booking")
	}
	select {
	case got := <-event:
		assert.Equal(t, "BABCDEF123", got.Booking.ID)
	case <-time.After(time.Second):
		t.Fatal("event subscriber did not receive booking")
	}
	select {
	case <-other:
		t.Fatal("unrelated club received booking")
	default:
	}
}

func TestSubscriberRemovedOnCancel(t *testing.T) {
	e := NewBookingEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	ch := e.SubscribeToClub(ctx, "club-1")
	require.Equal(t, 1, e.ClubClientCount("club-1"))

	cancel()
	require.Eventually(t, func() bool { return e.ClubClientCount("club-1") == 0 }, time.Second, 10*time.Millisecond)

	_, open := <-ch
	assert.False(t, open)

	// emitting after disconnect must not panic
	e.EmitBooking(models.BookingWithTickets{ClubID: "club-1"})
}

func TestSlowClientDoesNotBlock(t *testing.T) {
	e := NewBookingEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.SubscribeToEvent(ctx, "event-1")
	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			e.EmitBooking(models.BookingWithTickets{Booking: models.Booking{EventID: "event-1"}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a full client buffer")
	}
	assert.Equal(t, 1, e.EventClientCount("event-1"))
}

package sse

import (
	"context"
	"sync"

	"clubster-booking/internal/models"
)

// BookingEventEmitter fans confirmed bookings out to managers watching a club or an event
type BookingEventEmitter struct {
	// key: clubID, value: client channels
	clubClients     map[string][]chan models.BookingWithTickets
	clubClientMutex sync.RWMutex

	// key: eventID, value: client channels
	eventClients     map[string][]chan models.BookingWithTickets
	eventClientMutex sync.RWMutex
}

func NewBookingEventEmitter() *BookingEventEmitter {
	return &BookingEventEmitter{
		clubClients:  make(map[string][]chan models.BookingWithTickets),
		eventClients: make(map[string][]chan models.BookingWithTickets),
	}
}

// SubscribeToClub adds a client to the club's booking stream
func (e *BookingEventEmitter) SubscribeToClub(ctx context.Context, clubID string) chan models.BookingWithTickets {
	return subscribe(ctx, &e.clubClientMutex, e.clubClients, clubID)
}

// SubscribeToEvent adds a client to the event's booking stream
func (e *BookingEventEmitter) SubscribeToEvent(ctx context.Context, eventID string) chan models.BookingWithTickets {
	return subscribe(ctx, &e.eventClientMutex, e.eventClients, eventID)
}

func subscribe(ctx context.Context, mu *sync.RWMutex, clients map[string][]chan models.BookingWithTickets, key string) chan models.BookingWithTickets {
	clientChan := make(chan models.BookingWithTickets, 10)

	mu.Lock()
	clients[key] = append(clients[key], clientChan)
	mu.Unlock()

	// Remove client when context is done
	go func() {
		<-ctx.Done()
		remove(mu, clients, key, clientChan)
	}()

	return clientChan
}

// EmitBooking broadcasts a settled booking to club and event subscribers
func (e *BookingEventEmitter) EmitBooking(booking models.BookingWithTickets) {
	broadcast(&e.clubClientMutex, e.clubClients, booking.ClubID, booking)
	broadcast(&e.eventClientMutex, e.eventClients, booking.Booking.EventID, booking)
}

// The read lock is held while sending so a disconnecting client cannot close its channel mid-send.
func broadcast(mu *sync.RWMutex, clients map[string][]chan models.BookingWithTickets, key string, booking models.BookingWithTickets) {
	if key == "" {
		return
	}
	mu.RLock()
	defer mu.RUnlock()

	for _, clientChan := range clients[key] {
		// Non-blocking send, a slow client misses the update
		select {
		case clientChan <- booking:
		default:
		}
	}
}

func remove(mu *sync.RWMutex, clients map[string][]chan models.BookingWithTickets, key string, clientChan chan models.BookingWithTickets) {
	mu.Lock()
	defer mu.Unlock()

	list := clients[key]
	for i, ch := range list {
		if ch == clientChan {
			clients[key] = append(list[:i], list[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(clients[key]) == 0 {
		delete(clients, key)
	}
}

// ClubClientCount returns the number of clients currently subscribed to a club
func (e *BookingEventEmitter) ClubClientCount(clubID string) int {
	e.clubClientMutex.RLock()
	defer e.clubClientMutex.RUnlock()
	return len(e.clubClients[clubID])
}

// EventClientCount returns the number of clients currently subscribed to an event
func (e *BookingEventEmitter) EventClientCount(eventID string) int {
	e.eventClientMutex.RLock()
	defer e.eventClientMutex.RUnlock()
	return len(e.eventClients[eventID])
}

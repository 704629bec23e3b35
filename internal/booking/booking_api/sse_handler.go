package booking_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"clubster-booking/internal/auth"
	"clubster-booking/internal/booking"
	"clubster-booking/internal/logger"
	"clubster-booking/internal/models"
	"clubster-booking/internal/sse"

	"github.com/go-chi/chi/v5"
)

type ManagerAuthorizer interface {
	AuthorizeClubManager(ctx context.Context, clubID, userID string) error
	AuthorizeEventManager(ctx context.Context, eventID, userID string) error
}

// SSEHandler streams confirmed bookings to club managers
type SSEHandler struct {
	Logger       *logger.Logger
	EventEmitter *sse.BookingEventEmitter
	Authorizer   ManagerAuthorizer
}

func NewSSEHandler(l *logger.Logger, emitter *sse.BookingEventEmitter, authorizer ManagerAuthorizer) *SSEHandler {
	return &SSEHandler{
		Logger:       l,
		EventEmitter: emitter,
		Authorizer:   authorizer,
	}
}

// HandleClubBookings streams booking events for a club
func (h *SSEHandler) HandleClubBookings(w http.ResponseWriter, r *http.Request) {
	clubID := chi.URLParam(r, "clubID")
	if clubID == "" {
		http.Error(w, "Club ID is required", http.StatusBadRequest)
		return
	}
	if !h.authorize(w, r, func(ctx context.Context, userID string) error {
		return h.Authorizer.AuthorizeClubManager(ctx, clubID, userID)
	}) {
		return
	}

	h.stream(w, r, "clubID", clubID, h.EventEmitter.SubscribeToClub(r.Context(), clubID))
}

// HandleEventBookings streams booking events for a single event
func (h *SSEHandler) HandleEventBookings(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	if eventID == "" {
		http.Error(w, "Event ID is required", http.StatusBadRequest)
		return
	}
	if !h.authorize(w, r, func(ctx context.Context, userID string) error {
		return h.Authorizer.AuthorizeEventManager(ctx, eventID, userID)
	}) {
		return
	}

	h.stream(w, r, "eventID", eventID, h.EventEmitter.SubscribeToEvent(r.Context(), eventID))
}

func (h *SSEHandler) authorize(w http.ResponseWriter, r *http.Request, check func(ctx context.Context, userID string) error) bool {
	userID := auth.UserID(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized access", http.StatusUnauthorized)
		return false
	}

	if err := check(r.Context(), userID); err != nil {
		if errors.Is(err, booking.ErrForbidden) {
			h.Logger.LogSecurity("SSE", fmt.Sprintf("user %s denied: %v", userID, err))
			http.Error(w, "Forbidden", http.StatusForbidden)
			return false
		}
		h.Logger.Error("SSE", fmt.Sprintf("access verification failed: %v", err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *SSEHandler) stream(w http.ResponseWriter, r *http.Request, label, id string, events chan models.BookingWithTickets) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	h.setupSSEHeaders(w)
	ctx := r.Context()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"%s\":\"%s\"}\n\n", label, id)
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to booking events for %s %s", label, id))

	for {
		select {
		case b, ok := <-events:
			if !ok {
				h.Logger.Debug("SSE", fmt.Sprintf("Channel closed for %s %s", label, id))
				return
			}

			jsonData, err := json.Marshal(b)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize booking event: %v", err))
				continue
			}

			fmt.Fprintf(w, "event: booking\ndata: %s\n\n", jsonData)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from booking events for %s %s", label, id))
			return
		}
	}
}

func (h *SSEHandler) setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Accel-Buffering", "no")
}

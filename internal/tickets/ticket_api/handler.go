package ticket_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"clubster-booking/internal/auth"
	bookingdb "clubster-booking/internal/booking/db"
	"clubster-booking/internal/logger"
	"clubster-booking/internal/models"
	"clubster-booking/internal/tickets/qr"
	tickets "clubster-booking/internal/tickets/service"
	"clubster-booking/internal/utils"
)

// BookingLookup is the slice of the booking store the ticket routes need.
type BookingLookup interface {
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	GetEventWithClub(ctx context.Context, id string) (*models.Event, error)
	IsEventManager(ctx context.Context, eventID, userID string) (bool, error)
}

type Handler struct {
	TicketService *tickets.TicketService
	Bookings      BookingLookup
	Logger        *logger.Logger
}

func NewHandler(ticketService *tickets.TicketService, bookings BookingLookup, l *logger.Logger) *Handler {
	return &Handler{
		TicketService: ticketService,
		Bookings:      bookings,
		Logger:        l,
	}
}

// DownloadTickets streams the PDF for a confirmed booking.
// Only the booking owner or a manager of the event's club may fetch it.
func (h *Handler) DownloadTickets(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", "missing user")
		return
	}

	bookingID := r.URL.Query().Get("booking_id")
	if bookingID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request", "booking_id is required")
		return
	}

	booking, err := h.Bookings.GetBookingByID(r.Context(), bookingID)
	if err != nil {
		if errors.Is(err, bookingdb.ErrNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Booking not found", bookingID)
			return
		}
		h.Logger.Error("TICKET_API", fmt.Sprintf("failed to load booking %s: %v", bookingID, err))
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	if booking.UserID != userID {
		isManager, err := h.Bookings.IsEventManager(r.Context(), booking.EventID, userID)
		if err != nil {
			h.Logger.Error("TICKET_API", fmt.Sprintf("manager check failed for booking %s: %v", bookingID, err))
			utils.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
			return
		}
		if !isManager {
			h.Logger.LogSecurity("TICKET_DOWNLOAD", fmt.Sprintf("user %s denied booking %s", userID, bookingID))
			utils.WriteError(w, http.StatusForbidden, "Forbidden", "booking belongs to another user")
			return
		}
	}

	if !booking.IsConfirmed() {
		utils.WriteError(w, http.StatusConflict, "Booking not confirmed", string(booking.Status))
		return
	}

	event, err := h.Bookings.GetEventWithClub(r.Context(), booking.EventID)
	if err != nil {
		h.Logger.Error("TICKET_API", fmt.Sprintf("failed to load event %s: %v", booking.EventID, err))
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	pdf, err := h.TicketService.RenderBookingPDF(r.Context(), *booking, *event)
	if err != nil {
		h.Logger.Error("TICKET_API", fmt.Sprintf("failed to render tickets for %s: %v", bookingID, err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to render tickets", "")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tickets-%s.pdf"`, bookingID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// VerifyTicket checks a scanned QR token at the door.
// Expected POST request body: {"token": "base64url"}
func (h *Handler) VerifyTicket(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", "missing user")
		return
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request", "token is required")
		return
	}

	ticket, err := h.TicketService.VerifyToken(r.Context(), body.Token)
	if err != nil {
		switch {
		case errors.Is(err, qr.ErrInvalidToken):
			utils.WriteError(w, http.StatusBadRequest, "Invalid token", err.Error())
		case errors.Is(err, tickets.ErrTokenMismatch):
			utils.WriteError(w, http.StatusNotFound, "Ticket not found", err.Error())
		default:
			h.Logger.Error("TICKET_API", fmt.Sprintf("verify failed: %v", err))
			utils.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		}
		return
	}

	isManager, err := h.Bookings.IsEventManager(r.Context(), ticket.EventID, userID)
	if err != nil {
		h.Logger.Error("TICKET_API", fmt.Sprintf("manager check failed for ticket %s: %v", ticket.ID, err))
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	if !isManager {
		h.Logger.LogSecurity("TICKET_VERIFY", fmt.Sprintf("user %s cannot verify ticket %s", userID, ticket.ID))
		utils.WriteError(w, http.StatusForbidden, "Forbidden", "not a manager of this event")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket valid", ticket))
}

package booking_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"clubster-booking/internal/auth"
	"clubster-booking/internal/booking"
	"clubster-booking/internal/logger"
	"clubster-booking/internal/models"
	"clubster-booking/internal/utils"
)

// maxWebhookBodyBytes caps webhook payloads at 64 KiB.
const maxWebhookBodyBytes = int64(65536)

type Handler struct {
	Service *booking.Service
	Logger  *logger.Logger
}

func NewHandler(svc *booking.Service, l *logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: l}
}

// checkoutStatus maps checkout errors to HTTP status codes
func checkoutStatus(err error) int {
	switch {
	case errors.Is(err, booking.ErrInvalidRequest),
		errors.Is(err, booking.ErrInvalidQuantity),
		errors.Is(err, booking.ErrMerchantNotReady),
		errors.Is(err, booking.ErrInsufficientInventory):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrCategoryNotFound),
		errors.Is(err, booking.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrCheckoutInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Checkout opens a payment session for the caller.
// Expected POST request body: {"eventId": "...", "ticketCategoryId": "...", "quantity": 2}
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", "missing user")
		return
	}

	var req models.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	resp, err := h.Service.StartCheckout(r.Context(), userID, req)
	if err != nil {
		status := checkoutStatus(err)
		if status == http.StatusInternalServerError {
			utils.WriteError(w, status, "Failed to start checkout", "")
			return
		}
		utils.WriteError(w, status, "Checkout rejected", err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, resp)
}

// StripeWebhook handles checkout events delivered by Stripe
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("StripeWebhook: failed to read payload: %v", err))
		http.Error(w, "Invalid webhook payload", http.StatusBadRequest)
		return
	}

	err = h.Service.HandleStripeWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		var webhookErr *booking.WebhookError
		if errors.As(err, &webhookErr) {
			h.Logger.Info("API", fmt.Sprintf("StripeWebhook: category=%s, status=%d", webhookErr.Category, webhookErr.StatusCode))
			http.Error(w, webhookErr.PublicError, webhookErr.StatusCode)
			return
		}

		h.Logger.Error("API", fmt.Sprintf("StripeWebhook: unexpected error: %v", err))
		http.Error(w, "Webhook processing error", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, models.WebhookAck{Received: true})
}

// ListBookings returns the caller's bookings, optionally filtered by ?status=
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", "missing user")
		return
	}

	bookings, err := h.Service.ListBookings(r.Context(), userID, r.URL.Query().Get("status"))
	if err != nil {
		if errors.Is(err, booking.ErrInvalidStatus) {
			utils.WriteError(w, http.StatusBadRequest, "Invalid status filter", err.Error())
			return
		}
		h.Logger.Error("API", fmt.Sprintf("ListBookings: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to fetch bookings", "")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Bookings retrieved", bookings))
}

// ListManagerBookings returns bookings across the caller's clubs, optionally for one ?event_id=
func (h *Handler) ListManagerBookings(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", "missing user")
		return
	}

	bookings, err := h.Service.ListManagerBookings(r.Context(), userID, r.URL.Query().Get("event_id"))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListManagerBookings: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to fetch bookings", "")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Bookings retrieved", bookings))
}

package analytics_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"clubster-booking/internal/analytics"
	"clubster-booking/internal/auth"
	"clubster-booking/internal/booking"
	"clubster-booking/internal/logger"

	"github.com/go-chi/chi/v5"
)

type EventAuthorizer interface {
	AuthorizeEventManager(ctx context.Context, eventID, userID string) error
}

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service    *analytics.Service
	Authorizer EventAuthorizer
	Logger     *logger.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *analytics.Service, authorizer EventAuthorizer, logger *logger.Logger) *Handler {
	return &Handler{
		Service:    service,
		Authorizer: authorizer,
		Logger:     logger,
	}
}

// RegisterRoutes registers the analytics routes on a chi router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/manager/events/{eventID}/sales", h.GetEventSales)
}

// sendJSONResponse is a helper function to send JSON responses
func sendJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// GetEventSales handles the per-category sales summary for an event
func (h *Handler) GetEventSales(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	if eventID == "" {
		sendJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "event_id is required"})
		return
	}

	// Extract user ID from context (injected by auth middleware)
	userID := auth.UserID(r.Context())
	if userID == "" {
		sendJSONResponse(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	if err := h.Authorizer.AuthorizeEventManager(r.Context(), eventID, userID); err != nil {
		if errors.Is(err, booking.ErrForbidden) {
			h.Logger.Warn("ANALYTICS", fmt.Sprintf("User %s is not a manager of event %s", userID, eventID))
			sendJSONResponse(w, http.StatusForbidden, map[string]string{"error": "You don't have permission to access this event's analytics"})
			return
		}
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Error verifying event ownership: %v", err))
		sendJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to verify event ownership"})
		return
	}

	report, err := h.Service.GetEventSales(r.Context(), eventID)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Error getting sales for event %s: %v", eventID, err))
		sendJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to get event sales"})
		return
	}

	sendJSONResponse(w, http.StatusOK, report)
}

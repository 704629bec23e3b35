package booking

import (
	"errors"

	"clubster-booking/internal/booking/db"
)

var (
	ErrInvalidRequest        = errors.New("eventId and ticketCategoryId are required")
	ErrInvalidQuantity       = errors.New("quantity must be at least 1")
	ErrInvalidStatus         = errors.New("unknown booking status")
	ErrCategoryNotFound      = errors.New("ticket category not found")
	ErrEventNotFound         = errors.New("event not found")
	ErrMerchantNotReady      = errors.New("club cannot accept payments yet")
	ErrInsufficientInventory = errors.New("not enough tickets available")
	ErrCheckoutInProgress    = errors.New("a checkout for this category is already in progress")
	ErrBookingNotFound       = errors.New("booking not found")
	ErrForbidden             = errors.New("not a manager of this club")
	ErrIDSpaceExhausted      = db.ErrIDSpaceExhausted
)

// Webhook error categories
const (
	WebhookErrConfiguration = "configuration"
	WebhookErrValidation    = "validation"
	WebhookErrProcessing    = "processing"
)

// WebhookError represents an error that occurred during webhook processing
type WebhookError struct {
	Category      string // configuration, validation or processing
	StatusCode    int
	PublicError   string // Safe to expose to clients
	InternalError string // Detailed error for logs only
	OriginalErr   error
}

func (e *WebhookError) Error() string {
	return e.InternalError
}

func (e *WebhookError) Unwrap() error {
	return e.OriginalErr
}

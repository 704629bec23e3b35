package payment

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v82"
)

var (
	ErrStripeAPIError         = errors.New("stripe API error")
	ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")
	ErrSignatureInvalid       = errors.New("webhook signature verification failed")
)

// CheckoutSessionRequest carries everything needed to open a hosted checkout
// on a club's connected account.
type CheckoutSessionRequest struct {
	BookingID        string
	UserID           string
	EventID          string
	TicketCategoryID string
	Quantity         int
	UnitAmount       int64
	Currency         string
	ProductName      string
	ApplicationFee   int64
	ConnectedAccount string
	SuccessURL       string
	CancelURL        string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// Gateway is the payment processor as seen by the booking service.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)
	PaymentIntentMetadata(ctx context.Context, intentID, account string) (map[string]string, error)
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

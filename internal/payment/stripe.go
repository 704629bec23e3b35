package payment

import (
	"context"
	"fmt"
	"strconv"

	"clubster-booking/internal/logger"
	"clubster-booking/internal/models"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeGateway handles integration with Stripe Connect checkout
type StripeGateway struct {
	client        *client.API
	webhookSecret string
	log           *logger.Logger
}

// NewStripeGateway creates a new instance of StripeGateway
func NewStripeGateway(secretKey, webhookSecret string, log *logger.Logger) (*StripeGateway, error) {
	if secretKey == "" {
		log.Error("STRIPE", "STRIPE_SECRET_KEY environment variable not set")
		return nil, ErrStripeClientInitFailed
	}

	sc := client.New(secretKey, nil)
	if sc == nil {
		log.Error("STRIPE", "Failed to initialize Stripe client")
		return nil, ErrStripeClientInitFailed
	}

	log.Info("STRIPE", "Stripe client initialized successfully")
	return &StripeGateway{
		client:        sc,
		webhookSecret: webhookSecret,
		log:           log,
	}, nil
}

func bookingMetadata(req CheckoutSessionRequest) map[string]string {
	return map[string]string{
		models.MetaUserID:           req.UserID,
		models.MetaEventID:          req.EventID,
		models.MetaQuantity:         strconv.Itoa(req.Quantity),
		models.MetaBookingID:        req.BookingID,
		models.MetaTicketCategoryID: req.TicketCategoryID,
	}
}

// CheckoutSessionParams builds the session request. Metadata is written to
// both the session and its payment intent.
func CheckoutSessionParams(req CheckoutSessionRequest) *stripe.CheckoutSessionParams {
	metadata := bookingMetadata(req)

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.BookingID),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.UnitAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ProductName),
					},
				},
				Quantity: stripe.Int64(int64(req.Quantity)),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(req.ApplicationFee),
			Metadata:             metadata,
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.SetStripeAccount(req.ConnectedAccount)
	return params
}

// CreateCheckoutSession opens a hosted checkout on the club's connected account.
func (s *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	params := CheckoutSessionParams(req)
	params.Context = ctx

	session, err := s.client.CheckoutSessions.New(params)
	if err != nil {
		s.log.Error("STRIPE", fmt.Sprintf("Failed to create checkout session for booking %s: %v", req.BookingID, err))
		return nil, fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}

	s.log.LogPayment("SESSION_CREATED", req.BookingID, fmt.Sprintf("session %s on %s (%d %s, fee %d)", session.ID, req.ConnectedAccount, req.UnitAmount*int64(req.Quantity), req.Currency, req.ApplicationFee))
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// PaymentIntentMetadata fetches an intent from the connected account and returns its metadata.
func (s *StripeGateway) PaymentIntentMetadata(ctx context.Context, intentID, account string) (map[string]string, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	if account != "" {
		params.SetStripeAccount(account)
	}

	intent, err := s.client.PaymentIntents.Get(intentID, params)
	if err != nil {
		s.log.Error("STRIPE", fmt.Sprintf("Failed to retrieve payment intent %s: %v", intentID, err))
		return nil, fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}
	return intent.Metadata, nil
}

// ConstructEvent verifies the Stripe-Signature header and decodes the event.
func (s *StripeGateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return ConstructEvent(payload, signature, s.webhookSecret)
}

func ConstructEvent(payload []byte, signature, secret string) (stripe.Event, error) {
	opts := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, opts)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return event, nil
}

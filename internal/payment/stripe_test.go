package payment

import (
	"io"
	"testing"
	"time"

	"clubster-booking/internal/logger"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

func signedPayload(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func TestConstructEvent(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","account":"acct_123","data":{"object":{"id":"cs_1","object":"checkout.session"}}}`)

	event, err := ConstructEvent(payload, signedPayload(t, payload, testWebhookSecret), testWebhookSecret)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, stripe.EventTypeCheckoutSessionCompleted, event.Type)
	assert.Equal(t, "acct_123", event.Account)

	_, err = ConstructEvent(payload, signedPayload(t, payload, "whsec_other"), testWebhookSecret)
	assert.ErrorIs(t, err, ErrSignatureInvalid)

	_, err = ConstructEvent(payload, "", testWebhookSecret)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestCheckoutSessionParams(t *testing.T) {
	params := CheckoutSessionParams(CheckoutSessionRequest{
		BookingID:        "BABCDEF123",
		UserID:           "user-1",
		EventID:          "event-1",
		TicketCategoryID: "cat-1",
		Quantity:         2,
		UnitAmount:       2000,
		Currency:         "eur",
		ProductName:      "Friday Night - General Admission",
		ApplicationFee:   200,
		ConnectedAccount: "acct_123",
		SuccessURL:       "https://app.test/bookings?booking_id=BABCDEF123&status=success",
		CancelURL:        "https://app.test/events/event-1?booking_id=BABCDEF123&status=cancelled",
	})

	assert.Equal(t, "payment", *params.Mode)
	assert.Equal(t, "BABCDEF123", *params.ClientReferenceID)
	assert.Equal(t, "acct_123", *params.StripeAccount)
	require.Len(t, params.LineItems, 1)
	assert.Equal(t, int64(2000), *params.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, int64(2), *params.LineItems[0].Quantity)
	assert.Equal(t, int64(200), *params.PaymentIntentData.ApplicationFeeAmount)

	for _, metadata := range []map[string]string{params.Metadata, params.PaymentIntentData.Metadata} {
		assert.Equal(t, "user-1", metadata["user_id"])
		assert.Equal(t, "event-1", metadata["event_id"])
		assert.Equal(t, "2", metadata["quantity"])
		assert.Equal(t, "BABCDEF123", metadata["booking_id"])
		assert.Equal(t, "cat-1", metadata["ticket_category_id"])
	}
}

func TestNewStripeGatewayRequiresKey(t *testing.T) {
	_, err := NewStripeGateway("", testWebhookSecret, logger.NewWithWriter(io.Discard))
	assert.ErrorIs(t, err, ErrStripeClientInitFailed)

	gw, err := NewStripeGateway("sk_test_123", testWebhookSecret, logger.NewWithWriter(io.Discard))
	require.NoError(t, err)
	assert.NotNil(t, gw)
}

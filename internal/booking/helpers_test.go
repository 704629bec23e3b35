package booking_test

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"clubster-booking/internal/booking"
	bookingdb "clubster-booking/internal/booking/db"
	"clubster-booking/internal/dbtest"
	"clubster-booking/internal/logger"
	"clubster-booking/internal/models"
	"clubster-booking/internal/payment"
	ticketdb "clubster-booking/internal/tickets/db"
	"clubster-booking/internal/tickets/qr"
	tickets "clubster-booking/internal/tickets/service"
	"clubster-booking/internal/tickets/template"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

const testWebhookSecret = "whsec_clubster_test"

var fixedNow = time.Date(2026, 3, 14, 21, 30, 0, 0, time.UTC)

// MockGateway mocks the processor API calls. Signature checks run for real.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutSessionRequest) (*payment.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CheckoutSession), args.Error(1)
}

func (m *MockGateway) PaymentIntentMetadata(ctx context.Context, intentID, account string) (map[string]string, error) {
	args := m.Called(ctx, intentID, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockGateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return payment.ConstructEvent(payload, signature, testWebhookSecret)
}

type published struct {
	Topic   string
	Key     string
	Payload interface{}
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []published
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, published{Topic: topic, Key: key, Payload: payload})
	return nil
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		out = append(out, m.Topic)
	}
	return out
}

type recordingNotifier struct {
	mu       sync.Mutex
	bookings []models.BookingWithTickets
}

func (n *recordingNotifier) EmitBooking(b models.BookingWithTickets) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bookings = append(n.bookings, b)
}

type harness struct {
	svc       *booking.Service
	db        *bun.DB
	catalog   dbtest.Catalog
	gateway   *MockGateway
	publisher *recordingPublisher
	notifier  *recordingNotifier
}

func newHarness(t *testing.T, price float64, available int) *harness {
	t.Helper()

	db := dbtest.NewDB(t)
	catalog := dbtest.SeedCatalog(t, db, price, available)
	l := logger.NewWithWriter(io.Discard)

	ticketSvc := tickets.NewTicketService(&ticketdb.DB{Bun: db}, qr.NewQRGenerator("qr-secret"), template.NewTicketPDFGenerator(""), l)
	ticketSvc.Now = func() time.Time { return fixedNow }

	gateway := new(MockGateway)
	svc := booking.NewService(&bookingdb.DB{Bun: db}, ticketSvc, gateway, l, booking.Settings{
		BaseURL:           "https://clubster.test",
		Currency:          "eur",
		CommissionPercent: 5,
		TopicCreated:      "clubster.booking.created",
		TopicConfirmed:    "clubster.booking.confirmed",
	})
	svc.Now = func() time.Time { return fixedNow }

	h := &harness{
		svc:       svc,
		db:        db,
		catalog:   catalog,
		gateway:   gateway,
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
	}
	svc.Kafka = h.publisher
	svc.Notifier = h.notifier
	return h
}

// completedEvent builds a signed checkout.session.completed delivery.
func completedEvent(t *testing.T, eventType, eventID, account string, session map[string]interface{}) ([]byte, string) {
	t.Helper()
	if session["id"] == nil {
		session["id"] = "cs_test_1"
	}
	session["object"] = "checkout.session"

	payload, err := json.Marshal(map[string]interface{}{
		"id":          eventID,
		"object":      "event",
		"type":        eventType,
		"account":     account,
		"api_version": "2025-07-30.basil",
		"created":     fixedNow.Unix(),
		"data":        map[string]interface{}{"object": session},
	})
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return payload, signed.Header
}

func metadataFor(h *harness, bookingID string, quantity string) map[string]string {
	m := map[string]string{
		"user_id":            "user-1",
		"event_id":           h.catalog.Event.ID,
		"ticket_category_id": h.catalog.Category.ID,
		"quantity":           quantity,
	}
	if bookingID != "" {
		m["booking_id"] = bookingID
	}
	return m
}

func countRows(t *testing.T, db *bun.DB, model interface{}) int {
	t.Helper()
	n, err := db.NewSelect().Model(model).Count(context.Background())
	require.NoError(t, err)
	return n
}

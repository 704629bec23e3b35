package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubster_checkout_sessions_total",
			Help: "Checkout attempts by result",
		},
		[]string{"result"},
	)

	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubster_webhook_events_total",
			Help: "Stripe webhook deliveries by result",
		},
		[]string{"result"},
	)

	TicketsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clubster_tickets_issued_total",
			Help: "Tickets created for confirmed bookings",
		},
	)

	InventorySkips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clubster_inventory_skips_total",
			Help: "Settlements where the category had too few tickets left to decrement",
		},
	)
)

// Webhook results
const (
	WebhookProcessed = "processed"
	WebhookDuplicate = "duplicate"
	WebhookIgnored   = "ignored"
	WebhookRejected  = "rejected"
	WebhookFailed    = "failed"
)

// Checkout results
const (
	CheckoutCreated  = "created"
	CheckoutRejected = "rejected"
	CheckoutFailed   = "failed"
)

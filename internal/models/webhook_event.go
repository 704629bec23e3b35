package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ProcessedWebhookEvent marks a processor event id as handled.
type ProcessedWebhookEvent struct {
	bun.BaseModel `bun:"table:processed_webhook_events,alias:pwe"`

	EventID     string    `bun:"event_id,pk"`
	EventType   string    `bun:"event_type,notnull"`
	BookingID   string    `bun:"booking_id"`
	ProcessedAt time.Time `bun:"processed_at,nullzero,notnull,default:current_timestamp"`
}

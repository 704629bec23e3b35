package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Ticket is one admission unit of a confirmed booking. Rows are never updated.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets,alias:t"`

	ID               string    `bun:"id,pk" json:"id"`
	BookingID        string    `bun:"booking_id,notnull" json:"booking_id"`
	EventID          string    `bun:"event_id,notnull" json:"event_id"`
	UserID           string    `bun:"user_id,notnull" json:"user_id"`
	TicketCategoryID string    `bun:"ticket_category_id" json:"ticket_category_id,omitempty"`
	UnitIndex        int       `bun:"unit_index,notnull" json:"unit_index"`
	Payload          string    `bun:"payload,notnull,unique" json:"payload"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

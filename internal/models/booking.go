package models

import (
	"time"

	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
)

type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:b"`

	ID               string        `bun:"id,pk" json:"id"`
	UserID           string        `bun:"user_id,notnull" json:"user_id"`
	EventID          string        `bun:"event_id,notnull" json:"event_id"`
	TicketCategoryID string        `bun:"ticket_category_id" json:"ticket_category_id,omitempty"`
	Quantity         int           `bun:"quantity,notnull" json:"quantity"`
	Status           BookingStatus `bun:"status,notnull" json:"status"`
	TotalAmount      int64         `bun:"total_amount,notnull" json:"total_amount"`
	CommissionAmount int64         `bun:"commission_amount,notnull" json:"commission_amount"`
	Currency         string        `bun:"currency" json:"currency,omitempty"`
	StripeSessionID  string        `bun:"stripe_session_id" json:"-"`
	CreatedAt        time.Time     `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	ConfirmedAt      *time.Time    `bun:"confirmed_at" json:"confirmed_at,omitempty"`

	Event *Event `bun:"rel:belongs-to,join:event_id=id" json:"event,omitempty"`
}

func (b *Booking) IsConfirmed() bool {
	return b.Status == BookingStatusConfirmed
}

// BookingWithTickets is the payload published once a booking is settled.
type BookingWithTickets struct {
	Booking Booking  `json:"booking"`
	ClubID  string   `json:"club_id"`
	Tickets []Ticket `json:"tickets"`
}

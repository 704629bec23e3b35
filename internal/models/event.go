package models

import (
	"math"
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID        string    `bun:"id,pk" json:"id"`
	ClubID    string    `bun:"club_id,notnull" json:"club_id"`
	Title     string    `bun:"title,notnull" json:"title"`
	Venue     string    `bun:"venue" json:"venue"`
	StartsAt  time.Time `bun:"starts_at,nullzero" json:"starts_at"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	Club *Club `bun:"rel:belongs-to,join:club_id=id" json:"club,omitempty"`
}

// TicketCategory is a priced tier of admission with its own remaining-inventory counter.
type TicketCategory struct {
	bun.BaseModel `bun:"table:ticket_categories,alias:tc"`

	ID               string    `bun:"id,pk" json:"id"`
	EventID          string    `bun:"event_id,notnull" json:"event_id"`
	Name             string    `bun:"name,notnull" json:"name"`
	Price            float64   `bun:"price,notnull" json:"price"`
	AvailableTickets int       `bun:"available_tickets,notnull" json:"available_tickets"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// UnitAmount is the price in minor currency units.
func (c *TicketCategory) UnitAmount() int64 {
	return int64(math.Round(c.Price * 100))
}

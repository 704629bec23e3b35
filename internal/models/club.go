package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Club is a merchant with a Stripe Connect account. OwnerID is the manager's auth subject.
type Club struct {
	bun.BaseModel `bun:"table:clubs,alias:c"`

	ID              string    `bun:"id,pk" json:"id"`
	Name            string    `bun:"name,notnull" json:"name"`
	OwnerID         string    `bun:"owner_id,notnull" json:"owner_id"`
	StripeAccountID string    `bun:"stripe_account_id" json:"-"`
	ChargesEnabled  bool      `bun:"charges_enabled,notnull" json:"charges_enabled"`
	CreatedAt       time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// CanAcceptPayments reports whether checkout sessions can be opened on the club's account.
func (c *Club) CanAcceptPayments() bool {
	return c != nil && c.StripeAccountID != "" && c.ChargesEnabled
}

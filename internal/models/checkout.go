package models

type CheckoutRequest struct {
	EventID          string `json:"eventId"`
	TicketCategoryID string `json:"ticketCategoryId"`
	Quantity         int    `json:"quantity"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

type WebhookAck struct {
	Received bool `json:"received"`
}

// Metadata keys carried on Stripe checkout sessions and payment intents.
const (
	MetaUserID           = "user_id"
	MetaEventID          = "event_id"
	MetaQuantity         = "quantity"
	MetaBookingID        = "booking_id"
	MetaTicketCategoryID = "ticket_category_id"
)

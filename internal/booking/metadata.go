package booking

import (
	"strconv"
	"strings"

	"clubster-booking/internal/models"
)

// BookingMetadata is what a completed checkout tells us about the purchase.
type BookingMetadata struct {
	UserID           string
	EventID          string
	BookingID        string
	TicketCategoryID string
	Quantity         int
}

// MergeMetadata overlays intent metadata on session metadata. Non-empty
// intent values win.
func MergeMetadata(session, intent map[string]string) map[string]string {
	merged := make(map[string]string, len(session)+len(intent))
	for k, v := range session {
		merged[k] = v
	}
	for k, v := range intent {
		if v != "" {
			merged[k] = v
		}
	}
	return merged
}

func ParseMetadata(m map[string]string) BookingMetadata {
	return BookingMetadata{
		UserID:           strings.TrimSpace(m[models.MetaUserID]),
		EventID:          strings.TrimSpace(m[models.MetaEventID]),
		BookingID:        strings.TrimSpace(m[models.MetaBookingID]),
		TicketCategoryID: strings.TrimSpace(m[models.MetaTicketCategoryID]),
		Quantity:         ParseQuantity(m[models.MetaQuantity]),
	}
}

// ParseQuantity reads a positive quantity, defaulting to 1.
func ParseQuantity(raw string) int {
	q, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || q < 1 {
		return 1
	}
	return q
}

func (m BookingMetadata) Complete() bool {
	return m.UserID != "" && m.EventID != ""
}

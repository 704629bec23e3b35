package template

import (
	"os"
	"testing"
	"time"

	"clubster-booking/internal/models"

	"github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fontCandidates = []string{
	"../../../fonts/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
}

func findFont(t *testing.T) string {
	for _, path := range fontCandidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	t.Skip("DejaVuSans.ttf not available")
	return ""
}

func TestGenerateRequiresTickets(t *testing.T) {
	gen := NewTicketPDFGenerator("missing.ttf")
	_, err := gen.Generate(models.Booking{ID: "B123ABCDE0"}, models.Event{}, nil)
	assert.Error(t, err)
}

func TestGenerateFailsWithoutFont(t *testing.T) {
	gen := NewTicketPDFGenerator("/nonexistent/font.ttf")
	_, err := gen.Generate(models.Booking{ID: "B123ABCDE0"}, models.Event{}, []TicketPage{{Ticket: models.Ticket{ID: "TABCDEFGH1"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load font")
}

func TestGenerateRendersOnePagePerTicket(t *testing.T) {
	fontPath := findFont(t)

	qr, err := qrcode.Encode("token", qrcode.Medium, 256)
	require.NoError(t, err)

	booking := models.Booking{ID: "B123ABCDE0", Quantity: 2}
	event := models.Event{Title: "Friday Night", Venue: "Main Hall", StartsAt: time.Now()}
	pages := []TicketPage{
		{Ticket: models.Ticket{ID: "TAAAAAAAA1", BookingID: booking.ID, UnitIndex: 0, Payload: "B123ABCDE0-0-1", CreatedAt: time.Now()}, QRCode: qr},
		{Ticket: models.Ticket{ID: "TAAAAAAAA2", BookingID: booking.ID, UnitIndex: 1, Payload: "B123ABCDE0-1-1", CreatedAt: time.Now()}, QRCode: qr},
	}

	pdf, err := NewTicketPDFGenerator(fontPath).Generate(booking, event, pages)
	require.NoError(t, err)
	assert.True(t, len(pdf) > 100)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

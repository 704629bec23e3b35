package template

import (
	"bytes"
	"fmt"
	"image/png"

	"clubster-booking/internal/models"

	"github.com/signintech/gopdf"
)

// TicketPage is one ticket with its rendered QR code.
type TicketPage struct {
	Ticket models.Ticket
	QRCode []byte
}

type TicketPDFGenerator struct {
	fontPath string
}

func NewTicketPDFGenerator(fontPath string) *TicketPDFGenerator {
	return &TicketPDFGenerator{fontPath: fontPath}
}

// Generate renders one A4 page per ticket of the booking.
func (g *TicketPDFGenerator) Generate(booking models.Booking, event models.Event, pages []TicketPage) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("booking %s has no tickets to render", booking.ID)
	}

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})

	if err := pdf.AddTTFFont("dejavu", g.fontPath); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	for _, page := range pages {
		pdf.AddPage()
		if err := pdf.SetFont("dejavu", "", 22); err != nil {
			return nil, fmt.Errorf("failed to set font: %w", err)
		}
		addHeader(pdf, event)

		if err := pdf.SetFont("dejavu", "", 12); err != nil {
			return nil, fmt.Errorf("failed to set font: %w", err)
		}
		pdf.SetY(120)
		addTicketInfo(pdf, booking, event, page.Ticket, len(pages))

		if len(page.QRCode) > 0 {
			addQRCode(pdf, page.QRCode)
		}

		pdf.SetY(780)
		addFooter(pdf)
	}

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}

	return buf.Bytes(), nil
}

func addHeader(pdf *gopdf.GoPdf, event models.Event) {
	pdf.SetX(40)
	pdf.SetY(50)
	pdf.Cell(nil, event.Title)
}

func addTicketInfo(pdf *gopdf.GoPdf, booking models.Booking, event models.Event, ticket models.Ticket, total int) {
	info := []struct {
		Label string
		Value string
	}{
		{"Ticket", fmt.Sprintf("%s (%d of %d)", ticket.ID, ticket.UnitIndex+1, total)},
		{"Booking", booking.ID},
		{"Venue", event.Venue},
		{"Date", formatDate(event)},
		{"Issued", ticket.CreatedAt.Format("2006-01-02 15:04")},
		{"Code", ticket.Payload},
	}

	for _, item := range info {
		if item.Value == "" {
			continue
		}
		pdf.SetX(40)
		pdf.Cell(nil, item.Label+": "+item.Value)
		pdf.Br(20)
	}
}

func formatDate(event models.Event) string {
	if event.StartsAt.IsZero() {
		return ""
	}
	return event.StartsAt.Format("Mon 02 Jan 2006, 15:04")
}

func addQRCode(pdf *gopdf.GoPdf, qrCode []byte) {
	img, err := png.Decode(bytes.NewReader(qrCode))
	if err != nil {
		pdf.SetX(40)
		pdf.Cell(nil, "Failed to load QR code")
		return
	}

	rect := &gopdf.Rect{W: 220, H: 220}
	if err := pdf.ImageFrom(img, 187, pdf.GetY()+30, rect); err != nil {
		pdf.SetX(40)
		pdf.Cell(nil, "Failed to draw QR code")
	}
}

func addFooter(pdf *gopdf.GoPdf) {
	pdf.SetX(40)
	pdf.Cell(nil, "Show this code at the entrance. Each code admits one person.")
}

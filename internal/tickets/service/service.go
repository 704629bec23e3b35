package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clubster-booking/internal/logger"
	"clubster-booking/internal/metrics"
	"clubster-booking/internal/models"
	ticketdb "clubster-booking/internal/tickets/db"
	"clubster-booking/internal/tickets/qr"
	"clubster-booking/internal/tickets/template"
	"clubster-booking/internal/utils"
)

var ErrTokenMismatch = errors.New("ticket token does not match an issued ticket")

type TicketDBLayer interface {
	IssueTickets(ctx context.Context, req ticketdb.IssueRequest) (*ticketdb.IssueResult, error)
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	GetTicketsByBooking(ctx context.Context, bookingID string) ([]models.Ticket, error)
}

type TicketService struct {
	DB     TicketDBLayer
	QR     *qr.QRGenerator
	PDF    *template.TicketPDFGenerator
	Logger *logger.Logger
	Now    func() time.Time
}

func NewTicketService(db TicketDBLayer, qrGen *qr.QRGenerator, pdf *template.TicketPDFGenerator, l *logger.Logger) *TicketService {
	return &TicketService{
		DB:     db,
		QR:     qrGen,
		PDF:    pdf,
		Logger: l,
		Now:    time.Now,
	}
}

// IssueForBooking creates one ticket per unit of a confirmed booking and
// settles the category's inventory. A booking that already has tickets is left alone.
func (s *TicketService) IssueForBooking(ctx context.Context, booking models.Booking, categoryID string) (*ticketdb.IssueResult, error) {
	if booking.Quantity < 1 {
		return nil, fmt.Errorf("booking %s has invalid quantity %d", booking.ID, booking.Quantity)
	}

	req := ticketdb.IssueRequest{
		BookingID:        booking.ID,
		TicketCategoryID: categoryID,
		Quantity:         booking.Quantity,
		NextID:           utils.GenerateTicketID,
		Build: func(unitIndex int) models.Ticket {
			issuedAt := s.Now()
			return models.Ticket{
				BookingID:        booking.ID,
				EventID:          booking.EventID,
				UserID:           booking.UserID,
				TicketCategoryID: categoryID,
				UnitIndex:        unitIndex,
				Payload:          utils.TicketPayload(booking.ID, unitIndex, issuedAt),
				CreatedAt:        issuedAt,
			}
		},
	}

	result, err := s.DB.IssueTickets(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tickets for booking %s: %w", booking.ID, err)
	}

	if result.Skipped {
		s.Logger.LogBooking("TICKETS", booking.ID, "tickets already issued, skipping")
		return result, nil
	}

	metrics.TicketsIssued.Add(float64(len(result.Tickets)))
	s.Logger.LogBooking("TICKETS", booking.ID, fmt.Sprintf("issued %d tickets", len(result.Tickets)))

	if result.InventorySkipped {
		metrics.InventorySkips.Inc()
		s.Logger.LogInventory(categoryID, booking.Quantity, fmt.Sprintf("not enough tickets left for booking %s, counter left unchanged", booking.ID))
	}
	return result, nil
}

// GetTicketsByBooking returns the tickets of a booking ordered by unit index.
func (s *TicketService) GetTicketsByBooking(ctx context.Context, bookingID string) ([]models.Ticket, error) {
	tickets, err := s.DB.GetTicketsByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tickets for booking %s: %w", bookingID, err)
	}
	return tickets, nil
}

// RenderBookingPDF builds the downloadable ticket document with one QR code per ticket.
func (s *TicketService) RenderBookingPDF(ctx context.Context, booking models.Booking, event models.Event) ([]byte, error) {
	tickets, err := s.GetTicketsByBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	pages := make([]template.TicketPage, 0, len(tickets))
	for _, ticket := range tickets {
		code, err := s.QR.GenerateEncryptedQR(ticket)
		if err != nil {
			return nil, fmt.Errorf("failed to generate QR for ticket %s: %w", ticket.ID, err)
		}
		pages = append(pages, template.TicketPage{Ticket: ticket, QRCode: code})
	}

	return s.PDF.Generate(booking, event, pages)
}

// VerifyToken decrypts a scanned token and checks it against the stored ticket.
func (s *TicketService) VerifyToken(ctx context.Context, token string) (*models.Ticket, error) {
	decoded, err := s.QR.DecryptToken(token)
	if err != nil {
		return nil, err
	}

	ticket, err := s.DB.GetTicketByID(ctx, decoded.TicketID)
	if err != nil {
		if errors.Is(err, ticketdb.ErrNotFound) {
			return nil, ErrTokenMismatch
		}
		return nil, err
	}
	if ticket.Payload != decoded.Payload || ticket.BookingID != decoded.BookingID {
		s.Logger.LogSecurity("TICKET_VERIFY", fmt.Sprintf("payload mismatch for ticket %s", ticket.ID))
		return nil, ErrTokenMismatch
	}
	return ticket, nil
}

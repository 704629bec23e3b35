package booking

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"clubster-booking/internal/booking/db"
	"clubster-booking/internal/logger"
	"clubster-booking/internal/metrics"
	"clubster-booking/internal/models"
	"clubster-booking/internal/payment"
	ticketdb "clubster-booking/internal/tickets/db"
	"clubster-booking/internal/utils"

	"github.com/google/uuid"
)

type DBLayer interface {
	GetTicketCategory(ctx context.Context, id string) (*models.TicketCategory, error)
	GetEventWithClub(ctx context.Context, id string) (*models.Event, error)
	IsClubOwner(ctx context.Context, clubID, userID string) (bool, error)
	IsEventManager(ctx context.Context, eventID, userID string) (bool, error)

	CreateBooking(ctx context.Context, booking *models.Booking, nextID func() string) error
	InsertBookingIfAbsent(ctx context.Context, booking *models.Booking) (bool, error)
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	UpdateBookingPayment(ctx context.Context, booking *models.Booking) error
	ConfirmBooking(ctx context.Context, id string, at time.Time) (bool, error)
	ListBookingsByUser(ctx context.Context, userID string, status string) ([]models.Booking, error)
	ListBookingsForManager(ctx context.Context, ownerID string, eventID string) ([]models.Booking, error)

	MarkWebhookEventProcessed(ctx context.Context, evt *models.ProcessedWebhookEvent) (bool, error)
	ReleaseWebhookEvent(ctx context.Context, eventID string) error
}

type TicketIssuer interface {
	IssueForBooking(ctx context.Context, booking models.Booking, categoryID string) (*ticketdb.IssueResult, error)
}

type CheckoutLock interface {
	Acquire(ctx context.Context, userID, categoryID, token string) (bool, error)
	Release(ctx context.Context, userID, categoryID, token string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}

type BookingNotifier interface {
	EmitBooking(booking models.BookingWithTickets)
}

// Settings are the checkout knobs taken from configuration.
type Settings struct {
	BaseURL           string
	Currency          string
	CommissionPercent int64
	TopicCreated      string
	TopicConfirmed    string
}

type Service struct {
	DB       DBLayer
	Tickets  TicketIssuer
	Payments payment.Gateway
	Lock     CheckoutLock
	Kafka    EventPublisher
	Notifier BookingNotifier
	Logger   *logger.Logger
	Settings Settings

	Now          func() time.Time
	NewBookingID func() string
}

func NewService(dbLayer DBLayer, issuer TicketIssuer, gateway payment.Gateway, l *logger.Logger, settings Settings) *Service {
	return &Service{
		DB:           dbLayer,
		Tickets:      issuer,
		Payments:     gateway,
		Logger:       l,
		Settings:     settings,
		Now:          time.Now,
		NewBookingID: utils.GenerateBookingID,
	}
}

// Commission is the platform fee on total, rounded half up.
func Commission(total, percent int64) int64 {
	return (total*percent + 50) / 100
}

// ---------------- CHECKOUT ----------------

// StartCheckout validates the request, records a pending booking and opens a
// payment session on the club's connected account.
func (s *Service) StartCheckout(ctx context.Context, userID string, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	if req.EventID == "" || req.TicketCategoryID == "" {
		return nil, s.rejectCheckout(ErrInvalidRequest)
	}
	if req.Quantity < 1 {
		return nil, s.rejectCheckout(ErrInvalidQuantity)
	}

	category, err := s.DB.GetTicketCategory(ctx, req.TicketCategoryID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, s.rejectCheckout(ErrCategoryNotFound)
		}
		return nil, s.failCheckout(fmt.Errorf("load ticket category %s: %w", req.TicketCategoryID, err))
	}
	if category.EventID != req.EventID {
		return nil, s.rejectCheckout(ErrCategoryNotFound)
	}

	event, err := s.DB.GetEventWithClub(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, s.rejectCheckout(ErrEventNotFound)
		}
		return nil, s.failCheckout(fmt.Errorf("load event %s: %w", req.EventID, err))
	}
	if event.Club == nil || !event.Club.CanAcceptPayments() {
		return nil, s.rejectCheckout(ErrMerchantNotReady)
	}

	if category.AvailableTickets < req.Quantity {
		s.Logger.LogInventory(category.ID, req.Quantity, fmt.Sprintf("only %d left, rejecting checkout", category.AvailableTickets))
		return nil, s.rejectCheckout(ErrInsufficientInventory)
	}

	release, err := s.acquireLock(ctx, userID, category.ID)
	if err != nil {
		return nil, s.rejectCheckout(err)
	}
	defer release()

	booking := models.Booking{
		UserID:           userID,
		EventID:          event.ID,
		TicketCategoryID: category.ID,
		Quantity:         req.Quantity,
		Status:           models.BookingStatusPending,
		Currency:         s.Settings.Currency,
		CreatedAt:        s.Now(),
	}
	if err := s.DB.CreateBooking(ctx, &booking, s.NewBookingID); err != nil {
		return nil, s.failCheckout(fmt.Errorf("create booking: %w", err))
	}
	s.Logger.LogBooking("CREATED", booking.ID, fmt.Sprintf("user %s, %d x %s", userID, req.Quantity, category.Name))

	unitAmount := category.UnitAmount()
	booking.TotalAmount = unitAmount * int64(req.Quantity)
	booking.CommissionAmount = Commission(booking.TotalAmount, s.Settings.CommissionPercent)

	session, err := s.Payments.CreateCheckoutSession(ctx, payment.CheckoutSessionRequest{
		BookingID:        booking.ID,
		UserID:           userID,
		EventID:          event.ID,
		TicketCategoryID: category.ID,
		Quantity:         req.Quantity,
		UnitAmount:       unitAmount,
		Currency:         s.Settings.Currency,
		ProductName:      fmt.Sprintf("%s - %s", event.Title, category.Name),
		ApplicationFee:   booking.CommissionAmount,
		ConnectedAccount: event.Club.StripeAccountID,
		SuccessURL:       s.successURL(booking.ID),
		CancelURL:        s.cancelURL(event.ID, booking.ID),
	})
	if err != nil {
		return nil, s.failCheckout(fmt.Errorf("create checkout session for booking %s: %w", booking.ID, err))
	}

	booking.StripeSessionID = session.ID
	if err := s.DB.UpdateBookingPayment(ctx, &booking); err != nil {
		return nil, s.failCheckout(fmt.Errorf("store session for booking %s: %w", booking.ID, err))
	}

	s.publish(ctx, s.Settings.TopicCreated, booking.ID, booking)
	metrics.CheckoutSessions.WithLabelValues(metrics.CheckoutCreated).Inc()
	s.Logger.LogPayment("CHECKOUT", booking.ID, fmt.Sprintf("session %s, total %d, commission %d", session.ID, booking.TotalAmount, booking.CommissionAmount))

	return &models.CheckoutResponse{URL: session.URL}, nil
}

// acquireLock takes the double-submit guard. Redis trouble never blocks a checkout.
func (s *Service) acquireLock(ctx context.Context, userID, categoryID string) (func(), error) {
	noop := func() {}
	if s.Lock == nil {
		return noop, nil
	}

	token := uuid.NewString()
	ok, err := s.Lock.Acquire(ctx, userID, categoryID, token)
	if err != nil {
		s.Logger.Warn("REDIS", fmt.Sprintf("checkout lock unavailable for %s/%s: %v", userID, categoryID, err))
		return noop, nil
	}
	if !ok {
		return noop, ErrCheckoutInProgress
	}

	return func() {
		// the request context may already be cancelled
		if err := s.Lock.Release(context.Background(), userID, categoryID, token); err != nil {
			s.Logger.Warn("REDIS", fmt.Sprintf("failed to release checkout lock for %s/%s: %v", userID, categoryID, err))
		}
	}, nil
}

func (s *Service) successURL(bookingID string) string {
	q := url.Values{}
	q.Set("booking_id", bookingID)
	q.Set("status", "success")
	return fmt.Sprintf("%s/bookings?%s", s.Settings.BaseURL, q.Encode())
}

func (s *Service) cancelURL(eventID, bookingID string) string {
	q := url.Values{}
	q.Set("booking_id", bookingID)
	q.Set("status", "cancelled")
	return fmt.Sprintf("%s/events/%s?%s", s.Settings.BaseURL, url.PathEscape(eventID), q.Encode())
}

func (s *Service) rejectCheckout(err error) error {
	metrics.CheckoutSessions.WithLabelValues(metrics.CheckoutRejected).Inc()
	s.Logger.Warn("CHECKOUT", err.Error())
	return err
}

func (s *Service) failCheckout(err error) error {
	metrics.CheckoutSessions.WithLabelValues(metrics.CheckoutFailed).Inc()
	s.Logger.Error("CHECKOUT", err.Error())
	return err
}

// publish is best effort. Failures are logged and dropped.
func (s *Service) publish(ctx context.Context, topic, key string, payload interface{}) {
	if s.Kafka == nil || topic == "" {
		return
	}
	if err := s.Kafka.Publish(ctx, topic, key, payload); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("publish to %s failed for %s: %v", topic, key, err))
	}
}

// ---------------- BOOKINGS ----------------

// ListBookings → the caller's bookings, newest first
func (s *Service) ListBookings(ctx context.Context, userID, status string) ([]models.Booking, error) {
	if err := validStatus(status); err != nil {
		return nil, err
	}
	return s.DB.ListBookingsByUser(ctx, userID, status)
}

// ListManagerBookings → bookings for every event of the caller's clubs
func (s *Service) ListManagerBookings(ctx context.Context, managerID, eventID string) ([]models.Booking, error) {
	return s.DB.ListBookingsForManager(ctx, managerID, eventID)
}

// AuthorizeClubManager fails with ErrForbidden unless userID owns the club.
func (s *Service) AuthorizeClubManager(ctx context.Context, clubID, userID string) error {
	ok, err := s.DB.IsClubOwner(ctx, clubID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// AuthorizeEventManager fails with ErrForbidden unless userID owns the club running the event.
func (s *Service) AuthorizeEventManager(ctx context.Context, eventID, userID string) error {
	ok, err := s.DB.IsEventManager(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func validStatus(status string) error {
	switch models.BookingStatus(status) {
	case "", models.BookingStatusPending, models.BookingStatusConfirmed:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
}

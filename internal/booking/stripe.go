package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"clubster-booking/internal/booking/db"
	"clubster-booking/internal/metrics"
	"clubster-booking/internal/models"
	"clubster-booking/internal/utils"

	"github.com/stripe/stripe-go/v82"
)

// HandleStripeWebhook reconciles a completed checkout into a confirmed booking
// with tickets. A nil error means the delivery is acknowledged with 200,
// which covers ignored event types and redeliveries.
func (s *Service) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.Payments.ConstructEvent(payload, signature)
	if err != nil {
		return s.rejectWebhook(&WebhookError{
			Category:      WebhookErrValidation,
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Webhook signature verification failed",
			InternalError: fmt.Sprintf("Webhook signature verification failed: %v", err),
			OriginalErr:   err,
		})
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		s.Logger.LogWebhook(string(event.Type), event.ID, "ignored")
		metrics.WebhookEvents.WithLabelValues(metrics.WebhookIgnored).Inc()
		return nil
	}
	s.Logger.LogWebhook(string(event.Type), event.ID, fmt.Sprintf("received for account %s", event.Account))

	var session stripe.CheckoutSession
	if event.Data == nil || json.Unmarshal(event.Data.Raw, &session) != nil {
		return s.rejectWebhook(&WebhookError{
			Category:      WebhookErrValidation,
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid checkout session payload",
			InternalError: fmt.Sprintf("event %s carries no decodable checkout session", event.ID),
		})
	}

	raw, err := s.resolveMetadata(ctx, &session, event.Account)
	if err != nil {
		return s.failWebhook(&WebhookError{
			Category:      WebhookErrProcessing,
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Webhook processing error",
			InternalError: fmt.Sprintf("failed to load payment intent metadata for event %s: %v", event.ID, err),
			OriginalErr:   err,
		})
	}

	meta := ParseMetadata(raw)
	if !meta.Complete() {
		return s.rejectWebhook(&WebhookError{
			Category:      WebhookErrValidation,
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Missing booking metadata",
			InternalError: fmt.Sprintf("event %s is missing user_id or event_id (user=%q event=%q)", event.ID, meta.UserID, meta.EventID),
		})
	}

	fresh, err := s.DB.MarkWebhookEventProcessed(ctx, &models.ProcessedWebhookEvent{
		EventID:     event.ID,
		EventType:   string(event.Type),
		BookingID:   meta.BookingID,
		ProcessedAt: s.Now(),
	})
	if err != nil {
		return s.failWebhook(&WebhookError{
			Category:      WebhookErrProcessing,
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Webhook processing error",
			InternalError: fmt.Sprintf("failed to record event %s: %v", event.ID, err),
			OriginalErr:   err,
		})
	}
	if !fresh {
		s.Logger.LogWebhook(string(event.Type), event.ID, "already processed, skipping")
		metrics.WebhookEvents.WithLabelValues(metrics.WebhookDuplicate).Inc()
		return nil
	}

	if err := s.settle(ctx, meta, &session); err != nil {
		if relErr := s.DB.ReleaseWebhookEvent(ctx, event.ID); relErr != nil {
			s.Logger.Error("WEBHOOK", fmt.Sprintf("failed to release event %s after error: %v", event.ID, relErr))
		}
		return s.failWebhook(&WebhookError{
			Category:      WebhookErrProcessing,
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Webhook processing error",
			InternalError: fmt.Sprintf("failed to settle event %s: %v", event.ID, err),
			OriginalErr:   err,
		})
	}

	metrics.WebhookEvents.WithLabelValues(metrics.WebhookProcessed).Inc()
	return nil
}

// resolveMetadata merges session metadata with the payment intent's. An
// intent delivered as a bare id is fetched from the connected account.
func (s *Service) resolveMetadata(ctx context.Context, session *stripe.CheckoutSession, account string) (map[string]string, error) {
	intent := session.PaymentIntent
	if intent == nil {
		return MergeMetadata(session.Metadata, nil), nil
	}
	if len(intent.Metadata) > 0 {
		return MergeMetadata(session.Metadata, intent.Metadata), nil
	}
	if intent.ID == "" {
		return MergeMetadata(session.Metadata, nil), nil
	}

	intentMeta, err := s.Payments.PaymentIntentMetadata(ctx, intent.ID, account)
	if err != nil {
		return nil, err
	}
	return MergeMetadata(session.Metadata, intentMeta), nil
}

// settle confirms the booking, issues its tickets and notifies listeners.
func (s *Service) settle(ctx context.Context, meta BookingMetadata, session *stripe.CheckoutSession) error {
	now := s.Now()

	booking, err := s.resolveBooking(ctx, meta, session, now)
	if err != nil {
		return err
	}

	confirmed, err := s.DB.ConfirmBooking(ctx, booking.ID, now)
	if err != nil {
		return err
	}
	if confirmed {
		booking.ConfirmedAt = &now
		s.Logger.LogBooking("CONFIRMED", booking.ID, fmt.Sprintf("session %s", session.ID))
	} else {
		s.Logger.LogBooking("CONFIRM", booking.ID, "already confirmed, continuing to issuance")
	}
	booking.Status = models.BookingStatusConfirmed

	categoryID := meta.TicketCategoryID
	if categoryID == "" {
		categoryID = booking.TicketCategoryID
	}
	booking.Quantity = meta.Quantity

	result, err := s.Tickets.IssueForBooking(ctx, *booking, categoryID)
	if err != nil {
		return err
	}
	if result.Skipped {
		return nil
	}

	settled := models.BookingWithTickets{
		Booking: *booking,
		Tickets: result.Tickets,
	}
	if event, err := s.DB.GetEventWithClub(ctx, booking.EventID); err == nil {
		settled.ClubID = event.ClubID
	} else {
		s.Logger.Warn("WEBHOOK", fmt.Sprintf("could not resolve club for event %s: %v", booking.EventID, err))
	}

	s.publish(ctx, s.Settings.TopicConfirmed, booking.ID, settled)
	if s.Notifier != nil {
		s.Notifier.EmitBooking(settled)
	}
	return nil
}

// resolveBooking finds the booking the payment belongs to. Payments without
// a booking id get a synthesized booking, and a booking id whose row is gone
// is recreated under the same id.
func (s *Service) resolveBooking(ctx context.Context, meta BookingMetadata, session *stripe.CheckoutSession, now time.Time) (*models.Booking, error) {
	draft := models.Booking{
		UserID:           meta.UserID,
		EventID:          meta.EventID,
		TicketCategoryID: meta.TicketCategoryID,
		Quantity:         meta.Quantity,
		Status:           models.BookingStatusPending,
		TotalAmount:      session.AmountTotal,
		Currency:         string(session.Currency),
		StripeSessionID:  session.ID,
		CreatedAt:        now,
	}

	if meta.BookingID == "" {
		first := true
		nextID := func() string {
			if first {
				first = false
				return utils.FallbackBookingID(now)
			}
			return s.NewBookingID()
		}
		if err := s.DB.CreateBooking(ctx, &draft, nextID); err != nil {
			return nil, fmt.Errorf("create fallback booking: %w", err)
		}
		s.Logger.LogBooking("FALLBACK", draft.ID, fmt.Sprintf("payment for user %s had no booking id", meta.UserID))
		return &draft, nil
	}

	existing, err := s.DB.GetBookingByID(ctx, meta.BookingID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	draft.ID = meta.BookingID
	inserted, err := s.DB.InsertBookingIfAbsent(ctx, &draft)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// a concurrent delivery recreated it first
		return s.DB.GetBookingByID(ctx, meta.BookingID)
	}
	s.Logger.LogBooking("RECREATED", draft.ID, "booking row was missing, recreated from payment metadata")
	return &draft, nil
}

func (s *Service) rejectWebhook(e *WebhookError) error {
	metrics.WebhookEvents.WithLabelValues(metrics.WebhookRejected).Inc()
	s.Logger.Warn("WEBHOOK", e.InternalError)
	return e
}

func (s *Service) failWebhook(e *WebhookError) error {
	metrics.WebhookEvents.WithLabelValues(metrics.WebhookFailed).Inc()
	s.Logger.Error("WEBHOOK", e.InternalError)
	return e
}

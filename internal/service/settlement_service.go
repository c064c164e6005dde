package service

import (
	"context"
	"encoding/json"
	"time"

	"art-store/internal/apperr"
	"art-store/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Stripe event types that mean a checkout has been paid.
const (
	EventCheckoutCompleted             = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

const (
	processedEventTTL = 7 * 24 * time.Hour
	eventLockTTL      = 30 * time.Second
)

// Webhook outcomes reported to the caller and to metrics.
const (
	OutcomeSold         = "sold"
	OutcomeIgnored      = "ignored"
	OutcomeNotPaid      = "not_paid"
	OutcomeDuplicate    = "duplicate"
	OutcomeInProgress   = "in_progress"
	OutcomeNoArtworks   = "no_artworks"
	OutcomeUpdateFailed = "update_failed"
)

// SettlementService is the only place where artworks become sold
type SettlementService struct {
	verifier    WebhookVerifier
	artworks    ArtworkStore
	idempotency IdempotencyStore
	publisher   EventPublisher
	logger      *zap.Logger
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	verifier WebhookVerifier,
	artworks ArtworkStore,
	idempotency IdempotencyStore,
	publisher EventPublisher,
) *SettlementService {
	return &SettlementService{
		verifier:    verifier,
		artworks:    artworks,
		idempotency: idempotency,
		publisher:   publisher,
		logger:      util.Component("settlement"),
	}
}

// WebhookResult describes what a delivery did
type WebhookResult struct {
	EventID    string   `json:"event_id"`
	EventType  string   `json:"event_type"`
	Outcome    string   `json:"outcome"`
	ArtworkIDs []string `json:"artwork_ids,omitempty"`
}

// checkoutSessionObject is the slice of a Stripe checkout session the
// settlement needs.
type checkoutSessionObject struct {
	ID            string            `json:"id"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

// HandleWebhook authenticates a raw delivery and marks the purchased
// artworks sold. Only verification and decoding failures return an error;
// once an event is authentic the delivery is acknowledged even when the
// catalog update fails, which is logged for out-of-band repair.
func (s *SettlementService) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*WebhookResult, error) {
	ctx, span := util.StartSpan(ctx, "SettlementService.HandleWebhook")
	defer span.End()

	event, err := s.verifier.Verify(payload, signatureHeader)
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues("unknown", "invalid_signature").Inc()
		s.logger.Warn("Rejected webhook with invalid signature", zap.Error(err))
		return nil, apperr.SignatureInvalid(err)
	}

	span.SetAttributes(
		attribute.String("stripe.event_id", event.ID),
		attribute.String("stripe.event_type", event.Type))

	result := &WebhookResult{EventID: event.ID, EventType: event.Type}
	defer func() {
		util.WebhookEventsTotal.WithLabelValues(event.Type, result.Outcome).Inc()
	}()

	if event.Type != EventCheckoutCompleted && event.Type != EventCheckoutAsyncPaymentSucceeded {
		result.Outcome = OutcomeIgnored
		return result, nil
	}

	var session checkoutSessionObject
	if err := json.Unmarshal(event.Object, &session); err != nil {
		result.Outcome = "malformed"
		s.logger.Warn("Malformed checkout session in webhook", zap.String("event_id", event.ID), zap.Error(err))
		return nil, apperr.InvalidRequest("malformed checkout session")
	}

	if session.PaymentStatus != "" && session.PaymentStatus != "paid" {
		result.Outcome = OutcomeNotPaid
		s.logger.Info("Skipping unpaid checkout session",
			zap.String("session_id", session.ID),
			zap.String("payment_status", session.PaymentStatus))
		return result, nil
	}

	locked, err := s.idempotency.AcquireLock(ctx, eventKey(event.ID), eventLockTTL)
	switch {
	case err != nil:
		s.logger.Warn("Failed to lock webhook event", zap.String("event_id", event.ID), zap.Error(err))
	case !locked:
		result.Outcome = OutcomeInProgress
		s.logger.Info("Webhook event is being processed by another delivery", zap.String("event_id", event.ID))
		return result, nil
	default:
		defer func() {
			if err := s.idempotency.ReleaseLock(context.WithoutCancel(ctx), eventKey(event.ID)); err != nil {
				s.logger.Warn("Failed to release webhook event lock", zap.Error(err))
			}
		}()
	}

	processed, err := s.idempotency.CheckIdempotencyKey(ctx, eventKey(event.ID))
	if err != nil {
		s.logger.Warn("Failed to check processed webhook events", zap.Error(err))
	}
	if processed {
		result.Outcome = OutcomeDuplicate
		s.logger.Info("Webhook event already processed", zap.String("event_id", event.ID))
		return result, nil
	}

	ids := artworkIDsFromMetadata(session.Metadata)
	result.ArtworkIDs = ids
	if len(ids) == 0 {
		result.Outcome = OutcomeNoArtworks
		s.logger.Warn("Completed checkout without artwork ids", zap.String("session_id", session.ID))
		return result, nil
	}

	changed, err := s.artworks.MarkArtworksSold(ctx, ids)
	if err != nil {
		util.FailSpan(span, err)
		result.Outcome = OutcomeUpdateFailed
		s.logger.Error("Failed to mark artworks sold, catalog needs manual repair",
			zap.String("event_id", event.ID),
			zap.String("session_id", session.ID),
			zap.Strings("artwork_ids", ids),
			zap.Error(err))
		return result, nil
	}

	result.Outcome = OutcomeSold
	util.ArtworksSoldTotal.Add(float64(changed))
	s.logger.Info("Artworks sold",
		zap.String("session_id", session.ID),
		zap.Strings("artwork_ids", ids),
		zap.Int64("changed", changed))

	if err := s.idempotency.SetIdempotencyKey(ctx, eventKey(event.ID), session.ID, processedEventTTL); err != nil {
		s.logger.Warn("Failed to record processed webhook event", zap.String("event_id", event.ID), zap.Error(err))
	}

	if err := s.publisher.PublishArtworksSold(ctx, session.ID, ids); err != nil {
		s.logger.Error("Failed to publish ArtworksSold event", zap.Error(err))
	}

	return result, nil
}

func eventKey(eventID string) string {
	return "stripe_event:" + eventID
}

package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"art-store/internal/models"
	"art-store/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type eventProducer interface {
	PublishEvent(ctx context.Context, key, eventType string, event interface{}) error
}

// EventPublisher handles publishing catalog events
type EventPublisher struct {
	producer eventProducer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer eventProducer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// PublishArtworksSold publishes ArtworksSold event
func (ep *EventPublisher) PublishArtworksSold(ctx context.Context, checkoutSessionID string, artworkIDs []string) error {
	event := &models.ArtworksSoldEvent{
		BaseEvent:         newBaseEvent(models.EventTypeArtworksSold),
		CheckoutSessionID: checkoutSessionID,
		ArtworkIDs:        artworkIDs,
	}
	return ep.producer.PublishEvent(ctx, "checkout-"+checkoutSessionID, event.EventType, event)
}

// PublishArtworkCreated publishes ArtworkCreated event
func (ep *EventPublisher) PublishArtworkCreated(ctx context.Context, artwork *models.Artwork) error {
	event := &models.ArtworkCreatedEvent{
		BaseEvent: newBaseEvent(models.EventTypeArtworkCreated),
		ArtworkID: artwork.ID,
		Title:     artwork.Title,
	}
	return ep.producer.PublishEvent(ctx, "artwork-"+artwork.ID, event.EventType, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onArtworksSold   func(context.Context, *models.ArtworksSoldEvent) error
	onArtworkCreated func(context.Context, *models.ArtworkCreatedEvent) error
	logger           *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.Component("catalog-events")}
}

// OnArtworksSold registers a handler for ArtworksSold events
func (eh *EventHandler) OnArtworksSold(handler func(context.Context, *models.ArtworksSoldEvent) error) {
	eh.onArtworksSold = handler
}

// OnArtworkCreated registers a handler for ArtworkCreated events
func (eh *EventHandler) OnArtworkCreated(handler func(context.Context, *models.ArtworkCreatedEvent) error) {
	eh.onArtworkCreated = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	if headerType := headerValue(msg, EventTypeHeader); headerType != "" && headerType != baseEvent.EventType {
		eh.logger.Warn("Event type header disagrees with payload",
			zap.String("header", headerType),
			zap.String("payload", baseEvent.EventType))
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeArtworksSold:
		if eh.onArtworksSold != nil {
			var event models.ArtworksSoldEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ArtworksSold event: %w", err)
			}
			return eh.onArtworksSold(ctx, &event)
		}

	case models.EventTypeArtworkCreated:
		if eh.onArtworkCreated != nil {
			var event models.ArtworkCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ArtworkCreated event: %w", err)
			}
			return eh.onArtworkCreated(ctx, &event)
		}

	default:
		eh.logger.Info("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}

package broker

import (
	"context"
	"fmt"
	"time"

	"campusmarket/internal/models"

	"github.com/google/uuid"
)

// EventSink is the transport underneath the event publisher. Satisfied by
// *Producer in production and by in-memory fakes in tests.
type EventSink interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing domain events
type EventPublisher struct {
	sink EventSink
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(sink EventSink) *EventPublisher {
	return &EventPublisher{sink: sink}
}

func baseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// PublishNotification publishes an outbox notification for delivery.
func (ep *EventPublisher) PublishNotification(ctx context.Context, n *models.Notification) error {
	event := &models.NotificationEvent{
		BaseEvent:      baseEvent(models.EventTypeNotification),
		NotificationID: n.ID,
		UserID:         n.UserID,
		Title:          n.Title,
		Message:        n.Message,
		Type:           n.Type,
		RelatedID:      n.RelatedID,
	}
	key := fmt.Sprintf("user-%s", n.UserID)
	return ep.sink.PublishEvent(ctx, key, event)
}

// PublishBidPlaced publishes a BidPlaced event.
func (ep *EventPublisher) PublishBidPlaced(ctx context.Context, b *models.Bid) error {
	event := &models.BidPlacedEvent{
		BaseEvent: baseEvent(models.EventTypeBidPlaced),
		GigID:     b.GigID,
		BidID:     b.ID,
		BidderID:  b.BidderID,
		Amount:    b.Amount,
	}
	key := fmt.Sprintf("gig-%s", b.GigID)
	return ep.sink.PublishEvent(ctx, key, event)
}

// PublishBidAccepted publishes a BidAccepted event after the acceptance
// transaction commits.
func (ep *EventPublisher) PublishBidAccepted(ctx context.Context, result *models.BidAcceptedEvent) error {
	result.BaseEvent = baseEvent(models.EventTypeBidAccepted)
	key := fmt.Sprintf("gig-%s", result.GigID)
	return ep.sink.PublishEvent(ctx, key, result)
}

// PublishOrderPaid publishes an OrderPaid event.
func (ep *EventPublisher) PublishOrderPaid(ctx context.Context, o *models.Order) error {
	event := &models.OrderPaidEvent{
		BaseEvent:  baseEvent(models.EventTypeOrderPaid),
		OrderID:    o.ID,
		ClientID:   o.ClientID,
		ProviderID: o.ProviderID,
		Amount:     o.Amount,
	}
	key := fmt.Sprintf("order-%s", o.ID)
	return ep.sink.PublishEvent(ctx, key, event)
}

// PublishOrderClosed publishes an OrderClosed event for a completed or
// cancelled order.
func (ep *EventPublisher) PublishOrderClosed(ctx context.Context, o *models.Order) error {
	event := &models.OrderClosedEvent{
		BaseEvent:     baseEvent(models.EventTypeOrderClosed),
		OrderID:       o.ID,
		ClientID:      o.ClientID,
		ProviderID:    o.ProviderID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
	}
	key := fmt.Sprintf("order-%s", o.ID)
	return ep.sink.PublishEvent(ctx, key, event)
}

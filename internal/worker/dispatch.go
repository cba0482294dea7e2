package worker

import (
	"context"
	"encoding/json"

	"campusmarket/internal/models"
	"campusmarket/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Notifier delivers a notification event over an external channel such as
// push, mail or a websocket gateway.
type Notifier interface {
	Send(ctx context.Context, event *models.NotificationEvent) error
}

// LogNotifier is the default delivery transport: it only logs the event.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: util.GetLogger()}
}

func (l *LogNotifier) Send(ctx context.Context, event *models.NotificationEvent) error {
	l.logger.Info("Notification delivered",
		zap.String("notification_id", event.NotificationID),
		zap.String("user_id", event.UserID),
		zap.String("type", event.Type))
	return nil
}

// NotificationDispatcher consumes the notification topic and hands
// NOTIFICATION events to a delivery transport. The other event types on the
// topic are not for this consumer and pass through untouched.
type NotificationDispatcher struct {
	notifier Notifier
	logger   *zap.Logger
}

// NewNotificationDispatcher creates a new dispatcher.
func NewNotificationDispatcher(notifier Notifier) *NotificationDispatcher {
	return &NotificationDispatcher{
		notifier: notifier,
		logger:   util.GetLogger(),
	}
}

// Handle processes one consumed message. A payload that does not decode is
// skipped rather than retried, so a poison message cannot wedge the group.
func (d *NotificationDispatcher) Handle(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		d.logger.Warn("Skipping undecodable message",
			zap.String("key", string(msg.Key)), zap.Error(err))
		return nil
	}
	if base.EventType != models.EventTypeNotification {
		return nil
	}

	var event models.NotificationEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		d.logger.Warn("Skipping malformed notification event",
			zap.String("event_id", base.EventID), zap.Error(err))
		return nil
	}
	return d.notifier.Send(ctx, &event)
}

package worker

import (
	"context"
	"time"

	"campusmarket/internal/models"
	"campusmarket/internal/util"

	"go.uber.org/zap"
)

// NotificationPublisher publishes outbox rows to the notification topic.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, n *models.Notification) error
}

// OutboxStore is the slice of the store the dispatcher needs.
type OutboxStore interface {
	ListUndeliveredNotifications(ctx context.Context, limit int) ([]models.Notification, error)
	MarkNotificationDelivered(ctx context.Context, id string) error
}

// OutboxWorker drains the notification outbox: rows are written inside
// business transactions and published here after commit, so a business
// operation never fails because the broker is down. Delivery is
// at-least-once.
type OutboxWorker struct {
	store     OutboxStore
	publisher NotificationPublisher
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
}

// NewOutboxWorker creates a new outbox dispatcher.
func NewOutboxWorker(store OutboxStore, publisher NotificationPublisher, interval time.Duration) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &OutboxWorker{
		store:     store,
		publisher: publisher,
		interval:  interval,
		batchSize: 100,
		logger:    util.GetLogger(),
	}
}

// Start polls until the context is cancelled.
func (w *OutboxWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification outbox worker",
		zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Outbox worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := w.DrainOnce(ctx); err != nil {
				w.logger.Error("Outbox drain failed", zap.Error(err))
			}
		}
	}
}

// DrainOnce publishes one batch of undelivered notifications.
func (w *OutboxWorker) DrainOnce(ctx context.Context) error {
	pending, err := w.store.ListUndeliveredNotifications(ctx, w.batchSize)
	if err != nil {
		return err
	}
	for i := range pending {
		n := &pending[i]
		if err := w.publisher.PublishNotification(ctx, n); err != nil {
			util.NotificationDispatchFailures.Inc()
			w.logger.Error("Failed to publish notification",
				zap.String("notification_id", n.ID), zap.Error(err))
			continue
		}
		if err := w.store.MarkNotificationDelivered(ctx, n.ID); err != nil {
			w.logger.Error("Failed to mark notification delivered",
				zap.String("notification_id", n.ID), zap.Error(err))
			continue
		}
		util.NotificationsDispatchedTotal.Inc()
	}
	return nil
}

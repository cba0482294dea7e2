package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"campusmarket/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	sent []*models.NotificationEvent
}

func (r *recordingNotifier) Send(ctx context.Context, event *models.NotificationEvent) error {
	r.sent = append(r.sent, event)
	return nil
}

func eventMessage(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte("user-1"), Value: value}
}

func TestDispatcherDeliversNotificationEvents(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	d := NewNotificationDispatcher(notifier)

	msg := eventMessage(t, &models.NotificationEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeNotification,
			Timestamp: time.Now(),
		},
		NotificationID: "n-1",
		UserID:         "user-1",
		Title:          "New Bid Received",
		Type:           models.NotifTypeBidReceived,
	})
	require.NoError(t, d.Handle(ctx, msg))
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "n-1", notifier.sent[0].NotificationID)
	assert.Equal(t, "user-1", notifier.sent[0].UserID)
}

func TestDispatcherIgnoresOtherEventTypes(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	d := NewNotificationDispatcher(notifier)

	msg := eventMessage(t, &models.BidPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-2",
			EventType: models.EventTypeBidPlaced,
			Timestamp: time.Now(),
		},
		GigID: "gig-1",
		BidID: "bid-1",
	})
	require.NoError(t, d.Handle(ctx, msg))
	assert.Empty(t, notifier.sent)
}

func TestDispatcherSkipsPoisonMessages(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	d := NewNotificationDispatcher(notifier)

	msg := kafka.Message{Key: []byte("user-1"), Value: []byte("not json")}
	require.NoError(t, d.Handle(ctx, msg))
	assert.Empty(t, notifier.sent)
}

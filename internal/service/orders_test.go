package service

import (
	"context"
	"testing"

	"campusmarket/internal/broker"
	"campusmarket/internal/models"
	"campusmarket/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, m *store.Memory, providerID string, price int64) *models.Service {
	t.Helper()
	s := &models.Service{
		ProviderID: providerID,
		Title:      "Math tutoring",
		Category:   "tutoring",
		Price:      price,
		PriceType:  models.PriceTypeHourly,
		IsActive:   true,
	}
	require.NoError(t, m.CreateService(context.Background(), s))
	return s
}

func TestBookServiceCreatesOrder(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	svc := NewOrderService(m, nil)
	provider := newUser(t, m, "p@test.edu")
	client := newUser(t, m, "c@test.edu")
	listing := newService(t, m, provider.ID, 250)

	order, err := svc.BookService(ctx, client.ID, &BookServiceRequest{ServiceID: listing.ID, Notes: "Tuesday 4pm"})
	require.NoError(t, err)
	assert.Equal(t, models.SourceService, order.Source.Kind)
	assert.Equal(t, listing.ID, order.Source.ServiceID)
	assert.Equal(t, provider.ID, order.ProviderID)
	assert.Equal(t, int64(250), order.Amount)
	assert.Equal(t, models.OrderStatusPending, order.Status)

	_, err = svc.BookService(ctx, provider.ID, &BookServiceRequest{ServiceID: listing.ID})
	assert.ErrorIs(t, err, models.ErrSelfBooking)

	// The provider gets a booking notification.
	feed, err := m.ListNotificationsByUser(ctx, provider.ID)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, models.NotifTypeBooking, feed[0].Type)
}

func TestOrderVisibilityAndPayment(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	svc := NewOrderService(m, nil)
	ledger := NewLedgerService(m, nil)
	provider := newUser(t, m, "p@test.edu")
	client := newUser(t, m, "c@test.edu")
	stranger := newUser(t, m, "s@test.edu")
	listing := newService(t, m, provider.ID, 250)

	_, err := ledger.Deposit(ctx, client.ID, &DepositRequest{Amount: 1000})
	require.NoError(t, err)

	order, err := svc.BookService(ctx, client.ID, &BookServiceRequest{ServiceID: listing.ID})
	require.NoError(t, err)

	_, err = svc.GetOrder(ctx, stranger.ID, order.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	// Only the client pays.
	_, err = svc.PayOrder(ctx, provider.ID, order.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	paid, err := svc.PayOrder(ctx, client.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)

	clientBalance, _ := ledger.GetBalance(ctx, client.ID)
	providerBalance, _ := ledger.GetBalance(ctx, provider.ID)
	assert.Equal(t, int64(750), clientBalance)
	assert.Equal(t, int64(250), providerBalance)
}

func TestCompleteAndReviewFlow(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	svc := NewOrderService(m, nil)
	provider := newUser(t, m, "p@test.edu")
	client := newUser(t, m, "c@test.edu")
	stranger := newUser(t, m, "s@test.edu")
	listing := newService(t, m, provider.ID, 250)

	order, err := svc.BookService(ctx, client.ID, &BookServiceRequest{ServiceID: listing.ID})
	require.NoError(t, err)

	// Review before completion bounces.
	_, err = svc.SubmitReview(ctx, client.ID, order.ID, &SubmitReviewRequest{Rating: 5})
	assert.ErrorIs(t, err, models.ErrOrderNotCompleted)

	_, err = svc.CompleteOrder(ctx, stranger.ID, order.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	completed, err := svc.CompleteOrder(ctx, provider.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, completed.Status)

	_, err = svc.SubmitReview(ctx, client.ID, order.ID, &SubmitReviewRequest{Rating: 0})
	assert.ErrorIs(t, err, models.ErrInvalidRating)
	_, err = svc.SubmitReview(ctx, client.ID, order.ID, &SubmitReviewRequest{Rating: 6})
	assert.ErrorIs(t, err, models.ErrInvalidRating)

	_, err = svc.SubmitReview(ctx, stranger.ID, order.ID, &SubmitReviewRequest{Rating: 5})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	review, err := svc.SubmitReview(ctx, client.ID, order.ID, &SubmitReviewRequest{Rating: 5, Comment: "great"})
	require.NoError(t, err)
	assert.Equal(t, provider.ID, review.RevieweeID)

	_, err = svc.SubmitReview(ctx, client.ID, order.ID, &SubmitReviewRequest{Rating: 4})
	assert.ErrorIs(t, err, models.ErrDuplicateReview)

	reviews, err := svc.ListReviews(ctx, provider.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	svc := NewOrderService(m, nil)
	ledger := NewLedgerService(m, nil)
	provider := newUser(t, m, "p@test.edu")
	client := newUser(t, m, "c@test.edu")
	listing := newService(t, m, provider.ID, 250)

	_, err := ledger.Deposit(ctx, client.ID, &DepositRequest{Amount: 300})
	require.NoError(t, err)

	order, err := svc.BookService(ctx, client.ID, &BookServiceRequest{ServiceID: listing.ID})
	require.NoError(t, err)
	_, err = svc.PayOrder(ctx, client.ID, order.ID)
	require.NoError(t, err)

	cancelled, err := svc.CancelOrder(ctx, client.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, cancelled.PaymentStatus)

	clientBalance, _ := ledger.GetBalance(ctx, client.ID)
	assert.Equal(t, int64(300), clientBalance)

	// Completed and cancelled orders cannot be cancelled again.
	_, err = svc.CancelOrder(ctx, client.ID, order.ID)
	assert.ErrorIs(t, err, models.ErrOrderNotCancellable)

	// Nor paid: the money would have no way back out.
	_, err = svc.PayOrder(ctx, client.ID, order.ID)
	assert.ErrorIs(t, err, models.ErrOrderNotActive)
}

func TestOrderClosedEventPublished(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	sink := &recordingSink{}
	svc := NewOrderService(m, broker.NewEventPublisher(sink))
	provider := newUser(t, m, "p@test.edu")
	client := newUser(t, m, "c@test.edu")
	listing := newService(t, m, provider.ID, 250)

	completedOrder, err := svc.BookService(ctx, client.ID, &BookServiceRequest{ServiceID: listing.ID})
	require.NoError(t, err)
	_, err = svc.CompleteOrder(ctx, provider.ID, completedOrder.ID)
	require.NoError(t, err)

	cancelledOrder, err := svc.BookService(ctx, client.ID, &BookServiceRequest{ServiceID: listing.ID})
	require.NoError(t, err)
	_, err = svc.CancelOrder(ctx, client.ID, cancelledOrder.ID)
	require.NoError(t, err)

	require.Equal(t, 2, sink.count())
	statuses := map[string]string{}
	for _, e := range sink.events {
		closed, ok := e.(*models.OrderClosedEvent)
		require.True(t, ok)
		assert.Equal(t, models.EventTypeOrderClosed, closed.EventType)
		statuses[closed.OrderID] = closed.Status
	}
	assert.Equal(t, models.OrderStatusCompleted, statuses[completedOrder.ID])
	assert.Equal(t, models.OrderStatusCancelled, statuses[cancelledOrder.ID])
}

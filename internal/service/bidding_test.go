package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"campusmarket/internal/broker"
	"campusmarket/internal/models"
	"campusmarket/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures published events in place of a broker.
type recordingSink struct {
	mu     sync.Mutex
	events []interface{}
}

func (r *recordingSink) PublishEvent(ctx context.Context, key string, event interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newUser(t *testing.T, m *store.Memory, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, FirstName: "T", LastName: "U", Role: models.RoleStudent}
	require.NoError(t, m.CreateUser(context.Background(), u))
	return u
}

func newGig(t *testing.T, m *store.Memory, clientID string) *models.Gig {
	t.Helper()
	g := &models.Gig{
		ClientID: clientID,
		Title:    "Design a club flyer",
		Category: "design",
		Deadline: time.Now().Add(48 * time.Hour),
	}
	require.NoError(t, m.CreateGig(context.Background(), g))
	return g
}

func TestPlaceBidValidation(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	svc := NewBiddingService(m, nil)
	client := newUser(t, m, "c@test.edu")
	bidder := newUser(t, m, "b@test.edu")
	gig := newGig(t, m, client.ID)

	_, err := svc.PlaceBid(ctx, bidder.ID, gig.ID, &PlaceBidRequest{Amount: 0})
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	_, err = svc.PlaceBid(ctx, bidder.ID, gig.ID, &PlaceBidRequest{Amount: -50})
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	_, err = svc.PlaceBid(ctx, client.ID, gig.ID, &PlaceBidRequest{Amount: 100})
	assert.ErrorIs(t, err, models.ErrSelfBid)

	bid, err := svc.PlaceBid(ctx, bidder.ID, gig.ID, &PlaceBidRequest{Amount: 100, DeliveryTime: "2 days"})
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusPending, bid.Status)
}

func TestAcceptBidOwnership(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	svc := NewBiddingService(m, nil)
	client := newUser(t, m, "c@test.edu")
	bidder := newUser(t, m, "b@test.edu")
	stranger := newUser(t, m, "s@test.edu")
	gig := newGig(t, m, client.ID)

	bid, err := svc.PlaceBid(ctx, bidder.ID, gig.ID, &PlaceBidRequest{Amount: 100})
	require.NoError(t, err)

	_, err = svc.AcceptBid(ctx, stranger.ID, bid.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = svc.AcceptBid(ctx, bidder.ID, bid.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	result, err := svc.AcceptBid(ctx, client.ID, bid.ID)
	require.NoError(t, err)
	assert.Equal(t, bid.ID, result.Bid.ID)
}

func TestAcceptBidPublishesEvent(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	sink := &recordingSink{}
	svc := NewBiddingService(m, broker.NewEventPublisher(sink))
	client := newUser(t, m, "c@test.edu")
	b1 := newUser(t, m, "b1@test.edu")
	b2 := newUser(t, m, "b2@test.edu")
	gig := newGig(t, m, client.ID)

	bid, err := svc.PlaceBid(ctx, b1.ID, gig.ID, &PlaceBidRequest{Amount: 100})
	require.NoError(t, err)
	_, err = svc.PlaceBid(ctx, b2.ID, gig.ID, &PlaceBidRequest{Amount: 90})
	require.NoError(t, err)

	result, err := svc.AcceptBid(ctx, client.ID, bid.ID)
	require.NoError(t, err)
	assert.Len(t, result.RejectedBids, 1)

	// Two BidPlaced plus one BidAccepted.
	require.Equal(t, 3, sink.count())
	accepted, ok := sink.events[2].(*models.BidAcceptedEvent)
	require.True(t, ok)
	assert.Equal(t, models.EventTypeBidAccepted, accepted.EventType)
	assert.Equal(t, bid.ID, accepted.BidID)
	assert.Equal(t, result.Order.ID, accepted.OrderID)
	assert.Len(t, accepted.RejectedBids, 1)
}

func TestEditAndWithdrawBidOwnership(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	svc := NewBiddingService(m, nil)
	client := newUser(t, m, "c@test.edu")
	bidder := newUser(t, m, "b@test.edu")
	stranger := newUser(t, m, "s@test.edu")
	gig := newGig(t, m, client.ID)

	bid, err := svc.PlaceBid(ctx, bidder.ID, gig.ID, &PlaceBidRequest{Amount: 100})
	require.NoError(t, err)

	newAmount := int64(120)
	_, err = svc.EditBid(ctx, stranger.ID, bid.ID, &EditBidRequest{Amount: &newAmount})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	updated, err := svc.EditBid(ctx, bidder.ID, bid.ID, &EditBidRequest{Amount: &newAmount})
	require.NoError(t, err)
	assert.Equal(t, int64(120), updated.Amount)

	err = svc.WithdrawBid(ctx, stranger.ID, bid.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	// Editing or withdrawing after acceptance bounces.
	_, err = svc.AcceptBid(ctx, client.ID, bid.ID)
	require.NoError(t, err)

	_, err = svc.EditBid(ctx, bidder.ID, bid.ID, &EditBidRequest{Amount: &newAmount})
	assert.ErrorIs(t, err, models.ErrBidNotPending)

	err = svc.WithdrawBid(ctx, bidder.ID, bid.ID)
	assert.ErrorIs(t, err, models.ErrBidNotPending)
}

func TestListGigBidsClientOnly(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	svc := NewBiddingService(m, nil)
	client := newUser(t, m, "c@test.edu")
	bidder := newUser(t, m, "b@test.edu")
	gig := newGig(t, m, client.ID)

	_, err := svc.PlaceBid(ctx, bidder.ID, gig.ID, &PlaceBidRequest{Amount: 100})
	require.NoError(t, err)

	_, err = svc.ListBidsByGig(ctx, bidder.ID, gig.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	bids, err := svc.ListBidsByGig(ctx, client.ID, gig.ID)
	require.NoError(t, err)
	assert.Len(t, bids, 1)

	mine, err := svc.ListMyBids(ctx, bidder.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

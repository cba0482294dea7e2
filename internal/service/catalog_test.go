package service

import (
	"context"
	"testing"
	"time"

	"campusmarket/internal/models"
	"campusmarket/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	svc := NewCatalogService(m)
	provider := newUser(t, m, "p@test.edu")
	stranger := newUser(t, m, "s@test.edu")

	_, err := svc.CreateService(ctx, provider.ID, &CreateServiceRequest{
		Title: "free", Category: "misc", Price: 0,
	})
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	listing, err := svc.CreateService(ctx, provider.ID, &CreateServiceRequest{
		Title:    "Laundry pickup",
		Category: "errands",
		Price:    150,
	})
	require.NoError(t, err)
	assert.True(t, listing.IsActive)
	assert.Equal(t, models.PriceTypeFixed, listing.PriceType)

	newTitle := "Laundry pickup and delivery"
	_, err = svc.UpdateService(ctx, stranger.ID, listing.ID, &UpdateServiceRequest{Title: &newTitle})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	updated, err := svc.UpdateService(ctx, provider.ID, listing.ID, &UpdateServiceRequest{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, newTitle, updated.Title)

	err = svc.DeleteService(ctx, stranger.ID, listing.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	require.NoError(t, svc.DeleteService(ctx, provider.ID, listing.ID))

	_, err = svc.GetService(ctx, listing.ID)
	assert.ErrorIs(t, err, models.ErrServiceNotFound)
}

func TestListServicesFiltersInactive(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	svc := NewCatalogService(m)
	provider := newUser(t, m, "p@test.edu")

	active, err := svc.CreateService(ctx, provider.ID, &CreateServiceRequest{
		Title: "Tutoring", Category: "tutoring", Price: 100,
	})
	require.NoError(t, err)
	hidden, err := svc.CreateService(ctx, provider.ID, &CreateServiceRequest{
		Title: "Old gig", Category: "tutoring", Price: 100,
	})
	require.NoError(t, err)
	inactive := false
	_, err = svc.UpdateService(ctx, provider.ID, hidden.ID, &UpdateServiceRequest{IsActive: &inactive})
	require.NoError(t, err)

	listed, err := svc.ListServices(ctx, store.ServiceFilter{Category: "tutoring"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, active.ID, listed[0].ID)

	// The provider's own view still includes the inactive listing.
	mine, err := svc.ListServicesByProvider(ctx, provider.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestGigLifecycle(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	svc := NewCatalogService(m)
	bidding := NewBiddingService(m, nil)
	client := newUser(t, m, "c@test.edu")
	bidder := newUser(t, m, "b@test.edu")
	stranger := newUser(t, m, "s@test.edu")

	gig, err := svc.CreateGig(ctx, client.ID, &CreateGigRequest{
		Title:    "Move my boxes",
		Category: "errands",
		Budget:   "2,000 - 3,000",
		Deadline: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.GigStatusOpen, gig.Status)

	newBudget := "4,000"
	_, err = svc.UpdateGig(ctx, stranger.ID, gig.ID, &UpdateGigRequest{Budget: &newBudget})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	updated, err := svc.UpdateGig(ctx, client.ID, gig.ID, &UpdateGigRequest{Budget: &newBudget})
	require.NoError(t, err)
	assert.Equal(t, newBudget, updated.Budget)

	bid, err := bidding.PlaceBid(ctx, bidder.ID, gig.ID, &PlaceBidRequest{Amount: 2500})
	require.NoError(t, err)
	_, err = bidding.AcceptBid(ctx, client.ID, bid.ID)
	require.NoError(t, err)

	// Budget frozen after bidding closes.
	frozen := "9,999"
	_, err = svc.UpdateGig(ctx, client.ID, gig.ID, &UpdateGigRequest{Budget: &frozen})
	assert.ErrorIs(t, err, models.ErrGigNotEditable)
}

func TestDeleteGigOwnership(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	svc := NewCatalogService(m)
	bidding := NewBiddingService(m, nil)
	client := newUser(t, m, "c@test.edu")
	bidder := newUser(t, m, "b@test.edu")

	gig, err := svc.CreateGig(ctx, client.ID, &CreateGigRequest{
		Title:    "Fix my bike",
		Category: "repair",
		Deadline: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	bid, err := bidding.PlaceBid(ctx, bidder.ID, gig.ID, &PlaceBidRequest{Amount: 500})
	require.NoError(t, err)

	err = svc.DeleteGig(ctx, bidder.ID, gig.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	require.NoError(t, svc.DeleteGig(ctx, client.ID, gig.ID))
	_, err = bidding.GetBid(ctx, bid.ID)
	assert.ErrorIs(t, err, models.ErrBidNotFound)
}

package service

import (
	"context"

	"campusmarket/internal/broker"
	"campusmarket/internal/models"
	"campusmarket/internal/store"
	"campusmarket/internal/util"

	"go.uber.org/zap"
)

// BiddingService handles the competitive bidding lifecycle on gigs.
type BiddingService struct {
	store     store.Store
	publisher *broker.EventPublisher
	logger    *zap.Logger
}

// NewBiddingService creates a new bidding service. publisher may be nil when
// no broker is wired.
func NewBiddingService(st store.Store, publisher *broker.EventPublisher) *BiddingService {
	return &BiddingService{
		store:     st,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// PlaceBidRequest represents a new bid on a gig
type PlaceBidRequest struct {
	Amount       int64  `json:"amount" binding:"required"`
	Message      string `json:"message"`
	DeliveryTime string `json:"delivery_time"`
}

// EditBidRequest carries partial bid updates, allowed while pending
type EditBidRequest struct {
	Amount       *int64  `json:"amount"`
	Message      *string `json:"message"`
	DeliveryTime *string `json:"delivery_time"`
}

// PlaceBid places a bid on an open gig.
func (s *BiddingService) PlaceBid(ctx context.Context, bidderID, gigID string, req *PlaceBidRequest) (*models.Bid, error) {
	ctx, span := util.StartSpan(ctx, "BiddingService.PlaceBid")
	defer span.End()

	if req.Amount <= 0 {
		return nil, models.ErrInvalidAmount
	}

	bid := &models.Bid{
		GigID:        gigID,
		BidderID:     bidderID,
		Amount:       req.Amount,
		Message:      req.Message,
		DeliveryTime: req.DeliveryTime,
	}
	if err := s.store.PlaceBid(ctx, bid); err != nil {
		return nil, err
	}

	util.BidsPlacedTotal.Inc()
	s.logger.Info("Bid placed",
		zap.String("bid_id", bid.ID),
		zap.String("gig_id", gigID),
		zap.String("bidder_id", bidderID),
		zap.Int64("amount", bid.Amount))

	if s.publisher != nil {
		if err := s.publisher.PublishBidPlaced(ctx, bid); err != nil {
			s.logger.Warn("Failed to publish BidPlaced event", zap.Error(err))
		}
	}
	return bid, nil
}

// GetBid returns one bid.
func (s *BiddingService) GetBid(ctx context.Context, id string) (*models.Bid, error) {
	return s.store.GetBid(ctx, id)
}

// ListBidsByGig returns every bid on a gig. Only the posting client sees the
// full list.
func (s *BiddingService) ListBidsByGig(ctx context.Context, actorID, gigID string) ([]models.Bid, error) {
	gig, err := s.store.GetGig(ctx, gigID)
	if err != nil {
		return nil, err
	}
	if gig.ClientID != actorID {
		return nil, models.ErrUnauthorized
	}
	return s.store.ListBidsByGig(ctx, gigID)
}

// ListMyBids returns the acting bidder's bids across gigs.
func (s *BiddingService) ListMyBids(ctx context.Context, bidderID string) ([]models.Bid, error) {
	return s.store.ListBidsByBidder(ctx, bidderID)
}

// EditBid updates a pending bid. Only the bidder may edit.
func (s *BiddingService) EditBid(ctx context.Context, actorID, bidID string, req *EditBidRequest) (*models.Bid, error) {
	bid, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if bid.BidderID != actorID {
		return nil, models.ErrUnauthorized
	}
	if req.Amount != nil && *req.Amount <= 0 {
		return nil, models.ErrInvalidAmount
	}

	return s.store.UpdateBid(ctx, bidID, store.BidUpdate{
		Amount:       req.Amount,
		Message:      req.Message,
		DeliveryTime: req.DeliveryTime,
	})
}

// WithdrawBid removes a pending bid. Only the bidder may withdraw.
func (s *BiddingService) WithdrawBid(ctx context.Context, actorID, bidID string) error {
	bid, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		return err
	}
	if bid.BidderID != actorID {
		return models.ErrUnauthorized
	}
	return s.store.WithdrawBid(ctx, bidID)
}

// AcceptBid accepts a bid on behalf of the gig's client. The winner is
// accepted, every pending sibling rejected, the gig moved to in_progress and
// the order created, all in one atomic unit.
func (s *BiddingService) AcceptBid(ctx context.Context, actorID, bidID string) (*store.AcceptResult, error) {
	ctx, span := util.StartSpan(ctx, "BiddingService.AcceptBid")
	defer span.End()

	bid, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	gig, err := s.store.GetGig(ctx, bid.GigID)
	if err != nil {
		return nil, err
	}
	if gig.ClientID != actorID {
		return nil, models.ErrUnauthorized
	}

	result, err := s.store.AcceptBid(ctx, bidID)
	if err != nil {
		return nil, err
	}

	util.BidsAcceptedTotal.Inc()
	util.BidsRejectedTotal.Add(float64(len(result.RejectedBids)))
	util.OrdersCreatedTotal.WithLabelValues(string(models.SourceGigBid)).Inc()
	s.logger.Info("Bid accepted",
		zap.String("bid_id", bidID),
		zap.String("gig_id", result.Gig.ID),
		zap.String("order_id", result.Order.ID),
		zap.Int("rejected_siblings", len(result.RejectedBids)))

	if s.publisher != nil {
		rejectedIDs := make([]string, 0, len(result.RejectedBids))
		for _, r := range result.RejectedBids {
			rejectedIDs = append(rejectedIDs, r.ID)
		}
		event := &models.BidAcceptedEvent{
			GigID:        result.Gig.ID,
			BidID:        bidID,
			OrderID:      result.Order.ID,
			RejectedBids: rejectedIDs,
		}
		if err := s.publisher.PublishBidAccepted(ctx, event); err != nil {
			s.logger.Warn("Failed to publish BidAccepted event", zap.Error(err))
		}
	}
	return result, nil
}

package service

import (
	"context"

	"campusmarket/internal/broker"
	"campusmarket/internal/models"
	"campusmarket/internal/store"
	"campusmarket/internal/util"

	"go.uber.org/zap"
)

// OrderService handles the order lifecycle from either source: a direct
// service booking or a bid accepted on a gig.
type OrderService struct {
	store     store.Store
	publisher *broker.EventPublisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service. publisher may be nil when no
// broker is wired.
func NewOrderService(st store.Store, publisher *broker.EventPublisher) *OrderService {
	return &OrderService{
		store:     st,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// BookServiceRequest represents a direct service booking
type BookServiceRequest struct {
	ServiceID string `json:"service_id" binding:"required"`
	Notes     string `json:"notes"`
}

// SubmitReviewRequest represents a review on a completed order
type SubmitReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// BookService creates an order directly from an active service listing.
func (s *OrderService) BookService(ctx context.Context, clientID string, req *BookServiceRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.BookService")
	defer span.End()

	order := &models.Order{
		Source:   models.ServiceSource(req.ServiceID),
		ClientID: clientID,
		Notes:    req.Notes,
	}
	if err := order.Source.Validate(); err != nil {
		return nil, models.ErrInvalidSource
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	util.OrdersCreatedTotal.WithLabelValues(string(models.SourceService)).Inc()
	s.logger.Info("Service booked",
		zap.String("order_id", order.ID),
		zap.String("service_id", req.ServiceID),
		zap.String("client_id", clientID))
	return order, nil
}

// GetOrder returns one order if the actor is a party to it.
func (s *OrderService) GetOrder(ctx context.Context, actorID, orderID string) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != actorID && order.ProviderID != actorID {
		return nil, models.ErrUnauthorized
	}
	return order, nil
}

// ListOrders returns the actor's orders on either side.
func (s *OrderService) ListOrders(ctx context.Context, actorID string) ([]models.Order, error) {
	return s.store.ListOrdersByUser(ctx, actorID)
}

// requireParty loads the order and checks the actor is one of its parties.
func (s *OrderService) requireParty(ctx context.Context, actorID, orderID string) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != actorID && order.ProviderID != actorID {
		return nil, models.ErrUnauthorized
	}
	return order, nil
}

// CompleteOrder marks the order completed. Either party may complete. A
// gig-sourced order also closes its gig, and the provider's completed count
// rises, all in one atomic unit.
func (s *OrderService) CompleteOrder(ctx context.Context, actorID, orderID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CompleteOrder")
	defer span.End()

	if _, err := s.requireParty(ctx, actorID, orderID); err != nil {
		return nil, err
	}
	order, err := s.store.CompleteOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	util.OrdersCompletedTotal.Inc()
	s.logger.Info("Order completed",
		zap.String("order_id", orderID),
		zap.String("actor_id", actorID))

	if s.publisher != nil {
		if err := s.publisher.PublishOrderClosed(ctx, order); err != nil {
			s.logger.Warn("Failed to publish OrderClosed event", zap.Error(err))
		}
	}
	return order, nil
}

// PayOrder settles an order from the client's wallet into the provider's as
// a debit/credit pair in the ledger. Only the client may pay.
func (s *OrderService) PayOrder(ctx context.Context, actorID, orderID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PayOrder")
	defer span.End()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != actorID {
		return nil, models.ErrUnauthorized
	}

	order, err = s.store.PayOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	util.OrdersPaidTotal.Inc()
	util.WalletTransactionsTotal.WithLabelValues(models.TxTypeDebit).Inc()
	util.WalletTransactionsTotal.WithLabelValues(models.TxTypeCredit).Inc()
	s.logger.Info("Order paid",
		zap.String("order_id", orderID),
		zap.Int64("amount", order.Amount))

	if s.publisher != nil {
		if err := s.publisher.PublishOrderPaid(ctx, order); err != nil {
			s.logger.Warn("Failed to publish OrderPaid event", zap.Error(err))
		}
	}
	return order, nil
}

// CancelOrder cancels a pending or in-progress order, refunding the client if
// payment already settled. Either party may cancel.
func (s *OrderService) CancelOrder(ctx context.Context, actorID, orderID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelOrder")
	defer span.End()

	if _, err := s.requireParty(ctx, actorID, orderID); err != nil {
		return nil, err
	}
	order, err := s.store.CancelOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	util.OrdersCancelledTotal.Inc()
	s.logger.Info("Order cancelled",
		zap.String("order_id", orderID),
		zap.String("payment_status", order.PaymentStatus))

	if s.publisher != nil {
		if err := s.publisher.PublishOrderClosed(ctx, order); err != nil {
			s.logger.Warn("Failed to publish OrderClosed event", zap.Error(err))
		}
	}
	return order, nil
}

// SubmitReview leaves a review on a completed order. The reviewee is always
// the other party.
func (s *OrderService) SubmitReview(ctx context.Context, actorID, orderID string, req *SubmitReviewRequest) (*models.Review, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.SubmitReview")
	defer span.End()

	if req.Rating < 1 || req.Rating > 5 {
		return nil, models.ErrInvalidRating
	}
	if _, err := s.requireParty(ctx, actorID, orderID); err != nil {
		return nil, err
	}

	review := &models.Review{
		OrderID:    orderID,
		ReviewerID: actorID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}
	if err := s.store.SubmitReview(ctx, review); err != nil {
		return nil, err
	}

	util.ReviewsSubmittedTotal.Inc()
	s.logger.Info("Review submitted",
		zap.String("order_id", orderID),
		zap.String("reviewer_id", actorID),
		zap.Int("rating", req.Rating))
	return review, nil
}

// ListReviews returns the reviews received by one user.
func (s *OrderService) ListReviews(ctx context.Context, userID string) ([]models.Review, error) {
	return s.store.ListReviewsByReviewee(ctx, userID)
}

package store

import (
	"context"
	"time"

	"campusmarket/internal/models"
)

// Store is the persistence boundary. Every method that carries a business
// invariant (AcceptBid, Withdraw, RecordTransaction, PayOrder, SubmitReview,
// ...) is a single atomic unit: the Postgres implementation runs it in one
// transaction with row locks, the in-memory implementation under one mutex.
// State guards (gig open, bid pending, sufficient balance) are re-checked
// inside the atomic unit and surface as typed models errors. Ownership checks
// stay in the service layer since ownership never changes.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id string, upd UserProfileUpdate) (*models.User, error)
	SubmitKYC(ctx context.Context, id, ninImageURL, selfieImageURL string) (*models.User, error)
	GetUserStats(ctx context.Context, id string) (*models.UserStats, error)

	// Ledger
	RecordTransaction(ctx context.Context, tx *models.Transaction) error
	Withdraw(ctx context.Context, userID string, amount int64, description string) (*models.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	ListTransactionsByUser(ctx context.Context, userID string, limit int) ([]models.Transaction, error)
	SumTransactions(ctx context.Context, userID string) (int64, error)

	// Services
	CreateService(ctx context.Context, s *models.Service) error
	GetService(ctx context.Context, id string) (*models.Service, error)
	ListServices(ctx context.Context, f ServiceFilter) ([]models.Service, error)
	UpdateService(ctx context.Context, id string, upd ServiceUpdate) (*models.Service, error)
	DeleteService(ctx context.Context, id string) error
	ListServicesByProvider(ctx context.Context, providerID string) ([]models.Service, error)

	// Gigs
	CreateGig(ctx context.Context, g *models.Gig) error
	GetGig(ctx context.Context, id string) (*models.Gig, error)
	ListGigs(ctx context.Context, f GigFilter) ([]models.Gig, error)
	UpdateGig(ctx context.Context, id string, upd GigUpdate) (*models.Gig, error)
	DeleteGig(ctx context.Context, id string) error
	ListGigsByClient(ctx context.Context, clientID string) ([]models.Gig, error)

	// Bids
	PlaceBid(ctx context.Context, b *models.Bid) error
	GetBid(ctx context.Context, id string) (*models.Bid, error)
	ListBidsByGig(ctx context.Context, gigID string) ([]models.Bid, error)
	ListBidsByBidder(ctx context.Context, bidderID string) ([]models.Bid, error)
	UpdateBid(ctx context.Context, id string, upd BidUpdate) (*models.Bid, error)
	WithdrawBid(ctx context.Context, id string) error
	AcceptBid(ctx context.Context, bidID string) (*AcceptResult, error)

	// Orders
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	CompleteOrder(ctx context.Context, orderID string) (*models.Order, error)
	PayOrder(ctx context.Context, orderID string) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID string) (*models.Order, error)

	// Reviews
	SubmitReview(ctx context.Context, r *models.Review) error
	ListReviewsByReviewee(ctx context.Context, revieweeID string) ([]models.Review, error)

	// Notifications (outbox)
	AppendNotification(ctx context.Context, n *models.Notification) error
	ListNotificationsByUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
	ListUndeliveredNotifications(ctx context.Context, limit int) ([]models.Notification, error)
	MarkNotificationDelivered(ctx context.Context, id string) error

	// Chats
	CreateChat(ctx context.Context, c *models.Chat) error
	GetChat(ctx context.Context, id string) (*models.Chat, error)
	ListChatsByUser(ctx context.Context, userID string) ([]models.Chat, error)
	ListMessagesByChat(ctx context.Context, chatID string) ([]models.Message, error)
	CreateMessage(ctx context.Context, m *models.Message) error

	Ping(ctx context.Context) error
	Close() error
}

// AcceptResult is everything the atomic accept produces: the winning bid, the
// gig moved to in_progress, the order materialized from the bid, and the
// sibling bids rejected in the same unit.
type AcceptResult struct {
	Bid          *models.Bid
	Gig          *models.Gig
	Order        *models.Order
	RejectedBids []models.Bid
}

// ServiceFilter narrows ListServices.
type ServiceFilter struct {
	Category string
	Search   string
	Limit    int
}

// GigFilter narrows ListGigs.
type GigFilter struct {
	Category string
	Search   string
	Status   string
	Limit    int
}

// ServiceUpdate carries the mutable fields of a service; nil means unchanged.
type ServiceUpdate struct {
	Title       *string
	Description *string
	Category    *string
	Price       *int64
	PriceType   *string
	IsActive    *bool
	ImageURL    *string
}

// GigUpdate carries the mutable fields of a gig; nil means unchanged.
// Budget, Deadline and Category are rejected once the gig leaves open status.
type GigUpdate struct {
	Title       *string
	Description *string
	Category    *string
	Budget      *string
	Deadline    *time.Time
	ImageURL    *string
}

// Frozen reports whether the update touches fields that are frozen after the
// gig leaves open status.
func (u GigUpdate) Frozen() bool {
	return u.Budget != nil || u.Deadline != nil || u.Category != nil
}

// BidUpdate carries the fields a bidder may edit while the bid is pending.
type BidUpdate struct {
	Amount       *int64
	Message      *string
	DeliveryTime *string
}

// UserProfileUpdate carries the user-editable profile fields.
type UserProfileUpdate struct {
	FirstName       *string
	LastName        *string
	Role            *string
	ProfileImageURL *string
}

package models

import "time"

// User represents a marketplace participant. WalletBalance is a cached
// projection of the transaction log; the ledger's verify routine recomputes it.
type User struct {
	ID              string    `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"`
	FirstName       string    `db:"first_name" json:"first_name"`
	LastName        string    `db:"last_name" json:"last_name"`
	Role            string    `db:"role" json:"role"`
	ProfileImageURL string    `db:"profile_image_url" json:"profile_image_url,omitempty"`
	WalletBalance   int64     `db:"wallet_balance" json:"wallet_balance"`
	TotalEarnings   int64     `db:"total_earnings" json:"total_earnings"`
	Rating          float64   `db:"rating" json:"rating"`
	CompletedOrders int       `db:"completed_orders" json:"completed_orders"`
	KYCStatus       string    `db:"kyc_status" json:"kyc_status"`
	NINImageURL     string    `db:"nin_image_url" json:"nin_image_url,omitempty"`
	SelfieImageURL  string    `db:"selfie_image_url" json:"selfie_image_url,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Service is a standing offer by a provider.
type Service struct {
	ID          string    `db:"id" json:"id"`
	ProviderID  string    `db:"provider_id" json:"provider_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`
	Price       int64     `db:"price" json:"price"`
	PriceType   string    `db:"price_type" json:"price_type"`
	Rating      float64   `db:"rating" json:"rating"`
	ReviewCount int       `db:"review_count" json:"review_count"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	ImageURL    string    `db:"image_url" json:"image_url,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Gig is a one-off request by a client, open to competitive bids.
type Gig struct {
	ID            string    `db:"id" json:"id"`
	ClientID      string    `db:"client_id" json:"client_id"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description"`
	Category      string    `db:"category" json:"category"`
	Budget        string    `db:"budget" json:"budget"` // free-text range, e.g. "5,000 - 8,000"
	Deadline      time.Time `db:"deadline" json:"deadline"`
	Status        string    `db:"status" json:"status"`
	BidCount      int       `db:"bid_count" json:"bid_count"`
	SelectedBidID *string   `db:"selected_bid_id" json:"selected_bid_id,omitempty"`
	ImageURL      string    `db:"image_url" json:"image_url,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Bid is a bidder's priced, timed proposal against a gig.
type Bid struct {
	ID           string    `db:"id" json:"id"`
	GigID        string    `db:"gig_id" json:"gig_id"`
	BidderID     string    `db:"bidder_id" json:"bidder_id"`
	Amount       int64     `db:"amount" json:"amount"`
	Message      string    `db:"message" json:"message"`
	DeliveryTime string    `db:"delivery_time" json:"delivery_time"` // e.g. "3 days"
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Order is the materialized engagement between a client and a provider,
// sourced either from an accepted bid or a direct service booking.
type Order struct {
	ID            string      `json:"id"`
	Source        OrderSource `json:"source"`
	ClientID      string      `json:"client_id"`
	ProviderID    string      `json:"provider_id"`
	Amount        int64       `json:"amount"`
	Status        string      `json:"status"`
	PaymentStatus string      `json:"payment_status"`
	Notes         string      `json:"notes,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Transaction is an immutable, append-only ledger entry. The wallet balance
// is the running sum of amounts signed by type.
type Transaction struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	OrderID     *string   `db:"order_id" json:"order_id,omitempty"`
	Type        string    `db:"type" json:"type"`
	Amount      int64     `db:"amount" json:"amount"`
	Description string    `db:"description" json:"description"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// SignedAmount returns the amount with the sign implied by the type.
func (t *Transaction) SignedAmount() int64 {
	switch t.Type {
	case TxTypeCredit, TxTypeDeposit:
		return t.Amount
	default:
		return -t.Amount
	}
}

// Review is a 1-5 rating left on a completed order, one per direction.
type Review struct {
	ID         string    `db:"id" json:"id"`
	OrderID    string    `db:"order_id" json:"order_id"`
	ReviewerID string    `db:"reviewer_id" json:"reviewer_id"`
	RevieweeID string    `db:"reviewee_id" json:"reviewee_id"`
	Rating     int       `db:"rating" json:"rating"`
	Comment    string    `db:"comment" json:"comment"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Notification is a side-effect record, never a source of truth for business
// state. DeliveredAt is the outbox marker stamped by the dispatcher.
type Notification struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	Title       string     `db:"title" json:"title"`
	Message     string     `db:"message" json:"message"`
	Type        string     `db:"type" json:"type"`
	RelatedID   string     `db:"related_id" json:"related_id,omitempty"`
	IsRead      bool       `db:"is_read" json:"is_read"`
	DeliveredAt *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Chat is a conversation between two users, optionally tied to an order,
// gig or service.
type Chat struct {
	ID            string     `json:"id"`
	OrderID       *string    `json:"order_id,omitempty"`
	GigID         *string    `json:"gig_id,omitempty"`
	ServiceID     *string    `json:"service_id,omitempty"`
	Participants  []string   `json:"participants"`
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// HasParticipant reports whether userID is part of the chat.
func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Message is a single chat message.
type Message struct {
	ID            string    `db:"id" json:"id"`
	ChatID        string    `db:"chat_id" json:"chat_id"`
	SenderID      string    `db:"sender_id" json:"sender_id"`
	Content       string    `db:"content" json:"content"`
	AttachmentURL string    `db:"attachment_url" json:"attachment_url,omitempty"`
	IsRead        bool      `db:"is_read" json:"is_read"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// UserStats is the dashboard aggregate for one user.
type UserStats struct {
	CompletedOrders int     `json:"completed_orders"`
	TotalEarnings   int64   `json:"total_earnings"`
	AverageRating   float64 `json:"average_rating"`
	ActiveGigs      int     `json:"active_gigs"`
}

// User roles
const (
	RoleStudent   = "student"
	RoleProvider  = "provider"
	RoleAssistant = "assistant"
)

// KYC statuses
const (
	KYCStatusPending  = "pending"
	KYCStatusApproved = "approved"
	KYCStatusRejected = "rejected"
)

// Gig statuses
const (
	GigStatusOpen       = "open"
	GigStatusInProgress = "in_progress"
	GigStatusCompleted  = "completed"
	GigStatusCancelled  = "cancelled"
)

// Bid statuses
const (
	BidStatusPending  = "pending"
	BidStatusAccepted = "accepted"
	BidStatusRejected = "rejected"
)

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusInProgress = "in_progress"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// Payment statuses
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// Transaction types. Credit and deposit add to the balance, debit and
// withdrawal subtract.
const (
	TxTypeCredit     = "credit"
	TxTypeDebit      = "debit"
	TxTypeDeposit    = "deposit"
	TxTypeWithdrawal = "withdrawal"
)

// Transaction statuses
const (
	TxStatusCompleted = "completed"
)

// Price types
const (
	PriceTypeFixed  = "fixed"
	PriceTypeHourly = "hourly"
)

// Notification types
const (
	NotifTypeBidReceived  = "bid_received"
	NotifTypeBidAccepted  = "bid_accepted"
	NotifTypeBidRejected  = "bid_rejected"
	NotifTypeBooking      = "booking"
	NotifTypeOrderUpdate  = "order_update"
	NotifTypePayment      = "payment"
	NotifTypeReview       = "review"
	NotifTypeKYCSubmitted = "kyc_submitted"
)

// IsGigTransitionAllowed reports whether a gig status transition is legal.
// completed and cancelled are terminal.
func IsGigTransitionAllowed(from, to string) bool {
	switch from {
	case GigStatusOpen:
		return to == GigStatusInProgress || to == GigStatusCancelled
	case GigStatusInProgress:
		return to == GigStatusCompleted || to == GigStatusCancelled
	default:
		return false
	}
}

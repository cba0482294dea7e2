package models

import "time"

// Event types carried on the notification topic.
const (
	EventTypeNotification = "NOTIFICATION"
	EventTypeBidPlaced    = "BID_PLACED"
	EventTypeBidAccepted  = "BID_ACCEPTED"
	EventTypeOrderPaid    = "ORDER_PAID"
	EventTypeOrderClosed  = "ORDER_CLOSED"
)

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// NotificationEvent is the wire form of an outbox row, consumed by delivery
// transports (push, websocket, mail) outside this service.
type NotificationEvent struct {
	BaseEvent
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	Type           string `json:"type"`
	RelatedID      string `json:"related_id,omitempty"`
}

// BidPlacedEvent is published after a bid lands on a gig.
type BidPlacedEvent struct {
	BaseEvent
	GigID    string `json:"gig_id"`
	BidID    string `json:"bid_id"`
	BidderID string `json:"bidder_id"`
	Amount   int64  `json:"amount"`
}

// BidAcceptedEvent is published after the atomic accept commits.
type BidAcceptedEvent struct {
	BaseEvent
	GigID        string   `json:"gig_id"`
	BidID        string   `json:"bid_id"`
	OrderID      string   `json:"order_id"`
	RejectedBids []string `json:"rejected_bids,omitempty"`
}

// OrderPaidEvent is published after a successful double-entry payment.
type OrderPaidEvent struct {
	BaseEvent
	OrderID    string `json:"order_id"`
	ClientID   string `json:"client_id"`
	ProviderID string `json:"provider_id"`
	Amount     int64  `json:"amount"`
}

// OrderClosedEvent is published when an order reaches a terminal state,
// completed or cancelled.
type OrderClosedEvent struct {
	BaseEvent
	OrderID       string `json:"order_id"`
	ClientID      string `json:"client_id"`
	ProviderID    string `json:"provider_id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
}

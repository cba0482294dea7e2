package models

import "fmt"

// Canonical notification copy. Store implementations append these inside the
// business transaction so the outbox is consistent with the state change that
// caused it; the dispatcher delivers them afterwards.

func BidReceivedNotification(clientID, gigTitle, bidID string, amount int64) *Notification {
	return &Notification{
		UserID:    clientID,
		Title:     "New Bid Received",
		Message:   fmt.Sprintf("Someone placed a bid of %d on your gig %q", amount, gigTitle),
		Type:      NotifTypeBidReceived,
		RelatedID: bidID,
	}
}

func BidAcceptedNotification(bidderID, gigTitle, orderID string) *Notification {
	return &Notification{
		UserID:    bidderID,
		Title:     "Bid Accepted",
		Message:   fmt.Sprintf("Your bid on %q was accepted. An order has been created.", gigTitle),
		Type:      NotifTypeBidAccepted,
		RelatedID: orderID,
	}
}

func BidRejectedNotification(bidderID, gigTitle, bidID string) *Notification {
	return &Notification{
		UserID:    bidderID,
		Title:     "Bid Not Selected",
		Message:   fmt.Sprintf("Your bid on %q was not selected.", gigTitle),
		Type:      NotifTypeBidRejected,
		RelatedID: bidID,
	}
}

func BookingNotification(providerID, serviceTitle, orderID string, amount int64) *Notification {
	return &Notification{
		UserID:    providerID,
		Title:     "New Service Booking",
		Message:   fmt.Sprintf("Your service %q has been booked for %d", serviceTitle, amount),
		Type:      NotifTypeBooking,
		RelatedID: orderID,
	}
}

func OrderPaidNotification(providerID, orderID string, amount int64) *Notification {
	return &Notification{
		UserID:    providerID,
		Title:     "Payment Received",
		Message:   fmt.Sprintf("You received a payment of %d for an order.", amount),
		Type:      NotifTypePayment,
		RelatedID: orderID,
	}
}

func OrderCompletedNotification(userID, orderID string) *Notification {
	return &Notification{
		UserID:    userID,
		Title:     "Order Completed",
		Message:   "An order you are part of has been marked completed.",
		Type:      NotifTypeOrderUpdate,
		RelatedID: orderID,
	}
}

func OrderCancelledNotification(userID, orderID string) *Notification {
	return &Notification{
		UserID:    userID,
		Title:     "Order Cancelled",
		Message:   "An order you are part of has been cancelled.",
		Type:      NotifTypeOrderUpdate,
		RelatedID: orderID,
	}
}

func ReviewReceivedNotification(revieweeID, orderID string, rating int) *Notification {
	return &Notification{
		UserID:    revieweeID,
		Title:     "New Review",
		Message:   fmt.Sprintf("You received a %d-star review.", rating),
		Type:      NotifTypeReview,
		RelatedID: orderID,
	}
}

func KYCSubmittedNotification(userID string) *Notification {
	return &Notification{
		UserID:  userID,
		Title:   "KYC Documents Submitted",
		Message: "Your KYC documents have been submitted for review. We will notify you once approved.",
		Type:    NotifTypeKYCSubmitted,
	}
}

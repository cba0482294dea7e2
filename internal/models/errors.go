package models

// ErrorKind classifies business-rule failures so the HTTP layer can map them
// to a status code without inspecting individual codes.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindStateConflict ErrorKind = "state_conflict"
	KindResource      ErrorKind = "resource"
	KindNotFound      ErrorKind = "not_found"
)

// Error is a typed business-rule failure. All domain errors are declared as
// package-level sentinels and checked with errors.Is.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	// Validation
	ErrInvalidAmount = newError(KindValidation, "InvalidAmount", "amount must be greater than zero")
	ErrInvalidRating = newError(KindValidation, "InvalidRating", "rating must be an integer between 1 and 5")
	ErrInvalidSource = newError(KindValidation, "InvalidSource", "order must have exactly one lineage")

	// Authorization
	ErrUnauthorized = newError(KindAuthorization, "Unauthorized", "actor lacks rights over the target entity")
	ErrSelfBid      = newError(KindAuthorization, "SelfBid", "cannot bid on your own gig")
	ErrSelfBooking  = newError(KindAuthorization, "SelfBooking", "cannot book your own service")

	// State conflicts
	ErrGigNotOpen          = newError(KindStateConflict, "GigNotOpen", "gig is not open")
	ErrGigNotEditable      = newError(KindStateConflict, "GigNotEditable", "budget, deadline and category are frozen once a gig leaves open status")
	ErrBidNotPending       = newError(KindStateConflict, "BidNotPending", "bid is not pending")
	ErrServiceInactive     = newError(KindStateConflict, "ServiceInactive", "service is not active")
	ErrOrderNotCompleted   = newError(KindStateConflict, "OrderNotCompleted", "order is not completed")
	ErrOrderNotActive      = newError(KindStateConflict, "OrderNotActive", "order is not in a completable state")
	ErrOrderNotCancellable = newError(KindStateConflict, "OrderNotCancellable", "order cannot be cancelled at this stage")
	ErrPaymentNotPending   = newError(KindStateConflict, "PaymentNotPending", "order payment is not pending")
	ErrDuplicateReview     = newError(KindStateConflict, "DuplicateReview", "order already reviewed by this user")

	// Resources
	ErrInsufficientBalance = newError(KindResource, "InsufficientBalance", "wallet balance is insufficient")

	// Lookups
	ErrUserNotFound         = newError(KindNotFound, "UserNotFound", "user not found")
	ErrServiceNotFound      = newError(KindNotFound, "ServiceNotFound", "service not found")
	ErrGigNotFound          = newError(KindNotFound, "GigNotFound", "gig not found")
	ErrBidNotFound          = newError(KindNotFound, "BidNotFound", "bid not found")
	ErrOrderNotFound        = newError(KindNotFound, "OrderNotFound", "order not found")
	ErrTransactionNotFound  = newError(KindNotFound, "TransactionNotFound", "transaction not found")
	ErrChatNotFound         = newError(KindNotFound, "ChatNotFound", "chat not found")
	ErrNotificationNotFound = newError(KindNotFound, "NotificationNotFound", "notification not found")
)

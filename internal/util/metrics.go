package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BidsPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bids_placed_total",
		Help: "Total number of bids placed",
	})

	BidsAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bids_accepted_total",
		Help: "Total number of bids accepted",
	})

	BidsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bids_rejected_total",
		Help: "Total number of sibling bids auto-rejected on acceptance",
	})

	OrdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	}, []string{"source"})

	OrdersCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_completed_total",
		Help: "Total number of orders completed",
	})

	OrdersPaidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_paid_total",
		Help: "Total number of orders successfully paid",
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	WalletTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_transactions_total",
		Help: "Total number of ledger transactions recorded",
	}, []string{"type"})

	WithdrawalsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "withdrawals_rejected_total",
		Help: "Total number of withdrawals rejected for insufficient balance",
	})

	BalanceReconciliationDrift = promauto.NewCounter(prometheus.CounterOpts{
		Name: "balance_reconciliation_drift_total",
		Help: "Times a balance verify found the cached balance diverged from the ledger",
	})

	ReviewsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reviews_submitted_total",
		Help: "Total number of reviews submitted",
	})

	NotificationsDispatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_dispatched_total",
		Help: "Total number of outbox notifications published",
	})

	NotificationDispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notification_dispatch_failures_total",
		Help: "Total number of failed notification publishes",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)

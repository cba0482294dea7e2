package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"campusmarket/internal/auth"
	"campusmarket/internal/blob"
	"campusmarket/internal/models"
	"campusmarket/internal/service"
	"campusmarket/internal/store"
	"campusmarket/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const actorKey = "actor_id"

// Handler contains HTTP handlers
type Handler struct {
	users         *service.UserService
	ledger        *service.LedgerService
	catalog       *service.CatalogService
	bidding       *service.BiddingService
	orders        *service.OrderService
	notifications *service.NotificationService
	chats         *service.ChatService
	store         store.Store
	authProvider  auth.Provider
	uploads       *blob.DiskStore
}

// NewHandler creates a new HTTP handler
func NewHandler(
	users *service.UserService,
	ledger *service.LedgerService,
	catalog *service.CatalogService,
	bidding *service.BiddingService,
	orders *service.OrderService,
	notifications *service.NotificationService,
	chats *service.ChatService,
	st store.Store,
	authProvider auth.Provider,
	uploads *blob.DiskStore,
) *Handler {
	return &Handler{
		users:         users,
		ledger:        ledger,
		catalog:       catalog,
		bidding:       bidding,
		orders:        orders,
		notifications: notifications,
		chats:         chats,
		store:         st,
		authProvider:  authProvider,
		uploads:       uploads,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if h.uploads != nil {
		router.Static("/uploads", h.uploads.Dir())
	}

	v1 := router.Group("/api/v1")

	v1.POST("/users", h.register)

	authed := v1.Group("")
	authed.Use(h.authMiddleware())
	{
		authed.GET("/users/:id", h.getUser)
		authed.GET("/users/:id/stats", h.getUserStats)
		authed.GET("/users/:id/reviews", h.listReviews)
		authed.GET("/me", h.getMe)
		authed.PUT("/me", h.updateProfile)
		authed.POST("/me/kyc", h.submitKYC)
		authed.GET("/me/kyc", h.getKYCStatus)
		authed.GET("/me/services", h.listMyServices)
		authed.GET("/me/gigs", h.listMyGigs)
		authed.GET("/me/bids", h.listMyBids)

		authed.GET("/wallet", h.getBalance)
		authed.POST("/wallet/deposit", h.deposit)
		authed.POST("/wallet/withdraw", h.withdraw)
		authed.GET("/wallet/transactions", h.listTransactions)
		authed.GET("/wallet/verify", h.verifyBalance)

		authed.POST("/services", h.createService)
		authed.GET("/services", h.listServices)
		authed.GET("/services/:id", h.getService)
		authed.PUT("/services/:id", h.updateService)
		authed.DELETE("/services/:id", h.deleteService)

		authed.POST("/gigs", h.createGig)
		authed.GET("/gigs", h.listGigs)
		authed.GET("/gigs/:id", h.getGig)
		authed.PUT("/gigs/:id", h.updateGig)
		authed.DELETE("/gigs/:id", h.deleteGig)
		authed.POST("/gigs/:id/bids", h.placeBid)
		authed.GET("/gigs/:id/bids", h.listGigBids)

		authed.PUT("/bids/:id", h.editBid)
		authed.DELETE("/bids/:id", h.withdrawBid)
		authed.POST("/bids/:id/accept", h.acceptBid)

		authed.POST("/orders", h.bookService)
		authed.GET("/orders", h.listOrders)
		authed.GET("/orders/:id", h.getOrder)
		authed.POST("/orders/:id/complete", h.completeOrder)
		authed.POST("/orders/:id/pay", h.payOrder)
		authed.POST("/orders/:id/cancel", h.cancelOrder)
		authed.POST("/orders/:id/reviews", h.submitReview)

		authed.GET("/notifications", h.listNotifications)
		authed.POST("/notifications/:id/read", h.markNotificationRead)
		authed.POST("/notifications/read-all", h.markAllNotificationsRead)

		authed.POST("/chats", h.startChat)
		authed.GET("/chats", h.listChats)
		authed.GET("/chats/:id/messages", h.listMessages)
		authed.POST("/chats/:id/messages", h.sendMessage)

		authed.POST("/uploads", h.upload)
	}
}

func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := h.authProvider.Resolve(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing or invalid identity",
			})
			return
		}
		c.Set(actorKey, userID)
		c.Next()
	}
}

func actor(c *gin.Context) string {
	return c.GetString(actorKey)
}

// writeError maps domain error kinds onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	var domainErr *models.Error
	if errors.As(err, &domainErr) {
		status := http.StatusInternalServerError
		switch domainErr.Kind {
		case models.KindValidation:
			status = http.StatusBadRequest
		case models.KindAuthorization:
			status = http.StatusForbidden
		case models.KindStateConflict, models.KindResource:
			status = http.StatusConflict
		case models.KindNotFound:
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error": domainErr.Message,
			"code":  domainErr.Code,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error",
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck verifies the store is reachable
func (h *Handler) readinessCheck(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

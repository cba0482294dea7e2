package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"campusmarket/internal/auth"
	"campusmarket/internal/models"
	"campusmarket/internal/service"
	"campusmarket/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *store.Memory) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := store.NewMemory()
	h := NewHandler(
		service.NewUserService(m),
		service.NewLedgerService(m, nil),
		service.NewCatalogService(m),
		service.NewBiddingService(m, nil),
		service.NewOrderService(m, nil),
		service.NewNotificationService(m),
		service.NewChatService(m),
		m,
		auth.NewHeaderProvider(),
		nil,
	)
	router := gin.New()
	h.SetupRoutes(router)
	return router, m
}

func doJSON(t *testing.T, router *gin.Engine, method, path, asUser string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if asUser != "" {
		req.Header.Set("X-User-ID", asUser)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func seedTestUser(t *testing.T, m *store.Memory, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, FirstName: "Test", LastName: "User", Role: models.RoleStudent}
	require.NoError(t, m.CreateUser(context.Background(), u))
	return u
}

func TestAuthRequired(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/wallet", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterAndFetchUser(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/users", "", map[string]interface{}{
		"email":      "jane@campus.edu",
		"first_name": "Jane",
		"last_name":  "Doe",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "jane@campus.edu", created.Email)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/users/"+created.ID, created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/users/nope", created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/users", "", map[string]interface{}{
		"email": "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWalletEndpoints(t *testing.T) {
	router, m := newTestRouter(t)
	u := seedTestUser(t, m, "w@campus.edu")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/wallet/deposit", u.ID, map[string]interface{}{
		"amount": 1000,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var tx models.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	assert.Equal(t, models.TxTypeDeposit, tx.Type)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/wallet/withdraw", u.ID, map[string]interface{}{
		"amount": 5000,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "InsufficientBalance", body["code"])

	rec = doJSON(t, router, http.MethodPost, "/api/v1/wallet/withdraw", u.ID, map[string]interface{}{
		"amount": 400,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/wallet", u.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var wallet map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wallet))
	assert.Equal(t, int64(600), wallet["balance"])
}

func TestErrorStatusMapping(t *testing.T) {
	router, m := newTestRouter(t)
	provider := seedTestUser(t, m, "p@campus.edu")
	client := seedTestUser(t, m, "c@campus.edu")
	stranger := seedTestUser(t, m, "s@campus.edu")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/services", provider.ID, map[string]interface{}{
		"title":    "Essay proofreading",
		"category": "tutoring",
		"price":    300,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var svc models.Service
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &svc))

	// Booking your own service is forbidden.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/orders", provider.ID, map[string]interface{}{
		"service_id": svc.ID,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/orders", client.ID, map[string]interface{}{
		"service_id": svc.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))

	// A third party cannot see or act on the order.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/orders/"+order.ID, stranger.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Paying without funds conflicts.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/orders/%s/pay", order.ID), client.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/orders/missing", client.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBidAcceptFlow(t *testing.T) {
	router, m := newTestRouter(t)
	client := seedTestUser(t, m, "c@campus.edu")
	bidder := seedTestUser(t, m, "b@campus.edu")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/gigs", client.ID, map[string]interface{}{
		"title":    "Design a club poster",
		"category": "design",
		"deadline": "2026-12-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var gig models.Gig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gig))

	// The poster cannot bid on their own gig.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/gigs/%s/bids", gig.ID), client.ID, map[string]interface{}{
		"amount": 800,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/gigs/%s/bids", gig.ID), bidder.ID, map[string]interface{}{
		"amount": 900,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var withdrawn models.Bid
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &withdrawn))
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/bids/"+withdrawn.ID, bidder.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/gigs/%s/bids", gig.ID), bidder.ID, map[string]interface{}{
		"amount": 800,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var bid models.Bid
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bid))

	// Only the gig owner can accept.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/bids/%s/accept", bid.ID), bidder.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/bids/%s/accept", bid.ID), client.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Order models.Order `json:"order"`
		Gig   models.Gig   `json:"gig"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, models.GigStatusInProgress, result.Gig.Status)
	assert.Equal(t, models.SourceGigBid, result.Order.Source.Kind)

	// Accepting again conflicts.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/bids/%s/accept", bid.ID), client.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

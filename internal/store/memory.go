package store

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"campusmarket/internal/models"

	"github.com/google/uuid"
)

// Memory is a thread-safe in-memory Store. It backs the test suite and the
// STORE_DRIVER=memory development mode. A single mutex spans each semantic
// operation, which gives the same atomicity the Postgres implementation gets
// from row-locked transactions.
type Memory struct {
	mu            sync.Mutex
	users         map[string]*models.User
	emailIndex    map[string]string
	services      map[string]*models.Service
	gigs          map[string]*models.Gig
	bids          map[string]*models.Bid
	orders        map[string]*models.Order
	transactions  map[string]*models.Transaction
	reviews       map[string]*models.Review
	notifications map[string]*models.Notification
	chats         map[string]*models.Chat
	messages      map[string]*models.Message
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:         make(map[string]*models.User),
		emailIndex:    make(map[string]string),
		services:      make(map[string]*models.Service),
		gigs:          make(map[string]*models.Gig),
		bids:          make(map[string]*models.Bid),
		orders:        make(map[string]*models.Order),
		transactions:  make(map[string]*models.Transaction),
		reviews:       make(map[string]*models.Review),
		notifications: make(map[string]*models.Notification),
		chats:         make(map[string]*models.Chat),
		messages:      make(map[string]*models.Message),
	}
}

func (m *Memory) Ping(ctx context.Context) error { return nil }
func (m *Memory) Close() error                   { return nil }

func newID() string { return uuid.New().String() }

// --- Users ---

func (m *Memory) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = newID()
	}
	if u.KYCStatus == "" {
		u.KYCStatus = models.KYCStatusPending
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	m.users[u.ID] = &cp
	if u.Email != "" {
		m.emailIndex[u.Email] = u.ID
	}
	return nil
}

func (m *Memory) getUserLocked(id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return u, nil
}

func (m *Memory) GetUser(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.getUserLocked(id)
	if err != nil {
		return nil, err
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.emailIndex[email]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *Memory) UpdateUserProfile(ctx context.Context, id string, upd UserProfileUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.getUserLocked(id)
	if err != nil {
		return nil, err
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.ProfileImageURL != nil {
		u.ProfileImageURL = *upd.ProfileImageURL
	}
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (m *Memory) SubmitKYC(ctx context.Context, id, ninImageURL, selfieImageURL string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.getUserLocked(id)
	if err != nil {
		return nil, err
	}
	u.NINImageURL = ninImageURL
	u.SelfieImageURL = selfieImageURL
	u.KYCStatus = models.KYCStatusPending
	u.UpdatedAt = time.Now()
	m.appendNotificationLocked(models.KYCSubmittedNotification(id))
	cp := *u
	return &cp, nil
}

func (m *Memory) GetUserStats(ctx context.Context, id string) (*models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.getUserLocked(id)
	if err != nil {
		return nil, err
	}
	active := 0
	for _, g := range m.gigs {
		if g.ClientID == id && g.Status == models.GigStatusOpen {
			active++
		}
	}
	return &models.UserStats{
		CompletedOrders: u.CompletedOrders,
		TotalEarnings:   u.TotalEarnings,
		AverageRating:   u.Rating,
		ActiveGigs:      active,
	}, nil
}

// --- Ledger ---

// applyTransactionLocked appends the ledger row and updates the cached
// balance projection in the same critical section.
func (m *Memory) applyTransactionLocked(tx *models.Transaction) error {
	u, err := m.getUserLocked(tx.UserID)
	if err != nil {
		return err
	}
	if tx.ID == "" {
		tx.ID = newID()
	}
	if tx.Status == "" {
		tx.Status = models.TxStatusCompleted
	}
	tx.CreatedAt = time.Now()
	cp := *tx
	m.transactions[tx.ID] = &cp
	u.WalletBalance += tx.SignedAmount()
	if tx.Type == models.TxTypeCredit {
		u.TotalEarnings += tx.Amount
	}
	u.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) RecordTransaction(ctx context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyTransactionLocked(tx)
}

func (m *Memory) Withdraw(ctx context.Context, userID string, amount int64, description string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.getUserLocked(userID)
	if err != nil {
		return nil, err
	}
	if u.WalletBalance < amount {
		return nil, models.ErrInsufficientBalance
	}
	tx := &models.Transaction{
		UserID:      userID,
		Type:        models.TxTypeWithdrawal,
		Amount:      amount,
		Description: description,
	}
	if err := m.applyTransactionLocked(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (m *Memory) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[id]
	if !ok {
		return nil, models.ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

func (m *Memory) ListTransactionsByUser(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, tx := range m.transactions {
		if tx.UserID == userID {
			out = append(out, *tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) SumTransactions(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, tx := range m.transactions {
		if tx.UserID == userID {
			sum += tx.SignedAmount()
		}
	}
	return sum, nil
}

// --- Services ---

func (m *Memory) CreateService(ctx context.Context, s *models.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = newID()
	}
	now := time.Now()
	s.CreatedAt, s.UpdatedAt = now, now
	cp := *s
	m.services[s.ID] = &cp
	return nil
}

func (m *Memory) GetService(ctx context.Context, id string) (*models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return nil, models.ErrServiceNotFound
	}
	cp := *s
	return &cp, nil
}

func matchesSearch(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func (m *Memory) ListServices(ctx context.Context, f ServiceFilter) ([]models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Service
	for _, s := range m.services {
		if !s.IsActive {
			continue
		}
		if f.Category != "" && s.Category != f.Category {
			continue
		}
		if !matchesSearch(f.Search, s.Title, s.Description) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) UpdateService(ctx context.Context, id string, upd ServiceUpdate) (*models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return nil, models.ErrServiceNotFound
	}
	if upd.Title != nil {
		s.Title = *upd.Title
	}
	if upd.Description != nil {
		s.Description = *upd.Description
	}
	if upd.Category != nil {
		s.Category = *upd.Category
	}
	if upd.Price != nil {
		s.Price = *upd.Price
	}
	if upd.PriceType != nil {
		s.PriceType = *upd.PriceType
	}
	if upd.IsActive != nil {
		s.IsActive = *upd.IsActive
	}
	if upd.ImageURL != nil {
		s.ImageURL = *upd.ImageURL
	}
	s.UpdatedAt = time.Now()
	cp := *s
	return &cp, nil
}

func (m *Memory) DeleteService(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.services[id]; !ok {
		return models.ErrServiceNotFound
	}
	delete(m.services, id)
	return nil
}

func (m *Memory) ListServicesByProvider(ctx context.Context, providerID string) ([]models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Service
	for _, s := range m.services {
		if s.ProviderID == providerID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- Gigs ---

func (m *Memory) CreateGig(ctx context.Context, g *models.Gig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.ID == "" {
		g.ID = newID()
	}
	if g.Status == "" {
		g.Status = models.GigStatusOpen
	}
	now := time.Now()
	g.CreatedAt, g.UpdatedAt = now, now
	cp := *g
	m.gigs[g.ID] = &cp
	return nil
}

func (m *Memory) getGigLocked(id string) (*models.Gig, error) {
	g, ok := m.gigs[id]
	if !ok {
		return nil, models.ErrGigNotFound
	}
	return g, nil
}

func (m *Memory) GetGig(ctx context.Context, id string) (*models.Gig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.getGigLocked(id)
	if err != nil {
		return nil, err
	}
	cp := *g
	return &cp, nil
}

func (m *Memory) ListGigs(ctx context.Context, f GigFilter) ([]models.Gig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Gig
	for _, g := range m.gigs {
		if f.Category != "" && g.Category != f.Category {
			continue
		}
		if f.Status != "" && g.Status != f.Status {
			continue
		}
		if !matchesSearch(f.Search, g.Title, g.Description) {
			continue
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) UpdateGig(ctx context.Context, id string, upd GigUpdate) (*models.Gig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.getGigLocked(id)
	if err != nil {
		return nil, err
	}
	if g.Status != models.GigStatusOpen && upd.Frozen() {
		return nil, models.ErrGigNotEditable
	}
	if upd.Title != nil {
		g.Title = *upd.Title
	}
	if upd.Description != nil {
		g.Description = *upd.Description
	}
	if upd.Category != nil {
		g.Category = *upd.Category
	}
	if upd.Budget != nil {
		g.Budget = *upd.Budget
	}
	if upd.Deadline != nil {
		g.Deadline = *upd.Deadline
	}
	if upd.ImageURL != nil {
		g.ImageURL = *upd.ImageURL
	}
	g.UpdatedAt = time.Now()
	cp := *g
	return &cp, nil
}

func (m *Memory) DeleteGig(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gigs[id]; !ok {
		return models.ErrGigNotFound
	}
	// Bids go first so nothing dangles.
	for bidID, b := range m.bids {
		if b.GigID == id {
			delete(m.bids, bidID)
		}
	}
	delete(m.gigs, id)
	return nil
}

func (m *Memory) ListGigsByClient(ctx context.Context, clientID string) ([]models.Gig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Gig
	for _, g := range m.gigs {
		if g.ClientID == clientID {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- Bids ---

func (m *Memory) PlaceBid(ctx context.Context, b *models.Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.getGigLocked(b.GigID)
	if err != nil {
		return err
	}
	if g.Status != models.GigStatusOpen {
		return models.ErrGigNotOpen
	}
	if g.ClientID == b.BidderID {
		return models.ErrSelfBid
	}
	if b.ID == "" {
		b.ID = newID()
	}
	b.Status = models.BidStatusPending
	b.CreatedAt = time.Now()
	cp := *b
	m.bids[b.ID] = &cp
	g.BidCount++
	g.UpdatedAt = time.Now()
	m.appendNotificationLocked(models.BidReceivedNotification(g.ClientID, g.Title, b.ID, b.Amount))
	return nil
}

func (m *Memory) getBidLocked(id string) (*models.Bid, error) {
	b, ok := m.bids[id]
	if !ok {
		return nil, models.ErrBidNotFound
	}
	return b, nil
}

func (m *Memory) GetBid(ctx context.Context, id string) (*models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.getBidLocked(id)
	if err != nil {
		return nil, err
	}
	cp := *b
	return &cp, nil
}

func (m *Memory) ListBidsByGig(ctx context.Context, gigID string) ([]models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Bid
	for _, b := range m.bids {
		if b.GigID == gigID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListBidsByBidder(ctx context.Context, bidderID string) ([]models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Bid
	for _, b := range m.bids {
		if b.BidderID == bidderID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateBid(ctx context.Context, id string, upd BidUpdate) (*models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.getBidLocked(id)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BidStatusPending {
		return nil, models.ErrBidNotPending
	}
	if upd.Amount != nil {
		b.Amount = *upd.Amount
	}
	if upd.Message != nil {
		b.Message = *upd.Message
	}
	if upd.DeliveryTime != nil {
		b.DeliveryTime = *upd.DeliveryTime
	}
	cp := *b
	return &cp, nil
}

func (m *Memory) WithdrawBid(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.getBidLocked(id)
	if err != nil {
		return err
	}
	if b.Status != models.BidStatusPending {
		return models.ErrBidNotPending
	}
	delete(m.bids, id)
	if g, ok := m.gigs[b.GigID]; ok {
		g.BidCount--
		g.UpdatedAt = time.Now()
	}
	return nil
}

func (m *Memory) AcceptBid(ctx context.Context, bidID string) (*AcceptResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.getBidLocked(bidID)
	if err != nil {
		return nil, err
	}
	g, err := m.getGigLocked(b.GigID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BidStatusPending {
		return nil, models.ErrBidNotPending
	}
	if g.Status != models.GigStatusOpen {
		return nil, models.ErrGigNotOpen
	}

	now := time.Now()
	b.Status = models.BidStatusAccepted

	var rejected []models.Bid
	for _, sibling := range m.bids {
		if sibling.GigID == g.ID && sibling.ID != b.ID && sibling.Status == models.BidStatusPending {
			sibling.Status = models.BidStatusRejected
			rejected = append(rejected, *sibling)
		}
	}

	g.Status = models.GigStatusInProgress
	selected := b.ID
	g.SelectedBidID = &selected
	g.UpdatedAt = now

	order := &models.Order{
		ID:            newID(),
		Source:        models.GigBidSource(g.ID, b.ID),
		ClientID:      g.ClientID,
		ProviderID:    b.BidderID,
		Amount:        b.Amount,
		Status:        models.OrderStatusInProgress,
		PaymentStatus: models.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	cp := *order
	m.orders[order.ID] = &cp

	m.appendNotificationLocked(models.BidAcceptedNotification(b.BidderID, g.Title, order.ID))
	for _, r := range rejected {
		m.appendNotificationLocked(models.BidRejectedNotification(r.BidderID, g.Title, r.ID))
	}

	bidCopy, gigCopy := *b, *g
	return &AcceptResult{
		Bid:          &bidCopy,
		Gig:          &gigCopy,
		Order:        order,
		RejectedBids: rejected,
	}, nil
}

// --- Orders ---

func (m *Memory) CreateOrder(ctx context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.Source.Kind != models.SourceService {
		return models.ErrInvalidSource
	}
	s, ok := m.services[o.Source.ServiceID]
	if !ok {
		return models.ErrServiceNotFound
	}
	if !s.IsActive {
		return models.ErrServiceInactive
	}
	if s.ProviderID == o.ClientID {
		return models.ErrSelfBooking
	}
	if o.ID == "" {
		o.ID = newID()
	}
	o.ProviderID = s.ProviderID
	if o.Amount == 0 {
		o.Amount = s.Price
	}
	o.Status = models.OrderStatusPending
	o.PaymentStatus = models.PaymentStatusPending
	now := time.Now()
	o.CreatedAt, o.UpdatedAt = now, now
	cp := *o
	m.orders[o.ID] = &cp
	m.appendNotificationLocked(models.BookingNotification(s.ProviderID, s.Title, o.ID, o.Amount))
	return nil
}

func (m *Memory) getOrderLocked(id string) (*models.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	return o, nil
}

func (m *Memory) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, err := m.getOrderLocked(id)
	if err != nil {
		return nil, err
	}
	cp := *o
	return &cp, nil
}

func (m *Memory) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.ClientID == userID || o.ProviderID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CompleteOrder(ctx context.Context, orderID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, err := m.getOrderLocked(orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != models.OrderStatusPending && o.Status != models.OrderStatusInProgress {
		return nil, models.ErrOrderNotActive
	}
	o.Status = models.OrderStatusCompleted
	o.UpdatedAt = time.Now()
	if o.Source.Kind == models.SourceGigBid {
		if g, ok := m.gigs[o.Source.GigID]; ok && models.IsGigTransitionAllowed(g.Status, models.GigStatusCompleted) {
			g.Status = models.GigStatusCompleted
			g.UpdatedAt = time.Now()
		}
	}
	if p, ok := m.users[o.ProviderID]; ok {
		p.CompletedOrders++
		p.UpdatedAt = time.Now()
	}
	m.appendNotificationLocked(models.OrderCompletedNotification(o.ClientID, o.ID))
	m.appendNotificationLocked(models.OrderCompletedNotification(o.ProviderID, o.ID))
	cp := *o
	return &cp, nil
}

func (m *Memory) PayOrder(ctx context.Context, orderID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, err := m.getOrderLocked(orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == models.OrderStatusCancelled {
		return nil, models.ErrOrderNotActive
	}
	if o.PaymentStatus != models.PaymentStatusPending {
		return nil, models.ErrPaymentNotPending
	}
	client, err := m.getUserLocked(o.ClientID)
	if err != nil {
		return nil, err
	}
	if client.WalletBalance < o.Amount {
		return nil, models.ErrInsufficientBalance
	}
	oid := o.ID
	debit := &models.Transaction{
		UserID:      o.ClientID,
		OrderID:     &oid,
		Type:        models.TxTypeDebit,
		Amount:      o.Amount,
		Description: "Order payment",
	}
	credit := &models.Transaction{
		UserID:      o.ProviderID,
		OrderID:     &oid,
		Type:        models.TxTypeCredit,
		Amount:      o.Amount,
		Description: "Order payout",
	}
	if err := m.applyTransactionLocked(debit); err != nil {
		return nil, err
	}
	if err := m.applyTransactionLocked(credit); err != nil {
		return nil, err
	}
	o.PaymentStatus = models.PaymentStatusPaid
	o.UpdatedAt = time.Now()
	m.appendNotificationLocked(models.OrderPaidNotification(o.ProviderID, o.ID, o.Amount))
	cp := *o
	return &cp, nil
}

func (m *Memory) CancelOrder(ctx context.Context, orderID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, err := m.getOrderLocked(orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != models.OrderStatusPending && o.Status != models.OrderStatusInProgress {
		return nil, models.ErrOrderNotCancellable
	}
	if o.PaymentStatus == models.PaymentStatusPaid {
		oid := o.ID
		refund := &models.Transaction{
			UserID:      o.ClientID,
			OrderID:     &oid,
			Type:        models.TxTypeCredit,
			Amount:      o.Amount,
			Description: "Order refund",
		}
		reversal := &models.Transaction{
			UserID:      o.ProviderID,
			OrderID:     &oid,
			Type:        models.TxTypeDebit,
			Amount:      o.Amount,
			Description: "Order payout reversal",
		}
		if err := m.applyTransactionLocked(refund); err != nil {
			return nil, err
		}
		if err := m.applyTransactionLocked(reversal); err != nil {
			return nil, err
		}
		// The refund credit is not an earning; undo both adjustments.
		if c, ok := m.users[o.ClientID]; ok {
			c.TotalEarnings -= o.Amount
		}
		if p, ok := m.users[o.ProviderID]; ok {
			p.TotalEarnings -= o.Amount
		}
		o.PaymentStatus = models.PaymentStatusRefunded
	}
	o.Status = models.OrderStatusCancelled
	o.UpdatedAt = time.Now()
	if o.Source.Kind == models.SourceGigBid {
		if g, ok := m.gigs[o.Source.GigID]; ok && models.IsGigTransitionAllowed(g.Status, models.GigStatusCancelled) {
			g.Status = models.GigStatusCancelled
			g.UpdatedAt = time.Now()
		}
	}
	m.appendNotificationLocked(models.OrderCancelledNotification(o.ClientID, o.ID))
	m.appendNotificationLocked(models.OrderCancelledNotification(o.ProviderID, o.ID))
	cp := *o
	return &cp, nil
}

// --- Reviews ---

func (m *Memory) SubmitReview(ctx context.Context, r *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, err := m.getOrderLocked(r.OrderID)
	if err != nil {
		return err
	}
	if o.Status != models.OrderStatusCompleted {
		return models.ErrOrderNotCompleted
	}
	for _, existing := range m.reviews {
		if existing.OrderID == r.OrderID && existing.ReviewerID == r.ReviewerID {
			return models.ErrDuplicateReview
		}
	}
	if r.ReviewerID == o.ClientID {
		r.RevieweeID = o.ProviderID
	} else {
		r.RevieweeID = o.ClientID
	}
	if r.ID == "" {
		r.ID = newID()
	}
	r.CreatedAt = time.Now()
	cp := *r
	m.reviews[r.ID] = &cp

	// Recompute the reviewee aggregate as the rounded mean of all received
	// ratings, inside the same atomic unit as the insert.
	var sum, count int
	for _, rv := range m.reviews {
		if rv.RevieweeID == r.RevieweeID {
			sum += rv.Rating
			count++
		}
	}
	mean := math.Round(float64(sum)/float64(count)*100) / 100
	if u, ok := m.users[r.RevieweeID]; ok {
		u.Rating = mean
		u.UpdatedAt = time.Now()
	}
	if o.Source.Kind == models.SourceService && r.RevieweeID == o.ProviderID {
		if s, ok := m.services[o.Source.ServiceID]; ok {
			s.Rating = mean
			s.ReviewCount++
			s.UpdatedAt = time.Now()
		}
	}
	m.appendNotificationLocked(models.ReviewReceivedNotification(r.RevieweeID, r.OrderID, r.Rating))
	return nil
}

func (m *Memory) ListReviewsByReviewee(ctx context.Context, revieweeID string) ([]models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Review
	for _, r := range m.reviews {
		if r.RevieweeID == revieweeID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- Notifications ---

func (m *Memory) appendNotificationLocked(n *models.Notification) {
	if n.ID == "" {
		n.ID = newID()
	}
	n.CreatedAt = time.Now()
	m.notifications[n.ID] = n
}

func (m *Memory) AppendNotification(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.appendNotificationLocked(&cp)
	n.ID = cp.ID
	n.CreatedAt = cp.CreatedAt
	return nil
}

func (m *Memory) ListNotificationsByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) MarkNotificationRead(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return models.ErrNotificationNotFound
	}
	n.IsRead = true
	return nil
}

func (m *Memory) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (m *Memory) ListUndeliveredNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if n.DeliveredAt == nil {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) MarkNotificationDelivered(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return models.ErrNotificationNotFound
	}
	now := time.Now()
	n.DeliveredAt = &now
	return nil
}

// --- Chats ---

func (m *Memory) CreateChat(ctx context.Context, c *models.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = newID()
	}
	c.CreatedAt = time.Now()
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	m.chats[c.ID] = &cp
	return nil
}

func (m *Memory) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[id]
	if !ok {
		return nil, models.ErrChatNotFound
	}
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	return &cp, nil
}

func (m *Memory) ListChatsByUser(ctx context.Context, userID string) ([]models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Chat
	for _, c := range m.chats {
		if c.HasParticipant(userID) {
			cp := *c
			cp.Participants = append([]string(nil), c.Participants...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].CreatedAt, out[j].CreatedAt
		if out[i].LastMessageAt != nil {
			ti = *out[i].LastMessageAt
		}
		if out[j].LastMessageAt != nil {
			tj = *out[j].LastMessageAt
		}
		return ti.After(tj)
	})
	return out, nil
}

func (m *Memory) ListMessagesByChat(ctx context.Context, chatID string) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for _, msg := range m.messages {
		if msg.ChatID == chatID {
			out = append(out, *msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CreateMessage(ctx context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[msg.ChatID]
	if !ok {
		return models.ErrChatNotFound
	}
	if msg.ID == "" {
		msg.ID = newID()
	}
	msg.CreatedAt = time.Now()
	cp := *msg
	m.messages[msg.ID] = &cp
	now := msg.CreatedAt
	c.LastMessage = msg.Content
	c.LastMessageAt = &now
	return nil
}

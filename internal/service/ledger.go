package service

import (
	"context"
	"fmt"
	"time"

	"campusmarket/internal/models"
	"campusmarket/internal/redisclient"
	"campusmarket/internal/store"
	"campusmarket/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTransactionID() string { return uuid.New().String() }

const idempotencyTTL = 24 * time.Hour

// LedgerService handles the wallet: an append-only transaction log with the
// user's balance kept as a cached projection of it.
type LedgerService struct {
	store  store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewLedgerService creates a new ledger service. redis may be nil, in which
// case idempotency keys are not enforced.
func NewLedgerService(st store.Store, redis *redisclient.Client) *LedgerService {
	return &LedgerService{
		store:  st,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// DepositRequest represents a wallet deposit
type DepositRequest struct {
	Amount         int64  `json:"amount" binding:"required"`
	Description    string `json:"description,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// WithdrawRequest represents a wallet withdrawal
type WithdrawRequest struct {
	Amount         int64  `json:"amount" binding:"required"`
	Description    string `json:"description,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// BalanceReport is the result of reconciling the cached balance against the
// transaction log.
type BalanceReport struct {
	UserID        string `json:"user_id"`
	CachedBalance int64  `json:"cached_balance"`
	LedgerBalance int64  `json:"ledger_balance"`
	Consistent    bool   `json:"consistent"`
}

// claimKey claims an idempotency key for a new transaction. It returns the
// prior transaction id if the key was already used.
func (s *LedgerService) claimKey(ctx context.Context, key, txID string) (string, error) {
	if s.redis == nil || key == "" {
		return "", nil
	}
	claimed, err := s.redis.ClaimIdempotencyKey(ctx, key, txID, idempotencyTTL)
	if err != nil {
		return "", fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if claimed {
		return "", nil
	}
	return s.redis.GetIdempotentTransaction(ctx, key)
}

func (s *LedgerService) releaseKey(ctx context.Context, key string) {
	if s.redis == nil || key == "" {
		return
	}
	if err := s.redis.ReleaseIdempotencyKey(ctx, key); err != nil {
		s.logger.Warn("Failed to release idempotency key", zap.Error(err))
	}
}

// Deposit credits the wallet.
func (s *LedgerService) Deposit(ctx context.Context, userID string, req *DepositRequest) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.Deposit")
	defer span.End()

	if req.Amount <= 0 {
		return nil, models.ErrInvalidAmount
	}

	tx := &models.Transaction{
		UserID:      userID,
		Type:        models.TxTypeDeposit,
		Amount:      req.Amount,
		Description: req.Description,
	}
	if tx.Description == "" {
		tx.Description = "Wallet deposit"
	}
	tx.ID = newTransactionID()

	if prior, err := s.claimKey(ctx, req.IdempotencyKey, tx.ID); err != nil {
		return nil, err
	} else if prior != "" {
		s.logger.Info("Duplicate deposit request",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.String("transaction_id", prior))
		return s.store.GetTransaction(ctx, prior)
	}

	if err := s.store.RecordTransaction(ctx, tx); err != nil {
		s.releaseKey(ctx, req.IdempotencyKey)
		return nil, err
	}

	util.WalletTransactionsTotal.WithLabelValues(models.TxTypeDeposit).Inc()
	s.logger.Info("Deposit recorded",
		zap.String("user_id", userID),
		zap.Int64("amount", req.Amount))
	return tx, nil
}

// Withdraw debits the wallet, rejecting anything that would take the balance
// negative.
func (s *LedgerService) Withdraw(ctx context.Context, userID string, req *WithdrawRequest) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.Withdraw")
	defer span.End()

	if req.Amount <= 0 {
		return nil, models.ErrInvalidAmount
	}

	description := req.Description
	if description == "" {
		description = "Wallet withdrawal"
	}

	reservedID := newTransactionID()
	if prior, err := s.claimKey(ctx, req.IdempotencyKey, reservedID); err != nil {
		return nil, err
	} else if prior != "" {
		s.logger.Info("Duplicate withdrawal request",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.String("transaction_id", prior))
		return s.store.GetTransaction(ctx, prior)
	}

	tx, err := s.store.Withdraw(ctx, userID, req.Amount, description)
	if err != nil {
		s.releaseKey(ctx, req.IdempotencyKey)
		if err == models.ErrInsufficientBalance {
			util.WithdrawalsRejectedTotal.Inc()
		}
		return nil, err
	}
	// The key was claimed before the transaction id existed; repoint it.
	if s.redis != nil && req.IdempotencyKey != "" && tx.ID != reservedID {
		s.releaseKey(ctx, req.IdempotencyKey)
		if _, err := s.redis.ClaimIdempotencyKey(ctx, req.IdempotencyKey, tx.ID, idempotencyTTL); err != nil {
			s.logger.Warn("Failed to repoint idempotency key", zap.Error(err))
		}
	}

	util.WalletTransactionsTotal.WithLabelValues(models.TxTypeWithdrawal).Inc()
	s.logger.Info("Withdrawal recorded",
		zap.String("user_id", userID),
		zap.Int64("amount", req.Amount))
	return tx, nil
}

// ListTransactions returns the user's ledger history, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	return s.store.ListTransactionsByUser(ctx, userID, limit)
}

// GetBalance returns the cached wallet balance.
func (s *LedgerService) GetBalance(ctx context.Context, userID string) (int64, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.WalletBalance, nil
}

// VerifyBalance recomputes the balance from the transaction log and compares
// it against the cached projection.
func (s *LedgerService) VerifyBalance(ctx context.Context, userID string) (*BalanceReport, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.VerifyBalance")
	defer span.End()

	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum, err := s.store.SumTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}

	report := &BalanceReport{
		UserID:        userID,
		CachedBalance: u.WalletBalance,
		LedgerBalance: sum,
		Consistent:    u.WalletBalance == sum,
	}
	if !report.Consistent {
		util.BalanceReconciliationDrift.Inc()
		s.logger.Error("Balance drift detected",
			zap.String("user_id", userID),
			zap.Int64("cached", report.CachedBalance),
			zap.Int64("ledger", report.LedgerBalance))
	}
	return report, nil
}

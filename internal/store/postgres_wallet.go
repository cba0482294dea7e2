package store

import (
	"context"
	"time"

	"campusmarket/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// insertTransactionTx appends the ledger row and folds its signed amount into
// the cached balance. The caller must already hold the user row lock.
func insertTransactionTx(ctx context.Context, tx *sqlx.Tx, t *models.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = models.TxStatusCompleted
	}
	t.CreatedAt = time.Now()

	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, order_id, type, amount, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.UserID, t.OrderID, t.Type, t.Amount, t.Description, t.Status, t.CreatedAt)
	if err != nil {
		return err
	}

	earnings := int64(0)
	if t.Type == models.TxTypeCredit {
		earnings = t.Amount
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE users SET
			wallet_balance = wallet_balance + $2,
			total_earnings = total_earnings + $3,
			updated_at     = NOW()
		WHERE id = $1`,
		t.UserID, t.SignedAmount(), earnings)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrUserNotFound
	}
	return err
}

func lockUserBalanceTx(ctx context.Context, tx *sqlx.Tx, userID string) (int64, error) {
	var balance int64
	err := tx.GetContext(ctx, &balance, `
		SELECT wallet_balance FROM users WHERE id = $1 FOR UPDATE`, userID)
	if err != nil {
		return 0, noRows(err, models.ErrUserNotFound)
	}
	return balance, nil
}

func (p *Postgres) RecordTransaction(ctx context.Context, t *models.Transaction) error {
	return p.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := lockUserBalanceTx(ctx, tx, t.UserID); err != nil {
			return err
		}
		return insertTransactionTx(ctx, tx, t)
	})
}

func (p *Postgres) Withdraw(ctx context.Context, userID string, amount int64, description string) (*models.Transaction, error) {
	t := &models.Transaction{
		UserID:      userID,
		Type:        models.TxTypeWithdrawal,
		Amount:      amount,
		Description: description,
	}
	err := p.withTx(ctx, func(tx *sqlx.Tx) error {
		balance, err := lockUserBalanceTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if balance < amount {
			return models.ErrInsufficientBalance
		}
		return insertTransactionTx(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (p *Postgres) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var t models.Transaction
	err := p.db.GetContext(ctx, &t, `SELECT * FROM transactions WHERE id = $1`, id)
	if err != nil {
		return nil, noRows(err, models.ErrTransactionNotFound)
	}
	return &t, nil
}

func (p *Postgres) ListTransactionsByUser(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	txs := []models.Transaction{}
	err := p.db.SelectContext(ctx, &txs, `
		SELECT * FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	return txs, err
}

func (p *Postgres) SumTransactions(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := p.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(CASE WHEN type IN ($2, $3) THEN amount ELSE -amount END), 0)
		FROM transactions WHERE user_id = $1`,
		userID, models.TxTypeCredit, models.TxTypeDeposit)
	return sum, err
}

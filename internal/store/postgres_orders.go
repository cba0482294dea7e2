package store

import (
	"context"
	"database/sql"
	"time"

	"campusmarket/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// orderRow is the flat DB shape of an order. The lineage union maps to a kind
// discriminator plus three nullable foreign keys, constrained by a CHECK so
// exactly one lineage is ever present.
type orderRow struct {
	ID            string         `db:"id"`
	SourceKind    string         `db:"source_kind"`
	ServiceID     sql.NullString `db:"service_id"`
	GigID         sql.NullString `db:"gig_id"`
	BidID         sql.NullString `db:"bid_id"`
	ClientID      string         `db:"client_id"`
	ProviderID    string         `db:"provider_id"`
	Amount        int64          `db:"amount"`
	Status        string         `db:"status"`
	PaymentStatus string         `db:"payment_status"`
	Notes         string         `db:"notes"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r orderRow) toModel() models.Order {
	o := models.Order{
		ID:            r.ID,
		ClientID:      r.ClientID,
		ProviderID:    r.ProviderID,
		Amount:        r.Amount,
		Status:        r.Status,
		PaymentStatus: r.PaymentStatus,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	switch models.SourceKind(r.SourceKind) {
	case models.SourceService:
		o.Source = models.ServiceSource(r.ServiceID.String)
	case models.SourceGigBid:
		o.Source = models.GigBidSource(r.GigID.String, r.BidID.String)
	}
	return o
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func insertOrderTx(ctx context.Context, tx *sqlx.Tx, o *models.Order) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, source_kind, service_id, gig_id, bid_id, client_id,
			provider_id, amount, status, payment_status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		o.ID, string(o.Source.Kind), nullable(o.Source.ServiceID), nullable(o.Source.GigID),
		nullable(o.Source.BidID), o.ClientID, o.ProviderID, o.Amount, o.Status,
		o.PaymentStatus, o.Notes, o.CreatedAt, o.UpdatedAt)
	return err
}

func getOrderForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Order, error) {
	var row orderRow
	err := tx.GetContext(ctx, &row, `SELECT * FROM orders WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, noRows(err, models.ErrOrderNotFound)
	}
	o := row.toModel()
	return &o, nil
}

// CreateOrder books a service directly. Provider and amount are derived from
// the service row under lock so a concurrent deactivation cannot slip in.
func (p *Postgres) CreateOrder(ctx context.Context, o *models.Order) error {
	if o.Source.Kind != models.SourceService {
		return models.ErrInvalidSource
	}
	return p.withTx(ctx, func(tx *sqlx.Tx) error {
		var s models.Service
		err := tx.GetContext(ctx, &s, `SELECT * FROM services WHERE id = $1 FOR UPDATE`, o.Source.ServiceID)
		if err != nil {
			return noRows(err, models.ErrServiceNotFound)
		}
		if !s.IsActive {
			return models.ErrServiceInactive
		}
		if s.ProviderID == o.ClientID {
			return models.ErrSelfBooking
		}

		if o.ID == "" {
			o.ID = uuid.New().String()
		}
		o.ProviderID = s.ProviderID
		if o.Amount == 0 {
			o.Amount = s.Price
		}
		o.Status = models.OrderStatusPending
		o.PaymentStatus = models.PaymentStatusPending
		now := time.Now()
		o.CreatedAt, o.UpdatedAt = now, now

		if err := insertOrderTx(ctx, tx, o); err != nil {
			return err
		}
		return insertNotificationTx(ctx, tx,
			models.BookingNotification(s.ProviderID, s.Title, o.ID, o.Amount))
	})
}

func (p *Postgres) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var row orderRow
	err := p.db.GetContext(ctx, &row, `SELECT * FROM orders WHERE id = $1`, id)
	if err != nil {
		return nil, noRows(err, models.ErrOrderNotFound)
	}
	o := row.toModel()
	return &o, nil
}

func (p *Postgres) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	rows := []orderRow{}
	err := p.db.SelectContext(ctx, &rows, `
		SELECT * FROM orders
		WHERE client_id = $1 OR provider_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, r.toModel())
	}
	return orders, nil
}

func (p *Postgres) CompleteOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var out *models.Order
	err := p.withTx(ctx, func(tx *sqlx.Tx) error {
		o, err := getOrderForUpdateTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o.Status != models.OrderStatusPending && o.Status != models.OrderStatusInProgress {
			return models.ErrOrderNotActive
		}

		o.Status = models.OrderStatusCompleted
		o.UpdatedAt = time.Now()
		_, err = tx.ExecContext(ctx, `
			UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
			o.ID, o.Status, o.UpdatedAt)
		if err != nil {
			return err
		}

		if o.Source.Kind == models.SourceGigBid {
			_, err = tx.ExecContext(ctx, `
				UPDATE gigs SET status = $2, updated_at = NOW()
				WHERE id = $1 AND status = $3`,
				o.Source.GigID, models.GigStatusCompleted, models.GigStatusInProgress)
			if err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE users SET completed_orders = completed_orders + 1, updated_at = NOW()
			WHERE id = $1`, o.ProviderID)
		if err != nil {
			return err
		}

		for _, userID := range []string{o.ClientID, o.ProviderID} {
			if err := insertNotificationTx(ctx, tx,
				models.OrderCompletedNotification(userID, o.ID)); err != nil {
				return err
			}
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PayOrder moves the order amount from client to provider as a debit/credit
// pair in the ledger, both rows tied to the order. User rows are locked in id
// order so two concurrent payments between the same pair cannot deadlock.
func (p *Postgres) PayOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var out *models.Order
	err := p.withTx(ctx, func(tx *sqlx.Tx) error {
		o, err := getOrderForUpdateTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o.Status == models.OrderStatusCancelled {
			return models.ErrOrderNotActive
		}
		if o.PaymentStatus != models.PaymentStatusPending {
			return models.ErrPaymentNotPending
		}

		var clientBalance int64
		for _, userID := range sortedPair(o.ClientID, o.ProviderID) {
			balance, err := lockUserBalanceTx(ctx, tx, userID)
			if err != nil {
				return err
			}
			if userID == o.ClientID {
				clientBalance = balance
			}
		}
		if clientBalance < o.Amount {
			return models.ErrInsufficientBalance
		}

		oid := o.ID
		debit := &models.Transaction{
			UserID: o.ClientID, OrderID: &oid,
			Type: models.TxTypeDebit, Amount: o.Amount, Description: "Order payment",
		}
		credit := &models.Transaction{
			UserID: o.ProviderID, OrderID: &oid,
			Type: models.TxTypeCredit, Amount: o.Amount, Description: "Order payout",
		}
		if err := insertTransactionTx(ctx, tx, debit); err != nil {
			return err
		}
		if err := insertTransactionTx(ctx, tx, credit); err != nil {
			return err
		}

		o.PaymentStatus = models.PaymentStatusPaid
		o.UpdatedAt = time.Now()
		_, err = tx.ExecContext(ctx, `
			UPDATE orders SET payment_status = $2, updated_at = $3 WHERE id = $1`,
			o.ID, o.PaymentStatus, o.UpdatedAt)
		if err != nil {
			return err
		}
		if err := insertNotificationTx(ctx, tx,
			models.OrderPaidNotification(o.ProviderID, o.ID, o.Amount)); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Postgres) CancelOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var out *models.Order
	err := p.withTx(ctx, func(tx *sqlx.Tx) error {
		o, err := getOrderForUpdateTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o.Status != models.OrderStatusPending && o.Status != models.OrderStatusInProgress {
			return models.ErrOrderNotCancellable
		}

		if o.PaymentStatus == models.PaymentStatusPaid {
			for _, userID := range sortedPair(o.ClientID, o.ProviderID) {
				if _, err := lockUserBalanceTx(ctx, tx, userID); err != nil {
					return err
				}
			}
			oid := o.ID
			refund := &models.Transaction{
				UserID: o.ClientID, OrderID: &oid,
				Type: models.TxTypeCredit, Amount: o.Amount, Description: "Order refund",
			}
			reversal := &models.Transaction{
				UserID: o.ProviderID, OrderID: &oid,
				Type: models.TxTypeDebit, Amount: o.Amount, Description: "Order payout reversal",
			}
			if err := insertTransactionTx(ctx, tx, refund); err != nil {
				return err
			}
			if err := insertTransactionTx(ctx, tx, reversal); err != nil {
				return err
			}
			// A refund credit is not an earning, and the reversed payout no
			// longer counts as one either.
			_, err = tx.ExecContext(ctx, `
				UPDATE users SET total_earnings = total_earnings - $2 WHERE id IN ($1, $3)`,
				o.ClientID, o.Amount, o.ProviderID)
			if err != nil {
				return err
			}
			o.PaymentStatus = models.PaymentStatusRefunded
		}

		o.Status = models.OrderStatusCancelled
		o.UpdatedAt = time.Now()
		_, err = tx.ExecContext(ctx, `
			UPDATE orders SET status = $2, payment_status = $3, updated_at = $4 WHERE id = $1`,
			o.ID, o.Status, o.PaymentStatus, o.UpdatedAt)
		if err != nil {
			return err
		}

		if o.Source.Kind == models.SourceGigBid {
			_, err = tx.ExecContext(ctx, `
				UPDATE gigs SET status = $2, updated_at = NOW()
				WHERE id = $1 AND status IN ($3, $4)`,
				o.Source.GigID, models.GigStatusCancelled,
				models.GigStatusOpen, models.GigStatusInProgress)
			if err != nil {
				return err
			}
		}

		for _, userID := range []string{o.ClientID, o.ProviderID} {
			if err := insertNotificationTx(ctx, tx,
				models.OrderCancelledNotification(userID, o.ID)); err != nil {
				return err
			}
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func sortedPair(a, b string) []string {
	if a < b {
		return []string{a, b}
	}
	return []string{b, a}
}

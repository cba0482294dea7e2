package store

import (
	"context"
	"time"

	"campusmarket/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func (p *Postgres) PlaceBid(ctx context.Context, b *models.Bid) error {
	return p.withTx(ctx, func(tx *sqlx.Tx) error {
		var gig models.Gig
		err := tx.GetContext(ctx, &gig, `SELECT * FROM gigs WHERE id = $1 FOR UPDATE`, b.GigID)
		if err != nil {
			return noRows(err, models.ErrGigNotFound)
		}
		if gig.Status != models.GigStatusOpen {
			return models.ErrGigNotOpen
		}
		if gig.ClientID == b.BidderID {
			return models.ErrSelfBid
		}

		if b.ID == "" {
			b.ID = uuid.New().String()
		}
		b.Status = models.BidStatusPending
		b.CreatedAt = time.Now()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO bids (id, gig_id, bidder_id, amount, message, delivery_time, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			b.ID, b.GigID, b.BidderID, b.Amount, b.Message, b.DeliveryTime, b.Status, b.CreatedAt)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE gigs SET bid_count = bid_count + 1, updated_at = NOW() WHERE id = $1`, b.GigID)
		if err != nil {
			return err
		}
		return insertNotificationTx(ctx, tx,
			models.BidReceivedNotification(gig.ClientID, gig.Title, b.ID, b.Amount))
	})
}

func (p *Postgres) GetBid(ctx context.Context, id string) (*models.Bid, error) {
	var b models.Bid
	err := p.db.GetContext(ctx, &b, `SELECT * FROM bids WHERE id = $1`, id)
	if err != nil {
		return nil, noRows(err, models.ErrBidNotFound)
	}
	return &b, nil
}

func (p *Postgres) ListBidsByGig(ctx context.Context, gigID string) ([]models.Bid, error) {
	bids := []models.Bid{}
	err := p.db.SelectContext(ctx, &bids, `
		SELECT * FROM bids WHERE gig_id = $1 ORDER BY created_at DESC`, gigID)
	return bids, err
}

func (p *Postgres) ListBidsByBidder(ctx context.Context, bidderID string) ([]models.Bid, error) {
	bids := []models.Bid{}
	err := p.db.SelectContext(ctx, &bids, `
		SELECT * FROM bids WHERE bidder_id = $1 ORDER BY created_at DESC`, bidderID)
	return bids, err
}

func (p *Postgres) UpdateBid(ctx context.Context, id string, upd BidUpdate) (*models.Bid, error) {
	var b models.Bid
	err := p.db.GetContext(ctx, &b, `
		UPDATE bids SET
			amount        = COALESCE($2, amount),
			message       = COALESCE($3, message),
			delivery_time = COALESCE($4, delivery_time)
		WHERE id = $1 AND status = $5
		RETURNING *`,
		id, upd.Amount, upd.Message, upd.DeliveryTime, models.BidStatusPending)
	if err == nil {
		return &b, nil
	}
	if _, getErr := p.GetBid(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, noRows(err, models.ErrBidNotPending)
}

func (p *Postgres) WithdrawBid(ctx context.Context, id string) error {
	return p.withTx(ctx, func(tx *sqlx.Tx) error {
		var b models.Bid
		err := tx.GetContext(ctx, &b, `SELECT * FROM bids WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return noRows(err, models.ErrBidNotFound)
		}
		if b.Status != models.BidStatusPending {
			return models.ErrBidNotPending
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM bids WHERE id = $1`, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE gigs SET bid_count = bid_count - 1, updated_at = NOW() WHERE id = $1`, b.GigID)
		return err
	})
}

// AcceptBid performs the whole acceptance in one transaction: accept the
// winner, reject every pending sibling, move the gig to in_progress and
// materialize the order. The gig row lock is what serializes two clients
// racing to accept different bids on the same gig.
func (p *Postgres) AcceptBid(ctx context.Context, bidID string) (*AcceptResult, error) {
	var result AcceptResult
	err := p.withTx(ctx, func(tx *sqlx.Tx) error {
		var b models.Bid
		err := tx.GetContext(ctx, &b, `SELECT * FROM bids WHERE id = $1 FOR UPDATE`, bidID)
		if err != nil {
			return noRows(err, models.ErrBidNotFound)
		}
		var g models.Gig
		err = tx.GetContext(ctx, &g, `SELECT * FROM gigs WHERE id = $1 FOR UPDATE`, b.GigID)
		if err != nil {
			return noRows(err, models.ErrGigNotFound)
		}
		if b.Status != models.BidStatusPending {
			return models.ErrBidNotPending
		}
		if g.Status != models.GigStatusOpen {
			return models.ErrGigNotOpen
		}

		now := time.Now()
		b.Status = models.BidStatusAccepted
		_, err = tx.ExecContext(ctx, `UPDATE bids SET status = $2 WHERE id = $1`,
			b.ID, models.BidStatusAccepted)
		if err != nil {
			return err
		}

		rejected := []models.Bid{}
		err = tx.SelectContext(ctx, &rejected, `
			UPDATE bids SET status = $3
			WHERE gig_id = $1 AND id <> $2 AND status = $4
			RETURNING *`,
			g.ID, b.ID, models.BidStatusRejected, models.BidStatusPending)
		if err != nil {
			return err
		}

		g.Status = models.GigStatusInProgress
		g.SelectedBidID = &b.ID
		g.UpdatedAt = now
		_, err = tx.ExecContext(ctx, `
			UPDATE gigs SET status = $2, selected_bid_id = $3, updated_at = $4 WHERE id = $1`,
			g.ID, g.Status, b.ID, now)
		if err != nil {
			return err
		}

		order := &models.Order{
			ID:            uuid.New().String(),
			Source:        models.GigBidSource(g.ID, b.ID),
			ClientID:      g.ClientID,
			ProviderID:    b.BidderID,
			Amount:        b.Amount,
			Status:        models.OrderStatusInProgress,
			PaymentStatus: models.PaymentStatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := insertOrderTx(ctx, tx, order); err != nil {
			return err
		}

		if err := insertNotificationTx(ctx, tx,
			models.BidAcceptedNotification(b.BidderID, g.Title, order.ID)); err != nil {
			return err
		}
		for _, r := range rejected {
			if err := insertNotificationTx(ctx, tx,
				models.BidRejectedNotification(r.BidderID, g.Title, r.ID)); err != nil {
				return err
			}
		}

		result = AcceptResult{Bid: &b, Gig: &g, Order: order, RejectedBids: rejected}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

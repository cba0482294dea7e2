package store

import (
	"context"
	"time"

	"campusmarket/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SubmitReview inserts the review and recomputes the reviewee's aggregate
// rating inside the same transaction, so the stored mean never drifts from
// the review rows.
func (p *Postgres) SubmitReview(ctx context.Context, r *models.Review) error {
	return p.withTx(ctx, func(tx *sqlx.Tx) error {
		o, err := getOrderForUpdateTx(ctx, tx, r.OrderID)
		if err != nil {
			return err
		}
		if o.Status != models.OrderStatusCompleted {
			return models.ErrOrderNotCompleted
		}

		var dup int
		err = tx.GetContext(ctx, &dup, `
			SELECT COUNT(*) FROM reviews WHERE order_id = $1 AND reviewer_id = $2`,
			r.OrderID, r.ReviewerID)
		if err != nil {
			return err
		}
		if dup > 0 {
			return models.ErrDuplicateReview
		}

		if r.ReviewerID == o.ClientID {
			r.RevieweeID = o.ProviderID
		} else {
			r.RevieweeID = o.ClientID
		}
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		r.CreatedAt = time.Now()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO reviews (id, order_id, reviewer_id, reviewee_id, rating, comment, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.ID, r.OrderID, r.ReviewerID, r.RevieweeID, r.Rating, r.Comment, r.CreatedAt)
		if err != nil {
			return err
		}

		var mean float64
		err = tx.GetContext(ctx, &mean, `
			SELECT ROUND(AVG(rating)::numeric, 2) FROM reviews WHERE reviewee_id = $1`,
			r.RevieweeID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE users SET rating = $2, updated_at = NOW() WHERE id = $1`,
			r.RevieweeID, mean)
		if err != nil {
			return err
		}

		if o.Source.Kind == models.SourceService && r.RevieweeID == o.ProviderID {
			_, err = tx.ExecContext(ctx, `
				UPDATE services SET rating = $2, review_count = review_count + 1, updated_at = NOW()
				WHERE id = $1`, o.Source.ServiceID, mean)
			if err != nil {
				return err
			}
		}

		return insertNotificationTx(ctx, tx,
			models.ReviewReceivedNotification(r.RevieweeID, r.OrderID, r.Rating))
	})
}

func (p *Postgres) ListReviewsByReviewee(ctx context.Context, revieweeID string) ([]models.Review, error) {
	reviews := []models.Review{}
	err := p.db.SelectContext(ctx, &reviews, `
		SELECT * FROM reviews WHERE reviewee_id = $1 ORDER BY created_at DESC`, revieweeID)
	return reviews, err
}

package store

import (
	"context"
	"time"

	"campusmarket/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// insertNotificationTx appends an outbox row inside the caller's business
// transaction. The dispatcher picks it up after commit.
func insertNotificationTx(ctx context.Context, tx *sqlx.Tx, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = time.Now()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, type, related_id, is_read, delivered_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.UserID, n.Title, n.Message, n.Type, n.RelatedID, n.IsRead, n.DeliveredAt, n.CreatedAt)
	return err
}

func (p *Postgres) AppendNotification(ctx context.Context, n *models.Notification) error {
	return p.withTx(ctx, func(tx *sqlx.Tx) error {
		return insertNotificationTx(ctx, tx, n)
	})
}

func (p *Postgres) ListNotificationsByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	notifications := []models.Notification{}
	err := p.db.SelectContext(ctx, &notifications, `
		SELECT * FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	return notifications, err
}

func (p *Postgres) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotificationNotFound
	}
	return nil
}

func (p *Postgres) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE user_id = $1`, userID)
	return err
}

// ListUndeliveredNotifications is the outbox poll. Delivery is at-least-once;
// a crash between publish and the delivered stamp just republishes.
func (p *Postgres) ListUndeliveredNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	notifications := []models.Notification{}
	err := p.db.SelectContext(ctx, &notifications, `
		SELECT * FROM notifications
		WHERE delivered_at IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	return notifications, err
}

func (p *Postgres) MarkNotificationDelivered(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE notifications SET delivered_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotificationNotFound
	}
	return nil
}

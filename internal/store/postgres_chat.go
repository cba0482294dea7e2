package store

import (
	"context"
	"database/sql"
	"time"

	"campusmarket/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type chatRow struct {
	ID            string         `db:"id"`
	OrderID       sql.NullString `db:"order_id"`
	GigID         sql.NullString `db:"gig_id"`
	ServiceID     sql.NullString `db:"service_id"`
	Participants  pq.StringArray `db:"participants"`
	LastMessage   string         `db:"last_message"`
	LastMessageAt *time.Time     `db:"last_message_at"`
	CreatedAt     time.Time      `db:"created_at"`
}

func (r chatRow) toModel() models.Chat {
	c := models.Chat{
		ID:            r.ID,
		Participants:  []string(r.Participants),
		LastMessage:   r.LastMessage,
		LastMessageAt: r.LastMessageAt,
		CreatedAt:     r.CreatedAt,
	}
	if r.OrderID.Valid {
		c.OrderID = &r.OrderID.String
	}
	if r.GigID.Valid {
		c.GigID = &r.GigID.String
	}
	if r.ServiceID.Valid {
		c.ServiceID = &r.ServiceID.String
	}
	return c
}

func (p *Postgres) CreateChat(ctx context.Context, c *models.Chat) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now()

	var orderID, gigID, serviceID sql.NullString
	if c.OrderID != nil {
		orderID = sql.NullString{String: *c.OrderID, Valid: true}
	}
	if c.GigID != nil {
		gigID = sql.NullString{String: *c.GigID, Valid: true}
	}
	if c.ServiceID != nil {
		serviceID = sql.NullString{String: *c.ServiceID, Valid: true}
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO chats (id, order_id, gig_id, service_id, participants, last_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, orderID, gigID, serviceID, pq.StringArray(c.Participants), c.LastMessage, c.CreatedAt)
	return err
}

func (p *Postgres) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	var row chatRow
	err := p.db.GetContext(ctx, &row, `SELECT * FROM chats WHERE id = $1`, id)
	if err != nil {
		return nil, noRows(err, models.ErrChatNotFound)
	}
	c := row.toModel()
	return &c, nil
}

func (p *Postgres) ListChatsByUser(ctx context.Context, userID string) ([]models.Chat, error) {
	rows := []chatRow{}
	err := p.db.SelectContext(ctx, &rows, `
		SELECT * FROM chats
		WHERE $1 = ANY(participants)
		ORDER BY COALESCE(last_message_at, created_at) DESC`, userID)
	if err != nil {
		return nil, err
	}
	chats := make([]models.Chat, 0, len(rows))
	for _, r := range rows {
		chats = append(chats, r.toModel())
	}
	return chats, nil
}

func (p *Postgres) ListMessagesByChat(ctx context.Context, chatID string) ([]models.Message, error) {
	messages := []models.Message{}
	err := p.db.SelectContext(ctx, &messages, `
		SELECT * FROM messages WHERE chat_id = $1 ORDER BY created_at`, chatID)
	return messages, err
}

func (p *Postgres) CreateMessage(ctx context.Context, m *models.Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now()

	return p.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE chats SET last_message = $2, last_message_at = $3 WHERE id = $1`,
			m.ChatID, m.Content, m.CreatedAt)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return models.ErrChatNotFound
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (id, chat_id, sender_id, content, attachment_url, is_read, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			m.ID, m.ChatID, m.SenderID, m.Content, m.AttachmentURL, m.IsRead, m.CreatedAt)
		return err
	})
}

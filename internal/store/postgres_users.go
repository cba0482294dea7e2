package store

import (
	"context"
	"time"

	"campusmarket/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func (p *Postgres) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.KYCStatus == "" {
		u.KYCStatus = models.KYCStatusPending
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO users (id, email, first_name, last_name, role, profile_image_url,
			wallet_balance, total_earnings, rating, completed_orders, kyc_status,
			nin_image_url, selfie_image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		u.ID, u.Email, u.FirstName, u.LastName, u.Role, u.ProfileImageURL,
		u.WalletBalance, u.TotalEarnings, u.Rating, u.CompletedOrders, u.KYCStatus,
		u.NINImageURL, u.SelfieImageURL, u.CreatedAt, u.UpdatedAt)
	return err
}

func (p *Postgres) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := p.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, noRows(err, models.ErrUserNotFound)
	}
	return &u, nil
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := p.db.GetContext(ctx, &u, `SELECT * FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, noRows(err, models.ErrUserNotFound)
	}
	return &u, nil
}

func (p *Postgres) UpdateUserProfile(ctx context.Context, id string, upd UserProfileUpdate) (*models.User, error) {
	var u models.User
	err := p.db.GetContext(ctx, &u, `
		UPDATE users SET
			first_name        = COALESCE($2, first_name),
			last_name         = COALESCE($3, last_name),
			role              = COALESCE($4, role),
			profile_image_url = COALESCE($5, profile_image_url),
			updated_at        = NOW()
		WHERE id = $1
		RETURNING *`,
		id, upd.FirstName, upd.LastName, upd.Role, upd.ProfileImageURL)
	if err != nil {
		return nil, noRows(err, models.ErrUserNotFound)
	}
	return &u, nil
}

func (p *Postgres) SubmitKYC(ctx context.Context, id, ninImageURL, selfieImageURL string) (*models.User, error) {
	var u models.User
	err := p.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &u, `
			UPDATE users SET
				nin_image_url    = $2,
				selfie_image_url = $3,
				kyc_status       = $4,
				updated_at       = NOW()
			WHERE id = $1
			RETURNING *`,
			id, ninImageURL, selfieImageURL, models.KYCStatusPending)
		if err != nil {
			return noRows(err, models.ErrUserNotFound)
		}
		return insertNotificationTx(ctx, tx, models.KYCSubmittedNotification(id))
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (p *Postgres) GetUserStats(ctx context.Context, id string) (*models.UserStats, error) {
	u, err := p.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	var active int
	err = p.db.GetContext(ctx, &active, `
		SELECT COUNT(*) FROM gigs WHERE client_id = $1 AND status = $2`,
		id, models.GigStatusOpen)
	if err != nil {
		return nil, err
	}
	return &models.UserStats{
		CompletedOrders: u.CompletedOrders,
		TotalEarnings:   u.TotalEarnings,
		AverageRating:   u.Rating,
		ActiveGigs:      active,
	}, nil
}

package store

import (
	"context"
	"time"

	"campusmarket/internal/models"

	"github.com/google/uuid"
)

// --- Services ---

func (p *Postgres) CreateService(ctx context.Context, s *models.Service) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	now := time.Now()
	s.CreatedAt, s.UpdatedAt = now, now

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO services (id, provider_id, title, description, category, price,
			price_type, rating, review_count, is_active, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		s.ID, s.ProviderID, s.Title, s.Description, s.Category, s.Price,
		s.PriceType, s.Rating, s.ReviewCount, s.IsActive, s.ImageURL, s.CreatedAt, s.UpdatedAt)
	return err
}

func (p *Postgres) GetService(ctx context.Context, id string) (*models.Service, error) {
	var s models.Service
	err := p.db.GetContext(ctx, &s, `SELECT * FROM services WHERE id = $1`, id)
	if err != nil {
		return nil, noRows(err, models.ErrServiceNotFound)
	}
	return &s, nil
}

func (p *Postgres) ListServices(ctx context.Context, f ServiceFilter) ([]models.Service, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	services := []models.Service{}
	err := p.db.SelectContext(ctx, &services, `
		SELECT * FROM services
		WHERE is_active = TRUE
		  AND ($1 = '' OR category = $1)
		  AND ($2 = '' OR title ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')
		ORDER BY rating DESC, created_at DESC
		LIMIT $3`, f.Category, f.Search, f.Limit)
	return services, err
}

func (p *Postgres) UpdateService(ctx context.Context, id string, upd ServiceUpdate) (*models.Service, error) {
	var s models.Service
	err := p.db.GetContext(ctx, &s, `
		UPDATE services SET
			title       = COALESCE($2, title),
			description = COALESCE($3, description),
			category    = COALESCE($4, category),
			price       = COALESCE($5, price),
			price_type  = COALESCE($6, price_type),
			is_active   = COALESCE($7, is_active),
			image_url   = COALESCE($8, image_url),
			updated_at  = NOW()
		WHERE id = $1
		RETURNING *`,
		id, upd.Title, upd.Description, upd.Category, upd.Price, upd.PriceType,
		upd.IsActive, upd.ImageURL)
	if err != nil {
		return nil, noRows(err, models.ErrServiceNotFound)
	}
	return &s, nil
}

func (p *Postgres) DeleteService(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrServiceNotFound
	}
	return nil
}

func (p *Postgres) ListServicesByProvider(ctx context.Context, providerID string) ([]models.Service, error) {
	services := []models.Service{}
	err := p.db.SelectContext(ctx, &services, `
		SELECT * FROM services WHERE provider_id = $1 ORDER BY created_at DESC`, providerID)
	return services, err
}

// --- Gigs ---

func (p *Postgres) CreateGig(ctx context.Context, g *models.Gig) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.Status == "" {
		g.Status = models.GigStatusOpen
	}
	now := time.Now()
	g.CreatedAt, g.UpdatedAt = now, now

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO gigs (id, client_id, title, description, category, budget, deadline,
			status, bid_count, selected_bid_id, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		g.ID, g.ClientID, g.Title, g.Description, g.Category, g.Budget, g.Deadline,
		g.Status, g.BidCount, g.SelectedBidID, g.ImageURL, g.CreatedAt, g.UpdatedAt)
	return err
}

func (p *Postgres) GetGig(ctx context.Context, id string) (*models.Gig, error) {
	var g models.Gig
	err := p.db.GetContext(ctx, &g, `SELECT * FROM gigs WHERE id = $1`, id)
	if err != nil {
		return nil, noRows(err, models.ErrGigNotFound)
	}
	return &g, nil
}

func (p *Postgres) ListGigs(ctx context.Context, f GigFilter) ([]models.Gig, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	gigs := []models.Gig{}
	err := p.db.SelectContext(ctx, &gigs, `
		SELECT * FROM gigs
		WHERE ($1 = '' OR category = $1)
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR title ILIKE '%' || $3 || '%' OR description ILIKE '%' || $3 || '%')
		ORDER BY created_at DESC
		LIMIT $4`, f.Category, f.Status, f.Search, f.Limit)
	return gigs, err
}

func (p *Postgres) UpdateGig(ctx context.Context, id string, upd GigUpdate) (*models.Gig, error) {
	var g models.Gig
	// Frozen fields only apply while the gig is open; the WHERE clause makes
	// the guard and the write one atomic statement.
	query := `
		UPDATE gigs SET
			title       = COALESCE($2, title),
			description = COALESCE($3, description),
			category    = COALESCE($4, category),
			budget      = COALESCE($5, budget),
			deadline    = COALESCE($6, deadline),
			image_url   = COALESCE($7, image_url),
			updated_at  = NOW()
		WHERE id = $1`
	if upd.Frozen() {
		query += ` AND status = '` + models.GigStatusOpen + `'`
	}
	query += ` RETURNING *`

	err := p.db.GetContext(ctx, &g, query,
		id, upd.Title, upd.Description, upd.Category, upd.Budget, upd.Deadline, upd.ImageURL)
	if err == nil {
		return &g, nil
	}
	if !upd.Frozen() {
		return nil, noRows(err, models.ErrGigNotFound)
	}
	// Distinguish a missing gig from a frozen one.
	if _, getErr := p.GetGig(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, noRows(err, models.ErrGigNotEditable)
}

func (p *Postgres) DeleteGig(ctx context.Context, id string) error {
	// bids carry ON DELETE CASCADE on gig_id.
	res, err := p.db.ExecContext(ctx, `DELETE FROM gigs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrGigNotFound
	}
	return nil
}

func (p *Postgres) ListGigsByClient(ctx context.Context, clientID string) ([]models.Gig, error) {
	gigs := []models.Gig{}
	err := p.db.SelectContext(ctx, &gigs, `
		SELECT * FROM gigs WHERE client_id = $1 ORDER BY created_at DESC`, clientID)
	return gigs, err
}

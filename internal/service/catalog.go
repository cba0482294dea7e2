package service

import (
	"context"
	"time"

	"campusmarket/internal/models"
	"campusmarket/internal/store"
	"campusmarket/internal/util"

	"go.uber.org/zap"
)

// CatalogService handles the two sides of the marketplace catalog: standing
// services offered by providers and one-off gigs posted by clients.
type CatalogService struct {
	store  store.Store
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(st store.Store) *CatalogService {
	return &CatalogService{
		store:  st,
		logger: util.GetLogger(),
	}
}

// CreateServiceRequest represents a new service listing
type CreateServiceRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required"`
	Price       int64  `json:"price" binding:"required"`
	PriceType   string `json:"price_type"`
	ImageURL    string `json:"image_url"`
}

// UpdateServiceRequest carries partial service updates
type UpdateServiceRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Price       *int64  `json:"price"`
	PriceType   *string `json:"price_type"`
	IsActive    *bool   `json:"is_active"`
	ImageURL    *string `json:"image_url"`
}

// CreateGigRequest represents a new gig posting
type CreateGigRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Category    string    `json:"category" binding:"required"`
	Budget      string    `json:"budget"`
	Deadline    time.Time `json:"deadline" binding:"required"`
	ImageURL    string    `json:"image_url"`
}

// UpdateGigRequest carries partial gig updates. Budget, deadline and category
// are only editable while the gig is open.
type UpdateGigRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Category    *string    `json:"category"`
	Budget      *string    `json:"budget"`
	Deadline    *time.Time `json:"deadline"`
	ImageURL    *string    `json:"image_url"`
}

// --- Services ---

// CreateService lists a new service for the acting provider.
func (s *CatalogService) CreateService(ctx context.Context, providerID string, req *CreateServiceRequest) (*models.Service, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateService")
	defer span.End()

	if req.Price <= 0 {
		return nil, models.ErrInvalidAmount
	}
	if req.PriceType == "" {
		req.PriceType = models.PriceTypeFixed
	}

	svc := &models.Service{
		ProviderID:  providerID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		PriceType:   req.PriceType,
		IsActive:    true,
		ImageURL:    req.ImageURL,
	}
	if err := s.store.CreateService(ctx, svc); err != nil {
		return nil, err
	}

	s.logger.Info("Service created",
		zap.String("service_id", svc.ID),
		zap.String("provider_id", providerID))
	return svc, nil
}

// GetService returns one service.
func (s *CatalogService) GetService(ctx context.Context, id string) (*models.Service, error) {
	return s.store.GetService(ctx, id)
}

// ListServices returns active services matching the filter.
func (s *CatalogService) ListServices(ctx context.Context, f store.ServiceFilter) ([]models.Service, error) {
	return s.store.ListServices(ctx, f)
}

// ListServicesByProvider returns every listing of one provider, active or not.
func (s *CatalogService) ListServicesByProvider(ctx context.Context, providerID string) ([]models.Service, error) {
	return s.store.ListServicesByProvider(ctx, providerID)
}

// UpdateService applies a partial update. Only the owning provider may edit.
func (s *CatalogService) UpdateService(ctx context.Context, actorID, serviceID string, req *UpdateServiceRequest) (*models.Service, error) {
	svc, err := s.store.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.ProviderID != actorID {
		return nil, models.ErrUnauthorized
	}
	if req.Price != nil && *req.Price <= 0 {
		return nil, models.ErrInvalidAmount
	}

	return s.store.UpdateService(ctx, serviceID, store.ServiceUpdate{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		PriceType:   req.PriceType,
		IsActive:    req.IsActive,
		ImageURL:    req.ImageURL,
	})
}

// DeleteService removes a listing. Only the owning provider may delete.
func (s *CatalogService) DeleteService(ctx context.Context, actorID, serviceID string) error {
	svc, err := s.store.GetService(ctx, serviceID)
	if err != nil {
		return err
	}
	if svc.ProviderID != actorID {
		return models.ErrUnauthorized
	}
	return s.store.DeleteService(ctx, serviceID)
}

// --- Gigs ---

// CreateGig posts a new gig, open for bids.
func (s *CatalogService) CreateGig(ctx context.Context, clientID string, req *CreateGigRequest) (*models.Gig, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateGig")
	defer span.End()

	gig := &models.Gig{
		ClientID:    clientID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Budget:      req.Budget,
		Deadline:    req.Deadline,
		Status:      models.GigStatusOpen,
		ImageURL:    req.ImageURL,
	}
	if err := s.store.CreateGig(ctx, gig); err != nil {
		return nil, err
	}

	s.logger.Info("Gig created",
		zap.String("gig_id", gig.ID),
		zap.String("client_id", clientID))
	return gig, nil
}

// GetGig returns one gig.
func (s *CatalogService) GetGig(ctx context.Context, id string) (*models.Gig, error) {
	return s.store.GetGig(ctx, id)
}

// ListGigs returns gigs matching the filter.
func (s *CatalogService) ListGigs(ctx context.Context, f store.GigFilter) ([]models.Gig, error) {
	return s.store.ListGigs(ctx, f)
}

// ListGigsByClient returns every gig posted by one client.
func (s *CatalogService) ListGigsByClient(ctx context.Context, clientID string) ([]models.Gig, error) {
	return s.store.ListGigsByClient(ctx, clientID)
}

// UpdateGig applies a partial update. Only the posting client may edit, and
// budget, deadline and category are frozen once bidding has closed.
func (s *CatalogService) UpdateGig(ctx context.Context, actorID, gigID string, req *UpdateGigRequest) (*models.Gig, error) {
	gig, err := s.store.GetGig(ctx, gigID)
	if err != nil {
		return nil, err
	}
	if gig.ClientID != actorID {
		return nil, models.ErrUnauthorized
	}

	return s.store.UpdateGig(ctx, gigID, store.GigUpdate{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Budget:      req.Budget,
		Deadline:    req.Deadline,
		ImageURL:    req.ImageURL,
	})
}

// DeleteGig removes a gig and, transitively, every bid on it.
func (s *CatalogService) DeleteGig(ctx context.Context, actorID, gigID string) error {
	gig, err := s.store.GetGig(ctx, gigID)
	if err != nil {
		return err
	}
	if gig.ClientID != actorID {
		return models.ErrUnauthorized
	}

	if err := s.store.DeleteGig(ctx, gigID); err != nil {
		return err
	}
	s.logger.Info("Gig deleted",
		zap.String("gig_id", gigID),
		zap.Int("bids_cascaded", gig.BidCount))
	return nil
}

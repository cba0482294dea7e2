package service

import (
	"context"
	"strings"

	"campusmarket/internal/models"
	"campusmarket/internal/store"
	"campusmarket/internal/util"

	"go.uber.org/zap"
)

// UserService handles registration, profiles, stats and KYC.
type UserService struct {
	store  store.Store
	logger *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(st store.Store) *UserService {
	return &UserService{
		store:  st,
		logger: util.GetLogger(),
	}
}

// RegisterRequest represents a new user registration
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Role      string `json:"role"`
}

// UpdateProfileRequest carries partial profile updates
type UpdateProfileRequest struct {
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	Role            *string `json:"role"`
	ProfileImageURL *string `json:"profile_image_url"`
}

// SubmitKYCRequest carries the identity document uploads
type SubmitKYCRequest struct {
	NINImageURL    string `json:"nin_image_url" binding:"required"`
	SelfieImageURL string `json:"selfie_image_url" binding:"required"`
}

// Register creates a new user with an empty wallet.
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "UserService.Register")
	defer span.End()

	if req.Role == "" {
		req.Role = models.RoleStudent
	}

	u := &models.User{
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		KYCStatus: models.KYCStatusPending,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		zap.String("user_id", u.ID),
		zap.String("role", u.Role))
	return u, nil
}

// GetProfile returns one user's profile.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	return s.store.GetUser(ctx, userID)
}

// UpdateProfile applies a partial update to the actor's own profile.
func (s *UserService) UpdateProfile(ctx context.Context, actorID string, req *UpdateProfileRequest) (*models.User, error) {
	return s.store.UpdateUserProfile(ctx, actorID, store.UserProfileUpdate{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Role:            req.Role,
		ProfileImageURL: req.ProfileImageURL,
	})
}

// GetStats returns the dashboard aggregates for one user.
func (s *UserService) GetStats(ctx context.Context, userID string) (*models.UserStats, error) {
	return s.store.GetUserStats(ctx, userID)
}

// SubmitKYC records the actor's identity documents and resets their KYC
// status to pending review.
func (s *UserService) SubmitKYC(ctx context.Context, actorID string, req *SubmitKYCRequest) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "UserService.SubmitKYC")
	defer span.End()

	u, err := s.store.SubmitKYC(ctx, actorID, req.NINImageURL, req.SelfieImageURL)
	if err != nil {
		return nil, err
	}
	s.logger.Info("KYC submitted", zap.String("user_id", actorID))
	return u, nil
}

// GetKYCStatus returns the actor's KYC status.
func (s *UserService) GetKYCStatus(ctx context.Context, userID string) (string, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.KYCStatus, nil
}

package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skooldesk/skooldesk-api/internal/models"
	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
)

type parentRepository interface {
	List(ctx context.Context, filter models.ParentFilter) ([]models.ParentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Parent, error)
	Create(ctx context.Context, parent *models.Parent) error
	Update(ctx context.Context, parent *models.Parent) error
	Delete(ctx context.Context, id string) error
}

// ParentService handles the guardian directory, an admin-only surface.
type ParentService struct {
	repo      parentRepository
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewParentService constructs the service.
func NewParentService(repo parentRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ParentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParentService{repo: repo, metrics: metrics, validator: validate, logger: logger}
}

// CreateParentRequest describes the create payload.
type CreateParentRequest struct {
	Username string  `json:"username" validate:"required"`
	Name     string  `json:"name" validate:"required"`
	Surname  string  `json:"surname" validate:"required"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    string  `json:"phone" validate:"required"`
	Address  string  `json:"address" validate:"required"`
}

// UpdateParentRequest describes the update payload.
type UpdateParentRequest CreateParentRequest

// List returns parents with the number of linked students.
func (s *ParentService) List(ctx context.Context, filter models.ParentFilter) ([]models.ParentDetail, *models.Pagination, error) {
	filter.PageRequest = filter.PageRequest.Normalize()
	start := time.Now()
	parents, total, err := s.repo.List(ctx, filter)
	if s.metrics != nil {
		s.metrics.ObserveStoreQuery("parent", "list", time.Since(start))
	}
	if err != nil {
		return nil, nil, mapStoreError(err, "failed to list parents")
	}
	return parents, models.NewPagination(filter.PageRequest, total), nil
}

// Get returns one parent.
func (s *ParentService) Get(ctx context.Context, id string) (*models.Parent, error) {
	parent, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to fetch parent")
	}
	return parent, nil
}

// Create registers a parent.
func (s *ParentService) Create(ctx context.Context, req CreateParentRequest) (*models.Parent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	parent := &models.Parent{
		Username: req.Username,
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
	}
	if err := s.repo.Create(ctx, parent); err != nil {
		return nil, mapStoreError(err, "failed to create parent")
	}
	s.logger.Info("parent created", zap.String("parent_id", parent.ID))
	return parent, nil
}

// Update modifies a parent.
func (s *ParentService) Update(ctx context.Context, id string, req UpdateParentRequest) (*models.Parent, error) {
	if err := s.validator.Struct(CreateParentRequest(req)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	parent := &models.Parent{
		ID:       id,
		Username: req.Username,
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
	}
	if err := s.repo.Update(ctx, parent); err != nil {
		return nil, mapStoreError(err, "failed to update parent")
	}
	return parent, nil
}

// Delete removes a parent unless students still reference them.
func (s *ParentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "failed to delete parent")
	}
	return nil
}

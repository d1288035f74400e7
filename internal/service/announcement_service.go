package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skooldesk/skooldesk-api/internal/cachekey"
	"github.com/skooldesk/skooldesk-api/internal/models"
	"github.com/skooldesk/skooldesk-api/internal/scope"
	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
)

type announcementRepository interface {
	List(ctx context.Context, filter models.AnnouncementFilter, sc scope.Scope) ([]models.AnnouncementDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.AnnouncementDetail, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

// AnnouncementService handles notices. Non-admin actors see announcements
// addressed to their class set plus school-wide ones; an actor with no
// classes still sees the school-wide rows.
type AnnouncementService struct {
	repo      announcementRepository
	resolver  scopeResolver
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, resolver scopeResolver, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{repo: repo, resolver: resolver, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// AnnouncementRequest describes the create and update payload. A nil ClassID
// addresses the whole school.
type AnnouncementRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description" validate:"required"`
	Date        time.Time `json:"date" validate:"required"`
	ClassID     *string   `json:"class_id" validate:"omitempty,uuid"`
}

type announcementListPayload struct {
	Rows       []models.AnnouncementDetail `json:"rows"`
	Pagination *models.Pagination          `json:"pagination"`
}

// List returns the announcements visible to the actor.
func (s *AnnouncementService) List(ctx context.Context, actor models.Actor, filter models.AnnouncementFilter) ([]models.AnnouncementDetail, *models.Pagination, error) {
	sc, err := resolveScope(ctx, s.metrics, "announcement", actor, s.resolver.ForAudience)
	if err != nil {
		return nil, nil, err
	}
	filter.PageRequest = filter.PageRequest.Normalize()
	if sc.Denied() {
		return []models.AnnouncementDetail{}, models.NewPagination(filter.PageRequest, 0), nil
	}

	key := cachekey.New("announcement", "list").
		With("page", filter.Page).
		With("size", filter.PageSize).
		With("sort", filter.SortBy+":"+filter.SortOrder).
		With("search", filter.Search).
		With("class", filter.ClassID).
		With("scope", scopeSignature(sc)).
		String()

	var cached announcementListPayload
	if s.cache.Get(ctx, key, &cached) {
		return cached.Rows, cached.Pagination, nil
	}

	v, err := s.cache.Do(key, func() (interface{}, error) {
		start := time.Now()
		announcements, total, err := s.repo.List(ctx, filter, sc)
		if s.metrics != nil {
			s.metrics.ObserveStoreQuery("announcement", "list", time.Since(start))
		}
		if err != nil {
			return nil, mapStoreError(err, "failed to list announcements")
		}
		payload := announcementListPayload{Rows: announcements, Pagination: models.NewPagination(filter.PageRequest, total)}
		s.cache.Set(ctx, key, payload)
		return payload, nil
	})
	if err != nil {
		return nil, nil, err
	}
	payload := v.(announcementListPayload)
	return payload.Rows, payload.Pagination, nil
}

// Get returns one announcement if the actor's scope admits it. School-wide
// rows are visible to every authenticated actor.
func (s *AnnouncementService) Get(ctx context.Context, actor models.Actor, id string) (*models.AnnouncementDetail, error) {
	sc, err := resolveScope(ctx, s.metrics, "announcement", actor, s.resolver.ForAudience)
	if err != nil {
		return nil, err
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to fetch announcement")
	}
	classID := ""
	if detail.ClassID != nil {
		classID = *detail.ClassID
	}
	if !scopeAdmits(sc, map[scope.Dimension]string{scope.ByClass: classID}) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "")
	}
	return detail, nil
}

// Create publishes an announcement.
func (s *AnnouncementService) Create(ctx context.Context, req AnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	announcement := &models.Announcement{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		ClassID:     req.ClassID,
	}
	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, mapStoreError(err, "failed to create announcement")
	}
	s.logger.Info("announcement created", zap.String("announcement_id", announcement.ID))
	s.cache.Invalidate(ctx, cachekey.Prefix("announcement"))
	return announcement, nil
}

// Update modifies an announcement.
func (s *AnnouncementService) Update(ctx context.Context, id string, req AnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	announcement := &models.Announcement{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		ClassID:     req.ClassID,
	}
	if err := s.repo.Update(ctx, announcement); err != nil {
		return nil, mapStoreError(err, "failed to update announcement")
	}
	s.cache.Invalidate(ctx, cachekey.Prefix("announcement"))
	return announcement, nil
}

// Delete removes an announcement. A second delete of the same id reports
// NOT_FOUND.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "failed to delete announcement")
	}
	s.cache.Invalidate(ctx, cachekey.Prefix("announcement"))
	return nil
}

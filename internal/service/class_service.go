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

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter, sc scope.Scope) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ClassDetail, error)
	SubjectIDs(ctx context.Context, classID string) ([]string, error)
	Create(ctx context.Context, class *models.Class, subjectIDs []string) error
	Update(ctx context.Context, class *models.Class, subjectIDs []string) error
	Delete(ctx context.Context, id string) error
}

// ClassService handles homeroom groups. Non-admin actors see only the
// classes their scope resolves to. List results are cached per scope and
// filter combination.
type ClassService struct {
	repo      classRepository
	resolver  scopeResolver
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs the service.
func NewClassService(repo classRepository, resolver scopeResolver, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, resolver: resolver, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// CreateClassRequest describes the create payload.
type CreateClassRequest struct {
	Name         string   `json:"name" validate:"required"`
	Capacity     int      `json:"capacity" validate:"required,min=1"`
	GradeLevel   int      `json:"grade_level" validate:"required,min=1"`
	SupervisorID *string  `json:"supervisor_id" validate:"omitempty,uuid"`
	SubjectIDs   []string `json:"subject_ids" validate:"omitempty,dive,uuid"`
}

// UpdateClassRequest describes the update payload.
type UpdateClassRequest CreateClassRequest

type classListPayload struct {
	Rows       []models.ClassDetail `json:"rows"`
	Pagination *models.Pagination   `json:"pagination"`
}

// List returns the classes visible to the actor.
func (s *ClassService) List(ctx context.Context, actor models.Actor, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	sc, err := resolveScope(ctx, s.metrics, "class", actor, s.resolver.ForClasses)
	if err != nil {
		return nil, nil, err
	}
	filter.PageRequest = filter.PageRequest.Normalize()
	if sc.Denied() {
		return []models.ClassDetail{}, models.NewPagination(filter.PageRequest, 0), nil
	}

	key := cachekey.New("class", "list").
		With("page", filter.Page).
		With("size", filter.PageSize).
		With("sort", filter.SortBy+":"+filter.SortOrder).
		With("search", filter.Search).
		With("supervisor", filter.SupervisorID).
		With("grade", filter.GradeLevel).
		With("scope", scopeSignature(sc)).
		String()

	var cached classListPayload
	if s.cache.Get(ctx, key, &cached) {
		return cached.Rows, cached.Pagination, nil
	}

	v, err := s.cache.Do(key, func() (interface{}, error) {
		start := time.Now()
		classes, total, err := s.repo.List(ctx, filter, sc)
		if s.metrics != nil {
			s.metrics.ObserveStoreQuery("class", "list", time.Since(start))
		}
		if err != nil {
			return nil, mapStoreError(err, "failed to list classes")
		}
		payload := classListPayload{Rows: classes, Pagination: models.NewPagination(filter.PageRequest, total)}
		s.cache.Set(ctx, key, payload)
		return payload, nil
	})
	if err != nil {
		return nil, nil, err
	}
	payload := v.(classListPayload)
	return payload.Rows, payload.Pagination, nil
}

// Get returns one class if the actor's scope admits it.
func (s *ClassService) Get(ctx context.Context, actor models.Actor, id string) (*models.ClassDetail, error) {
	sc, err := resolveScope(ctx, s.metrics, "class", actor, s.resolver.ForClasses)
	if err != nil {
		return nil, err
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to fetch class")
	}
	if !scopeAdmits(sc, map[scope.Dimension]string{scope.ByID: detail.ID}) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "")
	}
	return detail, nil
}

// Create registers a class together with its subject links in one
// transaction.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	class := &models.Class{
		Name:         req.Name,
		Capacity:     req.Capacity,
		GradeLevel:   req.GradeLevel,
		SupervisorID: req.SupervisorID,
	}
	if err := s.repo.Create(ctx, class, req.SubjectIDs); err != nil {
		return nil, mapStoreError(err, "failed to create class")
	}
	s.logger.Info("class created", zap.String("class_id", class.ID))
	s.cache.Invalidate(ctx, cachekey.Prefix("class"), cachekey.Prefix("subject"))
	return class, nil
}

// Update modifies a class and reconciles its subject links.
func (s *ClassService) Update(ctx context.Context, id string, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(CreateClassRequest(req)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	class := &models.Class{
		ID:           id,
		Name:         req.Name,
		Capacity:     req.Capacity,
		GradeLevel:   req.GradeLevel,
		SupervisorID: req.SupervisorID,
	}
	if err := s.repo.Update(ctx, class, req.SubjectIDs); err != nil {
		return nil, mapStoreError(err, "failed to update class")
	}
	s.cache.Invalidate(ctx, cachekey.Prefix("class"), cachekey.Prefix("subject"))
	return class, nil
}

// Delete removes a class unless students, lessons, announcements or events
// still reference it.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "failed to delete class")
	}
	s.cache.Invalidate(ctx, cachekey.Prefix("class"), cachekey.Prefix("subject"))
	return nil
}

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

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter, sc scope.Scope) ([]models.Subject, int, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

// SubjectService handles academic subjects. Teachers see their assigned
// subjects, students and parents the subjects taught in their classes.
type SubjectService struct {
	repo      subjectRepository
	resolver  scopeResolver
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs the service.
func NewSubjectService(repo subjectRepository, resolver scopeResolver, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, resolver: resolver, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// SubjectRequest describes the create and update payload.
type SubjectRequest struct {
	Name string `json:"name" validate:"required"`
}

type subjectListPayload struct {
	Rows       []models.Subject   `json:"rows"`
	Pagination *models.Pagination `json:"pagination"`
}

// List returns the subjects visible to the actor.
func (s *SubjectService) List(ctx context.Context, actor models.Actor, filter models.SubjectFilter) ([]models.Subject, *models.Pagination, error) {
	sc, err := resolveScope(ctx, s.metrics, "subject", actor, s.resolver.ForSubjects)
	if err != nil {
		return nil, nil, err
	}
	filter.PageRequest = filter.PageRequest.Normalize()
	if sc.Denied() {
		return []models.Subject{}, models.NewPagination(filter.PageRequest, 0), nil
	}

	key := cachekey.New("subject", "list").
		With("page", filter.Page).
		With("size", filter.PageSize).
		With("sort", filter.SortBy+":"+filter.SortOrder).
		With("search", filter.Search).
		With("teacher", filter.TeacherID).
		With("scope", scopeSignature(sc)).
		String()

	var cached subjectListPayload
	if s.cache.Get(ctx, key, &cached) {
		return cached.Rows, cached.Pagination, nil
	}

	v, err := s.cache.Do(key, func() (interface{}, error) {
		start := time.Now()
		subjects, total, err := s.repo.List(ctx, filter, sc)
		if s.metrics != nil {
			s.metrics.ObserveStoreQuery("subject", "list", time.Since(start))
		}
		if err != nil {
			return nil, mapStoreError(err, "failed to list subjects")
		}
		payload := subjectListPayload{Rows: subjects, Pagination: models.NewPagination(filter.PageRequest, total)}
		s.cache.Set(ctx, key, payload)
		return payload, nil
	})
	if err != nil {
		return nil, nil, err
	}
	payload := v.(subjectListPayload)
	return payload.Rows, payload.Pagination, nil
}

// Get returns one subject if the actor's scope admits it.
func (s *SubjectService) Get(ctx context.Context, actor models.Actor, id string) (*models.Subject, error) {
	sc, err := resolveScope(ctx, s.metrics, "subject", actor, s.resolver.ForSubjects)
	if err != nil {
		return nil, err
	}
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to fetch subject")
	}
	if !scopeAdmits(sc, map[scope.Dimension]string{scope.ByID: subject.ID}) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "")
	}
	return subject, nil
}

// Create registers a subject. Names are unique.
func (s *SubjectService) Create(ctx context.Context, req SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	taken, err := s.repo.ExistsByName(ctx, req.Name, "")
	if err != nil {
		return nil, mapStoreError(err, "failed to check subject name")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject name already in use")
	}
	subject := &models.Subject{Name: req.Name}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, mapStoreError(err, "failed to create subject")
	}
	s.logger.Info("subject created", zap.String("subject_id", subject.ID))
	s.cache.Invalidate(ctx, cachekey.Prefix("subject"))
	return subject, nil
}

// Update renames a subject while keeping names unique.
func (s *SubjectService) Update(ctx context.Context, id string, req SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	taken, err := s.repo.ExistsByName(ctx, req.Name, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to check subject name")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject name already in use")
	}
	subject := &models.Subject{ID: id, Name: req.Name}
	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, mapStoreError(err, "failed to update subject")
	}
	s.cache.Invalidate(ctx, cachekey.Prefix("subject"), cachekey.Prefix("lesson"))
	return subject, nil
}

// Delete removes a subject unless lessons still reference it. Teacher and
// class links are cleared in the same transaction.
func (s *SubjectService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "failed to delete subject")
	}
	s.cache.Invalidate(ctx, cachekey.Prefix("subject"))
	return nil
}

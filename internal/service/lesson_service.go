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

type lessonRepository interface {
	List(ctx context.Context, filter models.LessonFilter, sc scope.Scope) ([]models.LessonDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.LessonDetail, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id string) error
}

// LessonService handles the teaching schedule. Teachers see their own
// lessons, students and parents the lessons of their class set.
type LessonService struct {
	repo      lessonRepository
	resolver  scopeResolver
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLessonService constructs the service.
func NewLessonService(repo lessonRepository, resolver scopeResolver, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{repo: repo, resolver: resolver, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// LessonRequest describes the create and update payload.
type LessonRequest struct {
	Name      string    `json:"name" validate:"required"`
	Day       string    `json:"day" validate:"required,oneof=MONDAY TUESDAY WEDNESDAY THURSDAY FRIDAY"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	SubjectID string    `json:"subject_id" validate:"required,uuid"`
	ClassID   string    `json:"class_id" validate:"required,uuid"`
	TeacherID string    `json:"teacher_id" validate:"required,uuid"`
}

type lessonListPayload struct {
	Rows       []models.LessonDetail `json:"rows"`
	Pagination *models.Pagination    `json:"pagination"`
}

// List returns the lessons visible to the actor.
func (s *LessonService) List(ctx context.Context, actor models.Actor, filter models.LessonFilter) ([]models.LessonDetail, *models.Pagination, error) {
	sc, err := resolveScope(ctx, s.metrics, "lesson", actor, s.resolver.ForLessons)
	if err != nil {
		return nil, nil, err
	}
	filter.PageRequest = filter.PageRequest.Normalize()
	sc, filter.TeacherID = intersectFilter(sc, scope.ByTeacher, filter.TeacherID)
	sc, filter.ClassID = intersectFilter(sc, scope.ByClass, filter.ClassID)
	if sc.Denied() {
		return []models.LessonDetail{}, models.NewPagination(filter.PageRequest, 0), nil
	}

	key := cachekey.New("lesson", "list").
		With("page", filter.Page).
		With("size", filter.PageSize).
		With("sort", filter.SortBy+":"+filter.SortOrder).
		With("search", filter.Search).
		With("class", filter.ClassID).
		With("teacher", filter.TeacherID).
		With("subject", filter.SubjectID).
		With("scope", scopeSignature(sc)).
		String()

	var cached lessonListPayload
	if s.cache.Get(ctx, key, &cached) {
		return cached.Rows, cached.Pagination, nil
	}

	v, err := s.cache.Do(key, func() (interface{}, error) {
		start := time.Now()
		lessons, total, err := s.repo.List(ctx, filter, sc)
		if s.metrics != nil {
			s.metrics.ObserveStoreQuery("lesson", "list", time.Since(start))
		}
		if err != nil {
			return nil, mapStoreError(err, "failed to list lessons")
		}
		payload := lessonListPayload{Rows: lessons, Pagination: models.NewPagination(filter.PageRequest, total)}
		s.cache.Set(ctx, key, payload)
		return payload, nil
	})
	if err != nil {
		return nil, nil, err
	}
	payload := v.(lessonListPayload)
	return payload.Rows, payload.Pagination, nil
}

// Get returns one lesson if the actor's scope admits it.
func (s *LessonService) Get(ctx context.Context, actor models.Actor, id string) (*models.LessonDetail, error) {
	sc, err := resolveScope(ctx, s.metrics, "lesson", actor, s.resolver.ForLessons)
	if err != nil {
		return nil, err
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to fetch lesson")
	}
	if !scopeAdmits(sc, map[scope.Dimension]string{
		scope.ByTeacher: detail.TeacherID,
		scope.ByClass:   detail.ClassID,
	}) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "")
	}
	return detail, nil
}

// Create schedules a lesson.
func (s *LessonService) Create(ctx context.Context, req LessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	lesson := &models.Lesson{
		Name:      req.Name,
		Day:       req.Day,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		SubjectID: req.SubjectID,
		ClassID:   req.ClassID,
		TeacherID: req.TeacherID,
	}
	if err := s.repo.Create(ctx, lesson); err != nil {
		return nil, mapStoreError(err, "failed to create lesson")
	}
	s.logger.Info("lesson created", zap.String("lesson_id", lesson.ID), zap.String("teacher_id", lesson.TeacherID))
	s.cache.Invalidate(ctx, cachekey.Prefix("lesson"))
	return lesson, nil
}

// Update modifies a lesson.
func (s *LessonService) Update(ctx context.Context, id string, req LessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	lesson := &models.Lesson{
		ID:        id,
		Name:      req.Name,
		Day:       req.Day,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		SubjectID: req.SubjectID,
		ClassID:   req.ClassID,
		TeacherID: req.TeacherID,
	}
	if err := s.repo.Update(ctx, lesson); err != nil {
		return nil, mapStoreError(err, "failed to update lesson")
	}
	s.cache.Invalidate(ctx, cachekey.Prefix("lesson"))
	return lesson, nil
}

// Delete removes a lesson unless exams, assignments or attendances still
// reference it.
func (s *LessonService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "failed to delete lesson")
	}
	s.cache.Invalidate(ctx, cachekey.Prefix("lesson"))
	return nil
}

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

type eventRepository interface {
	List(ctx context.Context, filter models.EventFilter, sc scope.Scope) ([]models.EventDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.EventDetail, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
}

// EventService handles school events with the same audience rules as
// announcements: class-addressed rows plus school-wide ones.
type EventService struct {
	repo      eventRepository
	resolver  scopeResolver
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventService constructs the service.
func NewEventService(repo eventRepository, resolver scopeResolver, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{repo: repo, resolver: resolver, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// EventRequest describes the create and update payload. A nil ClassID
// addresses the whole school.
type EventRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description" validate:"required"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	ClassID     *string   `json:"class_id" validate:"omitempty,uuid"`
}

type eventListPayload struct {
	Rows       []models.EventDetail `json:"rows"`
	Pagination *models.Pagination   `json:"pagination"`
}

// List returns the events visible to the actor.
func (s *EventService) List(ctx context.Context, actor models.Actor, filter models.EventFilter) ([]models.EventDetail, *models.Pagination, error) {
	sc, err := resolveScope(ctx, s.metrics, "event", actor, s.resolver.ForAudience)
	if err != nil {
		return nil, nil, err
	}
	filter.PageRequest = filter.PageRequest.Normalize()
	if sc.Denied() {
		return []models.EventDetail{}, models.NewPagination(filter.PageRequest, 0), nil
	}

	key := cachekey.New("event", "list").
		With("page", filter.Page).
		With("size", filter.PageSize).
		With("sort", filter.SortBy+":"+filter.SortOrder).
		With("search", filter.Search).
		With("class", filter.ClassID).
		With("scope", scopeSignature(sc)).
		String()

	var cached eventListPayload
	if s.cache.Get(ctx, key, &cached) {
		return cached.Rows, cached.Pagination, nil
	}

	v, err := s.cache.Do(key, func() (interface{}, error) {
		start := time.Now()
		events, total, err := s.repo.List(ctx, filter, sc)
		if s.metrics != nil {
			s.metrics.ObserveStoreQuery("event", "list", time.Since(start))
		}
		if err != nil {
			return nil, mapStoreError(err, "failed to list events")
		}
		payload := eventListPayload{Rows: events, Pagination: models.NewPagination(filter.PageRequest, total)}
		s.cache.Set(ctx, key, payload)
		return payload, nil
	})
	if err != nil {
		return nil, nil, err
	}
	payload := v.(eventListPayload)
	return payload.Rows, payload.Pagination, nil
}

// Get returns one event if the actor's scope admits it.
func (s *EventService) Get(ctx context.Context, actor models.Actor, id string) (*models.EventDetail, error) {
	sc, err := resolveScope(ctx, s.metrics, "event", actor, s.resolver.ForAudience)
	if err != nil {
		return nil, err
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to fetch event")
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

// Create publishes an event.
func (s *EventService) Create(ctx context.Context, req EventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	event := &models.Event{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		ClassID:     req.ClassID,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, mapStoreError(err, "failed to create event")
	}
	s.logger.Info("event created", zap.String("event_id", event.ID))
	s.cache.Invalidate(ctx, cachekey.Prefix("event"))
	return event, nil
}

// Update modifies an event.
func (s *EventService) Update(ctx context.Context, id string, req EventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	event := &models.Event{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		ClassID:     req.ClassID,
	}
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, mapStoreError(err, "failed to update event")
	}
	s.cache.Invalidate(ctx, cachekey.Prefix("event"))
	return event, nil
}

// Delete removes an event. A second delete of the same id reports NOT_FOUND.
func (s *EventService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "failed to delete event")
	}
	s.cache.Invalidate(ctx, cachekey.Prefix("event"))
	return nil
}

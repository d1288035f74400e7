package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skooldesk/skooldesk-api/internal/models"
	"github.com/skooldesk/skooldesk-api/internal/scope"
	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
)

type assignmentRepository interface {
	List(ctx context.Context, filter models.AssignmentFilter, sc scope.Scope) ([]models.AssignmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error)
	LessonTeacherID(ctx context.Context, lessonID string) (string, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
}

// AssignmentService handles homework. Reads follow lesson visibility;
// teachers may only mutate assignments attached to their own lessons.
type AssignmentService struct {
	repo      assignmentRepository
	resolver  scopeResolver
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs the service.
func NewAssignmentService(repo assignmentRepository, resolver scopeResolver, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, resolver: resolver, metrics: metrics, validator: validate, logger: logger}
}

// AssignmentRequest describes the create and update payload.
type AssignmentRequest struct {
	Title     string    `json:"title" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	DueDate   time.Time `json:"due_date" validate:"required,gtfield=StartDate"`
	LessonID  string    `json:"lesson_id" validate:"required,uuid"`
}

// List returns the assignments visible to the actor.
func (s *AssignmentService) List(ctx context.Context, actor models.Actor, filter models.AssignmentFilter) ([]models.AssignmentDetail, *models.Pagination, error) {
	sc, err := resolveScope(ctx, s.metrics, "assignment", actor, s.resolver.ForLessons)
	if err != nil {
		return nil, nil, err
	}
	filter.PageRequest = filter.PageRequest.Normalize()
	sc, filter.TeacherID = intersectFilter(sc, scope.ByTeacher, filter.TeacherID)
	sc, filter.ClassID = intersectFilter(sc, scope.ByClass, filter.ClassID)
	if sc.Denied() {
		return []models.AssignmentDetail{}, models.NewPagination(filter.PageRequest, 0), nil
	}

	start := time.Now()
	assignments, total, err := s.repo.List(ctx, filter, sc)
	if s.metrics != nil {
		s.metrics.ObserveStoreQuery("assignment", "list", time.Since(start))
	}
	if err != nil {
		return nil, nil, mapStoreError(err, "failed to list assignments")
	}
	return assignments, models.NewPagination(filter.PageRequest, total), nil
}

// Get returns one assignment if the actor's scope admits it.
func (s *AssignmentService) Get(ctx context.Context, actor models.Actor, id string) (*models.AssignmentDetail, error) {
	sc, err := resolveScope(ctx, s.metrics, "assignment", actor, s.resolver.ForLessons)
	if err != nil {
		return nil, err
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to fetch assignment")
	}
	if !scopeAdmits(sc, map[scope.Dimension]string{
		scope.ByTeacher: detail.TeacherID,
		scope.ByClass:   detail.ClassID,
	}) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "")
	}
	return detail, nil
}

func (s *AssignmentService) assertLessonOwnership(ctx context.Context, actor models.Actor, lessonID string) error {
	if actor.Role != models.RoleTeacher {
		return nil
	}
	teacherID, err := s.repo.LessonTeacherID(ctx, lessonID)
	if err != nil {
		return mapStoreError(err, "failed to verify lesson ownership")
	}
	if teacherID != actor.ProfileID {
		return appErrors.Clone(appErrors.ErrForbidden, "lesson belongs to another teacher")
	}
	return nil
}

// Create adds an assignment on a lesson the actor owns.
func (s *AssignmentService) Create(ctx context.Context, actor models.Actor, req AssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if err := s.assertLessonOwnership(ctx, actor, req.LessonID); err != nil {
		return nil, err
	}
	assignment := &models.Assignment{
		Title:     req.Title,
		StartDate: req.StartDate,
		DueDate:   req.DueDate,
		LessonID:  req.LessonID,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, mapStoreError(err, "failed to create assignment")
	}
	s.logger.Info("assignment created", zap.String("assignment_id", assignment.ID), zap.String("lesson_id", assignment.LessonID))
	return assignment, nil
}

// Update modifies an assignment the actor owns.
func (s *AssignmentService) Update(ctx context.Context, actor models.Actor, id string, req AssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to fetch assignment")
	}
	if actor.Role == models.RoleTeacher && existing.TeacherID != actor.ProfileID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another teacher")
	}
	if err := s.assertLessonOwnership(ctx, actor, req.LessonID); err != nil {
		return nil, err
	}
	assignment := &models.Assignment{
		ID:        id,
		Title:     req.Title,
		StartDate: req.StartDate,
		DueDate:   req.DueDate,
		LessonID:  req.LessonID,
	}
	if err := s.repo.Update(ctx, assignment); err != nil {
		return nil, mapStoreError(err, "failed to update assignment")
	}
	return assignment, nil
}

// Delete removes an assignment the actor owns unless results still reference
// it.
func (s *AssignmentService) Delete(ctx context.Context, actor models.Actor, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return mapStoreError(err, "failed to fetch assignment")
	}
	if actor.Role == models.RoleTeacher && existing.TeacherID != actor.ProfileID {
		return appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another teacher")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "failed to delete assignment")
	}
	return nil
}

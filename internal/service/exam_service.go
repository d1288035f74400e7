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

type examRepository interface {
	List(ctx context.Context, filter models.ExamFilter, sc scope.Scope) ([]models.ExamDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ExamDetail, error)
	LessonTeacherID(ctx context.Context, lessonID string) (string, error)
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id string) error
}

// ExamService handles examinations. Reads follow lesson visibility; teachers
// may only mutate exams attached to their own lessons.
type ExamService struct {
	repo      examRepository
	resolver  scopeResolver
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs the service.
func NewExamService(repo examRepository, resolver scopeResolver, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{repo: repo, resolver: resolver, metrics: metrics, validator: validate, logger: logger}
}

// ExamRequest describes the create and update payload.
type ExamRequest struct {
	Title     string    `json:"title" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	LessonID  string    `json:"lesson_id" validate:"required,uuid"`
}

// List returns the exams visible to the actor.
func (s *ExamService) List(ctx context.Context, actor models.Actor, filter models.ExamFilter) ([]models.ExamDetail, *models.Pagination, error) {
	sc, err := resolveScope(ctx, s.metrics, "exam", actor, s.resolver.ForLessons)
	if err != nil {
		return nil, nil, err
	}
	filter.PageRequest = filter.PageRequest.Normalize()
	sc, filter.TeacherID = intersectFilter(sc, scope.ByTeacher, filter.TeacherID)
	sc, filter.ClassID = intersectFilter(sc, scope.ByClass, filter.ClassID)
	if sc.Denied() {
		return []models.ExamDetail{}, models.NewPagination(filter.PageRequest, 0), nil
	}

	start := time.Now()
	exams, total, err := s.repo.List(ctx, filter, sc)
	if s.metrics != nil {
		s.metrics.ObserveStoreQuery("exam", "list", time.Since(start))
	}
	if err != nil {
		return nil, nil, mapStoreError(err, "failed to list exams")
	}
	return exams, models.NewPagination(filter.PageRequest, total), nil
}

// Get returns one exam if the actor's scope admits it.
func (s *ExamService) Get(ctx context.Context, actor models.Actor, id string) (*models.ExamDetail, error) {
	sc, err := resolveScope(ctx, s.metrics, "exam", actor, s.resolver.ForLessons)
	if err != nil {
		return nil, err
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to fetch exam")
	}
	if !scopeAdmits(sc, map[scope.Dimension]string{
		scope.ByTeacher: detail.TeacherID,
		scope.ByClass:   detail.ClassID,
	}) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "")
	}
	return detail, nil
}

// assertLessonOwnership refuses teacher-role mutations against lessons owned
// by another teacher. Admins pass.
func (s *ExamService) assertLessonOwnership(ctx context.Context, actor models.Actor, lessonID string) error {
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

// Create schedules an exam on a lesson the actor owns.
func (s *ExamService) Create(ctx context.Context, actor models.Actor, req ExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if err := s.assertLessonOwnership(ctx, actor, req.LessonID); err != nil {
		return nil, err
	}
	exam := &models.Exam{
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		LessonID:  req.LessonID,
	}
	if err := s.repo.Create(ctx, exam); err != nil {
		return nil, mapStoreError(err, "failed to create exam")
	}
	s.logger.Info("exam created", zap.String("exam_id", exam.ID), zap.String("lesson_id", exam.LessonID))
	return exam, nil
}

// Update modifies an exam the actor owns. Moving the exam onto another
// teacher's lesson is refused too.
func (s *ExamService) Update(ctx context.Context, actor models.Actor, id string, req ExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to fetch exam")
	}
	if actor.Role == models.RoleTeacher && existing.TeacherID != actor.ProfileID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exam belongs to another teacher")
	}
	if err := s.assertLessonOwnership(ctx, actor, req.LessonID); err != nil {
		return nil, err
	}
	exam := &models.Exam{
		ID:        id,
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		LessonID:  req.LessonID,
	}
	if err := s.repo.Update(ctx, exam); err != nil {
		return nil, mapStoreError(err, "failed to update exam")
	}
	return exam, nil
}

// Delete removes an exam the actor owns unless results still reference it.
func (s *ExamService) Delete(ctx context.Context, actor models.Actor, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return mapStoreError(err, "failed to fetch exam")
	}
	if actor.Role == models.RoleTeacher && existing.TeacherID != actor.ProfileID {
		return appErrors.Clone(appErrors.ErrForbidden, "exam belongs to another teacher")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "failed to delete exam")
	}
	return nil
}

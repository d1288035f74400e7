package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skooldesk/skooldesk-api/internal/models"
	"github.com/skooldesk/skooldesk-api/internal/scope"
	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
	"github.com/skooldesk/skooldesk-api/pkg/export"
)

type attendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter, sc scope.Scope) ([]models.AttendanceDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.AttendanceDetail, error)
	LessonTeacherID(ctx context.Context, lessonID string) (string, error)
	Create(ctx context.Context, attendance *models.Attendance) error
	Update(ctx context.Context, attendance *models.Attendance) error
	Delete(ctx context.Context, id string) error
}

// AttendanceService handles presence records. Teachers see records of their
// own lessons, students their own rows, parents the union of their children.
type AttendanceService struct {
	repo      attendanceRepository
	resolver  scopeResolver
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the service.
func NewAttendanceService(repo attendanceRepository, resolver scopeResolver, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, resolver: resolver, metrics: metrics, validator: validate, logger: logger}
}

// AttendanceRequest describes the create and update payload.
type AttendanceRequest struct {
	Date      time.Time `json:"date" validate:"required"`
	Present   *bool     `json:"present" validate:"required"`
	StudentID string    `json:"student_id" validate:"required,uuid"`
	LessonID  string    `json:"lesson_id" validate:"required,uuid"`
}

// List returns the attendance records visible to the actor.
func (s *AttendanceService) List(ctx context.Context, actor models.Actor, filter models.AttendanceFilter) ([]models.AttendanceDetail, *models.Pagination, error) {
	sc, err := resolveScope(ctx, s.metrics, "attendance", actor, s.resolver.ForEnrollmentRecords)
	if err != nil {
		return nil, nil, err
	}
	filter.PageRequest = filter.PageRequest.Normalize()
	sc, filter.StudentID = intersectFilter(sc, scope.ByStudent, filter.StudentID)
	if sc.Denied() {
		return []models.AttendanceDetail{}, models.NewPagination(filter.PageRequest, 0), nil
	}

	start := time.Now()
	attendances, total, err := s.repo.List(ctx, filter, sc)
	if s.metrics != nil {
		s.metrics.ObserveStoreQuery("attendance", "list", time.Since(start))
	}
	if err != nil {
		return nil, nil, mapStoreError(err, "failed to list attendances")
	}
	return attendances, models.NewPagination(filter.PageRequest, total), nil
}

// Get returns one attendance record if the actor's scope admits it.
func (s *AttendanceService) Get(ctx context.Context, actor models.Actor, id string) (*models.AttendanceDetail, error) {
	sc, err := resolveScope(ctx, s.metrics, "attendance", actor, s.resolver.ForEnrollmentRecords)
	if err != nil {
		return nil, err
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to fetch attendance")
	}
	if !scopeAdmits(sc, map[scope.Dimension]string{
		scope.ByTeacher: detail.TeacherID,
		scope.ByStudent: detail.StudentID,
	}) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "")
	}
	return detail, nil
}

// Export renders the actor's visible attendance records as a dataset for
// CSV or PDF download. The current filter window applies.
func (s *AttendanceService) Export(ctx context.Context, actor models.Actor, filter models.AttendanceFilter) (*export.Dataset, error) {
	filter.PageSize = models.MaxPageSize
	rows, _, err := s.List(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	dataset := &export.Dataset{
		Title:   "Attendance Report",
		Headers: []string{"Date", "Student", "Lesson", "Present"},
	}
	for _, row := range rows {
		present := "No"
		if row.Present {
			present = "Yes"
		}
		dataset.Rows = append(dataset.Rows, []string{
			row.Date.Format("2006-01-02"),
			fmt.Sprintf("%s %s", row.StudentName, row.StudentSurname),
			row.LessonName,
			present,
		})
	}
	return dataset, nil
}

func (s *AttendanceService) assertLessonOwnership(ctx context.Context, actor models.Actor, lessonID string) error {
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

// Create records presence for a student in a lesson the actor owns.
func (s *AttendanceService) Create(ctx context.Context, actor models.Actor, req AttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if err := s.assertLessonOwnership(ctx, actor, req.LessonID); err != nil {
		return nil, err
	}
	attendance := &models.Attendance{
		Date:      req.Date,
		Present:   *req.Present,
		StudentID: req.StudentID,
		LessonID:  req.LessonID,
	}
	if err := s.repo.Create(ctx, attendance); err != nil {
		return nil, mapStoreError(err, "failed to create attendance")
	}
	return attendance, nil
}

// Update modifies an attendance record in a lesson the actor owns.
func (s *AttendanceService) Update(ctx context.Context, actor models.Actor, id string, req AttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to fetch attendance")
	}
	if actor.Role == models.RoleTeacher && existing.TeacherID != actor.ProfileID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "attendance belongs to another teacher's lesson")
	}
	if err := s.assertLessonOwnership(ctx, actor, req.LessonID); err != nil {
		return nil, err
	}
	attendance := &models.Attendance{
		ID:        id,
		Date:      req.Date,
		Present:   *req.Present,
		StudentID: req.StudentID,
		LessonID:  req.LessonID,
	}
	if err := s.repo.Update(ctx, attendance); err != nil {
		return nil, mapStoreError(err, "failed to update attendance")
	}
	return attendance, nil
}

// Delete removes an attendance record in a lesson the actor owns. A second
// delete of the same id reports NOT_FOUND.
func (s *AttendanceService) Delete(ctx context.Context, actor models.Actor, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return mapStoreError(err, "failed to fetch attendance")
	}
	if actor.Role == models.RoleTeacher && existing.TeacherID != actor.ProfileID {
		return appErrors.Clone(appErrors.ErrForbidden, "attendance belongs to another teacher's lesson")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "failed to delete attendance")
	}
	return nil
}

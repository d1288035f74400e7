package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skooldesk/skooldesk-api/internal/models"
	"github.com/skooldesk/skooldesk-api/internal/postfetch"
	"github.com/skooldesk/skooldesk-api/internal/scope"
	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
	"github.com/skooldesk/skooldesk-api/pkg/export"
)

type resultRepository interface {
	List(ctx context.Context, filter models.ResultFilter, sc scope.Scope) ([]models.ResultDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ResultDetail, error)
	AssessmentTeacherID(ctx context.Context, examID, assignmentID *string) (string, error)
	Create(ctx context.Context, result *models.Result) error
	Update(ctx context.Context, result *models.Result) error
	Delete(ctx context.Context, id string) error
}

// ResultService handles scores. Every result references exactly one of an
// exam or an assignment, so its display title is heterogeneous; free-text
// search therefore runs after the fetch, over the current page, and both the
// pre-filter and post-filter counts are reported.
type ResultService struct {
	repo      resultRepository
	resolver  scopeResolver
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResultService constructs the service.
func NewResultService(repo resultRepository, resolver scopeResolver, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{repo: repo, resolver: resolver, metrics: metrics, validator: validate, logger: logger}
}

// ResultRequest describes the create and update payload. Exactly one of
// ExamID and AssignmentID must be set.
type ResultRequest struct {
	Score        int     `json:"score" validate:"min=0,max=100"`
	ExamID       *string `json:"exam_id" validate:"omitempty,uuid"`
	AssignmentID *string `json:"assignment_id" validate:"omitempty,uuid"`
	StudentID    string  `json:"student_id" validate:"required,uuid"`
}

func (r ResultRequest) assessmentRef() error {
	if (r.ExamID == nil) == (r.AssignmentID == nil) {
		return appErrors.Clone(appErrors.ErrValidation, "exactly one of exam_id and assignment_id must be set")
	}
	return nil
}

// List returns the results visible to the actor. When a search term is
// present it is applied after the fetch over the returned page.
func (s *ResultService) List(ctx context.Context, actor models.Actor, filter models.ResultFilter) ([]models.ResultDetail, *models.Pagination, *postfetch.Outcome, error) {
	sc, err := resolveScope(ctx, s.metrics, "result", actor, s.resolver.ForEnrollmentRecords)
	if err != nil {
		return nil, nil, nil, err
	}
	filter.PageRequest = filter.PageRequest.Normalize()
	sc, filter.StudentID = intersectFilter(sc, scope.ByStudent, filter.StudentID)
	if sc.Denied() {
		return []models.ResultDetail{}, models.NewPagination(filter.PageRequest, 0), nil, nil
	}

	start := time.Now()
	results, total, err := s.repo.List(ctx, filter, sc)
	if s.metrics != nil {
		s.metrics.ObserveStoreQuery("result", "list", time.Since(start))
	}
	if err != nil {
		return nil, nil, nil, mapStoreError(err, "failed to list results")
	}

	var outcome *postfetch.Outcome
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		filtered, oc := postfetch.Apply(results, func(r models.ResultDetail) bool {
			return strings.Contains(strings.ToLower(r.Title), needle) ||
				strings.Contains(strings.ToLower(r.StudentName), needle) ||
				strings.Contains(strings.ToLower(r.StudentSurname), needle)
		})
		results = filtered
		outcome = &oc
	}
	return results, models.NewPagination(filter.PageRequest, total), outcome, nil
}

// Get returns one result if the actor's scope admits it.
func (s *ResultService) Get(ctx context.Context, actor models.Actor, id string) (*models.ResultDetail, error) {
	sc, err := resolveScope(ctx, s.metrics, "result", actor, s.resolver.ForEnrollmentRecords)
	if err != nil {
		return nil, err
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to fetch result")
	}
	if !scopeAdmits(sc, map[scope.Dimension]string{
		scope.ByTeacher: detail.TeacherID,
		scope.ByStudent: detail.StudentID,
	}) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "")
	}
	return detail, nil
}

// Export renders the actor's visible results as a dataset for CSV or PDF
// download. The current filter window applies.
func (s *ResultService) Export(ctx context.Context, actor models.Actor, filter models.ResultFilter) (*export.Dataset, error) {
	filter.PageSize = models.MaxPageSize
	rows, _, _, err := s.List(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	dataset := &export.Dataset{
		Title:   "Results Report",
		Headers: []string{"Assessment", "Student", "Class", "Teacher", "Score"},
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, []string{
			row.Title,
			fmt.Sprintf("%s %s", row.StudentName, row.StudentSurname),
			row.ClassName,
			fmt.Sprintf("%s %s", row.TeacherName, row.TeacherSurname),
			strconv.Itoa(row.Score),
		})
	}
	return dataset, nil
}

// assertAssessmentOwnership refuses teacher-role mutations against
// assessments whose lesson belongs to another teacher.
func (s *ResultService) assertAssessmentOwnership(ctx context.Context, actor models.Actor, examID, assignmentID *string) error {
	if actor.Role != models.RoleTeacher {
		return nil
	}
	teacherID, err := s.repo.AssessmentTeacherID(ctx, examID, assignmentID)
	if err != nil {
		return mapStoreError(err, "failed to verify assessment ownership")
	}
	if teacherID != actor.ProfileID {
		return appErrors.Clone(appErrors.ErrForbidden, "assessment belongs to another teacher")
	}
	return nil
}

// Create records a score against an assessment the actor owns.
func (s *ResultService) Create(ctx context.Context, actor models.Actor, req ResultRequest) (*models.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if err := req.assessmentRef(); err != nil {
		return nil, err
	}
	if err := s.assertAssessmentOwnership(ctx, actor, req.ExamID, req.AssignmentID); err != nil {
		return nil, err
	}
	result := &models.Result{
		Score:        req.Score,
		ExamID:       req.ExamID,
		AssignmentID: req.AssignmentID,
		StudentID:    req.StudentID,
	}
	if err := s.repo.Create(ctx, result); err != nil {
		return nil, mapStoreError(err, "failed to create result")
	}
	s.logger.Info("result created", zap.String("result_id", result.ID), zap.String("student_id", result.StudentID))
	return result, nil
}

// Update modifies a result on an assessment the actor owns.
func (s *ResultService) Update(ctx context.Context, actor models.Actor, id string, req ResultRequest) (*models.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if err := req.assessmentRef(); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to fetch result")
	}
	if actor.Role == models.RoleTeacher && existing.TeacherID != actor.ProfileID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "result belongs to another teacher's assessment")
	}
	if err := s.assertAssessmentOwnership(ctx, actor, req.ExamID, req.AssignmentID); err != nil {
		return nil, err
	}
	result := &models.Result{
		ID:           id,
		Score:        req.Score,
		ExamID:       req.ExamID,
		AssignmentID: req.AssignmentID,
		StudentID:    req.StudentID,
	}
	if err := s.repo.Update(ctx, result); err != nil {
		return nil, mapStoreError(err, "failed to update result")
	}
	return result, nil
}

// Delete removes a result on an assessment the actor owns. A second delete
// of the same id reports NOT_FOUND.
func (s *ResultService) Delete(ctx context.Context, actor models.Actor, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return mapStoreError(err, "failed to fetch result")
	}
	if actor.Role == models.RoleTeacher && existing.TeacherID != actor.ProfileID {
		return appErrors.Clone(appErrors.ErrForbidden, "result belongs to another teacher's assessment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "failed to delete result")
	}
	return nil
}

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

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter, sc scope.Scope) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student, previousClassID string) error
	Delete(ctx context.Context, id string) error
}

// StudentService handles student reads and admin mutations. Reads are scoped:
// a teacher sees students of classes they supervise or teach in, a parent
// their own children, a student only themselves.
type StudentService struct {
	repo      studentRepository
	resolver  scopeResolver
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the service.
func NewStudentService(repo studentRepository, resolver scopeResolver, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, resolver: resolver, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// CreateStudentRequest describes the create payload.
type CreateStudentRequest struct {
	Username string    `json:"username" validate:"required"`
	Name     string    `json:"name" validate:"required"`
	Surname  string    `json:"surname" validate:"required"`
	Email    *string   `json:"email" validate:"omitempty,email"`
	Phone    *string   `json:"phone"`
	Address  string    `json:"address" validate:"required"`
	Sex      string    `json:"sex" validate:"required,oneof=MALE FEMALE"`
	Birthday time.Time `json:"birthday" validate:"required"`
	ClassID  string    `json:"class_id" validate:"required,uuid"`
	ParentID string    `json:"parent_id" validate:"required,uuid"`
}

// UpdateStudentRequest describes the update payload.
type UpdateStudentRequest CreateStudentRequest

// List returns the students visible to the actor.
func (s *StudentService) List(ctx context.Context, actor models.Actor, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	sc, err := resolveScope(ctx, s.metrics, "student", actor, s.resolver.ForStudents)
	if err != nil {
		return nil, nil, err
	}
	filter.PageRequest = filter.PageRequest.Normalize()
	sc, filter.ClassID = intersectFilter(sc, scope.ByClass, filter.ClassID)
	sc, filter.ParentID = intersectFilter(sc, scope.ByParent, filter.ParentID)
	if sc.Denied() {
		return []models.StudentDetail{}, models.NewPagination(filter.PageRequest, 0), nil
	}

	start := time.Now()
	students, total, err := s.repo.List(ctx, filter, sc)
	if s.metrics != nil {
		s.metrics.ObserveStoreQuery("student", "list", time.Since(start))
	}
	if err != nil {
		return nil, nil, mapStoreError(err, "failed to list students")
	}
	return students, models.NewPagination(filter.PageRequest, total), nil
}

// Get returns one student if the actor's scope admits it.
func (s *StudentService) Get(ctx context.Context, actor models.Actor, id string) (*models.StudentDetail, error) {
	sc, err := resolveScope(ctx, s.metrics, "student", actor, s.resolver.ForStudents)
	if err != nil {
		return nil, err
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to fetch student")
	}
	if !scopeAdmits(sc, map[scope.Dimension]string{
		scope.ByID:     detail.ID,
		scope.ByClass:  detail.ClassID,
		scope.ByParent: detail.ParentID,
	}) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "")
	}
	return detail, nil
}

// Create registers a student. The repository enforces class capacity
// atomically with the insert.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	student := &models.Student{
		Username: req.Username,
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
		Sex:      req.Sex,
		Birthday: req.Birthday,
		ClassID:  req.ClassID,
		ParentID: req.ParentID,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, mapStoreError(err, "failed to create student")
	}
	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("class_id", student.ClassID))
	s.cache.Invalidate(ctx, cachekey.Prefix("class"))
	return student, nil
}

// Update modifies a student. Capacity is re-checked only when the class
// changes.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(CreateStudentRequest(req)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to fetch student")
	}
	student := &models.Student{
		ID:       id,
		Username: req.Username,
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
		Sex:      req.Sex,
		Birthday: req.Birthday,
		ClassID:  req.ClassID,
		ParentID: req.ParentID,
	}
	if err := s.repo.Update(ctx, student, existing.ClassID); err != nil {
		return nil, mapStoreError(err, "failed to update student")
	}
	s.cache.Invalidate(ctx, cachekey.Prefix("class"))
	return student, nil
}

// Delete removes a student unless dependent records exist. Deleting an
// already-deleted student reports NOT_FOUND.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "failed to delete student")
	}
	s.cache.Invalidate(ctx, cachekey.Prefix("class"))
	return nil
}

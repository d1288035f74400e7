package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skooldesk/skooldesk-api/internal/cachekey"
	"github.com/skooldesk/skooldesk-api/internal/models"
	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	SubjectIDs(ctx context.Context, teacherID string) ([]string, error)
	Create(ctx context.Context, teacher *models.Teacher, subjectIDs []string) error
	Update(ctx context.Context, teacher *models.Teacher, subjectIDs []string) error
	Delete(ctx context.Context, id string) error
}

// TeacherService handles the staff directory. The surface is admin-only, so
// no visibility scope applies; route-level role checks guard access.
type TeacherService struct {
	repo      teacherRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs the service.
func NewTeacherService(repo teacherRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// CreateTeacherRequest describes the create payload. SubjectIDs is the full
// desired assignment set.
type CreateTeacherRequest struct {
	Username   string    `json:"username" validate:"required"`
	Name       string    `json:"name" validate:"required"`
	Surname    string    `json:"surname" validate:"required"`
	Email      *string   `json:"email" validate:"omitempty,email"`
	Phone      *string   `json:"phone"`
	Address    string    `json:"address" validate:"required"`
	Sex        string    `json:"sex" validate:"required,oneof=MALE FEMALE"`
	Birthday   time.Time `json:"birthday" validate:"required"`
	SubjectIDs []string  `json:"subject_ids" validate:"dive,uuid"`
}

// UpdateTeacherRequest describes the update payload. A nil SubjectIDs leaves
// the assignment set untouched; an empty slice clears it.
type UpdateTeacherRequest struct {
	Username   string    `json:"username" validate:"required"`
	Name       string    `json:"name" validate:"required"`
	Surname    string    `json:"surname" validate:"required"`
	Email      *string   `json:"email" validate:"omitempty,email"`
	Phone      *string   `json:"phone"`
	Address    string    `json:"address" validate:"required"`
	Sex        string    `json:"sex" validate:"required,oneof=MALE FEMALE"`
	Birthday   time.Time `json:"birthday" validate:"required"`
	SubjectIDs []string  `json:"subject_ids" validate:"omitempty,dive,uuid"`
}

// List returns teachers with pagination.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	filter.PageRequest = filter.PageRequest.Normalize()
	start := time.Now()
	teachers, total, err := s.repo.List(ctx, filter)
	if s.metrics != nil {
		s.metrics.ObserveStoreQuery("teacher", "list", time.Since(start))
	}
	if err != nil {
		return nil, nil, mapStoreError(err, "failed to list teachers")
	}
	return teachers, models.NewPagination(filter.PageRequest, total), nil
}

// Get returns one teacher with the assigned subject ids.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.TeacherDetail, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to fetch teacher")
	}
	subjectIDs, err := s.repo.SubjectIDs(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to fetch teacher subjects")
	}
	return &models.TeacherDetail{Teacher: *teacher, SubjectIDs: subjectIDs}, nil
}

// Create registers a teacher together with its subject assignments in one
// transaction.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	teacher := &models.Teacher{
		Username: req.Username,
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
		Sex:      req.Sex,
		Birthday: req.Birthday,
	}
	if err := s.repo.Create(ctx, teacher, req.SubjectIDs); err != nil {
		return nil, mapStoreError(err, "failed to create teacher")
	}
	s.logger.Info("teacher created", zap.String("teacher_id", teacher.ID))
	s.cache.Invalidate(ctx, cachekey.Prefix("lesson"), cachekey.Prefix("class"))
	return teacher, nil
}

// Update modifies a teacher and reconciles its subject assignments against
// the desired set.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	teacher := &models.Teacher{
		ID:       id,
		Username: req.Username,
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
		Sex:      req.Sex,
		Birthday: req.Birthday,
	}
	if err := s.repo.Update(ctx, teacher, req.SubjectIDs); err != nil {
		return nil, mapStoreError(err, "failed to update teacher")
	}
	s.cache.Invalidate(ctx, cachekey.Prefix("lesson"), cachekey.Prefix("class"), cachekey.Prefix("subject"))
	return teacher, nil
}

// Delete removes a teacher unless lessons or supervised classes still
// reference them.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "failed to delete teacher")
	}
	s.cache.Invalidate(ctx, cachekey.Prefix("subject"))
	return nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skooldesk/skooldesk-api/internal/models"
	"github.com/skooldesk/skooldesk-api/internal/scope"
	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
)

// fakeResolver returns canned scopes per entity family.
type fakeResolver struct {
	scope scope.Scope
	err   error
}

func (f *fakeResolver) resolve() (scope.Scope, error) { return f.scope, f.err }

func (f *fakeResolver) ForLessons(ctx context.Context, actor models.Actor) (scope.Scope, error) {
	return f.resolve()
}

func (f *fakeResolver) ForSubjects(ctx context.Context, actor models.Actor) (scope.Scope, error) {
	return f.resolve()
}

func (f *fakeResolver) ForStudents(ctx context.Context, actor models.Actor) (scope.Scope, error) {
	return f.resolve()
}

func (f *fakeResolver) ForClasses(ctx context.Context, actor models.Actor) (scope.Scope, error) {
	return f.resolve()
}

func (f *fakeResolver) ForEnrollmentRecords(ctx context.Context, actor models.Actor) (scope.Scope, error) {
	return f.resolve()
}

func (f *fakeResolver) ForAudience(ctx context.Context, actor models.Actor) (scope.Scope, error) {
	return f.resolve()
}

type fakeStudentRepo struct {
	listCalls  int
	listScope  scope.Scope
	listFilter models.StudentFilter
	students   []models.StudentDetail
	total      int
	detail     *models.StudentDetail
	findErr    error
	createErr  error
	deleteErr  error
}

func (f *fakeStudentRepo) List(ctx context.Context, filter models.StudentFilter, sc scope.Scope) ([]models.StudentDetail, int, error) {
	f.listCalls++
	f.listScope = sc
	f.listFilter = filter
	return f.students, f.total, nil
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.detail, nil
}

func (f *fakeStudentRepo) Create(ctx context.Context, student *models.Student) error {
	return f.createErr
}

func (f *fakeStudentRepo) Update(ctx context.Context, student *models.Student, previousClassID string) error {
	return nil
}

func (f *fakeStudentRepo) Delete(ctx context.Context, id string) error {
	return f.deleteErr
}

func studentActor(role models.Role) models.Actor {
	return models.Actor{UserID: "user-1", ProfileID: "profile-1", Role: role}
}

func testBirthday() time.Time {
	return time.Date(2010, time.March, 14, 0, 0, 0, 0, time.UTC)
}

func TestStudentListDeniedScopeSkipsStore(t *testing.T) {
	repo := &fakeStudentRepo{}
	resolver := &fakeResolver{scope: scope.Scope{Dimension: scope.ByClass, Result: scope.Empty()}}
	svc := NewStudentService(repo, resolver, nil, nil, nil, nil)

	students, pagination, err := svc.List(context.Background(), studentActor(models.RoleParent), models.StudentFilter{})
	require.NoError(t, err)
	require.Empty(t, students)
	require.Zero(t, pagination.TotalCount)
	require.Zero(t, repo.listCalls)
}

func TestStudentListFoldsClassFilterIntoScope(t *testing.T) {
	repo := &fakeStudentRepo{students: []models.StudentDetail{}, total: 0}
	resolver := &fakeResolver{scope: scope.Scope{Dimension: scope.ByClass, Result: scope.IDSet("class-1", "class-2")}}
	svc := NewStudentService(repo, resolver, nil, nil, nil, nil)

	_, _, err := svc.List(context.Background(), studentActor(models.RoleTeacher), models.StudentFilter{ClassID: "class-2"})
	require.NoError(t, err)
	require.Equal(t, 1, repo.listCalls)
	require.Empty(t, repo.listFilter.ClassID, "filter must be consumed by the scope")
	require.Equal(t, []string{"class-2"}, repo.listScope.Result.IDs())
}

func TestStudentListFilterOutsideScopeYieldsZeroRows(t *testing.T) {
	repo := &fakeStudentRepo{}
	resolver := &fakeResolver{scope: scope.Scope{Dimension: scope.ByClass, Result: scope.IDSet("class-1")}}
	svc := NewStudentService(repo, resolver, nil, nil, nil, nil)

	students, pagination, err := svc.List(context.Background(), studentActor(models.RoleTeacher), models.StudentFilter{ClassID: "other-class"})
	require.NoError(t, err)
	require.Empty(t, students)
	require.Zero(t, pagination.TotalCount)
	require.Zero(t, repo.listCalls)
}

func TestStudentListResolutionFailurePropagates(t *testing.T) {
	repo := &fakeStudentRepo{}
	resolver := &fakeResolver{err: appErrors.Clone(appErrors.ErrResolutionFailure, "")}
	svc := NewStudentService(repo, resolver, nil, nil, nil, nil)

	_, _, err := svc.List(context.Background(), studentActor(models.RoleParent), models.StudentFilter{})
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrResolutionFailure.Code, typed.Code)
	require.Zero(t, repo.listCalls)
}

func TestStudentGetOutsideScopeReportsNotFound(t *testing.T) {
	repo := &fakeStudentRepo{detail: &models.StudentDetail{
		Student: models.Student{ID: "stu-1", ClassID: "class-9", ParentID: "par-9"},
	}}
	resolver := &fakeResolver{scope: scope.Scope{Dimension: scope.ByClass, Result: scope.IDSet("class-1")}}
	svc := NewStudentService(repo, resolver, nil, nil, nil, nil)

	_, err := svc.Get(context.Background(), studentActor(models.RoleTeacher), "stu-1")
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
}

func TestStudentGetInsideScope(t *testing.T) {
	repo := &fakeStudentRepo{detail: &models.StudentDetail{
		Student: models.Student{ID: "stu-1", ClassID: "class-1", ParentID: "par-1"},
	}}
	resolver := &fakeResolver{scope: scope.Scope{Dimension: scope.ByParent, Result: scope.IDSet("par-1")}}
	svc := NewStudentService(repo, resolver, nil, nil, nil, nil)

	detail, err := svc.Get(context.Background(), studentActor(models.RoleParent), "stu-1")
	require.NoError(t, err)
	require.Equal(t, "stu-1", detail.ID)
}

func TestStudentCreateCapacityErrorPassesThrough(t *testing.T) {
	repo := &fakeStudentRepo{createErr: appErrors.CapacityExceeded("class-1", 30)}
	resolver := &fakeResolver{scope: scope.All()}
	svc := NewStudentService(repo, resolver, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		Username: "jdoe", Name: "John", Surname: "Doe", Address: "Addr",
		Sex: "MALE", Birthday: testBirthday(),
		ClassID:  "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		ParentID: "6ba7b811-9dad-11d1-80b4-00c04fd430c8",
	})
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrCapacityExceeded.Code, typed.Code)
}

func TestStudentCreateRejectsInvalidPayload(t *testing.T) {
	repo := &fakeStudentRepo{}
	svc := NewStudentService(repo, &fakeResolver{}, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateStudentRequest{Username: "jdoe"})
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrValidation.Code, typed.Code)
}

func TestStudentDeleteMissingRowReportsNotFound(t *testing.T) {
	repo := &fakeStudentRepo{deleteErr: sql.ErrNoRows}
	svc := NewStudentService(repo, &fakeResolver{}, nil, nil, nil, nil)

	err := svc.Delete(context.Background(), "stu-1")
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skooldesk/skooldesk-api/internal/models"
	"github.com/skooldesk/skooldesk-api/internal/scope"
	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
)

type fakeResultRepo struct {
	listCalls int
	results   []models.ResultDetail
	total     int
	detail    *models.ResultDetail
	ownerID   string
}

func (f *fakeResultRepo) List(ctx context.Context, filter models.ResultFilter, sc scope.Scope) ([]models.ResultDetail, int, error) {
	f.listCalls++
	return f.results, f.total, nil
}

func (f *fakeResultRepo) FindByID(ctx context.Context, id string) (*models.ResultDetail, error) {
	return f.detail, nil
}

func (f *fakeResultRepo) AssessmentTeacherID(ctx context.Context, examID, assignmentID *string) (string, error) {
	return f.ownerID, nil
}

func (f *fakeResultRepo) Create(ctx context.Context, result *models.Result) error { return nil }

func (f *fakeResultRepo) Update(ctx context.Context, result *models.Result) error { return nil }

func (f *fakeResultRepo) Delete(ctx context.Context, id string) error { return nil }

func resultRow(id, title, studentName string, score int) models.ResultDetail {
	return models.ResultDetail{
		Result:      models.Result{ID: id, Score: score, StudentID: "stu-1"},
		Title:       title,
		StudentName: studentName, StudentSurname: "Doe",
		TeacherID: "tch-1", ClassName: "10-A",
		TeacherName: "Mary", TeacherSurname: "Smith",
	}
}

func strPtr(s string) *string { return &s }

func TestResultListSearchRunsAfterFetch(t *testing.T) {
	repo := &fakeResultRepo{
		results: []models.ResultDetail{
			resultRow("res-1", "Algebra Midterm", "John", 88),
			resultRow("res-2", "History Quiz", "John", 74),
			resultRow("res-3", "Algebra Homework", "Jane", 91),
		},
		total: 40,
	}
	svc := NewResultService(repo, &fakeResolver{scope: scope.All()}, nil, nil, nil)

	rows, pagination, outcome, err := svc.List(context.Background(), studentActor(models.RoleAdmin), models.ResultFilter{Search: "algebra"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, outcome)
	require.Equal(t, 3, outcome.RawCount)
	require.Equal(t, 2, outcome.FilteredCount)
	// TotalCount keeps the store's pre-filter total.
	require.Equal(t, 40, pagination.TotalCount)
}

func TestResultListWithoutSearchHasNoOutcome(t *testing.T) {
	repo := &fakeResultRepo{results: []models.ResultDetail{resultRow("res-1", "Algebra Midterm", "John", 88)}, total: 1}
	svc := NewResultService(repo, &fakeResolver{scope: scope.All()}, nil, nil, nil)

	rows, _, outcome, err := svc.List(context.Background(), studentActor(models.RoleAdmin), models.ResultFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Nil(t, outcome)
}

func TestResultListDeniedScopeSkipsStore(t *testing.T) {
	repo := &fakeResultRepo{}
	resolver := &fakeResolver{scope: scope.Scope{Dimension: scope.ByStudent, Result: scope.Empty()}}
	svc := NewResultService(repo, resolver, nil, nil, nil)

	rows, pagination, outcome, err := svc.List(context.Background(), studentActor(models.RoleParent), models.ResultFilter{})
	require.NoError(t, err)
	require.Empty(t, rows)
	require.Zero(t, pagination.TotalCount)
	require.Nil(t, outcome)
	require.Zero(t, repo.listCalls)
}

func TestResultRequestRequiresExactlyOneAssessment(t *testing.T) {
	svc := NewResultService(&fakeResultRepo{}, &fakeResolver{scope: scope.All()}, nil, nil, nil)
	actor := studentActor(models.RoleAdmin)

	cases := map[string]ResultRequest{
		"neither": {Score: 80, StudentID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		"both": {
			Score:        80,
			StudentID:    "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			ExamID:       strPtr("6ba7b811-9dad-11d1-80b4-00c04fd430c8"),
			AssignmentID: strPtr("6ba7b812-9dad-11d1-80b4-00c04fd430c8"),
		},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), actor, req)
			require.Error(t, err)

			var typed *appErrors.Error
			require.True(t, errors.As(err, &typed))
			require.Equal(t, appErrors.ErrValidation.Code, typed.Code)
		})
	}
}

func TestResultCreateByNonOwningTeacherIsForbidden(t *testing.T) {
	repo := &fakeResultRepo{ownerID: "other-teacher"}
	svc := NewResultService(repo, &fakeResolver{scope: scope.All()}, nil, nil, nil)
	teacher := models.Actor{UserID: "user-1", ProfileID: "tch-1", Role: models.RoleTeacher}

	_, err := svc.Create(context.Background(), teacher, ResultRequest{
		Score:     80,
		StudentID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		ExamID:    strPtr("6ba7b811-9dad-11d1-80b4-00c04fd430c8"),
	})
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrForbidden.Code, typed.Code)
}

func TestResultDeleteByNonOwningTeacherIsForbidden(t *testing.T) {
	detail := resultRow("res-1", "Algebra Midterm", "John", 88)
	repo := &fakeResultRepo{detail: &detail}
	svc := NewResultService(repo, &fakeResolver{scope: scope.All()}, nil, nil, nil)
	teacher := models.Actor{UserID: "user-1", ProfileID: "other-teacher", Role: models.RoleTeacher}

	err := svc.Delete(context.Background(), teacher, "res-1")
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrForbidden.Code, typed.Code)
}

func TestResultGetOutsideScopeReportsNotFound(t *testing.T) {
	detail := resultRow("res-1", "Algebra Midterm", "John", 88)
	repo := &fakeResultRepo{detail: &detail}
	resolver := &fakeResolver{scope: scope.Scope{Dimension: scope.ByStudent, Result: scope.IDSet("someone-else")}}
	svc := NewResultService(repo, resolver, nil, nil, nil)

	_, err := svc.Get(context.Background(), studentActor(models.RoleStudent), "res-1")
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
}

package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/skooldesk/skooldesk-api/internal/models"
	"github.com/skooldesk/skooldesk-api/internal/scope"
	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
)

func TestSubjectRepositoryListScopedAndNameOrdered(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubjectRepository(db)

	mock.ExpectQuery("(?s)" + regexp.QuoteMeta("sub.id IN ($1,$2)") + ".*" + regexp.QuoteMeta("ORDER BY sub.name ASC, sub.id ASC")).
		WithArgs("sub-1", "sub-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow("sub-1", "Algebra").
			AddRow("sub-2", "Biology"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM subjects")).
		WithArgs("sub-1", "sub-2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	sc := scope.Scope{Dimension: scope.ByID, Result: scope.IDSet("sub-1", "sub-2")}
	subjects, total, err := repo.List(context.Background(), models.SubjectFilter{}, sc)
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	require.Equal(t, 2, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryExistsByNameIsCaseInsensitive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM subjects WHERE LOWER(name) = LOWER($1)")).
		WithArgs("Mathematics").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByName(context.Background(), "Mathematics", "")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryExistsByNameExcludesSelf(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND id <> $2")).
		WithArgs("Mathematics", "sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsByName(context.Background(), "Mathematics", "sub-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryDeleteBlockedByLessons(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM lessons WHERE subject_id = $1")).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "sub-1")
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrDependencyConflict.Code, typed.Code)
	require.Equal(t, 2, typed.Details["count"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryDeleteClearsJoinRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM lessons WHERE subject_id = $1")).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM teacher_subjects WHERE subject_id = $1")).
		WithArgs("sub-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_subjects WHERE subject_id = $1")).
		WithArgs("sub-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subjects WHERE id = $1")).
		WithArgs("sub-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "sub-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

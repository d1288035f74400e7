package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/skooldesk/skooldesk-api/internal/models"
	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
)

func TestTeacherRepositoryCreateInsertsAssignmentsAtomically(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTeacherRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teachers")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teacher_subjects (teacher_id, subject_id) VALUES ($1, $2)")).
		WithArgs(sqlmock.AnyArg(), "sub-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teacher_subjects (teacher_id, subject_id) VALUES ($1, $2)")).
		WithArgs(sqlmock.AnyArg(), "sub-2").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	teacher := &models.Teacher{
		Username: "msmith", Name: "Mary", Surname: "Smith",
		Address: "Addr", Sex: "FEMALE", Birthday: time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), teacher, []string{"sub-1", "sub-2"}))
	require.NotEmpty(t, teacher.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryUpdateSyncsSubjectsBySymmetricDifference(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTeacherRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE teachers SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT subject_id FROM teacher_subjects WHERE teacher_id = $1")).
		WithArgs("tch-1").
		WillReturnRows(sqlmock.NewRows([]string{"subject_id"}).AddRow("sub-a").AddRow("sub-b"))
	// desired {sub-b, sub-c}: only sub-a is removed and only sub-c inserted.
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM teacher_subjects WHERE teacher_id = $1 AND subject_id = $2")).
		WithArgs("tch-1", "sub-a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teacher_subjects (teacher_id, subject_id) VALUES ($1, $2)")).
		WithArgs("tch-1", "sub-c").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	teacher := &models.Teacher{
		ID: "tch-1", Username: "msmith", Name: "Mary", Surname: "Smith",
		Address: "Addr", Sex: "FEMALE", Birthday: time.Now(),
	}
	require.NoError(t, repo.Update(context.Background(), teacher, []string{"sub-b", "sub-c"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryUpdateLeavesAssignmentsWhenNil(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTeacherRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE teachers SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	teacher := &models.Teacher{
		ID: "tch-1", Username: "msmith", Name: "Mary", Surname: "Smith",
		Address: "Addr", Sex: "FEMALE", Birthday: time.Now(),
	}
	require.NoError(t, repo.Update(context.Background(), teacher, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryDeleteBlockedByLessons(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTeacherRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM lessons WHERE teacher_id = $1")).
		WithArgs("tch-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "tch-1")
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrDependencyConflict.Code, typed.Code)
	require.Equal(t, "lesson", typed.Details["blocking_entity"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryDeleteClearsAssignments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTeacherRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM lessons WHERE teacher_id = $1")).
		WithArgs("tch-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM classes WHERE supervisor_id = $1")).
		WithArgs("tch-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM teacher_subjects WHERE teacher_id = $1")).
		WithArgs("tch-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM teachers WHERE id = $1")).
		WithArgs("tch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "tch-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryDeleteMissingRowReportsNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTeacherRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM lessons WHERE teacher_id = $1")).
		WithArgs("tch-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM classes WHERE supervisor_id = $1")).
		WithArgs("tch-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM teacher_subjects WHERE teacher_id = $1")).
		WithArgs("tch-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM teachers WHERE id = $1")).
		WithArgs("tch-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "tch-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

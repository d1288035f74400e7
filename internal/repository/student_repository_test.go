package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/skooldesk/skooldesk-api/internal/models"
	"github.com/skooldesk/skooldesk-api/internal/scope"
	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var studentDetailColumns = []string{
	"id", "username", "name", "surname", "email", "phone", "address", "sex", "birthday",
	"class_id", "parent_id", "created_at", "updated_at",
	"class_name", "parent_name", "parent_surname",
}

func studentDetailRow(rows *sqlmock.Rows, id, classID, parentID string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "u-"+id, "Name", "Surname", nil, nil, "Addr", "MALE", now,
		classID, parentID, now, now, "10-A", "Parent", "Surname")
}

func TestStudentRepositoryListScopedByClass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows(studentDetailColumns)
	studentDetailRow(rows, "stu-1", "class-1", "par-1")

	mock.ExpectQuery(regexp.QuoteMeta("s.class_id IN ($1)")).
		WithArgs("class-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students")).
		WithArgs("class-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	sc := scope.Scope{Dimension: scope.ByClass, Result: scope.IDSet("class-1")}
	students, total, err := repo.List(context.Background(), models.StudentFilter{}, sc)
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.Equal(t, 1, total)
	require.Equal(t, "stu-1", students[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListSecondPageWindow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)

	// 15 rows at 10 per page: page 2 selects with LIMIT 10 OFFSET 10 and
	// delivers the remaining 5 rows while the count stays 15.
	rows := sqlmock.NewRows(studentDetailColumns)
	for _, id := range []string{"stu-11", "stu-12", "stu-13", "stu-14", "stu-15"} {
		studentDetailRow(rows, id, "class-1", "par-1")
	}

	mock.ExpectQuery("(?s)" + regexp.QuoteMeta("FROM students s") + ".*" + regexp.QuoteMeta("LIMIT 10 OFFSET 10")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(15))

	filter := models.StudentFilter{PageRequest: models.PageRequest{Page: 2, PageSize: 10}}
	students, total, err := repo.List(context.Background(), filter, scope.All())
	require.NoError(t, err)
	require.Len(t, students, 5)
	require.Equal(t, 15, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListOutOfRangePageIsEmptyNotError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)

	mock.ExpectQuery("(?s)" + regexp.QuoteMeta("FROM students s") + ".*" + regexp.QuoteMeta("LIMIT 10 OFFSET 30")).
		WillReturnRows(sqlmock.NewRows(studentDetailColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(15))

	filter := models.StudentFilter{PageRequest: models.PageRequest{Page: 4, PageSize: 10}}
	students, total, err := repo.List(context.Background(), filter, scope.All())
	require.NoError(t, err)
	require.Empty(t, students)
	require.Equal(t, 15, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateChecksCapacityUnderLock(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM classes WHERE id = $1 FOR UPDATE")).
		WithArgs("class-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE class_id = $1")).
		WithArgs("class-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	student := &models.Student{
		Username: "jdoe", Name: "John", Surname: "Doe",
		Address: "Addr", Sex: "MALE", Birthday: time.Now(),
		ClassID: "class-1", ParentID: "par-1",
	}
	require.NoError(t, repo.Create(context.Background(), student))
	require.NotEmpty(t, student.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateFullClassRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM classes WHERE id = $1 FOR UPDATE")).
		WithArgs("class-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE class_id = $1")).
		WithArgs("class-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	student := &models.Student{
		Username: "jdoe", Name: "John", Surname: "Doe",
		Address: "Addr", Sex: "MALE", Birthday: time.Now(),
		ClassID: "class-1", ParentID: "par-1",
	}
	err := repo.Create(context.Background(), student)
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrCapacityExceeded.Code, typed.Code)
	require.Equal(t, 2, typed.Details["capacity"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateSkipsCapacityWhenClassUnchanged(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	student := &models.Student{
		ID: "stu-1", Username: "jdoe", Name: "John", Surname: "Doe",
		Address: "Addr", Sex: "MALE", Birthday: time.Now(),
		ClassID: "class-1", ParentID: "par-1",
	}
	require.NoError(t, repo.Update(context.Background(), student, "class-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteBlockedByResults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM results WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "stu-1")
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrDependencyConflict.Code, typed.Code)
	require.Equal(t, "result", typed.Details["blocking_entity"])
	require.Equal(t, 3, typed.Details["count"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteMissingRowReportsNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM results WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM attendances WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "stu-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

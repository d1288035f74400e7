package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skooldesk/skooldesk-api/internal/models"
	"github.com/skooldesk/skooldesk-api/internal/scope"
)

// AttendanceRepository manages persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

var attendanceScopeColumns = map[scope.Dimension]string{
	scope.ByTeacher: "l.teacher_id",
	scope.ByStudent: "a.student_id",
}

var attendanceSorts = map[string]string{
	"date":         "a.date",
	"student_name": "st.surname",
}

// List returns attendance rows visible in the scope. Search matches the
// related student's name, one hop away.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter, sc scope.Scope) ([]models.AttendanceDetail, int, error) {
	base := `FROM attendances a
JOIN students st ON st.id = a.student_id
JOIN lessons l ON l.id = a.lesson_id`

	qb := newQueryBuilder()
	qb.applyScope(sc, attendanceScopeColumns)
	if filter.StudentID != "" {
		qb.eq("a.student_id", filter.StudentID)
	}
	if filter.LessonID != "" {
		qb.eq("a.lesson_id", filter.LessonID)
	}
	if filter.ClassID != "" {
		qb.eq("l.class_id", filter.ClassID)
	}
	if filter.Present != nil {
		qb.eq("a.present", *filter.Present)
	}
	qb.search(filter.Search, "st.name", "st.surname")

	limit, offset := window(filter.PageRequest)
	query := fmt.Sprintf(`SELECT a.id, a.date, a.present, a.student_id, a.lesson_id, a.created_at, a.updated_at,
        st.name AS student_name, st.surname AS student_surname, l.name AS lesson_name
        %s%s%s LIMIT %d OFFSET %d`,
		base, qb.whereClause(),
		orderClause(filter.SortBy, filter.SortOrder, attendanceSorts, "a.date", "DESC", "a.id"),
		limit, offset)

	var attendances []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &attendances, query, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("list attendances: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, qb.whereClause())
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("count attendances: %w", err)
	}
	return attendances, total, nil
}

// FindByID fetches an attendance record by ID.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.AttendanceDetail, error) {
	const query = `SELECT a.id, a.date, a.present, a.student_id, a.lesson_id, a.created_at, a.updated_at,
        st.name AS student_name, st.surname AS student_surname, l.name AS lesson_name,
        l.teacher_id AS teacher_id
        FROM attendances a
        JOIN students st ON st.id = a.student_id
        JOIN lessons l ON l.id = a.lesson_id
        WHERE a.id = $1`
	var detail models.AttendanceDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// LessonTeacherID returns the owning teacher of a lesson.
func (r *AttendanceRepository) LessonTeacherID(ctx context.Context, lessonID string) (string, error) {
	var teacherID string
	if err := r.db.GetContext(ctx, &teacherID, `SELECT teacher_id FROM lessons WHERE id = $1`, lessonID); err != nil {
		return "", err
	}
	return teacherID, nil
}

// Create inserts a new attendance record.
func (r *AttendanceRepository) Create(ctx context.Context, attendance *models.Attendance) error {
	if attendance.ID == "" {
		attendance.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	attendance.CreatedAt = now
	attendance.UpdatedAt = now
	const query = `INSERT INTO attendances (id, date, present, student_id, lesson_id, created_at, updated_at)
        VALUES (:id, :date, :present, :student_id, :lesson_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attendance); err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// Update modifies an existing attendance record.
func (r *AttendanceRepository) Update(ctx context.Context, attendance *models.Attendance) error {
	attendance.UpdatedAt = time.Now().UTC()
	const query = `UPDATE attendances SET date = :date, present = :present, student_id = :student_id,
        lesson_id = :lesson_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, attendance); err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	return nil
}

// Delete removes an attendance record. No other entity references it.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

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

// LessonRepository manages persistence for lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

var lessonScopeColumns = map[scope.Dimension]string{
	scope.ByTeacher: "l.teacher_id",
	scope.ByClass:   "l.class_id",
}

var lessonSorts = map[string]string{
	"name":       "l.name",
	"day":        "l.day",
	"start_time": "l.start_time",
}

// List returns lessons visible in the scope expanded with subject, class and
// teacher names in the same round trip.
func (r *LessonRepository) List(ctx context.Context, filter models.LessonFilter, sc scope.Scope) ([]models.LessonDetail, int, error) {
	base := `FROM lessons l
JOIN subjects sub ON sub.id = l.subject_id
JOIN classes c ON c.id = l.class_id
JOIN teachers t ON t.id = l.teacher_id`

	qb := newQueryBuilder()
	qb.applyScope(sc, lessonScopeColumns)
	if filter.ClassID != "" {
		qb.eq("l.class_id", filter.ClassID)
	}
	if filter.TeacherID != "" {
		qb.eq("l.teacher_id", filter.TeacherID)
	}
	if filter.SubjectID != "" {
		qb.eq("l.subject_id", filter.SubjectID)
	}
	qb.search(filter.Search, "l.name", "sub.name")

	limit, offset := window(filter.PageRequest)
	query := fmt.Sprintf(`SELECT l.id, l.name, l.day, l.start_time, l.end_time, l.subject_id, l.class_id, l.teacher_id,
        l.created_at, l.updated_at,
        sub.name AS subject_name, c.name AS class_name, t.name AS teacher_name, t.surname AS teacher_surname
        %s%s%s LIMIT %d OFFSET %d`,
		base, qb.whereClause(),
		orderClause(filter.SortBy, filter.SortOrder, lessonSorts, "l.start_time", "ASC", "l.id"),
		limit, offset)

	var lessons []models.LessonDetail
	if err := r.db.SelectContext(ctx, &lessons, query, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("list lessons: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, qb.whereClause())
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("count lessons: %w", err)
	}
	return lessons, total, nil
}

// FindByID fetches a lesson detail by ID.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.LessonDetail, error) {
	const query = `SELECT l.id, l.name, l.day, l.start_time, l.end_time, l.subject_id, l.class_id, l.teacher_id,
        l.created_at, l.updated_at,
        sub.name AS subject_name, c.name AS class_name, t.name AS teacher_name, t.surname AS teacher_surname
        FROM lessons l
        JOIN subjects sub ON sub.id = l.subject_id
        JOIN classes c ON c.id = l.class_id
        JOIN teachers t ON t.id = l.teacher_id
        WHERE l.id = $1`
	var detail models.LessonDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new lesson.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lesson.CreatedAt = now
	lesson.UpdatedAt = now
	const query = `INSERT INTO lessons (id, name, day, start_time, end_time, subject_id, class_id, teacher_id, created_at, updated_at)
        VALUES (:id, :name, :day, :start_time, :end_time, :subject_id, :class_id, :teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// Update modifies an existing lesson.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lessons SET name = :name, day = :day, start_time = :start_time, end_time = :end_time,
        subject_id = :subject_id, class_id = :class_id, teacher_id = :teacher_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	return nil
}

// Delete removes a lesson unless exams, assignments or attendances still
// reference it.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete lesson: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = refuseIfReferenced(ctx, tx, "exam", `SELECT COUNT(*) FROM exams WHERE lesson_id = $1`, id); err != nil {
		return err
	}
	if err = refuseIfReferenced(ctx, tx, "assignment", `SELECT COUNT(*) FROM assignments WHERE lesson_id = $1`, id); err != nil {
		return err
	}
	if err = refuseIfReferenced(ctx, tx, "attendance", `SELECT COUNT(*) FROM attendances WHERE lesson_id = $1`, id); err != nil {
		return err
	}

	res, execErr := tx.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if execErr != nil {
		err = fmt.Errorf("delete lesson: %w", execErr)
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete lesson: %w", err)
	}
	return nil
}

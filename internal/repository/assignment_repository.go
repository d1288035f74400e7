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

// AssignmentRepository manages persistence for assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Assignment visibility chains through the owning lesson.
var assignmentScopeColumns = map[scope.Dimension]string{
	scope.ByTeacher: "l.teacher_id",
	scope.ByClass:   "l.class_id",
}

var assignmentSorts = map[string]string{
	"title":    "a.title",
	"due_date": "a.due_date",
}

// List returns assignments visible in the scope with their lesson context.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter, sc scope.Scope) ([]models.AssignmentDetail, int, error) {
	base := `FROM assignments a
JOIN lessons l ON l.id = a.lesson_id
JOIN subjects sub ON sub.id = l.subject_id
JOIN classes c ON c.id = l.class_id
JOIN teachers t ON t.id = l.teacher_id`

	qb := newQueryBuilder()
	qb.applyScope(sc, assignmentScopeColumns)
	if filter.ClassID != "" {
		qb.eq("l.class_id", filter.ClassID)
	}
	if filter.TeacherID != "" {
		qb.eq("l.teacher_id", filter.TeacherID)
	}
	if filter.LessonID != "" {
		qb.eq("a.lesson_id", filter.LessonID)
	}
	qb.search(filter.Search, "a.title", "sub.name")

	limit, offset := window(filter.PageRequest)
	query := fmt.Sprintf(`SELECT a.id, a.title, a.start_date, a.due_date, a.lesson_id, a.created_at, a.updated_at,
        sub.name AS subject_name, c.name AS class_name, t.name AS teacher_name, t.surname AS teacher_surname
        %s%s%s LIMIT %d OFFSET %d`,
		base, qb.whereClause(),
		orderClause(filter.SortBy, filter.SortOrder, assignmentSorts, "a.due_date", "DESC", "a.id"),
		limit, offset)

	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, qb.whereClause())
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}
	return assignments, total, nil
}

// FindByID fetches an assignment with its lesson context.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	const query = `SELECT a.id, a.title, a.start_date, a.due_date, a.lesson_id, a.created_at, a.updated_at,
        sub.name AS subject_name, c.name AS class_name, t.name AS teacher_name, t.surname AS teacher_surname,
        l.teacher_id AS teacher_id, l.class_id AS class_id
        FROM assignments a
        JOIN lessons l ON l.id = a.lesson_id
        JOIN subjects sub ON sub.id = l.subject_id
        JOIN classes c ON c.id = l.class_id
        JOIN teachers t ON t.id = l.teacher_id
        WHERE a.id = $1`
	var detail models.AssignmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// LessonTeacherID returns the owning teacher of the assignment's lesson.
func (r *AssignmentRepository) LessonTeacherID(ctx context.Context, lessonID string) (string, error) {
	var teacherID string
	if err := r.db.GetContext(ctx, &teacherID, `SELECT teacher_id FROM lessons WHERE id = $1`, lessonID); err != nil {
		return "", err
	}
	return teacherID, nil
}

// Create inserts a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	const query = `INSERT INTO assignments (id, title, start_date, due_date, lesson_id, created_at, updated_at)
        VALUES (:id, :title, :start_date, :due_date, :lesson_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update modifies an existing assignment.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignments SET title = :title, start_date = :start_date, due_date = :due_date,
        lesson_id = :lesson_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment unless results still reference it.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete assignment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = refuseIfReferenced(ctx, tx, "result", `SELECT COUNT(*) FROM results WHERE assignment_id = $1`, id); err != nil {
		return err
	}

	res, execErr := tx.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if execErr != nil {
		err = fmt.Errorf("delete assignment: %w", execErr)
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete assignment: %w", err)
	}
	return nil
}

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

// ResultRepository manages persistence for results. A result references
// exactly one of an exam or an assignment; the lesson context is reached
// through whichever branch is set.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs a ResultRepository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

var resultScopeColumns = map[scope.Dimension]string{
	scope.ByTeacher: "l.teacher_id",
	scope.ByStudent: "r2.student_id",
}

var resultSorts = map[string]string{
	"score":      "r2.score",
	"created_at": "r2.created_at",
}

// List returns results visible in the scope. Free-text search over the
// heterogeneous title fields is applied by the caller after the fetch; this
// query only pushes scope and explicit filters, so the returned total
// reflects the scope+filter count.
func (r *ResultRepository) List(ctx context.Context, filter models.ResultFilter, sc scope.Scope) ([]models.ResultDetail, int, error) {
	base := `FROM results r2
JOIN students st ON st.id = r2.student_id
LEFT JOIN exams e ON e.id = r2.exam_id
LEFT JOIN assignments asg ON asg.id = r2.assignment_id
JOIN lessons l ON l.id = COALESCE(e.lesson_id, asg.lesson_id)
JOIN classes c ON c.id = l.class_id
JOIN teachers t ON t.id = l.teacher_id`

	qb := newQueryBuilder()
	qb.applyScope(sc, resultScopeColumns)
	if filter.StudentID != "" {
		qb.eq("r2.student_id", filter.StudentID)
	}
	if filter.ExamID != "" {
		qb.eq("r2.exam_id", filter.ExamID)
	}
	if filter.AssignmentID != "" {
		qb.eq("r2.assignment_id", filter.AssignmentID)
	}

	limit, offset := window(filter.PageRequest)
	query := fmt.Sprintf(`SELECT r2.id, r2.score, r2.exam_id, r2.assignment_id, r2.student_id, r2.created_at, r2.updated_at,
        COALESCE(e.title, asg.title) AS title,
        st.name AS student_name, st.surname AS student_surname, st.parent_id AS student_parent_id,
        c.name AS class_name, t.name AS teacher_name, t.surname AS teacher_surname
        %s%s%s LIMIT %d OFFSET %d`,
		base, qb.whereClause(),
		orderClause(filter.SortBy, filter.SortOrder, resultSorts, "r2.created_at", "DESC", "r2.id"),
		limit, offset)

	var results []models.ResultDetail
	if err := r.db.SelectContext(ctx, &results, query, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("list results: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, qb.whereClause())
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("count results: %w", err)
	}
	return results, total, nil
}

// FindByID fetches a result with its assessment and student context.
func (r *ResultRepository) FindByID(ctx context.Context, id string) (*models.ResultDetail, error) {
	const query = `SELECT r2.id, r2.score, r2.exam_id, r2.assignment_id, r2.student_id, r2.created_at, r2.updated_at,
        COALESCE(e.title, asg.title) AS title,
        st.name AS student_name, st.surname AS student_surname, st.parent_id AS student_parent_id,
        l.teacher_id AS teacher_id,
        c.name AS class_name, t.name AS teacher_name, t.surname AS teacher_surname
        FROM results r2
        JOIN students st ON st.id = r2.student_id
        LEFT JOIN exams e ON e.id = r2.exam_id
        LEFT JOIN assignments asg ON asg.id = r2.assignment_id
        JOIN lessons l ON l.id = COALESCE(e.lesson_id, asg.lesson_id)
        JOIN classes c ON c.id = l.class_id
        JOIN teachers t ON t.id = l.teacher_id
        WHERE r2.id = $1`
	var detail models.ResultDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// AssessmentTeacherID returns the teacher owning the lesson behind the given
// exam or assignment, whichever is set.
func (r *ResultRepository) AssessmentTeacherID(ctx context.Context, examID, assignmentID *string) (string, error) {
	var teacherID string
	if examID != nil {
		err := r.db.GetContext(ctx, &teacherID, `SELECT l.teacher_id FROM exams e JOIN lessons l ON l.id = e.lesson_id WHERE e.id = $1`, *examID)
		return teacherID, err
	}
	err := r.db.GetContext(ctx, &teacherID, `SELECT l.teacher_id FROM assignments a JOIN lessons l ON l.id = a.lesson_id WHERE a.id = $1`, *assignmentID)
	return teacherID, err
}

// Create inserts a new result.
func (r *ResultRepository) Create(ctx context.Context, result *models.Result) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	result.CreatedAt = now
	result.UpdatedAt = now
	const query = `INSERT INTO results (id, score, exam_id, assignment_id, student_id, created_at, updated_at)
        VALUES (:id, :score, :exam_id, :assignment_id, :student_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("create result: %w", err)
	}
	return nil
}

// Update modifies an existing result.
func (r *ResultRepository) Update(ctx context.Context, result *models.Result) error {
	result.UpdatedAt = time.Now().UTC()
	const query = `UPDATE results SET score = :score, exam_id = :exam_id, assignment_id = :assignment_id,
        student_id = :student_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("update result: %w", err)
	}
	return nil
}

// Delete removes a result. No other entity references it.
func (r *ResultRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM results WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

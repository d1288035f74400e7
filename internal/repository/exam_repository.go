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

// ExamRepository manages persistence for exams.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs an ExamRepository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// Exam visibility chains through the owning lesson.
var examScopeColumns = map[scope.Dimension]string{
	scope.ByTeacher: "l.teacher_id",
	scope.ByClass:   "l.class_id",
}

var examSorts = map[string]string{
	"title":      "e.title",
	"start_time": "e.start_time",
}

// List returns exams visible in the scope with their lesson context.
func (r *ExamRepository) List(ctx context.Context, filter models.ExamFilter, sc scope.Scope) ([]models.ExamDetail, int, error) {
	base := `FROM exams e
JOIN lessons l ON l.id = e.lesson_id
JOIN subjects sub ON sub.id = l.subject_id
JOIN classes c ON c.id = l.class_id
JOIN teachers t ON t.id = l.teacher_id`

	qb := newQueryBuilder()
	qb.applyScope(sc, examScopeColumns)
	if filter.ClassID != "" {
		qb.eq("l.class_id", filter.ClassID)
	}
	if filter.TeacherID != "" {
		qb.eq("l.teacher_id", filter.TeacherID)
	}
	if filter.LessonID != "" {
		qb.eq("e.lesson_id", filter.LessonID)
	}
	qb.search(filter.Search, "e.title", "sub.name")

	limit, offset := window(filter.PageRequest)
	query := fmt.Sprintf(`SELECT e.id, e.title, e.start_time, e.end_time, e.lesson_id, e.created_at, e.updated_at,
        sub.name AS subject_name, c.name AS class_name, t.name AS teacher_name, t.surname AS teacher_surname
        %s%s%s LIMIT %d OFFSET %d`,
		base, qb.whereClause(),
		orderClause(filter.SortBy, filter.SortOrder, examSorts, "e.start_time", "DESC", "e.id"),
		limit, offset)

	var exams []models.ExamDetail
	if err := r.db.SelectContext(ctx, &exams, query, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("list exams: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, qb.whereClause())
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("count exams: %w", err)
	}
	return exams, total, nil
}

// FindByID fetches an exam with its lesson context.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.ExamDetail, error) {
	const query = `SELECT e.id, e.title, e.start_time, e.end_time, e.lesson_id, e.created_at, e.updated_at,
        sub.name AS subject_name, c.name AS class_name, t.name AS teacher_name, t.surname AS teacher_surname,
        l.teacher_id AS teacher_id, l.class_id AS class_id
        FROM exams e
        JOIN lessons l ON l.id = e.lesson_id
        JOIN subjects sub ON sub.id = l.subject_id
        JOIN classes c ON c.id = l.class_id
        JOIN teachers t ON t.id = l.teacher_id
        WHERE e.id = $1`
	var detail models.ExamDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// LessonTeacherID returns the owning teacher of the exam's lesson.
func (r *ExamRepository) LessonTeacherID(ctx context.Context, lessonID string) (string, error) {
	var teacherID string
	if err := r.db.GetContext(ctx, &teacherID, `SELECT teacher_id FROM lessons WHERE id = $1`, lessonID); err != nil {
		return "", err
	}
	return teacherID, nil
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	exam.CreatedAt = now
	exam.UpdatedAt = now
	const query = `INSERT INTO exams (id, title, start_time, end_time, lesson_id, created_at, updated_at)
        VALUES (:id, :title, :start_time, :end_time, :lesson_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

// Update modifies an existing exam.
func (r *ExamRepository) Update(ctx context.Context, exam *models.Exam) error {
	exam.UpdatedAt = time.Now().UTC()
	const query = `UPDATE exams SET title = :title, start_time = :start_time, end_time = :end_time,
        lesson_id = :lesson_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("update exam: %w", err)
	}
	return nil
}

// Delete removes an exam unless results still reference it.
func (r *ExamRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete exam: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = refuseIfReferenced(ctx, tx, "result", `SELECT COUNT(*) FROM results WHERE exam_id = $1`, id); err != nil {
		return err
	}

	res, execErr := tx.ExecContext(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if execErr != nil {
		err = fmt.Errorf("delete exam: %w", execErr)
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete exam: %w", err)
	}
	return nil
}

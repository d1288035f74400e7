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

// SubjectRepository manages persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

var subjectScopeColumns = map[scope.Dimension]string{
	scope.ByID: "sub.id",
}

var subjectSorts = map[string]string{
	"name":       "sub.name",
	"created_at": "sub.created_at",
}

// List returns subjects visible in the scope, default-ordered by name.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter, sc scope.Scope) ([]models.Subject, int, error) {
	base := "FROM subjects sub"

	qb := newQueryBuilder()
	qb.applyScope(sc, subjectScopeColumns)
	if filter.TeacherID != "" {
		qb.args = append(qb.args, filter.TeacherID)
		qb.conds = append(qb.conds, fmt.Sprintf("EXISTS (SELECT 1 FROM teacher_subjects ts WHERE ts.subject_id = sub.id AND ts.teacher_id = $%d)", len(qb.args)))
	}
	qb.search(filter.Search, "sub.name")

	limit, offset := window(filter.PageRequest)
	query := fmt.Sprintf(`SELECT sub.id, sub.name, sub.created_at, sub.updated_at
        %s%s%s LIMIT %d OFFSET %d`,
		base, qb.whereClause(),
		orderClause(filter.SortBy, filter.SortOrder, subjectSorts, "sub.name", "ASC", "sub.id"),
		limit, offset)

	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, qb.whereClause())
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}
	return subjects, total, nil
}

// FindByID fetches a subject by ID.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, name, created_at, updated_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ExistsByName checks subject name uniqueness optionally excluding an ID.
func (r *SubjectRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	query := `SELECT 1 FROM subjects WHERE LOWER(name) = LOWER($1)`
	args := []interface{}{name}
	if excludeID != "" {
		query += ` AND id <> $2`
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check subject name: %w", err)
	}
	return true, nil
}

// Create inserts a new subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now
	const query = `INSERT INTO subjects (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Update modifies an existing subject.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return nil
}

// Delete removes a subject unless lessons still reference it. Join rows
// owned by the subject are cleared in the same transaction.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete subject: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = refuseIfReferenced(ctx, tx, "lesson", `SELECT COUNT(*) FROM lessons WHERE subject_id = $1`, id); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM teacher_subjects WHERE subject_id = $1`, id); err != nil {
		return fmt.Errorf("clear subject teachers: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM class_subjects WHERE subject_id = $1`, id); err != nil {
		return fmt.Errorf("clear subject classes: %w", err)
	}

	res, execErr := tx.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if execErr != nil {
		err = fmt.Errorf("delete subject: %w", execErr)
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete subject: %w", err)
	}
	return nil
}

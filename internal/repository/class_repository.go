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

// ClassRepository manages persistence for classes and their subject links.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

var classScopeColumns = map[scope.Dimension]string{
	scope.ByID: "c.id",
}

var classSorts = map[string]string{
	"name":        "c.name",
	"grade_level": "c.grade_level",
	"capacity":    "c.capacity",
}

// List returns classes visible in the scope, expanded with supervisor name
// and current occupancy.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter, sc scope.Scope) ([]models.ClassDetail, int, error) {
	base := `FROM classes c
LEFT JOIN teachers t ON t.id = c.supervisor_id`

	qb := newQueryBuilder()
	qb.applyScope(sc, classScopeColumns)
	if filter.SupervisorID != "" {
		qb.eq("c.supervisor_id", filter.SupervisorID)
	}
	if filter.GradeLevel > 0 {
		qb.eq("c.grade_level", filter.GradeLevel)
	}
	qb.search(filter.Search, "c.name")

	limit, offset := window(filter.PageRequest)
	query := fmt.Sprintf(`SELECT c.id, c.name, c.capacity, c.grade_level, c.supervisor_id, c.created_at, c.updated_at,
        t.name AS supervisor_name, t.surname AS supervisor_surname,
        (SELECT COUNT(*) FROM students s WHERE s.class_id = c.id) AS student_count
        %s%s%s LIMIT %d OFFSET %d`,
		base, qb.whereClause(),
		orderClause(filter.SortBy, filter.SortOrder, classSorts, "c.name", "ASC", "c.id"),
		limit, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, qb.whereClause())
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID fetches a class detail by ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	const query = `SELECT c.id, c.name, c.capacity, c.grade_level, c.supervisor_id, c.created_at, c.updated_at,
        t.name AS supervisor_name, t.surname AS supervisor_surname,
        (SELECT COUNT(*) FROM students s WHERE s.class_id = c.id) AS student_count
        FROM classes c
        LEFT JOIN teachers t ON t.id = c.supervisor_id
        WHERE c.id = $1`
	var detail models.ClassDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// SubjectIDs returns the subjects linked to a class.
func (r *ClassRepository) SubjectIDs(ctx context.Context, classID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT subject_id FROM class_subjects WHERE class_id = $1 ORDER BY subject_id`, classID); err != nil {
		return nil, fmt.Errorf("list class subjects: %w", err)
	}
	return ids, nil
}

// Create inserts the class and its subject links in one transaction.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class, subjectIDs []string) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create class: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO classes (id, name, capacity, grade_level, supervisor_id, created_at, updated_at)
        VALUES (:id, :name, :capacity, :grade_level, :supervisor_id, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}

	for _, subjectID := range subjectIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO class_subjects (class_id, subject_id) VALUES ($1, $2)`, class.ID, subjectID); err != nil {
			return fmt.Errorf("link subject %s: %w", subjectID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create class: %w", err)
	}
	return nil
}

// Update modifies class fields and synchronizes subject links.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class, subjectIDs []string) error {
	class.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update class: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE classes SET name = :name, capacity = :capacity, grade_level = :grade_level,
        supervisor_id = :supervisor_id, updated_at = :updated_at WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}

	if subjectIDs != nil {
		if err = syncJoinRows(ctx, tx, "class_subjects", "class_id", "subject_id", class.ID, subjectIDs); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update class: %w", err)
	}
	return nil
}

// Delete removes a class unless students or lessons still reference it.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete class: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = refuseIfReferenced(ctx, tx, "student", `SELECT COUNT(*) FROM students WHERE class_id = $1`, id); err != nil {
		return err
	}
	if err = refuseIfReferenced(ctx, tx, "lesson", `SELECT COUNT(*) FROM lessons WHERE class_id = $1`, id); err != nil {
		return err
	}
	if err = refuseIfReferenced(ctx, tx, "announcement", `SELECT COUNT(*) FROM announcements WHERE class_id = $1`, id); err != nil {
		return err
	}
	if err = refuseIfReferenced(ctx, tx, "event", `SELECT COUNT(*) FROM events WHERE class_id = $1`, id); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM class_subjects WHERE class_id = $1`, id); err != nil {
		return fmt.Errorf("clear class subjects: %w", err)
	}

	res, execErr := tx.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if execErr != nil {
		err = fmt.Errorf("delete class: %w", execErr)
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete class: %w", err)
	}
	return nil
}

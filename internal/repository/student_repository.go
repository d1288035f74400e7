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
	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

var studentScopeColumns = map[scope.Dimension]string{
	scope.ByID:     "s.id",
	scope.ByClass:  "s.class_id",
	scope.ByParent: "s.parent_id",
}

var studentSorts = map[string]string{
	"surname":    "s.surname",
	"name":       "s.name",
	"username":   "s.username",
	"created_at": "s.created_at",
}

// List returns the page of students matching the scope and filters together
// with the exact count over the same predicates.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter, sc scope.Scope) ([]models.StudentDetail, int, error) {
	base := `FROM students s
JOIN classes c ON c.id = s.class_id
JOIN parents p ON p.id = s.parent_id`

	qb := newQueryBuilder()
	qb.applyScope(sc, studentScopeColumns)
	if filter.ClassID != "" {
		qb.eq("s.class_id", filter.ClassID)
	}
	if filter.ParentID != "" {
		qb.eq("s.parent_id", filter.ParentID)
	}
	qb.search(filter.Search, "s.name", "s.surname", "s.username")

	limit, offset := window(filter.PageRequest)
	query := fmt.Sprintf(`SELECT s.id, s.username, s.name, s.surname, s.email, s.phone, s.address, s.sex, s.birthday,
        s.class_id, s.parent_id, s.created_at, s.updated_at,
        c.name AS class_name, p.name AS parent_name, p.surname AS parent_surname
        %s%s%s LIMIT %d OFFSET %d`,
		base, qb.whereClause(),
		orderClause(filter.SortBy, filter.SortOrder, studentSorts, "s.surname", "ASC", "s.id"),
		limit, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, qb.whereClause())
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student detail by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	const query = `SELECT s.id, s.username, s.name, s.surname, s.email, s.phone, s.address, s.sex, s.birthday,
        s.class_id, s.parent_id, s.created_at, s.updated_at,
        c.name AS class_name, p.name AS parent_name, p.surname AS parent_surname
        FROM students s
        JOIN classes c ON c.id = s.class_id
        JOIN parents p ON p.id = s.parent_id
        WHERE s.id = $1`
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a student after verifying, under a row lock on the target
// class, that the class still has room. The check and the insert commit
// together so concurrent enrollments cannot overshoot capacity.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create student: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = assertClassHasRoom(ctx, tx, student.ClassID, ""); err != nil {
		return err
	}

	const query = `INSERT INTO students (id, username, name, surname, email, phone, address, sex, birthday, class_id, parent_id, created_at, updated_at)
        VALUES (:id, :username, :name, :surname, :email, :phone, :address, :sex, :birthday, :class_id, :parent_id, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create student: %w", err)
	}
	return nil
}

// Update modifies a student. Moving the student into another class re-runs
// the capacity check against the destination inside the same transaction.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student, previousClassID string) error {
	student.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update student: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if student.ClassID != previousClassID {
		if err = assertClassHasRoom(ctx, tx, student.ClassID, student.ID); err != nil {
			return err
		}
	}

	const query = `UPDATE students SET username = :username, name = :name, surname = :surname, email = :email, phone = :phone,
        address = :address, sex = :sex, birthday = :birthday, class_id = :class_id, parent_id = :parent_id, updated_at = :updated_at
        WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update student: %w", err)
	}
	return nil
}

// Delete removes a student unless dependent records reference it. The
// dependency checks and the delete run in one transaction so no dependent
// row can appear between check and delete.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete student: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = refuseIfReferenced(ctx, tx, "result", `SELECT COUNT(*) FROM results WHERE student_id = $1`, id); err != nil {
		return err
	}
	if err = refuseIfReferenced(ctx, tx, "attendance", `SELECT COUNT(*) FROM attendances WHERE student_id = $1`, id); err != nil {
		return err
	}

	res, execErr := tx.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if execErr != nil {
		err = fmt.Errorf("delete student: %w", execErr)
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete student: %w", err)
	}
	return nil
}

// assertClassHasRoom locks the class row and compares occupancy against
// capacity. excludeStudentID keeps a moving student from counting against
// its destination twice.
func assertClassHasRoom(ctx context.Context, tx *sqlx.Tx, classID, excludeStudentID string) error {
	var capacity int
	if err := tx.GetContext(ctx, &capacity, `SELECT capacity FROM classes WHERE id = $1 FOR UPDATE`, classID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return fmt.Errorf("lock class %s: %w", classID, err)
	}

	query := `SELECT COUNT(*) FROM students WHERE class_id = $1`
	args := []interface{}{classID}
	if excludeStudentID != "" {
		query += ` AND id <> $2`
		args = append(args, excludeStudentID)
	}
	var occupancy int
	if err := tx.GetContext(ctx, &occupancy, query, args...); err != nil {
		return fmt.Errorf("count class occupancy: %w", err)
	}
	if occupancy >= capacity {
		return appErrors.CapacityExceeded(classID, capacity)
	}
	return nil
}

// refuseIfReferenced raises a typed dependency conflict when the count
// query finds rows referencing the delete target.
func refuseIfReferenced(ctx context.Context, tx *sqlx.Tx, entity, countQuery, id string) error {
	var count int
	if err := tx.GetContext(ctx, &count, countQuery, id); err != nil {
		return fmt.Errorf("check %s dependents: %w", entity, err)
	}
	if count > 0 {
		return appErrors.DependencyConflict(entity, count)
	}
	return nil
}

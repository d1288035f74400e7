package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skooldesk/skooldesk-api/internal/models"
)

// TeacherRepository manages persistence for teaching staff and their
// subject assignments.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

var teacherSorts = map[string]string{
	"surname":    "t.surname",
	"name":       "t.name",
	"username":   "t.username",
	"created_at": "t.created_at",
}

// List returns teachers matching the provided filters.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	base := "FROM teachers t"

	qb := newQueryBuilder()
	if filter.SubjectID != "" {
		qb.args = append(qb.args, filter.SubjectID)
		qb.conds = append(qb.conds, fmt.Sprintf("EXISTS (SELECT 1 FROM teacher_subjects ts WHERE ts.teacher_id = t.id AND ts.subject_id = $%d)", len(qb.args)))
	}
	if filter.ClassID != "" {
		qb.args = append(qb.args, filter.ClassID)
		qb.conds = append(qb.conds, fmt.Sprintf("EXISTS (SELECT 1 FROM lessons l WHERE l.teacher_id = t.id AND l.class_id = $%d)", len(qb.args)))
	}
	qb.search(filter.Search, "t.name", "t.surname", "t.username")

	limit, offset := window(filter.PageRequest)
	query := fmt.Sprintf(`SELECT t.id, t.username, t.name, t.surname, t.email, t.phone, t.address, t.sex, t.birthday, t.created_at, t.updated_at
        %s%s%s LIMIT %d OFFSET %d`,
		base, qb.whereClause(),
		orderClause(filter.SortBy, filter.SortOrder, teacherSorts, "t.surname", "ASC", "t.id"),
		limit, offset)

	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, qb.whereClause())
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// FindByID fetches a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, username, name, surname, email, phone, address, sex, birthday, created_at, updated_at
        FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// SubjectIDs returns the subject assignments of a teacher.
func (r *TeacherRepository) SubjectIDs(ctx context.Context, teacherID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT subject_id FROM teacher_subjects WHERE teacher_id = $1 ORDER BY subject_id`, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher subjects: %w", err)
	}
	return ids, nil
}

// Create inserts the teacher row and its subject assignments in a single
// transaction. A failed assignment insert rolls the primary row back, so no
// partially created teacher survives.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher, subjectIDs []string) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create teacher: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO teachers (id, username, name, surname, email, phone, address, sex, birthday, created_at, updated_at)
        VALUES (:id, :username, :name, :surname, :email, :phone, :address, :sex, :birthday, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}

	for _, subjectID := range subjectIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO teacher_subjects (teacher_id, subject_id) VALUES ($1, $2)`, teacher.ID, subjectID); err != nil {
			return fmt.Errorf("assign subject %s: %w", subjectID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create teacher: %w", err)
	}
	return nil
}

// Update modifies teacher fields and synchronizes subject assignments to the
// desired set: only the symmetric difference produces deletes and inserts,
// and all of it commits atomically with the scalar update.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher, subjectIDs []string) error {
	teacher.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update teacher: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE teachers SET username = :username, name = :name, surname = :surname, email = :email, phone = :phone,
        address = :address, sex = :sex, birthday = :birthday, updated_at = :updated_at WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}

	if subjectIDs != nil {
		if err = syncJoinRows(ctx, tx, "teacher_subjects", "teacher_id", "subject_id", teacher.ID, subjectIDs); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update teacher: %w", err)
	}
	return nil
}

// Delete removes a teacher unless lessons or supervised classes still
// reference it. Owned subject assignments go with the row.
func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete teacher: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = refuseIfReferenced(ctx, tx, "lesson", `SELECT COUNT(*) FROM lessons WHERE teacher_id = $1`, id); err != nil {
		return err
	}
	if err = refuseIfReferenced(ctx, tx, "class", `SELECT COUNT(*) FROM classes WHERE supervisor_id = $1`, id); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM teacher_subjects WHERE teacher_id = $1`, id); err != nil {
		return fmt.Errorf("clear teacher subjects: %w", err)
	}

	res, execErr := tx.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	if execErr != nil {
		err = fmt.Errorf("delete teacher: %w", execErr)
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete teacher: %w", err)
	}
	return nil
}

// syncJoinRows reconciles a many-to-many join table toward the desired set
// of related ids: rows outside the set are deleted, missing rows inserted,
// rows already in place left alone.
func syncJoinRows(ctx context.Context, tx *sqlx.Tx, table, ownerColumn, relatedColumn, ownerID string, desired []string) error {
	var existing []string
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, relatedColumn, table, ownerColumn)
	if err := tx.SelectContext(ctx, &existing, query, ownerID); err != nil {
		return fmt.Errorf("load %s: %w", table, err)
	}

	desiredSet := make(map[string]struct{}, len(desired))
	for _, id := range desired {
		desiredSet[id] = struct{}{}
	}
	existingSet := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		existingSet[id] = struct{}{}
	}

	for _, id := range existing {
		if _, keep := desiredSet[id]; keep {
			continue
		}
		del := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`, table, ownerColumn, relatedColumn)
		if _, err := tx.ExecContext(ctx, del, ownerID, id); err != nil {
			return fmt.Errorf("remove %s row: %w", table, err)
		}
	}
	for _, id := range desired {
		if _, present := existingSet[id]; present {
			continue
		}
		ins := fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES ($1, $2)`, table, ownerColumn, relatedColumn)
		if _, err := tx.ExecContext(ctx, ins, ownerID, id); err != nil {
			return fmt.Errorf("insert %s row: %w", table, err)
		}
	}
	return nil
}

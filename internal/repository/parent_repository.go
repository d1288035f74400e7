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

// ParentRepository manages persistence for parent records.
type ParentRepository struct {
	db *sqlx.DB
}

// NewParentRepository constructs a ParentRepository.
func NewParentRepository(db *sqlx.DB) *ParentRepository {
	return &ParentRepository{db: db}
}

var parentSorts = map[string]string{
	"surname":    "p.surname",
	"name":       "p.name",
	"created_at": "p.created_at",
}

// List returns parents matching the provided filters.
func (r *ParentRepository) List(ctx context.Context, filter models.ParentFilter) ([]models.ParentDetail, int, error) {
	base := "FROM parents p"

	qb := newQueryBuilder()
	qb.search(filter.Search, "p.name", "p.surname", "p.username")

	limit, offset := window(filter.PageRequest)
	query := fmt.Sprintf(`SELECT p.id, p.username, p.name, p.surname, p.email, p.phone, p.address, p.created_at, p.updated_at,
        (SELECT COUNT(*) FROM students s WHERE s.parent_id = p.id) AS student_count
        %s%s%s LIMIT %d OFFSET %d`,
		base, qb.whereClause(),
		orderClause(filter.SortBy, filter.SortOrder, parentSorts, "p.surname", "ASC", "p.id"),
		limit, offset)

	var parents []models.ParentDetail
	if err := r.db.SelectContext(ctx, &parents, query, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("list parents: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, qb.whereClause())
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("count parents: %w", err)
	}
	return parents, total, nil
}

// FindByID fetches a parent by ID.
func (r *ParentRepository) FindByID(ctx context.Context, id string) (*models.Parent, error) {
	const query = `SELECT id, username, name, surname, email, phone, address, created_at, updated_at FROM parents WHERE id = $1`
	var parent models.Parent
	if err := r.db.GetContext(ctx, &parent, query, id); err != nil {
		return nil, err
	}
	return &parent, nil
}

// Create inserts a new parent record.
func (r *ParentRepository) Create(ctx context.Context, parent *models.Parent) error {
	if parent.ID == "" {
		parent.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	parent.CreatedAt = now
	parent.UpdatedAt = now
	const query = `INSERT INTO parents (id, username, name, surname, email, phone, address, created_at, updated_at)
        VALUES (:id, :username, :name, :surname, :email, :phone, :address, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, parent); err != nil {
		return fmt.Errorf("create parent: %w", err)
	}
	return nil
}

// Update modifies an existing parent.
func (r *ParentRepository) Update(ctx context.Context, parent *models.Parent) error {
	parent.UpdatedAt = time.Now().UTC()
	const query = `UPDATE parents SET username = :username, name = :name, surname = :surname, email = :email,
        phone = :phone, address = :address, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, parent); err != nil {
		return fmt.Errorf("update parent: %w", err)
	}
	return nil
}

// Delete removes a parent unless students still reference it.
func (r *ParentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete parent: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = refuseIfReferenced(ctx, tx, "student", `SELECT COUNT(*) FROM students WHERE parent_id = $1`, id); err != nil {
		return err
	}

	res, execErr := tx.ExecContext(ctx, `DELETE FROM parents WHERE id = $1`, id)
	if execErr != nil {
		err = fmt.Errorf("delete parent: %w", execErr)
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete parent: %w", err)
	}
	return nil
}

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

// AnnouncementRepository manages persistence for announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository constructs an AnnouncementRepository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

var announcementScopeColumns = map[scope.Dimension]string{
	scope.ByClass: "a.class_id",
}

var announcementSorts = map[string]string{
	"date":  "a.date",
	"title": "a.title",
}

// List returns announcements visible in the scope. Unclassed announcements
// address the whole school and match any scope.
func (r *AnnouncementRepository) List(ctx context.Context, filter models.AnnouncementFilter, sc scope.Scope) ([]models.AnnouncementDetail, int, error) {
	base := `FROM announcements a
LEFT JOIN classes c ON c.id = a.class_id`

	qb := newQueryBuilder()
	qb.applyScope(sc, announcementScopeColumns)
	if filter.ClassID != "" {
		qb.eq("a.class_id", filter.ClassID)
	}
	qb.search(filter.Search, "a.title", "a.description")

	limit, offset := window(filter.PageRequest)
	query := fmt.Sprintf(`SELECT a.id, a.title, a.description, a.date, a.class_id, a.created_at, a.updated_at,
        c.name AS class_name
        %s%s%s LIMIT %d OFFSET %d`,
		base, qb.whereClause(),
		orderClause(filter.SortBy, filter.SortOrder, announcementSorts, "a.date", "DESC", "a.id"),
		limit, offset)

	var announcements []models.AnnouncementDetail
	if err := r.db.SelectContext(ctx, &announcements, query, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("list announcements: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, qb.whereClause())
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("count announcements: %w", err)
	}
	return announcements, total, nil
}

// FindByID fetches an announcement by ID.
func (r *AnnouncementRepository) FindByID(ctx context.Context, id string) (*models.AnnouncementDetail, error) {
	const query = `SELECT a.id, a.title, a.description, a.date, a.class_id, a.created_at, a.updated_at,
        c.name AS class_name
        FROM announcements a
        LEFT JOIN classes c ON c.id = a.class_id
        WHERE a.id = $1`
	var detail models.AnnouncementDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	if announcement.ID == "" {
		announcement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	announcement.CreatedAt = now
	announcement.UpdatedAt = now
	const query = `INSERT INTO announcements (id, title, description, date, class_id, created_at, updated_at)
        VALUES (:id, :title, :description, :date, :class_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// Update modifies an existing announcement.
func (r *AnnouncementRepository) Update(ctx context.Context, announcement *models.Announcement) error {
	announcement.UpdatedAt = time.Now().UTC()
	const query = `UPDATE announcements SET title = :title, description = :description, date = :date,
        class_id = :class_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	return nil
}

// Delete removes an announcement.
func (r *AnnouncementRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

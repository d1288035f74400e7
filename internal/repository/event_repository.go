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

// EventRepository manages persistence for events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

var eventScopeColumns = map[scope.Dimension]string{
	scope.ByClass: "ev.class_id",
}

var eventSorts = map[string]string{
	"start_time": "ev.start_time",
	"title":      "ev.title",
}

// List returns events visible in the scope. Unclassed events address the
// whole school and match any scope.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter, sc scope.Scope) ([]models.EventDetail, int, error) {
	base := `FROM events ev
LEFT JOIN classes c ON c.id = ev.class_id`

	qb := newQueryBuilder()
	qb.applyScope(sc, eventScopeColumns)
	if filter.ClassID != "" {
		qb.eq("ev.class_id", filter.ClassID)
	}
	qb.search(filter.Search, "ev.title", "ev.description")

	limit, offset := window(filter.PageRequest)
	query := fmt.Sprintf(`SELECT ev.id, ev.title, ev.description, ev.start_time, ev.end_time, ev.class_id,
        ev.created_at, ev.updated_at, c.name AS class_name
        %s%s%s LIMIT %d OFFSET %d`,
		base, qb.whereClause(),
		orderClause(filter.SortBy, filter.SortOrder, eventSorts, "ev.start_time", "DESC", "ev.id"),
		limit, offset)

	var events []models.EventDetail
	if err := r.db.SelectContext(ctx, &events, query, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, qb.whereClause())
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, qb.args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	return events, total, nil
}

// FindByID fetches an event by ID.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.EventDetail, error) {
	const query = `SELECT ev.id, ev.title, ev.description, ev.start_time, ev.end_time, ev.class_id,
        ev.created_at, ev.updated_at, c.name AS class_name
        FROM events ev
        LEFT JOIN classes c ON c.id = ev.class_id
        WHERE ev.id = $1`
	var detail models.EventDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	const query = `INSERT INTO events (id, title, description, start_time, end_time, class_id, created_at, updated_at)
        VALUES (:id, :title, :description, :start_time, :end_time, :class_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update modifies an existing event.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET title = :title, description = :description, start_time = :start_time,
        end_time = :end_time, class_id = :class_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// Delete removes an event.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

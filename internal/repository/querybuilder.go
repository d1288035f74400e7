package repository

import (
	"fmt"
	"strings"

	"github.com/skooldesk/skooldesk-api/internal/models"
	"github.com/skooldesk/skooldesk-api/internal/scope"
)

// queryBuilder accumulates WHERE conditions with numbered args so every
// repository translates filters, search terms and resolved scopes the same
// way and runs the page and its exact count over identical predicates.
type queryBuilder struct {
	conds []string
	args  []interface{}
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{}
}

// eq adds an equality predicate.
func (b *queryBuilder) eq(column string, value interface{}) {
	b.args = append(b.args, value)
	b.conds = append(b.conds, fmt.Sprintf("%s = $%d", column, len(b.args)))
}

// search adds a case-insensitive substring match across the designated text
// columns, sharing one bound argument.
func (b *queryBuilder) search(term string, columns ...string) {
	if term == "" || len(columns) == 0 {
		return
	}
	b.args = append(b.args, "%"+strings.ToLower(term)+"%")
	n := len(b.args)
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("LOWER(%s) LIKE $%d", col, n)
	}
	b.conds = append(b.conds, "("+strings.Join(parts, " OR ")+")")
}

// in adds an inclusion predicate over the given ids.
func (b *queryBuilder) in(column string, ids []string) {
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		b.args = append(b.args, id)
		placeholders[i] = fmt.Sprintf("$%d", len(b.args))
	}
	b.conds = append(b.conds, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")))
}

// inOrNull admits rows whose column is NULL as well as rows inside the
// id-set. Used for audience entities whose unclassed rows address everyone.
func (b *queryBuilder) inOrNull(column string, ids []string) {
	if len(ids) == 0 {
		b.conds = append(b.conds, fmt.Sprintf("%s IS NULL", column))
		return
	}
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		b.args = append(b.args, id)
		placeholders[i] = fmt.Sprintf("$%d", len(b.args))
	}
	b.conds = append(b.conds, fmt.Sprintf("(%s IS NULL OR %s IN (%s))", column, column, strings.Join(placeholders, ",")))
}

// applyScope translates a resolved scope into an inclusion predicate over
// the column the scope's dimension maps to. Unrestricted adds nothing.
// Callers must short-circuit denied scopes before reaching the store.
func (b *queryBuilder) applyScope(sc scope.Scope, columns map[scope.Dimension]string) {
	if sc.Result.IsUnrestricted() {
		return
	}
	column, ok := columns[sc.Dimension]
	if !ok {
		return
	}
	if sc.IncludeUnclassed {
		b.inOrNull(column, sc.Result.IDs())
		return
	}
	b.in(column, sc.Result.IDs())
}

// whereClause renders the accumulated conditions.
func (b *queryBuilder) whereClause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// orderClause builds a deterministic ORDER BY: the requested sort column
// checked against an allow-list, then the primary key ascending as
// tie-break so pagination stays stable under equal sort keys.
func orderClause(sortBy, sortOrder string, allowed map[string]string, defaultColumn, defaultOrder, pkColumn string) string {
	column, ok := allowed[sortBy]
	if !ok {
		column = defaultColumn
	}
	order := strings.ToUpper(sortOrder)
	if order != "ASC" && order != "DESC" {
		order = defaultOrder
	}
	return fmt.Sprintf(" ORDER BY %s %s, %s ASC", column, order, pkColumn)
}

// window derives the LIMIT/OFFSET pair from a normalized page request. An
// out-of-range page yields an empty result set, not an error.
func window(req models.PageRequest) (int, int) {
	req = req.Normalize()
	return req.PageSize, (req.Page - 1) * req.PageSize
}

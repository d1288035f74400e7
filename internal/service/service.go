// Package service implements the use cases of the access engine: every list
// and detail read is narrowed to the caller's visibility scope before it
// reaches a repository, and every mutation invalidates the cached reads it
// could have made stale.
package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/skooldesk/skooldesk-api/internal/models"
	"github.com/skooldesk/skooldesk-api/internal/scope"
	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
)

// scopeResolver computes per-request visibility scopes. Satisfied by
// *scope.Resolver.
type scopeResolver interface {
	ForLessons(ctx context.Context, actor models.Actor) (scope.Scope, error)
	ForSubjects(ctx context.Context, actor models.Actor) (scope.Scope, error)
	ForStudents(ctx context.Context, actor models.Actor) (scope.Scope, error)
	ForClasses(ctx context.Context, actor models.Actor) (scope.Scope, error)
	ForEnrollmentRecords(ctx context.Context, actor models.Actor) (scope.Scope, error)
	ForAudience(ctx context.Context, actor models.Actor) (scope.Scope, error)
}

// resolveScope runs one scope resolution and records its latency.
func resolveScope(ctx context.Context, metrics *MetricsService, entity string, actor models.Actor,
	fn func(context.Context, models.Actor) (scope.Scope, error)) (scope.Scope, error) {
	start := time.Now()
	sc, err := fn(ctx, actor)
	if metrics != nil {
		metrics.ObserveScopeResolution(entity, string(actor.Role), time.Since(start))
	}
	return sc, err
}

// intersectFilter folds an explicit id filter into the scope when both bind
// the same dimension. The filter is consumed: an id outside the scope leaves
// an empty result, never a widened one. Filters on other dimensions pass
// through and apply alongside the scope predicate.
func intersectFilter(sc scope.Scope, dim scope.Dimension, id string) (scope.Scope, string) {
	if id == "" || sc.Result.IsUnrestricted() {
		return sc, id
	}
	if sc.Dimension != dim {
		return sc, id
	}
	sc.Result = sc.Result.Intersect(id)
	return sc, ""
}

// scopeSignature renders a scope into a stable cache-key fragment.
func scopeSignature(sc scope.Scope) string {
	switch {
	case sc.Result.IsUnrestricted():
		return "all"
	case sc.Result.IsEmpty():
		if sc.IncludeUnclassed {
			return string(sc.Dimension) + ":unclassed"
		}
		return "none"
	}
	sig := string(sc.Dimension) + ":" + strings.Join(sc.Result.IDs(), ",")
	if sc.IncludeUnclassed {
		sig += "+unclassed"
	}
	return sig
}

// scopeAdmits reports whether a fetched row falls inside the scope. keys maps
// each dimension the caller can be scoped by onto the row's value for it; an
// empty value stands for an unclassed row, admitted only by audience scopes.
func scopeAdmits(sc scope.Scope, keys map[scope.Dimension]string) bool {
	if sc.Result.IsUnrestricted() {
		return true
	}
	key, ok := keys[sc.Dimension]
	if !ok {
		return false
	}
	if key == "" {
		return sc.IncludeUnclassed
	}
	return sc.Result.Contains(key)
}

// mapStoreError normalises repository failures: typed domain errors pass
// through, missing rows become NOT_FOUND, everything else is wrapped as
// internal.
func mapStoreError(err error, message string) error {
	if err == nil {
		return nil
	}
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

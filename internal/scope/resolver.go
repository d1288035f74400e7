package scope

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skooldesk/skooldesk-api/internal/models"
	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
)

// HopStore performs the bounded relationship reads the resolver chains
// together. Each call is one hop.
type HopStore interface {
	StudentClassID(ctx context.Context, studentID string) (string, error)
	ClassIDsByParent(ctx context.Context, parentID string) ([]string, error)
	StudentIDsByParent(ctx context.Context, parentID string) ([]string, error)
	SubjectIDsByTeacher(ctx context.Context, teacherID string) ([]string, error)
	SubjectIDsByClasses(ctx context.Context, classIDs []string) ([]string, error)
	ClassIDsBySupervisor(ctx context.Context, teacherID string) ([]string, error)
	ClassIDsTaughtBy(ctx context.Context, teacherID string) ([]string, error)
	StudentIDsByClasses(ctx context.Context, classIDs []string) ([]string, error)
}

// Resolver computes visibility scopes per (actor, entity) pair. Scopes are
// ephemeral: resolved per request and never persisted.
type Resolver struct {
	store   HopStore
	timeout time.Duration
	logger  *zap.Logger
}

// NewResolver constructs a Resolver. Resolution fails closed after the
// given timeout.
func NewResolver(store HopStore, timeout time.Duration, logger *zap.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, timeout: timeout, logger: logger}
}

// resolutionErr wraps any hop failure, including deadline expiry. A failed
// hop is never downgraded to an empty scope.
func resolutionErr(err error) error {
	return appErrors.Wrap(err, appErrors.ErrResolutionFailure.Code, appErrors.ErrResolutionFailure.Status, appErrors.ErrResolutionFailure.Message)
}

func (r *Resolver) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// classScope resolves the class-id set the actor belongs to: the student's
// own class, the union of a parent's children's classes, or the union of the
// classes a teacher supervises and teaches in. The teacher hops are
// independent and run concurrently.
func (r *Resolver) classScope(ctx context.Context, actor models.Actor) (Result, error) {
	switch actor.Role {
	case models.RoleStudent:
		classID, err := r.store.StudentClassID(ctx, actor.ProfileID)
		if err != nil {
			return Empty(), resolutionErr(err)
		}
		return IDSet(classID), nil
	case models.RoleParent:
		classIDs, err := r.store.ClassIDsByParent(ctx, actor.ProfileID)
		if err != nil {
			return Empty(), resolutionErr(err)
		}
		return IDSet(classIDs...), nil
	case models.RoleTeacher:
		var supervised, taught []string
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			ids, err := r.store.ClassIDsBySupervisor(gctx, actor.ProfileID)
			supervised = ids
			return err
		})
		g.Go(func() error {
			ids, err := r.store.ClassIDsTaughtBy(gctx, actor.ProfileID)
			taught = ids
			return err
		})
		if err := g.Wait(); err != nil {
			return Empty(), resolutionErr(err)
		}
		return Union(IDSet(supervised...), IDSet(taught...)), nil
	}
	return Empty(), nil
}

// ForLessons scopes lesson-shaped entities (lessons, exams, assignments):
// teachers by ownership column, students and parents by class membership.
func (r *Resolver) ForLessons(ctx context.Context, actor models.Actor) (Scope, error) {
	if actor.IsAdmin() {
		return All(), nil
	}
	ctx, cancel := r.bound(ctx)
	defer cancel()

	if actor.Role == models.RoleTeacher {
		return Scope{Dimension: ByTeacher, Result: IDSet(actor.ProfileID)}, nil
	}
	classes, err := r.classScope(ctx, actor)
	if err != nil {
		return Scope{}, err
	}
	return Scope{Dimension: ByClass, Result: classes}, nil
}

// ForSubjects scopes subjects: teachers see their assigned subjects,
// students and parents the subjects linked to their class set.
func (r *Resolver) ForSubjects(ctx context.Context, actor models.Actor) (Scope, error) {
	if actor.IsAdmin() {
		return All(), nil
	}
	ctx, cancel := r.bound(ctx)
	defer cancel()

	if actor.Role == models.RoleTeacher {
		ids, err := r.store.SubjectIDsByTeacher(ctx, actor.ProfileID)
		if err != nil {
			return Scope{}, resolutionErr(err)
		}
		return Scope{Dimension: ByID, Result: IDSet(ids...)}, nil
	}

	classes, err := r.classScope(ctx, actor)
	if err != nil {
		return Scope{}, err
	}
	if classes.IsEmpty() {
		return Scope{Dimension: ByID, Result: Empty()}, nil
	}
	ids, err := r.store.SubjectIDsByClasses(ctx, classes.IDs())
	if err != nil {
		return Scope{}, resolutionErr(err)
	}
	return Scope{Dimension: ByID, Result: IDSet(ids...)}, nil
}

// ForStudents scopes the student list: teachers see students of classes they
// supervise or teach in, parents their own children, students themselves.
func (r *Resolver) ForStudents(ctx context.Context, actor models.Actor) (Scope, error) {
	if actor.IsAdmin() {
		return All(), nil
	}
	ctx, cancel := r.bound(ctx)
	defer cancel()

	switch actor.Role {
	case models.RoleStudent:
		return Scope{Dimension: ByID, Result: IDSet(actor.ProfileID)}, nil
	case models.RoleParent:
		return Scope{Dimension: ByParent, Result: IDSet(actor.ProfileID)}, nil
	case models.RoleTeacher:
		classes, err := r.classScope(ctx, actor)
		if err != nil {
			return Scope{}, err
		}
		return Scope{Dimension: ByClass, Result: classes}, nil
	}
	return Scope{Dimension: ByID, Result: Empty()}, nil
}

// ForClasses scopes the class list to the actor's class set.
func (r *Resolver) ForClasses(ctx context.Context, actor models.Actor) (Scope, error) {
	if actor.IsAdmin() {
		return All(), nil
	}
	ctx, cancel := r.bound(ctx)
	defer cancel()

	classes, err := r.classScope(ctx, actor)
	if err != nil {
		return Scope{}, err
	}
	return Scope{Dimension: ByID, Result: classes}, nil
}

// ForEnrollmentRecords scopes per-student entities (attendances, results):
// teachers by lesson ownership, students by their own id, parents by the
// union of their children.
func (r *Resolver) ForEnrollmentRecords(ctx context.Context, actor models.Actor) (Scope, error) {
	if actor.IsAdmin() {
		return All(), nil
	}
	ctx, cancel := r.bound(ctx)
	defer cancel()

	switch actor.Role {
	case models.RoleTeacher:
		return Scope{Dimension: ByTeacher, Result: IDSet(actor.ProfileID)}, nil
	case models.RoleStudent:
		return Scope{Dimension: ByStudent, Result: IDSet(actor.ProfileID)}, nil
	case models.RoleParent:
		ids, err := r.store.StudentIDsByParent(ctx, actor.ProfileID)
		if err != nil {
			return Scope{}, resolutionErr(err)
		}
		return Scope{Dimension: ByStudent, Result: IDSet(ids...)}, nil
	}
	return Scope{Dimension: ByStudent, Result: Empty()}, nil
}

// ForAudience scopes announcements and events: rows addressed to the actor's
// class set plus unclassed (school-wide) rows. An empty class set still
// admits unclassed rows.
func (r *Resolver) ForAudience(ctx context.Context, actor models.Actor) (Scope, error) {
	if actor.IsAdmin() {
		return All(), nil
	}
	ctx, cancel := r.bound(ctx)
	defer cancel()

	classes, err := r.classScope(ctx, actor)
	if err != nil {
		return Scope{}, err
	}
	return Scope{Dimension: ByClass, Result: classes, IncludeUnclassed: true}, nil
}

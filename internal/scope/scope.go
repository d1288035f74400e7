// Package scope computes the set of rows an actor is permitted to see for a
// target entity by walking fixed relationship chains (teacher ownership,
// student class membership, parent-to-children unions).
package scope

import "sort"

// Dimension names the key column family a resolved id-set binds to. The
// repository layer maps a dimension onto the concrete column of its query.
type Dimension string

const (
	ByID      Dimension = "id"
	ByTeacher Dimension = "teacher"
	ByClass   Dimension = "class"
	ByStudent Dimension = "student"
	ByParent  Dimension = "parent"
)

type kind int

const (
	kindUnrestricted kind = iota
	kindIDSet
	kindEmpty
)

// Result is the outcome of resolving one (actor, entity) pair: unrestricted
// visibility, a deduplicated id-set, or no visibility at all.
type Result struct {
	kind kind
	ids  []string
}

// Unrestricted grants full visibility (admin, or an explicit filter that
// already fully determines the rows).
func Unrestricted() Result {
	return Result{kind: kindUnrestricted}
}

// Empty denies all visibility. An empty scope deterministically means a list
// result of zero rows without touching the store.
func Empty() Result {
	return Result{kind: kindEmpty}
}

// IDSet builds a deduplicated, ordered id-set. An empty input collapses to
// Empty.
func IDSet(ids ...string) Result {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return Empty()
	}
	sort.Strings(out)
	return Result{kind: kindIDSet, ids: out}
}

// IsUnrestricted reports whether the result imposes no predicate.
func (r Result) IsUnrestricted() bool {
	return r.kind == kindUnrestricted
}

// IsEmpty reports whether the actor may see nothing.
func (r Result) IsEmpty() bool {
	return r.kind == kindEmpty
}

// IDs returns the id-set. Nil for unrestricted and empty results.
func (r Result) IDs() []string {
	if r.kind != kindIDSet {
		return nil
	}
	return r.ids
}

// Contains reports membership. Unrestricted contains everything.
func (r Result) Contains(id string) bool {
	switch r.kind {
	case kindUnrestricted:
		return true
	case kindEmpty:
		return false
	}
	for _, v := range r.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Intersect narrows the result to the given explicit-filter ids. An empty
// intersection yields Empty, which callers must short-circuit without
// issuing the main list query.
func (r Result) Intersect(ids ...string) Result {
	if r.kind == kindEmpty {
		return Empty()
	}
	if r.kind == kindUnrestricted {
		return IDSet(ids...)
	}
	var kept []string
	for _, id := range ids {
		if r.Contains(id) {
			kept = append(kept, id)
		}
	}
	return IDSet(kept...)
}

// Union merges two results. Unrestricted absorbs everything.
func Union(a, b Result) Result {
	if a.kind == kindUnrestricted || b.kind == kindUnrestricted {
		return Unrestricted()
	}
	return IDSet(append(append([]string{}, a.ids...), b.ids...)...)
}

// Scope binds a resolution result to the dimension it constrains.
// IncludeUnclassed marks audience-style entities (announcements, events)
// whose rows with no class also match: for those an empty id-set still
// admits the unclassed rows and must not short-circuit.
type Scope struct {
	Dimension        Dimension
	Result           Result
	IncludeUnclassed bool
}

// All is the unrestricted scope.
func All() Scope {
	return Scope{Result: Unrestricted()}
}

// Denied reports whether the scope is empty with no unclassed fallback.
func (s Scope) Denied() bool {
	return s.Result.IsEmpty() && !s.IncludeUnclassed
}

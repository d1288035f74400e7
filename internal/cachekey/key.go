// Package cachekey builds structured cache keys so invalidation by entity
// family is type-safe rather than string-pattern based.
package cachekey

import (
	"fmt"
	"sort"
	"strings"
)

const namespace = "skooldesk"

// Key identifies one cached read: the entity family, the operation, and the
// canonicalized parameter list.
type Key struct {
	Entity string
	Op     string
	params []string
}

// New starts a key for the given entity family and operation.
func New(entity, op string) Key {
	return Key{Entity: entity, Op: op}
}

// With appends a parameter. Zero values are recorded too so that distinct
// requests never collide.
func (k Key) With(name string, value interface{}) Key {
	k.params = append(append([]string{}, k.params...), fmt.Sprintf("%s=%v", name, value))
	return k
}

// String renders the canonical key. Parameters are sorted so argument order
// at call sites does not fragment the cache.
func (k Key) String() string {
	params := append([]string{}, k.params...)
	sort.Strings(params)
	parts := []string{namespace, k.Entity, k.Op}
	if len(params) > 0 {
		parts = append(parts, strings.Join(params, "|"))
	}
	return strings.Join(parts, ":")
}

// Prefix returns the invalidation pattern covering every cached operation of
// the entity family.
func Prefix(entity string) string {
	return fmt.Sprintf("%s:%s:*", namespace, entity)
}

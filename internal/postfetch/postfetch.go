// Package postfetch applies predicates that cannot be pushed into the store
// query, operating on the already-fetched page only. Because it runs after
// pagination, the store-reported total reflects the pre-filter count; both
// counts are surfaced so neither is presented as the other.
package postfetch

// Outcome reports the count discrepancy a post-fetch pass introduced.
type Outcome struct {
	RawCount      int `json:"raw_count"`
	FilteredCount int `json:"filtered_count"`
}

// Apply keeps the rows matching pred, preserving order.
func Apply[T any](rows []T, pred func(T) bool) ([]T, Outcome) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if pred(row) {
			out = append(out, row)
		}
	}
	return out, Outcome{RawCount: len(rows), FilteredCount: len(out)}
}

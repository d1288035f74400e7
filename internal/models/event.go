package models

import "time"

// Event represents a school event addressed to one class or, when ClassID is
// nil, to the whole school.
type Event struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	StartTime   time.Time `db:"start_time" json:"start_time"`
	EndTime     time.Time `db:"end_time" json:"end_time"`
	ClassID     *string   `db:"class_id" json:"class_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// EventDetail expands an event with its class name.
type EventDetail struct {
	Event
	ClassName *string `db:"class_name" json:"class_name,omitempty"`
}

// EventFilter captures supported filters for listing events.
type EventFilter struct {
	Search  string
	ClassID string
	PageRequest
}

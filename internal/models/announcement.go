package models

import "time"

// Announcement represents a notice addressed to one class or, when ClassID
// is nil, to the whole school.
type Announcement struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Date        time.Time `db:"date" json:"date"`
	ClassID     *string   `db:"class_id" json:"class_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AnnouncementDetail expands an announcement with its class name.
type AnnouncementDetail struct {
	Announcement
	ClassName *string `db:"class_name" json:"class_name,omitempty"`
}

// AnnouncementFilter captures supported filters for listing announcements.
type AnnouncementFilter struct {
	Search  string
	ClassID string
	PageRequest
}

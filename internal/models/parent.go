package models

import "time"

// Parent represents a guardian linked to one or more students.
type Parent struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Name      string    `db:"name" json:"name"`
	Surname   string    `db:"surname" json:"surname"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Phone     string    `db:"phone" json:"phone"`
	Address   string    `db:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ParentDetail expands a parent with the number of linked students.
type ParentDetail struct {
	Parent
	StudentCount int `db:"student_count" json:"student_count"`
}

// ParentFilter captures supported filters for listing parents.
type ParentFilter struct {
	Search string
	PageRequest
}

package models

import "time"

// Class represents a homeroom group with a fixed capacity.
type Class struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Capacity     int       `db:"capacity" json:"capacity"`
	GradeLevel   int       `db:"grade_level" json:"grade_level"`
	SupervisorID *string   `db:"supervisor_id" json:"supervisor_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail expands a class with supervisor name and occupancy.
type ClassDetail struct {
	Class
	SupervisorName    *string `db:"supervisor_name" json:"supervisor_name,omitempty"`
	SupervisorSurname *string `db:"supervisor_surname" json:"supervisor_surname,omitempty"`
	StudentCount      int     `db:"student_count" json:"student_count"`
}

// ClassFilter captures supported filters for listing classes.
type ClassFilter struct {
	Search       string
	SupervisorID string
	GradeLevel   int
	PageRequest
}

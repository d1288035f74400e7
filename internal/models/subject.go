package models

import "time"

// Subject represents an academic subject.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectDetail expands a subject with its assigned teacher names.
type SubjectDetail struct {
	Subject
	TeacherIDs   []string `db:"-" json:"teacher_ids"`
	TeacherNames []string `db:"-" json:"teacher_names"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Search    string
	TeacherID string
	PageRequest
}

package models

import "time"

// Teacher represents a member of the teaching staff.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Name      string    `db:"name" json:"name"`
	Surname   string    `db:"surname" json:"surname"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Address   string    `db:"address" json:"address"`
	Sex       string    `db:"sex" json:"sex"`
	Birthday  time.Time `db:"birthday" json:"birthday"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherDetail expands a teacher with assigned subject names.
type TeacherDetail struct {
	Teacher
	SubjectIDs   []string `db:"-" json:"subject_ids"`
	SubjectNames []string `db:"-" json:"subject_names"`
}

// TeacherFilter captures supported filters for listing teachers.
type TeacherFilter struct {
	Search    string
	ClassID   string
	SubjectID string
	PageRequest
}

package models

import "time"

// Student represents a learner registered in the institution.
type Student struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Name      string    `db:"name" json:"name"`
	Surname   string    `db:"surname" json:"surname"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Address   string    `db:"address" json:"address"`
	Sex       string    `db:"sex" json:"sex"`
	Birthday  time.Time `db:"birthday" json:"birthday"`
	ClassID   string    `db:"class_id" json:"class_id"`
	ParentID  string    `db:"parent_id" json:"parent_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail expands a student row with its class and parent context.
type StudentDetail struct {
	Student
	ClassName     string `db:"class_name" json:"class_name"`
	ParentName    string `db:"parent_name" json:"parent_name"`
	ParentSurname string `db:"parent_surname" json:"parent_surname"`
}

// StudentFilter captures supported filters for listing students.
type StudentFilter struct {
	Search   string
	ClassID  string
	ParentID string
	PageRequest
}

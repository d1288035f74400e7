package models

import "time"

// Assignment represents graded homework attached to a lesson.
type Assignment struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	DueDate   time.Time `db:"due_date" json:"due_date"`
	LessonID  string    `db:"lesson_id" json:"lesson_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AssignmentDetail expands an assignment with its lesson context.
type AssignmentDetail struct {
	Assignment
	SubjectName    string `db:"subject_name" json:"subject_name"`
	ClassName      string `db:"class_name" json:"class_name"`
	TeacherName    string `db:"teacher_name" json:"teacher_name"`
	TeacherSurname string `db:"teacher_surname" json:"teacher_surname"`
	TeacherID      string `db:"teacher_id" json:"-"`
	ClassID        string `db:"class_id" json:"-"`
}

// AssignmentFilter captures supported filters for listing assignments.
type AssignmentFilter struct {
	Search    string
	ClassID   string
	TeacherID string
	LessonID  string
	PageRequest
}

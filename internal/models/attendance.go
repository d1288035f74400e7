package models

import "time"

// Attendance represents a presence record for a student in a lesson.
type Attendance struct {
	ID        string    `db:"id" json:"id"`
	Date      time.Time `db:"date" json:"date"`
	Present   bool      `db:"present" json:"present"`
	StudentID string    `db:"student_id" json:"student_id"`
	LessonID  string    `db:"lesson_id" json:"lesson_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceDetail expands an attendance row with student and lesson names.
type AttendanceDetail struct {
	Attendance
	StudentName    string `db:"student_name" json:"student_name"`
	StudentSurname string `db:"student_surname" json:"student_surname"`
	LessonName     string `db:"lesson_name" json:"lesson_name"`
	TeacherID      string `db:"teacher_id" json:"-"`
}

// AttendanceFilter captures supported filters for listing attendances.
type AttendanceFilter struct {
	Search    string
	StudentID string
	LessonID  string
	ClassID   string
	Present   *bool
	PageRequest
}

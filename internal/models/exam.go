package models

import "time"

// Exam represents a graded examination attached to a lesson.
type Exam struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
	LessonID  string    `db:"lesson_id" json:"lesson_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ExamDetail expands an exam with its lesson context.
type ExamDetail struct {
	Exam
	SubjectName    string `db:"subject_name" json:"subject_name"`
	ClassName      string `db:"class_name" json:"class_name"`
	TeacherName    string `db:"teacher_name" json:"teacher_name"`
	TeacherSurname string `db:"teacher_surname" json:"teacher_surname"`
	TeacherID      string `db:"teacher_id" json:"-"`
	ClassID        string `db:"class_id" json:"-"`
}

// ExamFilter captures supported filters for listing exams.
type ExamFilter struct {
	Search    string
	ClassID   string
	TeacherID string
	LessonID  string
	PageRequest
}

package models

import "time"

// Result represents a score a student earned, referencing exactly one of an
// exam or an assignment.
type Result struct {
	ID           string    `db:"id" json:"id"`
	Score        int       `db:"score" json:"score"`
	ExamID       *string   `db:"exam_id" json:"exam_id,omitempty"`
	AssignmentID *string   `db:"assignment_id" json:"assignment_id,omitempty"`
	StudentID    string    `db:"student_id" json:"student_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ResultDetail expands a result with the assessment title and student
// context. Title comes from whichever of the exam or assignment branch the
// row references.
type ResultDetail struct {
	Result
	Title          string  `db:"title" json:"title"`
	StudentName    string  `db:"student_name" json:"student_name"`
	StudentSurname string  `db:"student_surname" json:"student_surname"`
	StudentParentID string `db:"student_parent_id" json:"-"`
	TeacherID      string  `db:"teacher_id" json:"-"`
	ClassName      string  `db:"class_name" json:"class_name"`
	TeacherName    string  `db:"teacher_name" json:"teacher_name"`
	TeacherSurname string  `db:"teacher_surname" json:"teacher_surname"`
}

// ResultFilter captures supported filters for listing results.
type ResultFilter struct {
	Search       string
	StudentID    string
	ExamID       string
	AssignmentID string
	PageRequest
}

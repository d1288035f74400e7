package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// ScopeRepository performs the relationship hops the scope resolver chains
// together. Every method is one bounded read.
type ScopeRepository struct {
	db *sqlx.DB
}

// NewScopeRepository constructs a ScopeRepository.
func NewScopeRepository(db *sqlx.DB) *ScopeRepository {
	return &ScopeRepository{db: db}
}

// StudentClassID returns the class a student belongs to.
func (r *ScopeRepository) StudentClassID(ctx context.Context, studentID string) (string, error) {
	var classID string
	if err := r.db.GetContext(ctx, &classID, `SELECT class_id FROM students WHERE id = $1`, studentID); err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("student %s has no class", studentID)
		}
		return "", fmt.Errorf("student class hop: %w", err)
	}
	return classID, nil
}

// ClassIDsByParent returns the distinct classes of a parent's children.
func (r *ScopeRepository) ClassIDsByParent(ctx context.Context, parentID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT DISTINCT class_id FROM students WHERE parent_id = $1`, parentID); err != nil {
		return nil, fmt.Errorf("parent class hop: %w", err)
	}
	return ids, nil
}

// StudentIDsByParent returns a parent's children.
func (r *ScopeRepository) StudentIDsByParent(ctx context.Context, parentID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM students WHERE parent_id = $1`, parentID); err != nil {
		return nil, fmt.Errorf("parent student hop: %w", err)
	}
	return ids, nil
}

// SubjectIDsByTeacher returns the subjects assigned to a teacher through the
// teacher_subjects join table.
func (r *ScopeRepository) SubjectIDsByTeacher(ctx context.Context, teacherID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT subject_id FROM teacher_subjects WHERE teacher_id = $1`, teacherID); err != nil {
		return nil, fmt.Errorf("teacher subject hop: %w", err)
	}
	return ids, nil
}

// SubjectIDsByClasses returns the subjects linked to the given classes
// through the class_subjects join table.
func (r *ScopeRepository) SubjectIDsByClasses(ctx context.Context, classIDs []string) ([]string, error) {
	if len(classIDs) == 0 {
		return nil, nil
	}
	query, args := inQuery(`SELECT DISTINCT subject_id FROM class_subjects WHERE class_id IN (%s)`, classIDs)
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("class subject hop: %w", err)
	}
	return ids, nil
}

// ClassIDsBySupervisor returns the classes a teacher supervises.
func (r *ScopeRepository) ClassIDsBySupervisor(ctx context.Context, teacherID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM classes WHERE supervisor_id = $1`, teacherID); err != nil {
		return nil, fmt.Errorf("supervisor class hop: %w", err)
	}
	return ids, nil
}

// ClassIDsTaughtBy returns the distinct classes a teacher has lessons in.
func (r *ScopeRepository) ClassIDsTaughtBy(ctx context.Context, teacherID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT DISTINCT class_id FROM lessons WHERE teacher_id = $1`, teacherID); err != nil {
		return nil, fmt.Errorf("taught class hop: %w", err)
	}
	return ids, nil
}

// StudentIDsByClasses returns the students enrolled in the given classes.
func (r *ScopeRepository) StudentIDsByClasses(ctx context.Context, classIDs []string) ([]string, error) {
	if len(classIDs) == 0 {
		return nil, nil
	}
	query, args := inQuery(`SELECT id FROM students WHERE class_id IN (%s)`, classIDs)
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("class student hop: %w", err)
	}
	return ids, nil
}

// inQuery expands an id list into numbered placeholders for the %s slot.
func inQuery(format string, ids []string) (string, []interface{}) {
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	return fmt.Sprintf(format, strings.Join(placeholders, ",")), args
}

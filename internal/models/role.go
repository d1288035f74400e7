package models

import "fmt"

// Role represents the closed set of actor roles.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
	RoleParent  Role = "PARENT"
)

// ParseRole validates a raw role string against the closed enum.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
		return Role(raw), nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// Actor identifies the caller for scope resolution. ProfileID is the
// domain-level identity: the teacher, student or parent row the user account
// is linked to. Admin actors have no profile.
type Actor struct {
	Role      Role
	UserID    string
	ProfileID string
}

// IsAdmin reports whether the actor sees unrestricted data.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

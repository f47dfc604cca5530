package models

import "fmt"

// Role governs what a member may do on a list.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// CanEdit reports whether the role carries mutation rights on a list.
func (r Role) CanEdit() bool {
	return r == RoleOwner || r == RoleEditor
}

// ParseRole validates a raw role string at the write boundary. Unknown
// values are rejected here rather than tolerated downstream.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}

package core

import "collab-todo-backend-go/internal/models"

// Pure role evaluation over a list's role map. No I/O, no engine state.
//
// The roles map is the single source of truth for capabilities. If
// memberIds and roles ever disagree (a data-integrity defect), absence
// from roles means no edit rights even for someone present in
// memberIds; view access follows the membership set.

// RoleOf returns the role recorded for uid on the list, or the empty
// role when uid has none (including when uid is not a member).
func RoleOf(list *models.List, uid string) models.Role {
	if list == nil || uid == "" {
		return ""
	}
	return list.Roles[uid]
}

// CanEdit reports whether uid may mutate the list or its tasks.
func CanEdit(list *models.List, uid string) bool {
	return RoleOf(list, uid).CanEdit()
}

// CanView reports whether uid may see the list at all.
func CanView(list *models.List, uid string) bool {
	if list == nil || uid == "" {
		return false
	}
	return list.IsMember(uid)
}

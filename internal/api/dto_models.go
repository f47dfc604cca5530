package api

import (
	"collab-todo-backend-go/internal/core"
	"collab-todo-backend-go/internal/models"
)

// ErrorResponse is the uniform error body of the API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SessionResponse answers session establishment with the verified
// identity and the lists the user was newly added to through pending
// invitations consumed at sign-in.
type SessionResponse struct {
	Identity    *models.Identity `json:"identity"`
	JoinedLists []string         `json:"joinedLists,omitempty"`
}

// StateResponse is a full snapshot of the engine's projections.
type StateResponse struct {
	Lists            []*models.List                `json:"lists"`
	TasksByList      map[string][]*models.Task     `json:"tasksByList"`
	ActivitiesByList map[string][]*models.Activity `json:"activitiesByList"`
	Notifications    []*models.Notification        `json:"notifications"`
	Users            []*models.UserProfile         `json:"users"`
	Loading          bool                          `json:"loading"`
	Error            string                        `json:"error,omitempty"`
	Stats            models.DashboardStats         `json:"stats"`
}

// CreatedResponse carries the ID of a newly created document.
type CreatedResponse struct {
	ID string `json:"id"`
}

// PermissionsResponse describes the caller's capabilities on a list.
type PermissionsResponse struct {
	Role    models.Role `json:"role"`
	CanEdit bool        `json:"canEdit"`
	CanView bool        `json:"canView"`
}

// ReorderTasksRequest carries the full desired task ordering of a list.
type ReorderTasksRequest struct {
	TaskIDs []string `json:"taskIds" binding:"required"`
}

// NotificationUpdateRequest flips the read flag of one notification.
type NotificationUpdateRequest struct {
	Read *bool `json:"read" binding:"required"`
}

// InvitationActionRequest identifies the invitation an accept or
// decline refers to.
type InvitationActionRequest struct {
	ListID string `json:"listId" binding:"required"`
	Email  string `json:"email" binding:"required"`
}

// ResolutionResponse wraps an invitation resolution outcome.
// ClearParams tells the client to strip the invite query parameters
// from its location so a refresh does not replay a terminal outcome.
type ResolutionResponse struct {
	Resolution  *core.Resolution `json:"resolution,omitempty"`
	ClearParams bool             `json:"clearParams"`
}

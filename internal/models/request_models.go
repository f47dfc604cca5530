package models

// CreateListRequest represents the request body for creating a new list.
type CreateListRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
}

// UpdateListRequest represents a partial update of list details.
// Pointers distinguish "clear this field" from "field not provided".
type UpdateListRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
}

// CreateTaskRequest represents the request body for creating a task.
type CreateTaskRequest struct {
	Title         string   `json:"title" binding:"required"`
	Description   string   `json:"description,omitempty"`
	Priority      Priority `json:"priority,omitempty"`
	Status        Status   `json:"status,omitempty"`
	Deadline      string   `json:"deadline,omitempty"`
	AssignedToUID string   `json:"assignedToUid,omitempty"`
}

// UpdateTaskRequest represents a partial update of a task. Setting
// Status derives Done and vice versa; the engine keeps the coupling.
type UpdateTaskRequest struct {
	Title         *string   `json:"title,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Priority      *Priority `json:"priority,omitempty"`
	Status        *Status   `json:"status,omitempty"`
	Done          *bool     `json:"done,omitempty"`
	Deadline      *string   `json:"deadline,omitempty"`
	AssignedToUID *string   `json:"assignedToUid,omitempty"`
}

// InviteMemberRequest represents the request body for inviting a
// collaborator by email.
type InviteMemberRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

// DashboardStats summarizes the task projections for the dashboard.
type DashboardStats struct {
	TotalTasks        int `json:"totalTasks"`
	CompletedTasks    int `json:"completedTasks"`
	PendingTasks      int `json:"pendingTasks"`
	UpcomingDeadlines int `json:"upcomingDeadlines"`
}

package models

import (
	"fmt"
	"time"
)

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Status of a task. Done must always equal (Status == StatusCompleted);
// every mutator keeps the two in sync.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task belongs to exactly one list (subcollection). Order defines a
// dense per-list sequence used for manual reordering.
type Task struct {
	ID            string     `json:"id" firestore:"-"`
	ListID        string     `json:"listId" firestore:"-"`
	Title         string     `json:"title" firestore:"title"`
	Description   string     `json:"description,omitempty" firestore:"description,omitempty"`
	Priority      Priority   `json:"priority" firestore:"priority"`
	Status        Status     `json:"status" firestore:"status"`
	Done          bool       `json:"done" firestore:"done"`
	Deadline      string     `json:"deadline,omitempty" firestore:"deadline,omitempty"`
	AssignedToUID string     `json:"assignedToUid,omitempty" firestore:"assignedToUid,omitempty"`
	CreatedBy     string     `json:"createdBy" firestore:"createdBy"`
	CreatedAt     time.Time  `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
	Order         int        `json:"order" firestore:"order"`
}

// Validate checks the closed priority/status enumerations and the
// done/status coupling.
func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("task title is required")
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", t.Priority)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid status %q", t.Status)
	}
	if t.Done != (t.Status == StatusCompleted) {
		return fmt.Errorf("done flag %v inconsistent with status %q", t.Done, t.Status)
	}
	return nil
}

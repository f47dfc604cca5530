// Package db implements the document store client on Firestore:
// per-entity repositories with point reads, atomic writes and live
// query subscriptions delivered over snapshot channels.
package db

import (
	"context"

	"collab-todo-backend-go/internal/models"
)

// Snapshot types carry one push delivery of a live query's current
// result set, or the in-band failure of the underlying query. A failed
// subscription delivers exactly one snapshot with Err set and then its
// channel is closed.

// ListSnapshot is one delivery of the lists-by-member query.
type ListSnapshot struct {
	Lists []*models.List
	Err   error
}

// TaskSnapshot is one delivery of a per-list tasks query.
type TaskSnapshot struct {
	ListID string
	Tasks  []*models.Task
	Err    error
}

// ActivitySnapshot is one delivery of a per-list activities query.
type ActivitySnapshot struct {
	ListID     string
	Activities []*models.Activity
	Err        error
}

// NotificationSnapshot is one delivery of the notifications-by-user query.
type NotificationSnapshot struct {
	Notifications []*models.Notification
	Err           error
}

// UserSnapshot is one delivery of the all-users query.
type UserSnapshot struct {
	Users []*models.UserProfile
	Err   error
}

// ListRepository stores lists. GrantMembership must be a single
// per-document atomic update with additive merge semantics: two
// concurrent grants on the same list both take effect.
type ListRepository interface {
	Create(ctx context.Context, list *models.List) (string, error)
	GetByID(ctx context.Context, listID string) (*models.List, error)
	UpdateDetails(ctx context.Context, listID string, req models.UpdateListRequest) error
	GrantMembership(ctx context.Context, listID, uid string, role models.Role) error
	// WatchByMember subscribes to lists whose membership contains uid,
	// newest first. Cancel the context to unsubscribe; the channel is
	// closed afterwards.
	WatchByMember(ctx context.Context, uid string) (<-chan ListSnapshot, error)
}

// TaskRepository stores the tasks subcollection of a list.
type TaskRepository interface {
	Create(ctx context.Context, listID string, task *models.Task) (string, error)
	Update(ctx context.Context, listID, taskID string, fields map[string]interface{}) error
	Delete(ctx context.Context, listID, taskID string) error
	// Reorder rewrites the order field of every listed task to its
	// index position in a single batch.
	Reorder(ctx context.Context, listID string, orderedTaskIDs []string) error
	WatchByList(ctx context.Context, listID string) (<-chan TaskSnapshot, error)
}

// ActivityRepository stores the append-only activities subcollection.
type ActivityRepository interface {
	Create(ctx context.Context, listID string, entry *models.Activity) error
	WatchByList(ctx context.Context, listID string) (<-chan ActivitySnapshot, error)
}

// NotificationRepository stores per-user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	Update(ctx context.Context, notificationID string, fields map[string]interface{}) error
	// MarkAllRead flips the read flag on the given notifications in a
	// single batch.
	MarkAllRead(ctx context.Context, notificationIDs []string) error
	WatchByUser(ctx context.Context, uid string) (<-chan NotificationSnapshot, error)
}

// InvitationRepository stores pending invitations. Emails are stored
// and queried lowercased.
type InvitationRepository interface {
	Create(ctx context.Context, inv *models.PendingInvitation) (string, error)
	GetByListAndEmail(ctx context.Context, listID, email string) (*models.PendingInvitation, error)
	ListByEmail(ctx context.Context, email string) ([]*models.PendingInvitation, error)
	Delete(ctx context.Context, invitationID string) error
}

// UserRepository stores user profiles keyed by auth UID.
type UserRepository interface {
	Upsert(ctx context.Context, profile *models.UserProfile) error
	GetByID(ctx context.Context, uid string) (*models.UserProfile, error)
	WatchAll(ctx context.Context) (<-chan UserSnapshot, error)
}

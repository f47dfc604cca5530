// Package core contains the sync engine, the permission evaluator and
// the invitation resolver: the collaboration logic that keeps a local
// view of lists, tasks, activities and notifications consistent with
// the shared store under concurrent edits from multiple users.
package core

import (
	"context"

	"collab-todo-backend-go/internal/db"
	"collab-todo-backend-go/internal/models"
)

// Repositories bundles the document store handles the engine and the
// resolver operate on. Injected explicitly; there is no ambient store
// singleton.
type Repositories struct {
	Lists         db.ListRepository
	Tasks         db.TaskRepository
	Activities    db.ActivityRepository
	Notifications db.NotificationRepository
	Invitations   db.InvitationRepository
	Users         db.UserRepository
}

// InviteMailer sends the invitation email carrying the accept link.
// Mail is strictly a secondary effect: failures are logged, never
// propagated to the inviting caller.
type InviteMailer interface {
	SendInvitation(ctx context.Context, inv *models.PendingInvitation, acceptURL string) error
}

// Navigation is the engine's view of the current navigation context:
// the invite/email query parameters of the link-based invitation flow,
// and the ability to clear them without a reload so a terminal outcome
// is not re-triggered on refresh.
type Navigation interface {
	InviteParams() (listID, email string, ok bool)
	ClearInviteParams()
}

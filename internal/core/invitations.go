package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"collab-todo-backend-go/internal/apperr"
	"collab-todo-backend-go/internal/models"
)

// ResolutionState classifies the outcome of resolving a link-based
// invitation.
type ResolutionState string

const (
	// ResolutionPending means a valid invitation awaits an explicit
	// accept or decline.
	ResolutionPending ResolutionState = "pending"
	// ResolutionAccepted means membership was granted.
	ResolutionAccepted ResolutionState = "accepted"
	// ResolutionAlreadyMember means the caller already had membership;
	// the stale invitation was consumed.
	ResolutionAlreadyMember ResolutionState = "already_member"
	// ResolutionExpired means the invitation passed its expiry and was
	// deleted.
	ResolutionExpired ResolutionState = "expired"
	// ResolutionNotFound means no matching invitation exists.
	ResolutionNotFound ResolutionState = "not_found"
	// ResolutionListGone means the invitation pointed at a deleted
	// list; the orphan was cleaned up.
	ResolutionListGone ResolutionState = "list_gone"
	// ResolutionMismatch means the link is addressed to a different
	// email than the signed-in identity. Decided without touching the
	// store.
	ResolutionMismatch ResolutionState = "mismatch"
)

// Resolution is the outcome of a link-based invitation resolution.
// Invitation is populated only in the pending state; ListID is set
// whenever the outcome points the caller at a list.
type Resolution struct {
	State      ResolutionState           `json:"state"`
	ListID     string                    `json:"listId,omitempty"`
	ListName   string                    `json:"listName,omitempty"`
	Invitation *models.PendingInvitation `json:"invitation,omitempty"`
}

// InvitationResolver consumes pending invitations through the two entry
// points: automatically at sign-in for everything addressed to the new
// identity's email, and interactively from an invitation link.
//
// Consumption is idempotent end to end. The membership grant is an
// additive merge, so replaying a half-processed invitation (grant
// succeeded, delete did not) converges instead of corrupting state.
type InvitationResolver struct {
	repos  Repositories
	logger *zap.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

// NewInvitationResolver creates a resolver over the given repositories.
func NewInvitationResolver(repos Repositories, logger *zap.Logger) *InvitationResolver {
	return &InvitationResolver{
		repos:    repos,
		logger:   logger,
		inflight: make(map[string]bool),
	}
}

// ResolveOnSignIn processes every pending invitation addressed to the
// identity's email. Each invitation is handled in isolation: one
// failure is logged and skipped, the rest still go through. Expired
// invitations and invitations to deleted lists are cleaned up, valid
// ones are applied (membership granted, invitation consumed). Returns
// the IDs of lists the identity was newly added to.
func (r *InvitationResolver) ResolveOnSignIn(ctx context.Context, identity *models.Identity) []string {
	if identity == nil || identity.Email == "" {
		return nil
	}
	email := models.NormalizeEmail(identity.Email)
	invitations, err := r.repos.Invitations.ListByEmail(ctx, email)
	if err != nil {
		r.logger.Warn("failed to load pending invitations at sign-in",
			zap.String("uid", identity.UID), zap.Error(err))
		return nil
	}

	var joined []string
	now := time.Now()
	for _, inv := range invitations {
		listID, err := r.applyOne(ctx, identity, inv, now)
		if err != nil {
			r.logger.Warn("failed to process invitation at sign-in",
				zap.String("invitationId", inv.ID), zap.String("listId", inv.ListID), zap.Error(err))
			continue
		}
		if listID != "" {
			joined = append(joined, listID)
		}
	}
	return joined
}

// applyOne consumes a single invitation. Returns the list ID when the
// identity was newly granted membership, or "" when the invitation was
// only cleaned up.
func (r *InvitationResolver) applyOne(ctx context.Context, identity *models.Identity, inv *models.PendingInvitation, now time.Time) (string, error) {
	if inv.Expired(now) {
		r.discard(ctx, inv, "expired")
		return "", nil
	}
	// The stored role is re-validated before every grant; a corrupted
	// value must never reach the roles map.
	if !inv.Role.Valid() {
		r.discard(ctx, inv, "invalid role")
		return "", nil
	}
	list, err := r.repos.Lists.GetByID(ctx, inv.ListID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			r.discard(ctx, inv, "list gone")
			return "", nil
		}
		return "", err
	}
	if list.IsMember(identity.UID) {
		r.discard(ctx, inv, "already a member")
		return "", nil
	}

	if err := r.repos.Lists.GrantMembership(ctx, list.ID, identity.UID, inv.Role); err != nil {
		return "", err
	}
	// Everything after the grant is cleanup and courtesy: failures are
	// logged, and the additive grant makes a replay harmless.
	r.discard(ctx, inv, "consumed")
	r.announceJoin(ctx, identity, inv, list)
	return list.ID, nil
}

// ResolveFromNavigation resolves the invite/email query parameters of an
// invitation link. Terminal outcomes (everything but pending) clear the
// parameters so a refresh does not re-trigger them. The email mismatch
// check runs before any store access: a link addressed to someone else
// reveals nothing about whether the invitation exists.
func (r *InvitationResolver) ResolveFromNavigation(ctx context.Context, identity *models.Identity, nav Navigation) (*Resolution, error) {
	listID, email, ok := nav.InviteParams()
	if !ok {
		return nil, nil
	}
	if identity == nil {
		return nil, apperr.New(apperr.Unauthenticated, "sign in to open an invitation link")
	}
	email = models.NormalizeEmail(email)
	if models.NormalizeEmail(identity.Email) != email {
		nav.ClearInviteParams()
		return &Resolution{State: ResolutionMismatch}, nil
	}

	inv, err := r.repos.Invitations.GetByListAndEmail(ctx, listID, email)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			nav.ClearInviteParams()
			return &Resolution{State: ResolutionNotFound}, nil
		}
		return nil, err
	}
	if inv.Expired(time.Now()) {
		r.discard(ctx, inv, "expired")
		nav.ClearInviteParams()
		return &Resolution{State: ResolutionExpired}, nil
	}
	if !inv.Role.Valid() {
		r.discard(ctx, inv, "invalid role")
		nav.ClearInviteParams()
		return &Resolution{State: ResolutionNotFound}, nil
	}
	list, err := r.repos.Lists.GetByID(ctx, inv.ListID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			r.discard(ctx, inv, "list gone")
			nav.ClearInviteParams()
			return &Resolution{State: ResolutionListGone}, nil
		}
		return nil, err
	}
	if list.IsMember(identity.UID) {
		r.discard(ctx, inv, "already a member")
		nav.ClearInviteParams()
		return &Resolution{State: ResolutionAlreadyMember, ListID: list.ID, ListName: list.Name}, nil
	}
	return &Resolution{
		State:      ResolutionPending,
		ListID:     list.ID,
		ListName:   list.Name,
		Invitation: inv,
	}, nil
}

// Accept redeems a pending invitation after explicit confirmation. The
// invitation is re-verified from the store: the window between showing
// the dialog and confirming is long enough for it to expire, be revoked
// or be consumed by a concurrent session. Concurrent accepts of the
// same invitation in this process collapse to one.
func (r *InvitationResolver) Accept(ctx context.Context, identity *models.Identity, nav Navigation, listID, email string) (*Resolution, error) {
	if identity == nil {
		return nil, apperr.New(apperr.Unauthenticated, "sign in to accept an invitation")
	}
	email = models.NormalizeEmail(email)
	if models.NormalizeEmail(identity.Email) != email {
		return nil, apperr.New(apperr.PermissionDenied, "invitation is addressed to a different account")
	}

	key := listID + "|" + email
	if !r.begin(key) {
		return nil, apperr.New(apperr.AlreadyExists, "invitation is already being processed")
	}
	defer r.end(key)

	inv, err := r.repos.Invitations.GetByListAndEmail(ctx, listID, email)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			nav.ClearInviteParams()
			return &Resolution{State: ResolutionNotFound}, nil
		}
		return nil, err
	}
	if inv.Expired(time.Now()) {
		r.discard(ctx, inv, "expired")
		nav.ClearInviteParams()
		return &Resolution{State: ResolutionExpired}, nil
	}
	if !inv.Role.Valid() {
		r.discard(ctx, inv, "invalid role")
		nav.ClearInviteParams()
		return &Resolution{State: ResolutionNotFound}, nil
	}
	list, err := r.repos.Lists.GetByID(ctx, inv.ListID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			r.discard(ctx, inv, "list gone")
			nav.ClearInviteParams()
			return &Resolution{State: ResolutionListGone}, nil
		}
		return nil, err
	}
	if list.IsMember(identity.UID) {
		r.discard(ctx, inv, "already a member")
		nav.ClearInviteParams()
		return &Resolution{State: ResolutionAlreadyMember, ListID: list.ID, ListName: list.Name}, nil
	}

	if err := r.repos.Lists.GrantMembership(ctx, list.ID, identity.UID, inv.Role); err != nil {
		return nil, err
	}
	r.discard(ctx, inv, "consumed")
	r.announceJoin(ctx, identity, inv, list)
	nav.ClearInviteParams()
	return &Resolution{State: ResolutionAccepted, ListID: list.ID, ListName: list.Name}, nil
}

// Decline consumes the invitation without granting anything. Like
// Accept, concurrent declines of the same invitation in this process
// collapse to one, so the inviter is notified once.
func (r *InvitationResolver) Decline(ctx context.Context, identity *models.Identity, nav Navigation, listID, email string) error {
	if identity == nil {
		return apperr.New(apperr.Unauthenticated, "sign in to decline an invitation")
	}
	email = models.NormalizeEmail(email)
	if models.NormalizeEmail(identity.Email) != email {
		return apperr.New(apperr.PermissionDenied, "invitation is addressed to a different account")
	}

	key := listID + "|" + email
	if !r.begin(key) {
		return apperr.New(apperr.AlreadyExists, "invitation is already being processed")
	}
	defer r.end(key)

	inv, err := r.repos.Invitations.GetByListAndEmail(ctx, listID, email)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			nav.ClearInviteParams()
			return nil
		}
		return err
	}
	if err := r.repos.Invitations.Delete(ctx, inv.ID); err != nil && !apperr.Is(err, apperr.NotFound) {
		return err
	}
	if inv.InvitedBy != "" && inv.InvitedBy != identity.UID {
		n := &models.Notification{
			UserID:  inv.InvitedBy,
			Title:   "Invitation Declined",
			Message: fmt.Sprintf("%s declined the invitation to %q", identity.Name(), inv.ListName),
			ListID:  inv.ListID,
			Type:    "invitation",
		}
		if err := r.repos.Notifications.Create(ctx, n); err != nil {
			r.logger.Warn("failed to notify inviter of decline", zap.String("userId", inv.InvitedBy), zap.Error(err))
		}
	}
	nav.ClearInviteParams()
	return nil
}

// begin claims the in-process guard for one invitation. It returns
// false when another accept or decline of the same invitation is
// already underway; the caller must not touch the invitation then.
func (r *InvitationResolver) begin(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inflight[key] {
		return false
	}
	r.inflight[key] = true
	return true
}

func (r *InvitationResolver) end(key string) {
	r.mu.Lock()
	delete(r.inflight, key)
	r.mu.Unlock()
}

// discard deletes a consumed or dead invitation. A delete failure is
// logged only: the next resolution pass retries, and re-applying is
// safe.
func (r *InvitationResolver) discard(ctx context.Context, inv *models.PendingInvitation, reason string) {
	if err := r.repos.Invitations.Delete(ctx, inv.ID); err != nil && !apperr.Is(err, apperr.NotFound) {
		r.logger.Warn("failed to delete invitation",
			zap.String("invitationId", inv.ID), zap.String("reason", reason), zap.Error(err))
		return
	}
	r.logger.Debug("invitation discarded",
		zap.String("invitationId", inv.ID), zap.String("listId", inv.ListID), zap.String("reason", reason))
}

// announceJoin records the join in the list's activity log, welcomes
// the new member and notifies the inviter. All best-effort.
func (r *InvitationResolver) announceJoin(ctx context.Context, identity *models.Identity, inv *models.PendingInvitation, list *models.List) {
	entry := &models.Activity{
		Action:    fmt.Sprintf("joined the list as %s", inv.Role),
		UserID:    identity.UID,
		UserName:  identity.Name(),
		UserPhoto: identity.PhotoURL,
	}
	if err := r.repos.Activities.Create(ctx, list.ID, entry); err != nil {
		r.logger.Warn("failed to log join activity", zap.String("listId", list.ID), zap.Error(err))
	}
	welcome := &models.Notification{
		UserID:  identity.UID,
		Title:   "Added to List",
		Message: fmt.Sprintf("You joined %q as %s", list.Name, inv.Role),
		ListID:  list.ID,
		Type:    "invitation",
	}
	if err := r.repos.Notifications.Create(ctx, welcome); err != nil {
		r.logger.Warn("failed to create welcome notification", zap.String("userId", identity.UID), zap.Error(err))
	}
	if inv.InvitedBy != "" && inv.InvitedBy != identity.UID {
		n := &models.Notification{
			UserID:  inv.InvitedBy,
			Title:   "Invitation Accepted",
			Message: fmt.Sprintf("%s joined %q", identity.Name(), list.Name),
			ListID:  list.ID,
			Type:    "invitation",
		}
		if err := r.repos.Notifications.Create(ctx, n); err != nil {
			r.logger.Warn("failed to notify inviter", zap.String("userId", inv.InvitedBy), zap.Error(err))
		}
	}
}

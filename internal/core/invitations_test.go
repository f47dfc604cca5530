package core

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"collab-todo-backend-go/internal/apperr"
	"collab-todo-backend-go/internal/models"
)

var dave = &models.Identity{UID: "dave", Email: "dave@example.com", DisplayName: "Dave"}

func seedInvitation(fx *fixture, listID string, role models.Role, expiresAt time.Time) *models.PendingInvitation {
	inv := &models.PendingInvitation{
		ListID:        listID,
		ListName:      "Groceries",
		Email:         dave.Email,
		Role:          role,
		InvitedBy:     alice.UID,
		InvitedByName: "Alice",
		ExpiresAt:     expiresAt,
	}
	fx.invitations.Create(context.Background(), inv)
	return inv
}

func newResolver(fx *fixture) *InvitationResolver {
	return NewInvitationResolver(fx.repos(), zap.NewNop())
}

func TestResolveOnSignInConsumesValidInvitation(t *testing.T) {
	fx := newFixture()
	list := groceriesList()
	fx.lists.byID[list.ID] = list
	seedInvitation(fx, list.ID, models.RoleEditor, time.Now().Add(time.Hour))

	joined := newResolver(fx).ResolveOnSignIn(context.Background(), dave)

	if len(joined) != 1 || joined[0] != list.ID {
		t.Fatalf("joined = %v, want [%s]", joined, list.ID)
	}
	if fx.lists.grantCount() != 1 {
		t.Fatalf("grants = %d, want 1", fx.lists.grantCount())
	}
	g := fx.lists.grants[0]
	if g.uid != dave.UID || g.role != models.RoleEditor {
		t.Fatalf("grant = %+v", g)
	}
	if fx.invitations.count() != 0 {
		t.Fatal("invitation must be consumed")
	}
	if got := fx.activities.actions()[0]; got != "joined the list as editor" {
		t.Fatalf("activity = %q", got)
	}
	// Welcome to the new member, confirmation to the inviter.
	recipients := fx.notifications.recipients()
	if len(recipients) != 2 || recipients[0] != dave.UID || recipients[1] != alice.UID {
		t.Fatalf("recipients = %v, want [dave alice]", recipients)
	}
}

func TestResolveOnSignInCleansUpDeadInvitations(t *testing.T) {
	fx := newFixture()
	list := groceriesList()
	fx.lists.byID[list.ID] = list

	seedInvitation(fx, list.ID, models.RoleEditor, time.Now().Add(-time.Hour)) // expired
	seedInvitation(fx, "list-deleted", models.RoleViewer, time.Now().Add(time.Hour))
	seedInvitation(fx, list.ID, models.RoleViewer, time.Now().Add(time.Hour)) // valid

	joined := newResolver(fx).ResolveOnSignIn(context.Background(), dave)

	if len(joined) != 1 {
		t.Fatalf("joined = %v, want exactly the valid invitation's list", joined)
	}
	if fx.lists.grantCount() != 1 {
		t.Fatalf("grants = %d, want 1 (expired and orphaned grant nothing)", fx.lists.grantCount())
	}
	if fx.invitations.count() != 0 {
		t.Fatalf("all invitations should be cleaned up, %d left", fx.invitations.count())
	}
}

func TestResolveOnSignInDiscardsCorruptRole(t *testing.T) {
	fx := newFixture()
	list := groceriesList()
	fx.lists.byID[list.ID] = list

	seedInvitation(fx, list.ID, models.Role("admin"), time.Now().Add(time.Hour))
	seedInvitation(fx, list.ID, models.RoleViewer, time.Now().Add(time.Hour))

	joined := newResolver(fx).ResolveOnSignIn(context.Background(), dave)

	if len(joined) != 1 {
		t.Fatalf("joined = %v, want exactly the valid invitation's list", joined)
	}
	if fx.lists.grantCount() != 1 {
		t.Fatalf("grants = %d, want 1", fx.lists.grantCount())
	}
	if got := fx.lists.grants[0].role; got != models.RoleViewer {
		t.Fatalf("granted role = %q, want viewer", got)
	}
	if fx.invitations.count() != 0 {
		t.Fatal("corrupt invitation must be discarded, not retried")
	}
}

func TestResolveOnSignInAlreadyMemberConsumesWithoutGrant(t *testing.T) {
	fx := newFixture()
	list := groceriesList()
	list.MemberIDs = append(list.MemberIDs, dave.UID)
	list.Roles[dave.UID] = models.RoleViewer
	fx.lists.byID[list.ID] = list
	seedInvitation(fx, list.ID, models.RoleEditor, time.Now().Add(time.Hour))

	joined := newResolver(fx).ResolveOnSignIn(context.Background(), dave)

	if len(joined) != 0 {
		t.Fatalf("joined = %v, want none", joined)
	}
	if fx.lists.grantCount() != 0 {
		t.Fatal("existing membership must not be re-granted")
	}
	if fx.invitations.count() != 0 {
		t.Fatal("stale invitation must still be consumed")
	}
}

func TestResolveOnSignInIdempotent(t *testing.T) {
	fx := newFixture()
	list := groceriesList()
	fx.lists.byID[list.ID] = list
	seedInvitation(fx, list.ID, models.RoleEditor, time.Now().Add(time.Hour))
	resolver := newResolver(fx)

	resolver.ResolveOnSignIn(context.Background(), dave)
	joined := resolver.ResolveOnSignIn(context.Background(), dave)

	if len(joined) != 0 {
		t.Fatalf("second sweep joined = %v, want none", joined)
	}
	if fx.lists.grantCount() != 1 {
		t.Fatalf("grants = %d, want 1 across both sweeps", fx.lists.grantCount())
	}
}

func TestResolveFromNavigationNoParams(t *testing.T) {
	fx := newFixture()
	nav := &fakeNavigation{}

	resolution, err := newResolver(fx).ResolveFromNavigation(context.Background(), dave, nav)
	if err != nil || resolution != nil {
		t.Fatalf("resolution = %v, err = %v, want nil, nil", resolution, err)
	}
}

func TestResolveFromNavigationMismatchBeforeAnyStoreQuery(t *testing.T) {
	fx := newFixture()
	list := groceriesList()
	fx.lists.byID[list.ID] = list
	seedInvitation(fx, list.ID, models.RoleEditor, time.Now().Add(time.Hour))
	nav := &fakeNavigation{listID: list.ID, email: dave.Email, present: true}

	resolution, err := newResolver(fx).ResolveFromNavigation(context.Background(), bob, nav)
	if err != nil {
		t.Fatal(err)
	}
	if resolution.State != ResolutionMismatch {
		t.Fatalf("state = %s, want mismatch", resolution.State)
	}
	if !nav.cleared {
		t.Fatal("mismatch is terminal and must clear the params")
	}
	if fx.invitations.getCalls() != 0 {
		t.Fatal("a mismatched link must not touch the invitation store")
	}
}

func TestResolveFromNavigationNotFound(t *testing.T) {
	fx := newFixture()
	nav := &fakeNavigation{listID: "list-x", email: dave.Email, present: true}

	resolution, err := newResolver(fx).ResolveFromNavigation(context.Background(), dave, nav)
	if err != nil {
		t.Fatal(err)
	}
	if resolution.State != ResolutionNotFound || !nav.cleared {
		t.Fatalf("resolution = %+v, cleared = %v", resolution, nav.cleared)
	}
}

func TestResolveFromNavigationExpiredDeletesInvitation(t *testing.T) {
	fx := newFixture()
	list := groceriesList()
	fx.lists.byID[list.ID] = list
	seedInvitation(fx, list.ID, models.RoleEditor, time.Now().Add(-time.Minute))
	nav := &fakeNavigation{listID: list.ID, email: dave.Email, present: true}

	resolution, err := newResolver(fx).ResolveFromNavigation(context.Background(), dave, nav)
	if err != nil {
		t.Fatal(err)
	}
	if resolution.State != ResolutionExpired || !nav.cleared {
		t.Fatalf("resolution = %+v, cleared = %v", resolution, nav.cleared)
	}
	if fx.invitations.count() != 0 {
		t.Fatal("expired invitation must be deleted")
	}
	if fx.lists.grantCount() != 0 {
		t.Fatal("expired invitation must not grant membership")
	}
}

func TestResolveFromNavigationListGone(t *testing.T) {
	fx := newFixture()
	seedInvitation(fx, "list-deleted", models.RoleEditor, time.Now().Add(time.Hour))
	nav := &fakeNavigation{listID: "list-deleted", email: dave.Email, present: true}

	resolution, err := newResolver(fx).ResolveFromNavigation(context.Background(), dave, nav)
	if err != nil {
		t.Fatal(err)
	}
	if resolution.State != ResolutionListGone || !nav.cleared {
		t.Fatalf("resolution = %+v, cleared = %v", resolution, nav.cleared)
	}
	if fx.invitations.count() != 0 {
		t.Fatal("orphaned invitation must be cleaned up")
	}
}

func TestResolveFromNavigationAlreadyMember(t *testing.T) {
	fx := newFixture()
	list := groceriesList()
	list.MemberIDs = append(list.MemberIDs, dave.UID)
	list.Roles[dave.UID] = models.RoleViewer
	fx.lists.byID[list.ID] = list
	seedInvitation(fx, list.ID, models.RoleEditor, time.Now().Add(time.Hour))
	nav := &fakeNavigation{listID: list.ID, email: dave.Email, present: true}

	resolution, err := newResolver(fx).ResolveFromNavigation(context.Background(), dave, nav)
	if err != nil {
		t.Fatal(err)
	}
	if resolution.State != ResolutionAlreadyMember || resolution.ListID != list.ID {
		t.Fatalf("resolution = %+v", resolution)
	}
	if !nav.cleared {
		t.Fatal("already-member is terminal and must clear the params")
	}
	if fx.invitations.count() != 0 {
		t.Fatal("stale invitation must be consumed")
	}
}

func TestResolveFromNavigationPendingKeepsParams(t *testing.T) {
	fx := newFixture()
	list := groceriesList()
	fx.lists.byID[list.ID] = list
	seedInvitation(fx, list.ID, models.RoleEditor, time.Now().Add(time.Hour))
	nav := &fakeNavigation{listID: list.ID, email: dave.Email, present: true}

	resolution, err := newResolver(fx).ResolveFromNavigation(context.Background(), dave, nav)
	if err != nil {
		t.Fatal(err)
	}
	if resolution.State != ResolutionPending {
		t.Fatalf("state = %s, want pending", resolution.State)
	}
	if resolution.Invitation == nil || resolution.ListName != "Groceries" {
		t.Fatalf("resolution = %+v", resolution)
	}
	if nav.cleared {
		t.Fatal("pending must keep the params for the accept/decline step")
	}
	if fx.invitations.count() != 1 {
		t.Fatal("pending invitation must not be consumed yet")
	}
}

func TestAcceptGrantsMembership(t *testing.T) {
	fx := newFixture()
	list := groceriesList()
	fx.lists.byID[list.ID] = list
	seedInvitation(fx, list.ID, models.RoleEditor, time.Now().Add(time.Hour))
	nav := &fakeNavigation{listID: list.ID, email: dave.Email, present: true}

	resolution, err := newResolver(fx).Accept(context.Background(), dave, nav, list.ID, dave.Email)
	if err != nil {
		t.Fatal(err)
	}
	if resolution.State != ResolutionAccepted || resolution.ListID != list.ID {
		t.Fatalf("resolution = %+v", resolution)
	}
	if fx.lists.grantCount() != 1 {
		t.Fatalf("grants = %d, want 1", fx.lists.grantCount())
	}
	if fx.invitations.count() != 0 {
		t.Fatal("accepted invitation must be consumed")
	}
	if !nav.cleared {
		t.Fatal("accept is terminal and must clear the params")
	}
}

func TestAcceptReverifiesExpiry(t *testing.T) {
	fx := newFixture()
	list := groceriesList()
	fx.lists.byID[list.ID] = list
	seedInvitation(fx, list.ID, models.RoleEditor, time.Now().Add(-time.Second))
	nav := &fakeNavigation{listID: list.ID, email: dave.Email, present: true}

	resolution, err := newResolver(fx).Accept(context.Background(), dave, nav, list.ID, dave.Email)
	if err != nil {
		t.Fatal(err)
	}
	if resolution.State != ResolutionExpired {
		t.Fatalf("state = %s, want expired", resolution.State)
	}
	if fx.lists.grantCount() != 0 {
		t.Fatal("expired invitation must not grant membership at accept time")
	}
}

func TestAcceptRejectsCorruptRole(t *testing.T) {
	fx := newFixture()
	list := groceriesList()
	fx.lists.byID[list.ID] = list
	seedInvitation(fx, list.ID, models.Role("admin"), time.Now().Add(time.Hour))
	nav := &fakeNavigation{listID: list.ID, email: dave.Email, present: true}

	resolution, err := newResolver(fx).Accept(context.Background(), dave, nav, list.ID, dave.Email)
	if err != nil {
		t.Fatal(err)
	}
	if resolution.State != ResolutionNotFound || !nav.cleared {
		t.Fatalf("resolution = %+v, cleared = %v", resolution, nav.cleared)
	}
	if fx.lists.grantCount() != 0 {
		t.Fatal("an illegal stored role must never reach the roles map")
	}
	if fx.invitations.count() != 0 {
		t.Fatal("corrupt invitation must be discarded")
	}
}

func TestAcceptRejectsForeignEmail(t *testing.T) {
	fx := newFixture()
	nav := &fakeNavigation{listID: "list-1", email: dave.Email, present: true}

	_, err := newResolver(fx).Accept(context.Background(), bob, nav, "list-1", dave.Email)
	if !apperr.Is(err, apperr.PermissionDenied) {
		t.Fatalf("err = %v, want permission-denied", err)
	}
}

func TestDeclineConsumesWithoutGrant(t *testing.T) {
	fx := newFixture()
	list := groceriesList()
	fx.lists.byID[list.ID] = list
	seedInvitation(fx, list.ID, models.RoleEditor, time.Now().Add(time.Hour))
	nav := &fakeNavigation{listID: list.ID, email: dave.Email, present: true}

	if err := newResolver(fx).Decline(context.Background(), dave, nav, list.ID, dave.Email); err != nil {
		t.Fatal(err)
	}
	if fx.lists.grantCount() != 0 {
		t.Fatal("decline must not grant membership")
	}
	if fx.invitations.count() != 0 {
		t.Fatal("declined invitation must be consumed")
	}
	if !nav.cleared {
		t.Fatal("decline is terminal and must clear the params")
	}
	recipients := fx.notifications.recipients()
	if len(recipients) != 1 || recipients[0] != alice.UID {
		t.Fatalf("recipients = %v, want the inviter", recipients)
	}
}

func TestDeclineCollapsesConcurrentCalls(t *testing.T) {
	fx := newFixture()
	list := groceriesList()
	fx.lists.byID[list.ID] = list
	seedInvitation(fx, list.ID, models.RoleEditor, time.Now().Add(time.Hour))
	nav := &fakeNavigation{listID: list.ID, email: dave.Email, present: true}
	resolver := newResolver(fx)

	// Simulate another decline of the same invitation mid-flight.
	resolver.inflight[list.ID+"|"+dave.Email] = true

	err := resolver.Decline(context.Background(), dave, nav, list.ID, dave.Email)
	if !apperr.Is(err, apperr.AlreadyExists) {
		t.Fatalf("err = %v, want already-exists", err)
	}
	if len(fx.notifications.recipients()) != 0 {
		t.Fatal("the inviter must be notified by the winning decline only")
	}

	resolver.end(list.ID + "|" + dave.Email)
	if err := resolver.Decline(context.Background(), dave, nav, list.ID, dave.Email); err != nil {
		t.Fatal(err)
	}
	if got := fx.notifications.recipients(); len(got) != 1 || got[0] != alice.UID {
		t.Fatalf("recipients = %v, want the inviter once", got)
	}
}

func TestAccountServiceOnSignIn(t *testing.T) {
	fx := newFixture()
	list := groceriesList()
	fx.lists.byID[list.ID] = list
	seedInvitation(fx, list.ID, models.RoleViewer, time.Now().Add(time.Hour))
	svc := NewAccountService(fx.repos(), newResolver(fx), zap.NewNop())

	identity := &models.Identity{UID: dave.UID, Email: "Dave@Example.com", DisplayName: "Dave"}
	joined := svc.OnSignIn(context.Background(), identity)

	if len(fx.users.upserted) != 1 {
		t.Fatalf("profiles upserted = %d, want 1", len(fx.users.upserted))
	}
	profile := fx.users.upserted[0]
	if profile.ID != dave.UID || profile.Email != "dave@example.com" {
		t.Fatalf("profile = %+v, want normalized email", profile)
	}
	if len(joined) != 1 || joined[0] != list.ID {
		t.Fatalf("joined = %v", joined)
	}
}

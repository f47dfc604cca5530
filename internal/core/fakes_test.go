package core

import (
	"context"
	"fmt"
	"sync"

	"collab-todo-backend-go/internal/apperr"
	"collab-todo-backend-go/internal/db"
	"collab-todo-backend-go/internal/models"
)

// In-memory repository fakes. Watch channels are buffered and exposed
// so tests can push snapshots as if the store delivered them.

type grant struct {
	listID string
	uid    string
	role   models.Role
}

type fakeListRepo struct {
	mu      sync.Mutex
	nextID  int
	created []*models.List
	updates []models.UpdateListRequest
	grants  []grant
	byID    map[string]*models.List
	watchCh chan db.ListSnapshot

	createErr error
	grantErr  error
}

func newFakeListRepo() *fakeListRepo {
	return &fakeListRepo{byID: make(map[string]*models.List)}
}

func (f *fakeListRepo) Create(ctx context.Context, list *models.List) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	list.ID = fmt.Sprintf("list-%d", f.nextID)
	f.created = append(f.created, list)
	f.byID[list.ID] = list
	return list.ID, nil
}

func (f *fakeListRepo) GetByID(ctx context.Context, listID string) (*models.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list, ok := f.byID[listID]
	if !ok {
		return nil, apperr.Newf(apperr.NotFound, "list %q not found", listID)
	}
	return list, nil
}

func (f *fakeListRepo) UpdateDetails(ctx context.Context, listID string, req models.UpdateListRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, req)
	return nil
}

func (f *fakeListRepo) GrantMembership(ctx context.Context, listID, uid string, role models.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.grantErr != nil {
		return f.grantErr
	}
	f.grants = append(f.grants, grant{listID: listID, uid: uid, role: role})
	if list, ok := f.byID[listID]; ok && !list.IsMember(uid) {
		list.MemberIDs = append(list.MemberIDs, uid)
		if list.Roles == nil {
			list.Roles = make(map[string]models.Role)
		}
		list.Roles[uid] = role
	}
	return nil
}

func (f *fakeListRepo) WatchByMember(ctx context.Context, uid string) (<-chan db.ListSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watchCh = make(chan db.ListSnapshot, 8)
	return f.watchCh, nil
}

func (f *fakeListRepo) pushLists(lists ...*models.List) {
	f.mu.Lock()
	ch := f.watchCh
	for _, l := range lists {
		f.byID[l.ID] = l
	}
	f.mu.Unlock()
	ch <- db.ListSnapshot{Lists: lists}
}

func (f *fakeListRepo) grantCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.grants)
}

type taskUpdate struct {
	listID string
	taskID string
	fields map[string]interface{}
}

type fakeTaskRepo struct {
	mu       sync.Mutex
	nextID   int
	created  []*models.Task
	updates  []taskUpdate
	deleted  []string
	reorders [][]string
	watchChs map[string]chan db.TaskSnapshot
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{watchChs: make(map[string]chan db.TaskSnapshot)}
}

func (f *fakeTaskRepo) Create(ctx context.Context, listID string, task *models.Task) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	task.ID = fmt.Sprintf("task-%d", f.nextID)
	task.ListID = listID
	f.created = append(f.created, task)
	return task.ID, nil
}

func (f *fakeTaskRepo) Update(ctx context.Context, listID, taskID string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, taskUpdate{listID: listID, taskID: taskID, fields: fields})
	return nil
}

func (f *fakeTaskRepo) Delete(ctx context.Context, listID, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, taskID)
	return nil
}

func (f *fakeTaskRepo) Reorder(ctx context.Context, listID string, orderedTaskIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reorders = append(f.reorders, orderedTaskIDs)
	return nil
}

func (f *fakeTaskRepo) WatchByList(ctx context.Context, listID string) (<-chan db.TaskSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan db.TaskSnapshot, 8)
	f.watchChs[listID] = ch
	return ch, nil
}

func (f *fakeTaskRepo) hasWatch(listID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.watchChs[listID]
	return ok
}

func (f *fakeTaskRepo) pushTasks(listID string, tasks ...*models.Task) {
	f.mu.Lock()
	ch := f.watchChs[listID]
	f.mu.Unlock()
	ch <- db.TaskSnapshot{ListID: listID, Tasks: tasks}
}

func (f *fakeTaskRepo) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

type activityEntry struct {
	listID string
	entry  *models.Activity
}

type fakeActivityRepo struct {
	mu        sync.Mutex
	entries   []activityEntry
	watchChs  map[string]chan db.ActivitySnapshot
	createErr error
}

func newFakeActivityRepo() *fakeActivityRepo {
	return &fakeActivityRepo{watchChs: make(map[string]chan db.ActivitySnapshot)}
}

func (f *fakeActivityRepo) Create(ctx context.Context, listID string, entry *models.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.entries = append(f.entries, activityEntry{listID: listID, entry: entry})
	return nil
}

func (f *fakeActivityRepo) WatchByList(ctx context.Context, listID string) (<-chan db.ActivitySnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan db.ActivitySnapshot, 8)
	f.watchChs[listID] = ch
	return ch, nil
}

func (f *fakeActivityRepo) hasWatch(listID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.watchChs[listID]
	return ok
}

func (f *fakeActivityRepo) pushActivities(listID string, entries ...*models.Activity) {
	f.mu.Lock()
	ch := f.watchChs[listID]
	f.mu.Unlock()
	ch <- db.ActivitySnapshot{ListID: listID, Activities: entries}
}

func (f *fakeActivityRepo) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.entry.Action)
	}
	return out
}

type fakeNotificationRepo struct {
	mu        sync.Mutex
	created   []*models.Notification
	updates   []string
	markedAll [][]string
	watchCh   chan db.NotificationSnapshot
	createErr error
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotificationRepo) Update(ctx context.Context, notificationID string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, notificationID)
	return nil
}

func (f *fakeNotificationRepo) MarkAllRead(ctx context.Context, notificationIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedAll = append(f.markedAll, notificationIDs)
	return nil
}

func (f *fakeNotificationRepo) WatchByUser(ctx context.Context, uid string) (<-chan db.NotificationSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watchCh = make(chan db.NotificationSnapshot, 8)
	return f.watchCh, nil
}

func (f *fakeNotificationRepo) pushNotifications(notifications ...*models.Notification) {
	f.mu.Lock()
	ch := f.watchCh
	f.mu.Unlock()
	ch <- db.NotificationSnapshot{Notifications: notifications}
}

func (f *fakeNotificationRepo) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.created))
	for _, n := range f.created {
		out = append(out, n.UserID)
	}
	return out
}

type fakeInvitationRepo struct {
	mu        sync.Mutex
	nextID    int
	byID      map[string]*models.PendingInvitation
	gets      int
	listErr   error
	deleteErr error
}

func newFakeInvitationRepo() *fakeInvitationRepo {
	return &fakeInvitationRepo{byID: make(map[string]*models.PendingInvitation)}
}

func (f *fakeInvitationRepo) Create(ctx context.Context, inv *models.PendingInvitation) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	inv.ID = fmt.Sprintf("inv-%d", f.nextID)
	f.byID[inv.ID] = inv
	return inv.ID, nil
}

func (f *fakeInvitationRepo) GetByListAndEmail(ctx context.Context, listID, email string) (*models.PendingInvitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	for _, inv := range f.byID {
		if inv.ListID == listID && inv.Email == email {
			return inv, nil
		}
	}
	return nil, apperr.Newf(apperr.NotFound, "no pending invitation for %s on %s", email, listID)
}

func (f *fakeInvitationRepo) ListByEmail(ctx context.Context, email string) ([]*models.PendingInvitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.PendingInvitation
	for i := 1; i <= f.nextID; i++ {
		if inv, ok := f.byID[fmt.Sprintf("inv-%d", i)]; ok && inv.Email == email {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeInvitationRepo) Delete(ctx context.Context, invitationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.byID[invitationID]; !ok {
		return apperr.Newf(apperr.NotFound, "invitation %q not found", invitationID)
	}
	delete(f.byID, invitationID)
	return nil
}

func (f *fakeInvitationRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

func (f *fakeInvitationRepo) getCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

type fakeUserRepo struct {
	mu        sync.Mutex
	upserted  []*models.UserProfile
	byID      map[string]*models.UserProfile
	watchCh   chan db.UserSnapshot
	upsertErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]*models.UserProfile)}
}

func (f *fakeUserRepo) Upsert(ctx context.Context, profile *models.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, profile)
	f.byID[profile.ID] = profile
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, uid string) (*models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.byID[uid]
	if !ok {
		return nil, apperr.Newf(apperr.NotFound, "profile %q not found", uid)
	}
	return profile, nil
}

func (f *fakeUserRepo) WatchAll(ctx context.Context) (<-chan db.UserSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watchCh = make(chan db.UserSnapshot, 8)
	return f.watchCh, nil
}

func (f *fakeUserRepo) pushUsers(users ...*models.UserProfile) {
	f.mu.Lock()
	ch := f.watchCh
	f.mu.Unlock()
	ch <- db.UserSnapshot{Users: users}
}

type sentMail struct {
	inv       *models.PendingInvitation
	acceptURL string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendInvitation(ctx context.Context, inv *models.PendingInvitation, acceptURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{inv: inv, acceptURL: acceptURL})
	return nil
}

type fakeNavigation struct {
	listID  string
	email   string
	present bool
	cleared bool
}

func (n *fakeNavigation) InviteParams() (string, string, bool) {
	if !n.present || n.cleared {
		return "", "", false
	}
	return n.listID, n.email, true
}

func (n *fakeNavigation) ClearInviteParams() { n.cleared = true }

// fixture bundles the fakes behind a Repositories value.
type fixture struct {
	lists         *fakeListRepo
	tasks         *fakeTaskRepo
	activities    *fakeActivityRepo
	notifications *fakeNotificationRepo
	invitations   *fakeInvitationRepo
	users         *fakeUserRepo
	mailer        *fakeMailer
}

func newFixture() *fixture {
	return &fixture{
		lists:         newFakeListRepo(),
		tasks:         newFakeTaskRepo(),
		activities:    newFakeActivityRepo(),
		notifications: newFakeNotificationRepo(),
		invitations:   newFakeInvitationRepo(),
		users:         newFakeUserRepo(),
		mailer:        &fakeMailer{},
	}
}

func (f *fixture) repos() Repositories {
	return Repositories{
		Lists:         f.lists,
		Tasks:         f.tasks,
		Activities:    f.activities,
		Notifications: f.notifications,
		Invitations:   f.invitations,
		Users:         f.users,
	}
}

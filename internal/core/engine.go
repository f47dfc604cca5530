package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"collab-todo-backend-go/internal/apperr"
	"collab-todo-backend-go/internal/config"
	"collab-todo-backend-go/internal/models"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// EngineOptions tunes engine behavior that is a product decision rather
// than a protocol requirement.
type EngineOptions struct {
	// CompletedNotify selects who receives "task completed"
	// notifications: config.NotifyMembers (default), NotifyAssignee or
	// NotifyCreator. The acting user is always excluded.
	CompletedNotify string
	// InviteBaseURL is the public origin invitation accept links are
	// built against.
	InviteBaseURL string
}

// Engine maintains live, denormalized in-memory projections of the
// current identity's lists, per-list tasks and activities,
// notifications and the user directory, by composing concurrent store
// subscriptions. It exposes the mutation surface the presentation
// layer calls into.
//
// Projections are derived, disposable caches: an identity transition
// throws them away and rebuilds from fresh subscriptions. All
// coordination with other sessions happens through the store's
// per-document atomic primitives, never through local locking.
type Engine struct {
	repos  Repositories
	mailer InviteMailer
	opts   EngineOptions
	logger *zap.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu       sync.RWMutex
	identity *models.Identity
	// gen invalidates snapshots that arrive after their identity scope
	// was torn down.
	gen      uint64
	cancel   context.CancelFunc
	listSubs map[string]context.CancelFunc

	lists            []*models.List
	tasksByList      map[string][]*models.Task
	activitiesByList map[string][]*models.Activity
	notifications    []*models.Notification
	users            []*models.UserProfile
	loading          bool
	lastErr          *apperr.Error

	version     uint64
	watchers    map[int]chan struct{}
	nextWatcher int
}

// NewEngine creates an engine with no identity. mailer may be nil when
// outgoing invitation mail is not configured.
func NewEngine(repos Repositories, mailer InviteMailer, opts EngineOptions, logger *zap.Logger) *Engine {
	if opts.CompletedNotify == "" {
		opts.CompletedNotify = config.NotifyMembers
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		repos:            repos,
		mailer:           mailer,
		opts:             opts,
		logger:           logger,
		baseCtx:          ctx,
		baseCancel:       cancel,
		listSubs:         make(map[string]context.CancelFunc),
		tasksByList:      make(map[string][]*models.Task),
		activitiesByList: make(map[string][]*models.Activity),
		watchers:         make(map[int]chan struct{}),
	}
}

// Close cancels every subscription and stops the engine for good.
func (e *Engine) Close() {
	e.SetIdentity(nil)
	e.baseCancel()
}

// SetIdentity drives identity transitions. A non-nil identity opens the
// lists/notifications/users subscriptions; nil cancels everything and
// clears the projections. Safe to call from the session manager's
// callback.
func (e *Engine) SetIdentity(identity *models.Identity) {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	for id, cancel := range e.listSubs {
		cancel()
		delete(e.listSubs, id)
	}
	e.gen++
	gen := e.gen
	e.identity = identity
	e.lists = nil
	e.tasksByList = make(map[string][]*models.Task)
	e.activitiesByList = make(map[string][]*models.Activity)
	e.notifications = nil
	e.users = nil
	e.lastErr = nil

	if identity == nil {
		e.loading = false
		e.bumpLocked()
		e.mu.Unlock()
		return
	}

	e.loading = true
	ctx, cancel := context.WithCancel(e.baseCtx)
	e.cancel = cancel
	uid := identity.UID
	e.bumpLocked()
	e.mu.Unlock()

	e.startListsWatch(ctx, gen, uid)
	e.startNotificationsWatch(ctx, gen, uid)
	e.startUsersWatch(ctx, gen)
}

func (e *Engine) startListsWatch(ctx context.Context, gen uint64, uid string) {
	ch, err := e.repos.Lists.WatchByMember(ctx, uid)
	if err != nil {
		e.setError(gen, err, true)
		return
	}
	go func() {
		for snap := range ch {
			if snap.Err != nil {
				// loading ends here even on failure so callers are not
				// stuck on a spinner with an error available.
				e.setError(gen, snap.Err, true)
				continue
			}
			e.applyLists(ctx, gen, snap.Lists)
		}
	}()
}

func (e *Engine) startNotificationsWatch(ctx context.Context, gen uint64, uid string) {
	ch, err := e.repos.Notifications.WatchByUser(ctx, uid)
	if err != nil {
		e.setError(gen, err, false)
		return
	}
	go func() {
		for snap := range ch {
			if snap.Err != nil {
				e.setError(gen, snap.Err, false)
				continue
			}
			e.mu.Lock()
			if gen == e.gen {
				e.notifications = snap.Notifications
				e.bumpLocked()
			}
			e.mu.Unlock()
		}
	}()
}

func (e *Engine) startUsersWatch(ctx context.Context, gen uint64) {
	ch, err := e.repos.Users.WatchAll(ctx)
	if err != nil {
		e.setError(gen, err, false)
		return
	}
	go func() {
		for snap := range ch {
			if snap.Err != nil {
				e.setError(gen, snap.Err, false)
				continue
			}
			e.mu.Lock()
			if gen == e.gen {
				e.users = snap.Users
				e.bumpLocked()
			}
			e.mu.Unlock()
		}
	}()
}

// applyLists installs a lists snapshot and reconciles the per-list
// subscription tree against it: subscriptions open for lists that
// appeared, close for lists that dropped out of membership. The diff is
// idempotent; re-applying an identical snapshot changes nothing.
func (e *Engine) applyLists(ctx context.Context, gen uint64, lists []*models.List) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.lists = lists
	e.loading = false
	e.lastErr = nil

	desired := make(map[string]bool, len(lists))
	for _, l := range lists {
		desired[l.ID] = true
	}
	for id, cancel := range e.listSubs {
		if !desired[id] {
			cancel()
			delete(e.listSubs, id)
			delete(e.tasksByList, id)
			delete(e.activitiesByList, id)
		}
	}
	var opened []string
	for id := range desired {
		if _, ok := e.listSubs[id]; ok {
			continue
		}
		subCtx, cancel := context.WithCancel(ctx)
		e.listSubs[id] = cancel
		opened = append(opened, id)
		go e.runTaskWatch(subCtx, gen, id)
		go e.runActivityWatch(subCtx, gen, id)
	}
	e.bumpLocked()
	e.mu.Unlock()

	if len(opened) > 0 {
		e.logger.Debug("opened per-list subscriptions", zap.Strings("listIds", opened))
	}
}

func (e *Engine) runTaskWatch(ctx context.Context, gen uint64, listID string) {
	ch, err := e.repos.Tasks.WatchByList(ctx, listID)
	if err != nil {
		e.setError(gen, err, false)
		return
	}
	for snap := range ch {
		if snap.Err != nil {
			e.setError(gen, snap.Err, false)
			continue
		}
		e.mu.Lock()
		// A snapshot in flight when its scope was cancelled is
		// discarded, not applied.
		if ctx.Err() != nil || gen != e.gen {
			e.mu.Unlock()
			return
		}
		e.tasksByList[listID] = snap.Tasks
		e.bumpLocked()
		e.mu.Unlock()
	}
}

func (e *Engine) runActivityWatch(ctx context.Context, gen uint64, listID string) {
	ch, err := e.repos.Activities.WatchByList(ctx, listID)
	if err != nil {
		e.setError(gen, err, false)
		return
	}
	for snap := range ch {
		if snap.Err != nil {
			e.setError(gen, snap.Err, false)
			continue
		}
		e.mu.Lock()
		if ctx.Err() != nil || gen != e.gen {
			e.mu.Unlock()
			return
		}
		e.activitiesByList[listID] = snap.Activities
		e.bumpLocked()
		e.mu.Unlock()
	}
}

// setError records a subscription failure without tearing down the
// still-healthy subscriptions.
func (e *Engine) setError(gen uint64, err error, endLoading bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return
	}
	e.lastErr = toAppError(err)
	if endLoading {
		e.loading = false
	}
	e.bumpLocked()
	e.logger.Warn("subscription error", zap.Error(err))
}

func toAppError(err error) *apperr.Error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}
	return apperr.Wrap(apperr.Unknown, "subscription failed", err)
}

// bumpLocked advances the projection version and pokes watchers.
// Callers hold e.mu.
func (e *Engine) bumpLocked() {
	e.version++
	for _, ch := range e.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribe returns a channel that receives a tick whenever any
// projection changes, and a function to unsubscribe.
func (e *Engine) Subscribe() (<-chan struct{}, func()) {
	e.mu.Lock()
	id := e.nextWatcher
	e.nextWatcher++
	ch := make(chan struct{}, 1)
	e.watchers[id] = ch
	e.mu.Unlock()
	return ch, func() {
		e.mu.Lock()
		delete(e.watchers, id)
		e.mu.Unlock()
	}
}

// Projection accessors. Slices are copied; the documents themselves are
// immutable snapshots and may be shared.

// Lists returns the lists the identity is a member of, newest first.
func (e *Engine) Lists() []*models.List {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*models.List(nil), e.lists...)
}

// TasksForList returns the tasks projection of one list.
func (e *Engine) TasksForList(listID string) []*models.Task {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*models.Task(nil), e.tasksByList[listID]...)
}

// TasksByList returns the full per-list tasks projection.
func (e *Engine) TasksByList() map[string][]*models.Task {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string][]*models.Task, len(e.tasksByList))
	for id, tasks := range e.tasksByList {
		out[id] = append([]*models.Task(nil), tasks...)
	}
	return out
}

// ActivitiesForList returns the activity log projection of one list.
func (e *Engine) ActivitiesForList(listID string) []*models.Activity {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*models.Activity(nil), e.activitiesByList[listID]...)
}

// ActivitiesByList returns the full per-list activities projection.
func (e *Engine) ActivitiesByList() map[string][]*models.Activity {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string][]*models.Activity, len(e.activitiesByList))
	for id, entries := range e.activitiesByList {
		out[id] = append([]*models.Activity(nil), entries...)
	}
	return out
}

// Notifications returns the identity's notifications, newest first.
func (e *Engine) Notifications() []*models.Notification {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*models.Notification(nil), e.notifications...)
}

// Users returns the user directory projection.
func (e *Engine) Users() []*models.UserProfile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*models.UserProfile(nil), e.users...)
}

// Loading reports whether the first lists snapshot is still pending.
// Per-list task/activity subscriptions may still be arriving after
// loading ends; that eventual-consistency window is expected.
func (e *Engine) Loading() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loading
}

// Err returns the most recent subscription error, or nil.
func (e *Engine) Err() *apperr.Error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastErr
}

// Identity returns the current identity, or nil.
func (e *Engine) Identity() *models.Identity {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.identity
}

func (e *Engine) requireIdentity() (*models.Identity, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.identity == nil {
		return nil, apperr.New(apperr.Unauthenticated, "operation requires an authenticated identity")
	}
	return e.identity, nil
}

func (e *Engine) findList(listID string) *models.List {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, l := range e.lists {
		if l.ID == listID {
			return l
		}
	}
	return nil
}

func (e *Engine) findTask(listID, taskID string) *models.Task {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, t := range e.tasksByList[listID] {
		if t.ID == taskID {
			return t
		}
	}
	return nil
}

func (e *Engine) findNotification(id string) *models.Notification {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, n := range e.notifications {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func (e *Engine) findUIDByEmail(email string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, u := range e.users {
		if strings.EqualFold(u.Email, email) {
			return u.ID
		}
	}
	return ""
}

// requireEdit resolves the list from the projection and checks the
// caller's mutation rights before any network call is made.
func (e *Engine) requireEdit(listID string, id *models.Identity) (*models.List, error) {
	list := e.findList(listID)
	if list == nil {
		return nil, apperr.Newf(apperr.NotFound, "list %q not found", listID)
	}
	if !CanEdit(list, id.UID) {
		return nil, apperr.New(apperr.PermissionDenied, "insufficient permissions on this list")
	}
	return list, nil
}

// Permission helpers exposed to the presentation layer. Pure reads over
// the projections and the current identity.

// GetUserRole returns the current identity's role on a list, or the
// empty role.
func (e *Engine) GetUserRole(listID string) models.Role {
	id := e.Identity()
	if id == nil {
		return ""
	}
	return RoleOf(e.findList(listID), id.UID)
}

// CanUserEdit reports whether the current identity may mutate a list.
func (e *Engine) CanUserEdit(listID string) bool {
	id := e.Identity()
	if id == nil {
		return false
	}
	return CanEdit(e.findList(listID), id.UID)
}

// CanUserView reports whether the current identity may see a list.
func (e *Engine) CanUserView(listID string) bool {
	id := e.Identity()
	if id == nil {
		return false
	}
	return CanView(e.findList(listID), id.UID)
}

// Mutations. Each op authenticates, validates locally, performs the
// awaited primary write, then fires best-effort secondary writes
// (activity log, notifications) whose failures are logged and
// suppressed — a successful primary action is never reported as failed
// because a side effect misfired.

// CreateList creates a list with the caller as sole member and owner.
func (e *Engine) CreateList(ctx context.Context, req models.CreateListRequest) (string, error) {
	id, err := e.requireIdentity()
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", apperr.New(apperr.Unknown, "list name is required")
	}

	list := &models.List{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		DueDate:     req.DueDate,
		OwnerID:     id.UID,
		MemberIDs:   []string{id.UID},
		Roles:       map[string]models.Role{id.UID: models.RoleOwner},
	}
	listID, err := e.repos.Lists.Create(ctx, list)
	if err != nil {
		return "", err
	}

	e.logActivity(ctx, listID, id, fmt.Sprintf("created list %q", name))
	return listID, nil
}

// UpdateList edits list details. Owner or editor only.
func (e *Engine) UpdateList(ctx context.Context, listID string, req models.UpdateListRequest) error {
	id, err := e.requireIdentity()
	if err != nil {
		return err
	}
	list, err := e.requireEdit(listID, id)
	if err != nil {
		return err
	}

	if err := e.repos.Lists.UpdateDetails(ctx, listID, req); err != nil {
		return err
	}

	name := list.Name
	if req.Name != nil {
		name = *req.Name
	}
	e.logActivity(ctx, listID, id, fmt.Sprintf("updated list %q", name))
	return nil
}

// CreateTask creates a task in a list, assigns it the next order slot
// and notifies the assignee when it is somebody else.
func (e *Engine) CreateTask(ctx context.Context, listID string, req models.CreateTaskRequest) (string, error) {
	id, err := e.requireIdentity()
	if err != nil {
		return "", err
	}
	if _, err := e.requireEdit(listID, id); err != nil {
		return "", err
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	status := req.Status
	if status == "" {
		status = models.StatusPending
	}
	task := &models.Task{
		Title:         strings.TrimSpace(req.Title),
		Description:   strings.TrimSpace(req.Description),
		Priority:      priority,
		Status:        status,
		Done:          status == models.StatusCompleted,
		Deadline:      req.Deadline,
		AssignedToUID: req.AssignedToUID,
		CreatedBy:     id.UID,
		// The slot comes from the local projection, not the store, so
		// concurrent creates can collide on it; ReorderTasks rewrites
		// the whole sequence densely and resolves any duplicates.
		Order: len(e.TasksForList(listID)),
	}
	if err := task.Validate(); err != nil {
		return "", apperr.Wrap(apperr.Unknown, "invalid task", err)
	}

	taskID, err := e.repos.Tasks.Create(ctx, listID, task)
	if err != nil {
		return "", err
	}

	e.logActivity(ctx, listID, id, fmt.Sprintf("created task %q", task.Title))
	if task.AssignedToUID != "" {
		e.notify(ctx, id.UID, task.AssignedToUID, "Task Assignment",
			fmt.Sprintf("You were assigned to %q", task.Title), listID)
	}
	return taskID, nil
}

// UpdateTask applies a partial task update, keeping done and status in
// lockstep, and applies the completion-notification policy when the
// task newly becomes done.
func (e *Engine) UpdateTask(ctx context.Context, listID, taskID string, req models.UpdateTaskRequest) error {
	id, err := e.requireIdentity()
	if err != nil {
		return err
	}
	list, err := e.requireEdit(listID, id)
	if err != nil {
		return err
	}
	prev := e.findTask(listID, taskID)
	if prev == nil {
		return apperr.Newf(apperr.NotFound, "task %q not found in list %q", taskID, listID)
	}

	fields := make(map[string]interface{})
	title := prev.Title
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
		if title == "" {
			return apperr.New(apperr.Unknown, "task title cannot be empty")
		}
		fields["title"] = title
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			return apperr.Newf(apperr.Unknown, "invalid priority %q", *req.Priority)
		}
		fields["priority"] = string(*req.Priority)
	}
	if req.Deadline != nil {
		fields["deadline"] = *req.Deadline
	}
	if req.AssignedToUID != nil {
		fields["assignedToUid"] = *req.AssignedToUID
	}

	done := prev.Done
	status := prev.Status
	if req.Status != nil {
		if !req.Status.Valid() {
			return apperr.Newf(apperr.Unknown, "invalid status %q", *req.Status)
		}
		status = *req.Status
		done = status == models.StatusCompleted
	}
	if req.Done != nil {
		done = *req.Done
		if done {
			status = models.StatusCompleted
		} else if status == models.StatusCompleted {
			status = models.StatusPending
		}
	}
	if status != prev.Status || done != prev.Done {
		fields["status"] = string(status)
		fields["done"] = done
	}
	if len(fields) == 0 {
		return nil
	}

	if err := e.repos.Tasks.Update(ctx, listID, taskID, fields); err != nil {
		return err
	}

	newlyDone := done && !prev.Done
	var action string
	switch {
	case newlyDone:
		action = fmt.Sprintf("completed task %q", title)
	case !done && prev.Done:
		action = fmt.Sprintf("reopened task %q", title)
	default:
		action = fmt.Sprintf("updated task %q", title)
	}
	e.logActivity(ctx, listID, id, action)

	if newlyDone {
		e.notifyCompletion(ctx, id, list, prev, title)
	}
	return nil
}

// DeleteTask removes a task.
func (e *Engine) DeleteTask(ctx context.Context, listID, taskID string) error {
	id, err := e.requireIdentity()
	if err != nil {
		return err
	}
	if _, err := e.requireEdit(listID, id); err != nil {
		return err
	}
	prev := e.findTask(listID, taskID)
	if prev == nil {
		return apperr.Newf(apperr.NotFound, "task %q not found in list %q", taskID, listID)
	}

	if err := e.repos.Tasks.Delete(ctx, listID, taskID); err != nil {
		return err
	}

	e.logActivity(ctx, listID, id, fmt.Sprintf("deleted task %q", prev.Title))
	return nil
}

// ReorderTasks rewrites the per-list order sequence to match the given
// task ID ordering. Order values stay dense and unique.
func (e *Engine) ReorderTasks(ctx context.Context, listID string, orderedTaskIDs []string) error {
	id, err := e.requireIdentity()
	if err != nil {
		return err
	}
	if _, err := e.requireEdit(listID, id); err != nil {
		return err
	}

	current := e.TasksForList(listID)
	known := make(map[string]bool, len(current))
	for _, t := range current {
		known[t.ID] = true
	}
	seen := make(map[string]bool, len(orderedTaskIDs))
	for _, taskID := range orderedTaskIDs {
		if !known[taskID] {
			return apperr.Newf(apperr.NotFound, "task %q not found in list %q", taskID, listID)
		}
		if seen[taskID] {
			return apperr.Newf(apperr.Unknown, "duplicate task %q in reorder", taskID)
		}
		seen[taskID] = true
	}

	if err := e.repos.Tasks.Reorder(ctx, listID, orderedTaskIDs); err != nil {
		return err
	}

	e.logActivity(ctx, listID, id, "reordered tasks")
	return nil
}

// InviteMember creates a pending invitation for an email address.
// Owners and editors may invite; only owners may grant ownership; the
// target must not already be a member. The invitation expires after
// seven days. The inviter gets a confirmation notification and the
// invitee a best-effort email with the accept link.
func (e *Engine) InviteMember(ctx context.Context, listID, email, roleStr string) error {
	id, err := e.requireIdentity()
	if err != nil {
		return err
	}
	email = models.NormalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return apperr.Newf(apperr.Unknown, "invalid email address %q", email)
	}
	role, err := models.ParseRole(roleStr)
	if err != nil {
		return apperr.Wrap(apperr.Unknown, "invalid role", err)
	}

	list := e.findList(listID)
	if list == nil {
		return apperr.Newf(apperr.NotFound, "list %q not found", listID)
	}
	inviterRole := RoleOf(list, id.UID)
	if !inviterRole.CanEdit() {
		return apperr.New(apperr.PermissionDenied, "only owners and editors can invite members")
	}
	if role == models.RoleOwner && inviterRole != models.RoleOwner {
		return apperr.New(apperr.PermissionDenied, "only list owners can invite other owners")
	}
	if uid := e.findUIDByEmail(email); uid != "" && list.IsMember(uid) {
		return apperr.Newf(apperr.AlreadyExists, "%s is already a member of this list", email)
	}

	inv := &models.PendingInvitation{
		ListID:        list.ID,
		ListName:      list.Name,
		Email:         email,
		Role:          role,
		InvitedBy:     id.UID,
		InvitedByName: id.Name(),
		ExpiresAt:     time.Now().Add(models.InvitationTTL),
	}
	if _, err := e.repos.Invitations.Create(ctx, inv); err != nil {
		return err
	}

	e.logActivity(ctx, list.ID, id, fmt.Sprintf("invited %s as %s", email, role))
	// The inviter is notified that the invitation was queued. This is
	// the one deliberately self-addressed notification.
	n := &models.Notification{
		UserID:  id.UID,
		Title:   "Invitation Sent",
		Message: fmt.Sprintf("Invitation sent to %s for %q", email, list.Name),
		ListID:  list.ID,
		Type:    "invitation",
	}
	if err := e.repos.Notifications.Create(ctx, n); err != nil {
		e.logger.Warn("failed to create invitation-sent notification", zap.Error(err))
	}
	if e.mailer != nil {
		if err := e.mailer.SendInvitation(ctx, inv, e.inviteURL(list.ID, email)); err != nil {
			e.logger.Warn("failed to send invitation email",
				zap.String("email", email), zap.String("listId", list.ID), zap.Error(err))
		}
	}
	return nil
}

// UpdateNotification flips the read flag on one of the caller's own
// notifications.
func (e *Engine) UpdateNotification(ctx context.Context, notificationID string, read bool) error {
	if _, err := e.requireIdentity(); err != nil {
		return err
	}
	if e.findNotification(notificationID) == nil {
		return apperr.Newf(apperr.NotFound, "notification %q not found", notificationID)
	}
	return e.repos.Notifications.Update(ctx, notificationID, map[string]interface{}{"read": read})
}

// MarkAllNotificationsRead marks every unread notification of the
// caller read in one batch.
func (e *Engine) MarkAllNotificationsRead(ctx context.Context) error {
	if _, err := e.requireIdentity(); err != nil {
		return err
	}
	var unread []string
	for _, n := range e.Notifications() {
		if !n.Read {
			unread = append(unread, n.ID)
		}
	}
	return e.repos.Notifications.MarkAllRead(ctx, unread)
}

// Stats summarizes the task projections: totals, completion and
// deadlines falling due within the next seven days.
func (e *Engine) Stats() models.DashboardStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var stats models.DashboardStats
	now := time.Now()
	horizon := now.Add(7 * 24 * time.Hour)
	for _, tasks := range e.tasksByList {
		for _, t := range tasks {
			stats.TotalTasks++
			if t.Done {
				stats.CompletedTasks++
				continue
			}
			if t.Deadline == "" {
				continue
			}
			if deadline, err := time.Parse("2006-01-02", t.Deadline); err == nil {
				if deadline.After(now) && !deadline.After(horizon) {
					stats.UpcomingDeadlines++
				}
			}
		}
	}
	stats.PendingTasks = stats.TotalTasks - stats.CompletedTasks
	return stats
}

// Secondary-effect helpers.

func (e *Engine) logActivity(ctx context.Context, listID string, id *models.Identity, action string) {
	entry := &models.Activity{
		Action:    action,
		UserID:    id.UID,
		UserName:  id.Name(),
		UserPhoto: id.PhotoURL,
	}
	if err := e.repos.Activities.Create(ctx, listID, entry); err != nil {
		e.logger.Warn("failed to log activity",
			zap.String("listId", listID), zap.String("action", action), zap.Error(err))
	}
}

// notify creates a notification for targetUID unless the target is the
// acting identity. Failures are logged only.
func (e *Engine) notify(ctx context.Context, actorUID, targetUID, title, message, listID string) {
	if targetUID == "" || targetUID == actorUID {
		return
	}
	n := &models.Notification{
		UserID:  targetUID,
		Title:   title,
		Message: message,
		ListID:  listID,
	}
	if err := e.repos.Notifications.Create(ctx, n); err != nil {
		e.logger.Warn("failed to create notification",
			zap.String("userId", targetUID), zap.String("title", title), zap.Error(err))
	}
}

func (e *Engine) notifyCompletion(ctx context.Context, actor *models.Identity, list *models.List, task *models.Task, title string) {
	var recipients []string
	switch e.opts.CompletedNotify {
	case config.NotifyAssignee:
		recipients = []string{task.AssignedToUID}
	case config.NotifyCreator:
		recipients = []string{task.CreatedBy}
	default:
		recipients = list.MemberIDs
	}
	message := fmt.Sprintf("%s completed %q", actor.Name(), title)
	for _, uid := range recipients {
		e.notify(ctx, actor.UID, uid, "Task Completed", message, list.ID)
	}
}

func (e *Engine) inviteURL(listID, email string) string {
	base := strings.TrimRight(e.opts.InviteBaseURL, "/")
	return fmt.Sprintf("%s/?invite=%s&email=%s", base, url.QueryEscape(listID), url.QueryEscape(email))
}

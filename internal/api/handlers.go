// Package api exposes the engine over HTTP: REST endpoints for every
// mutation, a projection snapshot endpoint and a server-sent-events
// stream that ticks whenever the projections change.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collab-todo-backend-go/internal/apperr"
	"collab-todo-backend-go/internal/core"
	"collab-todo-backend-go/internal/middleware"
	"collab-todo-backend-go/internal/models"
)

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 25 * time.Second

// Handler carries the dependencies of all route handlers.
type Handler struct {
	registry *EngineRegistry
	resolver *core.InvitationResolver
	logger   *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(registry *EngineRegistry, resolver *core.InvitationResolver, logger *zap.Logger) *Handler {
	return &Handler{registry: registry, resolver: resolver, logger: logger}
}

// engineFor attaches (or finds) the caller's engine. Every
// authenticated route goes through here, so a client that talks to a
// freshly restarted server transparently re-establishes its session.
func (h *Handler) engineFor(c *gin.Context) (*core.Engine, *models.Identity) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return nil, nil
	}
	engine, _ := h.registry.Attach(c.Request.Context(), identity)
	return engine, identity
}

func (h *Handler) respondError(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	msg := "an unexpected internal error occurred"
	var ae *apperr.Error
	if errors.As(err, &ae) {
		msg = ae.Message
	}
	if code == apperr.Unknown {
		h.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(apperr.HTTPStatus(code), ErrorResponse{Error: msg})
}

// CreateSession handles POST /session. Establishes the caller's engine
// and reports which lists pending invitations added them to.
func (h *Handler) CreateSession(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}
	_, joined := h.registry.Attach(c.Request.Context(), identity)
	c.JSON(http.StatusOK, SessionResponse{Identity: identity, JoinedLists: joined})
}

// DeleteSession handles DELETE /session. Sign-out: the engine and all
// its subscriptions are torn down.
func (h *Handler) DeleteSession(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}
	h.registry.Detach(identity.UID)
	c.Status(http.StatusNoContent)
}

// GetState handles GET /state. A full snapshot of the projections.
func (h *Handler) GetState(c *gin.Context) {
	engine, _ := h.engineFor(c)
	if engine == nil {
		return
	}
	c.JSON(http.StatusOK, stateOf(engine))
}

// StreamState handles GET /state/stream as server-sent events. A full
// state snapshot is sent immediately, then again on every projection
// change, with periodic heartbeats in between.
func (h *Handler) StreamState(c *gin.Context) {
	engine, _ := h.engineFor(c)
	if engine == nil {
		return
	}
	ticks, unsubscribe := engine.Subscribe()
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("state", stateOf(engine))
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticks:
			c.SSEvent("state", stateOf(engine))
			c.Writer.Flush()
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().Unix())
			c.Writer.Flush()
		}
	}
}

func stateOf(engine *core.Engine) StateResponse {
	resp := StateResponse{
		Lists:            engine.Lists(),
		TasksByList:      engine.TasksByList(),
		ActivitiesByList: engine.ActivitiesByList(),
		Notifications:    engine.Notifications(),
		Users:            engine.Users(),
		Loading:          engine.Loading(),
		Stats:            engine.Stats(),
	}
	if err := engine.Err(); err != nil {
		resp.Error = err.Message
	}
	return resp
}

// GetStats handles GET /stats.
func (h *Handler) GetStats(c *gin.Context) {
	engine, _ := h.engineFor(c)
	if engine == nil {
		return
	}
	c.JSON(http.StatusOK, engine.Stats())
}

// CreateList handles POST /lists.
func (h *Handler) CreateList(c *gin.Context) {
	engine, _ := h.engineFor(c)
	if engine == nil {
		return
	}
	var req models.CreateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request payload", Details: err.Error()})
		return
	}
	id, err := engine.CreateList(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

// UpdateList handles PATCH /lists/:listId.
func (h *Handler) UpdateList(c *gin.Context) {
	engine, _ := h.engineFor(c)
	if engine == nil {
		return
	}
	var req models.UpdateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request payload", Details: err.Error()})
		return
	}
	if err := engine.UpdateList(c.Request.Context(), c.Param("listId"), req); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetListPermissions handles GET /lists/:listId/permissions.
func (h *Handler) GetListPermissions(c *gin.Context) {
	engine, _ := h.engineFor(c)
	if engine == nil {
		return
	}
	listID := c.Param("listId")
	c.JSON(http.StatusOK, PermissionsResponse{
		Role:    engine.GetUserRole(listID),
		CanEdit: engine.CanUserEdit(listID),
		CanView: engine.CanUserView(listID),
	})
}

// CreateTask handles POST /lists/:listId/tasks.
func (h *Handler) CreateTask(c *gin.Context) {
	engine, _ := h.engineFor(c)
	if engine == nil {
		return
	}
	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request payload", Details: err.Error()})
		return
	}
	id, err := engine.CreateTask(c.Request.Context(), c.Param("listId"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

// UpdateTask handles PATCH /lists/:listId/tasks/:taskId.
func (h *Handler) UpdateTask(c *gin.Context) {
	engine, _ := h.engineFor(c)
	if engine == nil {
		return
	}
	var req models.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request payload", Details: err.Error()})
		return
	}
	if err := engine.UpdateTask(c.Request.Context(), c.Param("listId"), c.Param("taskId"), req); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteTask handles DELETE /lists/:listId/tasks/:taskId.
func (h *Handler) DeleteTask(c *gin.Context) {
	engine, _ := h.engineFor(c)
	if engine == nil {
		return
	}
	if err := engine.DeleteTask(c.Request.Context(), c.Param("listId"), c.Param("taskId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReorderTasks handles PUT /lists/:listId/tasks/order.
func (h *Handler) ReorderTasks(c *gin.Context) {
	engine, _ := h.engineFor(c)
	if engine == nil {
		return
	}
	var req ReorderTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request payload", Details: err.Error()})
		return
	}
	if err := engine.ReorderTasks(c.Request.Context(), c.Param("listId"), req.TaskIDs); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// InviteMember handles POST /lists/:listId/members.
func (h *Handler) InviteMember(c *gin.Context) {
	engine, _ := h.engineFor(c)
	if engine == nil {
		return
	}
	var req models.InviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request payload", Details: err.Error()})
		return
	}
	if err := engine.InviteMember(c.Request.Context(), c.Param("listId"), req.Email, req.Role); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// UpdateNotification handles PATCH /notifications/:notificationId.
func (h *Handler) UpdateNotification(c *gin.Context) {
	engine, _ := h.engineFor(c)
	if engine == nil {
		return
	}
	var req NotificationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request payload", Details: err.Error()})
		return
	}
	if err := engine.UpdateNotification(c.Request.Context(), c.Param("notificationId"), *req.Read); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllNotificationsRead handles POST /notifications/read-all.
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	engine, _ := h.engineFor(c)
	if engine == nil {
		return
	}
	if err := engine.MarkAllNotificationsRead(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ResolveInvitation handles GET /invitations/resolve?invite=...&email=...
// It mirrors the invitation link flow: the client forwards the link's
// query parameters and learns the outcome, including whether to strip
// the parameters from its location.
func (h *Handler) ResolveInvitation(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	nav := newQueryNavigation(c.Query("invite"), c.Query("email"))
	resolution, err := h.resolver.ResolveFromNavigation(c.Request.Context(), identity, nav)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ResolutionResponse{Resolution: resolution, ClearParams: nav.cleared})
}

// AcceptInvitation handles POST /invitations/accept.
func (h *Handler) AcceptInvitation(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	var req InvitationActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request payload", Details: err.Error()})
		return
	}
	nav := newQueryNavigation(req.ListID, req.Email)
	resolution, err := h.resolver.Accept(c.Request.Context(), identity, nav, req.ListID, req.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ResolutionResponse{Resolution: resolution, ClearParams: nav.cleared})
}

// DeclineInvitation handles POST /invitations/decline.
func (h *Handler) DeclineInvitation(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	var req InvitationActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request payload", Details: err.Error()})
		return
	}
	nav := newQueryNavigation(req.ListID, req.Email)
	if err := h.resolver.Decline(c.Request.Context(), identity, nav, req.ListID, req.Email); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ResolutionResponse{ClearParams: nav.cleared})
}

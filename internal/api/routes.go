package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collab-todo-backend-go/internal/middleware"
	"collab-todo-backend-go/internal/session"
)

// SetupRoutes wires all routes under /api/v1. Global middleware
// (logging, recovery, CORS) is applied to the router in main before
// this is called; authentication is applied per group here.
func SetupRoutes(router *gin.Engine, verifier *session.Verifier, handler *Handler, logger *zap.Logger) {
	authMW := middleware.Auth(verifier)

	apiV1 := router.Group("/api/v1", authMW)
	{
		apiV1.POST("/session", handler.CreateSession)
		apiV1.DELETE("/session", handler.DeleteSession)

		apiV1.GET("/state", handler.GetState)
		apiV1.GET("/state/stream", handler.StreamState)
		apiV1.GET("/stats", handler.GetStats)

		lists := apiV1.Group("/lists")
		{
			lists.POST("", handler.CreateList)
			lists.PATCH("/:listId", handler.UpdateList)
			lists.GET("/:listId/permissions", handler.GetListPermissions)
			lists.POST("/:listId/members", handler.InviteMember)

			lists.POST("/:listId/tasks", handler.CreateTask)
			lists.PUT("/:listId/tasks/order", handler.ReorderTasks)
			lists.PATCH("/:listId/tasks/:taskId", handler.UpdateTask)
			lists.DELETE("/:listId/tasks/:taskId", handler.DeleteTask)
		}

		notifications := apiV1.Group("/notifications")
		{
			notifications.PATCH("/:notificationId", handler.UpdateNotification)
			notifications.POST("/read-all", handler.MarkAllNotificationsRead)
		}

		invitations := apiV1.Group("/invitations")
		{
			invitations.GET("/resolve", handler.ResolveInvitation)
			invitations.POST("/accept", handler.AcceptInvitation)
			invitations.POST("/decline", handler.DeclineInvitation)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	logger.Info("API routes configured under /api/v1 and /health")
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"collab-todo-backend-go/internal/api"
	"collab-todo-backend-go/internal/config"
	"collab-todo-backend-go/internal/core"
	"collab-todo-backend-go/internal/db"
	"collab-todo-backend-go/internal/middleware"
	"collab-todo-backend-go/internal/session"
	"collab-todo-backend-go/pkg/mailer"
)

func main() {
	// .env is a development convenience; production sets real env vars.
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil {
			log.Println("no .env file loaded:", err)
		}
	}

	logger, err := zap.NewProduction()
	if os.Getenv("GIN_MODE") != "release" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	initCtx, cancelInit := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInit()
	clients, err := db.InitFirebase(initCtx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize Firebase Admin SDK", zap.Error(err))
	}
	defer clients.Close()

	repos := core.Repositories{
		Lists:         db.NewFirestoreListRepository(clients.Firestore, logger),
		Tasks:         db.NewFirestoreTaskRepository(clients.Firestore, logger),
		Activities:    db.NewFirestoreActivityRepository(clients.Firestore, logger),
		Notifications: db.NewFirestoreNotificationRepository(clients.Firestore, logger),
		Invitations:   db.NewFirestoreInvitationRepository(clients.Firestore),
		Users:         db.NewFirestoreUserRepository(clients.Firestore, logger),
	}

	var inviteMailer core.InviteMailer
	if cfg.MailEnabled() {
		inviteMailer = mailer.New(cfg, logger)
		logger.Info("invitation mail enabled", zap.String("smtpHost", cfg.SMTPHost))
	} else {
		logger.Warn("invitation mail disabled: SMTP is not configured")
	}

	resolver := core.NewInvitationResolver(repos, logger)
	accounts := core.NewAccountService(repos, resolver, logger)
	engineOpts := core.EngineOptions{
		CompletedNotify: cfg.TaskCompletedNotify,
		InviteBaseURL:   cfg.InviteBaseURL,
	}
	registry := api.NewEngineRegistry(func() *core.Engine {
		return core.NewEngine(repos, inviteMailer, engineOpts, logger)
	}, accounts, logger)
	defer registry.CloseAll()

	verifier := session.NewVerifier(clients.Auth)
	handler := api.NewHandler(registry, resolver, logger)

	if strings.EqualFold(cfg.GinMode, "release") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Recovery(logger))
	if cfg.ClientURL != "" {
		router.Use(middleware.CORS(cfg))
		logger.Info("CORS enabled", zap.String("clientURL", cfg.ClientURL))
	} else {
		logger.Warn("CORS disabled: CLIENT_URL is not configured")
	}

	api.SetupRoutes(router, verifier, handler, logger)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr), zap.String("ginMode", gin.Mode()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutdown signal received", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}

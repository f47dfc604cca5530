package db

import (
	"context"
	"encoding/base64"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"collab-todo-backend-go/internal/config"
)

const (
	listsCollection         = "lists"
	tasksCollection         = "tasks"
	activitiesCollection    = "activities"
	notificationsCollection = "notifications"
	invitationsCollection   = "pendingInvitations"
	usersCollection         = "users"
)

// Clients bundles the Firestore and Firebase Auth clients produced by
// InitFirebase.
type Clients struct {
	Firestore *firestore.Client
	Auth      *auth.Client
}

// InitFirebase initializes the Firebase Admin SDK and returns the
// Firestore and Auth clients. Credentials come from a service account
// file path, a base64-encoded service account JSON, or Application
// Default Credentials, in that order of preference.
func InitFirebase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Clients, error) {
	if cfg == nil {
		return nil, fmt.Errorf("InitFirebase: config cannot be nil")
	}

	var opts []option.ClientOption
	switch {
	case cfg.GoogleApplicationCredentials != "":
		logger.Info("initializing Firebase with credentials file",
			zap.String("path", cfg.GoogleApplicationCredentials))
		opts = append(opts, option.WithCredentialsFile(cfg.GoogleApplicationCredentials))
	case cfg.FirebaseServiceAccountJSONBase64 != "":
		logger.Info("initializing Firebase with base64-encoded service account JSON")
		decoded, err := base64.StdEncoding.DecodeString(cfg.FirebaseServiceAccountJSONBase64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode FIREBASE_SERVICE_ACCOUNT_JSON_BASE64: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(decoded))
	default:
		logger.Info("initializing Firebase using Application Default Credentials")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("app.Firestore: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		fs.Close()
		return nil, fmt.Errorf("app.Auth: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized", zap.String("projectId", cfg.FirebaseProjectID))
	return &Clients{Firestore: fs, Auth: authClient}, nil
}

// Close releases the Firestore client.
func (c *Clients) Close() error {
	if c.Firestore != nil {
		return c.Firestore.Close()
	}
	return nil
}

package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"collab-todo-backend-go/internal/apperr"
	"collab-todo-backend-go/internal/models"
)

// firestoreUserRepository implements UserRepository. Profiles are keyed
// by the Firebase Auth UID.
type firestoreUserRepository struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreUserRepository creates a new user repository.
func NewFirestoreUserRepository(client *firestore.Client, logger *zap.Logger) UserRepository {
	return &firestoreUserRepository{client: client, logger: logger}
}

// Upsert writes the profile with merge semantics so a repeat sign-in
// refreshes displayName/photoURL/lastLoginAt without clobbering
// createdAt. createdAt rides along only on first creation.
func (r *firestoreUserRepository) Upsert(ctx context.Context, profile *models.UserProfile) error {
	doc := r.client.Collection(usersCollection).Doc(profile.ID)
	data := map[string]interface{}{
		"uid":         profile.ID,
		"email":       profile.Email,
		"displayName": profile.DisplayName,
		"photoURL":    profile.PhotoURL,
		"lastLoginAt": firestore.ServerTimestamp,
		"updatedAt":   firestore.ServerTimestamp,
	}
	if _, err := doc.Get(ctx); err != nil {
		if status.Code(err) != codes.NotFound {
			return apperr.FromStatus(fmt.Sprintf("failed to check profile %q", profile.ID), err)
		}
		data["createdAt"] = firestore.ServerTimestamp
	}
	if _, err := doc.Set(ctx, data, firestore.MergeAll); err != nil {
		return apperr.FromStatus(fmt.Sprintf("failed to upsert profile %q", profile.ID), err)
	}
	return nil
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, uid string) (*models.UserProfile, error) {
	snap, err := r.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, apperr.Wrap(apperr.NotFound, fmt.Sprintf("profile %q not found", uid), err)
		}
		return nil, apperr.FromStatus(fmt.Sprintf("failed to get profile %q", uid), err)
	}
	var profile models.UserProfile
	if err := snap.DataTo(&profile); err != nil {
		return nil, apperr.Wrap(apperr.Unknown, fmt.Sprintf("failed to decode profile %q", uid), err)
	}
	profile.ID = snap.Ref.ID
	return &profile, nil
}

// WatchAll subscribes to the users collection for member directory
// lookups.
func (r *firestoreUserRepository) WatchAll(ctx context.Context) (<-chan UserSnapshot, error) {
	query := r.client.Collection(usersCollection).Query

	ch := make(chan UserSnapshot, 1)
	go func() {
		defer close(ch)
		iter := query.Snapshots(ctx)
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				if status.Code(err) == codes.Canceled || ctx.Err() != nil {
					return
				}
				ch <- UserSnapshot{Err: apperr.FromStatus("users subscription failed", err)}
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				ch <- UserSnapshot{Err: apperr.FromStatus("failed to read users snapshot", err)}
				return
			}
			users := make([]*models.UserProfile, 0, len(docs))
			for _, doc := range docs {
				var profile models.UserProfile
				if err := doc.DataTo(&profile); err != nil {
					r.logger.Warn("skipping undecodable user document",
						zap.String("id", doc.Ref.ID), zap.Error(err))
					continue
				}
				profile.ID = doc.Ref.ID
				users = append(users, &profile)
			}
			select {
			case ch <- UserSnapshot{Users: users}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

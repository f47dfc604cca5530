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

// firestoreNotificationRepository implements NotificationRepository.
type firestoreNotificationRepository struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreNotificationRepository creates a new notification repository.
func NewFirestoreNotificationRepository(client *firestore.Client, logger *zap.Logger) NotificationRepository {
	return &firestoreNotificationRepository{client: client, logger: logger}
}

func (r *firestoreNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	docRef := r.client.Collection(notificationsCollection).NewDoc()
	n.ID = docRef.ID
	if _, err := docRef.Create(ctx, n); err != nil {
		return apperr.FromStatus(fmt.Sprintf("failed to create notification for user %q", n.UserID), err)
	}
	return nil
}

func (r *firestoreNotificationRepository) Update(ctx context.Context, notificationID string, fields map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	if len(updates) == 0 {
		return nil
	}
	if _, err := r.client.Collection(notificationsCollection).Doc(notificationID).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return apperr.Wrap(apperr.NotFound, fmt.Sprintf("notification %q not found", notificationID), err)
		}
		return apperr.FromStatus(fmt.Sprintf("failed to update notification %q", notificationID), err)
	}
	return nil
}

// MarkAllRead flips the read flag on every listed notification in one
// bulk write.
func (r *firestoreNotificationRepository) MarkAllRead(ctx context.Context, notificationIDs []string) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	bw := r.client.BulkWriter(ctx)
	for _, id := range notificationIDs {
		_, err := bw.Update(r.client.Collection(notificationsCollection).Doc(id), []firestore.Update{
			{Path: "read", Value: true},
		})
		if err != nil {
			bw.End()
			return apperr.FromStatus(fmt.Sprintf("failed to queue read flag for notification %q", id), err)
		}
	}
	bw.Flush()
	bw.End()
	return nil
}

// WatchByUser subscribes to a user's notifications, newest first.
func (r *firestoreNotificationRepository) WatchByUser(ctx context.Context, uid string) (<-chan NotificationSnapshot, error) {
	if uid == "" {
		return nil, apperr.New(apperr.Unknown, "uid cannot be empty for WatchByUser")
	}
	query := r.client.Collection(notificationsCollection).
		Where("userId", "==", uid).
		OrderBy("createdAt", firestore.Desc)

	ch := make(chan NotificationSnapshot, 1)
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
				ch <- NotificationSnapshot{Err: apperr.FromStatus("notifications subscription failed", err)}
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				ch <- NotificationSnapshot{Err: apperr.FromStatus("failed to read notifications snapshot", err)}
				return
			}
			items := make([]*models.Notification, 0, len(docs))
			for _, doc := range docs {
				var n models.Notification
				if err := doc.DataTo(&n); err != nil {
					r.logger.Warn("skipping undecodable notification document",
						zap.String("id", doc.Ref.ID), zap.Error(err))
					continue
				}
				n.ID = doc.Ref.ID
				items = append(items, &n)
			}
			select {
			case ch <- NotificationSnapshot{Notifications: items}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

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

// firestoreActivityRepository implements ActivityRepository on the
// per-list activities subcollection. The log is append-only.
type firestoreActivityRepository struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreActivityRepository creates a new activity repository.
func NewFirestoreActivityRepository(client *firestore.Client, logger *zap.Logger) ActivityRepository {
	return &firestoreActivityRepository{client: client, logger: logger}
}

func (r *firestoreActivityRepository) activities(listID string) *firestore.CollectionRef {
	return r.client.Collection(listsCollection).Doc(listID).Collection(activitiesCollection)
}

func (r *firestoreActivityRepository) Create(ctx context.Context, listID string, entry *models.Activity) error {
	docRef := r.activities(listID).NewDoc()
	entry.ID = docRef.ID
	entry.ListID = listID
	if _, err := docRef.Create(ctx, entry); err != nil {
		return apperr.FromStatus(fmt.Sprintf("failed to append activity to list %q", listID), err)
	}
	return nil
}

// WatchByList subscribes to the activity log of a list, newest first.
func (r *firestoreActivityRepository) WatchByList(ctx context.Context, listID string) (<-chan ActivitySnapshot, error) {
	query := r.activities(listID).OrderBy("createdAt", firestore.Desc)

	ch := make(chan ActivitySnapshot, 1)
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
				ch <- ActivitySnapshot{ListID: listID, Err: apperr.FromStatus("activities subscription failed", err)}
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				ch <- ActivitySnapshot{ListID: listID, Err: apperr.FromStatus("failed to read activities snapshot", err)}
				return
			}
			entries := make([]*models.Activity, 0, len(docs))
			for _, doc := range docs {
				var entry models.Activity
				if err := doc.DataTo(&entry); err != nil {
					r.logger.Warn("skipping undecodable activity document",
						zap.String("listId", listID), zap.String("id", doc.Ref.ID), zap.Error(err))
					continue
				}
				entry.ID = doc.Ref.ID
				entry.ListID = listID
				entries = append(entries, &entry)
			}
			select {
			case ch <- ActivitySnapshot{ListID: listID, Activities: entries}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

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

// firestoreTaskRepository implements TaskRepository on the per-list
// tasks subcollection.
type firestoreTaskRepository struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreTaskRepository creates a new task repository.
func NewFirestoreTaskRepository(client *firestore.Client, logger *zap.Logger) TaskRepository {
	return &firestoreTaskRepository{client: client, logger: logger}
}

func (r *firestoreTaskRepository) tasks(listID string) *firestore.CollectionRef {
	return r.client.Collection(listsCollection).Doc(listID).Collection(tasksCollection)
}

func (r *firestoreTaskRepository) Create(ctx context.Context, listID string, task *models.Task) (string, error) {
	docRef := r.tasks(listID).NewDoc()
	task.ID = docRef.ID
	task.ListID = listID
	if _, err := docRef.Create(ctx, task); err != nil {
		return "", apperr.FromStatus(fmt.Sprintf("failed to create task in list %q", listID), err)
	}
	return docRef.ID, nil
}

// Update applies a partial field update. An updatedAt server timestamp
// is always included.
func (r *firestoreTaskRepository) Update(ctx context.Context, listID, taskID string, fields map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(fields)+1)
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: firestore.ServerTimestamp})
	if _, err := r.tasks(listID).Doc(taskID).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return apperr.Wrap(apperr.NotFound, fmt.Sprintf("task %q not found in list %q", taskID, listID), err)
		}
		return apperr.FromStatus(fmt.Sprintf("failed to update task %q", taskID), err)
	}
	return nil
}

func (r *firestoreTaskRepository) Delete(ctx context.Context, listID, taskID string) error {
	if _, err := r.tasks(listID).Doc(taskID).Delete(ctx); err != nil {
		return apperr.FromStatus(fmt.Sprintf("failed to delete task %q", taskID), err)
	}
	return nil
}

// Reorder rewrites order to the index position of every task in a
// single bulk write, keeping order values dense and unique per list.
func (r *firestoreTaskRepository) Reorder(ctx context.Context, listID string, orderedTaskIDs []string) error {
	bw := r.client.BulkWriter(ctx)
	for index, taskID := range orderedTaskIDs {
		_, err := bw.Update(r.tasks(listID).Doc(taskID), []firestore.Update{
			{Path: "order", Value: index},
		})
		if err != nil {
			bw.End()
			return apperr.FromStatus(fmt.Sprintf("failed to queue reorder of task %q", taskID), err)
		}
	}
	bw.Flush()
	bw.End()
	return nil
}

// WatchByList subscribes to the tasks of a list, newest first.
func (r *firestoreTaskRepository) WatchByList(ctx context.Context, listID string) (<-chan TaskSnapshot, error) {
	query := r.tasks(listID).OrderBy("createdAt", firestore.Desc)

	ch := make(chan TaskSnapshot, 1)
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
				ch <- TaskSnapshot{ListID: listID, Err: apperr.FromStatus("tasks subscription failed", err)}
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				ch <- TaskSnapshot{ListID: listID, Err: apperr.FromStatus("failed to read tasks snapshot", err)}
				return
			}
			tasks := make([]*models.Task, 0, len(docs))
			for _, doc := range docs {
				var task models.Task
				if err := doc.DataTo(&task); err != nil {
					r.logger.Warn("skipping undecodable task document",
						zap.String("listId", listID), zap.String("id", doc.Ref.ID), zap.Error(err))
					continue
				}
				task.ID = doc.Ref.ID
				task.ListID = listID
				tasks = append(tasks, &task)
			}
			select {
			case ch <- TaskSnapshot{ListID: listID, Tasks: tasks}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

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

// firestoreListRepository implements ListRepository using Firestore.
type firestoreListRepository struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreListRepository creates a new list repository.
func NewFirestoreListRepository(client *firestore.Client, logger *zap.Logger) ListRepository {
	return &firestoreListRepository{client: client, logger: logger}
}

// Create adds a new list document with an auto-generated ID. CreatedAt
// is assigned server-side via the serverTimestamp tag.
func (r *firestoreListRepository) Create(ctx context.Context, list *models.List) (string, error) {
	docRef := r.client.Collection(listsCollection).NewDoc()
	list.ID = docRef.ID
	if _, err := docRef.Create(ctx, list); err != nil {
		return "", apperr.FromStatus("failed to create list", err)
	}
	return docRef.ID, nil
}

func (r *firestoreListRepository) GetByID(ctx context.Context, listID string) (*models.List, error) {
	if listID == "" {
		return nil, apperr.New(apperr.NotFound, "list ID cannot be empty")
	}
	snap, err := r.client.Collection(listsCollection).Doc(listID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, apperr.Wrap(apperr.NotFound, fmt.Sprintf("list %q not found", listID), err)
		}
		return nil, apperr.FromStatus(fmt.Sprintf("failed to get list %q", listID), err)
	}
	var list models.List
	if err := snap.DataTo(&list); err != nil {
		return nil, apperr.Wrap(apperr.Unknown, fmt.Sprintf("failed to decode list %q", listID), err)
	}
	list.ID = snap.Ref.ID
	return &list, nil
}

// UpdateDetails applies a partial update of name/description/dueDate.
func (r *firestoreListRepository) UpdateDetails(ctx context.Context, listID string, req models.UpdateListRequest) error {
	var updates []firestore.Update
	if req.Name != nil {
		updates = append(updates, firestore.Update{Path: "name", Value: *req.Name})
	}
	if req.Description != nil {
		updates = append(updates, firestore.Update{Path: "description", Value: *req.Description})
	}
	if req.DueDate != nil {
		updates = append(updates, firestore.Update{Path: "dueDate", Value: *req.DueDate})
	}
	if len(updates) == 0 {
		return nil
	}
	if _, err := r.client.Collection(listsCollection).Doc(listID).Update(ctx, updates); err != nil {
		return apperr.FromStatus(fmt.Sprintf("failed to update list %q", listID), err)
	}
	return nil
}

// GrantMembership adds uid to the membership set and records its role
// in one atomic document update. ArrayUnion gives the additive merge
// semantics concurrent grants rely on: neither grant overwrites the
// other.
func (r *firestoreListRepository) GrantMembership(ctx context.Context, listID, uid string, role models.Role) error {
	updates := []firestore.Update{
		{Path: "memberIds", Value: firestore.ArrayUnion(uid)},
		{FieldPath: firestore.FieldPath{"roles", uid}, Value: string(role)},
	}
	if _, err := r.client.Collection(listsCollection).Doc(listID).Update(ctx, updates); err != nil {
		return apperr.FromStatus(fmt.Sprintf("failed to grant membership on list %q", listID), err)
	}
	return nil
}

// WatchByMember subscribes to lists whose memberIds contains uid,
// ordered by creation time descending. Snapshots are pushed until the
// context is cancelled or the query fails; a query failure is delivered
// in-band and ends the stream.
func (r *firestoreListRepository) WatchByMember(ctx context.Context, uid string) (<-chan ListSnapshot, error) {
	if uid == "" {
		return nil, apperr.New(apperr.Unknown, "uid cannot be empty for WatchByMember")
	}
	query := r.client.Collection(listsCollection).
		Where("memberIds", "array-contains", uid).
		OrderBy("createdAt", firestore.Desc)

	ch := make(chan ListSnapshot, 1)
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
				ch <- ListSnapshot{Err: apperr.FromStatus("lists subscription failed", err)}
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				ch <- ListSnapshot{Err: apperr.FromStatus("failed to read lists snapshot", err)}
				return
			}
			lists := make([]*models.List, 0, len(docs))
			for _, doc := range docs {
				var list models.List
				if err := doc.DataTo(&list); err != nil {
					r.logger.Warn("skipping undecodable list document",
						zap.String("id", doc.Ref.ID), zap.Error(err))
					continue
				}
				list.ID = doc.Ref.ID
				lists = append(lists, &list)
			}
			select {
			case ch <- ListSnapshot{Lists: lists}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

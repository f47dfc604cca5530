package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"collab-todo-backend-go/internal/apperr"
	"collab-todo-backend-go/internal/models"
)

// firestoreInvitationRepository implements InvitationRepository.
type firestoreInvitationRepository struct {
	client *firestore.Client
}

// NewFirestoreInvitationRepository creates a new invitation repository.
func NewFirestoreInvitationRepository(client *firestore.Client) InvitationRepository {
	return &firestoreInvitationRepository{client: client}
}

func (r *firestoreInvitationRepository) invitations() *firestore.CollectionRef {
	return r.client.Collection(invitationsCollection)
}

// Create stores an invitation under a random UUID. The email is
// lowercased so sign-in-time resolution matches case-insensitively.
func (r *firestoreInvitationRepository) Create(ctx context.Context, inv *models.PendingInvitation) (string, error) {
	inv.Email = models.NormalizeEmail(inv.Email)
	docRef := r.invitations().Doc(uuid.NewString())
	inv.ID = docRef.ID
	if _, err := docRef.Create(ctx, inv); err != nil {
		return "", apperr.FromStatus("failed to create pending invitation", err)
	}
	return docRef.ID, nil
}

func (r *firestoreInvitationRepository) decode(doc *firestore.DocumentSnapshot) (*models.PendingInvitation, error) {
	var inv models.PendingInvitation
	if err := doc.DataTo(&inv); err != nil {
		return nil, apperr.Wrap(apperr.Unknown, fmt.Sprintf("failed to decode invitation %q", doc.Ref.ID), err)
	}
	inv.ID = doc.Ref.ID
	return &inv, nil
}

// GetByListAndEmail returns the invitation addressed to email on the
// given list, or NotFound.
func (r *firestoreInvitationRepository) GetByListAndEmail(ctx context.Context, listID, email string) (*models.PendingInvitation, error) {
	iter := r.invitations().
		Where("listId", "==", listID).
		Where("email", "==", models.NormalizeEmail(email)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, apperr.Newf(apperr.NotFound, "no pending invitation for %s on list %s", email, listID)
	}
	if err != nil {
		return nil, apperr.FromStatus("failed to query pending invitations", err)
	}
	return r.decode(doc)
}

// ListByEmail returns every outstanding invitation addressed to email.
func (r *firestoreInvitationRepository) ListByEmail(ctx context.Context, email string) ([]*models.PendingInvitation, error) {
	iter := r.invitations().
		Where("email", "==", models.NormalizeEmail(email)).
		Documents(ctx)
	defer iter.Stop()

	var invs []*models.PendingInvitation
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, apperr.FromStatus("failed to query pending invitations", err)
		}
		inv, err := r.decode(doc)
		if err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	return invs, nil
}

// Delete consumes an invitation. Deleting an already-consumed
// invitation reports NotFound; callers racing on consumption swallow
// that.
func (r *firestoreInvitationRepository) Delete(ctx context.Context, invitationID string) error {
	if _, err := r.invitations().Doc(invitationID).Delete(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return apperr.Wrap(apperr.NotFound, fmt.Sprintf("invitation %q not found", invitationID), err)
		}
		return apperr.FromStatus(fmt.Sprintf("failed to delete invitation %q", invitationID), err)
	}
	return nil
}

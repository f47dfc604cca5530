package core

import (
	"context"

	"go.uber.org/zap"

	"collab-todo-backend-go/internal/models"
)

// AccountService orchestrates the sign-in sequence: persist the profile
// mirror of the identity, then sweep pending invitations addressed to
// its email.
type AccountService struct {
	repos    Repositories
	resolver *InvitationResolver
	logger   *zap.Logger
}

// NewAccountService creates an AccountService.
func NewAccountService(repos Repositories, resolver *InvitationResolver, logger *zap.Logger) *AccountService {
	return &AccountService{repos: repos, resolver: resolver, logger: logger}
}

// OnSignIn runs the sign-in side effects for an authenticated identity.
// The profile upsert failing does not block invitation processing; both
// steps are independently retried on the next sign-in. Returns the IDs
// of lists the identity was newly added to via invitations.
func (s *AccountService) OnSignIn(ctx context.Context, identity *models.Identity) []string {
	profile := &models.UserProfile{
		ID:          identity.UID,
		Email:       models.NormalizeEmail(identity.Email),
		DisplayName: identity.DisplayName,
		PhotoURL:    identity.PhotoURL,
	}
	if err := s.repos.Users.Upsert(ctx, profile); err != nil {
		s.logger.Warn("failed to upsert user profile",
			zap.String("uid", identity.UID), zap.Error(err))
	}
	return s.resolver.ResolveOnSignIn(ctx, identity)
}

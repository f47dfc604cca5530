package models

import (
	"strings"
	"time"
)

// InvitationTTL is how long a pending invitation stays redeemable.
const InvitationTTL = 7 * 24 * time.Hour

// PendingInvitation is an offer of membership addressed to an email
// address, not yet an identity. It is consumed (deleted) exactly once:
// automatically when the invited email next authenticates, or
// explicitly through the accept/decline link flow.
type PendingInvitation struct {
	ID            string    `json:"id" firestore:"-"`
	ListID        string    `json:"listId" firestore:"listId"`
	ListName      string    `json:"listName" firestore:"listName"`
	Email         string    `json:"email" firestore:"email"`
	Role          Role      `json:"role" firestore:"role"`
	InvitedBy     string    `json:"invitedBy" firestore:"invitedBy"`
	InvitedByName string    `json:"invitedByName" firestore:"invitedByName"`
	CreatedAt     time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	ExpiresAt     time.Time `json:"expiresAt,omitempty" firestore:"expiresAt,omitempty"`
}

// Expired reports whether the invitation is past its expiry at the
// given instant. The boundary is inclusive: an invitation expiring
// exactly now is already expired. A zero ExpiresAt never expires.
func (p *PendingInvitation) Expired(now time.Time) bool {
	if p.ExpiresAt.IsZero() {
		return false
	}
	return !p.ExpiresAt.After(now)
}

// NormalizeEmail lowercases an address for storage and matching.
// Invitation emails are compared case-insensitively everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package models

import "time"

// List is a named collection of tasks shared among members with
// per-member roles. Invariants: OwnerID is in MemberIDs, every member
// has an entry in Roles, and Roles[OwnerID] is owner.
type List struct {
	ID          string          `json:"id" firestore:"-"`
	Name        string          `json:"name" firestore:"name"`
	Description string          `json:"description,omitempty" firestore:"description,omitempty"`
	DueDate     string          `json:"dueDate,omitempty" firestore:"dueDate,omitempty"`
	OwnerID     string          `json:"ownerId" firestore:"ownerId"`
	MemberIDs   []string        `json:"memberIds" firestore:"memberIds"`
	Roles       map[string]Role `json:"roles" firestore:"roles"`
	CreatedAt   time.Time       `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

// IsMember reports whether uid appears in the membership set.
func (l *List) IsMember(uid string) bool {
	for _, id := range l.MemberIDs {
		if id == uid {
			return true
		}
	}
	return false
}

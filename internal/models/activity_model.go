package models

import "time"

// Activity is an append-only audit entry scoped to a list. Entries are
// never mutated or deleted by normal operation.
type Activity struct {
	ID        string    `json:"id" firestore:"-"`
	ListID    string    `json:"listId" firestore:"-"`
	Action    string    `json:"action" firestore:"action"`
	UserID    string    `json:"userId" firestore:"userId"`
	UserName  string    `json:"userName" firestore:"userName"`
	UserPhoto string    `json:"userPhoto,omitempty" firestore:"userPhoto,omitempty"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

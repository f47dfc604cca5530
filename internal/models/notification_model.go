package models

import "time"

// Notification is a per-user, markable-as-read message about an event
// relevant to them. Created only by mutation side effects, never by the
// recipient, and never addressed to the acting identity itself. ListID
// is a weak reference that may dangle if the list goes away.
type Notification struct {
	ID        string    `json:"id" firestore:"-"`
	UserID    string    `json:"userId" firestore:"userId"`
	Title     string    `json:"title" firestore:"title"`
	Message   string    `json:"message" firestore:"message"`
	ListID    string    `json:"listId,omitempty" firestore:"listId,omitempty"`
	Type      string    `json:"type,omitempty" firestore:"type,omitempty"`
	Read      bool      `json:"read" firestore:"read"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

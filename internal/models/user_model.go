package models

import "time"

// Identity is the authenticated principal as reported by the session
// manager. Email never changes for the lifetime of an identity.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// Name returns the display name, falling back to the email address.
func (i *Identity) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Email
}

// UserProfile is the persisted mirror of an Identity, upserted on every
// sign-in. One profile per identity; the Firebase Auth UID is the
// document ID.
type UserProfile struct {
	ID          string    `json:"id" firestore:"-"`
	Email       string    `json:"email" firestore:"email"`
	DisplayName string    `json:"displayName,omitempty" firestore:"displayName"`
	PhotoURL    string    `json:"photoURL,omitempty" firestore:"photoURL"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	LastLoginAt time.Time `json:"lastLoginAt" firestore:"lastLoginAt,serverTimestamp"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

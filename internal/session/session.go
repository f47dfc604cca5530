// Package session tracks the authenticated identity and its lifecycle.
// The Manager fans out identity changes to interested components (the
// sync engine, the invitation resolver); the Verifier turns Firebase ID
// tokens into identities for the HTTP seam.
package session

import (
	"context"
	"sync"

	"firebase.google.com/go/v4/auth"

	"collab-todo-backend-go/internal/apperr"
	"collab-todo-backend-go/internal/models"
)

// Callback receives the current identity, or nil after sign-out.
type Callback func(*models.Identity)

// Manager holds the current identity and notifies registered callbacks
// exactly once per actual change. Registration fires immediately with
// the resolved current state so no subscriber is left pending.
type Manager struct {
	mu        sync.Mutex
	identity  *models.Identity
	nextID    int
	callbacks map[int]Callback
}

// NewManager creates a Manager with no identity.
func NewManager() *Manager {
	return &Manager{callbacks: make(map[int]Callback)}
}

// OnIdentityChanged registers cb and invokes it synchronously with the
// current state. The returned function unregisters it.
func (m *Manager) OnIdentityChanged(cb Callback) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.callbacks[id] = cb
	current := m.identity
	m.mu.Unlock()

	cb(current)
	return func() {
		m.mu.Lock()
		delete(m.callbacks, id)
		m.mu.Unlock()
	}
}

// Set transitions to the given identity. Callbacks fire only when the
// identity actually changed (compared by UID).
func (m *Manager) Set(identity *models.Identity) {
	m.mu.Lock()
	if sameIdentity(m.identity, identity) {
		m.mu.Unlock()
		return
	}
	m.identity = identity
	cbs := make([]Callback, 0, len(m.callbacks))
	for _, cb := range m.callbacks {
		cbs = append(cbs, cb)
	}
	m.mu.Unlock()

	for _, cb := range cbs {
		cb(identity)
	}
}

// SignOut transitions to the nil identity.
func (m *Manager) SignOut() { m.Set(nil) }

// Current returns the identity, or nil when signed out.
func (m *Manager) Current() *models.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

func sameIdentity(a, b *models.Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UID == b.UID
}

// Verifier validates Firebase ID tokens and extracts the identity
// claims the engine cares about.
type Verifier struct {
	authClient *auth.Client
}

// NewVerifier creates a Verifier over the Firebase Auth client.
func NewVerifier(authClient *auth.Client) *Verifier {
	return &Verifier{authClient: authClient}
}

// Verify checks the bearer ID token and returns the identity it
// asserts. Email, name and picture come from the standard claims.
func (v *Verifier) Verify(ctx context.Context, idToken string) (*models.Identity, error) {
	token, err := v.authClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unauthenticated, "invalid or expired authentication token", err)
	}

	identity := &models.Identity{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		identity.DisplayName = name
	}
	if picture, ok := token.Claims["picture"].(string); ok {
		identity.PhotoURL = picture
	}
	return identity, nil
}

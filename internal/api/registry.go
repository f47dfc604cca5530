package api

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"collab-todo-backend-go/internal/core"
	"collab-todo-backend-go/internal/models"
)

// EngineFactory builds a fresh engine for one identity's session.
type EngineFactory func() *core.Engine

// EngineRegistry holds one live engine per signed-in user. The first
// request of a session attaches: sign-in side effects run (profile
// upsert, pending-invitation sweep), then the engine's subscriptions
// open. Sign-out detaches and tears the engine down.
type EngineRegistry struct {
	factory  EngineFactory
	accounts *core.AccountService
	logger   *zap.Logger

	mu      sync.Mutex
	engines map[string]*core.Engine
}

// NewEngineRegistry creates an empty registry.
func NewEngineRegistry(factory EngineFactory, accounts *core.AccountService, logger *zap.Logger) *EngineRegistry {
	return &EngineRegistry{
		factory:  factory,
		accounts: accounts,
		logger:   logger,
		engines:  make(map[string]*core.Engine),
	}
}

// Attach returns the identity's engine, creating it on first contact.
// joined is non-nil only when this call established the session and
// invitation processing added the user to lists.
func (r *EngineRegistry) Attach(ctx context.Context, identity *models.Identity) (engine *core.Engine, joined []string) {
	r.mu.Lock()
	engine, ok := r.engines[identity.UID]
	if ok {
		r.mu.Unlock()
		return engine, nil
	}
	engine = r.factory()
	r.engines[identity.UID] = engine
	r.mu.Unlock()

	// Invitations are swept before subscriptions open so the first
	// lists snapshot already includes freshly joined lists.
	joined = r.accounts.OnSignIn(ctx, identity)
	engine.SetIdentity(identity)
	r.logger.Info("session attached",
		zap.String("uid", identity.UID), zap.Int("joinedLists", len(joined)))
	return engine, joined
}

// Detach tears down the identity's engine, if any.
func (r *EngineRegistry) Detach(uid string) {
	r.mu.Lock()
	engine, ok := r.engines[uid]
	if ok {
		delete(r.engines, uid)
	}
	r.mu.Unlock()
	if ok {
		engine.Close()
		r.logger.Info("session detached", zap.String("uid", uid))
	}
}

// CloseAll shuts every engine down. Called on server shutdown.
func (r *EngineRegistry) CloseAll() {
	r.mu.Lock()
	engines := make([]*core.Engine, 0, len(r.engines))
	for uid, engine := range r.engines {
		engines = append(engines, engine)
		delete(r.engines, uid)
	}
	r.mu.Unlock()
	for _, engine := range engines {
		engine.Close()
	}
}

// AngelaMos | 2026
// registry.go

package authz

import (
	"context"
	"log/slog"
	"sync"
)

// Registry publishes resolved principals. Transitions are consumed one at a
// time by Run; a principal becomes visible only after its resolution,
// including the role record fetch, has completed.
type Registry struct {
	resolver *Resolver
	logger   *slog.Logger

	mu         sync.RWMutex
	principals map[string]*Principal

	pendingMu sync.Mutex
	pending   map[string]struct{}
	wake      chan struct{}

	ready     chan struct{}
	readyOnce sync.Once
}

func NewRegistry(resolver *Resolver, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		resolver:   resolver,
		logger:     logger,
		principals: make(map[string]*Principal),
		pending:    make(map[string]struct{}),
		wake:       make(chan struct{}, 1),
		ready:      make(chan struct{}),
	}
}

// Run consumes transitions until ctx is cancelled or the source closes.
func (g *Registry) Run(ctx context.Context, transitions <-chan Transition) {
	for {
		select {
		case <-ctx.Done():
			return

		case t, ok := <-transitions:
			if !ok {
				return
			}
			g.apply(ctx, t)

		case <-g.wake:
			for _, id := range g.takePending() {
				g.refresh(ctx, id)
			}
		}
	}
}

func (g *Registry) apply(ctx context.Context, t Transition) {
	defer g.markReady()

	if t.Principal == nil {
		g.mu.Lock()
		delete(g.principals, t.IdentityID)
		g.mu.Unlock()

		g.logger.Info("principal cleared",
			"identity_id", t.IdentityID,
			"transition", t.Kind,
		)
		return
	}

	p := g.resolver.Resolve(ctx, t.Principal)

	g.mu.Lock()
	g.principals[p.IdentityID] = p
	g.mu.Unlock()

	g.logger.Info("principal resolved",
		"identity_id", p.IdentityID,
		"transition", t.Kind,
		"role", p.Role,
		"is_admin", p.IsAdmin,
		"is_super_admin", p.IsSuperAdmin,
	)
}

func (g *Registry) refresh(ctx context.Context, identityID string) {
	g.mu.RLock()
	current, ok := g.principals[identityID]
	g.mu.RUnlock()

	if !ok {
		return
	}

	g.apply(ctx, Transition{
		Kind:       TokenRefreshed,
		IdentityID: identityID,
		Principal: &RawPrincipal{
			IdentityID: current.IdentityID,
			Email:      current.Email,
		},
	})
}

// Reresolve schedules a fresh resolution for an identity that is already
// published, e.g. after its role record changed. It never blocks; repeated
// requests for the same identity coalesce until Run picks them up.
func (g *Registry) Reresolve(identityID string) {
	g.pendingMu.Lock()
	g.pending[identityID] = struct{}{}
	g.pendingMu.Unlock()

	select {
	case g.wake <- struct{}{}:
	default:
	}
}

func (g *Registry) takePending() []string {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()

	ids := make([]string, 0, len(g.pending))
	for id := range g.pending {
		ids = append(ids, id)
	}
	clear(g.pending)
	return ids
}

func (g *Registry) markReady() {
	g.readyOnce.Do(func() { close(g.ready) })
}

// Loading reports whether no transition has been resolved yet.
func (g *Registry) Loading() bool {
	select {
	case <-g.ready:
		return false
	default:
		return true
	}
}

// Ready is closed once the first transition has been resolved.
func (g *Registry) Ready() <-chan struct{} {
	return g.ready
}

func (g *Registry) Lookup(identityID string) (*Principal, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p, ok := g.principals[identityID]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

// Principal returns the published principal for raw, resolving on demand
// when no transition for that identity has been observed in this process.
// On-demand results are not published.
func (g *Registry) Principal(ctx context.Context, raw *RawPrincipal) *Principal {
	if raw == nil {
		return nil
	}

	if p, ok := g.Lookup(raw.IdentityID); ok {
		return p
	}

	return g.resolver.Resolve(ctx, raw)
}

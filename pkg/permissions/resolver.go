package permissions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pagegate/pagegate/pkg/api"
	"github.com/pagegate/pagegate/pkg/observability"
)

// Action is a capability checked against a page grant
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

const (
	cacheSize = 1024
	cacheTTL  = 5 * time.Minute
)

// Resolver answers "may the current user perform this action on this page".
// It hydrates a page-to-grant map from the backend's accessible-pages listing
// and applies the capability hierarchy locally: delete implies edit, edit or
// delete satisfies an edit check, view is satisfied by any capability, and
// create stands alone. Superusers pass every check without consulting grants.
//
// Checks are deny-by-default: an unknown page, an unknown action, or an
// unhydrated resolver all answer false.
type Resolver struct {
	client  *api.Client
	logger  *observability.Logger
	metrics *observability.Metrics

	mu     sync.RWMutex
	grants map[int64]api.Grant
	pages  []api.PageAccess
	super  bool
	loaded bool

	cache *expirable.LRU[string, bool]
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithResolverLogger sets the structured logger
func WithResolverLogger(logger *observability.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = logger }
}

// WithResolverMetrics enables Prometheus metrics
func WithResolverMetrics(metrics *observability.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = metrics }
}

// NewResolver creates an unhydrated Resolver; call Refresh after login
func NewResolver(client *api.Client, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client: client,
		logger: observability.NewLogger(observability.InfoLevel, nil),
		cache:  expirable.NewLRU[string, bool](cacheSize, nil, cacheTTL),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh replaces the grant map from the backend and purges the check
// cache. The previous map stays live until the fetch succeeds, so a failed
// refresh never widens or narrows access mid-session.
func (r *Resolver) Refresh(ctx context.Context) error {
	identity, err := r.client.Store().Identity()
	if err != nil {
		return fmt.Errorf("failed to read identity: %w", err)
	}

	pages, err := r.client.AccessiblePages(ctx)
	if err != nil {
		return fmt.Errorf("failed to load accessible pages: %w", err)
	}

	grants := make(map[int64]api.Grant, len(pages))
	for _, p := range pages {
		grants[p.ID] = p.Permissions
	}

	r.mu.Lock()
	r.grants = grants
	r.pages = pages
	r.super = identity.IsSuperAdmin()
	r.loaded = true
	r.mu.Unlock()
	r.cache.Purge()

	r.logger.WithField("pages", len(pages)).Debug("permission grants refreshed")
	return nil
}

// HandleGrantUpdate refetches grants when a permission update targets the
// current identity. Updates aimed at other users leave the local state
// untouched; their sessions pick the change up on their own refresh.
func (r *Resolver) HandleGrantUpdate(ctx context.Context, userID int64) error {
	identity, err := r.client.Store().Identity()
	if err != nil {
		return fmt.Errorf("failed to read identity: %w", err)
	}
	if identity == nil || identity.ID != userID {
		return nil
	}
	return r.Refresh(ctx)
}

// Invalidate drops all grants and cached answers, returning the resolver to
// its deny-everything state. Called on logout and session termination.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.grants = nil
	r.pages = nil
	r.super = false
	r.loaded = false
	r.mu.Unlock()
	r.cache.Purge()
}

// Pages returns the accessible-pages listing from the last refresh
func (r *Resolver) Pages() []api.PageAccess {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]api.PageAccess(nil), r.pages...)
}

// Check reports whether the current user may perform action on the page
func (r *Resolver) Check(pageID int64, action Action) bool {
	r.mu.RLock()
	super, loaded := r.super, r.loaded
	r.mu.RUnlock()

	if super {
		r.metrics.ObserveCheck(string(action), true)
		return true
	}
	if !loaded {
		r.metrics.ObserveCheck(string(action), false)
		return false
	}

	key := fmt.Sprintf("%d:%s", pageID, action)
	if allowed, ok := r.cache.Get(key); ok {
		if r.metrics != nil {
			r.metrics.PermissionCacheHits.Inc()
		}
		r.metrics.ObserveCheck(string(action), allowed)
		return allowed
	}
	if r.metrics != nil {
		r.metrics.PermissionCacheMisses.Inc()
	}

	r.mu.RLock()
	grant, ok := r.grants[pageID]
	r.mu.RUnlock()

	allowed := ok && allows(grant, action)
	r.cache.Add(key, allowed)
	r.metrics.ObserveCheck(string(action), allowed)
	return allowed
}

// allows applies the capability hierarchy to a single grant
func allows(g api.Grant, action Action) bool {
	switch action {
	case ActionView:
		return g.CanView || g.CanEdit || g.CanCreate || g.CanDelete
	case ActionCreate:
		return g.CanCreate
	case ActionEdit:
		return g.CanEdit || g.CanDelete
	case ActionDelete:
		return g.CanDelete
	default:
		return false
	}
}

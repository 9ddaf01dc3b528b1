// Package workspace keeps the in-memory form state of each open page.
// Nothing is persisted: a reload starts a new workspace, idle ones expire
// after a TTL and the least recently used ones are evicted at capacity.
package workspace

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/pavelanni/examgen/internal/form"
)

// ErrNotFound is returned for unknown or expired workspace IDs.
var ErrNotFound = errors.New("workspace not found")

// Registry maps workspace IDs to form controllers.
type Registry struct {
	gen   form.Generator
	cache *ttlcache.Cache[string, *form.Controller]
}

// New creates a registry whose controllers use gen. Workspaces idle for
// longer than ttl expire; beyond capacity the least recently used is dropped.
func New(gen form.Generator, ttl time.Duration, capacity uint64) *Registry {
	cache := ttlcache.New[string, *form.Controller](
		ttlcache.WithTTL[string, *form.Controller](ttl),
		ttlcache.WithCapacity[string, *form.Controller](capacity),
	)
	cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *form.Controller]) {
		slog.Debug("workspace evicted", "workspace", item.Key(), "reason", evictionReason(reason))
	})
	return &Registry{gen: gen, cache: cache}
}

// Create starts a fresh workspace and returns its ID.
func (r *Registry) Create() (string, *form.Controller) {
	id := uuid.NewString()
	ctrl := form.NewController(r.gen)
	r.cache.Set(id, ctrl, ttlcache.DefaultTTL)
	return id, ctrl
}

// Get returns the controller for id and resets its idle timer.
func (r *Registry) Get(id string) (*form.Controller, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	item := r.cache.Get(id)
	if item == nil {
		return nil, ErrNotFound
	}
	return item.Value(), nil
}

// Len returns the number of stored workspaces, including expired ones not yet swept.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Sweep removes expired workspaces now.
func (r *Registry) Sweep() {
	r.cache.DeleteExpired()
}

// Run removes expired workspaces in the background until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		r.cache.Stop()
	}()
	r.cache.Start()
}

func evictionReason(reason ttlcache.EvictionReason) string {
	switch reason {
	case ttlcache.EvictionReasonExpired:
		return "expired"
	case ttlcache.EvictionReasonCapacityReached:
		return "capacity"
	default:
		return "deleted"
	}
}

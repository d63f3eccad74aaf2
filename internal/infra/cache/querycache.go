package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/totegamma/taxonomy-sync/internal/domain"
)

const (
	DefaultTTL             = 5 * time.Minute
	DefaultCleanupInterval = 10 * time.Minute
)

// Notifier announces invalidations to other instances and listeners.
type Notifier interface {
	Publish(ctx context.Context, invalidation domain.Invalidation) error
}

// SharedTier stores server-authoritative values shared between instances.
type SharedTier interface {
	Get(ctx context.Context, key Key) ([]byte, bool, error)
	Set(ctx context.Context, key Key, value []byte) error
	Delete(ctx context.Context, key Key) error
	DropVersion(ctx context.Context, version domain.Version) error
}

type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration
	Shared          SharedTier
	Notifier        Notifier
	Origin          string
}

// slot serializes writers of one key. gen is bumped by every authoritative write or drop
// so that a fetch started earlier cannot store its older result.
type slot struct {
	mu  sync.Mutex
	gen uint64
}

// QueryCache holds query results keyed by entity, id, version and language.
//
// Values are never mutated in place; patches return new values.
type QueryCache struct {
	store    *cache.Cache
	slots    sync.Map
	group    singleflight.Group
	shared   SharedTier
	notifier Notifier
	origin   string
}

func New(opts Options) *QueryCache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.Origin == "" {
		opts.Origin = uuid.NewString()
	}
	return &QueryCache{
		store:    cache.New(opts.TTL, opts.CleanupInterval),
		shared:   opts.Shared,
		notifier: opts.Notifier,
		origin:   opts.Origin,
	}
}

// Origin identifies this instance in published invalidations.
func (c *QueryCache) Origin() string {
	return c.origin
}

func (c *QueryCache) slot(key string) *slot {
	s, _ := c.slots.LoadOrStore(key, &slot{})
	return s.(*slot)
}

func (c *QueryCache) Get(key Key) (any, bool) {
	return c.store.Get(key.String())
}

// Load returns the cached value for key, fetching it when absent.
// Concurrent loads of one key share a single fetch.
func (c *QueryCache) Load(ctx context.Context, key Key, fetch domain.Fetcher) (any, error) {
	k := key.String()
	if v, ok := c.store.Get(k); ok {
		return v, nil
	}

	s := c.slot(k)
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	if v, ok := c.loadShared(ctx, key); ok {
		c.storeIfCurrent(s, gen, k, v)
		return v, nil
	}

	v, err, _ := c.group.Do(k, func() (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return nil, err
	}

	if c.storeIfCurrent(s, gen, k, v) {
		c.saveShared(ctx, key, v)
	}
	return v, nil
}

func (c *QueryCache) storeIfCurrent(s *slot, gen uint64, k string, v any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	c.store.Set(k, v, cache.DefaultExpiration)
	return true
}

// Apply runs patch against the latest value of key and stores the result.
// Patches of one key run one at a time. The result stays in this process only.
func (c *QueryCache) Apply(key Key, patch domain.Patch) (any, error) {
	k := key.String()
	s := c.slot(k)
	s.mu.Lock()
	defer s.mu.Unlock()

	current, found := c.store.Get(k)
	next, err := patch(current, found)
	if err != nil {
		return nil, err
	}
	c.store.Set(k, next, cache.DefaultExpiration)
	return next, nil
}

// Reconcile replaces whatever is cached for key, provisional or not, with a server value.
func (c *QueryCache) Reconcile(ctx context.Context, key Key, value any) {
	k := key.String()
	s := c.slot(k)
	s.mu.Lock()
	s.gen++
	c.store.Set(k, value, cache.DefaultExpiration)
	s.mu.Unlock()

	c.saveShared(ctx, key, value)
}

func (c *QueryCache) drop(k string) {
	s := c.slot(k)
	s.mu.Lock()
	s.gen++
	c.store.Delete(k)
	s.mu.Unlock()
}

func (c *QueryCache) dropPrefix(prefix string) []string {
	var dropped []string
	c.slots.Range(func(k, _ any) bool {
		if key := k.(string); strings.HasPrefix(key, prefix) {
			c.drop(key)
			dropped = append(dropped, key)
		}
		return true
	})
	return dropped
}

// dropKey drops key, or every language of it when key.Language is empty.
func (c *QueryCache) dropKey(key Key) []Key {
	if key.Language != "" {
		c.drop(key.String())
		return []Key{key}
	}
	c.drop(key.String())
	dropped := []Key{key}
	for _, k := range c.dropPrefix(key.Prefix()) {
		if parsed, ok := domain.ParseCacheKey(k); ok && parsed != key {
			dropped = append(dropped, parsed)
		}
	}
	return dropped
}

// Invalidate drops keys here and in the shared tier and announces it.
func (c *QueryCache) Invalidate(ctx context.Context, keys ...Key) {
	if len(keys) == 0 {
		return
	}
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, key.String())
		for _, dropped := range c.dropKey(key) {
			if c.shared == nil {
				continue
			}
			if err := c.shared.Delete(ctx, dropped); err != nil {
				slog.WarnContext(
					ctx, "failed to delete shared cache entry",
					slog.String("key", dropped.String()),
					slog.String("error", err.Error()),
					slog.String("module", "cache"),
				)
			}
		}
	}
	c.publish(ctx, domain.Invalidation{Keys: names})
}

// InvalidateVersion drops every key of version.
func (c *QueryCache) InvalidateVersion(ctx context.Context, version domain.Version) {
	c.dropPrefix(version.KeyPrefix())
	if c.shared != nil {
		if err := c.shared.DropVersion(ctx, version); err != nil {
			slog.WarnContext(
				ctx, "failed to drop shared cache version",
				slog.String("version", version.String()),
				slog.String("error", err.Error()),
				slog.String("module", "cache"),
			)
		}
	}
	c.publish(ctx, domain.Invalidation{Version: version})
}

// Drop applies an invalidation published by another instance. Own invalidations are ignored.
func (c *QueryCache) Drop(invalidation domain.Invalidation) {
	if invalidation.Origin == c.origin {
		return
	}
	for _, k := range invalidation.Keys {
		if key, ok := domain.ParseCacheKey(k); ok {
			c.dropKey(key)
		}
	}
	if invalidation.Version != "" {
		c.dropPrefix(invalidation.Version.KeyPrefix())
	}
}

func (c *QueryCache) publish(ctx context.Context, invalidation domain.Invalidation) {
	if c.notifier == nil {
		return
	}
	invalidation.Origin = c.origin
	invalidation.At = time.Now()
	if err := c.notifier.Publish(ctx, invalidation); err != nil {
		slog.ErrorContext(
			ctx, "failed to publish invalidation",
			slog.String("error", err.Error()),
			slog.String("module", "cache"),
		)
	}
}

func (c *QueryCache) loadShared(ctx context.Context, key Key) (any, bool) {
	if c.shared == nil {
		return nil, false
	}
	decode, ok := decoders[key.Entity]
	if !ok {
		return nil, false
	}
	raw, found, err := c.shared.Get(ctx, key)
	if err != nil {
		slog.WarnContext(
			ctx, "failed to read shared cache",
			slog.String("key", key.String()),
			slog.String("error", err.Error()),
			slog.String("module", "cache"),
		)
		return nil, false
	}
	if !found {
		return nil, false
	}
	v, err := decode(raw)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (c *QueryCache) saveShared(ctx context.Context, key Key, value any) {
	if c.shared == nil {
		return
	}
	if _, ok := decoders[key.Entity]; !ok {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.shared.Set(ctx, key, raw); err != nil {
		slog.WarnContext(
			ctx, "failed to write shared cache",
			slog.String("key", key.String()),
			slog.String("error", err.Error()),
			slog.String("module", "cache"),
		)
	}
}

package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"

	"github.com/totegamma/taxonomy-sync/internal/domain"
)

const sharedPrefix = "taxonomy-sync:"

// MemcachedTier is a SharedTier on memcached.
//
// Entry keys hash the version namespace together with the cache key. Dropping a version
// increments its namespace, so every entry of the old namespace stops being reachable.
type MemcachedTier struct {
	mc  *memcache.Client
	ttl int32
}

func NewMemcachedTier(mc *memcache.Client, ttl time.Duration) *MemcachedTier {
	return &MemcachedTier{
		mc:  mc,
		ttl: int32(ttl / time.Second),
	}
}

func namespaceKey(version domain.Version) string {
	return sharedPrefix + "ns:" + strconv.FormatUint(xxh3.HashString(string(version)), 16)
}

func entryKey(namespace string, key Key) string {
	return sharedPrefix + strconv.FormatUint(xxh3.HashString(namespace+"|"+key.String()), 16)
}

func (m *MemcachedTier) namespace(version domain.Version) (string, error) {
	nsKey := namespaceKey(version)
	item, err := m.mc.Get(nsKey)
	if err == nil {
		return string(item.Value), nil
	}
	if !errors.Is(err, memcache.ErrCacheMiss) {
		return "", errors.Wrap(err, "get namespace")
	}

	err = m.mc.Add(&memcache.Item{Key: nsKey, Value: []byte("1")})
	if err != nil && !errors.Is(err, memcache.ErrNotStored) {
		return "", errors.Wrap(err, "add namespace")
	}
	item, err = m.mc.Get(nsKey)
	if err != nil {
		return "", errors.Wrap(err, "get namespace")
	}
	return string(item.Value), nil
}

func (m *MemcachedTier) Get(_ context.Context, key Key) ([]byte, bool, error) {
	ns, err := m.namespace(key.Version)
	if err != nil {
		return nil, false, err
	}
	item, err := m.mc.Get(entryKey(ns, key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "memcache get")
	}
	return item.Value, true, nil
}

func (m *MemcachedTier) Set(_ context.Context, key Key, value []byte) error {
	ns, err := m.namespace(key.Version)
	if err != nil {
		return err
	}
	err = m.mc.Set(&memcache.Item{
		Key:        entryKey(ns, key),
		Value:      value,
		Expiration: m.ttl,
	})
	return errors.Wrap(err, "memcache set")
}

func (m *MemcachedTier) Delete(_ context.Context, key Key) error {
	ns, err := m.namespace(key.Version)
	if err != nil {
		return err
	}
	err = m.mc.Delete(entryKey(ns, key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return errors.Wrap(err, "memcache delete")
}

func (m *MemcachedTier) DropVersion(_ context.Context, version domain.Version) error {
	_, err := m.mc.Increment(namespaceKey(version), 1)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return errors.Wrap(err, "memcache increment")
}

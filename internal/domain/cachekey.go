package domain

import (
	"context"
	"strings"
)

const (
	EntityNode         = "node"
	EntityChildren     = "children"
	EntityResources    = "resources"
	EntityAssociations = "associations"
)

// CacheKey identifies one cached query result.
//
// An empty Language given to an invalidation matches the key in every language.
type CacheKey struct {
	Entity   string
	ID       string
	Version  Version
	Language string
}

func (k CacheKey) String() string {
	return k.Prefix() + k.Language
}

// Prefix is the key without its language.
func (k CacheKey) Prefix() string {
	return k.Version.KeyPrefix() + k.Entity + "|" + k.ID + "|"
}

// KeyPrefix is shared by every cache key of v.
func (v Version) KeyPrefix() string {
	return string(v) + "|"
}

func NodeKey(version Version, language, id string) CacheKey {
	return CacheKey{Entity: EntityNode, ID: id, Version: version, Language: language}
}

func ChildrenKey(version Version, language, parentID string) CacheKey {
	return CacheKey{Entity: EntityChildren, ID: parentID, Version: version, Language: language}
}

func ResourcesKey(version Version, language, parentID string) CacheKey {
	return CacheKey{Entity: EntityResources, ID: parentID, Version: version, Language: language}
}

func AssociationsKey(version Version, kind AssociationKind, primaryID string) CacheKey {
	return CacheKey{Entity: EntityAssociations, ID: string(kind) + "/" + primaryID, Version: version}
}

// ParseCacheKey reverses CacheKey.String.
func ParseCacheKey(s string) (CacheKey, bool) {
	parts := strings.SplitN(s, "|", 4)
	if len(parts) != 4 {
		return CacheKey{}, false
	}
	return CacheKey{
		Version:  Version(parts[0]),
		Entity:   parts[1],
		ID:       parts[2],
		Language: parts[3],
	}, true
}

// Fetcher loads the server's value of a cached query.
type Fetcher func(ctx context.Context) (any, error)

// Patch derives a new value from the current one. found is false when the key is not cached.
type Patch func(current any, found bool) (any, error)

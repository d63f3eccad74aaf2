package cache

import (
	"encoding/json"

	"github.com/totegamma/taxonomy-sync/internal/domain"
)

// Key is the cache's name for domain.CacheKey.
type Key = domain.CacheKey

func decodeAs[T any](raw []byte) (any, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// decoders restore values read back from the shared tier.
var decoders = map[string]func([]byte) (any, error){
	domain.EntityNode:         decodeAs[domain.TreeNode],
	domain.EntityChildren:     decodeAs[[]domain.TreeNode],
	domain.EntityResources:    decodeAs[[]domain.TreeNode],
	domain.EntityAssociations: decodeAs[[]domain.Association],
}

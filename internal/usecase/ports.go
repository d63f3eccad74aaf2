package usecase

import (
	"context"

	"github.com/totegamma/taxonomy-sync"
	"github.com/totegamma/taxonomy-sync/internal/domain"
)

// TaxonomyGateway is the taxonomy service in domain terms.
type TaxonomyGateway interface {
	GetNode(ctx context.Context, version domain.Version, language, id string) (domain.TreeNode, error)
	ListNodes(ctx context.Context, version domain.Version, query taxonomy.NodeQuery) ([]domain.TreeNode, error)
	CreateNode(ctx context.Context, version domain.Version, node taxonomy.NodePostPut) (string, error)
	UpdateMetadata(ctx context.Context, version domain.Version, id string, update domain.MetadataUpdate) error
	DeleteNode(ctx context.Context, version domain.Version, id string) error

	Children(ctx context.Context, version domain.Version, language, parentID string) ([]domain.TreeNode, error)
	Resources(ctx context.Context, version domain.Version, language, parentID string) ([]domain.TreeNode, error)

	// Connect links child under parent, through /node-resources when child is a resource.
	Connect(ctx context.Context, version domain.Version, parentID, childID string, primary bool, relevanceID string) (string, error)
	UpdateConnection(ctx context.Context, version domain.Version, connection domain.ChildConnection) error
	Disconnect(ctx context.Context, version domain.Version, connectionID string) error

	Associations(ctx context.Context, version domain.Version, kind domain.AssociationKind, primaryID string) ([]domain.Association, error)
	CreateAssociation(ctx context.Context, version domain.Version, kind domain.AssociationKind, primaryID string, a domain.Association) (string, error)
	UpdateAssociation(ctx context.Context, version domain.Version, kind domain.AssociationKind, primaryID string, a domain.Association) error
	DeleteAssociation(ctx context.Context, version domain.Version, kind domain.AssociationKind, a domain.Association) error
}

// QueryCache holds query results shared by every reader of one process.
type QueryCache interface {
	Get(key domain.CacheKey) (any, bool)
	Load(ctx context.Context, key domain.CacheKey, fetch domain.Fetcher) (any, error)
	Apply(key domain.CacheKey, patch domain.Patch) (any, error)
	Reconcile(ctx context.Context, key domain.CacheKey, value any)
	Invalidate(ctx context.Context, keys ...domain.CacheKey)
	InvalidateVersion(ctx context.Context, version domain.Version)
}

// AuditRecorder keeps a log of settled mutations.
type AuditRecorder interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
	List(ctx context.Context, entityID string, limit int) ([]domain.AuditEntry, error)
}

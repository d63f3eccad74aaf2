package usecase

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/totegamma/taxonomy-sync"
	"github.com/totegamma/taxonomy-sync/internal/domain"
)

type NodeUsecase struct {
	gateway TaxonomyGateway
	cache   QueryCache
	audit   AuditRecorder
}

func NewNodeUsecase(gateway TaxonomyGateway, cache QueryCache, audit AuditRecorder) *NodeUsecase {
	return &NodeUsecase{
		gateway: gateway,
		cache:   cache,
		audit:   audit,
	}
}

func (uc *NodeUsecase) record(ctx context.Context, entry domain.AuditEntry, err error) {
	if err != nil {
		entry.Error = err.Error()
	}
	if auditErr := uc.audit.Record(ctx, entry); auditErr != nil {
		slog.ErrorContext(
			ctx, "failed to record audit entry",
			slog.String("error", auditErr.Error()),
			slog.String("module", "node"),
		)
	}
}

func (uc *NodeUsecase) Get(ctx context.Context, version domain.Version, language, id string) (domain.TreeNode, error) {
	ctx, span := tracer.Start(ctx, "Node.Usecase.Get")
	defer span.End()

	v, err := uc.cache.Load(ctx, domain.NodeKey(version, language, id), func(ctx context.Context) (any, error) {
		return uc.gateway.GetNode(ctx, version, language, id)
	})
	if err != nil {
		span.RecordError(err)
		return domain.TreeNode{}, err
	}
	return v.(domain.TreeNode), nil
}

func (uc *NodeUsecase) List(ctx context.Context, version domain.Version, query taxonomy.NodeQuery) ([]domain.TreeNode, error) {
	ctx, span := tracer.Start(ctx, "Node.Usecase.List")
	defer span.End()

	nodes, err := uc.gateway.ListNodes(ctx, version, query)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return nodes, nil
}

// Children lists the nodes directly under parentID. Only the expanded level is fetched.
func (uc *NodeUsecase) Children(ctx context.Context, version domain.Version, language, parentID string) ([]domain.TreeNode, error) {
	ctx, span := tracer.Start(ctx, "Node.Usecase.Children")
	defer span.End()

	v, err := uc.cache.Load(ctx, domain.ChildrenKey(version, language, parentID), func(ctx context.Context) (any, error) {
		return uc.gateway.Children(ctx, version, language, parentID)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return v.([]domain.TreeNode), nil
}

func (uc *NodeUsecase) Resources(ctx context.Context, version domain.Version, language, parentID string) ([]domain.TreeNode, error) {
	ctx, span := tracer.Start(ctx, "Node.Usecase.Resources")
	defer span.End()

	v, err := uc.cache.Load(ctx, domain.ResourcesKey(version, language, parentID), func(ctx context.Context) (any, error) {
		return uc.gateway.Resources(ctx, version, language, parentID)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return v.([]domain.TreeNode), nil
}

func (uc *NodeUsecase) Create(ctx context.Context, version domain.Version, node taxonomy.NodePostPut) (string, error) {
	ctx, span := tracer.Start(ctx, "Node.Usecase.Create")
	defer span.End()

	id, err := uc.gateway.CreateNode(ctx, version, node)
	entry := domain.AuditEntry{
		Operation: domain.OperationCreateNode,
		EntityID:  id,
		Version:   version,
	}
	if err != nil {
		span.RecordError(err)
		entry.EntityID = node.Name
		uc.record(ctx, entry, err)
		return "", err
	}
	entry.Created = []string{id}
	uc.record(ctx, entry, nil)
	return id, nil
}

// UpdateMetadata applies update to node id. Features are merged onto the node's current
// features before being written.
func (uc *NodeUsecase) UpdateMetadata(ctx context.Context, version domain.Version, language, id string, update domain.MetadataUpdate) (domain.TreeNode, error) {
	ctx, span := tracer.Start(ctx, "Node.Usecase.UpdateMetadata")
	defer span.End()

	if update.IsEmpty() {
		return uc.Get(ctx, version, language, id)
	}

	if update.Features != nil {
		current, err := uc.gateway.GetNode(ctx, version, language, id)
		if err != nil {
			span.RecordError(err)
			return domain.TreeNode{}, err
		}
		merged := current.Features.Merge(*update.Features)
		update.Features = &merged
	}

	err := uc.gateway.UpdateMetadata(ctx, version, id, update)
	uc.cache.Invalidate(ctx, uc.viewsOf(ctx, version, id)...)
	uc.record(ctx, domain.AuditEntry{
		Operation: domain.OperationUpdateNode,
		EntityID:  id,
		Version:   version,
		Updated:   []string{id},
	}, err)
	if err != nil {
		span.RecordError(err)
		return domain.TreeNode{}, err
	}

	return uc.Get(ctx, version, language, id)
}

// viewsOf lists the cached views showing node id: the node itself and its parents' child lists.
func (uc *NodeUsecase) viewsOf(ctx context.Context, version domain.Version, id string) []domain.CacheKey {
	keys := []domain.CacheKey{domain.NodeKey(version, "", id)}
	parents, err := uc.gateway.Associations(ctx, version, parentKind(id), id)
	if err != nil {
		slog.WarnContext(
			ctx, "failed to look up parents for invalidation",
			slog.String("node", id),
			slog.String("error", err.Error()),
			slog.String("module", "node"),
		)
		return keys
	}
	for _, p := range parents {
		if taxonomy.IsResourceID(id) {
			keys = append(keys, domain.ResourcesKey(version, "", p.ID))
		} else {
			keys = append(keys, domain.ChildrenKey(version, "", p.ID))
		}
	}
	return keys
}

// Delete removes node id. Any cached view of the version may show it, so all of them are dropped.
func (uc *NodeUsecase) Delete(ctx context.Context, version domain.Version, id string) error {
	ctx, span := tracer.Start(ctx, "Node.Usecase.Delete")
	defer span.End()

	err := uc.gateway.DeleteNode(ctx, version, id)
	uc.record(ctx, domain.AuditEntry{
		Operation: domain.OperationDeleteNode,
		EntityID:  id,
		Version:   version,
		Deleted:   []string{id},
	}, err)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "NodeUsecase.Delete: gateway.DeleteNode failed")
	}
	uc.cache.InvalidateVersion(ctx, version)
	return nil
}

// Audit lists the recorded mutations of entityID, newest first.
func (uc *NodeUsecase) Audit(ctx context.Context, entityID string, limit int) ([]domain.AuditEntry, error) {
	return uc.audit.List(ctx, entityID, limit)
}

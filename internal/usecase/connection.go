package usecase

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/totegamma/taxonomy-sync"
	"github.com/totegamma/taxonomy-sync/internal/domain"
)

// ConnectionUsecase keeps every node under at most one parent.
type ConnectionUsecase struct {
	gateway TaxonomyGateway
	cache   QueryCache
	audit   AuditRecorder
}

func NewConnectionUsecase(gateway TaxonomyGateway, cache QueryCache, audit AuditRecorder) *ConnectionUsecase {
	return &ConnectionUsecase{
		gateway: gateway,
		cache:   cache,
		audit:   audit,
	}
}

func parentKind(nodeID string) domain.AssociationKind {
	if taxonomy.IsResourceID(nodeID) {
		return domain.KindTopicResources
	}
	return domain.KindNodeParents
}

// listKeys are the cached views that change when nodeID is linked to or unlinked from parents.
func listKeys(version domain.Version, nodeID string, parentIDs ...string) []domain.CacheKey {
	keys := []domain.CacheKey{domain.AssociationsKey(version, parentKind(nodeID), nodeID)}
	for _, parentID := range parentIDs {
		if parentID == "" {
			continue
		}
		if taxonomy.IsResourceID(nodeID) {
			keys = append(keys, domain.ResourcesKey(version, "", parentID))
		} else {
			keys = append(keys, domain.ChildrenKey(version, "", parentID))
		}
	}
	return keys
}

func (uc *ConnectionUsecase) record(ctx context.Context, entry domain.AuditEntry) {
	if err := uc.audit.Record(ctx, entry); err != nil {
		slog.ErrorContext(
			ctx, "failed to record audit entry",
			slog.String("error", err.Error()),
			slog.String("module", "connection"),
		)
	}
}

// ReconnectToParent moves nodeID from its primary parent to newParentID and returns the
// new connection id.
//
// Only the primary parent connection is replaced; secondary parents of a resource
// stay in place. When the create fails the node is linked back to its previous parent
// once; the returned *domain.ReconnectError tells whether that worked.
func (uc *ConnectionUsecase) ReconnectToParent(ctx context.Context, version domain.Version, nodeID, newParentID string) (string, error) {
	ctx, span := tracer.Start(ctx, "Connection.Usecase.ReconnectToParent")
	defer span.End()

	parents, err := uc.gateway.Associations(ctx, version, parentKind(nodeID), nodeID)
	if err != nil {
		span.RecordError(err)
		return "", &domain.ReconnectError{
			NodeID:      nodeID,
			NewParentID: newParentID,
			Stage:       domain.StageLookup,
			Err:         err,
		}
	}
	if len(parents) == 0 {
		return "", &domain.NoParentConnectionError{NodeID: nodeID}
	}

	old := parents[0]
	for _, p := range parents {
		if p.Primary {
			old = p
			break
		}
	}

	defer uc.cache.Invalidate(ctx, listKeys(version, nodeID, old.ID, newParentID)...)

	entry := domain.AuditEntry{
		Operation: domain.OperationReconnect,
		EntityID:  nodeID,
		Version:   version,
	}

	if err := uc.gateway.Disconnect(ctx, version, old.ConnectionID); err != nil {
		span.RecordError(err)
		rerr := &domain.ReconnectError{
			NodeID:      nodeID,
			OldParentID: old.ID,
			NewParentID: newParentID,
			Stage:       domain.StageDisconnect,
			Err:         err,
		}
		entry.Failed = []string{old.ConnectionID}
		entry.Error = rerr.Error()
		uc.record(ctx, entry)
		return "", rerr
	}
	entry.Deleted = []string{old.ConnectionID}

	connectionID, err := uc.gateway.Connect(ctx, version, newParentID, nodeID, true, old.RelevanceID)
	if err != nil {
		span.RecordError(err)
		rerr := &domain.ReconnectError{
			NodeID:      nodeID,
			OldParentID: old.ID,
			NewParentID: newParentID,
			Stage:       domain.StageConnect,
			Err:         err,
		}
		restoredID, restoreErr := uc.gateway.Connect(ctx, version, old.ID, nodeID, old.Primary, old.RelevanceID)
		if restoreErr == nil {
			rerr.Restored = true
			entry.Created = append(entry.Created, restoredID)
		} else {
			slog.ErrorContext(
				ctx, "failed to restore parent connection",
				slog.String("node", nodeID),
				slog.String("parent", old.ID),
				slog.String("error", restoreErr.Error()),
				slog.String("module", "connection"),
			)
		}
		entry.Error = rerr.Error()
		uc.record(ctx, entry)
		return "", rerr
	}

	entry.Created = append(entry.Created, connectionID)
	uc.record(ctx, entry)
	return connectionID, nil
}

// ConnectExisting links nodeID under parentID. A node that already has a parent is
// reconnected instead.
func (uc *ConnectionUsecase) ConnectExisting(ctx context.Context, version domain.Version, nodeID, parentID string) (string, error) {
	ctx, span := tracer.Start(ctx, "Connection.Usecase.ConnectExisting")
	defer span.End()

	parents, err := uc.gateway.Associations(ctx, version, parentKind(nodeID), nodeID)
	if err != nil {
		span.RecordError(err)
		return "", errors.Wrap(err, "ConnectionUsecase.ConnectExisting: lookup parents failed")
	}
	if len(parents) > 0 {
		return uc.ReconnectToParent(ctx, version, nodeID, parentID)
	}

	connectionID, err := uc.gateway.Connect(ctx, version, parentID, nodeID, true, "")
	uc.cache.Invalidate(ctx, listKeys(version, nodeID, parentID)...)

	entry := domain.AuditEntry{
		Operation: domain.OperationConnect,
		EntityID:  nodeID,
		Version:   version,
	}
	if err != nil {
		span.RecordError(err)
		entry.Error = err.Error()
		uc.record(ctx, entry)
		return "", errors.Wrap(err, "ConnectionUsecase.ConnectExisting: connect failed")
	}
	entry.Created = []string{connectionID}
	uc.record(ctx, entry)
	return connectionID, nil
}

// Disconnect removes one connection. parentID, when known, selects the child list to drop.
func (uc *ConnectionUsecase) Disconnect(ctx context.Context, version domain.Version, connectionID, parentID string) error {
	ctx, span := tracer.Start(ctx, "Connection.Usecase.Disconnect")
	defer span.End()

	err := uc.gateway.Disconnect(ctx, version, connectionID)

	if parentID != "" {
		key := domain.ChildrenKey(version, "", parentID)
		if taxonomy.IsNodeResourceConnection(connectionID) {
			key = domain.ResourcesKey(version, "", parentID)
		}
		uc.cache.Invalidate(ctx, key)
	}

	entry := domain.AuditEntry{
		Operation: domain.OperationDisconnect,
		EntityID:  connectionID,
		Version:   version,
		Deleted:   []string{connectionID},
	}
	if err != nil {
		span.RecordError(err)
		entry.Deleted = nil
		entry.Failed = []string{connectionID}
		entry.Error = err.Error()
		uc.record(ctx, entry)
		return errors.Wrap(err, "ConnectionUsecase.Disconnect: disconnect failed")
	}
	uc.record(ctx, entry)
	return nil
}

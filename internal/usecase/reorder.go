package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/totegamma/taxonomy-sync/internal/domain"
)

type SiblingsKind string

const (
	SiblingsChildren  SiblingsKind = "children"
	SiblingsResources SiblingsKind = "resources"
)

func (k SiblingsKind) IsValid() bool {
	return k == SiblingsChildren || k == SiblingsResources
}

var errSnapshotGone = errors.New("sibling snapshot dropped")

// snapshotAttempts bounds how often a reorder reloads a snapshot that was dropped
// between loading and patching it.
const snapshotAttempts = 3

type ReorderInput struct {
	Version          domain.Version
	Language         string
	ParentID         string
	Siblings         SiblingsKind
	SourceIndex      int
	DestinationIndex int
}

// ReorderUsecase moves one sibling under a parent.
type ReorderUsecase struct {
	gateway TaxonomyGateway
	cache   QueryCache
	audit   AuditRecorder
}

func NewReorderUsecase(gateway TaxonomyGateway, cache QueryCache, audit AuditRecorder) *ReorderUsecase {
	return &ReorderUsecase{
		gateway: gateway,
		cache:   cache,
		audit:   audit,
	}
}

func (uc *ReorderUsecase) key(in ReorderInput) domain.CacheKey {
	if in.Siblings == SiblingsResources {
		return domain.ResourcesKey(in.Version, in.Language, in.ParentID)
	}
	return domain.ChildrenKey(in.Version, in.Language, in.ParentID)
}

func (uc *ReorderUsecase) fetcher(in ReorderInput) domain.Fetcher {
	return func(ctx context.Context) (any, error) {
		if in.Siblings == SiblingsResources {
			return uc.gateway.Resources(ctx, in.Version, in.Language, in.ParentID)
		}
		return uc.gateway.Children(ctx, in.Version, in.Language, in.ParentID)
	}
}

// Reorder moves the sibling at SourceIndex to DestinationIndex of the current display order.
//
// The cached sibling list is patched at once, against its latest value, so that
// consecutive moves build on each other. A single rank update is then sent. Whatever
// its outcome, the list is refetched and replaces the optimistic one.
func (uc *ReorderUsecase) Reorder(ctx context.Context, in ReorderInput) ([]domain.TreeNode, error) {
	ctx, span := tracer.Start(ctx, "Reorder.Usecase.Reorder")
	defer span.End()

	if !in.Siblings.IsValid() {
		return nil, errors.Errorf("unknown siblings kind %q", in.Siblings)
	}

	key := uc.key(in)
	fetch := uc.fetcher(in)

	var (
		move    domain.Move
		moved   domain.TreeNode
		changed bool
		view    any
		err     error
	)
	for attempt := 0; attempt < snapshotAttempts; attempt++ {
		if _, err = uc.cache.Load(ctx, key, fetch); err != nil {
			span.RecordError(err)
			return nil, errors.Wrap(err, "ReorderUsecase.Reorder: load siblings failed")
		}

		view, err = uc.cache.Apply(key, func(current any, found bool) (any, error) {
			if !found {
				return nil, errSnapshotGone
			}
			nodes := current.([]domain.TreeNode)
			ranked := domain.RankedSiblings(nodes)

			m, ok, err := domain.Reorder(ranked, in.SourceIndex, in.DestinationIndex)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrInvariantViolation, err)
			}
			if !ok {
				changed = false
				return current, nil
			}
			for _, n := range nodes {
				if n.ID == m.Item.ID {
					moved = n
				}
			}
			move = m
			changed = true
			return domain.PatchRanks(nodes, domain.ApplyMove(ranked, m)), nil
		})
		if !errors.Is(err, errSnapshotGone) {
			break
		}
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !changed {
		return view.([]domain.TreeNode), nil
	}
	if moved.Connection == nil {
		uc.settle(ctx, key, fetch)
		return nil, fmt.Errorf("%w: %s is not connected to %s", domain.ErrInvariantViolation, moved.ID, in.ParentID)
	}

	connection := *moved.Connection
	connection.Rank = move.NewRank
	updateErr := uc.gateway.UpdateConnection(ctx, in.Version, connection)

	fresh := uc.settle(ctx, key, fetch)

	entry := domain.AuditEntry{
		Operation: domain.OperationReorder,
		EntityID:  moved.ID,
		Version:   in.Version,
		Updated:   []string{connection.ConnectionID},
	}
	if updateErr != nil {
		entry.Updated = nil
		entry.Failed = []string{connection.ConnectionID}
		entry.Error = updateErr.Error()
	}
	if err := uc.audit.Record(ctx, entry); err != nil {
		slog.ErrorContext(
			ctx, "failed to record audit entry",
			slog.String("error", err.Error()),
			slog.String("module", "reorder"),
		)
	}

	if updateErr != nil {
		span.RecordError(updateErr)
		return nil, errors.Wrap(updateErr, "ReorderUsecase.Reorder: update rank failed")
	}
	if fresh != nil {
		return fresh, nil
	}
	return view.([]domain.TreeNode), nil
}

// settle drops the optimistic list everywhere and replaces it with the server's.
func (uc *ReorderUsecase) settle(ctx context.Context, key domain.CacheKey, fetch domain.Fetcher) []domain.TreeNode {
	uc.cache.Invalidate(ctx, key)

	v, err := fetch(ctx)
	if err != nil {
		slog.WarnContext(
			ctx, "failed to refetch siblings after reorder",
			slog.String("key", key.String()),
			slog.String("error", err.Error()),
			slog.String("module", "reorder"),
		)
		return nil
	}
	uc.cache.Reconcile(ctx, key, v)
	return v.([]domain.TreeNode)
}
